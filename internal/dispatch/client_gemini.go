package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// geminiClient implements client for the Gemini generateContent API. System
// turns move into systemInstruction and the assistant role is renamed to
// "model" on the wire.
type geminiClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func newGeminiClient(apiKey, baseURL string, timeout time.Duration, logger *zap.Logger) *geminiClient {
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	return &geminiClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// translateGemini converts a neutral message sequence into Gemini contents.
// First system occurrence becomes the systemInstruction, matching the
// Anthropic translation policy.
func translateGemini(messages []Message) (*geminiContent, []geminiContent) {
	var system *geminiContent
	contents := make([]geminiContent, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			if system == nil {
				system = &geminiContent{Parts: []geminiPart{{Text: m.Content}}}
			}
		case RoleUser:
			contents = append(contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: m.Content}}})
		case RoleAssistant:
			contents = append(contents, geminiContent{Role: "model", Parts: []geminiPart{{Text: m.Content}}})
		}
	}
	return system, contents
}

func (c *geminiClient) send(ctx context.Context, req request) (string, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.httpClient.Timeout)
		defer cancel()
	}

	system, contents := translateGemini(req.Messages)

	body := geminiRequest{
		Contents:          contents,
		SystemInstruction: system,
		GenerationConfig: geminiGenerationConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxTokens,
		},
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, req.Model, c.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", transportError(ProviderGemini, req.Model, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", transportError(ProviderGemini, req.Model, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &ProviderError{
			Provider: ProviderGemini,
			Model:    req.Model,
			Reason:   classifyStatus(resp.StatusCode),
			Status:   resp.StatusCode,
			Err:      fmt.Errorf("API request failed: %s", strings.TrimSpace(string(raw))),
		}
	}

	var parsed geminiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", &ProviderError{
			Provider: ProviderGemini,
			Model:    req.Model,
			Reason:   ReasonRejected,
			Err:      fmt.Errorf("failed to parse response: %w", err),
		}
	}
	if parsed.Error != nil {
		return "", &ProviderError{
			Provider: ProviderGemini,
			Model:    req.Model,
			Reason:   ReasonRejected,
			Err:      fmt.Errorf("API error: %s", parsed.Error.Message),
		}
	}
	if len(parsed.Candidates) == 0 {
		return "", &ProviderError{
			Provider: ProviderGemini,
			Model:    req.Model,
			Reason:   ReasonRejected,
			Err:      errors.New("no completion returned"),
		}
	}

	var result strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		result.WriteString(part.Text)
	}
	return strings.TrimSpace(result.String()), nil
}
