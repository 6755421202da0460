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

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com/v1"
	anthropicVersion        = "2023-06-01"
)

// anthropicClient implements client for the Anthropic messages API. The
// system turn travels out-of-band in the request's System field; the message
// list carries only user/assistant turns.
type anthropicClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func newAnthropicClient(apiKey, baseURL string, timeout time.Duration, logger *zap.Logger) *anthropicClient {
	if baseURL == "" {
		baseURL = defaultAnthropicBaseURL
	}
	return &anthropicClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// translateAnthropic splits a neutral message sequence into the out-of-band
// system string and the wire message list. The first system occurrence wins;
// later ones are dropped. Other roles keep their original order.
func translateAnthropic(messages []Message) (string, []anthropicMessage) {
	var system string
	out := make([]anthropicMessage, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			if system == "" {
				system = m.Content
			}
		case RoleUser, RoleAssistant:
			out = append(out, anthropicMessage{Role: m.Role, Content: m.Content})
		}
	}
	return system, out
}

func (c *anthropicClient) send(ctx context.Context, req request) (string, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.httpClient.Timeout)
		defer cancel()
	}

	system, wireMessages := translateAnthropic(req.Messages)

	body := anthropicRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		System:      system,
		Messages:    wireMessages,
		Temperature: req.Temperature,
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", transportError(ProviderAnthropic, req.Model, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", transportError(ProviderAnthropic, req.Model, err)
	}

	if resp.StatusCode != http.StatusOK {
		reason := classifyStatus(resp.StatusCode)
		if strings.Contains(string(raw), "not_found_error") {
			reason = ReasonModelNotFound
		}
		return "", &ProviderError{
			Provider: ProviderAnthropic,
			Model:    req.Model,
			Reason:   reason,
			Status:   resp.StatusCode,
			Err:      fmt.Errorf("API request failed: %s", strings.TrimSpace(string(raw))),
		}
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", &ProviderError{
			Provider: ProviderAnthropic,
			Model:    req.Model,
			Reason:   ReasonRejected,
			Err:      fmt.Errorf("failed to parse response: %w", err),
		}
	}
	if parsed.Error != nil {
		return "", &ProviderError{
			Provider: ProviderAnthropic,
			Model:    req.Model,
			Reason:   ReasonRejected,
			Err:      fmt.Errorf("API error: %s", parsed.Error.Message),
		}
	}
	if len(parsed.Content) == 0 {
		return "", &ProviderError{
			Provider: ProviderAnthropic,
			Model:    req.Model,
			Reason:   ReasonRejected,
			Err:      errors.New("no completion returned"),
		}
	}

	var result strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			result.WriteString(block.Text)
		}
	}
	return strings.TrimSpace(result.String()), nil
}
