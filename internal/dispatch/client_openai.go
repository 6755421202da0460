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

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// openAIClient implements client for the OpenAI chat completions API.
// Messages pass through unchanged, system role included.
type openAIClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func newOpenAIClient(apiKey, baseURL string, timeout time.Duration, logger *zap.Logger) *openAIClient {
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	return &openAIClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

func (c *openAIClient) send(ctx context.Context, req request) (string, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.httpClient.Timeout)
		defer cancel()
	}

	body := openAIRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", transportError(ProviderOpenAI, req.Model, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", transportError(ProviderOpenAI, req.Model, err)
	}

	if resp.StatusCode != http.StatusOK {
		reason := classifyStatus(resp.StatusCode)
		if strings.Contains(string(raw), "model_not_found") {
			reason = ReasonModelNotFound
		}
		return "", &ProviderError{
			Provider: ProviderOpenAI,
			Model:    req.Model,
			Reason:   reason,
			Status:   resp.StatusCode,
			Err:      fmt.Errorf("API request failed: %s", strings.TrimSpace(string(raw))),
		}
	}

	var parsed openAIResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", &ProviderError{
			Provider: ProviderOpenAI,
			Model:    req.Model,
			Reason:   ReasonRejected,
			Err:      fmt.Errorf("failed to parse response: %w", err),
		}
	}
	if parsed.Error != nil {
		return "", &ProviderError{
			Provider: ProviderOpenAI,
			Model:    req.Model,
			Reason:   ReasonRejected,
			Err:      fmt.Errorf("API error: %s", parsed.Error.Message),
		}
	}
	if len(parsed.Choices) == 0 {
		return "", &ProviderError{
			Provider: ProviderOpenAI,
			Model:    req.Model,
			Reason:   ReasonRejected,
			Err:      errors.New("no completion returned"),
		}
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

// transportError wraps a failed round trip. Timeouts and cancellations count
// as the provider being unavailable; the turn is not retried.
func transportError(p Provider, model string, err error) *ProviderError {
	return &ProviderError{
		Provider: p,
		Model:    model,
		Reason:   ReasonUnavailable,
		Err:      err,
	}
}
