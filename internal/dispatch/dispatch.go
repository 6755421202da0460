// Package dispatch routes prepared message sequences to the configured LLM
// backend and normalizes each provider's wire format into plain text.
package dispatch

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultTimeout bounds every outbound provider call unless configured
// otherwise.
const DefaultTimeout = 30 * time.Second

// client is the per-provider send capability. One implementation per wire
// format, selected through the static model table rather than inline
// conditionals.
type client interface {
	send(ctx context.Context, req request) (string, error)
}

// Credentials gates which providers are usable. An empty key means the
// provider's client is never constructed and models resolving to it fail with
// MissingCredentialsError.
type Credentials struct {
	OpenAIKey        string
	OpenAIBaseURL    string
	AnthropicKey     string
	AnthropicBaseURL string
	GeminiKey        string
	GeminiBaseURL    string
	Timeout          time.Duration
}

// DefaultModels returns the built-in model table.
func DefaultModels() map[string]ModelConfig {
	return map[string]ModelConfig{
		"gpt-4o-mini": {
			Provider:    ProviderOpenAI,
			Temperature: 0.8,
			MaxTokens:   2000,
		},
		"claude-3.7-sonnet": {
			Provider:    ProviderAnthropic,
			Temperature: 0.7,
			MaxTokens:   2000,
			APIModel:    "claude-3-7-sonnet-20250219",
		},
		"gemini-2.0-flash": {
			Provider:    ProviderGemini,
			Temperature: 0.7,
			MaxTokens:   2000,
		},
	}
}

// Dispatcher resolves model ids against the static table and forwards calls
// to the matching provider client.
type Dispatcher struct {
	models  map[string]ModelConfig
	clients map[Provider]client
	logger  *zap.Logger
}

// New builds a dispatcher over the given model table. Pass nil models to use
// DefaultModels.
func New(models map[string]ModelConfig, creds Credentials, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if models == nil {
		models = DefaultModels()
	}
	timeout := creds.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	clients := make(map[Provider]client)
	if creds.OpenAIKey != "" {
		clients[ProviderOpenAI] = newOpenAIClient(creds.OpenAIKey, creds.OpenAIBaseURL, timeout, logger)
	}
	if creds.AnthropicKey != "" {
		clients[ProviderAnthropic] = newAnthropicClient(creds.AnthropicKey, creds.AnthropicBaseURL, timeout, logger)
	}
	if creds.GeminiKey != "" {
		clients[ProviderGemini] = newGeminiClient(creds.GeminiKey, creds.GeminiBaseURL, timeout, logger)
	}

	return &Dispatcher{models: models, clients: clients, logger: logger}
}

// ModelIDs returns the known public model identifiers.
func (d *Dispatcher) ModelIDs() []string {
	ids := make([]string, 0, len(d.models))
	for id := range d.models {
		ids = append(ids, id)
	}
	return ids
}

// HasModel reports whether the given public id is in the model table.
func (d *Dispatcher) HasModel(id string) bool {
	_, ok := d.models[id]
	return ok
}

// Send routes messages to the backend the model id resolves to and returns
// the completion text. Overrides (temperature, max_tokens, model) win over
// the table defaults.
func (d *Dispatcher) Send(ctx context.Context, messages []Message, modelID string, overrides map[string]any) (string, error) {
	cfg, ok := d.models[modelID]
	if !ok {
		return "", &UnknownModelError{Model: modelID, Known: d.ModelIDs()}
	}
	cfg = applyOverrides(cfg, overrides)

	c, ok := d.clients[cfg.Provider]
	if !ok {
		return "", &MissingCredentialsError{Provider: cfg.Provider, Model: modelID}
	}

	// The public id doubles as the wire model for OpenAI-shaped backends;
	// the others substitute their provider-specific name when configured.
	wireModel := modelID
	if cfg.Provider != ProviderOpenAI && cfg.APIModel != "" {
		wireModel = cfg.APIModel
	}

	reqID := uuid.NewString()[:8]
	start := time.Now()
	d.logger.Debug("dispatching",
		zap.String("req_id", reqID),
		zap.String("model", modelID),
		zap.String("provider", string(cfg.Provider)),
		zap.Int("messages", len(messages)))

	text, err := c.send(ctx, request{
		Model:       wireModel,
		Messages:    messages,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	})
	if err != nil {
		d.logger.Warn("dispatch failed",
			zap.String("req_id", reqID),
			zap.String("model", modelID),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", err
	}

	d.logger.Debug("dispatch complete",
		zap.String("req_id", reqID),
		zap.String("model", modelID),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("response_len", len(text)))
	return text, nil
}

// applyOverrides merges per-call overrides onto the resolved config.
func applyOverrides(cfg ModelConfig, overrides map[string]any) ModelConfig {
	for key, value := range overrides {
		switch key {
		case "temperature":
			switch v := value.(type) {
			case float64:
				cfg.Temperature = v
			case int:
				cfg.Temperature = float64(v)
			}
		case "max_tokens":
			switch v := value.(type) {
			case int:
				cfg.MaxTokens = v
			case float64:
				cfg.MaxTokens = int(v)
			}
		case "model":
			if v, ok := value.(string); ok {
				cfg.APIModel = v
			}
		}
	}
	return cfg
}
