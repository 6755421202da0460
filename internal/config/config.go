// Package config loads taalbot configuration from a YAML file with
// environment-variable fallbacks for provider credentials.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"taalbot/internal/dailyword"
	"taalbot/internal/dispatch"
	"taalbot/internal/relay"
	"taalbot/internal/session"
)

// Config holds all taalbot configuration.
type Config struct {
	// Path to the SQLite database file.
	DatabasePath string `yaml:"database_path"`

	// Default model id for conversation turns.
	DefaultModel string `yaml:"default_model"`

	// History window size (messages per dispatched turn).
	HistoryWindow int `yaml:"history_window"`

	// Tutor system prompt override; empty uses the built-in persona.
	SystemPrompt string `yaml:"system_prompt"`

	// Outbound provider call timeout, e.g. "30s".
	RequestTimeout string `yaml:"request_timeout"`

	Providers ProvidersConfig `yaml:"providers"`

	// Models merged over the built-in table; entries here win.
	Models map[string]dispatch.ModelConfig `yaml:"models"`

	DailyWord DailyWordConfig `yaml:"daily_word"`
}

// ProviderConfig configures one backend's credentials and endpoint.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// ProvidersConfig gates which backends are usable.
type ProvidersConfig struct {
	OpenAI    ProviderConfig `yaml:"openai"`
	Anthropic ProviderConfig `yaml:"anthropic"`
	Gemini    ProviderConfig `yaml:"gemini"`
}

// DailyWordConfig tunes the word-of-the-day cycle and broadcast.
type DailyWordConfig struct {
	// Model id used for generation; empty falls back to DefaultModel.
	Model          string `yaml:"model"`
	MaxAttempts    int    `yaml:"max_attempts"`
	ExclusionLimit int    `yaml:"exclusion_limit"`
	BroadcastTime  string `yaml:"broadcast_time"`
	Timezone       string `yaml:"timezone"`
}

// Default returns the baseline configuration.
func Default() *Config {
	return &Config{
		DatabasePath:   "taalbot.db",
		DefaultModel:   "claude-3.7-sonnet",
		HistoryWindow:  session.DefaultWindow,
		RequestTimeout: "30s",
		DailyWord: DailyWordConfig{
			MaxAttempts:    dailyword.DefaultMaxAttempts,
			ExclusionLimit: dailyword.DefaultExclusionLimit,
			BroadcastTime:  "09:00",
			Timezone:       "Europe/Amsterdam",
		},
	}
}

// Load reads the config file at path, overlaying it on the defaults. A
// missing file is not an error; the defaults plus env credentials apply.
// Config-file credentials win over environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv fills empty credential slots from the environment.
func (c *Config) applyEnv() {
	if c.Providers.OpenAI.APIKey == "" {
		c.Providers.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.Providers.Anthropic.APIKey == "" {
		c.Providers.Anthropic.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if c.Providers.Gemini.APIKey == "" {
		c.Providers.Gemini.APIKey = os.Getenv("GEMINI_API_KEY")
	}
}

func (c *Config) validate() error {
	if c.HistoryWindow <= 0 {
		return fmt.Errorf("history_window must be positive, got %d", c.HistoryWindow)
	}
	if _, err := time.ParseDuration(c.RequestTimeout); err != nil {
		return fmt.Errorf("invalid request_timeout %q: %w", c.RequestTimeout, err)
	}
	if _, err := time.Parse("15:04", c.DailyWord.BroadcastTime); err != nil {
		return fmt.Errorf("invalid daily_word.broadcast_time %q: %w", c.DailyWord.BroadcastTime, err)
	}
	return nil
}

// Credentials resolves the dispatch credential set.
func (c *Config) Credentials() dispatch.Credentials {
	timeout, _ := time.ParseDuration(c.RequestTimeout)
	return dispatch.Credentials{
		OpenAIKey:        c.Providers.OpenAI.APIKey,
		OpenAIBaseURL:    c.Providers.OpenAI.BaseURL,
		AnthropicKey:     c.Providers.Anthropic.APIKey,
		AnthropicBaseURL: c.Providers.Anthropic.BaseURL,
		GeminiKey:        c.Providers.Gemini.APIKey,
		GeminiBaseURL:    c.Providers.Gemini.BaseURL,
		Timeout:          timeout,
	}
}

// ModelTable merges configured models over the built-in table.
func (c *Config) ModelTable() map[string]dispatch.ModelConfig {
	table := dispatch.DefaultModels()
	for id, mc := range c.Models {
		table[id] = mc
	}
	return table
}

// DailyWordModel returns the model id for daily-word generation.
func (c *Config) DailyWordModel() string {
	if c.DailyWord.Model != "" {
		return c.DailyWord.Model
	}
	return c.DefaultModel
}

// BroadcastSchedule returns the scheduler settings.
func (c *Config) BroadcastSchedule() relay.Schedule {
	return relay.Schedule{
		TimeOfDay: c.DailyWord.BroadcastTime,
		Timezone:  c.DailyWord.Timezone,
	}
}
