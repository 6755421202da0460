package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taalbot/internal/dispatch"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "taalbot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "taalbot.db", cfg.DatabasePath)
	assert.Equal(t, "claude-3.7-sonnet", cfg.DefaultModel)
	assert.Equal(t, 20, cfg.HistoryWindow)
	assert.Equal(t, "09:00", cfg.DailyWord.BroadcastTime)
	assert.Equal(t, "Europe/Amsterdam", cfg.DailyWord.Timezone)
}

func TestLoad_FileOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
database_path: /var/lib/taalbot/bot.db
default_model: gpt-4o-mini
history_window: 8
request_timeout: 45s
daily_word:
  model: gemini-2.0-flash
  broadcast_time: "07:30"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/taalbot/bot.db", cfg.DatabasePath)
	assert.Equal(t, "gpt-4o-mini", cfg.DefaultModel)
	assert.Equal(t, 8, cfg.HistoryWindow)
	assert.Equal(t, "gemini-2.0-flash", cfg.DailyWordModel())
	assert.Equal(t, "07:30", cfg.BroadcastSchedule().TimeOfDay)
	// Untouched keys keep their defaults.
	assert.Equal(t, "Europe/Amsterdam", cfg.DailyWord.Timezone)
	assert.Equal(t, 45*time.Second, cfg.Credentials().Timeout)
}

func TestLoad_EnvFillsMissingCredentials(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-openai")
	t.Setenv("ANTHROPIC_API_KEY", "env-anthropic")

	path := writeConfig(t, `
providers:
  anthropic:
    api_key: file-anthropic
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	creds := cfg.Credentials()
	assert.Equal(t, "env-openai", creds.OpenAIKey)
	// File credentials win over the environment.
	assert.Equal(t, "file-anthropic", creds.AnthropicKey)
}

func TestLoad_Validation(t *testing.T) {
	cases := []struct {
		name    string
		content string
		wantErr string
	}{
		{"zero window", "history_window: 0", "history_window"},
		{"bad timeout", "request_timeout: soon", "request_timeout"},
		{"bad broadcast time", "daily_word:\n  broadcast_time: \"25:99\"", "broadcast_time"},
		{"malformed yaml", "models: [not a map", "parse"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestModelTable_FileEntriesWin(t *testing.T) {
	path := writeConfig(t, `
models:
  gpt-4o-mini:
    provider: openai
    temperature: 0.2
    max_tokens: 512
  llama-local:
    provider: openai
    temperature: 0.9
    max_tokens: 1024
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	table := cfg.ModelTable()
	assert.Equal(t, 0.2, table["gpt-4o-mini"].Temperature)
	assert.Equal(t, dispatch.ProviderOpenAI, table["llama-local"].Provider)
	// Built-in entries the file never mentions survive the merge.
	assert.Equal(t, dispatch.ProviderAnthropic, table["claude-3.7-sonnet"].Provider)
}

func TestDailyWordModel_FallsBackToDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, cfg.DefaultModel, cfg.DailyWordModel())
}
