package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 10*time.Second, cfg.Monitor.Interval)
	assert.Equal(t, 60*time.Second, cfg.Monitor.SuggestionCooldown)
	assert.Equal(t, "127.0.0.1:8000", cfg.Server.ListenAddr)
	assert.Equal(t, "gemini-2.5-flash", cfg.LLM.Model)
	assert.True(t, cfg.Speech.Enabled)
	assert.Equal(t, 180, cfg.Speech.Rate)
	assert.NotEmpty(t, cfg.DataDir)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "zero interval",
			mutate:  func(c *Config) { c.Monitor.Interval = 0 },
			wantErr: "monitor.interval",
		},
		{
			name:    "negative cooldown",
			mutate:  func(c *Config) { c.Monitor.SuggestionCooldown = -time.Second },
			wantErr: "monitor.suggestion_cooldown",
		},
		{
			name:    "empty listen addr",
			mutate:  func(c *Config) { c.Server.ListenAddr = "" },
			wantErr: "server.listen_addr",
		},
		{
			name:    "empty model",
			mutate:  func(c *Config) { c.LLM.Model = "" },
			wantErr: "llm.model",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestLoad_EnvAPIKeyFallback(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "from-env")

	cfg, err := Load()
	assert.NoError(t, err)
	assert.Equal(t, "from-env", cfg.LLM.APIKey)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("COMPANIOND_MONITOR_INTERVAL", "3s")
	t.Setenv("COMPANIOND_MONITOR_SUGGESTION_COOLDOWN", "45s")
	t.Setenv("COMPANIOND_SERVER_LISTEN_ADDR", "127.0.0.1:9100")
	t.Setenv("COMPANIOND_LLM_MODEL", "gemini-2.5-pro")
	t.Setenv("COMPANIOND_SPEECH_ENABLED", "false")
	t.Setenv("COMPANIOND_SPEECH_RATE", "150")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, cfg.Monitor.Interval)
	assert.Equal(t, 45*time.Second, cfg.Monitor.SuggestionCooldown)
	assert.Equal(t, "127.0.0.1:9100", cfg.Server.ListenAddr)
	assert.Equal(t, "gemini-2.5-pro", cfg.LLM.Model)
	assert.False(t, cfg.Speech.Enabled)
	assert.Equal(t, 150, cfg.Speech.Rate)

	// Keys without an override keep their defaults.
	assert.Equal(t, Default().Monitor.IgnoreApps, cfg.Monitor.IgnoreApps)
	assert.Equal(t, Default().DataDir, cfg.DataDir)
}
