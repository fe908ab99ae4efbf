// Package config loads daemon configuration from file and environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Viper keys, shared between SetDefault and the typed getters so a key
// can't silently drift between the two.
const (
	keyMonitorInterval = "monitor.interval"
	keyMonitorCooldown = "monitor.suggestion_cooldown"
	keyMonitorIgnore   = "monitor.ignore_apps"
	keyServerListen    = "server.listen_addr"
	keyLLMAPIKey       = "llm.api_key"
	keyLLMModel        = "llm.model"
	keySpeechEnabled   = "speech.enabled"
	keySpeechRate      = "speech.rate"
	keyDataDir         = "data_dir"
)

// Config holds all companiond configuration.
type Config struct {
	Monitor MonitorConfig
	Server  ServerConfig
	LLM     LLMConfig
	Speech  SpeechConfig
	DataDir string
}

// MonitorConfig tunes the focus-polling loop.
type MonitorConfig struct {
	// Interval is the poll period of the focus monitor.
	Interval time.Duration

	// SuggestionCooldown is the minimum gap between two unsolicited
	// notifications, regardless of how many focus changes occur.
	SuggestionCooldown time.Duration

	// IgnoreApps lists app identities that must never trigger a
	// notification or state update (the companion's own UI).
	IgnoreApps []string
}

// ServerConfig configures the WebSocket endpoint.
type ServerConfig struct {
	ListenAddr string
}

// LLMConfig configures the generation backend.
type LLMConfig struct {
	// APIKey overrides the key in the encrypted secret store when set.
	APIKey string
	Model  string
}

// SpeechConfig configures text-to-speech output.
type SpeechConfig struct {
	Enabled bool
	// Rate is words per minute where the platform engine supports it.
	Rate int
}

// Default returns the built-in configuration.
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Monitor: MonitorConfig{
			Interval:           10 * time.Second,
			SuggestionCooldown: 60 * time.Second,
			IgnoreApps:         []string{"companiond", "Companion", "Electron"},
		},
		Server: ServerConfig{
			ListenAddr: "127.0.0.1:8000",
		},
		LLM: LLMConfig{
			Model: "gemini-2.5-flash",
		},
		Speech: SpeechConfig{
			Enabled: true,
			Rate:    180,
		},
		DataDir: filepath.Join(home, ".companiond"),
	}
}

// Load reads configuration from ~/.companiond/config.yaml and COMPANIOND_*
// environment variables, layered over the defaults.
func Load() (*Config, error) {
	defaults := Default()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(defaults.DataDir)
	v.AddConfigPath(".")

	v.SetEnvPrefix("COMPANIOND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults must be registered with viper itself: AutomaticEnv only
	// surfaces an env value for keys viper already knows about, so a
	// struct-only default would leave COMPANIOND_* overrides inert.
	v.SetDefault(keyMonitorInterval, defaults.Monitor.Interval)
	v.SetDefault(keyMonitorCooldown, defaults.Monitor.SuggestionCooldown)
	v.SetDefault(keyMonitorIgnore, defaults.Monitor.IgnoreApps)
	v.SetDefault(keyServerListen, defaults.Server.ListenAddr)
	v.SetDefault(keyLLMAPIKey, defaults.LLM.APIKey)
	v.SetDefault(keyLLMModel, defaults.LLM.Model)
	v.SetDefault(keySpeechEnabled, defaults.Speech.Enabled)
	v.SetDefault(keySpeechRate, defaults.Speech.Rate)
	v.SetDefault(keyDataDir, defaults.DataDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		// No config file: run on defaults plus env overrides.
	}

	// Typed getters rather than Unmarshal: env values arrive as strings,
	// and the getters' casting handles "3s"/"false"/"150" uniformly.
	cfg := &Config{
		Monitor: MonitorConfig{
			Interval:           v.GetDuration(keyMonitorInterval),
			SuggestionCooldown: v.GetDuration(keyMonitorCooldown),
			IgnoreApps:         v.GetStringSlice(keyMonitorIgnore),
		},
		Server: ServerConfig{
			ListenAddr: v.GetString(keyServerListen),
		},
		LLM: LLMConfig{
			APIKey: v.GetString(keyLLMAPIKey),
			Model:  v.GetString(keyLLMModel),
		},
		Speech: SpeechConfig{
			Enabled: v.GetBool(keySpeechEnabled),
			Rate:    v.GetInt(keySpeechRate),
		},
		DataDir: v.GetString(keyDataDir),
	}

	// Env-only escape hatches for the common knobs.
	if key := os.Getenv("GEMINI_API_KEY"); key != "" && cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = key
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks invariants the rest of the daemon relies on.
func (c *Config) Validate() error {
	if c.Monitor.Interval <= 0 {
		return fmt.Errorf("monitor.interval must be positive, got %s", c.Monitor.Interval)
	}
	if c.Monitor.SuggestionCooldown <= 0 {
		return fmt.Errorf("monitor.suggestion_cooldown must be positive, got %s", c.Monitor.SuggestionCooldown)
	}
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr must not be empty")
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model must not be empty")
	}
	return nil
}
