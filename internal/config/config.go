// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load(ctx) layers defaults, an optional YAML file and FLASHQUIZ_* env vars.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"time"
)

// Leaderboard backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Content generation providers.
const (
	ProviderOffline = "offline"
	ProviderOpenAI  = "openai"
	ProviderGemini  = "gemini"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log lines.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DeckDir is scanned at startup for *.json and *.toml decks.
	DeckDir string `koanf:"deck_dir"`

	// WatchDecks reloads the deck directory when its files change.
	WatchDecks bool `koanf:"watch_decks"`

	// LeaderboardBackend is "file" (JSON, atomic replace), "sqlite" or
	// "memory" (lost on exit).
	LeaderboardBackend string `koanf:"leaderboard_backend"`

	// LeaderboardPath is the JSON file or sqlite database path.
	LeaderboardPath string `koanf:"leaderboard_path"`

	// LeaderboardSize caps the persisted table.
	LeaderboardSize int `koanf:"leaderboard_size"`

	// LeaderboardLockTimeoutMS bounds how long a submit waits for the lock.
	LeaderboardLockTimeoutMS int `koanf:"leaderboard_lock_timeout_ms"`

	// SessionIdleTimeoutS expires sessions that saw no request for this long.
	SessionIdleTimeoutS int `koanf:"session_idle_timeout_s"`

	// SessionSweepIntervalS is how often idle sessions are collected.
	SessionSweepIntervalS int `koanf:"session_sweep_interval_s"`

	// MaxSessions caps live sessions; 0 means unbounded.
	MaxSessions int `koanf:"max_sessions"`

	// DedupeSize is how many submit idempotency keys are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// LLMProvider selects the content generator: offline, openai, gemini.
	LLMProvider string `koanf:"llm_provider"`

	// LLMBaseURL overrides the provider endpoint (local OpenAI-compatible servers).
	LLMBaseURL string `koanf:"llm_base_url"`

	// LLMModel is the model name sent to the provider.
	LLMModel string `koanf:"llm_model"`

	// LLMAPIKey is used when a request does not carry its own key.
	LLMAPIKey string `koanf:"llm_api_key"`

	// LLMTimeoutS bounds a single generation call.
	LLMTimeoutS int `koanf:"llm_timeout_s"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:                 "info",
		LogFormat:                "text",
		Addr:                     ":9080",
		DeckDir:                  "decks",
		WatchDecks:               true,
		LeaderboardBackend:       BackendFile,
		LeaderboardPath:          "leaderboard.json",
		LeaderboardSize:          10,
		LeaderboardLockTimeoutMS: 2000,
		SessionIdleTimeoutS:      1800,
		SessionSweepIntervalS:    60,
		MaxSessions:              10_000,
		DedupeSize:               10_000,
		LLMProvider:              ProviderOffline,
		LLMBaseURL:               "",
		LLMModel:                 "",
		LLMTimeoutS:              60,
	}
}

// LeaderboardLockTimeout returns the submit lock wait as a duration.
func (c *Config) LeaderboardLockTimeout() time.Duration {
	return time.Duration(c.LeaderboardLockTimeoutMS) * time.Millisecond
}

// SessionIdleTimeout returns the idle expiry as a duration.
func (c *Config) SessionIdleTimeout() time.Duration {
	return time.Duration(c.SessionIdleTimeoutS) * time.Second
}

// SessionSweepInterval returns the sweep period as a duration.
func (c *Config) SessionSweepInterval() time.Duration {
	return time.Duration(c.SessionSweepIntervalS) * time.Second
}

// LLMTimeout returns the per-call generation timeout.
func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLMTimeoutS) * time.Second
}
