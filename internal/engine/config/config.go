// Package config loads the engine's TOML configuration, following the same
// nested-struct-per-concern layout the teacher repository uses for its own
// application config.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config is the root configuration object, §6 "Configuration (enumerated)".
type Config struct {
	Environment string        `toml:"environment"` // "development" or "production"
	Engine      EngineConfig  `toml:"engine"`
	Session     SessionConfig `toml:"session"`
	Ledger      LedgerConfig  `toml:"ledger"`
	Storage     StorageConfig `toml:"storage"`
	Queue       QueueConfig   `toml:"queue"`
	Logging     LoggingConfig `toml:"logging"`
}

// EngineConfig holds the timing/retry knobs enumerated in §6.
type EngineConfig struct {
	DefaultMaxAttempts int    `toml:"default_max_attempts"`
	HTTPTimeout        string `toml:"http_timeout_s"`
	BrowserNavTimeout  string `toml:"browser_nav_timeout_ms"`
	ProviderTimeout    string `toml:"provider_timeout_s"`
	ProviderCreditsCap int    `toml:"provider_credits_cap_per_run"`
	BackOffBase        string `toml:"back_off_base_s"`
	BackOffCap         string `toml:"back_off_cap_s"`
	MaxConcurrency     int    `toml:"max_concurrency"` // Orchestrator worker-pool size
	UserAgent          string `toml:"user_agent"`
	EventStreamAddr    string `toml:"event_stream_addr"` // listen address for the websocket event relay
}

// SessionConfig mirrors §6's session_* knobs.
type SessionConfig struct {
	MaxAgeMinutes       int `toml:"session_max_age_min"`
	MaxUses             int `toml:"session_max_uses"`
	MaxFailureStreak    int `toml:"session_max_failure_streak"`
	CleanupIntervalSecs int `toml:"cleanup_interval_s"`
}

// LedgerConfig configures provider credit accounting.
type LedgerConfig struct {
	DefaultTotalCredits int `toml:"default_total_credits"`
}

// QueueConfig configures the "runs.execute" task queue adapter.
type QueueConfig struct {
	PollInterval      string `toml:"poll_interval_s"`
	VisibilityTimeout string `toml:"visibility_timeout_s"`
	MaxReceive        int    `toml:"max_receive"`
}

// StorageConfig points at the embedded Badger database.
type StorageConfig struct {
	Path           string `toml:"path"`
	ResetOnStartup bool   `toml:"reset_on_startup"`
}

// LoggingConfig selects arbor writers, matching the teacher's LoggingConfig.
type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Format string   `toml:"format"` // "json" or "text"
	Output []string `toml:"output"` // "stdout", "file"
}

// IsProduction reports whether test/localhost URLs must be rejected.
func (c *Config) IsProduction() bool {
	return c.Environment == "" || c.Environment == "production"
}

// ValidateJobURL rejects loopback targets ("localhost", "127.0.0.1", "::1")
// unless the process is running with environment=development, so a
// misconfigured production deployment can't be pointed at the operator's
// own machine.
func (c *Config) ValidateJobURL(targetURL string) error {
	if !c.IsProduction() {
		return nil
	}
	u, err := url.Parse(targetURL)
	if err != nil {
		return fmt.Errorf("config: invalid target_url %q: %w", targetURL, err)
	}
	host := strings.ToLower(u.Hostname())
	if host == "localhost" || host == "127.0.0.1" || host == "::1" {
		return fmt.Errorf("config: target_url %q targets a loopback host, rejected outside environment=development", targetURL)
	}
	return nil
}

// Load reads and parses a TOML config file, applying defaults for any zero
// fields (teacher convention: defaults layered under an explicit config
// struct rather than scattered fallback checks).
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// Default returns a Config populated entirely with defaults, for tests and
// embedding callers that don't load from disk.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Environment == "" {
		cfg.Environment = "production"
	}
	if cfg.Engine.DefaultMaxAttempts <= 0 {
		cfg.Engine.DefaultMaxAttempts = 3
	}
	if cfg.Engine.HTTPTimeout == "" {
		cfg.Engine.HTTPTimeout = "20s"
	}
	if cfg.Engine.BrowserNavTimeout == "" {
		cfg.Engine.BrowserNavTimeout = "30s"
	}
	if cfg.Engine.ProviderTimeout == "" {
		cfg.Engine.ProviderTimeout = "60s"
	}
	if cfg.Engine.BackOffBase == "" {
		cfg.Engine.BackOffBase = "10s"
	}
	if cfg.Engine.BackOffCap == "" {
		cfg.Engine.BackOffCap = "300s"
	}
	if cfg.Engine.MaxConcurrency <= 0 {
		cfg.Engine.MaxConcurrency = 10
	}
	if cfg.Engine.UserAgent == "" {
		cfg.Engine.UserAgent = "ScrapeEngine/1.0"
	}
	if cfg.Engine.EventStreamAddr == "" {
		cfg.Engine.EventStreamAddr = ":8089"
	}
	if cfg.Session.MaxAgeMinutes <= 0 {
		cfg.Session.MaxAgeMinutes = 120
	}
	if cfg.Session.MaxUses <= 0 {
		cfg.Session.MaxUses = 100
	}
	if cfg.Session.MaxFailureStreak <= 0 {
		cfg.Session.MaxFailureStreak = 3
	}
	if cfg.Session.CleanupIntervalSecs <= 0 {
		cfg.Session.CleanupIntervalSecs = 300
	}
	if cfg.Ledger.DefaultTotalCredits <= 0 {
		cfg.Ledger.DefaultTotalCredits = 1000
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = "./data/engine.db"
	}
	if cfg.Queue.PollInterval == "" {
		cfg.Queue.PollInterval = "1s"
	}
	if cfg.Queue.VisibilityTimeout == "" {
		cfg.Queue.VisibilityTimeout = "5m"
	}
	if cfg.Queue.MaxReceive <= 0 {
		cfg.Queue.MaxReceive = 3
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if len(cfg.Logging.Output) == 0 {
		cfg.Logging.Output = []string{"stdout"}
	}
}

// Duration parses a "20s"-style duration field, returning fallback on parse
// failure — matching the teacher's tolerant duration-string convention.
func Duration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
