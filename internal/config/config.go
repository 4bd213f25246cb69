// Package config loads and validates the massbatch configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rshade/massbatch/internal/logging"
)

// Default values applied when the configuration file omits a setting.
const (
	// DefaultExecutionLimitSeconds mirrors the platform execution-time
	// limit assumed when none is configured.
	DefaultExecutionLimitSeconds = 60

	// BudgetSafetyMarginSeconds is subtracted from the execution limit so
	// a pass suspends before the platform kills the request.
	BudgetSafetyMarginSeconds = 3

	// DefaultSessionTTLSeconds is how long an abandoned run survives in
	// the session store before eviction.
	DefaultSessionTTLSeconds = 3600

	// DefaultLandingPage is where completed runs redirect when no
	// referring page is known.
	DefaultLandingPage = "/central"

	// DefaultTransferPage is the review page for the pending-transfer
	// list.
	DefaultTransferPage = "/transfer"
)

// Config is the root configuration document.
type Config struct {
	// SessionDir is the directory backing the resumable-session store.
	SessionDir string `yaml:"session_dir"`

	// SessionTTLSeconds evicts abandoned runs after this many seconds.
	SessionTTLSeconds int `yaml:"session_ttl_seconds"`

	// ExecutionLimitSeconds is the platform execution-time limit; the
	// per-pass budget is this minus the safety margin.
	ExecutionLimitSeconds int `yaml:"execution_limit_seconds"`

	// LandingPage is the default redirect target for completed runs.
	LandingPage string `yaml:"landing_page"`

	// TransferPage is the redirect target set by add-to-transfer-list.
	TransferPage string `yaml:"transfer_page"`

	// Logging configures the structured logger.
	Logging logging.Config `yaml:"logging"`
}

// New returns the default configuration.
func New() *Config {
	return &Config{
		SessionDir:            defaultSessionDir(),
		SessionTTLSeconds:     DefaultSessionTTLSeconds,
		ExecutionLimitSeconds: DefaultExecutionLimitSeconds,
		LandingPage:           DefaultLandingPage,
		TransferPage:          DefaultTransferPage,
		Logging:               logging.Config{Level: "info", Format: "console"},
	}
}

// Load reads a configuration file and merges it over the defaults.
// A missing path returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := New()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the engine cannot work with.
func (c *Config) Validate() error {
	if c.ExecutionLimitSeconds < 0 {
		return fmt.Errorf("execution_limit_seconds must be >= 0, got %d", c.ExecutionLimitSeconds)
	}
	if c.SessionTTLSeconds <= 0 {
		return fmt.Errorf("session_ttl_seconds must be > 0, got %d", c.SessionTTLSeconds)
	}
	return nil
}

// Budget returns the per-pass time budget: the execution limit minus the
// safety margin, with an unset limit treated as the platform default.
func (c *Config) Budget() time.Duration {
	limit := c.ExecutionLimitSeconds
	if limit == 0 {
		limit = DefaultExecutionLimitSeconds
	}
	return time.Duration(limit-BudgetSafetyMarginSeconds) * time.Second
}

func defaultSessionDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "massbatch", "sessions")
	}
	return filepath.Join(home, ".massbatch", "sessions")
}
