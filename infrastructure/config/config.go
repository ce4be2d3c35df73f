package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Environment names a deployment environment
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// FileEnvVar points at an optional YAML file layered between the defaults
// and the environment
const FileEnvVar = "RELMAP_CONFIG_FILE"

const envPrefix = "RELMAP_"

// Config holds all application configuration
type Config struct {
	// Server configuration
	Environment     Environment   `yaml:"environment" env:"ENVIRONMENT"`
	ServerAddress   string        `yaml:"serverAddress" env:"SERVER_ADDRESS"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" env:"SHUTDOWN_TIMEOUT"`
	AllowedOrigins  []string      `yaml:"allowedOrigins" env:"ALLOWED_ORIGINS" envSeparator:","`

	// Logging
	LogLevel string `yaml:"logLevel" env:"LOG_LEVEL"`

	// Editor engine
	HistoryLimit     int    `yaml:"historyLimit" env:"HISTORY_LIMIT"`
	AppTag           string `yaml:"appTag" env:"APP_TAG"`
	MaxSnapshotBytes int64  `yaml:"maxSnapshotBytes" env:"MAX_SNAPSHOT_BYTES"`
	StrictReferences bool   `yaml:"strictReferences" env:"STRICT_REFERENCES"`

	// Autosave is off while AutosaveDir is empty
	AutosaveDir   string        `yaml:"autosaveDir" env:"AUTOSAVE_DIR"`
	AutosaveDelay time.Duration `yaml:"autosaveDelay" env:"AUTOSAVE_DELAY"`

	// Feature flags
	EnableMetrics bool   `yaml:"enableMetrics" env:"ENABLE_METRICS"`
	EnableTracing bool   `yaml:"enableTracing" env:"ENABLE_TRACING"`
	OTLPEndpoint  string `yaml:"otlpEndpoint" env:"OTLP_ENDPOINT"`

	// LoadedFrom lists the sources applied, lowest priority first
	LoadedFrom []string `yaml:"-" env:"-"`
}

// Default returns the configuration used when nothing overrides it
func Default() *Config {
	return &Config{
		Environment:      Development,
		ServerAddress:    ":8080",
		ShutdownTimeout:  10 * time.Second,
		AllowedOrigins:   []string{"*"},
		LogLevel:         "info",
		HistoryLimit:     100,
		AppTag:           "char-relmap",
		MaxSnapshotBytes: 10 << 20,
		StrictReferences: true,
		AutosaveDelay:    300 * time.Millisecond,
		EnableMetrics:    true,
		LoadedFrom:       []string{"defaults"},
	}
}

// Load reads the configuration from the defaults, the optional YAML file
// named by RELMAP_CONFIG_FILE and RELMAP_* environment variables, in that
// order, and validates the result
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv(FileEnvVar); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: envPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.LoadedFrom = append(cfg.LoadedFrom, "environment")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	c.LoadedFrom = append(c.LoadedFrom, path)
	return nil
}

// Validate checks the configuration for values the server cannot run with
func (c *Config) Validate() error {
	switch c.Environment {
	case Development, Staging, Production:
	default:
		return fmt.Errorf("unknown environment %q", c.Environment)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	if c.HistoryLimit < 1 {
		return fmt.Errorf("history limit must be at least 1, got %d", c.HistoryLimit)
	}
	if c.MaxSnapshotBytes <= 0 {
		return fmt.Errorf("max snapshot bytes must be positive, got %d", c.MaxSnapshotBytes)
	}
	if c.AutosaveDir != "" && c.AutosaveDelay <= 0 {
		return fmt.Errorf("autosave delay must be positive, got %s", c.AutosaveDelay)
	}
	if c.ServerAddress == "" {
		return fmt.Errorf("server address is required")
	}
	if c.EnableTracing && c.OTLPEndpoint == "" && c.IsProduction() {
		return fmt.Errorf("OTLP endpoint is required for tracing in production")
	}
	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == Production
}
