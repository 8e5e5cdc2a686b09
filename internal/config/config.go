// Package config provides application configuration with multi-source
// priority.
//
// Sources, highest priority first:
//  1. Environment variables (HRMATE_* overrides, DATABASE_URL)
//  2. Config file (~/.hrmate/config.yaml, or ./config.yaml)
//  3. Defaults
//
// Validation uses sentinel errors so callers can classify failures with
// errors.Is. Sensitive fields (the database password) are masked in
// MarshalJSON so a dumped config never leaks credentials into logs.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Sentinel validation errors.
var (
	ErrConfigNil            = errors.New("configuration is nil")
	ErrInvalidListenAddr    = errors.New("invalid listen address")
	ErrInvalidModelName     = errors.New("invalid model name")
	ErrInvalidMaxIterations = errors.New("invalid max iterations")
	ErrInvalidMemoryWindow  = errors.New("invalid memory window")
	ErrInvalidPostgresHost  = errors.New("invalid PostgreSQL host")
	ErrInvalidPostgresPort  = errors.New("invalid PostgreSQL port")
	ErrInvalidPostgresDB    = errors.New("invalid PostgreSQL database name")
	ErrInvalidSSLMode       = errors.New("invalid PostgreSQL SSL mode")
	ErrInvalidRouterMode    = errors.New("invalid router mode")
)

// Router modes selecting the orchestration style.
const (
	RouterStatic     = "static"     // classifier decides once, one agent per turn
	RouterSupervisor = "supervisor" // top-level loop chooses among agent tools
)

// TracingConfig configures OTLP trace export.
type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled" json:"enabled"`
	Endpoint    string `mapstructure:"endpoint" json:"endpoint"`
	Environment string `mapstructure:"environment" json:"environment"`
	ServiceName string `mapstructure:"service_name" json:"service_name"`
}

// Config stores the application configuration.
type Config struct {
	// HTTP server
	ListenAddr string `mapstructure:"listen_addr" json:"listen_addr"`
	RateBurst  int    `mapstructure:"rate_burst" json:"rate_burst"`
	TrustProxy bool   `mapstructure:"trust_proxy" json:"trust_proxy"`

	// Agent / LLM
	ModelName     string `mapstructure:"model_name" json:"model_name"` // provider-qualified, e.g. "googleai/gemini-2.5-flash"
	MaxIterations int    `mapstructure:"max_iterations" json:"max_iterations"`
	RouterMode    string `mapstructure:"router_mode" json:"router_mode"`

	// Conversation memory
	MemoryWindow int `mapstructure:"memory_window" json:"memory_window"`

	// Storage
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Observability
	Tracing TracingConfig `mapstructure:"tracing" json:"tracing"`
}

// Load reads configuration with priority env > file > defaults.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".hrmate")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine; defaults plus env carry the config.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL (if set) overrides the individual postgres_* values.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("listen_addr", "127.0.0.1:8080")
	v.SetDefault("rate_burst", 60)
	v.SetDefault("trust_proxy", false)

	// Agent
	v.SetDefault("model_name", "googleai/gemini-2.5-flash")
	v.SetDefault("max_iterations", 5)
	v.SetDefault("router_mode", RouterStatic)

	// Memory
	v.SetDefault("memory_window", 20)

	// PostgreSQL (matching docker-compose defaults)
	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "hrmate")
	v.SetDefault("postgres_password", "hrmate_dev_password")
	v.SetDefault("postgres_db_name", "hrmate")
	v.SetDefault("postgres_ssl_mode", "disable")

	// Tracing
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4318")
	v.SetDefault("tracing.environment", "dev")
	v.SetDefault("tracing.service_name", "hrmate")
}

// bindEnvVariables binds explicit environment overrides.
// GEMINI_API_KEY is read directly by genkit, not via viper.
func bindEnvVariables(v *viper.Viper) {
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("listen_addr", "HRMATE_LISTEN_ADDR")
	mustBind("model_name", "HRMATE_MODEL_NAME")
	mustBind("router_mode", "HRMATE_ROUTER_MODE")
	mustBind("trust_proxy", "HRMATE_TRUST_PROXY")
	mustBind("postgres_password", "HRMATE_POSTGRES_PASSWORD")
	mustBind("tracing.enabled", "HRMATE_TRACING_ENABLED")
	mustBind("tracing.endpoint", "HRMATE_TRACING_ENDPOINT")
}

// maskedValue replaces sensitive values in marshaled output.
const maskedValue = "********"

// MarshalJSON masks sensitive fields. Update this method when adding
// new credential fields to Config.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	if a.PostgresPassword != "" {
		a.PostgresPassword = maskedValue
	}
	return json.Marshal(a)
}
