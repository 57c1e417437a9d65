// Package config loads service configuration from a TOML file, an optional
// .env file and FITRECS_* environment variables, in increasing priority.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FITRECS_"

type Config struct {
	Environment string `toml:"-"`

	Host string `toml:"host" env:"HOST"`
	Port int    `toml:"port" env:"PORT"`

	// logging
	LogLevel      string `toml:"log_level" env:"LOG_LEVEL"`
	LogsPath      string `toml:"logs_path" env:"LOGS_PATH"`
	LogToStdout   bool   `toml:"log_to_stdout" env:"LOG_TO_STDOUT"`
	LogFormatJSON bool   `toml:"log_format_json" env:"LOG_FORMAT_JSON"`
	SentryEnabled bool   `toml:"sentry_enabled" env:"SENTRY_ENABLED"`
	SentryDSN     string `toml:"-" env:"SENTRY_DSN"`

	// database
	DBDriver string `toml:"db_driver" env:"DB_DRIVER"`
	DBDSN    string `toml:"db_dsn" env:"DB_DSN"`

	// http
	SecureCookies  bool          `toml:"secure_cookies" env:"SECURE_COOKIES"`
	SessionTTL     time.Duration `toml:"session_ttl" env:"SESSION_TTL"`
	TrustedProxies []string      `toml:"trusted_proxies" env:"TRUSTED_PROXIES"`
	ShutdownGrace  time.Duration `toml:"shutdown_grace" env:"SHUTDOWN_GRACE"`

	// auth
	JWTSecret   string `toml:"-" env:"JWT_SECRET"`
	TokenSecret string `toml:"-" env:"TOKEN_SECRET"`

	// llm
	LLMProvider       string        `toml:"llm_provider" env:"LLM_PROVIDER"`
	LLMModel          string        `toml:"llm_model" env:"LLM_MODEL"`
	LLMBaseURL        string        `toml:"llm_base_url" env:"LLM_BASE_URL"`
	LLMAPIKey         string        `toml:"-" env:"LLM_API_KEY"`
	LLMTimeout        time.Duration `toml:"llm_timeout" env:"LLM_TIMEOUT"`
	LLMTemperature    float64       `toml:"llm_temperature" env:"LLM_TEMPERATURE"`
	LLMMaxTokens      int           `toml:"llm_max_tokens" env:"LLM_MAX_TOKENS"`
	GenerationTimeout time.Duration `toml:"generation_timeout" env:"GENERATION_TIMEOUT"`

	// rate limiting
	GenerateRatePerMinute int    `toml:"generate_rate_per_minute" env:"GENERATE_RATE_PER_MINUTE"`
	RedisAddr             string `toml:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword         string `toml:"-" env:"REDIS_PASSWORD"`

	// notifications
	NotifyURLs string `toml:"notify_urls" env:"NOTIFY_URLS"`

	// maintenance
	MaintenanceInterval time.Duration `toml:"maintenance_interval" env:"MAINTENANCE_INTERVAL"`
	TokenRetentionDays  int           `toml:"token_retention_days" env:"TOKEN_RETENTION_DAYS"`
}

// Toml is the layout of the config file: one table per environment.
type Toml struct {
	Development Config
	Production  Config
}

func (t *Toml) Get(env string) (*Config, error) {
	var c Config
	switch strings.ToLower(env) {
	case "dev", "development":
		c = t.Development
		c.Environment = "development"
	case "prod", "production":
		c = t.Production
		c.Environment = "production"
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
	return &c, nil
}

// Defaults returns the built-in configuration for an environment.
func Defaults(env string) Config {
	c := Config{
		Host:                  "",
		Port:                  8080,
		LogLevel:              "debug",
		DBDriver:              "sqlite",
		DBDSN:                 "fitrecs.db",
		SessionTTL:            7 * 24 * time.Hour,
		ShutdownGrace:         10 * time.Second,
		LLMProvider:           "openai",
		LLMTimeout:            60 * time.Second,
		LLMMaxTokens:          4096,
		GenerationTimeout:     90 * time.Second,
		GenerateRatePerMinute: 5,
		MaintenanceInterval:   24 * time.Hour,
		TokenRetentionDays:    30,
	}
	if strings.HasPrefix(strings.ToLower(env), "prod") {
		c.LogLevel = "info"
		c.LogFormatJSON = true
		c.SecureCookies = true
	}
	return c
}

// Load builds the configuration for env. A missing config file or .env file
// is not an error; the defaults and environment are used instead.
func Load(ctx context.Context, env, path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}
	return load(ctx, env, path, envconfig.OsLookuper())
}

func load(ctx context.Context, env, path string, lookuper envconfig.Lookuper) (*Config, error) {
	t := Toml{
		Development: Defaults("development"),
		Production:  Defaults("production"),
	}
	if path != "" {
		if _, err := toml.DecodeFile(path, &t); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}

	cfg, err := t.Get(env)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:           cfg,
		Lookuper:         envconfig.PrefixLookuper(EnvPrefix, lookuper),
		DefaultOverwrite: true,
	}); err != nil {
		return nil, fmt.Errorf("config: environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late at startup.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Port)
	}
	switch c.DBDriver {
	case "sqlite", "pgx", "postgres":
	default:
		return fmt.Errorf("config: unknown db_driver %q", c.DBDriver)
	}
	if c.DBDSN == "" {
		return fmt.Errorf("config: db_dsn is required")
	}
	if c.LLMTemperature < 0 || c.LLMTemperature > 2 {
		return fmt.Errorf("config: llm_temperature %v out of range [0, 2]", c.LLMTemperature)
	}
	if c.LLMMaxTokens < 0 {
		return fmt.Errorf("config: llm_max_tokens must not be negative")
	}
	if c.GenerateRatePerMinute < 0 {
		return fmt.Errorf("config: generate_rate_per_minute must not be negative")
	}
	if c.Environment == "production" && c.TokenSecret == "" {
		return fmt.Errorf("config: %sTOKEN_SECRET is required in production", EnvPrefix)
	}
	return nil
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SecretOrDefault returns s, or a fixed development value when s is empty
// outside production.
func (c *Config) SecretOrDefault(s string) string {
	if s != "" || c.Environment == "production" {
		return s
	}
	return "fitrecs-development-secret"
}
