// Package config loads server configuration from defaults, an optional
// YAML file and environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Auth modes.
const (
	AuthModeFirebase = "firebase"
	AuthModeLocal    = "local"
)

// Config holds all server configuration.
type Config struct {
	// HTTP server
	Addr            string        `yaml:"addr"`
	StaticPath      string        `yaml:"static_path"`
	BaseURL         string        `yaml:"base_url"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	Logging  LoggingConfig  `yaml:"logging"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Gmail    GmailConfig    `yaml:"gmail"`
	S3       S3Config       `yaml:"s3"`
	AI       AIConfig       `yaml:"ai"`

	// AccountingCategories are offered in the request form and to the
	// receipt recognizer.
	AccountingCategories []string `yaml:"accounting_categories"`
}

// LoggingConfig configures pkg/logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// DatabaseConfig selects the store.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite, postgres
	DSN    string `yaml:"dsn"`    // file path for sqlite, URL for postgres
}

// AuthConfig configures how bearer tokens are verified.
type AuthConfig struct {
	Mode              string        `yaml:"mode"` // firebase, local
	FirebaseProjectID string        `yaml:"firebase_project_id"`
	JWTSecret         string        `yaml:"jwt_secret"`
	TokenTTL          time.Duration `yaml:"token_ttl"`
	AdminEmails       []string      `yaml:"admin_emails"`
}

// GmailConfig configures notification delivery.
type GmailConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RefreshToken string `yaml:"refresh_token"`
	From         string `yaml:"from"`
}

// S3Config configures receipt storage.
type S3Config struct {
	Region    string        `yaml:"region"`
	Bucket    string        `yaml:"bucket"`
	AccessKey string        `yaml:"access_key"`
	SecretKey string        `yaml:"secret_key"`
	Endpoint  string        `yaml:"endpoint"`
	URLExpiry time.Duration `yaml:"url_expiry"`
}

// AIConfig configures receipt recognition.
type AIConfig struct {
	GeminiAPIKey  string `yaml:"gemini_api_key"`
	Model         string `yaml:"model"`
	RatePerMinute int    `yaml:"rate_per_minute"`
	Burst         int    `yaml:"burst"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		Addr:            ":8080",
		StaticPath:      "../frontend/dist",
		ShutdownTimeout: 15 * time.Second,
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "./data/churchboard.db",
		},
		Auth: AuthConfig{
			Mode:     AuthModeFirebase,
			TokenTTL: 24 * time.Hour,
		},
		S3: S3Config{
			Region:    "us-east-1",
			URLExpiry: 15 * time.Minute,
		},
		AI: AIConfig{
			Model:         "gemini-2.0-flash",
			RatePerMinute: 6,
			Burst:         3,
		},
		AccountingCategories: []string{
			"Worship", "Education", "Fellowship", "Missions",
			"Facilities", "Office", "Kitchen", "Other",
		},
	}
}

// Load reads the YAML file at path when it is non-empty and applies
// environment overrides on top.
func Load(path string) (*Config, error) {
	return load(path, os.Getenv)
}

func load(path string, getenv func(string) string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	list := func(key string, dst *[]string) {
		if v := getenv(key); v != "" {
			*dst = splitList(v)
		}
	}
	var errs []error
	dur := func(key string, dst *time.Duration) {
		if v := getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	num := func(key string, dst *int) {
		if v := getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}

	str("ADDR", &c.Addr)
	if port := getenv("PORT"); port != "" && getenv("ADDR") == "" {
		c.Addr = ":" + port
	}
	str("STATIC_PATH", &c.StaticPath)
	str("BASE_URL", &c.BaseURL)
	list("CORS_ORIGINS", &c.CORSOrigins)
	dur("SHUTDOWN_TIMEOUT", &c.ShutdownTimeout)

	str("LOG_LEVEL", &c.Logging.Level)
	str("LOG_FORMAT", &c.Logging.Format)

	str("DB_DRIVER", &c.Database.Driver)
	str("DB_PATH", &c.Database.DSN)
	str("DATABASE_URL", &c.Database.DSN)

	str("AUTH_MODE", &c.Auth.Mode)
	str("FIREBASE_PROJECT_ID", &c.Auth.FirebaseProjectID)
	str("JWT_SECRET", &c.Auth.JWTSecret)
	dur("TOKEN_TTL", &c.Auth.TokenTTL)
	list("ADMIN_EMAILS", &c.Auth.AdminEmails)

	str("GMAIL_CLIENT_ID", &c.Gmail.ClientID)
	str("GMAIL_CLIENT_SECRET", &c.Gmail.ClientSecret)
	str("GMAIL_REFRESH_TOKEN", &c.Gmail.RefreshToken)
	str("MAIL_FROM", &c.Gmail.From)

	str("S3_REGION", &c.S3.Region)
	str("S3_BUCKET", &c.S3.Bucket)
	str("S3_ACCESS_KEY", &c.S3.AccessKey)
	str("S3_SECRET_KEY", &c.S3.SecretKey)
	str("S3_ENDPOINT", &c.S3.Endpoint)

	str("GEMINI_API_KEY", &c.AI.GeminiAPIKey)
	str("GEMINI_MODEL", &c.AI.Model)
	num("AI_RATE_PER_MINUTE", &c.AI.RatePerMinute)

	list("ACCOUNTING_CATEGORIES", &c.AccountingCategories)

	return errors.Join(errs...)
}

// Validate reports configuration that cannot work.
func (c *Config) Validate() error {
	var errs []error
	switch c.Auth.Mode {
	case AuthModeFirebase:
		if c.Auth.FirebaseProjectID == "" {
			errs = append(errs, errors.New("auth.firebase_project_id is required in firebase mode"))
		}
	case AuthModeLocal:
		if len(c.Auth.JWTSecret) < 16 {
			errs = append(errs, errors.New("auth.jwt_secret must be at least 16 characters in local mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown auth.mode %q", c.Auth.Mode))
	}

	switch strings.ToLower(c.Database.Driver) {
	case "sqlite", "sqlite3", "postgres", "postgresql", "pgx":
	default:
		errs = append(errs, fmt.Errorf("unknown database.driver %q", c.Database.Driver))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}
	if c.AI.RatePerMinute <= 0 {
		errs = append(errs, errors.New("ai.rate_per_minute must be positive"))
	}
	return errors.Join(errs...)
}

// GmailEnabled reports whether notification email can be delivered.
func (c *Config) GmailEnabled() bool {
	return c.Gmail.ClientID != "" && c.Gmail.ClientSecret != "" && c.Gmail.RefreshToken != ""
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
