package config

import (
	"os"
	"strconv"
)

// Config holds the core runtime configuration for the storefront.
// Values are primarily sourced from environment variables, with
// sensible defaults where appropriate. See .env.example.
type Config struct {
	DatabaseURL string

	ListenAddr string

	// RetentionDays is how long recorded events are kept before the
	// retention worker deletes them. Zero disables retention.
	RetentionDays int

	// ScorerURL is the recommendation service endpoint used from the
	// server. When empty, recommendations fail with a configuration error
	// while the rest of the storefront keeps working.
	ScorerURL string

	// PublicScorerURL is the endpoint handed to browser-side code.
	PublicScorerURL string

	// SessionDays is the lifetime of a sign-in session.
	SessionDays int

	// SecureCookies marks the session cookie Secure (set behind TLS).
	SecureCookies bool

	LogLevel  string
	LogFormat string

	// Recs tunes the recommendation pipeline. Loaded by LoadRecs.
	Recs Recs
}

// Load reads configuration from environment variables and the layered
// recommendation settings.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:     os.Getenv("APP_DATABASE_URL"),
		ListenAddr:      getenv("APP_LISTEN_ADDR", ":8080"),
		RetentionDays:   90,
		SessionDays:     7,
		ScorerURL:       os.Getenv("APP_RECS_API_URL"),
		PublicScorerURL: os.Getenv("APP_PUBLIC_RECS_API_URL"),
		SecureCookies:   os.Getenv("APP_SECURE_COOKIES") == "true",
		LogLevel:        getenv("APP_LOG_LEVEL", "info"),
		LogFormat:       getenv("APP_LOG_FORMAT", "json"),
	}

	if v := os.Getenv("APP_RETENTION_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil && days >= 0 {
			cfg.RetentionDays = days
		}
	}

	if v := os.Getenv("APP_SESSION_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil && days > 0 {
			cfg.SessionDays = days
		}
	}

	recs, err := LoadRecs()
	if err != nil {
		return nil, err
	}
	cfg.Recs = recs

	return cfg, nil
}

// ScorerEndpoint returns the scorer URL for the given execution side.
func (c *Config) ScorerEndpoint(serverSide bool) string {
	if serverSide {
		return c.ScorerURL
	}
	return c.PublicScorerURL
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
