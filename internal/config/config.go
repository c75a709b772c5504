// internal/config/config.go
//
// Application configuration read from the environment.
// Load applies defaults for every variable and then Validate rejects values
// the server cannot run with. main loads .env (godotenv) before calling Load.

// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// DefaultPortraitFallbackURL is used when the local portrait image is missing.
const DefaultPortraitFallbackURL = "https://images.unsplash.com/photo-1515488042361-ee00e0ddd4e4?q=80&w=2075&auto=format&fit=crop"

// Config holds all application configuration.
type Config struct {
	Port         string
	LogLevel     string
	ClientOrigin string

	APIKey          string
	Model           string
	LevelgenTimeout time.Duration

	SessionSecret string
	SessionCookie string
	SessionIdle   time.Duration
	CookieSecure  bool

	CelebrationDelay time.Duration

	PortraitPath        string
	PortraitFallbackURL string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:                getEnv("PORT", "5175"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		ClientOrigin:        getEnv("CLIENT_ORIGIN", "http://localhost:5173"),
		APIKey:              getEnv("API_KEY", getEnv("GEMINI_API_KEY", "")),
		Model:               getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		LevelgenTimeout:     getEnvDuration("LEVELGEN_TIMEOUT", 20*time.Second),
		SessionSecret:       getEnv("SESSION_SECRET", "dev_secret_change_me"),
		SessionCookie:       getEnv("SESSION_COOKIE", "oddone_session"),
		SessionIdle:         getEnvDuration("SESSION_IDLE", 2*time.Hour),
		CookieSecure:        getEnv("NODE_ENV", "development") == "production",
		CelebrationDelay:    getEnvDuration("CELEBRATION_DELAY", 3500*time.Millisecond),
		PortraitPath:        getEnv("PORTRAIT_PATH", "./assets/portrait.jpg"),
		PortraitFallbackURL: getEnv("PORTRAIT_FALLBACK_URL", DefaultPortraitFallbackURL),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET cannot be empty")
	}
	if c.SessionCookie == "" {
		return fmt.Errorf("SESSION_COOKIE cannot be empty")
	}
	if c.LevelgenTimeout <= 0 {
		return fmt.Errorf("LEVELGEN_TIMEOUT must be > 0")
	}
	if c.CelebrationDelay <= 0 {
		return fmt.Errorf("CELEBRATION_DELAY must be > 0")
	}
	if c.SessionIdle <= 0 {
		return fmt.Errorf("SESSION_IDLE must be > 0")
	}
	return nil
}

// GenerationEnabled reports whether a provider credential is configured.
func (c *Config) GenerationEnabled() bool { return strings.TrimSpace(c.APIKey) != "" }

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
