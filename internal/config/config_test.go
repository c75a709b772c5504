package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"PORT", "LOG_LEVEL", "CLIENT_ORIGIN", "API_KEY", "GEMINI_API_KEY", "GEMINI_MODEL",
		"LEVELGEN_TIMEOUT", "SESSION_SECRET", "SESSION_COOKIE", "SESSION_IDLE",
		"CELEBRATION_DELAY", "PORTRAIT_PATH", "PORTRAIT_FALLBACK_URL", "NODE_ENV",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "5175", cfg.Port)
	assert.Equal(t, 3500*time.Millisecond, cfg.CelebrationDelay)
	assert.Equal(t, 20*time.Second, cfg.LevelgenTimeout)
	assert.Equal(t, DefaultPortraitFallbackURL, cfg.PortraitFallbackURL)
	assert.False(t, cfg.GenerationEnabled())
	assert.False(t, cfg.CookieSecure)
}

func TestCookieSecureInProduction(t *testing.T) {
	clearEnv(t)
	t.Setenv("NODE_ENV", "production")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.CookieSecure)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("GEMINI_API_KEY", "k-123")
	t.Setenv("CELEBRATION_DELAY", "1s")
	t.Setenv("LEVELGEN_TIMEOUT", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "k-123", cfg.APIKey)
	assert.True(t, cfg.GenerationEnabled())
	assert.Equal(t, time.Second, cfg.CelebrationDelay)
	assert.Equal(t, 20*time.Second, cfg.LevelgenTimeout, "bad durations fall back to the default")
}

func TestAPIKeyTakesPrecedence(t *testing.T) {
	clearEnv(t)
	t.Setenv("API_KEY", "primary")
	t.Setenv("GEMINI_API_KEY", "secondary")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "primary", cfg.APIKey)
}

func TestValidateRejectsNonPositiveDelay(t *testing.T) {
	clearEnv(t)
	t.Setenv("CELEBRATION_DELAY", "-1s")
	_, err := Load()
	require.Error(t, err)
}
