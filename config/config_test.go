package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("ACADEMY_STR", "value")
	t.Setenv("ACADEMY_INT", "7")
	t.Setenv("ACADEMY_BAD_INT", "seven")
	t.Setenv("ACADEMY_DUR", "90s")
	t.Setenv("ACADEMY_BAD_DUR", "soon")

	assert.Equal(t, "value", getEnv("ACADEMY_STR", "x"))
	assert.Equal(t, "x", getEnv("ACADEMY_MISSING", "x"))

	assert.Equal(t, 7, getEnvInt("ACADEMY_INT", 1))
	assert.Equal(t, 1, getEnvInt("ACADEMY_BAD_INT", 1))
	assert.Equal(t, 1, getEnvInt("ACADEMY_MISSING", 1))

	assert.Equal(t, 90*time.Second, getEnvDuration("ACADEMY_DUR", time.Minute))
	assert.Equal(t, time.Minute, getEnvDuration("ACADEMY_BAD_DUR", time.Minute))
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("COMMIT_RETRY_ATTEMPTS", "5")
	t.Setenv("PAYMENT_WEBHOOK_SECRET", "")
	t.Setenv("PAYMENT_SECRET_KEY", "")
	t.Setenv("JWT_SECRET_KEY", "")

	cfg := LoadConfig()

	assert.Same(t, AppConfig, cfg)
	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 5, cfg.CommitRetryAttempts)
	assert.Equal(t, 3, cfg.SeedRetryAttempts)
	assert.Equal(t, 5*time.Minute, cfg.WebhookTolerance)
	assert.Equal(t, 24*time.Hour, cfg.PendingPaymentTTL)

	// provider secrets have no usable default
	assert.Empty(t, cfg.PaymentWebhookSecret)
	assert.Empty(t, cfg.PaymentSecretKey)
	assert.Empty(t, cfg.JWTKey)
}
