package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("AUTH_MODE", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg := FromEnv()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, AuthModeLegacy, cfg.AuthMode)
	assert.Equal(t, 10, cfg.CheckoutRateLimit)
	assert.Equal(t, 10, cfg.LowStockThreshold)
	assert.Equal(t, "VND", cfg.Bank.Currency)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.False(t, cfg.IsProduction())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "Production")
	t.Setenv("AUTH_MODE", "JWT")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("CHECKOUT_RATE_LIMIT", "abc")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("SHUTDOWN_GRACE_SECONDS", "3")

	cfg := FromEnv()
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, AuthModeJWT, cfg.AuthMode)
	assert.Equal(t, StoreDriverMemory, cfg.StoreDriver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 10, cfg.CheckoutRateLimit)
	assert.True(t, cfg.Minio.UseSSL)
	assert.Equal(t, 3*time.Second, cfg.ShutdownGracePeriod)
}
