package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strogmv/walletd/internal/config"
)

func devConfig() *config.Config {
	return &config.Config{
		AppEnv:               "test",
		IdempotencyBackend:   config.BackendMemory,
		IdempotencyTTL:       time.Hour,
		IdempotencyKeyPrefix: "idempotency:",
		ReservationTTL:       time.Minute,
		PendingWait:          time.Second,
		KeyStoreTimeout:      time.Second,
		MutatorTimeout:       10 * time.Second,
		BreakerThreshold:     5,
		BreakerCooldown:      time.Second,
		SupportedAssets:      []string{"XLM", "USDC"},
		SwapRates:            "XLM:USDC=0.1123",
		TreasuryAccountID:    "treasury",
		JWTSecret:            "secret",
		RequestTimeout:       5 * time.Second,
		OutboxPollInterval:   time.Second,
	}
}

func TestNewContainer_InMemory(t *testing.T) {
	c, err := NewContainer(context.Background(), devConfig(), nil)
	require.NoError(t, err)

	assert.True(t, c.Guard.Atomic())
	assert.NoError(t, c.RunKeyPurger(context.Background()))

	rec := httptest.NewRecorder()
	c.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "keystore")
}

func TestNewContainer_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{"no database in production", func(c *config.Config) { c.AppEnv = "production" }, "database is required"},
		{"redis not connected", func(c *config.Config) { c.IdempotencyBackend = config.BackendRedis }, "redis is not connected"},
		{"postgres not connected", func(c *config.Config) { c.IdempotencyBackend = config.BackendPostgres }, "postgres is not connected"},
		{"bad rates", func(c *config.Config) { c.SwapRates = "XLM-USDC" }, "SWAP_RATES"},
		{"bad override", func(c *config.Config) { c.PolicyOverrides = "swap=sometimes" }, "IDEMPOTENCY_POLICY_OVERRIDES"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := devConfig()
			tt.mutate(cfg)
			_, err := NewContainer(context.Background(), cfg, nil)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
