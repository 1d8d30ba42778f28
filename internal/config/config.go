package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Key store backends accepted by IDEMPOTENCY_BACKEND.
const (
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	AppEnv   string `env:"APP_ENV" env-default:"production"`
	HTTPAddr string `env:"HTTP_ADDR" env-default:":8080"`
	LogLevel string `env:"LOG_LEVEL" env-default:"info"`

	DatabaseURL   string `env:"DATABASE_URL"`
	RedisAddr     string `env:"REDIS_ADDR" env-default:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" env-default:"0"`
	NATSURL       string `env:"NATS_URL"`

	IdempotencyBackend   string        `env:"IDEMPOTENCY_BACKEND" env-default:"redis"`
	IdempotencyTTL       time.Duration `env:"IDEMPOTENCY_TTL" env-default:"24h"`
	IdempotencyKeyPrefix string        `env:"IDEMPOTENCY_KEY_PREFIX" env-default:"idempotency:"`
	ReservationTTL       time.Duration `env:"RESERVATION_TTL" env-default:"2m"`
	PendingWait          time.Duration `env:"PENDING_WAIT" env-default:"3s"`
	KeyStoreTimeout      time.Duration `env:"KEYSTORE_TIMEOUT" env-default:"300ms"`
	MutatorTimeout       time.Duration `env:"MUTATOR_TIMEOUT" env-default:"30s"`
	BreakerThreshold     int           `env:"KEYSTORE_BREAKER_THRESHOLD" env-default:"5"`
	BreakerCooldown      time.Duration `env:"KEYSTORE_BREAKER_COOLDOWN" env-default:"10s"`
	PolicyOverrides      string        `env:"IDEMPOTENCY_POLICY_OVERRIDES"`

	SupportedAssets   []string `env:"SUPPORTED_ASSETS" env-separator:"," env-default:"XLM,USDC,EURC"`
	SwapRates         string   `env:"SWAP_RATES" env-default:"XLM:USDC=0.1123,USDC:EURC=0.92"`
	TreasuryAccountID string   `env:"TREASURY_ACCOUNT_ID" env-default:"treasury"`

	JWTSecret   string `env:"JWT_SECRET" env-required:"true"`
	JWTIssuer   string `env:"JWT_ISSUER" env-default:"walletd"`
	JWTAudience string `env:"JWT_AUDIENCE" env-default:"walletd-api"`

	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" env-separator:"," env-default:"*"`
	MaxBodyBytes       int64         `env:"MAX_BODY_BYTES" env-default:"65536"`
	RequestTimeout     time.Duration `env:"REQUEST_TIMEOUT" env-default:"35s"`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"15s"`

	OTLPEndpoint string `env:"OTLP_ENDPOINT"`

	S3Bucket   string `env:"S3_BUCKET"`
	S3Region   string `env:"S3_REGION" env-default:"us-east-1"`
	S3Endpoint string `env:"S3_ENDPOINT"`

	ReceiptVerifyURL string `env:"RECEIPT_VERIFY_URL" env-default:"https://explorer.walletd.local/tx/"`

	OutboxPollInterval time.Duration `env:"OUTBOX_POLL_INTERVAL" env-default:"1s"`
	OutboxBatchSize    int           `env:"OUTBOX_BATCH_SIZE" env-default:"100"`
}

func Load() (*Config, error) {
	var cfg Config

	// Environment only; there is no config file in this deployment model.
	err := cleanenv.ReadEnv(&cfg)
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	return &cfg, nil
}

// IsDev reports whether process-local stand-ins for shared infrastructure
// are acceptable.
func (c *Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "test":
		return true
	}
	return false
}

// Validate checks cross-field constraints that env tags cannot express.
func (c *Config) Validate() error {
	c.IdempotencyBackend = strings.ToLower(strings.TrimSpace(c.IdempotencyBackend))
	switch c.IdempotencyBackend {
	case BackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for the redis idempotency backend")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres idempotency backend")
		}
	case BackendMemory:
		if !c.IsDev() {
			return fmt.Errorf("IDEMPOTENCY_BACKEND=memory is only allowed with APP_ENV=dev or test")
		}
	default:
		return fmt.Errorf("unknown IDEMPOTENCY_BACKEND %q", c.IdempotencyBackend)
	}
	if c.DatabaseURL == "" && !c.IsDev() {
		return fmt.Errorf("DATABASE_URL is required outside dev/test")
	}

	durations := []struct {
		name string
		d    time.Duration
	}{
		{"IDEMPOTENCY_TTL", c.IdempotencyTTL},
		{"RESERVATION_TTL", c.ReservationTTL},
		{"KEYSTORE_TIMEOUT", c.KeyStoreTimeout},
		{"MUTATOR_TIMEOUT", c.MutatorTimeout},
		{"REQUEST_TIMEOUT", c.RequestTimeout},
		{"OUTBOX_POLL_INTERVAL", c.OutboxPollInterval},
	}
	for _, d := range durations {
		if d.d <= 0 {
			return fmt.Errorf("%s must be positive", d.name)
		}
	}
	if c.PendingWait < 0 {
		return fmt.Errorf("PENDING_WAIT must not be negative")
	}
	if c.ReservationTTL < c.MutatorTimeout {
		return fmt.Errorf("RESERVATION_TTL (%s) must be at least MUTATOR_TIMEOUT (%s)", c.ReservationTTL, c.MutatorTimeout)
	}
	if c.IdempotencyKeyPrefix == "" {
		return fmt.Errorf("IDEMPOTENCY_KEY_PREFIX must not be empty")
	}

	assets := make([]string, 0, len(c.SupportedAssets))
	for _, a := range c.SupportedAssets {
		a = strings.ToUpper(strings.TrimSpace(a))
		if a != "" {
			assets = append(assets, a)
		}
	}
	if len(assets) == 0 {
		return fmt.Errorf("SUPPORTED_ASSETS must list at least one asset")
	}
	c.SupportedAssets = assets
	if c.TreasuryAccountID == "" {
		return fmt.Errorf("TREASURY_ACCOUNT_ID must not be empty")
	}
	return nil
}
