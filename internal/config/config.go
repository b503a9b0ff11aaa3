// Package config loads process settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`
	GRPCAddr string `envconfig:"GRPC_ADDR" default:":9090"`

	// PostgresDSN falls back to DATABASE_URL. Empty selects in-memory storage.
	PostgresDSN string `envconfig:"POSTGRES_DSN"`
	RedisAddr   string `envconfig:"REDIS_ADDR"`
	NATSURL     string `envconfig:"NATS_URL"`
	NATSSubject string `envconfig:"NATS_SUBJECT" default:"travelin"`

	KafkaBrokers []string `envconfig:"KAFKA_BROKERS"`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC" default:"travelin.bookings"`

	JWTSecret string        `envconfig:"JWT_SECRET"`
	JWTTTL    time.Duration `envconfig:"JWT_TTL" default:"24h"`

	LockTTL  time.Duration `envconfig:"LOCK_TTL" default:"10s"`
	LockWait time.Duration `envconfig:"LOCK_WAIT" default:"3s"`

	IdempotencyTTL time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"24h"`

	RateReadRPS    float64 `envconfig:"RATE_READ_RPS" default:"50"`
	RateReadBurst  float64 `envconfig:"RATE_READ_BURST" default:"100"`
	RateWriteRPS   float64 `envconfig:"RATE_WRITE_RPS" default:"10"`
	RateWriteBurst float64 `envconfig:"RATE_WRITE_BURST" default:"20"`

	OutboxPoll     time.Duration `envconfig:"OUTBOX_POLL" default:"200ms"`
	OutboxBatch    int           `envconfig:"OUTBOX_BATCH" default:"100"`
	OutboxRetryMax int           `envconfig:"OUTBOX_RETRY_MAX" default:"3"`

	SeedFile     string `envconfig:"SEED_FILE"`
	LogLevel     string `envconfig:"LOG_LEVEL" default:"info"`
	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// Load reads the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("process env: %w", err)
	}
	if cfg.PostgresDSN == "" {
		cfg.PostgresDSN = os.Getenv("DATABASE_URL")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every cross-field problem at once.
func (c Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.JWTTTL <= 0 {
		errs = append(errs, errors.New("JWT_TTL must be positive"))
	}
	if c.LockTTL <= 0 || c.LockWait <= 0 {
		errs = append(errs, errors.New("LOCK_TTL and LOCK_WAIT must be positive"))
	}
	if c.RateReadRPS < 0 || c.RateWriteRPS < 0 {
		errs = append(errs, errors.New("rate limits must not be negative"))
	}
	if c.RateReadRPS > 0 && c.RateReadBurst < 1 {
		errs = append(errs, errors.New("RATE_READ_BURST must be at least 1"))
	}
	if c.RateWriteRPS > 0 && c.RateWriteBurst < 1 {
		errs = append(errs, errors.New("RATE_WRITE_BURST must be at least 1"))
	}
	if c.OutboxBatch <= 0 || c.OutboxRetryMax <= 0 || c.OutboxPoll <= 0 {
		errs = append(errs, errors.New("outbox settings must be positive"))
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		errs = append(errs, errors.New("KAFKA_TOPIC is required with KAFKA_BROKERS"))
	}
	return errors.Join(errs...)
}
