package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iOS-Project-Lab2025/TravelinBackend/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("DATABASE_URL", "postgres://localhost/travelin")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTPAddr)
	require.Equal(t, "postgres://localhost/travelin", cfg.PostgresDSN)
	require.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	require.Equal(t, 10*time.Second, cfg.LockTTL)
	require.Equal(t, 200*time.Millisecond, cfg.OutboxPoll)
	require.Equal(t, "travelin", cfg.NATSSubject)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("LOCK_TTL", "soon")
	_, err := config.Load()
	require.Error(t, err)
}

func TestValidateJoinsProblems(t *testing.T) {
	cfg := config.Config{RateReadRPS: 5, KafkaBrokers: []string{"k:9092"}}
	err := cfg.Validate()
	require.ErrorContains(t, err, "JWT_SECRET is required")
	require.ErrorContains(t, err, "LOCK_TTL and LOCK_WAIT must be positive")
	require.ErrorContains(t, err, "RATE_READ_BURST must be at least 1")
	require.ErrorContains(t, err, "KAFKA_TOPIC is required")
}
