package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{
		"CHAINALERT_ADDR", "JWT_SIGNING_KEY", "POSTGRES_DSN",
		"KAFKA_BROKERS", "PUSH_TOPIC", "MAX_CHAIN_DEPTH", "RETENTION_DAYS",
	} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 10, cfg.Propagation.MaxChainDepth)
	assert.Equal(t, 180, cfg.Propagation.RetentionDays)
	assert.Equal(t, time.Hour, cfg.Propagation.SweepInterval)
	assert.Empty(t, cfg.JWTSigningKey, "no silent signing-key fallback")
}

func TestFromEnvParsesBrokers(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092 ,")

	cfg := FromEnv()

	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
}

func TestValidate(t *testing.T) {
	t.Run("durable storage without a signing key is refused", func(t *testing.T) {
		cfg := Server{PostgresDSN: "postgres://somewhere/db"}
		require.Error(t, cfg.Validate())
	})

	t.Run("durable storage with a signing key passes", func(t *testing.T) {
		cfg := Server{PostgresDSN: "postgres://somewhere/db", JWTSigningKey: "k"}
		require.NoError(t, cfg.Validate())
	})

	t.Run("in-memory runs may omit the key", func(t *testing.T) {
		require.NoError(t, Server{}.Validate())
	})
}
