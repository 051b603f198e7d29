package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process-level configuration so main stays lean.
type Server struct {
	Addr          string
	JWTSigningKey string

	// PostgresDSN enables durable stores when set; empty runs in-memory.
	PostgresDSN string

	// Redis fronts the user directory with a read-through cache when set.
	Redis RedisConfig

	// KafkaBrokers enables the Kafka push sink when non-empty.
	KafkaBrokers []string
	PushTopic    string

	Propagation Propagation
}

// RedisConfig carries connection tuning for the directory cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CacheTTL     time.Duration
}

// Propagation bounds the chain traversal. Defaults match the protocol the
// mobile discovery layer was built against; change them only in lockstep.
type Propagation struct {
	MaxChainDepth int
	RetentionDays int
	SweepInterval time.Duration
}

// DevJWTSigningKey is the fallback for local in-memory runs. Any durable
// deployment must set JWT_SIGNING_KEY; Validate enforces that.
const DevJWTSigningKey = "dev-secret-key-change-in-production"

// Validate rejects combinations that are unsafe to run. A missing signing
// key with durable storage would let anyone forge device tokens.
func (s Server) Validate() error {
	if s.PostgresDSN != "" && s.JWTSigningKey == "" {
		return errors.New("JWT_SIGNING_KEY must be set when POSTGRES_DSN is configured")
	}
	return nil
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	addr := os.Getenv("CHAINALERT_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		for _, b := range strings.Split(raw, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
	}
	pushTopic := os.Getenv("PUSH_TOPIC")
	if pushTopic == "" {
		pushTopic = "chainalert.push"
	}

	return Server{
		Addr:          addr,
		JWTSigningKey: os.Getenv("JWT_SIGNING_KEY"),
		PostgresDSN:   os.Getenv("POSTGRES_DSN"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			CacheTTL:     envDuration("DIRECTORY_CACHE_TTL", 5*time.Minute),
		},
		KafkaBrokers: brokers,
		PushTopic:    pushTopic,
		Propagation: Propagation{
			MaxChainDepth: envInt("MAX_CHAIN_DEPTH", 10),
			RetentionDays: envInt("RETENTION_DAYS", 180),
			SweepInterval: envDuration("RETENTION_SWEEP_INTERVAL", time.Hour),
		},
	}
}

func envInt(key string, def int) int {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return v
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if raw := os.Getenv(key); raw != "" {
		if v, err := time.ParseDuration(raw); err == nil && v > 0 {
			return v
		}
	}
	return def
}
