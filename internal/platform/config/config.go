// Package config builds runtime configuration from the environment so main
// stays lean. Every knob has a development default; production overrides via
// env vars.
package config

import (
	"os"
	"strings"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr          string
	PostgresDSN   string
	RedisURL      string
	KafkaBrokers  []string
	JournalTopic  string
	JWTSigningKey string

	// SlotLockWait bounds how long a dispatch blocks on a busy slot before
	// surfacing slot_lock_timeout to the caller.
	SlotLockWait time.Duration

	// DispatchCacheTTL controls how long completed dispatch outcomes stay in
	// the Redis read-through cache. The durable record in Postgres is the
	// source of truth; the cache only absorbs hot retries.
	DispatchCacheTTL time.Duration
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	cfg := Server{
		Addr:             envOr("TEMPORA_ADDR", ":8080"),
		PostgresDSN:      envOr("TEMPORA_POSTGRES_DSN", ""),
		RedisURL:         envOr("TEMPORA_REDIS_URL", ""),
		JournalTopic:     envOr("TEMPORA_JOURNAL_TOPIC", "tempora.action-journal"),
		JWTSigningKey:    envOr("TEMPORA_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		SlotLockWait:     durationOr("TEMPORA_SLOT_LOCK_WAIT", 2*time.Second),
		DispatchCacheTTL: durationOr("TEMPORA_DISPATCH_CACHE_TTL", 15*time.Minute),
	}
	if brokers := os.Getenv("TEMPORA_KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	return cfg
}

// RedisConfig carries connection tuning for the optional Redis cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Redis derives Redis connection settings from the server config.
func (s Server) Redis() RedisConfig {
	return RedisConfig{
		URL:          s.RedisURL,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}
