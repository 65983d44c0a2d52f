// Package config builds runtime configuration from environment variables so
// main stays lean. Zero values mean "not configured": an empty PostgresURL
// selects the in-memory stores, an empty Redis URL disables the redis-backed
// rate limiter, empty Kafka brokers disable the event publisher.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures top-level service configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string

	PostgresURL string

	Redis RedisConfig

	Kafka KafkaConfig

	RateLimit RateLimitConfig
}

// RedisConfig holds connection tuning for the redis client.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig holds the transaction event feed settings.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// RateLimitConfig bounds authorization attempts per user.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	addr := os.Getenv("CARDVAULT_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - must be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}
	issuer := envOr("JWT_ISSUER", "cardvault-idp")
	audience := envOr("JWT_AUDIENCE", "cardvault")

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		for _, b := range strings.Split(raw, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
	}

	return Server{
		Addr:          addr,
		JWTSigningKey: jwtSigningKey,
		JWTIssuer:     issuer,
		JWTAudience:   audience,
		PostgresURL:   os.Getenv("DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envIntOr("REDIS_POOL_SIZE", 10),
			MinIdleConns: envIntOr("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDurationOr("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDurationOr("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDurationOr("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: brokers,
			Topic:   envOr("KAFKA_TOPIC", "cardvault.transactions"),
		},
		RateLimit: RateLimitConfig{
			Requests: envIntOr("RATE_LIMIT_REQUESTS", 60),
			Window:   envDurationOr("RATE_LIMIT_WINDOW", time.Minute),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
