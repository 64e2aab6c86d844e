// Package config builds the process configuration from environment variables
// so main stays lean. Every value has a development default; production
// deployments override via the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr string
	Env  string

	DatabaseURL string
	RedisURL    string

	KafkaBrokers []string
	AuditTopic   string

	Provider Provider

	// AllocationSecret keys the member-ID derivation. Changing it changes
	// every future allocation, so treat it like a signing key.
	AllocationSecret string

	// UpdateExisting lets migration runs refresh blocked-duplicate accounts
	// in place.
	UpdateExisting bool

	BatchConcurrency int
	SignupRateLimit  int
	BatchRateLimit   int

	ShutdownTimeout time.Duration
}

// Provider configures the identity provider admin API client.
type Provider struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// FromEnv reads the configuration from the environment.
func FromEnv() Config {
	return Config{
		Addr:         envStr("ENROLLD_ADDR", ":8080"),
		Env:          envStr("ENROLLD_ENV", "development"),
		DatabaseURL:  envStr("ENROLLD_DATABASE_URL", ""),
		RedisURL:     envStr("ENROLLD_REDIS_URL", ""),
		KafkaBrokers: envList("ENROLLD_KAFKA_BROKERS"),
		AuditTopic:   envStr("ENROLLD_AUDIT_TOPIC", "enrolld.audit"),
		Provider: Provider{
			BaseURL:      envStr("ENROLLD_PROVIDER_URL", ""),
			ClientID:     envStr("ENROLLD_PROVIDER_CLIENT_ID", ""),
			ClientSecret: envStr("ENROLLD_PROVIDER_CLIENT_SECRET", ""),
			Timeout:      envDuration("ENROLLD_PROVIDER_TIMEOUT", 10*time.Second),
		},
		AllocationSecret: envStr("ENROLLD_ALLOCATION_SECRET", "dev-secret-change-in-production"),
		UpdateExisting:   envBool("ENROLLD_UPDATE_EXISTING"),
		BatchConcurrency: envInt("ENROLLD_BATCH_CONCURRENCY", 4),
		SignupRateLimit:  envInt("ENROLLD_SIGNUP_RATE_LIMIT", 30),
		BatchRateLimit:   envInt("ENROLLD_BATCH_RATE_LIMIT", 2),
		ShutdownTimeout:  envDuration("ENROLLD_SHUTDOWN_TIMEOUT", 15*time.Second),
	}
}

// Development reports whether the process runs in a development environment.
func (c Config) Development() bool { return c.Env == "development" }

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string) bool {
	return os.Getenv(key) == "true"
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
