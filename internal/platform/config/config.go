// Package config builds runtime configuration from the environment plus an
// optional YAML seed file, so main stays lean.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	platformstrings "registrar/pkg/platform/strings"
)

// Config is the full runtime configuration.
type Config struct {
	Addr string

	PostgresURL string
	Redis       RedisConfig

	KafkaBrokers []string
	KafkaTopic   string

	AdminAccount  string
	AdminKeyHash  string
	JWTSigningKey string
	TokenTTL      time.Duration

	TreasuryAccount string

	LogLevel  string
	LogFormat string

	SeedFile string
}

// RedisConfig holds connection tuning for the resolve cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Seed is the operator-provided bootstrap state: which suffixes exist and
// any price overrides, applied once at startup.
type Seed struct {
	TLDs []string  `yaml:"tlds"`
	Fees []SeedFee `yaml:"fees"`
}

// SeedFee overrides the price of one bucket.
type SeedFee struct {
	Bucket int   `yaml:"bucket"`
	Price  int64 `yaml:"price"`
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	return Config{
		Addr:        envOr("REGISTRAR_ADDR", ":8080"),
		PostgresURL: os.Getenv("REGISTRAR_POSTGRES_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REGISTRAR_REDIS_URL"),
			PoolSize:     envIntOr("REGISTRAR_REDIS_POOL_SIZE", 10),
			MinIdleConns: envIntOr("REGISTRAR_REDIS_MIN_IDLE", 2),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
		},
		KafkaBrokers:    splitList(os.Getenv("REGISTRAR_KAFKA_BROKERS")),
		KafkaTopic:      envOr("REGISTRAR_KAFKA_TOPIC", "registrar.events"),
		AdminAccount:    os.Getenv("REGISTRAR_ADMIN_ACCOUNT"),
		AdminKeyHash:    os.Getenv("REGISTRAR_ADMIN_KEY_HASH"),
		JWTSigningKey:   envOr("REGISTRAR_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		TokenTTL:        envDurationOr("REGISTRAR_TOKEN_TTL", time.Hour),
		TreasuryAccount: os.Getenv("REGISTRAR_TREASURY_ACCOUNT"),
		LogLevel:        envOr("REGISTRAR_LOG_LEVEL", "info"),
		LogFormat:       envOr("REGISTRAR_LOG_FORMAT", "text"),
		SeedFile:        os.Getenv("REGISTRAR_SEED_FILE"),
	}
}

// LoadSeed reads and parses the seed file, if configured.
func (c Config) LoadSeed() (*Seed, error) {
	if c.SeedFile == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(c.SeedFile)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var seed Seed
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return &seed, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	return platformstrings.DedupeAndTrim(strings.Split(raw, ","))
}
