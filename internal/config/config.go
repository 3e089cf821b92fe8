package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Snapshot backends accepted by SNAPSHOT_BACKEND.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendTiered   = "tiered"
)

// Config holds all runtime configuration derived from environment variables.
type Config struct {
	HTTPPort               string
	DatabaseURL            string
	RedisURL               string
	JWTSecret              string
	JWTIssuer              string
	JWTAudience            string
	JWTTTL                 time.Duration
	ReconciliationInterval time.Duration
	PublicRateLimitRPS     int
	AuthRateLimitRPS       int
	LogLevel               string
	IdempotencyTTL         time.Duration
	SnapshotBackend        string
	SnapshotKey            string
	SnapshotFile           string
	AllowOverdraft         bool
	SettleTransfers        bool
	SeedUsersFile          string
	DemoPassword           string
}

// NeedsDatabase reports whether the snapshot backend stores in Postgres.
func (c *Config) NeedsDatabase() bool {
	return c.SnapshotBackend == BackendPostgres || c.SnapshotBackend == BackendTiered
}

// NeedsRedis reports whether a Redis client must be opened. Idempotency
// keys live in Redis whenever REDIS_URL is set.
func (c *Config) NeedsRedis() bool {
	return c.SnapshotBackend == BackendRedis || c.SnapshotBackend == BackendTiered || c.RedisURL != ""
}

// Load reads environment variables using viper and returns a typed config.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	v.AutomaticEnv()
	bindEnv(v, "port", "PORT", "WALLET_PORT")
	bindEnv(v, "database_url", "DATABASE_URL", "WALLET_DATABASE_URL")
	bindEnv(v, "redis_url", "REDIS_URL", "WALLET_REDIS_URL")
	bindEnv(v, "jwt_secret", "JWT_SECRET", "WALLET_JWT_SECRET")
	bindEnv(v, "jwt_issuer", "JWT_ISSUER", "WALLET_JWT_ISSUER")
	bindEnv(v, "jwt_audience", "JWT_AUDIENCE", "WALLET_JWT_AUDIENCE")
	bindEnv(v, "jwt_ttl", "JWT_TTL", "WALLET_JWT_TTL")
	bindEnv(v, "reconciliation_interval", "RECONCILIATION_INTERVAL", "WALLET_RECONCILIATION_INTERVAL")
	bindEnv(v, "public_rate_limit_rps", "PUBLIC_RATE_LIMIT_RPS", "WALLET_PUBLIC_RATE_LIMIT_RPS")
	bindEnv(v, "auth_rate_limit_rps", "AUTH_RATE_LIMIT_RPS", "WALLET_AUTH_RATE_LIMIT_RPS")
	bindEnv(v, "log_level", "LOG_LEVEL", "WALLET_LOG_LEVEL")
	bindEnv(v, "idempotency_ttl", "IDEMPOTENCY_TTL", "WALLET_IDEMPOTENCY_TTL")
	bindEnv(v, "snapshot_backend", "SNAPSHOT_BACKEND", "WALLET_SNAPSHOT_BACKEND")
	bindEnv(v, "snapshot_key", "SNAPSHOT_KEY", "WALLET_SNAPSHOT_KEY")
	bindEnv(v, "snapshot_file", "SNAPSHOT_FILE", "WALLET_SNAPSHOT_FILE")
	bindEnv(v, "allow_overdraft", "ALLOW_OVERDRAFT", "WALLET_ALLOW_OVERDRAFT")
	bindEnv(v, "settle_transfers", "SETTLE_TRANSFERS", "WALLET_SETTLE_TRANSFERS")
	bindEnv(v, "seed_users_file", "SEED_USERS_FILE", "WALLET_SEED_USERS_FILE")
	bindEnv(v, "demo_password", "DEMO_PASSWORD", "WALLET_DEMO_PASSWORD")

	v.SetDefault("port", "8080")
	v.SetDefault("database_url", "")
	v.SetDefault("redis_url", "")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("jwt_issuer", "wallet-ledger")
	v.SetDefault("jwt_audience", "wallet-api")
	v.SetDefault("jwt_ttl", "24h")
	v.SetDefault("reconciliation_interval", "1h")
	v.SetDefault("public_rate_limit_rps", 10)
	v.SetDefault("auth_rate_limit_rps", 100)
	v.SetDefault("log_level", "info")
	v.SetDefault("idempotency_ttl", "24h")
	v.SetDefault("snapshot_backend", BackendFile)
	v.SetDefault("snapshot_key", "app_state")
	v.SetDefault("snapshot_file", "data/app_state.json")
	v.SetDefault("allow_overdraft", false)
	v.SetDefault("settle_transfers", false)
	v.SetDefault("seed_users_file", "")
	v.SetDefault("demo_password", "")

	jwtTTL, err := time.ParseDuration(v.GetString("jwt_ttl"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL: %w", err)
	}
	ttl, err := time.ParseDuration(v.GetString("idempotency_ttl"))
	if err != nil {
		return nil, fmt.Errorf("invalid IDEMPOTENCY_TTL: %w", err)
	}
	reconciliationInterval, err := time.ParseDuration(v.GetString("reconciliation_interval"))
	if err != nil {
		return nil, fmt.Errorf("invalid RECONCILIATION_INTERVAL: %w", err)
	}

	cfg := &Config{
		HTTPPort:               v.GetString("port"),
		DatabaseURL:            strings.TrimSpace(v.GetString("database_url")),
		RedisURL:               strings.TrimSpace(v.GetString("redis_url")),
		JWTSecret:              v.GetString("jwt_secret"),
		JWTIssuer:              v.GetString("jwt_issuer"),
		JWTAudience:            v.GetString("jwt_audience"),
		JWTTTL:                 jwtTTL,
		ReconciliationInterval: reconciliationInterval,
		PublicRateLimitRPS:     max(v.GetInt("public_rate_limit_rps"), 1),
		AuthRateLimitRPS:       max(v.GetInt("auth_rate_limit_rps"), 1),
		LogLevel:               v.GetString("log_level"),
		IdempotencyTTL:         ttl,
		SnapshotBackend:        strings.ToLower(strings.TrimSpace(v.GetString("snapshot_backend"))),
		SnapshotKey:            v.GetString("snapshot_key"),
		SnapshotFile:           v.GetString("snapshot_file"),
		AllowOverdraft:         v.GetBool("allow_overdraft"),
		SettleTransfers:        v.GetBool("settle_transfers"),
		SeedUsersFile:          v.GetString("seed_users_file"),
		DemoPassword:           v.GetString("demo_password"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	if strings.TrimSpace(c.JWTIssuer) == "" {
		return fmt.Errorf("JWT_ISSUER is required")
	}
	if strings.TrimSpace(c.JWTAudience) == "" {
		return fmt.Errorf("JWT_AUDIENCE is required")
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive")
	}
	if strings.TrimSpace(c.SnapshotKey) == "" {
		return fmt.Errorf("SNAPSHOT_KEY is required")
	}

	switch c.SnapshotBackend {
	case BackendMemory:
	case BackendFile:
		if strings.TrimSpace(c.SnapshotFile) == "" {
			return fmt.Errorf("SNAPSHOT_FILE is required for the file backend")
		}
	case BackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for the redis backend")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
	case BackendTiered:
		if c.DatabaseURL == "" || c.RedisURL == "" {
			return fmt.Errorf("DATABASE_URL and REDIS_URL are required for the tiered backend")
		}
	default:
		return fmt.Errorf("unknown SNAPSHOT_BACKEND %q", c.SnapshotBackend)
	}
	return nil
}

func bindEnv(v *viper.Viper, key string, names ...string) {
	args := append([]string{key}, names...)
	_ = v.BindEnv(args...)
}
