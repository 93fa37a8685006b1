package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	RateLimit    RateLimitConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	// SigningKeys lists kid:secret pairs, newest first. The first entry signs
	// new tokens; every entry verifies, which is what makes zero-downtime
	// secret rotation possible.
	SigningKeys             string
	AccessTokenTTLMinutes   int
	RefreshTokenTTLDays     int
	LeewaySeconds           int
	PasswordResetTTLMinutes int
	RevokeFamilyOnReplay    bool
	HashConcurrency         int
	CleanupIntervalMinutes  int
	Argon2MemoryKB          int
	Argon2Time              int
	Argon2Parallelism       int
}

// RateLimitConfig bounds credential-guessing traffic on auth endpoints.
type RateLimitConfig struct {
	Enabled          bool
	LoginPerMinute   int
	RefreshPerMinute int
}

// NotificationConfig holds notification sink settings.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "workspace-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			SigningKeys:             getEnv("AUTH_SIGNING_KEYS", "dev:dev-secret"),
			AccessTokenTTLMinutes:   getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 15),
			RefreshTokenTTLDays:     getEnvAsInt("AUTH_REFRESH_TOKEN_TTL_DAYS", 14),
			LeewaySeconds:           getEnvAsInt("AUTH_LEEWAY_SECONDS", 30),
			PasswordResetTTLMinutes: getEnvAsInt("AUTH_PASSWORD_RESET_TTL_MINUTES", 30),
			RevokeFamilyOnReplay:    getEnvAsBool("AUTH_REVOKE_FAMILY_ON_REPLAY", true),
			HashConcurrency:         getEnvAsInt("AUTH_HASH_CONCURRENCY", 4),
			CleanupIntervalMinutes:  getEnvAsInt("AUTH_CLEANUP_INTERVAL_MINUTES", 60),
			Argon2MemoryKB:          getEnvAsInt("AUTH_ARGON2_MEMORY_KB", 65536),
			Argon2Time:              getEnvAsInt("AUTH_ARGON2_TIME", 2),
			Argon2Parallelism:       getEnvAsInt("AUTH_ARGON2_PARALLELISM", 2),
		},
		RateLimit: RateLimitConfig{
			Enabled:          getEnvAsBool("RATE_LIMIT_ENABLED", true),
			LoginPerMinute:   getEnvAsInt("RATE_LIMIT_LOGIN_PER_MINUTE", 10),
			RefreshPerMinute: getEnvAsInt("RATE_LIMIT_REFRESH_PER_MINUTE", 30),
		},
		Notification: NotificationConfig{
			EmailFrom:  getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
	}

	if len(cfg.Auth.SigningKeyPairs()) == 0 {
		return nil, fmt.Errorf("AUTH_SIGNING_KEYS must contain at least one kid:secret pair")
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// SigningKeyPairs parses the kid:secret list, newest first. Malformed
// entries are dropped.
func (a AuthConfig) SigningKeyPairs() [][2]string {
	var pairs [][2]string
	for _, entry := range strings.Split(a.SigningKeys, ",") {
		kid, secret, found := strings.Cut(strings.TrimSpace(entry), ":")
		if !found || kid == "" || secret == "" {
			continue
		}
		pairs = append(pairs, [2]string{kid, secret})
	}
	return pairs
}

// Leeway returns the expiry clock-skew tolerance.
func (a AuthConfig) Leeway() time.Duration {
	if a.LeewaySeconds < 0 {
		return 0
	}
	return time.Duration(a.LeewaySeconds) * time.Second
}

// CleanupInterval returns the session GC cadence.
func (a AuthConfig) CleanupInterval() time.Duration {
	if a.CleanupIntervalMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(a.CleanupIntervalMinutes) * time.Minute
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
