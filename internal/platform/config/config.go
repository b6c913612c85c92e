package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
	SessionTTL    time.Duration
	Log           LogConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	RateLimit     RateLimitConfig
	Admin         AdminConfig
}

type LogConfig struct {
	Level  string
	Format string
}

// DatabaseConfig selects PostgreSQL. An empty URL keeps every store in memory.
type DatabaseConfig struct {
	URL    string
	Driver string
}

// RedisConfig selects the Redis session store. An empty URL keeps sessions in memory.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// RateLimitConfig keys buckets by client address. Forwarding headers are only
// believed from peers listed in TrustedProxies (CIDRs or addresses).
type RateLimitConfig struct {
	Disabled       bool
	PerMinute      int
	TrustedProxies []string
}

// AdminConfig bootstraps a superuser on startup when both fields are set.
type AdminConfig struct {
	Username string
	Password string
}

const (
	DriverPGX      = "pgx"
	DriverPostgres = "postgres"
)

// DevJWTSigningKey is used when JWT_SIGNING_KEY is unset.
const DevJWTSigningKey = "dev-secret-key-change-in-production"

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	return Server{
		Addr:          envString("BLOODBANK_ADDR", ":8080"),
		JWTSigningKey: envString("JWT_SIGNING_KEY", DevJWTSigningKey),
		SessionTTL:    envDuration("SESSION_TTL", 24*time.Hour),
		Log: LogConfig{
			Level:  envString("LOG_LEVEL", "info"),
			Format: envString("LOG_FORMAT", "json"),
		},
		Database: DatabaseConfig{
			URL:    os.Getenv("DATABASE_URL"),
			Driver: normalizeDriver(os.Getenv("DB_DRIVER")),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		RateLimit: RateLimitConfig{
			Disabled:       os.Getenv("RATE_LIMIT_DISABLED") == "true",
			PerMinute:      envInt("RATE_LIMIT_PER_MINUTE", 20),
			TrustedProxies: envList("TRUSTED_PROXIES"),
		},
		Admin: AdminConfig{
			Username: os.Getenv("ADMIN_USERNAME"),
			Password: os.Getenv("ADMIN_PASSWORD"),
		},
	}
}

// UsesDefaultSigningKey reports whether tokens are signed with the development key.
func (s Server) UsesDefaultSigningKey() bool {
	return s.JWTSigningKey == DevJWTSigningKey
}

func normalizeDriver(v string) string {
	if strings.EqualFold(strings.TrimSpace(v), DriverPostgres) {
		return DriverPostgres
	}
	return DriverPGX
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key)))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
