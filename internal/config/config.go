// Package config handles loading application configuration from environment
// variables. All config is centralized here so no other package reads env
// vars directly. A .env file in the working directory is loaded first when
// present; sensible defaults are provided for development.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
)

// Password schemes accepted by PASSWORD_SCHEME.
const (
	PasswordSchemeArgon2id = "argon2id"
	PasswordSchemeMD5      = "md5"
)

// Config holds all application configuration. Populated from environment
// variables at startup. Passed to other packages via dependency injection.
type Config struct {
	// Env is the runtime environment: "development" or "production".
	Env string `env:"ENV" envDefault:"development"`

	// Port is the HTTP listen port.
	Port int `env:"PORT" envDefault:"8080"`

	// BaseURL is the public-facing URL, used as the allowed CORS origin.
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:8080"`

	// TrustedProxies lists CIDRs whose X-Forwarded-For / X-Real-IP headers
	// are believed when resolving the client IP.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:"," envDefault:"127.0.0.0/8,10.0.0.0/8,172.16.0.0/12,192.168.0.0/16,fd00::/8"`

	// LogLevel controls log verbosity: "debug", "info", "warn", "error".
	LogLevel string `env:"LOG_LEVEL" envDefault:"debug"`

	// MigrationsPath is the directory holding golang-migrate SQL files.
	MigrationsPath string `env:"MIGRATIONS_PATH" envDefault:"db/migrations"`

	// AutoMigrate applies pending migrations when the server starts.
	AutoMigrate bool `env:"AUTO_MIGRATE" envDefault:"true"`

	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
}

// DatabaseConfig holds MariaDB connection parameters. Individual fields are
// read from separate env vars so container orchestrators can manage each
// independently. If DATABASE_URL is set, it takes precedence.
type DatabaseConfig struct {
	// Host is the MariaDB address in host:port format. If no port is
	// specified, 3306 is appended automatically.
	Host     string `env:"DB_HOST" envDefault:"localhost:3306"`
	User     string `env:"DB_USER" envDefault:"userservice"`
	Password string `env:"DB_PASSWORD" envDefault:"userservice"`
	Name     string `env:"DB_NAME" envDefault:"userservice"`

	// URL is a complete go-sql-driver DSN, bypassing the individual fields.
	URL string `env:"DATABASE_URL"`

	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"5m"`
}

// DSN returns the go-sql-driver/mysql connection string. If DATABASE_URL was
// set, it is returned as-is. Otherwise the DSN is built with the driver's
// Config.FormatDSN() to safely handle special characters in passwords.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	cfg := mysql.NewConfig()
	cfg.User = d.User
	cfg.Passwd = d.Password
	cfg.Net = "tcp"
	cfg.Addr = ensurePort(d.Host, "3306")
	cfg.DBName = d.Name
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

// ensurePort appends the default port if the host string doesn't include one.
func ensurePort(host, defaultPort string) string {
	_, _, err := net.SplitHostPort(host)
	if err != nil {
		return net.JoinHostPort(host, defaultPort)
	}
	return host
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	// URL is the Redis connection URL (e.g., "redis://localhost:6379/0").
	URL string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	// SessionTTL is how long a login session lives in Redis.
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"30m"`

	// TokenHeader is the request header carrying the session token.
	TokenHeader string `env:"AUTH_TOKEN_HEADER" envDefault:"token"`

	// PasswordScheme selects the digest used for new hashes.
	PasswordScheme string `env:"PASSWORD_SCHEME" envDefault:"argon2id"`
}

// CacheConfig holds read-through cache settings.
type CacheConfig struct {
	// ProfileTTL is how long a profile view stays cached. Zero disables the cache.
	ProfileTTL time.Duration `env:"CACHE_PROFILE_TTL" envDefault:"10m"`
}

// RateLimitConfig holds per-IP limits for the public auth endpoints.
type RateLimitConfig struct {
	LoginPerMinute    int `env:"RATE_LIMIT_LOGIN" envDefault:"10"`
	RegisterPerMinute int `env:"RATE_LIMIT_REGISTER" envDefault:"5"`
}

// Load reads an optional .env file and then parses configuration from the
// environment. Returns an error if a value is malformed or invalid.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	return Parse()
}

// Parse builds a Config from the current environment without touching .env.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate rejects configurations the service cannot run with.
func (c *Config) validate() error {
	if c.Auth.SessionTTL < time.Second {
		return fmt.Errorf("SESSION_TTL must be at least 1s, got %s", c.Auth.SessionTTL)
	}
	if strings.TrimSpace(c.Auth.TokenHeader) == "" {
		return fmt.Errorf("AUTH_TOKEN_HEADER must not be empty")
	}

	switch c.Auth.PasswordScheme {
	case PasswordSchemeArgon2id, PasswordSchemeMD5:
	default:
		return fmt.Errorf("PASSWORD_SCHEME must be %q or %q, got %q",
			PasswordSchemeArgon2id, PasswordSchemeMD5, c.Auth.PasswordScheme)
	}

	if c.Cache.ProfileTTL < 0 {
		return fmt.Errorf("CACHE_PROFILE_TTL must not be negative")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Env)
	return env == "development" || env == "dev"
}
