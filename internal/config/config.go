package config

import (
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the dealflow server.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Auth       AuthConfig
	CORS       CORSConfig
	RateLimit  RateLimitConfig
	Pagination PaginationConfig
}

type ServerConfig struct {
	Port          int
	Env           string
	Debug         bool
	MigrationsDir string
}

// Development reports whether the server runs with developer conveniences
// (console logs, debug level).
func (s ServerConfig) Development() bool {
	return s.Env == "development"
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectAttempts int
}

type RedisConfig struct {
	URL string
}

type AuthConfig struct {
	JWTSecret       string
	Issuer          string
	TokenTTL        time.Duration
	SuperAdminEmail string
	PrincipalTTL    time.Duration
	InvitationTTL   time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

// RateLimitConfig sets request budgets. Forwarding headers are honored
// only for requests arriving from a TrustedProxies address.
type RateLimitConfig struct {
	Authenticated   int
	Unauthenticated int
	Window          time.Duration
	TrustedProxies  []netip.Prefix
}

type PaginationConfig struct {
	DefaultPerPage int
	MaxPerPage     int
}

const minJWTSecretLen = 32

var validEnvs = map[string]bool{
	"development": true,
	"staging":     true,
	"production":  true,
	"test":        true,
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:          envInt("DEALFLOW_PORT", 8080),
			Env:           envString("DEALFLOW_ENV", "development"),
			Debug:         envBool("APP_DEBUG", false),
			MigrationsDir: envString("DEALFLOW_MIGRATIONS_DIR", "migrations"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnectAttempts: envInt("DATABASE_CONNECT_ATTEMPTS", 5),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Auth: AuthConfig{
			JWTSecret:       os.Getenv("JWT_SECRET"),
			Issuer:          envString("JWT_ISSUER", "dealflow"),
			TokenTTL:        envDuration("JWT_TTL", 24*time.Hour),
			SuperAdminEmail: strings.ToLower(strings.TrimSpace(os.Getenv("SUPER_ADMIN_EMAIL"))),
			PrincipalTTL:    envDuration("AUTH_PRINCIPAL_CACHE_TTL", 30*time.Second),
			InvitationTTL:   envDuration("INVITATION_TTL", 7*24*time.Hour),
		},
		CORS: CORSConfig{
			AllowedOrigins: envList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		RateLimit: RateLimitConfig{
			Authenticated:   envInt("RATE_LIMIT_AUTHENTICATED", 1000),
			Unauthenticated: envInt("RATE_LIMIT_UNAUTHENTICATED", 100),
			Window:          envDuration("RATE_LIMIT_WINDOW", time.Hour),
		},
		Pagination: PaginationConfig{
			DefaultPerPage: envInt("PAGINATION_DEFAULT_PER_PAGE", 10),
			MaxPerPage:     envInt("PAGINATION_MAX_PER_PAGE", 100),
		},
	}

	proxies, err := parsePrefixes(envList("TRUSTED_PROXIES", nil))
	if err != nil {
		return nil, fmt.Errorf("TRUSTED_PROXIES: %w", err)
	}
	cfg.RateLimit.TrustedProxies = proxies

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if !validEnvs[c.Server.Env] {
		return fmt.Errorf("DEALFLOW_ENV must be one of development, staging, production, test; got %q", c.Server.Env)
	}

	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if !strings.HasPrefix(c.Database.URL, "postgres://") && !strings.HasPrefix(c.Database.URL, "postgresql://") {
		return fmt.Errorf("DATABASE_URL must start with postgres:// or postgresql://")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(c.Auth.JWTSecret) < minJWTSecretLen {
		return fmt.Errorf("JWT_SECRET must be at least %d bytes", minJWTSecretLen)
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive")
	}
	if c.Auth.InvitationTTL <= 0 {
		return fmt.Errorf("INVITATION_TTL must be positive")
	}

	if c.RateLimit.Authenticated <= 0 || c.RateLimit.Unauthenticated <= 0 {
		return fmt.Errorf("RATE_LIMIT_AUTHENTICATED and RATE_LIMIT_UNAUTHENTICATED must be positive")
	}
	if c.RateLimit.Window < time.Second {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be at least 1s, got %s", c.RateLimit.Window)
	}

	if c.Pagination.MaxPerPage < 1 {
		return fmt.Errorf("PAGINATION_MAX_PER_PAGE must be positive")
	}
	if c.Pagination.DefaultPerPage < 1 || c.Pagination.DefaultPerPage > c.Pagination.MaxPerPage {
		return fmt.Errorf("PAGINATION_DEFAULT_PER_PAGE must be between 1 and %d", c.Pagination.MaxPerPage)
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}

// parsePrefixes accepts CIDR ranges and bare addresses.
func parsePrefixes(values []string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, v := range values {
		if p, err := netip.ParsePrefix(v); err == nil {
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(v)
		if err != nil {
			return nil, fmt.Errorf("invalid address or CIDR %q", v)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}
