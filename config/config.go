package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultPort          = "8080"
	defaultDBDriver      = "sqlite"
	defaultSQLiteDSN     = "homebites.db"
	defaultPostgresDSN   = "host=localhost user=postgres password=postgres dbname=homebites port=5432 sslmode=disable"
	defaultMySQLDSN      = "root:root@tcp(127.0.0.1:3306)/homebites?charset=utf8mb4&parseTime=True&loc=Local"
	defaultTokenTTL      = 30 * time.Minute
	defaultCORSOrigin    = "http://127.0.0.1:5500"
	minJWTSecretLength   = 32
	defaultAuthPerMinute = 5
)

// Config holds everything the server needs at startup. It is built once by
// Load and passed down explicitly.
type Config struct {
	Port    string
	GinMode string

	DBDriver    string
	DatabaseDSN string

	JWTSecret  []byte
	TokenTTL   time.Duration
	BcryptCost int

	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int
	AuthRatePerMinute  int

	LogLevel  string
	LogFormat string

	Location *time.Location
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from an arbitrary lookup function.
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	cfg := &Config{
		Port:      get("APP_PORT", get("PORT", defaultPort)),
		GinMode:   get("GIN_MODE", "debug"),
		DBDriver:  strings.ToLower(get("DB_DRIVER", defaultDBDriver)),
		LogLevel:  get("LOG_LEVEL", "info"),
		LogFormat: get("LOG_FORMAT", "text"),
	}

	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		return nil, fmt.Errorf("unsupported GIN_MODE %q", cfg.GinMode)
	}

	switch cfg.DBDriver {
	case "sqlite":
		cfg.DatabaseDSN = get("DATABASE_DSN", defaultSQLiteDSN)
	case "mysql":
		cfg.DatabaseDSN = get("DATABASE_DSN", defaultMySQLDSN)
	case "postgres":
		cfg.DatabaseDSN = get("DATABASE_DSN", defaultPostgresDSN)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	secret := getenv("JWT_SECRET")
	if secret == "" {
		return nil, errors.New("JWT_SECRET is not set")
	}
	if len(secret) < minJWTSecretLength {
		return nil, fmt.Errorf("JWT_SECRET must be at least %d bytes", minJWTSecretLength)
	}
	cfg.JWTSecret = []byte(secret)

	var err error
	if cfg.TokenTTL, err = parseDuration(get("TOKEN_TTL", ""), defaultTokenTTL); err != nil {
		return nil, fmt.Errorf("TOKEN_TTL: %w", err)
	}
	if cfg.TokenTTL <= 0 {
		return nil, errors.New("TOKEN_TTL must be positive")
	}

	if cfg.BcryptCost, err = parseInt(get("BCRYPT_COST", ""), bcrypt.DefaultCost); err != nil {
		return nil, fmt.Errorf("BCRYPT_COST: %w", err)
	}
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		return nil, fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}

	if cfg.RateLimitRPS, err = parseFloat(get("RATE_LIMIT_RPS", ""), 50); err != nil {
		return nil, fmt.Errorf("RATE_LIMIT_RPS: %w", err)
	}
	if cfg.RateLimitBurst, err = parseInt(get("RATE_LIMIT_BURST", ""), 100); err != nil {
		return nil, fmt.Errorf("RATE_LIMIT_BURST: %w", err)
	}
	if cfg.AuthRatePerMinute, err = parseInt(get("AUTH_RATE_PER_MINUTE", ""), defaultAuthPerMinute); err != nil {
		return nil, fmt.Errorf("AUTH_RATE_PER_MINUTE: %w", err)
	}

	for _, origin := range strings.Split(get("CORS_ALLOWED_ORIGINS", defaultCORSOrigin), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, origin)
		}
	}

	if cfg.Location, err = time.LoadLocation(get("TIMEZONE", "UTC")); err != nil {
		return nil, fmt.Errorf("TIMEZONE: %w", err)
	}

	return cfg, nil
}

func parseDuration(raw string, fallback time.Duration) (time.Duration, error) {
	if raw == "" {
		return fallback, nil
	}
	return time.ParseDuration(raw)
}

func parseInt(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

func parseFloat(raw string, fallback float64) (float64, error) {
	if raw == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(raw, 64)
}
