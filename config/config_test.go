package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

const testSecret = "0123456789abcdef0123456789abcdef"

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(envOf(map[string]string{"JWT_SECRET": testSecret}))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "homebites.db", cfg.DatabaseDSN)
	assert.Equal(t, 30*time.Minute, cfg.TokenTTL)
	assert.Equal(t, 5, cfg.AuthRatePerMinute)
	assert.Equal(t, []string{"http://127.0.0.1:5500"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, time.UTC, cfg.Location)
}

func TestFromEnvRequiresSecret(t *testing.T) {
	_, err := FromEnv(envOf(map[string]string{}))
	assert.Error(t, err)

	_, err = FromEnv(envOf(map[string]string{"JWT_SECRET": "short"}))
	assert.Error(t, err)
}

func TestFromEnvOverrides(t *testing.T) {
	cfg, err := FromEnv(envOf(map[string]string{
		"JWT_SECRET":           testSecret,
		"APP_PORT":             "9090",
		"DB_DRIVER":            "postgres",
		"TOKEN_TTL":            "15m",
		"CORS_ALLOWED_ORIGINS": "http://a.test, http://b.test",
		"TIMEZONE":             "Asia/Kolkata",
	}))
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Contains(t, cfg.DatabaseDSN, "dbname=homebites")
	assert.Equal(t, 15*time.Minute, cfg.TokenTTL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, "Asia/Kolkata", cfg.Location.String())
}

func TestFromEnvRejectsBadValues(t *testing.T) {
	cases := map[string]map[string]string{
		"driver": {"JWT_SECRET": testSecret, "DB_DRIVER": "oracle"},
		"ttl":    {"JWT_SECRET": testSecret, "TOKEN_TTL": "soon"},
		"zero":   {"JWT_SECRET": testSecret, "TOKEN_TTL": "0s"},
		"cost":   {"JWT_SECRET": testSecret, "BCRYPT_COST": "99"},
		"tz":     {"JWT_SECRET": testSecret, "TIMEZONE": "Mars/Olympus"},
		"rps":    {"JWT_SECRET": testSecret, "RATE_LIMIT_RPS": "fast"},
		"perMin": {"JWT_SECRET": testSecret, "AUTH_RATE_PER_MINUTE": "x"},
		"mode":   {"JWT_SECRET": testSecret, "GIN_MODE": "prod"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := FromEnv(envOf(env))
			assert.Error(t, err)
		})
	}
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "app.db?_foreign_keys=on", SQLiteDSN("app.db"))
	assert.Equal(t, "file:x?mode=memory&_foreign_keys=on", SQLiteDSN("file:x?mode=memory"))
	assert.Equal(t, "app.db?_fk=1", SQLiteDSN("app.db?_fk=1"))
}
