package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "3001", cfg.Server.Port)
	assert.Equal(t, ":3001", cfg.Server.Addr())
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.Server.CORSOrigins)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "oficina.db", cfg.Database.Path)
	assert.False(t, cfg.Database.Migrations)
	assert.False(t, cfg.Auth.RequireAuth)
	assert.Equal(t, "text", cfg.App.LogFormat)
	assert.Equal(t, 20, cfg.Server.AuthRateLimit)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("DATABASE_DSN", "postgres://u:p@localhost:5432/garage?sslmode=disable")
	t.Setenv("MIGRATIONS", "1")
	t.Setenv("CORS_ORIGINS", "http://a.test,http://b.test")
	t.Setenv("SERVER_READ_TIMEOUT", "5s")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.True(t, cfg.Database.Migrations)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown driver", map[string]string{"DB_DRIVER": "mysql"}},
		{"postgres without dsn", map[string]string{"DB_DRIVER": "postgres"}},
		{"sqlite without path", map[string]string{"DB_PATH": ""}},
		{"auth without secret", map[string]string{"REQUIRE_AUTH": "true"}},
		{"bad bool", map[string]string{"DB_DEBUG": "maybe"}},
		{"zero rate limit", map[string]string{"AUTH_RATE_LIMIT": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}
