package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTokenExpiry)
	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.Firestore.Enabled)
	assert.Equal(t, "30 3 * * *", cfg.Scheduler.RatingRecomputeSpec)
	assert.Equal(t, 50, cfg.Search.DefaultLimit)
	assert.Equal(t, 100, cfg.Search.MaxLimit)
	assert.EqualValues(t, 5<<20, cfg.Upload.MaxImageBytes)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("JWT_ACCESS_TOKEN_EXPIRY", "30m")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("ALLOWED_ORIGINS", "https://nearmi.in, http://localhost:5173,")
	t.Setenv("SEARCH_MAX_LIMIT", "250")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 30*time.Minute, cfg.JWT.AccessTokenExpiry)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr())
	assert.Equal(t, []string{"https://nearmi.in", "http://localhost:5173"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 250, cfg.Search.MaxLimit)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("JWT_ACCESS_TOKEN_EXPIRY", "soon")
	t.Setenv("SEARCH_DEFAULT_LIMIT", "many")
	t.Setenv("REDIS_ENABLED", "perhaps")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTokenExpiry)
	assert.Equal(t, 50, cfg.Search.DefaultLimit)
	assert.False(t, cfg.Redis.Enabled)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "localhunt", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=localhunt sslmode=disable", c.DSN())
}
