package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"SERVER_PORT", "DB_HOST", "DB_NAME", "SWAPI_URL", "LOG_FORMAT", "ENVIRONMENT", "IMPORT_TIMEOUT_SECONDS", "REDIS_ENABLED", "REDIS_PORT"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, "planets", cfg.Database.Name)
	assert.Equal(t, "https://swapi-graphql.netlify.app/.netlify/functions/index", cfg.Import.SourceURL)
	assert.Equal(t, 30*time.Second, cfg.Import.Timeout)
	assert.False(t, cfg.Logging.JSONFormat)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "6379", cfg.Redis.Port)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_NAME", "planets_test")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("SWAPI_URL", "http://127.0.0.1:4000/graphql")
	t.Setenv("IMPORT_TIMEOUT_SECONDS", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "planets_test", cfg.Database.Name)
	assert.True(t, cfg.Logging.JSONFormat)
	assert.Equal(t, "http://127.0.0.1:4000/graphql", cfg.Import.SourceURL)
	assert.Equal(t, 5*time.Second, cfg.Import.Timeout)
}

func TestLoadRejectsRelativeSourceURL(t *testing.T) {
	t.Setenv("SWAPI_URL", "not a url")

	_, err := Load()
	assert.ErrorContains(t, err, "SWAPI_URL")
}

func TestConnectionString(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{
		Host: "db", Port: "5432", User: "u", Password: "p", Name: "planets", SSLMode: "disable",
	}}

	assert.Equal(t, "host=db port=5432 user=u password=p dbname=planets sslmode=disable", cfg.ConnectionString())
}
