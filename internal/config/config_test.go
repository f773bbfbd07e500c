package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_NAME", "file::memory:")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "file::memory:", cfg.Database.DSN())
	assert.Equal(t, 24*time.Hour, cfg.Auth.JWTTTL)
	assert.Equal(t, []string{"http://localhost:4200"}, cfg.CORSAllowedOrigins)
	assert.False(t, cfg.RequireInProgressBeforeComplete)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("LIFECYCLE_REQUIRE_IN_PROGRESS", "true")
	t.Setenv("JWT_TTL", "90m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Contains(t, cfg.Database.DSN(), "host=db port=5432")
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.True(t, cfg.RequireInProgressBeforeComplete)
	assert.Equal(t, 90*time.Minute, cfg.Auth.JWTTTL)
}

func TestDatabaseOptions_MySQLDSNCountsMatchedRows(t *testing.T) {
	opts := DatabaseOptions{Driver: "mysql", Host: "db", Port: "3306", User: "u", Password: "p", Name: "plantrack"}
	assert.Equal(t, "u:p@tcp(db:3306)/plantrack?charset=utf8mb4&parseTime=True&loc=Local&clientFoundRows=true", opts.DSN())
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			AppEnv:   "development",
			Database: DatabaseOptions{Driver: "mysql"},
			Auth:     AuthOptions{JWTTTL: time.Hour, JWTSecret: "short", SessionSecret: "short"},
			Metrics:  MetricsOptions{Enabled: true, Path: "/metrics"},
		}
	}

	t.Run("valid development config", func(t *testing.T) {
		assert.NoError(t, base().Validate())
	})

	t.Run("unknown driver", func(t *testing.T) {
		cfg := base()
		cfg.Database.Driver = "oracle"
		assert.Error(t, cfg.Validate())
	})

	t.Run("short secrets rejected in production", func(t *testing.T) {
		cfg := base()
		cfg.AppEnv = Production
		assert.Error(t, cfg.Validate())
	})

	t.Run("metrics path must be absolute", func(t *testing.T) {
		cfg := base()
		cfg.Metrics.Path = "metrics"
		assert.Error(t, cfg.Validate())
	})
}
