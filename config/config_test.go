package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test,")
	t.Setenv("JWT_TTL", "2h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins)
	assert.Equal(t, 2*time.Hour, cfg.JWTTTL)
	assert.NotEmpty(t, cfg.JWTSecret)
	assert.Equal(t, 0.08, cfg.Settings.TaxRate)
	assert.Equal(t, 11, cfg.Settings.LunchStartHour)
}

func TestProductionRequiresSecret(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadSettingsOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pos.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tax_rate: 0.1\ndashboard_refresh: 15s\nlunch_end_hour: 15\n"), 0o600))

	s, err := LoadSettings(path, DefaultSettings())
	require.NoError(t, err)

	assert.Equal(t, 0.1, s.TaxRate)
	assert.Equal(t, 15*time.Second, s.DashboardRefresh)
	assert.Equal(t, 15, s.LunchEndHour)
	assert.Equal(t, 0.18, s.AutoGratuityRate)
	assert.NoError(t, s.Validate())
}

func TestSettingsValidate(t *testing.T) {
	s := DefaultSettings()
	s.DashboardRefresh = 5 * time.Second
	assert.Error(t, s.Validate())

	s = DefaultSettings()
	s.LunchStartHour, s.LunchEndHour = 16, 11
	assert.Error(t, s.Validate())
}

func TestDialectorFor(t *testing.T) {
	_, err := dialectorFor(&Config{DBDriver: "oracle"})
	assert.Error(t, err)

	d, err := dialectorFor(&Config{DBDriver: "postgres", DBHost: "db", DBUser: "pos", DBName: "pos"})
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.Name())
}
