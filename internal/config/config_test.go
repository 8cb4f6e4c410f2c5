package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"vendorrisk/internal/config"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.AppPort)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, 24*time.Hour, cfg.JWTExpiresIn)
	assert.True(t, cfg.VendorsRequireAuth)
	assert.Empty(t, cfg.RabbitMQURL)
	assert.Equal(t, []string{"http://localhost:3000", "http://127.0.0.1:3000"}, cfg.AllowedOrigins())
}

func TestLoad_Overrides(t *testing.T) {
	v := viper.New()
	v.Set("APP_ENV", "Production")
	v.Set("JWT_SECRET", "s3cret")
	v.Set("JWT_EXPIRES_IN", "90m")
	v.Set("DATABASE_DRIVER", "postgres")
	v.Set("DATABASE_DSN", "host=localhost dbname=vendors")
	v.Set("FRONTEND_URL", "https://app.example.com/")
	v.Set("CORS_ORIGINS", " https://app.example.com , http://localhost:3000")
	v.Set("VENDORS_REQUIRE_AUTH", "false")

	cfg, err := config.Load(v)
	require.NoError(t, err)
	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, 90*time.Minute, cfg.JWTExpiresIn)
	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.False(t, cfg.VendorsRequireAuth)
	assert.Equal(t, []string{"https://app.example.com", "http://localhost:3000"}, cfg.AllowedOrigins())
}

func TestLoad_MemoryDriverNeedsNoDSN(t *testing.T) {
	v := viper.New()
	v.Set("DATABASE_DRIVER", "memory")
	v.Set("DATABASE_DSN", "")
	cfg, err := config.Load(v)
	require.NoError(t, err)
	assert.Equal(t, config.DriverMemory, cfg.DatabaseDriver)

	v = viper.New()
	v.Set("DATABASE_DSN", "")
	_, err = config.Load(v)
	assert.ErrorContains(t, err, "DatabaseDSN")
}

func TestLoad_RejectsDefaultSecretOutsideDevelopment(t *testing.T) {
	v := viper.New()
	v.Set("APP_ENV", "production")
	_, err := config.Load(v)
	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"DATABASE_DRIVER": "oracle",
		"LOG_LEVEL":       "loud",
		"JWT_EXPIRES_IN":  "0s",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			v := viper.New()
			v.Set(key, value)
			_, err := config.Load(v)
			assert.ErrorContains(t, err, "invalid configuration")
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	require.NoError(t, config.LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("VENDORRISK_TEST_DOTENV=loaded\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("VENDORRISK_TEST_DOTENV") })

	require.NoError(t, config.LoadDotEnv(path))
	assert.Equal(t, "loaded", os.Getenv("VENDORRISK_TEST_DOTENV"))
}
