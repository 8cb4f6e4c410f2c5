package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"vendorrisk/internal/app"
	"vendorrisk/internal/config"
	"vendorrisk/internal/dashboard"
	"vendorrisk/internal/vendorquery"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig(driver, dsn string) *config.Config {
	return &config.Config{
		AppPort:            ":0",
		AppEnv:             config.EnvDevelopment,
		DatabaseDriver:     driver,
		DatabaseDSN:        dsn,
		JWTSecret:          "test_jwt_secret",
		JWTExpiresIn:       time.Hour,
		VendorsRequireAuth: true,
		LogLevel:           "info",
	}
}

func TestOpenStore_Memory(t *testing.T) {
	st, err := openStore(testConfig(config.DriverMemory, ""), zap.NewNop())
	require.NoError(t, err)
	defer st.close()

	assert.True(t, st.seed)
	assert.Nil(t, st.ping)

	seedVendors(context.Background(), st.vendors, zap.NewNop())
	// seeding twice keeps domains unique
	seedVendors(context.Background(), st.vendors, zap.NewNop())

	vendors, total, err := st.vendors.List(context.Background(), vendorquery.Default())
	require.NoError(t, err)
	assert.Equal(t, int64(len(dashboard.SampleVendors())), total)
	assert.NotEmpty(t, vendors)
}

func TestOpenStore_SQLite(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "vendorrisk.db")
	st, err := openStore(testConfig("sqlite", dsn), zap.NewNop())
	require.NoError(t, err)
	defer st.close()

	assert.False(t, st.seed)
	require.NotNil(t, st.ping)
	assert.NoError(t, st.ping())

	_, total, err := st.vendors.List(context.Background(), vendorquery.Default())
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestOpenStore_UnknownDriver(t *testing.T) {
	_, err := openStore(testConfig("oracle", "x"), zap.NewNop())
	assert.Error(t, err)
}

func TestServerStartupAndHealthCheck(t *testing.T) {
	cfg := testConfig(config.DriverMemory, "")
	st, err := openStore(cfg, zap.NewNop())
	require.NoError(t, err)
	defer st.close()

	server := app.New(app.Options{Config: cfg, Users: st.users, Vendors: st.vendors, Ping: st.ping})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go server.Listener(ln) //nolint:errcheck
	defer server.Shutdown() //nolint:errcheck

	base := fmt.Sprintf("http://%s", ln.Addr().String())
	client := &http.Client{Timeout: 5 * time.Second}

	t.Run("HealthCheck", func(t *testing.T) {
		resp, err := client.Get(base + "/health")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), `"status":"healthy"`)
	})

	t.Run("UnauthenticatedAccess", func(t *testing.T) {
		resp, err := client.Get(base + "/api/vendors")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}
