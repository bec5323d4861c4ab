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

	assert.Equal(t, "dev", cfg.AppEnv)
	assert.Equal(t, BackendSQLite, cfg.CartBackend)
	assert.Equal(t, CacheMemory, cfg.CatalogCache)
	assert.Equal(t, 10*time.Second, cfg.CatalogTimeout)
	assert.Equal(t, "electronics", cfg.DefaultCategory)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("CART_BACKEND", "mongo")
	t.Setenv("CATALOG_CACHE", "redis")
	t.Setenv("CATALOG_TIMEOUT", "3s")
	t.Setenv("HTTP_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, BackendMongo, cfg.CartBackend)
	assert.Equal(t, CacheRedis, cfg.CatalogCache)
	assert.Equal(t, 3*time.Second, cfg.CatalogTimeout)
	assert.Equal(t, "9090", cfg.HTTPPort)
}

func TestLoad_ParseError(t *testing.T) {
	t.Setenv("CATALOG_TIMEOUT", "soon")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")
}

func TestLoad_UnknownBackend(t *testing.T) {
	t.Setenv("CART_BACKEND", "postgres")

	_, err := Load()
	require.ErrorContains(t, err, "unknown CART_BACKEND")
}

func TestValidate_UnknownCache(t *testing.T) {
	cfg := Config{CartBackend: BackendSQLite, CatalogCache: "disk", CatalogTimeout: time.Second, CatalogBaseURL: "x"}
	require.ErrorContains(t, cfg.Validate(), "unknown CATALOG_CACHE")
}
