package config

import (
	"testing"
	"time"

	"github.com/abgdnv/catalog/pkg/config/configloader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Load_Defaults(t *testing.T) {
	// given
	t.Chdir(t.TempDir())

	// when
	cfg, err := configloader.Load[*Config]("catalog", Defaults())

	// then
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.HTTPServer.Port)
	assert.Equal(t, 5, cfg.Catalog.ItemsPerPage)
	assert.Equal(t, 500*time.Millisecond, cfg.Catalog.Debounce)
	assert.Equal(t, "table", cfg.Catalog.DefaultViewType)
	assert.Equal(t, "/metrics", cfg.Telemetry.Metrics.Path)
	assert.Equal(t, 10*time.Second, cfg.Shutdown.Timeout)
}

func Test_Load_EnvOverrides(t *testing.T) {
	// given
	t.Chdir(t.TempDir())
	t.Setenv("CATALOG_CATALOG_SEEDFILE", "/data/products.json")
	t.Setenv("CATALOG_SERVER_PORT", "9999")

	// when
	cfg, err := configloader.Load[*Config]("catalog", Defaults())

	// then
	require.NoError(t, err)
	assert.Equal(t, "/data/products.json", cfg.Catalog.SeedFile)
	assert.Equal(t, 9999, cfg.HTTPServer.Port)
}

func Test_CatalogConfig_Validate(t *testing.T) {
	valid := CatalogConfig{ItemsPerPage: 5, Debounce: time.Second, DefaultViewType: "card"}
	testCases := []struct {
		name        string
		mutate      func(c *CatalogConfig)
		expectError bool
	}{
		{name: "Valid", mutate: func(*CatalogConfig) {}},
		{name: "Zero items per page", mutate: func(c *CatalogConfig) { c.ItemsPerPage = 0 }, expectError: true},
		{name: "Zero debounce", mutate: func(c *CatalogConfig) { c.Debounce = 0 }, expectError: true},
		{name: "Unknown view type", mutate: func(c *CatalogConfig) { c.DefaultViewType = "grid" }, expectError: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			cfg := valid
			tc.mutate(&cfg)

			// when
			err := cfg.Validate()

			// then
			if tc.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
