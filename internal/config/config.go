package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/abgdnv/catalog/pkg/config"
	"github.com/abgdnv/catalog/pkg/config/configloader"
)

var _ configloader.Validator = (*Config)(nil)

type Config struct {
	HTTPServer config.HTTPConfig       `koanf:"server"`
	Log        config.LogConfig        `koanf:"log"`
	PProf      config.PProfConfig      `koanf:"pprof"`
	GRPC       config.GrpcServerConfig `koanf:"grpc"`
	Shutdown   config.ShutdownConfig   `koanf:"shutdown"`
	Telemetry  config.TelemetryConfig  `koanf:"telemetry"`
	Catalog    CatalogConfig           `koanf:"catalog"`
}

// CatalogConfig configures the catalog session.
type CatalogConfig struct {
	// SeedFile is a JSON array of products. The embedded snapshot is used when empty.
	SeedFile        string        `koanf:"seedFile"`
	ItemsPerPage    int           `koanf:"itemsPerPage"`
	Debounce        time.Duration `koanf:"debounce"`
	DefaultViewType string        `koanf:"defaultViewType"`
}

// Defaults returns the values used for keys absent from every config source.
func Defaults() map[string]any {
	return map[string]any{
		"server.port":               8080,
		"server.maxHeaderBytes":     1 << 20,
		"server.timeout.read":       "5s",
		"server.timeout.write":      "10s",
		"server.timeout.idle":       "60s",
		"server.timeout.readHeader": "2s",
		"log.level":                 "info",
		"log.format":                "json",
		"pprof.enabled":             false,
		"pprof.addr":                ":6060",
		"grpc.enabled":              true,
		"grpc.port":                 "9090",
		"grpc.reflection":           false,
		"shutdown.timeout":          "10s",
		"telemetry.traces.enabled":  false,
		"telemetry.metrics.enabled": true,
		"telemetry.metrics.path":    "/metrics",
		"catalog.itemsPerPage":      5,
		"catalog.debounce":          "500ms",
		"catalog.defaultViewType":   "table",
	}
}

func (c *CatalogConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Catalog ---\n")
	seed := c.SeedFile
	if seed == "" {
		seed = "<embedded>"
	}
	b.WriteString(fmt.Sprintf("  seedFile: %s\n", seed))
	b.WriteString(fmt.Sprintf("  itemsPerPage: %d\n", c.ItemsPerPage))
	b.WriteString(fmt.Sprintf("  debounce: %s\n", c.Debounce))
	b.WriteString(fmt.Sprintf("  defaultViewType: %s\n", c.DefaultViewType))
	return b.String()
}

func (c *CatalogConfig) Validate() error {
	if c.ItemsPerPage <= 0 {
		return fmt.Errorf("catalog items per page must be greater than 0: %d", c.ItemsPerPage)
	}
	if c.Debounce <= 0 {
		return fmt.Errorf("catalog debounce window must be greater than 0: %v", c.Debounce)
	}
	switch c.DefaultViewType {
	case "table", "card":
	default:
		return fmt.Errorf("unsupported catalog view type: %q", c.DefaultViewType)
	}
	return nil
}

func (c *Config) String() string {
	var b strings.Builder
	b.WriteString(c.HTTPServer.String())
	b.WriteString(c.GRPC.String())
	b.WriteString(c.Log.String())
	b.WriteString(c.PProf.String())
	b.WriteString(c.Telemetry.String())
	b.WriteString(c.Shutdown.String())
	b.WriteString(c.Catalog.String())
	return b.String()
}

// Validate checks if the configuration values are valid
func (c *Config) Validate() error {
	validators := []configloader.Validator{
		&c.HTTPServer, &c.Log, &c.PProf, &c.GRPC, &c.Shutdown, &c.Telemetry, &c.Catalog,
	}
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}
