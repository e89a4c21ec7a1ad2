// Package app contains the application setup for the catalog service.
package app

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/abgdnv/catalog/internal/config"
	"github.com/abgdnv/catalog/internal/product/service"
	"github.com/abgdnv/catalog/internal/product/store"
	"github.com/abgdnv/catalog/internal/product/transport/rest"
	"github.com/abgdnv/catalog/pkg/server"
	"github.com/go-chi/chi/v5"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// HealthService is the gRPC health service name reporting catalog readiness.
const HealthService = "catalog"

type Dependencies struct {
	Catalog        *service.Catalog
	Logger         *slog.Logger
	Health         *health.Server
	MetricsHandler http.Handler
	MetricsPath    string
	ServiceName    string
}

// SetupDependencies loads the seed snapshot and creates the catalog session.
// Metrics are served only when metricsHandler is not nil.
func SetupDependencies(cfg config.CatalogConfig, logger *slog.Logger, opts ...Option) (*Dependencies, error) {
	seed, err := loadSeed(cfg.SeedFile)
	if err != nil {
		return nil, err
	}
	logger.Info("Catalog seeded", "products", len(seed), "source", seedSource(cfg.SeedFile))

	deps := &Dependencies{
		Logger:      logger,
		Health:      health.NewServer(),
		ServiceName: "catalog",
	}
	catalogOpts := service.Options{
		ItemsPerPage:    cfg.ItemsPerPage,
		DebounceWindow:  cfg.Debounce,
		DefaultViewType: service.ViewType(cfg.DefaultViewType),
	}
	for _, opt := range opts {
		opt(deps, &catalogOpts)
	}

	deps.Catalog = service.NewCatalog(store.NewInMemoryStore(seed), logger, catalogOpts)
	deps.Health.SetServingStatus(HealthService, grpc_health_v1.HealthCheckResponse_SERVING)
	return deps, nil
}

// Option customises the dependencies before the catalog is created.
type Option func(*Dependencies, *service.Options)

// WithMetrics serves handler on path of the HTTP router.
func WithMetrics(path string, handler http.Handler) Option {
	return func(d *Dependencies, _ *service.Options) {
		d.MetricsPath = path
		d.MetricsHandler = handler
	}
}

// WithCatalogOptions overrides the session options, e.g. to inject a manual clock in tests.
func WithCatalogOptions(fn func(*service.Options)) Option {
	return func(_ *Dependencies, o *service.Options) {
		fn(o)
	}
}

// WithServiceName names the service in HTTP spans.
func WithServiceName(name string) Option {
	return func(d *Dependencies, _ *service.Options) {
		d.ServiceName = name
	}
}

// Close marks the service as not serving and stops the catalog session.
func (d *Dependencies) Close() {
	d.Health.SetServingStatus(HealthService, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	d.Catalog.Close()
}

func loadSeed(path string) ([]store.Product, error) {
	if path == "" {
		seed, err := store.DefaultSeed()
		if err != nil {
			return nil, fmt.Errorf("failed to load embedded seed: %w", err)
		}
		return seed, nil
	}
	seed, err := store.LoadSeedFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load seed file %s: %w", path, err)
	}
	return seed, nil
}

func seedSource(path string) string {
	if path == "" {
		return "embedded"
	}
	return path
}

// SetupHttpHandler initializes the HTTP router with the catalog routes and middleware.
// Used by E2E tests to set up the HTTP server with the necessary routes and middleware.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	mux := server.NewChiRouter(deps.ServiceName, deps.Logger)
	wireRoutes(mux, deps)
	return mux
}

// wireRoutes sets up the HTTP routes for the catalog service.
func wireRoutes(mux *chi.Mux, deps *Dependencies) {
	catalogHandler := rest.NewHandler(deps.Catalog, deps.Logger)
	catalogHandler.RegisterRoutes(mux)
	if deps.MetricsHandler != nil {
		mux.Method(http.MethodGet, deps.MetricsPath, deps.MetricsHandler)
	}
}

// SetupHttpServer creates and configures an HTTP server for the catalog service.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {
	mux := SetupHttpHandler(deps)

	httpCfg := server.HTTPConfig{
		Port:           cfg.HTTPServer.Port,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		ReadTimeout:    cfg.HTTPServer.Timeout.Read,
		WriteTimeout:   cfg.HTTPServer.Timeout.Write,
		IdleTimeout:    cfg.HTTPServer.Timeout.Idle,
		ReadHeader:     cfg.HTTPServer.Timeout.ReadHeader,
	}

	return server.NewHTTPServer(httpCfg, mux)
}

// SetupGrpcServer initializes the gRPC server exposing the health service.
func SetupGrpcServer(deps *Dependencies, reflectionEnabled bool) *grpc.Server {
	return server.NewGRPCServer(reflectionEnabled, server.WithHealth(deps.Health))
}
