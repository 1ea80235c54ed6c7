// Package main is the entry point for the service.
package main

import (
	"context"
	"fmt"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/voyago/booking-api/internal/adapters/clients"
	"github.com/voyago/booking-api/internal/adapters/clients/duffel"
	"github.com/voyago/booking-api/internal/adapters/http"
	"github.com/voyago/booking-api/internal/adapters/http/handlers"
	"github.com/voyago/booking-api/internal/adapters/postgres"
	"github.com/voyago/booking-api/internal/adapters/rediscache"
	"github.com/voyago/booking-api/internal/app"
	"github.com/voyago/booking-api/internal/platform/config"
	"github.com/voyago/booking-api/internal/platform/logging"
	"github.com/voyago/booking-api/internal/platform/telemetry"
	"github.com/voyago/booking-api/internal/ports"
	"github.com/voyago/booking-api/internal/resilience"
)

// Build-time variables, injected via ldflags.
// Example: go build -ldflags "-X main.Version=1.0.0 -X main.Commit=$(git rev-parse HEAD) -X main.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	// Version is the semantic version of the service.
	Version = "dev"

	// Commit is the git commit SHA.
	Commit = "unknown"

	// BuildTime is the timestamp when the binary was built.
	BuildTime = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// 1. Determine profile from environment
	profile := os.Getenv("APP_ENVIRONMENT")
	if profile == "" {
		profile = "local"
	}

	// 2. Load and validate configuration (fail fast)
	cfg, err := config.Load(profile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// 3. Initialize logging
	logger := logging.New(&logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: cfg.App.Name,
		Version: cfg.App.Version,
		File: logging.FileConfig{
			Enabled:    cfg.Log.File.Enabled,
			Path:       cfg.Log.File.Path,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		},
	})
	slog.SetDefault(logger)

	logger.Info("starting service",
		slog.String("version", Version),
		slog.String("commit", Commit),
		slog.String("environment", cfg.App.Environment),
	)

	// 4. Initialize telemetry (noop if disabled)
	telProvider, err := telemetry.New(ctx, &telemetry.Config{
		Enabled:      cfg.Telemetry.Enabled,
		Endpoint:     cfg.Telemetry.Endpoint,
		ServiceName:  cfg.Telemetry.ServiceName,
		Version:      cfg.App.Version,
		Environment:  cfg.App.Environment,
		SamplingRate: cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}

	defer func() {
		if shutdownErr := telProvider.Shutdown(ctx); shutdownErr != nil {
			logger.Error("telemetry shutdown error", slog.Any("error", shutdownErr))
		}
	}()

	// 5. Create per-dependency circuit breakers
	flightBreaker := newBreaker("flight-provider", cfg.Resilience.Breakers.FlightProvider, logger)
	orderBreaker := newBreaker("booking-provider", cfg.Resilience.Breakers.BookingProvider, logger)
	dbBreaker := newBreaker("database", cfg.Resilience.Breakers.Database, logger)

	retryOpts := resilience.Options{
		MaxRetries:     cfg.Resilience.Retry.MaxRetries,
		Delay:          cfg.Resilience.Retry.Delay,
		Multiplier:     cfg.Resilience.Retry.Multiplier,
		RetryableCodes: cfg.Resilience.Retry.RetryableCodes,
	}

	// 6. Connect to the booking database
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer pool.Close()

	bookingRepo := postgres.NewBookingRepository(pool, dbBreaker)

	// 7. Connect to the offer cache. The cache is optional: searches fall
	// through to the provider when redis is unavailable.
	var offerCache ports.OfferCache

	redisClient, err := rediscache.NewClient(ctx, cfg.Redis)
	if err != nil {
		logger.Warn("redis unavailable, running without offer cache", slog.Any("error", err))
	} else {
		defer func() {
			if closeErr := redisClient.Close(); closeErr != nil {
				logger.Error("redis close error", slog.Any("error", closeErr))
			}
		}()
		offerCache = rediscache.NewOfferCache(redisClient, logger)
	}

	// 8. Create Duffel clients. Search and order traffic get separate
	// breakers so an outage on one path does not trip the other.
	duffelAuth := func(req *nethttp.Request) {
		req.Header.Set("Authorization", "Bearer "+cfg.Duffel.APIKey)
		req.Header.Set("Duffel-Version", cfg.Duffel.Version)
	}

	searchProvider, err := newDuffelProvider(cfg, "duffel-search", flightBreaker, retryOpts, duffelAuth, logger)
	if err != nil {
		return fmt.Errorf("creating duffel search client: %w", err)
	}

	orderProvider, err := newDuffelProvider(cfg, "duffel-orders", orderBreaker, retryOpts, duffelAuth, logger)
	if err != nil {
		return fmt.Errorf("creating duffel order client: %w", err)
	}

	// 9. Register health checkers
	healthRegistry := ports.NewHealthRegistry()

	if err := healthRegistry.Register(searchProvider); err != nil {
		return fmt.Errorf("registering duffel health check: %w", err)
	}

	if err := healthRegistry.Register(bookingRepo); err != nil {
		return fmt.Errorf("registering postgres health check: %w", err)
	}

	if offerCache != nil {
		cache, ok := offerCache.(*rediscache.OfferCache)
		if ok {
			if err := healthRegistry.Register(cache); err != nil {
				return fmt.Errorf("registering redis health check: %w", err)
			}
		}
	}

	// 10. Create application services
	flightService := app.NewFlightService(app.FlightServiceConfig{
		Provider:  searchProvider,
		Cache:     offerCache,
		SearchTTL: cfg.Redis.SearchTTL,
		Logger:    logger,
	})

	bookingService := app.NewBookingService(app.BookingServiceConfig{
		Provider:        orderProvider,
		Repo:            bookingRepo,
		DefaultPageSize: cfg.Bookings.DefaultPageSize,
		MaxPageSize:     cfg.Bookings.MaxPageSize,
		Logger:          logger,
	})

	// 11. Create handlers
	buildInfo := handlers.NewBuildInfo(Version, Commit, BuildTime)
	healthHandler := handlers.NewHealthHandler(healthRegistry, buildInfo)
	flightHandler := handlers.NewFlightHandler(flightService)
	bookingHandler := handlers.NewBookingHandler(bookingService)

	// 12. Create HTTP server
	server := http.New(&cfg.Server, logger)

	// 13. Setup router with all middleware and routes
	routerCfg := http.RouterConfig{
		Logger:         logger,
		AuthConfig:     &cfg.Auth,
		AppConfig:      &cfg.App,
		HealthHandler:  healthHandler,
		FlightHandler:  flightHandler,
		BookingHandler: bookingHandler,
		Timeout:        http.DefaultRequestTimeout,
	}
	http.SetupRouter(server.Engine(), routerCfg)

	// 14. Start server (non-blocking)
	serverErr := server.Start()

	// 15. Wait for shutdown signal
	return waitForShutdown(ctx, logger, server, serverErr, cfg.Server.ShutdownTimeout)
}

// newBreaker builds a circuit breaker for one dependency with state
// transitions logged.
func newBreaker(name string, cfg config.BreakerConfig, logger *slog.Logger) *resilience.CircuitBreaker {
	cb := resilience.NewCircuitBreaker(resilience.BreakerConfig{
		Name:             name,
		Threshold:        cfg.Threshold,
		Timeout:          cfg.Timeout,
		MonitoringPeriod: cfg.MonitoringPeriod,
	})

	cb.OnStateChange(func(name string, from, to resilience.State) {
		logger.Warn("circuit breaker state change",
			slog.String("dependency", name),
			slog.String("from", from.String()),
			slog.String("to", to.String()),
		)
	})

	return cb
}

// newDuffelProvider builds a Duffel adapter on its own instrumented client.
func newDuffelProvider(
	cfg *config.Config,
	serviceName string,
	breaker *resilience.CircuitBreaker,
	retry resilience.Options,
	auth func(*nethttp.Request),
	logger *slog.Logger,
) (*duffel.Provider, error) {
	client, err := clients.New(&clients.Config{
		BaseURL:     cfg.Duffel.BaseURL,
		ServiceName: serviceName,
		Timeout:     cfg.Client.Timeout,
		Transport:   cfg.Client.Transport,
		Retry:       retry,
		Breaker:     breaker,
		AuthFunc:    auth,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}

	return duffel.New(duffel.Config{
		Client: client,
		Logger: logger,
	}), nil
}

// waitForShutdown blocks until a shutdown signal is received or server error occurs.
// It then performs graceful shutdown of the HTTP server.
func waitForShutdown(
	ctx context.Context,
	logger *slog.Logger,
	server *http.Server,
	serverErr <-chan error,
	shutdownTimeout time.Duration,
) error {
	// Listen for OS signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		// Server error during startup or runtime
		return fmt.Errorf("server error: %w", err)

	case sig := <-quit:
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
	}

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	// Graceful shutdown sequence
	logger.Info("initiating graceful shutdown",
		slog.Duration("timeout", shutdownTimeout),
	)

	// Stop accepting new requests, drain in-flight
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("shutdown complete")

	return nil
}
