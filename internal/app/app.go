package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/bookshop/internal/catalog"
	"github.com/utafrali/bookshop/internal/config"
	"github.com/utafrali/bookshop/internal/event"
	handler "github.com/utafrali/bookshop/internal/handler/http"
	"github.com/utafrali/bookshop/internal/repository"
	"github.com/utafrali/bookshop/internal/repository/memory"
	redisrepo "github.com/utafrali/bookshop/internal/repository/redis"
	"github.com/utafrali/bookshop/internal/service"
	"github.com/utafrali/bookshop/pkg/database"
	"github.com/utafrali/bookshop/pkg/health"
	"github.com/utafrali/bookshop/pkg/httpclient"
	pkgkafka "github.com/utafrali/bookshop/pkg/kafka"
	"github.com/utafrali/bookshop/pkg/middleware"
	"github.com/utafrali/bookshop/pkg/tracing"
)

const serviceName = "storefront"

// janitorInterval is how often the in-memory store drops expired views.
const janitorInterval = time.Minute

// App wires together all dependencies and runs the storefront service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	redis          *redis.Client
	producer       *pkgkafka.Producer
	memoryStore    *memory.ViewRepository
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTelEndpoint,
		SampleRate:     cfg.OTelSampleRate,
		Enabled:        cfg.OTelEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.tracerShutdown = tracerShutdown

	healthHandler := health.NewHandler(serviceName)

	repo, err := a.newViewRepository(ctx)
	if err != nil {
		_ = tracerShutdown(context.Background())
		return nil, err
	}
	healthHandler.Register("view_store", repo.Ping)

	// Event publishing is optional.
	var publisher event.Publisher = event.NoopPublisher{}
	if cfg.EventsEnabled() {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		publisher = event.NewProducer(a.producer, logger)
		healthHandler.RegisterNonCritical("kafka", a.producer.Ping)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	} else {
		logger.Info("no kafka brokers configured, event publishing disabled")
	}

	// Catalog source: one best-effort call per mount behind a circuit breaker.
	httpCfg := httpclient.DefaultConfig()
	httpCfg.Timeout = cfg.CatalogTimeout
	cbCfg := catalog.BreakerConfig("catalog-source")
	cbClient := httpclient.NewCircuitBreakerClient(httpclient.New(httpCfg), cbCfg, logger).
		WithFallback(catalog.CircuitOpenFallback)
	logger.Info("circuit breaker initialized",
		slog.String("name", cbCfg.Name),
		slog.Uint64("min_requests", uint64(cbCfg.MinRequests)),
		slog.Duration("open_timeout", cbCfg.Timeout),
	)

	source := catalog.NewNYTSource(cbClient, catalog.NYTConfig{
		BaseURL:       cfg.CatalogBaseURL,
		List:          cfg.CatalogList,
		APIKey:        cfg.CatalogAPIKey,
		RatePerMinute: cfg.CatalogRatePerMinute,
	})
	loader := catalog.NewLoader(source, catalog.NewRandomPrices(), cfg.CatalogTimeout, logger)

	storefrontService := service.NewStorefrontService(repo, loader, publisher, logger, cfg.ViewTTL())

	// HTTP router.
	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSAllowedOrigins
	router := handler.NewRouter(storefrontService, healthHandler, logger, handler.RouterConfig{
		PprofCIDRs:     cfg.PprofAllowedCIDRs,
		CORS:           cors,
		RequestTimeout: cfg.CatalogTimeout + 15*time.Second,
	})

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.CatalogTimeout + 20*time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// newViewRepository builds the configured view store.
func (a *App) newViewRepository(ctx context.Context) (repository.ViewRepository, error) {
	cfg := a.cfg

	if cfg.ViewStore == config.ViewStoreMemory {
		a.memoryStore = memory.NewViewRepository(cfg.ViewTTL())
		a.logger.Info("using in-memory view store", slog.Duration("view_ttl", cfg.ViewTTL()))
		return a.memoryStore, nil
	}

	redisCfg := database.DefaultRedisConfig()
	redisCfg.Addr = cfg.RedisAddr
	redisCfg.Password = cfg.RedisPass
	redisCfg.DB = cfg.RedisDB

	if cfg.RedisSlowCommandMs > 0 {
		database.SetSlowCommandLogging(time.Duration(cfg.RedisSlowCommandMs)*time.Millisecond, a.logger)
	}

	client, err := database.NewRedisClient(ctx, redisCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, client, serviceName); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			_ = client.Close()
			return nil, fmt.Errorf("register redis pool metrics: %w", err)
		}
	}
	a.redis = client

	a.logger.Info("connected to Redis",
		slog.String("addr", cfg.RedisAddr),
		slog.Int("db", cfg.RedisDB),
		slog.Duration("view_ttl", cfg.ViewTTL()),
	)
	return redisrepo.NewViewRepository(client, cfg.ViewTTL()), nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	if a.memoryStore != nil {
		go a.memoryStore.RunJanitor(ctx, janitorInterval, a.logger)
	}

	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return errors.Join(err, a.Shutdown())
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Tracer (flush pending spans from drained requests)
// 3. Kafka producer
// 4. Redis client
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// 1. Drain in-flight HTTP requests (10s budget).
	httpCtx, httpCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 2. Flush pending spans.
	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 3. Close Kafka producer.
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 4. Close Redis client.
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
