package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/willrp/willstores-ws/internal/config"
	"github.com/willrp/willstores-ws/internal/engine"
	"github.com/willrp/willstores-ws/internal/engine/breaker"
	"github.com/willrp/willstores-ws/internal/engine/cached"
	esengine "github.com/willrp/willstores-ws/internal/engine/elasticsearch"
	"github.com/willrp/willstores-ws/internal/engine/memory"
	"github.com/willrp/willstores-ws/internal/event"
	handler "github.com/willrp/willstores-ws/internal/handler/http"
	"github.com/willrp/willstores-ws/internal/service"
	"github.com/willrp/willstores-ws/pkg/database"
	"github.com/willrp/willstores-ws/pkg/health"
	pkgkafka "github.com/willrp/willstores-ws/pkg/kafka"
	"github.com/willrp/willstores-ws/pkg/middleware"
	"github.com/willrp/willstores-ws/pkg/tracing"
)

const serviceName = "catalog"

// App wires together all dependencies and runs the catalog service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	rdb            *redis.Client
	consumer       *pkgkafka.Consumer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
		Catalog:        catalogResource(cfg),
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	database.SetSlowQueryLogging(cfg.SlowQueryThreshold, logger)

	healthHandler := health.NewHandler()

	// Initialize search engine based on configuration.
	var backend engine.Backend
	switch cfg.SearchEngine {
	case config.EngineElasticsearch:
		esEng, err := esengine.New(cfg.ElasticsearchURL, esengine.Indices{
			Products: cfg.ElasticsearchProductsIndex,
			Sessions: cfg.ElasticsearchSessionsIndex,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("init elasticsearch engine: %w", err)
		}
		if cfg.ElasticsearchCreateIndices {
			// The cluster may still be starting; readiness reports it until it answers.
			if err := esEng.EnsureIndices(ctx); err != nil {
				logger.Warn("could not ensure elasticsearch indices",
					slog.String("error", err.Error()),
				)
			}
		}
		backend = esEng
		logger.Info("elasticsearch search engine initialized",
			slog.String("url", cfg.ElasticsearchURL),
			slog.String("products_index", cfg.ElasticsearchProductsIndex),
			slog.String("sessions_index", cfg.ElasticsearchSessionsIndex),
		)
	default:
		backend = memory.New()
		logger.Info("in-memory search engine initialized")
	}
	healthHandler.RegisterCritical("search", backend.Ping)

	// Trip to 504 immediately while the backend keeps failing.
	breakerCfg := breaker.DefaultConfig("search-backend")
	breakerCfg.Interval = cfg.BreakerInterval
	breakerCfg.Timeout = cfg.BreakerTimeout
	breakerCfg.FailureRatio = cfg.BreakerFailureRatio
	breakerCfg.MinRequests = cfg.BreakerMinRequests
	backend = breaker.New(backend, breakerCfg, logger)

	// Optional Redis response cache.
	var rdb *redis.Client
	var cache *cached.Backend
	if cfg.CacheEnabled {
		rdb, err = database.NewRedisClient(ctx, database.RedisConfig{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			PoolSize: database.DefaultRedisConfig().PoolSize,
		})
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		cache = cached.New(backend, rdb, cfg.CacheTTL, logger)
		backend = cache
		healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
		logger.Info("search response cache enabled",
			slog.String("redis", fmt.Sprintf("%s:%d", cfg.RedisHost, cfg.RedisPort)),
			slog.Duration("ttl", cfg.CacheTTL),
		)
	}

	// Kafka consumer invalidating the cache on catalog changes.
	var consumer *pkgkafka.Consumer
	switch {
	case cfg.KafkaEnabled() && cache != nil:
		eventConsumer := event.NewConsumer(cache, logger)
		consumer = pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
			Brokers:  cfg.KafkaBrokers,
			GroupID:  cfg.KafkaGroupID,
			Topic:    cfg.KafkaTopic,
			MinBytes: 1,
			MaxBytes: 10e6, // 10 MB
		}, eventConsumer.Handle, logger)
		healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
			return pkgkafka.PingBrokers(ctx, cfg.KafkaBrokers)
		})
		logger.Info("kafka consumer initialized",
			slog.Any("brokers", cfg.KafkaBrokers),
			slog.String("topic", cfg.KafkaTopic),
		)
	case cfg.KafkaEnabled():
		logger.Info("kafka brokers configured without cache, catalog events ignored")
	}

	// Build the service layer.
	catalogService := service.NewCatalogService(backend, logger)
	sessionService := service.NewSessionService(backend, logger)

	// HTTP router.
	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.CORSAllowedOrigins
	corsCfg.Environment = cfg.Environment
	router := handler.NewRouter(catalogService, sessionService, healthHandler, handler.RouterConfig{
		ServiceName:  serviceName,
		AccessToken:  cfg.AccessToken,
		AuthDisabled: cfg.AuthDisabled,
		RateLimit: middleware.RateLimitConfig{
			RPS:   cfg.RateLimitRPS,
			Burst: cfg.RateLimitBurst,
		},
		CORS: corsCfg,
	}, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		rdb:            rdb,
		consumer:       consumer,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// Run starts the HTTP server and the Kafka consumer, blocking until the
// context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	if a.consumer != nil {
		go func() {
			if err := a.consumer.Start(ctx); err != nil {
				errCh <- fmt.Errorf("kafka consumer: %w", err)
			}
		}()
	}

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

// Shutdown gracefully stops all components in order: HTTP server, tracer,
// Kafka consumer, Redis client.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.consumer != nil {
		if err := a.consumer.Close(); err != nil {
			a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// catalogResource names the search backend for trace resources.
func catalogResource(cfg *config.Config) tracing.CatalogResource {
	res := tracing.CatalogResource{Engine: cfg.SearchEngine}
	if cfg.SearchEngine == config.EngineElasticsearch {
		res.ProductsIndex = cfg.ElasticsearchProductsIndex
		res.SessionsIndex = cfg.ElasticsearchSessionsIndex
	}
	return res
}
