package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/n3/backend/docs"
	importapp "github.com/n3/backend/internal/application/import"
	listingapp "github.com/n3/backend/internal/application/listing"
	logisticsapp "github.com/n3/backend/internal/application/logistics"
	pricingapp "github.com/n3/backend/internal/application/pricing"
	"github.com/n3/backend/internal/domain/integration"
	"github.com/n3/backend/internal/domain/listing"
	"github.com/n3/backend/internal/domain/shared"
	"github.com/n3/backend/internal/domain/shared/strategy"
	"github.com/n3/backend/internal/infrastructure/cache"
	"github.com/n3/backend/internal/infrastructure/config"
	"github.com/n3/backend/internal/infrastructure/ecommerce"
	"github.com/n3/backend/internal/infrastructure/logger"
	"github.com/n3/backend/internal/infrastructure/persistence"
	"github.com/n3/backend/internal/infrastructure/scheduler"
	"github.com/n3/backend/internal/infrastructure/storage"
	infrastrategy "github.com/n3/backend/internal/infrastructure/strategy"
	"github.com/n3/backend/internal/infrastructure/telemetry"
	"github.com/n3/backend/internal/interfaces/http/handler"
	"github.com/n3/backend/internal/interfaces/http/middleware"
	"github.com/n3/backend/internal/interfaces/http/router"
	"github.com/shopspring/decimal"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

//	@title			N3 Pricing API
//	@version		1.0
//	@description	Landed-cost pricing and marketplace listing strategy engine

//	@contact.name	API Support
//	@contact.url	https://github.com/n3/backend

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@externalDocs.description	OpenAPI
//	@externalDocs.url			https://swagger.io/resources/open-api/

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.FromAppConfig(cfg.Log), cfg.App.Name)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting pricing engine",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry
	profiler, err := telemetry.NewProfiler(telemetry.ProfilerFromAppConfig(cfg.Profiling), log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	telemetryCfg := telemetry.FromAppConfig(cfg.Telemetry, version)
	telemetryCfg.LinkProfiles = profiler.IsEnabled()
	loggerProvider, err := telemetry.NewLoggerProvider(ctx, telemetryCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	logLevel, _ := logger.ParseLevel(cfg.Log.Level)
	log = loggerProvider.Bridge(log, logLevel)
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetryCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetryCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	meter := meterProvider.Meter("n3-pricing")

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
		logger.WithFullSQL(cfg.Telemetry.DBLogFullSQL),
	)
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if cfg.Database.Driver == config.DriverSQLite {
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to migrate sqlite schema", zap.Error(err))
		}
	}
	if err := telemetry.InstrumentDB(db.DB, meter, telemetry.DBConfig{
		TraceEnabled:    cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBSystem:        dbSystem(cfg.Database.Driver),
	}, log); err != nil {
		log.Fatal("Failed to instrument database", zap.Error(err))
	}
	log.Info("Database connected", zap.String("driver", cfg.Database.Driver))

	// Repositories
	productRepo := persistence.NewGormProductRepository(db.DB)
	dutyRepo := persistence.NewGormDutyRateRepository(db.DB)
	shippingRepo := persistence.NewGormShippingRepository(db.DB)
	rateTableRepo := persistence.NewGormRateTableRepository(db.DB)
	decisionRepo := persistence.NewGormDecisionRepository(db.DB)
	queueRepo := persistence.NewGormExecutionQueueRepository(db.DB)
	logRepo := persistence.NewGormExecutionLogRepository(db.DB)
	recorder := persistence.NewGormExecutionRecorder(db.DB)

	var settingsRepo integration.MarketplaceSettingsRepository = persistence.NewGormMarketplaceSettingsRepository(db.DB)
	if cfg.Marketplace.SettingsCacheTTL > 0 {
		settingsRepo = cache.NewSettingsCache(settingsRepo, cfg.Marketplace.SettingsCacheTTL, log)
	}

	// Webhook idempotency
	idempotency, err := cache.NewIdempotencyStore(ctx, cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	)
	if err != nil {
		log.Fatal("Failed to initialize idempotency store", zap.Error(err))
	}
	defer func() {
		if closer, ok := idempotency.(interface{ Close() error }); ok {
			_ = closer.Close()
		}
	}()

	// Strategies and marketplace adapters
	strategies, err := infrastrategy.NewRegistryFromConfig(cfg.Strategy)
	if err != nil {
		log.Fatal("Failed to build strategy registry", zap.Error(err))
	}
	solver, err := strategies.GetPricingStrategy("")
	if err != nil {
		log.Fatal("No pricing strategy", zap.Error(err))
	}
	scorer, err := strategies.GetScoringStrategy("")
	if err != nil {
		log.Fatal("No scoring strategy", zap.Error(err))
	}
	log.Info("Strategies registered",
		zap.String("pricing", solver.Name()),
		zap.Strings("constraints", strategies.List(strategy.StrategyTypeConstraint)),
		zap.String("scoring", scorer.Name()),
	)

	adapters, err := ecommerce.NewRegistryFromConfig(cfg.Marketplace, log)
	if err != nil {
		log.Fatal("Failed to build marketplace adapters", zap.Error(err))
	}

	exportStorage, err := newExportStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize export storage", zap.Error(err))
	}

	// Application services
	listingMetrics, err := telemetry.NewListingMetrics(meter, log)
	if err != nil {
		log.Fatal("Failed to create listing metrics", zap.Error(err))
	}
	defer listingMetrics.Stop()

	dutyResolver := logisticsapp.NewDutyResolver(dutyRepo, log)
	shipmentCalculator := logisticsapp.NewShipmentCostCalculator(shippingRepo, log)
	rateTableGenerator := logisticsapp.NewRateTableGenerator(shippingRepo, rateTableRepo, exportStorage, log)

	pricingService := pricingapp.NewService(
		productRepo, settingsRepo, dutyResolver, shipmentCalculator, rateTableRepo, solver,
		pricingapp.Options{
			DefaultTargetMargin: decimal.NewFromFloat(cfg.Pricing.DefaultTargetMargin),
			DefaultDutyRate:     decimal.NewFromFloat(cfg.Pricing.DefaultDutyRate),
			DefaultPlatform:     cfg.Pricing.DefaultPlatform,
			DefaultAccount:      cfg.Pricing.DefaultAccount,
			BatchConcurrency:    cfg.Pricing.BatchConcurrency,
		},
		log,
	)
	pricingService.SetMetrics(listingMetrics)

	strategyService := listingapp.NewStrategyService(
		productRepo, settingsRepo, decisionRepo, pricingService,
		strategies.Constraints(), scorer,
		listingapp.StrategyOptions{
			Concurrency: cfg.Strategy.Concurrency,
			BatchLimit:  cfg.Strategy.BatchLimit,
		},
		log,
	)
	strategyService.SetMetrics(listingMetrics)

	executionService := listingapp.NewExecutionService(
		productRepo, settingsRepo, decisionRepo, queueRepo, logRepo, recorder,
		pricingService, adapters,
		listingapp.ExecutionOptions{
			AdapterTimeout: cfg.Execution.AdapterTimeout,
			Backoff: listing.BackoffPolicy{
				Base:       cfg.Execution.BackoffBase,
				Max:        cfg.Execution.BackoffMax,
				MaxRetries: cfg.Execution.MaxRetries,
			},
			AccountConcurrency: cfg.Execution.AccountConcurrency,
			BatchConcurrency:   cfg.Execution.BatchConcurrency,
			BatchLimit:         cfg.Execution.BatchLimit,
			StaleAfter:         cfg.Execution.StaleAfter,
			StatsWindow:        cfg.Execution.StatsWindow,
		},
		log,
	)
	executionService.SetMetrics(listingMetrics)
	if meterProvider.IsEnabled() {
		listingMetrics.StartQueueCollection(ctx, executionService, telemetryCfg.MetricsInterval)
	}

	pipeline := listingapp.NewPipeline(strategyService, executionService, log)
	priceDropService := listingapp.NewPriceDropService(productRepo, pipeline, idempotency,
		listingapp.PriceDropOptions{
			AutoExecuteScore: decimal.NewFromFloat(cfg.Webhook.AutoExecuteScore),
			IdempotencyTTL:   cfg.Webhook.IdempotencyTTL,
		},
		log,
	)

	// Background jobs
	var jobScheduler *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		jobScheduler, err = scheduler.NewScheduler(
			scheduler.SchedulerConfig{Enabled: true, JobTimeout: cfg.Scheduler.JobTimeout},
			log,
			scheduler.ListingJobs(cfg.Scheduler, strategyService, executionService, log)...,
		)
		if err != nil {
			log.Fatal("Failed to create scheduler", zap.Error(err))
		}
		if err := jobScheduler.Start(ctx); err != nil {
			log.Fatal("Failed to start scheduler", zap.Error(err))
		}
		log.Info("Scheduler started", zap.Strings("jobs", jobScheduler.JobNames()))
	}

	// HTTP handlers
	systemOpts := []handler.SystemOption{
		handler.WithReadinessChecks(databaseCheck(db)),
	}
	if pinger, ok := idempotency.(interface{ Ping(context.Context) error }); ok {
		systemOpts = append(systemOpts, handler.WithReadinessChecks(handler.ReadinessCheck{
			Name:     "redis",
			Optional: true,
			Check:    pinger.Ping,
		}))
	}
	if jobScheduler != nil {
		systemOpts = append(systemOpts, handler.WithScheduler(jobScheduler))
	}
	systemHandler := handler.NewSystemHandler(cfg.App.Name, version, systemOpts...)

	importHandler := handler.NewImportHandler(
		importapp.NewShippingRateImportService(shippingRepo, log),
		importapp.NewDutyRateImportService(dutyRepo, log),
	)

	handlers := router.Handlers{
		Pricing:   handler.NewPricingHandler(pricingService, cfg.Pricing.MaxBatchSize),
		Strategy:  handler.NewStrategyHandler(strategyService, strategies),
		Execution: handler.NewExecutionHandler(executionService),
		Pipeline:  handler.NewPipelineHandler(pipeline),
		Shipping:  handler.NewShippingHandler(rateTableGenerator, shipmentCalculator),
		Webhook:   handler.NewWebhookHandler(priceDropService),
		Import:    importHandler,
		System:    systemHandler,
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Middleware order:
	// 1. RequestID  2. Recovery  3. Logger  4. Tracing  5. Metrics
	// 6. Security   7. CORS      8. BodyLimit  9. Timeout  10. RateLimit
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     tracerProvider.IsEnabled(),
	}))
	engine.Use(middleware.SpanEnricher())
	engine.Use(middleware.HTTPMetrics(meterProvider, log))
	if profiler.IsEnabled() {
		engine.Use(middleware.Profiling(middleware.DefaultProfilingConfig()))
	}
	engine.Use(middleware.SecureWithConfig(middleware.DefaultSecurityConfig()))
	engine.Use(middleware.CORSWithConfig(middleware.CORSFromHTTPConfig(cfg.HTTP)))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	if cfg.HTTP.WriteTimeout > 0 {
		engine.Use(middleware.Timeout(cfg.HTTP.WriteTimeout))
	}

	var rateLimiter *middleware.RateLimiter
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter = middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		defer rateLimiter.Stop()
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Health checks and docs live outside API versioning
	router.RegisterHealthRoutes(engine, systemHandler)
	engine.GET("/swagger/*any",
		middleware.SwaggerProtection(cfg.Swagger.Enabled, cfg.Swagger.AllowedIPs),
		ginSwagger.WrapHandler(swaggerFiles.Handler),
	)

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(router.DomainGroups(handlers, router.APIOptions{WebhookSecret: cfg.Webhook.Secret})...)
	r.Setup()
	for _, route := range r.Routes() {
		log.Debug("Route registered",
			zap.String("group", route.Group),
			zap.String("method", route.Method),
			zap.String("path", route.Path),
		)
	}
	if cfg.Webhook.Secret == "" {
		log.Warn("Webhook secret not set; price-drop webhooks are accepted unsigned")
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if jobScheduler != nil {
		if err := jobScheduler.Stop(shutdownCtx); err != nil {
			log.Error("Error stopping scheduler", zap.Error(err))
		}
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}
	if err := profiler.Stop(); err != nil {
		log.Error("Error stopping profiler", zap.Error(err))
	}

	log.Info("Server exited")
	if err := loggerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down logger provider", zap.Error(err))
	}
}

// newExportStorage returns S3 storage when configured, otherwise an in-process store
func newExportStorage(ctx context.Context, cfg *config.Config, log *zap.Logger) (logisticsapp.ExportStorage, error) {
	if !cfg.Storage.Enabled {
		log.Info("Object storage disabled, rate table exports are kept in memory")
		return storage.NewMemoryExportStorage(), nil
	}
	s3, err := storage.NewS3ExportStorage(&cfg.Storage,
		storage.WithLogger(log),
		storage.WithPresignExpiration(cfg.Storage.PresignExpiration),
		storage.WithKeyPrefix("rate-tables/"),
	)
	if err != nil {
		return nil, err
	}
	if err := s3.EnsureBucket(ctx); err != nil {
		return nil, shared.Unavailable("ensure export bucket", err)
	}
	log.Info("Rate table exports go to object storage", zap.String("bucket", s3.GetBucket()))
	return s3, nil
}

func databaseCheck(db *persistence.Database) handler.ReadinessCheck {
	return handler.ReadinessCheck{
		Name: "database",
		Check: func(ctx context.Context) error {
			sqlDB, err := db.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
}

func dbSystem(driver string) string {
	if driver == config.DriverSQLite {
		return "sqlite"
	}
	return "postgresql"
}
