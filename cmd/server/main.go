package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/club19/salesos/docs"
	appintegration "github.com/club19/salesos/internal/application/integration"
	appledger "github.com/club19/salesos/internal/application/ledger"
	"github.com/club19/salesos/internal/application/reconciliation"
	"github.com/club19/salesos/internal/infrastructure/auth"
	"github.com/club19/salesos/internal/infrastructure/cache"
	"github.com/club19/salesos/internal/infrastructure/config"
	"github.com/club19/salesos/internal/infrastructure/event"
	"github.com/club19/salesos/internal/infrastructure/logger"
	"github.com/club19/salesos/internal/infrastructure/persistence"
	"github.com/club19/salesos/internal/infrastructure/storage"
	"github.com/club19/salesos/internal/infrastructure/telemetry"
	"github.com/club19/salesos/internal/infrastructure/xero"
	"github.com/club19/salesos/internal/interfaces/http/handler"
	"github.com/club19/salesos/internal/interfaces/http/middleware"
	"github.com/club19/salesos/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

//	@title			Sales OS Ledger API
//	@version		1.0
//	@description	Sales ledger core: accounting webhook receiver plus the operator API for sales, the error log and integration health.

//	@contact.name	Club 19 Engineering
//	@contact.url	https://github.com/club19/salesos

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	baseLog, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()

	providers, err := telemetry.Setup(ctx, cfg.Telemetry, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	log := providers.BridgeLogger(baseLog)
	defer func() {
		_ = logger.Sync(log)
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down telemetry", zap.Error(err))
		}
	}()

	log.Info("Starting Sales OS server",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.Open(ctx, &cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	dbMetrics, err := providers.InstrumentDB(ctx, db.DB, log)
	if err != nil {
		log.Warn("Failed to instrument database", zap.Error(err))
	}
	if dbMetrics != nil {
		defer dbMetrics.Stop()
	}

	// Repositories
	saleRepo := persistence.NewGormSaleRepository(db.DB)
	counterpartyRepo := persistence.NewGormCounterpartyRepository(db.DB)
	introducerRepo := persistence.NewGormIntroducerRepository(db.DB)
	bandRepo := persistence.NewGormCommissionBandRepository(db.DB)
	errorLogRepo := persistence.NewGormErrorLogRepository(db.DB)
	sealing, err := persistence.TokenSealing(cfg.Credential.TokenKey)
	if err != nil {
		log.Fatal("Failed to configure credential token sealing", zap.Error(err))
	}
	credentialRepo := persistence.NewGormCredentialRepository(db.DB, sealing...)

	backends, err := cache.NewBackendsFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(!cfg.IsProduction()),
	).Create(ctx)
	if err != nil {
		log.Fatal("Failed to initialize cache backends", zap.Error(err))
	}
	defer func() {
		if err := backends.Close(); err != nil {
			log.Error("Error closing cache backends", zap.Error(err))
		}
	}()

	platform, err := xero.NewClient(xero.NewConfig(cfg.Xero))
	if err != nil {
		log.Fatal("Failed to create accounting platform client", zap.Error(err))
	}

	// Services
	errorLogService := appledger.NewErrorLogService(errorLogRepo, log)

	state := &ledgerState{errors: errorLogService}
	ledgerMetrics, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
		Meter:         providers.Meter.Meter("salesos.ledger"),
		Logger:        log,
		StateProvider: state,
	})
	if err != nil {
		log.Fatal("Failed to create ledger metrics", zap.Error(err))
	}

	// The server never refreshes on a schedule; WithAuth may refresh once on a 401.
	credentialManager := appintegration.NewCredentialManager(appintegration.CredentialManagerConfig{
		Repo:          credentialRepo,
		Platform:      platform,
		ErrorRecorder: errorLogService,
		WriterLock:    backends.Lock,
		Metrics:       ledgerMetrics,
		Logger:        log,
		Identity:      cfg.Xero.IntegrationIdentity,
		RefreshMargin: cfg.Credential.RefreshMargin,
		LockTTL:       cfg.Credential.LockTTL,
	})
	state.credentials = credentialManager
	ledgerMetrics.StartPeriodicCollection(ctx, time.Minute)
	defer ledgerMetrics.Stop()

	eventBus := event.NewInMemoryEventBus(log)
	saleEventHandler := appledger.NewSaleEventHandler(log).
		WithNotifier(appledger.NewLoggingAllocationNotifier(log))
	eventBus.Subscribe(saleEventHandler)
	log.Info("Event handlers registered", zap.Strings("sale_events", saleEventHandler.EventTypes()))

	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	lifecycleService := appledger.NewLifecycleService(appledger.LifecycleServiceConfig{
		Sales:         saleRepo,
		ErrorRecorder: errorLogService,
		Publisher:     eventBus,
		Metrics:       ledgerMetrics,
		Logger:        log,
	})
	pricingService := appledger.NewPricingService(appledger.PricingServiceConfig{
		Bands:       bandRepo,
		Introducers: introducerRepo,
		Logger:      log,
	})
	saleQueryService := appledger.NewSaleQueryService(saleRepo)

	var archive reconciliation.DeliveryArchive = storage.NewNoopDeliveryArchive()
	if cfg.Reconciliation.ArchiveEnabled {
		s3Archive, err := storage.NewS3DeliveryArchive(&cfg.Storage, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to create delivery archive", zap.Error(err))
		}
		if err := s3Archive.EnsureBucket(ctx); err != nil {
			log.Warn("Delivery archive bucket check failed", zap.Error(err))
		}
		archive = s3Archive
		log.Info("Webhook deliveries archived", zap.String("bucket", s3Archive.Bucket()))
	}

	reconciliationService := reconciliation.NewReconciliationService(reconciliation.ReconciliationServiceConfig{
		WebhookKey:      cfg.Xero.WebhookKey,
		Sales:           saleRepo,
		Platform:        platform,
		Auth:            credentialManager,
		Resolver:        reconciliation.NewContactResolver(counterpartyRepo, platform, credentialManager, log),
		Lifecycle:       lifecycleService,
		Pricer:          pricingService,
		Recorder:        errorLogService,
		Publisher:       eventBus,
		Idempotency:     backends.Deliveries,
		Archive:         archive,
		Metrics:         ledgerMetrics,
		Logger:          log,
		IdempotencyTTL:  cfg.Reconciliation.IdempotencyTTL,
		MaxPayloadBytes: cfg.Reconciliation.MaxPayloadBytes,
	})

	// HTTP
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Order: request id, tracing, recovery, logging, metrics, headers, CORS, body limit
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Tracing(cfg.Telemetry.ServiceName, cfg.Telemetry.Enabled))
	engine.Use(middleware.AnnotateSpan())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log, "/health", "/api/v1/system/ping"))
	engine.Use(middleware.HTTPMetrics(providers.Meter))
	engine.Use(middleware.Secure())
	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		cors.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(cors))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	jwtAuth := middleware.RequireToken(auth.NewJWTService(cfg.JWT), log)

	var rateLimit gin.HandlerFunc
	if cfg.HTTP.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		defer limiter.Stop()
		rateLimit = middleware.RateLimit(limiter)
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	sections := router.RegisterLedgerAPI(engine, router.Handlers{
		Sales:       handler.NewSaleHandler(saleQueryService, lifecycleService),
		Errors:      handler.NewErrorLogHandler(errorLogService),
		Webhook:     handler.NewWebhookHandler(reconciliationService, log),
		Integration: handler.NewIntegrationHandler(credentialManager),
		System:      handler.NewSystemHandler(db),
	}, router.Options{
		APIVersion: "v1",
		Auth:       jwtAuth,
		RateLimit:  rateLimit,
		Swagger: middleware.SwaggerConfig{
			Enabled:     cfg.Swagger.Enabled,
			RequireAuth: cfg.Swagger.RequireAuth,
			AllowedIPs:  cfg.Swagger.AllowedIPs,
		},
		SwaggerUI: ginSwagger.WrapHandler(swaggerFiles.Handler),
	})
	for _, section := range sections {
		log.Debug("Routes mounted", zap.String("section", section.Name()), zap.Strings("routes", section.Describe()))
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
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return
	}

	log.Info("Server exited gracefully")
}

// ledgerState feeds the periodic ledger gauges. credentials is set once the
// manager exists, since the manager itself records into the same metrics.
type ledgerState struct {
	credentials *appintegration.CredentialManager
	errors      *appledger.ErrorLogService
}

func (s *ledgerState) CredentialExpiresIn(ctx context.Context) (time.Duration, bool, error) {
	if s.credentials == nil {
		return 0, false, nil
	}
	return s.credentials.CredentialExpiresIn(ctx)
}

func (s *ledgerState) UnresolvedErrorCount(ctx context.Context) (int64, error) {
	return s.errors.UnresolvedErrorCount(ctx)
}
