// Command refresher is the designated credential writer. It keeps the
// accounting platform access token ahead of its expiry on a fixed interval.
// Run exactly one replica per integration identity; the redis writer lock
// covers overlapping deploys.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	appintegration "github.com/club19/salesos/internal/application/integration"
	appledger "github.com/club19/salesos/internal/application/ledger"
	"github.com/club19/salesos/internal/infrastructure/cache"
	"github.com/club19/salesos/internal/infrastructure/config"
	"github.com/club19/salesos/internal/infrastructure/logger"
	"github.com/club19/salesos/internal/infrastructure/persistence"
	"github.com/club19/salesos/internal/infrastructure/scheduler"
	"github.com/club19/salesos/internal/infrastructure/telemetry"
	"github.com/club19/salesos/internal/infrastructure/xero"
	"go.uber.org/zap"
)

const bootstrapTokenEnv = "SALESOS_XERO_BOOTSTRAP_REFRESH_TOKEN"

func main() {
	var (
		bootstrapToken string
		once           bool
	)
	flag.StringVar(&bootstrapToken, "bootstrap", "", "Store a credential from an out-of-band refresh token, then exit (or set "+bootstrapTokenEnv+")")
	flag.BoolVar(&once, "once", false, "Run one refresh check and exit")
	flag.Parse()
	if bootstrapToken == "" {
		bootstrapToken = os.Getenv(bootstrapTokenEnv)
	}

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
	log := providers.BridgeLogger(baseLog).Named("refresher")
	defer func() {
		_ = logger.Sync(log)
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = providers.Shutdown(shutdownCtx)
	}()

	db, err := persistence.Open(ctx, &cfg.Database,
		logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level)))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()

	// A writer without the distributed lock is only safe as a single replica.
	backends, err := cache.NewBackendsFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(!cfg.IsProduction()),
	).Create(ctx)
	if err != nil {
		log.Fatal("Failed to initialize writer lock", zap.Error(err))
	}
	defer func() {
		_ = backends.Close()
	}()

	platform, err := xero.NewClient(xero.NewConfig(cfg.Xero))
	if err != nil {
		log.Fatal("Failed to create accounting platform client", zap.Error(err))
	}

	errorLog := appledger.NewErrorLogService(persistence.NewGormErrorLogRepository(db.DB), log)
	ledgerMetrics, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
		Meter:  providers.Meter.Meter("salesos.refresher"),
		Logger: log,
	})
	if err != nil {
		log.Fatal("Failed to create metrics", zap.Error(err))
	}

	sealing, err := persistence.TokenSealing(cfg.Credential.TokenKey)
	if err != nil {
		log.Fatal("Failed to configure credential token sealing", zap.Error(err))
	}

	manager := appintegration.NewCredentialManager(appintegration.CredentialManagerConfig{
		Repo:          persistence.NewGormCredentialRepository(db.DB, sealing...),
		Platform:      platform,
		ErrorRecorder: errorLog,
		WriterLock:    backends.Lock,
		Metrics:       ledgerMetrics,
		Logger:        log,
		Identity:      cfg.Xero.IntegrationIdentity,
		RefreshMargin: cfg.Credential.RefreshMargin,
		LockTTL:       cfg.Credential.LockTTL,
	})

	if bootstrapToken != "" {
		cred, err := manager.Bootstrap(ctx, bootstrapToken)
		if err != nil {
			log.Fatal("Bootstrap failed", zap.Error(err))
		}
		log.Info("Credential stored",
			zap.String("tenant_id", cred.TenantID),
			zap.Time("expires_at", cred.ExpiresAt))
		return
	}

	job := appintegration.NewCredentialRefreshJob(manager, log)
	if once {
		if err := job.Run(ctx); err != nil {
			log.Error("Refresh check failed", zap.Error(err))
			os.Exit(1)
		}
		return
	}

	if err := run(ctx, cfg, job, log); err != nil {
		log.Fatal("Refresher stopped", zap.Error(err))
	}
}

// run drives job on the configured interval until SIGINT or SIGTERM
func run(ctx context.Context, cfg *config.Config, job scheduler.Task, log *zap.Logger) error {
	poolCfg := scheduler.DefaultConfig()
	if cfg.Scheduler.Workers > 0 {
		poolCfg.Workers = cfg.Scheduler.Workers
	}
	if cfg.Scheduler.JobTimeout > 0 {
		poolCfg.JobTimeout = cfg.Scheduler.JobTimeout
	}
	poolCfg.Retries = cfg.Scheduler.RetryAttempts
	if cfg.Scheduler.RetryDelay > 0 {
		poolCfg.RetryDelay = cfg.Scheduler.RetryDelay
	}

	pool, err := scheduler.NewPool(poolCfg, log)
	if err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	pool.Start(ctx)
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), poolCfg.JobTimeout)
		defer cancel()
		if err := pool.Stop(stopCtx); err != nil {
			log.Error("Error stopping scheduler", zap.Error(err))
		}
	}()

	ticker, err := scheduler.NewTicker(pool, job, cfg.Credential.RefreshInterval, log)
	if err != nil {
		return fmt.Errorf("refresh ticker: %w", err)
	}
	ticker.Start(ctx)
	defer ticker.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down refresher...")
	return nil
}
