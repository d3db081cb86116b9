package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/bank-accounts-go/internal/config"
	"github.com/boddenberg/bank-accounts-go/internal/domain"
	"github.com/boddenberg/bank-accounts-go/internal/handler"
	"github.com/boddenberg/bank-accounts-go/internal/infra/cache"
	"github.com/boddenberg/bank-accounts-go/internal/infra/memory"
	"github.com/boddenberg/bank-accounts-go/internal/infra/observability"
	"github.com/boddenberg/bank-accounts-go/internal/infra/postgres"
	"github.com/boddenberg/bank-accounts-go/internal/infra/resilience"
	"github.com/boddenberg/bank-accounts-go/internal/infra/worker"
	"github.com/boddenberg/bank-accounts-go/internal/port"
	"github.com/boddenberg/bank-accounts-go/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Bool("use_database", cfg.UseDatabase()),
		zap.String("bsb", cfg.BankBSB),
		zap.Int("max_concurrency", cfg.MaxConcurrency),
		zap.Duration("offload_wait_timeout", cfg.OffloadWaitTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "bank-accounts-api")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Worker pool ---
	pool := worker.NewPool(cfg.MaxConcurrency, cfg.OffloadWaitTimeout, metrics, logger)
	metrics.SetPoolCapacity(pool.Size())

	// --- Repository ---
	var repo port.AccountRepository
	var db *sql.DB

	if cfg.UseDatabase() {
		logger.Info("using PostgreSQL as account store")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		db, err = postgres.Open(ctx, cfg.DatabaseURL, postgres.PoolConfig{
			MaxOpenConns:    cfg.MaxOpenConns,
			MaxIdleConns:    cfg.MaxIdleConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
		}, logger)
		cancel()
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		if cfg.RunMigrations {
			if err := postgres.Migrate(db, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}

		// --- Resilience ---
		resilienceCfg := resilience.Config{
			MaxRetries:     cfg.MaxRetries,
			InitialBackoff: cfg.InitialBackoff,
		}
		cb := resilience.NewCircuitBreaker("postgres", postgres.CountsAsSuccess)

		repo = postgres.NewAccountStore(db, cfg.BankBSB, cb, resilienceCfg, logger)
	} else {
		logger.Warn("DATABASE_URL not set, accounts are kept in memory")
		repo = memory.NewAccountStore(cfg.BankBSB)
	}

	// --- Cache ---
	if cfg.CacheTTL > 0 {
		accountCache := cache.New[int64, domain.Account](cfg.CacheTTL)
		defer accountCache.Close()
		repo = cache.NewAccountRepository(repo, accountCache)
		logger.Info("account cache enabled", zap.Duration("ttl", cfg.CacheTTL))
	}

	pinger, _ := repo.(port.Pinger)

	// --- Services ---
	accountSvc := service.NewAccountService(
		repo,
		service.RandomAccountNumberGenerator{},
		pool,
		metrics,
		logger,
	)

	// --- Router ---
	router := handler.NewRouter(accountSvc, pinger, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced shutdown", zap.Error(err))
		return
	}

	logger.Info("server stopped")
}
