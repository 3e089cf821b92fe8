package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ayo6706/wallet-ledger/internal/api"
	"github.com/ayo6706/wallet-ledger/internal/api/handler"
	"github.com/ayo6706/wallet-ledger/internal/api/middleware"
	"github.com/ayo6706/wallet-ledger/internal/config"
	"github.com/ayo6706/wallet-ledger/internal/db"
	"github.com/ayo6706/wallet-ledger/internal/idempotency"
	"github.com/ayo6706/wallet-ledger/internal/ledger"
	"github.com/ayo6706/wallet-ledger/internal/observability"
	"github.com/ayo6706/wallet-ledger/internal/repository"
	"github.com/ayo6706/wallet-ledger/internal/service"
	"github.com/ayo6706/wallet-ledger/internal/snapshot"
	"github.com/ayo6706/wallet-ledger/internal/users"
	"github.com/ayo6706/wallet-ledger/internal/worker"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Run bootstraps the HTTP server and reconciliation worker. It blocks until
// ctx is cancelled or the server fails.
func Run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	observability.Init()
	middleware.SetJWTSecret(cfg.JWTSecret)
	middleware.SetJWTValidation(cfg.JWTIssuer, cfg.JWTAudience)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	health := map[string]handler.Pinger{}

	var pgStore *repository.Store
	if cfg.NeedsDatabase() {
		pool, err := db.ConnectAndMigrate(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer pool.Close()
		pgStore = repository.NewStore(pool)
		health["database"] = pgStore
	}

	var redisClient *redis.Client
	if cfg.NeedsRedis() {
		redisClient, err = newRedisClient(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer redisClient.Close()
		health["redis"] = handler.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	var snapRedis redis.Cmdable
	if redisClient != nil {
		snapRedis = redisClient
	}
	store, err := buildSnapshotStore(cfg, pgStore, snapRedis)
	if err != nil {
		return err
	}

	var auditStore service.QueryStore
	if pgStore != nil {
		auditStore = pgStore
	}
	audit := service.NewAuditService(auditStore, logger)

	engine := ledger.NewEngine(ledger.Policy{
		AllowOverdraft:  cfg.AllowOverdraft,
		SettleTransfers: cfg.SettleTransfers,
	})
	wallets := service.NewWalletService(engine, store, audit, logger)
	if err := wallets.Restore(ctx); err != nil {
		return err
	}

	dir := users.NewDirectory()
	if err := seedUsers(cfg, dir, logger); err != nil {
		return err
	}

	var idemStore *idempotency.Store
	if redisClient != nil {
		idemStore = idempotency.NewStore(redisClient, cfg.IdempotencyTTL)
	}

	reconciler := service.NewReconciliationService(wallets)
	reconWorker := worker.NewReconciliationWorker(reconciler, logger).WithInterval(cfg.ReconciliationInterval)
	stopWorker := reconWorker.Run(ctx)

	router := api.NewRouter(cfg, logger, api.Deps{
		Wallets:     wallets,
		Users:       dir,
		Idempotency: idemStore,
		Health:      health,
	})

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server starting",
			zap.String("port", cfg.HTTPPort),
			zap.String("snapshot_backend", cfg.SnapshotBackend),
			zap.Bool("idempotency", idemStore != nil),
		)
		serverErr <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", zap.Error(err))
	}

	logger.Info("stopping reconciliation worker")
	stopWorker()

	logger.Info("shutdown complete")
	return nil
}

// buildSnapshotStore picks the persistence backend for the ledger state.
func buildSnapshotStore(cfg *config.Config, pg *repository.Store, rdb redis.Cmdable) (snapshot.Store, error) {
	switch cfg.SnapshotBackend {
	case config.BackendMemory:
		return snapshot.NewMemoryStore(), nil
	case config.BackendFile:
		return snapshot.NewFileStore(cfg.SnapshotFile), nil
	case config.BackendRedis:
		if rdb == nil {
			return nil, fmt.Errorf("redis snapshot backend: no redis client")
		}
		return snapshot.NewRedisStore(rdb, cfg.SnapshotKey), nil
	case config.BackendPostgres:
		if pg == nil {
			return nil, fmt.Errorf("postgres snapshot backend: no database")
		}
		return repository.NewSnapshotRepository(pg, cfg.SnapshotKey), nil
	case config.BackendTiered:
		if pg == nil || rdb == nil {
			return nil, fmt.Errorf("tiered snapshot backend: needs database and redis")
		}
		return snapshot.NewTieredStore(
			repository.NewSnapshotRepository(pg, cfg.SnapshotKey),
			snapshot.NewRedisStore(rdb, cfg.SnapshotKey),
		), nil
	default:
		return nil, fmt.Errorf("unknown snapshot backend %q", cfg.SnapshotBackend)
	}
}

// seedUsers fills the directory from SEED_USERS_FILE, or with the demo
// population when DEMO_PASSWORD is set.
func seedUsers(cfg *config.Config, dir *users.Directory, logger *zap.Logger) error {
	switch {
	case cfg.SeedUsersFile != "":
		entries, err := users.LoadSeedFile(cfg.SeedUsersFile)
		if err != nil {
			return err
		}
		if err := dir.Seed(entries); err != nil {
			return err
		}
		logger.Info("users seeded", zap.String("file", cfg.SeedUsersFile), zap.Int("count", len(entries)))
	case cfg.DemoPassword != "":
		if err := dir.Seed(users.DefaultSeed(cfg.DemoPassword)); err != nil {
			return err
		}
		logger.Warn("demo users seeded; do not use DEMO_PASSWORD in production")
	default:
		logger.Warn("no users seeded; only self-registered users can log in and nobody can approve requests")
	}
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	switch strings.ToLower(level) {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info", "":
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}

func newRedisClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
