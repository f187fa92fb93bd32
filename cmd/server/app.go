package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	httpAdapter "github.com/iho/fxledger/internal/adapter/http"
	"github.com/iho/fxledger/internal/adapter/http/handler"
	"github.com/iho/fxledger/internal/adapter/http/middleware"
	"github.com/iho/fxledger/internal/adapter/repository/file"
	"github.com/iho/fxledger/internal/adapter/repository/memory"
	postgresRepo "github.com/iho/fxledger/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/fxledger/internal/adapter/repository/redis"
	"github.com/iho/fxledger/internal/domain"
	"github.com/iho/fxledger/internal/infrastructure/auth"
	"github.com/iho/fxledger/internal/infrastructure/config"
	"github.com/iho/fxledger/internal/infrastructure/metrics"
	"github.com/iho/fxledger/internal/infrastructure/postgres"
	"github.com/iho/fxledger/internal/infrastructure/redis"
	"github.com/iho/fxledger/internal/usecase"
)

// systemUser performs state loads and saves the server does on its own behalf.
var systemUser = &domain.User{ID: "system", Name: "system", Role: domain.RoleAdmin}

// application is the wired server: engine, adapters and the HTTP router.
type application struct {
	cfg         *config.Config
	logger      zerolog.Logger
	backup      *usecase.BackupUseCase
	stateFile   *file.StateFile
	rateLimiter *middleware.RateLimiter
	router      http.Handler
	closers     []func()
}

func newApplication(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*application, error) {
	app := &application{cfg: cfg, logger: logger}
	ok := false
	defer func() {
		if !ok {
			app.close()
		}
	}()

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	checks := map[string]handler.Pinger{}

	// Redis backs idempotency whenever it is configured.
	var (
		redisClient      *goredis.Client
		idempotencyStore usecase.IdempotencyStore
	)
	if cfg.RedisURL != "" {
		client, err := redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, func() { _ = client.Close() })
		redisClient = client
		idempotencyStore = redisRepo.NewIdempotencyStore(client)
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error {
			return redis.Ping(ctx, client)
		})
		logger.Info().Msg("connected to redis")
	}

	var (
		backups usecase.BackupStore
		retrier usecase.Retrier
	)
	switch cfg.BackupDriver {
	case config.BackupFile:
		backups = file.NewBackupStore(cfg.BackupDir, cfg.BackupRetention)
	case config.BackupRedis:
		backups = redisRepo.NewBackupStore(redisClient, cfg.BackupRetention)
		retrier = postgresRepo.NewRetrier(logger)
	case config.BackupPostgres:
		if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, logger); err != nil {
			return nil, err
		}
		pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
			DatabaseURL:    cfg.DatabaseURL,
			MaxConns:       cfg.DatabaseMaxConns,
			MinConns:       cfg.DatabaseMinConns,
			ConnectTimeout: cfg.DatabaseTimeout,
		})
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, pool.Close)
		checks["postgres"] = pool
		backups = postgresRepo.NewBackupStore(pool, cfg.BackupRetention)
		retrier = postgresRepo.NewRetrier(logger)
		logger.Info().Msg("connected to postgres")
	}

	var (
		perms    usecase.PermissionChecker
		verifier middleware.TokenVerifier
	)
	if cfg.AuthEnabled {
		perms = auth.RoleChecker{}
		verifier = auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration)
	}

	store := memory.NewStore()
	txm := memory.NewTxManager(store)
	assetRepo := memory.NewAssetRepository(store)
	txRepo := memory.NewTransactionRepository(store)
	debtRepo := memory.NewDebtRepository(store)
	historyRepo := memory.NewCapitalHistoryRepository(store)
	ids := memory.NewULIDGenerator()

	policy := domain.ClosingPolicy{
		ReferenceCurrency: cfg.ReferenceCurrency,
		Tolerance:         cfg.AllocationTolerance,
	}

	ledgerUC := usecase.NewLedgerUseCase(txm, assetRepo, txRepo, debtRepo, ids, perms, m, logger)
	backupUC := usecase.NewBackupUseCase(txm, store, backups, retrier, perms, m, logger)
	capitalUC := usecase.NewCapitalUseCase(txm, assetRepo, txRepo, debtRepo, historyRepo, ids, policy, perms, m, logger).
		WithAutoBackup(backupUC)

	app.backup = backupUC

	var rateLimiter *middleware.RateLimiter
	if cfg.RateLimitRPS > 0 {
		rateLimiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		app.rateLimiter = rateLimiter
	}

	app.router = httpAdapter.NewRouter(httpAdapter.RouterConfig{
		AssetHandler:     handler.NewAssetHandler(usecase.NewAssetUseCase(txm, assetRepo, ids, perms, m, logger)),
		LedgerHandler:    handler.NewLedgerHandler(ledgerUC),
		GroupHandler:     handler.NewGroupHandler(usecase.NewGroupUseCase(txm, assetRepo, txRepo, debtRepo, perms, m, logger)),
		OperationHandler: handler.NewOperationHandler(usecase.NewOperationUseCase(ledgerUC, assetRepo, debtRepo, policy.ReferenceCurrency)),
		DebtHandler:      handler.NewDebtHandler(usecase.NewDebtUseCase(txm, debtRepo, ids, perms, logger)),
		CapitalHandler:   handler.NewCapitalHandler(capitalUC),
		ReportHandler: handler.NewReportHandler(
			usecase.NewProfitUseCase(txRepo, cfg.BreakdownThreshold, perms),
			usecase.NewReconciliationUseCase(assetRepo, txRepo, perms),
		),
		BackupHandler:    handler.NewBackupHandler(backupUC),
		SettingsHandler:  handler.NewSettingsHandler(usecase.NewSettingsUseCase(txm, memory.NewSettingsRepository(store), perms)),
		HealthHandler:    handler.NewHealthHandler(checks),
		IdempotencyStore: idempotencyStore,
		IdempotencyTTL:   cfg.IdempotencyTTL,
		RateLimiter:      rateLimiter,
		TokenVerifier:    verifier,
		MetricsHandler:   metrics.Handler(prometheus.Gatherers{registry, prometheus.DefaultGatherer}),
		Metrics:          m,
		Logger:           logger,
	})

	if cfg.StateFile != "" {
		app.stateFile = &file.StateFile{Path: cfg.StateFile}
		if err := app.loadState(ctx); err != nil {
			return nil, err
		}
	}

	ok = true
	return app, nil
}

// loadState imports the state file when it exists.
func (a *application) loadState(ctx context.Context) error {
	data, err := a.stateFile.Load()
	if err != nil {
		return err
	}
	if data == nil {
		a.logger.Info().Str("path", a.stateFile.Path).Msg("no state file, starting empty")
		return nil
	}
	if err := a.backup.ImportJSON(domain.WithUser(ctx, systemUser), data); err != nil {
		return fmt.Errorf("load state file %s: %w", a.stateFile.Path, err)
	}
	a.logger.Info().Str("path", a.stateFile.Path).Msg("state loaded")
	return nil
}

// saveState writes the current state to the state file, if one is configured.
func (a *application) saveState(ctx context.Context) error {
	if a.stateFile == nil {
		return nil
	}
	data, err := a.backup.ExportJSON(domain.WithUser(ctx, systemUser))
	if err != nil {
		return err
	}
	if err := a.stateFile.Save(data); err != nil {
		return err
	}
	a.logger.Info().Str("path", a.stateFile.Path).Msg("state saved")
	return nil
}

func (a *application) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
