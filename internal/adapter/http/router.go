package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/fxledger/internal/adapter/http/handler"
	"github.com/iho/fxledger/internal/adapter/http/middleware"
	"github.com/iho/fxledger/internal/domain"
	"github.com/iho/fxledger/internal/infrastructure/metrics"
	"github.com/iho/fxledger/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	AssetHandler     *handler.AssetHandler
	LedgerHandler    *handler.LedgerHandler
	GroupHandler     *handler.GroupHandler
	OperationHandler *handler.OperationHandler
	DebtHandler      *handler.DebtHandler
	CapitalHandler   *handler.CapitalHandler
	ReportHandler    *handler.ReportHandler
	BackupHandler    *handler.BackupHandler
	SettingsHandler  *handler.SettingsHandler
	HealthHandler    *handler.HealthHandler

	// Optional
	IdempotencyStore usecase.IdempotencyStore
	IdempotencyTTL   time.Duration
	RateLimiter      *middleware.RateLimiter
	TokenVerifier    middleware.TokenVerifier
	MetricsHandler   http.Handler
	Metrics          *metrics.Metrics
	Logger           zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Metrics)
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)

	metricsHandler := cfg.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		if cfg.TokenVerifier != nil {
			r.Use(middleware.AuthMiddleware(cfg.TokenVerifier, cfg.Metrics))
		}

		// Idempotency middleware for mutating requests
		if cfg.IdempotencyStore != nil {
			idempotencyMiddleware := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL, cfg.Logger)
			r.Use(idempotencyMiddleware.Wrap)
		}

		r.Get("/balances", cfg.LedgerHandler.Balances)

		// Banks and assets
		r.Route("/banks", func(r chi.Router) {
			r.Post("/", cfg.AssetHandler.CreateBank)
			r.Get("/", cfg.AssetHandler.ListBanks)
		})
		r.Route("/assets", func(r chi.Router) {
			r.Post("/", cfg.AssetHandler.Create)
			r.Get("/", cfg.AssetHandler.List)
			r.Get("/{id}", cfg.AssetHandler.Get)
			r.Delete("/{id}", cfg.AssetHandler.Remove)
			r.Get("/{id}/balance", cfg.LedgerHandler.HistoricalBalance)
		})

		// Transaction log and groups
		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", cfg.LedgerHandler.ListTransactions)
			r.Get("/{id}", cfg.LedgerHandler.GetTransaction)
		})
		r.Route("/groups", func(r chi.Router) {
			r.Get("/{id}", cfg.GroupHandler.Get)
			r.Delete("/{id}", cfg.GroupHandler.Delete)
			r.Post("/{id}/restore", cfg.GroupHandler.Restore)
		})

		// Business operations
		r.Route("/operations", func(r chi.Router) {
			r.Post("/buy", cfg.OperationHandler.Buy)
			r.Post("/sell", cfg.OperationHandler.Sell)
			r.Post("/transfer", cfg.OperationHandler.Transfer)
			r.Post("/expense", cfg.OperationHandler.Expense)
			r.Post("/fee", cfg.OperationHandler.ExchangeFee)
			r.Post("/sale", cfg.OperationHandler.Sale)
			r.Post("/adjustment", cfg.OperationHandler.Adjustment)
			r.Post("/deposit", cfg.OperationHandler.Deposit)
			r.Post("/withdraw", cfg.OperationHandler.Withdraw)
			r.Post("/debt-payment", cfg.OperationHandler.PayDebt)
		})

		// Debts and receivables
		r.Route("/debts", func(r chi.Router) {
			r.Post("/", cfg.DebtHandler.Create)
			r.Get("/", cfg.DebtHandler.List)
			r.Get("/{id}", cfg.DebtHandler.Get)
			r.Post("/{id}/installments", cfg.DebtHandler.AddInstallment)
			r.Delete("/{id}/installments/{installmentID}", cfg.DebtHandler.ArchiveInstallment)
		})

		// Capital
		r.Route("/capital", func(r chi.Router) {
			r.Get("/", cfg.CapitalHandler.Current)
			r.Get("/policy", cfg.CapitalHandler.Policy)
			r.Post("/close", cfg.CapitalHandler.Close)
			r.Get("/history", cfg.CapitalHandler.History)
			r.Get("/evolution", cfg.CapitalHandler.Evolution)
		})

		// Reports
		r.Get("/profit", cfg.ReportHandler.Profit)
		r.Get("/reconciliation", cfg.ReportHandler.Reconciliation)
		r.Get("/reconciliation/{id}", cfg.ReportHandler.ReconcileAsset)

		// Layout settings
		r.Get("/settings/{key}", cfg.SettingsHandler.Get)
		r.Put("/settings/{key}", cfg.SettingsHandler.Put)

		// State export, import and backups
		r.Get("/export", cfg.BackupHandler.Export)
		r.Group(func(r chi.Router) {
			if cfg.TokenVerifier != nil {
				r.Use(middleware.RequireRole(domain.RoleAdmin))
			}
			r.Post("/import", cfg.BackupHandler.Import)
			r.Post("/backups/restore", cfg.BackupHandler.RestoreLatest)
		})
		r.Post("/backups", cfg.BackupHandler.Create)
	})

	return r
}
