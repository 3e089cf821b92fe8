package api

import (
	"github.com/ayo6706/wallet-ledger/internal/api/handler"
	"github.com/ayo6706/wallet-ledger/internal/api/middleware"
	"github.com/ayo6706/wallet-ledger/internal/api/spec"
	"github.com/ayo6706/wallet-ledger/internal/config"
	"github.com/ayo6706/wallet-ledger/internal/domain"
	"github.com/ayo6706/wallet-ledger/internal/idempotency"
	"github.com/ayo6706/wallet-ledger/internal/service"
	"github.com/ayo6706/wallet-ledger/internal/users"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
)

// Deps are the collaborators the HTTP layer is built from. Idempotency may
// be nil, in which case Idempotency-Key headers are ignored.
type Deps struct {
	Wallets     *service.WalletService
	Users       *users.Directory
	Idempotency *idempotency.Store
	Health      map[string]handler.Pinger
}

type Router struct {
	cfg    *config.Config
	logger *zap.Logger
	deps   Deps
}

func NewRouter(cfg *config.Config, logger *zap.Logger, deps Deps) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{cfg: cfg, logger: logger, deps: deps}
}

func (api *Router) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.TraceMiddleware)
	r.Use(middleware.LoggingMiddleware(api.logger))
	r.Use(middleware.RecoverMiddleware(api.logger))
	r.Use(middleware.MetricsMiddleware)

	// Handlers
	authHandler := handler.NewAuthHandler(api.deps.Users, api.cfg.JWTTTL)
	userHandler := handler.NewUserHandler(api.deps.Users)
	walletHandler := handler.NewWalletHandler(api.deps.Wallets)
	txnHandler := handler.NewTransactionHandler(api.deps.Wallets, api.deps.Users)
	commissionHandler := handler.NewCommissionHandler(api.deps.Wallets)
	healthHandler := handler.NewHealthHandler(api.deps.Health)

	// Ops
	r.Get("/healthz", healthHandler.Live)
	r.Get("/readyz", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/openapi.yaml", spec.OpenAPIHandler())
	r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL("/openapi.yaml")))

	// Public Routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.PublicRateLimiter(api.cfg.PublicRateLimitRPS))
		r.Post("/v1/users/login", authHandler.Login)
		r.Post("/v1/users/register", userHandler.Register)
	})

	// Protected Routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware)
		r.Use(middleware.AuthRateLimiter(api.cfg.AuthRateLimitRPS))

		r.Get("/v1/users/me", userHandler.Me)
		r.Get("/v1/wallets/{userId}", walletHandler.GetWallet)
		r.Get("/v1/transactions/user/{userId}", txnHandler.ListForUser)

		r.Group(func(r chi.Router) {
			r.Use(middleware.IdempotencyMiddleware(api.deps.Idempotency, api.logger))
			r.Post("/v1/transactions/deposit", txnHandler.Deposit)
			r.Post("/v1/transactions/withdraw", txnHandler.Withdraw)
			r.Post("/v1/transactions/transfer", txnHandler.Transfer)
		})

		// Admin
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(domain.RoleAdmin))
			r.Patch("/v1/transactions/approve/{id}", txnHandler.Approve)
			r.Patch("/v1/transactions/reject/{id}", txnHandler.Reject)
			r.Post("/v1/transactions/record", txnHandler.Record)
			r.Get("/v1/transactions/admin/all", txnHandler.ListAll)
			r.Get("/v1/transactions/admin/pending", txnHandler.ListPending)
			r.Get("/v1/commissions", commissionHandler.List)
			r.Get("/v1/commissions/summary", commissionHandler.Summary)
		})
	})

	return r
}
