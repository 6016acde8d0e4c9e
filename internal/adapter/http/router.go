package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/iho/escrowledger/internal/adapter/http/handler"
	"github.com/iho/escrowledger/internal/adapter/http/middleware"
	"github.com/iho/escrowledger/internal/infrastructure/auth"
	"github.com/iho/escrowledger/internal/infrastructure/metrics"
	"github.com/iho/escrowledger/internal/usecase"
)

// RouterConfig holds dependencies for the router. LedgerHandler,
// IdempotencyStore, RateLimiter, Metrics, MetricsHandler and JWTManager are
// optional.
type RouterConfig struct {
	TransferHandler  *handler.TransferHandler
	EntryHandler     *handler.EntryHandler
	LedgerHandler    *handler.LedgerHandler
	HealthHandler    *handler.HealthHandler
	IdempotencyStore usecase.IdempotencyStore
	IdempotencyTTL   time.Duration
	RateLimiter      *middleware.RateLimiter
	Metrics          *metrics.Metrics
	MetricsHandler   http.Handler
	Logger           zerolog.Logger

	// JWTManager verifies bearer tokens. When nil the caller's account is
	// taken from the X-Ledger-Account header instead.
	JWTManager *auth.JWTManager
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}
	if cfg.LedgerHandler != nil {
		r.Get("/ledger/consistency", cfg.LedgerHandler.CheckConsistency)
	}

	r.Group(func(r chi.Router) {
		if cfg.JWTManager != nil {
			r.Use(middleware.Authenticate(cfg.JWTManager))
		} else {
			r.Use(middleware.TrustAccountHeader)
		}
		if cfg.IdempotencyStore != nil {
			r.Use(middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL, cfg.Logger).Wrap)
		}

		r.Route("/transfers/{id}", func(r chi.Router) {
			r.Put("/", cfg.TransferHandler.Put)
			r.Get("/", cfg.TransferHandler.Get)
			r.Put("/fulfillment", cfg.TransferHandler.PutFulfillment)
			r.Get("/fulfillment", cfg.TransferHandler.GetFulfillment)
			r.Get("/state", cfg.TransferHandler.GetState)
			r.Get("/entries", cfg.EntryHandler.ListByTransfer)
		})

		r.Get("/accounts/{name}/entries", cfg.EntryHandler.ListByAccount)
	})

	return r
}
