// internal/api/router.go
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"brokerage-ledger/internal/api/handler"
	"brokerage-ledger/internal/api/middleware"
	"brokerage-ledger/internal/metrics"
)

// NewRouter sets up and returns a new HTTP router.
func NewRouter(ledger *handler.LedgerHandler, admin *handler.AdminHandler, auth *middleware.Authenticator, m *metrics.Metrics, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middlewares
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(m.Middleware)
	r.Use(chimw.Timeout(handler.DefaultTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", m.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(auth.Authenticate)

		r.Post("/accounts", ledger.CreateAccount)
		r.Get("/accounts/me", ledger.GetPortfolio)
		r.Get("/accounts/me/transactions", ledger.ListTransactions)
		r.Get("/accounts/me/withdrawals", ledger.ListWithdrawals)
		r.Post("/deposits", ledger.Deposit)
		r.Get("/deposits/info", ledger.DepositInfo)
		r.Post("/conversions", ledger.Convert)
		r.Post("/withdrawals", ledger.RequestWithdrawal)
		r.Get("/rates", ledger.GetRates)

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin)

			r.Get("/accounts", admin.ListAccounts)
			r.Get("/accounts/{userID}", admin.GetAccount)
			r.Put("/accounts/{userID}/balances", admin.AdjustBalances)
			r.Put("/accounts/{userID}/status", admin.SetStatus)
			r.Get("/withdrawals", admin.ListWithdrawals)
			r.Post("/withdrawals/{id}/{decision}", admin.ResolveWithdrawal)
			r.Post("/deposits/{id}/{action}", admin.ResolveDeposit)
			r.Get("/summary", admin.Summary)
		})
	})

	return r
}

// requestLogger logs one line per request through the structured logger.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", chimw.GetReqID(r.Context()),
			)
		})
	}
}
