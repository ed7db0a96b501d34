// Package http serves the ledger facade as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"budzet/internal/log"
	"budzet/internal/middleware/ratelimit"
	"budzet/internal/middleware/security"
	"budzet/internal/middleware/trace"
	"budzet/internal/services"
)

// Options tunes the API server.
type Options struct {
	// RequestsPerMinute limits mutating requests per client IP.
	RequestsPerMinute int
	// Ready reports whether dependencies can serve traffic; nil means always.
	Ready  func(context.Context) error
	Logger *log.Logger
}

type Server struct {
	http.Server
	facade   *services.LedgerFacade
	limiter  *ratelimit.Limiter
	detector *security.Detector
	ready    func(context.Context) error

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, facade *services.LedgerFacade, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.Config{Component: log.ComponentHTTP})
	}

	s := &Server{
		facade:   facade,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RequestsPerMinute}),
		detector: security.NewDetector(),
		ready:    opts.Ready,
	}

	mux := http.NewServeMux()
	s.routes(mux)

	var h http.Handler = mux
	h = s.limiter.Middleware(s.detector.ExtractClientIP, handleRateLimited, http.MethodPost, http.MethodPut)(h)
	h = s.detector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = log.Middleware(logger.WithComponent(log.ComponentHTTP), trace.RequestID)(h)
	h = trace.NewMiddleware(s.detector.ExtractClientIP, logger).Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /api/banks", s.handleOpenBank)
	mux.HandleFunc("GET /api/banks", s.handleListBanks)
	mux.HandleFunc("GET /api/banks/name", s.handleBankNames)
	mux.HandleFunc("GET /api/banks/{id}", s.handleGetBank)
	mux.HandleFunc("POST /api/banks/{id}/deposits", s.handleDeposit)
	mux.HandleFunc("POST /api/banks/{id}/withdrawals", s.handleWithdraw)
	mux.HandleFunc("POST /api/banks/{id}/close", s.handleCloseBank)

	mux.HandleFunc("POST /api/groups", s.handleCreateGroup)
	mux.HandleFunc("GET /api/groups", s.handleListGroups)
	mux.HandleFunc("GET /api/groups/{id}", s.handleGetGroup)
	mux.HandleFunc("POST /api/groups/{id}/categories", s.handleAllocateCategory)
	mux.HandleFunc("PUT /api/groups/{id}/categories/{cid}", s.handleUpdateCategory)
	mux.HandleFunc("POST /api/categories/{cid}/reassign", s.handleReassignCategory)

	mux.HandleFunc("POST /api/loans", s.handleCreateLoan)
	mux.HandleFunc("GET /api/loans", s.handleListLoans)
	mux.HandleFunc("POST /api/loans/schedule", s.handlePreviewSchedule)
	mux.HandleFunc("GET /api/loans/{id}", s.handleGetLoan)
	mux.HandleFunc("GET /api/loans/{id}/installments", s.handleInstallments)
	mux.HandleFunc("POST /api/loans/{id}/payments", s.handlePayInstallment)

	mux.HandleFunc("GET /api/group-balance", s.handleGroupBalances)
	mux.HandleFunc("GET /api/group-balance-chart", s.handleGroupBalanceChart)
	mux.HandleFunc("GET /api/group-balance-chart/{id}", s.handleGroupBalanceChart)
	mux.HandleFunc("POST /api/expenses/aggregate", s.handleAggregate)
	mux.HandleFunc("GET /api/balance/monthly", s.handleMonthBalance)
	mux.HandleFunc("GET /api/budget", s.handleBudgetSummary)
	mux.HandleFunc("GET /api/ledger/audit", s.handleAudit)
	mux.HandleFunc("GET /api/ledger/snapshot", s.handleSnapshot)
}

// Shutdown stops the rate limiter and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			w.Header().Set("Retry-After", "5")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
