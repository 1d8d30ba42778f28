// Package http exposes the wallet over HTTP: the idempotent money-movement
// endpoints, read models, the live transfer feed and operational probes.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/strogmv/walletd/internal/idempotency"
	"github.com/strogmv/walletd/internal/pkg/auth"
	"github.com/strogmv/walletd/internal/port"
	"github.com/strogmv/walletd/internal/service"
)

// Probe is one dependency checked by /readyz.
type Probe struct {
	Name   string
	Pinger port.Pinger
}

// Options configure the router.
type Options struct {
	AllowedOrigins []string
	MaxBodyBytes   int64
	RequestTimeout time.Duration
}

// Server holds the handlers' dependencies.
type Server struct {
	Ledger   port.Ledger
	Receipts port.Receipts
	Guard    *idempotency.Guard
	Tokens   *auth.Tokens
	Feed     *service.FeedHub
	Policies Policies
	Probes   []Probe
}

// Router builds the HTTP handler.
func (s *Server) Router(opts Options) http.Handler {
	if s.Policies == nil {
		s.Policies = DefaultPolicies()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 64 << 10
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(CorrelationMiddleware)
	r.Use(RecoverMiddleware)
	r.Use(AccessLogMiddleware)
	r.Use(MetricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", HeaderIdempotencyKey, "X-Correlation-ID", "X-Request-ID"},
		ExposedHeaders: []string{"X-Correlation-ID", HeaderReplayed, HeaderDegraded},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(AuthMiddleware(s.Tokens))

		r.Get("/feed", s.handleFeed)

		r.Group(func(r chi.Router) {
			r.Use(TimeoutMiddleware(opts.RequestTimeout))
			r.Use(MaxBodySizeMiddleware(opts.MaxBodyBytes))

			r.Post("/payments", s.handlePayment)
			r.Post("/payments/qr", s.handleQRPayment)
			r.Post("/transfers/p2p", s.handleP2PTransfer)
			r.Post("/swaps", s.handleSwap)

			r.Get("/balances", s.handleBalances)
			r.Get("/transfers", s.handleListTransfers)
			r.Get("/transfers/{id}", s.handleGetTransfer)
			r.Get("/transfers/{id}/receipt", s.handleReceipt)
			r.Post("/transfers/{id}/receipt/archive", s.handleArchiveReceipt)
		})
	})

	return otelhttp.NewHandler(r, "walletd.http",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(s.Probes))
	for _, p := range s.Probes {
		if err := p.Pinger.Ping(ctx); err != nil {
			checks[p.Name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[p.Name] = "ok"
	}
	writeJSON(w, status, map[string]any{"ready": status == http.StatusOK, "checks": checks})
}
