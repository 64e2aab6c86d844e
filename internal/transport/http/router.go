// Package httptransport is the thin HTTP layer: request decoding, validation
// of transport shape, and translation of coded domain errors into a stable
// {code, message} JSON envelope. Business logic stays in the services.
package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires the public endpoints.
func NewRouter(h *Handler, limiter Limiter, opts ...RouterOption) http.Handler {
	cfg := routerConfig{
		signupLimit: 30,
		batchLimit:  2,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(RequestTime)

	r.Get("/healthz", h.handleHealth)
	r.Get("/readyz", h.handleReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.With(RateLimit(limiter, "signup", cfg.signupLimit)).
			Post("/signups", h.handleSignup)
		r.With(RateLimit(limiter, "batch", cfg.batchLimit)).
			Post("/batches/{batchID}/run", h.handleBatchRun)
	})

	return r
}

type routerConfig struct {
	signupLimit int
	batchLimit  int
}

type RouterOption func(*routerConfig)

// WithSignupRateLimit sets the per-client signup requests allowed per window.
func WithSignupRateLimit(n int) RouterOption {
	return func(c *routerConfig) { c.signupLimit = n }
}

// WithBatchRateLimit sets the per-client batch runs allowed per window.
func WithBatchRateLimit(n int) RouterOption {
	return func(c *routerConfig) { c.batchLimit = n }
}
