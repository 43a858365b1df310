// File: internal/infra/api/server.go
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"webpay-checkout/internal/config"
	"webpay-checkout/internal/infra/metrics"
	"webpay-checkout/internal/usecase"
)

// RateLimiter caps requests per key within a window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server exposes the checkout HTTP surface: transaction creation for the
// storefront and the gateway return callback.
type Server struct {
	checkout    usecase.CheckoutUseCase
	reporter    *usecase.OutcomeReporter
	auth        *Authenticator
	limiter     RateLimiter // nil disables rate limiting
	createLimit int
	health      []Pinger
	validate    *validator.Validate
	timeout     time.Duration
	log         *zerolog.Logger
}

type ServerOptions struct {
	Limiter     RateLimiter
	CreateLimit int
	Health      []Pinger
	Timeout     time.Duration
}

func NewServer(checkout usecase.CheckoutUseCase, reporter *usecase.OutcomeReporter, auth *Authenticator, opts ServerOptions, logger *zerolog.Logger) *Server {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Server{
		checkout:    checkout,
		reporter:    reporter,
		auth:        auth,
		limiter:     opts.Limiter,
		createLimit: opts.CreateLimit,
		health:      opts.Health,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		timeout:     opts.Timeout,
		log:         logger,
	}
}

// Routes builds the chi router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID, Recover(s.log))

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(RequestLog(s.log), Timeout(s.timeout))

		r.With(s.auth.Middleware(s.log)).Post("/checkout/create", s.handleCreate)

		r.Get("/checkout/return", s.handleReturn)
		r.Post("/checkout/return", s.handleReturn)
	})
	return r
}

// NewHTTPServer wraps h with the configured timeouts.
func NewHTTPServer(cfg config.HTTPConfig, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           h,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
	}
}
