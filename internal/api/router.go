package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/embedsvc/embedsvc/internal/metrics"
)

// RouterOptions configures NewRouter. Zero values are valid.
type RouterOptions struct {
	Version string
	Logger  *slog.Logger
	// Metrics instruments every request. When nil no metrics are recorded
	// and /metrics is not mounted.
	Metrics metrics.Metrics
}

// Router wraps a chi router with handler configuration
type Router struct {
	chi     chi.Router
	handler *Handler
	logger  *slog.Logger
}

// NewRouter creates a new Router serving svc.
func NewRouter(svc EmbeddingService, opts RouterOptions) *Router {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	handler := NewHandler(svc, opts.Version, logger)

	r := chi.NewRouter()

	r.Use(RequestID)
	if opts.Metrics != nil {
		r.Use(Instrument(opts.Metrics))
	}
	r.Use(RequestLogger(logger))
	r.Use(Recoverer(logger))

	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

	r.Get("/health", handler.Health)
	r.Post("/embed", handler.Embed)
	r.Get("/status", handler.Status)
	if opts.Metrics != nil && opts.Metrics.GetRegistry() != nil {
		r.Method(http.MethodGet, "/metrics", metrics.NewMetricsHandler(opts.Metrics, logger))
	}

	return &Router{
		chi:     r,
		handler: handler,
		logger:  logger,
	}
}

// ServeHTTP implements the http.Handler interface
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.chi.ServeHTTP(w, req)
}
