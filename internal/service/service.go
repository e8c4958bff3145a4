package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/embedsvc/embedsvc/internal/embedder"
	"github.com/embedsvc/embedsvc/internal/metrics"
)

// HealthStatusOK is the only status value Health reports.
const HealthStatusOK = "ok"

// ErrNoEmbedding is returned when the model produced no vector for the input.
var ErrNoEmbedding = errors.New("no embedding returned from model")

// Constructor builds a model handle. It is called once at startup and again
// on each embed request for as long as no handle exists.
type Constructor func(ctx context.Context) (embedder.Embedder, error)

// Health is the readiness snapshot served by GET /health.
type Health struct {
	Status string `json:"status"`
	Model  string `json:"model"`
	Ready  bool   `json:"ready"`
}

// Result is one embedding.
type Result struct {
	Embedding []float64 `json:"embedding"`
	Model     string    `json:"model"`
	Dim       int       `json:"dim"`
}

// Status is a diagnostic snapshot of the model handle.
type Status struct {
	Backend      string                 `json:"backend"`
	Model        string                 `json:"model"`
	Ready        bool                   `json:"ready"`
	Dimensions   int                    `json:"dimensions,omitempty"`
	InitError    string                 `json:"init_error,omitempty"`
	InitAttempts int                    `json:"init_attempts"`
	LastInitAt   time.Time              `json:"last_init_at,omitempty"`
	StartedAt    time.Time              `json:"started_at"`
	Cache        *embedder.CacheMetrics `json:"cache,omitempty"`
}

// Options configures a Service. Zero values are valid.
type Options struct {
	Backend string
	Metrics metrics.Metrics
	Logger  *slog.Logger
}

// Service owns the process-wide model handle.
type Service struct {
	construct Constructor
	backend   string
	metrics   metrics.Metrics
	logger    *slog.Logger
	startedAt time.Time

	// initMu serializes construction; mu guards the fields below and is
	// never held while a constructor runs.
	initMu sync.Mutex

	mu         sync.RWMutex
	handle     embedder.Embedder
	initErr    error
	attempts   int
	lastInitAt time.Time
}

// New stores construct and attempts one construction. A failure leaves the
// service running without a handle.
func New(ctx context.Context, construct Constructor, opts Options) *Service {
	if opts.Metrics == nil {
		opts.Metrics = metrics.Noop{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Service{
		construct: construct,
		backend:   opts.Backend,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
		startedAt: time.Now(),
	}
	s.metrics.SetModelReady(false)

	if _, err := s.ensureHandle(ctx); err != nil {
		s.logger.Warn("model initialization failed, starting without a model",
			"model", embedder.ModelID, "backend", s.backend, "error", err)
	}
	return s
}

// Health reports readiness without triggering construction.
func (s *Service) Health() Health {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Health{
		Status: HealthStatusOK,
		Model:  embedder.ModelID,
		Ready:  s.handle != nil && s.initErr == nil,
	}
}

// Embed returns the embedding of text, constructing the model first when
// no handle exists yet.
func (s *Service) Embed(ctx context.Context, text string) (res *Result, err error) {
	start := time.Now()
	defer func() { s.metrics.ObserveEmbed(time.Since(start), err) }()

	handle, err := s.ensureHandle(ctx)
	if err != nil {
		return nil, err
	}

	vecs, err := embedOne(ctx, handle, text)
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		return nil, ErrNoEmbedding
	}

	embedding := make([]float64, len(vecs[0]))
	for i, v := range vecs[0] {
		embedding[i] = float64(v)
	}
	return &Result{
		Embedding: embedding,
		Model:     embedder.ModelID,
		Dim:       len(embedding),
	}, nil
}

// Status returns diagnostics about the model handle.
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		Backend:      s.backend,
		Model:        embedder.ModelID,
		Ready:        s.handle != nil && s.initErr == nil,
		InitAttempts: s.attempts,
		LastInitAt:   s.lastInitAt,
		StartedAt:    s.startedAt,
	}
	if s.initErr != nil {
		st.InitError = s.initErr.Error()
	}
	if s.handle != nil {
		st.Dimensions = s.handle.Dimensions()
		if c, ok := s.handle.(interface{ Metrics() embedder.CacheMetrics }); ok {
			m := c.Metrics()
			st.Cache = &m
		}
	}
	return st
}

func (s *Service) current() embedder.Embedder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.handle
}

// ensureHandle returns the handle, constructing it if needed. Concurrent
// callers that find no handle wait for a single construction.
func (s *Service) ensureHandle(ctx context.Context) (embedder.Embedder, error) {
	if h := s.current(); h != nil {
		return h, nil
	}

	s.initMu.Lock()
	defer s.initMu.Unlock()

	if h := s.current(); h != nil {
		return h, nil
	}

	h, err := s.safeConstruct(ctx)
	if err == nil && h == nil {
		err = fmt.Errorf("constructor returned no model")
	}

	s.mu.Lock()
	s.attempts++
	s.lastInitAt = time.Now()
	if err != nil {
		s.initErr = err
	} else {
		s.handle = h
		s.initErr = nil
	}
	s.mu.Unlock()

	s.metrics.ObserveModelInit(err == nil)
	s.metrics.SetModelReady(err == nil)
	if err != nil {
		return nil, err
	}
	s.logger.Info("model loaded", "model", embedder.ModelID, "backend", s.backend, "dimensions", h.Dimensions())
	return h, nil
}

// safeConstruct runs the constructor, turning a panic into an init error.
func (s *Service) safeConstruct(ctx context.Context) (h embedder.Embedder, err error) {
	defer func() {
		if r := recover(); r != nil {
			h, err = nil, fmt.Errorf("model construction panicked: %v", r)
		}
	}()
	return s.construct(ctx)
}

// embedOne calls the handle for a single text, turning a panic into an error.
func embedOne(ctx context.Context, handle embedder.Embedder, text string) (vecs [][]float32, err error) {
	defer func() {
		if r := recover(); r != nil {
			vecs, err = nil, fmt.Errorf("model panicked: %v", r)
		}
	}()
	return handle.Embed(ctx, []string{text})
}
