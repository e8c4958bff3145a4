package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/embedsvc/embedsvc/internal/api"
	"github.com/embedsvc/embedsvc/internal/cacheenv"
	"github.com/embedsvc/embedsvc/internal/config"
	"github.com/embedsvc/embedsvc/internal/db"
	"github.com/embedsvc/embedsvc/internal/embedder"
	"github.com/embedsvc/embedsvc/internal/metrics"
	"github.com/embedsvc/embedsvc/internal/service"
)

// Options holds dependencies that tests substitute. Zero values are valid.
type Options struct {
	Version string
	// CacheEnv overrides the environment and filesystem used for cache
	// redirection. Root always comes from the configuration.
	CacheEnv cacheenv.Options
	// Constructor replaces the backend built from the configuration.
	Constructor service.Constructor
}

// Daemon runs the embedding HTTP service.
type Daemon struct {
	config  *config.Config
	logger  *slog.Logger
	store   *db.DB
	metrics metrics.Metrics
	service *service.Service
	router  *api.Router
	cache   cacheenv.Result

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	ready    chan struct{}
}

// New applies cache redirection, opens the optional store, and constructs
// the service. A model that fails to load does not fail New.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts Options) (*Daemon, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	cacheOpts := opts.CacheEnv
	cacheOpts.Root = cfg.Cache.Root
	cacheOpts.Logger = logger
	cacheResult := cacheenv.Apply(cacheOpts)
	if cacheResult.ReadOnly {
		logger.Info("read-only filesystem detected, redirected caches",
			"root", cacheResult.Root, "set", len(cacheResult.Set), "dir_failures", len(cacheResult.DirErrors))
	}

	d := &Daemon{
		config: cfg,
		logger: logger,
		cache:  cacheResult,
		ready:  make(chan struct{}),
	}

	var svcMetrics metrics.Metrics = metrics.Noop{}
	if cfg.Metrics.Enabled {
		d.metrics = metrics.NewMetrics(metrics.InstanceInfo{Version: opts.Version, Backend: cfg.Model.Backend})
		svcMetrics = d.metrics
	}

	if cfg.Embedding.Persistent {
		d.store = openStore(ctx, logger)
	}

	construct := opts.Constructor
	if construct == nil {
		construct = d.constructor(svcMetrics)
	}

	d.service = service.New(ctx, construct, service.Options{
		Backend: cfg.Model.Backend,
		Metrics: svcMetrics,
		Logger:  logger,
	})

	d.router = api.NewRouter(d.service, api.RouterOptions{
		Version: opts.Version,
		Logger:  logger,
		Metrics: d.metrics,
	})

	return d, nil
}

// openStore opens the persistent embedding store, returning nil on failure.
func openStore(ctx context.Context, logger *slog.Logger) *db.DB {
	dir, err := db.DefaultDir(os.LookupEnv)
	if err != nil {
		logger.Warn("embedding store disabled", "error", err)
		return nil
	}
	store, err := db.Open(dir)
	if err != nil {
		logger.Warn("embedding store disabled", "dir", dir, "error", err)
		return nil
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		logger.Warn("embedding store disabled", "dir", dir, "error", err)
		return nil
	}
	logger.Info("embedding store opened", "path", store.Path())
	return store
}

// constructor builds backend -> persistent store -> LRU from the configuration.
func (d *Daemon) constructor(m metrics.Metrics) service.Constructor {
	cfg := d.config
	return func(ctx context.Context) (embedder.Embedder, error) {
		emb, err := embedder.NewFromConfig(ctx, embedder.ProviderConfig{
			Provider:    cfg.Model.Backend,
			BaseURL:     cfg.Model.BaseURL,
			Token:       cfg.Model.Token,
			Timeout:     cfg.Model.Timeout(),
			LoadRetries: cfg.Model.LoadRetries,
		})
		if err != nil {
			return nil, err
		}
		if d.store != nil {
			emb = embedder.NewStoredEmbedder(emb, d.store, m, d.logger)
		}
		if cfg.Embedding.CacheSize > 0 {
			emb = embedder.NewCachedEmbedder(emb, cfg.Embedding.CacheSize, m)
		}
		return emb, nil
	}
}

// Handler returns the HTTP handler serving the API.
func (d *Daemon) Handler() http.Handler {
	return d.router
}

// Service returns the embedding service.
func (d *Daemon) Service() *service.Service {
	return d.service
}

// CacheResult reports what cache redirection did at startup.
func (d *Daemon) CacheResult() cacheenv.Result {
	return d.cache
}

// Ready is closed once the listener is bound.
func (d *Daemon) Ready() <-chan struct{} {
	return d.ready
}

// Addr returns the bound listen address, or "" before Run has bound it.
func (d *Daemon) Addr() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.listener == nil {
		return ""
	}
	return d.listener.Addr().String()
}

// Run serves HTTP until ctx is cancelled, a shutdown signal arrives, or the
// server fails.
func (d *Daemon) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", d.config.Server.Address())
	if err != nil {
		d.closeStore()
		return fmt.Errorf("failed to listen on %s: %w", d.config.Server.Address(), err)
	}

	d.mu.Lock()
	d.listener = ln
	d.server = &http.Server{
		Handler:           d.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	server := d.server
	d.mu.Unlock()
	close(d.ready)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, ShutdownSignals()...)
	defer signal.Stop(sigCh)

	serverErrCh := make(chan error, 1)
	go func() {
		d.logger.Info("starting API server", "addr", ln.Addr().String(), "model", embedder.ModelID)
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
		close(serverErrCh)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		d.logger.Info("context cancelled, shutting down")
	case sig := <-sigCh:
		d.logger.Info("received signal, shutting down", "signal", sig)
	case err := <-serverErrCh:
		if err != nil {
			d.logger.Error("server error", "error", err)
			runErr = err
		}
	}

	d.shutdown()
	return runErr
}

// shutdown performs graceful shutdown of all components
func (d *Daemon) shutdown() {
	d.logger.Info("shutting down daemon")

	d.mu.Lock()
	server := d.server
	d.mu.Unlock()

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), d.config.Server.ShutdownTimeout())
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			d.logger.Warn("server shutdown error", "error", err)
		}
	}

	d.closeStore()
}

func (d *Daemon) closeStore() {
	if d.store == nil {
		return
	}
	if err := d.store.Close(); err != nil {
		d.logger.Warn("database close error", "error", err)
	}
	d.store = nil
}
