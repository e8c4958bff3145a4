package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/embedsvc/embedsvc/internal/api"
	"github.com/embedsvc/embedsvc/internal/config"
	"github.com/embedsvc/embedsvc/internal/daemon"
)

var (
	version = "0.1.0"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	showVersion := flag.Bool("version", false, "Show version")
	flag.Parse()

	if *showVersion {
		fmt.Printf("embedsvcd %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	}

	// Load config
	cfg, err := config.NewLoader(*configPath).LoadAndValidate()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Set up logging
	logger := slog.New(api.NewContextHandler(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.Server.Level(),
	})))
	slog.SetDefault(logger)

	ctx := context.Background()

	d, err := daemon.New(ctx, cfg, logger, daemon.Options{Version: version})
	if err != nil {
		logger.Error("failed to create daemon", "error", err)
		os.Exit(1)
	}

	logger.Info("starting embedsvcd", "version", version, "backend", cfg.Model.Backend, "addr", cfg.Server.Address())
	if err := d.Run(ctx); err != nil {
		logger.Error("daemon error", "error", err)
		os.Exit(1)
	}

	logger.Info("embedsvcd stopped")
}
