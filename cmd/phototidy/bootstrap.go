package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/phototidy/phototidy/pkg/phototidy/config"
	"github.com/phototidy/phototidy/pkg/phototidy/logging"
	"github.com/phototidy/phototidy/pkg/phototidy/store"
)

// app bundles resolved configuration and the open database for one command
// invocation.
type app struct {
	cfg   *config.Config
	paths config.Paths
	store *store.Store
}

// newApp loads configuration, initializes logging and opens the database.
// Callers must Close the returned app.
func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logCfg := logging.Config{
		Level:        cfg.Logging.Level,
		Path:         cfg.Logging.Path,
		Components:   cfg.Logging.Components,
		ConsoleLevel: cfg.Logging.ConsoleLevel,
	}
	if getVerbose() {
		logCfg.ConsoleLevel = "debug"
	}
	if err := logging.Init(logCfg); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}

	paths, err := cfg.Resolve()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	st, err := store.Open(paths.DatabaseDir, paths.SchemaVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &app{cfg: cfg, paths: paths, store: st}, nil
}

// Close releases the database and logging resources.
func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to close database: %v\n", err)
	}
	_ = logging.Close()
}

// commandContext returns a context cancelled on SIGINT or SIGTERM. The
// returned stop function releases the signal handler.
func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
