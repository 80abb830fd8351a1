// Package cli holds the bootstrap steps shared by cmd/finanzas,
// cmd/finanzas-worker and cmd/finanzasctl.
package cli

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"finanzas/internal/backend"
	"finanzas/internal/config"
	applog "finanzas/internal/log"
)

// LoadEnvFile loads .env files for local development. Missing files are
// fine; a file that exists but cannot be parsed is an error.
func LoadEnvFile(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// SetupLogger builds the process logger from LOG_LEVEL and installs it as
// the slog default. Unknown levels fall back to info.
func SetupLogger(level, component string) *applog.Logger {
	lvl, err := applog.ParseLevel(level)
	if err != nil {
		lvl = slog.LevelInfo
	}
	logger := applog.New(applog.Config{Level: lvl, Component: component, Output: os.Stdout})
	applog.SetDefault(logger)
	if err != nil {
		logger.Warn("Unknown log level, using info", "level", level)
	}
	return logger
}

// LoadAndValidateConfig loads configuration and runs validate on it,
// exiting the process on failure.
func LoadAndValidateConfig(logger *applog.Logger, validate func(*config.Config) error) *config.Config {
	cfg := config.Load()
	if validate == nil {
		validate = (*config.Config).Validate
	}
	if err := validate(cfg); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err.Error())
		os.Exit(1)
	}
	return cfg
}

// InitReadStore opens the configured persistent backend for a process
// that only reads the ledger: no change events and no demo data. It exits
// the process on failure.
func InitReadStore(ctx context.Context, logger *applog.Logger, cfg *config.Config) *backend.BackendResult {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err.Error())
		os.Exit(1)
	}
	bcfg.AMQPURL = ""
	bcfg.SeedFile = ""
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err.Error(), "backend", bcfg.Type.String())
		os.Exit(1)
	}
	return res
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext(logger *applog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigCh)
		select {
		case sig := <-sigCh:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// GracefulShutdown runs each step with a shared deadline, logging failures.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, steps ...func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	for _, step := range steps {
		if err := step(ctx); err != nil {
			logger.Error("Shutdown step failed", applog.FieldError, err.Error(), applog.FieldOperation, applog.OpShutdown)
		}
	}
	if ctx.Err() != nil {
		logger.Warn("Shutdown timeout reached")
		return
	}
	logger.Info("Shutdown complete")
}
