package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"finanzas/internal/auth"
	"finanzas/internal/backend"
	"finanzas/internal/cache"
	"finanzas/internal/cli"
	"finanzas/internal/config"
	apphttp "finanzas/internal/http"
	"finanzas/internal/ledger"
	applog "finanzas/internal/log"
	"finanzas/internal/services"
)

func main() {
	envErr := cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), applog.ComponentApp)
	if envErr != nil {
		logger.Warn("Failed to load .env file", applog.FieldError, envErr.Error())
	}
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).Validate)
	loc := cfg.Location()

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err.Error())
		os.Exit(1)
	}
	be, err := backend.NewFactory(logger.WithComponent(applog.ComponentStorage)).CreateBackend(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err.Error(), "backend", cfg.DataBackend)
		os.Exit(1)
	}

	authCfg := auth.DefaultConfig()
	authCfg.SessionTTL = cfg.SessionTTL
	provider := auth.NewService(be.Users, be.Sessions, authCfg)
	if be.Seed != nil {
		defer provider.OnSessionChange(seedOnFirstSignIn(ctx, logger, cfg.SeedUserEmail, be.Seed))()
	}

	caches := cache.NewManager()
	caches.Register("sessions", provider.Cache())
	caches.StartCleanup(ctx, 10*time.Minute)

	var janitor *services.SessionJanitor
	if be.Purger != nil {
		janitor = services.NewSessionJanitor(be.Purger, services.SessionJanitorConfig{Interval: cfg.SessionPurgeInterval})
		if err := janitor.Start(ctx); err != nil {
			logger.Error("Failed to start session janitor", applog.FieldError, err.Error())
			os.Exit(1)
		}
	}

	srv, err := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		Location:           loc,
		ExportPrefix:       cfg.ExportPrefix,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Ready:              be.Ready,
		Logger:             logger.WithComponent(applog.ComponentHTTP),
	}, provider, ledger.NewService(be.Transactions, loc))
	if err != nil {
		logger.Error("Failed to build HTTP server", applog.FieldError, err.Error())
		os.Exit(1)
	}
	srv.BaseContext = func(net.Listener) context.Context { return ctx }
	srv.MaxHeaderBytes = 1 << 16

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting finanzas server", "port", cfg.Port, "backend", cfg.DataBackend, "timezone", loc.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		steps := []func(context.Context) error{srv.Shutdown}
		if janitor != nil {
			steps = append(steps, janitor.Stop)
		}
		steps = append(steps, func(context.Context) error {
			caches.Stop()
			return be.Cleanup()
		})
		cli.GracefulShutdown(logger, 30*time.Second, steps...)
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", applog.FieldError, err.Error(), "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

// seedOnFirstSignIn loads demo data the first time the demo account signs
// in during this process.
func seedOnFirstSignIn(ctx context.Context, logger *applog.Logger, email string, seed backend.SeedFunc) func(auth.SessionEvent) {
	var mu sync.Mutex
	seeded := make(map[string]bool)
	return func(ev auth.SessionEvent) {
		if ev.Kind != auth.SignedIn || !strings.EqualFold(ev.Session.Email, email) {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if seeded[ev.Session.UserID] {
			return
		}
		seeded[ev.Session.UserID] = true
		n, err := seed(ctx, ev.Session.UserID)
		if err != nil {
			logger.Error("Failed to seed demo data", applog.FieldError, err.Error(), applog.FieldUserID, ev.Session.UserID)
			return
		}
		logger.Info("Seeded demo data", applog.FieldUserID, ev.Session.UserID, applog.FieldCount, n)
	}
}
