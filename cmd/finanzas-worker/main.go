package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"finanzas/internal/amqp"
	"finanzas/internal/cli"
	"finanzas/internal/config"
	applog "finanzas/internal/log"
	gsheet "finanzas/internal/sheets/google"
	"finanzas/internal/worker"
)

func main() {
	envErr := cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), applog.ComponentWorker)
	if envErr != nil {
		logger.Warn("Failed to load .env file", applog.FieldError, envErr.Error())
	}
	logger.Info("Starting finanzas-worker")

	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateWorker)
	loc := cfg.Location()

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	store := cli.InitReadStore(ctx, logger, cfg)
	defer func() {
		if err := store.Cleanup(); err != nil {
			logger.Warn("Backend cleanup failed", applog.FieldError, err.Error())
		}
	}()

	sheets, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
		Prefix:          cfg.SheetPrefix,
		Location:        loc,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err.Error())
		os.Exit(1)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err.Error())
		os.Exit(1)
	}
	defer client.Close()

	mirror := worker.NewMirrorWorker(store.Transactions, sheets, loc, cfg.MirrorUserID)

	// Catch up on anything published while the worker was down.
	if err := mirror.ResyncCurrentYear(ctx, time.Now()); err != nil {
		logger.Error("Startup resync failed", applog.FieldError, err.Error())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := client.ConsumeEvents(gctx, mirror.HandleEvent)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	if cfg.MirrorResyncInterval > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(cfg.MirrorResyncInterval)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case now := <-ticker.C:
					if err := mirror.ResyncCurrentYear(gctx, now); err != nil {
						logger.Error("Periodic resync failed", applog.FieldError, err.Error())
					}
				}
			}
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", applog.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
