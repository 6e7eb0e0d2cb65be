package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/cli"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/sheets"
	gsheet "fintrack/internal/sheets/google"
	"fintrack/internal/worker"
)

func main() {
	resyncUser := flag.String("resync", "", "mirror every stored transaction of this user id, then exit")
	flag.Parse()

	cli.LoadEnvFile()

	bootstrap := cli.SetupLogger(applog.DefaultConfig().Level, applog.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(bootstrap)
	logger := cli.SetupLogger(cfg.SlogLevel(), applog.ComponentWorker)

	logger.Info("Starting fintrack-worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backendResult := cli.OpenStore(ctx, logger, cfg)
	defer func() {
		if err := backendResult.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", applog.FieldError, err)
		}
	}()
	st := backendResult.Store

	// The mirror stays a nil interface when Sheets is not configured.
	var mirror sheets.TransactionMirror
	if cfg.GoogleSpreadsheetID != "" {
		sheetsClient, err := gsheet.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
			os.Exit(1)
		}
		mirror = sheetsClient
		logger.Info("Google Sheets mirror enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)
	} else {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	mirrorWorker := worker.NewMirrorWorker(st, mirror, services.NewDashboardService(st, logger), logger)

	if *resyncUser != "" {
		n, err := mirrorWorker.ResyncUser(ctx, *resyncUser)
		if err != nil {
			logger.Error("Resync failed", applog.FieldUserID, *resyncUser, applog.FieldError, err, "rows", n)
			os.Exit(1)
		}
		return
	}

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required to consume transaction events")
		os.Exit(1)
	}
	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		cancel()
		processed, failed := mirrorWorker.Stats()
		logger.Info("Worker stopping", "processed", processed, "failed", failed)
		if err := amqpClient.Close(); err != nil {
			logger.Error("AMQP close error", applog.FieldError, err)
		}
	})

	go func() {
		err := amqpClient.ConsumeTransactionEvents(ctx, mirrorWorker.HandleEvent)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Event consumption failed", applog.FieldError, err)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(shutdownCtx, done)
}
