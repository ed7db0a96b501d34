package main

import (
	"context"
	"errors"
	"os"
	"time"

	"budzet/internal/backend"
	"budzet/internal/cli"
	"budzet/internal/log"
	"budzet/internal/worker"

	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, logger := cli.LoadConfig(log.ComponentWorker)
	ctx, stop := cli.SignalContext(logger)
	defer stop()

	logger.InfoContext(ctx, "Starting budzet-worker", log.FieldOperation, log.OpStartup)

	backendRes, backendCfg := cli.InitBackend(ctx, logger, cfg)
	defer backendRes.Cleanup()
	if backendCfg.Type == backend.MemoryBackend {
		logger.ErrorContext(ctx, "budzet-worker needs a shared store, set DATA_BACKEND=sqlite")
		os.Exit(1)
	}

	sink, err := cli.InitJournalSink(ctx, logger, backendCfg)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to initialize journal sink", log.FieldError, err)
		os.Exit(1)
	}
	journal := worker.NewJournalWorker(backendRes.Store, sink, cfg.SyncBatchSize)

	logger.InfoContext(ctx, "Performing startup sync check...")
	if err := journal.StartupSyncCheck(ctx); err != nil {
		logger.ErrorContext(ctx, "Failed startup sync check", log.FieldError, err)
	}

	g, gctx := errgroup.WithContext(ctx)

	if amqpClient := cli.InitAMQP(ctx, logger, cfg); amqpClient != nil {
		defer amqpClient.Close()
		g.Go(func() error {
			err := amqpClient.ConsumeLedgerEvents(gctx, journal.HandleEventMessage)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		logger.InfoContext(ctx, "Skipping AMQP consumption, relying on periodic sync", "interval", cfg.SyncInterval)
	}

	g.Go(func() error {
		return worker.Every(gctx, "journal", cfg.SyncInterval, func(ctx context.Context, _ time.Time) error {
			return journal.ProcessPendingEvents(ctx)
		})
	})

	if err := g.Wait(); err != nil {
		logger.ErrorContext(context.Background(), "Worker failed", log.FieldError, err)
		os.Exit(1)
	}
	logger.InfoContext(context.Background(), "budzet-worker shutdown complete")
}
