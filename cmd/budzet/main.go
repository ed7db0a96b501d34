package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"budzet/internal/backend"
	"budzet/internal/cache"
	"budzet/internal/cli"
	apphttp "budzet/internal/http"
	"budzet/internal/log"
	"budzet/internal/services"
	"budzet/internal/worker"

	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, logger := cli.LoadConfig(log.ComponentApp)
	ctx, stop := cli.SignalContext(logger)
	defer stop()

	backendRes, backendCfg := cli.InitBackend(ctx, logger, cfg)
	defer func() {
		if err := backendRes.Cleanup(); err != nil {
			logger.ErrorContext(context.Background(), "Failed to close store", log.FieldError, err)
		}
	}()

	amqpClient := cli.InitAMQP(ctx, logger, cfg)
	if amqpClient != nil {
		defer amqpClient.Close()
	}

	facade := cli.NewFacade(backendRes.Store, cfg, amqpClient)

	srv := apphttp.NewServer(":"+cfg.Port, facade, apphttp.Options{
		RequestsPerMinute: cfg.RateLimitPerMinute,
		Ready:             backendRes.Ping,
		Logger:            logger,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.InfoContext(gctx, "Starting budzet server",
			"port", cfg.Port,
			"backend", backendCfg.Type.String(),
			"currency", cfg.Currency,
			"timezone", cfg.ReportTimezone)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		logger.InfoContext(shutdownCtx, "Shutting down server", log.FieldOperation, log.OpShutdown)
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		cache.NewJanitor(facade.SeriesCache()).Run(gctx, time.Minute)
		return nil
	})

	// An in-memory store lives only in this process, so the journal and
	// autopay loops run here instead of in their own workers.
	if backendCfg.Type == backend.MemoryBackend {
		journalSink, err := cli.InitJournalSink(gctx, logger, backendCfg)
		if err != nil {
			logger.ErrorContext(gctx, "Failed to initialize journal sink", log.FieldError, err)
			os.Exit(1)
		}
		journal := worker.NewJournalWorker(backendRes.Store, journalSink, cfg.SyncBatchSize)
		g.Go(func() error {
			return worker.Every(gctx, "journal", cfg.SyncInterval, func(ctx context.Context, _ time.Time) error {
				return journal.ProcessPendingEvents(ctx)
			})
		})

		checker, _ := services.GetDuenessChecker(cfg.AutopayStrategy)
		autopay := services.NewAutopayProcessor(facade, checker)
		g.Go(func() error {
			return worker.Every(gctx, "autopay", cfg.AutopayInterval, func(ctx context.Context, now time.Time) error {
				_, err := autopay.ProcessDueInstallments(ctx, now)
				return err
			})
		})
	}

	if err := g.Wait(); err != nil {
		logger.ErrorContext(context.Background(), "Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.InfoContext(context.Background(), "Server stopped gracefully")
}
