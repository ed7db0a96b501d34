package main

import (
	"context"
	"os"
	"time"

	"budzet/internal/backend"
	"budzet/internal/cli"
	"budzet/internal/log"
	"budzet/internal/services"
	"budzet/internal/worker"
)

func main() {
	cfg, logger := cli.LoadConfig(log.ComponentAutopay)
	ctx, stop := cli.SignalContext(logger)
	defer stop()

	logger.InfoContext(ctx, "Starting autopay-worker", log.FieldOperation, log.OpStartup)

	backendRes, backendCfg := cli.InitBackend(ctx, logger, cfg)
	defer backendRes.Cleanup()
	if backendCfg.Type == backend.MemoryBackend {
		logger.ErrorContext(ctx, "autopay-worker needs a shared store, set DATA_BACKEND=sqlite")
		os.Exit(1)
	}

	amqpClient := cli.InitAMQP(ctx, logger, cfg)
	if amqpClient != nil {
		defer amqpClient.Close()
	}

	checker, err := services.GetDuenessChecker(cfg.AutopayStrategy)
	if err != nil {
		logger.ErrorContext(ctx, "Invalid autopay strategy", log.FieldError, err)
		os.Exit(1)
	}
	processor := services.NewAutopayProcessor(cli.NewFacade(backendRes.Store, cfg, amqpClient), checker)

	logger.InfoContext(ctx, "Autopay processor configured",
		"interval", cfg.AutopayInterval,
		"strategy", cfg.AutopayStrategy,
		"timezone", cfg.ReportTimezone)

	_ = worker.Every(ctx, "autopay", cfg.AutopayInterval, func(ctx context.Context, now time.Time) error {
		count, err := processor.ProcessDueInstallments(ctx, now)
		if err != nil {
			return err
		}
		logger.InfoContext(ctx, "Autopay run complete",
			"installments_paid", count,
			"next_check", now.Add(cfg.AutopayInterval).Format("15:04:05"))
		return nil
	})

	logger.InfoContext(context.Background(), "autopay-worker shutdown complete")
}
