// Package cli holds the start-up steps shared by cmd/budzet,
// cmd/budzet-worker and cmd/autopay-worker.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"budzet/internal/amqp"
	"budzet/internal/backend"
	"budzet/internal/config"
	"budzet/internal/ledger"
	"budzet/internal/log"
	"budzet/internal/services"
	"budzet/internal/sheets"

	"github.com/joho/godotenv"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadConfig reads the environment, sets up the default logger for component
// and exits the process when the configuration is invalid.
func LoadConfig(component string) (*config.Config, *log.Logger) {
	LoadEnvFile()
	cfg := config.Load()
	logger := log.Setup(cfg.LogLevel, component)
	if err := cfg.Validate(); err != nil {
		logger.ErrorContext(context.Background(), "Configuration validation failed",
			log.FieldOperation, log.OpValidate,
			log.FieldError, err)
		os.Exit(1)
	}
	return cfg, logger
}

// InitBackend opens the configured store or exits the process.
func InitBackend(ctx context.Context, logger *log.Logger, cfg *config.Config) (*backend.BackendResult, backend.Config) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.ErrorContext(ctx, "Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, bcfg)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to initialize backend",
			log.FieldError, err,
			"backend", bcfg.Type.String())
		os.Exit(1)
	}
	return res, bcfg
}

// InitAMQP connects to the broker. It returns nil when AMQP is not
// configured or unreachable; events then wait in the outbox for the
// worker's periodic scan.
func InitAMQP(ctx context.Context, logger *log.Logger, cfg *config.Config) *amqp.Client {
	if cfg.AMQPURL == "" {
		logger.InfoContext(ctx, "AMQP not configured, ledger events stay in the outbox")
		return nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.WarnContext(ctx, "Failed to connect to AMQP, continuing without event bus", log.FieldError, err)
		return nil
	}
	logger.InfoContext(ctx, "Connected to AMQP",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue)
	return client
}

// NewFacade wires a ledger over store and announces its events through
// publisher, which may be nil.
func NewFacade(store ledger.Store, cfg *config.Config, publisher *amqp.Client) *services.LedgerFacade {
	var opts []ledger.Option
	if publisher != nil {
		opts = append(opts, ledger.WithNotifier(services.NewBusNotifier(publisher)))
	}
	return services.NewLedgerFacade(ledger.New(store, opts...), services.FacadeConfig{
		Location: cfg.Location(),
		Currency: cfg.Currency,
	})
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.InfoContext(ctx, "Shutdown signal received",
				"signal", sig.String(),
				log.FieldOperation, log.OpShutdown)
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// InitJournalSink builds the journal the worker appends ledger events to.
func InitJournalSink(ctx context.Context, logger *log.Logger, bcfg backend.Config) (sheets.JournalWriter, error) {
	return backend.NewFactory(logger.Logger).CreateJournalSink(ctx, bcfg)
}
