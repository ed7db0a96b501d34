package backend

import (
	"context"
	"fmt"
	"log/slog"

	"budzet/internal/sheets"
	gsheet "budzet/internal/sheets/google"
	sinkmemory "budzet/internal/sheets/memory"
	"budzet/internal/storage"
	"budzet/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Store:   repo,
		Ping:    repo.Ping,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend() (*BackendResult, error) {
	store := memory.New()

	f.logger.Warn("Initialized memory backend, ledger data is lost on restart")

	return &BackendResult{
		Store:   store,
		Cleanup: store.Close,
	}, nil
}

// CreateJournalSink returns the Google Sheets journal when a spreadsheet is
// configured and an in-memory one otherwise.
func (f *DefaultFactory) CreateJournalSink(ctx context.Context, config Config) (sheets.JournalWriter, error) {
	if config.GoogleSpreadsheetID == "" {
		f.logger.Info("No spreadsheet configured, journal kept in memory")
		return sinkmemory.New(), nil
	}

	cli, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:      config.GoogleSpreadsheetID,
		SheetName:          config.GoogleJournalSheetName,
		ServiceAccountJSON: config.GoogleServiceAccountJSON,
		ServiceAccountFile: config.GoogleServiceAccountFile,
		OAuthClientFile:    config.GoogleOAuthClientFile,
		OAuthTokenFile:     config.GoogleOAuthTokenFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Initialized Google Sheets journal",
		"spreadsheet_id", config.GoogleSpreadsheetID,
		"sheet", config.GoogleJournalSheetName)
	return cli, nil
}
