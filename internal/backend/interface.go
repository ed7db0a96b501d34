package backend

import (
	"context"

	"budzet/internal/ledger"
	"budzet/internal/sheets"
)

// Store is everything a process needs from persistence: the ledger's
// records and the event outbox.
type Store interface {
	ledger.Store
	ledger.Journal
	Close() error
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the store and optional hooks around it.
type BackendResult struct {
	Store Store
	// Ping checks the store for readiness probes; nil when there is nothing to check.
	Ping    func(context.Context) error
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
	CreateJournalSink(ctx context.Context, config Config) (sheets.JournalWriter, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Google Sheets journal; empty SpreadsheetID keeps the journal in memory.
	GoogleSpreadsheetID      string
	GoogleJournalSheetName   string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	GoogleOAuthClientFile    string
	GoogleOAuthTokenFile     string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
