// Package sheets declares the ports of the spreadsheet journal mirror.
package sheets

import (
	"context"

	"budzet/internal/core"
)

// Ports for outbound adapters.
type (
	// JournalWriter appends one ledger event as a journal row.
	JournalWriter interface {
		AppendJournal(ctx context.Context, ev core.LedgerEvent) (rowRef string, err error)
	}

	// JournalReader lists the rows written so far, oldest first.
	JournalReader interface {
		ListJournal(ctx context.Context) ([]core.LedgerEvent, error)
	}
)
