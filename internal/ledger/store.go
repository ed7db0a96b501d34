package ledger

import (
	"context"

	"budzet/internal/core"
)

// Store persists ledger records. Reads return an error wrapping
// core.ErrNotFound for unknown ids.
type Store interface {
	// Apply commits every part of m or none of it. Updated banks and loans
	// carry their new Version; the store rejects the update with
	// core.ErrVersionConflict unless the stored row is at Version-1.
	// A reused idempotency key fails with core.ErrDuplicateRequest.
	Apply(ctx context.Context, m Mutation) (Applied, error)

	Bank(ctx context.Context, id int64) (core.Bank, error)
	Banks(ctx context.Context) ([]core.Bank, error)
	Group(ctx context.Context, id int64) (core.Group, error)
	Groups(ctx context.Context) ([]core.Group, error)
	Category(ctx context.Context, id int64) (core.Category, error)
	Categories(ctx context.Context) ([]core.Category, error)
	Loan(ctx context.Context, id int64) (core.Loan, error)
	Loans(ctx context.Context) ([]core.Loan, error)
	IdempotencyRecord(ctx context.Context, key string) (IdempotencyRecord, error)
}

// Journal gives the export side access to the event outbox.
type Journal interface {
	PendingEvents(ctx context.Context, limit int) ([]core.LedgerEvent, error)
	Event(ctx context.Context, id int64) (core.LedgerEvent, error)
	MarkEventSynced(ctx context.Context, id int64) error
	MarkEventSyncError(ctx context.Context, id int64) error
}

// Mutation is one atomic change to the ledger. Zero-valued parts are skipped.
// The event is always written; ids left at zero in it are filled from the
// records the mutation creates.
type Mutation struct {
	NewBank     *core.Bank
	Banks       []core.Bank
	NewGroup    *core.Group
	NewCategory *core.Category
	Category    *core.Category
	NewLoan     *core.Loan
	Loan        *core.Loan
	Idempotency *IdempotencyRecord // CategoryID is filled by the store
	Event       core.LedgerEvent
}

// Applied reports the ids assigned by a committed mutation.
type Applied struct {
	BankID     int64
	GroupID    int64
	CategoryID int64
	LoanID     int64
	EventID    int64
}

// IdempotencyRecord ties a client key to the category it created.
type IdempotencyRecord struct {
	Key         string
	Fingerprint string
	CategoryID  int64
}

// Notifier learns about committed events once every lock is released.
type Notifier interface {
	Notify(ctx context.Context, ev core.LedgerEvent)
}

// FillEventIDs copies ids of created records into ev where ev leaves them unset.
func FillEventIDs(ev *core.LedgerEvent, a Applied) {
	if ev.BankID == 0 {
		ev.BankID = a.BankID
	}
	if ev.GroupID == 0 {
		ev.GroupID = a.GroupID
	}
	if ev.CategoryID == 0 {
		ev.CategoryID = a.CategoryID
	}
	if ev.LoanID == 0 {
		ev.LoanID = a.LoanID
	}
}
