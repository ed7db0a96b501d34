// Package worker mirrors the ledger event outbox into the spreadsheet journal.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"budzet/internal/amqp"
	"budzet/internal/core"
	"budzet/internal/ledger"
	"budzet/internal/sheets"
)

// JournalWorker copies committed ledger events to the journal sink and marks
// them synced in the outbox.
type JournalWorker struct {
	journal   ledger.Journal
	sink      sheets.JournalWriter
	batchSize int
}

func NewJournalWorker(journal ledger.Journal, sink sheets.JournalWriter, batchSize int) *JournalWorker {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &JournalWorker{
		journal:   journal,
		sink:      sink,
		batchSize: batchSize,
	}
}

// HandleEventMessage processes one bus notification. The message only names
// the event; its content is read back from the outbox.
func (w *JournalWorker) HandleEventMessage(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	slog.InfoContext(ctx, "Processing ledger event message",
		"event_id", msg.EventID,
		"kind", msg.Kind)

	ev, err := w.journal.Event(ctx, msg.EventID)
	if err != nil {
		return fmt.Errorf("get event from journal: %w", err)
	}
	if ev.SyncStatus == core.SyncDone {
		slog.DebugContext(ctx, "Event already synced", "event_id", ev.ID)
		return nil
	}
	return w.syncEvent(ctx, ev)
}

// ProcessPendingEvents syncs one batch of unsynced events. It is the backstop
// for lost bus messages and failed appends.
func (w *JournalWorker) ProcessPendingEvents(ctx context.Context) error {
	_, _, err := w.processBatch(ctx, w.batchSize)
	return err
}

// StartupSyncCheck drains a larger batch at worker startup to recover from
// downtime.
func (w *JournalWorker) StartupSyncCheck(ctx context.Context) error {
	synced, failed, err := w.processBatch(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup sync: %w", err)
	}
	if synced+failed == 0 {
		slog.InfoContext(ctx, "No pending ledger events found on startup")
		return nil
	}
	slog.InfoContext(ctx, "Startup sync completed",
		"total", synced+failed,
		"synced", synced,
		"errors", failed)
	return nil
}

func (w *JournalWorker) processBatch(ctx context.Context, limit int) (synced, failed int, err error) {
	pending, err := w.journal.PendingEvents(ctx, limit)
	if err != nil {
		return 0, 0, fmt.Errorf("get pending events: %w", err)
	}
	if len(pending) == 0 {
		return 0, 0, nil
	}

	slog.InfoContext(ctx, "Processing pending ledger events", "count", len(pending))
	for _, ev := range pending {
		if err := ctx.Err(); err != nil {
			return synced, failed, err
		}
		if err := w.syncEvent(ctx, ev); err != nil {
			slog.ErrorContext(ctx, "Failed to sync ledger event", "event_id", ev.ID, "error", err)
			failed++
			continue
		}
		synced++
	}
	return synced, failed, nil
}

func (w *JournalWorker) syncEvent(ctx context.Context, ev core.LedgerEvent) error {
	ref, err := w.sink.AppendJournal(ctx, ev)
	if err != nil {
		if markErr := w.journal.MarkEventSyncError(ctx, ev.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "event_id", ev.ID, "error", markErr)
		}
		return fmt.Errorf("append to journal: %w", err)
	}

	// The row exists even if marking fails; the event may be appended again
	// on the next sweep.
	if err := w.journal.MarkEventSynced(ctx, ev.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to mark as synced", "event_id", ev.ID, "error", err)
	}

	slog.InfoContext(ctx, "Successfully synced ledger event",
		"event_id", ev.ID,
		"kind", ev.Kind,
		"journal_ref", ref,
		"amount", ev.Amount.String())
	return nil
}
