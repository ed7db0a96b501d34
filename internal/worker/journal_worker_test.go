package worker

import (
	"context"
	"testing"

	"budzet/internal/amqp"
	"budzet/internal/core"
	"budzet/internal/ledger"
	sheetsmem "budzet/internal/sheets/memory"
	"budzet/internal/storage/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T) (*memory.Store, *ledger.Ledger) {
	t.Helper()
	store := memory.New()
	l := ledger.New(store)
	ctx := context.Background()
	b, err := l.OpenBank(ctx, "Main", core.MustParseMoney("100"))
	require.NoError(t, err)
	_, err = l.Deposit(ctx, b.ID, core.MustParseMoney("5"))
	require.NoError(t, err)
	return store, l
}

func TestHandleEventMessage(t *testing.T) {
	store, _ := seed(t)
	sink := sheetsmem.New()
	w := NewJournalWorker(store, sink, 10)
	ctx := context.Background()

	require.NoError(t, w.HandleEventMessage(ctx, &amqp.LedgerEventMessage{EventID: 2}))
	// Redelivery of a synced event appends nothing.
	require.NoError(t, w.HandleEventMessage(ctx, &amqp.LedgerEventMessage{EventID: 2}))

	rows, err := sink.ListJournal(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, core.EventBankDeposit, rows[0].Kind)

	ev, err := store.Event(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, core.SyncDone, ev.SyncStatus)

	assert.Error(t, w.HandleEventMessage(ctx, &amqp.LedgerEventMessage{EventID: 99}))
}

func TestProcessPendingEventsRetriesFailures(t *testing.T) {
	store, _ := seed(t)
	sink := sheetsmem.New()
	w := NewJournalWorker(store, sink, 10)
	ctx := context.Background()

	sink.FailNext(1)
	require.NoError(t, w.ProcessPendingEvents(ctx))

	first, err := store.Event(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, core.SyncError, first.SyncStatus)

	require.NoError(t, w.StartupSyncCheck(ctx))
	pending, err := store.PendingEvents(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, pending)

	rows, err := sink.ListJournal(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}
