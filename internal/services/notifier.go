package services

import (
	"context"
	"log/slog"

	"budzet/internal/core"
)

// EventPublisher announces committed ledger events on the bus.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, ev core.LedgerEvent) error
}

// BusNotifier forwards ledger events to the bus. A failed publish is only
// logged: the event row is already in the outbox and the journal worker's
// periodic scan picks it up.
type BusNotifier struct {
	publisher EventPublisher
}

func NewBusNotifier(publisher EventPublisher) *BusNotifier {
	return &BusNotifier{publisher: publisher}
}

func (n *BusNotifier) Notify(ctx context.Context, ev core.LedgerEvent) {
	if n.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not available, skipping event message", "event_id", ev.ID)
		return
	}
	if err := n.publisher.PublishLedgerEvent(ctx, ev); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"event_id", ev.ID,
			"kind", ev.Kind,
			"error", err)
	}
}
