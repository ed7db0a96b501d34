package amqp

import (
	"encoding/json"
	"time"

	"budzet/internal/core"
)

// LedgerEventMessage announces a committed ledger event. It carries only the
// outbox id; the worker reads the full event from the journal.
type LedgerEventMessage struct {
	EventID   int64          `json:"event_id"`
	Kind      core.EventKind `json:"kind"`
	Timestamp time.Time      `json:"timestamp"`
}

func NewLedgerEventMessage(ev core.LedgerEvent) *LedgerEventMessage {
	return &LedgerEventMessage{
		EventID:   ev.ID,
		Kind:      ev.Kind,
		Timestamp: time.Now(),
	}
}

func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
