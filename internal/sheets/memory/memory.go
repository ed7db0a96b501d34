// Package memory is an in-process journal sink for development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"budzet/internal/core"
	ports "budzet/internal/sheets"
)

type Store struct {
	mu   sync.Mutex
	rows []core.LedgerEvent
	// failNext makes the next appends fail, for exercising retries.
	failNext int
}

var (
	_ ports.JournalWriter = (*Store)(nil)
	_ ports.JournalReader = (*Store)(nil)
)

func New() *Store {
	return &Store{}
}

// AppendJournal stores ev and returns a synthetic row reference.
func (s *Store) AppendJournal(_ context.Context, ev core.LedgerEvent) (string, error) {
	if ev.ID == 0 {
		return "", fmt.Errorf("event has no id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext > 0 {
		s.failNext--
		return "", fmt.Errorf("journal unavailable")
	}
	s.rows = append(s.rows, ev)
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

func (s *Store) ListJournal(_ context.Context) ([]core.LedgerEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.LedgerEvent(nil), s.rows...), nil
}

// FailNext makes the next n appends return an error.
func (s *Store) FailNext(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = n
}
