// Package memory is a process-local ledger store for development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"budzet/internal/core"
	"budzet/internal/ledger"
)

type Store struct {
	mu          sync.Mutex
	banks       map[int64]core.Bank
	groups      map[int64]core.Group
	categories  map[int64]core.Category
	loans       map[int64]core.Loan
	idempotency map[string]ledger.IdempotencyRecord
	events      []core.LedgerEvent
	nextID      map[string]int64
}

func New() *Store {
	return &Store{
		banks:       make(map[int64]core.Bank),
		groups:      make(map[int64]core.Group),
		categories:  make(map[int64]core.Category),
		loans:       make(map[int64]core.Loan),
		idempotency: make(map[string]ledger.IdempotencyRecord),
		nextID:      make(map[string]int64),
	}
}

func (s *Store) id(table string) int64 {
	s.nextID[table]++
	return s.nextID[table]
}

// Apply validates the whole mutation before touching any map.
func (s *Store) Apply(_ context.Context, m ledger.Mutation) (ledger.Applied, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range m.Banks {
		cur, ok := s.banks[b.ID]
		if !ok {
			return ledger.Applied{}, fmt.Errorf("update bank %d: %w", b.ID, core.ErrNotFound)
		}
		if cur.Version != b.Version-1 {
			return ledger.Applied{}, fmt.Errorf("update bank %d at version %d: %w", b.ID, cur.Version, core.ErrVersionConflict)
		}
	}
	if m.Loan != nil {
		cur, ok := s.loans[m.Loan.ID]
		if !ok {
			return ledger.Applied{}, fmt.Errorf("update loan %d: %w", m.Loan.ID, core.ErrNotFound)
		}
		if cur.Version != m.Loan.Version-1 {
			return ledger.Applied{}, fmt.Errorf("update loan %d at version %d: %w", m.Loan.ID, cur.Version, core.ErrVersionConflict)
		}
	}
	if m.Category != nil {
		if _, ok := s.categories[m.Category.ID]; !ok {
			return ledger.Applied{}, fmt.Errorf("update category %d: %w", m.Category.ID, core.ErrNotFound)
		}
	}
	if m.NewCategory != nil {
		if _, ok := s.groups[m.NewCategory.GroupID]; !ok {
			return ledger.Applied{}, fmt.Errorf("insert category into group %d: %w", m.NewCategory.GroupID, core.ErrNotFound)
		}
	}
	if m.Idempotency != nil {
		if _, ok := s.idempotency[m.Idempotency.Key]; ok {
			return ledger.Applied{}, fmt.Errorf("key %q: %w", m.Idempotency.Key, core.ErrDuplicateRequest)
		}
	}

	var a ledger.Applied
	if m.NewBank != nil {
		b := *m.NewBank
		b.ID = s.id("banks")
		s.banks[b.ID] = b
		a.BankID = b.ID
	}
	for _, b := range m.Banks {
		s.banks[b.ID] = b
	}
	if m.NewGroup != nil {
		g := *m.NewGroup
		g.ID = s.id("groups")
		g.Categories = nil
		s.groups[g.ID] = g
		a.GroupID = g.ID
	}
	if m.NewCategory != nil {
		c := *m.NewCategory
		c.ID = s.id("categories")
		s.categories[c.ID] = c
		a.CategoryID = c.ID
	}
	if m.Category != nil {
		s.categories[m.Category.ID] = *m.Category
	}
	if m.NewLoan != nil {
		l := *m.NewLoan
		l.ID = s.id("loans")
		s.loans[l.ID] = l
		a.LoanID = l.ID
	}
	if m.Loan != nil {
		s.loans[m.Loan.ID] = *m.Loan
	}
	if m.Idempotency != nil {
		rec := *m.Idempotency
		rec.CategoryID = a.CategoryID
		s.idempotency[rec.Key] = rec
	}

	ev := m.Event
	ledger.FillEventIDs(&ev, a)
	ev.ID = s.id("events")
	if ev.SyncStatus == "" {
		ev.SyncStatus = core.SyncPending
	}
	s.events = append(s.events, ev)
	a.EventID = ev.ID
	return a, nil
}

func (s *Store) Bank(_ context.Context, id int64) (core.Bank, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.banks[id]
	if !ok {
		return core.Bank{}, fmt.Errorf("bank %d: %w", id, core.ErrNotFound)
	}
	return b, nil
}

func (s *Store) Banks(_ context.Context) ([]core.Bank, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Bank, 0, len(s.banks))
	for _, b := range s.banks {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) groupWithCategories(g core.Group) core.Group {
	g.Categories = []core.Category{}
	for _, c := range s.categories {
		if c.GroupID == g.ID {
			g.Categories = append(g.Categories, c)
		}
	}
	sort.Slice(g.Categories, func(i, j int) bool { return g.Categories[i].ID < g.Categories[j].ID })
	return g
}

func (s *Store) Group(_ context.Context, id int64) (core.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[id]
	if !ok {
		return core.Group{}, fmt.Errorf("group %d: %w", id, core.ErrNotFound)
	}
	return s.groupWithCategories(g), nil
}

func (s *Store) Groups(_ context.Context) ([]core.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Group, 0, len(s.groups))
	for _, g := range s.groups {
		out = append(out, s.groupWithCategories(g))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) Category(_ context.Context, id int64) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[id]
	if !ok {
		return core.Category{}, fmt.Errorf("category %d: %w", id, core.ErrNotFound)
	}
	return c, nil
}

func (s *Store) Categories(_ context.Context) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) Loan(_ context.Context, id int64) (core.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.loans[id]
	if !ok {
		return core.Loan{}, fmt.Errorf("loan %d: %w", id, core.ErrNotFound)
	}
	return l, nil
}

func (s *Store) Loans(_ context.Context) ([]core.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Loan, 0, len(s.loans))
	for _, l := range s.loans {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) IdempotencyRecord(_ context.Context, key string) (ledger.IdempotencyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.idempotency[key]
	if !ok {
		return ledger.IdempotencyRecord{}, fmt.Errorf("idempotency key %q: %w", key, core.ErrNotFound)
	}
	return rec, nil
}

// PendingEvents returns up to limit events not yet synced, oldest first.
func (s *Store) PendingEvents(_ context.Context, limit int) ([]core.LedgerEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.LedgerEvent
	for _, ev := range s.events {
		if ev.SyncStatus == core.SyncDone {
			continue
		}
		out = append(out, ev)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) Event(_ context.Context, id int64) (core.LedgerEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id < 1 || id > int64(len(s.events)) {
		return core.LedgerEvent{}, fmt.Errorf("event %d: %w", id, core.ErrNotFound)
	}
	return s.events[id-1], nil
}

func (s *Store) MarkEventSynced(ctx context.Context, id int64) error {
	return s.setSyncStatus(id, core.SyncDone)
}

func (s *Store) MarkEventSyncError(ctx context.Context, id int64) error {
	return s.setSyncStatus(id, core.SyncError)
}

func (s *Store) setSyncStatus(id int64, status core.SyncStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id < 1 || id > int64(len(s.events)) {
		return fmt.Errorf("event %d: %w", id, core.ErrNotFound)
	}
	s.events[id-1].SyncStatus = status
	return nil
}

// Close is a no-op so the store satisfies the same lifecycle as SQLite.
func (s *Store) Close() error { return nil }

var (
	_ ledger.Store   = (*Store)(nil)
	_ ledger.Journal = (*Store)(nil)
)
