// Package ledger keeps bank balances and category allocations consistent.
//
// Every mutation runs under exclusive locks on the banks (and category or
// loan) it touches, acquired in ascending id order, and commits through a
// single Store.Apply so the balance change, the record change and the journal
// event land together or not at all. Notifications go out after the locks are
// released.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"budzet/internal/core"
)

type Ledger struct {
	store      Store
	notifier   Notifier
	banks      *keyedMutex
	categories *keyedMutex
	loans      *keyedMutex
	now        func() time.Time
}

type Option func(*Ledger)

// WithNotifier sets who hears about committed events.
func WithNotifier(n Notifier) Option {
	return func(l *Ledger) { l.notifier = n }
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func New(store Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:      store,
		banks:      newKeyedMutex(),
		categories: newKeyedMutex(),
		loans:      newKeyedMutex(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// AllocateRequest describes money moved from a bank into a group.
type AllocateRequest struct {
	GroupID        int64
	BankID         int64
	Title          string
	Note           string
	Amount         core.Money
	IdempotencyKey string
}

func (r AllocateRequest) fingerprint() string {
	return fmt.Sprintf("%d|%d|%s|%s|%s", r.GroupID, r.BankID, strings.TrimSpace(r.Title), r.Note, r.Amount)
}

// CategoryUpdate changes the fields that are set.
type CategoryUpdate struct {
	Title  *string
	Note   *string
	Amount *core.Money
}

// Snapshot is a lock-free view of the ledger. It may miss at most the
// transactions in flight while it was read.
type Snapshot struct {
	Banks   []core.Bank
	Groups  []core.Group
	Loans   []core.Loan
	TakenAt time.Time
}

func (l *Ledger) commit(ctx context.Context, op string, m Mutation) (Applied, core.LedgerEvent, error) {
	if m.Event.CreatedAt.IsZero() {
		m.Event.CreatedAt = l.now()
	}
	m.Event.SyncStatus = core.SyncPending
	applied, err := l.store.Apply(ctx, m)
	if err != nil {
		return Applied{}, core.LedgerEvent{}, storeError(op, err)
	}
	ev := m.Event
	ev.ID = applied.EventID
	FillEventIDs(&ev, applied)
	return applied, ev, nil
}

func (l *Ledger) notify(ctx context.Context, ev core.LedgerEvent) {
	slog.InfoContext(ctx, "Ledger event committed",
		"event_id", ev.ID,
		"kind", ev.Kind,
		"bank_id", ev.BankID,
		"category_id", ev.CategoryID,
		"loan_id", ev.LoanID,
		"amount", ev.Amount.String())
	if l.notifier != nil {
		l.notifier.Notify(ctx, ev)
	}
}

// storeError classifies store failures that are not lookups.
func storeError(op string, err error) error {
	var e *core.Error
	if errors.As(err, &e) {
		return err
	}
	return core.Unavailable(op, err)
}

// lookupError turns a not-found read into kind, anything else into Unavailable.
func lookupError(op string, err error, kind core.ErrorKind, field string, id int64) error {
	if errors.Is(err, core.ErrNotFound) {
		return core.Reject(kind, field, "no record with id %d", id)
	}
	return core.Unavailable(op, err)
}

func requirePositive(field string, amount core.Money) error {
	if !amount.IsPositive() {
		return core.Reject(core.KindInvalidArgument, field, "amount must be greater than zero")
	}
	if amount.ExceedsMax() {
		return core.Reject(core.KindInvalidArgument, field, "amount exceeds the maximum of %s", core.MaxAmount)
	}
	return nil
}

func (l *Ledger) loadBank(ctx context.Context, id int64, field string) (core.Bank, error) {
	b, err := l.store.Bank(ctx, id)
	if err != nil {
		return core.Bank{}, lookupError("load bank", err, core.KindUnknownBank, field, id)
	}
	return b, nil
}

func openBank(b core.Bank, field string) error {
	if b.Closed {
		return core.Reject(core.KindBankClosed, field, "bank %d is closed", b.ID)
	}
	return nil
}

func debit(b core.Bank, amount core.Money, field string) (core.Bank, error) {
	if amount.GreaterThan(b.Balance) {
		return core.Bank{}, core.Reject(core.KindInsufficientFunds, field,
			"bank %d holds %s, %s requested", b.ID, b.Balance, amount)
	}
	b.Balance = b.Balance.Sub(amount)
	b.Version++
	return b, nil
}

func credit(b core.Bank, amount core.Money) core.Bank {
	b.Balance = b.Balance.Add(amount)
	b.Version++
	return b
}

// OpenBank creates a bank holding opening.
func (l *Ledger) OpenBank(ctx context.Context, name string, opening core.Money) (core.Bank, error) {
	b := core.Bank{
		Name:      strings.TrimSpace(name),
		Balance:   opening,
		Deposited: opening,
		Version:   1,
		CreatedAt: l.now(),
	}
	if err := b.Validate(); err != nil {
		return core.Bank{}, err
	}
	applied, ev, err := l.commit(ctx, "open bank", Mutation{
		NewBank: &b,
		Event:   core.LedgerEvent{Kind: core.EventBankOpened, Amount: opening, Description: b.Name},
	})
	if err != nil {
		return core.Bank{}, err
	}
	b.ID = applied.BankID
	l.notify(ctx, ev)
	return b, nil
}

// Deposit adds amount to a bank.
func (l *Ledger) Deposit(ctx context.Context, bankID int64, amount core.Money) (core.Bank, error) {
	if err := requirePositive("amount", amount); err != nil {
		return core.Bank{}, err
	}
	b, ev, err := l.deposit(ctx, bankID, amount)
	if err != nil {
		return core.Bank{}, err
	}
	l.notify(ctx, ev)
	return b, nil
}

func (l *Ledger) deposit(ctx context.Context, bankID int64, amount core.Money) (core.Bank, core.LedgerEvent, error) {
	unlock := l.banks.Lock(bankID)
	defer unlock()

	b, err := l.loadBank(ctx, bankID, "bank_id")
	if err != nil {
		return core.Bank{}, core.LedgerEvent{}, err
	}
	if err := openBank(b, "bank_id"); err != nil {
		return core.Bank{}, core.LedgerEvent{}, err
	}
	if b.Deposited.Add(amount).ExceedsMax() || b.Balance.Add(amount).ExceedsMax() {
		return core.Bank{}, core.LedgerEvent{}, core.Reject(core.KindInvalidArgument, "amount",
			"bank %d cannot take more than %s in deposits", b.ID, core.MaxAmount)
	}
	b = credit(b, amount)
	b.Deposited = b.Deposited.Add(amount)

	_, ev, err := l.commit(ctx, "deposit", Mutation{
		Banks: []core.Bank{b},
		Event: core.LedgerEvent{Kind: core.EventBankDeposit, BankID: b.ID, Amount: amount},
	})
	return b, ev, err
}

// Withdraw takes amount out of a bank.
func (l *Ledger) Withdraw(ctx context.Context, bankID int64, amount core.Money) (core.Bank, error) {
	if err := requirePositive("amount", amount); err != nil {
		return core.Bank{}, err
	}
	b, ev, err := l.withdraw(ctx, bankID, amount)
	if err != nil {
		return core.Bank{}, err
	}
	l.notify(ctx, ev)
	return b, nil
}

func (l *Ledger) withdraw(ctx context.Context, bankID int64, amount core.Money) (core.Bank, core.LedgerEvent, error) {
	unlock := l.banks.Lock(bankID)
	defer unlock()

	b, err := l.loadBank(ctx, bankID, "bank_id")
	if err != nil {
		return core.Bank{}, core.LedgerEvent{}, err
	}
	if err := openBank(b, "bank_id"); err != nil {
		return core.Bank{}, core.LedgerEvent{}, err
	}
	if b, err = debit(b, amount, "amount"); err != nil {
		return core.Bank{}, core.LedgerEvent{}, err
	}
	b.Withdrawn = b.Withdrawn.Add(amount)

	_, ev, err := l.commit(ctx, "withdraw", Mutation{
		Banks: []core.Bank{b},
		Event: core.LedgerEvent{Kind: core.EventBankWithdrawal, BankID: b.ID, Amount: amount},
	})
	return b, ev, err
}

// CloseBank freezes a bank whose balance is zero. Closing a closed bank is a no-op.
func (l *Ledger) CloseBank(ctx context.Context, bankID int64) (core.Bank, error) {
	b, ev, err := l.closeBank(ctx, bankID)
	if err != nil {
		return core.Bank{}, err
	}
	if ev.ID != 0 {
		l.notify(ctx, ev)
	}
	return b, nil
}

func (l *Ledger) closeBank(ctx context.Context, bankID int64) (core.Bank, core.LedgerEvent, error) {
	unlock := l.banks.Lock(bankID)
	defer unlock()

	b, err := l.loadBank(ctx, bankID, "bank_id")
	if err != nil {
		return core.Bank{}, core.LedgerEvent{}, err
	}
	if b.Closed {
		return b, core.LedgerEvent{}, nil
	}
	if !b.Balance.IsZero() {
		return core.Bank{}, core.LedgerEvent{}, core.Reject(core.KindInvalidArgument, "balance",
			"bank %d still holds %s", b.ID, b.Balance)
	}
	cats, err := l.store.Categories(ctx)
	if err != nil {
		return core.Bank{}, core.LedgerEvent{}, core.Unavailable("close bank", err)
	}
	funded := 0
	for _, c := range cats {
		if c.BankID == b.ID {
			funded++
		}
	}
	if funded > 0 {
		return core.Bank{}, core.LedgerEvent{}, core.Reject(core.KindInvalidArgument, "bank_id",
			"bank %d still funds %d categories", b.ID, funded)
	}
	b.Closed = true
	b.Version++

	_, ev, err := l.commit(ctx, "close bank", Mutation{
		Banks: []core.Bank{b},
		Event: core.LedgerEvent{Kind: core.EventBankClosed, BankID: b.ID, Description: b.Name},
	})
	return b, ev, err
}

// CreateGroup creates an empty budget group.
func (l *Ledger) CreateGroup(ctx context.Context, title, authorID string) (core.Group, error) {
	g := core.Group{
		Title:      strings.TrimSpace(title),
		AuthorID:   strings.TrimSpace(authorID),
		CreatedAt:  l.now(),
		Categories: []core.Category{},
	}
	if err := g.Validate(); err != nil {
		return core.Group{}, err
	}
	applied, ev, err := l.commit(ctx, "create group", Mutation{
		NewGroup: &g,
		Event:    core.LedgerEvent{Kind: core.EventGroupCreated, Description: g.Title},
	})
	if err != nil {
		return core.Group{}, err
	}
	g.ID = applied.GroupID
	l.notify(ctx, ev)
	return g, nil
}

// AllocateCategory earmarks money from a bank into a new category of a group.
// With an idempotency key, a retry returns the category the first call made.
func (l *Ledger) AllocateCategory(ctx context.Context, req AllocateRequest) (core.Category, error) {
	c := core.Category{
		GroupID:        req.GroupID,
		BankID:         req.BankID,
		Title:          strings.TrimSpace(req.Title),
		Note:           req.Note,
		AssignedAmount: req.Amount,
	}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}

	if req.IdempotencyKey != "" {
		if prior, ok, err := l.replay(ctx, req); err != nil || ok {
			return prior, err
		}
	}
	if _, err := l.store.Group(ctx, req.GroupID); err != nil {
		return core.Category{}, lookupError("load group", err, core.KindUnknownGroup, "group_id", req.GroupID)
	}

	c, ev, err := l.allocate(ctx, req, c)
	if errors.Is(err, core.ErrDuplicateRequest) {
		// Another process committed the same key first.
		if prior, ok, rerr := l.replay(ctx, req); rerr != nil || ok {
			return prior, rerr
		}
		return core.Category{}, err
	}
	if err != nil {
		return core.Category{}, err
	}
	if ev.ID != 0 {
		l.notify(ctx, ev)
	}
	return c, nil
}

func (l *Ledger) allocate(ctx context.Context, req AllocateRequest, c core.Category) (core.Category, core.LedgerEvent, error) {
	unlock := l.banks.Lock(req.BankID)
	defer unlock()

	if req.IdempotencyKey != "" {
		if prior, ok, err := l.replay(ctx, req); err != nil || ok {
			return prior, core.LedgerEvent{}, err
		}
	}

	b, err := l.loadBank(ctx, req.BankID, "bank_id")
	if err != nil {
		return core.Category{}, core.LedgerEvent{}, err
	}
	if err := openBank(b, "bank_id"); err != nil {
		return core.Category{}, core.LedgerEvent{}, err
	}
	if b, err = debit(b, c.AssignedAmount, "amount"); err != nil {
		return core.Category{}, core.LedgerEvent{}, err
	}

	c.CreatedAt = l.now()
	m := Mutation{
		Banks:       []core.Bank{b},
		NewCategory: &c,
		Event: core.LedgerEvent{
			Kind:        core.EventCategoryAllocated,
			BankID:      b.ID,
			GroupID:     c.GroupID,
			Amount:      c.AssignedAmount,
			Description: c.Title,
		},
	}
	if req.IdempotencyKey != "" {
		m.Idempotency = &IdempotencyRecord{Key: req.IdempotencyKey, Fingerprint: req.fingerprint()}
	}
	applied, ev, err := l.commit(ctx, "allocate category", m)
	if err != nil {
		return core.Category{}, core.LedgerEvent{}, err
	}
	c.ID = applied.CategoryID
	return c, ev, nil
}

// replay resolves an idempotency key. ok is false when the key is unused.
func (l *Ledger) replay(ctx context.Context, req AllocateRequest) (core.Category, bool, error) {
	rec, err := l.store.IdempotencyRecord(ctx, req.IdempotencyKey)
	if errors.Is(err, core.ErrNotFound) {
		return core.Category{}, false, nil
	}
	if err != nil {
		return core.Category{}, false, core.Unavailable("load idempotency key", err)
	}
	if rec.Fingerprint != req.fingerprint() {
		return core.Category{}, false, core.Reject(core.KindInvalidArgument, "idempotency_key",
			"key %q was already used for a different request", req.IdempotencyKey)
	}
	c, err := l.store.Category(ctx, rec.CategoryID)
	if err != nil {
		return core.Category{}, false, core.Unavailable("load category", err)
	}
	slog.InfoContext(ctx, "Idempotent allocation replayed",
		"idempotency_key", req.IdempotencyKey,
		"category_id", c.ID)
	return c, true, nil
}

// ReassignCategoryBank moves a category's money from its bank to newBankID.
func (l *Ledger) ReassignCategoryBank(ctx context.Context, categoryID, newBankID int64) (core.Category, error) {
	c, ev, err := l.reassign(ctx, categoryID, newBankID)
	if err != nil {
		return core.Category{}, err
	}
	if ev.ID != 0 {
		l.notify(ctx, ev)
	}
	return c, nil
}

func (l *Ledger) reassign(ctx context.Context, categoryID, newBankID int64) (core.Category, core.LedgerEvent, error) {
	unlockCategory := l.categories.Lock(categoryID)
	defer unlockCategory()

	c, err := l.store.Category(ctx, categoryID)
	if err != nil {
		return core.Category{}, core.LedgerEvent{}, lookupError("load category", err, core.KindUnknownCategory, "category_id", categoryID)
	}
	if c.BankID == newBankID {
		return c, core.LedgerEvent{}, nil
	}

	unlockBanks := l.banks.Lock(c.BankID, newBankID)
	defer unlockBanks()

	to, err := l.loadBank(ctx, newBankID, "bank_id")
	if err != nil {
		return core.Category{}, core.LedgerEvent{}, err
	}
	from, err := l.loadBank(ctx, c.BankID, "bank_id")
	if err != nil {
		return core.Category{}, core.LedgerEvent{}, core.Unavailable("load current bank", err)
	}
	if err := openBank(to, "bank_id"); err != nil {
		return core.Category{}, core.LedgerEvent{}, err
	}
	if err := openBank(from, "category_id"); err != nil {
		return core.Category{}, core.LedgerEvent{}, err
	}
	if to, err = debit(to, c.AssignedAmount, "bank_id"); err != nil {
		return core.Category{}, core.LedgerEvent{}, err
	}
	from = credit(from, c.AssignedAmount)

	oldBank := c.BankID
	c.BankID = to.ID
	_, ev, err := l.commit(ctx, "reassign category", Mutation{
		Banks:    []core.Bank{from, to},
		Category: &c,
		Event: core.LedgerEvent{
			Kind:        core.EventCategoryReassigned,
			BankID:      to.ID,
			GroupID:     c.GroupID,
			CategoryID:  c.ID,
			Amount:      c.AssignedAmount,
			Description: fmt.Sprintf("from bank %d", oldBank),
		},
	})
	if err != nil {
		return core.Category{}, core.LedgerEvent{}, err
	}
	return c, ev, nil
}

// UpdateCategory edits a category. An amount change is charged to or
// refunded into the category's bank in the same step.
func (l *Ledger) UpdateCategory(ctx context.Context, categoryID int64, upd CategoryUpdate) (core.Category, error) {
	c, ev, err := l.updateCategory(ctx, categoryID, upd)
	if err != nil {
		return core.Category{}, err
	}
	l.notify(ctx, ev)
	return c, nil
}

func (l *Ledger) updateCategory(ctx context.Context, categoryID int64, upd CategoryUpdate) (core.Category, core.LedgerEvent, error) {
	unlockCategory := l.categories.Lock(categoryID)
	defer unlockCategory()

	c, err := l.store.Category(ctx, categoryID)
	if err != nil {
		return core.Category{}, core.LedgerEvent{}, lookupError("load category", err, core.KindUnknownCategory, "category_id", categoryID)
	}

	next := c
	if upd.Title != nil {
		next.Title = strings.TrimSpace(*upd.Title)
	}
	if upd.Note != nil {
		next.Note = *upd.Note
	}
	if upd.Amount != nil {
		next.AssignedAmount = *upd.Amount
	}
	if err := next.Validate(); err != nil {
		return core.Category{}, core.LedgerEvent{}, err
	}

	m := Mutation{
		Category: &next,
		Event: core.LedgerEvent{
			Kind:        core.EventCategoryUpdated,
			BankID:      c.BankID,
			GroupID:     c.GroupID,
			CategoryID:  c.ID,
			Description: next.Title,
		},
	}

	delta := next.AssignedAmount.Sub(c.AssignedAmount)
	if !delta.IsZero() {
		unlockBank := l.banks.Lock(c.BankID)
		defer unlockBank()

		b, err := l.loadBank(ctx, c.BankID, "category_id")
		if err != nil {
			return core.Category{}, core.LedgerEvent{}, core.Unavailable("load category bank", err)
		}
		if err := openBank(b, "amount"); err != nil {
			return core.Category{}, core.LedgerEvent{}, err
		}
		if delta.IsPositive() {
			b, err = debit(b, delta, "amount")
			if err != nil {
				return core.Category{}, core.LedgerEvent{}, err
			}
		} else {
			b = credit(b, delta.Neg())
		}
		m.Banks = []core.Bank{b}
		m.Event.Amount = delta
	}

	_, ev, err := l.commit(ctx, "update category", m)
	if err != nil {
		return core.Category{}, core.LedgerEvent{}, err
	}
	return next, ev, nil
}

func (l *Ledger) Bank(ctx context.Context, id int64) (core.Bank, error) {
	return l.loadBank(ctx, id, "bank_id")
}

func (l *Ledger) Banks(ctx context.Context) ([]core.Bank, error) {
	banks, err := l.store.Banks(ctx)
	if err != nil {
		return nil, core.Unavailable("list banks", err)
	}
	return banks, nil
}

func (l *Ledger) Group(ctx context.Context, id int64) (core.Group, error) {
	g, err := l.store.Group(ctx, id)
	if err != nil {
		return core.Group{}, lookupError("load group", err, core.KindUnknownGroup, "group_id", id)
	}
	return g, nil
}

func (l *Ledger) Groups(ctx context.Context) ([]core.Group, error) {
	groups, err := l.store.Groups(ctx)
	if err != nil {
		return nil, core.Unavailable("list groups", err)
	}
	return groups, nil
}

func (l *Ledger) Category(ctx context.Context, id int64) (core.Category, error) {
	c, err := l.store.Category(ctx, id)
	if err != nil {
		return core.Category{}, lookupError("load category", err, core.KindUnknownCategory, "category_id", id)
	}
	return c, nil
}

func (l *Ledger) Categories(ctx context.Context) ([]core.Category, error) {
	cats, err := l.store.Categories(ctx)
	if err != nil {
		return nil, core.Unavailable("list categories", err)
	}
	return cats, nil
}

// Snapshot reads banks, groups and loans without taking any lock.
func (l *Ledger) Snapshot(ctx context.Context) (Snapshot, error) {
	banks, err := l.Banks(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	groups, err := l.Groups(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	loans, err := l.Loans(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Banks: banks, Groups: groups, Loans: loans, TakenAt: l.now()}, nil
}

// Audit checks balance + assigned == deposited - withdrawn and balance >= 0
// for every bank. Results are only exact when no mutation is in flight.
func (l *Ledger) Audit(ctx context.Context) ([]core.Discrepancy, error) {
	banks, err := l.Banks(ctx)
	if err != nil {
		return nil, err
	}
	cats, err := l.Categories(ctx)
	if err != nil {
		return nil, err
	}
	assigned := make(map[int64]core.Money, len(banks))
	for _, c := range cats {
		assigned[c.BankID] = assigned[c.BankID].Add(c.AssignedAmount)
	}

	var out []core.Discrepancy
	for _, b := range banks {
		expected := b.Deposited.Sub(b.Withdrawn)
		held := b.Balance.Add(assigned[b.ID])
		if b.Balance.IsNegative() || !held.Equal(expected) {
			out = append(out, core.Discrepancy{
				BankID:   b.ID,
				Balance:  b.Balance,
				Assigned: assigned[b.ID],
				Expected: expected,
			})
		}
	}
	if len(out) > 0 {
		slog.WarnContext(ctx, "Ledger audit found discrepancies", "count", len(out))
	}
	return out, nil
}
