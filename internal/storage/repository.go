package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"budzet/internal/core"
	"budzet/internal/ledger"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

const timeLayout = time.RFC3339Nano

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

// DSN adds the pragmas every connection needs to a database path.
func DSN(dbPath string) string {
	return "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", DSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; Apply runs entirely on its transaction.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database answers.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func notFound(what string, id any, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %v: %w", what, id, core.ErrNotFound)
	}
	return fmt.Errorf("get %s %v: %w", what, id, err)
}

// Apply implements ledger.Store
func (r *SQLiteRepository) Apply(ctx context.Context, m ledger.Mutation) (ledger.Applied, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return ledger.Applied{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	applied, err := r.apply(ctx, r.queries.WithTx(tx), m)
	if err != nil {
		return ledger.Applied{}, err
	}
	if err := tx.Commit(); err != nil {
		return ledger.Applied{}, fmt.Errorf("commit transaction: %w", err)
	}
	return applied, nil
}

func (r *SQLiteRepository) apply(ctx context.Context, q *Queries, m ledger.Mutation) (ledger.Applied, error) {
	var a ledger.Applied
	var err error

	if m.Idempotency != nil {
		_, err := q.GetIdempotencyKey(ctx, m.Idempotency.Key)
		switch {
		case err == nil:
			return a, fmt.Errorf("key %q: %w", m.Idempotency.Key, core.ErrDuplicateRequest)
		case !errors.Is(err, sql.ErrNoRows):
			return a, fmt.Errorf("check idempotency key: %w", err)
		}
	}

	if m.NewBank != nil {
		if a.BankID, err = q.CreateBank(ctx, bankRow(*m.NewBank)); err != nil {
			return a, fmt.Errorf("create bank: %w", err)
		}
	}
	for _, b := range m.Banks {
		n, err := q.UpdateBank(ctx, bankRow(b), b.Version-1)
		if err != nil {
			return a, fmt.Errorf("update bank %d: %w", b.ID, err)
		}
		if n == 0 {
			_, gerr := q.GetBank(ctx, b.ID)
			return a, r.missingOrStale(ctx, gerr, "bank", b.ID)
		}
	}
	if m.NewGroup != nil {
		g := m.NewGroup
		if a.GroupID, err = q.CreateGroup(ctx, BudgetGroup{Title: g.Title, AuthorID: g.AuthorID, CreatedAt: formatTime(g.CreatedAt)}); err != nil {
			return a, fmt.Errorf("create group: %w", err)
		}
	}
	if m.NewCategory != nil {
		if _, err := q.GetGroup(ctx, m.NewCategory.GroupID); err != nil {
			return a, notFound("group", m.NewCategory.GroupID, err)
		}
		if a.CategoryID, err = q.CreateCategory(ctx, categoryRow(*m.NewCategory)); err != nil {
			return a, fmt.Errorf("create category: %w", err)
		}
	}
	if m.Category != nil {
		n, err := q.UpdateCategory(ctx, categoryRow(*m.Category))
		if err != nil {
			return a, fmt.Errorf("update category %d: %w", m.Category.ID, err)
		}
		if n == 0 {
			return a, fmt.Errorf("category %d: %w", m.Category.ID, core.ErrNotFound)
		}
	}
	if m.NewLoan != nil {
		if a.LoanID, err = q.CreateLoan(ctx, loanRow(*m.NewLoan)); err != nil {
			return a, fmt.Errorf("create loan: %w", err)
		}
	}
	if m.Loan != nil {
		n, err := q.UpdateLoan(ctx, loanRow(*m.Loan), m.Loan.Version-1)
		if err != nil {
			return a, fmt.Errorf("update loan %d: %w", m.Loan.ID, err)
		}
		if n == 0 {
			_, gerr := q.GetLoan(ctx, m.Loan.ID)
			return a, r.missingOrStale(ctx, gerr, "loan", m.Loan.ID)
		}
	}
	if m.Idempotency != nil {
		rec := IdempotencyKey{Key: m.Idempotency.Key, Fingerprint: m.Idempotency.Fingerprint, CategoryID: a.CategoryID}
		if err := q.CreateIdempotencyKey(ctx, rec, formatTime(r.now())); err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint failed") {
				return a, fmt.Errorf("key %q: %w", rec.Key, core.ErrDuplicateRequest)
			}
			return a, fmt.Errorf("create idempotency key: %w", err)
		}
	}

	ev := m.Event
	ledger.FillEventIDs(&ev, a)
	if ev.SyncStatus == "" {
		ev.SyncStatus = core.SyncPending
	}
	if a.EventID, err = q.CreateEvent(ctx, eventRow(ev)); err != nil {
		return a, fmt.Errorf("create ledger event: %w", err)
	}
	return a, nil
}

// missingOrStale explains an update that matched no row.
func (r *SQLiteRepository) missingOrStale(ctx context.Context, lookupErr error, what string, id int64) error {
	if errors.Is(lookupErr, sql.ErrNoRows) {
		return fmt.Errorf("%s %d: %w", what, id, core.ErrNotFound)
	}
	if lookupErr != nil {
		return fmt.Errorf("get %s %d: %w", what, id, lookupErr)
	}
	slog.WarnContext(ctx, "Optimistic update lost a race", "table", what, "id", id)
	return fmt.Errorf("%s %d: %w", what, id, core.ErrVersionConflict)
}

// Bank implements ledger.Store
func (r *SQLiteRepository) Bank(ctx context.Context, id int64) (core.Bank, error) {
	row, err := r.queries.GetBank(ctx, id)
	if err != nil {
		return core.Bank{}, notFound("bank", id, err)
	}
	return toBank(row), nil
}

func (r *SQLiteRepository) Banks(ctx context.Context) ([]core.Bank, error) {
	rows, err := r.queries.ListBanks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list banks: %w", err)
	}
	out := make([]core.Bank, len(rows))
	for i, row := range rows {
		out[i] = toBank(row)
	}
	return out, nil
}

func (r *SQLiteRepository) Group(ctx context.Context, id int64) (core.Group, error) {
	row, err := r.queries.GetGroup(ctx, id)
	if err != nil {
		return core.Group{}, notFound("group", id, err)
	}
	cats, err := r.queries.ListCategoriesByGroup(ctx, id)
	if err != nil {
		return core.Group{}, fmt.Errorf("list categories of group %d: %w", id, err)
	}
	g := toGroup(row)
	for _, c := range cats {
		g.Categories = append(g.Categories, toCategory(c))
	}
	return g, nil
}

func (r *SQLiteRepository) Groups(ctx context.Context) ([]core.Group, error) {
	rows, err := r.queries.ListGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	cats, err := r.queries.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	byGroup := make(map[int64][]core.Category)
	for _, c := range cats {
		byGroup[c.GroupID] = append(byGroup[c.GroupID], toCategory(c))
	}
	out := make([]core.Group, len(rows))
	for i, row := range rows {
		out[i] = toGroup(row)
		out[i].Categories = append(out[i].Categories, byGroup[row.ID]...)
	}
	return out, nil
}

func (r *SQLiteRepository) Category(ctx context.Context, id int64) (core.Category, error) {
	row, err := r.queries.GetCategory(ctx, id)
	if err != nil {
		return core.Category{}, notFound("category", id, err)
	}
	return toCategory(row), nil
}

func (r *SQLiteRepository) Categories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.queries.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]core.Category, len(rows))
	for i, row := range rows {
		out[i] = toCategory(row)
	}
	return out, nil
}

func (r *SQLiteRepository) Loan(ctx context.Context, id int64) (core.Loan, error) {
	row, err := r.queries.GetLoan(ctx, id)
	if err != nil {
		return core.Loan{}, notFound("loan", id, err)
	}
	return toLoan(row)
}

func (r *SQLiteRepository) Loans(ctx context.Context) ([]core.Loan, error) {
	rows, err := r.queries.ListLoans(ctx)
	if err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}
	out := make([]core.Loan, 0, len(rows))
	for _, row := range rows {
		l, err := toLoan(row)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

func (r *SQLiteRepository) IdempotencyRecord(ctx context.Context, key string) (ledger.IdempotencyRecord, error) {
	row, err := r.queries.GetIdempotencyKey(ctx, key)
	if err != nil {
		return ledger.IdempotencyRecord{}, notFound("idempotency key", key, err)
	}
	return ledger.IdempotencyRecord{Key: row.Key, Fingerprint: row.Fingerprint, CategoryID: row.CategoryID}, nil
}

// PendingEvents implements ledger.Journal
func (r *SQLiteRepository) PendingEvents(ctx context.Context, limit int) ([]core.LedgerEvent, error) {
	if limit <= 0 {
		limit = -1 // no limit in SQLite
	}
	rows, err := r.queries.GetPendingEvents(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("get pending events: %w", err)
	}
	out := make([]core.LedgerEvent, len(rows))
	for i, row := range rows {
		out[i] = toEvent(row)
	}
	return out, nil
}

func (r *SQLiteRepository) Event(ctx context.Context, id int64) (core.LedgerEvent, error) {
	row, err := r.queries.GetEvent(ctx, id)
	if err != nil {
		return core.LedgerEvent{}, notFound("event", id, err)
	}
	return toEvent(row), nil
}

// MarkEventSynced marks an event as exported
func (r *SQLiteRepository) MarkEventSynced(ctx context.Context, id int64) error {
	n, err := r.queries.MarkEventSynced(ctx, id, formatTime(r.now()))
	if err != nil {
		return fmt.Errorf("mark event synced: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("event %d: %w", id, core.ErrNotFound)
	}
	slog.InfoContext(ctx, "Ledger event marked as synced", "id", id)
	return nil
}

// MarkEventSyncError marks an event whose export failed
func (r *SQLiteRepository) MarkEventSyncError(ctx context.Context, id int64) error {
	n, err := r.queries.MarkEventSyncError(ctx, id)
	if err != nil {
		return fmt.Errorf("mark event sync error: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("event %d: %w", id, core.ErrNotFound)
	}
	slog.WarnContext(ctx, "Ledger event marked with sync error", "id", id)
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func bankRow(b core.Bank) Bank {
	return Bank{
		ID:             b.ID,
		Name:           b.Name,
		BalanceCents:   b.Balance.Cents(),
		DepositedCents: b.Deposited.Cents(),
		WithdrawnCents: b.Withdrawn.Cents(),
		Closed:         b.Closed,
		Version:        b.Version,
		CreatedAt:      formatTime(b.CreatedAt),
	}
}

func toBank(row Bank) core.Bank {
	return core.Bank{
		ID:        row.ID,
		Name:      row.Name,
		Balance:   core.MoneyFromCents(row.BalanceCents),
		Deposited: core.MoneyFromCents(row.DepositedCents),
		Withdrawn: core.MoneyFromCents(row.WithdrawnCents),
		Closed:    row.Closed,
		Version:   row.Version,
		CreatedAt: parseTime(row.CreatedAt),
	}
}

func toGroup(row BudgetGroup) core.Group {
	return core.Group{
		ID:         row.ID,
		Title:      row.Title,
		AuthorID:   row.AuthorID,
		CreatedAt:  parseTime(row.CreatedAt),
		Categories: []core.Category{},
	}
}

func categoryRow(c core.Category) Category {
	return Category{
		ID:            c.ID,
		GroupID:       c.GroupID,
		BankID:        c.BankID,
		Title:         c.Title,
		Note:          c.Note,
		AssignedCents: c.AssignedAmount.Cents(),
		CreatedAt:     formatTime(c.CreatedAt),
	}
}

func toCategory(row Category) core.Category {
	return core.Category{
		ID:             row.ID,
		GroupID:        row.GroupID,
		BankID:         row.BankID,
		Title:          row.Title,
		Note:           row.Note,
		AssignedAmount: core.MoneyFromCents(row.AssignedCents),
		CreatedAt:      parseTime(row.CreatedAt),
	}
}

func loanRow(l core.Loan) Loan {
	return Loan{
		ID:                    l.ID,
		Name:                  l.Name,
		PrincipalCents:        l.PrincipalRemaining.Cents(),
		LoanType:              string(l.Type),
		AnnualInterestRate:    l.AnnualInterestRate.String(),
		PaymentDay:            int64(l.PaymentDay),
		LastPaymentDate:       l.LastPaymentDate.String(),
		InstallmentsRemaining: int64(l.InstallmentsRemaining),
		AutopayBankID:         l.AutopayBankID,
		Version:               l.Version,
		CreatedAt:             formatTime(l.CreatedAt),
	}
}

func toLoan(row Loan) (core.Loan, error) {
	rate, err := decimal.NewFromString(row.AnnualInterestRate)
	if err != nil {
		return core.Loan{}, fmt.Errorf("loan %d interest rate: %w", row.ID, err)
	}
	last, err := core.ParseDate(row.LastPaymentDate)
	if err != nil {
		return core.Loan{}, fmt.Errorf("loan %d last payment date: %w", row.ID, err)
	}
	return core.Loan{
		ID:                    row.ID,
		Name:                  row.Name,
		PrincipalRemaining:    core.MoneyFromCents(row.PrincipalCents),
		Type:                  core.LoanType(row.LoanType),
		AnnualInterestRate:    rate,
		PaymentDay:            int(row.PaymentDay),
		LastPaymentDate:       last,
		InstallmentsRemaining: int(row.InstallmentsRemaining),
		AutopayBankID:         row.AutopayBankID,
		Version:               row.Version,
		CreatedAt:             parseTime(row.CreatedAt),
	}, nil
}

func eventRow(e core.LedgerEvent) LedgerEvent {
	return LedgerEvent{
		Kind:        string(e.Kind),
		BankID:      e.BankID,
		GroupID:     e.GroupID,
		CategoryID:  e.CategoryID,
		LoanID:      e.LoanID,
		AmountCents: e.Amount.Cents(),
		Description: e.Description,
		CreatedAt:   formatTime(e.CreatedAt),
		SyncStatus:  string(e.SyncStatus),
	}
}

func toEvent(row LedgerEvent) core.LedgerEvent {
	return core.LedgerEvent{
		ID:          row.ID,
		Kind:        core.EventKind(row.Kind),
		BankID:      row.BankID,
		GroupID:     row.GroupID,
		CategoryID:  row.CategoryID,
		LoanID:      row.LoanID,
		Amount:      core.MoneyFromCents(row.AmountCents),
		Description: row.Description,
		CreatedAt:   parseTime(row.CreatedAt),
		SyncStatus:  core.SyncStatus(row.SyncStatus),
	}
}

var (
	_ ledger.Store   = (*SQLiteRepository)(nil)
	_ ledger.Journal = (*SQLiteRepository)(nil)
)
