package storage

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type Bank struct {
	ID             int64
	Name           string
	BalanceCents   int64
	DepositedCents int64
	WithdrawnCents int64
	Closed         bool
	Version        int64
	CreatedAt      string
}

type BudgetGroup struct {
	ID        int64
	Title     string
	AuthorID  string
	CreatedAt string
}

type Category struct {
	ID            int64
	GroupID       int64
	BankID        int64
	Title         string
	Note          string
	AssignedCents int64
	CreatedAt     string
}

type Loan struct {
	ID                    int64
	Name                  string
	PrincipalCents        int64
	LoanType              string
	AnnualInterestRate    string
	PaymentDay            int64
	LastPaymentDate       string
	InstallmentsRemaining int64
	AutopayBankID         int64
	Version               int64
	CreatedAt             string
}

type IdempotencyKey struct {
	Key         string
	Fingerprint string
	CategoryID  int64
}

type LedgerEvent struct {
	ID          int64
	Kind        string
	BankID      int64
	GroupID     int64
	CategoryID  int64
	LoanID      int64
	AmountCents int64
	Description string
	CreatedAt   string
	SyncStatus  string
}

const bankColumns = `id, name, balance_cents, deposited_cents, withdrawn_cents, closed, version, created_at`

func scanBank(row interface{ Scan(...interface{}) error }) (Bank, error) {
	var b Bank
	err := row.Scan(&b.ID, &b.Name, &b.BalanceCents, &b.DepositedCents, &b.WithdrawnCents, &b.Closed, &b.Version, &b.CreatedAt)
	return b, err
}

const createBank = `-- name: CreateBank :one
INSERT INTO banks (name, balance_cents, deposited_cents, withdrawn_cents, closed, version, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING id
`

func (q *Queries) CreateBank(ctx context.Context, b Bank) (int64, error) {
	row := q.db.QueryRowContext(ctx, createBank, b.Name, b.BalanceCents, b.DepositedCents, b.WithdrawnCents, b.Closed, b.Version, b.CreatedAt)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const updateBank = `-- name: UpdateBank :execrows
UPDATE banks
SET name = ?, balance_cents = ?, deposited_cents = ?, withdrawn_cents = ?, closed = ?, version = ?
WHERE id = ? AND version = ?
`

// UpdateBank writes b if the stored row is still at expectedVersion.
func (q *Queries) UpdateBank(ctx context.Context, b Bank, expectedVersion int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateBank, b.Name, b.BalanceCents, b.DepositedCents, b.WithdrawnCents, b.Closed, b.Version, b.ID, expectedVersion)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const getBank = `-- name: GetBank :one
SELECT ` + bankColumns + ` FROM banks WHERE id = ?
`

func (q *Queries) GetBank(ctx context.Context, id int64) (Bank, error) {
	return scanBank(q.db.QueryRowContext(ctx, getBank, id))
}

const listBanks = `-- name: ListBanks :many
SELECT ` + bankColumns + ` FROM banks ORDER BY id
`

func (q *Queries) ListBanks(ctx context.Context) ([]Bank, error) {
	rows, err := q.db.QueryContext(ctx, listBanks)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Bank
	for rows.Next() {
		b, err := scanBank(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return items, rows.Err()
}

const createGroup = `-- name: CreateGroup :one
INSERT INTO budget_groups (title, author_id, created_at) VALUES (?, ?, ?)
RETURNING id
`

func (q *Queries) CreateGroup(ctx context.Context, g BudgetGroup) (int64, error) {
	row := q.db.QueryRowContext(ctx, createGroup, g.Title, g.AuthorID, g.CreatedAt)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const getGroup = `-- name: GetGroup :one
SELECT id, title, author_id, created_at FROM budget_groups WHERE id = ?
`

func (q *Queries) GetGroup(ctx context.Context, id int64) (BudgetGroup, error) {
	var g BudgetGroup
	err := q.db.QueryRowContext(ctx, getGroup, id).Scan(&g.ID, &g.Title, &g.AuthorID, &g.CreatedAt)
	return g, err
}

const listGroups = `-- name: ListGroups :many
SELECT id, title, author_id, created_at FROM budget_groups ORDER BY id
`

func (q *Queries) ListGroups(ctx context.Context) ([]BudgetGroup, error) {
	rows, err := q.db.QueryContext(ctx, listGroups)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []BudgetGroup
	for rows.Next() {
		var g BudgetGroup
		if err := rows.Scan(&g.ID, &g.Title, &g.AuthorID, &g.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, g)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return items, rows.Err()
}

const categoryColumns = `id, group_id, bank_id, title, note, assigned_cents, created_at`

func scanCategory(row interface{ Scan(...interface{}) error }) (Category, error) {
	var c Category
	err := row.Scan(&c.ID, &c.GroupID, &c.BankID, &c.Title, &c.Note, &c.AssignedCents, &c.CreatedAt)
	return c, err
}

const createCategory = `-- name: CreateCategory :one
INSERT INTO categories (group_id, bank_id, title, note, assigned_cents, created_at)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id
`

func (q *Queries) CreateCategory(ctx context.Context, c Category) (int64, error) {
	row := q.db.QueryRowContext(ctx, createCategory, c.GroupID, c.BankID, c.Title, c.Note, c.AssignedCents, c.CreatedAt)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const updateCategory = `-- name: UpdateCategory :execrows
UPDATE categories SET bank_id = ?, title = ?, note = ?, assigned_cents = ? WHERE id = ?
`

func (q *Queries) UpdateCategory(ctx context.Context, c Category) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateCategory, c.BankID, c.Title, c.Note, c.AssignedCents, c.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const getCategory = `-- name: GetCategory :one
SELECT ` + categoryColumns + ` FROM categories WHERE id = ?
`

func (q *Queries) GetCategory(ctx context.Context, id int64) (Category, error) {
	return scanCategory(q.db.QueryRowContext(ctx, getCategory, id))
}

const listCategories = `-- name: ListCategories :many
SELECT ` + categoryColumns + ` FROM categories ORDER BY id
`

const listCategoriesByGroup = `-- name: ListCategoriesByGroup :many
SELECT ` + categoryColumns + ` FROM categories WHERE group_id = ? ORDER BY id
`

func (q *Queries) ListCategories(ctx context.Context) ([]Category, error) {
	return q.queryCategories(ctx, listCategories)
}

func (q *Queries) ListCategoriesByGroup(ctx context.Context, groupID int64) ([]Category, error) {
	return q.queryCategories(ctx, listCategoriesByGroup, groupID)
}

func (q *Queries) queryCategories(ctx context.Context, query string, args ...interface{}) ([]Category, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return items, rows.Err()
}

const loanColumns = `id, name, principal_cents, loan_type, annual_interest_rate, payment_day, last_payment_date, installments_remaining, autopay_bank_id, version, created_at`

func scanLoan(row interface{ Scan(...interface{}) error }) (Loan, error) {
	var l Loan
	err := row.Scan(&l.ID, &l.Name, &l.PrincipalCents, &l.LoanType, &l.AnnualInterestRate, &l.PaymentDay,
		&l.LastPaymentDate, &l.InstallmentsRemaining, &l.AutopayBankID, &l.Version, &l.CreatedAt)
	return l, err
}

const createLoan = `-- name: CreateLoan :one
INSERT INTO loans (name, principal_cents, loan_type, annual_interest_rate, payment_day, last_payment_date,
                   installments_remaining, autopay_bank_id, version, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id
`

func (q *Queries) CreateLoan(ctx context.Context, l Loan) (int64, error) {
	row := q.db.QueryRowContext(ctx, createLoan, l.Name, l.PrincipalCents, l.LoanType, l.AnnualInterestRate, l.PaymentDay,
		l.LastPaymentDate, l.InstallmentsRemaining, l.AutopayBankID, l.Version, l.CreatedAt)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const updateLoan = `-- name: UpdateLoan :execrows
UPDATE loans
SET principal_cents = ?, last_payment_date = ?, installments_remaining = ?, autopay_bank_id = ?, version = ?
WHERE id = ? AND version = ?
`

func (q *Queries) UpdateLoan(ctx context.Context, l Loan, expectedVersion int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateLoan, l.PrincipalCents, l.LastPaymentDate, l.InstallmentsRemaining,
		l.AutopayBankID, l.Version, l.ID, expectedVersion)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const getLoan = `-- name: GetLoan :one
SELECT ` + loanColumns + ` FROM loans WHERE id = ?
`

func (q *Queries) GetLoan(ctx context.Context, id int64) (Loan, error) {
	return scanLoan(q.db.QueryRowContext(ctx, getLoan, id))
}

const listLoans = `-- name: ListLoans :many
SELECT ` + loanColumns + ` FROM loans ORDER BY id
`

func (q *Queries) ListLoans(ctx context.Context) ([]Loan, error) {
	rows, err := q.db.QueryContext(ctx, listLoans)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, l)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return items, rows.Err()
}

const createIdempotencyKey = `-- name: CreateIdempotencyKey :exec
INSERT INTO idempotency_keys (key, fingerprint, category_id, created_at) VALUES (?, ?, ?, ?)
`

func (q *Queries) CreateIdempotencyKey(ctx context.Context, k IdempotencyKey, createdAt string) error {
	_, err := q.db.ExecContext(ctx, createIdempotencyKey, k.Key, k.Fingerprint, k.CategoryID, createdAt)
	return err
}

const getIdempotencyKey = `-- name: GetIdempotencyKey :one
SELECT key, fingerprint, category_id FROM idempotency_keys WHERE key = ?
`

func (q *Queries) GetIdempotencyKey(ctx context.Context, key string) (IdempotencyKey, error) {
	var k IdempotencyKey
	err := q.db.QueryRowContext(ctx, getIdempotencyKey, key).Scan(&k.Key, &k.Fingerprint, &k.CategoryID)
	return k, err
}

const eventColumns = `id, kind, bank_id, group_id, category_id, loan_id, amount_cents, description, created_at, sync_status`

func scanEvent(row interface{ Scan(...interface{}) error }) (LedgerEvent, error) {
	var e LedgerEvent
	err := row.Scan(&e.ID, &e.Kind, &e.BankID, &e.GroupID, &e.CategoryID, &e.LoanID, &e.AmountCents,
		&e.Description, &e.CreatedAt, &e.SyncStatus)
	return e, err
}

const createEvent = `-- name: CreateEvent :one
INSERT INTO ledger_events (kind, bank_id, group_id, category_id, loan_id, amount_cents, description, created_at, sync_status)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id
`

func (q *Queries) CreateEvent(ctx context.Context, e LedgerEvent) (int64, error) {
	row := q.db.QueryRowContext(ctx, createEvent, e.Kind, e.BankID, e.GroupID, e.CategoryID, e.LoanID,
		e.AmountCents, e.Description, e.CreatedAt, e.SyncStatus)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const getEvent = `-- name: GetEvent :one
SELECT ` + eventColumns + ` FROM ledger_events WHERE id = ?
`

func (q *Queries) GetEvent(ctx context.Context, id int64) (LedgerEvent, error) {
	return scanEvent(q.db.QueryRowContext(ctx, getEvent, id))
}

const getPendingEvents = `-- name: GetPendingEvents :many
SELECT ` + eventColumns + ` FROM ledger_events
WHERE sync_status IN ('pending', 'error')
ORDER BY id
LIMIT ?
`

func (q *Queries) GetPendingEvents(ctx context.Context, limit int64) ([]LedgerEvent, error) {
	rows, err := q.db.QueryContext(ctx, getPendingEvents, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []LedgerEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return items, rows.Err()
}

const markEventSynced = `-- name: MarkEventSynced :execrows
UPDATE ledger_events SET sync_status = 'synced', synced_at = ? WHERE id = ?
`

func (q *Queries) MarkEventSynced(ctx context.Context, id int64, syncedAt string) (int64, error) {
	result, err := q.db.ExecContext(ctx, markEventSynced, syncedAt, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const markEventSyncError = `-- name: MarkEventSyncError :execrows
UPDATE ledger_events SET sync_status = 'error' WHERE id = ?
`

func (q *Queries) MarkEventSyncError(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, markEventSyncError, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
