package core

import "time"

// EventKind names a committed ledger mutation.
type EventKind string

const (
	EventBankOpened         EventKind = "bank_opened"
	EventBankDeposit        EventKind = "bank_deposit"
	EventBankWithdrawal     EventKind = "bank_withdrawal"
	EventBankClosed         EventKind = "bank_closed"
	EventGroupCreated       EventKind = "group_created"
	EventCategoryAllocated  EventKind = "category_allocated"
	EventCategoryUpdated    EventKind = "category_updated"
	EventCategoryReassigned EventKind = "category_reassigned"
	EventLoanCreated        EventKind = "loan_created"
	EventInstallmentPaid    EventKind = "installment_paid"
)

// SyncStatus tracks whether a journal row reached the external sink.
type SyncStatus string

const (
	SyncPending SyncStatus = "pending"
	SyncDone    SyncStatus = "synced"
	SyncError   SyncStatus = "error"
)

// LedgerEvent is a journal row written in the same transaction as the
// mutation it describes.
type LedgerEvent struct {
	ID          int64
	Kind        EventKind
	BankID      int64
	GroupID     int64
	CategoryID  int64
	LoanID      int64
	Amount      Money
	Description string
	CreatedAt   time.Time
	SyncStatus  SyncStatus
}
