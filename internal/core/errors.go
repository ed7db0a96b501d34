package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies ledger failures. Everything except KindUnavailable is
// terminal for the request that produced it.
type ErrorKind string

const (
	KindInvalidLoanParameters ErrorKind = "invalid_loan_parameters"
	KindInvalidArgument       ErrorKind = "invalid_argument"
	KindInsufficientFunds     ErrorKind = "insufficient_funds"
	KindUnknownBank           ErrorKind = "unknown_bank"
	KindUnknownGroup          ErrorKind = "unknown_group"
	KindUnknownCategory       ErrorKind = "unknown_category"
	KindUnknownLoan           ErrorKind = "unknown_loan"
	KindBankClosed            ErrorKind = "bank_closed"
	KindUnavailable           ErrorKind = "unavailable"
)

// Error carries the kind, the failing field and an optional cause.
type Error struct {
	Kind    ErrorKind
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Field != "" {
		msg += " (" + e.Field + ")"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Kind so callers can compare against the sentinels below.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && t.Field == "" && t.Message == "" && t.Err == nil
}

// Retryable reports whether a caller may retry the same request.
func (e *Error) Retryable() bool {
	return e.Kind == KindUnavailable
}

var (
	ErrInvalidLoanParameters = &Error{Kind: KindInvalidLoanParameters}
	ErrInvalidArgument       = &Error{Kind: KindInvalidArgument}
	ErrInsufficientFunds     = &Error{Kind: KindInsufficientFunds}
	ErrUnknownBank           = &Error{Kind: KindUnknownBank}
	ErrUnknownGroup          = &Error{Kind: KindUnknownGroup}
	ErrUnknownCategory       = &Error{Kind: KindUnknownCategory}
	ErrUnknownLoan           = &Error{Kind: KindUnknownLoan}
	ErrBankClosed            = &Error{Kind: KindBankClosed}
	ErrUnavailable           = &Error{Kind: KindUnavailable}
)

// Plain validation sentinels used by Validate methods.
var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrAmountTooLarge = errors.New("amount exceeds the maximum")
	ErrEmptyTitle    = errors.New("empty title")
	ErrInvalidDay    = errors.New("invalid day")
	ErrZeroDate      = errors.New("date cannot be zero")
)

// Store level sentinels. Stores wrap these; the ledger translates them.
var (
	ErrNotFound         = errors.New("record not found")
	ErrVersionConflict  = errors.New("version conflict")
	ErrDuplicateRequest = errors.New("duplicate idempotency key")
)

// Reject builds a terminal error for field.
func Reject(kind ErrorKind, field, format string, args ...any) *Error {
	return &Error{Kind: kind, Field: field, Message: fmt.Sprintf(format, args...)}
}

// Unavailable wraps an infrastructure failure.
func Unavailable(op string, err error) *Error {
	return &Error{Kind: KindUnavailable, Message: op, Err: err}
}

// AsError extracts a *Error, classifying anything else as Unavailable.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Unavailable("unexpected failure", err)
}
