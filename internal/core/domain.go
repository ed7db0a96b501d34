package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	LoanFixed      LoanType = "fixed"
	LoanDecreasing LoanType = "decreasing"
)

const DateLayout = "2006-01-02"

// MaxInstallments caps a loan's remaining term (100 years of monthly payments).
const MaxInstallments = 1200

type (
	LoanType string

	// Date is a calendar date at UTC midnight.
	Date struct {
		time.Time
	}

	Bank struct {
		ID        int64
		Name      string
		Balance   Money
		Deposited Money // running total, opening balance included
		Withdrawn Money
		Closed    bool
		Version   int64
		CreatedAt time.Time
	}

	Group struct {
		ID         int64
		Title      string
		AuthorID   string
		CreatedAt  time.Time
		Categories []Category
	}

	Category struct {
		ID             int64
		GroupID        int64
		Title          string
		Note           string
		AssignedAmount Money
		BankID         int64 // resolved by lookup
		CreatedAt      time.Time
	}

	Loan struct {
		ID                    int64
		Name                  string
		PrincipalRemaining    Money
		Type                  LoanType
		AnnualInterestRate    decimal.Decimal // 0.12 == 12%
		PaymentDay            int
		LastPaymentDate       Date
		InstallmentsRemaining int
		AutopayBankID         int64 // 0 when autopay is off
		Version               int64
		CreatedAt             time.Time
	}

	Installment struct {
		SequenceNo       int
		DueDate          Date
		PrincipalPortion Money
		InterestPortion  Money
		RemainingBalance Money
	}

	ExpensePoint struct {
		Date   time.Time
		Amount Money
	}
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in t's own location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrZeroDate
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date must be a YYYY-MM-DD string: %w", err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (t LoanType) Valid() bool {
	return t == LoanFixed || t == LoanDecreasing
}

// Payment is the total due for the installment.
func (i Installment) Payment() Money {
	return i.PrincipalPortion.Add(i.InterestPortion)
}

// Validate checks a bank about to be opened.
func (b Bank) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return Reject(KindInvalidArgument, "name", "bank name is required")
	}
	if len(b.Name) > 100 {
		return Reject(KindInvalidArgument, "name", "bank name too long (max 100 characters)")
	}
	if b.Balance.IsNegative() {
		return Reject(KindInvalidArgument, "opening_balance", "opening balance cannot be negative")
	}
	if b.Balance.ExceedsMax() {
		return Reject(KindInvalidArgument, "opening_balance", "opening balance exceeds the maximum of %s", MaxAmount)
	}
	return nil
}

func (g Group) Validate() error {
	if strings.TrimSpace(g.Title) == "" {
		return Reject(KindInvalidArgument, "title", "%v", ErrEmptyTitle)
	}
	if len(g.Title) > 200 {
		return Reject(KindInvalidArgument, "title", "title too long (max 200 characters)")
	}
	if strings.TrimSpace(g.AuthorID) == "" {
		return Reject(KindInvalidArgument, "author_id", "author is required")
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Title) == "" {
		return Reject(KindInvalidArgument, "title", "%v", ErrEmptyTitle)
	}
	if len(c.Title) > 200 {
		return Reject(KindInvalidArgument, "title", "title too long (max 200 characters)")
	}
	if len(c.Note) > 1000 {
		return Reject(KindInvalidArgument, "note", "note too long (max 1000 characters)")
	}
	if c.AssignedAmount.ExceedsMax() {
		return Reject(KindInvalidArgument, "amount", "amount exceeds the maximum of %s", MaxAmount)
	}
	if err := c.AssignedAmount.Validate(); err != nil {
		return Reject(KindInvalidArgument, "amount", "amount must be greater than zero")
	}
	return nil
}

// Validate checks the parameters a schedule can be computed from.
func (l Loan) Validate() error {
	switch {
	case !l.Type.Valid():
		return Reject(KindInvalidLoanParameters, "loan_type", "unknown loan type %q", l.Type)
	case l.InstallmentsRemaining < 1:
		return Reject(KindInvalidLoanParameters, "installments_remaining", "must be at least 1")
	case l.InstallmentsRemaining > MaxInstallments:
		return Reject(KindInvalidLoanParameters, "installments_remaining", "must be at most %d", MaxInstallments)
	case !l.PrincipalRemaining.IsPositive():
		return Reject(KindInvalidLoanParameters, "principal_remaining", "must be greater than zero")
	case l.PrincipalRemaining.ExceedsMax():
		return Reject(KindInvalidLoanParameters, "principal_remaining", "must be at most %s", MaxAmount)
	case l.AnnualInterestRate.IsNegative():
		return Reject(KindInvalidLoanParameters, "annual_interest_rate", "cannot be negative")
	case l.PaymentDay < 1 || l.PaymentDay > 31:
		return Reject(KindInvalidLoanParameters, "payment_day", "%v: %d", ErrInvalidDay, l.PaymentDay)
	case l.LastPaymentDate.IsZero():
		return Reject(KindInvalidLoanParameters, "last_payment_date", "%v", ErrZeroDate)
	}
	return nil
}

// ValidateNew adds the checks only a loan being created needs.
func (l Loan) ValidateNew() error {
	if strings.TrimSpace(l.Name) == "" {
		return Reject(KindInvalidLoanParameters, "name", "loan name is required")
	}
	return l.Validate()
}

// IsPaidOff reports whether no installments remain.
func (l Loan) IsPaidOff() bool {
	return l.InstallmentsRemaining == 0 && l.PrincipalRemaining.IsZero()
}

// KindOf returns the kind of err, or "" when err is not a ledger error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
