package services

import (
	"fmt"
	"time"

	"budzet/internal/amortization"
	"budzet/internal/core"
)

// DuenessChecker decides whether the next installment of a loan should be
// paid on today.
type DuenessChecker interface {
	IsDue(loan core.Loan, today core.Date) bool
}

// OnDueDate pays on the due date itself or any day after it.
type OnDueDate struct{}

func (OnDueDate) IsDue(loan core.Loan, today core.Date) bool {
	if loan.InstallmentsRemaining == 0 {
		return false
	}
	due := amortization.FirstDueDate(loan.LastPaymentDate, loan.PaymentDay)
	return !today.Before(due.Time)
}

// AheadOfDueDate pays a fixed number of days before the due date, for banks
// that book transfers with a delay.
type AheadOfDueDate struct {
	Days int
}

func (c AheadOfDueDate) IsDue(loan core.Loan, today core.Date) bool {
	if loan.InstallmentsRemaining == 0 {
		return false
	}
	due := amortization.FirstDueDate(loan.LastPaymentDate, loan.PaymentDay)
	trigger := due.AddDate(0, 0, -c.Days)
	// Never pay an installment whose period has not started yet.
	if !trigger.After(loan.LastPaymentDate.Time) {
		trigger = loan.LastPaymentDate.AddDate(0, 0, 1)
	}
	return !today.Before(trigger)
}

var duenessStrategies = map[string]DuenessChecker{
	"on_due": OnDueDate{},
	"ahead":  AheadOfDueDate{Days: 3},
}

// GetDuenessChecker returns the checker registered under name.
func GetDuenessChecker(name string) (DuenessChecker, error) {
	checker, ok := duenessStrategies[name]
	if !ok {
		return nil, fmt.Errorf("unknown autopay strategy: %s", name)
	}
	return checker, nil
}

// Today is the calendar date of now in loc.
func Today(now time.Time, loc *time.Location) core.Date {
	if loc == nil {
		loc = time.UTC
	}
	return core.DateOf(now.In(loc))
}
