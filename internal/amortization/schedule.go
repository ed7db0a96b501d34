// Package amortization computes loan installment schedules.
//
// Schedules are recomputed from the loan's current snapshot on every call and
// never stored, so they always agree with the latest known loan state. All
// arithmetic is decimal; amounts are rounded half-up to cents per installment
// and the final installment absorbs whatever residue the rounding left.
package amortization

import (
	"budzet/internal/core"

	"github.com/shopspring/decimal"
)

// workingPlaces bounds intermediate precision of the compound factor.
const workingPlaces = 24

var (
	one          = decimal.NewFromInt(1)
	monthsInYear = decimal.NewFromInt(12)
)

// PeriodRate converts an annual rate into the monthly rate.
func PeriodRate(annual decimal.Decimal) decimal.Decimal {
	return annual.Div(monthsInYear)
}

// Schedule returns the installments that pay off loan.
func Schedule(loan core.Loan) ([]core.Installment, error) {
	if err := loan.Validate(); err != nil {
		return nil, err
	}

	n := loan.InstallmentsRemaining
	rate := PeriodRate(loan.AnnualInterestRate)
	dates := DueDates(loan.LastPaymentDate, loan.PaymentDay, n)

	var principalFor func(balance, interest core.Money) core.Money
	switch {
	case loan.Type == core.LoanFixed && !rate.IsZero():
		payment := AnnuityPayment(loan.PrincipalRemaining, rate, n)
		principalFor = func(balance, interest core.Money) core.Money {
			p := payment.Sub(interest)
			if p.GreaterThan(balance) {
				return balance
			}
			if p.IsNegative() {
				return core.Zero
			}
			return p
		}
	default:
		// decreasing, and fixed at 0%: equal principal parts
		part := loan.PrincipalRemaining.DivFloor(int64(n))
		principalFor = func(balance, _ core.Money) core.Money {
			if part.GreaterThan(balance) {
				return balance
			}
			return part
		}
	}

	installments := make([]core.Installment, n)
	balance := loan.PrincipalRemaining
	for i := 0; i < n; i++ {
		interest := core.RoundMoney(balance.MulRate(rate))
		principal := principalFor(balance, interest)
		if i == n-1 {
			principal = balance
		}
		balance = balance.Sub(principal)
		installments[i] = core.Installment{
			SequenceNo:       i + 1,
			DueDate:          dates[i],
			PrincipalPortion: principal,
			InterestPortion:  interest,
			RemainingBalance: balance,
		}
	}
	return installments, nil
}

// AnnuityPayment is the constant payment P·r / (1 − (1+r)^−n), rounded to cents.
func AnnuityPayment(principal core.Money, rate decimal.Decimal, n int) core.Money {
	if rate.IsZero() {
		return principal.DivFloor(int64(n))
	}
	factor := compound(one.Add(rate), n)
	payment := principal.MulRate(rate).Mul(factor).Div(factor.Sub(one))
	return core.RoundMoney(payment)
}

func compound(base decimal.Decimal, n int) decimal.Decimal {
	result := one
	for i := 0; i < n; i++ {
		result = result.Mul(base).Round(workingPlaces)
	}
	return result
}

// Summarize totals a schedule.
func Summarize(schedule []core.Installment) core.ScheduleSummary {
	s := core.ScheduleSummary{Installments: len(schedule)}
	for _, inst := range schedule {
		s.TotalPayment = s.TotalPayment.Add(inst.Payment())
		s.TotalInterest = s.TotalInterest.Add(inst.InterestPortion)
	}
	if len(schedule) > 0 {
		s.NextDueDate = schedule[0].DueDate
	}
	return s
}

// Advance applies the first installment of loan's schedule and returns the
// loan as it stands afterwards together with the installment that was paid.
func Advance(loan core.Loan) (core.Loan, core.Installment, error) {
	schedule, err := Schedule(loan)
	if err != nil {
		return core.Loan{}, core.Installment{}, err
	}
	paid := schedule[0]
	next := loan
	next.PrincipalRemaining = paid.RemainingBalance
	next.InstallmentsRemaining--
	next.LastPaymentDate = paid.DueDate
	return next, paid, nil
}
