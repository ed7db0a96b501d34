package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateValidate(t *testing.T) {
	assert.NoError(t, NewDate(2025, 1, 1).Validate())
	assert.NoError(t, NewDate(2025, 12, 31).Validate())
	assert.ErrorIs(t, Date{Time: time.Time{}}.Validate(), ErrZeroDate)
}

func TestDateJSON(t *testing.T) {
	b, err := json.Marshal(NewDate(2024, 2, 29))
	require.NoError(t, err)
	assert.Equal(t, `"2024-02-29"`, string(b))

	var d Date
	require.NoError(t, json.Unmarshal([]byte(`"2024-01-31"`), &d))
	assert.Equal(t, 31, d.Day())
	assert.Error(t, json.Unmarshal([]byte(`"31/01/2024"`), &d))
	assert.Error(t, json.Unmarshal([]byte(`20240131`), &d))
}

func TestDaysIn(t *testing.T) {
	assert.Equal(t, 29, DaysIn(2024, time.February))
	assert.Equal(t, 28, DaysIn(2023, time.February))
	assert.Equal(t, 31, DaysIn(2023, time.December))
}

func validLoan() Loan {
	return Loan{
		Name:                  "Mortgage",
		PrincipalRemaining:    MustParseMoney("12000"),
		Type:                  LoanFixed,
		AnnualInterestRate:    decimal.RequireFromString("0.12"),
		PaymentDay:            10,
		LastPaymentDate:       NewDate(2024, 1, 10),
		InstallmentsRemaining: 12,
	}
}

func TestLoanValidate(t *testing.T) {
	require.NoError(t, validLoan().ValidateNew())

	cases := []struct {
		field  string
		mutate func(*Loan)
	}{
		{"loan_type", func(l *Loan) { l.Type = "balloon" }},
		{"installments_remaining", func(l *Loan) { l.InstallmentsRemaining = 0 }},
		{"installments_remaining", func(l *Loan) { l.InstallmentsRemaining = MaxInstallments + 1 }},
		{"installments_remaining", func(l *Loan) { l.InstallmentsRemaining = 1_000_000_000 }},
		{"principal_remaining", func(l *Loan) { l.PrincipalRemaining = Zero }},
		{"principal_remaining", func(l *Loan) { l.PrincipalRemaining = MustParseMoney("200000000000000000") }},
		{"annual_interest_rate", func(l *Loan) { l.AnnualInterestRate = decimal.RequireFromString("-0.01") }},
		{"payment_day", func(l *Loan) { l.PaymentDay = 32 }},
		{"payment_day", func(l *Loan) { l.PaymentDay = 0 }},
		{"last_payment_date", func(l *Loan) { l.LastPaymentDate = Date{} }},
		{"name", func(l *Loan) { l.Name = " " }},
	}
	for _, tc := range cases {
		t.Run(tc.field, func(t *testing.T) {
			l := validLoan()
			tc.mutate(&l)
			err := l.ValidateNew()
			require.ErrorIs(t, err, ErrInvalidLoanParameters)
			var e *Error
			require.True(t, errors.As(err, &e))
			assert.Equal(t, tc.field, e.Field)
		})
	}
}

func TestLoanValidateAcceptsMaxInstallments(t *testing.T) {
	l := validLoan()
	l.InstallmentsRemaining = MaxInstallments
	assert.NoError(t, l.Validate())
}

func TestCategoryValidate(t *testing.T) {
	good := Category{Title: "Groceries", AssignedAmount: MustParseMoney("10")}
	require.NoError(t, good.Validate())

	bads := []Category{
		{Title: "", AssignedAmount: MustParseMoney("10")},
		{Title: "x", AssignedAmount: Zero},
		{Title: "x", AssignedAmount: MustParseMoney("-1")},
		{Title: "x", AssignedAmount: MustParseMoney("200000000000000000")},
	}
	for i, c := range bads {
		assert.ErrorIs(t, c.Validate(), ErrInvalidArgument, "case %d", i)
	}
}

func TestBankValidateBoundsOpeningBalance(t *testing.T) {
	require.NoError(t, Bank{Name: "Big", Balance: MaxAmount}.Validate())

	err := Bank{Name: "Big", Balance: MustParseMoney("200000000000000000.00")}.Validate()
	require.ErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, "opening_balance", AsError(err).Field)
}

func TestErrorMatchesByKind(t *testing.T) {
	err := fmt.Errorf("allocate: %w", Reject(KindInsufficientFunds, "amount", "need %s", "600.00"))
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.NotErrorIs(t, err, ErrUnknownBank)
	assert.Equal(t, KindInsufficientFunds, KindOf(err))
	assert.Contains(t, err.Error(), "(amount)")

	cause := errors.New("disk I/O error")
	u := Unavailable("commit allocation", cause)
	assert.ErrorIs(t, u, ErrUnavailable)
	assert.ErrorIs(t, u, cause)
	assert.True(t, u.Retryable())

	assert.Equal(t, KindUnavailable, AsError(cause).Kind)
	assert.Nil(t, AsError(nil))
}
