package services

import (
	"context"
	"testing"
	"time"

	"budzet/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutopayCatchesUpDueInstallments(t *testing.T) {
	f, _, _ := newFacade(t)
	ctx := context.Background()
	bank := f.OpenBank(ctx, "Main", core.MustParseMoney("250")).Value

	auto := f.CreateLoan(ctx, core.Loan{
		Name:                  "Phone",
		PrincipalRemaining:    core.MustParseMoney("300"),
		Type:                  core.LoanDecreasing,
		AnnualInterestRate:    decimal.Zero,
		PaymentDay:            5,
		LastPaymentDate:       core.NewDate(2024, 1, 5),
		InstallmentsRemaining: 3,
		AutopayBankID:         bank.ID,
	})
	require.True(t, auto.OK(), "%v", auto.Err)
	manual := f.CreateLoan(ctx, core.Loan{
		Name:                  "Manual",
		PrincipalRemaining:    core.MustParseMoney("300"),
		Type:                  core.LoanFixed,
		AnnualInterestRate:    decimal.Zero,
		PaymentDay:            5,
		LastPaymentDate:       core.NewDate(2024, 1, 5),
		InstallmentsRemaining: 3,
	})
	require.True(t, manual.OK())

	p := NewAutopayProcessor(f, nil)
	// Feb 5 and Mar 5 are due, Apr 5 is not yet.
	paid, err := p.ProcessDueInstallments(ctx, time.Date(2024, 3, 20, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 2, paid)

	loan := f.Loan(ctx, auto.Value.ID).Value
	assert.Equal(t, 1, loan.InstallmentsRemaining)
	assert.Equal(t, core.NewDate(2024, 3, 5), loan.LastPaymentDate)
	assert.Equal(t, "50.00", f.Bank(ctx, bank.ID).Value.Balance.String())
	assert.Equal(t, 3, f.Loan(ctx, manual.Value.ID).Value.InstallmentsRemaining)

	// The last installment needs 100, the bank only holds 50.
	paid, err = p.ProcessDueInstallments(ctx, time.Date(2024, 4, 6, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Zero(t, paid)
	assert.Equal(t, 1, f.Loan(ctx, auto.Value.ID).Value.InstallmentsRemaining)

	paid, err = p.ProcessDueInstallments(ctx, time.Date(2024, 3, 21, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Zero(t, paid, "nothing new is due")
}
