package ledger

import (
	"context"
	"fmt"
	"strings"

	"budzet/internal/amortization"
	"budzet/internal/core"
)

// Payment is the outcome of paying one installment.
type Payment struct {
	Loan        core.Loan
	Installment core.Installment
	Bank        *core.Bank // nil when no bank was debited
}

// CreateLoan registers a loan. An autopay bank, when set, must exist.
func (l *Ledger) CreateLoan(ctx context.Context, loan core.Loan) (core.Loan, error) {
	loan.ID = 0
	loan.Name = strings.TrimSpace(loan.Name)
	loan.Version = 1
	loan.CreatedAt = l.now()
	if err := loan.ValidateNew(); err != nil {
		return core.Loan{}, err
	}
	if loan.AutopayBankID != 0 {
		b, err := l.loadBank(ctx, loan.AutopayBankID, "autopay_bank_id")
		if err != nil {
			return core.Loan{}, err
		}
		if err := openBank(b, "autopay_bank_id"); err != nil {
			return core.Loan{}, err
		}
	}

	applied, ev, err := l.commit(ctx, "create loan", Mutation{
		NewLoan: &loan,
		Event: core.LedgerEvent{
			Kind:        core.EventLoanCreated,
			Amount:      loan.PrincipalRemaining,
			Description: loan.Name,
		},
	})
	if err != nil {
		return core.Loan{}, err
	}
	loan.ID = applied.LoanID
	l.notify(ctx, ev)
	return loan, nil
}

func (l *Ledger) Loan(ctx context.Context, id int64) (core.Loan, error) {
	loan, err := l.store.Loan(ctx, id)
	if err != nil {
		return core.Loan{}, lookupError("load loan", err, core.KindUnknownLoan, "loan_id", id)
	}
	return loan, nil
}

func (l *Ledger) Loans(ctx context.Context) ([]core.Loan, error) {
	loans, err := l.store.Loans(ctx)
	if err != nil {
		return nil, core.Unavailable("list loans", err)
	}
	return loans, nil
}

// Schedule computes the remaining installments of a stored loan.
func (l *Ledger) Schedule(ctx context.Context, id int64) ([]core.Installment, error) {
	loan, err := l.Loan(ctx, id)
	if err != nil {
		return nil, err
	}
	return amortization.Schedule(loan)
}

// PayInstallment applies the next installment of a loan. The payment is
// withdrawn from bankID, or from the loan's autopay bank when bankID is zero;
// with neither, only the loan advances.
func (l *Ledger) PayInstallment(ctx context.Context, loanID, bankID int64) (Payment, error) {
	p, ev, err := l.payInstallment(ctx, loanID, bankID)
	if err != nil {
		return Payment{}, err
	}
	l.notify(ctx, ev)
	return p, nil
}

func (l *Ledger) payInstallment(ctx context.Context, loanID, bankID int64) (Payment, core.LedgerEvent, error) {
	unlockLoan := l.loans.Lock(loanID)
	defer unlockLoan()

	loan, err := l.Loan(ctx, loanID)
	if err != nil {
		return Payment{}, core.LedgerEvent{}, err
	}
	if loan.InstallmentsRemaining == 0 {
		return Payment{}, core.LedgerEvent{}, core.Reject(core.KindInvalidLoanParameters,
			"installments_remaining", "loan %d is paid off", loan.ID)
	}
	next, paid, err := amortization.Advance(loan)
	if err != nil {
		return Payment{}, core.LedgerEvent{}, err
	}
	next.Version++

	p := Payment{Loan: next, Installment: paid}
	m := Mutation{
		Loan: &next,
		Event: core.LedgerEvent{
			Kind:        core.EventInstallmentPaid,
			LoanID:      loan.ID,
			Amount:      paid.Payment(),
			Description: fmt.Sprintf("%s installment %d due %s", loan.Name, paid.SequenceNo, paid.DueDate),
		},
	}

	if bankID == 0 {
		bankID = loan.AutopayBankID
	}
	if bankID != 0 {
		unlockBank := l.banks.Lock(bankID)
		defer unlockBank()

		b, err := l.loadBank(ctx, bankID, "bank_id")
		if err != nil {
			return Payment{}, core.LedgerEvent{}, err
		}
		if err := openBank(b, "bank_id"); err != nil {
			return Payment{}, core.LedgerEvent{}, err
		}
		if b, err = debit(b, paid.Payment(), "bank_id"); err != nil {
			return Payment{}, core.LedgerEvent{}, err
		}
		b.Withdrawn = b.Withdrawn.Add(paid.Payment())
		m.Banks = []core.Bank{b}
		m.Event.BankID = b.ID
		p.Bank = &b
	}

	_, ev, err := l.commit(ctx, "pay installment", m)
	if err != nil {
		return Payment{}, core.LedgerEvent{}, err
	}
	return p, ev, nil
}
