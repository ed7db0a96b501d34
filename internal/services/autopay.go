package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"budzet/internal/core"
)

// AutopayProcessor pays due installments of loans that have an autopay bank.
type AutopayProcessor struct {
	facade  *LedgerFacade
	checker DuenessChecker
}

func NewAutopayProcessor(facade *LedgerFacade, checker DuenessChecker) *AutopayProcessor {
	if checker == nil {
		checker = OnDueDate{}
	}
	return &AutopayProcessor{facade: facade, checker: checker}
}

// ProcessDueInstallments pays every installment due on or before now,
// catching up loans that missed several periods. A rejected payment stops
// that loan for this run; other loans continue.
func (p *AutopayProcessor) ProcessDueInstallments(ctx context.Context, now time.Time) (int, error) {
	if p.facade == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	res := p.facade.Loans(ctx)
	if !res.OK() {
		return 0, fmt.Errorf("list loans: %w", res.Err)
	}
	today := Today(now, p.facade.Location())

	slog.InfoContext(ctx, "Processing autopay installments",
		"loans", len(res.Value),
		"processing_date", today.String())

	paid := 0
	for _, loan := range res.Value {
		if loan.AutopayBankID == 0 {
			continue
		}
		for p.checker.IsDue(loan, today) {
			if err := ctx.Err(); err != nil {
				return paid, err
			}
			pay := p.facade.PayInstallment(ctx, loan.ID, 0)
			if !pay.OK() {
				logPaymentFailure(ctx, loan, pay.Err)
				if pay.Status == StatusUnavailable {
					return paid, fmt.Errorf("pay installment of loan %d: %w", loan.ID, pay.Err)
				}
				break
			}
			paid++
			slog.InfoContext(ctx, "Installment paid by autopay",
				"loan_id", loan.ID,
				"sequence_no", pay.Value.Installment.SequenceNo,
				"due_date", pay.Value.Installment.DueDate.String(),
				"amount", pay.Value.Installment.Payment().String(),
				"bank_id", loan.AutopayBankID)
			loan = pay.Value.Loan
		}
	}

	slog.InfoContext(ctx, "Autopay processing complete", "paid", paid)
	return paid, nil
}

func logPaymentFailure(ctx context.Context, loan core.Loan, err *core.Error) {
	slog.WarnContext(ctx, "Autopay installment not paid",
		"loan_id", loan.ID,
		"bank_id", loan.AutopayBankID,
		"kind", err.Kind,
		"error", err)
}
