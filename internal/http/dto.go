package http

import (
	"time"

	"budzet/internal/core"
	"budzet/internal/ledger"
	"budzet/internal/services"

	"github.com/shopspring/decimal"
)

// Request bodies.
type (
	openBankRequest struct {
		Name           string      `json:"name"`
		OpeningBalance *core.Money `json:"opening_balance"`
	}

	amountRequest struct {
		Amount *core.Money `json:"amount"`
	}

	createGroupRequest struct {
		Title    string `json:"title"`
		AuthorID string `json:"author_id"`
	}

	allocateRequest struct {
		BankID int64       `json:"bank_id"`
		Title  string      `json:"title"`
		Note   string      `json:"note"`
		Amount *core.Money `json:"amount"`
	}

	updateCategoryRequest struct {
		Title  *string     `json:"title"`
		Note   *string     `json:"note"`
		Amount *core.Money `json:"amount"`
	}

	reassignRequest struct {
		BankID int64 `json:"bank_id"`
	}

	loanRequest struct {
		Name                  string          `json:"name"`
		PrincipalRemaining    *core.Money     `json:"principal_remaining"`
		Type                  core.LoanType   `json:"loan_type"`
		AnnualInterestRate    decimal.Decimal `json:"annual_interest_rate"`
		PaymentDay            int             `json:"payment_day"`
		LastPaymentDate       core.Date       `json:"last_payment_date"`
		InstallmentsRemaining int             `json:"installments_remaining"`
		AutopayBankID         int64           `json:"autopay_bank_id"`
	}

	paymentRequest struct {
		BankID int64 `json:"bank_id"`
	}

	aggregateRequest struct {
		Points []expensePointJSON `json:"points"`
	}

	// Date is RFC 3339 or a bare YYYY-MM-DD, read as midnight in the
	// reporting location.
	expensePointJSON struct {
		Date   *string     `json:"date"`
		Amount *core.Money `json:"amount"`
	}
)

func (req loanRequest) toLoan() (core.Loan, *core.Error) {
	if req.PrincipalRemaining == nil {
		return core.Loan{}, core.Reject(core.KindInvalidLoanParameters, "principal_remaining", "principal_remaining is required")
	}
	return core.Loan{
		Name:                  sanitizeInput(req.Name),
		PrincipalRemaining:    *req.PrincipalRemaining,
		Type:                  req.Type,
		AnnualInterestRate:    req.AnnualInterestRate,
		PaymentDay:            req.PaymentDay,
		LastPaymentDate:       req.LastPaymentDate,
		InstallmentsRemaining: req.InstallmentsRemaining,
		AutopayBankID:         req.AutopayBankID,
	}, nil
}

// Response views.
type (
	bankJSON struct {
		ID        int64      `json:"id"`
		Name      string     `json:"name"`
		Balance   core.Money `json:"balance"`
		Deposited core.Money `json:"deposited"`
		Withdrawn core.Money `json:"withdrawn"`
		Closed    bool       `json:"closed"`
		CreatedAt time.Time  `json:"created_at"`
	}

	bankNameJSON struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}

	categoryJSON struct {
		ID             int64      `json:"id"`
		GroupID        int64      `json:"group_id"`
		BankID         int64      `json:"bank_id"`
		Title          string     `json:"title"`
		Note           string     `json:"note,omitempty"`
		AssignedAmount core.Money `json:"assigned_amount"`
		CreatedAt      time.Time  `json:"created_at"`
	}

	groupJSON struct {
		ID         int64          `json:"id"`
		Title      string         `json:"title"`
		AuthorID   string         `json:"author_id"`
		CreatedAt  time.Time      `json:"created_at"`
		Categories []categoryJSON `json:"categories"`
	}

	loanJSON struct {
		ID                    int64           `json:"id"`
		Name                  string          `json:"name"`
		PrincipalRemaining    core.Money      `json:"principal_remaining"`
		Type                  core.LoanType   `json:"loan_type"`
		AnnualInterestRate    decimal.Decimal `json:"annual_interest_rate"`
		PaymentDay            int             `json:"payment_day"`
		LastPaymentDate       core.Date       `json:"last_payment_date"`
		InstallmentsRemaining int             `json:"installments_remaining"`
		AutopayBankID         int64           `json:"autopay_bank_id,omitempty"`
		CreatedAt             time.Time       `json:"created_at"`
	}

	installmentJSON struct {
		SequenceNo       int        `json:"sequence_no"`
		DueDate          core.Date  `json:"due_date"`
		Payment          core.Money `json:"payment"`
		PrincipalPortion core.Money `json:"principal_portion"`
		InterestPortion  core.Money `json:"interest_portion"`
		RemainingBalance core.Money `json:"remaining_balance"`
	}

	scheduleJSON struct {
		Loan          *loanJSON         `json:"loan,omitempty"`
		Installments  []installmentJSON `json:"installments"`
		TotalPayment  core.Money        `json:"total_payment"`
		TotalInterest core.Money        `json:"total_interest"`
		NextDueDate   core.Date         `json:"next_due_date"`
	}

	paymentJSON struct {
		Loan        loanJSON        `json:"loan"`
		Installment installmentJSON `json:"installment"`
		Bank        *bankJSON       `json:"bank,omitempty"`
	}

	groupBalanceJSON struct {
		GroupID       int64      `json:"group_id"`
		Title         string     `json:"title"`
		CategoryCount int        `json:"category_count"`
		TotalAssigned core.Money `json:"total_assigned"`
	}

	dailyTotalJSON struct {
		Date  core.Date  `json:"date"`
		Total core.Money `json:"total"`
	}

	budgetSummaryJSON struct {
		Banks         int        `json:"banks"`
		OpenBanks     int        `json:"open_banks"`
		Categories    int        `json:"categories"`
		TotalIncome   core.Money `json:"total_income"`
		TotalExpenses core.Money `json:"total_expenses"`
		Available     core.Money `json:"available"`
		Allocated     core.Money `json:"allocated"`
		Currency      string     `json:"currency"`
	}

	monthBalanceJSON struct {
		Year     int        `json:"year"`
		Month    int        `json:"month"`
		Total    core.Money `json:"total"`
		Currency string     `json:"currency"`
	}

	discrepancyJSON struct {
		BankID   int64      `json:"bank_id"`
		Balance  core.Money `json:"balance"`
		Assigned core.Money `json:"assigned"`
		Expected core.Money `json:"expected"`
	}

	snapshotJSON struct {
		Banks   []bankJSON  `json:"banks"`
		Groups  []groupJSON `json:"groups"`
		Loans   []loanJSON  `json:"loans"`
		TakenAt time.Time   `json:"taken_at"`
	}
)

func toBankJSON(b core.Bank) bankJSON {
	return bankJSON{
		ID:        b.ID,
		Name:      b.Name,
		Balance:   b.Balance,
		Deposited: b.Deposited,
		Withdrawn: b.Withdrawn,
		Closed:    b.Closed,
		CreatedAt: b.CreatedAt,
	}
}

func toCategoryJSON(c core.Category) categoryJSON {
	return categoryJSON{
		ID:             c.ID,
		GroupID:        c.GroupID,
		BankID:         c.BankID,
		Title:          c.Title,
		Note:           c.Note,
		AssignedAmount: c.AssignedAmount,
		CreatedAt:      c.CreatedAt,
	}
}

func toGroupJSON(g core.Group) groupJSON {
	return groupJSON{
		ID:         g.ID,
		Title:      g.Title,
		AuthorID:   g.AuthorID,
		CreatedAt:  g.CreatedAt,
		Categories: mapSlice(g.Categories, toCategoryJSON),
	}
}

func toLoanJSON(l core.Loan) loanJSON {
	return loanJSON{
		ID:                    l.ID,
		Name:                  l.Name,
		PrincipalRemaining:    l.PrincipalRemaining,
		Type:                  l.Type,
		AnnualInterestRate:    l.AnnualInterestRate,
		PaymentDay:            l.PaymentDay,
		LastPaymentDate:       l.LastPaymentDate,
		InstallmentsRemaining: l.InstallmentsRemaining,
		AutopayBankID:         l.AutopayBankID,
		CreatedAt:             l.CreatedAt,
	}
}

func toInstallmentJSON(i core.Installment) installmentJSON {
	return installmentJSON{
		SequenceNo:       i.SequenceNo,
		DueDate:          i.DueDate,
		Payment:          i.Payment(),
		PrincipalPortion: i.PrincipalPortion,
		InterestPortion:  i.InterestPortion,
		RemainingBalance: i.RemainingBalance,
	}
}

func toScheduleJSON(s services.LoanSchedule) scheduleJSON {
	loan := toLoanJSON(s.Loan)
	return scheduleJSON{
		Loan:          &loan,
		Installments:  mapSlice(s.Installments, toInstallmentJSON),
		TotalPayment:  s.Summary.TotalPayment,
		TotalInterest: s.Summary.TotalInterest,
		NextDueDate:   s.Summary.NextDueDate,
	}
}

func toPaymentJSON(p ledger.Payment) paymentJSON {
	out := paymentJSON{Loan: toLoanJSON(p.Loan), Installment: toInstallmentJSON(p.Installment)}
	if p.Bank != nil {
		b := toBankJSON(*p.Bank)
		out.Bank = &b
	}
	return out
}

func toGroupBalanceJSON(g core.GroupBalance) groupBalanceJSON {
	return groupBalanceJSON{GroupID: g.GroupID, Title: g.Title, CategoryCount: g.CategoryCount, TotalAssigned: g.TotalAssigned}
}

func toDailyTotalJSON(d core.DailyTotal) dailyTotalJSON {
	return dailyTotalJSON{Date: d.Date, Total: d.Total}
}

func toDiscrepancyJSON(d core.Discrepancy) discrepancyJSON {
	return discrepancyJSON{BankID: d.BankID, Balance: d.Balance, Assigned: d.Assigned, Expected: d.Expected}
}

func toSnapshotJSON(s ledger.Snapshot) snapshotJSON {
	return snapshotJSON{
		Banks:   mapSlice(s.Banks, toBankJSON),
		Groups:  mapSlice(s.Groups, toGroupJSON),
		Loans:   mapSlice(s.Loans, toLoanJSON),
		TakenAt: s.TakenAt,
	}
}

// mapSlice converts every element; the result is never nil so lists encode
// as [].
func mapSlice[T any, R any](in []T, f func(T) R) []R {
	out := make([]R, 0, len(in))
	for _, v := range in {
		out = append(out, f(v))
	}
	return out
}
