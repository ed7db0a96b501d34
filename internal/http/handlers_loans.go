package http

import (
	"net/http"

	"budzet/internal/amortization"
	"budzet/internal/core"
)

func (s *Server) handleCreateLoan(w http.ResponseWriter, r *http.Request) {
	var req loanRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	loan, err := req.toLoan()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, r, s.facade.CreateLoan(r.Context(), loan), http.StatusCreated, toLoanJSON)
}

func (s *Server) handleListLoans(w http.ResponseWriter, r *http.Request) {
	writeResult(w, r, s.facade.Loans(r.Context()), http.StatusOK, func(loans []core.Loan) []loanJSON {
		return mapSlice(loans, toLoanJSON)
	})
}

func (s *Server) handleGetLoan(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "loan_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, r, s.facade.Loan(r.Context(), id), http.StatusOK, toLoanJSON)
}

// handlePreviewSchedule computes a schedule for loan parameters without
// storing the loan.
func (s *Server) handlePreviewSchedule(w http.ResponseWriter, r *http.Request) {
	var req loanRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	loan, err := req.toLoan()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, r, s.facade.Schedule(loan), http.StatusOK, func(inst []core.Installment) scheduleJSON {
		sum := amortization.Summarize(inst)
		return scheduleJSON{
			Installments:  mapSlice(inst, toInstallmentJSON),
			TotalPayment:  sum.TotalPayment,
			TotalInterest: sum.TotalInterest,
			NextDueDate:   sum.NextDueDate,
		}
	})
}

func (s *Server) handleInstallments(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "loan_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, r, s.facade.Installments(r.Context(), id), http.StatusOK, toScheduleJSON)
}

// handlePayInstallment applies the next installment. A zero bank_id records
// the payment without debiting a bank.
func (s *Server) handlePayInstallment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "loan_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req paymentRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}
	writeResult(w, r, s.facade.PayInstallment(r.Context(), id, req.BankID), http.StatusOK, toPaymentJSON)
}
