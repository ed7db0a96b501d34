package http

import (
	"context"
	"net/http"

	"budzet/internal/core"
	"budzet/internal/services"
)

func (s *Server) handleOpenBank(w http.ResponseWriter, r *http.Request) {
	var req openBankRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	opening := core.Money{}
	if req.OpeningBalance != nil {
		opening = *req.OpeningBalance
	}
	res := s.facade.OpenBank(r.Context(), sanitizeInput(req.Name), opening)
	writeResult(w, r, res, http.StatusCreated, toBankJSON)
}

func (s *Server) handleListBanks(w http.ResponseWriter, r *http.Request) {
	writeResult(w, r, s.facade.Banks(r.Context()), http.StatusOK, func(banks []core.Bank) []bankJSON {
		return mapSlice(banks, toBankJSON)
	})
}

// handleBankNames lists open banks for selection lists.
func (s *Server) handleBankNames(w http.ResponseWriter, r *http.Request) {
	writeResult(w, r, s.facade.BankNames(r.Context()), http.StatusOK, func(names []services.BankName) []bankNameJSON {
		return mapSlice(names, func(n services.BankName) bankNameJSON {
			return bankNameJSON{ID: n.ID, Name: n.Name}
		})
	})
}

func (s *Server) handleGetBank(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "bank_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, r, s.facade.Bank(r.Context(), id), http.StatusOK, toBankJSON)
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	s.handleBankMovement(w, r, s.facade.Deposit)
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	s.handleBankMovement(w, r, s.facade.Withdraw)
}

type movement func(ctx context.Context, bankID int64, amount core.Money) services.Result[core.Bank]

func (s *Server) handleBankMovement(w http.ResponseWriter, r *http.Request, apply movement) {
	id, err := pathID(r, "id", "bank_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req amountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := requireMoney(req.Amount, "amount"); err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, r, apply(r.Context(), id, *req.Amount), http.StatusOK, toBankJSON)
}

func (s *Server) handleCloseBank(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "bank_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, r, s.facade.CloseBank(r.Context(), id), http.StatusOK, toBankJSON)
}
