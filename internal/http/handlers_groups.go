package http

import (
	"net/http"

	"budzet/internal/core"
	"budzet/internal/ledger"
)

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res := s.facade.CreateGroup(r.Context(), sanitizeInput(req.Title), sanitizeInput(req.AuthorID))
	writeResult(w, r, res, http.StatusCreated, toGroupJSON)
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	writeResult(w, r, s.facade.Groups(r.Context()), http.StatusOK, func(groups []core.Group) []groupJSON {
		return mapSlice(groups, toGroupJSON)
	})
}

func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "group_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, r, s.facade.Group(r.Context(), id), http.StatusOK, toGroupJSON)
}

// handleAllocateCategory allocates from a bank into a new category. A
// repeated Idempotency-Key returns the category created the first time.
func (s *Server) handleAllocateCategory(w http.ResponseWriter, r *http.Request) {
	groupID, err := pathID(r, "id", "group_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	key, err := idempotencyKey(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req allocateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := requireMoney(req.Amount, "amount"); err != nil {
		writeError(w, r, err)
		return
	}

	res := s.facade.AllocateCategory(r.Context(), ledger.AllocateRequest{
		GroupID:        groupID,
		BankID:         req.BankID,
		Title:          sanitizeInput(req.Title),
		Note:           sanitizeInput(req.Note),
		Amount:         *req.Amount,
		IdempotencyKey: key,
	})
	writeResult(w, r, res, http.StatusCreated, toCategoryJSON)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	groupID, err := pathID(r, "id", "group_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	categoryID, err := pathID(r, "cid", "category_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req updateCategoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Title == nil && req.Note == nil && req.Amount == nil {
		badRequest(w, r, "body", "nothing to update")
		return
	}

	res := s.facade.UpdateCategory(r.Context(), groupID, categoryID, ledger.CategoryUpdate{
		Title:  sanitizePtr(req.Title),
		Note:   sanitizePtr(req.Note),
		Amount: req.Amount,
	})
	writeResult(w, r, res, http.StatusOK, toCategoryJSON)
}

func (s *Server) handleReassignCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, err := pathID(r, "cid", "category_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req reassignRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.BankID <= 0 {
		badRequest(w, r, "bank_id", "bank_id is required")
		return
	}
	writeResult(w, r, s.facade.ReassignCategoryBank(r.Context(), categoryID, req.BankID), http.StatusOK, toCategoryJSON)
}
