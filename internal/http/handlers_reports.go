package http

import (
	"fmt"
	"net/http"
	"time"

	"budzet/internal/core"
)

func (s *Server) handleGroupBalances(w http.ResponseWriter, r *http.Request) {
	writeResult(w, r, s.facade.GroupBalances(r.Context()), http.StatusOK, func(gb []core.GroupBalance) []groupBalanceJSON {
		return mapSlice(gb, toGroupBalanceJSON)
	})
}

// handleGroupBalanceChart serves the daily series of one group, or of all
// groups when no id is given.
func (s *Server) handleGroupBalanceChart(w http.ResponseWriter, r *http.Request) {
	var groupID int64
	if r.PathValue("id") != "" {
		id, err := pathID(r, "id", "group_id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		groupID = id
	}
	writeResult(w, r, s.facade.GroupBalanceChart(r.Context(), groupID), http.StatusOK, func(series []core.DailyTotal) []dailyTotalJSON {
		return mapSlice(series, toDailyTotalJSON)
	})
}

func (s *Server) handleAggregate(w http.ResponseWriter, r *http.Request) {
	var req aggregateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	points := make([]core.ExpensePoint, len(req.Points))
	for i, p := range req.Points {
		if p.Date == nil {
			badRequest(w, r, fmt.Sprintf("points[%d].date", i), "date is required")
			return
		}
		at, err := parseInstant(*p.Date, s.facade.Location())
		if err != nil {
			badRequest(w, r, fmt.Sprintf("points[%d].date", i), "date must be RFC 3339 or YYYY-MM-DD")
			return
		}
		if p.Amount == nil {
			badRequest(w, r, fmt.Sprintf("points[%d].amount", i), "amount is required")
			return
		}
		points[i] = core.ExpensePoint{Date: at, Amount: *p.Amount}
	}
	writeResult(w, r, s.facade.Aggregate(points), http.StatusOK, func(series []core.DailyTotal) []dailyTotalJSON {
		return mapSlice(series, toDailyTotalJSON)
	})
}

func (s *Server) handleBudgetSummary(w http.ResponseWriter, r *http.Request) {
	currency := s.facade.Currency()
	writeResult(w, r, s.facade.BudgetSummary(r.Context()), http.StatusOK, func(b core.BudgetSummary) budgetSummaryJSON {
		return budgetSummaryJSON{
			Banks:         b.Banks,
			OpenBanks:     b.OpenBanks,
			Categories:    b.Categories,
			TotalIncome:   b.TotalIncome,
			TotalExpenses: b.TotalExpenses,
			Available:     b.Available,
			Allocated:     b.Allocated,
			Currency:      currency,
		}
	})
}

// handleMonthBalance totals allocations of one month, the current one in the
// ledger's location by default.
func (s *Server) handleMonthBalance(w http.ResponseWriter, r *http.Request) {
	now := time.Now().In(s.facade.Location())
	year, err := queryInt(r, "year", now.Year())
	if err != nil {
		writeError(w, r, err)
		return
	}
	month, err := queryInt(r, "month", int(now.Month()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	currency := s.facade.Currency()
	writeResult(w, r, s.facade.MonthBalance(r.Context(), year, month), http.StatusOK, func(mb core.MonthBalance) monthBalanceJSON {
		return monthBalanceJSON{Year: mb.Year, Month: mb.Month, Total: mb.Total, Currency: currency}
	})
}

// handleAudit lists banks whose balance disagrees with their movements.
func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	writeResult(w, r, s.facade.Audit(r.Context()), http.StatusOK, func(d []core.Discrepancy) []discrepancyJSON {
		return mapSlice(d, toDiscrepancyJSON)
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeResult(w, r, s.facade.Snapshot(r.Context()), http.StatusOK, toSnapshotJSON)
}

