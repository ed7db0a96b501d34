package report

import (
	"sort"
	"time"

	"budzet/internal/core"
)

// GroupBalances totals the assigned amounts of every group, ordered by id.
func GroupBalances(groups []core.Group) []core.GroupBalance {
	out := make([]core.GroupBalance, 0, len(groups))
	for _, g := range groups {
		gb := core.GroupBalance{GroupID: g.ID, Title: g.Title, CategoryCount: len(g.Categories)}
		for _, c := range g.Categories {
			gb.TotalAssigned = gb.TotalAssigned.Add(c.AssignedAmount)
		}
		out = append(out, gb)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GroupID < out[j].GroupID })
	return out
}

// MonthBalance sums the categories created during year/month in loc.
func MonthBalance(categories []core.Category, year, month int, loc *time.Location) core.MonthBalance {
	if loc == nil {
		loc = time.UTC
	}
	mb := core.MonthBalance{Year: year, Month: month}
	for _, c := range categories {
		created := c.CreatedAt.In(loc)
		if created.Year() == year && int(created.Month()) == month {
			mb.Total = mb.Total.Add(c.AssignedAmount)
		}
	}
	return mb
}

// BudgetSummary totals every bank and category.
func BudgetSummary(banks []core.Bank, categories []core.Category) core.BudgetSummary {
	s := core.BudgetSummary{Banks: len(banks), Categories: len(categories)}
	for _, b := range banks {
		if !b.Closed {
			s.OpenBanks++
		}
		s.TotalIncome = s.TotalIncome.Add(b.Deposited)
		s.TotalExpenses = s.TotalExpenses.Add(b.Withdrawn)
		s.Available = s.Available.Add(b.Balance)
	}
	for _, c := range categories {
		s.Allocated = s.Allocated.Add(c.AssignedAmount)
	}
	return s
}
