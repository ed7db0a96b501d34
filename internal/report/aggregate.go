// Package report turns ledger records into the series and totals the
// dashboard charts are drawn from. Everything here is pure.
package report

import (
	"sort"
	"time"

	"budzet/internal/core"
)

// Aggregate sums points per calendar date in loc and returns the totals in
// ascending date order. Dates without points are not synthesized. A nil loc
// means UTC.
func Aggregate(points []core.ExpensePoint, loc *time.Location) []core.DailyTotal {
	if len(points) == 0 {
		return []core.DailyTotal{}
	}
	if loc == nil {
		loc = time.UTC
	}

	totals := make(map[core.Date]core.Money, len(points))
	for _, p := range points {
		d := core.DateOf(p.Date.In(loc))
		totals[d] = totals[d].Add(p.Amount)
	}

	out := make([]core.DailyTotal, 0, len(totals))
	for d, total := range totals {
		out = append(out, core.DailyTotal{Date: d, Total: total})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date.Time)
	})
	return out
}

// CategoryPoints maps categories to expense points dated by creation time.
func CategoryPoints(categories []core.Category) []core.ExpensePoint {
	points := make([]core.ExpensePoint, 0, len(categories))
	for _, c := range categories {
		points = append(points, core.ExpensePoint{Date: c.CreatedAt, Amount: c.AssignedAmount})
	}
	return points
}
