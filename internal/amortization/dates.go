package amortization

import (
	"time"

	"budzet/internal/core"
)

// clampedDate returns paymentDay in the given month, or the month's last day
// when the month is shorter.
func clampedDate(year int, month time.Month, paymentDay int) core.Date {
	// Normalise month overflow first (month 13 -> January next year).
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	day := paymentDay
	if last := core.DaysIn(first.Year(), first.Month()); day > last {
		day = last
	}
	return core.NewDate(first.Year(), int(first.Month()), day)
}

// FirstDueDate is the next occurrence of paymentDay strictly after last.
func FirstDueDate(last core.Date, paymentDay int) core.Date {
	candidate := clampedDate(last.Year(), last.Time.Month(), paymentDay)
	if candidate.After(last.Time) {
		return candidate
	}
	return clampedDate(last.Year(), last.Time.Month()+1, paymentDay)
}

// DueDates returns n due dates one calendar month apart starting at the first
// occurrence of paymentDay after last. Clamping is applied to paymentDay in
// every month, so a 31st schedule goes Jan 31, Feb 29, Mar 31.
func DueDates(last core.Date, paymentDay, n int) []core.Date {
	if n <= 0 {
		return nil
	}
	first := FirstDueDate(last, paymentDay)
	dates := make([]core.Date, n)
	for i := range dates {
		dates[i] = clampedDate(first.Year(), first.Time.Month()+time.Month(i), paymentDay)
	}
	return dates
}
