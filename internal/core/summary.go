package core

// DailyTotal is one point of an aggregated expense series.
type DailyTotal struct {
	Date  Date
	Total Money
}

// GroupBalance summarises the money earmarked inside one group.
type GroupBalance struct {
	GroupID       int64
	Title         string
	CategoryCount int
	TotalAssigned Money
}

// MonthBalance is the amount allocated during a calendar month.
type MonthBalance struct {
	Year  int
	Month int // 1-12
	Total Money
}

// BudgetSummary is the ledger-wide picture: money that came in and left
// through banks, what still sits in them and what is earmarked in categories.
type BudgetSummary struct {
	Banks         int
	OpenBanks     int
	Categories    int
	TotalIncome   Money // deposits, opening balances included
	TotalExpenses Money // withdrawals
	Available     Money // current bank balances
	Allocated     Money // assigned to categories
}

// ScheduleSummary totals a computed installment schedule.
type ScheduleSummary struct {
	Installments  int
	TotalPayment  Money
	TotalInterest Money
	NextDueDate   Date
}

// Discrepancy reports a bank that breaks the conservation invariant.
type Discrepancy struct {
	BankID   int64
	Balance  Money
	Assigned Money
	Expected Money // deposited - withdrawn
}
