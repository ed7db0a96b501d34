// Package services exposes the ledger, the amortization engine and the
// reports as one command surface and runs the autopay schedule.
package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"budzet/internal/amortization"
	"budzet/internal/cache"
	"budzet/internal/core"
	"budzet/internal/ledger"
	"budzet/internal/report"

	"golang.org/x/sync/singleflight"
)

// FacadeConfig tunes reporting and the chart series cache.
type FacadeConfig struct {
	Location        *time.Location
	Currency        string
	SeriesCacheSize int
	SeriesCacheTTL  time.Duration
}

func DefaultFacadeConfig() FacadeConfig {
	return FacadeConfig{
		Location:        time.UTC,
		Currency:        "PLN",
		SeriesCacheSize: 128,
		SeriesCacheTTL:  5 * time.Minute,
	}
}

// LedgerFacade is the only entry point the API layer and workers use.
// Every command answers with a Result.
type LedgerFacade struct {
	ledger     *ledger.Ledger
	loc        *time.Location
	currency   string
	series     *cache.LRUCache[[]core.DailyTotal]
	generation atomic.Int64
	fill       singleflight.Group
}

func NewLedgerFacade(l *ledger.Ledger, cfg FacadeConfig) *LedgerFacade {
	def := DefaultFacadeConfig()
	if cfg.Location == nil {
		cfg.Location = def.Location
	}
	if cfg.Currency == "" {
		cfg.Currency = def.Currency
	}
	if cfg.SeriesCacheSize <= 0 {
		cfg.SeriesCacheSize = def.SeriesCacheSize
	}
	if cfg.SeriesCacheTTL <= 0 {
		cfg.SeriesCacheTTL = def.SeriesCacheTTL
	}
	return &LedgerFacade{
		ledger:   l,
		loc:      cfg.Location,
		currency: cfg.Currency,
		series:   cache.NewLRUCache[[]core.DailyTotal](cfg.SeriesCacheSize, cfg.SeriesCacheTTL),
	}
}

func (f *LedgerFacade) Currency() string { return f.currency }

func (f *LedgerFacade) Location() *time.Location { return f.loc }

// SeriesCache exposes the chart cache to the janitor.
func (f *LedgerFacade) SeriesCache() cache.Cleaner { return f.series }

// invalidateSeries makes every cached chart series unreachable.
func (f *LedgerFacade) invalidateSeries() {
	f.generation.Add(1)
	f.series.Purge()
}

func (f *LedgerFacade) OpenBank(ctx context.Context, name string, opening core.Money) Result[core.Bank] {
	return resultOf(f.ledger.OpenBank(ctx, name, opening))
}

func (f *LedgerFacade) Deposit(ctx context.Context, bankID int64, amount core.Money) Result[core.Bank] {
	return resultOf(f.ledger.Deposit(ctx, bankID, amount))
}

func (f *LedgerFacade) Withdraw(ctx context.Context, bankID int64, amount core.Money) Result[core.Bank] {
	return resultOf(f.ledger.Withdraw(ctx, bankID, amount))
}

func (f *LedgerFacade) CloseBank(ctx context.Context, bankID int64) Result[core.Bank] {
	return resultOf(f.ledger.CloseBank(ctx, bankID))
}

func (f *LedgerFacade) Bank(ctx context.Context, id int64) Result[core.Bank] {
	return resultOf(f.ledger.Bank(ctx, id))
}

func (f *LedgerFacade) Banks(ctx context.Context) Result[[]core.Bank] {
	return resultOf(f.ledger.Banks(ctx))
}

// BankName is the short form used by selection lists.
type BankName struct {
	ID   int64
	Name string
}

// BankNames lists the banks that can still take allocations.
func (f *LedgerFacade) BankNames(ctx context.Context) Result[[]BankName] {
	banks, err := f.ledger.Banks(ctx)
	if err != nil {
		return Fail[[]BankName](err)
	}
	names := make([]BankName, 0, len(banks))
	for _, b := range banks {
		if !b.Closed {
			names = append(names, BankName{ID: b.ID, Name: b.Name})
		}
	}
	return Ok(names)
}

func (f *LedgerFacade) CreateGroup(ctx context.Context, title, authorID string) Result[core.Group] {
	return resultOf(f.ledger.CreateGroup(ctx, title, authorID))
}

func (f *LedgerFacade) Group(ctx context.Context, id int64) Result[core.Group] {
	return resultOf(f.ledger.Group(ctx, id))
}

func (f *LedgerFacade) Groups(ctx context.Context) Result[[]core.Group] {
	return resultOf(f.ledger.Groups(ctx))
}

func (f *LedgerFacade) AllocateCategory(ctx context.Context, req ledger.AllocateRequest) Result[core.Category] {
	c, err := f.ledger.AllocateCategory(ctx, req)
	if err != nil {
		return Fail[core.Category](err)
	}
	f.invalidateSeries()
	return Ok(c)
}

// UpdateCategory edits a category of groupID.
func (f *LedgerFacade) UpdateCategory(ctx context.Context, groupID, categoryID int64, upd ledger.CategoryUpdate) Result[core.Category] {
	c, err := f.ledger.Category(ctx, categoryID)
	if err != nil {
		return Fail[core.Category](err)
	}
	if c.GroupID != groupID {
		return Fail[core.Category](core.Reject(core.KindUnknownCategory, "category_id",
			"category %d does not belong to group %d", categoryID, groupID))
	}
	c, err = f.ledger.UpdateCategory(ctx, categoryID, upd)
	if err != nil {
		return Fail[core.Category](err)
	}
	f.invalidateSeries()
	return Ok(c)
}

func (f *LedgerFacade) ReassignCategoryBank(ctx context.Context, categoryID, bankID int64) Result[core.Category] {
	c, err := f.ledger.ReassignCategoryBank(ctx, categoryID, bankID)
	if err != nil {
		return Fail[core.Category](err)
	}
	f.invalidateSeries()
	return Ok(c)
}

func (f *LedgerFacade) CreateLoan(ctx context.Context, loan core.Loan) Result[core.Loan] {
	return resultOf(f.ledger.CreateLoan(ctx, loan))
}

func (f *LedgerFacade) Loan(ctx context.Context, id int64) Result[core.Loan] {
	return resultOf(f.ledger.Loan(ctx, id))
}

func (f *LedgerFacade) Loans(ctx context.Context) Result[[]core.Loan] {
	return resultOf(f.ledger.Loans(ctx))
}

// LoanSchedule is a stored loan with its remaining installments.
type LoanSchedule struct {
	Loan         core.Loan
	Installments []core.Installment
	Summary      core.ScheduleSummary
}

// Installments recomputes the schedule of a stored loan. A paid off loan has
// an empty schedule.
func (f *LedgerFacade) Installments(ctx context.Context, loanID int64) Result[LoanSchedule] {
	loan, err := f.ledger.Loan(ctx, loanID)
	if err != nil {
		return Fail[LoanSchedule](err)
	}
	if loan.InstallmentsRemaining == 0 {
		return Ok(LoanSchedule{Loan: loan, Installments: []core.Installment{}})
	}
	schedule, err := amortization.Schedule(loan)
	if err != nil {
		return Fail[LoanSchedule](err)
	}
	return Ok(LoanSchedule{Loan: loan, Installments: schedule, Summary: amortization.Summarize(schedule)})
}

// Schedule computes installments for loan parameters that are not stored.
func (f *LedgerFacade) Schedule(loan core.Loan) Result[[]core.Installment] {
	return resultOf(amortization.Schedule(loan))
}

func (f *LedgerFacade) PayInstallment(ctx context.Context, loanID, bankID int64) Result[ledger.Payment] {
	return resultOf(f.ledger.PayInstallment(ctx, loanID, bankID))
}

func (f *LedgerFacade) GroupBalances(ctx context.Context) Result[[]core.GroupBalance] {
	groups, err := f.ledger.Groups(ctx)
	if err != nil {
		return Fail[[]core.GroupBalance](err)
	}
	return Ok(report.GroupBalances(groups))
}

// GroupBalanceChart is the daily allocation series of one group, or of all
// groups when groupID is zero. Series are cached until the next category
// mutation.
func (f *LedgerFacade) GroupBalanceChart(ctx context.Context, groupID int64) Result[[]core.DailyTotal] {
	key := fmt.Sprintf("%d:group:%d", f.generation.Load(), groupID)
	if series, ok := f.series.Get(key); ok {
		return Ok(series)
	}

	// The fill is shared by every waiter on key, so one caller going away
	// must not fail the others.
	fillCtx := context.WithoutCancel(ctx)
	v, err, _ := f.fill.Do(key, func() (interface{}, error) {
		var cats []core.Category
		if groupID == 0 {
			all, err := f.ledger.Categories(fillCtx)
			if err != nil {
				return nil, err
			}
			cats = all
		} else {
			g, err := f.ledger.Group(fillCtx, groupID)
			if err != nil {
				return nil, err
			}
			cats = g.Categories
		}
		series := report.Aggregate(report.CategoryPoints(cats), f.loc)
		f.series.Set(key, series)
		return series, nil
	})
	if err != nil {
		return Fail[[]core.DailyTotal](err)
	}
	return Ok(v.([]core.DailyTotal))
}

// Aggregate groups caller supplied expense points per day.
func (f *LedgerFacade) Aggregate(points []core.ExpensePoint) Result[[]core.DailyTotal] {
	return Ok(report.Aggregate(points, f.loc))
}

// BudgetSummary totals income, expenses, bank balances and allocations
// across the whole ledger.
func (f *LedgerFacade) BudgetSummary(ctx context.Context) Result[core.BudgetSummary] {
	banks, err := f.ledger.Banks(ctx)
	if err != nil {
		return Fail[core.BudgetSummary](err)
	}
	cats, err := f.ledger.Categories(ctx)
	if err != nil {
		return Fail[core.BudgetSummary](err)
	}
	return Ok(report.BudgetSummary(banks, cats))
}

func (f *LedgerFacade) MonthBalance(ctx context.Context, year, month int) Result[core.MonthBalance] {
	if month < 1 || month > 12 {
		return Fail[core.MonthBalance](core.Reject(core.KindInvalidArgument, "month", "month must be between 1 and 12, got %d", month))
	}
	if year < 1 {
		return Fail[core.MonthBalance](core.Reject(core.KindInvalidArgument, "year", "invalid year %d", year))
	}
	cats, err := f.ledger.Categories(ctx)
	if err != nil {
		return Fail[core.MonthBalance](err)
	}
	return Ok(report.MonthBalance(cats, year, month, f.loc))
}

func (f *LedgerFacade) Audit(ctx context.Context) Result[[]core.Discrepancy] {
	d, err := f.ledger.Audit(ctx)
	if d == nil && err == nil {
		d = []core.Discrepancy{}
	}
	return resultOf(d, err)
}

func (f *LedgerFacade) Snapshot(ctx context.Context) Result[ledger.Snapshot] {
	return resultOf(f.ledger.Snapshot(ctx))
}
