package ledger_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"budzet/internal/core"
	"budzet/internal/ledger"
	"budzet/internal/storage/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []core.LedgerEvent
}

func (r *recorder) Notify(_ context.Context, ev core.LedgerEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) kinds() []core.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]core.EventKind, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Kind
	}
	return out
}

var fixedNow = time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

func newLedger(t *testing.T) (*ledger.Ledger, *memory.Store, *recorder) {
	t.Helper()
	store := memory.New()
	rec := &recorder{}
	l := ledger.New(store, ledger.WithNotifier(rec), ledger.WithClock(func() time.Time { return fixedNow }))
	return l, store, rec
}

func money(s string) core.Money { return core.MustParseMoney(s) }

func mustBank(t *testing.T, l *ledger.Ledger, name, opening string) core.Bank {
	t.Helper()
	b, err := l.OpenBank(context.Background(), name, money(opening))
	require.NoError(t, err)
	return b
}

func mustGroup(t *testing.T, l *ledger.Ledger, title string) core.Group {
	t.Helper()
	g, err := l.CreateGroup(context.Background(), title, "author-1")
	require.NoError(t, err)
	return g
}

func assertBalanced(t *testing.T, l *ledger.Ledger) {
	t.Helper()
	d, err := l.Audit(context.Background())
	require.NoError(t, err)
	assert.Empty(t, d)
}

func TestOpenBankAndGroup(t *testing.T) {
	l, _, rec := newLedger(t)
	ctx := context.Background()

	b := mustBank(t, l, " Main ", "500")
	assert.Equal(t, "Main", b.Name)
	assert.Equal(t, "500.00", b.Balance.String())
	assert.NotZero(t, b.ID)

	_, err := l.OpenBank(ctx, "Broke", money("-1"))
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
	_, err = l.OpenBank(ctx, "", money("1"))
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	g := mustGroup(t, l, "May")
	assert.Empty(t, g.Categories)
	_, err = l.CreateGroup(ctx, "June", "")
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	assert.Equal(t, []core.EventKind{core.EventBankOpened, core.EventGroupCreated}, rec.kinds())
}

func TestAllocateCategory(t *testing.T) {
	l, _, rec := newLedger(t)
	ctx := context.Background()
	b := mustBank(t, l, "Main", "500")
	g := mustGroup(t, l, "May")

	c, err := l.AllocateCategory(ctx, ledger.AllocateRequest{
		GroupID: g.ID, BankID: b.ID, Title: "Groceries", Amount: money("120.50"), Note: "weekly",
	})
	require.NoError(t, err)
	assert.NotZero(t, c.ID)
	assert.Equal(t, b.ID, c.BankID)
	assert.Equal(t, fixedNow, c.CreatedAt)

	b, err = l.Bank(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "379.50", b.Balance.String())

	g, err = l.Group(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, g.Categories, 1)
	assert.Equal(t, "Groceries", g.Categories[0].Title)

	require.NotEmpty(t, rec.events)
	last := rec.events[len(rec.events)-1]
	assert.Equal(t, core.EventCategoryAllocated, last.Kind)
	assert.Equal(t, c.ID, last.CategoryID)
	assertBalanced(t, l)
}

func TestAllocateInsufficientFundsLeavesStateUnchanged(t *testing.T) {
	l, _, rec := newLedger(t)
	ctx := context.Background()
	b := mustBank(t, l, "Main", "500")
	g := mustGroup(t, l, "May")
	before := len(rec.kinds())

	_, err := l.AllocateCategory(ctx, ledger.AllocateRequest{
		GroupID: g.ID, BankID: b.ID, Title: "Holiday", Amount: money("600"),
	})
	require.ErrorIs(t, err, core.ErrInsufficientFunds)
	var e *core.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "amount", e.Field)

	b, err = l.Bank(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "500.00", b.Balance.String())
	g, err = l.Group(ctx, g.ID)
	require.NoError(t, err)
	assert.Empty(t, g.Categories)
	assert.Len(t, rec.kinds(), before)
}

func TestAllocateRejections(t *testing.T) {
	l, _, _ := newLedger(t)
	ctx := context.Background()
	b := mustBank(t, l, "Main", "500")
	g := mustGroup(t, l, "May")

	cases := []struct {
		name string
		req  ledger.AllocateRequest
		want error
	}{
		{"unknown bank", ledger.AllocateRequest{GroupID: g.ID, BankID: 99, Title: "x", Amount: money("1")}, core.ErrUnknownBank},
		{"unknown group", ledger.AllocateRequest{GroupID: 99, BankID: b.ID, Title: "x", Amount: money("1")}, core.ErrUnknownGroup},
		{"zero amount", ledger.AllocateRequest{GroupID: g.ID, BankID: b.ID, Title: "x", Amount: core.Zero}, core.ErrInvalidArgument},
		{"no title", ledger.AllocateRequest{GroupID: g.ID, BankID: b.ID, Amount: money("1")}, core.ErrInvalidArgument},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := l.AllocateCategory(ctx, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestAllocateIdempotencyKey(t *testing.T) {
	l, _, rec := newLedger(t)
	ctx := context.Background()
	b := mustBank(t, l, "Main", "500")
	g := mustGroup(t, l, "May")
	req := ledger.AllocateRequest{GroupID: g.ID, BankID: b.ID, Title: "Rent", Amount: money("200"), IdempotencyKey: "req-1"}

	first, err := l.AllocateCategory(ctx, req)
	require.NoError(t, err)
	again, err := l.AllocateCategory(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	b, err = l.Bank(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "300.00", b.Balance.String(), "retry must not debit twice")
	assert.Len(t, rec.kinds(), 3)

	req.Amount = money("250")
	_, err = l.AllocateCategory(ctx, req)
	require.ErrorIs(t, err, core.ErrInvalidArgument)
	var e *core.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "idempotency_key", e.Field)
}

func TestConcurrentAllocationsNeverOverdraw(t *testing.T) {
	l, _, _ := newLedger(t)
	ctx := context.Background()
	b := mustBank(t, l, "Main", "1000")
	g := mustGroup(t, l, "May")

	var ok, rejected atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := l.AllocateCategory(ctx, ledger.AllocateRequest{
				GroupID: g.ID, BankID: b.ID, Title: fmt.Sprintf("c%d", i), Amount: money("15"),
			})
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, core.ErrInsufficientFunds):
				rejected.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(66), ok.Load())
	assert.Equal(t, int32(34), rejected.Load())
	b, err := l.Bank(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "10.00", b.Balance.String())
	assertBalanced(t, l)
}

func TestConcurrentIdempotentRetries(t *testing.T) {
	l, _, _ := newLedger(t)
	ctx := context.Background()
	b := mustBank(t, l, "Main", "100")
	g := mustGroup(t, l, "May")
	req := ledger.AllocateRequest{GroupID: g.ID, BankID: b.ID, Title: "Once", Amount: money("40"), IdempotencyKey: "same"}

	ids := make([]int64, 20)
	var wg sync.WaitGroup
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := l.AllocateCategory(ctx, req)
			if assert.NoError(t, err) {
				ids[i] = c.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	b, err := l.Bank(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "60.00", b.Balance.String())
}

func TestReassignCategoryBank(t *testing.T) {
	l, _, _ := newLedger(t)
	ctx := context.Background()
	a := mustBank(t, l, "A", "500")
	b := mustBank(t, l, "B", "100")
	g := mustGroup(t, l, "May")
	c, err := l.AllocateCategory(ctx, ledger.AllocateRequest{GroupID: g.ID, BankID: a.ID, Title: "Car", Amount: money("80")})
	require.NoError(t, err)

	moved, err := l.ReassignCategoryBank(ctx, c.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, moved.BankID)

	a, _ = l.Bank(ctx, a.ID)
	b, _ = l.Bank(ctx, b.ID)
	assert.Equal(t, "500.00", a.Balance.String())
	assert.Equal(t, "20.00", b.Balance.String())
	assertBalanced(t, l)

	same, err := l.ReassignCategoryBank(ctx, c.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, same.BankID)
}

func TestReassignInsufficientFundsKeepsOriginalBank(t *testing.T) {
	l, _, _ := newLedger(t)
	ctx := context.Background()
	a := mustBank(t, l, "A", "500")
	b := mustBank(t, l, "B", "10")
	g := mustGroup(t, l, "May")
	c, err := l.AllocateCategory(ctx, ledger.AllocateRequest{GroupID: g.ID, BankID: a.ID, Title: "Car", Amount: money("80")})
	require.NoError(t, err)

	_, err = l.ReassignCategoryBank(ctx, c.ID, b.ID)
	require.ErrorIs(t, err, core.ErrInsufficientFunds)

	c, err = l.Category(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, c.BankID)
	a, _ = l.Bank(ctx, a.ID)
	b, _ = l.Bank(ctx, b.ID)
	assert.Equal(t, "420.00", a.Balance.String())
	assert.Equal(t, "10.00", b.Balance.String())

	_, err = l.ReassignCategoryBank(ctx, 999, b.ID)
	assert.ErrorIs(t, err, core.ErrUnknownCategory)
	_, err = l.ReassignCategoryBank(ctx, c.ID, 999)
	assert.ErrorIs(t, err, core.ErrUnknownBank)
}

func TestConcurrentCrossReassignments(t *testing.T) {
	l, _, _ := newLedger(t)
	ctx := context.Background()
	a := mustBank(t, l, "A", "1000")
	b := mustBank(t, l, "B", "1000")
	g := mustGroup(t, l, "May")

	var cats []core.Category
	for i := 0; i < 10; i++ {
		bank := a.ID
		if i%2 == 1 {
			bank = b.ID
		}
		c, err := l.AllocateCategory(ctx, ledger.AllocateRequest{GroupID: g.ID, BankID: bank, Title: fmt.Sprintf("c%d", i), Amount: money("50")})
		require.NoError(t, err)
		cats = append(cats, c)
	}

	var wg sync.WaitGroup
	for round := 0; round < 4; round++ {
		for i, c := range cats {
			wg.Add(1)
			go func(id int64, target int64) {
				defer wg.Done()
				_, err := l.ReassignCategoryBank(ctx, id, target)
				assert.NoError(t, err)
			}(c.ID, []int64{a.ID, b.ID}[(i+round)%2])
		}
	}
	wg.Wait()
	assertBalanced(t, l)
}

func TestUpdateCategoryChargesDelta(t *testing.T) {
	l, _, _ := newLedger(t)
	ctx := context.Background()
	b := mustBank(t, l, "Main", "100")
	g := mustGroup(t, l, "May")
	c, err := l.AllocateCategory(ctx, ledger.AllocateRequest{GroupID: g.ID, BankID: b.ID, Title: "Food", Amount: money("50")})
	require.NoError(t, err)

	more := money("80")
	title := "Food & drinks"
	c, err = l.UpdateCategory(ctx, c.ID, ledger.CategoryUpdate{Amount: &more, Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Food & drinks", c.Title)
	b, _ = l.Bank(ctx, b.ID)
	assert.Equal(t, "20.00", b.Balance.String())

	less := money("10")
	_, err = l.UpdateCategory(ctx, c.ID, ledger.CategoryUpdate{Amount: &less})
	require.NoError(t, err)
	b, _ = l.Bank(ctx, b.ID)
	assert.Equal(t, "90.00", b.Balance.String())

	tooMuch := money("200")
	_, err = l.UpdateCategory(ctx, c.ID, ledger.CategoryUpdate{Amount: &tooMuch})
	assert.ErrorIs(t, err, core.ErrInsufficientFunds)

	zero := core.Zero
	_, err = l.UpdateCategory(ctx, c.ID, ledger.CategoryUpdate{Amount: &zero})
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
	assertBalanced(t, l)
}

func TestDepositWithdrawClose(t *testing.T) {
	l, _, _ := newLedger(t)
	ctx := context.Background()
	b := mustBank(t, l, "Main", "100")
	g := mustGroup(t, l, "May")

	b, err := l.Deposit(ctx, b.ID, money("25.25"))
	require.NoError(t, err)
	assert.Equal(t, "125.25", b.Balance.String())

	_, err = l.Withdraw(ctx, b.ID, money("200"))
	assert.ErrorIs(t, err, core.ErrInsufficientFunds)
	_, err = l.Withdraw(ctx, b.ID, core.Zero)
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	_, err = l.CloseBank(ctx, b.ID)
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	b, err = l.Withdraw(ctx, b.ID, money("125.25"))
	require.NoError(t, err)
	assert.True(t, b.Balance.IsZero())
	assertBalanced(t, l)

	b, err = l.CloseBank(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, b.Closed)
	_, err = l.CloseBank(ctx, b.ID)
	assert.NoError(t, err)

	_, err = l.Deposit(ctx, b.ID, money("1"))
	assert.ErrorIs(t, err, core.ErrBankClosed)
	_, err = l.AllocateCategory(ctx, ledger.AllocateRequest{GroupID: g.ID, BankID: b.ID, Title: "x", Amount: money("1")})
	assert.ErrorIs(t, err, core.ErrBankClosed)
	_, err = l.Deposit(ctx, 404, money("1"))
	assert.ErrorIs(t, err, core.ErrUnknownBank)
}

func TestCloseBankStillFundingCategories(t *testing.T) {
	l, _, _ := newLedger(t)
	ctx := context.Background()
	b := mustBank(t, l, "Main", "500")
	other := mustBank(t, l, "Other", "0")
	g := mustGroup(t, l, "May")
	c, err := l.AllocateCategory(ctx, ledger.AllocateRequest{GroupID: g.ID, BankID: b.ID, Title: "Rent", Amount: money("500")})
	require.NoError(t, err)

	_, err = l.CloseBank(ctx, b.ID)
	require.ErrorIs(t, err, core.ErrInvalidArgument)
	assert.Equal(t, "bank_id", core.AsError(err).Field)
	b, err = l.Bank(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, b.Closed)

	// The category can still shrink, handing money back to its bank.
	less := money("100")
	_, err = l.UpdateCategory(ctx, c.ID, ledger.CategoryUpdate{Amount: &less})
	require.NoError(t, err)

	_, err = l.Deposit(ctx, other.ID, money("100"))
	require.NoError(t, err)
	_, err = l.ReassignCategoryBank(ctx, c.ID, other.ID)
	require.NoError(t, err)
	_, err = l.Withdraw(ctx, b.ID, money("500"))
	require.NoError(t, err)

	b, err = l.CloseBank(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, b.Closed)
	assertBalanced(t, l)
}

func TestAmountsAboveMaximumAreRejected(t *testing.T) {
	l, _, _ := newLedger(t)
	ctx := context.Background()
	huge := money("200000000000000000.00")

	_, err := l.OpenBank(ctx, "Big", huge)
	require.ErrorIs(t, err, core.ErrInvalidArgument)
	assert.Equal(t, "opening_balance", core.AsError(err).Field)

	full := mustBank(t, l, "Full", core.MaxAmount.String())
	_, err = l.Deposit(ctx, full.ID, money("0.01"))
	require.ErrorIs(t, err, core.ErrInvalidArgument)
	assert.Equal(t, "amount", core.AsError(err).Field)

	b := mustBank(t, l, "Main", "10")
	_, err = l.Deposit(ctx, b.ID, huge)
	require.ErrorIs(t, err, core.ErrInvalidArgument)
	assert.Equal(t, "amount", core.AsError(err).Field)
	_, err = l.Withdraw(ctx, b.ID, huge)
	require.ErrorIs(t, err, core.ErrInvalidArgument)
	assert.Equal(t, "amount", core.AsError(err).Field)

	g := mustGroup(t, l, "May")
	_, err = l.AllocateCategory(ctx, ledger.AllocateRequest{GroupID: g.ID, BankID: b.ID, Title: "x", Amount: huge})
	require.ErrorIs(t, err, core.ErrInvalidArgument)
	assert.Equal(t, "amount", core.AsError(err).Field)

	b, err = l.Bank(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "10.00", b.Balance.String())
}

func testLoan() core.Loan {
	return core.Loan{
		Name:                  "Car loan",
		PrincipalRemaining:    money("12000"),
		Type:                  core.LoanFixed,
		AnnualInterestRate:    decimal.RequireFromString("0.12"),
		PaymentDay:            15,
		LastPaymentDate:       core.NewDate(2024, 4, 15),
		InstallmentsRemaining: 12,
	}
}

func TestLoanLifecycle(t *testing.T) {
	l, _, rec := newLedger(t)
	ctx := context.Background()
	b := mustBank(t, l, "Main", "2000")

	loan, err := l.CreateLoan(ctx, testLoan())
	require.NoError(t, err)
	assert.NotZero(t, loan.ID)

	schedule, err := l.Schedule(ctx, loan.ID)
	require.NoError(t, err)
	require.Len(t, schedule, 12)

	p, err := l.PayInstallment(ctx, loan.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "1066.19", p.Installment.Payment().String())
	assert.Equal(t, "11053.81", p.Loan.PrincipalRemaining.String())
	assert.Equal(t, 11, p.Loan.InstallmentsRemaining)
	assert.Equal(t, core.NewDate(2024, 5, 15), p.Loan.LastPaymentDate)
	require.NotNil(t, p.Bank)
	assert.Equal(t, "933.81", p.Bank.Balance.String())

	_, err = l.PayInstallment(ctx, loan.ID, b.ID)
	require.ErrorIs(t, err, core.ErrInsufficientFunds)
	stored, err := l.Loan(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, 11, stored.InstallmentsRemaining, "failed payment must not advance the loan")

	// Without a bank only the loan advances.
	p, err = l.PayInstallment(ctx, loan.ID, 0)
	require.NoError(t, err)
	assert.Nil(t, p.Bank)
	assert.Equal(t, 10, p.Loan.InstallmentsRemaining)

	assert.Contains(t, rec.kinds(), core.EventInstallmentPaid)
	assertBalanced(t, l)
}

func TestPayInstallmentUntilPaidOff(t *testing.T) {
	l, _, _ := newLedger(t)
	ctx := context.Background()
	in := testLoan()
	in.InstallmentsRemaining = 3
	in.PrincipalRemaining = money("100")
	loan, err := l.CreateLoan(ctx, in)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = l.PayInstallment(ctx, loan.ID, 0)
		require.NoError(t, err)
	}
	loan, err = l.Loan(ctx, loan.ID)
	require.NoError(t, err)
	assert.True(t, loan.IsPaidOff())

	_, err = l.PayInstallment(ctx, loan.ID, 0)
	assert.ErrorIs(t, err, core.ErrInvalidLoanParameters)
	_, err = l.PayInstallment(ctx, 42, 0)
	assert.ErrorIs(t, err, core.ErrUnknownLoan)
}

func TestCreateLoanRejections(t *testing.T) {
	l, _, _ := newLedger(t)
	ctx := context.Background()

	bad := testLoan()
	bad.PaymentDay = 0
	_, err := l.CreateLoan(ctx, bad)
	assert.ErrorIs(t, err, core.ErrInvalidLoanParameters)

	withAutopay := testLoan()
	withAutopay.AutopayBankID = 77
	_, err = l.CreateLoan(ctx, withAutopay)
	assert.ErrorIs(t, err, core.ErrUnknownBank)
}

func TestAutopayBankIsUsedByDefault(t *testing.T) {
	l, _, _ := newLedger(t)
	ctx := context.Background()
	b := mustBank(t, l, "Main", "5000")
	in := testLoan()
	in.AutopayBankID = b.ID
	loan, err := l.CreateLoan(ctx, in)
	require.NoError(t, err)

	p, err := l.PayInstallment(ctx, loan.ID, 0)
	require.NoError(t, err)
	require.NotNil(t, p.Bank)
	assert.Equal(t, "3933.81", p.Bank.Balance.String())
}

func TestSnapshotAndAudit(t *testing.T) {
	l, _, _ := newLedger(t)
	ctx := context.Background()
	b := mustBank(t, l, "Main", "300")
	g := mustGroup(t, l, "May")
	_, err := l.AllocateCategory(ctx, ledger.AllocateRequest{GroupID: g.ID, BankID: b.ID, Title: "x", Amount: money("100")})
	require.NoError(t, err)
	_, err = l.CreateLoan(ctx, testLoan())
	require.NoError(t, err)

	snap, err := l.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Banks, 1)
	assert.Len(t, snap.Groups, 1)
	assert.Len(t, snap.Groups[0].Categories, 1)
	assert.Len(t, snap.Loans, 1)
	assertBalanced(t, l)
}

type failingStore struct {
	*memory.Store
}

func (failingStore) Apply(context.Context, ledger.Mutation) (ledger.Applied, error) {
	return ledger.Applied{}, errors.New("database is locked")
}

func TestStoreFailureIsUnavailable(t *testing.T) {
	store := memory.New()
	ok := ledger.New(store)
	b, err := ok.OpenBank(context.Background(), "Main", money("10"))
	require.NoError(t, err)

	l := ledger.New(failingStore{store})
	_, err = l.Deposit(context.Background(), b.ID, money("1"))
	require.ErrorIs(t, err, core.ErrUnavailable)
	assert.True(t, core.AsError(err).Retryable())

	b, err = l.Bank(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, "10.00", b.Balance.String())
}

type conflictingStore struct {
	*memory.Store
}

func (conflictingStore) Apply(context.Context, ledger.Mutation) (ledger.Applied, error) {
	return ledger.Applied{}, fmt.Errorf("update bank 1: %w", core.ErrVersionConflict)
}

func TestVersionConflictIsUnavailable(t *testing.T) {
	store := memory.New()
	b, err := ledger.New(store).OpenBank(context.Background(), "Main", money("10"))
	require.NoError(t, err)

	_, err = ledger.New(conflictingStore{store}).Withdraw(context.Background(), b.ID, money("1"))
	assert.ErrorIs(t, err, core.ErrUnavailable)
	assert.ErrorIs(t, err, core.ErrVersionConflict)
}
