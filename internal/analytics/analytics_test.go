package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartexpense/internal/core"
	"smartexpense/internal/records"
	"smartexpense/internal/records/memory"
)

const user core.UserID = "u1"

type fixture struct {
	t     *testing.T
	store *memory.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := memory.New()
	require.NoError(t, s.EnsureDefaultCategories(context.Background()))
	return &fixture{t: t, store: s}
}

func (f *fixture) tx(typ core.TxType, category, amount string, d core.Date) {
	f.t.Helper()
	_, err := f.store.CreateTransaction(context.Background(), core.Transaction{
		User: user, Amount: core.MustMoney(amount), Type: typ, Category: category, Date: d,
	})
	require.NoError(f.t, err)
}

func (f *fixture) budget(month core.Date, amount string) {
	f.t.Helper()
	require.NoError(f.t, f.store.UpsertBudget(context.Background(), core.Budget{User: user, Month: month, Amount: core.MustMoney(amount)}))
}

func (f *fixture) engine() *Engine { return NewEngine(f.store, nil) }

func money(s string) core.Money { return core.MustMoney(s) }

func TestTotalsAndMonthlyOverview(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.tx(core.Income, "Salary", "1000", core.NewDate(2025, 1, 5))
	f.tx(core.Expense, "Food", "250.50", core.NewDate(2025, 1, 20))
	f.tx(core.Saving, "Retirement", "100", core.NewDate(2025, 2, 1))
	f.tx(core.Expense, "Bills", "99.50", core.NewDate(2025, 2, 28))
	e := f.engine()

	all, err := e.Totals(ctx, user, core.DateRange{})
	require.NoError(t, err)
	assert.Equal(t, "1000.00", all.Income.String())
	assert.Equal(t, "350.00", all.Expense.String())
	assert.Equal(t, "100.00", all.Saving.String())
	assert.True(t, all.Balance.Equal(all.Income.Sub(all.Expense)))
	assert.True(t, all.NetSavings.Equal(all.Saving.Add(all.Balance)))

	// Any partition of the timeline sums back to the full totals.
	jan, err := e.MonthlyOverview(ctx, user, core.NewDate(2025, 1, 31))
	require.NoError(t, err)
	feb, err := e.MonthlyOverview(ctx, user, core.NewDate(2025, 2, 14))
	require.NoError(t, err)
	assert.Equal(t, "2025-01", jan.Month)
	assert.Equal(t, "2025-02", feb.Month)
	assert.True(t, all.Income.Equal(jan.Income.Add(feb.Income)))
	assert.True(t, all.Expense.Equal(jan.Expense.Add(feb.Expense)))
	assert.True(t, all.Saving.Equal(jan.Saving.Add(feb.Saving)))

	// Empty buckets are zero, never absent.
	mar, err := e.MonthlyOverview(ctx, user, core.NewDate(2025, 3, 1))
	require.NoError(t, err)
	assert.True(t, mar.Income.IsZero() && mar.Expense.IsZero() && mar.NetSavings.IsZero())
}

func TestTotalsRejectsInvertedRange(t *testing.T) {
	start, end := core.NewDate(2025, 2, 1), core.NewDate(2025, 1, 1)
	_, err := newFixture(t).engine().Totals(context.Background(), user, core.DateRange{Start: &start, End: &end})
	assert.ErrorIs(t, err, core.ErrInvalidRange)
}

func TestCategoryTotalsRanking(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	d := core.NewDate(2025, 1, 10)
	f.tx(core.Expense, "Food", "100", d)
	f.tx(core.Expense, "Food", "50", d)
	f.tx(core.Expense, "Travel", "150", d)
	f.tx(core.Expense, "Bills", "300", d)
	f.tx(core.Income, "Salary", "2000", d)
	e := f.engine()

	got, err := e.CategoryTotals(ctx, user, core.Expense)
	require.NoError(t, err)
	assert.Equal(t, []core.CategoryTotal{
		{Category: "Bills", Total: money("300")},
		{Category: "Food", Total: money("150")}, // tie with Travel, broken by name
		{Category: "Travel", Total: money("150")},
	}, got)

	all, err := e.CategoryTotals(ctx, user, "")
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "Salary", all[0].Category)
	for i := 1; i < len(all); i++ {
		assert.GreaterOrEqual(t, all[i-1].Total.Cmp(all[i].Total), 0)
	}

	_, err = e.CategoryTotals(ctx, user, "transfer")
	assert.ErrorIs(t, err, core.ErrInvalidType)
}

func TestTrendIsSparseAndOrdered(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.tx(core.Expense, "Food", "10", core.NewDate(2025, 3, 2))
	f.tx(core.Expense, "Food", "20", core.NewDate(2024, 12, 31))
	f.tx(core.Expense, "Bills", "5", core.NewDate(2025, 3, 30))
	f.tx(core.Income, "Salary", "900", core.NewDate(2025, 1, 1))

	got, err := f.engine().Trend(ctx, user, core.Expense)
	require.NoError(t, err)
	assert.Equal(t, []core.TrendPoint{
		{Month: "2024-12", Total: money("20")},
		{Month: "2025-03", Total: money("15")},
	}, got)

	sum := core.Zero()
	for _, p := range got {
		assert.True(t, p.Total.IsPositive())
		sum = sum.Add(p.Total)
	}
	totals, _ := f.engine().Totals(ctx, user, core.DateRange{})
	assert.True(t, sum.Equal(totals.Expense))
}

func TestGoalTrendAndProgress(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	laptop, err := f.store.CreateGoal(ctx, core.SavingGoal{User: user, Name: "Laptop", Target: money("50000")})
	require.NoError(t, err)
	bike, err := f.store.CreateGoal(ctx, core.SavingGoal{User: user, Name: "Bike", Target: money("800")})
	require.NoError(t, err)
	for _, c := range []struct {
		goal   int64
		amount string
		date   core.Date
	}{
		{laptop.ID, "10000", core.NewDate(2025, 1, 3)},
		{laptop.ID, "5000", core.NewDate(2025, 2, 3)},
		{bike.ID, "200", core.NewDate(2025, 2, 20)},
	} {
		_, err := f.store.AddContribution(ctx, core.SavingContribution{User: user, GoalID: c.goal, Amount: money(c.amount), Date: c.date})
		require.NoError(t, err)
	}
	e := f.engine()

	trend, err := e.GoalTrend(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, []core.TrendPoint{
		{Month: "2025-01", Total: money("10000")},
		{Month: "2025-02", Total: money("5200")},
	}, trend)

	goals, err := e.Goals(ctx, user)
	require.NoError(t, err)
	require.Len(t, goals, 2)
	byName := map[string]core.GoalProgress{}
	for _, g := range goals {
		byName[g.Name] = g
	}
	assert.Equal(t, "15000.00", byName["Laptop"].Current.String())
	assert.Equal(t, "35000.00", byName["Laptop"].Remaining.String())
	assert.Equal(t, "30.00", byName["Laptop"].ProgressPercent.String())
	assert.Equal(t, "25.00", byName["Bike"].ProgressPercent.String())

	none, err := e.Goals(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestBudgetStatus(t *testing.T) {
	month := core.NewDate(2025, 4, 1)
	tests := []struct {
		name          string
		budget        string // empty: no budget row
		spent         []string
		wantPercent   string
		wantAlert     core.BudgetAlert
		wantRemaining string
	}{
		{"eighty percent", "1000", []string{"500", "300"}, "80.00", core.AlertWarning, "200.00"},
		{"exactly exceeded", "1000", []string{"1000"}, "100.00", core.AlertExceeded, "0.00"},
		{"over budget", "1000", []string{"1200"}, "120.00", core.AlertExceeded, "-200.00"},
		{"nothing spent", "1000", nil, "0.00", core.AlertNone, "1000.00"},
		{"just under warning", "1000", []string{"799.99"}, "80.00", core.AlertNone, "200.01"},
		{"just under exceeded", "1000", []string{"999.99"}, "100.00", core.AlertWarning, "0.01"},
		{"well below", "1000", []string{"790"}, "79.00", core.AlertNone, "210.00"},
		{"no budget", "", []string{"450"}, "0.00", core.AlertNone, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.budget != "" {
				f.budget(month, tt.budget)
			}
			for _, s := range tt.spent {
				f.tx(core.Expense, "Bills", s, core.NewDate(2025, 4, 15))
			}
			// Other months never count.
			f.tx(core.Expense, "Bills", "999", core.NewDate(2025, 3, 31))

			got, err := f.engine().BudgetStatus(context.Background(), user, core.NewDate(2025, 4, 20))
			require.NoError(t, err)
			assert.Equal(t, tt.wantPercent, got.PercentUsed.String())
			assert.Equal(t, tt.wantAlert, got.Alert)
			assert.Equal(t, "2025-04", got.Month)
			if tt.budget == "" {
				assert.Nil(t, got.Budget)
				assert.Nil(t, got.Remaining)
				assert.Equal(t, "450.00", got.Spent.String())
				return
			}
			require.NotNil(t, got.Remaining)
			assert.Equal(t, tt.wantRemaining, got.Remaining.String())
		})
	}
}

func TestSpikes(t *testing.T) {
	prevMonth, curMonth := core.NewDate(2025, 5, 10), core.NewDate(2025, 6, 10)
	tests := []struct {
		name string
		prev map[string]string
		curr map[string]string
		want []string
	}{
		{"boundary is not a spike", map[string]string{"Food": "100"}, map[string]string{"Food": "130"}, nil},
		{"just above", map[string]string{"Food": "100"}, map[string]string{"Food": "131"}, []string{"Spending spike detected: Food is up by 31.00%."}},
		{"new category never spikes", nil, map[string]string{"Travel": "500"}, nil},
		{"decrease", map[string]string{"Bills": "500"}, map[string]string{"Bills": "100"}, nil},
		{
			"ordered by name",
			map[string]string{"Travel": "100", "Bills": "10", "Food": "100"},
			map[string]string{"Travel": "200", "Bills": "20.01", "Food": "120"},
			[]string{
				"Spending spike detected: Bills is up by 100.10%.",
				"Spending spike detected: Travel is up by 100.00%.",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			for c, a := range tt.prev {
				f.tx(core.Expense, c, a, prevMonth)
			}
			for c, a := range tt.curr {
				f.tx(core.Expense, c, a, curMonth)
			}
			spikes, err := f.engine().Spikes(context.Background(), user, curMonth)
			require.NoError(t, err)
			var msgs []string
			for _, s := range spikes {
				msgs = append(msgs, s.Message())
			}
			assert.Equal(t, tt.want, msgs)
		})
	}
}

func TestSpikesAcrossYearBoundary(t *testing.T) {
	f := newFixture(t)
	f.tx(core.Expense, "Food", "100", core.NewDate(2024, 12, 24))
	f.tx(core.Expense, "Food", "200", core.NewDate(2025, 1, 2))
	spikes, err := f.engine().Spikes(context.Background(), user, core.NewDate(2025, 1, 31))
	require.NoError(t, err)
	require.Len(t, spikes, 1)
	assert.Equal(t, "100.00", spikes[0].IncreasePercent.String())
}

func TestMonthComparison(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.tx(core.Expense, "Food", "200", core.NewDate(2025, 2, 3))

	cmp, err := f.engine().MonthComparison(ctx, user, core.NewDate(2025, 2, 28))
	require.NoError(t, err)
	assert.Equal(t, "200.00", cmp.Current.String())
	assert.True(t, cmp.Previous.IsZero())
	assert.True(t, cmp.ChangePercent.IsZero(), "growth from zero is reported as no change")

	f.tx(core.Expense, "Food", "150", core.NewDate(2025, 3, 3))
	cmp, err = f.engine().MonthComparison(ctx, user, core.NewDate(2025, 3, 1))
	require.NoError(t, err)
	assert.Equal(t, "-25.00", cmp.ChangePercent.String())
}

// seedReferenceMonth loads the canonical month: 4900 income, 1200 expense, 650 saved.
func seedReferenceMonth(t *testing.T, ref core.Date) *fixture {
	t.Helper()
	f := newFixture(t)
	require.NoError(t, records.SeedDemo(context.Background(), f.store, user, ref))
	return f
}

func TestInsightsEndToEnd(t *testing.T) {
	ref := core.NewDate(2025, 3, 20)
	f := seedReferenceMonth(t, ref)
	// Previous month: lower spend so both comparison and a Food spike trigger.
	f.tx(core.Expense, "Food", "200", core.NewDate(2025, 2, 10))
	f.tx(core.Expense, "Bills", "800", core.NewDate(2025, 2, 11))

	got, err := f.engine().Insights(context.Background(), user, ref)
	require.NoError(t, err)

	ov := got.Overview
	assert.Equal(t, "4900.00", ov.Income.String())
	assert.Equal(t, "1200.00", ov.Expense.String())
	assert.Equal(t, "650.00", ov.Saving.String())
	assert.Equal(t, "3700.00", ov.Balance.String())
	assert.Equal(t, "4350.00", ov.NetSavings.String())
	assert.Equal(t, "13.27", got.SavingRatePercent.String())
	assert.Equal(t, "4.08", got.IncomeExpenseRatio.String())
	assert.Equal(t, "980.00", got.RecommendedMonthlySaving.String())

	require.NotNil(t, got.HighestSpendingCategory)
	assert.Equal(t, "Bills", got.HighestSpendingCategory.Category) // 500 + 800 all-time
	assert.Equal(t, "1000.00", got.Previous.String())
	assert.Equal(t, "20.00", got.ChangePercent.String())
	assert.Equal(t, "80.00", got.Budget.PercentUsed.String())

	assert.Equal(t, []string{
		"Highest spending category: Bills.",
		"Your expenses increased by 20.00% compared to last month.",
		"You saved 13.27% of income. Try targeting at least 20%.",
		"Budget at 80%",
		"Spending spike detected: Food is up by 50.00%.",
	}, got.Messages)
}

func TestInsightsMessagesVariants(t *testing.T) {
	ctx := context.Background()
	ref := core.NewDate(2025, 8, 15)

	t.Run("no data", func(t *testing.T) {
		got, err := newFixture(t).engine().Insights(ctx, user, ref)
		require.NoError(t, err)
		assert.Empty(t, got.Messages)
		assert.NotNil(t, got.Messages)
		assert.Nil(t, got.HighestSpendingCategory)
		assert.True(t, got.SavingRatePercent.IsZero())
		assert.True(t, got.IncomeExpenseRatio.IsZero())
		assert.Empty(t, got.Spikes)
	})

	t.Run("good saver with falling expenses", func(t *testing.T) {
		f := newFixture(t)
		f.tx(core.Income, "Salary", "1000", ref)
		f.tx(core.Saving, "Retirement", "250", ref)
		f.tx(core.Expense, "Food", "100", ref)
		f.tx(core.Expense, "Food", "400", core.NewDate(2025, 7, 1))

		got, err := f.engine().Insights(ctx, user, ref)
		require.NoError(t, err)
		assert.Equal(t, []string{
			"Highest spending category: Food.",
			"Great work. Expenses dropped by 75.00% compared to last month.",
			"You saved 25.00% of your income. Good job.",
		}, got.Messages)
	})

	t.Run("budget exceeded", func(t *testing.T) {
		f := newFixture(t)
		f.budget(core.FirstOfMonth(ref), "100")
		f.tx(core.Expense, "Health", "150", ref)

		got, err := f.engine().Insights(ctx, user, ref)
		require.NoError(t, err)
		assert.Equal(t, []string{"Highest spending category: Health.", "Budget exceeded"}, got.Messages)
	})
}

type failingStore struct {
	*memory.Store
	err error
}

func (s failingStore) BudgetFor(context.Context, core.UserID, core.Date) (*core.Budget, error) {
	return nil, s.err
}

func TestStoreFailuresPropagate(t *testing.T) {
	boom := errors.New("store unreachable")
	e := NewEngine(failingStore{Store: memory.New(), err: boom}, nil)

	_, err := e.BudgetStatus(context.Background(), user, core.NewDate(2025, 1, 1))
	assert.ErrorIs(t, err, boom)

	_, err = e.Insights(context.Background(), user, core.NewDate(2025, 1, 1))
	assert.ErrorIs(t, err, boom)
}

func TestDashboardAndCharts(t *testing.T) {
	ctx := context.Background()
	ref := core.NewDate(2025, 3, 20)
	f := seedReferenceMonth(t, ref)
	f.tx(core.Income, "Salary", "4500", core.NewDate(2025, 2, 1))
	e := f.engine()

	dash, err := e.Dashboard(ctx, user, ref)
	require.NoError(t, err)
	assert.Equal(t, "9400.00", dash.Summary.Income.String())
	assert.Equal(t, "4900.00", dash.MonthlyOverview.Income.String())
	assert.Equal(t, "2025-03", dash.MonthlyOverview.Month)
	require.Len(t, dash.CategoryTotals[core.Expense], 4)
	assert.Equal(t, "Bills", dash.CategoryTotals[core.Expense][0].Category)
	assert.Equal(t, "Salary", dash.CategoryTotals[core.Income][0].Category)
	assert.Equal(t, "9000.00", dash.CategoryTotals[core.Income][0].Total.String())

	charts, err := e.Charts(ctx, user)
	require.NoError(t, err)
	assert.Len(t, charts.IncomeVsExpense.Income, 2)
	assert.Equal(t, charts.ExpenseTrend, charts.IncomeVsExpense.Expense)
	assert.Equal(t, []core.TrendPoint{{Month: "2025-03", Total: money("650")}}, charts.SavingTrend)
	assert.Equal(t, []core.TrendPoint{{Month: "2025-03", Total: money("15000")}}, charts.SavingGrowth)
	assert.Equal(t, "Salary", charts.CategoryDistribution[0].Category)
	assert.Len(t, charts.CategoryDistribution, 7)
}

func TestCachedEngineInvalidation(t *testing.T) {
	ctx := context.Background()
	ref := core.NewDate(2025, 3, 20)
	f := seedReferenceMonth(t, ref)
	c := NewCachedEngine(f.engine(), 16, time.Hour)

	first, err := c.Insights(ctx, user, ref)
	require.NoError(t, err)

	f.tx(core.Expense, "Food", "300", ref)
	stale, err := c.Insights(ctx, user, ref)
	require.NoError(t, err)
	assert.Equal(t, first.Overview.Expense, stale.Overview.Expense, "served from cache until invalidated")

	_, err = c.Charts(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Invalidate(ctx, user))

	fresh, err := c.Insights(ctx, user, ref)
	require.NoError(t, err)
	assert.Equal(t, "1500.00", fresh.Overview.Expense.String())
	assert.Equal(t, core.AlertExceeded, fresh.Budget.Alert)
}

func TestCachedEngineReturnsCopies(t *testing.T) {
	ctx := context.Background()
	ref := core.NewDate(2025, 3, 20)
	f := seedReferenceMonth(t, ref)
	f.tx(core.Expense, "Food", "200", core.NewDate(2025, 2, 10))
	f.tx(core.Expense, "Bills", "800", core.NewDate(2025, 2, 11))
	c := NewCachedEngine(f.engine(), 16, time.Hour)

	in, err := c.Insights(ctx, user, ref)
	require.NoError(t, err)
	require.NotEmpty(t, in.Spikes)
	require.NotEmpty(t, in.Messages)
	wantMessages := append([]string(nil), in.Messages...)
	in.Messages[0] = "changed"
	in.Spikes[0].Category = "changed"
	in.HighestSpendingCategory.Category = "changed"

	again, err := c.Insights(ctx, user, ref)
	require.NoError(t, err)
	assert.Equal(t, wantMessages, again.Messages)
	assert.Equal(t, "Food", again.Spikes[0].Category)
	assert.Equal(t, "Bills", again.HighestSpendingCategory.Category)

	dash, err := c.Dashboard(ctx, user, ref)
	require.NoError(t, err)
	dash.CategoryTotals[core.Expense][0].Category = "changed"
	delete(dash.CategoryTotals, core.Income)

	dash, err = c.Dashboard(ctx, user, ref)
	require.NoError(t, err)
	assert.Equal(t, "Bills", dash.CategoryTotals[core.Expense][0].Category)
	assert.Contains(t, dash.CategoryTotals, core.Income)

	charts, err := c.Charts(ctx, user)
	require.NoError(t, err)
	charts.ExpenseTrend[0].Month = "changed"

	charts, err = c.Charts(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, "2025-02", charts.ExpenseTrend[0].Month)
}
