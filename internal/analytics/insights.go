package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"smartexpense/internal/core"
	"smartexpense/internal/log"
	"smartexpense/internal/records"
)

var recommendedShare = decimal.RequireFromString(RecommendedSavingShare)

// MonthComparison compares the expense totals of ref's month and the month
// before. The change is zero when the previous month had no expenses.
func (e *Engine) MonthComparison(ctx context.Context, user core.UserID, ref core.Date) (core.ExpenseComparison, error) {
	previous := core.PreviousMonth(ref)
	_, end := core.MonthBounds(ref)
	txs, err := e.transactions(ctx, user, records.Filter{Start: &previous, End: &end, Type: core.Expense})
	if err != nil {
		return core.ExpenseComparison{}, err
	}

	cmp := core.ExpenseComparison{}
	for _, tx := range txs {
		if core.MonthKey(tx.Date) == core.MonthKey(ref) {
			cmp.Current = cmp.Current.Add(tx.Amount)
		} else {
			cmp.Previous = cmp.Previous.Add(tx.Amount)
		}
	}
	cmp.ChangePercent = core.ChangePercent(cmp.Current, cmp.Previous)
	return cmp, nil
}

// RecommendedSaving is RecommendedSavingShare of the month's income, rounded to cents.
func RecommendedSaving(monthlyIncome core.Money) core.Money {
	return monthlyIncome.MulRate(recommendedShare)
}

// Insights composes the monthly overview, top category, month-over-month
// comparison, saving metrics, budget status and spikes for ref's month,
// together with the ordered insight messages. The independent reads run
// concurrently; the first failure aborts the whole computation.
func (e *Engine) Insights(ctx context.Context, user core.UserID, ref core.Date) (core.Insights, error) {
	start := time.Now()

	var (
		overview   core.MonthlyOverview
		categories []core.CategoryTotal
		comparison core.ExpenseComparison
		budget     core.BudgetStatus
		spikes     []core.Spike
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		overview, err = e.MonthlyOverview(gctx, user, ref)
		return err
	})
	g.Go(func() (err error) {
		categories, err = e.CategoryTotals(gctx, user, core.Expense)
		return err
	})
	g.Go(func() (err error) {
		comparison, err = e.MonthComparison(gctx, user, ref)
		return err
	})
	g.Go(func() (err error) {
		budget, err = e.BudgetStatus(gctx, user, ref)
		return err
	})
	g.Go(func() (err error) {
		spikes, err = e.Spikes(gctx, user, ref)
		return err
	})
	if err := g.Wait(); err != nil {
		e.logger.ErrorContext(ctx, "insights failed",
			log.NewFields().WithQuery(string(user), core.MonthKey(ref)).WithError(err, log.ErrorTypeDatabase).ToSlice()...)
		return core.Insights{}, fmt.Errorf("insights for %s: %w", core.MonthKey(ref), err)
	}

	out := core.Insights{
		Month:                    core.MonthKey(ref),
		Overview:                 overview,
		ExpenseComparison:        comparison,
		SavingRatePercent:        core.PercentOf(overview.Saving, overview.Income),
		IncomeExpenseRatio:       core.RatioOf(overview.Income, overview.Expense),
		Budget:                   budget,
		RecommendedMonthlySaving: RecommendedSaving(overview.Income),
		Spikes:                   spikes,
	}
	if out.Spikes == nil {
		out.Spikes = []core.Spike{}
	}
	if len(categories) > 0 {
		top := categories[0]
		out.HighestSpendingCategory = &top
	}
	out.Messages = composeMessages(out)

	e.trace(ctx, log.OpInsights, user, out.Month, start)
	return out, nil
}

// composeMessages renders the insight sentences in their fixed order: top
// category, expense change, saving rate, budget alert, then spikes.
func composeMessages(in core.Insights) []string {
	msgs := []string{}
	if in.HighestSpendingCategory != nil {
		msgs = append(msgs, fmt.Sprintf("Highest spending category: %s.", in.HighestSpendingCategory.Category))
	}

	switch change := in.ChangePercent; {
	case change.Sign() > 0:
		msgs = append(msgs, fmt.Sprintf("Your expenses increased by %s%% compared to last month.", change))
	case change.Sign() < 0:
		msgs = append(msgs, fmt.Sprintf("Great work. Expenses dropped by %s%% compared to last month.", change.Abs()))
	}

	switch rate := in.SavingRatePercent; {
	case rate.Cmp(core.RateOf(TargetSavingRatePercent)) >= 0:
		msgs = append(msgs, fmt.Sprintf("You saved %s%% of your income. Good job.", rate))
	case in.Overview.Income.IsPositive():
		msgs = append(msgs, fmt.Sprintf("You saved %s%% of income. Try targeting at least %d%%.", rate, TargetSavingRatePercent))
	}

	if in.Budget.Alert.Raised() {
		msgs = append(msgs, string(in.Budget.Alert))
	}
	for _, s := range in.Spikes {
		msgs = append(msgs, s.Message())
	}
	return msgs
}
