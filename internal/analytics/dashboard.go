package analytics

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"smartexpense/internal/core"
	"smartexpense/internal/log"
)

// Dashboard returns all-time totals, ref's monthly overview and the
// per-type category rankings.
func (e *Engine) Dashboard(ctx context.Context, user core.UserID, ref core.Date) (core.DashboardSummary, error) {
	defer e.trace(ctx, log.OpDashboard, user, core.MonthKey(ref), time.Now())

	out := core.DashboardSummary{}
	perType := make([][]core.CategoryTotal, len(core.AllTxTypes))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.Summary, err = e.Totals(gctx, user, core.DateRange{})
		return err
	})
	g.Go(func() (err error) {
		out.MonthlyOverview, err = e.MonthlyOverview(gctx, user, ref)
		return err
	})
	for i, typ := range core.AllTxTypes {
		g.Go(func() (err error) {
			perType[i], err = e.CategoryTotals(gctx, user, typ)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return core.DashboardSummary{}, fmt.Errorf("dashboard: %w", err)
	}

	out.CategoryTotals = make(map[core.TxType][]core.CategoryTotal, len(core.AllTxTypes))
	for i, typ := range core.AllTxTypes {
		out.CategoryTotals[typ] = perType[i]
	}
	return out, nil
}

// Charts returns the series behind the chart views: expense and saving
// trends, income against expense, the all-type category distribution and
// the growth of goal contributions.
func (e *Engine) Charts(ctx context.Context, user core.UserID) (core.ChartData, error) {
	defer e.trace(ctx, log.OpCharts, user, "", time.Now())

	var out core.ChartData
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.ExpenseTrend, err = e.Trend(gctx, user, core.Expense)
		return err
	})
	g.Go(func() (err error) {
		out.SavingTrend, err = e.Trend(gctx, user, core.Saving)
		return err
	})
	g.Go(func() (err error) {
		out.IncomeVsExpense.Income, err = e.Trend(gctx, user, core.Income)
		return err
	})
	g.Go(func() (err error) {
		out.CategoryDistribution, err = e.CategoryTotals(gctx, user, "")
		return err
	})
	g.Go(func() (err error) {
		out.SavingGrowth, err = e.GoalTrend(gctx, user)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.ChartData{}, fmt.Errorf("charts: %w", err)
	}
	out.IncomeVsExpense.Expense = out.ExpenseTrend
	return out, nil
}
