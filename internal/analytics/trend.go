package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"smartexpense/internal/core"
	"smartexpense/internal/log"
	"smartexpense/internal/records"
)

// Trend sums the user's transactions (of typ, or all types when empty) per
// calendar month, oldest first. Months without activity are absent.
func (e *Engine) Trend(ctx context.Context, user core.UserID, typ core.TxType) ([]core.TrendPoint, error) {
	if err := validType(typ); err != nil {
		return nil, err
	}
	defer e.trace(ctx, log.OpTrend, user, "", time.Now())

	txs, err := e.transactions(ctx, user, records.Filter{Type: typ})
	if err != nil {
		return nil, err
	}
	sums := make(map[string]core.Money)
	for _, tx := range txs {
		key := core.MonthKey(tx.Date)
		sums[key] = sums[key].Add(tx.Amount)
	}
	return monthlySeries(sums), nil
}

// GoalTrend is the monthly series of all saving contributions, across goals.
func (e *Engine) GoalTrend(ctx context.Context, user core.UserID) ([]core.TrendPoint, error) {
	defer e.trace(ctx, log.OpTrend, user, "", time.Now())

	contributions, err := e.store.Contributions(ctx, user, records.Filter{})
	if err != nil {
		return nil, fmt.Errorf("load contributions: %w", err)
	}
	sums := make(map[string]core.Money)
	for _, c := range contributions {
		key := core.MonthKey(c.Date)
		sums[key] = sums[key].Add(c.Amount)
	}
	return monthlySeries(sums), nil
}

// monthlySeries orders YYYY-MM keyed sums chronologically.
func monthlySeries(sums map[string]core.Money) []core.TrendPoint {
	out := make([]core.TrendPoint, 0, len(sums))
	for month, total := range sums {
		out = append(out, core.TrendPoint{Month: month, Total: total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}
