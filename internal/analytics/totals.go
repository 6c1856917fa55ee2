package analytics

import (
	"context"
	"time"

	"smartexpense/internal/core"
	"smartexpense/internal/log"
	"smartexpense/internal/records"
)

// Totals sums the user's transactions per type inside the optional inclusive
// window. A window whose start is after its end is rejected with
// core.ErrInvalidRange rather than reported as empty.
func (e *Engine) Totals(ctx context.Context, user core.UserID, window core.DateRange) (core.Totals, error) {
	if err := window.Validate(); err != nil {
		return core.Totals{}, err
	}
	defer e.trace(ctx, log.OpTotals, user, "", time.Now())

	txs, err := e.transactions(ctx, user, records.Filter{Start: window.Start, End: window.End})
	if err != nil {
		return core.Totals{}, err
	}
	return sumTotals(txs), nil
}

// MonthlyOverview is Totals over ref's calendar month, labelled YYYY-MM.
func (e *Engine) MonthlyOverview(ctx context.Context, user core.UserID, ref core.Date) (core.MonthlyOverview, error) {
	totals, err := e.Totals(ctx, user, core.MonthRange(ref))
	if err != nil {
		return core.MonthlyOverview{}, err
	}
	return core.MonthlyOverview{Totals: totals, Month: core.MonthKey(ref)}, nil
}

func sumTotals(txs []core.Transaction) core.Totals {
	buckets := make(map[core.TxType]core.Money, len(core.AllTxTypes))
	for _, tx := range txs {
		buckets[tx.Type] = buckets[tx.Type].Add(tx.Amount)
	}
	return core.NewTotals(buckets[core.Income], buckets[core.Expense], buckets[core.Saving])
}

// sumOf totals the transactions of one type.
func sumOf(txs []core.Transaction, typ core.TxType) core.Money {
	total := core.Zero()
	for _, tx := range txs {
		if tx.Type == typ {
			total = total.Add(tx.Amount)
		}
	}
	return total
}
