package analytics

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"smartexpense/internal/core"
	"smartexpense/internal/log"
	"smartexpense/internal/records"
)

var spikeFactor = decimal.RequireFromString(SpikeMultiplier)

// Spikes flags expense categories whose total in ref's month exceeds the
// previous month's total by more than SpikeMultiplier. Categories without
// spend in the previous month are never flagged. Results are ordered by
// category name.
func (e *Engine) Spikes(ctx context.Context, user core.UserID, ref core.Date) ([]core.Spike, error) {
	current := core.FirstOfMonth(ref)
	previous := core.PreviousMonth(ref)
	defer e.trace(ctx, log.OpSpikes, user, core.MonthKey(current), time.Now())

	// One read covering both months.
	_, end := core.MonthBounds(current)
	txs, err := e.transactions(ctx, user, records.Filter{Start: &previous, End: &end, Type: core.Expense})
	if err != nil {
		return nil, err
	}

	var curTxs, prevTxs []core.Transaction
	for _, tx := range txs {
		if core.MonthKey(tx.Date) == core.MonthKey(current) {
			curTxs = append(curTxs, tx)
		} else {
			prevTxs = append(prevTxs, tx)
		}
	}
	return detectSpikes(byCategory(curTxs), byCategory(prevTxs)), nil
}

func detectSpikes(current, previous map[string]core.Money) []core.Spike {
	var spikes []core.Spike
	for category, curr := range current {
		prev := previous[category]
		if !prev.IsPositive() {
			continue
		}
		threshold := prev.Decimal().Mul(spikeFactor)
		if !curr.Decimal().GreaterThan(threshold) {
			continue
		}
		spikes = append(spikes, core.Spike{
			Category:        category,
			Previous:        prev,
			Current:         curr,
			IncreasePercent: core.ChangePercent(curr, prev),
		})
	}
	sort.Slice(spikes, func(i, j int) bool { return spikes[i].Category < spikes[j].Category })
	return spikes
}
