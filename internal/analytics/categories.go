package analytics

import (
	"context"
	"sort"
	"time"

	"smartexpense/internal/core"
	"smartexpense/internal/log"
	"smartexpense/internal/records"
)

// CategoryTotals groups the user's transactions (of typ, or all types when
// typ is empty) by category name, largest total first. Ties are ordered by
// name. Categories without transactions are omitted.
func (e *Engine) CategoryTotals(ctx context.Context, user core.UserID, typ core.TxType) ([]core.CategoryTotal, error) {
	if err := validType(typ); err != nil {
		return nil, err
	}
	defer e.trace(ctx, log.OpCategories, user, "", time.Now())

	txs, err := e.transactions(ctx, user, records.Filter{Type: typ})
	if err != nil {
		return nil, err
	}
	return rankCategories(byCategory(txs)), nil
}

func byCategory(txs []core.Transaction) map[string]core.Money {
	sums := make(map[string]core.Money)
	for _, tx := range txs {
		sums[tx.Category] = sums[tx.Category].Add(tx.Amount)
	}
	return sums
}

func rankCategories(sums map[string]core.Money) []core.CategoryTotal {
	out := make([]core.CategoryTotal, 0, len(sums))
	for name, total := range sums {
		out = append(out, core.CategoryTotal{Category: name, Total: total})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Total.Cmp(out[j].Total); c != 0 {
			return c > 0
		}
		return out[i].Category < out[j].Category
	})
	return out
}
