// Package analytics turns a user's records into totals, category breakdowns,
// monthly trends, budget alerts, spending spikes and insight messages.
//
// The engine holds no mutable state. Every operation is a function of its
// arguments and the current contents of the record store; concurrent calls
// need no coordination. Store failures are returned wrapped, never retried.
package analytics

import (
	"context"
	"fmt"
	"time"

	"smartexpense/internal/core"
	"smartexpense/internal/log"
	"smartexpense/internal/records"
)

// Policy constants.
const (
	// SpikeMultiplier is the factor by which a category's spend must exceed
	// the previous month's to count as a spike.
	SpikeMultiplier = "1.3"

	BudgetExceededPercent = 100
	BudgetWarningPercent  = 80

	// TargetSavingRatePercent is the saving rate considered healthy.
	TargetSavingRatePercent = 20

	// RecommendedSavingShare is the share of monthly income suggested for saving.
	RecommendedSavingShare = "0.20"
)

type Engine struct {
	store  records.Store
	logger *log.Logger
}

// NewEngine returns an engine reading from store. A nil logger discards output.
func NewEngine(store records.Store, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Discard()
	}
	return &Engine{store: store, logger: logger.WithComponent(log.ComponentAnalytics)}
}

func (e *Engine) transactions(ctx context.Context, user core.UserID, f records.Filter) ([]core.Transaction, error) {
	txs, err := e.store.Transactions(ctx, user, f)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	return txs, nil
}

// validType accepts the empty filter ("all types") or a known type.
func validType(typ core.TxType) error {
	if typ == "" || typ.IsValid() {
		return nil
	}
	return fmt.Errorf("%w: %q", core.ErrInvalidType, string(typ))
}

// trace logs the duration of an operation at debug level.
func (e *Engine) trace(ctx context.Context, op string, user core.UserID, month string, start time.Time) {
	fields := log.NewFields().
		WithOperation(op).
		WithQuery(string(user), month).
		WithDuration(time.Since(start))
	e.logger.DebugContext(ctx, "analytics computed", fields.ToSlice()...)
}
