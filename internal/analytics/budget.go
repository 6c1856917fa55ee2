package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"smartexpense/internal/core"
	"smartexpense/internal/log"
	"smartexpense/internal/records"
)

// BudgetStatus compares the expense total of ref's month with that month's
// budget. Spent is reported even when no budget is configured.
func (e *Engine) BudgetStatus(ctx context.Context, user core.UserID, ref core.Date) (core.BudgetStatus, error) {
	month := core.FirstOfMonth(ref)
	defer e.trace(ctx, log.OpBudget, user, core.MonthKey(month), time.Now())

	budget, err := e.store.BudgetFor(ctx, user, month)
	if err != nil {
		return core.BudgetStatus{}, fmt.Errorf("load budget: %w", err)
	}
	txs, err := e.transactions(ctx, user, records.ForMonth(month, core.Expense))
	if err != nil {
		return core.BudgetStatus{}, err
	}
	return evaluateBudget(month, budget, sumOf(txs, core.Expense)), nil
}

func evaluateBudget(month core.Date, budget *core.Budget, spent core.Money) core.BudgetStatus {
	status := core.BudgetStatus{Month: core.MonthKey(month), Spent: spent}
	if budget == nil {
		return status
	}

	amount := budget.Amount
	remaining := amount.Sub(spent)
	status.Budget = &amount
	status.Remaining = &remaining
	if !amount.IsPositive() {
		return status
	}
	// Thresholds apply to the exact share; rounding is for display only.
	raw := spent.Decimal().Mul(decimal.NewFromInt(100)).Div(amount.Decimal())
	status.PercentUsed = core.NewRate(raw)
	status.Alert = budgetAlert(raw)
	return status
}

// budgetAlert checks the exceeded threshold before the warning one.
func budgetAlert(percentUsed decimal.Decimal) core.BudgetAlert {
	switch {
	case percentUsed.GreaterThanOrEqual(decimal.NewFromInt(BudgetExceededPercent)):
		return core.AlertExceeded
	case percentUsed.GreaterThanOrEqual(decimal.NewFromInt(BudgetWarningPercent)):
		return core.AlertWarning
	}
	return core.AlertNone
}
