// Package records defines the read-side ports the analytics engine queries.
// Adapters live in subpackages (memory, google) and in internal/storage.
package records

import (
	"context"

	"smartexpense/internal/core"
)

// Filter narrows a record query. Zero values mean "no constraint".
type Filter struct {
	Start  *core.Date
	End    *core.Date
	Type   core.TxType
	GoalID int64
}

type (
	TransactionReader interface {
		Transactions(ctx context.Context, user core.UserID, f Filter) ([]core.Transaction, error)
	}

	// BudgetReader returns nil and no error when the month has no budget.
	BudgetReader interface {
		BudgetFor(ctx context.Context, user core.UserID, month core.Date) (*core.Budget, error)
	}

	GoalReader interface {
		Goals(ctx context.Context, user core.UserID) ([]core.SavingGoal, error)
	}

	ContributionReader interface {
		Contributions(ctx context.Context, user core.UserID, f Filter) ([]core.SavingContribution, error)
	}

	// CategoryReader lists the shared categories plus the user's own.
	CategoryReader interface {
		Categories(ctx context.Context, user core.UserID) ([]core.Category, error)
	}

	Store interface {
		TransactionReader
		BudgetReader
		GoalReader
		ContributionReader
		CategoryReader
	}
)

// Range returns the date window of the filter.
func (f Filter) Range() core.DateRange {
	return core.DateRange{Start: f.Start, End: f.End}
}

// Match reports whether a transaction passes the window and type constraints.
func (f Filter) Match(tx core.Transaction) bool {
	if f.Type != "" && tx.Type != f.Type {
		return false
	}
	return f.Range().Contains(tx.Date)
}

// MatchContribution reports whether a contribution passes the window and goal constraints.
func (f Filter) MatchContribution(c core.SavingContribution) bool {
	if f.GoalID != 0 && c.GoalID != f.GoalID {
		return false
	}
	return f.Range().Contains(c.Date)
}

// ForMonth returns a filter covering the calendar month of d.
func ForMonth(d core.Date, typ core.TxType) Filter {
	start, end := core.MonthBounds(d)
	return Filter{Start: &start, End: &end, Type: typ}
}
