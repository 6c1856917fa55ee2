package records

import (
	"context"
	"fmt"

	"smartexpense/internal/core"
)

// Writer is the write path used to load demo data. The analytics engine never
// depends on it.
type Writer interface {
	EnsureDefaultCategories(ctx context.Context) error
	CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	UpsertBudget(ctx context.Context, b core.Budget) error
	CreateGoal(ctx context.Context, g core.SavingGoal) (core.SavingGoal, error)
	AddContribution(ctx context.Context, c core.SavingContribution) (core.SavingContribution, error)
}

// SeedDemo writes a month of sample records for user into ref's month:
// 4900 income, 1200 expense across four categories, 650 saved, a 1500
// budget and a "Laptop" goal that is 30% funded.
func SeedDemo(ctx context.Context, w Writer, user core.UserID, ref core.Date) error {
	if err := w.EnsureDefaultCategories(ctx); err != nil {
		return fmt.Errorf("default categories: %w", err)
	}

	month := core.FirstOfMonth(ref)
	on := func(day int) core.Date { return core.NewDate(month.Year(), month.Month(), day) }

	rows := []struct {
		typ      core.TxType
		category string
		amount   string
		day      int
		note     string
	}{
		{core.Income, "Salary", "4500", 1, "Monthly salary"},
		{core.Income, "Investment", "400", 3, "Dividends"},
		{core.Expense, "Food", "300", 5, "Groceries"},
		{core.Expense, "Travel", "220", 8, "Train tickets"},
		{core.Expense, "Bills", "500", 10, "Utilities"},
		{core.Expense, "Shopping", "180", 12, "Clothes"},
		{core.Saving, "Emergency Fund", "650", 15, "Monthly saving"},
	}
	for _, r := range rows {
		tx := core.Transaction{
			User:     user,
			Amount:   core.MustMoney(r.amount),
			Type:     r.typ,
			Category: r.category,
			Date:     on(r.day),
			Note:     r.note,
		}
		if _, err := w.CreateTransaction(ctx, tx); err != nil {
			return fmt.Errorf("seed %s %s: %w", r.typ, r.category, err)
		}
	}

	if err := w.UpsertBudget(ctx, core.Budget{User: user, Month: month, Amount: core.MustMoney("1500")}); err != nil {
		return fmt.Errorf("seed budget: %w", err)
	}

	deadline := core.NewDate(month.Year()+1, month.Month(), 1)
	goal, err := w.CreateGoal(ctx, core.SavingGoal{
		User:     user,
		Name:     "Laptop",
		Target:   core.MustMoney("50000"),
		Deadline: &deadline,
	})
	if err != nil {
		return fmt.Errorf("seed goal: %w", err)
	}
	_, err = w.AddContribution(ctx, core.SavingContribution{
		User:   user,
		GoalID: goal.ID,
		Amount: core.MustMoney("15000"),
		Date:   on(15),
		Note:   "Initial deposit",
	})
	if err != nil {
		return fmt.Errorf("seed contribution: %w", err)
	}
	return nil
}
