package cli

import (
	"fmt"
	"strings"

	"smartexpense/internal/core"
)

func totalsRows(t core.Totals) [][]string {
	return [][]string{
		{"Income", FormatMoney(t.Income)},
		{"Expenses", FormatMoney(t.Expense)},
		{"Savings", FormatMoney(t.Saving)},
		{"---"},
		{"Balance", FormatMoney(t.Balance)},
		{"Net savings", FormatMoney(t.NetSavings)},
	}
}

// RenderDashboard renders all-time totals, the month overview and the
// per-type category breakdown.
func RenderDashboard(d core.DashboardSummary) string {
	var b strings.Builder
	b.WriteString(RenderTable(Table{Title: "All time", Headers: []string{"", "Amount"}, Rows: totalsRows(d.Summary)}))
	b.WriteString("\n")
	b.WriteString(RenderTable(Table{
		Title:   "Month " + d.MonthlyOverview.Month,
		Headers: []string{"", "Amount"},
		Rows:    totalsRows(d.MonthlyOverview.Totals),
	}))
	for _, typ := range []core.TxType{core.Income, core.Expense, core.Saving} {
		items := d.CategoryTotals[typ]
		if len(items) == 0 {
			continue
		}
		b.WriteString("\n")
		b.WriteString(RenderTable(categoryTable("Top "+string(typ)+" categories", items)))
	}
	return b.String()
}

func categoryTable(title string, items []core.CategoryTotal) Table {
	t := Table{Title: title, Headers: []string{"Category", "Total"}}
	for _, c := range items {
		t.Rows = append(t.Rows, []string{c.Category, FormatMoney(c.Total)})
	}
	return t
}

// RenderInsights renders the month's ratios, budget, spikes and messages.
func RenderInsights(in core.Insights) string {
	top := "-"
	if in.HighestSpendingCategory != nil {
		top = fmt.Sprintf("%s (%s)", in.HighestSpendingCategory.Category, FormatMoney(in.HighestSpendingCategory.Total))
	}
	rows := [][]string{
		{"Income", FormatMoney(in.Overview.Income)},
		{"Expenses", FormatMoney(in.Overview.Expense)},
		{"Savings", FormatMoney(in.Overview.Saving)},
		{"---"},
		{"Expenses last month", FormatMoney(in.Previous)},
		{"Change", FormatChange(in.ChangePercent)},
		{"Saving rate", FormatPercent(in.SavingRatePercent)},
		{"Income / expense", in.IncomeExpenseRatio.String()},
		{"Recommended saving", FormatMoney(in.RecommendedMonthlySaving)},
		{"Top category", top},
	}

	var b strings.Builder
	b.WriteString(RenderTable(Table{Title: "Insights " + in.Month, Headers: []string{"", "Value"}, Rows: rows}))
	b.WriteString("\n")
	b.WriteString(RenderBudget(in.Budget))

	if len(in.Spikes) > 0 {
		t := Table{Title: "Spending spikes", Headers: []string{"Category", "Previous", "Current", "Increase"}}
		for _, s := range in.Spikes {
			t.Rows = append(t.Rows, []string{s.Category, FormatMoney(s.Previous), FormatMoney(s.Current), FormatChange(s.IncreasePercent)})
		}
		b.WriteString("\n")
		b.WriteString(RenderTable(t))
	}

	if len(in.Messages) > 0 {
		b.WriteString("\n")
		for _, m := range in.Messages {
			b.WriteString("  • " + valueStyle.Render(m) + "\n")
		}
	}
	return b.String()
}

// RenderBudget renders a month's budget status.
func RenderBudget(s core.BudgetStatus) string {
	if s.Budget == nil {
		return "  " + mutedStyle.Render(fmt.Sprintf("No budget set for %s. Spent %s.", s.Month, FormatMoney(s.Spent))) + "\n"
	}
	rows := [][]string{
		{"Budget", FormatMoney(*s.Budget)},
		{"Spent", FormatMoney(s.Spent)},
		{"Remaining", FormatMoney(*s.Remaining)},
		{"Used", RenderProgressBar(s.PercentUsed, 20)},
		{"Status", RenderAlert(s.Alert)},
	}
	return RenderTable(Table{Title: "Budget " + s.Month, Headers: []string{"", ""}, Rows: rows})
}

// RenderGoals renders goal progress, nearest deadline first.
func RenderGoals(goals []core.GoalProgress) string {
	if len(goals) == 0 {
		return "  " + mutedStyle.Render("No saving goals yet.") + "\n"
	}
	t := Table{Title: "Saving goals", Headers: []string{"Goal", "Deadline", "Saved", "Target", "Progress"}}
	for _, g := range goals {
		deadline := ""
		if g.Deadline != nil {
			deadline = g.Deadline.String()
		}
		t.Rows = append(t.Rows, []string{
			g.Name,
			OrDash(deadline),
			FormatMoney(g.Current),
			FormatMoney(g.Target),
			RenderProgressBar(g.ProgressPercent, 10),
		})
	}
	return RenderTable(t)
}

// RenderCharts renders the monthly series as a table with sparklines.
func RenderCharts(c core.ChartData) string {
	series := []struct {
		name   string
		points []core.TrendPoint
	}{
		{"Income", c.IncomeVsExpense.Income},
		{"Expenses", c.ExpenseTrend},
		{"Savings", c.SavingTrend},
		{"Goal contributions", c.SavingGrowth},
	}

	t := Table{Title: "Monthly trends", Headers: []string{"Series", "Months", "Latest", "Trend"}}
	for _, s := range series {
		latest := "-"
		if n := len(s.points); n > 0 {
			latest = s.points[n-1].Month + " " + FormatMoney(s.points[n-1].Total)
		}
		t.Rows = append(t.Rows, []string{s.name, fmt.Sprint(len(s.points)), latest, OrDash(RenderSparkline(s.points))})
	}

	var b strings.Builder
	b.WriteString(RenderTable(t))
	if len(c.CategoryDistribution) > 0 {
		b.WriteString("\n")
		b.WriteString(RenderTable(categoryTable("Category distribution", c.CategoryDistribution)))
	}
	return b.String()
}
