package core

import "fmt"

const (
	AlertNone     BudgetAlert = ""
	AlertExceeded BudgetAlert = "Budget exceeded"
	AlertWarning  BudgetAlert = "Budget at 80%"
)

type (
	BudgetAlert string

	Totals struct {
		Income     Money `json:"total_income"`
		Expense    Money `json:"total_expenses"`
		Saving     Money `json:"total_savings"`
		Balance    Money `json:"total_balance"`
		NetSavings Money `json:"net_savings"`
	}

	MonthlyOverview struct {
		Totals
		Month string `json:"month"`
	}

	CategoryTotal struct {
		Category string `json:"category"`
		Total    Money  `json:"total"`
	}

	TrendPoint struct {
		Month string `json:"month"`
		Total Money  `json:"total"`
	}

	// BudgetStatus reports a month's spend against its budget. Budget and
	// Remaining are nil when no budget is configured for the month.
	BudgetStatus struct {
		Month       string      `json:"month"`
		Budget      *Money      `json:"budget"`
		Spent       Money       `json:"spent"`
		Remaining   *Money      `json:"remaining"`
		PercentUsed Rate        `json:"percent_used"`
		Alert       BudgetAlert `json:"alert"`
	}

	Spike struct {
		Category        string `json:"category"`
		Previous        Money  `json:"previous"`
		Current         Money  `json:"current"`
		IncreasePercent Rate   `json:"increase_percent"`
	}

	ExpenseComparison struct {
		Current       Money `json:"monthly_expense_current"`
		Previous      Money `json:"monthly_expense_previous"`
		ChangePercent Rate  `json:"expense_change_percent"`
	}

	GoalProgress struct {
		ID              int64  `json:"id"`
		Name            string `json:"name"`
		Target          Money  `json:"target_amount"`
		Deadline        *Date  `json:"deadline"`
		Current         Money  `json:"current_amount"`
		Remaining       Money  `json:"remaining_amount"`
		ProgressPercent Rate   `json:"progress_percent"`
	}

	Insights struct {
		Month                   string          `json:"month"`
		Overview                MonthlyOverview `json:"monthly_overview"`
		HighestSpendingCategory *CategoryTotal  `json:"highest_spending_category"`
		ExpenseComparison
		SavingRatePercent        Rate         `json:"saving_rate_percent"`
		IncomeExpenseRatio       Rate         `json:"income_expense_ratio"`
		Budget                   BudgetStatus `json:"budget"`
		RecommendedMonthlySaving Money        `json:"recommended_monthly_saving"`
		Spikes                   []Spike      `json:"spikes"`
		Messages                 []string     `json:"insight_messages"`
	}

	DashboardSummary struct {
		Summary         Totals                     `json:"summary"`
		MonthlyOverview MonthlyOverview            `json:"monthly_overview"`
		CategoryTotals  map[TxType][]CategoryTotal `json:"category_totals"`
	}

	IncomeVsExpense struct {
		Income  []TrendPoint `json:"income"`
		Expense []TrendPoint `json:"expense"`
	}

	ChartData struct {
		ExpenseTrend         []TrendPoint    `json:"expense_trend"`
		SavingTrend          []TrendPoint    `json:"saving_trend"`
		IncomeVsExpense      IncomeVsExpense `json:"income_vs_expense"`
		CategoryDistribution []CategoryTotal `json:"category_distribution"`
		SavingGrowth         []TrendPoint    `json:"saving_growth"`
	}
)

// NewTotals derives balance and net savings from the three buckets.
func NewTotals(income, expense, saving Money) Totals {
	balance := income.Sub(expense)
	return Totals{
		Income:     income,
		Expense:    expense,
		Saving:     saving,
		Balance:    balance,
		NetSavings: saving.Add(balance),
	}
}

func (a BudgetAlert) Raised() bool { return a != AlertNone }

func (a BudgetAlert) MarshalJSON() ([]byte, error) {
	if !a.Raised() {
		return []byte("null"), nil
	}
	return []byte(`"` + string(a) + `"`), nil
}

func (s Spike) Message() string {
	return fmt.Sprintf("Spending spike detected: %s is up by %s%%.", s.Category, s.IncreasePercent)
}
