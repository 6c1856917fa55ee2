package google

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"smartexpense/internal/core"
)

// header maps column names of the first row to their index.
type header []string

func (h header) col(names ...string) int {
	for _, n := range names {
		if i := indexOf(h, n); i >= 0 {
			return i
		}
	}
	return -1
}

func requireCols(sheet string, h header, cols map[string]int) error {
	var missing []string
	for name, idx := range cols {
		if idx == -1 {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("unexpected %s header: missing %s; got headers=%v", sheet, strings.Join(missing, ","), []string(h))
	}
	return nil
}

// rows calls fn for every non-blank data row with its 1-based sheet row number.
func rows(values [][]interface{}, fn func(n int, row []string) error) error {
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		if strings.Join(row, "") == "" {
			continue
		}
		if err := fn(i+1, row); err != nil {
			return err
		}
	}
	return nil
}

func parseTransactions(values [][]interface{}) ([]core.Transaction, error) {
	if len(values) == 0 {
		return nil, nil
	}
	h := header(toStrings(values[0]))
	id := h.col("ID")
	cols := map[string]int{
		"User":     h.col("User"),
		"Date":     h.col("Date"),
		"Type":     h.col("Type"),
		"Category": h.col("Category"),
		"Amount":   h.col("Amount"),
	}
	if err := requireCols(TransactionsSheet, h, cols); err != nil {
		return nil, err
	}
	note := h.col("Note", "Description")

	var out []core.Transaction
	err := rows(values, func(n int, row []string) error {
		tx := core.Transaction{
			ID:       int64(n),
			User:     core.UserID(safeGet(row, cols["User"])),
			Category: safeGet(row, cols["Category"]),
			Note:     safeGet(row, note),
		}
		if v := safeGet(row, id); v != "" {
			parsed, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return fmt.Errorf("%s row %d: invalid id %q", TransactionsSheet, n, v)
			}
			tx.ID = parsed
		}
		var err error
		if tx.Type, err = core.ParseTxType(safeGet(row, cols["Type"])); err != nil {
			return fmt.Errorf("%s row %d: %w", TransactionsSheet, n, err)
		}
		if tx.Date, err = parseSheetDate(safeGet(row, cols["Date"])); err != nil {
			return fmt.Errorf("%s row %d: %w", TransactionsSheet, n, err)
		}
		if tx.Amount, err = core.ParseAmount(safeGet(row, cols["Amount"])); err != nil {
			return fmt.Errorf("%s row %d: %w", TransactionsSheet, n, err)
		}
		if tx.User == "" {
			return fmt.Errorf("%s row %d: %w", TransactionsSheet, n, core.ErrEmptyUser)
		}
		out = append(out, tx)
		return nil
	})
	return out, err
}

func parseBudgets(values [][]interface{}) ([]core.Budget, error) {
	if len(values) == 0 {
		return nil, nil
	}
	h := header(toStrings(values[0]))
	cols := map[string]int{
		"User":   h.col("User"),
		"Month":  h.col("Month"),
		"Amount": h.col("Amount"),
	}
	if err := requireCols(BudgetsSheet, h, cols); err != nil {
		return nil, err
	}

	var out []core.Budget
	err := rows(values, func(n int, row []string) error {
		b := core.Budget{User: core.UserID(safeGet(row, cols["User"]))}
		month, err := parseSheetMonth(safeGet(row, cols["Month"]))
		if err != nil {
			return fmt.Errorf("%s row %d: %w", BudgetsSheet, n, err)
		}
		b.Month = month
		if b.Amount, err = core.ParseAmount(safeGet(row, cols["Amount"])); err != nil {
			return fmt.Errorf("%s row %d: %w", BudgetsSheet, n, err)
		}
		if err := b.Validate(); err != nil {
			return fmt.Errorf("%s row %d: %w", BudgetsSheet, n, err)
		}
		out = append(out, b)
		return nil
	})
	return out, err
}

func parseGoals(values [][]interface{}) ([]core.SavingGoal, error) {
	if len(values) == 0 {
		return nil, nil
	}
	h := header(toStrings(values[0]))
	cols := map[string]int{
		"ID":     h.col("ID"),
		"User":   h.col("User"),
		"Name":   h.col("Name"),
		"Target": h.col("Target", "Target Amount"),
	}
	if err := requireCols(GoalsSheet, h, cols); err != nil {
		return nil, err
	}
	deadline := h.col("Deadline")

	var out []core.SavingGoal
	err := rows(values, func(n int, row []string) error {
		g := core.SavingGoal{
			User: core.UserID(safeGet(row, cols["User"])),
			Name: safeGet(row, cols["Name"]),
		}
		var err error
		if g.ID, err = strconv.ParseInt(safeGet(row, cols["ID"]), 10, 64); err != nil {
			return fmt.Errorf("%s row %d: invalid id %q", GoalsSheet, n, safeGet(row, cols["ID"]))
		}
		if g.Target, err = core.ParseAmount(safeGet(row, cols["Target"])); err != nil {
			return fmt.Errorf("%s row %d: %w", GoalsSheet, n, err)
		}
		if v := safeGet(row, deadline); v != "" {
			d, err := parseSheetDate(v)
			if err != nil {
				return fmt.Errorf("%s row %d: %w", GoalsSheet, n, err)
			}
			g.Deadline = &d
		}
		if err := g.Validate(); err != nil {
			return fmt.Errorf("%s row %d: %w", GoalsSheet, n, err)
		}
		out = append(out, g)
		return nil
	})
	return out, err
}

func parseContributions(values [][]interface{}) ([]core.SavingContribution, error) {
	if len(values) == 0 {
		return nil, nil
	}
	h := header(toStrings(values[0]))
	cols := map[string]int{
		"User":    h.col("User"),
		"Goal ID": h.col("Goal ID", "GoalID", "Goal"),
		"Date":    h.col("Date"),
		"Amount":  h.col("Amount"),
	}
	if err := requireCols(ContributionsSheet, h, cols); err != nil {
		return nil, err
	}
	note := h.col("Note")

	var out []core.SavingContribution
	err := rows(values, func(n int, row []string) error {
		c := core.SavingContribution{
			ID:   int64(n),
			User: core.UserID(safeGet(row, cols["User"])),
			Note: safeGet(row, note),
		}
		var err error
		if c.GoalID, err = strconv.ParseInt(safeGet(row, cols["Goal ID"]), 10, 64); err != nil {
			return fmt.Errorf("%s row %d: invalid goal id %q", ContributionsSheet, n, safeGet(row, cols["Goal ID"]))
		}
		if c.Date, err = parseSheetDate(safeGet(row, cols["Date"])); err != nil {
			return fmt.Errorf("%s row %d: %w", ContributionsSheet, n, err)
		}
		if c.Amount, err = core.ParseAmount(safeGet(row, cols["Amount"])); err != nil {
			return fmt.Errorf("%s row %d: %w", ContributionsSheet, n, err)
		}
		out = append(out, c)
		return nil
	})
	return out, err
}

// parseCategories reads Owner, Name and Type. A blank owner is the shared scope.
func parseCategories(values [][]interface{}) ([]core.Category, error) {
	if len(values) == 0 {
		return nil, nil
	}
	h := header(toStrings(values[0]))
	cols := map[string]int{
		"Name": h.col("Name"),
		"Type": h.col("Type"),
	}
	if err := requireCols(CategoriesSheet, h, cols); err != nil {
		return nil, err
	}
	owner := h.col("Owner", "User")

	var out []core.Category
	err := rows(values, func(n int, row []string) error {
		c := core.Category{ID: int64(n), Name: safeGet(row, cols["Name"]), Owner: core.SharedOwner()}
		if u := safeGet(row, owner); u != "" {
			c.Owner = core.UserOwner(core.UserID(u))
		}
		var err error
		if c.Type, err = core.ParseTxType(safeGet(row, cols["Type"])); err != nil {
			return fmt.Errorf("%s row %d: %w", CategoriesSheet, n, err)
		}
		if err := c.Validate(); err != nil {
			return fmt.Errorf("%s row %d: %w", CategoriesSheet, n, err)
		}
		out = append(out, c)
		return nil
	})
	return out, err
}

// parseSheetDate accepts ISO dates and the DD/MM/YYYY form spreadsheets display.
func parseSheetDate(s string) (core.Date, error) {
	s = strings.TrimSpace(s)
	if d, err := core.ParseDate(s); err == nil {
		return d, nil
	}
	t, err := time.Parse("02/01/2006", s)
	if err != nil {
		return core.Date{}, fmt.Errorf("%w: %q", core.ErrInvalidDate, s)
	}
	return core.DateOf(t), nil
}

// parseSheetMonth accepts YYYY-MM or any date inside the month.
func parseSheetMonth(s string) (core.Date, error) {
	if m, err := core.ParseMonthKey(s); err == nil {
		return m, nil
	}
	d, err := parseSheetDate(s)
	if err != nil {
		return core.Date{}, err
	}
	return core.FirstOfMonth(d), nil
}

// toStrings renders unformatted cell values. Numbers are written in plain
// dot-decimal form so large amounts never reach the parser as 1e+06.
func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		switch n := v.(type) {
		case float64:
			out[i] = strconv.FormatFloat(n, 'f', -1, 64)
		default:
			out[i] = strings.TrimSpace(fmt.Sprint(v))
		}
	}
	return out
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(target)) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
