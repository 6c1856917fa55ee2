// Package google is a read-only record store backed by a Google spreadsheet.
// Each record kind lives in its own tab; the first row of a tab holds the
// column headers and columns are located by header name, not position.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"smartexpense/internal/core"
	"smartexpense/internal/log"
	"smartexpense/internal/records"
)

// Tab names.
const (
	TransactionsSheet  = "Transactions"
	BudgetsSheet       = "Budgets"
	GoalsSheet         = "Goals"
	ContributionsSheet = "Contributions"
	CategoriesSheet    = "Categories"
)

type Options struct {
	SpreadsheetID   string
	CredentialsFile string
	CredentialsJSON string
}

// fetchFunc returns the raw cell matrix of an A1 range.
type fetchFunc func(ctx context.Context, rng string) ([][]interface{}, error)

type Client struct {
	fetch  fetchFunc
	logger *log.Logger
}

var _ records.Store = (*Client)(nil)

// New creates a client authenticated with service account credentials.
func New(ctx context.Context, opts Options, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentSheets)

	creds := []byte(strings.TrimSpace(opts.CredentialsJSON))
	if len(creds) == 0 {
		if opts.CredentialsFile == "" {
			return nil, errors.New("missing service account credentials")
		}
		b, err := os.ReadFile(opts.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		creds = b
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	logger.InfoContext(ctx, "sheets service created", "spreadsheet_id", opts.SpreadsheetID)

	id := opts.SpreadsheetID
	fetch := func(ctx context.Context, rng string) ([][]interface{}, error) {
		// Raw numbers avoid locale formatting such as 4,500; dates stay text.
		resp, err := svc.Spreadsheets.Values.Get(id, rng).
			ValueRenderOption("UNFORMATTED_VALUE").
			DateTimeRenderOption("FORMATTED_STRING").
			Context(ctx).Do()
		if err != nil {
			return nil, err
		}
		return resp.Values, nil
	}
	return &Client{fetch: fetch, logger: logger}, nil
}

func newWithFetch(fetch fetchFunc) *Client {
	return &Client{fetch: fetch, logger: log.Discard()}
}

func (c *Client) read(ctx context.Context, sheet string) ([][]interface{}, error) {
	values, err := c.fetch(ctx, sheet+"!A:Z")
	if err != nil {
		c.logger.ErrorContext(ctx, "sheet read failed", "sheet", sheet,
			log.FieldError, err.Error(), log.FieldErrorType, log.ErrorTypeNetwork)
		return nil, fmt.Errorf("read %s: %w", sheet, err)
	}
	return values, nil
}

// Ping reads the header row of the transactions tab.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.fetch(ctx, TransactionsSheet+"!A1:Z1")
	return err
}

func (c *Client) Transactions(ctx context.Context, user core.UserID, f records.Filter) ([]core.Transaction, error) {
	if err := f.Range().Validate(); err != nil {
		return nil, err
	}
	values, err := c.read(ctx, TransactionsSheet)
	if err != nil {
		return nil, err
	}
	all, err := parseTransactions(values)
	if err != nil {
		return nil, err
	}
	var out []core.Transaction
	for _, tx := range all {
		if tx.User == user && f.Match(tx) {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (c *Client) BudgetFor(ctx context.Context, user core.UserID, month core.Date) (*core.Budget, error) {
	values, err := c.read(ctx, BudgetsSheet)
	if err != nil {
		return nil, err
	}
	budgets, err := parseBudgets(values)
	if err != nil {
		return nil, err
	}
	key := core.MonthKey(month)
	// Later rows override earlier ones for the same month.
	var found *core.Budget
	for i := range budgets {
		if budgets[i].User == user && core.MonthKey(budgets[i].Month) == key {
			found = &budgets[i]
		}
	}
	return found, nil
}

func (c *Client) Goals(ctx context.Context, user core.UserID) ([]core.SavingGoal, error) {
	values, err := c.read(ctx, GoalsSheet)
	if err != nil {
		return nil, err
	}
	all, err := parseGoals(values)
	if err != nil {
		return nil, err
	}
	var out []core.SavingGoal
	for _, g := range all {
		if g.User == user {
			out = append(out, g)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Deadline, out[j].Deadline
		switch {
		case a == nil || b == nil:
			return a != nil && b == nil
		case !a.Equal(b.Time):
			return a.Before(b.Time)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (c *Client) Contributions(ctx context.Context, user core.UserID, f records.Filter) ([]core.SavingContribution, error) {
	if err := f.Range().Validate(); err != nil {
		return nil, err
	}
	values, err := c.read(ctx, ContributionsSheet)
	if err != nil {
		return nil, err
	}
	all, err := parseContributions(values)
	if err != nil {
		return nil, err
	}
	var out []core.SavingContribution
	for _, contrib := range all {
		if contrib.User == user && f.MatchContribution(contrib) {
			out = append(out, contrib)
		}
	}
	return out, nil
}

// Categories returns the tab's categories visible to user. An empty tab
// yields the default shared set.
func (c *Client) Categories(ctx context.Context, user core.UserID) ([]core.Category, error) {
	values, err := c.read(ctx, CategoriesSheet)
	if err != nil {
		return nil, err
	}
	all, err := parseCategories(values)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		all = core.DefaultCategories()
	}
	var out []core.Category
	for _, cat := range all {
		if cat.Owner.VisibleTo(user) {
			out = append(out, cat)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
