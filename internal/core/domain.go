package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Income  TxType = "income"
	Expense TxType = "expense"
	Saving  TxType = "saving"
)

// AllTxTypes lists the record types in bucket order.
var AllTxTypes = []TxType{Income, Expense, Saving}

type (
	TxType string

	UserID string

	Date struct {
		time.Time
	}

	// Owner scopes a category either to one user or to the shared default set.
	// The zero value is the shared scope.
	Owner struct {
		user UserID
	}

	Category struct {
		ID    int64
		Name  string
		Type  TxType
		Owner Owner
	}

	Transaction struct {
		ID        int64
		User      UserID
		Amount    Money
		Type      TxType
		Category  string // Category name
		Date      Date
		Note      string
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	SavingGoal struct {
		ID        int64
		User      UserID
		Name      string
		Target    Money
		Deadline  *Date
		CreatedAt time.Time
	}

	SavingContribution struct {
		ID     int64
		User   UserID
		GoalID int64
		Amount Money
		Date   Date
		Note   string
	}

	Budget struct {
		User   UserID
		Month  Date // First day of month
		Amount Money
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidRange    = errors.New("invalid date range: start is after end")
	ErrInvalidType     = errors.New("invalid record type")
	ErrEmptyName       = errors.New("empty name")
	ErrEmptyUser       = errors.New("empty user")
	ErrTypeMismatch    = errors.New("record type does not match category type")
	ErrBudgetMonth     = errors.New("budget month must be the first day of a month")
	ErrGoalOwner       = errors.New("contribution owner does not match goal owner")
	ErrCategoryMissing = errors.New("category not found")
)

// ParseTxType accepts a record type name, case-insensitively.
func ParseTxType(s string) (TxType, error) {
	t := TxType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
	}
	return t, nil
}

func (t TxType) IsValid() bool {
	switch t {
	case Income, Expense, Saving:
		return true
	}
	return false
}

func (t TxType) String() string { return string(t) }

// SharedOwner is the scope of the default categories visible to every user.
func SharedOwner() Owner { return Owner{} }

func UserOwner(id UserID) Owner { return Owner{user: id} }

func (o Owner) IsShared() bool { return o.user == "" }

// User returns the owning user, false for the shared scope.
func (o Owner) User() (UserID, bool) { return o.user, o.user != "" }

// VisibleTo reports whether a category in this scope can be used by id.
func (o Owner) VisibleTo(id UserID) bool { return o.IsShared() || o.user == id }

func (o Owner) String() string {
	if o.IsShared() {
		return "shared"
	}
	return string(o.user)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf drops the time-of-day of t, keeping its calendar date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// Today returns the current calendar date in UTC.
func Today() Date { return DateOf(time.Now().UTC()) }

// ParseDate parses a date in YYYY-MM-DD format.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

func (d Date) String() string { return d.Format(time.DateOnly) }

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	parsed, err := ParseDate(strings.Trim(string(b), `"`))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if !c.Type.IsValid() {
		return ErrInvalidType
	}
	return nil
}

// Validate checks the write-time invariants of a transaction against its category.
func (t Transaction) Validate(cat Category) error {
	if t.User == "" {
		return ErrEmptyUser
	}
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !t.Type.IsValid() {
		return ErrInvalidType
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if cat.Type != t.Type {
		return ErrTypeMismatch
	}
	if !cat.Owner.VisibleTo(t.User) {
		return ErrCategoryMissing
	}
	return nil
}

func (g SavingGoal) Validate() error {
	if g.User == "" {
		return ErrEmptyUser
	}
	if strings.TrimSpace(g.Name) == "" {
		return ErrEmptyName
	}
	if !g.Target.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

func (c SavingContribution) Validate(goal SavingGoal) error {
	if !c.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if err := c.Date.Validate(); err != nil {
		return err
	}
	if c.User != goal.User || c.GoalID != goal.ID {
		return ErrGoalOwner
	}
	return nil
}

func (b Budget) Validate() error {
	if b.User == "" {
		return ErrEmptyUser
	}
	if err := b.Month.Validate(); err != nil {
		return err
	}
	if b.Month.Day() != 1 {
		return ErrBudgetMonth
	}
	if !b.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// DefaultCategories returns the shared categories every user starts with.
func DefaultCategories() []Category {
	defs := []struct {
		name string
		typ  TxType
	}{
		{"Food", Expense},
		{"Travel", Expense},
		{"Bills", Expense},
		{"Health", Expense},
		{"Shopping", Expense},
		{"Salary", Income},
		{"Investment", Income},
		{"Emergency Fund", Saving},
		{"Retirement", Saving},
	}
	out := make([]Category, 0, len(defs))
	for _, d := range defs {
		out = append(out, Category{Name: d.name, Type: d.typ, Owner: SharedOwner()})
	}
	return out
}
