// Package memory is an in-process record store used by tests and the demo backend.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"smartexpense/internal/core"
	"smartexpense/internal/records"
)

type budgetKey struct {
	user  core.UserID
	month string
}

type Store struct {
	mu            sync.RWMutex
	nextID        int64
	categories    []core.Category
	transactions  []core.Transaction
	budgets       map[budgetKey]core.Budget
	goals         []core.SavingGoal
	contributions []core.SavingContribution
	now           func() time.Time
}

var (
	_ records.Store  = (*Store)(nil)
	_ records.Writer = (*Store)(nil)
)

// New returns an empty store. Default categories are added by EnsureDefaultCategories.
func New() *Store {
	return &Store{
		budgets: make(map[budgetKey]core.Budget),
		now:     time.Now,
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) EnsureDefaultCategories(ctx context.Context) error {
	for _, c := range core.DefaultCategories() {
		if _, err := s.CreateCategory(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

// CreateCategory adds c unless (owner, name, type) already exists, in which
// case the existing category is returned.
func (s *Store) CreateCategory(_ context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.categories {
		if existing.Owner == c.Owner && existing.Type == c.Type && strings.EqualFold(existing.Name, c.Name) {
			return existing, nil
		}
	}
	c.ID = s.id()
	s.categories = append(s.categories, c)
	return c, nil
}

// lookupCategory prefers the user's own category over a shared one of the same name.
func (s *Store) lookupCategory(user core.UserID, name string, typ core.TxType) (core.Category, bool) {
	var shared *core.Category
	for i, c := range s.categories {
		if c.Type != typ || !strings.EqualFold(c.Name, name) || !c.Owner.VisibleTo(user) {
			continue
		}
		if !c.Owner.IsShared() {
			return c, true
		}
		shared = &s.categories[i]
	}
	if shared != nil {
		return *shared, true
	}
	return core.Category{}, false
}

func (s *Store) CreateTransaction(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cat, ok := s.lookupCategory(tx.User, tx.Category, tx.Type)
	if !ok {
		return core.Transaction{}, core.ErrCategoryMissing
	}
	if err := tx.Validate(cat); err != nil {
		return core.Transaction{}, err
	}
	tx.ID = s.id()
	tx.Category = cat.Name
	tx.CreatedAt = s.now()
	tx.UpdatedAt = tx.CreatedAt
	s.transactions = append(s.transactions, tx)
	return tx, nil
}

func (s *Store) UpsertBudget(_ context.Context, b core.Budget) error {
	if err := b.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.budgets[budgetKey{b.User, core.MonthKey(b.Month)}] = b
	return nil
}

func (s *Store) CreateGoal(_ context.Context, g core.SavingGoal) (core.SavingGoal, error) {
	if err := g.Validate(); err != nil {
		return core.SavingGoal{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	g.ID = s.id()
	g.CreatedAt = s.now()
	s.goals = append(s.goals, g)
	return g, nil
}

func (s *Store) AddContribution(_ context.Context, c core.SavingContribution) (core.SavingContribution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var goal *core.SavingGoal
	for i := range s.goals {
		if s.goals[i].ID == c.GoalID {
			goal = &s.goals[i]
			break
		}
	}
	if goal == nil {
		return core.SavingContribution{}, core.ErrGoalOwner
	}
	if err := c.Validate(*goal); err != nil {
		return core.SavingContribution{}, err
	}
	c.ID = s.id()
	s.contributions = append(s.contributions, c)
	return c, nil
}

func (s *Store) Transactions(_ context.Context, user core.UserID, f records.Filter) ([]core.Transaction, error) {
	if err := f.Range().Validate(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Transaction
	for _, tx := range s.transactions {
		if tx.User == user && f.Match(tx) {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (s *Store) BudgetFor(_ context.Context, user core.UserID, month core.Date) (*core.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.budgets[budgetKey{user, core.MonthKey(month)}]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

// Goals are ordered by deadline (goals without one last), then creation.
func (s *Store) Goals(_ context.Context, user core.UserID) ([]core.SavingGoal, error) {
	s.mu.RLock()
	var out []core.SavingGoal
	for _, g := range s.goals {
		if g.User == user {
			out = append(out, g)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Deadline, out[j].Deadline
		switch {
		case a == nil && b == nil:
			return out[i].ID < out[j].ID
		case a == nil:
			return false
		case b == nil:
			return true
		case !a.Equal(b.Time):
			return a.Before(b.Time)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) Contributions(_ context.Context, user core.UserID, f records.Filter) ([]core.SavingContribution, error) {
	if err := f.Range().Validate(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.SavingContribution
	for _, c := range s.contributions {
		if c.User == user && f.MatchContribution(c) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) Categories(_ context.Context, user core.UserID) ([]core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Category
	for _, c := range s.categories {
		if c.Owner.VisibleTo(user) {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }
