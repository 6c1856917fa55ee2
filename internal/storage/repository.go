// Package storage is the SQLite record store. Amounts are stored as decimal
// text and dates as YYYY-MM-DD so range filters compare lexically.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"smartexpense/internal/core"
	"smartexpense/internal/log"
	"smartexpense/internal/records"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db     *sql.DB
	logger *log.Logger
	now    func() time.Time
}

var (
	_ records.Store  = (*SQLiteRepository)(nil)
	_ records.Writer = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentStorage)

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// One connection keeps the foreign_keys pragma in effect and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("sqlite store ready", log.FieldOperation, log.OpMigrate, "path", dbPath)

	return &SQLiteRepository{db: db, logger: logger, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func ownerColumn(o core.Owner) string {
	if u, ok := o.User(); ok {
		return string(u)
	}
	return ""
}

func ownerFrom(col string) core.Owner {
	if col == "" {
		return core.SharedOwner()
	}
	return core.UserOwner(core.UserID(col))
}

func (r *SQLiteRepository) EnsureDefaultCategories(ctx context.Context) error {
	for _, c := range core.DefaultCategories() {
		_, err := r.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO categories (owner_id, name, type, is_default) VALUES ('', ?, ?, 1)`,
			c.Name, string(c.Type))
		if err != nil {
			return fmt.Errorf("insert default category %s: %w", c.Name, err)
		}
	}
	return nil
}

// CreateCategory inserts c, or returns the existing category with the same owner, name and type.
func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	owner := ownerColumn(c.Owner)
	if _, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO categories (owner_id, name, type) VALUES (?, ?, ?)`,
		owner, c.Name, string(c.Type)); err != nil {
		return core.Category{}, fmt.Errorf("insert category: %w", err)
	}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name FROM categories WHERE owner_id = ? AND name = ? AND type = ?`,
		owner, c.Name, string(c.Type)).Scan(&c.ID, &c.Name)
	if err != nil {
		return core.Category{}, fmt.Errorf("load category: %w", err)
	}
	return c, nil
}

// lookupCategory prefers the user's own category over a shared one of the same name.
func (r *SQLiteRepository) lookupCategory(ctx context.Context, user core.UserID, name string, typ core.TxType) (core.Category, error) {
	var (
		c     core.Category
		owner string
		t     string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, owner_id, name, type FROM categories
		WHERE name = ? COLLATE NOCASE AND type = ? AND owner_id IN ('', ?)
		ORDER BY owner_id DESC
		LIMIT 1`, name, string(typ), string(user)).Scan(&c.ID, &owner, &c.Name, &t)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, core.ErrCategoryMissing
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("lookup category: %w", err)
	}
	c.Owner = ownerFrom(owner)
	c.Type = core.TxType(t)
	return c, nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	cat, err := r.lookupCategory(ctx, tx.User, tx.Category, tx.Type)
	if err != nil {
		return core.Transaction{}, err
	}
	if err := tx.Validate(cat); err != nil {
		return core.Transaction{}, err
	}
	tx.Category = cat.Name
	tx.CreatedAt = r.now().UTC()
	tx.UpdatedAt = tx.CreatedAt

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (user_id, amount, type, category_id, date, note, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(tx.User), tx.Amount.String(), string(tx.Type), cat.ID, tx.Date.String(), tx.Note,
		tx.CreatedAt.Format(time.RFC3339), tx.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	if tx.ID, err = res.LastInsertId(); err != nil {
		return core.Transaction{}, fmt.Errorf("transaction id: %w", err)
	}
	r.logger.DebugContext(ctx, "transaction stored",
		log.FieldUserID, string(tx.User), log.FieldRecordType, string(tx.Type), "id", tx.ID)
	return tx, nil
}

func (r *SQLiteRepository) UpsertBudget(ctx context.Context, b core.Budget) error {
	if err := b.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO budgets (user_id, month, amount) VALUES (?, ?, ?)
		ON CONFLICT (user_id, month) DO UPDATE SET amount = excluded.amount`,
		string(b.User), b.Month.String(), b.Amount.String())
	if err != nil {
		return fmt.Errorf("upsert budget: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) CreateGoal(ctx context.Context, g core.SavingGoal) (core.SavingGoal, error) {
	if err := g.Validate(); err != nil {
		return core.SavingGoal{}, err
	}
	var deadline sql.NullString
	if g.Deadline != nil {
		deadline = sql.NullString{String: g.Deadline.String(), Valid: true}
	}
	g.CreatedAt = r.now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO saving_goals (user_id, name, target_amount, deadline, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		string(g.User), g.Name, g.Target.String(), deadline, g.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return core.SavingGoal{}, fmt.Errorf("insert saving goal: %w", err)
	}
	if g.ID, err = res.LastInsertId(); err != nil {
		return core.SavingGoal{}, fmt.Errorf("saving goal id: %w", err)
	}
	return g, nil
}

func (r *SQLiteRepository) goal(ctx context.Context, id int64) (core.SavingGoal, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, target_amount, deadline, created_at FROM saving_goals WHERE id = ?`, id)
	g, err := scanGoal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.SavingGoal{}, core.ErrGoalOwner
	}
	return g, err
}

func (r *SQLiteRepository) AddContribution(ctx context.Context, c core.SavingContribution) (core.SavingContribution, error) {
	goal, err := r.goal(ctx, c.GoalID)
	if err != nil {
		return core.SavingContribution{}, err
	}
	if err := c.Validate(goal); err != nil {
		return core.SavingContribution{}, err
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO saving_contributions (user_id, goal_id, amount, date, note)
		VALUES (?, ?, ?, ?, ?)`,
		string(c.User), c.GoalID, c.Amount.String(), c.Date.String(), c.Note)
	if err != nil {
		return core.SavingContribution{}, fmt.Errorf("insert contribution: %w", err)
	}
	if c.ID, err = res.LastInsertId(); err != nil {
		return core.SavingContribution{}, fmt.Errorf("contribution id: %w", err)
	}
	return c, nil
}

// where builds the WHERE clause for the user and date window of f.
func where(userCol, dateCol string, user core.UserID, f records.Filter) (string, []any) {
	clauses := []string{userCol + " = ?"}
	args := []any{string(user)}
	if f.Start != nil {
		clauses = append(clauses, dateCol+" >= ?")
		args = append(args, f.Start.String())
	}
	if f.End != nil {
		clauses = append(clauses, dateCol+" <= ?")
		args = append(args, f.End.String())
	}
	return strings.Join(clauses, " AND "), args
}

func (r *SQLiteRepository) Transactions(ctx context.Context, user core.UserID, f records.Filter) ([]core.Transaction, error) {
	if err := f.Range().Validate(); err != nil {
		return nil, err
	}
	cond, args := where("t.user_id", "t.date", user, f)
	if f.Type != "" {
		cond += " AND t.type = ?"
		args = append(args, string(f.Type))
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT t.id, t.user_id, t.amount, t.type, c.name, t.date, t.note, t.created_at, t.updated_at
		FROM transactions t
		JOIN categories c ON c.id = t.category_id
		WHERE `+cond+`
		ORDER BY t.date, t.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var (
			tx                      core.Transaction
			user, amount, typ, date string
			createdAt, updatedAt    string
		)
		if err := rows.Scan(&tx.ID, &user, &amount, &typ, &tx.Category, &date, &tx.Note, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		tx.User = core.UserID(user)
		tx.Type = core.TxType(typ)
		if tx.Amount, err = core.ParseMoney(amount); err != nil {
			return nil, fmt.Errorf("transaction %d amount: %w", tx.ID, err)
		}
		if tx.Date, err = core.ParseDate(date); err != nil {
			return nil, fmt.Errorf("transaction %d date: %w", tx.ID, err)
		}
		tx.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		tx.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) BudgetFor(ctx context.Context, user core.UserID, month core.Date) (*core.Budget, error) {
	first := core.FirstOfMonth(month)
	var amount string
	err := r.db.QueryRowContext(ctx,
		`SELECT amount FROM budgets WHERE user_id = ? AND month = ?`,
		string(user), first.String()).Scan(&amount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query budget: %w", err)
	}
	m, err := core.ParseMoney(amount)
	if err != nil {
		return nil, fmt.Errorf("budget amount: %w", err)
	}
	return &core.Budget{User: user, Month: first, Amount: m}, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanGoal(s scanner) (core.SavingGoal, error) {
	var (
		g                       core.SavingGoal
		user, target, createdAt string
		deadline                sql.NullString
	)
	if err := s.Scan(&g.ID, &user, &g.Name, &target, &deadline, &createdAt); err != nil {
		return core.SavingGoal{}, err
	}
	g.User = core.UserID(user)
	m, err := core.ParseMoney(target)
	if err != nil {
		return core.SavingGoal{}, fmt.Errorf("goal %d target: %w", g.ID, err)
	}
	g.Target = m
	if deadline.Valid && deadline.String != "" {
		d, err := core.ParseDate(deadline.String)
		if err != nil {
			return core.SavingGoal{}, fmt.Errorf("goal %d deadline: %w", g.ID, err)
		}
		g.Deadline = &d
	}
	g.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return g, nil
}

// Goals are ordered by deadline (goals without one last), then creation.
func (r *SQLiteRepository) Goals(ctx context.Context, user core.UserID) ([]core.SavingGoal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, name, target_amount, deadline, created_at
		FROM saving_goals
		WHERE user_id = ?
		ORDER BY deadline IS NULL, deadline, id`, string(user))
	if err != nil {
		return nil, fmt.Errorf("query saving goals: %w", err)
	}
	defer rows.Close()

	var out []core.SavingGoal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan saving goal: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) Contributions(ctx context.Context, user core.UserID, f records.Filter) ([]core.SavingContribution, error) {
	if err := f.Range().Validate(); err != nil {
		return nil, err
	}
	cond, args := where("user_id", "date", user, f)
	if f.GoalID != 0 {
		cond += " AND goal_id = ?"
		args = append(args, f.GoalID)
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, goal_id, amount, date, note
		FROM saving_contributions
		WHERE `+cond+`
		ORDER BY date, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("query contributions: %w", err)
	}
	defer rows.Close()

	var out []core.SavingContribution
	for rows.Next() {
		var (
			c                  core.SavingContribution
			user, amount, date string
		)
		if err := rows.Scan(&c.ID, &user, &c.GoalID, &amount, &date, &c.Note); err != nil {
			return nil, fmt.Errorf("scan contribution: %w", err)
		}
		c.User = core.UserID(user)
		if c.Amount, err = core.ParseMoney(amount); err != nil {
			return nil, fmt.Errorf("contribution %d amount: %w", c.ID, err)
		}
		if c.Date, err = core.ParseDate(date); err != nil {
			return nil, fmt.Errorf("contribution %d date: %w", c.ID, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) Categories(ctx context.Context, user core.UserID) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner_id, name, type FROM categories
		WHERE owner_id = '' OR owner_id = ?
		ORDER BY name, id`, string(user))
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var (
			c          core.Category
			owner, typ string
		)
		if err := rows.Scan(&c.ID, &owner, &c.Name, &typ); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.Owner = ownerFrom(owner)
		c.Type = core.TxType(typ)
		out = append(out, c)
	}
	return out, rows.Err()
}
