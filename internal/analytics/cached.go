package analytics

import (
	"context"
	"maps"
	"slices"
	"time"

	"smartexpense/internal/cache"
	"smartexpense/internal/core"
	"smartexpense/internal/log"
)

type cacheKey struct {
	user  core.UserID
	month string // empty for all-time views
}

// CachedEngine memoizes the insight, dashboard and chart bundles per user and
// month. Entries expire after the TTL and are dropped for a user by
// Invalidate, which must be called after every write to that user's records.
// Goal progress and the single-metric queries always go to the engine.
// Every bundle handed out is a copy, so callers may modify it freely.
type CachedEngine struct {
	*Engine
	insights  *cache.LRUCache[cacheKey, core.Insights]
	dashboard *cache.LRUCache[cacheKey, core.DashboardSummary]
	charts    *cache.LRUCache[cacheKey, core.ChartData]
}

func NewCachedEngine(engine *Engine, size int, ttl time.Duration) *CachedEngine {
	return &CachedEngine{
		Engine:    engine,
		insights:  cache.NewLRUCache[cacheKey, core.Insights](size, ttl),
		dashboard: cache.NewLRUCache[cacheKey, core.DashboardSummary](size, ttl),
		charts:    cache.NewLRUCache[cacheKey, core.ChartData](size, ttl),
	}
}

// Register hands the underlying caches to m for background expiry.
func (c *CachedEngine) Register(m *cache.Manager) {
	m.Register(c.insights)
	m.Register(c.dashboard)
	m.Register(c.charts)
}

func (c *CachedEngine) Insights(ctx context.Context, user core.UserID, ref core.Date) (core.Insights, error) {
	return cached(ctx, c, c.insights, cacheKey{user, core.MonthKey(ref)}, cloneInsights, func() (core.Insights, error) {
		return c.Engine.Insights(ctx, user, ref)
	})
}

func (c *CachedEngine) Dashboard(ctx context.Context, user core.UserID, ref core.Date) (core.DashboardSummary, error) {
	return cached(ctx, c, c.dashboard, cacheKey{user, core.MonthKey(ref)}, cloneDashboard, func() (core.DashboardSummary, error) {
		return c.Engine.Dashboard(ctx, user, ref)
	})
}

func (c *CachedEngine) Charts(ctx context.Context, user core.UserID) (core.ChartData, error) {
	return cached(ctx, c, c.charts, cacheKey{user: user}, cloneCharts, func() (core.ChartData, error) {
		return c.Engine.Charts(ctx, user)
	})
}

// Invalidate drops every cached bundle of user and returns how many were removed.
func (c *CachedEngine) Invalidate(ctx context.Context, user core.UserID) int {
	match := func(k cacheKey) bool { return k.user == user }
	n := c.insights.DeleteFunc(match) + c.dashboard.DeleteFunc(match) + c.charts.DeleteFunc(match)
	c.logger.InfoContext(ctx, "analytics cache invalidated",
		log.FieldOperation, log.OpInvalidate, log.FieldUserID, string(user), log.FieldCount, n)
	return n
}

func cached[V any](ctx context.Context, c *CachedEngine, store *cache.LRUCache[cacheKey, V], key cacheKey, clone func(V) V, compute func() (V, error)) (V, error) {
	if v, ok := store.Get(key); ok {
		c.logger.DebugContext(ctx, "analytics cache hit", log.FieldUserID, string(key.user), log.FieldMonth, key.month, log.FieldCacheHit, true)
		return clone(v), nil
	}
	v, err := compute()
	if err != nil {
		return v, err
	}
	store.Set(key, v)
	return clone(v), nil
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneInsights(in core.Insights) core.Insights {
	in.HighestSpendingCategory = clonePtr(in.HighestSpendingCategory)
	in.Budget.Budget = clonePtr(in.Budget.Budget)
	in.Budget.Remaining = clonePtr(in.Budget.Remaining)
	in.Spikes = slices.Clone(in.Spikes)
	in.Messages = slices.Clone(in.Messages)
	return in
}

func cloneDashboard(d core.DashboardSummary) core.DashboardSummary {
	if d.CategoryTotals != nil {
		totals := maps.Clone(d.CategoryTotals)
		for t, list := range totals {
			totals[t] = slices.Clone(list)
		}
		d.CategoryTotals = totals
	}
	return d
}

func cloneCharts(c core.ChartData) core.ChartData {
	c.ExpenseTrend = slices.Clone(c.ExpenseTrend)
	c.SavingTrend = slices.Clone(c.SavingTrend)
	c.IncomeVsExpense.Income = slices.Clone(c.IncomeVsExpense.Income)
	c.IncomeVsExpense.Expense = slices.Clone(c.IncomeVsExpense.Expense)
	c.CategoryDistribution = slices.Clone(c.CategoryDistribution)
	c.SavingGrowth = slices.Clone(c.SavingGrowth)
	return c
}
