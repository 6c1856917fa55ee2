package http

import (
	"fmt"
	"net/http"

	"smartexpense/internal/core"
)

type categoryResponse struct {
	ID     int64       `json:"id"`
	Name   string      `json:"name"`
	Type   core.TxType `json:"type"`
	Shared bool        `json:"is_default"`
}

type totalsResponse struct {
	core.Totals
	Start *core.Date `json:"start"`
	End   *core.Date `json:"end"`
}

type listResponse[T any] struct {
	Type  core.TxType `json:"type,omitempty"`
	Items []T         `json:"items"`
}

func emptyIfNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	user, err := userFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ref, err := refDate(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := s.analytics.Dashboard(r.Context(), user, ref)
	if err != nil {
		writeError(w, r, err)
		return
	}
	// Copy: the map may be shared with the analytics cache.
	byType := make(map[core.TxType][]core.CategoryTotal, len(out.CategoryTotals))
	for typ, items := range out.CategoryTotals {
		byType[typ] = emptyIfNil(items)
	}
	out.CategoryTotals = byType
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	user, err := userFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ref, err := refDate(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := s.analytics.Insights(r.Context(), user, ref)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out.Spikes = emptyIfNil(out.Spikes)
	out.Messages = emptyIfNil(out.Messages)
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCharts(w http.ResponseWriter, r *http.Request) {
	user, err := userFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := s.analytics.Charts(r.Context(), user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out.ExpenseTrend = emptyIfNil(out.ExpenseTrend)
	out.SavingTrend = emptyIfNil(out.SavingTrend)
	out.IncomeVsExpense.Income = emptyIfNil(out.IncomeVsExpense.Income)
	out.IncomeVsExpense.Expense = emptyIfNil(out.IncomeVsExpense.Expense)
	out.CategoryDistribution = emptyIfNil(out.CategoryDistribution)
	out.SavingGrowth = emptyIfNil(out.SavingGrowth)
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleBudget(w http.ResponseWriter, r *http.Request) {
	user, err := userFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ref, err := refDate(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := s.analytics.BudgetStatus(r.Context(), user, ref)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	user, err := userFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	window, err := dateRange(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	totals, err := s.analytics.Totals(r.Context(), user, window)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, totalsResponse{Totals: totals, Start: window.Start, End: window.End})
}

func (s *Server) handleCategoryTotals(w http.ResponseWriter, r *http.Request) {
	user, err := userFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	typ, err := txType(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, err := s.analytics.CategoryTotals(r.Context(), user, typ)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[core.CategoryTotal]{Type: typ, Items: emptyIfNil(items)})
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	user, err := userFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	typ, err := txType(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, err := s.analytics.Trend(r.Context(), user, typ)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[core.TrendPoint]{Type: typ, Items: emptyIfNil(items)})
}

func (s *Server) handleGoals(w http.ResponseWriter, r *http.Request) {
	user, err := userFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	goals, err := s.analytics.Goals(r.Context(), user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[core.GoalProgress]{Items: emptyIfNil(goals)})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	user, err := userFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	cats, err := s.categories.Categories(r.Context(), user)
	if err != nil {
		writeError(w, r, fmt.Errorf("load categories: %w", err))
		return
	}
	out := make([]categoryResponse, 0, len(cats))
	for _, c := range cats {
		out = append(out, categoryResponse{ID: c.ID, Name: c.Name, Type: c.Type, Shared: c.Owner.IsShared()})
	}
	writeJSON(w, http.StatusOK, listResponse[categoryResponse]{Items: out})
}
