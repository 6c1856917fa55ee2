package analytics

import (
	"context"
	"fmt"
	"time"

	"smartexpense/internal/core"
	"smartexpense/internal/log"
	"smartexpense/internal/records"
)

// Goals loads the user's saving goals and derives each one's progress from
// its contributions. Progress is recomputed on every call.
func (e *Engine) Goals(ctx context.Context, user core.UserID) ([]core.GoalProgress, error) {
	defer e.trace(ctx, log.OpGoals, user, "", time.Now())

	goals, err := e.store.Goals(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("load goals: %w", err)
	}
	if len(goals) == 0 {
		return []core.GoalProgress{}, nil
	}
	contributions, err := e.store.Contributions(ctx, user, records.Filter{})
	if err != nil {
		return nil, fmt.Errorf("load contributions: %w", err)
	}

	byGoal := make(map[int64][]core.SavingContribution, len(goals))
	for _, c := range contributions {
		byGoal[c.GoalID] = append(byGoal[c.GoalID], c)
	}
	out := make([]core.GoalProgress, 0, len(goals))
	for _, g := range goals {
		out = append(out, core.ProgressOf(g, byGoal[g.ID]))
	}
	return out, nil
}
