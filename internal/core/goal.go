package core

// ProgressOf derives a goal's saved amount, remainder and completion from its
// contributions. Contributions belonging to other goals are ignored.
func ProgressOf(goal SavingGoal, contributions []SavingContribution) GoalProgress {
	current := Zero()
	for _, c := range contributions {
		if c.GoalID != goal.ID {
			continue
		}
		current = current.Add(c.Amount)
	}

	progress := Rate{}
	if goal.Target.IsPositive() {
		progress = PercentOf(current, goal.Target).Min(RateOf(100))
	}

	return GoalProgress{
		ID:              goal.ID,
		Name:            goal.Name,
		Target:          goal.Target,
		Deadline:        goal.Deadline,
		Current:         current,
		Remaining:       goal.Target.Sub(current).Max(Zero()),
		ProgressPercent: progress,
	}
}
