package renderer

import "github.com/etnz/profit"

// GoalList is the data of the goals report.
type GoalList struct {
	Short    []profit.Goal
	Long     []profit.Goal
	Archived []profit.Goal
}

// NewGoalList splits goals into the active ones and the archive.
func NewGoalList(short, long []profit.Goal) *GoalList {
	l := &GoalList{Short: activeGoals(short), Long: activeGoals(long)}
	for _, g := range append(append([]profit.Goal(nil), short...), long...) {
		if !g.Active() {
			l.Archived = append(l.Archived, g)
		}
	}
	return l
}

// RenderGoals renders the active goals and the archive.
func RenderGoals(l *GoalList) string {
	return renderTemplate("goals", "goals.md", map[string]string{
		"active": "goals_active.md",
	}, l)
}
