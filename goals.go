package profit

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Goal capacities: at most that many goals can be active at once.
const (
	MaxActiveShortTerm = 2
	MaxActiveLongTerm  = 1
)

// Term tells which bucket funds a goal.
type Term int

const (
	ShortTermGoal Term = iota // funded by the short-term bucket
	LongTermGoal              // funded by the long-term bucket
)

func (t Term) String() string {
	if t == LongTermGoal {
		return "long-term"
	}
	return "short-term"
}

// Goal is a savings target tracked against a bucket total.
//
// Progress is derived by Recalculate. Once Achieved is set it is never reset
// and Progress is frozen.
type Goal struct {
	Term         Term
	ID           string
	Label        string
	Target       decimal.Decimal
	Progress     decimal.Decimal
	Achieved     bool
	ArchivedDate *time.Time
	Priority     int // short-term only, 1 or 2
}

// Active reports whether the goal still receives progress.
func (g Goal) Active() bool { return !g.Achieved }

// Remaining returns what is missing to reach the target.
func (g Goal) Remaining() decimal.Decimal {
	return decimal.Max(decimal.Zero, g.Target.Sub(g.Progress))
}

func (g Goal) clone() Goal {
	if g.ArchivedDate != nil {
		d := *g.ArchivedDate
		g.ArchivedDate = &d
	}
	return g
}

func cloneGoals(goals []Goal) []Goal {
	if goals == nil {
		return nil
	}
	c := make([]Goal, len(goals))
	for i, g := range goals {
		c[i] = g.clone()
	}
	return c
}

// MarshalJSON implements json.Marshaler. Priority is only written for
// short-term goals.
func (g Goal) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("id", g.ID)
	w.Append("label", g.Label)
	w.Append("target", g.Target)
	w.Append("progress", g.Progress)
	w.Append("achieved", g.Achieved)
	if g.ArchivedDate != nil {
		w.Append("archivedDate", g.ArchivedDate.Format(time.RFC3339Nano))
	}
	if g.Term == ShortTermGoal {
		w.Append("priority", g.Priority)
	}
	return w.MarshalJSON()
}

// UnmarshalJSON implements json.Unmarshaler. Term is not part of the JSON
// object, it is set by the document holding the goal.
func (g *Goal) UnmarshalJSON(data []byte) error {
	var temp struct {
		ID           string          `json:"id"`
		Label        string          `json:"label"`
		Target       decimal.Decimal `json:"target"`
		Progress     decimal.Decimal `json:"progress"`
		Achieved     bool            `json:"achieved"`
		ArchivedDate *string         `json:"archivedDate,omitempty"`
		Priority     int             `json:"priority,omitempty"`
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}
	*g = Goal{
		Term:     g.Term,
		ID:       temp.ID,
		Label:    temp.Label,
		Target:   temp.Target,
		Progress: temp.Progress,
		Achieved: temp.Achieved,
		Priority: temp.Priority,
	}
	if temp.ArchivedDate != nil {
		d, err := time.Parse(time.RFC3339Nano, *temp.ArchivedDate)
		if err != nil {
			return fmt.Errorf("goal %q: invalid archived date %q: %w", temp.ID, *temp.ArchivedDate, err)
		}
		d = normalizeTime(d)
		g.ArchivedDate = &d
	}
	return nil
}

// Goals holds the short-term and long-term goal definitions.
//
// Its zero value has no goals and is ready to use.
type Goals struct {
	ShortTerm []Goal
	LongTerm  []Goal
}

// Clone returns a deep copy.
func (gs Goals) Clone() Goals {
	return Goals{ShortTerm: cloneGoals(gs.ShortTerm), LongTerm: cloneGoals(gs.LongTerm)}
}

func countActive(goals []Goal) int {
	n := 0
	for _, g := range goals {
		if g.Active() {
			n++
		}
	}
	return n
}

func checkGoal(label string, target decimal.Decimal) error {
	if strings.TrimSpace(label) == "" {
		return ErrInvalidLabel
	}
	if !target.IsPositive() {
		return fmt.Errorf("target %s: %w", target, ErrInvalidAmount)
	}
	return nil
}

// AddShortTerm adds an active short-term goal. It gets priority 1 when no
// other short-term goal is active, 2 otherwise.
func (gs *Goals) AddShortTerm(id, label string, target decimal.Decimal) (Goal, error) {
	if err := checkGoal(label, target); err != nil {
		return Goal{}, err
	}
	active := countActive(gs.ShortTerm)
	if active >= MaxActiveShortTerm {
		return Goal{}, fmt.Errorf("%d active short-term goals: %w", active, ErrCapacityExceeded)
	}
	g := Goal{Term: ShortTermGoal, ID: id, Label: strings.TrimSpace(label), Target: target, Priority: active + 1}
	gs.ShortTerm = append(gs.ShortTerm, g)
	return g, nil
}

// AddLongTerm adds an active long-term goal.
func (gs *Goals) AddLongTerm(id, label string, target decimal.Decimal) (Goal, error) {
	if err := checkGoal(label, target); err != nil {
		return Goal{}, err
	}
	if active := countActive(gs.LongTerm); active >= MaxActiveLongTerm {
		return Goal{}, fmt.Errorf("%d active long-term goal: %w", active, ErrCapacityExceeded)
	}
	g := Goal{Term: LongTermGoal, ID: id, Label: strings.TrimSpace(label), Target: target}
	gs.LongTerm = append(gs.LongTerm, g)
	return g, nil
}

// find returns the list holding the goal id and its index in it.
func (gs *Goals) find(id string) (*[]Goal, int, error) {
	if i := slices.IndexFunc(gs.ShortTerm, func(g Goal) bool { return g.ID == id }); i >= 0 {
		return &gs.ShortTerm, i, nil
	}
	if i := slices.IndexFunc(gs.LongTerm, func(g Goal) bool { return g.ID == id }); i >= 0 {
		return &gs.LongTerm, i, nil
	}
	return nil, -1, fmt.Errorf("goal %q: %w", id, ErrNotFound)
}

// Get returns the goal id.
func (gs *Goals) Get(id string) (Goal, bool) {
	list, i, err := gs.find(id)
	if err != nil {
		return Goal{}, false
	}
	return (*list)[i], true
}

// Edit changes the label and target of a goal.
func (gs *Goals) Edit(id, label string, target decimal.Decimal) error {
	if err := checkGoal(label, target); err != nil {
		return err
	}
	list, i, err := gs.find(id)
	if err != nil {
		return err
	}
	(*list)[i].Label = strings.TrimSpace(label)
	(*list)[i].Target = target
	return nil
}

// Delete removes a goal. Remaining active short-term goals are renumbered
// so that priorities stay 1 and 2.
func (gs *Goals) Delete(id string) error {
	list, i, err := gs.find(id)
	if err != nil {
		return err
	}
	*list = slices.Delete(*list, i, i+1)
	if list == &gs.ShortTerm {
		renumber(gs.ShortTerm)
	}
	return nil
}

func renumber(goals []Goal) {
	p := 1
	for i := range goals {
		if goals[i].Active() {
			goals[i].Priority = p
			p++
		}
	}
}

// Reorder sets the priority of the active short-term goals by their position
// in ids. ids must list every active short-term goal exactly once. Achieved
// goals keep their values and are moved after the active ones.
func (gs *Goals) Reorder(ids []string) error {
	var active, archived []Goal
	for _, g := range gs.ShortTerm {
		if g.Active() {
			active = append(active, g)
		} else {
			archived = append(archived, g)
		}
	}
	if len(ids) != len(active) {
		return fmt.Errorf("reorder lists %d goals, want the %d active short-term goals", len(ids), len(active))
	}
	ordered := make([]Goal, 0, len(gs.ShortTerm))
	for _, id := range ids {
		i := slices.IndexFunc(active, func(g Goal) bool { return g.ID == id })
		if i < 0 {
			return fmt.Errorf("active short-term goal %q: %w", id, ErrNotFound)
		}
		if slices.ContainsFunc(ordered, func(g Goal) bool { return g.ID == id }) {
			return fmt.Errorf("goal %q listed twice", id)
		}
		ordered = append(ordered, active[i])
	}
	renumber(ordered)
	gs.ShortTerm = append(ordered, archived...)
	return nil
}

// ForceNewTarget archives an achieved long-term goal and starts a new one
// with the same label and the given target.
//
// The new goal starts with no progress, it is derived from the long-term
// bucket total on the next recalculation.
func (gs *Goals) ForceNewTarget(id, newID string, target decimal.Decimal, now time.Time) (Goal, error) {
	if !target.IsPositive() {
		return Goal{}, fmt.Errorf("target %s: %w", target, ErrInvalidAmount)
	}
	i := slices.IndexFunc(gs.LongTerm, func(g Goal) bool { return g.ID == id })
	if i < 0 {
		return Goal{}, fmt.Errorf("long-term goal %q: %w", id, ErrNotFound)
	}
	old := &gs.LongTerm[i]
	if !old.Achieved {
		return Goal{}, fmt.Errorf("long-term goal %q: %w", id, ErrNotAchieved)
	}
	if old.ArchivedDate == nil {
		d := normalizeTime(now)
		old.ArchivedDate = &d
	}
	g := Goal{Term: LongTermGoal, ID: newID, Label: old.Label, Target: target}
	gs.LongTerm = append(gs.LongTerm, g)
	return g, nil
}
