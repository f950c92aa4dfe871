package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/etnz/profit"
	"github.com/etnz/profit/renderer"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

// --- Goal Add Command ---

type goalAddCmd struct {
	term string
}

func (*goalAddCmd) Name() string     { return "goal-add" }
func (*goalAddCmd) Synopsis() string { return "add a short-term or long-term goal" }
func (*goalAddCmd) Usage() string {
	return `pm goal-add [-term <short|long>] <label> <target>

  Adds a goal. At most two short-term goals and one long-term goal can be
  active. A new short-term goal gets the lowest priority.
`
}

func (c *goalAddCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.term, "term", "short", "Term of the goal (short or long)")
}

func (c *goalAddCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		return usageError(f, "expected a label and a target")
	}
	target, err := profit.ParseAmount(f.Arg(1))
	if err != nil {
		return usageError(f, "%v", err)
	}
	if c.term != "short" && c.term != "long" {
		return usageError(f, "unknown term %q", c.term)
	}
	return withSession(ctx, func(ctx context.Context, s *session) error {
		add := s.c.AddShortTermGoal
		if c.term == "long" {
			add = s.c.AddLongTermGoal
		}
		e, err := add(f.Arg(0), target)
		if err != nil {
			return err
		}
		s.done(e)
		return nil
	})
}

// --- Goal Edit Command ---

type goalEditCmd struct {
	label  string
	target string
}

func (*goalEditCmd) Name() string     { return "goal-edit" }
func (*goalEditCmd) Synopsis() string { return "edit the label or the target of a goal" }
func (*goalEditCmd) Usage() string {
	return `pm goal-edit [-label <label>] [-target <target>] <id>

  Edits an active goal. Unset flags keep their current value.
`
}

func (c *goalEditCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.label, "label", "", "New label")
	f.StringVar(&c.target, "target", "", "New target in USD")
}

func (c *goalEditCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return usageError(f, "expected exactly one goal id")
	}
	var target decimal.Decimal
	if c.target != "" {
		var err error
		if target, err = profit.ParseAmount(c.target); err != nil {
			return usageError(f, "%v", err)
		}
	}
	id := f.Arg(0)
	return withSession(ctx, func(ctx context.Context, s *session) error {
		g, ok := goal(s.c, id)
		if !ok {
			return fmt.Errorf("goal %q: %w", id, profit.ErrNotFound)
		}
		label := g.Label
		if c.label != "" {
			label = c.label
		}
		if c.target == "" {
			target = g.Target
		}
		e, err := s.c.EditGoal(id, label, target)
		if err != nil {
			return err
		}
		s.done(e)
		return nil
	})
}

// goal looks up id among the current goals.
func goal(c *profit.Coordinator, id string) (profit.Goal, bool) {
	doc := c.State()
	for _, g := range append(doc.ShortTermGoals, doc.LongTermGoals...) {
		if g.ID == id {
			return g, true
		}
	}
	return profit.Goal{}, false
}

// --- Goal Delete Command ---

type goalDeleteCmd struct{}

func (*goalDeleteCmd) Name() string     { return "goal-delete" }
func (*goalDeleteCmd) Synopsis() string { return "delete a goal" }
func (*goalDeleteCmd) Usage() string {
	return `pm goal-delete <id>

  Deletes a goal. The remaining short-term goal becomes the first priority.
`
}

func (*goalDeleteCmd) SetFlags(f *flag.FlagSet) {}

func (*goalDeleteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return usageError(f, "expected exactly one goal id")
	}
	return withSession(ctx, func(ctx context.Context, s *session) error {
		e, err := s.c.DeleteGoal(f.Arg(0))
		if err != nil {
			return err
		}
		s.done(e)
		return nil
	})
}

// --- Goal Reorder Command ---

type goalReorderCmd struct{}

func (*goalReorderCmd) Name() string     { return "goal-reorder" }
func (*goalReorderCmd) Synopsis() string { return "change the priority of the short-term goals" }
func (*goalReorderCmd) Usage() string {
	return `pm goal-reorder <id> [<id>]

  Lists every active short-term goal id, first priority first.
`
}

func (*goalReorderCmd) SetFlags(f *flag.FlagSet) {}

func (*goalReorderCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		return usageError(f, "expected the goal ids")
	}
	return withSession(ctx, func(ctx context.Context, s *session) error {
		e, err := s.c.ReorderShortTermGoals(f.Args())
		if err != nil {
			return err
		}
		s.done(e)
		return nil
	})
}

// --- Goal Target Command ---

type goalTargetCmd struct{}

func (*goalTargetCmd) Name() string     { return "goal-target" }
func (*goalTargetCmd) Synopsis() string { return "set a new long-term goal after one is achieved" }
func (*goalTargetCmd) Usage() string {
	return `pm goal-target <id> <target>

  Archives the achieved long-term goal <id> and starts a new one with the
  same label and a higher target.
`
}

func (*goalTargetCmd) SetFlags(f *flag.FlagSet) {}

func (*goalTargetCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		return usageError(f, "expected a goal id and a target")
	}
	target, err := profit.ParseAmount(f.Arg(1))
	if err != nil {
		return usageError(f, "%v", err)
	}
	return withSession(ctx, func(ctx context.Context, s *session) error {
		e, err := s.c.ForceNewTarget(f.Arg(0), target)
		if err != nil {
			return err
		}
		s.done(e)
		return nil
	})
}

// --- Goals Command ---

type goalsCmd struct{}

func (*goalsCmd) Name() string     { return "goals" }
func (*goalsCmd) Synopsis() string { return "show the goals and their progress" }
func (*goalsCmd) Usage() string {
	return `pm goals

  Shows the active goals and the achieved ones.
`
}

func (*goalsCmd) SetFlags(f *flag.FlagSet) {}

func (*goalsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withSession(ctx, func(ctx context.Context, s *session) error {
		snap := s.c.Snapshot()
		printMarkdown(renderer.RenderGoals(renderer.NewGoalList(snap.ShortTermGoals, snap.LongTermGoals)))
		return nil
	})
}
