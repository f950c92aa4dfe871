package cmd

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/etnz/profit"
	"github.com/google/subcommands"
)

var stdin io.Reader = os.Stdin

// --- Shell Command ---

type shellCmd struct{}

func (*shellCmd) Name() string     { return "shell" }
func (*shellCmd) Synopsis() string { return "run commands interactively, with undo" }
func (*shellCmd) Usage() string {
	return `pm shell

  Reads commands from the standard input and runs them on the same open
  ledger. Changes can be undone with 'undo' for a few seconds. Type 'exit'
  to quit.
`
}

func (*shellCmd) SetFlags(f *flag.FlagSet) {}

func (*shellCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withSession(ctx, func(ctx context.Context, s *session) error {
		s.shell = true
		defer func() { s.shell = false }()

		scanner := bufio.NewScanner(stdin)
		for {
			fmt.Fprint(stdout, "pm> ")
			if !scanner.Scan() {
				break
			}
			args, err := splitLine(scanner.Text())
			if err != nil {
				fmt.Fprintf(stderr, "Error: %v\n", err)
				continue
			}
			if len(args) == 0 {
				continue
			}
			switch args[0] {
			case "exit", "quit":
				return nil
			case "shell":
				fmt.Fprintln(stderr, "Error: already in the shell")
				continue
			}
			runLine(ctx, args)
		}
		fmt.Fprintln(stdout)
		return scanner.Err()
	})
}

// runLine executes one shell command with a fresh commander.
func runLine(ctx context.Context, args []string) subcommands.ExitStatus {
	top := flag.NewFlagSet("pm", flag.ContinueOnError)
	top.SetOutput(stderr)
	cdr := subcommands.NewCommander(top, "pm")
	cdr.Output = stdout
	cdr.Error = stderr
	Register(cdr)
	if err := top.Parse(args); err != nil {
		return subcommands.ExitUsageError
	}
	return cdr.Execute(ctx)
}

// splitLine splits a shell line into arguments. Double quotes group words.
func splitLine(line string) ([]string, error) {
	r := csv.NewReader(strings.NewReader(line))
	r.Comma = ' '
	r.TrimLeadingSpace = true
	r.LazyQuotes = true
	fields, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	args := fields[:0]
	for _, field := range fields {
		if field != "" {
			args = append(args, field)
		}
	}
	return args, nil
}

// --- Undo Command ---

type undoCmd struct{}

func (*undoCmd) Name() string     { return "undo" }
func (*undoCmd) Synopsis() string { return "undo a recent change" }
func (*undoCmd) Usage() string {
	return `undo [<id>]

  Undoes the change <id>, or the last change, and every change made after it.
  Only available in the shell.
`
}

func (*undoCmd) SetFlags(f *flag.FlagSet) {}

func (*undoCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withSession(ctx, func(ctx context.Context, s *session) error {
		e, err := pendingEntry(s.c, f.Arg(0))
		if err != nil {
			return err
		}
		if err := s.c.Undo(e.ID); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Undone: %s.\n", e.Description)
		return nil
	})
}

// pendingEntry returns the undo entry id, or the last one if id is empty.
func pendingEntry(c *profit.Coordinator, id string) (profit.UndoEntry, error) {
	entries := c.UndoEntries()
	for i := len(entries) - 1; i >= 0; i-- {
		if id == "" || entries[i].ID == id {
			return entries[i], nil
		}
	}
	if id == "" {
		return profit.UndoEntry{}, fmt.Errorf("nothing to undo: %w", profit.ErrUndoExpired)
	}
	return profit.UndoEntry{}, fmt.Errorf("undo %q: %w", id, profit.ErrUndoExpired)
}

// --- Dismiss Command ---

type dismissCmd struct{}

func (*dismissCmd) Name() string     { return "dismiss" }
func (*dismissCmd) Synopsis() string { return "forget an undo entry" }
func (*dismissCmd) Usage() string {
	return `dismiss [<id>]

  Forgets the undo entry <id>, or the last one. The change is kept.
  Only available in the shell.
`
}

func (*dismissCmd) SetFlags(f *flag.FlagSet) {}

func (*dismissCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withSession(ctx, func(ctx context.Context, s *session) error {
		e, err := pendingEntry(s.c, f.Arg(0))
		if err != nil {
			return err
		}
		return s.c.Dismiss(e.ID)
	})
}
