package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/etnz/profit"
	"github.com/etnz/profit/logger"
	"github.com/etnz/profit/store"
	"github.com/google/subcommands"
	"github.com/robfig/cron/v3"
)

// --- Export Command ---

type exportCmd struct {
	output string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "export the ledger as a JSON document" }
func (*exportCmd) Usage() string {
	return `pm export [-o <file>]

  Writes the transactions, goals and settings as a JSON document, to stdout
  or to a file.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.output, "o", "", "Output file, defaults to stdout")
}

func (c *exportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withSession(ctx, func(ctx context.Context, s *session) error {
		if c.output == "" {
			return s.c.Export(stdout)
		}
		return exportFile(s.c, c.output)
	})
}

func exportFile(c *profit.Coordinator, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := c.Export(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// --- Import Command ---

type importCmd struct{}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "replace the ledger with a JSON document" }
func (*importCmd) Usage() string {
	return `pm import <file>

  Replaces the transactions, goals and settings with the ones of an exported
  document. The document is fully checked before anything is replaced.
`
}

func (*importCmd) SetFlags(f *flag.FlagSet) {}

func (*importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return usageError(f, "expected exactly one file")
	}
	doc, err := store.NewFile(f.Arg(0)).Load(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return withSession(ctx, func(ctx context.Context, s *session) error {
		e, err := s.c.Import(doc)
		if err != nil {
			return err
		}
		s.done(e)
		return nil
	})
}

// --- Backup Command ---

type backupCmd struct {
	dir   string
	watch bool
}

func (*backupCmd) Name() string     { return "backup" }
func (*backupCmd) Synopsis() string { return "export the ledger to the backup directory" }
func (*backupCmd) Usage() string {
	return `pm backup [-dir <dir>] [-watch]

  Exports the ledger to profit-manager-YYYY-MM-DD.json in the backup
  directory. With -watch, keeps running and exports on the configured
  schedule until interrupted.
`
}

func (c *backupCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.dir, "dir", "", "Backup directory, defaults to the configured one")
	f.BoolVar(&c.watch, "watch", false, "Export on the configured schedule until interrupted")
}

// BackupName returns the file name of the backup made at now.
func BackupName(now time.Time) string {
	return "profit-manager-" + now.Format("2006-01-02") + ".json"
}

func (c *backupCmd) backup(ctx context.Context, s *session) (string, error) {
	dir := c.dir
	if dir == "" {
		dir = s.cfg.Backup.Dir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, BackupName(now()))
	if err := exportFile(s.c, path); err != nil {
		return "", err
	}
	log := logger.FromContext(ctx)
	log.Info().Str("path", path).Msg("backup written")
	return path, nil
}

func (c *backupCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withSession(ctx, func(ctx context.Context, s *session) error {
		path, err := c.backup(ctx, s)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Backup written to %s\n", path)
		if !c.watch {
			return nil
		}

		var errs error
		sched := cron.New(cron.WithSeconds())
		if _, err := sched.AddFunc(s.cfg.Backup.Schedule, func() {
			if path, err := c.backup(ctx, s); err != nil {
				log := logger.FromContext(ctx)
				log.Error().Err(err).Msg("backup failed")
				errs = errors.Join(errs, err)
			} else {
				fmt.Fprintf(stdout, "Backup written to %s\n", path)
			}
		}); err != nil {
			return fmt.Errorf("backup schedule %q: %w", s.cfg.Backup.Schedule, err)
		}
		sched.Start()
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
		defer stop()
		<-ctx.Done()
		<-sched.Stop().Done()
		return errs
	})
}

// --- History Command ---

type historyCmd struct {
	limit int
	prune int
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "list the saved versions of the ledger" }
func (*historyCmd) Usage() string {
	return `pm history [-limit <n>] [-prune <keep>]

  Lists the versions of the ledger saved in the sqlite store, most recent
  first. With -prune, deletes all but the <keep> most recent ones.
`
}

func (c *historyCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.limit, "limit", 10, "Number of versions to list")
	f.IntVar(&c.prune, "prune", 0, "Keep only this many versions")
}

func (c *historyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withSession(ctx, func(ctx context.Context, s *session) error {
		db, ok := s.store.(*store.SQLite)
		if !ok {
			return fmt.Errorf("history needs the %q store driver", "sqlite")
		}
		if c.prune > 0 {
			n, err := db.Prune(ctx, c.prune)
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "%d versions deleted\n", n)
		}
		entries, err := db.History(ctx, c.limit)
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Fprintf(stdout, "%d\t%s\t%d transactions\n", e.ID, e.SavedAt.Format("2006-01-02 15:04:05"), e.Transactions)
		}
		return nil
	})
}
