// Package cmd implements the pm command line application.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/profit"
	"github.com/etnz/profit/config"
	"github.com/etnz/profit/logger"
	"github.com/etnz/profit/renderer"
	"github.com/etnz/profit/store"
	"github.com/google/subcommands"
	"github.com/rs/zerolog"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(c.HelpCommand(), "")
	c.Register(c.FlagsCommand(), "")
	c.Register(&topicCmd{}, "")

	c.Register(&fundedCmd{}, "transactions")
	c.Register(&stageCmd{}, "transactions")
	c.Register(&addCmd{}, "transactions")
	c.Register(&withdrawCmd{}, "transactions")
	c.Register(&editCmd{}, "transactions")
	c.Register(&deleteCmd{}, "transactions")

	c.Register(&goalAddCmd{}, "goals")
	c.Register(&goalEditCmd{}, "goals")
	c.Register(&goalDeleteCmd{}, "goals")
	c.Register(&goalReorderCmd{}, "goals")
	c.Register(&goalTargetCmd{}, "goals")

	c.Register(&dashboardCmd{}, "reports")
	c.Register(&txCmd{}, "reports")
	c.Register(&goalsCmd{}, "reports")
	c.Register(&taxCmd{}, "reports")

	c.Register(&rateCmd{}, "settings")
	c.Register(&exportCmd{}, "data")
	c.Register(&importCmd{}, "data")
	c.Register(&backupCmd{}, "data")
	c.Register(&historyCmd{}, "data")
	c.Register(&shellCmd{}, "shell")
	c.Register(&undoCmd{}, "shell")
	c.Register(&dismissCmd{}, "shell")
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var (
	configFile = flag.String("config", "pm.yaml", "Path to the configuration file")
	verbose    = flag.Bool("v", false, "Log at debug level")
	rawOutput  = flag.Bool("raw", false, "Print markdown without terminal styling")

	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// EnvTestingNow fixes the clock, as an RFC 3339 timestamp. Used by tests.
const EnvTestingNow = "PM_TESTING_NOW"

func now() time.Time {
	if v := os.Getenv(EnvTestingNow); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t
		}
	}
	return time.Now()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(*configFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if *verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// persister is a store the coordinator saves to.
type persister interface {
	profit.Persister
	io.Closer
}

type fileStore struct{ *store.File }

func (fileStore) Close() error { return nil }

func openStore(cfg *config.Config) (persister, error) {
	if cfg.Store.Driver == config.DriverSQLite {
		return store.OpenSQLite(cfg.Store.Path)
	}
	return fileStore{store.NewFile(cfg.Store.Path)}, nil
}

type sessionKey struct{}

// session is an open ledger. The shell keeps one for its whole lifetime,
// other commands open one for a single execution.
type session struct {
	cfg   *config.Config
	log   zerolog.Logger
	store persister
	c     *profit.Coordinator
	shell bool
}

func openSession(ctx context.Context) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log := logger.New(cfg.Log.Level)
	p, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	doc, err := p.Load(ctx)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Info().Str("path", cfg.Store.Path).Msg("no ledger yet, starting an empty one")
		doc = profit.EmptyDocument()
		if doc.Settings.ExchangeRate, err = cfg.Rate(); err != nil {
			p.Close()
			return nil, fmt.Errorf("exchange rate %q: %w", cfg.ExchangeRate, err)
		}
	case err != nil:
		p.Close()
		return nil, err
	}
	c, err := profit.NewCoordinator(doc,
		profit.WithLogger(log),
		profit.WithClock(now),
		profit.WithUndoWindow(cfg.Undo.Window),
		profit.WithPersister(p),
	)
	if err != nil {
		p.Close()
		return nil, err
	}
	return &session{cfg: cfg, log: log, store: p, c: c}, nil
}

func (s *session) Close() error {
	return errors.Join(s.c.Close(), s.store.Close())
}

// withSession runs fn on the session of ctx, or on a new one closed right
// after.
func withSession(ctx context.Context, fn func(ctx context.Context, s *session) error) subcommands.ExitStatus {
	s, ok := ctx.Value(sessionKey{}).(*session)
	if !ok {
		var err error
		if s, err = openSession(ctx); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		ctx = context.WithValue(logger.WithContext(ctx, s.log), sessionKey{}, s)
		defer func() {
			if err := s.Close(); err != nil {
				fmt.Fprintf(stderr, "Error saving the ledger: %v\n", err)
			}
		}()
	}
	if err := fn(ctx, s); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// done reports a mutation. In the shell it also tells how to undo it.
func (s *session) done(e profit.UndoEntry) {
	if !s.shell {
		fmt.Fprintf(stdout, "%s recorded.\n", e.Description)
		return
	}
	renderer.ConditionalBlock(stdout, func(w io.Writer) bool {
		md := renderer.RenderUndo([]profit.UndoEntry{e}, now())
		io.WriteString(w, md)
		return len(md) > 1
	})
}

// printMarkdown writes md to stdout, styled for the terminal unless -raw is
// set.
func printMarkdown(md string) {
	if !*rawOutput {
		r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(120))
		if err == nil {
			if out, err := r.Render(md); err == nil {
				io.WriteString(stdout, out)
				return
			}
		}
	}
	io.WriteString(stdout, md)
}

// usageError prints the usage of a command after an argument error.
func usageError(f *flag.FlagSet, format string, args ...any) subcommands.ExitStatus {
	fmt.Fprintf(stderr, "Error: "+format+"\n", args...)
	f.Usage()
	return subcommands.ExitUsageError
}
