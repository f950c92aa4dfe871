package cmd

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/etnz/profit"
	"github.com/etnz/profit/store"
	"github.com/google/subcommands"
)

// testEnv points the commands to a fresh ledger in a temporary directory and
// captures their output.
type testEnv struct {
	dir    string
	out    *bytes.Buffer
	errOut *bytes.Buffer
}

func setup(t *testing.T, driver, path string) *testEnv {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv(EnvTestingNow, "2025-03-01T12:00:00Z")
	for _, v := range []string{"PM_STORE_DRIVER", "PM_STORE_PATH", "PM_UNDO_WINDOW", "PM_EXCHANGE_RATE", "PM_BACKUP_DIR"} {
		t.Setenv(v, "")
	}

	cfg := filepath.Join(dir, "pm.yaml")
	content := fmt.Sprintf("store:\n  driver: %s\n  path: %s\nbackup:\n  dir: %s\n", driver, filepath.Join(dir, path), filepath.Join(dir, "backups"))
	if err := os.WriteFile(cfg, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	oldConfig, oldRaw, oldOut, oldErr := *configFile, *rawOutput, stdout, stderr
	t.Cleanup(func() { *configFile, *rawOutput, stdout, stderr = oldConfig, oldRaw, oldOut, oldErr })

	e := &testEnv{dir: dir, out: &bytes.Buffer{}, errOut: &bytes.Buffer{}}
	*configFile, *rawOutput, stdout, stderr = cfg, true, e.out, e.errOut
	return e
}

// run executes a command line and returns its output.
func (e *testEnv) run(t *testing.T, want subcommands.ExitStatus, args ...string) string {
	t.Helper()
	e.out.Reset()
	e.errOut.Reset()
	if got := runLine(context.Background(), args); got != want {
		t.Fatalf("pm %s = %v, want %v\nstdout:\n%s\nstderr:\n%s", strings.Join(args, " "), got, want, e.out, e.errOut)
	}
	return e.out.String()
}

func (e *testEnv) document(t *testing.T) *profit.Document {
	t.Helper()
	doc, err := store.NewFile(filepath.Join(e.dir, "profit.json")).Load(context.Background())
	if err != nil {
		t.Fatalf("failed to load the ledger: %v", err)
	}
	return doc
}

func assertContains(t *testing.T, got string, wants ...string) {
	t.Helper()
	for _, want := range wants {
		if !strings.Contains(got, want) {
			t.Errorf("output does not contain %q:\n%s", want, got)
		}
	}
}

func TestFundedCmd(t *testing.T) {
	e := setup(t, "file", "profit.json")

	out := e.run(t, subcommands.ExitSuccess, "stage", "-set", "travel=0", "1000")
	assertContains(t, out, "# Funded profit of $1,000.00", "$80.00 of surplus goes to Long-Term")
	if _, err := os.Stat(filepath.Join(e.dir, "profit.json")); !os.IsNotExist(err) {
		t.Errorf("stage saved the ledger, err = %v", err)
	}

	out = e.run(t, subcommands.ExitSuccess, "funded", "-set", "travel=0", "$1,000")
	assertContains(t, out, "Funded profit of $1,000.00 recorded.")

	doc := e.document(t)
	if len(doc.Transactions) != 1 {
		t.Fatalf("ledger has %d transactions, want 1", len(doc.Transactions))
	}
	alloc := doc.Transactions[0].Allocation
	if got := alloc.Get(profit.LongTerm); !got.Equal(profit.D(160)) {
		t.Errorf("long-term = %s, want 160", got)
	}
	if got := alloc.Get(profit.Travel); !got.IsZero() {
		t.Errorf("travel = %s, want 0", got)
	}

	out = e.run(t, subcommands.ExitSuccess, "dashboard")
	assertContains(t, out, "# Dashboard on 2025-03-01", "| **Total** | **$1,000.00** |")
}

func TestFundedCmd_Errors(t *testing.T) {
	e := setup(t, "file", "profit.json")
	e.run(t, subcommands.ExitUsageError, "funded")
	e.run(t, subcommands.ExitUsageError, "funded", "abc")
	e.run(t, subcommands.ExitUsageError, "funded", "-set", "nowhere=1", "100")
	e.run(t, subcommands.ExitFailure, "funded", "-set", "long-term=1", "100")
	e.run(t, subcommands.ExitFailure, "funded", "-set", "account-b=1", "100")
	if _, err := os.Stat(filepath.Join(e.dir, "profit.json")); !os.IsNotExist(err) {
		t.Errorf("a rejected command saved the ledger, err = %v", err)
	}
}

func TestAddWithdrawCmd(t *testing.T) {
	e := setup(t, "file", "profit.json")

	e.run(t, subcommands.ExitSuccess, "add", "-source", "b", "-kind", "deposit", "-notes", "seed", "2000")
	out := e.run(t, subcommands.ExitSuccess, "withdraw", "1000")
	assertContains(t, out, "| Retained on Account B | $300.00 |", "recorded.")

	e.run(t, subcommands.ExitFailure, "withdraw", "-source", "b", "5000")
	assertContains(t, e.errOut.String(), "insufficient balance")
	e.run(t, subcommands.ExitFailure, "withdraw", "-source", "a", "10")
	e.run(t, subcommands.ExitUsageError, "add", "-kind", "gift", "10")
	e.run(t, subcommands.ExitFailure, "add", "-source", "funded", "-kind", "profit", "10")

	doc := e.document(t)
	if len(doc.Transactions) != 2 {
		t.Fatalf("ledger has %d transactions, want 2", len(doc.Transactions))
	}
	if doc.Transactions[0].Notes != "seed" {
		t.Errorf("notes = %q, want %q", doc.Transactions[0].Notes, "seed")
	}

	out = e.run(t, subcommands.ExitSuccess, "tx", "-source", "b", "-kind", "withdrawal")
	assertContains(t, out, "-$1,000.00", "1 transactions")
}

func TestEditDeleteCmd(t *testing.T) {
	e := setup(t, "file", "profit.json")
	e.run(t, subcommands.ExitSuccess, "add", "-source", "a", "-kind", "deposit", "100")
	id := e.document(t).Transactions[0].ID

	e.run(t, subcommands.ExitSuccess, "edit", "-amount", "250", "-notes", "fixed", id)
	tx := e.document(t).Transactions[0]
	if !tx.Amount.Equal(profit.D(250)) || tx.Notes != "fixed" {
		t.Errorf("edited transaction = %+v", tx)
	}
	e.run(t, subcommands.ExitUsageError, "edit", "-date", "yesterday", id)
	e.run(t, subcommands.ExitFailure, "edit", "-amount", "1", "nope")

	e.run(t, subcommands.ExitSuccess, "delete", id)
	if n := len(e.document(t).Transactions); n != 0 {
		t.Errorf("ledger has %d transactions after delete, want 0", n)
	}
	e.run(t, subcommands.ExitFailure, "delete", id)
}

func TestGoalCmds(t *testing.T) {
	e := setup(t, "file", "profit.json")
	e.run(t, subcommands.ExitSuccess, "goal-add", "Laptop", "1200")
	e.run(t, subcommands.ExitSuccess, "goal-add", "Phone", "300")
	e.run(t, subcommands.ExitFailure, "goal-add", "Car", "300")
	e.run(t, subcommands.ExitSuccess, "goal-add", "-term", "long", "House", "50000")
	e.run(t, subcommands.ExitUsageError, "goal-add", "-term", "medium", "Boat", "1")

	doc := e.document(t)
	laptop, phone := doc.ShortTermGoals[0].ID, doc.ShortTermGoals[1].ID
	e.run(t, subcommands.ExitSuccess, "goal-reorder", phone, laptop)
	e.run(t, subcommands.ExitSuccess, "goal-edit", "-target", "1500", laptop)
	e.run(t, subcommands.ExitFailure, "goal-target", doc.LongTermGoals[0].ID, "100000")

	out := e.run(t, subcommands.ExitSuccess, "goals")
	assertContains(t, out, "Phone (#1)", "Laptop (#2)", "$1,500.00", "House")

	e.run(t, subcommands.ExitSuccess, "goal-delete", phone)
	out = e.run(t, subcommands.ExitSuccess, "goals")
	assertContains(t, out, "Laptop (#1)")
}

func TestRateTaxCmd(t *testing.T) {
	e := setup(t, "file", "profit.json")
	assertContains(t, e.run(t, subcommands.ExitSuccess, "rate"), "1 USD = 130 KES")
	e.run(t, subcommands.ExitSuccess, "rate", "140")
	assertContains(t, e.run(t, subcommands.ExitSuccess, "rate"), "1 USD = 140 KES")
	e.run(t, subcommands.ExitFailure, "rate", "0")

	e.run(t, subcommands.ExitSuccess, "funded", "10000")
	assertContains(t, e.run(t, subcommands.ExitSuccess, "tax"), "# Tax estimate", "$10,000.00")

	brackets := filepath.Join(e.dir, "brackets.json")
	if err := os.WriteFile(brackets, []byte(`[{"min": 0, "rate": 0.5}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	e.run(t, subcommands.ExitSuccess, "tax", "-brackets", brackets)
	if got := e.document(t).Settings.TaxBrackets; len(got) != 1 {
		t.Errorf("brackets = %v, want the single bracket of the file", got)
	}
}

func TestExportImportCmd(t *testing.T) {
	e := setup(t, "file", "profit.json")
	e.run(t, subcommands.ExitSuccess, "add", "-source", "a", "-kind", "deposit", "100")
	exported := filepath.Join(e.dir, "export.json")
	e.run(t, subcommands.ExitSuccess, "export", "-o", exported)

	e.run(t, subcommands.ExitSuccess, "add", "-source", "a", "-kind", "deposit", "200")
	e.run(t, subcommands.ExitSuccess, "import", exported)
	if n := len(e.document(t).Transactions); n != 1 {
		t.Errorf("ledger has %d transactions after import, want 1", n)
	}

	bad := filepath.Join(e.dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"transactions": []}`), 0o644); err != nil {
		t.Fatal(err)
	}
	e.run(t, subcommands.ExitFailure, "import", bad)
	assertContains(t, e.errOut.String(), "malformed snapshot")

	out := e.run(t, subcommands.ExitSuccess, "export")
	assertContains(t, out, `"transactions": [`, `"exchangeRateKesPerUsd": 130`)
}

func TestBackupCmd(t *testing.T) {
	e := setup(t, "file", "profit.json")
	e.run(t, subcommands.ExitSuccess, "add", "-source", "a", "-kind", "deposit", "100")
	out := e.run(t, subcommands.ExitSuccess, "backup")
	path := filepath.Join(e.dir, "backups", "profit-manager-2025-03-01.json")
	assertContains(t, out, path)
	doc, err := store.NewFile(path).Load(context.Background())
	if err != nil {
		t.Fatalf("failed to load the backup: %v", err)
	}
	if len(doc.Transactions) != 1 {
		t.Errorf("backup has %d transactions, want 1", len(doc.Transactions))
	}
}

func TestHistoryCmd(t *testing.T) {
	e := setup(t, "sqlite", "profit.db")
	e.run(t, subcommands.ExitSuccess, "add", "-source", "a", "-kind", "deposit", "100")
	e.run(t, subcommands.ExitSuccess, "add", "-source", "a", "-kind", "deposit", "200")
	out := e.run(t, subcommands.ExitSuccess, "history")
	if n := strings.Count(out, "transactions\n"); n != 2 {
		t.Errorf("history lists %d versions, want 2:\n%s", n, out)
	}
	assertContains(t, out, "\t2 transactions")

	out = e.run(t, subcommands.ExitSuccess, "history", "-prune", "1")
	assertContains(t, out, "1 versions deleted")

	setup(t, "file", "profit.json").run(t, subcommands.ExitFailure, "history")
}

func TestShellCmd(t *testing.T) {
	e := setup(t, "file", "profit.json")
	oldStdin := stdin
	t.Cleanup(func() { stdin = oldStdin })
	stdin = strings.NewReader(strings.Join([]string{
		`add -source a -kind deposit -notes "first deposit" 100`,
		`add -source a -kind deposit 200`,
		`undo`,
		``,
		`shell`,
		`undo nope`,
		`exit`,
		`add -source a -kind deposit 999`,
	}, "\n"))

	out := e.run(t, subcommands.ExitSuccess, "shell")
	assertContains(t, out, "Account A deposit of $100.00. Undo with `undo ", "within 5s", "Undone: Account A deposit of $200.00.")
	assertContains(t, e.errOut.String(), "already in the shell", "undo entry expired or unknown")

	doc := e.document(t)
	if len(doc.Transactions) != 1 || doc.Transactions[0].Notes != "first deposit" {
		t.Errorf("ledger after the shell = %+v, want only the first deposit", doc.Transactions)
	}
}

func TestUndoOutsideShell(t *testing.T) {
	e := setup(t, "file", "profit.json")
	e.run(t, subcommands.ExitFailure, "undo")
	assertContains(t, e.errOut.String(), "nothing to undo")
}

func TestSplitLine(t *testing.T) {
	tests := []struct {
		line string
		want []string
	}{
		{line: "", want: nil},
		{line: "   ", want: nil},
		{line: "tx -source b", want: []string{"tx", "-source", "b"}},
		{line: `add  -notes "two words"  10 `, want: []string{"add", "-notes", "two words", "10"}},
	}
	for _, tc := range tests {
		t.Run(tc.line, func(t *testing.T) {
			got, err := splitLine(tc.line)
			if err != nil {
				t.Fatalf("splitLine(%q) unexpected error: %v", tc.line, err)
			}
			if strings.Join(got, "|") != strings.Join(tc.want, "|") {
				t.Errorf("splitLine(%q) = %q, want %q", tc.line, got, tc.want)
			}
		})
	}
}

func TestTopicCmd(t *testing.T) {
	e := setup(t, "file", "profit.json")
	assertContains(t, e.run(t, subcommands.ExitSuccess, "topic", "-list"), "* `ledger`: Ledger")
	assertContains(t, e.run(t, subcommands.ExitSuccess, "topic", "goals"), "# Goals")
	e.run(t, subcommands.ExitFailure, "topic", "nope")
}

func TestCompletion(t *testing.T) {
	cdr := subcommands.NewCommander(flag.NewFlagSet("pm", flag.ContinueOnError), "pm")
	Register(cdr)
	root := completion(cdr)
	funded, ok := root.Sub["funded"]
	if !ok {
		t.Fatal("no completion for funded")
	}
	if got := funded.Flags["set"].Predict(""); len(got) != len(profit.Buckets()) {
		t.Errorf("-set predicts %v, want one value per bucket", got)
	}
	if got := root.Sub["add"].Flags["source"].Predict(""); strings.Join(got, ",") != "funded,a,b" {
		t.Errorf("-source predicts %v", got)
	}
}
