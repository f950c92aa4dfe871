package store

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/etnz/profit"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
)

func document(t *testing.T) *profit.Document {
	t.Helper()
	c, err := profit.NewCoordinator(nil)
	if err != nil {
		t.Fatalf("NewCoordinator() unexpected error: %v", err)
	}
	defer c.Close()
	if _, err := c.AddFundedProfit(decimal.NewFromInt(1000), nil); err != nil {
		t.Fatalf("AddFundedProfit() unexpected error: %v", err)
	}
	if _, err := c.AddShortTermGoal("Laptop", decimal.NewFromInt(900)); err != nil {
		t.Fatalf("AddShortTermGoal() unexpected error: %v", err)
	}
	return c.State()
}

func sameDocument(t *testing.T, want, got *profit.Document) {
	t.Helper()
	opts := cmp.Options{
		cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) }),
		cmp.Comparer(func(a, b profit.Allocation) bool { return a.Equal(b) }),
	}
	if diff := cmp.Diff(want, got, opts); diff != "" {
		t.Errorf("document mismatch (-want +got):\n%s", diff)
	}
}

func TestFile(t *testing.T) {
	ctx := context.Background()
	f := NewFile(filepath.Join(t.TempDir(), "data", "profit.json"))

	if _, err := f.Load(ctx); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("Load() on a missing file error = %v, want %v", err, fs.ErrNotExist)
	}
	want := document(t)
	if err := f.Save(ctx, want); err != nil {
		t.Fatalf("Save() unexpected error: %v", err)
	}
	got, err := f.Load(ctx)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	sameDocument(t, want, got)

	entries, _ := os.ReadDir(filepath.Dir(f.Path))
	if len(entries) != 1 {
		t.Errorf("%d files in the store directory, want only the document", len(entries))
	}
}

func TestFile_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profit.json")
	if err := os.WriteFile(path, []byte(`{"transactions": []}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFile(path).Load(context.Background()); !errors.Is(err, profit.ErrMalformedSnapshot) {
		t.Errorf("Load() error = %v, want %v", err, profit.ErrMalformedSnapshot)
	}
}

func TestSQLite(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "profit.db"))
	if err != nil {
		t.Fatalf("OpenSQLite() unexpected error: %v", err)
	}
	defer s.Close()

	if _, err := s.Load(ctx); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("Load() on an empty database error = %v, want %v", err, fs.ErrNotExist)
	}
	first := profit.EmptyDocument()
	want := document(t)
	for _, doc := range []*profit.Document{first, want} {
		if err := s.Save(ctx, doc); err != nil {
			t.Fatalf("Save() unexpected error: %v", err)
		}
	}
	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	sameDocument(t, want, got)

	history, err := s.History(ctx, 10)
	if err != nil {
		t.Fatalf("History() unexpected error: %v", err)
	}
	if len(history) != 2 || history[0].Transactions != 1 || history[1].Transactions != 0 {
		t.Errorf("History() = %+v, want the two saves, latest first", history)
	}

	n, err := s.Prune(ctx, 1)
	if err != nil {
		t.Fatalf("Prune() unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("Prune() deleted %d documents, want 1", n)
	}
}

func TestSQLite_Coordinator(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "profit.db"))
	if err != nil {
		t.Fatalf("OpenSQLite() unexpected error: %v", err)
	}
	defer s.Close()

	c, err := profit.Open(ctx, s)
	if err != nil {
		t.Fatalf("Open() unexpected error: %v", err)
	}
	if _, err := c.AddTransaction(profit.AccountB, profit.Deposit, decimal.NewFromInt(42), ""); err != nil {
		t.Fatalf("AddTransaction() unexpected error: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close() unexpected error: %v", err)
	}

	c, err = profit.Open(ctx, s)
	if err != nil {
		t.Fatalf("Open() unexpected error: %v", err)
	}
	defer c.Close()
	if got := c.Snapshot().AccountB.Balance; !got.Equal(decimal.NewFromInt(42)) {
		t.Errorf("Account B balance = %s, want 42", got)
	}
}
