package profit

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
)

// day is the reference date of the tests.
var day = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

// at returns the reference date plus h hours.
func at(h int) time.Time { return day.Add(time.Duration(h) * time.Hour) }

// cmpOptions makes cmp compare decimals by value and look into allocations.
var cmpOptions = cmp.Options{
	cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) }),
	cmp.AllowUnexported(Allocation{}),
}

// txn is a helper for test to create an account transaction.
func txn(id string, src Source, kind Kind, amount float64, when time.Time) Transaction {
	return Transaction{ID: id, Source: src, Kind: kind, Timestamp: when, Amount: D(amount), ExchangeRate: D(130)}
}

// funded is a helper for test to create a funded profit with its default split.
func funded(id string, amount float64, post bool, when time.Time) Transaction {
	a := SplitFunded(D(amount), post)
	return Transaction{ID: id, Source: Funded, Kind: Profit, Timestamp: when, Amount: D(amount), ExchangeRate: D(130), Allocation: &a}
}

// assertDecimal fails if got is not want.
func assertDecimal(t *testing.T, name string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Errorf("%s = %s, want %s", name, got, want)
	}
}

// sequence returns an id generator yielding prefix-1, prefix-2, ...
func sequence(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

// ticker returns a clock that moves one minute forward on each call.
func ticker() func() time.Time {
	t := day
	return func() time.Time {
		t = t.Add(time.Minute)
		return t
	}
}
