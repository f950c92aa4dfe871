package profit

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestMonthlyTax(t *testing.T) {
	tests := []struct {
		income string
		want   string
	}{
		{income: "0", want: "0"},
		{income: "20000", want: "0"}, // below the personal relief
		{income: "24000", want: "0"},
		{income: "50000", want: "7383.15"}, // bands are inclusive, the first one is 24001 wide
		{income: "1000000", want: "309883.1"},
	}
	for _, tc := range tests {
		t.Run(tc.income, func(t *testing.T) {
			got := MonthlyTax(decimal.RequireFromString(tc.income), nil)
			assertDecimal(t, "MonthlyTax", got, tc.want)
		})
	}

	t.Run("custom brackets", func(t *testing.T) {
		flat := []TaxBracket{{Min: D(0), Rate: rate("0.5")}}
		assertDecimal(t, "MonthlyTax", MonthlyTax(D(10000), flat), "2600")
	})
}

func TestValidateTaxBrackets(t *testing.T) {
	if err := ValidateTaxBrackets(DefaultTaxBrackets()); err != nil {
		t.Errorf("default brackets are invalid: %v", err)
	}
	bad := [][]TaxBracket{
		{{Min: D(0), Max: D(10), Rate: rate("1.5")}},
		{{Min: D(10), Max: D(0), Rate: rate("0.1")}, {Min: D(11), Rate: rate("0.1")}},
		{{Min: D(0), Max: D(10), Rate: rate("0.1")}, {Min: D(20), Rate: rate("0.1")}},
		{{Min: D(0), Rate: rate("0.1")}, {Min: D(1), Rate: rate("0.1")}},
	}
	for i, b := range bad {
		if err := ValidateTaxBrackets(b); err == nil {
			t.Errorf("ValidateTaxBrackets(#%d) succeeded, want error", i)
		}
	}
}

func TestTax(t *testing.T) {
	b := txn("b1", AccountB, Withdrawal, 1000, at(1))
	b.ExchangeRate = D(100)
	l := NewLedger(
		funded("f1", 10000, false, at(0)),
		b,
		txn("a1", AccountA, Deposit, 5000, at(2)),
		txn("a2", AccountA, Withdrawal, 100, at(3)),
	)
	s := Tax(l, nil)
	if s.Count != 3 {
		t.Errorf("Count = %d, want 3", s.Count)
	}
	assertDecimal(t, "TaxableUSD", s.TaxableUSD, "10800")
	assertDecimal(t, "TaxableKES", s.TaxableKES, "1383000")
	assertDecimal(t, "MonthlyKES", s.MonthlyKES, "115250")
	assertDecimal(t, "MonthlyTax", s.MonthlyTax, "26958.15")
	assertDecimal(t, "AnnualTax", s.AnnualTax, "323497.8")

	// the engine agrees on the taxable income.
	snap := Recalculate(l.List(), nil, nil)
	assertDecimal(t, "TaxableIncome", snap.TaxableIncome, "10800")
}

func TestTax_AgreesWithEngine(t *testing.T) {
	tests := []struct {
		name string
		txs  []Transaction
		want string
	}{
		{
			name: "account b withdrawal",
			txs: []Transaction{
				txn("b0", AccountB, Deposit, 2000, at(0)),
				txn("b1", AccountB, Withdrawal, 1000, at(1)),
			},
			want: "700",
		},
		{
			name: "mixed",
			txs: []Transaction{
				funded("f1", 1000, true, at(0)),
				txn("b1", AccountB, Withdrawal, 33.33, at(1)),
				txn("a1", AccountA, Withdrawal, 10, at(2)),
				txn("b2", AccountB, Deposit, 50, at(3)),
			},
			want: "1033.331",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			l := NewLedger(tc.txs...)
			got := Tax(l, nil).TaxableUSD
			assertDecimal(t, "TaxableUSD", got, tc.want)
			snap := Recalculate(l.List(), nil, nil)
			if !got.Equal(snap.TaxableIncome) {
				t.Errorf("TaxableUSD = %s, engine TaxableIncome = %s", got, snap.TaxableIncome)
			}
		})
	}
}
