package profit

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// TaxBracket is a monthly income band in KES taxed at Rate.
//
// Bounds are inclusive, a zero Max means the band has no upper bound.
type TaxBracket struct {
	Min  decimal.Decimal `json:"min"`
	Max  decimal.Decimal `json:"max,omitzero"`
	Rate decimal.Decimal `json:"rate"`
}

func (b TaxBracket) unbounded() bool { return b.Max.IsZero() }

// PersonalRelief is the monthly personal relief in KES.
var PersonalRelief = decimal.NewFromInt(2400)

// DefaultTaxBrackets returns the Kenyan resident monthly tax bands.
func DefaultTaxBrackets() []TaxBracket {
	return []TaxBracket{
		{Min: D(0), Max: D(24000), Rate: rate("0.10")},
		{Min: D(24001), Max: D(32333), Rate: rate("0.25")},
		{Min: D(32334), Max: D(500000), Rate: rate("0.30")},
		{Min: D(500001), Max: D(800000), Rate: rate("0.325")},
		{Min: D(800001), Rate: rate("0.35")},
	}
}

// ValidateTaxBrackets checks that brackets are contiguous and increasing.
func ValidateTaxBrackets(brackets []TaxBracket) error {
	var errs error
	for i, b := range brackets {
		if b.Rate.IsNegative() || b.Rate.GreaterThan(decimal.NewFromInt(1)) {
			errs = errors.Join(errs, fmt.Errorf("bracket #%d: rate %s is not between 0 and 1", i, b.Rate))
		}
		if !b.unbounded() && b.Max.LessThan(b.Min) {
			errs = errors.Join(errs, fmt.Errorf("bracket #%d: max %s is lower than min %s", i, b.Max, b.Min))
		}
		if b.unbounded() && i != len(brackets)-1 {
			errs = errors.Join(errs, fmt.Errorf("bracket #%d: only the last bracket can be unbounded", i))
		}
		if i > 0 && !brackets[i-1].unbounded() && !b.Min.Equal(brackets[i-1].Max.Add(decimal.NewFromInt(1))) {
			errs = errors.Join(errs, fmt.Errorf("bracket #%d: min %s does not follow previous max %s", i, b.Min, brackets[i-1].Max))
		}
	}
	return errs
}

// MonthlyTax returns the tax due on a monthly income in KES, after personal
// relief. It is never negative.
func MonthlyTax(income decimal.Decimal, brackets []TaxBracket) decimal.Decimal {
	if len(brackets) == 0 {
		brackets = DefaultTaxBrackets()
	}
	tax := decimal.Zero
	remaining := income
	for _, b := range brackets {
		if !remaining.IsPositive() {
			break
		}
		taxable := remaining
		if !b.unbounded() {
			taxable = decimal.Min(remaining, b.Max.Sub(b.Min).Add(decimal.NewFromInt(1)))
		}
		tax = tax.Add(taxable.Mul(b.Rate))
		remaining = remaining.Sub(taxable)
	}
	return decimal.Max(decimal.Zero, tax.Sub(PersonalRelief))
}

// TaxSummary is the taxable income of a ledger and the tax estimate.
type TaxSummary struct {
	TaxableUSD decimal.Decimal
	// TaxableKES uses the exchange rate locked by each transaction.
	TaxableKES decimal.Decimal
	MonthlyKES decimal.Decimal // taxable income spread over twelve months
	MonthlyTax decimal.Decimal
	AnnualTax  decimal.Decimal
	Count      int // number of taxable transactions
}

var twelve = decimal.NewFromInt(12)

// taxablePart returns the taxable income of a single transaction.
func taxablePart(tx Transaction) decimal.Decimal {
	switch {
	case tx.Source == Funded:
		return tx.Amount
	case tx.Source == AccountB && tx.Kind == Withdrawal:
		return SplitWithdrawal(tx.Amount).Taxable()
	case tx.Source == AccountA && tx.Kind == Withdrawal:
		return tx.Amount
	}
	return decimal.Zero
}

// Tax computes the tax summary of the ledger with brackets, or the default
// brackets if none are given.
func Tax(l *Ledger, brackets []TaxBracket) TaxSummary {
	var s TaxSummary
	for _, tx := range l.Transactions(Taxable) {
		part := taxablePart(tx)
		s.TaxableUSD = s.TaxableUSD.Add(part)
		s.TaxableKES = s.TaxableKES.Add(part.Mul(tx.ExchangeRate))
		s.Count++
	}
	s.MonthlyKES = s.TaxableKES.DivRound(twelve, 2)
	s.MonthlyTax = MonthlyTax(s.MonthlyKES, brackets)
	s.AnnualTax = s.MonthlyTax.Mul(twelve)
	return s
}

// Settings are the user preferences stored with the ledger.
type Settings struct {
	// ExchangeRate is the KES per USD rate locked into new transactions.
	ExchangeRate decimal.Decimal
	TaxBrackets  []TaxBracket
}

// DefaultExchangeRate is the KES per USD rate of a fresh ledger.
var DefaultExchangeRate = decimal.NewFromInt(130)

// DefaultSettings returns the settings of a fresh ledger.
func DefaultSettings() Settings { return Settings{ExchangeRate: DefaultExchangeRate} }

func (s Settings) clone() Settings {
	if s.TaxBrackets != nil {
		s.TaxBrackets = append([]TaxBracket(nil), s.TaxBrackets...)
	}
	return s
}

// Brackets returns the tax brackets in use.
func (s Settings) Brackets() []TaxBracket {
	if len(s.TaxBrackets) == 0 {
		return DefaultTaxBrackets()
	}
	return s.TaxBrackets
}

// MarshalJSON implements json.Marshaler.
func (s Settings) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("exchangeRateKesPerUsd", s.ExchangeRate)
	if len(s.TaxBrackets) > 0 {
		w.Append("taxBrackets", s.TaxBrackets)
	}
	return w.MarshalJSON()
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Settings) UnmarshalJSON(data []byte) error {
	var temp struct {
		ExchangeRate decimal.Decimal `json:"exchangeRateKesPerUsd"`
		TaxBrackets  []TaxBracket    `json:"taxBrackets,omitempty"`
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}
	*s = Settings{ExchangeRate: temp.ExchangeRate, TaxBrackets: temp.TaxBrackets}
	return nil
}
