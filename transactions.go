package profit

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Source identifies where a transaction happened.
type Source string

// Transaction sources.
const (
	Funded   Source = "funded"
	AccountA Source = "account-a"
	AccountB Source = "account-b"
)

// ParseSource parses a source name. "a" and "b" are accepted as shortcuts.
func ParseSource(s string) (Source, error) {
	switch s {
	case string(Funded):
		return Funded, nil
	case string(AccountA), "a", "A":
		return AccountA, nil
	case string(AccountB), "b", "B":
		return AccountB, nil
	default:
		return "", fmt.Errorf("unknown source %q", s)
	}
}

// Kind is the effect of a transaction on its account.
type Kind string

// Transaction kinds. Funded transactions are always a Profit.
const (
	Profit     Kind = "profit"
	Loss       Kind = "loss"
	Deposit    Kind = "deposit"
	Withdrawal Kind = "withdrawal"
)

// ParseKind parses a transaction kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case Profit, Loss, Deposit, Withdrawal:
		return k, nil
	default:
		return "", fmt.Errorf("%q: %w", s, ErrInvalidKind)
	}
}

// validFor reports whether kind k can be recorded on source s.
func (k Kind) validFor(s Source) bool {
	switch s {
	case Funded:
		return k == Profit
	case AccountA, AccountB:
		switch k {
		case Profit, Loss, Deposit, Withdrawal:
			return true
		}
	}
	return false
}

// Transaction is a single immutable ledger record.
//
// Amount is always a non-negative USD magnitude, the effect on balances is
// given by Kind. ExchangeRate is the KES per USD rate locked when the
// transaction was entered.
type Transaction struct {
	ID           string
	Source       Source
	Kind         Kind
	Timestamp    time.Time
	Amount       decimal.Decimal
	ExchangeRate decimal.Decimal
	Notes        string
	Allocation   *Allocation // funded only
}

// Validate checks the transaction invariants and returns all failures.
func (tx Transaction) Validate() error {
	var errs error
	if tx.ID == "" {
		errs = errors.Join(errs, errors.New("missing id"))
	}
	switch tx.Source {
	case Funded, AccountA, AccountB:
		if !tx.Kind.validFor(tx.Source) {
			errs = errors.Join(errs, fmt.Errorf("%s on %s: %w", tx.Kind, tx.Source, ErrInvalidKind))
		}
	default:
		errs = errors.Join(errs, fmt.Errorf("unknown source %q", tx.Source))
	}
	if tx.Timestamp.IsZero() {
		errs = errors.Join(errs, errors.New("missing timestamp"))
	}
	if tx.Amount.IsNegative() {
		errs = errors.Join(errs, fmt.Errorf("amount %s: %w", tx.Amount, ErrInvalidAmount))
	}
	if tx.ExchangeRate.IsNegative() {
		errs = errors.Join(errs, fmt.Errorf("exchange rate %s is negative", tx.ExchangeRate))
	}
	if tx.Source == Funded && tx.Allocation == nil {
		errs = errors.Join(errs, errors.New("funded profit without allocation split"))
	}
	if tx.Source != Funded && tx.Allocation != nil {
		errs = errors.Join(errs, fmt.Errorf("allocation split on a %s transaction", tx.Source))
	}
	return errs
}

// IsWithdrawal reports whether tx takes money out of an account.
func (tx Transaction) IsWithdrawal() bool { return tx.Kind == Withdrawal }

// clone returns a copy that shares nothing with tx.
func (tx Transaction) clone() Transaction {
	if tx.Allocation != nil {
		a := *tx.Allocation
		tx.Allocation = &a
	}
	return tx
}

// Patch describes an edit of a transaction. Nil fields are left unchanged.
type Patch struct {
	Timestamp    *time.Time
	Amount       *decimal.Decimal
	Kind         *Kind
	ExchangeRate *decimal.Decimal
	Notes        *string
	Allocation   *Allocation
}

// apply returns a copy of tx with the patch applied.
func (p Patch) apply(tx Transaction) (Transaction, error) {
	tx = tx.clone()
	if p.Timestamp != nil {
		tx.Timestamp = normalizeTime(*p.Timestamp)
	}
	if p.Kind != nil {
		if !p.Kind.validFor(tx.Source) {
			return tx, fmt.Errorf("%s on %s: %w", *p.Kind, tx.Source, ErrInvalidKind)
		}
		tx.Kind = *p.Kind
	}
	if p.ExchangeRate != nil {
		if !p.ExchangeRate.IsPositive() {
			return tx, fmt.Errorf("exchange rate %s: %w", *p.ExchangeRate, ErrInvalidAmount)
		}
		tx.ExchangeRate = *p.ExchangeRate
	}
	if p.Notes != nil {
		tx.Notes = *p.Notes
	}
	if p.Amount != nil {
		if !p.Amount.IsPositive() {
			return tx, fmt.Errorf("amount %s: %w", *p.Amount, ErrInvalidAmount)
		}
		tx.Amount = *p.Amount
		if tx.Source == Funded && p.Allocation == nil && tx.Allocation != nil {
			// re-derive with the table the transaction was committed under.
			a := SplitFunded(tx.Amount, tx.Allocation.PostMilestone())
			tx.Allocation = &a
		}
	}
	if p.Allocation != nil {
		if tx.Source != Funded {
			return tx, fmt.Errorf("allocation split on a %s transaction", tx.Source)
		}
		a := *p.Allocation
		tx.Allocation = &a
	}
	return tx, nil
}

// normalizeTime returns t in UTC without monotonic clock reading, so that it
// survives a round trip through the persisted document unchanged.
func normalizeTime(t time.Time) time.Time { return t.UTC().Round(0) }

// MarshalJSON implements json.Marshaler with a stable key order.
func (tx Transaction) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("id", tx.ID)
	w.Append("timestamp", tx.Timestamp.Format(time.RFC3339Nano))
	w.Append("source", tx.Source)
	w.Append("kind", tx.Kind)
	w.Append("amountUSD", tx.Amount)
	w.Append("exchangeRate", tx.ExchangeRate)
	w.Optional("notes", tx.Notes)
	w.Optional("allocationSplit", tx.Allocation)
	return w.MarshalJSON()
}

// UnmarshalJSON implements json.Unmarshaler.
func (tx *Transaction) UnmarshalJSON(data []byte) error {
	// Use a temporary type so that the timestamp can be parsed strictly.
	var temp struct {
		ID           string          `json:"id"`
		Timestamp    string          `json:"timestamp"`
		Source       Source          `json:"source"`
		Kind         Kind            `json:"kind"`
		Amount       decimal.Decimal `json:"amountUSD"`
		ExchangeRate decimal.Decimal `json:"exchangeRate"`
		Notes        string          `json:"notes,omitempty"`
		Allocation   *Allocation     `json:"allocationSplit,omitempty"`
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}
	ts, err := time.Parse(time.RFC3339Nano, temp.Timestamp)
	if err != nil {
		return fmt.Errorf("transaction %q: invalid timestamp %q: %w", temp.ID, temp.Timestamp, err)
	}
	*tx = Transaction{
		ID:           temp.ID,
		Source:       temp.Source,
		Kind:         temp.Kind,
		Timestamp:    normalizeTime(ts),
		Amount:       temp.Amount,
		ExchangeRate: temp.ExchangeRate,
		Notes:        temp.Notes,
		Allocation:   temp.Allocation,
	}
	return nil
}
