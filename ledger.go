package profit

import (
	"errors"
	"fmt"
	"iter"
	"slices"
)

// Ledger is the list of transactions, in insertion order.
//
// The ledger does not sort its transactions, Recalculate does. Keeping the
// insertion order is what breaks ties between transactions sharing a
// timestamp.
type Ledger struct {
	transactions []Transaction
}

// NewLedger creates a ledger holding txs.
func NewLedger(txs ...Transaction) *Ledger {
	l := &Ledger{}
	for _, tx := range txs {
		l.Append(tx)
	}
	return l
}

// Append appends a transaction.
func (l *Ledger) Append(tx Transaction) {
	l.transactions = append(l.transactions, tx.clone())
}

func (l *Ledger) index(id string) (int, error) {
	i := slices.IndexFunc(l.transactions, func(tx Transaction) bool { return tx.ID == id })
	if i < 0 {
		return -1, fmt.Errorf("transaction %q: %w", id, ErrNotFound)
	}
	return i, nil
}

// Get returns the transaction id.
func (l *Ledger) Get(id string) (Transaction, error) {
	i, err := l.index(id)
	if err != nil {
		return Transaction{}, err
	}
	return l.transactions[i].clone(), nil
}

// Remove removes the transaction id.
func (l *Ledger) Remove(id string) error {
	i, err := l.index(id)
	if err != nil {
		return err
	}
	l.transactions = slices.Delete(l.transactions, i, i+1)
	return nil
}

// Replace applies patch to the transaction id, in place.
func (l *Ledger) Replace(id string, patch Patch) (Transaction, error) {
	i, err := l.index(id)
	if err != nil {
		return Transaction{}, err
	}
	tx, err := patch.apply(l.transactions[i])
	if err != nil {
		return Transaction{}, fmt.Errorf("edit transaction %q: %w", id, err)
	}
	if err := tx.Validate(); err != nil {
		return Transaction{}, fmt.Errorf("edit transaction %q: %w", id, err)
	}
	l.transactions[i] = tx
	return tx.clone(), nil
}

// Len returns the number of transactions.
func (l *Ledger) Len() int { return len(l.transactions) }

// All iterates over all transactions in insertion order.
func (l *Ledger) All() iter.Seq[Transaction] {
	return func(yield func(Transaction) bool) {
		for _, tx := range l.transactions {
			if !yield(tx.clone()) {
				return
			}
		}
	}
}

// Transactions iterates over the transactions accepted by all filters, in
// insertion order.
func (l *Ledger) Transactions(filters ...func(Transaction) bool) iter.Seq2[int, Transaction] {
	return func(yield func(int, Transaction) bool) {
	next:
		for i, tx := range l.transactions {
			for _, filter := range filters {
				if !filter(tx) {
					continue next
				}
			}
			if !yield(i, tx.clone()) {
				return
			}
		}
	}
}

// List returns a copy of the transactions in insertion order.
func (l *Ledger) List() []Transaction {
	txs := make([]Transaction, 0, len(l.transactions))
	for tx := range l.All() {
		txs = append(txs, tx)
	}
	return txs
}

// Clone returns a deep copy of the ledger.
func (l *Ledger) Clone() *Ledger {
	return &Ledger{transactions: l.List()}
}

// Validate checks every transaction and that ids are unique.
func (l *Ledger) Validate() error {
	var errs error
	seen := make(map[string]bool, len(l.transactions))
	for i, tx := range l.transactions {
		if err := tx.Validate(); err != nil {
			errs = errors.Join(errs, fmt.Errorf("transaction #%d %q: %w", i, tx.ID, err))
		}
		if seen[tx.ID] {
			errs = errors.Join(errs, fmt.Errorf("transaction #%d: duplicate id %q", i, tx.ID))
		}
		seen[tx.ID] = true
	}
	return errs
}

// BySource returns a filter accepting transactions from source s.
func BySource(s Source) func(Transaction) bool {
	return func(tx Transaction) bool { return tx.Source == s }
}

// ByKind returns a filter accepting transactions of kind k.
func ByKind(k Kind) func(Transaction) bool {
	return func(tx Transaction) bool { return tx.Kind == k }
}

// Taxable accepts the transactions that produce taxable income: funded
// profits and withdrawals from either account.
func Taxable(tx Transaction) bool {
	return tx.Source == Funded || tx.Kind == Withdrawal
}
