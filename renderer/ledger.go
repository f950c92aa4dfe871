package renderer

import (
	"slices"

	"github.com/etnz/profit"
	"github.com/shopspring/decimal"
)

// TransactionRow is one line of the transaction history.
type TransactionRow struct {
	profit.Transaction
	Signed decimal.Decimal // amount as it moves its account
	KES    decimal.Decimal // signed amount at the locked rate
}

// TransactionList is the data of the transaction history.
type TransactionList struct {
	Title string
	Rows  []TransactionRow
	Net   decimal.Decimal
}

// NewTransactionList prepares the history of txs, newest first.
func NewTransactionList(title string, txs []profit.Transaction) *TransactionList {
	l := &TransactionList{Title: title}
	for _, tx := range txs {
		signed := tx.Amount
		if tx.Kind == profit.Loss || tx.Kind == profit.Withdrawal {
			signed = signed.Neg()
		}
		l.Rows = append(l.Rows, TransactionRow{Transaction: tx, Signed: signed, KES: signed.Mul(tx.ExchangeRate)})
		l.Net = l.Net.Add(signed)
	}
	slices.SortStableFunc(l.Rows, func(a, b TransactionRow) int { return b.Timestamp.Compare(a.Timestamp) })
	return l
}

// RenderTransactions renders the transaction history.
func RenderTransactions(l *TransactionList) string {
	return renderTemplate("transactions", "transactions.md", nil, l)
}
