package profit

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Bucket identifies an allocation bucket: a running total fed by funded
// profit splits and Account B withdrawal splits.
type Bucket int

// The closed set of allocation buckets.
const (
	AccountAAllocation Bucket = iota
	AccountBAllocation
	Autosave
	CashInHand
	ShortTerm
	LongTerm
	Grooming
	CustomIndex
	EmergencyFund
	Travel
	Card
	GlobalIndex
	StockTracking
	EmergingMarkets

	BucketCount int = iota
)

var bucketNames = [BucketCount]string{
	AccountAAllocation: "account-a",
	AccountBAllocation: "account-b",
	Autosave:           "autosave",
	CashInHand:         "cash",
	ShortTerm:          "short-term",
	LongTerm:           "long-term",
	Grooming:           "grooming",
	CustomIndex:        "custom-index",
	EmergencyFund:      "emergency",
	Travel:             "travel",
	Card:               "card",
	GlobalIndex:        "global-index",
	StockTracking:      "stock-tracking",
	EmergingMarkets:    "emerging-markets",
}

var bucketLabels = [BucketCount]string{
	AccountAAllocation: "Account A",
	AccountBAllocation: "Account B",
	Autosave:           "Autosave",
	CashInHand:         "Cash in Hand",
	ShortTerm:          "Short-Term Savings",
	LongTerm:           "Long-Term Savings",
	Grooming:           "Grooming",
	CustomIndex:        "Custom Index",
	EmergencyFund:      "Emergency Fund",
	Travel:             "Travel",
	Card:               "Card",
	GlobalIndex:        "Global Index",
	StockTracking:      "Stock Tracking",
	EmergingMarkets:    "Emerging Markets",
}

// String returns the bucket identifier used in persisted documents.
func (b Bucket) String() string {
	if !b.valid() {
		return fmt.Sprintf("bucket(%d)", int(b))
	}
	return bucketNames[b]
}

// Label returns a human readable name.
func (b Bucket) Label() string {
	if !b.valid() {
		return b.String()
	}
	return bucketLabels[b]
}

func (b Bucket) valid() bool { return b >= 0 && int(b) < BucketCount }

// ParseBucket parses a bucket identifier as returned by [Bucket.String].
func ParseBucket(s string) (Bucket, error) {
	for i, name := range bucketNames {
		if name == s {
			return Bucket(i), nil
		}
	}
	return 0, fmt.Errorf("unknown bucket %q", s)
}

// Buckets returns all buckets in display order.
func Buckets() []Bucket {
	all := make([]Bucket, BucketCount)
	for i := range all {
		all[i] = Bucket(i)
	}
	return all
}

// Totals holds one running total per bucket.
//
// The zero value is a valid set of zero totals.
type Totals [BucketCount]decimal.Decimal

// Get returns the total of bucket b.
func (t Totals) Get(b Bucket) decimal.Decimal { return t[b] }

// add increments bucket b by amount.
func (t *Totals) add(b Bucket, amount decimal.Decimal) { t[b] = t[b].Add(amount) }

// Sum returns the sum over all buckets.
func (t Totals) Sum() decimal.Decimal {
	sum := decimal.Zero
	for _, v := range t {
		sum = sum.Add(v)
	}
	return sum
}

// Equal reports whether both totals hold the same values.
func (t Totals) Equal(o Totals) bool {
	for i := range t {
		if !t[i].Equal(o[i]) {
			return false
		}
	}
	return true
}
