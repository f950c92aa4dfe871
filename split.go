package profit

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// share is one line of a split table.
type share struct {
	bucket Bucket
	rate   decimal.Decimal
}

func rate(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// withdrawalTable distributes the whole of an Account B withdrawal. The
// retained part is credited back to the account on top of it.
var (
	withdrawalTable = []share{
		{Travel, rate("0.2429")},
		{LongTerm, rate("0.2143")},
		{Card, rate("0.1429")},
		{GlobalIndex, rate("0.1351")},
		{StockTracking, rate("0.0714")},
		{CustomIndex, rate("0.0714")},
		{EmergingMarkets, rate("0.0657")},
		{Autosave, rate("0.0563")},
	}
	retainedRate = rate("0.30")
)

// fundedTable returns the funded profit split, it depends on whether Account A
// has already reached its milestone.
func fundedTable(reachedMilestone bool) []share {
	if reachedMilestone {
		return postMilestoneTable
	}
	return preMilestoneTable
}

var (
	preMilestoneTable = []share{
		{AccountAAllocation, rate("0.15")},
		{Autosave, rate("0.05")},
		{CashInHand, rate("0.03")},
		{ShortTerm, rate("0.32")},
		{Grooming, rate("0.08")},
		{LongTerm, rate("0.08")},
		{CustomIndex, rate("0.18")},
		{EmergencyFund, rate("0.03")},
		{Travel, rate("0.08")},
	}
	postMilestoneTable = []share{
		{AccountAAllocation, rate("0.05")},
		{AccountBAllocation, rate("0.10")},
		{Autosave, rate("0.05")},
		{CashInHand, rate("0.03")},
		{ShortTerm, rate("0.32")},
		{Grooming, rate("0.08")},
		{LongTerm, rate("0.08")},
		{CustomIndex, rate("0.18")},
		{EmergencyFund, rate("0.03")},
		{Travel, rate("0.08")},
	}
)

// fundedBucket reports whether b can receive part of a funded profit.
func fundedBucket(b Bucket) bool {
	for _, s := range postMilestoneTable {
		if s.bucket == b {
			return true
		}
	}
	return false
}

// WithdrawalSplit is the breakdown of an Account B withdrawal.
//
// Parts sum to the withdrawn amount. Retained is credited back to Account B
// and is not taxable.
type WithdrawalSplit struct {
	Parts    Totals          // amounts distributed, per bucket
	Retained decimal.Decimal // amount credited back to Account B
}

// Taxable returns the part of the withdrawal that is taxable income.
func (s WithdrawalSplit) Taxable() decimal.Decimal { return s.Parts.Sum().Sub(s.Retained) }

// SplitWithdrawal splits an Account B withdrawal amount.
func SplitWithdrawal(amount decimal.Decimal) WithdrawalSplit {
	var s WithdrawalSplit
	for _, sh := range withdrawalTable {
		s.Parts.add(sh.bucket, amount.Mul(sh.rate))
	}
	s.Retained = amount.Mul(retainedRate)
	return s
}

// Allocation is the committed split of a funded profit across buckets.
//
// The zero value is an empty pre-milestone allocation.
type Allocation struct {
	parts    Totals
	accountB bool // whether the post milestone table was used
}

// SplitFunded returns the default allocation of a funded profit.
func SplitFunded(amount decimal.Decimal, reachedMilestone bool) Allocation {
	a := Allocation{accountB: reachedMilestone}
	for _, sh := range fundedTable(reachedMilestone) {
		a.parts.add(sh.bucket, amount.Mul(sh.rate))
	}
	return a
}

// Get returns the amount allocated to bucket b.
func (a Allocation) Get(b Bucket) decimal.Decimal { return a.parts[b] }

// Parts returns all allocated amounts.
func (a Allocation) Parts() Totals { return a.parts }

// Sum returns the total allocated amount.
func (a Allocation) Sum() decimal.Decimal { return a.parts.Sum() }

// PostMilestone reports whether the allocation carries an Account B part.
func (a Allocation) PostMilestone() bool { return a.accountB }

// Equal reports whether both allocations are identical.
func (a Allocation) Equal(b Allocation) bool {
	return a.accountB == b.accountB && a.parts.Equal(b.parts)
}

// MarshalJSON writes the allocation as an object keyed by bucket name.
func (a Allocation) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	for _, sh := range fundedTable(a.accountB) {
		w.Append(sh.bucket.String(), a.parts[sh.bucket])
	}
	return w.MarshalJSON()
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Allocation) UnmarshalJSON(data []byte) error {
	var m map[string]decimal.Decimal
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	var res Allocation
	var errs error
	for name, v := range m {
		b, err := ParseBucket(name)
		if err != nil {
			errs = errors.Join(errs, err)
			continue
		}
		if !fundedBucket(b) {
			errs = errors.Join(errs, fmt.Errorf("bucket %q cannot receive funded profit", name))
			continue
		}
		if v.IsNegative() {
			errs = errors.Join(errs, fmt.Errorf("bucket %q: %w", name, ErrInvalidAmount))
			continue
		}
		res.parts[b] = v
		if b == AccountBAllocation {
			res.accountB = true
		}
	}
	if errs != nil {
		return errs
	}
	*a = res
	return nil
}

// Staging is a funded profit split being reviewed before commit.
//
// Any bucket but long-term can be changed. What is taken below the default
// amount of a bucket is surplus, and goes to long-term on commit.
type Staging struct {
	Amount   decimal.Decimal
	defaults Allocation
	values   Allocation
}

// NewStaging starts the review of the default split of amount.
func NewStaging(amount decimal.Decimal, reachedMilestone bool) *Staging {
	def := SplitFunded(amount, reachedMilestone)
	return &Staging{Amount: amount, defaults: def, values: def}
}

// Default returns the default allocation.
func (s *Staging) Default() Allocation { return s.defaults }

// Current returns the allocation as edited, without the surplus.
func (s *Staging) Current() Allocation { return s.values }

// Set overrides the amount of bucket b.
func (s *Staging) Set(b Bucket, value decimal.Decimal) error {
	switch {
	case b == LongTerm:
		return errors.New("long-term receives the surplus and cannot be set")
	case !fundedBucket(b):
		return fmt.Errorf("bucket %s cannot receive funded profit", b)
	case b == AccountBAllocation && !s.defaults.accountB:
		return fmt.Errorf("bucket %s only receives funded profit after the milestone", b)
	case value.IsNegative():
		return fmt.Errorf("%s: %w", value, ErrInvalidAmount)
	}
	s.values.parts[b] = value
	return nil
}

// Surplus returns the total taken below the default amounts.
func (s *Staging) Surplus() decimal.Decimal {
	surplus := decimal.Zero
	for _, b := range Buckets() {
		if b == LongTerm {
			continue
		}
		if d := s.defaults.parts[b].Sub(s.values.parts[b]); d.IsPositive() {
			surplus = surplus.Add(d)
		}
	}
	return surplus
}

// Commit returns the final allocation, with the surplus added to long-term.
func (s *Staging) Commit() Allocation {
	a := s.values
	a.parts.add(LongTerm, s.Surplus())
	return a
}
