package renderer

import (
	"github.com/etnz/profit"
	"github.com/shopspring/decimal"
)

// StagingView is the data of the funded profit review.
type StagingView struct {
	Amount      decimal.Decimal
	AccountB    bool
	Rows        []BucketRow
	Surplus     decimal.Decimal
	Total       decimal.Decimal // committed total, surplus included
	Unallocated decimal.Decimal // amount minus committed total
}

// NewStagingView prepares the review of s as it would be committed.
func NewStagingView(s *profit.Staging) *StagingView {
	def, committed := s.Default(), s.Commit()
	v := &StagingView{
		Amount:   s.Amount,
		AccountB: def.PostMilestone(),
		Surplus:  s.Surplus(),
		Total:    committed.Sum(),
	}
	v.Unallocated = s.Amount.Sub(v.Total)
	for _, b := range profit.Buckets() {
		if d, c := def.Get(b), committed.Get(b); !d.IsZero() || !c.IsZero() {
			v.Rows = append(v.Rows, BucketRow{Bucket: b, Amount: c, Default: d})
		}
	}
	return v
}

// RenderStaging renders the split of a funded profit before it is committed.
func RenderStaging(v *StagingView) string {
	return renderTemplate("staging", "staging.md", nil, v)
}

// WithdrawalView is the data of the Account B withdrawal preview.
type WithdrawalView struct {
	Amount   decimal.Decimal
	Rows     []BucketRow
	Retained decimal.Decimal
	Taxable  decimal.Decimal
}

// NewWithdrawalView prepares the split of an Account B withdrawal of amount.
func NewWithdrawalView(amount decimal.Decimal) *WithdrawalView {
	split := profit.SplitWithdrawal(amount)
	v := &WithdrawalView{Amount: amount, Retained: split.Retained, Taxable: split.Taxable()}
	for _, b := range profit.Buckets() {
		if p := split.Parts.Get(b); !p.IsZero() {
			v.Rows = append(v.Rows, BucketRow{Bucket: b, Amount: p})
		}
	}
	return v
}

// RenderWithdrawal renders the split of an Account B withdrawal.
func RenderWithdrawal(v *WithdrawalView) string {
	return renderTemplate("withdrawal", "withdrawal.md", nil, v)
}
