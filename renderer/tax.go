package renderer

import "github.com/etnz/profit"

// TaxReport is the data of the tax report.
type TaxReport struct {
	profit.TaxSummary
	Brackets []profit.TaxBracket
}

// RenderTax renders the tax summary and the brackets it was computed with.
func RenderTax(r *TaxReport) string {
	return renderTemplate("tax", "tax.md", nil, r)
}
