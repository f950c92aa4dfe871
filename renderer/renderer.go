// Package renderer turns snapshots and ledgers into markdown reports.
//
// It only formats what the profit package computed, it never derives values
// on its own.
package renderer

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"text/template"
	"time"

	"github.com/etnz/profit"
	"github.com/shopspring/decimal"
)

//go:embed templates/*.md
var templates embed.FS

var funcs = template.FuncMap{
	"usd":   func(d decimal.Decimal) string { return profit.USD(d).String() },
	"kes":   func(d decimal.Decimal) string { return profit.KES(d).String() },
	"susd":  func(d decimal.Decimal) string { return profit.USD(d).SignedString() },
	"date":  func(t time.Time) string { return t.Local().Format("2006-01-02 15:04") },
	"day":   func(t time.Time) string { return t.Local().Format("2006-01-02") },
	"pct":   percent,
	"cell":  cell,
	"deref": func(t *time.Time) time.Time {
		if t == nil {
			return time.Time{}
		}
		return *t
	},
	"milestone": func() decimal.Decimal { return profit.Milestone },
	"relief":    func() decimal.Decimal { return profit.PersonalRelief },
}

// percent formats part of total as a percentage, capped to 100.
func percent(part, total decimal.Decimal) string {
	if !total.IsPositive() {
		return "0%"
	}
	p := decimal.Min(part.Div(total), decimal.NewFromInt(1)).Shift(2)
	return p.StringFixed(0) + "%"
}

// cell escapes s for a markdown table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

// renderTemplate is a generic utility to render a main template that depends on several partials.
func renderTemplate(templateName, mainFile string, partials map[string]string, data any) string {
	mainContent, err := fs.ReadFile(templates, "templates/"+mainFile)
	if err != nil {
		return fmt.Sprintf("error reading main template %q: %v", mainFile, err)
	}

	tmpl, err := template.New(templateName).Funcs(funcs).Parse(string(mainContent))
	if err != nil {
		return fmt.Sprintf("error parsing main template %q: %v", mainFile, err)
	}

	for name, file := range partials {
		var content []byte
		// An empty file name is a valid case, resulting in an empty template.
		if file != "" {
			content, err = fs.ReadFile(templates, "templates/"+file)
			if err != nil {
				return fmt.Sprintf("error reading partial template %q: %v", file, err)
			}
		}
		if _, err := tmpl.New(name).Parse(string(content)); err != nil {
			return fmt.Sprintf("error parsing partial template %q for %q: %v", file, name, err)
		}
	}

	var b strings.Builder
	if err := tmpl.ExecuteTemplate(&b, templateName, data); err != nil {
		return fmt.Sprintf("error executing template %q: %v", templateName, err)
	}
	return b.String()
}
