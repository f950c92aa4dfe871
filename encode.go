package profit

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/PaesslerAG/jsonpath"
	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// Document is the persisted form of the ledger, the goals and the settings.
//
// Goal progress is stored for reference only: it is derived again when the
// document is loaded.
type Document struct {
	Transactions   []Transaction `json:"transactions"`
	ShortTermGoals []Goal        `json:"shortTermGoals"`
	LongTermGoals  []Goal        `json:"longTermGoals"`
	Settings       Settings      `json:"settings"`
}

// EmptyDocument returns the document of a fresh ledger.
func EmptyDocument() *Document {
	return &Document{
		Transactions:   []Transaction{},
		ShortTermGoals: []Goal{},
		LongTermGoals:  []Goal{},
		Settings:       DefaultSettings(),
	}
}

// required lists, for each JSONPath selecting a list of objects, the fields
// every object must have.
var required = []struct {
	items  string
	fields []string
}{
	{"$.transactions[*]", []string{"id", "timestamp", "source", "kind", "amountUSD", "exchangeRate"}},
	{"$.shortTermGoals[*]", []string{"id", "label", "target"}},
	{"$.longTermGoals[*]", []string{"id", "label", "target"}},
}

// count returns the number of values selected by path in v.
func count(path string, v any) int {
	res, err := jsonpath.Get(path, v)
	if err != nil {
		return 0
	}
	if list, ok := res.([]any); ok {
		return len(list)
	}
	return 1
}

// probe checks that the generic JSON value v has all the required fields.
func probe(v any) error {
	var errs error
	for _, path := range []string{"$.transactions", "$.settings.exchangeRateKesPerUsd"} {
		if _, err := jsonpath.Get(path, v); err != nil {
			errs = errors.Join(errs, fmt.Errorf("missing %s", path))
		}
	}
	for _, r := range required {
		n := count(r.items, v)
		for _, field := range r.fields {
			path := r.items + "." + field
			if got := count(path, v); got != n {
				errs = errors.Join(errs, fmt.Errorf("%d of %d items miss %s", n-got, n, path))
			}
		}
	}
	return errs
}

// DecodeDocument reads a document from r.
//
// All errors wrap ErrMalformedSnapshot: a document missing a required field,
// with an unparsable timestamp or an invalid transaction is rejected as a
// whole.
func DecodeDocument(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedSnapshot, err)
	}
	if _, ok := generic.(map[string]any); !ok {
		return nil, fmt.Errorf("%w: document is not a JSON object", ErrMalformedSnapshot)
	}
	if err := probe(generic); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedSnapshot, err)
	}

	doc := EmptyDocument()
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedSnapshot, err)
	}
	for i := range doc.ShortTermGoals {
		doc.ShortTermGoals[i].Term = ShortTermGoal
	}
	for i := range doc.LongTermGoals {
		doc.LongTermGoals[i].Term = LongTermGoal
	}
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedSnapshot, err)
	}
	return doc, nil
}

// Validate checks the document content.
func (d *Document) Validate() error {
	errs := NewLedger(d.Transactions...).Validate()
	if !d.Settings.ExchangeRate.IsPositive() {
		errs = errors.Join(errs, fmt.Errorf("exchange rate %s must be positive", d.Settings.ExchangeRate))
	}
	if err := ValidateTaxBrackets(d.Settings.TaxBrackets); err != nil {
		errs = errors.Join(errs, err)
	}
	ids := make(map[string]bool)
	for _, g := range append(append([]Goal(nil), d.ShortTermGoals...), d.LongTermGoals...) {
		if ids[g.ID] {
			errs = errors.Join(errs, fmt.Errorf("duplicate goal id %q", g.ID))
		}
		ids[g.ID] = true
		if err := checkGoal(g.Label, g.Target); err != nil {
			errs = errors.Join(errs, fmt.Errorf("goal %q: %w", g.ID, err))
		}
	}
	for _, g := range d.ShortTermGoals {
		if !g.Achieved && g.Priority != 1 && g.Priority != 2 {
			errs = errors.Join(errs, fmt.Errorf("goal %q: priority %d is not 1 or 2", g.ID, g.Priority))
		}
	}
	if n := countActive(d.ShortTermGoals); n > MaxActiveShortTerm {
		errs = errors.Join(errs, fmt.Errorf("%d active short-term goals: %w", n, ErrCapacityExceeded))
	}
	if n := countActive(d.LongTermGoals); n > MaxActiveLongTerm {
		errs = errors.Join(errs, fmt.Errorf("%d active long-term goals: %w", n, ErrCapacityExceeded))
	}
	return errs
}

// EncodeDocument writes d to w as indented JSON.
func EncodeDocument(w io.Writer, d *Document) error {
	// nil lists are written as empty lists, never as null.
	out := *d
	if out.Transactions == nil {
		out.Transactions = []Transaction{}
	}
	if out.ShortTermGoals == nil {
		out.ShortTermGoals = []Goal{}
	}
	if out.LongTermGoals == nil {
		out.LongTermGoals = []Goal{}
	}
	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	buf.WriteByte('\n')
	_, err = buf.WriteTo(w)
	return err
}

// Clone returns a deep copy of d.
func (d *Document) Clone() *Document {
	c := &Document{
		Transactions:   make([]Transaction, len(d.Transactions)),
		ShortTermGoals: cloneGoals(d.ShortTermGoals),
		LongTermGoals:  cloneGoals(d.LongTermGoals),
		Settings:       d.Settings.clone(),
	}
	for i, tx := range d.Transactions {
		c.Transactions[i] = tx.clone()
	}
	return c
}
