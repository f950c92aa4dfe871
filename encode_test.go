package profit

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func sampleDocument() *Document {
	archived := time.Date(2025, 4, 2, 10, 30, 15, 123456789, time.UTC)
	withNotes := txn("a1", AccountA, Deposit, 2000, at(0))
	withNotes.Notes = "initial deposit"
	withNotes.ExchangeRate = D(129.5)
	return &Document{
		Transactions: []Transaction{
			withNotes,
			funded("f1", 1000, false, at(1).Add(123*time.Millisecond)),
			funded("f2", 333.33, true, at(2)),
			txn("b1", AccountB, Withdrawal, 10.01, at(3)),
		},
		ShortTermGoals: []Goal{
			{Term: ShortTermGoal, ID: "s1", Label: "Laptop", Target: D(900), Progress: D(256), Priority: 1},
		},
		LongTermGoals: []Goal{
			{Term: LongTermGoal, ID: "l1", Label: "House", Target: D(50), Progress: D(50), Achieved: true, ArchivedDate: &archived},
			{Term: LongTermGoal, ID: "l2", Label: "House", Target: D(5000)},
		},
		Settings: Settings{ExchangeRate: D(131), TaxBrackets: DefaultTaxBrackets()},
	}
}

func TestDocument_RoundTrip(t *testing.T) {
	doc := sampleDocument()
	var buf bytes.Buffer
	if err := EncodeDocument(&buf, doc); err != nil {
		t.Fatalf("EncodeDocument() unexpected error: %v", err)
	}
	got, err := DecodeDocument(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("DecodeDocument() unexpected error: %v\n%s", err, buf.String())
	}
	if diff := cmp.Diff(doc, got, cmpOptions); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
	for i, tx := range got.Transactions {
		if !tx.Timestamp.Equal(doc.Transactions[i].Timestamp) {
			t.Errorf("transaction %d timestamp = %v, want %v", i, tx.Timestamp, doc.Transactions[i].Timestamp)
		}
	}

	// a second encoding is byte identical.
	var again bytes.Buffer
	if err := EncodeDocument(&again, got); err != nil {
		t.Fatalf("EncodeDocument() unexpected error: %v", err)
	}
	if again.String() != buf.String() {
		t.Errorf("second encoding differs:\n%s\nwant:\n%s", again.String(), buf.String())
	}
}

func TestDocument_EmptyLists(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodeDocument(&buf, &Document{Settings: DefaultSettings()}); err != nil {
		t.Fatalf("EncodeDocument() unexpected error: %v", err)
	}
	want := `{
  "transactions": [],
  "shortTermGoals": [],
  "longTermGoals": [],
  "settings": {
    "exchangeRateKesPerUsd": 130
  }
}
`
	if buf.String() != want {
		t.Errorf("EncodeDocument() = %s, want %s", buf.String(), want)
	}
	if _, err := DecodeDocument(strings.NewReader(want)); err != nil {
		t.Errorf("DecodeDocument() unexpected error: %v", err)
	}
}

func TestDecodeDocument_Malformed(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "not json", doc: `{"transactions": [`},
		{name: "not an object", doc: `[]`},
		{name: "missing transactions", doc: `{"settings": {"exchangeRateKesPerUsd": 130}}`},
		{name: "missing settings", doc: `{"transactions": []}`},
		{name: "missing rate", doc: `{"transactions": [], "settings": {}}`},
		{name: "zero rate", doc: `{"transactions": [], "settings": {"exchangeRateKesPerUsd": 0}}`},
		{
			name: "missing timestamp",
			doc:  `{"transactions": [{"id":"a1","source":"account-a","kind":"deposit","amountUSD":10,"exchangeRate":130}], "settings": {"exchangeRateKesPerUsd": 130}}`,
		},
		{
			name: "unparsable timestamp",
			doc:  `{"transactions": [{"id":"a1","timestamp":"yesterday","source":"account-a","kind":"deposit","amountUSD":10,"exchangeRate":130}], "settings": {"exchangeRateKesPerUsd": 130}}`,
		},
		{
			name: "negative amount",
			doc:  `{"transactions": [{"id":"a1","timestamp":"2025-03-01T09:00:00Z","source":"account-a","kind":"deposit","amountUSD":-10,"exchangeRate":130}], "settings": {"exchangeRateKesPerUsd": 130}}`,
		},
		{
			name: "funded without split",
			doc:  `{"transactions": [{"id":"f1","timestamp":"2025-03-01T09:00:00Z","source":"funded","kind":"profit","amountUSD":10,"exchangeRate":130}], "settings": {"exchangeRateKesPerUsd": 130}}`,
		},
		{
			name: "goal without target",
			doc:  `{"transactions": [], "shortTermGoals": [{"id":"s1","label":"Laptop"}], "settings": {"exchangeRateKesPerUsd": 130}}`,
		},
		{
			name: "goal without priority",
			doc:  `{"transactions": [], "shortTermGoals": [{"id":"s1","label":"Laptop","target":900}], "settings": {"exchangeRateKesPerUsd": 130}}`,
		},
		{
			name: "goal with priority 3",
			doc:  `{"transactions": [], "shortTermGoals": [{"id":"s1","label":"Laptop","target":900,"priority":3}], "settings": {"exchangeRateKesPerUsd": 130}}`,
		},
		{
			name: "too many active goals",
			doc:  `{"transactions": [], "longTermGoals": [{"id":"l1","label":"a","target":1},{"id":"l2","label":"b","target":1}], "settings": {"exchangeRateKesPerUsd": 130}}`,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeDocument(strings.NewReader(tc.doc))
			if !errors.Is(err, ErrMalformedSnapshot) {
				t.Errorf("DecodeDocument() error = %v, want %v", err, ErrMalformedSnapshot)
			}
		})
	}
}

func TestDocument_CloneIsDeep(t *testing.T) {
	doc := sampleDocument()
	c := doc.Clone()
	c.Transactions[1].Allocation.parts[Travel] = D(0)
	*c.LongTermGoals[0].ArchivedDate = at(100)
	c.Settings.TaxBrackets[0].Rate = D(1)
	if diff := cmp.Diff(sampleDocument(), doc, cmpOptions); diff != "" {
		t.Errorf("editing the clone changed the original:\n%s", diff)
	}
}
