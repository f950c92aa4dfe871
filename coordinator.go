package profit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DefaultUndoWindow is how long a mutation can be undone.
const DefaultUndoWindow = 5 * time.Second

// UndoEntry describes a mutation that can still be undone.
type UndoEntry struct {
	ID          string
	Description string
	Subject     string // id of the transaction or goal the mutation is about, if any
	Created     time.Time
	Expires     time.Time
}

type undoEntry struct {
	UndoEntry
	state *State
	snap  *Snapshot
	timer *time.Timer
}

// Coordinator owns the live state. It serializes mutations, recalculates the
// snapshot after each of them and keeps the undo entries.
//
// It is safe for concurrent use.
type Coordinator struct {
	mu     sync.Mutex
	state  *State
	snap   *Snapshot
	undo   []*undoEntry // in creation order
	closed bool

	log    zerolog.Logger
	now    func() time.Time
	newID  func() string
	window time.Duration
	p      Persister
	saver  *autosaver
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger, the default one discards everything.
func WithLogger(log zerolog.Logger) Option { return func(c *Coordinator) { c.log = log } }

// WithClock sets the clock used to timestamp new transactions.
func WithClock(now func() time.Time) Option { return func(c *Coordinator) { c.now = now } }

// WithIDs sets the generator of transaction, goal and undo ids.
func WithIDs(newID func() string) Option { return func(c *Coordinator) { c.newID = newID } }

// WithUndoWindow sets how long mutations can be undone.
func WithUndoWindow(d time.Duration) Option { return func(c *Coordinator) { c.window = d } }

// WithPersister saves every new state to p in the background.
func WithPersister(p Persister) Option { return func(c *Coordinator) { c.p = p } }

// NewCoordinator creates a coordinator holding doc, nil means an empty
// ledger. doc is validated, errors wrap ErrMalformedSnapshot.
func NewCoordinator(doc *Document, opts ...Option) (*Coordinator, error) {
	if doc == nil {
		doc = EmptyDocument()
	}
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedSnapshot, err)
	}
	c := &Coordinator{
		log:    zerolog.Nop(),
		now:    time.Now,
		newID:  uuid.NewString,
		window: DefaultUndoWindow,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.state = NewState(doc)
	c.snap = c.state.recalculate()
	if c.p != nil {
		c.saver = newAutosaver(c.p, c.log)
	}
	return c, nil
}

// Open loads the document saved in p and returns a coordinator saving to p.
// A missing document is an empty ledger.
func Open(ctx context.Context, p Persister, opts ...Option) (*Coordinator, error) {
	doc, err := p.Load(ctx)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		doc = EmptyDocument()
	case err != nil:
		return nil, err
	}
	return NewCoordinator(doc, append(opts, WithPersister(p))...)
}

// Close drops pending undo entries, saves the last state and stops the
// background saver. It returns the error of the last save, if any.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	for _, e := range c.undo {
		e.timer.Stop()
	}
	c.undo = nil
	saver := c.saver
	c.mu.Unlock()
	if saver == nil {
		return nil
	}
	return saver.close()
}

// Snapshot returns a copy of the current snapshot.
func (c *Coordinator) Snapshot() *Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap.Clone()
}

// State returns a copy of the current ledger, goals and settings.
func (c *Coordinator) State() *Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Document()
}

// Export writes the current document to w.
func (c *Coordinator) Export(w io.Writer) error { return EncodeDocument(w, c.State()) }

// Tax returns the tax summary of the current ledger.
func (c *Coordinator) Tax() TaxSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Tax(c.state.Ledger, c.state.Settings.TaxBrackets)
}

// mutate applies fn to a copy of the live state, recalculates and swaps. On
// error the live state is left untouched and no undo entry is created.
func (c *Coordinator) mutate(desc string, fn func(s *State, snap *Snapshot) (string, error)) (UndoEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return UndoEntry{}, errors.New("coordinator is closed")
	}
	work := c.state.Clone()
	subject, err := fn(work, c.snap)
	if err != nil {
		c.log.Debug().Err(err).Str("op", desc).Msg("mutation rejected")
		return UndoEntry{}, err
	}
	snap := work.recalculate()

	prev, prevSnap := c.state, c.snap
	c.state, c.snap = work, snap
	e := c.register(desc, subject, prev, prevSnap)
	c.log.Debug().Str("op", desc).Str("undo", e.ID).Int("transactions", work.Ledger.Len()).Msg("mutation applied")
	if c.saver != nil {
		c.saver.submit(work.Document())
	}
	return e, nil
}

// register creates an undo entry restoring state and snap. c.mu must be held.
func (c *Coordinator) register(desc, subject string, state *State, snap *Snapshot) UndoEntry {
	now := c.now()
	e := &undoEntry{
		UndoEntry: UndoEntry{
			ID:          c.newID(),
			Description: desc,
			Subject:     subject,
			Created:     now,
			Expires:     now.Add(c.window),
		},
		state: state,
		snap:  snap,
	}
	id := e.ID
	e.timer = time.AfterFunc(c.window, func() { c.expire(id) })
	c.undo = append(c.undo, e)
	return e.UndoEntry
}

func (c *Coordinator) expire(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.find(id); i >= 0 {
		c.undo = slices.Delete(c.undo, i, i+1)
		c.log.Debug().Str("undo", id).Msg("undo expired")
	}
}

func (c *Coordinator) find(id string) int {
	return slices.IndexFunc(c.undo, func(e *undoEntry) bool { return e.ID == id })
}

// Undo restores the state as it was before the mutation of entry id.
//
// Entries of later mutations are dropped: they describe changes that the
// undo reverts.
func (c *Coordinator) Undo(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.find(id)
	if i < 0 {
		return fmt.Errorf("undo %q: %w", id, ErrUndoExpired)
	}
	e := c.undo[i]
	for _, later := range c.undo[i:] {
		later.timer.Stop()
	}
	c.undo = c.undo[:i]
	c.state, c.snap = e.state, e.snap
	c.log.Info().Str("undo", id).Str("op", e.Description).Msg("undone")
	if c.saver != nil {
		c.saver.submit(c.state.Document())
	}
	return nil
}

// Dismiss drops the undo entry id. The state is not changed.
func (c *Coordinator) Dismiss(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.find(id)
	if i < 0 {
		return fmt.Errorf("dismiss %q: %w", id, ErrUndoExpired)
	}
	c.undo[i].timer.Stop()
	c.undo = slices.Delete(c.undo, i, i+1)
	return nil
}

// UndoEntries returns the pending undo entries, oldest first.
func (c *Coordinator) UndoEntries() []UndoEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries := make([]UndoEntry, len(c.undo))
	for i, e := range c.undo {
		entries[i] = e.UndoEntry
	}
	return entries
}

func positive(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%s: %w", amount, ErrInvalidAmount)
	}
	return nil
}

// StageFundedProfit returns the default split of a funded profit, ready to be
// reviewed and passed to AddFundedProfit.
func (c *Coordinator) StageFundedProfit(amount decimal.Decimal) (*Staging, error) {
	if err := positive(amount); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return NewStaging(amount, c.snap.AccountA.ReachedMilestone), nil
}

// AddFundedProfit records a funded profit split by alloc. A nil alloc uses the
// default split for the current milestone state. A given alloc must use the
// table of the current milestone state and cover amount.
func (c *Coordinator) AddFundedProfit(amount decimal.Decimal, alloc *Allocation) (UndoEntry, error) {
	if err := positive(amount); err != nil {
		return UndoEntry{}, err
	}
	desc := fmt.Sprintf("Funded profit of %s", USD(amount))
	return c.mutate(desc, func(s *State, snap *Snapshot) (string, error) {
		reached := snap.AccountA.ReachedMilestone
		a := SplitFunded(amount, reached)
		if alloc != nil {
			if alloc.PostMilestone() != reached {
				return "", fmt.Errorf("split staged before the milestone changed: %w", ErrInvalidAllocation)
			}
			if alloc.Sum().LessThan(amount) {
				return "", fmt.Errorf("split of %s does not cover %s: %w", USD(alloc.Sum()), USD(amount), ErrInvalidAllocation)
			}
			a = *alloc
		}
		return c.append(s, Transaction{Source: Funded, Kind: Profit, Amount: amount, Allocation: &a})
	})
}

// AddTransaction records a transaction on Account A or Account B.
func (c *Coordinator) AddTransaction(source Source, kind Kind, amount decimal.Decimal, notes string) (UndoEntry, error) {
	if source != AccountA && source != AccountB {
		return UndoEntry{}, fmt.Errorf("%s on %s: %w", kind, source, ErrInvalidKind)
	}
	if !kind.validFor(source) {
		return UndoEntry{}, fmt.Errorf("%s on %s: %w", kind, source, ErrInvalidKind)
	}
	if err := positive(amount); err != nil {
		return UndoEntry{}, err
	}
	desc := fmt.Sprintf("%s %s of %s", accountName(source), kind, USD(amount))
	return c.mutate(desc, func(s *State, snap *Snapshot) (string, error) {
		if kind == Withdrawal {
			if err := canWithdraw(snap, source, amount); err != nil {
				return "", err
			}
		}
		return c.append(s, Transaction{Source: source, Kind: kind, Amount: amount, Notes: notes})
	})
}

// Withdraw records a withdrawal from Account A or Account B.
func (c *Coordinator) Withdraw(source Source, amount decimal.Decimal) (UndoEntry, error) {
	return c.AddTransaction(source, Withdrawal, amount, "")
}

// canWithdraw checks the live balance. Account B cannot go below zero through
// a withdrawal, Account A can only withdraw while its balance is positive.
func canWithdraw(snap *Snapshot, source Source, amount decimal.Decimal) error {
	balance := snap.AccountA.Balance
	if source == AccountB {
		balance = snap.AccountB.Balance
	}
	if !balance.IsPositive() {
		return fmt.Errorf("%s balance is %s: %w", accountName(source), USD(balance), ErrInsufficientBalance)
	}
	if source == AccountB && amount.GreaterThan(balance) {
		return fmt.Errorf("withdraw %s from %s balance of %s: %w", USD(amount), accountName(source), USD(balance), ErrInsufficientBalance)
	}
	return nil
}

// append completes tx with an id, the current time and exchange rate, and
// appends it to the ledger of s.
func (c *Coordinator) append(s *State, tx Transaction) (string, error) {
	tx.ID = c.newID()
	tx.Timestamp = normalizeTime(c.now())
	tx.ExchangeRate = s.Settings.ExchangeRate
	if err := tx.Validate(); err != nil {
		return "", err
	}
	s.Ledger.Append(tx)
	return tx.ID, nil
}

// DeleteTransaction removes a transaction.
func (c *Coordinator) DeleteTransaction(id string) (UndoEntry, error) {
	return c.mutate("Delete transaction", func(s *State, _ *Snapshot) (string, error) {
		return id, s.Ledger.Remove(id)
	})
}

// EditTransaction edits a transaction in place.
func (c *Coordinator) EditTransaction(id string, patch Patch) (UndoEntry, error) {
	return c.mutate("Edit transaction", func(s *State, _ *Snapshot) (string, error) {
		_, err := s.Ledger.Replace(id, patch)
		return id, err
	})
}

// AddShortTermGoal adds a short-term goal.
func (c *Coordinator) AddShortTermGoal(label string, target decimal.Decimal) (UndoEntry, error) {
	return c.mutate(fmt.Sprintf("Add short-term goal %q", label), func(s *State, _ *Snapshot) (string, error) {
		g, err := s.Goals.AddShortTerm(c.newID(), label, target)
		return g.ID, err
	})
}

// AddLongTermGoal adds a long-term goal.
func (c *Coordinator) AddLongTermGoal(label string, target decimal.Decimal) (UndoEntry, error) {
	return c.mutate(fmt.Sprintf("Add long-term goal %q", label), func(s *State, _ *Snapshot) (string, error) {
		g, err := s.Goals.AddLongTerm(c.newID(), label, target)
		return g.ID, err
	})
}

// EditGoal changes the label and target of a goal.
func (c *Coordinator) EditGoal(id, label string, target decimal.Decimal) (UndoEntry, error) {
	return c.mutate(fmt.Sprintf("Edit goal %q", label), func(s *State, _ *Snapshot) (string, error) {
		return id, s.Goals.Edit(id, label, target)
	})
}

// DeleteGoal removes a goal.
func (c *Coordinator) DeleteGoal(id string) (UndoEntry, error) {
	return c.mutate("Delete goal", func(s *State, _ *Snapshot) (string, error) {
		return id, s.Goals.Delete(id)
	})
}

// ReorderShortTermGoals sets the priority of the active short-term goals.
func (c *Coordinator) ReorderShortTermGoals(ids []string) (UndoEntry, error) {
	return c.mutate("Reorder short-term goals", func(s *State, _ *Snapshot) (string, error) {
		return "", s.Goals.Reorder(ids)
	})
}

// ForceNewTarget archives an achieved long-term goal and starts a new one.
func (c *Coordinator) ForceNewTarget(id string, target decimal.Decimal) (UndoEntry, error) {
	desc := fmt.Sprintf("New long-term target of %s", USD(target))
	return c.mutate(desc, func(s *State, _ *Snapshot) (string, error) {
		g, err := s.Goals.ForceNewTarget(id, c.newID(), target, c.now())
		return g.ID, err
	})
}

// SetExchangeRate sets the KES per USD rate of new transactions. Existing
// transactions keep their rate.
func (c *Coordinator) SetExchangeRate(rate decimal.Decimal) (UndoEntry, error) {
	if err := positive(rate); err != nil {
		return UndoEntry{}, fmt.Errorf("exchange rate: %w", err)
	}
	return c.mutate(fmt.Sprintf("Exchange rate set to %s KES/USD", rate), func(s *State, _ *Snapshot) (string, error) {
		s.Settings.ExchangeRate = rate
		return "", nil
	})
}

// SetTaxBrackets sets custom tax brackets, nil restores the default ones.
func (c *Coordinator) SetTaxBrackets(brackets []TaxBracket) (UndoEntry, error) {
	if err := ValidateTaxBrackets(brackets); err != nil {
		return UndoEntry{}, err
	}
	return c.mutate("Tax brackets changed", func(s *State, _ *Snapshot) (string, error) {
		s.Settings.TaxBrackets = slices.Clone(brackets)
		return "", nil
	})
}

// Import replaces the whole state with doc. An invalid document is rejected
// with an error wrapping ErrMalformedSnapshot.
func (c *Coordinator) Import(doc *Document) (UndoEntry, error) {
	if doc == nil {
		return UndoEntry{}, fmt.Errorf("%w: no document", ErrMalformedSnapshot)
	}
	if err := doc.Validate(); err != nil {
		return UndoEntry{}, fmt.Errorf("%w: %w", ErrMalformedSnapshot, err)
	}
	desc := fmt.Sprintf("Import of %d transactions", len(doc.Transactions))
	return c.mutate(desc, func(s *State, _ *Snapshot) (string, error) {
		*s = *NewState(doc)
		return "", nil
	})
}

func accountName(s Source) string {
	switch s {
	case AccountA:
		return "Account A"
	case AccountB:
		return "Account B"
	}
	return "Funded"
}
