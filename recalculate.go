package profit

import (
	"slices"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Milestone is the Account A balance that triggers the one-time transfer to
// Account B and the switch to growth mode.
var Milestone = decimal.NewFromInt(5000)

// Mode is the Account A state machine. It only ever moves from GoalMode to
// GrowthMode.
type Mode int

const (
	GoalMode Mode = iota
	GrowthMode
)

func (m Mode) String() string {
	if m == GrowthMode {
		return "growth"
	}
	return "goal"
}

// Event tags a point of a balance series.
type Event string

// Series events. The first four are the transaction kinds.
const (
	EventProfit     Event = Event(Profit)
	EventLoss       Event = Event(Loss)
	EventDeposit    Event = Event(Deposit)
	EventWithdrawal Event = Event(Withdrawal)
	EventFunded     Event = "funded_allocation"
	EventTransfer   Event = "A_transfer"
)

// Point is a balance after an event.
type Point struct {
	Time    time.Time
	Balance decimal.Decimal
	Event   Event
}

// AccountAState is the derived state of Account A.
type AccountAState struct {
	Balance          decimal.Decimal
	Mode             Mode
	ReachedMilestone bool
	MilestoneDate    *time.Time
	GoalSeries       []Point
	GrowthSeries     []Point
}

// AccountBState is the derived state of Account B.
type AccountBState struct {
	Balance decimal.Decimal
	Series  []Point
}

// Snapshot is everything derived from the ledger and the goal definitions.
type Snapshot struct {
	AccountA       AccountAState
	AccountB       AccountBState
	Totals         Totals
	ShortTermGoals []Goal
	LongTermGoals  []Goal
	TaxableIncome  decimal.Decimal
	// LastFunded is the most recent funded profit, if any.
	LastFunded *Transaction
}

// Clone returns a deep copy of s.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	c := *s
	if s.AccountA.MilestoneDate != nil {
		d := *s.AccountA.MilestoneDate
		c.AccountA.MilestoneDate = &d
	}
	c.AccountA.GoalSeries = slices.Clone(s.AccountA.GoalSeries)
	c.AccountA.GrowthSeries = slices.Clone(s.AccountA.GrowthSeries)
	c.AccountB.Series = slices.Clone(s.AccountB.Series)
	c.ShortTermGoals = cloneGoals(s.ShortTermGoals)
	c.LongTermGoals = cloneGoals(s.LongTermGoals)
	if s.LastFunded != nil {
		tx := s.LastFunded.clone()
		c.LastFunded = &tx
	}
	return &c
}

// Recalculate derives a snapshot from transactions and goals.
//
// It is a pure function: the inputs are not modified and the same inputs
// always produce the same snapshot. Transactions are folded by ascending
// timestamp, transactions sharing a timestamp keep their relative order.
func Recalculate(txs []Transaction, short, long []Goal) *Snapshot {
	sorted := slices.Clone(txs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	f := fold{s: &Snapshot{}}
	for _, tx := range sorted {
		f.step(tx)
	}
	s := f.s
	s.ShortTermGoals = shortTermProgress(cloneGoals(short), s.Totals.Get(ShortTerm))
	s.LongTermGoals = longTermProgress(cloneGoals(long), s.Totals.Get(LongTerm))
	return s
}

// fold is the accumulator of Recalculate.
type fold struct {
	s *Snapshot
}

func (f *fold) step(tx Transaction) {
	switch tx.Source {
	case Funded:
		f.funded(tx)
	case AccountA:
		f.accountA(tx)
	case AccountB:
		f.accountB(tx)
	}
}

func (f *fold) funded(tx Transaction) {
	if tx.Allocation == nil {
		return
	}
	s := f.s
	parts := tx.Allocation.Parts()
	for _, b := range Buckets() {
		s.Totals.add(b, parts[b])
	}
	if tx.Allocation.PostMilestone() {
		s.AccountB.Balance = s.AccountB.Balance.Add(parts[AccountBAllocation])
		f.pointB(tx.Timestamp, EventFunded)
	}
	s.AccountA.Balance = s.AccountA.Balance.Add(parts[AccountAAllocation])
	f.pointA(tx.Timestamp, EventFunded)
	s.TaxableIncome = s.TaxableIncome.Add(tx.Amount)
	last := tx.clone()
	s.LastFunded = &last
	f.milestone(tx.Timestamp, EventFunded)
}

func (f *fold) accountA(tx Transaction) {
	s := f.s
	s.AccountA.Balance = s.AccountA.Balance.Add(signed(tx))
	if tx.Kind == Withdrawal {
		s.TaxableIncome = s.TaxableIncome.Add(tx.Amount)
	}
	f.pointA(tx.Timestamp, Event(tx.Kind))
	f.milestone(tx.Timestamp, Event(tx.Kind))
}

func (f *fold) accountB(tx Transaction) {
	s := f.s
	if tx.Kind != Withdrawal {
		s.AccountB.Balance = s.AccountB.Balance.Add(signed(tx))
		f.pointB(tx.Timestamp, Event(tx.Kind))
		return
	}
	split := SplitWithdrawal(tx.Amount)
	for _, b := range Buckets() {
		s.Totals.add(b, split.Parts[b])
	}
	s.AccountB.Balance = s.AccountB.Balance.Sub(tx.Amount).Add(split.Retained)
	f.pointB(tx.Timestamp, EventWithdrawal)
	s.TaxableIncome = s.TaxableIncome.Add(split.Taxable())
}

// milestone fires the one-time transfer from Account A to Account B.
func (f *fold) milestone(at time.Time, trigger Event) {
	a := &f.s.AccountA
	if a.Mode != GoalMode || a.ReachedMilestone || a.Balance.LessThan(Milestone) {
		return
	}
	a.ReachedMilestone = true
	a.Mode = GrowthMode
	date := at
	a.MilestoneDate = &date
	a.Balance = a.Balance.Sub(Milestone)

	b := &f.s.AccountB
	b.Balance = b.Balance.Add(Milestone)
	f.s.Totals.add(AccountBAllocation, Milestone)
	f.pointB(at, EventTransfer)
	f.pointA(at, trigger)
}

func (f *fold) pointA(at time.Time, e Event) {
	a := &f.s.AccountA
	p := Point{Time: at, Balance: a.Balance, Event: e}
	if a.Mode == GrowthMode {
		a.GrowthSeries = append(a.GrowthSeries, p)
	} else {
		a.GoalSeries = append(a.GoalSeries, p)
	}
}

func (f *fold) pointB(at time.Time, e Event) {
	b := &f.s.AccountB
	b.Series = append(b.Series, Point{Time: at, Balance: b.Balance, Event: e})
}

// signed returns the effect of an account transaction on its balance.
func signed(tx Transaction) decimal.Decimal {
	switch tx.Kind {
	case Profit, Deposit:
		return tx.Amount
	case Loss, Withdrawal:
		return tx.Amount.Neg()
	}
	return decimal.Zero
}

var (
	firstShortTermShare  = rate("0.8")
	secondShortTermShare = rate("0.2")
)

// shortTermProgress updates the progress of the active short-term goals.
//
// The first priority goal is funded with 80% of the short-term bucket. The
// second one receives what the first did not need plus the remaining 20%.
// Any other priority gets nothing.
func shortTermProgress(goals []Goal, total decimal.Decimal) []Goal {
	first := total.Mul(firstShortTermShare)
	rest := total.Mul(secondShortTermShare)

	p1 := decimal.Zero
	if i := slices.IndexFunc(goals, func(g Goal) bool { return g.Priority == 1 }); i >= 0 {
		p1 = decimal.Min(first, goals[i].Target)
	}
	for i := range goals {
		g := &goals[i]
		if g.Achieved {
			continue
		}
		switch g.Priority {
		case 1:
			g.Progress = decimal.Min(first, g.Target)
		case 2:
			g.Progress = decimal.Min(first.Sub(p1).Add(rest), g.Target)
		default:
			g.Progress = decimal.Zero
		}
		g.Achieved = g.Progress.GreaterThanOrEqual(g.Target)
	}
	return goals
}

// longTermProgress updates the progress of the active long-term goals.
func longTermProgress(goals []Goal, total decimal.Decimal) []Goal {
	for i := range goals {
		g := &goals[i]
		if g.Achieved {
			continue
		}
		g.Progress = decimal.Min(total, g.Target)
		g.Achieved = g.Progress.GreaterThanOrEqual(g.Target)
	}
	return goals
}
