package profit

// State holds the inputs of a recalculation: the ledger, the goal
// definitions and the settings.
type State struct {
	Ledger   *Ledger
	Goals    Goals
	Settings Settings
}

// NewState returns the state described by doc. doc is not validated.
func NewState(doc *Document) *State {
	doc = doc.Clone()
	s := &State{
		Ledger:   NewLedger(doc.Transactions...),
		Goals:    Goals{ShortTerm: doc.ShortTermGoals, LongTerm: doc.LongTermGoals},
		Settings: doc.Settings,
	}
	if !s.Settings.ExchangeRate.IsPositive() {
		s.Settings.ExchangeRate = DefaultExchangeRate
	}
	return s
}

// Clone returns a deep copy of s.
func (s *State) Clone() *State {
	return &State{
		Ledger:   s.Ledger.Clone(),
		Goals:    s.Goals.Clone(),
		Settings: s.Settings.clone(),
	}
}

// Document returns the persisted form of s.
func (s *State) Document() *Document {
	g := s.Goals.Clone()
	return &Document{
		Transactions:   s.Ledger.List(),
		ShortTermGoals: g.ShortTerm,
		LongTermGoals:  g.LongTerm,
		Settings:       s.Settings.clone(),
	}
}

// recalculate derives the snapshot of s. Goal progress and achievement are
// written back into s so that achieved goals stay achieved.
func (s *State) recalculate() *Snapshot {
	snap := Recalculate(s.Ledger.List(), s.Goals.ShortTerm, s.Goals.LongTerm)
	s.Goals = Goals{ShortTerm: cloneGoals(snap.ShortTermGoals), LongTerm: cloneGoals(snap.LongTermGoals)}
	return snap
}
