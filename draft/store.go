// Package draft holds the mutable working copy of a position for one
// editing session, together with the frozen baseline it started from.
package draft

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MudgalLabs/arthveda-sub000/position"
)

// Patch carries the user-editable position fields to merge into the draft.
// Nil fields are left untouched. Setting BrokerAccountID to "" unlinks the
// broker account.
type Patch struct {
	Symbol          *string
	Instrument      *position.Instrument
	Currency        *string
	RiskAmount      *decimal.Decimal
	Notes           *string
	BrokerAccountID *string
}

// State is a consistent read of everything the store holds.
type State struct {
	Position    position.Position
	AutoCharges bool
}

// Store is the draft of a single editing session. It is created when the
// session starts and dropped when it ends; nothing about it is global.
//
// Every write happens under the store's lock, so writes never interleave.
// Listeners run after the lock is released.
type Store struct {
	mu          sync.Mutex
	pos         position.Position
	baseline    position.Position
	autoCharges bool
	now         func() time.Time

	listeners map[int]func()
	nextID    int
}

type Option func(*Store)

// WithNow sets the time source used to stamp inserted trades.
func WithNow(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns a store whose draft and baseline are both copies of
// baseline. The baseline is never written again.
func New(baseline position.Position, opts ...Option) *Store {
	s := &Store{
		pos:       baseline.Clone(),
		baseline:  baseline.Clone(),
		now:       time.Now,
		listeners: make(map[int]func()),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers fn to be called after every write. The returned
// function removes the registration.
func (s *Store) Subscribe(fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// Position returns a copy of the current draft.
func (s *Store) Position() position.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos.Clone()
}

// Trades returns a copy of the current trade list.
func (s *Store) Trades() []position.Trade {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos.Clone().Trades
}

// Baseline returns a copy of the snapshot captured at session start.
func (s *Store) Baseline() position.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.baseline.Clone()
}

func (s *Store) AutoCharges() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.autoCharges
}

// State returns the draft and the auto-charges toggle read together.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{Position: s.pos.Clone(), AutoCharges: s.autoCharges}
}

// UpdatePosition shallow-merges p into the draft. It performs no
// validation.
func (s *Store) UpdatePosition(p Patch) {
	s.write(func() {
		if p.Symbol != nil {
			s.pos.Symbol = *p.Symbol
		}
		if p.Instrument != nil {
			s.pos.Instrument = *p.Instrument
		}
		if p.Currency != nil {
			s.pos.Currency = *p.Currency
		}
		if p.RiskAmount != nil {
			s.pos.RiskAmount = *p.RiskAmount
		}
		if p.Notes != nil {
			s.pos.Notes = *p.Notes
		}
		if p.BrokerAccountID != nil {
			s.pos.BrokerAccountID = *p.BrokerAccountID
		}
	})
}

// SetAutoCharges switches between charges computed by the service and
// charges entered by hand.
func (s *Store) SetAutoCharges(on bool) {
	s.write(func() { s.autoCharges = on })
}

// SetTrades replaces the trade list and returns the new list.
func (s *Store) SetTrades(trades []position.Trade) []position.Trade {
	return s.UpdateTrades(func([]position.Trade) []position.Trade { return trades })
}

// UpdateTrades replaces the trade list with fn(previous). fn runs under
// the store lock, so read-modify-write sequences are atomic. fn receives
// a copy and may modify it in place.
func (s *Store) UpdateTrades(fn func([]position.Trade) []position.Trade) []position.Trade {
	var out []position.Trade
	s.write(func() {
		prev := s.pos.Clone().Trades
		next := fn(prev)
		s.pos.Trades = append([]position.Trade(nil), next...)
		out = append([]position.Trade(nil), next...)
	})
	return out
}

// UpdateTrade applies fn to the trade at index i. It reports false, and
// writes nothing, when i is out of range.
func (s *Store) UpdateTrade(i int, fn func(*position.Trade)) bool {
	s.mu.Lock()
	if i < 0 || i >= len(s.pos.Trades) {
		s.mu.Unlock()
		return false
	}
	s.mu.Unlock()

	ok := false
	s.UpdateTrades(func(trades []position.Trade) []position.Trade {
		if i < len(trades) {
			fn(&trades[i])
			ok = true
		}
		return trades
	})
	return ok
}

// InsertNewTrade appends an empty trade stamped with the current time
// rounded to the quarter hour. Its side is the opposite of the first
// trade, or buy when there are no trades.
func (s *Store) InsertNewTrade() position.Trade {
	var t position.Trade
	s.write(func() {
		t = position.NewTrade(position.NextKind(s.pos.Trades), s.now())
		s.pos.Trades = append(s.pos.Trades, t)
	})
	return t
}

// RemoveTrade deletes the trade at index i. The last remaining trade is
// never removed; in that case, or when i is out of range, nothing changes
// and RemoveTrade reports false.
func (s *Store) RemoveTrade(i int) bool {
	s.mu.Lock()
	n := len(s.pos.Trades)
	s.mu.Unlock()
	if n <= 1 || i < 0 || i >= n {
		return false
	}

	removed := false
	s.UpdateTrades(func(trades []position.Trade) []position.Trade {
		if len(trades) <= 1 || i >= len(trades) {
			return trades
		}
		removed = true
		return append(trades[:i], trades[i+1:]...)
	})
	return removed
}

// Discard resets the draft to the baseline and turns auto-charges off.
func (s *Store) Discard() {
	s.write(func() {
		s.pos = s.baseline.Clone()
		s.autoCharges = false
	})
}

// ApplyCharges overwrites each trade's charges with the value at the same
// index. It reports false and writes nothing when the lengths differ.
func (s *Store) ApplyCharges(charges []decimal.Decimal) bool {
	s.mu.Lock()
	if len(charges) != len(s.pos.Trades) {
		s.mu.Unlock()
		return false
	}
	s.mu.Unlock()

	applied := false
	s.UpdateTrades(func(trades []position.Trade) []position.Trade {
		if len(charges) != len(trades) {
			return trades
		}
		for i := range trades {
			trades[i].Charges = charges[i]
		}
		applied = true
		return trades
	})
	return applied
}

// ApplyDerived replaces the derived block of the draft wholesale.
func (s *Store) ApplyDerived(d position.Derived) {
	s.write(func() { s.pos.Derived = d })
}

// TradesAreValid, CanSave and HasChanged evaluate the validity rules
// against the current draft.
func (s *Store) TradesAreValid() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return TradesAreValid(s.pos.Trades)
}

func (s *Store) CanSave() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return CanSave(s.pos)
}

func (s *Store) HasChanged() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return HasChanged(s.pos, s.baseline)
}

func (s *Store) write(fn func()) {
	s.mu.Lock()
	fn()
	listeners := make([]func(), 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l()
	}
}
