// Package change decides when an edited draft needs to be recomputed.
package change

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/MudgalLabs/arthveda-sub000/position"
)

// TradeInputs are the per-trade fields that feed the computation.
type TradeInputs struct {
	Kind     position.Kind
	Time     time.Time
	Quantity decimal.Decimal
	Price    decimal.Decimal
	Charges  decimal.Decimal
}

// Snapshot is the projection of a draft onto the fields that affect
// computed output.
type Snapshot struct {
	RiskAmount      decimal.Decimal
	AutoCharges     bool
	BrokerAccountID string
	Trades          []TradeInputs
}

// SnapshotOf projects p and the auto-charges toggle.
func SnapshotOf(p position.Position, autoCharges bool) Snapshot {
	s := Snapshot{
		RiskAmount:      p.RiskAmount,
		AutoCharges:     autoCharges,
		BrokerAccountID: p.BrokerAccountID,
		Trades:          make([]TradeInputs, len(p.Trades)),
	}
	for i, t := range p.Trades {
		s.Trades[i] = TradeInputs{
			Kind:     t.Kind,
			Time:     t.Time,
			Quantity: t.Quantity,
			Price:    t.Price,
			Charges:  t.Charges,
		}
	}
	return s
}

// WithCharges returns a copy of s with each trade's charges replaced by
// the value at the same index. charges must match the trade count.
func (s Snapshot) WithCharges(charges []decimal.Decimal) Snapshot {
	out := s
	out.Trades = make([]TradeInputs, len(s.Trades))
	copy(out.Trades, s.Trades)
	for i := range out.Trades {
		out.Trades[i].Charges = charges[i]
	}
	return out
}

// Differs reports whether s and prev disagree on any input that changes
// the computed result.
//
// The broker account only matters while auto-charges is on. Charges are
// compared only while auto-charges is off: when it is on they are written
// by the computation itself.
func (s Snapshot) Differs(prev Snapshot) bool {
	if !s.RiskAmount.Equal(prev.RiskAmount) {
		return true
	}
	if s.AutoCharges != prev.AutoCharges {
		return true
	}
	if s.AutoCharges && s.BrokerAccountID != prev.BrokerAccountID {
		return true
	}
	if len(s.Trades) != len(prev.Trades) {
		return true
	}
	for i := range s.Trades {
		a, b := s.Trades[i], prev.Trades[i]
		if a.Kind != b.Kind ||
			!a.Time.Equal(b.Time) ||
			!a.Price.Equal(b.Price) ||
			!a.Quantity.Equal(b.Quantity) {
			return true
		}
		if !s.AutoCharges && !a.Charges.Equal(b.Charges) {
			return true
		}
	}
	return false
}
