// Package position holds the journal's composite record: a Position and
// the ordered Trades executed against it.
package position

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind is the side of a single trade.
type Kind string

const (
	KindBuy  Kind = "buy"
	KindSell Kind = "sell"
)

// Opposite returns the other side.
func (k Kind) Opposite() Kind {
	if k == KindBuy {
		return KindSell
	}
	return KindBuy
}

func (k Kind) Valid() bool {
	return k == KindBuy || k == KindSell
}

// Instrument is the asset class a position trades.
type Instrument string

const (
	InstrumentEquity Instrument = "equity"
	InstrumentFuture Instrument = "future"
	InstrumentOption Instrument = "option"
	InstrumentCrypto Instrument = "crypto"
)

func (i Instrument) Valid() bool {
	switch i {
	case InstrumentEquity, InstrumentFuture, InstrumentOption, InstrumentCrypto:
		return true
	}
	return false
}

type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
)

type Status string

const (
	StatusOpen      Status = "open"
	StatusWin       Status = "win"
	StatusLoss      Status = "loss"
	StatusBreakeven Status = "breakeven"
)

// Trade is one execution inside a position.
type Trade struct {
	ID            string
	Kind          Kind
	Time          time.Time
	Quantity      decimal.Decimal
	Price         decimal.Decimal
	Charges       decimal.Decimal
	BrokerTradeID string
}

// Valid reports whether the trade has a nonzero quantity and price.
func (t Trade) Valid() bool {
	return !t.Quantity.IsZero() && !t.Price.IsZero()
}

// Equal compares trades by value. Decimals compare numerically and times
// compare as instants.
func (t Trade) Equal(o Trade) bool {
	return t.ID == o.ID &&
		t.Kind == o.Kind &&
		t.Time.Equal(o.Time) &&
		t.Quantity.Equal(o.Quantity) &&
		t.Price.Equal(o.Price) &&
		t.Charges.Equal(o.Charges) &&
		t.BrokerTradeID == o.BrokerTradeID
}

// Derived is the block of fields owned by the computation service. It is
// only ever replaced as a whole.
type Derived struct {
	Direction    Direction
	Status       Status
	OpenedAt     time.Time
	ClosedAt     time.Time // zero while the position is open
	GrossPnL     decimal.Decimal
	NetPnL       decimal.Decimal
	RFactor      decimal.Decimal
	NetReturnPct decimal.Decimal
	ChargesPct   decimal.Decimal // total charges as a percentage of net PnL
	OpenQuantity decimal.Decimal
	OpenAvgPrice decimal.Decimal
}

func (d Derived) Equal(o Derived) bool {
	return d.Direction == o.Direction &&
		d.Status == o.Status &&
		d.OpenedAt.Equal(o.OpenedAt) &&
		d.ClosedAt.Equal(o.ClosedAt) &&
		d.GrossPnL.Equal(o.GrossPnL) &&
		d.NetPnL.Equal(o.NetPnL) &&
		d.RFactor.Equal(o.RFactor) &&
		d.NetReturnPct.Equal(o.NetReturnPct) &&
		d.ChargesPct.Equal(o.ChargesPct) &&
		d.OpenQuantity.Equal(o.OpenQuantity) &&
		d.OpenAvgPrice.Equal(o.OpenAvgPrice)
}

// Position is the root of a journal entry. ID is empty until the position
// has been persisted.
type Position struct {
	ID              string
	Symbol          string
	Instrument      Instrument
	Currency        string
	RiskAmount      decimal.Decimal
	Notes           string
	BrokerAccountID string // empty when no broker account is linked

	// Trades are kept in execution order.
	Trades []Trade

	Derived
}

// Clone returns a copy that shares no mutable state with p.
func (p Position) Clone() Position {
	c := p
	if p.Trades != nil {
		c.Trades = make([]Trade, len(p.Trades))
		copy(c.Trades, p.Trades)
	}
	return c
}

// Equal is a structural comparison over every field, derived ones included.
func (p Position) Equal(o Position) bool {
	if p.ID != o.ID ||
		p.Symbol != o.Symbol ||
		p.Instrument != o.Instrument ||
		p.Currency != o.Currency ||
		!p.RiskAmount.Equal(o.RiskAmount) ||
		p.Notes != o.Notes ||
		p.BrokerAccountID != o.BrokerAccountID {
		return false
	}
	if !TradesEqual(p.Trades, o.Trades) {
		return false
	}
	return p.Derived.Equal(o.Derived)
}

func TradesEqual(a, b []Trade) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// IsNew reports whether the position has never been persisted.
func (p Position) IsNew() bool {
	return p.ID == ""
}
