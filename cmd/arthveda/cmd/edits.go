package cmd

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/MudgalLabs/arthveda-sub000/compute"
	"github.com/MudgalLabs/arthveda-sub000/draft"
	"github.com/MudgalLabs/arthveda-sub000/position"
	"github.com/MudgalLabs/arthveda-sub000/session"
)

// TradeEdit is one trade in an edit script. Zero fields keep whatever the
// editor already has.
type TradeEdit struct {
	ID            string          `yaml:"id,omitempty"`
	Kind          string          `yaml:"kind,omitempty"`
	Time          time.Time       `yaml:"time,omitempty"`
	Quantity      decimal.Decimal `yaml:"quantity"`
	Price         decimal.Decimal `yaml:"price"`
	Charges       decimal.Decimal `yaml:"charges"`
	BrokerTradeID string          `yaml:"broker_trade_id,omitempty"`
}

// Edits is a YAML script of the changes a user would make in the position
// editor. Unset fields are left alone.
type Edits struct {
	Symbol          *string          `yaml:"symbol"`
	Instrument      *string          `yaml:"instrument"`
	Currency        *string          `yaml:"currency"`
	RiskAmount      *decimal.Decimal `yaml:"risk_amount"`
	Notes           *string          `yaml:"notes"`
	BrokerAccountID *string          `yaml:"broker_account_id"`
	AutoCharges     *bool            `yaml:"auto_charges"`

	// Trades replaces the whole trade list.
	Trades []TradeEdit `yaml:"trades"`
	// AppendTrades are inserted after Trades is applied, each taking the
	// side opposite to the first trade unless it names one.
	AppendTrades []TradeEdit `yaml:"append_trades"`
	// RemoveTrades are zero-based indexes into the list after appends.
	RemoveTrades []int `yaml:"remove_trades"`
}

func loadEdits(path string) (*Edits, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read edits: %w", err)
	}
	var e Edits
	if err := yaml.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("parse edits: %w", err)
	}
	if err := e.validate(); err != nil {
		return nil, err
	}
	return &e, nil
}

func (e *Edits) validate() error {
	if e.Instrument != nil && !position.Instrument(*e.Instrument).Valid() {
		return fmt.Errorf("unknown instrument: %s", *e.Instrument)
	}
	for i, t := range append(append([]TradeEdit(nil), e.Trades...), e.AppendTrades...) {
		if t.Kind != "" && !position.Kind(t.Kind).Valid() {
			return fmt.Errorf("trade %d: kind must be buy or sell, got %q", i, t.Kind)
		}
	}
	return nil
}

// Apply replays the edits against an open editing session.
func (e *Edits) Apply(s *session.Session, now time.Time) error {
	patch := draft.Patch{
		Symbol:          e.Symbol,
		Currency:        e.Currency,
		RiskAmount:      e.RiskAmount,
		Notes:           e.Notes,
		BrokerAccountID: e.BrokerAccountID,
	}
	if e.Instrument != nil {
		in := position.Instrument(*e.Instrument)
		patch.Instrument = &in
	}
	s.UpdatePosition(patch)

	if e.AutoCharges != nil {
		s.SetAutoCharges(*e.AutoCharges)
	}

	if e.Trades != nil {
		existing := s.Trades()
		trades := make([]position.Trade, len(e.Trades))
		for i, te := range e.Trades {
			var base position.Trade
			if i < len(existing) {
				base = existing[i]
			} else {
				base = position.NewTrade(position.KindBuy, now)
			}
			trades[i] = te.merge(base)
		}
		s.SetTrades(trades)
	}

	for _, te := range e.AppendTrades {
		inserted := s.InsertNewTrade()
		last := len(s.Trades()) - 1
		s.UpdateTrade(last, func(t *position.Trade) { *t = te.merge(inserted) })
	}

	remove := append([]int(nil), e.RemoveTrades...)
	sort.Sort(sort.Reverse(sort.IntSlice(remove)))
	for _, i := range remove {
		if !s.RemoveTrade(i) {
			return fmt.Errorf("cannot remove trade %d", i)
		}
	}
	return nil
}

// Request builds a compute request straight from the script, for one-off
// computations outside an editing session.
func (e *Edits) Request(defaultInstrument position.Instrument, now time.Time) compute.Request {
	req := compute.Request{Instrument: defaultInstrument}
	if e.Instrument != nil {
		req.Instrument = position.Instrument(*e.Instrument)
	}
	if e.RiskAmount != nil {
		req.RiskAmount = *e.RiskAmount
	}
	if e.AutoCharges != nil {
		req.AutoCharges = *e.AutoCharges
	}
	if e.BrokerAccountID != nil {
		req.BrokerAccountID = *e.BrokerAccountID
	}

	var trades []position.Trade
	for _, te := range append(append([]TradeEdit(nil), e.Trades...), e.AppendTrades...) {
		kind := position.NextKind(trades)
		trades = append(trades, te.merge(position.NewTrade(kind, now)))
	}
	req.Trades = trades
	return req
}

func (te TradeEdit) merge(t position.Trade) position.Trade {
	if te.ID != "" {
		t.ID = te.ID
	}
	if te.Kind != "" {
		t.Kind = position.Kind(te.Kind)
	}
	if !te.Time.IsZero() {
		t.Time = te.Time
	}
	t.Quantity = te.Quantity
	t.Price = te.Price
	t.Charges = te.Charges
	if te.BrokerTradeID != "" {
		t.BrokerTradeID = te.BrokerTradeID
	}
	return t
}
