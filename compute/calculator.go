package compute

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/MudgalLabs/arthveda-sub000/position"
)

var ErrNoTrades = errors.New("compute: position has no trades")

var hundred = decimal.NewFromInt(100)

// ChargeSchedule is a flat brokerage model: Rate of each order's turnover,
// capped at Cap per order. A zero Cap means uncapped.
type ChargeSchedule struct {
	Rate decimal.Decimal `json:"rate" yaml:"rate"`
	Cap  decimal.Decimal `json:"cap" yaml:"cap"`
}

// DefaultSchedule is 0.03% of turnover, at most 20 per order.
var DefaultSchedule = ChargeSchedule{
	Rate: decimal.RequireFromString("0.0003"),
	Cap:  decimal.NewFromInt(20),
}

// Charge returns the charges for one order of qty at price.
func (s ChargeSchedule) Charge(qty, price decimal.Decimal) decimal.Decimal {
	c := qty.Abs().Mul(price.Abs()).Mul(s.Rate)
	if s.Cap.IsPositive() && c.GreaterThan(s.Cap) {
		c = s.Cap
	}
	return c.Round(2)
}

// Calculator is an in-process Service. Cost basis is a running average
// over the trades in execution order: adding to the open side re-averages
// the entry, trading against it realises PnL on the closed quantity, and
// overshooting flips the position at the trade price.
type Calculator struct {
	// Schedules maps broker account ids to their charge schedule. Accounts
	// without an entry use Default.
	Schedules map[string]ChargeSchedule
	Default   ChargeSchedule
}

func NewCalculator() *Calculator {
	return &Calculator{
		Schedules: make(map[string]ChargeSchedule),
		Default:   DefaultSchedule,
	}
}

func (c *Calculator) schedule(account string) ChargeSchedule {
	if s, ok := c.Schedules[account]; ok {
		return s
	}
	return c.Default
}

func (c *Calculator) Compute(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if len(req.Trades) == 0 {
		return Result{}, ErrNoTrades
	}

	var res Result
	charges := make([]decimal.Decimal, len(req.Trades))
	if req.AutoCharges {
		sched := c.schedule(req.BrokerAccountID)
		for i, t := range req.Trades {
			charges[i] = sched.Charge(t.Quantity, t.Price)
		}
		res.Charges = charges
	} else {
		for i, t := range req.Trades {
			charges[i] = t.Charges
		}
	}

	var (
		open  decimal.Decimal // signed: positive long, negative short
		avg   decimal.Decimal
		gross decimal.Decimal
		cost  decimal.Decimal // turnover of every opening fill
		total decimal.Decimal
	)

	for i, t := range req.Trades {
		total = total.Add(charges[i])

		qty := t.Quantity.Abs()
		if qty.IsZero() {
			continue
		}
		signed := qty
		if t.Kind == position.KindSell {
			signed = qty.Neg()
		}

		if open.IsZero() || open.Sign() == signed.Sign() {
			held := open.Abs()
			avg = avg.Mul(held).Add(t.Price.Mul(qty)).Div(held.Add(qty))
			open = open.Add(signed)
			cost = cost.Add(t.Price.Mul(qty))
			continue
		}

		closing := decimal.Min(qty, open.Abs())
		move := t.Price.Sub(avg)
		if open.IsNegative() {
			move = move.Neg()
		}
		gross = gross.Add(move.Mul(closing))
		open = open.Add(signed)

		switch rest := qty.Sub(closing); {
		case rest.IsPositive():
			avg = t.Price
			cost = cost.Add(t.Price.Mul(rest))
		case open.IsZero():
			avg = decimal.Zero
		}
	}

	net := gross.Sub(total)

	d := position.Derived{
		Direction:    position.DirectionLong,
		OpenedAt:     req.Trades[0].Time,
		GrossPnL:     gross.Round(2),
		NetPnL:       net.Round(2),
		OpenQuantity: open.Abs(),
		OpenAvgPrice: avg.Round(4),
	}
	if req.Trades[0].Kind == position.KindSell {
		d.Direction = position.DirectionShort
	}

	switch {
	case !open.IsZero():
		d.Status = position.StatusOpen
	case net.IsPositive():
		d.Status = position.StatusWin
	case net.IsNegative():
		d.Status = position.StatusLoss
	default:
		d.Status = position.StatusBreakeven
	}
	if open.IsZero() {
		d.ClosedAt = req.Trades[len(req.Trades)-1].Time
	}

	if req.RiskAmount.IsPositive() {
		d.RFactor = net.Div(req.RiskAmount).Round(2)
	}
	if cost.IsPositive() {
		d.NetReturnPct = net.Div(cost).Mul(hundred).Round(2)
	}
	if !net.IsZero() {
		d.ChargesPct = total.Div(net.Abs()).Mul(hundred).Round(2)
	}

	res.Derived = d
	return res, nil
}
