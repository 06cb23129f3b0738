// Package compute talks to the computation service that derives PnL,
// status and timing fields for a position, and writes its answers back
// into the draft.
package compute

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/MudgalLabs/arthveda-sub000/position"
)

// ErrStatus is wrapped by errors for non-2xx responses from a remote
// service.
var ErrStatus = errors.New("compute: unexpected status")

// Request is everything the service needs. Trades are in execution order.
type Request struct {
	Trades          []position.Trade
	RiskAmount      decimal.Decimal
	Instrument      position.Instrument
	AutoCharges     bool
	BrokerAccountID string
}

// Result carries the full derived block. Charges is set only when
// auto-charges was requested and lines up index for index with
// Request.Trades.
type Result struct {
	position.Derived
	Charges []decimal.Decimal
}

// Service is a pure function of its request: calling it twice with the
// same request yields the same result.
type Service interface {
	Compute(ctx context.Context, req Request) (Result, error)
}

// ServiceFunc adapts a function to Service.
type ServiceFunc func(ctx context.Context, req Request) (Result, error)

func (f ServiceFunc) Compute(ctx context.Context, req Request) (Result, error) {
	return f(ctx, req)
}

// Notifier surfaces transient messages to the user.
type Notifier interface {
	Notify(err error)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(err error)

func (f NotifierFunc) Notify(err error) { f(err) }
