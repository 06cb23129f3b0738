package position

import (
	"time"

	"github.com/MudgalLabs/arthveda-sub000/internal/id"
)

// TimeStep is the granularity new trade timestamps are rounded to.
const TimeStep = 15 * time.Minute

// RoundTime rounds t to the nearest TimeStep boundary.
func RoundTime(t time.Time) time.Time {
	return t.Round(TimeStep)
}

// NewTrade returns an empty trade of the given kind stamped at now, rounded
// to the nearest quarter hour.
func NewTrade(kind Kind, now time.Time) Trade {
	return Trade{
		ID:   id.NewAt(now),
		Kind: kind,
		Time: RoundTime(now),
	}
}

// NextKind picks the side for a trade appended to trades. A buy opens
// most journals, so an empty list starts with a buy; otherwise the new
// trade takes the side opposite to the first trade.
func NextKind(trades []Trade) Kind {
	if len(trades) == 0 {
		return KindBuy
	}
	return trades[0].Kind.Opposite()
}

// NewDraft returns the blank position a "new position" session starts
// from: no identity, no symbol and a single empty buy.
func NewDraft(now time.Time, instrument Instrument, currency string) Position {
	return Position{
		Instrument: instrument,
		Currency:   currency,
		Trades:     []Trade{NewTrade(KindBuy, now)},
	}
}
