package draft

import (
	"strings"

	"github.com/MudgalLabs/arthveda-sub000/position"
)

// TradesAreValid reports whether there is at least one trade and every
// trade has a nonzero quantity and price.
func TradesAreValid(trades []position.Trade) bool {
	if len(trades) == 0 {
		return false
	}
	for _, t := range trades {
		if !t.Valid() {
			return false
		}
	}
	return true
}

// CanSave reports whether p may be sent to the persistence service.
func CanSave(p position.Position) bool {
	return strings.TrimSpace(p.Symbol) != "" && TradesAreValid(p.Trades)
}

// HasChanged reports whether p differs from baseline in any field,
// including the derived ones.
func HasChanged(p, baseline position.Position) bool {
	return !p.Equal(baseline)
}
