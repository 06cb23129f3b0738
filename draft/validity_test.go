package draft

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MudgalLabs/arthveda-sub000/position"
)

func trade(qty, price string) position.Trade {
	return position.Trade{Kind: position.KindBuy, Quantity: dec(qty), Price: dec(price)}
}

func TestTradesAreValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		trades []position.Trade
		want   bool
	}{
		{"empty", nil, false},
		{"single valid", []position.Trade{trade("10", "150")}, true},
		{"zero quantity", []position.Trade{trade("0", "150")}, false},
		{"zero price", []position.Trade{trade("10", "0")}, false},
		{"one bad among good", []position.Trade{trade("10", "150"), trade("5", "0")}, false},
		{"all good", []position.Trade{trade("10", "150"), trade("10", "155")}, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, TradesAreValid(tt.trades))
		})
	}
}

func TestCanSave(t *testing.T) {
	t.Parallel()

	valid := []position.Trade{trade("10", "150")}

	tests := []struct {
		name string
		pos  position.Position
		want bool
	}{
		{"symbol and valid trades", position.Position{Symbol: "AAPL", Trades: valid}, true},
		{"empty symbol", position.Position{Trades: valid}, false},
		{"blank symbol", position.Position{Symbol: "  ", Trades: valid}, false},
		{"zero quantity", position.Position{Symbol: "AAPL", Trades: []position.Trade{trade("0", "150")}}, false},
		{"zero price", position.Position{Symbol: "AAPL", Trades: []position.Trade{trade("10", "0")}}, false},
		{"no trades", position.Position{Symbol: "AAPL"}, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, CanSave(tt.pos))
		})
	}
}

func TestHasChanged(t *testing.T) {
	t.Parallel()

	base := position.Position{Symbol: "AAPL", Trades: []position.Trade{trade("10", "150")}}

	assert.False(t, HasChanged(base.Clone(), base))

	edited := base.Clone()
	edited.Trades[0].Price = dec("151")
	assert.True(t, HasChanged(edited, base))

	computed := base.Clone()
	computed.Status = position.StatusOpen
	assert.True(t, HasChanged(computed, base))
}
