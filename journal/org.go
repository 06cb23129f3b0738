package journal

import (
	"fmt"
	"strings"
	"time"

	"github.com/MudgalLabs/arthveda-sub000/position"
)

// FormatPositionOrg renders a position as an Org-mode entry. Structured
// facts go in the PROPERTIES drawer, the trades in a table, and the
// narrative sections are left for the reader to fill in.
func FormatPositionOrg(p position.Position) string {
	heading := fmt.Sprintf("** Position: %s %s (%s)", p.Symbol, strings.ToUpper(string(p.Status)), shortID(p.ID))

	var b strings.Builder
	b.WriteString(heading)
	b.WriteString("\n")
	b.WriteString(":PROPERTIES:\n")
	b.WriteString(fmt.Sprintf(":ID: %s\n", p.ID))
	b.WriteString(fmt.Sprintf(":SYMBOL: %s\n", p.Symbol))
	b.WriteString(fmt.Sprintf(":INSTRUMENT: %s\n", p.Instrument))
	b.WriteString(fmt.Sprintf(":CURRENCY: %s\n", p.Currency))
	b.WriteString(fmt.Sprintf(":DIRECTION: %s\n", p.Direction))
	b.WriteString(fmt.Sprintf(":STATUS: %s\n", p.Status))
	b.WriteString(fmt.Sprintf(":OPENED_AT: %s\n", orgTime(p.OpenedAt)))
	b.WriteString(fmt.Sprintf(":CLOSED_AT: %s\n", orgTime(p.ClosedAt)))
	b.WriteString(fmt.Sprintf(":RISK: %s\n", p.RiskAmount.StringFixed(2)))
	b.WriteString(fmt.Sprintf(":GROSS_PNL: %s\n", p.GrossPnL.StringFixed(2)))
	b.WriteString(fmt.Sprintf(":NET_PNL: %s\n", p.NetPnL.StringFixed(2)))
	b.WriteString(fmt.Sprintf(":R_FACTOR: %s\n", p.RFactor.StringFixed(2)))
	b.WriteString(fmt.Sprintf(":NET_RETURN_PCT: %s\n", p.NetReturnPct.StringFixed(2)))
	if !p.OpenQuantity.IsZero() {
		b.WriteString(fmt.Sprintf(":OPEN_QTY: %s\n", p.OpenQuantity.String()))
		b.WriteString(fmt.Sprintf(":OPEN_AVG_PRICE: %s\n", p.OpenAvgPrice.String()))
	}
	if p.BrokerAccountID != "" {
		b.WriteString(fmt.Sprintf(":BROKER_ACCOUNT: %s\n", p.BrokerAccountID))
	}
	b.WriteString(":END:\n")
	b.WriteString("\n")

	b.WriteString("*** Trades\n")
	b.WriteString("| # | Kind | Time | Qty | Price | Charges |\n")
	b.WriteString("|---+------+------+-----+-------+---------|\n")
	for i, t := range p.Trades {
		b.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s | %s |\n",
			i+1, t.Kind, orgTime(t.Time), t.Quantity.String(), t.Price.String(), t.Charges.StringFixed(2)))
	}
	b.WriteString("\n")

	b.WriteString("*** Thesis\n")
	if p.Notes != "" {
		b.WriteString(p.Notes)
		b.WriteString("\n\n")
	} else {
		b.WriteString("- \n\n")
	}
	b.WriteString("*** Execution\n- \n\n")
	b.WriteString("*** Review\n- \n")

	return b.String()
}

// FormatPositionsOrg renders multiple positions separated by blank lines.
func FormatPositionsOrg(positions []position.Position) string {
	var b strings.Builder
	for i, p := range positions {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(FormatPositionOrg(p))
	}
	return b.String()
}

func orgTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[:8]
}
