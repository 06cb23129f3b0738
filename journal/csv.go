package journal

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/MudgalLabs/arthveda-sub000/position"
)

var csvHeader = []string{
	"position_id", "symbol", "instrument", "status", "seq", "trade_id", "kind",
	"time", "quantity", "price", "charges", "broker_trade_id",
}

// CSVExport writes one row per trade, prefixed with the owning position's
// identity and status.
type CSVExport struct {
	w *csv.Writer
}

func NewCSV(w io.Writer) (*CSVExport, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return nil, err
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, err
	}
	return &CSVExport{w: cw}, nil
}

func (e *CSVExport) WritePosition(p position.Position) error {
	for i, t := range p.Trades {
		err := e.w.Write([]string{
			p.ID,
			p.Symbol,
			string(p.Instrument),
			string(p.Status),
			strconv.Itoa(i),
			t.ID,
			string(t.Kind),
			t.Time.UTC().Format(time.RFC3339),
			t.Quantity.String(),
			t.Price.String(),
			t.Charges.String(),
			t.BrokerTradeID,
		})
		if err != nil {
			return err
		}
	}
	e.w.Flush()
	return e.w.Error()
}

// Close flushes buffered rows. It does not close the underlying writer.
func (e *CSVExport) Close() error {
	e.w.Flush()
	return e.w.Error()
}
