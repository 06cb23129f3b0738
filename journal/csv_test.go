package journal

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExportHeader(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	e, err := NewCSV(&buf)
	require.NoError(t, err)
	require.NoError(t, e.Close())

	header, err := csv.NewReader(&buf).Read()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"position_id", "symbol", "instrument", "status", "seq", "trade_id", "kind",
		"time", "quantity", "price", "charges", "broker_trade_id",
	}, header)
}

func TestCSVExportWritePosition(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	e, err := NewCSV(&buf)
	require.NoError(t, err)

	p := samplePosition()
	p.ID = "pos-1"
	require.NoError(t, e.WritePosition(p))
	require.NoError(t, e.Close())

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	open := time.Date(2024, 3, 15, 9, 15, 0, 0, time.UTC)
	assert.Equal(t, []string{
		"pos-1", "AAPL", "equity", "win", "0", "t1", "buy",
		open.Format(time.RFC3339), "10", "150.25", "0.45", "",
	}, records[1])
	assert.Equal(t, []string{
		"pos-1", "AAPL", "equity", "win", "1", "t2", "sell",
		"2024-03-15T11:15:00Z", "10", "155.5", "0.47", "B-99",
	}, records[2])
}
