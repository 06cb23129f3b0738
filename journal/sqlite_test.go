package journal

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MudgalLabs/arthveda-sub000/internal/id"
	"github.com/MudgalLabs/arthveda-sub000/position"
)

func newTestSQLite(t *testing.T) (*SQLite, string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	j, err := NewSQLite(path)
	require.NoError(t, err)

	return j, path
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func samplePosition() position.Position {
	open := time.Date(2024, 3, 15, 9, 15, 0, 0, time.UTC)
	return position.Position{
		Symbol:          "AAPL",
		Instrument:      position.InstrumentEquity,
		Currency:        "USD",
		RiskAmount:      dec("50"),
		Notes:           "breakout over prior high",
		BrokerAccountID: "acct-1",
		Trades: []position.Trade{
			{ID: "t1", Kind: position.KindBuy, Time: open, Quantity: dec("10"), Price: dec("150.25"), Charges: dec("0.45")},
			{ID: "t2", Kind: position.KindSell, Time: open.Add(2 * time.Hour), Quantity: dec("10"), Price: dec("155.5"), Charges: dec("0.47"), BrokerTradeID: "B-99"},
		},
		Derived: position.Derived{
			Direction:    position.DirectionLong,
			Status:       position.StatusWin,
			OpenedAt:     open,
			ClosedAt:     open.Add(2 * time.Hour),
			GrossPnL:     dec("52.5"),
			NetPnL:       dec("51.58"),
			RFactor:      dec("1.03"),
			NetReturnPct: dec("3.43"),
			ChargesPct:   dec("1.78"),
		},
	}
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	assert.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table' AND name IN ('positions','trades')`)
	require.NoError(t, err)
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		assert.NoError(t, rows.Scan(&name))
		found[name] = true
	}
	assert.NoError(t, rows.Err())

	assert.True(t, found["positions"])
	assert.True(t, found["trades"])
}

func TestSQLiteCreateAndGet(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()
	ctx := context.Background()

	want := samplePosition()
	posID, err := j.Create(ctx, want)
	require.NoError(t, err)
	assert.True(t, id.Valid(posID))

	got, err := j.Get(ctx, posID)
	require.NoError(t, err)

	want.ID = posID
	assert.True(t, want.Equal(got), "got %+v", got)
}

func TestSQLiteCreateKeepsGivenIDAndFillsTradeIDs(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()
	ctx := context.Background()

	p := samplePosition()
	p.ID = "pos-fixed"
	p.Trades[1].ID = ""

	posID, err := j.Create(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, "pos-fixed", posID)

	got, err := j.Get(ctx, posID)
	require.NoError(t, err)
	require.Len(t, got.Trades, 2)
	assert.Equal(t, "t1", got.Trades[0].ID)
	assert.True(t, id.Valid(got.Trades[1].ID))
}

func TestSQLiteOpenPositionHasNoCloseTime(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()
	ctx := context.Background()

	p := samplePosition()
	p.Trades = p.Trades[:1]
	p.Status = position.StatusOpen
	p.ClosedAt = time.Time{}
	p.OpenQuantity = dec("10")
	p.OpenAvgPrice = dec("150.25")

	posID, err := j.Create(ctx, p)
	require.NoError(t, err)

	got, err := j.Get(ctx, posID)
	require.NoError(t, err)
	assert.True(t, got.ClosedAt.IsZero())
	assert.True(t, got.OpenQuantity.Equal(dec("10")))
	assert.Equal(t, position.StatusOpen, got.Status)
}

func TestSQLiteUpdateReplacesTrades(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()
	ctx := context.Background()

	posID, err := j.Create(ctx, samplePosition())
	require.NoError(t, err)

	p, err := j.Get(ctx, posID)
	require.NoError(t, err)
	p.Symbol = "MSFT"
	p.Trades = p.Trades[:1]
	p.Trades[0].Price = dec("149")
	p.Status = position.StatusOpen

	require.NoError(t, j.Update(ctx, posID, p))

	got, err := j.Get(ctx, posID)
	require.NoError(t, err)
	assert.Equal(t, "MSFT", got.Symbol)
	require.Len(t, got.Trades, 1)
	assert.True(t, got.Trades[0].Price.Equal(dec("149")))
	assert.Equal(t, position.StatusOpen, got.Status)
}

func TestSQLiteUpdateUnknown(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()

	err := j.Update(context.Background(), "missing", samplePosition())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteDelete(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	ctx := context.Background()

	posID, err := j.Create(ctx, samplePosition())
	require.NoError(t, err)
	require.NoError(t, j.Delete(ctx, posID))

	_, err = j.Get(ctx, posID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, j.Delete(ctx, posID), ErrNotFound)
	require.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM trades`).Scan(&n))
	assert.Zero(t, n)
}

func TestSQLiteAmountsStoredExactly(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	ctx := context.Background()

	p := samplePosition()
	p.Trades[0].Price = dec("0.000123456789")
	_, err := j.Create(ctx, p)
	require.NoError(t, err)
	require.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var price string
	require.NoError(t, db.QueryRow(`SELECT price FROM trades WHERE seq = 0`).Scan(&price))
	assert.Equal(t, "0.000123456789", price)
}
