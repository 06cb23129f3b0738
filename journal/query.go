package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/MudgalLabs/arthveda-sub000/position"
)

const positionColumns = `
	position_id, symbol, instrument, currency, risk_amount, notes, broker_account_id,
	direction, status, opened_at, closed_at, gross_pnl, net_pnl, r_factor,
	net_return_pct, charges_pct, open_quantity, open_avg_price`

type rowScanner interface {
	Scan(dest ...any) error
}

// Get returns a single position with its trades in execution order.
func (j *SQLite) Get(ctx context.Context, positionID string) (position.Position, error) {
	row := j.db.QueryRowContext(ctx, `SELECT `+positionColumns+` FROM positions WHERE position_id = ?`, positionID)

	p, err := scanPosition(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return position.Position{}, fmt.Errorf("position %q: %w", positionID, ErrNotFound)
		}
		return position.Position{}, err
	}

	if p.Trades, err = j.trades(ctx, positionID); err != nil {
		return position.Position{}, err
	}
	return p, nil
}

// List returns positions matching f, most recently opened first.
func (j *SQLite) List(ctx context.Context, f Filter) ([]position.Position, error) {
	var (
		where []string
		args  []any
	)
	if f.Symbol != "" {
		where = append(where, "symbol = ?")
		args = append(args, f.Symbol)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}

	q := `SELECT ` + positionColumns + ` FROM positions`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY opened_at DESC, position_id DESC`
	if f.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := j.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}

	var out []position.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	// Trades are loaded after the cursor is closed; the pool holds a single
	// connection.
	for i := range out {
		if out[i].Trades, err = j.trades(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (j *SQLite) trades(ctx context.Context, positionID string) ([]position.Trade, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT trade_id, kind, time, quantity, price, charges, broker_trade_id
		FROM trades
		WHERE position_id = ?
		ORDER BY seq ASC`, positionID)
	if err != nil {
		return nil, fmt.Errorf("list trades: %w", err)
	}
	defer rows.Close()

	var out []position.Trade
	for rows.Next() {
		var (
			t    position.Trade
			kind string
		)
		if err := rows.Scan(&t.ID, &kind, &t.Time, &t.Quantity, &t.Price, &t.Charges, &t.BrokerTradeID); err != nil {
			return nil, err
		}
		t.Kind = position.Kind(kind)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanPosition(row rowScanner) (position.Position, error) {
	var (
		p                  position.Position
		instrument         string
		direction, status  string
		openedAt, closedAt sql.NullTime
	)
	err := row.Scan(
		&p.ID,
		&p.Symbol,
		&instrument,
		&p.Currency,
		&p.RiskAmount,
		&p.Notes,
		&p.BrokerAccountID,
		&direction,
		&status,
		&openedAt,
		&closedAt,
		&p.GrossPnL,
		&p.NetPnL,
		&p.RFactor,
		&p.NetReturnPct,
		&p.ChargesPct,
		&p.OpenQuantity,
		&p.OpenAvgPrice,
	)
	if err != nil {
		return position.Position{}, err
	}

	p.Instrument = position.Instrument(instrument)
	p.Direction = position.Direction(direction)
	p.Status = position.Status(status)
	if openedAt.Valid {
		p.OpenedAt = openedAt.Time
	}
	if closedAt.Valid {
		p.ClosedAt = closedAt.Time
	}
	return p, nil
}
