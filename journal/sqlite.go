package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/MudgalLabs/arthveda-sub000/internal/id"
	"github.com/MudgalLabs/arthveda-sub000/position"
)

// SQLite is the position persistence service backed by a local database
// file.
type SQLite struct {
	db  *sql.DB
	log *zap.Logger
	now func() time.Time
}

type Option func(*SQLite)

func WithLogger(log *zap.Logger) Option {
	return func(j *SQLite) { j.log = log }
}

func NewSQLite(path string, opts ...Option) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serialises
	// writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	j := &SQLite{db: db, log: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(j)
	}
	return j, nil
}

// Create stores p under a fresh identity unless p already carries one, and
// returns that identity.
func (j *SQLite) Create(ctx context.Context, p position.Position) (string, error) {
	if p.ID == "" {
		p.ID = id.New()
	}
	now := j.now().UTC()

	err := j.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO positions
			(position_id, symbol, instrument, currency, risk_amount, notes, broker_account_id,
			 direction, status, opened_at, closed_at, gross_pnl, net_pnl, r_factor,
			 net_return_pct, charges_pct, open_quantity, open_avg_price, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.Symbol, string(p.Instrument), p.Currency, p.RiskAmount, p.Notes, p.BrokerAccountID,
			string(p.Direction), string(p.Status), nullTime(p.OpenedAt), nullTime(p.ClosedAt),
			p.GrossPnL, p.NetPnL, p.RFactor, p.NetReturnPct, p.ChargesPct, p.OpenQuantity, p.OpenAvgPrice,
			now, now,
		)
		if err != nil {
			return fmt.Errorf("insert position: %w", err)
		}
		return insertTrades(ctx, tx, p.ID, p.Trades)
	})
	if err != nil {
		return "", err
	}

	j.log.Debug("position created", zap.String("position_id", p.ID), zap.Int("trades", len(p.Trades)))
	return p.ID, nil
}

// Update replaces the stored position and all of its trades.
func (j *SQLite) Update(ctx context.Context, positionID string, p position.Position) error {
	err := j.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE positions SET
				symbol = ?, instrument = ?, currency = ?, risk_amount = ?, notes = ?, broker_account_id = ?,
				direction = ?, status = ?, opened_at = ?, closed_at = ?, gross_pnl = ?, net_pnl = ?,
				r_factor = ?, net_return_pct = ?, charges_pct = ?, open_quantity = ?, open_avg_price = ?,
				updated_at = ?
			WHERE position_id = ?`,
			p.Symbol, string(p.Instrument), p.Currency, p.RiskAmount, p.Notes, p.BrokerAccountID,
			string(p.Direction), string(p.Status), nullTime(p.OpenedAt), nullTime(p.ClosedAt),
			p.GrossPnL, p.NetPnL, p.RFactor, p.NetReturnPct, p.ChargesPct, p.OpenQuantity, p.OpenAvgPrice,
			j.now().UTC(), positionID,
		)
		if err != nil {
			return fmt.Errorf("update position: %w", err)
		}
		if err := expectRow(res, positionID); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM trades WHERE position_id = ?`, positionID); err != nil {
			return fmt.Errorf("clear trades: %w", err)
		}
		return insertTrades(ctx, tx, positionID, p.Trades)
	})
	if err != nil {
		return err
	}

	j.log.Debug("position updated", zap.String("position_id", positionID), zap.Int("trades", len(p.Trades)))
	return nil
}

func (j *SQLite) Delete(ctx context.Context, positionID string) error {
	err := j.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM positions WHERE position_id = ?`, positionID)
		if err != nil {
			return fmt.Errorf("delete position: %w", err)
		}
		if err := expectRow(res, positionID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM trades WHERE position_id = ?`, positionID); err != nil {
			return fmt.Errorf("delete trades: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	j.log.Debug("position deleted", zap.String("position_id", positionID))
	return nil
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

func (j *SQLite) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func insertTrades(ctx context.Context, tx *sql.Tx, positionID string, trades []position.Trade) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trades
		(position_id, seq, trade_id, kind, time, quantity, price, charges, broker_trade_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare trade insert: %w", err)
	}
	defer stmt.Close()

	for i, t := range trades {
		if t.ID == "" {
			t.ID = id.New()
		}
		if _, err := stmt.ExecContext(ctx,
			positionID, i, t.ID, string(t.Kind), t.Time.UTC(),
			t.Quantity, t.Price, t.Charges, t.BrokerTradeID,
		); err != nil {
			return fmt.Errorf("insert trade %d: %w", i, err)
		}
	}
	return nil
}

func expectRow(res sql.Result, positionID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("position %q: %w", positionID, ErrNotFound)
	}
	return nil
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

var _ Journal = (*SQLite)(nil)
