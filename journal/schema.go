// journal/schema.go
package journal

// Amounts are stored as decimal strings so they round-trip exactly.
const Schema = `
CREATE TABLE IF NOT EXISTS positions (
	position_id TEXT PRIMARY KEY,
	symbol TEXT NOT NULL,
	instrument TEXT NOT NULL,
	currency TEXT NOT NULL,
	risk_amount TEXT NOT NULL,
	notes TEXT NOT NULL,
	broker_account_id TEXT NOT NULL,
	direction TEXT NOT NULL,
	status TEXT NOT NULL,
	opened_at DATETIME,
	closed_at DATETIME,
	gross_pnl TEXT NOT NULL,
	net_pnl TEXT NOT NULL,
	r_factor TEXT NOT NULL,
	net_return_pct TEXT NOT NULL,
	charges_pct TEXT NOT NULL,
	open_quantity TEXT NOT NULL,
	open_avg_price TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS trades (
	position_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	trade_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	time DATETIME NOT NULL,
	quantity TEXT NOT NULL,
	price TEXT NOT NULL,
	charges TEXT NOT NULL,
	broker_trade_id TEXT NOT NULL,
	PRIMARY KEY (position_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_positions_opened ON positions(opened_at);
CREATE INDEX IF NOT EXISTS idx_positions_symbol ON positions(symbol);
`
