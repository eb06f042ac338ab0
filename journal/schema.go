package journal

const Schema = `
CREATE TABLE IF NOT EXISTS trade_log (
	session_id TEXT NOT NULL,
	trade_id INTEGER NOT NULL,
	entry_time DATETIME NOT NULL,
	exit_time DATETIME NOT NULL,
	play_hours REAL NOT NULL,
	direction TEXT NOT NULL,
	entry_price REAL NOT NULL,
	exit_price REAL NOT NULL,
	leverage REAL NOT NULL,
	position_ratio INTEGER NOT NULL,
	entry_capital REAL NOT NULL,
	pnl_dollar REAL NOT NULL,
	balance_after REAL NOT NULL,
	reason TEXT NOT NULL,
	PRIMARY KEY (session_id, trade_id)
);

CREATE TABLE IF NOT EXISTS session_meta (
	session_id TEXT PRIMARY KEY,
	is_active BOOLEAN NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_session_meta_active ON session_meta(is_active, created_at);
`

const PostgresSchema = `
CREATE TABLE IF NOT EXISTS trade_log (
	session_id TEXT NOT NULL,
	trade_id BIGINT NOT NULL,
	entry_time TIMESTAMPTZ NOT NULL,
	exit_time TIMESTAMPTZ NOT NULL,
	play_hours DOUBLE PRECISION NOT NULL,
	direction TEXT NOT NULL,
	entry_price DOUBLE PRECISION NOT NULL,
	exit_price DOUBLE PRECISION NOT NULL,
	leverage DOUBLE PRECISION NOT NULL,
	position_ratio INTEGER NOT NULL,
	entry_capital DOUBLE PRECISION NOT NULL,
	pnl_dollar DOUBLE PRECISION NOT NULL,
	balance_after DOUBLE PRECISION NOT NULL,
	reason TEXT NOT NULL,
	PRIMARY KEY (session_id, trade_id)
);

CREATE TABLE IF NOT EXISTS session_meta (
	session_id TEXT PRIMARY KEY,
	is_active BOOLEAN NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
`

const tradeColumns = `session_id, trade_id, entry_time, exit_time, play_hours, direction,
	entry_price, exit_price, leverage, position_ratio, entry_capital, pnl_dollar,
	balance_after, reason`
