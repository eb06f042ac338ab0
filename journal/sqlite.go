package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps the trade log and session registry in a local SQLite
// database.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// a single connection keeps ":memory:" databases coherent
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (j *SQLiteStore) Append(ctx context.Context, t TradeRecord) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO trade_log (`+tradeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tradeArgs(t)...,
	)
	var se sqlite3.Error
	if errors.As(err, &se) && se.Code == sqlite3.ErrConstraint {
		return fmt.Errorf("append trade %d for %s: %w", t.TradeID, t.SessionID, ErrDuplicateTrade)
	}
	return err
}

func (j *SQLiteStore) QueryAll(ctx context.Context, sessionID string) ([]TradeRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT `+tradeColumns+`
		FROM trade_log
		WHERE session_id = ?
		ORDER BY trade_id ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	return scanTrades(rows)
}

// GetTrade returns a single trade record by session and id.
func (j *SQLiteStore) GetTrade(ctx context.Context, sessionID string, tradeID int64) (TradeRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT `+tradeColumns+`
		FROM trade_log
		WHERE session_id = ? AND trade_id = ?`, sessionID, tradeID)
	if err != nil {
		return TradeRecord{}, err
	}
	recs, err := scanTrades(rows)
	if err != nil {
		return TradeRecord{}, err
	}
	if len(recs) == 0 {
		return TradeRecord{}, fmt.Errorf("trade %d not found", tradeID)
	}
	return recs[0], nil
}

func (j *SQLiteStore) Delete(ctx context.Context, sessionID string) error {
	_, err := j.db.ExecContext(ctx, `DELETE FROM trade_log WHERE session_id = ?`, sessionID)
	return err
}

func (j *SQLiteStore) ActiveSession(ctx context.Context) (string, error) {
	var id string
	err := j.db.QueryRowContext(ctx, `
		SELECT session_id FROM session_meta
		WHERE is_active = 1
		ORDER BY created_at DESC
		LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoSession
	}
	return id, err
}

func (j *SQLiteStore) StartSession(ctx context.Context, sessionID string, at time.Time) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE session_meta SET is_active = 0 WHERE is_active = 1`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO session_meta (session_id, is_active, created_at)
		VALUES (?, 1, ?)
		ON CONFLICT(session_id) DO UPDATE SET is_active = 1`, sessionID, at.UTC()); err != nil {
		return err
	}
	return tx.Commit()
}

func (j *SQLiteStore) Close() error {
	return j.db.Close()
}
