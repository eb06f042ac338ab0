package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

const pgUniqueViolation = "23505"

// PostgresStore keeps the trade log in a hosted Postgres row store.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres connects with a lib/pq DSN and creates the schema.
func NewPostgres(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.Exec(PostgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// NewPostgresFromDB wraps an existing handle; the schema is assumed present.
func NewPostgresFromDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) Append(ctx context.Context, t TradeRecord) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO trade_log (`+tradeColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		tradeArgs(t)...,
	)
	var pe *pq.Error
	if errors.As(err, &pe) && pe.Code == pgUniqueViolation {
		return fmt.Errorf("append trade %d for %s: %w", t.TradeID, t.SessionID, ErrDuplicateTrade)
	}
	return err
}

func (p *PostgresStore) QueryAll(ctx context.Context, sessionID string) ([]TradeRecord, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+tradeColumns+`
		FROM trade_log
		WHERE session_id = $1
		ORDER BY trade_id ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	return scanTrades(rows)
}

func (p *PostgresStore) Delete(ctx context.Context, sessionID string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM trade_log WHERE session_id = $1`, sessionID)
	return err
}

func (p *PostgresStore) ActiveSession(ctx context.Context) (string, error) {
	var id string
	err := p.db.QueryRowContext(ctx, `
		SELECT session_id FROM session_meta
		WHERE is_active = TRUE
		ORDER BY created_at DESC
		LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoSession
	}
	return id, err
}

func (p *PostgresStore) StartSession(ctx context.Context, sessionID string, at time.Time) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE session_meta SET is_active = FALSE WHERE is_active = TRUE`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO session_meta (session_id, is_active, created_at)
		VALUES ($1, TRUE, $2)
		ON CONFLICT (session_id) DO UPDATE SET is_active = TRUE`, sessionID, at.UTC()); err != nil {
		return err
	}
	return tx.Commit()
}

func (p *PostgresStore) Close() error {
	return p.db.Close()
}
