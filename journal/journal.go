// Package journal persists closed trades, one append-only log per session.
package journal

import (
	"context"
	"errors"
	"time"

	"github.com/rustyeddy/stepper/market"
)

var (
	// ErrNoSession is returned by ActiveSession when none is registered.
	ErrNoSession = errors.New("no active session")

	// ErrDuplicateTrade is returned when a trade id is appended twice for
	// the same session.
	ErrDuplicateTrade = errors.New("duplicate trade id")
)

// TradeRecord is one closed trade (or closed part of a position).
type TradeRecord struct {
	SessionID        string      `json:"session_id"`
	TradeID          int64       `json:"trade_id"`
	EntryTime        time.Time   `json:"entry_time"`
	ExitTime         time.Time   `json:"exit_time"`
	PlayHours        float64     `json:"play_hours"`
	Direction        market.Side `json:"direction"`
	EntryPrice       float64     `json:"entry_price"`
	ExitPrice        float64     `json:"exit_price"`
	Leverage         float64     `json:"leverage"`
	PositionRatioPct int         `json:"position_ratio"`
	EntryCapital     float64     `json:"entry_capital"`
	PnLDollar        float64     `json:"pnl_dollar"`
	BalanceAfter     float64     `json:"balance_after"`
	Reason           string      `json:"reason"`
}

// ReturnPct is the realized return on the capital closed by this record.
func (t TradeRecord) ReturnPct() float64 {
	if t.EntryCapital == 0 {
		return 0
	}
	return t.PnLDollar / t.EntryCapital * 100
}

// Store is an append-only trade log scoped by session id. QueryAll returns
// records sorted by trade id, not by write order, so a consumer can only
// observe gaps and duplicate ids. Append rejects an id the session already
// holds with ErrDuplicateTrade.
type Store interface {
	Append(ctx context.Context, rec TradeRecord) error
	QueryAll(ctx context.Context, sessionID string) ([]TradeRecord, error)
	Delete(ctx context.Context, sessionID string) error
	Close() error
}

// SessionRegistry remembers which session is active so a restarted process
// can resume it.
type SessionRegistry interface {
	ActiveSession(ctx context.Context) (string, error)
	StartSession(ctx context.Context, sessionID string, at time.Time) error
}
