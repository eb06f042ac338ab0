// Package ledger keeps the cumulative performance counters of a session and
// re-derives them from the trade log.
package ledger

import (
	"errors"
	"fmt"
	"math"

	"github.com/rustyeddy/stepper/journal"
)

// InitialBalance is the balance of a fresh session.
const InitialBalance = 1000.0

// balanceTolerance bounds float drift between a stored balance_after and
// the recomputed running balance before it is reported.
const balanceTolerance = 1e-6

var ErrNonMonotonicLog = errors.New("non-monotonic trade log")

// NonMonotonicLogError reports the first record whose trade id is not the
// next one in sequence.
type NonMonotonicLogError struct {
	SessionID string
	Index     int
	Want      int64
	Got       int64
}

func (e *NonMonotonicLogError) Error() string {
	return fmt.Sprintf("trade log %s: record %d has trade_id %d, want %d",
		e.SessionID, e.Index, e.Got, e.Want)
}

func (e *NonMonotonicLogError) Unwrap() error { return ErrNonMonotonicLog }

// Ledger holds the counters. The zero value is not usable; call New.
type Ledger struct {
	Initial  float64 `json:"initial"`
	Balance  float64 `json:"balance"`
	TotalPnL float64 `json:"total_pnl"`
	Wins     int     `json:"wins"`
	Losses   int     `json:"losses"`
	Trades   int64   `json:"trades"`
}

func New() Ledger {
	return Ledger{Initial: InitialBalance, Balance: InitialBalance}
}

// NextTradeID is the id the next closed trade will carry.
func (l Ledger) NextTradeID() int64 { return l.Trades + 1 }

// Record applies one realized pnl and returns the trade id it consumed.
// A pnl of exactly zero counts as a loss.
func (l *Ledger) Record(pnl float64) int64 {
	l.Trades++
	l.TotalPnL += pnl
	l.Balance = l.Initial + l.TotalPnL
	if pnl > 0 {
		l.Wins++
	} else {
		l.Losses++
	}
	return l.Trades
}

// Reset returns the counters to a fresh session.
func (l *Ledger) Reset() { *l = New() }

// Warning notes a stored balance_after that does not match the recomputed
// running balance. Restore never trusts the stored value.
type Warning struct {
	TradeID  int64
	Stored   float64
	Computed float64
}

func (w Warning) String() string {
	return fmt.Sprintf("trade %d: balance_after %.6f, recomputed %.6f", w.TradeID, w.Stored, w.Computed)
}

// Restore rebuilds a ledger from the complete ordered log of one session.
// It has no incremental state, so calling it twice yields the same result.
func Restore(records []journal.TradeRecord) (Ledger, []Warning, error) {
	l := New()
	var warnings []Warning
	for i, rec := range records {
		want := int64(i + 1)
		if rec.TradeID != want {
			return New(), nil, &NonMonotonicLogError{
				SessionID: rec.SessionID,
				Index:     i,
				Want:      want,
				Got:       rec.TradeID,
			}
		}
		l.Record(rec.PnLDollar)
		if math.Abs(rec.BalanceAfter-l.Balance) > balanceTolerance {
			warnings = append(warnings, Warning{TradeID: rec.TradeID, Stored: rec.BalanceAfter, Computed: l.Balance})
		}
	}
	return l, warnings, nil
}

// WinRate is the percentage of closed trades with positive pnl.
func (l Ledger) WinRate() float64 {
	if l.Trades == 0 {
		return 0
	}
	return float64(l.Wins) / float64(l.Trades) * 100
}
