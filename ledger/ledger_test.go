package ledger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/stepper/journal"
)

func logOf(pnls ...float64) []journal.TradeRecord {
	out := make([]journal.TradeRecord, len(pnls))
	balance := InitialBalance
	for i, pnl := range pnls {
		balance += pnl
		out[i] = journal.TradeRecord{
			SessionID:    "s",
			TradeID:      int64(i + 1),
			PnLDollar:    pnl,
			EntryCapital: 50,
			BalanceAfter: balance,
		}
	}
	return out
}

func TestNew(t *testing.T) {
	t.Parallel()

	l := New()
	assert.Equal(t, 1000.0, l.Balance)
	assert.Equal(t, int64(1), l.NextTradeID())
	assert.Zero(t, l.WinRate())
}

func TestRecordKeepsBalanceConsistent(t *testing.T) {
	t.Parallel()

	l := New()
	pnls := []float64{25, -20, 0, 3.3333, -0.01}
	var sum float64
	for i, pnl := range pnls {
		id := l.Record(pnl)
		sum += pnl
		assert.Equal(t, int64(i+1), id)
		assert.InDelta(t, 1000.0+l.TotalPnL, l.Balance, 1e-9)
		assert.InDelta(t, sum, l.TotalPnL, 1e-9)
	}
	assert.Equal(t, 2, l.Wins)
	assert.Equal(t, 3, l.Losses)
	assert.Equal(t, int64(5), l.Trades)
	assert.InDelta(t, 40.0, l.WinRate(), 1e-9)

	l.Reset()
	assert.Equal(t, New(), l)
}

func TestRestore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		records []journal.TradeRecord
		want    Ledger
	}{
		{
			name:    "empty log",
			records: nil,
			want:    New(),
		},
		{
			name:    "mixed",
			records: logOf(25, -20, 10),
			want:    Ledger{Initial: 1000, Balance: 1015, TotalPnL: 15, Wins: 2, Losses: 1, Trades: 3},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, warnings, err := Restore(tt.records)
			require.NoError(t, err)
			assert.Empty(t, warnings)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRestoreIsIdempotent(t *testing.T) {
	t.Parallel()

	records := logOf(1.5, -2.25, 7, -0.5)
	a, _, err := Restore(records)
	require.NoError(t, err)
	b, _, err := Restore(records)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestRestoreReportsBalanceMismatch(t *testing.T) {
	t.Parallel()

	records := logOf(10, 10)
	records[1].BalanceAfter = 5000

	l, warnings, err := Restore(records)
	require.NoError(t, err)
	assert.Equal(t, 1020.0, l.Balance)
	require.Len(t, warnings, 1)
	assert.Equal(t, int64(2), warnings[0].TradeID)
	assert.Equal(t, 5000.0, warnings[0].Stored)
	assert.Contains(t, warnings[0].String(), "trade 2")
}

func TestRestoreRejectsNonMonotonicLog(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		ids   []int64
		index int
	}{
		{"gap", []int64{1, 2, 4}, 2},
		{"duplicate", []int64{1, 1, 2}, 1},
		{"out of order", []int64{2, 1}, 0},
		{"starts late", []int64{3}, 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			records := logOf(make([]float64, len(tt.ids))...)
			for i, id := range tt.ids {
				records[i].TradeID = id
			}

			l, _, err := Restore(records)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrNonMonotonicLog))

			var nm *NonMonotonicLogError
			require.ErrorAs(t, err, &nm)
			assert.Equal(t, tt.index, nm.Index)
			assert.Equal(t, New(), l)
		})
	}
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	s := Summarize(logOf(25, -20, 10, 0))
	assert.Equal(t, 4, s.Trades)
	assert.Equal(t, 2, s.Wins)
	assert.Equal(t, 2, s.Losses)
	assert.InDelta(t, 50.0, s.WinRate, 1e-9)
	// returns on capital 50: 50%, -40%, 20%, 0%
	assert.InDelta(t, 7.5, s.AvgReturn, 1e-9)
	assert.InDelta(t, 35.0, s.AvgWinReturn, 1e-9)
	assert.InDelta(t, -20.0, s.AvgLossReturn, 1e-9)
	assert.InDelta(t, 15.0, s.TotalPnL, 1e-9)
	assert.Equal(t, 25.0, s.BestPnL)
	assert.Equal(t, -20.0, s.WorstPnL)

	assert.Equal(t, Stats{}, Summarize(nil))
}
