package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/stepper/journal"
	"github.com/rustyeddy/stepper/market"
)

func trade(id int64, pnl, balance float64) journal.TradeRecord {
	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return journal.TradeRecord{
		SessionID:        "s",
		TradeID:          id,
		EntryTime:        at,
		ExitTime:         at.Add(2 * time.Hour),
		PlayHours:        2,
		Direction:        market.Short,
		EntryPrice:       100,
		ExitPrice:        98,
		Leverage:         5,
		PositionRatioPct: 5,
		EntryCapital:     50,
		PnLDollar:        pnl,
		BalanceAfter:     balance,
		Reason:           "FULL EXIT",
	}
}

func TestFindTrade(t *testing.T) {
	ctx := context.Background()

	sq, err := journal.NewSQLite(filepath.Join(t.TempDir(), "t.db"))
	require.NoError(t, err)
	defer sq.Close()

	for _, store := range []journal.Store{journal.NewMemory(), sq} {
		require.NoError(t, store.Append(ctx, trade(1, 5, 1005)))
		require.NoError(t, store.Append(ctx, trade(2, -3, 1002)))

		rec, err := findTrade(ctx, store, "s", 2)
		require.NoError(t, err)
		assert.Equal(t, -3.0, rec.PnLDollar)

		_, err = findTrade(ctx, store, "s", 3)
		assert.Error(t, err)
	}
}

func TestWriteTradeTable(t *testing.T) {
	var out bytes.Buffer
	writeTradeTable(&out, nil)
	assert.Equal(t, "no trades\n", out.String())

	out.Reset()
	writeTradeTable(&out, []journal.TradeRecord{trade(1, 5, 1005)})
	assert.Contains(t, out.String(), "REASON")
	assert.Contains(t, out.String(), "SHORT")
	assert.Contains(t, out.String(), "1005.00")
}

func TestWriteStats(t *testing.T) {
	recs := []journal.TradeRecord{trade(1, 5, 1005), trade(2, -3, 1002)}

	var out bytes.Buffer
	require.NoError(t, writeStats(&out, "s", recs, false))
	assert.Contains(t, out.String(), "Balance   $1002.00")
	assert.Contains(t, out.String(), "2 (1 win / 1 lose, 50.0%)")
	assert.NotContains(t, out.String(), "warning")

	out.Reset()
	require.NoError(t, writeStats(&out, "s", recs, true))
	assert.Contains(t, out.String(), `"session_id": "s"`)

	bad := []journal.TradeRecord{trade(2, 1, 1001)}
	assert.Error(t, writeStats(&out, "s", bad, false))
}

func TestConfirm(t *testing.T) {
	var out bytes.Buffer
	assert.True(t, confirm(bytes.NewBufferString("y\n"), &out, "sure?"))
	assert.True(t, confirm(bytes.NewBufferString("YES\n"), &out, "sure?"))
	assert.False(t, confirm(bytes.NewBufferString("\n"), &out, "sure?"))
	assert.False(t, confirm(bytes.NewBufferString(""), &out, "sure?"))
	assert.Contains(t, out.String(), "sure? [y/N]")
}
