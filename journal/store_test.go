package journal

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/stepper/market"
)

func sampleTrade(session string, id int64, pnl, balance float64) TradeRecord {
	entry := time.Date(2024, 1, 2, 3, 0, 0, 0, time.UTC).Add(time.Duration(id) * time.Hour)
	return TradeRecord{
		SessionID:        session,
		TradeID:          id,
		EntryTime:        entry,
		ExitTime:         entry.Add(5 * time.Hour),
		PlayHours:        5,
		Direction:        market.Long,
		EntryPrice:       42000.5,
		ExitPrice:        42100.25,
		Leverage:         10,
		PositionRatioPct: 5,
		EntryCapital:     50,
		PnLDollar:        pnl,
		BalanceAfter:     balance,
		Reason:           "FULL EXIT",
	}
}

// runStoreContract exercises the behaviour every backend must share.
func runStoreContract(t *testing.T, open func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("empty session", func(t *testing.T) {
		s := open(t)
		recs, err := s.QueryAll(ctx, "nobody")
		require.NoError(t, err)
		assert.Empty(t, recs)
	})

	t.Run("append and query in order", func(t *testing.T) {
		s := open(t)
		want := []TradeRecord{
			sampleTrade("s1", 1, 1.1875, 1001.1875),
			sampleTrade("s1", 2, -0.1, 1001.0875),
			sampleTrade("s1", 3, 12.123456789, 1013.210956789),
		}
		for _, rec := range want {
			require.NoError(t, s.Append(ctx, rec))
		}
		require.NoError(t, s.Append(ctx, sampleTrade("s2", 1, 5, 1005)))

		got, err := s.QueryAll(ctx, "s1")
		require.NoError(t, err)
		require.Len(t, got, 3)
		for i := range want {
			assert.Equal(t, want[i].TradeID, got[i].TradeID)
			assert.Equal(t, want[i].SessionID, got[i].SessionID)
			assert.Equal(t, want[i].Direction, got[i].Direction)
			assert.Equal(t, want[i].Reason, got[i].Reason)
			assert.Equal(t, want[i].PositionRatioPct, got[i].PositionRatioPct)
			assert.InDelta(t, want[i].PnLDollar, got[i].PnLDollar, 1e-12)
			assert.InDelta(t, want[i].BalanceAfter, got[i].BalanceAfter, 1e-9)
			assert.InDelta(t, want[i].EntryPrice, got[i].EntryPrice, 1e-9)
			assert.True(t, want[i].EntryTime.Equal(got[i].EntryTime))
			assert.True(t, want[i].ExitTime.Equal(got[i].ExitTime))
		}
	})

	t.Run("delete is scoped to session", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Append(ctx, sampleTrade("a", 1, 1, 1001)))
		require.NoError(t, s.Append(ctx, sampleTrade("b", 1, 2, 1002)))

		require.NoError(t, s.Delete(ctx, "a"))

		a, err := s.QueryAll(ctx, "a")
		require.NoError(t, err)
		assert.Empty(t, a)

		b, err := s.QueryAll(ctx, "b")
		require.NoError(t, err)
		assert.Len(t, b, 1)
	})
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()
	runStoreContract(t, func(t *testing.T) Store { return NewMemory() })
}

func TestSQLiteStore(t *testing.T) {
	t.Parallel()
	runStoreContract(t, func(t *testing.T) Store {
		s, err := NewSQLite(filepath.Join(t.TempDir(), "trades.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestCSVStore(t *testing.T) {
	t.Parallel()
	runStoreContract(t, func(t *testing.T) Store {
		s, err := NewCSV(filepath.Join(t.TempDir(), "trades.csv"))
		require.NoError(t, err)
		return s
	})
}

func TestDuplicateTradeRejected(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	dir := t.TempDir()
	sq, err := NewSQLite(filepath.Join(dir, "dup.db"))
	require.NoError(t, err)
	defer sq.Close()
	cs, err := NewCSV(filepath.Join(dir, "dup.csv"))
	require.NoError(t, err)

	for _, s := range []Store{NewMemory(), sq, cs} {
		require.NoError(t, s.Append(ctx, sampleTrade("s", 1, 1, 1001)))
		err := s.Append(ctx, sampleTrade("s", 1, 2, 1003))
		assert.ErrorIs(t, err, ErrDuplicateTrade)

		// the same id is free in another session
		require.NoError(t, s.Append(ctx, sampleTrade("other", 1, 2, 1002)))

		recs, err := s.QueryAll(ctx, "s")
		require.NoError(t, err)
		assert.Len(t, recs, 1)
	}
}

func TestSessionRegistry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	sq, err := NewSQLite(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	defer sq.Close()

	for _, reg := range []SessionRegistry{NewMemory(), sq} {
		_, err := reg.ActiveSession(ctx)
		assert.ErrorIs(t, err, ErrNoSession)

		t0 := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
		require.NoError(t, reg.StartSession(ctx, "first", t0))
		require.NoError(t, reg.StartSession(ctx, "second", t0.Add(time.Minute)))

		id, err := reg.ActiveSession(ctx)
		require.NoError(t, err)
		assert.Equal(t, "second", id)

		// re-activating an old session is allowed
		require.NoError(t, reg.StartSession(ctx, "first", t0.Add(time.Hour)))
		id, err = reg.ActiveSession(ctx)
		require.NoError(t, err)
		assert.Equal(t, "first", id)
	}
}

func TestSQLiteGetTrade(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s, err := NewSQLite(filepath.Join(t.TempDir(), "get.db"))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Append(ctx, sampleTrade("s", 7, 3, 1003)))

	rec, err := s.GetTrade(ctx, "s", 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), rec.TradeID)

	_, err = s.GetTrade(ctx, "s", 8)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestCSVStoreHeaderAndReopen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "trades.csv")
	s, err := NewCSV(path)
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, sampleTrade("s", 1, 1.5, 1001.5)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(csvHeader, ","), lines[0])

	// reopening an existing file must not truncate it
	s2, err := NewCSV(path)
	require.NoError(t, err)
	recs, err := s2.QueryAll(ctx, "s")
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestOpen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(ctx, Options{Type: "sqlite", DBPath: filepath.Join(dir, "x.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	s, err = Open(ctx, Options{Type: "csv", CSVPath: filepath.Join(dir, "x.csv")})
	require.NoError(t, err)
	assert.IsType(t, &CSVStore{}, s)

	s, err = Open(ctx, Options{Type: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	_, err = Open(ctx, Options{Type: "sqlite"})
	assert.Error(t, err)
	_, err = Open(ctx, Options{Type: "postgres"})
	assert.Error(t, err)
	_, err = Open(ctx, Options{Type: "redis"})
	assert.Error(t, err)
	_, err = Open(ctx, Options{Type: "mongo"})
	assert.Error(t, err)
}

func TestReturnPct(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 50.0, TradeRecord{PnLDollar: 25, EntryCapital: 50}.ReturnPct(), 1e-12)
	assert.InDelta(t, -100.0, TradeRecord{PnLDollar: -20, EntryCapital: 20}.ReturnPct(), 1e-12)
	assert.Equal(t, 0.0, TradeRecord{PnLDollar: 5}.ReturnPct())
}
