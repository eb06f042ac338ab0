package journal

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPostgres(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresFromDB(db), mock
}

var tradeColumnNames = []string{
	"session_id", "trade_id", "entry_time", "exit_time", "play_hours", "direction",
	"entry_price", "exit_price", "leverage", "position_ratio", "entry_capital",
	"pnl_dollar", "balance_after", "reason",
}

func TestPostgresAppend(t *testing.T) {
	rec := sampleTrade("sess", 1, 25, 1025)

	tests := []struct {
		name      string
		mockSetup func(mock sqlmock.Sqlmock)
		wantErr   error
		anyErr    bool
	}{
		{
			name: "success",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO trade_log`).
					WithArgs(
						"sess", int64(1), rec.EntryTime, rec.ExitTime, 5.0, "LONG",
						42000.5, 42100.25, 10.0, 5, 50.0, 25.0, 1025.0, "FULL EXIT",
					).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "unique violation",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO trade_log`).
					WillReturnError(&pq.Error{Code: "23505"})
			},
			wantErr: ErrDuplicateTrade,
		},
		{
			name: "database error",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO trade_log`).
					WillReturnError(errors.New("connection reset"))
			},
			anyErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newMockPostgres(t)
			tt.mockSetup(mock)

			err := store.Append(context.Background(), rec)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.anyErr:
				assert.Error(t, err)
				assert.NotErrorIs(t, err, ErrDuplicateTrade)
			default:
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresQueryAll(t *testing.T) {
	store, mock := newMockPostgres(t)

	a := sampleTrade("sess", 1, 25, 1025)
	b := sampleTrade("sess", 2, -10, 1015)
	rows := sqlmock.NewRows(tradeColumnNames)
	for _, r := range []TradeRecord{a, b} {
		rows.AddRow(r.SessionID, r.TradeID, r.EntryTime, r.ExitTime, r.PlayHours, string(r.Direction),
			r.EntryPrice, r.ExitPrice, r.Leverage, r.PositionRatioPct, r.EntryCapital,
			r.PnLDollar, r.BalanceAfter, r.Reason)
	}
	mock.ExpectQuery(`SELECT (.+) FROM trade_log WHERE session_id = \$1 ORDER BY trade_id ASC`).
		WithArgs("sess").
		WillReturnRows(rows)

	got, err := store.QueryAll(context.Background(), "sess")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, a, got[0])
	assert.Equal(t, b, got[1])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDelete(t *testing.T) {
	store, mock := newMockPostgres(t)
	mock.ExpectExec(`DELETE FROM trade_log WHERE session_id = \$1`).
		WithArgs("old").
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, store.Delete(context.Background(), "old"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresActiveSession(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		store, mock := newMockPostgres(t)
		mock.ExpectQuery(`SELECT session_id FROM session_meta`).
			WillReturnRows(sqlmock.NewRows([]string{"session_id"}).AddRow("abc"))

		id, err := store.ActiveSession(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "abc", id)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("none", func(t *testing.T) {
		store, mock := newMockPostgres(t)
		mock.ExpectQuery(`SELECT session_id FROM session_meta`).
			WillReturnError(sql.ErrNoRows)

		_, err := store.ActiveSession(context.Background())
		assert.ErrorIs(t, err, ErrNoSession)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresStartSession(t *testing.T) {
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("commit", func(t *testing.T) {
		store, mock := newMockPostgres(t)
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE session_meta SET is_active = FALSE`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO session_meta`).
			WithArgs("new", at).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, store.StartSession(context.Background(), "new", at))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rollback on insert failure", func(t *testing.T) {
		store, mock := newMockPostgres(t)
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE session_meta SET is_active = FALSE`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO session_meta`).
			WillReturnError(errors.New("boom"))
		mock.ExpectRollback()

		assert.Error(t, store.StartSession(context.Background(), "new", at))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
