package journal

import (
	"database/sql"
	"sort"

	"github.com/rustyeddy/stepper/market"
)

func scanTrades(rows *sql.Rows) ([]TradeRecord, error) {
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var (
			rec       TradeRecord
			direction string
		)
		if err := rows.Scan(
			&rec.SessionID,
			&rec.TradeID,
			&rec.EntryTime,
			&rec.ExitTime,
			&rec.PlayHours,
			&direction,
			&rec.EntryPrice,
			&rec.ExitPrice,
			&rec.Leverage,
			&rec.PositionRatioPct,
			&rec.EntryCapital,
			&rec.PnLDollar,
			&rec.BalanceAfter,
			&rec.Reason,
		); err != nil {
			return nil, err
		}
		rec.Direction = market.Side(direction)
		rec.EntryTime = rec.EntryTime.UTC()
		rec.ExitTime = rec.ExitTime.UTC()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func tradeArgs(t TradeRecord) []any {
	return []any{
		t.SessionID, t.TradeID, t.EntryTime.UTC(), t.ExitTime.UTC(), t.PlayHours,
		string(t.Direction), t.EntryPrice, t.ExitPrice, t.Leverage,
		t.PositionRatioPct, t.EntryCapital, t.PnLDollar, t.BalanceAfter, t.Reason,
	}
}

func sortByTradeID(recs []TradeRecord) {
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].TradeID < recs[j].TradeID })
}
