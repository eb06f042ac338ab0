package ledger

import "github.com/rustyeddy/stepper/journal"

// Stats summarizes returns on committed capital across a trade log.
type Stats struct {
	Trades        int     `json:"trades"`
	Wins          int     `json:"wins"`
	Losses        int     `json:"losses"`
	WinRate       float64 `json:"win_rate"`
	AvgReturn     float64 `json:"avg_return_pct"`
	AvgWinReturn  float64 `json:"avg_win_return_pct"`
	AvgLossReturn float64 `json:"avg_loss_return_pct"`
	TotalPnL      float64 `json:"total_pnl"`
	BestPnL       float64 `json:"best_pnl"`
	WorstPnL      float64 `json:"worst_pnl"`
}

func Summarize(records []journal.TradeRecord) Stats {
	var (
		s                   Stats
		sum, winSum, losSum float64
	)
	for i, rec := range records {
		r := rec.ReturnPct()
		sum += r
		s.TotalPnL += rec.PnLDollar
		if i == 0 || rec.PnLDollar > s.BestPnL {
			s.BestPnL = rec.PnLDollar
		}
		if i == 0 || rec.PnLDollar < s.WorstPnL {
			s.WorstPnL = rec.PnLDollar
		}
		if rec.PnLDollar > 0 {
			s.Wins++
			winSum += r
		} else {
			s.Losses++
			losSum += r
		}
	}

	s.Trades = len(records)
	if s.Trades == 0 {
		return s
	}
	s.WinRate = float64(s.Wins) / float64(s.Trades) * 100
	s.AvgReturn = sum / float64(s.Trades)
	if s.Wins > 0 {
		s.AvgWinReturn = winSum / float64(s.Wins)
	}
	if s.Losses > 0 {
		s.AvgLossReturn = losSum / float64(s.Losses)
	}
	return s
}
