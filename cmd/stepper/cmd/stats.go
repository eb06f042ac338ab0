package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/stepper/journal"
	"github.com/rustyeddy/stepper/ledger"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show performance rebuilt from the trade journal",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

var statsJSON bool

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().StringVarP(&sessionFlag, "session", "s", "", "session id (default: the active session)")
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "print JSON")
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	store, err := openJournal(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	sessionID, err := resolveSessionID(ctx, cfg, store)
	if err != nil {
		return err
	}
	recs, err := store.QueryAll(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}
	return writeStats(cmd.OutOrStdout(), sessionID, recs, statsJSON)
}

func writeStats(out io.Writer, sessionID string, recs []journal.TradeRecord, asJSON bool) error {
	l, warnings, err := ledger.Restore(recs)
	if err != nil {
		return err
	}
	s := ledger.Summarize(recs)

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			SessionID string        `json:"session_id"`
			Ledger    ledger.Ledger `json:"ledger"`
			Stats     ledger.Stats  `json:"stats"`
		}{sessionID, l, s})
	}

	fmt.Fprintf(out, "Session   %s\n", sessionID)
	fmt.Fprintf(out, "Balance   $%.2f (total pnl %+.2f)\n", l.Balance, l.TotalPnL)
	fmt.Fprintf(out, "Trades    %d (%d win / %d lose, %.1f%%)\n", l.Trades, l.Wins, l.Losses, l.WinRate())
	fmt.Fprintf(out, "Return    avg %+.2f%%  win %+.2f%%  lose %+.2f%%\n", s.AvgReturn, s.AvgWinReturn, s.AvgLossReturn)
	if s.Trades > 0 {
		fmt.Fprintf(out, "Range     best %+.2f  worst %+.2f\n", s.BestPnL, s.WorstPnL)
	}
	for _, w := range warnings {
		fmt.Fprintf(out, "warning: %s\n", w)
	}
	return nil
}
