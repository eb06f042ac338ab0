package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rustyeddy/stepper/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Inspect or clear the trade journal",
	Long: `Read the trade log of a session.

Subcommands:
  list  - Print the session's trades (table, --org or --json)
  show  - Print one trade
  clear - Delete the session's trades

Examples:
  stepper journal list
  stepper journal list --org > review.org
  stepper journal clear --session 1f0c... --yes`,
}

var journalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the session's trades",
	Args:  cobra.NoArgs,
	RunE:  runJournalList,
}

var journalShowCmd = &cobra.Command{
	Use:   "show <trade-id>",
	Short: "Print one trade as an Org entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalShow,
}

var journalClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the session's trades",
	Args:  cobra.NoArgs,
	RunE:  runJournalClear,
}

var (
	journalOrg  bool
	journalJSON bool
	journalYes  bool
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalListCmd)
	journalCmd.AddCommand(journalShowCmd)
	journalCmd.AddCommand(journalClearCmd)

	journalCmd.PersistentFlags().StringVarP(&sessionFlag, "session", "s", "", "session id (default: the active session)")
	journalListCmd.Flags().BoolVar(&journalOrg, "org", false, "print Org-mode entries")
	journalListCmd.Flags().BoolVar(&journalJSON, "json", false, "print JSON")
	journalClearCmd.Flags().BoolVarP(&journalYes, "yes", "y", false, "do not ask for confirmation")
}

func runJournalList(cmd *cobra.Command, args []string) error {
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

	out := cmd.OutOrStdout()
	switch {
	case journalJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(recs)
	case journalOrg:
		fmt.Fprintln(out, journal.FormatTradesOrg(recs))
		return nil
	}
	writeTradeTable(out, recs)
	return nil
}

func writeTradeTable(out io.Writer, recs []journal.TradeRecord) {
	if len(recs) == 0 {
		fmt.Fprintln(out, "no trades")
		return
	}
	fmt.Fprintf(out, "%4s  %-5s  %12s  %12s  %5s  %9s  %10s  %11s  %s\n",
		"ID", "SIDE", "ENTRY", "EXIT", "LEV", "CAPITAL", "PNL", "BALANCE", "REASON")
	for _, r := range recs {
		fmt.Fprintf(out, "%4d  %-5s  %12.2f  %12.2f  %4gx  %9.2f  %10.2f  %11.2f  %s\n",
			r.TradeID, r.Direction, r.EntryPrice, r.ExitPrice, r.Leverage,
			r.EntryCapital, r.PnLDollar, r.BalanceAfter, r.Reason)
	}
}

// tradeGetter is implemented by stores that can fetch a single row.
type tradeGetter interface {
	GetTrade(ctx context.Context, sessionID string, tradeID int64) (journal.TradeRecord, error)
}

func runJournalShow(cmd *cobra.Command, args []string) error {
	tradeID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("bad trade id %q", args[0])
	}
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
	rec, err := findTrade(ctx, store, sessionID, tradeID)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), journal.FormatTradeOrg(rec))
	return nil
}

func findTrade(ctx context.Context, store journal.Store, sessionID string, tradeID int64) (journal.TradeRecord, error) {
	if g, ok := store.(tradeGetter); ok {
		return g.GetTrade(ctx, sessionID, tradeID)
	}
	recs, err := store.QueryAll(ctx, sessionID)
	if err != nil {
		return journal.TradeRecord{}, err
	}
	for _, rec := range recs {
		if rec.TradeID == tradeID {
			return rec, nil
		}
	}
	return journal.TradeRecord{}, fmt.Errorf("trade %d not found in %s", tradeID, sessionID)
}

func runJournalClear(cmd *cobra.Command, args []string) error {
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
	if !journalYes {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return fmt.Errorf("refusing to clear %s without --yes", sessionID)
		}
		if !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), fmt.Sprintf("Delete every trade of session %s?", sessionID)) {
			return nil
		}
	}
	if err := store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("clear journal: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Cleared session %s\n", sessionID)
	return nil
}

func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N] ", question)
	line, _ := bufio.NewReader(in).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
