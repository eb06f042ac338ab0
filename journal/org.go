package journal

import (
	"fmt"
	"strings"
	"time"
)

// FormatTradeOrg renders a TradeRecord as an Org-mode block. Structured facts
// go in a PROPERTIES drawer; the Review heading is left for notes.
func FormatTradeOrg(t TradeRecord) string {
	heading := fmt.Sprintf("** Trade #%d: %s %s (%s)", t.TradeID, t.Direction, signed(t.PnLDollar), t.Reason)
	entry := t.EntryTime.UTC().Format(time.RFC3339)
	exit := t.ExitTime.UTC().Format(time.RFC3339)

	var b strings.Builder
	b.WriteString(heading)
	b.WriteString("\n")
	b.WriteString(":PROPERTIES:\n")
	b.WriteString(fmt.Sprintf(":SESSION_ID: %s\n", t.SessionID))
	b.WriteString(fmt.Sprintf(":TRADE_ID: %d\n", t.TradeID))
	b.WriteString(fmt.Sprintf(":DIRECTION: %s\n", t.Direction))
	b.WriteString(fmt.Sprintf(":ENTRY_PRICE: %.2f\n", t.EntryPrice))
	b.WriteString(fmt.Sprintf(":EXIT_PRICE: %.2f\n", t.ExitPrice))
	b.WriteString(fmt.Sprintf(":ENTRY_TIME: %s\n", entry))
	b.WriteString(fmt.Sprintf(":EXIT_TIME: %s\n", exit))
	b.WriteString(fmt.Sprintf(":PLAY_HOURS: %.1f\n", t.PlayHours))
	b.WriteString(fmt.Sprintf(":LEVERAGE: %gx\n", t.Leverage))
	b.WriteString(fmt.Sprintf(":POSITION_RATIO: %d%%\n", t.PositionRatioPct))
	b.WriteString(fmt.Sprintf(":ENTRY_CAPITAL: %.2f\n", t.EntryCapital))
	b.WriteString(fmt.Sprintf(":PNL: %.2f\n", t.PnLDollar))
	b.WriteString(fmt.Sprintf(":RETURN_PCT: %.2f\n", t.ReturnPct()))
	b.WriteString(fmt.Sprintf(":BALANCE_AFTER: %.2f\n", t.BalanceAfter))
	b.WriteString(fmt.Sprintf(":REASON: %s\n", t.Reason))
	b.WriteString(":END:\n")
	b.WriteString("\n")
	b.WriteString("*** Review\n- \n")

	return b.String()
}

// FormatTradesOrg renders multiple trades separated by blank lines.
func FormatTradesOrg(trades []TradeRecord) string {
	var b strings.Builder
	for i, t := range trades {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(FormatTradeOrg(t))
	}
	return b.String()
}

func signed(x float64) string {
	if x >= 0 {
		return fmt.Sprintf("+$%.2f", x)
	}
	return fmt.Sprintf("-$%.2f", -x)
}
