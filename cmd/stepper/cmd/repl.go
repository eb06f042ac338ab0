package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rustyeddy/stepper/id"
	"github.com/rustyeddy/stepper/ledger"
	"github.com/rustyeddy/stepper/market"
	"github.com/rustyeddy/stepper/sim"
)

// replAction is one parsed input line. Exactly one of cmd or meta is set.
type replAction struct {
	cmd    sim.Command
	meta   string
	repeat int
}

const replHelp = `commands:
  next [n]                 advance n turns (default 1)
  long | short             open at the current price
  close [pct]              close pct of the entry capital (default 100)
  limit long|short <price> place a limit entry
  cancel                   cancel the limit entry
  exit <price> <pct>       queue a partial exit
  exits clear              cancel every queued exit
  stop <price>|clear       set or clear the stop loss
  lev <n>                  leverage for the next entry
  ratio <pct>              percent of the balance per entry
  support <price>          add a support line
  resistance <price>       add a resistance line
  unsupport <n>            remove support line n
  unresist <n>             remove resistance line n
  status | view | stats    show the session
  reset                    new episode (closes the position)
  restart                  delete the log and start a new session
  quit`

func parseLine(line string) (replAction, error) {
	f := strings.Fields(strings.ToLower(line))
	if len(f) == 0 {
		return replAction{}, nil
	}
	word, rest := f[0], f[1:]

	switch word {
	case "next", "n":
		n := 1
		if len(rest) > 0 {
			v, err := strconv.Atoi(rest[0])
			if err != nil || v < 1 {
				return replAction{}, fmt.Errorf("next: bad count %q", rest[0])
			}
			n = v
		}
		return replAction{cmd: sim.AdvanceTurn{}, repeat: n}, nil

	case "long", "short":
		side, _ := market.ParseSide(word)
		return replAction{cmd: sim.OpenMarket{Side: side}}, nil

	case "close":
		pct := 100.0
		if len(rest) > 0 {
			v, err := parseNumber(word, rest[0])
			if err != nil {
				return replAction{}, err
			}
			pct = v
		}
		return replAction{cmd: sim.ClosePosition{Ratio: pct / 100}}, nil

	case "limit":
		if len(rest) != 2 {
			return replAction{}, errors.New("usage: limit long|short <price>")
		}
		side, err := market.ParseSide(rest[0])
		if err != nil {
			return replAction{}, err
		}
		price, err := parseNumber(word, rest[1])
		if err != nil {
			return replAction{}, err
		}
		return replAction{cmd: sim.PlaceLimitEntry{Side: side, Price: price}}, nil

	case "cancel":
		return replAction{cmd: sim.CancelLimitEntry{}}, nil

	case "exit":
		if len(rest) != 2 {
			return replAction{}, errors.New("usage: exit <price> <pct>")
		}
		price, err := parseNumber(word, rest[0])
		if err != nil {
			return replAction{}, err
		}
		pct, err := parseNumber(word, rest[1])
		if err != nil {
			return replAction{}, err
		}
		return replAction{cmd: sim.PlaceLimitExit{Price: price, Ratio: pct / 100}}, nil

	case "exits":
		if len(rest) != 1 || rest[0] != "clear" {
			return replAction{}, errors.New("usage: exits clear")
		}
		return replAction{cmd: sim.CancelLimitExits{}}, nil

	case "stop":
		if len(rest) != 1 {
			return replAction{}, errors.New("usage: stop <price>|clear")
		}
		if rest[0] == "clear" {
			return replAction{cmd: sim.SetStopLoss{}}, nil
		}
		price, err := parseNumber(word, rest[0])
		if err != nil {
			return replAction{}, err
		}
		return replAction{cmd: sim.SetStopLoss{Price: &price}}, nil

	case "lev", "leverage":
		if len(rest) != 1 {
			return replAction{}, errors.New("usage: lev <n>")
		}
		v, err := parseNumber(word, rest[0])
		if err != nil {
			return replAction{}, err
		}
		return replAction{cmd: sim.SetLeverage{Value: v}}, nil

	case "ratio":
		if len(rest) != 1 {
			return replAction{}, errors.New("usage: ratio <pct>")
		}
		v, err := parseNumber(word, rest[0])
		if err != nil {
			return replAction{}, err
		}
		return replAction{cmd: sim.SetPositionRatio{Value: v / 100}}, nil

	case "support", "resistance":
		if len(rest) != 1 {
			return replAction{}, fmt.Errorf("usage: %s <price>", word)
		}
		price, err := parseNumber(word, rest[0])
		if err != nil {
			return replAction{}, err
		}
		return replAction{cmd: sim.AddLevel{Kind: sim.LevelKind(word), Price: price}}, nil

	case "unsupport", "unresist":
		if len(rest) != 1 {
			return replAction{}, fmt.Errorf("usage: %s <n>", word)
		}
		n, err := strconv.Atoi(rest[0])
		if err != nil || n < 1 {
			return replAction{}, fmt.Errorf("%s: bad index %q", word, rest[0])
		}
		kind := sim.Support
		if word == "unresist" {
			kind = sim.Resistance
		}
		return replAction{cmd: sim.RemoveLevel{Kind: kind, Index: n - 1}}, nil

	case "reset":
		return replAction{cmd: sim.ResetEpisode{}}, nil
	case "restart":
		return replAction{cmd: sim.Restart{}}, nil

	case "status", "view", "stats", "help":
		return replAction{meta: word}, nil
	case "quit", "q":
		return replAction{meta: "quit"}, nil
	}
	return replAction{}, fmt.Errorf("unknown command %q (try help)", word)
}

func parseNumber(op, s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
	if err != nil {
		return 0, fmt.Errorf("%s: bad number %q", op, s)
	}
	return v, nil
}

// runREPL reads commands from in until EOF, quit or ctx is done.
func runREPL(ctx context.Context, eng *sim.Engine, in io.Reader, out io.Writer, prompt string) error {
	printBanner(out, eng.Status())
	printStatus(out, eng.Status())

	sc := bufio.NewScanner(in)
	for {
		if prompt != "" {
			fmt.Fprint(out, prompt)
		}
		if !sc.Scan() {
			return sc.Err()
		}
		if err := ctx.Err(); err != nil {
			return nil
		}

		act, err := parseLine(sc.Text())
		if err != nil {
			fmt.Fprintln(out, err)
			continue
		}

		switch act.meta {
		case "":
		case "quit":
			return nil
		case "help":
			fmt.Fprintln(out, replHelp)
			continue
		case "status":
			printStatus(out, eng.Status())
			continue
		case "view":
			if err := writeJSON(out, eng.View()); err != nil {
				return err
			}
			continue
		case "stats":
			st := eng.Status()
			recs, err := eng.Trades(ctx)
			if err != nil {
				fmt.Fprintln(out, err)
				continue
			}
			if err := writeStats(out, st.SessionID, recs, false); err != nil {
				fmt.Fprintln(out, err)
			}
			continue
		}
		if act.cmd == nil {
			continue
		}

		repeat := max(act.repeat, 1)
		for i := 0; i < repeat; i++ {
			events, err := eng.Apply(ctx, act.cmd)
			for _, ev := range events {
				if msg := describeEvent(ev); msg != "" {
					fmt.Fprintln(out, msg)
				}
			}
			if err != nil {
				if errors.Is(err, sim.ErrEpisodeExhausted) {
					fmt.Fprintln(out, "episode over, type 'reset' for a new one")
				} else {
					fmt.Fprintln(out, "error:", err)
				}
				break
			}
			sess := eng.Session()
			if sess.State() == sim.Exhausted {
				break
			}
		}
		printStatus(out, eng.Status())
	}
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printBanner(out io.Writer, st sim.Status) {
	fmt.Fprintf(out, "session %s  episode %s", st.SessionID, st.EpisodeID)
	if at, err := id.Time(st.EpisodeID); err == nil {
		fmt.Fprintf(out, " (started %s)", at.Local().Format("15:04:05"))
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "balance $%.2f  leverage %gx  ratio %.0f%%  turns %d\n",
		st.Balance, st.Leverage, st.PositionRatio*100, st.MaxTurns)
}

func printStatus(out io.Writer, st sim.Status) {
	fmt.Fprintf(out, "[%d/%d] %s  price %.2f  balance $%.2f",
		st.Turn, st.MaxTurns, st.Time.Format("2006-01-02 15:04"), st.Price, st.Balance)
	if p := st.Position; p != nil {
		fmt.Fprintf(out, "  %s %.2f x%g  pnl %+.2f (%+.2f%%)",
			p.Side, p.EntryPrice, p.Leverage, st.UnrealizedPnL, st.UnrealizedPct)
		if p.StopLoss != nil {
			fmt.Fprintf(out, "  stop %.2f", *p.StopLoss)
		}
	}
	if o := st.PendingEntry; o != nil {
		fmt.Fprintf(out, "  limit %s %.2f", o.Side, o.Price)
	}
	if n := len(st.PendingExits); n > 0 {
		fmt.Fprintf(out, "  exits %d", n)
	}
	fmt.Fprintln(out)
}

func describeEvent(ev sim.Event) string {
	switch ev.Kind {
	case sim.EventPositionOpened:
		return fmt.Sprintf("opened %s at %.2f", ev.Side, ev.Price)
	case sim.EventPositionClosed:
		if t := ev.Trade; t != nil {
			return fmt.Sprintf("closed #%d %s at %.2f: %+.2f (%s), balance $%.2f",
				t.TradeID, t.Direction, t.ExitPrice, t.PnLDollar, t.Reason, t.BalanceAfter)
		}
	case sim.EventOrderPlaced:
		return strings.TrimSpace(fmt.Sprintf("%s placed at %.2f %s", ev.Order, ev.Price, ev.Message))
	case sim.EventOrderCancelled:
		return ev.Order + " cancelled"
	case sim.EventStopLossChanged:
		if ev.Message != "" {
			return "stop " + ev.Message
		}
		return fmt.Sprintf("stop at %.2f", ev.Price)
	case sim.EventSettingsChanged:
		return ev.Message
	case sim.EventLevelChanged:
		return fmt.Sprintf("%s %.2f", ev.Message, ev.Price)
	case sim.EventOrderFilled:
		return fmt.Sprintf("%s filled at %.2f", ev.Order, ev.Price)
	case sim.EventOrderRejected:
		return fmt.Sprintf("%s rejected: %s", ev.Order, ev.Message)
	case sim.EventEpisodeExhausted:
		return "episode over, type 'reset' for a new one"
	case sim.EventEpisodeReset:
		return "new episode " + ev.Message
	case sim.EventSessionRestarted:
		return fmt.Sprintf("log of %s deleted, balance reset to $%.2f", ev.Message, ledger.InitialBalance)
	}
	return ""
}
