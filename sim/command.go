package sim

import (
	"context"
	"fmt"
	"math"

	"github.com/rustyeddy/stepper/market"
	"github.com/rustyeddy/stepper/risk"
)

// Command is one user action. Engine.Apply dispatches on the concrete type.
type Command interface {
	Name() string
}

type (
	// AdvanceTurn reveals the next candle and resolves orders and risk.
	AdvanceTurn struct{}

	// OpenMarket opens a position at the current price.
	OpenMarket struct {
		Side market.Side
	}

	// PlaceLimitEntry replaces any pending entry.
	PlaceLimitEntry struct {
		Side  market.Side
		Price float64
	}

	CancelLimitEntry struct{}

	// PlaceLimitExit queues a partial exit of Ratio of the entry capital.
	PlaceLimitExit struct {
		Price float64
		Ratio float64
	}

	CancelLimitExits struct{}

	// ClosePosition closes Ratio of the entry capital at the current
	// price. An empty Reason is derived from the ratio.
	ClosePosition struct {
		Ratio  float64
		Reason string
	}

	// SetStopLoss sets the stop, or clears it when Price is nil.
	SetStopLoss struct {
		Price *float64
	}

	// SetLeverage applies to positions opened afterwards.
	SetLeverage struct {
		Value float64
	}

	// SetPositionRatio is the fraction of the balance committed per entry.
	SetPositionRatio struct {
		Value float64
	}

	AddLevel struct {
		Kind  LevelKind
		Price float64
	}

	RemoveLevel struct {
		Kind  LevelKind
		Index int
	}

	// ResetEpisode closes any open position and starts a new episode.
	ResetEpisode struct{}

	// Restart wipes the session's trade log and starts over with a new
	// session and a fresh ledger.
	Restart struct{}
)

func (AdvanceTurn) Name() string      { return "advance" }
func (OpenMarket) Name() string       { return "open_market" }
func (PlaceLimitEntry) Name() string  { return "limit_entry" }
func (CancelLimitEntry) Name() string { return "cancel_entry" }
func (PlaceLimitExit) Name() string   { return "limit_exit" }
func (CancelLimitExits) Name() string { return "cancel_exits" }
func (ClosePosition) Name() string    { return "close" }
func (SetStopLoss) Name() string      { return "stop_loss" }
func (SetLeverage) Name() string      { return "leverage" }
func (SetPositionRatio) Name() string { return "position_ratio" }
func (AddLevel) Name() string         { return "add_level" }
func (RemoveLevel) Name() string      { return "remove_level" }
func (ResetEpisode) Name() string     { return "reset" }
func (Restart) Name() string          { return "restart" }

// Close reasons written to the trade log.
const (
	ReasonFullExit   = "FULL EXIT"
	ReasonLimitExit  = "LIMIT EXIT"
	ReasonStopLoss   = "STOP LOSS"
	ReasonForcedExit = "FORCED EXIT"
	ReasonAutoExit   = "AUTO EXIT"
	ReasonResetExit  = "RESET EXIT"
)

func (e *Engine) dispatchLocked(ctx context.Context, cmd Command) error {
	switch c := cmd.(type) {
	case AdvanceTurn:
		return e.advanceLocked(ctx)
	case OpenMarket:
		return e.openMarketLocked(c)
	case PlaceLimitEntry:
		return e.placeEntryLocked(c)
	case CancelLimitEntry:
		e.cancelEntryLocked()
		return nil
	case PlaceLimitExit:
		return e.placeExitLocked(c)
	case CancelLimitExits:
		if n := len(e.sess.Book.Exits); n > 0 {
			e.sess.Book.Exits = nil
			e.emit(Event{Kind: EventOrderCancelled, Order: "limit_exit", Message: fmt.Sprintf("%d exits", n)})
		}
		return nil
	case ClosePosition:
		return e.closeCommandLocked(ctx, c)
	case SetStopLoss:
		return e.setStopLocked(c)
	case SetLeverage:
		if err := validateLeverage(c.Value); err != nil {
			return err
		}
		e.sess.Leverage = c.Value
		e.emit(Event{Kind: EventSettingsChanged, Message: fmt.Sprintf("leverage %gx", c.Value)})
		return nil
	case SetPositionRatio:
		if err := validateRatio(c.Value); err != nil {
			return err
		}
		e.sess.PositionRatio = c.Value
		e.emit(Event{Kind: EventSettingsChanged, Message: fmt.Sprintf("position ratio %.0f%%", c.Value*100)})
		return nil
	case AddLevel:
		return e.addLevelLocked(c)
	case RemoveLevel:
		return e.removeLevelLocked(c)
	case ResetEpisode:
		return e.resetLocked(ctx)
	case Restart:
		return e.restartLocked(ctx)
	}
	return fmt.Errorf("apply: unknown command %T", cmd)
}

func validateLeverage(v float64) error {
	if err := risk.ValidateLeverage(v); err != nil {
		return invalidOrder("leverage", "%v", err)
	}
	return nil
}

func validateRatio(v float64) error {
	if err := risk.ValidateRatio(v); err != nil {
		return invalidOrder("position ratio", "%v", err)
	}
	return nil
}

// closeRatio accepts a fraction of the entry capital in (0, 1].
func closeRatio(op string, r float64) error {
	if math.IsNaN(r) || r <= 0 || r > 1 {
		return invalidOrder(op, "ratio %.4f outside (0, 1]", r)
	}
	return nil
}

func ratioPct(r float64) int {
	return int(math.Round(r * 100))
}

func (e *Engine) openMarketLocked(c OpenMarket) error {
	const op = "open market"
	if e.sess.State() == Exhausted {
		return fmt.Errorf("%s: %w", op, ErrEpisodeExhausted)
	}
	if e.sess.Position != nil {
		return invalidOrder(op, "a %s position is already open", e.sess.Position.Side)
	}
	bar := e.currentBar()
	capital := risk.Capital(e.sess.Ledger.Balance, e.sess.PositionRatio)
	pos, err := newPosition(op, c.Side, bar.Close, capital, e.sess.Leverage, ratioPct(e.sess.PositionRatio), bar.Time)
	if err != nil {
		return err
	}
	e.cancelEntryLocked()
	e.openLocked(pos)
	return nil
}

func (e *Engine) openLocked(pos *Position) {
	e.sess.Position = pos
	e.sess.Markers = append(e.sess.Markers, entryMarker(pos.Side, pos.EntryTime, pos.EntryPrice))
	e.emit(Event{Kind: EventPositionOpened, Side: pos.Side, Price: pos.EntryPrice})
}

func (e *Engine) placeEntryLocked(c PlaceLimitEntry) error {
	const op = "limit entry"
	if e.sess.State() == Exhausted {
		return fmt.Errorf("%s: %w", op, ErrEpisodeExhausted)
	}
	switch {
	case !c.Side.Valid():
		return invalidOrder(op, "unknown side %q", c.Side)
	case math.IsNaN(c.Price) || c.Price <= 0:
		return invalidOrder(op, "price %.4f must be positive", c.Price)
	case e.sess.Position != nil:
		return invalidOrder(op, "a %s position is already open", e.sess.Position.Side)
	}
	e.sess.Book.Entry = &PendingEntry{Side: c.Side, Price: c.Price, CreatedTurn: e.sess.Turn}
	e.emit(Event{Kind: EventOrderPlaced, Order: "limit_entry", Side: c.Side, Price: c.Price})
	return nil
}

func (e *Engine) cancelEntryLocked() {
	if o := e.sess.Book.Entry; o != nil {
		e.sess.Book.Entry = nil
		e.emit(Event{Kind: EventOrderCancelled, Order: "limit_entry", Side: o.Side, Price: o.Price})
	}
}

func (e *Engine) placeExitLocked(c PlaceLimitExit) error {
	const op = "limit exit"
	if e.sess.Position == nil {
		return invalidOrder(op, "no open position")
	}
	if math.IsNaN(c.Price) || c.Price <= 0 {
		return invalidOrder(op, "price %.4f must be positive", c.Price)
	}
	if err := closeRatio(op, c.Ratio); err != nil {
		return err
	}
	x := PendingExit{
		Price:       c.Price,
		Ratio:       c.Ratio,
		Above:       c.Price >= e.currentBar().Close,
		CreatedTurn: e.sess.Turn,
	}
	e.sess.Book.Exits = append(e.sess.Book.Exits, x)
	e.emit(Event{Kind: EventOrderPlaced, Order: "limit_exit", Price: c.Price, Message: fmt.Sprintf("%d%%", ratioPct(c.Ratio))})
	return nil
}

func (e *Engine) closeCommandLocked(ctx context.Context, c ClosePosition) error {
	const op = "close"
	if e.sess.Position == nil {
		return invalidOrder(op, "no open position")
	}
	if err := closeRatio(op, c.Ratio); err != nil {
		return err
	}
	reason := c.Reason
	if reason == "" {
		reason = ReasonFullExit
		if c.Ratio < 1 {
			reason = fmt.Sprintf("%d%% EXIT", ratioPct(c.Ratio))
		}
	}
	return e.closeLocked(ctx, c.Ratio, e.currentBar().Close, reason)
}

func (e *Engine) setStopLocked(c SetStopLoss) error {
	const op = "stop loss"
	pos := e.sess.Position
	if pos == nil {
		return invalidOrder(op, "no open position")
	}
	if c.Price == nil {
		if pos.StopLoss != nil {
			pos.StopLoss = nil
			e.emit(Event{Kind: EventStopLossChanged, Side: pos.Side, Message: "cleared"})
		}
		return nil
	}

	stop := *c.Price
	price := e.currentBar().Close
	switch {
	case math.IsNaN(stop) || stop <= 0:
		return invalidOrder(op, "price %.4f must be positive", stop)
	case pos.Side == market.Long && stop >= price:
		return invalidOrder(op, "stop %.4f must be below the current price %.4f for a long", stop, price)
	case pos.Side == market.Short && stop <= price:
		return invalidOrder(op, "stop %.4f must be above the current price %.4f for a short", stop, price)
	}
	pos.StopLoss = &stop
	e.emit(Event{Kind: EventStopLossChanged, Side: pos.Side, Price: stop})
	return nil
}

func (e *Engine) addLevelLocked(c AddLevel) error {
	if c.Kind != Support && c.Kind != Resistance {
		return fmt.Errorf("add level: unknown kind %q", c.Kind)
	}
	if math.IsNaN(c.Price) || c.Price <= 0 {
		return invalidOrder("add "+string(c.Kind), "price %.4f must be positive", c.Price)
	}
	lv := e.sess.levels(c.Kind)
	*lv = append(*lv, c.Price)
	e.emit(Event{Kind: EventLevelChanged, Price: c.Price, Message: "add " + string(c.Kind)})
	return nil
}

func (e *Engine) removeLevelLocked(c RemoveLevel) error {
	if c.Kind != Support && c.Kind != Resistance {
		return fmt.Errorf("remove level: unknown kind %q", c.Kind)
	}
	lv := e.sess.levels(c.Kind)
	if c.Index < 0 || c.Index >= len(*lv) {
		return fmt.Errorf("remove %s %d: %w", c.Kind, c.Index, ErrNoSuchLevel)
	}
	price := (*lv)[c.Index]
	*lv = append((*lv)[:c.Index:c.Index], (*lv)[c.Index+1:]...)
	e.emit(Event{Kind: EventLevelChanged, Price: price, Message: "remove " + string(c.Kind)})
	return nil
}
