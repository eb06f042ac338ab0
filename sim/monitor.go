package sim

import (
	"context"
	"fmt"
	"math"

	"github.com/rustyeddy/stepper/journal"
	"github.com/rustyeddy/stepper/market"
	"github.com/rustyeddy/stepper/risk"
)

// resolveEntryLocked fills the pending entry when bar trades through it.
// The fill is at the limit price, not the bar close.
func (e *Engine) resolveEntryLocked(bar market.Candle) {
	o := e.sess.Book.Entry
	if o == nil || e.sess.Position != nil || !o.Triggered(bar) {
		return
	}
	e.sess.Book.Entry = nil

	capital := risk.Capital(e.sess.Ledger.Balance, e.sess.PositionRatio)
	pos, err := newPosition("limit fill", o.Side, o.Price, capital, e.sess.Leverage, ratioPct(e.sess.PositionRatio), bar.Time)
	if err != nil {
		e.emit(Event{Kind: EventOrderRejected, Order: "limit_entry", Side: o.Side, Price: o.Price, Message: err.Error()})
		return
	}
	e.emit(Event{Kind: EventOrderFilled, Order: "limit_entry", Side: o.Side, Price: o.Price})
	e.openLocked(pos)
}

// resolveExitsLocked walks the exit queue in order. A triggered exit fills
// at its own price and leaves the queue; a full close drops the rest.
func (e *Engine) resolveExitsLocked(ctx context.Context, bar market.Candle) error {
	queue := e.sess.Book.Exits
	if e.sess.Position == nil || len(queue) == 0 {
		return nil
	}

	var keep []PendingExit
	for i, x := range queue {
		if e.sess.Position == nil {
			break
		}
		if !x.Triggered(bar) {
			keep = append(keep, x)
			continue
		}
		// the filled exit leaves the book before the close is booked
		e.sess.Book.Exits = append(append([]PendingExit(nil), keep...), queue[i+1:]...)
		e.emit(Event{Kind: EventOrderFilled, Order: "limit_exit", Price: x.Price, Message: fmt.Sprintf("%d%%", ratioPct(x.Ratio))})
		if err := e.closeLocked(ctx, x.Ratio, x.Price, ReasonLimitExit); err != nil {
			return err
		}
	}
	if e.sess.Position == nil {
		keep = nil
	}
	e.sess.Book.Exits = keep
	return nil
}

// checkRiskLocked runs the stop-loss and then forced liquidation against
// the close of the current bar.
func (e *Engine) checkRiskLocked(ctx context.Context) error {
	pos := e.sess.Position
	if pos == nil {
		return nil
	}
	price := e.currentBar().Close
	switch risk.Evaluate(pos.exposure(), price) {
	case risk.StopLoss:
		return e.closeLocked(ctx, 1, price, ReasonStopLoss)
	case risk.Liquidation:
		return e.realizeLocked(ctx, pos.Remaining, price, -pos.OpenCapital(), ReasonForcedExit)
	}
	return nil
}

// closeLocked realizes ratio of the entry capital at price. The ratio is
// clamped to what is still open and the loss to the capital closed.
func (e *Engine) closeLocked(ctx context.Context, ratio, price float64, reason string) error {
	pos := e.sess.Position
	frac := math.Min(ratio, pos.Remaining)
	pnl := risk.RealizedPnL(pos.Side, pos.EntryPrice, pos.EntryCapital*frac, pos.Leverage, price)
	return e.realizeLocked(ctx, frac, price, pnl, reason)
}

// realizeLocked books pnl for frac of the entry capital, queues the trade
// record and shrinks or removes the position.
func (e *Engine) realizeLocked(ctx context.Context, frac, price, pnl float64, reason string) error {
	s := e.sess
	pos := s.Position
	bar := e.currentBar()

	tradeID := s.Ledger.Record(pnl)
	rec := journal.TradeRecord{
		SessionID:        s.ID,
		TradeID:          tradeID,
		EntryTime:        pos.EntryTime,
		ExitTime:         bar.Time,
		PlayHours:        bar.Time.Sub(pos.EntryTime).Hours(),
		Direction:        pos.Side,
		EntryPrice:       pos.EntryPrice,
		ExitPrice:        price,
		Leverage:         pos.Leverage,
		PositionRatioPct: pos.RatioPct,
		EntryCapital:     pos.EntryCapital * frac,
		PnLDollar:        pnl,
		BalanceAfter:     s.Ledger.Balance,
		Reason:           reason,
	}
	pos.Remaining -= frac
	if pos.Remaining <= dust {
		s.Position = nil
		s.Book.Exits = nil
	}
	s.Markers = append(s.Markers, exitMarker(reason, bar.Time, price, pnl))
	e.emit(Event{Kind: EventPositionClosed, Side: rec.Direction, Price: price, Trade: &rec})

	// The write happens once the whole command has succeeded.
	e.pending = append(e.pending, pendingTrade{rec: rec, after: s.clone(), events: len(e.events)})
	return nil
}
