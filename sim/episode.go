package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/rustyeddy/stepper/id"
	"github.com/rustyeddy/stepper/journal"
)

// advanceLocked reveals one more candle, then resolves the pending entry,
// the exit queue and the risk checks in that order. Spending the last turn
// closes whatever is still open.
func (e *Engine) advanceLocked(ctx context.Context) error {
	if e.sess.State() == Exhausted {
		return fmt.Errorf("advance: %w", ErrEpisodeExhausted)
	}
	e.sess.Turn++
	bar := e.currentBar()
	e.emit(Event{Kind: EventTurnAdvanced, Price: bar.Close})

	e.resolveEntryLocked(bar)
	if err := e.resolveExitsLocked(ctx, bar); err != nil {
		return err
	}
	if err := e.checkRiskLocked(ctx); err != nil {
		return err
	}

	if e.sess.State() == Exhausted {
		if e.sess.Position != nil {
			if err := e.closeLocked(ctx, 1, bar.Close, ReasonAutoExit); err != nil {
				return err
			}
		}
		e.emit(Event{Kind: EventEpisodeExhausted, Price: bar.Close})
	}
	return nil
}

// newEpisodeLocked picks a random start that leaves room for the whole
// turn budget and clears everything tied to the previous episode.
func (e *Engine) newEpisodeLocked() error {
	s := e.sess
	start, err := e.feed.PickStart(e.rng, s.Window+s.MaxTurns)
	if err != nil {
		return fmt.Errorf("new episode: %w", err)
	}
	s.EpisodeID = id.New()
	s.Start = start
	s.Turn = 0
	s.Position = nil
	s.Book = OrderBook{}
	s.Supports = nil
	s.Resistances = nil
	s.Markers = nil
	return nil
}

func (e *Engine) resetLocked(ctx context.Context) error {
	if e.sess.Position != nil {
		if err := e.closeLocked(ctx, 1, e.currentBar().Close, ReasonResetExit); err != nil {
			return err
		}
	}
	if err := e.newEpisodeLocked(); err != nil {
		return err
	}
	e.emit(Event{Kind: EventEpisodeReset, Message: e.sess.EpisodeID})
	return nil
}

// restartLocked deletes the session's log and continues under a new
// session id with a fresh ledger. An open position is dropped, not closed.
func (e *Engine) restartLocked(ctx context.Context) error {
	old := e.sess.ID
	if err := e.store.Delete(ctx, old); err != nil {
		return fmt.Errorf("restart: delete log %s: %w", old, err)
	}

	fresh := id.Session()
	if reg, ok := e.store.(journal.SessionRegistry); ok {
		if err := reg.StartSession(ctx, fresh, time.Now()); err != nil {
			return fmt.Errorf("restart: start session: %w", err)
		}
	}

	e.sess.ID = fresh
	e.sess.Ledger.Reset()
	if err := e.newEpisodeLocked(); err != nil {
		return err
	}
	e.emit(Event{Kind: EventSessionRestarted, Message: old})
	e.emit(Event{Kind: EventEpisodeReset, Message: e.sess.EpisodeID})
	return nil
}
