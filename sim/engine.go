// Package sim runs the turn-based trading game: one session, one open
// position at most, and a window of candles that grows by one bar per turn.
package sim

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/stepper/id"
	"github.com/rustyeddy/stepper/journal"
	"github.com/rustyeddy/stepper/ledger"
	"github.com/rustyeddy/stepper/market"
	"github.com/rustyeddy/stepper/market/indicators"
)

const (
	DefaultWindow        = 300
	DefaultMaxTurns      = 50
	DefaultLeverage      = 5.0
	DefaultPositionRatio = 0.05
)

// Recorder receives engine activity once a command has committed.
type Recorder interface {
	TradeClosed(direction, reason string, pnl float64)
	Balance(v float64)
	TurnAdvanced()
	OrderPlaced(kind string)
	EpisodeStarted()
}

type nopRecorder struct{}

func (nopRecorder) TradeClosed(string, string, float64) {}
func (nopRecorder) Balance(float64)                     {}
func (nopRecorder) TurnAdvanced()                       {}
func (nopRecorder) OrderPlaced(string)                  {}
func (nopRecorder) EpisodeStarted()                     {}

// Engine owns a Session and applies commands to it. It is safe for
// concurrent use; commands are serialized.
type Engine struct {
	mu    sync.Mutex
	feed  *market.CandleSet
	store journal.Store
	log   *zap.Logger
	rec   Recorder
	rng   *rand.Rand

	sessionID     string
	window        int
	maxTurns      int
	leverage      float64
	positionRatio float64
	overlays      []indicators.Indicator

	sess    *Session
	events  []Event
	pending []pendingTrade
}

// pendingTrade is a trade record waiting to be written, with the session
// and event count as they stood right after it was booked.
type pendingTrade struct {
	rec    journal.TradeRecord
	after  *Session
	events int
}

type Option func(*Engine)

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.rec = r
		}
	}
}

// WithSeed makes episode start selection reproducible.
func WithSeed(seed int64) Option {
	return func(e *Engine) { e.rng = rand.New(rand.NewSource(seed)) }
}

// WithSession resumes the given session instead of the registry's active
// one.
func WithSession(id string) Option {
	return func(e *Engine) { e.sessionID = id }
}

func WithWindow(n int) Option {
	return func(e *Engine) { e.window = n }
}

func WithMaxTurns(n int) Option {
	return func(e *Engine) { e.maxTurns = n }
}

func WithLeverage(v float64) Option {
	return func(e *Engine) { e.leverage = v }
}

func WithPositionRatio(v float64) Option {
	return func(e *Engine) { e.positionRatio = v }
}

// WithIndicators adds line overlays computed over the visible candles.
func WithIndicators(inds ...indicators.Indicator) Option {
	return func(e *Engine) { e.overlays = append(e.overlays, inds...) }
}

// New resumes or starts a session over feed. The ledger is rebuilt from
// the session's trade log, and the feed must hold at least one full
// episode (window plus turn budget) or an InsufficientDataError is
// returned.
func New(ctx context.Context, feed *market.CandleSet, store journal.Store, opts ...Option) (*Engine, error) {
	e := &Engine{
		feed:          feed,
		store:         store,
		log:           zap.NewNop(),
		rec:           nopRecorder{},
		window:        DefaultWindow,
		maxTurns:      DefaultMaxTurns,
		leverage:      DefaultLeverage,
		positionRatio: DefaultPositionRatio,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	if feed == nil || store == nil {
		return nil, errors.New("new engine: feed and store are required")
	}
	if e.window < 1 || e.maxTurns < 1 {
		return nil, fmt.Errorf("new engine: window %d and max turns %d must be positive", e.window, e.maxTurns)
	}
	if err := feed.Require(e.window + e.maxTurns); err != nil {
		return nil, fmt.Errorf("new engine: %w", err)
	}

	sessionID, err := e.resolveSession(ctx)
	if err != nil {
		return nil, err
	}

	e.sess = &Session{
		ID:            sessionID,
		Window:        e.window,
		MaxTurns:      e.maxTurns,
		Leverage:      e.leverage,
		PositionRatio: e.positionRatio,
	}
	if err := e.validateSettings(); err != nil {
		return nil, err
	}
	if err := e.restoreLocked(ctx); err != nil {
		return nil, err
	}
	if err := e.newEpisodeLocked(); err != nil {
		return nil, err
	}
	e.events = nil

	e.log.Info("session ready",
		zap.String("session", sessionID),
		zap.String("episode", e.sess.EpisodeID),
		zap.Int("start", e.sess.Start),
		zap.Float64("balance", e.sess.Ledger.Balance),
		zap.Int64("trades", e.sess.Ledger.Trades),
	)
	e.rec.Balance(e.sess.Ledger.Balance)
	e.rec.EpisodeStarted()
	return e, nil
}

func (e *Engine) validateSettings() error {
	if err := validateLeverage(e.sess.Leverage); err != nil {
		return fmt.Errorf("new engine: %w", err)
	}
	if err := validateRatio(e.sess.PositionRatio); err != nil {
		return fmt.Errorf("new engine: %w", err)
	}
	return nil
}

// resolveSession picks the session to resume: an explicit id first, then
// the store's active session, else a fresh one.
func (e *Engine) resolveSession(ctx context.Context) (string, error) {
	reg, hasRegistry := e.store.(journal.SessionRegistry)

	if e.sessionID != "" {
		if hasRegistry {
			if err := reg.StartSession(ctx, e.sessionID, time.Now()); err != nil {
				return "", fmt.Errorf("activate session %s: %w", e.sessionID, err)
			}
		}
		return e.sessionID, nil
	}
	if !hasRegistry {
		return id.Session(), nil
	}

	active, err := reg.ActiveSession(ctx)
	switch {
	case err == nil:
		return active, nil
	case !errors.Is(err, journal.ErrNoSession):
		return "", fmt.Errorf("active session: %w", err)
	}
	fresh := id.Session()
	if err := reg.StartSession(ctx, fresh, time.Now()); err != nil {
		return "", fmt.Errorf("start session %s: %w", fresh, err)
	}
	return fresh, nil
}

// restoreLocked rebuilds the ledger from the trade log.
func (e *Engine) restoreLocked(ctx context.Context) error {
	records, err := e.store.QueryAll(ctx, e.sess.ID)
	if err != nil {
		return fmt.Errorf("restore %s: %w", e.sess.ID, err)
	}
	l, warnings, err := ledger.Restore(records)
	if err != nil {
		return fmt.Errorf("restore %s: %w", e.sess.ID, err)
	}
	for _, w := range warnings {
		e.log.Warn("stored balance disagrees with log",
			zap.Int64("trade_id", w.TradeID),
			zap.Float64("stored", w.Stored),
			zap.Float64("computed", w.Computed),
		)
	}
	e.sess.Ledger = l
	return nil
}

// Restore re-derives the ledger from the trade log. Calling it any number
// of times gives the same ledger.
func (e *Engine) Restore(ctx context.Context) (ledger.Ledger, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	saved := e.sess.Ledger
	if err := e.restoreLocked(ctx); err != nil {
		e.sess.Ledger = saved
		return saved, err
	}
	return e.sess.Ledger, nil
}

// Apply runs one command to completion. On error the session is left
// exactly as it was before the call, with one exception: when the trade log
// fails after some of the command's records were written, the session is
// kept at the state of the last written record, and the events up to that
// point are returned together with the error.
func (e *Engine) Apply(ctx context.Context, cmd Command) ([]Event, error) {
	if cmd == nil {
		return nil, errors.New("apply: nil command")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	saved := e.sess.clone()
	e.events, e.pending = nil, nil
	defer func() { e.events, e.pending = nil, nil }()

	if err := e.dispatchLocked(ctx, cmd); err != nil {
		e.sess = saved
		e.log.Debug("command rejected", zap.String("command", cmd.Name()), zap.Error(err))
		return nil, err
	}

	events, err := e.flushLocked(ctx, saved)
	e.publish(events)
	return events, err
}

// flushLocked writes the records booked by the current command in order.
// It returns the events that stand committed.
func (e *Engine) flushLocked(ctx context.Context, saved *Session) ([]Event, error) {
	for i, p := range e.pending {
		err := e.store.Append(ctx, p.rec)
		if err == nil {
			continue
		}
		err = fmt.Errorf("record trade %d: %w", p.rec.TradeID, err)
		if i == 0 {
			e.sess = saved
			e.log.Debug("command rejected", zap.Error(err))
			return nil, err
		}

		last := e.pending[i-1]
		e.sess = last.after
		if rerr := e.restoreLocked(ctx); rerr != nil {
			e.log.Error("restore after partial write", zap.Error(rerr))
		}
		e.log.Warn("trade log write failed, keeping written trades",
			zap.Int64("last_written", last.rec.TradeID),
			zap.Error(err),
		)
		return e.events[:last.events], err
	}
	return e.events, nil
}

// Session returns a copy of the current session.
func (e *Engine) Session() Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return *e.sess.clone()
}

// View returns the render data for the current turn.
func (e *Engine) View() Frame {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frameLocked()
}

func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.statusLocked()
}

// Trades returns the current session's trade log.
func (e *Engine) Trades(ctx context.Context) ([]journal.TradeRecord, error) {
	e.mu.Lock()
	sessionID := e.sess.ID
	e.mu.Unlock()
	return e.store.QueryAll(ctx, sessionID)
}

func (e *Engine) currentIndex() int {
	return e.sess.Start + e.sess.Step() - 1
}

func (e *Engine) currentBar() market.Candle {
	return e.feed.Candle(e.currentIndex())
}

func (e *Engine) emit(ev Event) {
	ev.Turn = e.sess.Turn
	if ev.Time.IsZero() {
		ev.Time = e.currentBar().Time
	}
	e.events = append(e.events, ev)
}

func (e *Engine) publish(events []Event) {
	for _, ev := range events {
		switch ev.Kind {
		case EventTurnAdvanced:
			e.rec.TurnAdvanced()
		case EventOrderPlaced:
			e.rec.OrderPlaced(ev.Order)
		case EventPositionClosed:
			e.rec.TradeClosed(string(ev.Trade.Direction), ev.Trade.Reason, ev.Trade.PnLDollar)
			e.rec.Balance(ev.Trade.BalanceAfter)
			e.log.Info("position closed",
				zap.Int64("trade_id", ev.Trade.TradeID),
				zap.String("side", string(ev.Trade.Direction)),
				zap.String("reason", ev.Trade.Reason),
				zap.Float64("exit_price", ev.Trade.ExitPrice),
				zap.Float64("pnl", ev.Trade.PnLDollar),
				zap.Float64("balance", ev.Trade.BalanceAfter),
			)
		case EventPositionOpened:
			e.log.Info("position opened",
				zap.String("side", string(ev.Side)),
				zap.Float64("price", ev.Price),
				zap.Int("turn", ev.Turn),
			)
		case EventEpisodeReset:
			e.rec.EpisodeStarted()
			e.log.Info("episode reset", zap.String("episode", e.sess.EpisodeID), zap.Int("start", e.sess.Start))
		case EventSessionRestarted:
			e.rec.Balance(e.sess.Ledger.Balance)
			e.log.Info("session restarted", zap.String("session", e.sess.ID))
		case EventOrderRejected:
			e.log.Warn("order rejected", zap.String("order", ev.Order), zap.String("reason", ev.Message))
		}
	}
}
