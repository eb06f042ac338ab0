package sim

import (
	"time"

	"github.com/rustyeddy/stepper/journal"
	"github.com/rustyeddy/stepper/market"
)

type EventKind string

const (
	EventTurnAdvanced     EventKind = "turn_advanced"
	EventPositionOpened   EventKind = "position_opened"
	EventPositionClosed   EventKind = "position_closed"
	EventOrderPlaced      EventKind = "order_placed"
	EventOrderCancelled   EventKind = "order_cancelled"
	EventOrderFilled      EventKind = "order_filled"
	EventOrderRejected    EventKind = "order_rejected"
	EventStopLossChanged  EventKind = "stop_loss_changed"
	EventSettingsChanged  EventKind = "settings_changed"
	EventLevelChanged     EventKind = "level_changed"
	EventEpisodeExhausted EventKind = "episode_exhausted"
	EventEpisodeReset     EventKind = "episode_reset"
	EventSessionRestarted EventKind = "session_restarted"
)

// Event describes one thing a command did. Trade is set on
// EventPositionClosed.
type Event struct {
	Kind    EventKind            `json:"kind"`
	Turn    int                  `json:"turn"`
	Time    time.Time            `json:"time"`
	Side    market.Side          `json:"side,omitempty"`
	Price   float64              `json:"price,omitempty"`
	Order   string               `json:"order,omitempty"`
	Trade   *journal.TradeRecord `json:"trade,omitempty"`
	Message string               `json:"message,omitempty"`
}
