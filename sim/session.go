package sim

import "github.com/rustyeddy/stepper/ledger"

// State is the episode state.
type State int

const (
	Running State = iota
	Exhausted
)

func (s State) String() string {
	if s == Exhausted {
		return "EXHAUSTED"
	}
	return "RUNNING"
}

// LevelKind selects the support or resistance annotation list.
type LevelKind string

const (
	Support    LevelKind = "support"
	Resistance LevelKind = "resistance"
)

// Session is everything one player's game consists of. It is owned by an
// Engine and only changed through Engine.Apply.
type Session struct {
	ID        string        `json:"session_id"`
	EpisodeID string        `json:"episode_id"`
	Ledger    ledger.Ledger `json:"ledger"`

	// Start is the index of the first visible candle. Window candles are
	// visible at turn 0 and one more after every turn.
	Start    int `json:"start"`
	Window   int `json:"window"`
	Turn     int `json:"turn"`
	MaxTurns int `json:"max_turns"`

	Leverage      float64 `json:"leverage"`
	PositionRatio float64 `json:"position_ratio"`

	Position *Position `json:"position,omitempty"`
	Book     OrderBook `json:"orders"`

	Supports    []float64 `json:"supports,omitempty"`
	Resistances []float64 `json:"resistances,omitempty"`
	Markers     []Marker  `json:"markers,omitempty"`
}

func (s *Session) State() State {
	if s.Turn >= s.MaxTurns {
		return Exhausted
	}
	return Running
}

// Step is the number of visible candles.
func (s *Session) Step() int { return s.Window + s.Turn }

// TurnsLeft is how many advances the episode still allows.
func (s *Session) TurnsLeft() int {
	if n := s.MaxTurns - s.Turn; n > 0 {
		return n
	}
	return 0
}

func (s *Session) levels(kind LevelKind) *[]float64 {
	if kind == Resistance {
		return &s.Resistances
	}
	return &s.Supports
}

func (s *Session) clone() *Session {
	cp := *s
	cp.Position = s.Position.clone()
	cp.Book = s.Book.clone()
	cp.Supports = append([]float64(nil), s.Supports...)
	cp.Resistances = append([]float64(nil), s.Resistances...)
	cp.Markers = append([]Marker(nil), s.Markers...)
	return &cp
}
