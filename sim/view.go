package sim

import (
	"fmt"
	"time"

	"github.com/rustyeddy/stepper/market"
	"github.com/rustyeddy/stepper/market/indicators"
	"github.com/rustyeddy/stepper/risk"
)

// Line styles as understood by the chart front end.
const (
	LineSolid  = 0
	LineDotted = 1
	LineDashed = 2
)

const (
	colorSupport     = "#2962FF"
	colorResistance  = "#FF1744"
	colorLimitEntry  = "#FF9800"
	colorLimitExit   = "#00C853"
	colorStopLoss    = "#D50000"
	colorLiquidation = "#6D4C41"
)

var overlayColors = []string{"#FFD600", "#AA00FF", "#00B8D4", "#F50057"}

// Marker is a trade annotation drawn on a candle.
type Marker struct {
	Time     time.Time `json:"time"`
	Price    float64   `json:"price,omitempty"`
	Label    string    `json:"text"`
	Color    string    `json:"color"`
	Shape    string    `json:"shape"`
	Position string    `json:"position"`
}

func entryMarker(side market.Side, at time.Time, price float64) Marker {
	if side == market.Short {
		return Marker{Time: at, Price: price, Label: string(side), Color: "red", Shape: "arrowDown", Position: "aboveBar"}
	}
	return Marker{Time: at, Price: price, Label: string(side), Color: "green", Shape: "arrowUp", Position: "belowBar"}
}

func exitMarker(reason string, at time.Time, price, pnl float64) Marker {
	color := "green"
	if pnl < 0 {
		color = "red"
	}
	return Marker{Time: at, Price: price, Label: reason, Color: color, Shape: "x", Position: "inBar"}
}

// Level is a horizontal price line.
type Level struct {
	Price float64 `json:"price"`
	Color string  `json:"color"`
	Width int     `json:"lineWidth"`
	Style int     `json:"lineStyle"`
	Title string  `json:"title"`
}

// Status is the numeric side panel of a frame.
type Status struct {
	SessionID     string    `json:"session_id"`
	EpisodeID     string    `json:"episode_id"`
	State         string    `json:"state"`
	Turn          int       `json:"turn"`
	MaxTurns      int       `json:"max_turns"`
	TurnsLeft     int       `json:"turns_left"`
	Time          time.Time `json:"time"`
	Price         float64   `json:"price"`
	Balance       float64   `json:"balance"`
	TotalPnL      float64   `json:"total_pnl"`
	Trades        int64     `json:"trades"`
	Wins          int       `json:"wins"`
	Losses        int       `json:"losses"`
	WinRate       float64   `json:"win_rate"`
	Leverage      float64   `json:"leverage"`
	PositionRatio float64   `json:"position_ratio"`
	NextCapital   float64   `json:"next_capital"`

	Position      *Position     `json:"position,omitempty"`
	UnrealizedPnL float64       `json:"unrealized_pnl"`
	UnrealizedPct float64       `json:"unrealized_pct"`
	PendingEntry  *PendingEntry `json:"pending_entry,omitempty"`
	PendingExits  []PendingExit `json:"pending_exits,omitempty"`
}

// Overlay is an indicator line drawn over the candles.
type Overlay struct {
	Title  string             `json:"title"`
	Color  string             `json:"color"`
	Points []indicators.Point `json:"data"`
}

// Frame is everything a renderer needs for one turn.
type Frame struct {
	Candles  []market.Candle `json:"candles"`
	Markers  []Marker        `json:"markers"`
	Levels   []Level         `json:"levels"`
	Overlays []Overlay       `json:"overlays,omitempty"`
	Status   Status          `json:"status"`
}

func (e *Engine) frameLocked() Frame {
	s := e.sess
	candles := e.feed.Window(s.Start, s.Step())
	f := Frame{
		Candles: candles,
		Markers: append([]Marker(nil), s.Markers...),
		Levels:  e.levelsLocked(),
		Status:  e.statusLocked(),
	}
	for i, ind := range e.overlays {
		f.Overlays = append(f.Overlays, Overlay{
			Title:  ind.Name(),
			Color:  overlayColors[i%len(overlayColors)],
			Points: indicators.Series(ind, candles),
		})
	}
	return f
}

func (e *Engine) statusLocked() Status {
	s := e.sess
	bar := e.currentBar()
	st := Status{
		SessionID:     s.ID,
		EpisodeID:     s.EpisodeID,
		State:         s.State().String(),
		Turn:          s.Turn,
		MaxTurns:      s.MaxTurns,
		TurnsLeft:     s.TurnsLeft(),
		Time:          bar.Time,
		Price:         bar.Close,
		Balance:       s.Ledger.Balance,
		TotalPnL:      s.Ledger.TotalPnL,
		Trades:        s.Ledger.Trades,
		Wins:          s.Ledger.Wins,
		Losses:        s.Ledger.Losses,
		WinRate:       s.Ledger.WinRate(),
		Leverage:      s.Leverage,
		PositionRatio: s.PositionRatio,
		NextCapital:   risk.Capital(s.Ledger.Balance, s.PositionRatio),
		Position:      s.Position.clone(),
		PendingExits:  append([]PendingExit(nil), s.Book.Exits...),
	}
	if s.Position != nil {
		st.UnrealizedPnL = s.Position.UnrealizedPnL(bar.Close)
		st.UnrealizedPct = s.Position.UnrealizedPct(bar.Close)
	}
	if s.Book.Entry != nil {
		pe := *s.Book.Entry
		st.PendingEntry = &pe
	}
	return st
}

func (e *Engine) levelsLocked() []Level {
	s := e.sess
	var out []Level
	for i, p := range s.Supports {
		out = append(out, Level{Price: p, Color: colorSupport, Width: 1, Style: LineDashed, Title: fmt.Sprintf("S%d", i+1)})
	}
	for i, p := range s.Resistances {
		out = append(out, Level{Price: p, Color: colorResistance, Width: 1, Style: LineDashed, Title: fmt.Sprintf("R%d", i+1)})
	}
	if o := s.Book.Entry; o != nil {
		out = append(out, Level{Price: o.Price, Color: colorLimitEntry, Width: 1, Style: LineDashed, Title: "LIMIT " + string(o.Side)})
	}
	for _, x := range s.Book.Exits {
		out = append(out, Level{Price: x.Price, Color: colorLimitExit, Width: 1, Style: LineDashed, Title: fmt.Sprintf("EXIT %.0f%%", x.Ratio*100)})
	}
	if p := s.Position; p != nil {
		if p.StopLoss != nil {
			out = append(out, Level{Price: *p.StopLoss, Color: colorStopLoss, Width: 2, Style: LineSolid, Title: "STOP"})
		}
		out = append(out, Level{Price: p.LiquidationPrice(), Color: colorLiquidation, Width: 1, Style: LineDotted, Title: "LIQ"})
	}
	return out
}
