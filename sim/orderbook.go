package sim

import "github.com/rustyeddy/stepper/market"

// PendingEntry is a limit order waiting to open a position.
type PendingEntry struct {
	Side        market.Side `json:"side"`
	Price       float64     `json:"price"`
	CreatedTurn int         `json:"created_turn"`
}

// Triggered reports whether bar trades through the limit: longs fill on a
// low at or below the price, shorts on a high at or above it.
func (o PendingEntry) Triggered(bar market.Candle) bool {
	if o.Side == market.Long {
		return bar.Low <= o.Price
	}
	return bar.High >= o.Price
}

// PendingExit closes Ratio of the entry capital when price is touched.
// Above records which side of the market the price sat on when the order
// was placed, which fixes the direction of the touch.
type PendingExit struct {
	Price       float64 `json:"price"`
	Ratio       float64 `json:"ratio"`
	Above       bool    `json:"above"`
	CreatedTurn int     `json:"created_turn"`
}

func (o PendingExit) Triggered(bar market.Candle) bool {
	if o.Above {
		return bar.High >= o.Price
	}
	return bar.Low <= o.Price
}

// OrderBook holds at most one pending entry and a FIFO queue of exits.
type OrderBook struct {
	Entry *PendingEntry `json:"entry,omitempty"`
	Exits []PendingExit `json:"exits,omitempty"`
}

func (b OrderBook) clone() OrderBook {
	out := OrderBook{}
	if b.Entry != nil {
		e := *b.Entry
		out.Entry = &e
	}
	if len(b.Exits) > 0 {
		out.Exits = append([]PendingExit(nil), b.Exits...)
	}
	return out
}
