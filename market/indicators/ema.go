package indicators

import (
	"fmt"

	"github.com/rustyeddy/stepper/market"
)

// EMA computes an Exponential Moving Average over candle closes.
type EMA struct {
	n     int
	alpha float64

	seen  int
	value float64
	ready bool

	name string
}

func NewEMA(period int) (*EMA, error) {
	if period <= 0 {
		return nil, fmt.Errorf("EMA period must be > 0, got %d", period)
	}
	return &EMA{
		n:     period,
		alpha: 2.0 / float64(period+1),
		name:  fmt.Sprintf("EMA(%d)", period),
	}, nil
}

func (e *EMA) Name() string     { return e.name }
func (e *EMA) Warmup() int      { return e.n }
func (e *EMA) Ready() bool      { return e.ready }
func (e *EMA) Float64() float64 { return e.value }

func (e *EMA) Reset() {
	e.seen = 0
	e.value = 0
	e.ready = false
}

func (e *EMA) Update(c market.Candle) {
	e.seen++
	if e.seen == 1 {
		// Seed with the first close.
		e.value = c.Close
	} else {
		e.value = e.alpha*c.Close + (1.0-e.alpha)*e.value
	}

	if e.seen >= e.n {
		e.ready = true
	}
}
