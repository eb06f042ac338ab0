// Package indicators holds streaming price indicators used for chart
// overlays.
package indicators

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/stepper/market"
)

// Indicator consumes one candle at a time.
type Indicator interface {
	Name() string
	Warmup() int
	Ready() bool
	Float64() float64
	Reset()
	Update(c market.Candle)
}

// Point is one value of a line series.
type Point struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// Series resets ind, feeds it candles in order and returns a point for
// every candle once the indicator is ready.
func Series(ind Indicator, candles []market.Candle) []Point {
	ind.Reset()
	out := make([]Point, 0, max(len(candles)-ind.Warmup()+1, 0))
	for _, c := range candles {
		ind.Update(c)
		if ind.Ready() {
			out = append(out, Point{Time: c.Time, Value: ind.Float64()})
		}
	}
	return out
}

// Parse builds an indicator from a spec such as "ema:20" or "sma:50".
func Parse(spec string) (Indicator, error) {
	kind, arg, ok := strings.Cut(strings.ToLower(strings.TrimSpace(spec)), ":")
	if !ok {
		return nil, fmt.Errorf("indicator %q: want kind:period", spec)
	}
	period, err := strconv.Atoi(arg)
	if err != nil {
		return nil, fmt.Errorf("indicator %q: bad period: %w", spec, err)
	}
	var ind Indicator
	switch kind {
	case "ema":
		ind, err = NewEMA(period)
	case "sma":
		ind, err = NewSMA(period)
	default:
		return nil, fmt.Errorf("indicator %q: unknown kind %q", spec, kind)
	}
	if err != nil {
		return nil, err
	}
	return ind, nil
}
