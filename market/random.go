package market

import (
	"math"
	"math/rand"
	"time"
)

// RandomWalk builds a synthetic CandleSet of n candles spaced step apart,
// starting at price. Each candle moves by at most vol (a fraction of the
// open) and the same seed always yields the same series.
func RandomWalk(n int, seed int64, start time.Time, step time.Duration, price, vol float64) *CandleSet {
	r := rand.New(rand.NewSource(seed))
	candles := make([]Candle, n)
	ts := start.UTC()
	for i := 0; i < n; i++ {
		open := price
		ret := (r.Float64() - 0.5) * 2.0 * vol
		closeP := open * (1.0 + ret)
		high := math.Max(open, closeP) * (1.0 + r.Float64()*vol*0.5)
		low := math.Min(open, closeP) * (1.0 - r.Float64()*vol*0.5)
		candles[i] = Candle{
			Time:   ts,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closeP,
			Volume: 10_000 + r.Float64()*5_000,
		}
		price = closeP
		ts = ts.Add(step)
	}
	return &CandleSet{Source: "random", Candles: candles}
}
