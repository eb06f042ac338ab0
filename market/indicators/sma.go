package indicators

import (
	"fmt"

	"github.com/rustyeddy/stepper/market"
)

// SMA is a simple moving average of the last n closes.
type SMA struct {
	n    int
	buf  []float64
	next int
	sum  float64
	seen int
	name string
}

func NewSMA(period int) (*SMA, error) {
	if period <= 0 {
		return nil, fmt.Errorf("SMA period must be > 0, got %d", period)
	}
	return &SMA{n: period, buf: make([]float64, period), name: fmt.Sprintf("SMA(%d)", period)}, nil
}

func (s *SMA) Name() string { return s.name }
func (s *SMA) Warmup() int  { return s.n }
func (s *SMA) Ready() bool  { return s.seen >= s.n }

func (s *SMA) Float64() float64 {
	if s.seen == 0 {
		return 0
	}
	return s.sum / float64(min(s.seen, s.n))
}

func (s *SMA) Reset() {
	clear(s.buf)
	s.next, s.sum, s.seen = 0, 0, 0
}

func (s *SMA) Update(c market.Candle) {
	s.sum += c.Close - s.buf[s.next]
	s.buf[s.next] = c.Close
	s.next = (s.next + 1) % s.n
	s.seen++
}
