package sim

import (
	"math"
	"time"

	"github.com/rustyeddy/stepper/market"
	"github.com/rustyeddy/stepper/risk"
)

// dust is the open fraction below which a position counts as closed.
const dust = 1e-9

// Position is the single open position of a session.
type Position struct {
	Side         market.Side `json:"side"`
	EntryPrice   float64     `json:"entry_price"`
	EntryCapital float64     `json:"entry_capital"`
	Leverage     float64     `json:"leverage"`
	RatioPct     int         `json:"position_ratio"`
	EntryTime    time.Time   `json:"entry_time"`
	StopLoss     *float64    `json:"stop_loss,omitempty"`

	// Remaining is the still open fraction of EntryCapital.
	Remaining float64 `json:"remaining"`
}

func newPosition(op string, side market.Side, price, capital, leverage float64, ratioPct int, at time.Time) (*Position, error) {
	switch {
	case !side.Valid():
		return nil, invalidOrder(op, "unknown side %q", side)
	case math.IsNaN(price) || price <= 0:
		return nil, invalidOrder(op, "entry price %.4f must be positive", price)
	case math.IsNaN(capital) || math.IsInf(capital, 0) || capital <= 0:
		return nil, invalidOrder(op, "entry capital %.4f must be positive", capital)
	}
	if err := risk.ValidateLeverage(leverage); err != nil {
		return nil, invalidOrder(op, "%v", err)
	}
	return &Position{
		Side:         side,
		EntryPrice:   price,
		EntryCapital: capital,
		Leverage:     leverage,
		RatioPct:     ratioPct,
		EntryTime:    at,
		Remaining:    1,
	}, nil
}

// OpenCapital is the committed capital not yet closed.
func (p *Position) OpenCapital() float64 {
	return p.EntryCapital * p.Remaining
}

// UnrealizedPnL is the dollar result of closing the open capital at price.
func (p *Position) UnrealizedPnL(price float64) float64 {
	return risk.PnL(p.Side, p.EntryPrice, p.OpenCapital(), p.Leverage, price)
}

// UnrealizedPct is the leveraged return in percent. It does not depend on
// the capital.
func (p *Position) UnrealizedPct(price float64) float64 {
	return risk.PnLRatio(p.Side, p.EntryPrice, price, p.Leverage) * 100
}

func (p *Position) LiquidationPrice() float64 {
	return risk.LiquidationPrice(p.Side, p.EntryPrice, p.Leverage)
}

func (p *Position) exposure() risk.Exposure {
	return risk.Exposure{
		Side:     p.Side,
		Entry:    p.EntryPrice,
		Leverage: p.Leverage,
		Stop:     p.StopLoss,
	}
}

func (p *Position) clone() *Position {
	if p == nil {
		return nil
	}
	cp := *p
	if p.StopLoss != nil {
		stop := *p.StopLoss
		cp.StopLoss = &stop
	}
	return &cp
}
