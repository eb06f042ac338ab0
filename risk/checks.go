package risk

import "github.com/rustyeddy/stepper/market"

// Trigger identifies which protective close fired.
type Trigger int

const (
	NoTrigger Trigger = iota
	StopLoss
	Liquidation
)

func (t Trigger) String() string {
	switch t {
	case StopLoss:
		return "StopLoss"
	case Liquidation:
		return "Liquidation"
	}
	return "None"
}

// Exposure is the part of an open position the monitor needs.
type Exposure struct {
	Side     market.Side
	Entry    float64
	Leverage float64
	Stop     *float64
}

// HitStopLoss reports whether price has crossed the stop.
func HitStopLoss(x Exposure, price float64) bool {
	if x.Stop == nil {
		return false
	}
	if x.Side == market.Long {
		return price <= *x.Stop
	}
	return price >= *x.Stop
}

// HitLiquidation reports whether the leveraged loss at price is 100% or more.
func HitLiquidation(x Exposure, price float64) bool {
	return PnLRatio(x.Side, x.Entry, price, x.Leverage) <= -1.0
}

// Evaluate checks the stop-loss first and forced liquidation second.
func Evaluate(x Exposure, price float64) Trigger {
	switch {
	case HitStopLoss(x, price):
		return StopLoss
	case HitLiquidation(x, price):
		return Liquidation
	}
	return NoTrigger
}
