package risk

import (
	"fmt"
	"math"

	"github.com/rustyeddy/stepper/market"
)

const (
	MinLeverage = 1.0
	MaxLeverage = 100.0
)

// PriceChange is the signed fractional move from entry to price, positive
// when the move favours side.
func PriceChange(side market.Side, entry, price float64) float64 {
	if entry == 0 {
		return 0
	}
	return side.Sign() * (price - entry) / entry
}

// PnLRatio is the leveraged return on committed capital. -1 means the whole
// capital is gone.
func PnLRatio(side market.Side, entry, price, leverage float64) float64 {
	return PriceChange(side, entry, price) * leverage
}

// PnL is the dollar profit of capital committed at entry and valued at price.
func PnL(side market.Side, entry, capital, leverage, price float64) float64 {
	return PnLRatio(side, entry, price, leverage) * capital
}

// RealizedPnL is PnL with the loss capped at the committed capital.
func RealizedPnL(side market.Side, entry, capital, leverage, price float64) float64 {
	pl := PnL(side, entry, capital, leverage, price)
	if pl < -capital {
		return -capital
	}
	return pl
}

// LiquidationPrice is where the leveraged loss reaches 100% of capital.
func LiquidationPrice(side market.Side, entry, leverage float64) float64 {
	if leverage <= 0 {
		return 0
	}
	return entry * (1 - side.Sign()/leverage)
}

// Capital is the margin committed for a new position.
func Capital(balance, ratio float64) float64 {
	if balance <= 0 || ratio <= 0 {
		return 0
	}
	return balance * ratio
}

func ValidateLeverage(lev float64) error {
	if math.IsNaN(lev) || lev < MinLeverage || lev > MaxLeverage {
		return fmt.Errorf("leverage %.2f outside [%.0f, %.0f]", lev, MinLeverage, MaxLeverage)
	}
	return nil
}

func ValidateRatio(ratio float64) error {
	if math.IsNaN(ratio) || ratio < 0 || ratio > 1 {
		return fmt.Errorf("position ratio %.4f outside [0, 1]", ratio)
	}
	return nil
}
