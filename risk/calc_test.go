package risk

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rustyeddy/stepper/market"
)

func TestPnL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		side     market.Side
		entry    float64
		capital  float64
		leverage float64
		price    float64
		expected float64
	}{
		{"long_profit", market.Long, 100, 50, 10, 105, 25},
		{"long_loss", market.Long, 100, 50, 10, 98, -10},
		{"short_profit", market.Short, 100, 20, 5, 90, 10},
		{"short_loss", market.Short, 100, 20, 20, 110, -40},
		{"flat_at_entry_long", market.Long, 123.45, 77, 33, 123.45, 0},
		{"flat_at_entry_short", market.Short, 123.45, 77, 33, 123.45, 0},
		{"no_leverage", market.Long, 200, 100, 1, 210, 5},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := PnL(tt.side, tt.entry, tt.capital, tt.leverage, tt.price)
			assert.InDelta(t, tt.expected, got, 1e-9)
		})
	}
}

func TestPnLRatioIsPercentForm(t *testing.T) {
	t.Parallel()

	// +5% move at 10x is +50%, independent of capital
	assert.InDelta(t, 0.5, PnLRatio(market.Long, 100, 105, 10), 1e-12)
	assert.InDelta(t, -0.5, PnLRatio(market.Short, 100, 105, 10), 1e-12)
}

func TestRealizedPnLCapsAtCapital(t *testing.T) {
	t.Parallel()

	// SHORT at 100, capital 20, 20x, price 110: raw -40, capped at -20
	assert.InDelta(t, -40, PnL(market.Short, 100, 20, 20, 110), 1e-9)
	assert.Equal(t, -20.0, RealizedPnL(market.Short, 100, 20, 20, 110))

	for _, price := range []float64{50, 10, 1, 0.01} {
		assert.Equal(t, -37.5, RealizedPnL(market.Long, 100, 37.5, 50, price))
	}
	assert.InDelta(t, 15, RealizedPnL(market.Long, 100, 30, 5, 110), 1e-9)
}

func TestLiquidationPrice(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 90, LiquidationPrice(market.Long, 100, 10), 1e-9)
	assert.InDelta(t, 105, LiquidationPrice(market.Short, 100, 20), 1e-9)
	assert.Equal(t, 0.0, LiquidationPrice(market.Long, 100, 1))

	lp := LiquidationPrice(market.Short, 250, 4)
	assert.InDelta(t, -1.0, PnLRatio(market.Short, 250, lp, 4), 1e-12)
}

func TestCapital(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 50.0, Capital(1000, 0.05))
	assert.Equal(t, 0.0, Capital(1000, 0))
	assert.Equal(t, 0.0, Capital(-5, 0.5))
}

func TestValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateLeverage(1))
	assert.NoError(t, ValidateLeverage(100))
	assert.Error(t, ValidateLeverage(0.5))
	assert.Error(t, ValidateLeverage(101))
	assert.Error(t, ValidateLeverage(math.NaN()))
	assert.Error(t, ValidateLeverage(math.Inf(1)))

	assert.NoError(t, ValidateRatio(0))
	assert.NoError(t, ValidateRatio(1))
	assert.Error(t, ValidateRatio(-0.1))
	assert.Error(t, ValidateRatio(1.01))
	assert.Error(t, ValidateRatio(math.NaN()))
}
