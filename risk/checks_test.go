package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rustyeddy/stepper/market"
)

func ptr(v float64) *float64 { return &v }

func TestEvaluate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		x     Exposure
		price float64
		want  Trigger
	}{
		{
			name:  "long no stop above liquidation",
			x:     Exposure{Side: market.Long, Entry: 100, Leverage: 10},
			price: 95,
			want:  NoTrigger,
		},
		{
			name:  "long stop hit",
			x:     Exposure{Side: market.Long, Entry: 100, Leverage: 10, Stop: ptr(97)},
			price: 97,
			want:  StopLoss,
		},
		{
			name:  "long stop not hit",
			x:     Exposure{Side: market.Long, Entry: 100, Leverage: 10, Stop: ptr(97)},
			price: 97.5,
			want:  NoTrigger,
		},
		{
			name:  "short stop hit",
			x:     Exposure{Side: market.Short, Entry: 100, Leverage: 2, Stop: ptr(103)},
			price: 104,
			want:  StopLoss,
		},
		{
			name:  "long liquidation at exact threshold",
			x:     Exposure{Side: market.Long, Entry: 100, Leverage: 10},
			price: 90,
			want:  Liquidation,
		},
		{
			name:  "short liquidation overshoot",
			x:     Exposure{Side: market.Short, Entry: 100, Leverage: 20},
			price: 110,
			want:  Liquidation,
		},
		{
			name:  "stop wins when both hit",
			x:     Exposure{Side: market.Short, Entry: 100, Leverage: 20, Stop: ptr(104)},
			price: 110,
			want:  StopLoss,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Evaluate(tt.x, tt.price))
		})
	}
}

func TestTriggerString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "None", NoTrigger.String())
	assert.Equal(t, "StopLoss", StopLoss.String())
	assert.Equal(t, "Liquidation", Liquidation.String())
}
