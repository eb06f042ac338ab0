package indicators

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/stepper/market"
)

func candle(i int, close float64) market.Candle {
	return market.Candle{
		Time:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Hour),
		Close: close,
	}
}

func closes(vs ...float64) []market.Candle {
	out := make([]market.Candle, len(vs))
	for i, v := range vs {
		out[i] = candle(i, v)
	}
	return out
}

func TestEMA_WarmupAndReady(t *testing.T) {
	ema, err := NewEMA(3)
	require.NoError(t, err)

	require.False(t, ema.Ready())
	require.Equal(t, 3, ema.Warmup())

	ema.Update(candle(0, 1.0))
	require.False(t, ema.Ready())

	ema.Update(candle(1, 2.0))
	require.False(t, ema.Ready())

	ema.Update(candle(2, 3.0))
	require.True(t, ema.Ready())
}

func TestEMA_KnownSequence(t *testing.T) {
	ema, err := NewEMA(3)
	require.NoError(t, err)

	// alpha = 2/(3+1) = 0.5
	// 10 -> 10.5 -> 11.25 -> 12.125
	for i, v := range []float64{10, 11, 12, 13} {
		ema.Update(candle(i, v))
	}

	require.True(t, ema.Ready())
	require.InDelta(t, 12.125, ema.Float64(), 1e-9)
}

func TestEMA_Reset(t *testing.T) {
	ema, err := NewEMA(3)
	require.NoError(t, err)

	ema.Update(candle(0, 10))
	ema.Update(candle(1, 11))
	require.False(t, ema.Ready())

	ema.Reset()

	require.False(t, ema.Ready())
	require.Equal(t, 0.0, ema.Float64())

	ema.Update(candle(0, 20))
	require.Equal(t, 20.0, ema.Float64())
}

func TestSMA(t *testing.T) {
	sma, err := NewSMA(2)
	require.NoError(t, err)

	pts := Series(sma, closes(10, 20, 40, 80))
	require.Len(t, pts, 3)
	assert.InDelta(t, 15.0, pts[0].Value, 1e-12)
	assert.InDelta(t, 30.0, pts[1].Value, 1e-12)
	assert.InDelta(t, 60.0, pts[2].Value, 1e-12)
	assert.Equal(t, candle(1, 0).Time, pts[0].Time)
}

func TestSeriesResetsFirst(t *testing.T) {
	ema, err := NewEMA(1)
	require.NoError(t, err)

	ema.Update(candle(0, 1000))
	pts := Series(ema, closes(5, 7))
	require.Len(t, pts, 2)
	assert.Equal(t, 5.0, pts[0].Value)
	assert.InDelta(t, 7.0, pts[1].Value, 1e-12)
}

func TestParse(t *testing.T) {
	tests := []struct {
		spec    string
		name    string
		wantErr bool
	}{
		{spec: "ema:20", name: "EMA(20)"},
		{spec: " SMA:5 ", name: "SMA(5)"},
		{spec: "ema", wantErr: true},
		{spec: "ema:x", wantErr: true},
		{spec: "ema:0", wantErr: true},
		{spec: "rsi:14", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			ind, err := Parse(tt.spec)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.name, ind.Name())
		})
	}
}
