package indicator

import (
	"github.com/nvkr/aitrade/shared"
	"go.uber.org/atomic"
)

// OBVGenerator represents the On-Balance Volume indicator.
type OBVGenerator struct {
	Value     atomic.Float64
	prevClose atomic.Float64
	seeded    atomic.Bool
}

// NewOBVGenerator initializes an on-balance volume indicator.
func NewOBVGenerator() *OBVGenerator {
	return &OBVGenerator{}
}

// Update cummulatively updates the OBV indicator with the provided
// candlestick data.
func (o *OBVGenerator) Update(candle *shared.Candlestick) float64 {
	if !o.seeded.Load() {
		o.prevClose.Store(candle.Close)
		o.seeded.Store(true)
		return o.Value.Load()
	}

	prev := o.prevClose.Load()
	switch {
	case candle.Close > prev:
		o.Value.Add(candle.Volume)
	case candle.Close < prev:
		o.Value.Sub(candle.Volume)
	default:
		// do nothing.
	}

	o.prevClose.Store(candle.Close)
	return o.Value.Load()
}

// Reset resets the OBV indicator.
func (o *OBVGenerator) Reset() {
	o.Value.Store(0)
	o.prevClose.Store(0)
	o.seeded.Store(false)
}

// ComputeOBV computes the cumulative on-balance volume for the provided
// history.
func ComputeOBV(history []shared.Candlestick) float64 {
	obv := NewOBVGenerator()

	var value float64
	for idx := range history {
		value = obv.Update(&history[idx])
	}

	return value
}
