package indicator

import (
	"math"

	"github.com/nvkr/aitrade/shared"
)

const (
	// ATRPeriod is the average true range smoothing period.
	ATRPeriod = 14
	// ADXPeriod is the average directional index smoothing period.
	ADXPeriod = 14
)

// trueRanges computes the true range series for the provided history.
func trueRanges(history []shared.Candlestick) []float64 {
	if len(history) < 2 {
		return nil
	}

	ranges := make([]float64, 0, len(history)-1)
	for idx := 1; idx < len(history); idx++ {
		highLow := history[idx].High - history[idx].Low
		highClose := math.Abs(history[idx].High - history[idx-1].Close)
		lowClose := math.Abs(history[idx].Low - history[idx-1].Close)
		ranges = append(ranges, math.Max(highLow, math.Max(highClose, lowClose)))
	}

	return ranges
}

// ComputeATR computes the Wilder smoothed average true range for the
// provided history. Histories shorter than the period average what is
// available, a single candle reports zero.
func ComputeATR(history []shared.Candlestick, period int) float64 {
	ranges := trueRanges(history)
	if len(ranges) == 0 {
		return 0
	}

	if len(ranges) <= period {
		var sum float64
		for idx := range ranges {
			sum += ranges[idx]
		}
		return sum / float64(len(ranges))
	}

	var atr float64
	for idx := 0; idx < period; idx++ {
		atr += ranges[idx]
	}
	atr /= float64(period)

	for idx := period; idx < len(ranges); idx++ {
		atr = (atr*float64(period-1) + ranges[idx]) / float64(period)
	}

	return atr
}

// ComputeADX computes the average directional index for the provided
// history. Histories too short for a full directional window report zero
// trend strength.
func ComputeADX(history []shared.Candlestick, period int) float64 {
	if len(history) < period+1 {
		return 0
	}

	ranges := trueRanges(history)
	plusDM := make([]float64, len(ranges))
	minusDM := make([]float64, len(ranges))
	for idx := 1; idx < len(history); idx++ {
		upMove := history[idx].High - history[idx-1].High
		downMove := history[idx-1].Low - history[idx].Low
		if upMove > downMove && upMove > 0 {
			plusDM[idx-1] = upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDM[idx-1] = downMove
		}
	}

	// Wilder smooth the true range and directional movement series.
	var smoothTR, smoothPlus, smoothMinus float64
	for idx := 0; idx < period; idx++ {
		smoothTR += ranges[idx]
		smoothPlus += plusDM[idx]
		smoothMinus += minusDM[idx]
	}

	dx := func() float64 {
		if smoothTR == 0 {
			return 0
		}
		plusDI := 100 * smoothPlus / smoothTR
		minusDI := 100 * smoothMinus / smoothTR
		if plusDI+minusDI == 0 {
			return 0
		}
		return 100 * math.Abs(plusDI-minusDI) / (plusDI + minusDI)
	}

	dxSeries := []float64{dx()}
	for idx := period; idx < len(ranges); idx++ {
		smoothTR = smoothTR - smoothTR/float64(period) + ranges[idx]
		smoothPlus = smoothPlus - smoothPlus/float64(period) + plusDM[idx]
		smoothMinus = smoothMinus - smoothMinus/float64(period) + minusDM[idx]
		dxSeries = append(dxSeries, dx())
	}

	// The index seeds from the average of the first directional window and
	// is Wilder smoothed thereafter.
	seed := len(dxSeries)
	if seed > period {
		seed = period
	}

	var adx float64
	for idx := 0; idx < seed; idx++ {
		adx += dxSeries[idx]
	}
	adx /= float64(seed)

	for idx := seed; idx < len(dxSeries); idx++ {
		adx = (adx*(float64(period)-1) + dxSeries[idx]) / float64(period)
	}

	return adx
}
