package indicator

import "math"

const (
	// BollingerPeriod is the bollinger band lookback period.
	BollingerPeriod = 20
	// BollingerWidth is the standard deviation multiple for the bands.
	BollingerWidth = 2
)

// Bollinger represents the bollinger band bundle.
type Bollinger struct {
	Upper    float64
	Middle   float64
	Lower    float64
	PercentB float64
}

// ComputeBollinger computes the bollinger bands and %B for the provided
// closing prices. Histories shorter than the period use what is available,
// collapsing to the last close when the window is degenerate.
func ComputeBollinger(closes []float64) Bollinger {
	if len(closes) == 0 {
		return Bollinger{PercentB: 0.5}
	}

	start := len(closes) - BollingerPeriod
	if start < 0 {
		start = 0
	}
	window := closes[start:]

	var sum float64
	for idx := range window {
		sum += window[idx]
	}
	middle := sum / float64(len(window))

	var variance float64
	for idx := range window {
		diff := window[idx] - middle
		variance += diff * diff
	}
	stdDev := math.Sqrt(variance / float64(len(window)))

	bands := Bollinger{
		Upper:  middle + BollingerWidth*stdDev,
		Middle: middle,
		Lower:  middle - BollingerWidth*stdDev,
	}

	price := closes[len(closes)-1]
	if bands.Upper == bands.Lower {
		bands.PercentB = 0.5
		return bands
	}

	bands.PercentB = (price - bands.Lower) / (bands.Upper - bands.Lower)
	return bands
}
