package indicator

const (
	// RSIPeriod is the relative strength index smoothing period.
	RSIPeriod = 14
	// StochasticPeriod is the stochastic oscillator lookback period.
	StochasticPeriod = 14
	// StochasticSmoothing is the %D smoothing period.
	StochasticSmoothing = 3
	// neutralOscillator is the neutral reading reported when a history is
	// shorter than an oscillator's lookback window.
	neutralOscillator = 50
)

// Stochastic represents the stochastic oscillator bundle.
type Stochastic struct {
	K float64
	D float64
}

// ComputeRSI computes the Wilder smoothed relative strength index for the
// provided closing prices. Histories shorter than the period report a
// neutral reading.
func ComputeRSI(closes []float64, period int) float64 {
	if len(closes) < period+1 {
		return neutralOscillator
	}

	var avgGain, avgLoss float64
	for idx := 1; idx <= period; idx++ {
		change := closes[idx] - closes[idx-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for idx := period + 1; idx < len(closes); idx++ {
		change := closes[idx] - closes[idx-1]
		var gain, loss float64
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return 100
	}

	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// stochasticK computes %K for the window of candles ending at the provided
// index.
func stochasticK(highs []float64, lows []float64, closes []float64, end int, period int) float64 {
	start := end - period + 1
	if start < 0 {
		start = 0
	}

	lowest := lows[start]
	highest := highs[start]
	for idx := start + 1; idx <= end; idx++ {
		if lows[idx] < lowest {
			lowest = lows[idx]
		}
		if highs[idx] > highest {
			highest = highs[idx]
		}
	}

	if highest == lowest {
		return neutralOscillator
	}

	return (closes[end] - lowest) / (highest - lowest) * 100
}

// ComputeStochastic computes the stochastic oscillator %K and %D for the
// provided price components. Histories shorter than the lookback report a
// neutral reading.
func ComputeStochastic(highs []float64, lows []float64, closes []float64) Stochastic {
	if len(closes) < StochasticPeriod {
		return Stochastic{K: neutralOscillator, D: neutralOscillator}
	}

	latest := len(closes) - 1
	k := stochasticK(highs, lows, closes, latest, StochasticPeriod)

	// %D is the simple average of the most recent %K readings.
	var sum float64
	var count int
	for idx := latest; idx > latest-StochasticSmoothing && idx >= 0; idx-- {
		sum += stochasticK(highs, lows, closes, idx, StochasticPeriod)
		count++
	}

	return Stochastic{K: k, D: sum / float64(count)}
}
