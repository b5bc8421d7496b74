package indicator

const (
	// FastEMAPeriod is the fast trend line period.
	FastEMAPeriod = 9
	// SlowEMAPeriod is the slow trend line period.
	SlowEMAPeriod = 21
	// MACDFastPeriod is the fast ema period for the macd line.
	MACDFastPeriod = 12
	// MACDSlowPeriod is the slow ema period for the macd line.
	MACDSlowPeriod = 26
	// MACDSignalPeriod is the ema period for the macd signal line.
	MACDSignalPeriod = 9
)

// MACD represents the moving average convergence divergence bundle.
type MACD struct {
	MACD      float64
	Signal    float64
	Histogram float64
}

// EMAPair represents the fast and slow exponential trend lines.
type EMAPair struct {
	EMA9  float64
	EMA21 float64
}

// EMASeries computes the exponential moving average series for the provided
// values. The series seeds from the first value, degrading gracefully for
// histories shorter than the period.
func EMASeries(values []float64, period int) []float64 {
	series := make([]float64, len(values))
	if len(values) == 0 {
		return series
	}

	multiplier := 2 / (float64(period) + 1)
	series[0] = values[0]
	for idx := 1; idx < len(values); idx++ {
		series[idx] = values[idx]*multiplier + series[idx-1]*(1-multiplier)
	}

	return series
}

// EMA computes the latest exponential moving average for the provided values.
func EMA(values []float64, period int) float64 {
	series := EMASeries(values, period)
	if len(series) == 0 {
		return 0
	}

	return series[len(series)-1]
}

// ComputeMACD computes the macd line, signal line and histogram for the
// provided closing prices.
func ComputeMACD(closes []float64) MACD {
	if len(closes) == 0 {
		return MACD{}
	}

	fast := EMASeries(closes, MACDFastPeriod)
	slow := EMASeries(closes, MACDSlowPeriod)

	macdLine := make([]float64, len(closes))
	for idx := range closes {
		macdLine[idx] = fast[idx] - slow[idx]
	}

	signal := EMASeries(macdLine, MACDSignalPeriod)

	latest := len(closes) - 1
	return MACD{
		MACD:      macdLine[latest],
		Signal:    signal[latest],
		Histogram: macdLine[latest] - signal[latest],
	}
}
