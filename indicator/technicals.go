package indicator

import (
	"github.com/nvkr/aitrade/shared"
)

const (
	// strongBuyThreshold is the minimum composite score for a strong buy.
	strongBuyThreshold = 4
	// buyThreshold is the minimum composite score for a buy.
	buyThreshold = 2
	// sellThreshold is the score at or below which a sell is signalled.
	sellThreshold = -2

	// Vote weights for the composite score.
	oscillatorVote = 2
	trendVote      = 1.5
	bandVote       = 1
	sentimentVote  = 0.5

	// Oscillator extremes.
	rsiOversold          = 30
	rsiOverbought        = 70
	stochasticOversold   = 20
	stochasticOverbought = 80
)

// Strength represents the discretized strength of a composite signal.
type Strength int

const (
	StrongBuy Strength = iota
	Buy
	Hold
	Sell
)

// String stringifies the provided signal strength.
func (s *Strength) String() string {
	switch *s {
	case StrongBuy:
		return "STRONG_BUY"
	case Buy:
		return "BUY"
	case Hold:
		return "HOLD"
	case Sell:
		return "SELL"
	default:
		return "unknown"
	}
}

// StrengthFromScore thresholds the provided composite score into an ordered
// strength band. The mapping is total and order preserving, a higher score
// never yields a weaker strength.
func StrengthFromScore(score float64) Strength {
	switch {
	case score >= strongBuyThreshold:
		return StrongBuy
	case score >= buyThreshold:
		return Buy
	case score > sellThreshold:
		return Hold
	default:
		return Sell
	}
}

// Targets represents price targets derived from average true range multiples.
type Targets struct {
	T1 float64
	T2 float64
	T3 float64
}

// ATRTargets derives target price bands at 2x, 3x and 4x the average true
// range above the provided price.
func ATRTargets(price float64, atr float64) Targets {
	return Targets{
		T1: price + 2*atr,
		T2: price + 3*atr,
		T3: price + 4*atr,
	}
}

// Technicals represents a derived, immutable technical indicator snapshot
// for a candle history.
type Technicals struct {
	RSI           float64
	MACD          MACD
	Stochastic    Stochastic
	ADX           float64
	ATR           float64
	Bollinger     Bollinger
	EMA           EMAPair
	OBV           float64
	Score         float64
	ActiveSignals []string
	Strength      Strength
}

// scoreSignals accumulates weighted indicator votes into a composite score
// and the set of labels naming the sub-indicators that fired.
func scoreSignals(technicals *Technicals, last *shared.Candlestick) (float64, []string) {
	var score float64
	signals := []string{}

	switch {
	case technicals.RSI < rsiOversold:
		score += oscillatorVote
		signals = append(signals, "RSI oversold")
	case technicals.RSI > rsiOverbought:
		score -= oscillatorVote
		signals = append(signals, "RSI overbought")
	}

	switch {
	case technicals.MACD.Histogram > 0:
		score += trendVote
		signals = append(signals, "MACD bullish")
	case technicals.MACD.Histogram < 0:
		score -= trendVote
		signals = append(signals, "MACD bearish")
	}

	switch {
	case last.Close > technicals.EMA.EMA9 && technicals.EMA.EMA9 > technicals.EMA.EMA21:
		score += trendVote
		signals = append(signals, "EMA uptrend")
	case last.Close < technicals.EMA.EMA9 && technicals.EMA.EMA9 < technicals.EMA.EMA21:
		score -= trendVote
		signals = append(signals, "EMA downtrend")
	}

	switch {
	case technicals.Bollinger.PercentB < 0:
		score += bandVote
		signals = append(signals, "Below lower band")
	case technicals.Bollinger.PercentB > 1:
		score -= bandVote
		signals = append(signals, "Above upper band")
	}

	switch {
	case technicals.Stochastic.K < stochasticOversold:
		score += bandVote
		signals = append(signals, "Stochastic oversold")
	case technicals.Stochastic.K > stochasticOverbought:
		score -= bandVote
		signals = append(signals, "Stochastic overbought")
	}

	switch last.FetchSentiment() {
	case shared.Bullish:
		score += sentimentVote
		signals = append(signals, "Bullish close")
	case shared.Bearish:
		score -= sentimentVote
		signals = append(signals, "Bearish close")
	default:
		// do nothing.
	}

	return score, signals
}

// ComputeTechnicals derives the technical indicator snapshot for the
// provided candle history. The computation is pure and deterministic, short
// histories degrade individual indicators to neutral readings rather than
// failing.
func ComputeTechnicals(history []shared.Candlestick) (*Technicals, error) {
	if err := shared.ValidateHistory(history); err != nil {
		return nil, err
	}

	closes := make([]float64, len(history))
	highs := make([]float64, len(history))
	lows := make([]float64, len(history))
	for idx := range history {
		closes[idx] = history[idx].Close
		highs[idx] = history[idx].High
		lows[idx] = history[idx].Low
	}

	technicals := &Technicals{
		RSI:        ComputeRSI(closes, RSIPeriod),
		MACD:       ComputeMACD(closes),
		Stochastic: ComputeStochastic(highs, lows, closes),
		ADX:        ComputeADX(history, ADXPeriod),
		ATR:        ComputeATR(history, ATRPeriod),
		Bollinger:  ComputeBollinger(closes),
		EMA: EMAPair{
			EMA9:  EMA(closes, FastEMAPeriod),
			EMA21: EMA(closes, SlowEMAPeriod),
		},
		OBV: ComputeOBV(history),
	}

	last := &history[len(history)-1]
	technicals.Score, technicals.ActiveSignals = scoreSignals(technicals, last)
	technicals.Strength = StrengthFromScore(technicals.Score)

	return technicals, nil
}
