package indicator

import (
	"errors"
	"testing"

	"github.com/nvkr/aitrade/shared"
	"github.com/peterldowns/testy/assert"
)

func TestStrengthFromScore(t *testing.T) {
	tests := []struct {
		name  string
		score float64
		want  Strength
	}{
		{
			name:  "strong buy at threshold",
			score: 4,
			want:  StrongBuy,
		},
		{
			name:  "buy at threshold",
			score: 2,
			want:  Buy,
		},
		{
			name:  "hold just above sell threshold",
			score: -1.99,
			want:  Hold,
		},
		{
			name:  "hold at zero",
			score: 0,
			want:  Hold,
		},
		{
			name:  "sell at threshold",
			score: -2,
			want:  Sell,
		},
		{
			name:  "sell below threshold",
			score: -5,
			want:  Sell,
		},
	}

	for _, test := range tests {
		strength := StrengthFromScore(test.score)
		if strength != test.want {
			t.Errorf("%s: expected %s, got %s",
				test.name, test.want.String(), strength.String())
		}
	}
}

func TestStrengthFromScoreMonotonic(t *testing.T) {
	// Ensure a higher score never yields a weaker strength across the
	// whole threshold sweep.
	prev := Sell
	for score := -8.0; score <= 8.0; score += 0.25 {
		strength := StrengthFromScore(score)
		if strength > prev {
			t.Fatalf("strength weakened from %s to %s at score %v",
				prev.String(), strength.String(), score)
		}
		prev = strength
	}
}

func TestComputeTechnicals(t *testing.T) {
	// Ensure a malformed history is rejected.
	_, err := ComputeTechnicals(nil)
	assert.True(t, errors.Is(err, shared.ErrValidation))

	// Ensure a short history degrades indicators to neutral readings
	// instead of failing.
	technicals, err := ComputeTechnicals(trendHistory([]float64{100, 101, 102}))
	assert.NoError(t, err)
	assert.Equal(t, float64(neutralOscillator), technicals.RSI)
	assert.Equal(t, float64(neutralOscillator), technicals.Stochastic.K)
	assert.Equal(t, float64(0), technicals.ADX)
	assert.NotNil(t, technicals.ActiveSignals)

	// Ensure a full history populates the snapshot coherently.
	closes := make([]float64, 0, 60)
	for idx := range cap(closes) {
		closes = append(closes, 100+float64(idx))
	}
	technicals, err = ComputeTechnicals(trendHistory(closes))
	assert.NoError(t, err)
	assert.GreaterThan(t, technicals.RSI, float64(0))
	assert.LessThanOrEqual(t, technicals.RSI, float64(100))
	assert.GreaterThan(t, technicals.ATR, float64(0))
	assert.GreaterThan(t, technicals.EMA.EMA9, technicals.EMA.EMA21)
	assert.Equal(t, StrengthFromScore(technicals.Score), technicals.Strength)
}

func TestScoreSignalLabels(t *testing.T) {
	// Ensure the labels track the fired votes. A deeply oversold snapshot
	// should fire the oscillator and band votes bullishly.
	last := &shared.Candlestick{Open: 10, High: 11, Low: 9, Close: 10.5, Volume: 100}
	technicals := &Technicals{
		RSI:        20,
		MACD:       MACD{Histogram: 1},
		Stochastic: Stochastic{K: 10, D: 12},
		Bollinger:  Bollinger{PercentB: -0.1},
		EMA:        EMAPair{EMA9: 10.2, EMA21: 10.0},
	}

	score, signals := scoreSignals(technicals, last)
	want := []string{
		"RSI oversold",
		"MACD bullish",
		"EMA uptrend",
		"Below lower band",
		"Stochastic oversold",
		"Bullish close",
	}
	assert.Equal(t, want, signals)
	assert.Equal(t, float64(oscillatorVote+trendVote+trendVote+bandVote+bandVote+sentimentVote), score)
	assert.Equal(t, StrongBuy, StrengthFromScore(score))
}
