package fetch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/nvkr/aitrade/shared"
	"github.com/peterldowns/testy/assert"
)

// fakeQuoteFetcher is a scriptable quote fetcher for fallback tests.
type fakeQuoteFetcher struct {
	history []shared.Candlestick
	err     error
}

func (f *fakeQuoteFetcher) FetchHistory(ctx context.Context, symbol string) ([]shared.Candlestick, error) {
	return f.history, f.err
}

func TestSyntheticHistory(t *testing.T) {
	history, err := SyntheticHistory("BTCUSDT", 60_000, 50, 42)
	assert.NoError(t, err)
	assert.Equal(t, 50, len(history))
	assert.NoError(t, shared.ValidateHistory(history))

	for idx := range history {
		candle := &history[idx]
		assert.Equal(t, "BTCUSDT", candle.Market)
		assert.GreaterThan(t, float64(syntheticMaxVolume), candle.Volume)
		assert.LessThanOrEqual(t, candle.Low, candle.Open)
		assert.LessThanOrEqual(t, candle.Low, candle.Close)
		assert.LessThanOrEqual(t, candle.Open, candle.High)
		assert.LessThanOrEqual(t, candle.Close, candle.High)
		if idx > 0 {
			spacing := candle.Date.Sub(history[idx-1].Date)
			assert.Equal(t, syntheticSpacing, spacing)
		}
	}

	// Ensure the first candle anchors at the start price.
	assert.Equal(t, float64(60_000), history[0].Open)
}

func TestSyntheticHistoryDeterminism(t *testing.T) {
	// Ensure identical seeds produce identical prices and volumes.
	first, err := SyntheticHistory("BTCUSDT", 60_000, 50, 42)
	assert.NoError(t, err)
	second, err := SyntheticHistory("BTCUSDT", 60_000, 50, 42)
	assert.NoError(t, err)

	ignoreDates := cmp.Comparer(func(a, b time.Time) bool { return true })
	assert.True(t, cmp.Equal(first, second, ignoreDates))

	// Ensure a different seed diverges.
	third, err := SyntheticHistory("BTCUSDT", 60_000, 50, 7)
	assert.NoError(t, err)
	assert.False(t, cmp.Equal(first, third, ignoreDates))
}

func TestSyntheticHistoryValidation(t *testing.T) {
	_, err := SyntheticHistory("BTCUSDT", 0, 50, 42)
	assert.True(t, errors.Is(err, shared.ErrValidation))

	_, err = SyntheticHistory("BTCUSDT", 60_000, 0, 42)
	assert.True(t, errors.Is(err, shared.ErrValidation))
}

func TestHistoryOrSynthetic(t *testing.T) {
	ctx := context.Background()

	// Ensure a working fetcher short-circuits the fallback.
	upstream := []shared.Candlestick{{Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10, Date: time.Now()}}
	fetcher := &fakeQuoteFetcher{history: upstream}
	history, err := HistoryOrSynthetic(ctx, fetcher, "RELIANCE", 100, 50, 42)
	assert.NoError(t, err)
	assert.Equal(t, upstream, history)

	// Ensure a failing fetcher falls back to a generated history.
	fetcher = &fakeQuoteFetcher{err: errors.New("upstream unavailable")}
	history, err = HistoryOrSynthetic(ctx, fetcher, "RELIANCE", 100, 50, 42)
	assert.NoError(t, err)
	assert.Equal(t, 50, len(history))

	// Ensure an absent fetcher falls back as well.
	history, err = HistoryOrSynthetic(ctx, nil, "RELIANCE", 100, 50, 42)
	assert.NoError(t, err)
	assert.Equal(t, 50, len(history))
}
