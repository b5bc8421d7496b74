package fetch

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/nvkr/aitrade/shared"
)

const (
	// syntheticVolatility is the per-candle price volatility of generated
	// histories.
	syntheticVolatility = 0.002
	// syntheticWickRange is the maximum wick extension beyond the candle body.
	syntheticWickRange = 0.001
	// syntheticMaxVolume bounds the generated candle volume.
	syntheticMaxVolume = 10000
	// syntheticSpacing is the time spacing between generated candles.
	syntheticSpacing = time.Minute * 5
)

// SyntheticHistory generates a fallback candle history for symbols without
// a real data source. Generation is deterministic for a given seed so the
// signal engine produces identical output for identical inputs.
func SyntheticHistory(symbol string, startPrice float64, count int, seed int64) ([]shared.Candlestick, error) {
	if startPrice <= 0 || math.IsNaN(startPrice) || math.IsInf(startPrice, 0) {
		return nil, fmt.Errorf("%w: invalid synthetic start price %v",
			shared.ErrValidation, startPrice)
	}
	if count <= 0 {
		return nil, fmt.Errorf("%w: invalid synthetic candle count %d",
			shared.ErrValidation, count)
	}

	rng := rand.New(rand.NewSource(seed))
	candles := make([]shared.Candlestick, 0, count)

	price := startPrice
	date := time.Now().Add(-time.Duration(count) * syntheticSpacing)

	for idx := 0; idx < count; idx++ {
		change := (rng.Float64() - 0.5) * 2 * syntheticVolatility
		open := price
		close := price * (1 + change)
		high := math.Max(open, close) * (1 + rng.Float64()*syntheticWickRange)
		low := math.Min(open, close) * (1 - rng.Float64()*syntheticWickRange)
		volume := math.Floor(rng.Float64() * syntheticMaxVolume)

		candles = append(candles, shared.Candlestick{
			Open:   open,
			High:   high,
			Low:    low,
			Close:  close,
			Volume: volume,
			Date:   date,
			Market: symbol,
		})

		price = close
		date = date.Add(syntheticSpacing)
	}

	return candles, nil
}

// HistoryOrSynthetic fetches candle history for the provided symbol from
// the quote fetcher, falling back to a generated history anchored at the
// fallback price when the symbol has no real data source.
func HistoryOrSynthetic(ctx context.Context, fetcher shared.QuoteFetcher, symbol string, fallbackPrice float64, count int, seed int64) ([]shared.Candlestick, error) {
	if fetcher != nil {
		history, err := fetcher.FetchHistory(ctx, symbol)
		if err == nil && len(history) > 0 {
			return history, nil
		}
	}

	return SyntheticHistory(symbol, fallbackPrice, count, seed)
}
