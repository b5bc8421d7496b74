package shared

import (
	"fmt"
	"math"
	"time"
)

// Sentiment represents the candlestick sentiment.
type Sentiment int

const (
	Neutral Sentiment = iota
	Bullish
	Bearish
)

// String stringifies the provided sentiment.
func (s *Sentiment) String() string {
	switch *s {
	case Neutral:
		return "neutral"
	case Bullish:
		return "bullish"
	case Bearish:
		return "bearish"
	default:
		return "unknown"
	}
}

// Candlestick represents a unit candlestick for a market.
type Candlestick struct {
	Open   float64
	Low    float64
	High   float64
	Close  float64
	Volume float64
	Date   time.Time

	// Metadata fields.
	Market string
}

// FetchSentiment returns the provided candlestick's sentiment.
func (c *Candlestick) FetchSentiment() Sentiment {
	sentiment := c.Close - c.Open
	switch {
	case sentiment < 0:
		return Bearish
	case sentiment > 0:
		return Bullish
	default:
		return Neutral
	}
}

// validatePrice asserts the provided price component is finite and positive.
func validatePrice(name string, price float64) error {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return fmt.Errorf("%w: non-finite %s price %v", ErrValidation, name, price)
	}
	if price <= 0 {
		return fmt.Errorf("%w: non-positive %s price %v", ErrValidation, name, price)
	}

	return nil
}

// Validate asserts the candlestick has sane, finite components.
func (c *Candlestick) Validate() error {
	if err := validatePrice("open", c.Open); err != nil {
		return err
	}
	if err := validatePrice("high", c.High); err != nil {
		return err
	}
	if err := validatePrice("low", c.Low); err != nil {
		return err
	}
	if err := validatePrice("close", c.Close); err != nil {
		return err
	}
	if math.IsNaN(c.Volume) || math.IsInf(c.Volume, 0) || c.Volume < 0 {
		return fmt.Errorf("%w: invalid volume %v", ErrValidation, c.Volume)
	}

	return nil
}

// ValidateHistory asserts the provided history is non-empty, well formed,
// chronological and free of duplicate timestamps.
func ValidateHistory(history []Candlestick) error {
	if len(history) == 0 {
		return fmt.Errorf("%w: empty candle history", ErrValidation)
	}

	for idx := range history {
		if err := history[idx].Validate(); err != nil {
			return err
		}

		if idx > 0 && !history[idx].Date.After(history[idx-1].Date) {
			return fmt.Errorf("%w: candle history not chronological at index %d",
				ErrValidation, idx)
		}
	}

	return nil
}
