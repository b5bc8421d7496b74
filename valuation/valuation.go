package valuation

import (
	"time"

	"github.com/nvkr/aitrade/shared"
)

const (
	// maxHistoryPoints caps the retained portfolio value history.
	maxHistoryPoints = 50
	// historyLabelLayout is the format layout for history point labels.
	historyLabelLayout = "15:04"
)

// PriceLookup resolves the current market price for a symbol, reporting
// false when no quote is available.
type PriceLookup func(symbol string) (float64, bool)

// PnL represents a profit and loss amount with its percentage of baseline.
type PnL struct {
	Amount  float64
	Percent float64
}

// BrokerStats represents per broker performance figures.
type BrokerStats struct {
	Broker shared.Broker
	PnL    PnL
	Active int
	Cash   float64
}

// HistoryPoint represents a point on the portfolio value time series.
type HistoryPoint struct {
	Label string
	Value float64
}

// UnifiedHoldings merges the paper holdings with the externally reported
// holdings. The sets are disjoint by broker so there is no key collision.
// The result is a derived projection recomputed on read, never a source of
// truth.
func UnifiedHoldings(paper []shared.Holding, external []shared.Holding) []shared.Holding {
	unified := make([]shared.Holding, 0, len(paper)+len(external))
	unified = append(unified, paper...)
	unified = append(unified, external...)

	return unified
}

// markPrice resolves the valuation price for a holding, falling back to its
// average cost when no quote is available.
func markPrice(holding *shared.Holding, prices PriceLookup) float64 {
	if prices != nil {
		if price, ok := prices(holding.Symbol); ok {
			return price
		}
	}

	return holding.AvgCost
}

// HoldingsValue computes the current market value of the provided holdings.
func HoldingsValue(holdings []shared.Holding, prices PriceLookup) float64 {
	var value float64
	for idx := range holdings {
		value += markPrice(&holdings[idx], prices) * holdings[idx].Quantity
	}

	return value
}

// PnLByAsset computes the profit and loss for an asset class from its cash
// pool, the current value of its holdings and its initial fund baseline.
// A zero baseline is a defined zero percent, not an error.
func PnLByAsset(holdings []shared.Holding, asset shared.AssetType, cash float64, initialFund float64, prices PriceLookup) PnL {
	var value float64
	for idx := range holdings {
		if holdings[idx].AssetType != asset {
			continue
		}
		value += markPrice(&holdings[idx], prices) * holdings[idx].Quantity
	}

	amount := (cash + value) - initialFund
	pnl := PnL{Amount: amount}
	if initialFund > 0 {
		pnl.Percent = amount / initialFund * 100
	}

	return pnl
}

// PnLByBroker computes per broker performance from the unified holdings and
// the externally reported cash balances.
func PnLByBroker(holdings []shared.Holding, broker shared.Broker, cash float64, prices PriceLookup) BrokerStats {
	var value, totalCost float64
	var active int
	for idx := range holdings {
		if holdings[idx].Broker != broker {
			continue
		}
		value += markPrice(&holdings[idx], prices) * holdings[idx].Quantity
		totalCost += holdings[idx].TotalCost
		active++
	}

	amount := value - totalCost
	stats := BrokerStats{
		Broker: broker,
		PnL:    PnL{Amount: amount},
		Active: active,
		Cash:   cash,
	}
	if totalCost > 0 {
		stats.PnL.Percent = amount / totalCost * 100
	}

	return stats
}

// TotalValue computes the current total portfolio value, paper cash plus
// external balances plus the market value of all holdings.
func TotalValue(paperCash float64, balances map[shared.Broker]float64, holdings []shared.Holding, prices PriceLookup) float64 {
	value := paperCash
	for _, balance := range balances {
		value += balance
	}

	return value + HoldingsValue(holdings, prices)
}

// AppendHistoryPoint appends a portfolio value point labelled with the
// provided time, coalescing repeated labels and capping the retained series.
func AppendHistoryPoint(history []HistoryPoint, now time.Time, value float64) []HistoryPoint {
	label := now.Format(historyLabelLayout)
	if len(history) > 0 && history[len(history)-1].Label == label {
		return history
	}

	history = append(history, HistoryPoint{Label: label, Value: value})
	if len(history) > maxHistoryPoints {
		history = history[len(history)-maxHistoryPoints:]
	}

	return history
}
