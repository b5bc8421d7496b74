package shared

import (
	"fmt"
	"math"
)

// Holding represents an owned position in a market instrument.
type Holding struct {
	Symbol    string
	AssetType AssetType
	Quantity  float64
	AvgCost   float64
	TotalCost float64
	Broker    Broker
}

// NewHolding initializes a new holding from its first fill.
func NewHolding(symbol string, assetType AssetType, quantity float64, price float64, broker Broker) (*Holding, error) {
	if symbol == "" {
		return nil, fmt.Errorf("%w: holding symbol cannot be an empty string", ErrValidation)
	}
	if quantity <= 0 || math.IsNaN(quantity) || math.IsInf(quantity, 0) {
		return nil, fmt.Errorf("%w: invalid holding quantity %v", ErrValidation, quantity)
	}
	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return nil, fmt.Errorf("%w: invalid holding price %v", ErrValidation, price)
	}

	holding := &Holding{
		Symbol:    symbol,
		AssetType: assetType,
		Quantity:  quantity,
		AvgCost:   price,
		TotalCost: quantity * price,
		Broker:    broker,
	}

	return holding, nil
}

// Merge folds the provided fill into the holding using a weighted average
// cost basis.
func (h *Holding) Merge(quantity float64, price float64) {
	cost := quantity * price
	h.Quantity += quantity
	h.TotalCost += cost
	h.AvgCost = h.TotalCost / h.Quantity
}

// Reduce shrinks the holding by the provided quantity. The average cost is
// unchanged by a partial sell, only the total cost basis shrinks with it.
func (h *Holding) Reduce(quantity float64) {
	h.Quantity -= quantity
	h.TotalCost = h.AvgCost * h.Quantity
}
