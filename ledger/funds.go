package ledger

import (
	"fmt"
	"math"

	"github.com/nvkr/aitrade/shared"
)

// Funds represents the simulated cash pools, one per asset class. Pools are
// independent, there is no cross class transfer.
type Funds map[shared.AssetType]float64

// NewFunds initializes the cash pools from the provided initial amounts,
// backfilling a zero pool for any absent asset class.
func NewFunds(initial map[shared.AssetType]float64) Funds {
	funds := make(Funds, len(shared.AssetTypes))
	for _, asset := range shared.AssetTypes {
		funds[asset] = initial[asset]
	}

	return funds
}

// Balance returns the cash balance of the pool for the provided asset class.
func (f Funds) Balance(asset shared.AssetType) float64 {
	return f[asset]
}

// Debit withdraws the provided amount from the pool for the asset class,
// rejecting the withdrawal if it would drive the pool negative.
func (f Funds) Debit(asset shared.AssetType, amount float64) error {
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return fmt.Errorf("%w: invalid debit amount %v", shared.ErrValidation, amount)
	}

	if f[asset] < amount {
		return fmt.Errorf("%w: %s pool has %v, need %v",
			shared.ErrInsufficientFunds, asset.String(), f[asset], amount)
	}

	f[asset] -= amount
	return nil
}

// Credit deposits the provided amount into the pool for the asset class.
func (f Funds) Credit(asset shared.AssetType, amount float64) error {
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return fmt.Errorf("%w: invalid credit amount %v", shared.ErrValidation, amount)
	}

	f[asset] += amount
	return nil
}

// Total returns the sum of all pools.
func (f Funds) Total() float64 {
	var total float64
	for _, amount := range f {
		total += amount
	}

	return total
}

// Copy returns a copy of the cash pools.
func (f Funds) Copy() Funds {
	funds := make(Funds, len(f))
	for asset, amount := range f {
		funds[asset] = amount
	}

	return funds
}
