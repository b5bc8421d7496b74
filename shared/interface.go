package shared

import (
	"context"
)

// OrderResult represents the outcome of an externally placed order.
type OrderResult struct {
	Success bool
	Message string
}

// BrokerClient defines the requirements for interacting with an external
// broker venue.
type BrokerClient interface {
	// Broker returns the broker this client executes against.
	Broker() Broker
	// PlaceOrder submits the provided order to the broker.
	PlaceOrder(ctx context.Context, symbol string, quantity float64, side Side, price float64, assetType AssetType) (*OrderResult, error)
	// FetchHoldings fetches the broker reported holdings.
	FetchHoldings(ctx context.Context) ([]Holding, error)
	// FetchBalance fetches the broker reported cash balance.
	FetchBalance(ctx context.Context) (float64, error)
}

// QuoteFetcher defines the requirements for fetching candle history for a
// market symbol.
type QuoteFetcher interface {
	// FetchHistory fetches candle history for the provided symbol, returning
	// a nil slice when the symbol has no real data source.
	FetchHistory(ctx context.Context, symbol string) ([]Candlestick, error)
}
