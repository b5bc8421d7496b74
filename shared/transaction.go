package shared

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// Side represents the direction of a trade.
type Side int

const (
	Buy Side = iota
	Sell
)

// String stringifies the provided side.
func (s *Side) String() string {
	switch *s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "unknown"
	}
}

// ParseSide parses a trade side from the provided string.
func ParseSide(str string) (Side, error) {
	switch str {
	case "BUY":
		return Buy, nil
	case "SELL":
		return Sell, nil
	default:
		return 0, fmt.Errorf("unknown side: %s", str)
	}
}

// Transaction represents an append-only trade log entry. It is never
// mutated or deleted after creation.
type Transaction struct {
	ID        string
	Side      Side
	Symbol    string
	AssetType AssetType
	Quantity  float64
	Price     float64
	Timestamp int64
	Broker    Broker
}

// NewTransaction initializes a new transaction for the provided fill.
func NewTransaction(side Side, symbol string, assetType AssetType, quantity float64, price float64, broker Broker) (*Transaction, error) {
	if symbol == "" {
		return nil, fmt.Errorf("%w: transaction symbol cannot be an empty string", ErrValidation)
	}
	if quantity <= 0 || math.IsNaN(quantity) || math.IsInf(quantity, 0) {
		return nil, fmt.Errorf("%w: invalid transaction quantity %v", ErrValidation, quantity)
	}
	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return nil, fmt.Errorf("%w: invalid transaction price %v", ErrValidation, price)
	}

	txn := &Transaction{
		ID:        uuid.New().String(),
		Side:      side,
		Symbol:    symbol,
		AssetType: assetType,
		Quantity:  quantity,
		Price:     price,
		Timestamp: time.Now().Unix(),
		Broker:    broker,
	}

	return txn, nil
}
