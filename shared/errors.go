package shared

import "errors"

var (
	// ErrValidation indicates malformed input rejected before any state change.
	ErrValidation = errors.New("validation")
	// ErrInsufficientFunds indicates a buy exceeding the available cash pool.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInsufficientHoldings indicates a sell exceeding the held quantity.
	ErrInsufficientHoldings = errors.New("insufficient holdings")
	// ErrExternalFetch indicates an unavailable broker or data source.
	ErrExternalFetch = errors.New("external fetch")
	// ErrOrderRejected indicates a broker declined an order.
	ErrOrderRejected = errors.New("order rejected")
)
