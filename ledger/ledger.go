package ledger

import (
	"fmt"
	"math"
	"sort"

	"github.com/nvkr/aitrade/shared"
)

const (
	// DefaultLiquidationEpsilon is the default tolerance below which a
	// remaining holding quantity is considered fully liquidated.
	DefaultLiquidationEpsilon = 1e-4
)

// Ledger is the authoritative in-memory state for paper cash, paper
// holdings and the append-only transaction log. All mutations flow through
// Buy and Sell and are all-or-nothing.
type Ledger struct {
	funds        Funds
	holdings     map[string]*shared.Holding
	transactions []shared.Transaction
	epsilon      float64
}

// NewLedger initializes a ledger with the provided initial cash pools and
// liquidation epsilon. A non-positive epsilon uses the default.
func NewLedger(initialFunds map[shared.AssetType]float64, epsilon float64) *Ledger {
	if epsilon <= 0 {
		epsilon = DefaultLiquidationEpsilon
	}

	return &Ledger{
		funds:        NewFunds(initialFunds),
		holdings:     make(map[string]*shared.Holding),
		transactions: []shared.Transaction{},
		epsilon:      epsilon,
	}
}

// Restore seeds the ledger with previously persisted holdings and
// transactions. Non-paper holdings are ignored, the ledger only owns the
// paper subset.
func (l *Ledger) Restore(holdings []shared.Holding, transactions []shared.Transaction) {
	for idx := range holdings {
		if holdings[idx].Broker != shared.Paper {
			continue
		}

		holding := holdings[idx]
		l.holdings[holding.Symbol] = &holding
	}

	l.transactions = append(l.transactions, transactions...)
}

// validateTrade asserts sane trade inputs.
func validateTrade(symbol string, quantity float64, price float64) error {
	if symbol == "" {
		return fmt.Errorf("%w: trade symbol cannot be an empty string", shared.ErrValidation)
	}
	if quantity <= 0 || math.IsNaN(quantity) || math.IsInf(quantity, 0) {
		return fmt.Errorf("%w: invalid trade quantity %v", shared.ErrValidation, quantity)
	}
	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return fmt.Errorf("%w: invalid trade price %v", shared.ErrValidation, price)
	}

	return nil
}

// Buy debits the asset class pool by the trade cost and merges the fill
// into the paper holding for the symbol using a weighted average cost
// basis. Either all of the transition applies or none of it does.
func (l *Ledger) Buy(symbol string, quantity float64, price float64, assetType shared.AssetType) (*shared.Transaction, error) {
	if err := validateTrade(symbol, quantity, price); err != nil {
		return nil, err
	}

	// Pools are independent per asset class, a fill can never reclass an
	// existing holding and shift cash between pools.
	existing, ok := l.holdings[symbol]
	if ok && existing.AssetType != assetType {
		return nil, fmt.Errorf("%w: %s is held as %s, not %s", shared.ErrValidation,
			symbol, existing.AssetType.String(), assetType.String())
	}

	cost := quantity * price
	if l.funds.Balance(assetType) < cost {
		return nil, fmt.Errorf("%w: %s pool has %v, need %v",
			shared.ErrInsufficientFunds, assetType.String(), l.funds.Balance(assetType), cost)
	}

	txn, err := shared.NewTransaction(shared.Buy, symbol, assetType, quantity, price, shared.Paper)
	if err != nil {
		return nil, err
	}

	if err := l.funds.Debit(assetType, cost); err != nil {
		return nil, err
	}

	switch {
	case ok:
		existing.Merge(quantity, price)
	default:
		holding, err := shared.NewHolding(symbol, assetType, quantity, price, shared.Paper)
		if err != nil {
			// Roll back the debit, the precondition checks make this
			// unreachable for inputs that passed validation.
			l.funds.Credit(assetType, cost)
			return nil, err
		}
		l.holdings[symbol] = holding
	}

	l.transactions = append(l.transactions, *txn)
	return txn, nil
}

// Sell credits the asset class pool with the trade proceeds and reduces the
// paper holding for the symbol, removing it entirely once the remaining
// quantity is within the liquidation epsilon of zero.
func (l *Ledger) Sell(symbol string, quantity float64, price float64, assetType shared.AssetType) (*shared.Transaction, error) {
	if err := validateTrade(symbol, quantity, price); err != nil {
		return nil, err
	}

	existing, ok := l.holdings[symbol]
	if !ok || existing.Quantity < quantity {
		var held float64
		if ok {
			held = existing.Quantity
		}
		return nil, fmt.Errorf("%w: %s holds %v, need %v",
			shared.ErrInsufficientHoldings, symbol, held, quantity)
	}

	// Proceeds credit the pool the holding was bought from, a sell under a
	// mismatched asset class would transfer cash across pools.
	if existing.AssetType != assetType {
		return nil, fmt.Errorf("%w: %s is held as %s, not %s", shared.ErrValidation,
			symbol, existing.AssetType.String(), assetType.String())
	}

	txn, err := shared.NewTransaction(shared.Sell, symbol, assetType, quantity, price, shared.Paper)
	if err != nil {
		return nil, err
	}

	proceeds := quantity * price
	if err := l.funds.Credit(assetType, proceeds); err != nil {
		return nil, err
	}

	switch {
	case math.Abs(existing.Quantity-quantity) < l.epsilon:
		delete(l.holdings, symbol)
	default:
		existing.Reduce(quantity)
	}

	l.transactions = append(l.transactions, *txn)
	return txn, nil
}

// Append records a confirmed external trade on the transaction log without
// touching funds or holdings, those are owned externally and obtained via
// reconciliation.
func (l *Ledger) Append(txn *shared.Transaction) {
	l.transactions = append(l.transactions, *txn)
}

// Funds returns a copy of the cash pools.
func (l *Ledger) Funds() Funds {
	return l.funds.Copy()
}

// Holdings returns a copy of the paper holdings.
func (l *Ledger) Holdings() []shared.Holding {
	holdings := make([]shared.Holding, 0, len(l.holdings))
	for _, holding := range l.holdings {
		holdings = append(holdings, *holding)
	}

	sort.Slice(holdings, func(i, j int) bool {
		return holdings[i].Symbol < holdings[j].Symbol
	})

	return holdings
}

// Transactions returns a copy of the transaction log in append order.
func (l *Ledger) Transactions() []shared.Transaction {
	transactions := make([]shared.Transaction, len(l.transactions))
	copy(transactions, l.transactions)

	return transactions
}
