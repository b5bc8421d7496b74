package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nvkr/aitrade/shared"
	"github.com/rs/zerolog"
)

const (
	// bufferSize is the default buffer size for channels.
	bufferSize = 64
	// orderTimeout bounds external broker order placement.
	orderTimeout = time.Second * 10
)

// TradeResult represents the outcome of a processed trade request.
type TradeResult struct {
	Transaction *shared.Transaction
	Err         error
}

// TradeRequest represents a trade intent routed to the paper ledger or an
// external broker.
type TradeRequest struct {
	Side      shared.Side
	Symbol    string
	Quantity  float64
	Price     float64
	AssetType shared.AssetType
	Broker    shared.Broker
	Response  chan TradeResult
}

// NewTradeRequest initializes a new trade request.
func NewTradeRequest(side shared.Side, symbol string, quantity float64, price float64, assetType shared.AssetType, broker shared.Broker) TradeRequest {
	return TradeRequest{
		Side:      side,
		Symbol:    symbol,
		Quantity:  quantity,
		Price:     price,
		AssetType: assetType,
		Broker:    broker,
		Response:  make(chan TradeResult, 1),
	}
}

// ManagerConfig represents the ledger manager configuration.
type ManagerConfig struct {
	// InitialFunds represents the starting cash pools per asset class.
	InitialFunds map[shared.AssetType]float64
	// LiquidationEpsilon is the tolerance below which a remaining holding
	// quantity is considered fully liquidated.
	LiquidationEpsilon float64
	// Holdings are previously persisted holdings to restore.
	Holdings []shared.Holding
	// Transactions are previously persisted transactions to restore.
	Transactions []shared.Transaction
	// BrokerClients maps external brokers to their configured clients.
	BrokerClients map[shared.Broker]shared.BrokerClient
	// RequestReconcile triggers an on-demand reconciliation refresh.
	RequestReconcile func()
	// PersistFunds persists the provided cash pools.
	PersistFunds func(funds Funds) error
	// PersistHolding persists the provided paper holding.
	PersistHolding func(holding *shared.Holding) error
	// RemoveHolding removes the persisted paper holding for the symbol.
	RemoveHolding func(symbol string) error
	// PersistTransaction persists the provided transaction.
	PersistTransaction func(txn *shared.Transaction) error
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Manager serializes all ledger mutations behind a single writer queue.
// Trade requests are processed one at a time so no two mutations can
// observe the same pre-state, reads are served from copied snapshots.
type Manager struct {
	cfg       *ManagerConfig
	ledger    *Ledger
	ledgerMtx sync.RWMutex
	trades    chan TradeRequest
}

// NewManager initializes a new ledger manager.
func NewManager(cfg *ManagerConfig) *Manager {
	ledger := NewLedger(cfg.InitialFunds, cfg.LiquidationEpsilon)
	ledger.Restore(cfg.Holdings, cfg.Transactions)

	return &Manager{
		cfg:    cfg,
		ledger: ledger,
		trades: make(chan TradeRequest, bufferSize),
	}
}

// SendTradeRequest relays the provided trade request for processing.
func (m *Manager) SendTradeRequest(request TradeRequest) {
	select {
	case m.trades <- request:
		// do nothing.
	default:
		m.cfg.Logger.Error().Msgf("trade request channel at capacity: %d/%d",
			len(m.trades), bufferSize)
		request.Response <- TradeResult{Err: fmt.Errorf("trade request channel at capacity")}
	}
}

// persistAfterTrade flushes mutated ledger state after an applied paper trade.
func (m *Manager) persistAfterTrade(request *TradeRequest, txn *shared.Transaction) {
	if m.cfg.PersistFunds != nil {
		if err := m.cfg.PersistFunds(m.ledger.Funds()); err != nil {
			m.cfg.Logger.Error().Msgf("persisting funds: %v", err)
		}
	}

	holding, ok := m.holdingFor(request.Symbol)
	switch {
	case ok:
		if m.cfg.PersistHolding != nil {
			if err := m.cfg.PersistHolding(&holding); err != nil {
				m.cfg.Logger.Error().Msgf("persisting holding %s: %v", request.Symbol, err)
			}
		}
	default:
		if m.cfg.RemoveHolding != nil {
			if err := m.cfg.RemoveHolding(request.Symbol); err != nil {
				m.cfg.Logger.Error().Msgf("removing holding %s: %v", request.Symbol, err)
			}
		}
	}

	if m.cfg.PersistTransaction != nil {
		if err := m.cfg.PersistTransaction(txn); err != nil {
			m.cfg.Logger.Error().Msgf("persisting transaction %s: %v", txn.ID, err)
		}
	}
}

// handlePaperTrade applies the provided trade request to the paper ledger.
func (m *Manager) handlePaperTrade(request *TradeRequest) TradeResult {
	m.ledgerMtx.Lock()
	var txn *shared.Transaction
	var err error
	switch request.Side {
	case shared.Buy:
		txn, err = m.ledger.Buy(request.Symbol, request.Quantity, request.Price, request.AssetType)
	case shared.Sell:
		txn, err = m.ledger.Sell(request.Symbol, request.Quantity, request.Price, request.AssetType)
	default:
		err = fmt.Errorf("%w: unknown trade side %d", shared.ErrValidation, request.Side)
	}
	m.ledgerMtx.Unlock()

	if err != nil {
		return TradeResult{Err: err}
	}

	m.persistAfterTrade(request, txn)
	return TradeResult{Transaction: txn}
}

// handleExternalTrade dispatches the provided trade request to its broker
// client. A transaction is appended only on a confirmed success, funds and
// holdings stay untouched since those are owned externally and obtained via
// reconciliation.
func (m *Manager) handleExternalTrade(ctx context.Context, request *TradeRequest) TradeResult {
	client, ok := m.cfg.BrokerClients[request.Broker]
	if !ok {
		return TradeResult{Err: fmt.Errorf("%w: %s credentials not configured",
			shared.ErrOrderRejected, request.Broker.String())}
	}

	orderCtx, cancel := context.WithTimeout(ctx, orderTimeout)
	defer cancel()

	result, err := client.PlaceOrder(orderCtx, request.Symbol, request.Quantity,
		request.Side, request.Price, request.AssetType)
	if err != nil {
		return TradeResult{Err: fmt.Errorf("%w: %s: %v",
			shared.ErrOrderRejected, request.Broker.String(), err)}
	}

	if !result.Success {
		return TradeResult{Err: fmt.Errorf("%w: %s: %s",
			shared.ErrOrderRejected, request.Broker.String(), result.Message)}
	}

	txn, err := shared.NewTransaction(request.Side, request.Symbol, request.AssetType,
		request.Quantity, request.Price, request.Broker)
	if err != nil {
		return TradeResult{Err: err}
	}

	m.ledgerMtx.Lock()
	m.ledger.Append(txn)
	m.ledgerMtx.Unlock()

	if m.cfg.PersistTransaction != nil {
		if err := m.cfg.PersistTransaction(txn); err != nil {
			m.cfg.Logger.Error().Msgf("persisting transaction %s: %v", txn.ID, err)
		}
	}

	if m.cfg.RequestReconcile != nil {
		m.cfg.RequestReconcile()
	}

	return TradeResult{Transaction: txn}
}

// handleTradeRequest processes the provided trade request.
func (m *Manager) handleTradeRequest(ctx context.Context, request *TradeRequest) {
	var result TradeResult
	switch request.Broker {
	case shared.Paper:
		result = m.handlePaperTrade(request)
	default:
		result = m.handleExternalTrade(ctx, request)
	}

	if result.Err != nil {
		m.cfg.Logger.Error().Msgf("processing %s %s trade for %s: %v",
			request.Broker.String(), request.Side.String(), request.Symbol, result.Err)
	}

	request.Response <- result
}

// holdingFor returns a copy of the paper holding for the provided symbol.
func (m *Manager) holdingFor(symbol string) (shared.Holding, bool) {
	m.ledgerMtx.RLock()
	defer m.ledgerMtx.RUnlock()

	for _, holding := range m.ledger.Holdings() {
		if holding.Symbol == symbol {
			return holding, true
		}
	}

	return shared.Holding{}, false
}

// Funds returns a copy of the paper cash pools.
func (m *Manager) Funds() Funds {
	m.ledgerMtx.RLock()
	defer m.ledgerMtx.RUnlock()

	return m.ledger.Funds()
}

// Holdings returns a copy of the paper holdings.
func (m *Manager) Holdings() []shared.Holding {
	m.ledgerMtx.RLock()
	defer m.ledgerMtx.RUnlock()

	return m.ledger.Holdings()
}

// Transactions returns a copy of the transaction log in append order.
func (m *Manager) Transactions() []shared.Transaction {
	m.ledgerMtx.RLock()
	defer m.ledgerMtx.RUnlock()

	return m.ledger.Transactions()
}

// Run manages the lifecycle processes of the ledger manager. Requests are
// deliberately handled inline, the single goroutine is the writer queue
// that keeps ledger transitions sequential.
func (m *Manager) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case request := <-m.trades:
			m.handleTradeRequest(ctx, &request)
		}
	}
}
