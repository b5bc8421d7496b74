package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/nvkr/aitrade/broker"
	"github.com/nvkr/aitrade/database"
	"github.com/nvkr/aitrade/ledger"
	"github.com/nvkr/aitrade/reconcile"
	"github.com/nvkr/aitrade/shared"
	"github.com/nvkr/aitrade/valuation"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

const (
	// persistTimeout bounds a single persistence call.
	persistTimeout = time.Second * 5
	// tradeTimeout bounds waiting on a trade result.
	tradeTimeout = time.Second * 15
	// historyInterval is the portfolio value snapshot interval.
	historyInterval = time.Minute
)

// TraderConfig represents the configuration struct for the trader service.
type TraderConfig struct {
	// InitialFunds represents the starting cash pools per asset class.
	InitialFunds map[shared.AssetType]float64
	// LiquidationEpsilon is the tolerance below which a remaining holding
	// quantity is considered fully liquidated.
	LiquidationEpsilon float64
	// ReconcileInterval is the external holdings refresh interval.
	ReconcileInterval time.Duration
	// DatabaseEndpoint represents the database connection endpoint.
	DatabaseEndpoint string
	// DatabaseUser is the database user.
	DatabaseUser string
	// DatabasePass is the database user pass.
	DatabasePass string
	// DhanClientID is the dhan client id.
	DhanClientID string
	// DhanAccessToken is the dhan access token.
	DhanAccessToken string
	// ShoonyaUserID is the shoonya user id.
	ShoonyaUserID string
	// ShoonyaSessionToken is the shoonya session token.
	ShoonyaSessionToken string
	// BinanceAPIKey is the binance api key.
	BinanceAPIKey string
	// BinanceSecret is the binance api secret.
	BinanceSecret string
	// CoinDCXAPIKey is the coindcx api key.
	CoinDCXAPIKey string
	// CoinDCXSecret is the coindcx api secret.
	CoinDCXSecret string
	// CoinSwitchAPIKey is the coinswitch api key.
	CoinSwitchAPIKey string
	// Cancel is the context cancellation function.
	Cancel context.CancelFunc
}

// Validate asserts the config sane inputs.
func (cfg *TraderConfig) Validate() error {
	var errs error

	if cfg.DatabaseEndpoint == "" {
		errs = errors.Join(errs, fmt.Errorf("database endpoint cannot be an empty string"))
	}
	if cfg.Cancel == nil {
		errs = errors.Join(errs, fmt.Errorf("context cancellation function cannot be nil"))
	}
	for asset, amount := range cfg.InitialFunds {
		if amount < 0 {
			errs = errors.Join(errs, fmt.Errorf("initial %s fund cannot be negative",
				asset.String()))
		}
	}

	return errs
}

// brokerClients builds the configured external broker clients. Brokers
// without credentials are silently skipped.
func brokerClients(cfg *TraderConfig) (map[shared.Broker]shared.BrokerClient, error) {
	clients := make(map[shared.Broker]shared.BrokerClient)

	if cfg.DhanClientID != "" && cfg.DhanAccessToken != "" {
		client, err := broker.NewDhanClient(&broker.DhanConfig{
			ClientID:    cfg.DhanClientID,
			AccessToken: cfg.DhanAccessToken,
		})
		if err != nil {
			return nil, fmt.Errorf("creating dhan client: %w", err)
		}
		clients[shared.Dhan] = client
	}

	if cfg.ShoonyaUserID != "" && cfg.ShoonyaSessionToken != "" {
		client, err := broker.NewShoonyaClient(&broker.ShoonyaConfig{
			UserID:       cfg.ShoonyaUserID,
			SessionToken: cfg.ShoonyaSessionToken,
		})
		if err != nil {
			return nil, fmt.Errorf("creating shoonya client: %w", err)
		}
		clients[shared.Shoonya] = client
	}

	if cfg.BinanceAPIKey != "" && cfg.BinanceSecret != "" {
		client, err := broker.NewBinanceClient(&broker.BinanceConfig{
			APIKey: cfg.BinanceAPIKey,
			Secret: cfg.BinanceSecret,
		})
		if err != nil {
			return nil, fmt.Errorf("creating binance client: %w", err)
		}
		clients[shared.Binance] = client
	}

	if cfg.CoinDCXAPIKey != "" && cfg.CoinDCXSecret != "" {
		client, err := broker.NewCoinDCXClient(&broker.CoinDCXConfig{
			APIKey: cfg.CoinDCXAPIKey,
			Secret: cfg.CoinDCXSecret,
		})
		if err != nil {
			return nil, fmt.Errorf("creating coindcx client: %w", err)
		}
		clients[shared.CoinDCX] = client
	}

	if cfg.CoinSwitchAPIKey != "" {
		client, err := broker.NewCoinSwitchClient(&broker.CoinSwitchConfig{
			APIKey: cfg.CoinSwitchAPIKey,
		})
		if err != nil {
			return nil, fmt.Errorf("creating coinswitch client: %w", err)
		}
		clients[shared.CoinSwitch] = client
	}

	return clients, nil
}

// Trader represents the paper and multi broker trading service.
type Trader struct {
	cfg           *TraderConfig
	db            *database.Database
	ledgerManager *ledger.Manager
	coordinator   *reconcile.Coordinator
	jobScheduler  *gocron.Scheduler
	history       []valuation.HistoryPoint
	historyMtx    sync.RWMutex
	logger        *zerolog.Logger
	wg            sync.WaitGroup
}

// NewTrader initializes a new trader service.
func NewTrader(ctx context.Context, cfg *TraderConfig) (*Trader, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	logger := log.With().Str("service", "trader").Logger()

	dbLogger := logger.With().Str("component", "database").Logger()
	db, err := database.NewDatabase(ctx, &database.DatabaseConfig{
		Endpoint: cfg.DatabaseEndpoint,
		User:     cfg.DatabaseUser,
		Pass:     cfg.DatabasePass,
		Logger:   &dbLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}

	funds, err := db.LoadFunds(ctx, cfg.InitialFunds)
	if err != nil {
		return nil, fmt.Errorf("loading funds: %w", err)
	}

	holdings, err := db.LoadHoldings(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading holdings: %w", err)
	}

	transactions, err := db.LoadTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading transactions: %w", err)
	}

	history, err := db.LoadHistory(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}

	clients, err := brokerClients(cfg)
	if err != nil {
		return nil, err
	}

	jobScheduler := gocron.NewScheduler(time.Local)

	coordinatorLogger := logger.With().Str("component", "reconcile").Logger()
	coordinator, err := reconcile.NewCoordinator(&reconcile.CoordinatorConfig{
		BrokerClients: clients,
		Interval:      cfg.ReconcileInterval,
		JobScheduler:  jobScheduler,
		Logger:        &coordinatorLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating reconciliation coordinator: %w", err)
	}

	ledgerLogger := logger.With().Str("component", "ledger").Logger()
	ledgerManager := ledger.NewManager(&ledger.ManagerConfig{
		InitialFunds:       funds,
		LiquidationEpsilon: cfg.LiquidationEpsilon,
		Holdings:           holdings,
		Transactions:       transactions,
		BrokerClients:      clients,
		RequestReconcile:   coordinator.RequestRefresh,
		PersistFunds: func(funds ledger.Funds) error {
			persistCtx, cancel := context.WithTimeout(context.Background(), persistTimeout)
			defer cancel()
			return db.PersistFunds(persistCtx, funds)
		},
		PersistHolding: func(holding *shared.Holding) error {
			persistCtx, cancel := context.WithTimeout(context.Background(), persistTimeout)
			defer cancel()
			return db.PersistHolding(persistCtx, holding)
		},
		RemoveHolding: func(symbol string) error {
			persistCtx, cancel := context.WithTimeout(context.Background(), persistTimeout)
			defer cancel()
			return db.RemoveHolding(persistCtx, symbol)
		},
		PersistTransaction: func(txn *shared.Transaction) error {
			persistCtx, cancel := context.WithTimeout(context.Background(), persistTimeout)
			defer cancel()
			return db.PersistTransaction(persistCtx, txn)
		},
		Logger: &ledgerLogger,
	})

	trader := &Trader{
		cfg:           cfg,
		db:            db,
		ledgerManager: ledgerManager,
		coordinator:   coordinator,
		jobScheduler:  jobScheduler,
		history:       history,
		logger:        &logger,
	}

	_, err = jobScheduler.Every(historyInterval).Do(trader.snapshotValue)
	if err != nil {
		return nil, fmt.Errorf("scheduling history job: %w", err)
	}

	return trader, nil
}

// snapshotValue records the current total portfolio value on the history
// series and persists the new point.
func (t *Trader) snapshotValue() {
	snapshot := t.coordinator.Snapshot()
	holdings := valuation.UnifiedHoldings(t.ledgerManager.Holdings(), snapshot.Holdings)
	value := valuation.TotalValue(t.ledgerManager.Funds().Total(), snapshot.Balances,
		holdings, nil)

	t.historyMtx.Lock()
	t.history = valuation.AppendHistoryPoint(t.history, time.Now(), value)
	point := t.history[len(t.history)-1]
	t.historyMtx.Unlock()

	persistCtx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := t.db.PersistHistoryPoint(persistCtx, &point); err != nil {
		t.logger.Error().Msgf("persisting history point: %v", err)
	}
}

// ExecuteTrade routes the provided trade intent through the ledger manager
// and waits for its result.
func (t *Trader) ExecuteTrade(ctx context.Context, side shared.Side, symbol string, quantity float64, price float64, assetType shared.AssetType, venue shared.Broker) (*shared.Transaction, error) {
	request := ledger.NewTradeRequest(side, symbol, quantity, price, assetType, venue)
	t.ledgerManager.SendTradeRequest(request)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(tradeTimeout):
		return nil, fmt.Errorf("timed out waiting for %s %s trade result",
			venue.String(), side.String())
	case result := <-request.Response:
		return result.Transaction, result.Err
	}
}

// Funds returns a copy of the paper cash pools.
func (t *Trader) Funds() ledger.Funds {
	return t.ledgerManager.Funds()
}

// UnifiedHoldings returns the paper holdings merged with the latest
// external holdings snapshot.
func (t *Trader) UnifiedHoldings() []shared.Holding {
	snapshot := t.coordinator.Snapshot()
	return valuation.UnifiedHoldings(t.ledgerManager.Holdings(), snapshot.Holdings)
}

// BrokerBalances returns the latest externally reported cash balances.
func (t *Trader) BrokerBalances() map[shared.Broker]float64 {
	return t.coordinator.Snapshot().Balances
}

// Transactions returns a copy of the transaction log in append order.
func (t *Trader) Transactions() []shared.Transaction {
	return t.ledgerManager.Transactions()
}

// History returns a copy of the portfolio value history.
func (t *Trader) History() []valuation.HistoryPoint {
	t.historyMtx.RLock()
	defer t.historyMtx.RUnlock()

	history := make([]valuation.HistoryPoint, len(t.history))
	copy(history, t.history)

	return history
}

// Run handles the lifecycle processes of the trader service.
func (t *Trader) Run(ctx context.Context) {
	t.wg.Add(2)

	go func() {
		t.ledgerManager.Run(ctx)
		t.wg.Done()
	}()

	go func() {
		t.coordinator.Run(ctx)
		t.wg.Done()
	}()

	t.jobScheduler.StartAsync()
	t.coordinator.RequestRefresh()

	<-ctx.Done()
	t.jobScheduler.Stop()
	t.wg.Wait()
}
