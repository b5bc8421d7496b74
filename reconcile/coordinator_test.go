package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/nvkr/aitrade/shared"
	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog/log"
)

// fakeBrokerClient is a scriptable broker client for coordinator tests.
type fakeBrokerClient struct {
	broker      shared.Broker
	holdings    []shared.Holding
	holdingsErr error
	balance     float64
	balanceErr  error
}

func (f *fakeBrokerClient) Broker() shared.Broker {
	return f.broker
}

func (f *fakeBrokerClient) PlaceOrder(ctx context.Context, symbol string, quantity float64, side shared.Side, price float64, assetType shared.AssetType) (*shared.OrderResult, error) {
	return &shared.OrderResult{Success: true}, nil
}

func (f *fakeBrokerClient) FetchHoldings(ctx context.Context) ([]shared.Holding, error) {
	if f.holdingsErr != nil {
		return nil, f.holdingsErr
	}
	return f.holdings, nil
}

func (f *fakeBrokerClient) FetchBalance(ctx context.Context) (float64, error) {
	if f.balanceErr != nil {
		return 0, f.balanceErr
	}
	return f.balance, nil
}

func holding(symbol string, broker shared.Broker, quantity float64) shared.Holding {
	return shared.Holding{
		Symbol:    symbol,
		AssetType: shared.Crypto,
		Quantity:  quantity,
		AvgCost:   1,
		TotalCost: quantity,
		Broker:    broker,
	}
}

func setupCoordinator(clients map[shared.Broker]shared.BrokerClient) *Coordinator {
	coordinator, err := NewCoordinator(&CoordinatorConfig{
		BrokerClients: clients,
		Logger:        &log.Logger,
	})
	if err != nil {
		panic(err)
	}

	return coordinator
}

func TestCoordinatorRefresh(t *testing.T) {
	binance := &fakeBrokerClient{
		broker:   shared.Binance,
		holdings: []shared.Holding{holding("ETHUSDT", shared.Binance, 2)},
		balance:  1000,
	}
	dhan := &fakeBrokerClient{
		broker:   shared.Dhan,
		holdings: []shared.Holding{holding("RELIANCE", shared.Dhan, 10)},
		balance:  50_000,
	}
	clients := map[shared.Broker]shared.BrokerClient{
		shared.Binance: binance,
		shared.Dhan:    dhan,
	}
	coordinator := setupCoordinator(clients)

	// Ensure the initial snapshot is empty rather than nil.
	snapshot := coordinator.Snapshot()
	assert.Equal(t, 0, len(snapshot.Holdings))
	assert.Equal(t, 0, len(snapshot.Balances))

	// Ensure a refresh merges all broker fetches, ordered by broker then
	// symbol.
	coordinator.refresh(context.Background())
	snapshot = coordinator.Snapshot()
	assert.Equal(t, 2, len(snapshot.Holdings))
	assert.Equal(t, "RELIANCE", snapshot.Holdings[0].Symbol)
	assert.Equal(t, "ETHUSDT", snapshot.Holdings[1].Symbol)
	assert.Equal(t, float64(50_000), snapshot.Balances[shared.Dhan])
	assert.Equal(t, float64(1000), snapshot.Balances[shared.Binance])

	// Ensure an identical refresh short-circuits without committing a new
	// snapshot.
	before := coordinator.snapshot.Load()
	coordinator.refresh(context.Background())
	assert.True(t, before == coordinator.snapshot.Load())
	assert.True(t, cmp.Equal(snapshot, coordinator.Snapshot()))
}

func TestCoordinatorRemovedBrokerPruned(t *testing.T) {
	binance := &fakeBrokerClient{
		broker:   shared.Binance,
		holdings: []shared.Holding{holding("ETHUSDT", shared.Binance, 2)},
		balance:  1000,
	}
	dhan := &fakeBrokerClient{
		broker:   shared.Dhan,
		holdings: []shared.Holding{holding("RELIANCE", shared.Dhan, 10)},
		balance:  50_000,
	}
	clients := map[shared.Broker]shared.BrokerClient{
		shared.Binance: binance,
		shared.Dhan:    dhan,
	}
	coordinator := setupCoordinator(clients)
	coordinator.refresh(context.Background())

	snapshot := coordinator.Snapshot()
	assert.Equal(t, float64(50_000), snapshot.Balances[shared.Dhan])

	// Ensure a broker removed from the configuration drops out of the
	// snapshot on the next cycle instead of carrying its balance forward.
	delete(clients, shared.Dhan)
	coordinator.refresh(context.Background())

	snapshot = coordinator.Snapshot()
	assert.Equal(t, 1, len(snapshot.Holdings))
	assert.Equal(t, "ETHUSDT", snapshot.Holdings[0].Symbol)
	assert.Equal(t, 1, len(snapshot.Balances))
	assert.Equal(t, float64(1000), snapshot.Balances[shared.Binance])
}

func TestCoordinatorFailureIsolation(t *testing.T) {
	binance := &fakeBrokerClient{
		broker:   shared.Binance,
		holdings: []shared.Holding{holding("ETHUSDT", shared.Binance, 2)},
		balance:  1000,
	}
	dhan := &fakeBrokerClient{
		broker:   shared.Dhan,
		holdings: []shared.Holding{holding("RELIANCE", shared.Dhan, 10)},
		balance:  50_000,
	}
	clients := map[shared.Broker]shared.BrokerClient{
		shared.Binance: binance,
		shared.Dhan:    dhan,
	}
	coordinator := setupCoordinator(clients)
	coordinator.refresh(context.Background())

	// Ensure a failing broker degrades to empty holdings for the cycle
	// while its last known balance is retained, and the healthy broker is
	// unaffected.
	dhan.holdingsErr = errors.New("rate limited")
	dhan.balanceErr = errors.New("rate limited")
	coordinator.refresh(context.Background())

	snapshot := coordinator.Snapshot()
	assert.Equal(t, 1, len(snapshot.Holdings))
	assert.Equal(t, "ETHUSDT", snapshot.Holdings[0].Symbol)
	assert.Equal(t, float64(50_000), snapshot.Balances[shared.Dhan])
	assert.Equal(t, float64(1000), snapshot.Balances[shared.Binance])

	// Ensure a recovered broker repopulates on the next cycle.
	dhan.holdingsErr = nil
	dhan.balanceErr = nil
	dhan.balance = 48_000
	coordinator.refresh(context.Background())

	snapshot = coordinator.Snapshot()
	assert.Equal(t, 2, len(snapshot.Holdings))
	assert.Equal(t, float64(48_000), snapshot.Balances[shared.Dhan])
}

func TestCoordinatorLastFetchWins(t *testing.T) {
	binance := &fakeBrokerClient{
		broker:   shared.Binance,
		holdings: []shared.Holding{holding("ETHUSDT", shared.Binance, 2)},
		balance:  1000,
	}
	clients := map[shared.Broker]shared.BrokerClient{shared.Binance: binance}
	coordinator := setupCoordinator(clients)
	coordinator.refresh(context.Background())

	// Ensure a changed upstream replaces the snapshot wholesale.
	binance.holdings = []shared.Holding{holding("SOLUSDT", shared.Binance, 30)}
	coordinator.refresh(context.Background())

	snapshot := coordinator.Snapshot()
	assert.Equal(t, 1, len(snapshot.Holdings))
	assert.Equal(t, "SOLUSDT", snapshot.Holdings[0].Symbol)
}

func TestCoordinatorStopDiscardsResults(t *testing.T) {
	binance := &fakeBrokerClient{
		broker:   shared.Binance,
		holdings: []shared.Holding{holding("ETHUSDT", shared.Binance, 2)},
		balance:  1000,
	}
	clients := map[shared.Broker]shared.BrokerClient{shared.Binance: binance}
	coordinator := setupCoordinator(clients)

	// Ensure refreshes after a stop leave the snapshot untouched.
	coordinator.Stop()
	coordinator.refresh(context.Background())

	snapshot := coordinator.Snapshot()
	assert.Equal(t, 0, len(snapshot.Holdings))
	assert.Equal(t, 0, len(snapshot.Balances))
}

func TestCoordinatorRun(t *testing.T) {
	binance := &fakeBrokerClient{
		broker:   shared.Binance,
		holdings: []shared.Holding{holding("ETHUSDT", shared.Binance, 2)},
		balance:  1000,
	}
	clients := map[shared.Broker]shared.BrokerClient{shared.Binance: binance}
	coordinator := setupCoordinator(clients)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		coordinator.Run(ctx)
		close(done)
	}()

	// Ensure requested refreshes are processed by the run loop.
	coordinator.RequestRefresh()
	deadline := time.Now().Add(time.Second * 5)
	for len(coordinator.Snapshot().Holdings) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for a refresh")
		}
		time.Sleep(time.Millisecond * 10)
	}

	// Ensure duplicate requests coalesce instead of blocking.
	for range bufferSize * 2 {
		coordinator.RequestRefresh()
	}

	// Ensure a cancelled context stops the coordinator.
	cancel()
	<-done
	assert.False(t, coordinator.active.Load())
}
