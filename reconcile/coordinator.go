package reconcile

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/google/go-cmp/cmp"
	"github.com/nvkr/aitrade/shared"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"
)

const (
	// bufferSize is the default buffer size for channels.
	bufferSize = 64
	// DefaultInterval is the default reconciliation refresh interval.
	DefaultInterval = time.Second * 30
	// fetchTimeout bounds a single broker fetch cycle.
	fetchTimeout = time.Second * 10
)

// Snapshot represents the externally reported holdings and cash balances.
// Snapshots are replaced wholesale on refresh, never merged incrementally.
type Snapshot struct {
	Holdings []shared.Holding
	Balances map[shared.Broker]float64
}

// copySnapshot returns a deep copy of the provided snapshot.
func copySnapshot(snapshot *Snapshot) *Snapshot {
	holdings := make([]shared.Holding, len(snapshot.Holdings))
	copy(holdings, snapshot.Holdings)

	balances := make(map[shared.Broker]float64, len(snapshot.Balances))
	for broker, balance := range snapshot.Balances {
		balances[broker] = balance
	}

	return &Snapshot{Holdings: holdings, Balances: balances}
}

// CoordinatorConfig represents the reconciliation coordinator configuration.
type CoordinatorConfig struct {
	// BrokerClients maps enabled external brokers to their configured
	// clients. Brokers without credentials are simply absent.
	BrokerClients map[shared.Broker]shared.BrokerClient
	// Interval is the periodic refresh interval.
	Interval time.Duration
	// JobScheduler schedules the periodic refresh job.
	JobScheduler *gocron.Scheduler
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Coordinator merges externally reported holdings and balances into a
// unified snapshot on a fixed interval and on demand after confirmed
// external trades. External holdings are never locally mutated, the latest
// fetch wins.
type Coordinator struct {
	cfg            *CoordinatorConfig
	snapshot       atomic.Pointer[Snapshot]
	active         atomic.Bool
	refreshSignals chan struct{}
}

// NewCoordinator initializes a new reconciliation coordinator.
func NewCoordinator(cfg *CoordinatorConfig) (*Coordinator, error) {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}

	coordinator := &Coordinator{
		cfg:            cfg,
		refreshSignals: make(chan struct{}, bufferSize),
	}
	coordinator.snapshot.Store(&Snapshot{
		Holdings: []shared.Holding{},
		Balances: map[shared.Broker]float64{},
	})
	coordinator.active.Store(true)

	if cfg.JobScheduler != nil {
		_, err := cfg.JobScheduler.Every(cfg.Interval).Do(coordinator.RequestRefresh)
		if err != nil {
			return nil, fmt.Errorf("scheduling reconciliation job: %w", err)
		}
	}

	return coordinator, nil
}

// RequestRefresh relays an on-demand reconciliation refresh for processing.
func (c *Coordinator) RequestRefresh() {
	select {
	case c.refreshSignals <- struct{}{}:
		// do nothing.
	default:
		// A refresh is already pending, coalesce.
	}
}

// brokerFetch represents the outcome of a single broker fetch.
type brokerFetch struct {
	broker     shared.Broker
	holdings   []shared.Holding
	balance    float64
	balanceOK  bool
	holdingsOK bool
}

// fetchBroker fetches holdings and balance for the provided broker client.
// Failures are isolated, a failed holdings fetch degrades to empty holdings
// for this cycle and a failed balance fetch is omitted so the previous
// value is retained.
func (c *Coordinator) fetchBroker(ctx context.Context, client shared.BrokerClient) brokerFetch {
	broker := client.Broker()
	fetch := brokerFetch{broker: broker, holdings: []shared.Holding{}}

	fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	holdings, err := client.FetchHoldings(fetchCtx)
	switch {
	case err != nil:
		c.cfg.Logger.Error().Msgf("fetching %s holdings: %v", broker.String(), err)
	default:
		fetch.holdings = holdings
		fetch.holdingsOK = true
	}

	balance, err := client.FetchBalance(fetchCtx)
	switch {
	case err != nil:
		c.cfg.Logger.Error().Msgf("fetching %s balance: %v", broker.String(), err)
	default:
		fetch.balance = balance
		fetch.balanceOK = true
	}

	return fetch
}

// refresh fans out a fetch per enabled broker, fans the results into a new
// snapshot and commits it, short-circuiting when the content is identical
// to the previous snapshot.
func (c *Coordinator) refresh(ctx context.Context) {
	fetches := make([]brokerFetch, 0, len(c.cfg.BrokerClients))
	var fetchesMtx sync.Mutex
	var wg sync.WaitGroup

	for _, client := range c.cfg.BrokerClients {
		wg.Add(1)
		go func(client shared.BrokerClient) {
			defer wg.Done()

			fetch := c.fetchBroker(ctx, client)
			fetchesMtx.Lock()
			fetches = append(fetches, fetch)
			fetchesMtx.Unlock()
		}(client)
	}

	wg.Wait()

	previous := c.snapshot.Load()
	next := &Snapshot{
		Holdings: []shared.Holding{},
		Balances: make(map[shared.Broker]float64, len(previous.Balances)),
	}
	// Carry forward balances only for brokers still configured, a removed
	// broker does not linger in the unified funds view.
	for broker, balance := range previous.Balances {
		if _, ok := c.cfg.BrokerClients[broker]; !ok {
			continue
		}
		next.Balances[broker] = balance
	}

	for idx := range fetches {
		next.Holdings = append(next.Holdings, fetches[idx].holdings...)
		if fetches[idx].balanceOK {
			next.Balances[fetches[idx].broker] = fetches[idx].balance
		}
	}

	sort.Slice(next.Holdings, func(i, j int) bool {
		if next.Holdings[i].Broker != next.Holdings[j].Broker {
			return next.Holdings[i].Broker < next.Holdings[j].Broker
		}
		return next.Holdings[i].Symbol < next.Holdings[j].Symbol
	})

	// Results from fetches in flight during a stop are discarded rather
	// than applied.
	if !c.active.Load() {
		return
	}

	if cmp.Equal(previous.Holdings, next.Holdings) && cmp.Equal(previous.Balances, next.Balances) {
		return
	}

	c.snapshot.Store(next)
}

// Snapshot returns a copy of the current external holdings snapshot.
func (c *Coordinator) Snapshot() *Snapshot {
	return copySnapshot(c.snapshot.Load())
}

// Stop deactivates the coordinator. In-flight fetches are allowed to
// complete but their results are discarded.
func (c *Coordinator) Stop() {
	c.active.Store(false)
}

// Run manages the lifecycle processes of the reconciliation coordinator.
func (c *Coordinator) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			c.Stop()
			return
		case <-c.refreshSignals:
			c.refresh(ctx)
		}
	}
}
