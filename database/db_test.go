package database

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/nvkr/aitrade/ledger"
	"github.com/nvkr/aitrade/shared"
	"github.com/peterldowns/testy/assert"
	rqlitehttp "github.com/rqlite/rqlite-go-http"
	"github.com/rs/zerolog/log"
)

// fakeRqlite serves canned query responses and records executed statement
// batches.
type fakeRqlite struct {
	mtx      sync.Mutex
	executed []rqlitehttp.SQLStatements
	queries  map[string]string
}

func (f *fakeRqlite) handler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var statements rqlitehttp.SQLStatements
	if err := json.Unmarshal(body, &statements); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	switch r.URL.Path {
	case "/db/execute":
		f.mtx.Lock()
		f.executed = append(f.executed, statements)
		f.mtx.Unlock()
		fmt.Fprint(w, `{"results":[{}]}`)
	case "/db/query":
		resp, ok := f.queries[statements[0].SQL]
		if !ok {
			resp = `{"results":[]}`
		}
		fmt.Fprint(w, resp)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeRqlite) executedBatches() []rqlitehttp.SQLStatements {
	f.mtx.Lock()
	defer f.mtx.Unlock()

	batches := make([]rqlitehttp.SQLStatements, len(f.executed))
	copy(batches, f.executed)
	return batches
}

func setupDatabase(t *testing.T, queries map[string]string) (*Database, *fakeRqlite) {
	fake := &fakeRqlite{queries: queries}
	server := httptest.NewServer(http.HandlerFunc(fake.handler))
	t.Cleanup(server.Close)

	db, err := NewDatabase(context.Background(), &DatabaseConfig{
		Endpoint: server.URL,
		Logger:   &log.Logger,
	})
	assert.NoError(t, err)

	return db, fake
}

func TestDatabaseBootstrap(t *testing.T) {
	_, fake := setupDatabase(t, nil)

	// Ensure bootstrap creates all four tables in one batch.
	batches := fake.executedBatches()
	assert.Equal(t, 1, len(batches))
	assert.Equal(t, 4, len(batches[0]))
	assert.Equal(t, createFundsTableSQL, batches[0][0].SQL)
	assert.Equal(t, createHistoryTableSQL, batches[0][3].SQL)
}

func TestDatabasePersistFunds(t *testing.T) {
	db, fake := setupDatabase(t, nil)

	funds := ledger.NewFunds(map[shared.AssetType]float64{
		shared.Stock:  1_000_000,
		shared.Crypto: 500_000,
	})

	err := db.PersistFunds(context.Background(), funds)
	assert.NoError(t, err)

	// Ensure every pool is upserted in a single batch after bootstrap.
	batches := fake.executedBatches()
	assert.Equal(t, 2, len(batches))

	batch := batches[1]
	assert.Equal(t, len(shared.AssetTypes), len(batch))
	for idx, statement := range batch {
		assert.Equal(t, persistFundsSQL, statement.SQL)
		assert.Equal(t, 2, len(statement.PositionalParams))
		assert.Equal[any](t, shared.AssetTypes[idx].String(), statement.PositionalParams[0])
	}
}

func TestDatabaseLoadFunds(t *testing.T) {
	queries := map[string]string{
		loadFundsSQL: `{"results":[{"columns":["assettype","amount"],` +
			`"types":["text","real"],` +
			`"values":[["STOCK",900000.5],["bogus",1],["CRYPTO",250000]]}]}`,
	}
	db, _ := setupDatabase(t, queries)

	defaults := map[shared.AssetType]float64{
		shared.Stock:  1_000_000,
		shared.Crypto: 500_000,
		shared.Forex:  500_000,
	}

	funds, err := db.LoadFunds(context.Background(), defaults)
	assert.NoError(t, err)

	// Ensure persisted pools override the defaults and malformed rows are
	// skipped.
	assert.Equal(t, 900_000.5, funds.Balance(shared.Stock))
	assert.Equal(t, float64(250_000), funds.Balance(shared.Crypto))
	assert.Equal(t, float64(500_000), funds.Balance(shared.Forex))
}

func TestDatabaseLoadHoldings(t *testing.T) {
	queries := map[string]string{
		loadHoldingsSQL: `{"results":[{` +
			`"columns":["symbol","assettype","quantity","avgcost","totalcost","broker"],` +
			`"types":["text","text","real","real","real","text"],` +
			`"values":[["RELIANCE","STOCK",10,100,1000,"PAPER"],` +
			`["ETHUSDT","CRYPTO",2,"bogus",2000,"BINANCE"]]}]}`,
	}
	db, _ := setupDatabase(t, queries)

	holdings, err := db.LoadHoldings(context.Background())
	assert.NoError(t, err)

	// Ensure well formed rows load and malformed rows are skipped.
	assert.Equal(t, 1, len(holdings))
	assert.Equal(t, "RELIANCE", holdings[0].Symbol)
	assert.Equal(t, shared.Stock, holdings[0].AssetType)
	assert.Equal(t, float64(10), holdings[0].Quantity)
	assert.Equal(t, shared.Paper, holdings[0].Broker)
}

func TestDatabaseLoadEmpty(t *testing.T) {
	db, _ := setupDatabase(t, nil)

	// Ensure loads against an empty store return empty state rather than
	// failing.
	holdings, err := db.LoadHoldings(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 0, len(holdings))

	transactions, err := db.LoadTransactions(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 0, len(transactions))

	history, err := db.LoadHistory(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 0, len(history))
}
