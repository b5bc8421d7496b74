package database

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/nvkr/aitrade/ledger"
	"github.com/nvkr/aitrade/shared"
	"github.com/nvkr/aitrade/valuation"
	rqlitehttp "github.com/rqlite/rqlite-go-http"
	"github.com/rs/zerolog"
)

const (
	// SQL statements.
	createFundsTableSQL   = "CREATE TABLE IF NOT EXISTS funds (assettype TEXT PRIMARY KEY, amount REAL)"
	createHoldingTableSQL = "CREATE TABLE IF NOT EXISTS holding (symbol TEXT PRIMARY KEY, assettype TEXT, quantity REAL, avgcost REAL, totalcost REAL, broker TEXT)"
	createTxnTableSQL     = "CREATE TABLE IF NOT EXISTS txn (id TEXT PRIMARY KEY, side TEXT, symbol TEXT, assettype TEXT, quantity REAL, price REAL, timestamp INTEGER, broker TEXT)"
	createHistoryTableSQL = "CREATE TABLE IF NOT EXISTS history (label TEXT PRIMARY KEY, value REAL, createdon INTEGER)"
	persistFundsSQL       = "INSERT OR REPLACE INTO funds(assettype, amount) VALUES(?,?)"
	persistHoldingSQL     = "INSERT OR REPLACE INTO holding(symbol, assettype, quantity, avgcost, totalcost, broker) VALUES(?,?,?,?,?,?)"
	removeHoldingSQL      = "DELETE FROM holding WHERE symbol = ?"
	persistTransactionSQL = "INSERT INTO txn(id, side, symbol, assettype, quantity, price, timestamp, broker) VALUES(?,?,?,?,?,?,?,?)"
	persistHistorySQL     = "INSERT OR REPLACE INTO history(label, value, createdon) VALUES(?,?,?)"
	loadFundsSQL          = "SELECT assettype, amount FROM funds"
	loadHoldingsSQL       = "SELECT symbol, assettype, quantity, avgcost, totalcost, broker FROM holding"
	loadTransactionsSQL   = "SELECT id, side, symbol, assettype, quantity, price, timestamp, broker FROM txn ORDER BY timestamp ASC"
	loadHistorySQL        = "SELECT label, value FROM history ORDER BY createdon ASC"
)

// LedgerStorer defines the requirements for persisting ledger state.
type LedgerStorer interface {
	// PersistFunds stores the provided cash pools.
	PersistFunds(ctx context.Context, funds ledger.Funds) error
	// PersistHolding stores the provided holding.
	PersistHolding(ctx context.Context, holding *shared.Holding) error
	// RemoveHolding removes the stored holding for the provided symbol.
	RemoveHolding(ctx context.Context, symbol string) error
	// PersistTransaction stores the provided transaction.
	PersistTransaction(ctx context.Context, txn *shared.Transaction) error
	// PersistHistoryPoint stores the provided portfolio value point.
	PersistHistoryPoint(ctx context.Context, point *valuation.HistoryPoint) error
}

// DatabaseConfig is the configuration for the database.
type DatabaseConfig struct {
	// Endpoint represents the database connection endpoint.
	Endpoint string
	// User is the database user.
	User string
	// Pass is the database user pass.
	Pass string
	// Logger is the database logger.
	Logger *zerolog.Logger
}

// Database represents the database connection.
type Database struct {
	cfg    *DatabaseConfig
	client *rqlitehttp.Client
}

// Ensure the database implements the LedgerStorer interface.
var _ LedgerStorer = (*Database)(nil)

// NewDatabase initializes a new database connection.
func NewDatabase(ctx context.Context, cfg *DatabaseConfig) (*Database, error) {
	httpc := &http.Client{Timeout: time.Second * 5}
	client, err := rqlitehttp.NewClient(cfg.Endpoint, httpc)
	if err != nil {
		return nil, fmt.Errorf("creating database client: %w", err)
	}

	client.SetBasicAuth(cfg.User, cfg.Pass)

	db := &Database{
		cfg:    cfg,
		client: client,
	}

	err = db.bootstrap(ctx)
	if err != nil {
		return nil, fmt.Errorf("bootstrapping database: %w", err)
	}

	return db, nil
}

// bootstrap initializes the database.
func (db *Database) bootstrap(ctx context.Context) error {
	_, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
		{SQL: createFundsTableSQL},
		{SQL: createHoldingTableSQL},
		{SQL: createTxnTableSQL},
		{SQL: createHistoryTableSQL},
	}, &rqlitehttp.ExecuteOptions{
		Transaction: true,
		Timings:     true,
	})
	if err != nil {
		return err
	}

	return nil
}

// PersistFunds stores the provided cash pools.
func (db *Database) PersistFunds(ctx context.Context, funds ledger.Funds) error {
	statements := make(rqlitehttp.SQLStatements, 0, len(funds))
	for _, asset := range shared.AssetTypes {
		statements = append(statements, &rqlitehttp.SQLStatement{
			SQL:              persistFundsSQL,
			PositionalParams: []any{asset.String(), funds[asset]},
		})
	}

	_, err := db.client.Execute(ctx, statements,
		&rqlitehttp.ExecuteOptions{Transaction: true, Timings: true})
	return err
}

// PersistHolding stores the provided holding.
func (db *Database) PersistHolding(ctx context.Context, holding *shared.Holding) error {
	_, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
		{
			SQL: persistHoldingSQL,
			PositionalParams: []any{holding.Symbol, holding.AssetType.String(),
				holding.Quantity, holding.AvgCost, holding.TotalCost,
				holding.Broker.String()},
		},
	}, &rqlitehttp.ExecuteOptions{Transaction: true, Timings: true})
	return err
}

// RemoveHolding removes the stored holding for the provided symbol.
func (db *Database) RemoveHolding(ctx context.Context, symbol string) error {
	_, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
		{
			SQL:              removeHoldingSQL,
			PositionalParams: []any{symbol},
		},
	}, &rqlitehttp.ExecuteOptions{Transaction: true, Timings: true})
	return err
}

// PersistTransaction stores the provided transaction. Transactions are
// append-only, an existing id is never overwritten.
func (db *Database) PersistTransaction(ctx context.Context, txn *shared.Transaction) error {
	_, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
		{
			SQL: persistTransactionSQL,
			PositionalParams: []any{txn.ID, txn.Side.String(), txn.Symbol,
				txn.AssetType.String(), txn.Quantity, txn.Price, txn.Timestamp,
				txn.Broker.String()},
		},
	}, &rqlitehttp.ExecuteOptions{Transaction: true, Timings: true})
	return err
}

// PersistHistoryPoint stores the provided portfolio value point.
func (db *Database) PersistHistoryPoint(ctx context.Context, point *valuation.HistoryPoint) error {
	_, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
		{
			SQL:              persistHistorySQL,
			PositionalParams: []any{point.Label, point.Value, time.Now().Unix()},
		},
	}, &rqlitehttp.ExecuteOptions{Transaction: true, Timings: true})
	return err
}

// queryRows runs the provided query and returns its rows.
func (db *Database) queryRows(ctx context.Context, sql string) ([][]any, error) {
	resp, err := db.client.Query(ctx, rqlitehttp.SQLStatements{
		{SQL: sql},
	}, &rqlitehttp.QueryOptions{Timings: true})
	if err != nil {
		return nil, err
	}

	results := resp.GetQueryResults()
	if len(results) == 0 {
		return nil, nil
	}

	return results[0].Values, nil
}

// asFloat coerces the provided column value to a float.
func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// asString coerces the provided column value to a string.
func asString(value any) (string, bool) {
	v, ok := value.(string)
	return v, ok
}

// LoadFunds loads the persisted cash pools, backfilling the provided
// defaults for any absent or malformed pool so a partial persisted shape
// never causes a load failure.
func (db *Database) LoadFunds(ctx context.Context, defaults map[shared.AssetType]float64) (ledger.Funds, error) {
	funds := ledger.NewFunds(defaults)

	rows, err := db.queryRows(ctx, loadFundsSQL)
	if err != nil {
		return nil, fmt.Errorf("loading funds: %w", err)
	}

	for _, row := range rows {
		if len(row) < 2 {
			db.cfg.Logger.Error().Msgf("malformed funds row: %s", spew.Sdump(row))
			continue
		}

		assetStr, okAsset := asString(row[0])
		amount, okAmount := asFloat(row[1])
		asset, err := shared.ParseAssetType(assetStr)
		if !okAsset || !okAmount || err != nil {
			db.cfg.Logger.Error().Msgf("malformed funds row: %s", spew.Sdump(row))
			continue
		}

		funds[asset] = amount
	}

	return funds, nil
}

// LoadHoldings loads the persisted paper holdings, skipping malformed rows.
func (db *Database) LoadHoldings(ctx context.Context) ([]shared.Holding, error) {
	rows, err := db.queryRows(ctx, loadHoldingsSQL)
	if err != nil {
		return nil, fmt.Errorf("loading holdings: %w", err)
	}

	holdings := make([]shared.Holding, 0, len(rows))
	for _, row := range rows {
		if len(row) < 6 {
			db.cfg.Logger.Error().Msgf("malformed holding row: %s", spew.Sdump(row))
			continue
		}

		symbol, okSymbol := asString(row[0])
		assetStr, okAsset := asString(row[1])
		quantity, okQuantity := asFloat(row[2])
		avgCost, okAvgCost := asFloat(row[3])
		totalCost, okTotalCost := asFloat(row[4])
		brokerStr, okBroker := asString(row[5])
		if !okSymbol || !okAsset || !okQuantity || !okAvgCost || !okTotalCost || !okBroker {
			db.cfg.Logger.Error().Msgf("malformed holding row: %s", spew.Sdump(row))
			continue
		}

		asset, errAsset := shared.ParseAssetType(assetStr)
		broker, errBroker := shared.ParseBroker(brokerStr)
		if errAsset != nil || errBroker != nil {
			db.cfg.Logger.Error().Msgf("malformed holding row: %s", spew.Sdump(row))
			continue
		}

		holdings = append(holdings, shared.Holding{
			Symbol:    symbol,
			AssetType: asset,
			Quantity:  quantity,
			AvgCost:   avgCost,
			TotalCost: totalCost,
			Broker:    broker,
		})
	}

	return holdings, nil
}

// LoadTransactions loads the persisted transaction log in append order,
// skipping malformed rows.
func (db *Database) LoadTransactions(ctx context.Context) ([]shared.Transaction, error) {
	rows, err := db.queryRows(ctx, loadTransactionsSQL)
	if err != nil {
		return nil, fmt.Errorf("loading transactions: %w", err)
	}

	transactions := make([]shared.Transaction, 0, len(rows))
	for _, row := range rows {
		if len(row) < 8 {
			db.cfg.Logger.Error().Msgf("malformed transaction row: %s", spew.Sdump(row))
			continue
		}

		id, okID := asString(row[0])
		sideStr, okSide := asString(row[1])
		symbol, okSymbol := asString(row[2])
		assetStr, okAsset := asString(row[3])
		quantity, okQuantity := asFloat(row[4])
		price, okPrice := asFloat(row[5])
		timestamp, okTimestamp := asFloat(row[6])
		brokerStr, okBroker := asString(row[7])
		if !okID || !okSide || !okSymbol || !okAsset || !okQuantity ||
			!okPrice || !okTimestamp || !okBroker {
			db.cfg.Logger.Error().Msgf("malformed transaction row: %s", spew.Sdump(row))
			continue
		}

		side, errSide := shared.ParseSide(sideStr)
		asset, errAsset := shared.ParseAssetType(assetStr)
		broker, errBroker := shared.ParseBroker(brokerStr)
		if errSide != nil || errAsset != nil || errBroker != nil {
			db.cfg.Logger.Error().Msgf("malformed transaction row: %s", spew.Sdump(row))
			continue
		}

		transactions = append(transactions, shared.Transaction{
			ID:        id,
			Side:      side,
			Symbol:    symbol,
			AssetType: asset,
			Quantity:  quantity,
			Price:     price,
			Timestamp: int64(timestamp),
			Broker:    broker,
		})
	}

	return transactions, nil
}

// LoadHistory loads the persisted portfolio value history, skipping
// malformed rows.
func (db *Database) LoadHistory(ctx context.Context) ([]valuation.HistoryPoint, error) {
	rows, err := db.queryRows(ctx, loadHistorySQL)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}

	history := make([]valuation.HistoryPoint, 0, len(rows))
	for _, row := range rows {
		if len(row) < 2 {
			db.cfg.Logger.Error().Msgf("malformed history row: %s", spew.Sdump(row))
			continue
		}

		label, okLabel := asString(row[0])
		value, okValue := asFloat(row[1])
		if !okLabel || !okValue {
			db.cfg.Logger.Error().Msgf("malformed history row: %s", spew.Sdump(row))
			continue
		}

		history = append(history, valuation.HistoryPoint{Label: label, Value: value})
	}

	return history, nil
}
