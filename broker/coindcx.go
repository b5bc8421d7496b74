package broker

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nvkr/aitrade/shared"
	"github.com/tidwall/gjson"
)

const (
	coindcxBaseURL = "https://api.coindcx.com"
)

// CoinDCXConfig represents the configuration for the coindcx client.
type CoinDCXConfig struct {
	// APIKey is the coindcx API key.
	APIKey string
	// Secret is the coindcx API secret used to sign request bodies.
	Secret string
}

// CoinDCXClient represents the coindcx exchange API client.
type CoinDCXClient struct {
	cfg   *CoinDCXConfig
	httpc http.Client
}

// Ensure the CoinDCXClient implements the BrokerClient interface.
var _ shared.BrokerClient = (*CoinDCXClient)(nil)

// NewCoinDCXClient instantiates a new coindcx client.
func NewCoinDCXClient(cfg *CoinDCXConfig) (*CoinDCXClient, error) {
	if cfg.APIKey == "" || cfg.Secret == "" {
		return nil, fmt.Errorf("coindcx credentials cannot be empty strings")
	}

	return &CoinDCXClient{
		cfg:   cfg,
		httpc: http.Client{Timeout: time.Second * 5},
	}, nil
}

// Broker returns the broker this client executes against.
func (c *CoinDCXClient) Broker() shared.Broker {
	return shared.CoinDCX
}

// post issues a signed coindcx request with the provided payload and
// returns the response body.
func (c *CoinDCXClient) post(ctx context.Context, path string, payload map[string]interface{}) ([]byte, error) {
	payload["timestamp"] = time.Now().UnixMilli()
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshalling coindcx payload: %w", err)
	}

	mac := hmac.New(sha256.New, []byte(c.cfg.Secret))
	mac.Write(body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		coindcxBaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating coindcx request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-AUTH-APIKEY", c.cfg.APIKey)
	req.Header.Set("X-AUTH-SIGNATURE", hex.EncodeToString(mac.Sum(nil)))

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: coindcx: %v", shared.ErrExternalFetch, err)
	}

	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: coindcx: reading response body: %v", shared.ErrExternalFetch, err)
	}

	return respBody, nil
}

// PlaceOrder submits the provided order to coindcx.
func (c *CoinDCXClient) PlaceOrder(ctx context.Context, symbol string, quantity float64, side shared.Side, price float64, assetType shared.AssetType) (*shared.OrderResult, error) {
	var orderSide string
	switch side {
	case shared.Buy:
		orderSide = "buy"
	default:
		orderSide = "sell"
	}

	body, err := c.post(ctx, "/exchange/v1/orders/create", map[string]interface{}{
		"side":           orderSide,
		"order_type":     "limit_order",
		"market":         symbol,
		"total_quantity": quantity,
		"price_per_unit": price,
	})
	if err != nil {
		return nil, err
	}

	return ParseCoinDCXOrderResult(body), nil
}

// ParseCoinDCXOrderResult parses an order result from the provided json data.
func ParseCoinDCXOrderResult(body []byte) *shared.OrderResult {
	if gjson.GetBytes(body, "orders.0.id").Exists() {
		return &shared.OrderResult{Success: true}
	}

	return &shared.OrderResult{
		Success: false,
		Message: gjson.GetBytes(body, "message").String(),
	}
}

// FetchHoldings fetches the coindcx reported balances as holdings.
func (c *CoinDCXClient) FetchHoldings(ctx context.Context) ([]shared.Holding, error) {
	body, err := c.post(ctx, "/exchange/v1/users/balances", map[string]interface{}{})
	if err != nil {
		return nil, err
	}

	return ParseCoinDCXHoldings(body), nil
}

// ParseCoinDCXHoldings parses holdings from the provided json data.
func ParseCoinDCXHoldings(body []byte) []shared.Holding {
	results := gjson.ParseBytes(body).Array()
	holdings := make([]shared.Holding, 0, len(results))

	for idx := range results {
		currency := results[idx].Get("currency").String()
		quantity := results[idx].Get("balance").Float() + results[idx].Get("locked_balance").Float()
		if quantity <= 0 || stablecoin(currency) {
			continue
		}

		holdings = append(holdings, shared.Holding{
			Symbol:    currency + "USDT",
			AssetType: shared.Crypto,
			Quantity:  quantity,
			AvgCost:   1,
			TotalCost: quantity,
			Broker:    shared.CoinDCX,
		})
	}

	return holdings
}

// FetchBalance fetches the coindcx reported stablecoin cash balance.
func (c *CoinDCXClient) FetchBalance(ctx context.Context) (float64, error) {
	body, err := c.post(ctx, "/exchange/v1/users/balances", map[string]interface{}{})
	if err != nil {
		return 0, err
	}

	var balance float64
	results := gjson.ParseBytes(body).Array()
	for idx := range results {
		if stablecoin(results[idx].Get("currency").String()) {
			balance += results[idx].Get("balance").Float()
		}
	}

	return balance, nil
}
