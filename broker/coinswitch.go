package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nvkr/aitrade/shared"
	"github.com/tidwall/gjson"
)

const (
	coinswitchBaseURL = "https://coinswitch.co"
)

// CoinSwitchConfig represents the configuration for the coinswitch client.
type CoinSwitchConfig struct {
	// APIKey is the coinswitch API key.
	APIKey string
}

// CoinSwitchClient represents the coinswitch exchange API client.
type CoinSwitchClient struct {
	cfg   *CoinSwitchConfig
	httpc http.Client
}

// Ensure the CoinSwitchClient implements the BrokerClient interface.
var _ shared.BrokerClient = (*CoinSwitchClient)(nil)

// NewCoinSwitchClient instantiates a new coinswitch client.
func NewCoinSwitchClient(cfg *CoinSwitchConfig) (*CoinSwitchClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("coinswitch api key cannot be an empty string")
	}

	return &CoinSwitchClient{
		cfg:   cfg,
		httpc: http.Client{Timeout: time.Second * 5},
	}, nil
}

// Broker returns the broker this client executes against.
func (c *CoinSwitchClient) Broker() shared.Broker {
	return shared.CoinSwitch
}

// do issues the provided request with coinswitch auth headers and returns
// the response body.
func (c *CoinSwitchClient) do(req *http.Request) ([]byte, error) {
	req.Header.Set("X-AUTH-APIKEY", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: coinswitch: %v", shared.ErrExternalFetch, err)
	}

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: coinswitch: reading response body: %v", shared.ErrExternalFetch, err)
	}

	return body, nil
}

// PlaceOrder submits the provided order to coinswitch.
func (c *CoinSwitchClient) PlaceOrder(ctx context.Context, symbol string, quantity float64, side shared.Side, price float64, assetType shared.AssetType) (*shared.OrderResult, error) {
	var orderSide string
	switch side {
	case shared.Buy:
		orderSide = "buy"
	default:
		orderSide = "sell"
	}

	payload, err := json.Marshal(map[string]interface{}{
		"symbol":   symbol,
		"side":     orderSide,
		"type":     "limit",
		"quantity": quantity,
		"price":    price,
		"exchange": "coinswitchx",
	})
	if err != nil {
		return nil, fmt.Errorf("marshalling coinswitch order: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		coinswitchBaseURL+"/trade/api/v2/order", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating coinswitch order request: %w", err)
	}

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	return ParseCoinSwitchOrderResult(body), nil
}

// ParseCoinSwitchOrderResult parses an order result from the provided json
// data.
func ParseCoinSwitchOrderResult(body []byte) *shared.OrderResult {
	if gjson.GetBytes(body, "data.order_id").Exists() {
		return &shared.OrderResult{Success: true}
	}

	return &shared.OrderResult{
		Success: false,
		Message: gjson.GetBytes(body, "message").String(),
	}
}

// FetchHoldings fetches the coinswitch reported balances as holdings.
func (c *CoinSwitchClient) FetchHoldings(ctx context.Context) ([]shared.Holding, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		coinswitchBaseURL+"/trade/api/v2/user/portfolio", nil)
	if err != nil {
		return nil, fmt.Errorf("creating coinswitch portfolio request: %w", err)
	}

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	return ParseCoinSwitchHoldings(body), nil
}

// ParseCoinSwitchHoldings parses holdings from the provided json data.
func ParseCoinSwitchHoldings(body []byte) []shared.Holding {
	results := gjson.GetBytes(body, "data").Array()
	holdings := make([]shared.Holding, 0, len(results))

	for idx := range results {
		currency := results[idx].Get("currency").String()
		quantity := results[idx].Get("main_balance").Float() +
			results[idx].Get("blocked_balance_order").Float()
		avgCost := results[idx].Get("buy_average_price").Float()
		if quantity <= 0 || stablecoin(currency) {
			continue
		}
		if avgCost <= 0 {
			avgCost = 1
		}

		holdings = append(holdings, shared.Holding{
			Symbol:    currency + "USDT",
			AssetType: shared.Crypto,
			Quantity:  quantity,
			AvgCost:   avgCost,
			TotalCost: quantity * avgCost,
			Broker:    shared.CoinSwitch,
		})
	}

	return holdings
}

// FetchBalance fetches the coinswitch reported stablecoin cash balance.
func (c *CoinSwitchClient) FetchBalance(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		coinswitchBaseURL+"/trade/api/v2/user/portfolio", nil)
	if err != nil {
		return 0, fmt.Errorf("creating coinswitch portfolio request: %w", err)
	}

	body, err := c.do(req)
	if err != nil {
		return 0, err
	}

	var balance float64
	results := gjson.GetBytes(body, "data").Array()
	for idx := range results {
		if stablecoin(results[idx].Get("currency").String()) {
			balance += results[idx].Get("main_balance").Float()
		}
	}

	return balance, nil
}
