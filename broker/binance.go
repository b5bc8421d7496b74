package broker

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/nvkr/aitrade/shared"
	"github.com/tidwall/gjson"
)

const (
	binanceBaseURL = "https://api.binance.com"
)

// BinanceConfig represents the configuration for the binance client.
type BinanceConfig struct {
	// APIKey is the binance API key.
	APIKey string
	// Secret is the binance API secret used to sign requests.
	Secret string
}

// BinanceClient represents the binance exchange API client.
type BinanceClient struct {
	cfg   *BinanceConfig
	httpc http.Client
}

// Ensure the BinanceClient implements the BrokerClient interface.
var _ shared.BrokerClient = (*BinanceClient)(nil)

// NewBinanceClient instantiates a new binance client.
func NewBinanceClient(cfg *BinanceConfig) (*BinanceClient, error) {
	if cfg.APIKey == "" || cfg.Secret == "" {
		return nil, fmt.Errorf("binance credentials cannot be empty strings")
	}

	return &BinanceClient{
		cfg:   cfg,
		httpc: http.Client{Timeout: time.Second * 5},
	}, nil
}

// Broker returns the broker this client executes against.
func (c *BinanceClient) Broker() shared.Broker {
	return shared.Binance
}

// sign appends the hmac signature binance requires on authenticated
// endpoints.
func (c *BinanceClient) sign(params url.Values) string {
	params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	mac := hmac.New(sha256.New, []byte(c.cfg.Secret))
	mac.Write([]byte(params.Encode()))
	params.Set("signature", hex.EncodeToString(mac.Sum(nil)))

	return params.Encode()
}

// do issues the provided signed request and returns the response body.
func (c *BinanceClient) do(ctx context.Context, method string, path string, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method,
		binanceBaseURL+path+"?"+c.sign(params), nil)
	if err != nil {
		return nil, fmt.Errorf("creating binance request: %w", err)
	}
	req.Header.Set("X-MBX-APIKEY", c.cfg.APIKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: binance: %v", shared.ErrExternalFetch, err)
	}

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: binance: reading response body: %v", shared.ErrExternalFetch, err)
	}

	return body, nil
}

// PlaceOrder submits the provided order to binance.
func (c *BinanceClient) PlaceOrder(ctx context.Context, symbol string, quantity float64, side shared.Side, price float64, assetType shared.AssetType) (*shared.OrderResult, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("side", side.String())
	params.Set("type", "LIMIT")
	params.Set("timeInForce", "GTC")
	params.Set("quantity", strconv.FormatFloat(quantity, 'f', -1, 64))
	params.Set("price", strconv.FormatFloat(price, 'f', -1, 64))

	body, err := c.do(ctx, http.MethodPost, "/api/v3/order", params)
	if err != nil {
		return nil, err
	}

	return ParseBinanceOrderResult(body), nil
}

// ParseBinanceOrderResult parses an order result from the provided json data.
func ParseBinanceOrderResult(body []byte) *shared.OrderResult {
	if gjson.GetBytes(body, "orderId").Exists() {
		return &shared.OrderResult{Success: true}
	}

	return &shared.OrderResult{
		Success: false,
		Message: gjson.GetBytes(body, "msg").String(),
	}
}

// FetchHoldings fetches the binance reported balances as holdings. Binance
// reports asset balances rather than cost lots, so the average cost
// degrades to zero-cost balances filtered to funded assets.
func (c *BinanceClient) FetchHoldings(ctx context.Context) ([]shared.Holding, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/v3/account", url.Values{})
	if err != nil {
		return nil, err
	}

	return ParseBinanceHoldings(body), nil
}

// ParseBinanceHoldings parses holdings from the provided json data.
func ParseBinanceHoldings(body []byte) []shared.Holding {
	results := gjson.GetBytes(body, "balances").Array()
	holdings := make([]shared.Holding, 0, len(results))

	for idx := range results {
		asset := results[idx].Get("asset").String()
		free := results[idx].Get("free").Float()
		locked := results[idx].Get("locked").Float()
		quantity := free + locked
		if quantity <= 0 || stablecoin(asset) {
			continue
		}

		holdings = append(holdings, shared.Holding{
			Symbol:    asset + "USDT",
			AssetType: shared.Crypto,
			Quantity:  quantity,
			AvgCost:   1,
			TotalCost: quantity,
			Broker:    shared.Binance,
		})
	}

	return holdings
}

// FetchBalance fetches the binance reported stablecoin cash balance.
func (c *BinanceClient) FetchBalance(ctx context.Context) (float64, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/v3/account", url.Values{})
	if err != nil {
		return 0, err
	}

	var balance float64
	results := gjson.GetBytes(body, "balances").Array()
	for idx := range results {
		if stablecoin(results[idx].Get("asset").String()) {
			balance += results[idx].Get("free").Float()
		}
	}

	return balance, nil
}

// stablecoin reports whether the provided asset is treated as cash.
func stablecoin(asset string) bool {
	switch asset {
	case "USDT", "USDC", "FDUSD", "BUSD":
		return true
	default:
		return false
	}
}
