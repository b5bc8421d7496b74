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
	dhanBaseURL = "https://api.dhan.co/v2"
)

// DhanConfig represents the configuration for the dhan client.
type DhanConfig struct {
	// ClientID is the dhan client id.
	ClientID string
	// AccessToken is the dhan access token.
	AccessToken string
}

// DhanClient represents the dhan brokerage API client.
type DhanClient struct {
	cfg   *DhanConfig
	httpc http.Client
}

// Ensure the DhanClient implements the BrokerClient interface.
var _ shared.BrokerClient = (*DhanClient)(nil)

// NewDhanClient instantiates a new dhan client.
func NewDhanClient(cfg *DhanConfig) (*DhanClient, error) {
	if cfg.ClientID == "" || cfg.AccessToken == "" {
		return nil, fmt.Errorf("dhan credentials cannot be empty strings")
	}

	return &DhanClient{
		cfg:   cfg,
		httpc: http.Client{Timeout: time.Second * 5},
	}, nil
}

// Broker returns the broker this client executes against.
func (c *DhanClient) Broker() shared.Broker {
	return shared.Dhan
}

// do issues the provided request with dhan auth headers and returns the
// response body.
func (c *DhanClient) do(req *http.Request) ([]byte, error) {
	req.Header.Set("access-token", c.cfg.AccessToken)
	req.Header.Set("client-id", c.cfg.ClientID)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: dhan: %v", shared.ErrExternalFetch, err)
	}

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: dhan: reading response body: %v", shared.ErrExternalFetch, err)
	}

	return body, nil
}

// PlaceOrder submits the provided order to dhan.
func (c *DhanClient) PlaceOrder(ctx context.Context, symbol string, quantity float64, side shared.Side, price float64, assetType shared.AssetType) (*shared.OrderResult, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"dhanClientId":    c.cfg.ClientID,
		"transactionType": side.String(),
		"exchangeSegment": dhanSegment(assetType),
		"productType":     "CNC",
		"orderType":       "LIMIT",
		"securityId":      symbol,
		"quantity":        quantity,
		"price":           price,
	})
	if err != nil {
		return nil, fmt.Errorf("marshalling dhan order: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		dhanBaseURL+"/orders", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating dhan order request: %w", err)
	}

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	return ParseDhanOrderResult(body), nil
}

// ParseDhanOrderResult parses an order result from the provided json data.
func ParseDhanOrderResult(body []byte) *shared.OrderResult {
	status := gjson.GetBytes(body, "orderStatus").String()
	switch status {
	case "TRANSIT", "PENDING", "TRADED":
		return &shared.OrderResult{Success: true}
	default:
		message := gjson.GetBytes(body, "errorMessage").String()
		if message == "" {
			message = fmt.Sprintf("unexpected order status: %s", status)
		}
		return &shared.OrderResult{Success: false, Message: message}
	}
}

// FetchHoldings fetches the dhan reported holdings.
func (c *DhanClient) FetchHoldings(ctx context.Context) ([]shared.Holding, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, dhanBaseURL+"/holdings", nil)
	if err != nil {
		return nil, fmt.Errorf("creating dhan holdings request: %w", err)
	}

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	return ParseDhanHoldings(body), nil
}

// ParseDhanHoldings parses holdings from the provided json data.
func ParseDhanHoldings(body []byte) []shared.Holding {
	results := gjson.ParseBytes(body).Array()
	holdings := make([]shared.Holding, 0, len(results))

	for idx := range results {
		quantity := results[idx].Get("totalQty").Float()
		avgCost := results[idx].Get("avgCostPrice").Float()
		if quantity <= 0 || avgCost <= 0 {
			continue
		}

		holdings = append(holdings, shared.Holding{
			Symbol:    results[idx].Get("tradingSymbol").String(),
			AssetType: shared.Stock,
			Quantity:  quantity,
			AvgCost:   avgCost,
			TotalCost: quantity * avgCost,
			Broker:    shared.Dhan,
		})
	}

	return holdings
}

// FetchBalance fetches the dhan reported cash balance.
func (c *DhanClient) FetchBalance(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, dhanBaseURL+"/fundlimit", nil)
	if err != nil {
		return 0, fmt.Errorf("creating dhan balance request: %w", err)
	}

	body, err := c.do(req)
	if err != nil {
		return 0, err
	}

	return gjson.GetBytes(body, "availabelBalance").Float(), nil
}

// dhanSegment maps the provided asset type to a dhan exchange segment.
func dhanSegment(assetType shared.AssetType) string {
	switch assetType {
	case shared.MCX:
		return "MCX_COMM"
	default:
		return "NSE_EQ"
	}
}
