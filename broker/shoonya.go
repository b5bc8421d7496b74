package broker

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nvkr/aitrade/shared"
	"github.com/tidwall/gjson"
)

const (
	shoonyaBaseURL = "https://api.shoonya.com/NorenWClientTP"
)

// ShoonyaConfig represents the configuration for the shoonya client.
type ShoonyaConfig struct {
	// UserID is the shoonya user id.
	UserID string
	// SessionToken is the shoonya session token.
	SessionToken string
}

// ShoonyaClient represents the shoonya (finvasia) brokerage API client.
type ShoonyaClient struct {
	cfg   *ShoonyaConfig
	httpc http.Client
}

// Ensure the ShoonyaClient implements the BrokerClient interface.
var _ shared.BrokerClient = (*ShoonyaClient)(nil)

// NewShoonyaClient instantiates a new shoonya client.
func NewShoonyaClient(cfg *ShoonyaConfig) (*ShoonyaClient, error) {
	if cfg.UserID == "" || cfg.SessionToken == "" {
		return nil, fmt.Errorf("shoonya credentials cannot be empty strings")
	}

	return &ShoonyaClient{
		cfg:   cfg,
		httpc: http.Client{Timeout: time.Second * 5},
	}, nil
}

// Broker returns the broker this client executes against.
func (c *ShoonyaClient) Broker() shared.Broker {
	return shared.Shoonya
}

// post issues a noren form request and returns the response body. The noren
// API expects a jData payload and the session key as form values.
func (c *ShoonyaClient) post(ctx context.Context, path string, jData string) ([]byte, error) {
	form := url.Values{}
	form.Set("jData", jData)
	form.Set("jKey", c.cfg.SessionToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		shoonyaBaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating shoonya request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: shoonya: %v", shared.ErrExternalFetch, err)
	}

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: shoonya: reading response body: %v", shared.ErrExternalFetch, err)
	}

	return body, nil
}

// PlaceOrder submits the provided order to shoonya.
func (c *ShoonyaClient) PlaceOrder(ctx context.Context, symbol string, quantity float64, side shared.Side, price float64, assetType shared.AssetType) (*shared.OrderResult, error) {
	var transactionType string
	switch side {
	case shared.Buy:
		transactionType = "B"
	default:
		transactionType = "S"
	}

	jData := fmt.Sprintf(`{"uid":"%s","actid":"%s","exch":"%s","tsym":"%s","qty":"%v","prc":"%v","prd":"C","trantype":"%s","prctyp":"LMT","ret":"DAY"}`,
		c.cfg.UserID, c.cfg.UserID, shoonyaExchange(assetType), symbol, quantity, price, transactionType)

	body, err := c.post(ctx, "/PlaceOrder", jData)
	if err != nil {
		return nil, err
	}

	return ParseShoonyaOrderResult(body), nil
}

// ParseShoonyaOrderResult parses an order result from the provided json data.
func ParseShoonyaOrderResult(body []byte) *shared.OrderResult {
	if gjson.GetBytes(body, "stat").String() == "Ok" {
		return &shared.OrderResult{Success: true}
	}

	return &shared.OrderResult{
		Success: false,
		Message: gjson.GetBytes(body, "emsg").String(),
	}
}

// FetchHoldings fetches the shoonya reported holdings.
func (c *ShoonyaClient) FetchHoldings(ctx context.Context) ([]shared.Holding, error) {
	jData := fmt.Sprintf(`{"uid":"%s","actid":"%s","prd":"C"}`, c.cfg.UserID, c.cfg.UserID)
	body, err := c.post(ctx, "/Holdings", jData)
	if err != nil {
		return nil, err
	}

	return ParseShoonyaHoldings(body), nil
}

// ParseShoonyaHoldings parses holdings from the provided json data.
func ParseShoonyaHoldings(body []byte) []shared.Holding {
	results := gjson.ParseBytes(body).Array()
	holdings := make([]shared.Holding, 0, len(results))

	for idx := range results {
		if results[idx].Get("stat").String() != "Ok" {
			continue
		}

		quantity := results[idx].Get("holdqty").Float()
		avgCost := results[idx].Get("upldprc").Float()
		if quantity <= 0 || avgCost <= 0 {
			continue
		}

		symbol := results[idx].Get("exch_tsym.0.tsym").String()
		holdings = append(holdings, shared.Holding{
			Symbol:    symbol,
			AssetType: shared.Stock,
			Quantity:  quantity,
			AvgCost:   avgCost,
			TotalCost: quantity * avgCost,
			Broker:    shared.Shoonya,
		})
	}

	return holdings
}

// FetchBalance fetches the shoonya reported cash balance.
func (c *ShoonyaClient) FetchBalance(ctx context.Context) (float64, error) {
	jData := fmt.Sprintf(`{"uid":"%s","actid":"%s"}`, c.cfg.UserID, c.cfg.UserID)
	body, err := c.post(ctx, "/Limits", jData)
	if err != nil {
		return 0, err
	}

	if gjson.GetBytes(body, "stat").String() != "Ok" {
		return 0, fmt.Errorf("%w: shoonya: %s", shared.ErrExternalFetch,
			gjson.GetBytes(body, "emsg").String())
	}

	return gjson.GetBytes(body, "cash").Float(), nil
}

// shoonyaExchange maps the provided asset type to a shoonya exchange code.
func shoonyaExchange(assetType shared.AssetType) string {
	switch assetType {
	case shared.MCX:
		return "MCX"
	default:
		return "NSE"
	}
}
