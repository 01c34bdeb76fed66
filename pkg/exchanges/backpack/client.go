package backpack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"

	"perptrader/pkg/exchanges/common"
)

// Config holds Backpack credentials and endpoints.
type Config struct {
	APIKey    string
	APISecret string
	BaseURL   string // defaults to the production API
}

const defaultBaseURL = "https://api.backpack.exchange/api/v1"

// Client is the Backpack gateway. TP/SL triggers ride on the entry order, so
// the venue reports InlineBrackets and the engine skips separate brackets.
type Client struct {
	cfg     Config
	baseURL string
	signer  *Signer
	httpc   *common.HTTPClient
}

// New creates a Backpack gateway.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("backpack: API key/secret required")
	}
	signer, err := NewSigner(cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("backpack: %w", err)
	}
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	return &Client{
		cfg:     cfg,
		baseURL: base,
		signer:  signer,
		httpc:   common.NewHTTPClient(8, 16),
	}, nil
}

func (c *Client) Venue() string { return "backpack" }

func (c *Client) Traits() common.Traits {
	return common.Traits{InlineBrackets: true}
}

// GetPrice reads the ticker and returns the first populated price field in
// preference order: lastPrice, price, markPrice.
func (c *Client) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	params := map[string]string{"symbol": symbol}
	body, err := c.do(ctx, http.MethodGet, "/ticker", "tickerQuery", params, nil, []int{200})
	if err != nil {
		return decimal.Zero, err
	}
	var tick map[string]json.RawMessage
	if err := json.Unmarshal(body, &tick); err != nil {
		return decimal.Zero, fmt.Errorf("backpack: decode ticker: %w", err)
	}
	for _, field := range []string{"lastPrice", "price", "markPrice"} {
		raw, ok := tick[field]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			continue
		}
		price, err := decimal.NewFromString(s)
		if err != nil {
			continue
		}
		return price, nil
	}
	return decimal.Zero, fmt.Errorf("backpack ticker %s: %w", symbol, common.ErrNoPriceData)
}

// PlaceOrder submits an order. The signing parameter set and the transmitted
// body differ only in the reduceOnly encoding.
func (c *Client) PlaceOrder(ctx context.Context, order common.Order) (common.Ack, error) {
	body, signParams := orderPayload(order)
	respBody, err := c.do(ctx, http.MethodPost, "/order", "orderExecute", signParams, body, []int{200, 201, 202})
	if err != nil {
		return common.Ack{}, err
	}
	var resp struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return common.Ack{}, fmt.Errorf("backpack: decode order ack: %w", err)
	}
	return common.Ack{OrderID: resp.ID, Status: resp.Status}, nil
}

// CancelOrder cancels a single order by id.
func (c *Client) CancelOrder(ctx context.Context, symbol, orderID string) error {
	params := map[string]string{"symbol": symbol, "orderId": orderID}
	_, err := c.do(ctx, http.MethodDelete, "/order", "orderCancel", params, nil, []int{200})
	return err
}

// CancelAllOrders cancels resting orders for the symbol, one call per order
// type the venue distinguishes. A cancel with nothing resting succeeds.
func (c *Client) CancelAllOrders(ctx context.Context, symbol string) error {
	for _, orderType := range []string{"Market", "Limit"} {
		payload := map[string]any{"symbol": symbol, "orderType": orderType}
		params := map[string]string{"symbol": symbol, "orderType": orderType}
		if _, err := c.do(ctx, http.MethodDelete, "/orders", "orderCancelAll", params, payload, []int{200, 202}); err != nil {
			return err
		}
	}
	return nil
}

// OpenOrders lists resting orders for the symbol.
func (c *Client) OpenOrders(ctx context.Context, symbol string) ([]common.OpenOrder, error) {
	params := map[string]string{"symbol": symbol, "marketType": "PERP"}
	body, err := c.do(ctx, http.MethodGet, "/orders", "orderQueryAll", params, nil, []int{200})
	if err != nil {
		return nil, err
	}
	var raw []struct {
		ID        string `json:"id"`
		Symbol    string `json:"symbol"`
		OrderType string `json:"orderType"`
		Side      string `json:"side"`
		Status    string `json:"status"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("backpack: decode open orders: %w", err)
	}
	orders := make([]common.OpenOrder, 0, len(raw))
	for _, o := range raw {
		side := common.SideBuy
		if o.Side == "Ask" {
			side = common.SideSell
		}
		orderType := common.OrderTypeMarket
		if o.OrderType == "Limit" {
			orderType = common.OrderTypeLimit
		}
		orders = append(orders, common.OpenOrder{
			ID:     o.ID,
			Symbol: o.Symbol,
			Type:   orderType,
			Side:   side,
			Status: o.Status,
		})
	}
	return orders, nil
}

// GetPosition returns the open position for the symbol, or nil when flat.
func (c *Client) GetPosition(ctx context.Context, symbol string) (*common.Position, error) {
	body, err := c.do(ctx, http.MethodGet, "/position", "positionQuery", nil, nil, []int{200})
	if err != nil {
		return nil, err
	}
	var raw []struct {
		Symbol           string `json:"symbol"`
		NetQuantity      string `json:"netQuantity"`
		EntryPrice       string `json:"entryPrice"`
		MarkPrice        string `json:"markPrice"`
		UnrealizedPnl    string `json:"unrealizedPnl"`
		LiquidationPrice string `json:"liquidationPrice"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("backpack: decode positions: %w", err)
	}
	for _, p := range raw {
		if p.Symbol != symbol {
			continue
		}
		qty, err := decimal.NewFromString(p.NetQuantity)
		if err != nil || qty.IsZero() {
			continue
		}
		pos := &common.Position{
			Symbol:           p.Symbol,
			NetQuantity:      qty,
			EntryPrice:       parseDecimal(p.EntryPrice),
			MarkPrice:        parseDecimal(p.MarkPrice),
			UnrealizedPnL:    parseDecimal(p.UnrealizedPnl),
			LiquidationPrice: parseDecimal(p.LiquidationPrice),
		}
		return pos, nil
	}
	return nil, nil
}

// Market describes one tradable market.
type Market struct {
	Symbol      string `json:"symbol"`
	BaseSymbol  string `json:"baseSymbol"`
	QuoteSymbol string `json:"quoteSymbol"`
	MarketType  string `json:"marketType"`
}

// GetMarket fetches details for a single market.
func (c *Client) GetMarket(ctx context.Context, symbol string) (*Market, error) {
	params := map[string]string{"symbol": symbol}
	body, err := c.do(ctx, http.MethodGet, "/market", "marketQuery", params, nil, []int{200})
	if err != nil {
		return nil, err
	}
	var m Market
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("backpack: decode market: %w", err)
	}
	return &m, nil
}

// GetMarkets lists all markets. The endpoint is public and unsigned.
func (c *Client) GetMarkets(ctx context.Context) ([]Market, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/markets", nil)
	if err != nil {
		return nil, err
	}
	res, err := c.httpc.Do(req)
	if err != nil {
		return nil, &common.RejectionError{Venue: c.Venue(), Op: "markets", Body: err.Error()}
	}
	defer res.Body.Close()
	body, _ := io.ReadAll(res.Body)
	if res.StatusCode != 200 {
		return nil, &common.RejectionError{Venue: c.Venue(), Op: "markets", Status: res.StatusCode, Body: string(body)}
	}
	var markets []Market
	if err := json.Unmarshal(body, &markets); err != nil {
		return nil, fmt.Errorf("backpack: decode markets: %w", err)
	}
	return markets, nil
}

// Close releases the HTTP pool.
func (c *Client) Close() error {
	c.httpc.Close()
	return nil
}

// do signs and performs one request. Query parameters are sent in the URL for
// GET/DELETE without a JSON payload; a payload is sent as the JSON body. The
// signature headers are generated fresh for every call.
func (c *Client) do(ctx context.Context, method, path, instruction string, signParams map[string]string, payload any, okStatuses []int) ([]byte, error) {
	endpoint := c.baseURL + path

	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("backpack: encode %s: %w", instruction, err)
		}
		reqBody = bytes.NewReader(encoded)
	} else if len(signParams) > 0 && (method == http.MethodGet || method == http.MethodDelete) {
		q := url.Values{}
		for k, v := range signParams {
			q.Set(k, v)
		}
		endpoint += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, err
	}
	for k, vs := range c.signer.AuthHeaders(instruction, signParams) {
		req.Header[k] = vs
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.httpc.Do(req)
	if err != nil {
		return nil, &common.RejectionError{Venue: c.Venue(), Op: instruction, Body: err.Error()}
	}
	defer res.Body.Close()
	body, _ := io.ReadAll(res.Body)

	for _, ok := range okStatuses {
		if res.StatusCode == ok {
			return body, nil
		}
	}
	if common.IsAuthStatus(res.StatusCode) {
		return nil, &common.AuthError{Venue: c.Venue(), Op: instruction, Status: res.StatusCode, Body: string(body)}
	}
	return nil, &common.RejectionError{Venue: c.Venue(), Op: instruction, Status: res.StatusCode, Body: string(body)}
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
