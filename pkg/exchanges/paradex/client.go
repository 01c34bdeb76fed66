package paradex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"perptrader/pkg/exchanges/common"
)

// Config holds Paradex credentials and endpoints.
type Config struct {
	EthereumPrivateKey string
	BaseURL            string // defaults to the production API
}

const defaultBaseURL = "https://api.prod.paradex.trade/v1"

// closeConfirmDelay is how long a close order is given to settle before the
// position is re-queried; the venue does not settle market orders
// synchronously.
const closeConfirmDelay = 2 * time.Second

// Client is the Paradex gateway. Entry and brackets are separate orders;
// reduce-only rides on an order flag.
type Client struct {
	baseURL string
	account *Account
	httpc   *common.HTTPClient

	// set by Bootstrap
	chainID string
	signer  *Signer
	session *Session
}

// New derives the trading sub-account and creates the gateway. Bootstrap must
// run before any authenticated call.
func New(cfg Config) (*Client, error) {
	if cfg.EthereumPrivateKey == "" {
		return nil, fmt.Errorf("paradex: ethereum private key required")
	}
	account, err := DeriveAccount(cfg.EthereumPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("paradex: %w", err)
	}
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	return &Client{
		baseURL: base,
		account: account,
		httpc:   common.NewHTTPClient(8, 16),
	}, nil
}

// Account exposes the derived sub-account (for logging and the status API).
func (c *Client) Account() *Account { return c.account }

func (c *Client) Venue() string { return "paradex" }

func (c *Client) Traits() common.Traits {
	return common.Traits{CloseConfirmDelay: closeConfirmDelay}
}

// Bootstrap loads the venue's system config, registers the derived account
// (idempotent server-side) and prepares the session. It must complete before
// the first authenticated call.
func (c *Client) Bootstrap(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/system/config", nil)
	if err != nil {
		return err
	}
	res, err := c.httpc.Do(req)
	if err != nil {
		return &common.RejectionError{Venue: c.Venue(), Op: "system config", Body: err.Error()}
	}
	defer res.Body.Close()
	body, _ := io.ReadAll(res.Body)
	if res.StatusCode != 200 {
		return &common.RejectionError{Venue: c.Venue(), Op: "system config", Status: res.StatusCode, Body: string(body)}
	}
	var sysConfig struct {
		StarknetChainID string `json:"starknet_chain_id"`
	}
	if err := json.Unmarshal(body, &sysConfig); err != nil {
		return fmt.Errorf("paradex: decode system config: %w", err)
	}
	if sysConfig.StarknetChainID == "" {
		return fmt.Errorf("paradex: system config missing chain id")
	}

	c.chainID = sysConfig.StarknetChainID
	c.signer = NewSigner(c.account, c.chainID)
	c.session = NewSession(c.signer, c.httpc, c.baseURL)

	return c.onboard(ctx)
}

// onboard registers the derived account's public key.
func (c *Client) onboard(ctx context.Context) error {
	sig, err := c.signer.SignOnboarding()
	if err != nil {
		return err
	}
	payload, err := json.Marshal(map[string]string{"public_key": c.account.PublicKeyHex()})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/onboarding", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("PARADEX-ETHEREUM-ACCOUNT", c.account.L1Address)
	req.Header.Set("PARADEX-STARKNET-ACCOUNT", c.account.Address)
	req.Header.Set("PARADEX-STARKNET-SIGNATURE", sig)

	res, err := c.httpc.Do(req)
	if err != nil {
		return &common.RejectionError{Venue: c.Venue(), Op: "onboarding", Body: err.Error()}
	}
	defer res.Body.Close()
	body, _ := io.ReadAll(res.Body)
	if res.StatusCode != 200 {
		return &common.RejectionError{Venue: c.Venue(), Op: "onboarding", Status: res.StatusCode, Body: string(body)}
	}
	return nil
}

// GetPrice returns the orderbook midpoint: (best bid + best ask) / 2.
func (c *Client) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	body, err := c.doAuthed(ctx, http.MethodGet, "/orderbook/"+symbol, "orderbook", nil, []int{200})
	if err != nil {
		return decimal.Zero, err
	}
	var book struct {
		Bids [][]json.RawMessage `json:"bids"`
		Asks [][]json.RawMessage `json:"asks"`
	}
	if err := json.Unmarshal(body, &book); err != nil {
		return decimal.Zero, fmt.Errorf("paradex: decode orderbook: %w", err)
	}
	if len(book.Bids) == 0 || len(book.Asks) == 0 {
		return decimal.Zero, fmt.Errorf("paradex orderbook %s: %w", symbol, common.ErrNoPriceData)
	}
	bestBid, err := levelPrice(book.Bids[0])
	if err != nil {
		return decimal.Zero, fmt.Errorf("paradex orderbook %s: %w", symbol, err)
	}
	bestAsk, err := levelPrice(book.Asks[0])
	if err != nil {
		return decimal.Zero, fmt.Errorf("paradex orderbook %s: %w", symbol, err)
	}
	return bestBid.Add(bestAsk).Div(decimal.NewFromInt(2)), nil
}

// PlaceOrder signs and submits an order. The signature timestamp transmitted
// with the order is the exact timestamp that was signed.
func (c *Client) PlaceOrder(ctx context.Context, order common.Order) (common.Ack, error) {
	if order.ClientID == "" {
		order.ClientID = uuid.NewString()
	}
	timestampMs := time.Now().UnixMilli()
	sig, err := c.signer.SignOrder(order, timestampMs)
	if err != nil {
		return common.Ack{}, err
	}

	payload := map[string]any{
		"market":              order.Symbol,
		"side":                string(order.Side),
		"type":                string(order.Type),
		"size":                order.Quantity.String(),
		"client_id":           order.ClientID,
		"signature":           sig,
		"signature_timestamp": timestampMs,
	}
	if !order.Price.IsZero() {
		payload["price"] = order.Price.String()
	}
	if !order.TriggerPrice.IsZero() {
		payload["trigger_price"] = order.TriggerPrice.String()
	}
	if order.ReduceOnly {
		payload["flags"] = []string{"REDUCE_ONLY"}
	}

	body, err := c.doAuthed(ctx, http.MethodPost, "/orders", "order create", payload, []int{200, 201})
	if err != nil {
		return common.Ack{}, err
	}
	var resp struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return common.Ack{}, fmt.Errorf("paradex: decode order ack: %w", err)
	}
	return common.Ack{OrderID: resp.ID, ClientID: order.ClientID, Status: resp.Status}, nil
}

// CancelOrder cancels a single order by id.
func (c *Client) CancelOrder(ctx context.Context, symbol, orderID string) error {
	_, err := c.doAuthed(ctx, http.MethodDelete, "/orders/"+orderID, "order cancel", nil, []int{200, 204})
	return err
}

// CancelAllOrders lists resting orders and cancels the live ones one by one.
// With nothing resting this is a no-op.
func (c *Client) CancelAllOrders(ctx context.Context, symbol string) error {
	orders, err := c.OpenOrders(ctx, symbol)
	if err != nil {
		return err
	}
	for _, o := range orders {
		if o.Status != "NEW" && o.Status != "UNTRIGGERED" {
			continue
		}
		if err := c.CancelOrder(ctx, symbol, o.ID); err != nil {
			return err
		}
	}
	return nil
}

// OpenOrders lists resting orders for the market.
func (c *Client) OpenOrders(ctx context.Context, symbol string) ([]common.OpenOrder, error) {
	body, err := c.doAuthed(ctx, http.MethodGet, "/orders", "orders query", nil, []int{200})
	if err != nil {
		return nil, err
	}
	var resp struct {
		Results []struct {
			ID     string `json:"id"`
			Market string `json:"market"`
			Type   string `json:"type"`
			Side   string `json:"side"`
			Status string `json:"status"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("paradex: decode orders: %w", err)
	}
	orders := make([]common.OpenOrder, 0, len(resp.Results))
	for _, o := range resp.Results {
		if symbol != "" && o.Market != symbol {
			continue
		}
		orders = append(orders, common.OpenOrder{
			ID:     o.ID,
			Symbol: o.Market,
			Type:   common.OrderType(o.Type),
			Side:   common.Side(o.Side),
			Status: o.Status,
		})
	}
	return orders, nil
}

// GetPosition returns the open position for the market, or nil when flat.
func (c *Client) GetPosition(ctx context.Context, symbol string) (*common.Position, error) {
	body, err := c.doAuthed(ctx, http.MethodGet, "/positions", "positions query", nil, []int{200})
	if err != nil {
		return nil, err
	}
	var resp struct {
		Results []struct {
			Market           string `json:"market"`
			Status           string `json:"status"`
			Size             string `json:"size"`
			AverageEntry     string `json:"average_entry_price"`
			UnrealizedPnL    string `json:"unrealized_pnl"`
			LiquidationPrice string `json:"liquidation_price"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("paradex: decode positions: %w", err)
	}
	for _, p := range resp.Results {
		if p.Market != symbol || p.Status != "OPEN" {
			continue
		}
		size, err := decimal.NewFromString(p.Size)
		if err != nil || size.IsZero() {
			continue
		}
		return &common.Position{
			Symbol:           p.Market,
			NetQuantity:      size,
			EntryPrice:       parseDecimal(p.AverageEntry),
			UnrealizedPnL:    parseDecimal(p.UnrealizedPnL),
			LiquidationPrice: parseDecimal(p.LiquidationPrice),
		}, nil
	}
	return nil, nil
}

// Close releases the HTTP pool.
func (c *Client) Close() error {
	c.httpc.Close()
	return nil
}

// doAuthed performs one bearer-authenticated request. A token rejection
// invalidates the session and retries exactly once with a freshly minted
// token; a second rejection surfaces as an AuthError.
func (c *Client) doAuthed(ctx context.Context, method, path, op string, payload any, okStatuses []int) ([]byte, error) {
	if c.session == nil {
		return nil, fmt.Errorf("paradex: gateway not bootstrapped")
	}

	var encoded []byte
	if payload != nil {
		var err error
		encoded, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("paradex: encode %s: %w", op, err)
		}
	}

	attempt := func(token string) (int, []byte, error) {
		var reqBody io.Reader
		if encoded != nil {
			reqBody = bytes.NewReader(encoded)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
		if err != nil {
			return 0, nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")
		if encoded != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		res, err := c.httpc.Do(req)
		if err != nil {
			return 0, nil, &common.RejectionError{Venue: c.Venue(), Op: op, Body: err.Error()}
		}
		defer res.Body.Close()
		body, _ := io.ReadAll(res.Body)
		return res.StatusCode, body, nil
	}

	token, err := c.session.Token(ctx)
	if err != nil {
		return nil, err
	}
	status, body, err := attempt(token)
	if err != nil {
		return nil, err
	}

	if common.IsAuthStatus(status) {
		c.session.Invalidate()
		token, err = c.session.Token(ctx)
		if err != nil {
			return nil, err
		}
		status, body, err = attempt(token)
		if err != nil {
			return nil, err
		}
		if common.IsAuthStatus(status) {
			return nil, &common.AuthError{Venue: c.Venue(), Op: op, Status: status, Body: string(body)}
		}
	}

	for _, ok := range okStatuses {
		if status == ok {
			return body, nil
		}
	}
	return nil, &common.RejectionError{Venue: c.Venue(), Op: op, Status: status, Body: string(body)}
}

// levelPrice reads the price component of an orderbook level; venues render
// levels as [price, size] with either string or numeric entries.
func levelPrice(level []json.RawMessage) (decimal.Decimal, error) {
	if len(level) == 0 {
		return decimal.Zero, common.ErrNoPriceData
	}
	var asString string
	if err := json.Unmarshal(level[0], &asString); err == nil {
		return decimal.NewFromString(asString)
	}
	var asNumber json.Number
	if err := json.Unmarshal(level[0], &asNumber); err == nil {
		return decimal.NewFromString(asNumber.String())
	}
	return decimal.Zero, fmt.Errorf("unreadable orderbook level %s", level[0])
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
