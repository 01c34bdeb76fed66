// Package market streams mark prices over the public websocket and caches
// the latest tick per symbol for the status API. The trading loop keeps using
// REST prices; this cache is observational.
package market

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

const defaultStreamURL = "wss://ws.backpack.exchange"

const reconnectDelay = 5 * time.Second

// Tick is the newest mark price seen for a symbol.
type Tick struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
	Time   time.Time       `json:"time"`
}

// Feed maintains one websocket subscription per configured symbol and
// reconnects on failure.
type Feed struct {
	StreamURL string
	Symbols   []string

	dialer *websocket.Dialer

	mu     sync.RWMutex
	prices map[string]Tick
}

func NewFeed(streamURL string, symbols []string) *Feed {
	if streamURL == "" {
		streamURL = defaultStreamURL
	}
	return &Feed{
		StreamURL: streamURL,
		Symbols:   symbols,
		dialer:    websocket.DefaultDialer,
		prices:    make(map[string]Tick),
	}
}

// Start runs the stream until ctx is cancelled. Safe to call with no symbols;
// the feed then stays idle.
func (f *Feed) Start(ctx context.Context) {
	if len(f.Symbols) == 0 {
		log.Println("mark price feed: no symbols configured; skipping start")
		return
	}
	go f.run(ctx)
}

// Latest returns the newest tick for symbol.
func (f *Feed) Latest(symbol string) (Tick, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	t, ok := f.prices[symbol]
	return t, ok
}

// Snapshot returns a copy of every cached tick.
func (f *Feed) Snapshot() map[string]Tick {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make(map[string]Tick, len(f.prices))
	for sym, t := range f.prices {
		out[sym] = t
	}
	return out
}

func (f *Feed) run(ctx context.Context) {
	for {
		if err := f.stream(ctx); err != nil {
			log.Printf("mark price feed: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

// stream holds one connection open: subscribe, then read until the
// connection drops or ctx is cancelled.
func (f *Feed) stream(ctx context.Context) error {
	conn, _, err := f.dialer.DialContext(ctx, f.StreamURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Close the socket when ctx ends so the blocked read returns.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			_ = conn.Close()
		case <-done:
		}
	}()

	params := make([]string, 0, len(f.Symbols))
	for _, sym := range f.Symbols {
		params = append(params, "markPrice."+sym)
	}
	sub := map[string]any{"method": "SUBSCRIBE", "params": params}
	if err := conn.WriteJSON(sub); err != nil {
		return err
	}
	log.Printf("✓ mark price feed subscribed: %s", strings.Join(params, ", "))

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil ||
				websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) ||
				strings.Contains(err.Error(), "use of closed network connection") {
				return nil
			}
			return err
		}

		tick, ok := parseMarkPriceMessage(msg)
		if !ok {
			continue
		}
		f.mu.Lock()
		f.prices[tick.Symbol] = tick
		f.mu.Unlock()
	}
}

// parseMarkPriceMessage decodes only the fields the cache needs; anything
// that is not a mark price event is skipped.
func parseMarkPriceMessage(msg []byte) (Tick, bool) {
	var raw struct {
		Stream string `json:"stream"`
		Data   struct {
			Symbol string `json:"s"`
			Price  string `json:"p"`
		} `json:"data"`
	}
	if err := json.Unmarshal(msg, &raw); err != nil {
		return Tick{}, false
	}
	if !strings.HasPrefix(raw.Stream, "markPrice.") || raw.Data.Symbol == "" {
		return Tick{}, false
	}
	price, err := decimal.NewFromString(raw.Data.Price)
	if err != nil {
		return Tick{}, false
	}
	return Tick{Symbol: raw.Data.Symbol, Price: price, Time: time.Now()}, true
}
