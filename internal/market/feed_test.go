package market

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseMarkPriceMessage(t *testing.T) {
	cases := []struct {
		name  string
		msg   string
		ok    bool
		price string
	}{
		{
			"mark price event",
			`{"stream":"markPrice.ETH_USDC_PERP","data":{"s":"ETH_USDC_PERP","p":"2000.5"}}`,
			true, "2000.5",
		},
		{
			"other stream skipped",
			`{"stream":"ticker.ETH_USDC_PERP","data":{"s":"ETH_USDC_PERP","p":"2000.5"}}`,
			false, "",
		},
		{
			"subscription ack skipped",
			`{"result":null,"id":1}`,
			false, "",
		},
		{
			"unparseable price skipped",
			`{"stream":"markPrice.ETH_USDC_PERP","data":{"s":"ETH_USDC_PERP","p":""}}`,
			false, "",
		},
		{
			"garbage skipped",
			`not json`,
			false, "",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tick, ok := parseMarkPriceMessage([]byte(tc.msg))
			if ok != tc.ok {
				t.Fatalf("ok=%v, want %v", ok, tc.ok)
			}
			if !ok {
				return
			}
			if tick.Symbol != "ETH_USDC_PERP" {
				t.Fatalf("symbol=%q", tick.Symbol)
			}
			if !tick.Price.Equal(decimal.RequireFromString(tc.price)) {
				t.Fatalf("price=%s, want %s", tick.Price, tc.price)
			}
			if tick.Time.IsZero() {
				t.Fatal("tick time not set")
			}
		})
	}
}

func TestLatestAndSnapshot(t *testing.T) {
	f := NewFeed("", []string{"ETH_USDC_PERP"})

	if _, ok := f.Latest("ETH_USDC_PERP"); ok {
		t.Fatal("tick before any message")
	}

	tick, ok := parseMarkPriceMessage([]byte(`{"stream":"markPrice.ETH_USDC_PERP","data":{"s":"ETH_USDC_PERP","p":"1999.25"}}`))
	if !ok {
		t.Fatal("parse failed")
	}
	f.mu.Lock()
	f.prices[tick.Symbol] = tick
	f.mu.Unlock()

	got, ok := f.Latest("ETH_USDC_PERP")
	if !ok || !got.Price.Equal(decimal.RequireFromString("1999.25")) {
		t.Fatalf("Latest=%+v ok=%v", got, ok)
	}
	snap := f.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("snapshot len=%d", len(snap))
	}
}
