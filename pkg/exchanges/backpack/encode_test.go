package backpack

import (
	"testing"

	"github.com/shopspring/decimal"

	"perptrader/pkg/exchanges/common"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return d
}

func TestOrderPayloadReduceOnlyEncoding(t *testing.T) {
	body, signParams := orderPayload(common.Order{
		Type:       common.OrderTypeMarket,
		Side:       common.SideSell,
		Symbol:     "ETH_USDC_PERP",
		Quantity:   dec(t, "0.5"),
		ReduceOnly: true,
	})

	// Transmitted as a native boolean, signed as the literal string "true".
	if v, ok := body["reduceOnly"].(bool); !ok || !v {
		t.Fatalf("body reduceOnly=%v (%T), expected native true", body["reduceOnly"], body["reduceOnly"])
	}
	if signParams["reduceOnly"] != "true" {
		t.Fatalf("sign reduceOnly=%q, expected literal \"true\"", signParams["reduceOnly"])
	}

	// Every other field agrees between the two renderings.
	for k, v := range body {
		if k == "reduceOnly" {
			continue
		}
		s, ok := v.(string)
		if !ok {
			t.Fatalf("body field %s is %T, expected string", k, v)
		}
		if signParams[k] != s {
			t.Fatalf("field %s: sign=%q transmit=%q", k, signParams[k], s)
		}
	}
	for k := range signParams {
		if k == "reduceOnly" {
			continue
		}
		if _, ok := body[k]; !ok {
			t.Fatalf("sign field %s missing from transmit body", k)
		}
	}
}

func TestOrderPayloadOmitsReduceOnlyWhenFalse(t *testing.T) {
	body, signParams := orderPayload(common.Order{
		Type:     common.OrderTypeMarket,
		Side:     common.SideBuy,
		Symbol:   "ETH_USDC_PERP",
		Quantity: dec(t, "0.1"),
	})
	if _, ok := body["reduceOnly"]; ok {
		t.Fatal("reduceOnly transmitted for a non-reduce-only order")
	}
	if _, ok := signParams["reduceOnly"]; ok {
		t.Fatal("reduceOnly signed for a non-reduce-only order")
	}
}

func TestOrderPayloadEntryWithInlineBrackets(t *testing.T) {
	body, _ := orderPayload(common.Order{
		Type:              common.OrderTypeMarket,
		Side:              common.SideBuy,
		Symbol:            "ETH_USDC_PERP",
		Quantity:          dec(t, "0.1"),
		QuoteQuantity:     dec(t, "200"),
		TakeProfitTrigger: dec(t, "2020"),
		StopLossTrigger:   dec(t, "1980"),
	})

	if body["side"] != "Bid" {
		t.Fatalf("side=%v, expected Bid", body["side"])
	}
	if body["orderType"] != "Market" {
		t.Fatalf("orderType=%v, expected Market", body["orderType"])
	}
	if _, ok := body["quantity"]; ok {
		t.Fatal("quantity transmitted alongside quoteQuantity")
	}
	if body["quoteQuantity"] != "200" {
		t.Fatalf("quoteQuantity=%v", body["quoteQuantity"])
	}
	if body["takeProfitTriggerPrice"] != "2020" || body["takeProfitTriggerBy"] != "MarkPrice" {
		t.Fatalf("take profit trigger=%v by=%v", body["takeProfitTriggerPrice"], body["takeProfitTriggerBy"])
	}
	if body["stopLossTriggerPrice"] != "1980" || body["stopLossTriggerBy"] != "MarkPrice" {
		t.Fatalf("stop loss trigger=%v by=%v", body["stopLossTriggerPrice"], body["stopLossTriggerBy"])
	}
	if body["selfTradePrevention"] != "RejectTaker" {
		t.Fatalf("selfTradePrevention=%v, expected default RejectTaker", body["selfTradePrevention"])
	}
	if body["timeInForce"] != "GTC" {
		t.Fatalf("timeInForce=%v, expected default GTC", body["timeInForce"])
	}
}

func TestSideAndTypeNames(t *testing.T) {
	if sideName(common.SideBuy) != "Bid" || sideName(common.SideSell) != "Ask" {
		t.Fatal("side mapping wrong")
	}
	if orderTypeName(common.OrderTypeLimit) != "Limit" || orderTypeName(common.OrderTypeMarket) != "Market" {
		t.Fatal("order type mapping wrong")
	}
}
