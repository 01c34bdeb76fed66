package backpack

import (
	"perptrader/pkg/exchanges/common"
)

// Venue-specific wire names.
func orderTypeName(t common.OrderType) string {
	switch t {
	case common.OrderTypeLimit:
		return "Limit"
	default:
		return "Market"
	}
}

func sideName(s common.Side) string {
	if s == common.SideSell {
		return "Ask"
	}
	return "Bid"
}

// orderPayload renders an order twice: the transmit body (JSON, native types)
// and the signing parameter set (all strings). The two agree on every field
// except reduceOnly, which is signed as the literal "true" but transmitted as
// a native boolean.
func orderPayload(o common.Order) (body map[string]any, signParams map[string]string) {
	stp := o.SelfTradePrevention
	if stp == "" {
		stp = common.STPRejectTaker
	}
	tif := o.TimeInForce
	if tif == "" {
		tif = common.TIFGTC
	}

	body = map[string]any{
		"orderType":           orderTypeName(o.Type),
		"side":                sideName(o.Side),
		"symbol":              o.Symbol,
		"selfTradePrevention": string(stp),
		"timeInForce":         string(tif),
	}

	// Quote quantity wins when both sizes are present: the venue rejects
	// market orders carrying both.
	if !o.QuoteQuantity.IsZero() {
		body["quoteQuantity"] = o.QuoteQuantity.String()
	} else if !o.Quantity.IsZero() {
		body["quantity"] = o.Quantity.String()
	}
	if !o.Price.IsZero() {
		body["price"] = o.Price.String()
	}
	if !o.TakeProfitTrigger.IsZero() {
		body["takeProfitTriggerPrice"] = o.TakeProfitTrigger.String()
		body["takeProfitTriggerBy"] = "MarkPrice"
	}
	if !o.StopLossTrigger.IsZero() {
		body["stopLossTriggerPrice"] = o.StopLossTrigger.String()
		body["stopLossTriggerBy"] = "MarkPrice"
	}

	signParams = make(map[string]string, len(body)+1)
	for k, v := range body {
		signParams[k] = v.(string)
	}
	if o.ReduceOnly {
		body["reduceOnly"] = true
		signParams["reduceOnly"] = "true"
	}
	return body, signParams
}
