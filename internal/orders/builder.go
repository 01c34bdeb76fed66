// Package orders turns a mark price into the entry and bracket orders a
// trading cycle places.
package orders

import (
	"github.com/shopspring/decimal"

	"perptrader/pkg/exchanges/common"
)

// tickDecimals is the quote precision all derived prices are rounded to.
const tickDecimals = 2

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// Builder constructs orders for one symbol with fixed sizing and bracket
// percentages.
type Builder struct {
	Symbol        string
	Size          decimal.Decimal // base asset quantity per entry
	TakeProfitPct decimal.Decimal
	StopLossPct   decimal.Decimal
}

// BracketPrices derives the take-profit and stop-loss trigger prices from the
// entry price, rounded half-to-even to the tick decimals. For a SELL entry
// the offsets invert so take-profit sits below the price.
func (b Builder) BracketPrices(side common.Side, price decimal.Decimal) (tp, sl decimal.Decimal) {
	tpOffset := b.TakeProfitPct.Div(hundred)
	slOffset := b.StopLossPct.Div(hundred)
	if side == common.SideSell {
		tpOffset = tpOffset.Neg()
		slOffset = slOffset.Neg()
	}
	tp = price.Mul(one.Add(tpOffset)).RoundBank(tickDecimals)
	sl = price.Mul(one.Sub(slOffset)).RoundBank(tickDecimals)
	return tp, sl
}

// Entry builds the market entry order. Venues that attach brackets to the
// entry get the triggers inline and are sized in quote terms; the rest are
// sized in base terms and bracketed separately with Brackets.
func (b Builder) Entry(traits common.Traits, side common.Side, price decimal.Decimal) common.Order {
	o := common.Order{
		Type:   common.OrderTypeMarket,
		Side:   side,
		Symbol: b.Symbol,
	}
	if traits.InlineBrackets {
		o.QuoteQuantity = b.Size.Mul(price).RoundBank(tickDecimals)
		o.TakeProfitTrigger, o.StopLossTrigger = b.BracketPrices(side, price)
	} else {
		o.Quantity = b.Size
	}
	return o
}

// Brackets builds the standalone reduce-only bracket pair for an entry placed
// at price. Both orders sit on the exit side; limit price equals the trigger
// price.
func (b Builder) Brackets(side common.Side, price decimal.Decimal) (tp, sl common.Order) {
	tpPrice, slPrice := b.BracketPrices(side, price)
	exit := side.Opposite()
	tp = common.Order{
		Type:         common.OrderTypeTakeProfitLimit,
		Side:         exit,
		Symbol:       b.Symbol,
		Quantity:     b.Size,
		Price:        tpPrice,
		TriggerPrice: tpPrice,
		ReduceOnly:   true,
	}
	sl = common.Order{
		Type:         common.OrderTypeStopLossLimit,
		Side:         exit,
		Symbol:       b.Symbol,
		Quantity:     b.Size,
		Price:        slPrice,
		TriggerPrice: slPrice,
		ReduceOnly:   true,
	}
	return tp, sl
}
