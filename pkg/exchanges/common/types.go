package common

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side denotes order side.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Opposite returns the side that flattens an exposure opened on s.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// OrderType denotes basic order types.
type OrderType string

const (
	OrderTypeMarket          OrderType = "MARKET"
	OrderTypeLimit           OrderType = "LIMIT"
	OrderTypeTakeProfitLimit OrderType = "TAKE_PROFIT_LIMIT"
	OrderTypeStopLossLimit   OrderType = "STOP_LOSS_LIMIT"
)

// TimeInForce captures TIF semantics.
type TimeInForce string

const (
	TIFGTC TimeInForce = "GTC" // Good Till Cancelled
	TIFIOC TimeInForce = "IOC" // Immediate Or Cancel
	TIFFOK TimeInForce = "FOK" // Fill Or Kill
)

// SelfTradePrevention is the server-side policy applied when an order would
// match against the same account's resting orders.
type SelfTradePrevention string

const (
	STPRejectTaker SelfTradePrevention = "RejectTaker"
	STPRejectMaker SelfTradePrevention = "RejectMaker"
	STPRejectBoth  SelfTradePrevention = "RejectBoth"
)

// Order captures an order intent to be sent to a venue. Decimal fields with a
// zero value are treated as absent by the venue encoders. A market order must
// carry Quantity or QuoteQuantity; limit types require Price; trigger types
// require TriggerPrice.
type Order struct {
	Type   OrderType
	Side   Side
	Symbol string

	Quantity      decimal.Decimal
	QuoteQuantity decimal.Decimal
	Price         decimal.Decimal
	TriggerPrice  decimal.Decimal

	// Inline bracket triggers, for venues that attach TP/SL to the entry
	// order instead of accepting separate bracket orders.
	TakeProfitTrigger decimal.Decimal
	StopLossTrigger   decimal.Decimal

	ReduceOnly          bool
	SelfTradePrevention SelfTradePrevention
	TimeInForce         TimeInForce
	ClientID            string
}

// Ack is the venue's acknowledgement of a state-changing call.
type Ack struct {
	OrderID  string
	ClientID string
	Status   string
}

// OpenOrder is a snapshot of a resting order as reported by the venue.
type OpenOrder struct {
	ID     string
	Symbol string
	Type   OrderType
	Side   Side
	Status string
}

// Position is a venue position snapshot. NetQuantity is signed: positive for
// long, negative for short.
type Position struct {
	Symbol           string
	NetQuantity      decimal.Decimal
	EntryPrice       decimal.Decimal
	MarkPrice        decimal.Decimal
	UnrealizedPnL    decimal.Decimal
	LiquidationPrice decimal.Decimal
}

// IsOpen reports whether the position carries any exposure.
func (p *Position) IsOpen() bool {
	return p != nil && !p.NetQuantity.IsZero()
}

// IsLong reports whether the position is net long.
func (p *Position) IsLong() bool {
	return p != nil && p.NetQuantity.Sign() > 0
}

// IsShort reports whether the position is net short.
func (p *Position) IsShort() bool {
	return p != nil && p.NetQuantity.Sign() < 0
}

// CloseSide returns the side of the order that flattens the position.
func (p *Position) CloseSide() Side {
	if p.IsLong() {
		return SideSell
	}
	return SideBuy
}

// Traits describe venue behaviors the orchestration layer must respect.
type Traits struct {
	// InlineBrackets is set when the venue attaches TP/SL triggers to the
	// entry order itself; separate bracket orders are then skipped.
	InlineBrackets bool

	// CloseConfirmDelay is how long to wait after a close order before
	// re-querying the position. Zero means the venue settles market orders
	// synchronously and no confirmation pass is needed.
	CloseConfirmDelay time.Duration
}
