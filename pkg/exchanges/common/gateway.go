package common

import (
	"context"

	"github.com/shopspring/decimal"
)

// Gateway abstracts a trading venue. Every call signs (or re-mints a token)
// freshly; implementations never reuse a signature across calls.
type Gateway interface {
	Venue() string
	Traits() Traits

	GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
	PlaceOrder(ctx context.Context, order Order) (Ack, error)
	CancelOrder(ctx context.Context, symbol, orderID string) error
	CancelAllOrders(ctx context.Context, symbol string) error
	OpenOrders(ctx context.Context, symbol string) ([]OpenOrder, error)
	GetPosition(ctx context.Context, symbol string) (*Position, error)

	Close() error
}
