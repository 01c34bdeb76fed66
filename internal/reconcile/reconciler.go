// Package reconcile flattens venue positions so each trading cycle starts
// from a clean slate.
package reconcile

import (
	"context"
	"log"
	"time"

	"perptrader/pkg/exchanges/common"
)

// Reconciler closes whatever position a venue reports before new orders go
// out.
type Reconciler struct {
	gw common.Gateway

	// sleep is swappable in tests
	sleep func(context.Context, time.Duration) error
}

func New(gw common.Gateway) *Reconciler {
	return &Reconciler{gw: gw, sleep: sleepCtx}
}

// Flatten closes any open position on symbol. Venues that settle market
// orders asynchronously get a confirmation pass after their settle delay; a
// position still open after that is a ReconciliationError and the caller must
// not place a fresh entry on top of it.
func (r *Reconciler) Flatten(ctx context.Context, symbol string) error {
	pos, err := r.gw.GetPosition(ctx, symbol)
	if err != nil {
		return err
	}
	if !pos.IsOpen() {
		return nil
	}

	log.Printf("[%s] closing position %s %s", r.gw.Venue(), symbol, pos.NetQuantity)
	closeOrder := common.Order{
		Type:       common.OrderTypeMarket,
		Side:       pos.CloseSide(),
		Symbol:     symbol,
		Quantity:   pos.NetQuantity.Abs(),
		ReduceOnly: true,
	}
	if _, err := r.gw.PlaceOrder(ctx, closeOrder); err != nil {
		return err
	}

	delay := r.gw.Traits().CloseConfirmDelay
	if delay == 0 {
		return nil
	}
	if err := r.sleep(ctx, delay); err != nil {
		return err
	}
	pos, err = r.gw.GetPosition(ctx, symbol)
	if err != nil {
		return err
	}
	if pos.IsOpen() {
		return &common.ReconciliationError{
			Venue:     r.gw.Venue(),
			Symbol:    symbol,
			Remaining: pos.NetQuantity.String(),
		}
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
