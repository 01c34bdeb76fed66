// Package engine drives the per-venue trading loop: flatten, cancel, enter,
// bracket, sleep, repeat.
package engine

import (
	"context"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"perptrader/internal/journal"
	"perptrader/internal/monitor"
	"perptrader/internal/orders"
	"perptrader/internal/reconcile"
	"perptrader/pkg/exchanges/common"
)

// Config sizes one venue's loop.
type Config struct {
	Symbol        string
	Side          common.Side // entry side, BUY unless configured otherwise
	Size          decimal.Decimal
	TakeProfitPct decimal.Decimal
	StopLossPct   decimal.Decimal

	Interval      time.Duration // pause after a completed cycle
	ErrorInterval time.Duration // pause before retrying a failed cycle
}

// Controller runs the trading loop for a single venue. Venues never share
// state; one Controller per gateway.
type Controller struct {
	cfg     Config
	gw      common.Gateway
	rec     *reconcile.Reconciler
	builder orders.Builder
	journal *journal.Journal
	metrics *monitor.Metrics

	// sleep is swappable in tests
	sleep func(context.Context, time.Duration) error
}

func New(cfg Config, gw common.Gateway, j *journal.Journal, m *monitor.Metrics) *Controller {
	if cfg.Side == "" {
		cfg.Side = common.SideBuy
	}
	return &Controller{
		cfg: cfg,
		gw:  gw,
		rec: reconcile.New(gw),
		builder: orders.Builder{
			Symbol:        cfg.Symbol,
			Size:          cfg.Size,
			TakeProfitPct: cfg.TakeProfitPct,
			StopLossPct:   cfg.StopLossPct,
		},
		journal: j,
		metrics: m,
		sleep:   sleepCtx,
	}
}

// Run loops until ctx is cancelled. A failed cycle is logged, journalled and
// retried after the error interval; nothing carries over between cycles.
func (c *Controller) Run(ctx context.Context) {
	venue := c.gw.Venue()
	log.Printf("✓ [%s] trading loop started: %s size=%s tp=%s%% sl=%s%%",
		venue, c.cfg.Symbol, c.cfg.Size, c.cfg.TakeProfitPct, c.cfg.StopLossPct)

	for {
		started := time.Now()
		price, err := c.runCycle(ctx)
		if ctx.Err() != nil {
			log.Printf("[%s] trading loop stopped", venue)
			return
		}

		rec := journal.CycleRecord{
			Venue:     venue,
			Symbol:    c.cfg.Symbol,
			StartedAt: started,
		}
		if !price.IsZero() {
			rec.Price = price.String()
		}

		pause := c.cfg.Interval
		if err != nil {
			log.Printf("❌ [%s] cycle failed: %v", venue, err)
			c.metrics.CycleFailed(venue, err)
			rec.Outcome = journal.OutcomeFailed
			rec.Detail = err.Error()
			pause = c.cfg.ErrorInterval
		} else {
			c.metrics.CycleCompleted(venue)
			rec.Outcome = journal.OutcomeCompleted
		}
		if jerr := c.journal.RecordCycle(rec); jerr != nil {
			log.Printf("[%s] journal: %v", venue, jerr)
		}

		if c.sleep(ctx, pause) != nil {
			log.Printf("[%s] trading loop stopped", venue)
			return
		}
	}
}

// runCycle executes one full cycle and returns the entry price it traded at.
// Any error aborts the cycle where it stands; the next cycle starts over from
// the position check.
func (c *Controller) runCycle(ctx context.Context) (decimal.Decimal, error) {
	venue := c.gw.Venue()
	symbol := c.cfg.Symbol

	if err := c.rec.Flatten(ctx, symbol); err != nil {
		return decimal.Zero, err
	}

	resting, err := c.gw.OpenOrders(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	if len(resting) > 0 {
		if err := c.gw.CancelAllOrders(ctx, symbol); err != nil {
			return decimal.Zero, err
		}
		c.metrics.OrdersCanceled(venue, len(resting))
		log.Printf("[%s] cancelled %d resting orders", venue, len(resting))
	}

	price, err := c.gw.GetPrice(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}

	traits := c.gw.Traits()
	entry := c.builder.Entry(traits, c.cfg.Side, price)
	if err := c.place(ctx, entry); err != nil {
		return price, err
	}
	log.Printf("[%s] entry placed: %s %s @ %s", venue, entry.Side, symbol, price)

	if !traits.InlineBrackets {
		tp, sl := c.builder.Brackets(c.cfg.Side, price)
		if err := c.place(ctx, tp); err != nil {
			return price, err
		}
		if err := c.place(ctx, sl); err != nil {
			return price, err
		}
		log.Printf("[%s] brackets placed: tp=%s sl=%s", venue, tp.TriggerPrice, sl.TriggerPrice)
	}
	return price, nil
}

func (c *Controller) place(ctx context.Context, o common.Order) error {
	ack, err := c.gw.PlaceOrder(ctx, o)
	if err != nil {
		return err
	}
	c.metrics.OrderPlaced(c.gw.Venue())
	if jerr := c.journal.RecordOrder(c.gw.Venue(), o, ack); jerr != nil {
		log.Printf("[%s] journal: %v", c.gw.Venue(), jerr)
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
