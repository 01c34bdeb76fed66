package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"perptrader/internal/api"
	"perptrader/internal/engine"
	"perptrader/internal/journal"
	"perptrader/internal/market"
	"perptrader/internal/monitor"
	"perptrader/pkg/config"
	"perptrader/pkg/exchanges/backpack"
	"perptrader/pkg/exchanges/common"
	"perptrader/pkg/exchanges/paradex"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ config: %v", err)
	}
	log.Printf("starting perptrader on port %s", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	j, err := journal.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("❌ journal: %v", err)
	}
	defer j.Close()
	log.Printf("✓ journal ready at %s", cfg.DBPath)

	metrics := monitor.NewMetrics()

	type venueLoop struct {
		gw     common.Gateway
		symbol string
	}
	var loops []venueLoop
	var catalogue api.MarketCatalogue

	if cfg.BackpackEnabled() {
		bp, err := backpack.New(backpack.Config{
			APIKey:    cfg.BackpackAPIKey,
			APISecret: cfg.BackpackAPISecret,
			BaseURL:   cfg.BackpackBaseURL,
		})
		if err != nil {
			log.Fatalf("❌ backpack gateway: %v", err)
		}
		loops = append(loops, venueLoop{gw: bp, symbol: cfg.BackpackSymbol})
		catalogue = bp
		log.Printf("✓ backpack gateway ready: %s", cfg.BackpackSymbol)
	}

	if cfg.ParadexEnabled() {
		px, err := paradex.New(paradex.Config{
			EthereumPrivateKey: cfg.EthereumPrivateKey,
			BaseURL:            cfg.ParadexBaseURL,
		})
		if err != nil {
			log.Fatalf("❌ paradex gateway: %v", err)
		}
		if err := px.Bootstrap(ctx); err != nil {
			log.Fatalf("❌ paradex bootstrap: %v", err)
		}
		loops = append(loops, venueLoop{gw: px, symbol: cfg.ParadexSymbol})
		log.Printf("✓ paradex gateway ready: %s account %s", cfg.ParadexSymbol, px.Account().Address)
	}

	defer func() {
		for _, l := range loops {
			if err := l.gw.Close(); err != nil {
				log.Printf("close %s gateway: %v", l.gw.Venue(), err)
			}
		}
	}()

	var feed *market.Feed
	if cfg.EnablePriceFeed && cfg.BackpackEnabled() {
		feed = market.NewFeed(cfg.StreamURL, []string{cfg.BackpackSymbol})
		feed.Start(ctx)
	}

	var venues, symbols []string
	for _, l := range loops {
		venues = append(venues, l.gw.Venue())
		symbols = append(symbols, l.symbol)
	}
	version := os.Getenv("APP_VERSION")
	if version == "" {
		version = "dev"
	}
	server := api.NewServer(metrics, j, feed, catalogue, api.Meta{
		Venues:  venues,
		Symbols: symbols,
		Version: version,
	})
	go func() {
		if err := server.Start(":" + cfg.Port); err != nil {
			log.Fatalf("❌ status api: %v", err)
		}
	}()
	log.Printf("✓ status api listening on :%s", cfg.Port)

	var wg sync.WaitGroup
	for _, l := range loops {
		ctrl := engine.New(engine.Config{
			Symbol:        l.symbol,
			Size:          cfg.OrderSize,
			TakeProfitPct: cfg.TakeProfitPct,
			StopLossPct:   cfg.StopLossPct,
			Interval:      cfg.CycleInterval,
			ErrorInterval: cfg.ErrorInterval,
		}, l.gw, j, metrics)
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctrl.Run(ctx)
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Println("shutting down")
	cancel()
	wg.Wait()
}
