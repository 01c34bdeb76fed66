// Package config reads environment-driven settings for the trader.
package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds environment-driven settings for both venues and the loop.
type Config struct {
	Port string

	// Backpack (static API key)
	BackpackAPIKey    string
	BackpackAPISecret string
	BackpackBaseURL   string
	BackpackSymbol    string

	// Paradex (derived from an L1 key)
	EthereumPrivateKey string
	ParadexBaseURL     string
	ParadexSymbol      string

	// Loop
	OrderSize     decimal.Decimal
	TakeProfitPct decimal.Decimal
	StopLossPct   decimal.Decimal
	CycleInterval time.Duration
	ErrorInterval time.Duration

	// Streaming mark prices for the status API
	EnablePriceFeed bool
	StreamURL       string

	// Database
	DBPath string
}

// Load reads environment variables (optionally via .env) into Config.
func Load() (*Config, error) {
	// Ignore error so the app still starts when .env is missing.
	_ = godotenv.Load()

	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		BackpackAPIKey:     os.Getenv("BACKPACK_API_KEY"),
		BackpackAPISecret:  os.Getenv("BACKPACK_API_SECRET"),
		BackpackBaseURL:    getEnv("BACKPACK_BASE_URL", ""),
		BackpackSymbol:     getEnv("BACKPACK_SYMBOL", "ETH_USDC_PERP"),
		EthereumPrivateKey: os.Getenv("ETHEREUM_PRIVATE_KEY"),
		ParadexBaseURL:     getEnv("PARADEX_BASE_URL", ""),
		ParadexSymbol:      getEnv("PARADEX_SYMBOL", "ETH-USD-PERP"),
		OrderSize:          getEnvDecimal("ORDER_SIZE", "0.1"),
		TakeProfitPct:      getEnvDecimal("TAKE_PROFIT_PERCENT", "1"),
		StopLossPct:        getEnvDecimal("STOP_LOSS_PERCENT", "1"),
		CycleInterval:      getEnvDuration("CYCLE_INTERVAL", time.Minute),
		ErrorInterval:      getEnvDuration("ERROR_RETRY_INTERVAL", 30*time.Second),
		EnablePriceFeed:    getEnv("ENABLE_PRICE_FEED", "true") == "true",
		StreamURL:          getEnv("STREAM_URL", ""),
		DBPath:             getEnv("DB_PATH", "./data/perptrader.db"),
	}

	if !cfg.BackpackEnabled() && !cfg.ParadexEnabled() {
		return nil, errors.New("no venue configured: set BACKPACK_API_KEY/BACKPACK_API_SECRET or ETHEREUM_PRIVATE_KEY")
	}
	if cfg.OrderSize.Sign() <= 0 {
		return nil, errors.New("ORDER_SIZE must be positive")
	}
	if cfg.TakeProfitPct.Sign() <= 0 || cfg.StopLossPct.Sign() <= 0 {
		return nil, errors.New("TAKE_PROFIT_PERCENT and STOP_LOSS_PERCENT must be positive")
	}
	return cfg, nil
}

// BackpackEnabled reports whether the Backpack venue has credentials.
func (c *Config) BackpackEnabled() bool {
	return c.BackpackAPIKey != "" && c.BackpackAPISecret != ""
}

// ParadexEnabled reports whether the Paradex venue has credentials.
func (c *Config) ParadexEnabled() bool {
	return c.EthereumPrivateKey != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDecimal(key, def string) decimal.Decimal {
	if v := os.Getenv(key); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
	}
	return decimal.RequireFromString(def)
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		// bare numbers are seconds
		if secs, err := strconv.Atoi(v); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return def
}
