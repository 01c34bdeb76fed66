package config

import (
	"testing"
	"time"
)

func setBackpackCreds(t *testing.T) {
	t.Helper()
	t.Setenv("BACKPACK_API_KEY", "key")
	t.Setenv("BACKPACK_API_SECRET", "secret")
}

func TestLoadRequiresAVenue(t *testing.T) {
	t.Setenv("BACKPACK_API_KEY", "")
	t.Setenv("BACKPACK_API_SECRET", "")
	t.Setenv("ETHEREUM_PRIVATE_KEY", "")

	if _, err := Load(); err == nil {
		t.Fatal("Load accepted a config with no venue credentials")
	}
}

func TestLoadDefaults(t *testing.T) {
	setBackpackCreds(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.BackpackEnabled() || cfg.ParadexEnabled() {
		t.Fatalf("venue toggles wrong: backpack=%v paradex=%v", cfg.BackpackEnabled(), cfg.ParadexEnabled())
	}
	if cfg.BackpackSymbol != "ETH_USDC_PERP" || cfg.ParadexSymbol != "ETH-USD-PERP" {
		t.Fatalf("symbols wrong: %q %q", cfg.BackpackSymbol, cfg.ParadexSymbol)
	}
	if cfg.CycleInterval != time.Minute || cfg.ErrorInterval != 30*time.Second {
		t.Fatalf("intervals wrong: %v %v", cfg.CycleInterval, cfg.ErrorInterval)
	}
	if cfg.OrderSize.String() != "0.1" {
		t.Fatalf("order size=%s", cfg.OrderSize)
	}
}

func TestLoadParsesDurations(t *testing.T) {
	setBackpackCreds(t)
	t.Setenv("CYCLE_INTERVAL", "2m")
	t.Setenv("ERROR_RETRY_INTERVAL", "45") // bare seconds

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CycleInterval != 2*time.Minute {
		t.Fatalf("CycleInterval=%v", cfg.CycleInterval)
	}
	if cfg.ErrorInterval != 45*time.Second {
		t.Fatalf("ErrorInterval=%v", cfg.ErrorInterval)
	}
}

func TestLoadRejectsBadSizing(t *testing.T) {
	setBackpackCreds(t)
	t.Setenv("ORDER_SIZE", "0")

	if _, err := Load(); err == nil {
		t.Fatal("Load accepted a zero order size")
	}
}
