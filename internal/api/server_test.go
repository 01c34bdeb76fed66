package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"perptrader/internal/journal"
	"perptrader/internal/monitor"
	"perptrader/pkg/exchanges/backpack"
)

type fakeCatalogue struct {
	markets []backpack.Market
	err     error
}

func (f *fakeCatalogue) GetMarkets(ctx context.Context) ([]backpack.Market, error) {
	return f.markets, f.err
}

func testServer(t *testing.T, markets MarketCatalogue) *Server {
	t.Helper()
	j, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	t.Cleanup(func() { j.Close() })

	metrics := monitor.NewMetrics()
	metrics.CycleCompleted("backpack")
	return NewServer(metrics, j, nil, markets, Meta{
		Venues:  []string{"backpack"},
		Symbols: []string{"ETH_USDC_PERP"},
		Version: "test",
	})
}

func doGet(t *testing.T, s *Server, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)

	var body map[string]any
	if len(w.Body.Bytes()) > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode %s response: %v", path, err)
		}
	}
	return w, body
}

func TestHealth(t *testing.T) {
	s := testServer(t, nil)
	w, body := doGet(t, s, "/health")
	if w.Code != 200 || body["status"] != "ok" {
		t.Fatalf("code=%d body=%v", w.Code, body)
	}
}

func TestStatusIncludesVenueCounters(t *testing.T) {
	s := testServer(t, nil)
	w, body := doGet(t, s, "/api/status")
	if w.Code != 200 {
		t.Fatalf("code=%d", w.Code)
	}
	venues, ok := body["venues"].(map[string]any)
	if !ok {
		t.Fatalf("venues missing: %v", body)
	}
	bp, ok := venues["backpack"].(map[string]any)
	if !ok || bp["cycles_completed"].(float64) != 1 {
		t.Fatalf("backpack counters wrong: %v", venues)
	}
}

func TestCyclesServedFromJournal(t *testing.T) {
	s := testServer(t, nil)
	rec := journal.CycleRecord{
		Venue:     "backpack",
		Symbol:    "ETH_USDC_PERP",
		Outcome:   journal.OutcomeCompleted,
		Price:     "2000.00",
		StartedAt: time.Now(),
	}
	if err := s.Journal.RecordCycle(rec); err != nil {
		t.Fatalf("RecordCycle: %v", err)
	}

	w, body := doGet(t, s, "/api/cycles")
	if w.Code != 200 {
		t.Fatalf("code=%d", w.Code)
	}
	cycles, ok := body["cycles"].([]any)
	if !ok || len(cycles) != 1 {
		t.Fatalf("cycles=%v", body["cycles"])
	}
}

func TestCyclesRejectsBadLimit(t *testing.T) {
	s := testServer(t, nil)
	w, _ := doGet(t, s, "/api/cycles?limit=nope")
	if w.Code != 400 {
		t.Fatalf("code=%d, expected 400", w.Code)
	}
}

func TestMarketsWithoutCatalogue(t *testing.T) {
	s := testServer(t, nil)
	w, _ := doGet(t, s, "/api/markets")
	if w.Code != 503 {
		t.Fatalf("code=%d, expected 503", w.Code)
	}
}

func TestMarketsFromCatalogue(t *testing.T) {
	s := testServer(t, &fakeCatalogue{markets: []backpack.Market{{Symbol: "ETH_USDC_PERP"}}})
	w, body := doGet(t, s, "/api/markets")
	if w.Code != 200 {
		t.Fatalf("code=%d", w.Code)
	}
	markets, ok := body["markets"].([]any)
	if !ok || len(markets) != 1 {
		t.Fatalf("markets=%v", body["markets"])
	}
}
