// Package journal persists cycle outcomes and order acknowledgements to
// SQLite so the status API can serve recent activity across restarts.
package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"perptrader/pkg/exchanges/common"
)

const schema = `
PRAGMA journal_mode=WAL;

CREATE TABLE IF NOT EXISTS cycles (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    venue TEXT NOT NULL,
    symbol TEXT NOT NULL,
    outcome TEXT NOT NULL,
    detail TEXT,
    price TEXT,
    started_at DATETIME NOT NULL,
    finished_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS orders (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    venue TEXT NOT NULL,
    symbol TEXT NOT NULL,
    order_id TEXT,
    client_id TEXT,
    order_type TEXT NOT NULL,
    side TEXT NOT NULL,
    quantity TEXT,
    quote_quantity TEXT,
    price TEXT,
    trigger_price TEXT,
    reduce_only INTEGER DEFAULT 0,
    status TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_cycles_venue ON cycles(venue, id);
`

// Outcome values recorded per cycle.
const (
	OutcomeCompleted = "COMPLETED"
	OutcomeFailed    = "FAILED"
)

// Journal wraps the SQL handle for easier swapping/testing.
type Journal struct {
	DB *sql.DB
}

// Open opens (and creates if needed) the journal database at path.
func Open(path string) (*Journal, error) {
	if path == "" {
		return nil, errors.New("journal path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite prefers single writer.
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Journal{DB: db}, nil
}

// Close releases the underlying DB handle.
func (j *Journal) Close() error {
	if j == nil || j.DB == nil {
		return nil
	}
	return j.DB.Close()
}

// CycleRecord is one journalled trading cycle.
type CycleRecord struct {
	ID         int64     `json:"id"`
	Venue      string    `json:"venue"`
	Symbol     string    `json:"symbol"`
	Outcome    string    `json:"outcome"`
	Detail     string    `json:"detail,omitempty"`
	Price      string    `json:"price,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// RecordCycle journals one finished cycle. Detail carries the failure cause
// for failed cycles and is empty otherwise; price is the cycle's entry price
// when one was fetched.
func (j *Journal) RecordCycle(rec CycleRecord) error {
	if j == nil || j.DB == nil {
		return nil
	}
	finished := rec.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}
	_, err := j.DB.Exec(
		`INSERT INTO cycles (venue, symbol, outcome, detail, price, started_at, finished_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.Venue, rec.Symbol, rec.Outcome, rec.Detail, rec.Price, rec.StartedAt.UTC(), finished.UTC(),
	)
	if err != nil {
		return fmt.Errorf("record cycle: %w", err)
	}
	return nil
}

// RecordOrder journals an acknowledged order. Prices and quantities are
// stored as text to keep their exact decimal representation.
func (j *Journal) RecordOrder(venue string, o common.Order, ack common.Ack) error {
	if j == nil || j.DB == nil {
		return nil
	}
	_, err := j.DB.Exec(
		`INSERT INTO orders (venue, symbol, order_id, client_id, order_type, side,
		                     quantity, quote_quantity, price, trigger_price, reduce_only, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		venue, o.Symbol, ack.OrderID, ack.ClientID, string(o.Type), string(o.Side),
		decimalText(o.Quantity.String(), o.Quantity.IsZero()),
		decimalText(o.QuoteQuantity.String(), o.QuoteQuantity.IsZero()),
		decimalText(o.Price.String(), o.Price.IsZero()),
		decimalText(o.TriggerPrice.String(), o.TriggerPrice.IsZero()),
		o.ReduceOnly, ack.Status,
	)
	if err != nil {
		return fmt.Errorf("record order: %w", err)
	}
	return nil
}

// RecentCycles returns the newest cycles first, at most limit rows.
func (j *Journal) RecentCycles(limit int) ([]CycleRecord, error) {
	if j == nil || j.DB == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.DB.Query(
		`SELECT id, venue, symbol, outcome, detail, price, started_at, finished_at
		 FROM cycles ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query cycles: %w", err)
	}
	defer rows.Close()

	var out []CycleRecord
	for rows.Next() {
		var rec CycleRecord
		var detail, price sql.NullString
		if err := rows.Scan(&rec.ID, &rec.Venue, &rec.Symbol, &rec.Outcome, &detail, &price, &rec.StartedAt, &rec.FinishedAt); err != nil {
			return nil, err
		}
		rec.Detail = detail.String
		rec.Price = price.String
		out = append(out, rec)
	}
	return out, rows.Err()
}

func decimalText(s string, zero bool) any {
	if zero {
		return nil
	}
	return s
}
