package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hydroscan/hydroscan/internal/portal"
)

// Store persists per-contract consumption history so daemon runs accumulate
// a local time series. Rows upsert on their natural key; re-fetching a day
// refreshes it instead of duplicating it.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: creating DB dir: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("store: opening DB: %w", err)
	}

	s := New(db)
	if err := s.Init(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `PRAGMA journal_mode = WAL;`); err != nil {
		return fmt.Errorf("store: set journal_mode WAL: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `PRAGMA busy_timeout = 5000;`); err != nil {
		return fmt.Errorf("store: set busy_timeout: %w", err)
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS daily_consumption (
			contract_id TEXT NOT NULL,
			date TEXT NOT NULL,
			total_kwh REAL,
			lower_kwh REAL,
			higher_kwh REAL,
			avg_temp REAL,
			recorded_at TEXT NOT NULL,
			PRIMARY KEY (contract_id, date)
		);`,
		`CREATE TABLE IF NOT EXISTS hourly_consumption (
			contract_id TEXT NOT NULL,
			date TEXT NOT NULL,
			hour INTEGER NOT NULL,
			total_kwh REAL,
			lower_kwh REAL,
			higher_kwh REAL,
			avg_temp REAL,
			recorded_at TEXT NOT NULL,
			PRIMARY KEY (contract_id, date, hour)
		);`,
		`CREATE TABLE IF NOT EXISTS balance_history (
			contract_id TEXT NOT NULL,
			recorded_at TEXT NOT NULL,
			balance REAL NOT NULL,
			PRIMARY KEY (contract_id, recorded_at)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_daily_consumption_date ON daily_consumption(date);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: init schema: %w", err)
		}
	}
	return nil
}

// RecordDaily upserts the customer's normalized daily map.
func (s *Store) RecordDaily(ctx context.Context, contractID string, daily map[string]map[string]any) error {
	recordedAt := s.now().UTC().Format(time.RFC3339)
	for date, values := range daily {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO daily_consumption (contract_id, date, total_kwh, lower_kwh, higher_kwh, avg_temp, recorded_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (contract_id, date) DO UPDATE SET
				total_kwh = excluded.total_kwh,
				lower_kwh = excluded.lower_kwh,
				higher_kwh = excluded.higher_kwh,
				avg_temp = excluded.avg_temp,
				recorded_at = excluded.recorded_at`,
			contractID, date,
			numeric(values["total_consumption"]),
			numeric(values["lower_price_consumption"]),
			numeric(values["higher_price_consumption"]),
			numeric(values["average_temperature"]),
			recordedAt,
		)
		if err != nil {
			return fmt.Errorf("store: upserting daily row %s/%s: %w", contractID, date, err)
		}
	}
	return nil
}

// RecordHourly upserts one day of hourly slots.
func (s *Store) RecordHourly(ctx context.Context, contractID, date string, day *portal.HourlyDay) error {
	if day == nil {
		return nil
	}
	recordedAt := s.now().UTC().Format(time.RFC3339)
	for hour := 0; hour < 24; hour++ {
		values := day.Hours[hour]
		if values == nil {
			continue
		}
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO hourly_consumption (contract_id, date, hour, total_kwh, lower_kwh, higher_kwh, avg_temp, recorded_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (contract_id, date, hour) DO UPDATE SET
				total_kwh = excluded.total_kwh,
				lower_kwh = excluded.lower_kwh,
				higher_kwh = excluded.higher_kwh,
				avg_temp = excluded.avg_temp,
				recorded_at = excluded.recorded_at`,
			contractID, date, hour,
			numeric(values["total_consumption"]),
			numeric(values["lower_price_consumption"]),
			numeric(values["higher_price_consumption"]),
			numeric(values["average_temperature"]),
			recordedAt,
		)
		if err != nil {
			return fmt.Errorf("store: upserting hourly row %s/%s/%d: %w", contractID, date, hour, err)
		}
	}
	return nil
}

// RecordBalance appends a balance observation.
func (s *Store) RecordBalance(ctx context.Context, contractID string, balance float64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO balance_history (contract_id, recorded_at, balance)
		VALUES (?, ?, ?)`,
		contractID, s.now().UTC().Format(time.RFC3339), balance)
	if err != nil {
		return fmt.Errorf("store: recording balance for %s: %w", contractID, err)
	}
	return nil
}

// DailyRow is one stored day of consumption.
type DailyRow struct {
	Date      string
	TotalKWh  *float64
	LowerKWh  *float64
	HigherKWh *float64
	AvgTemp   *float64
}

// RecentDaily returns up to limit most recent stored days for a contract,
// oldest first.
func (s *Store) RecentDaily(ctx context.Context, contractID string, limit int) ([]DailyRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, total_kwh, lower_kwh, higher_kwh, avg_temp
		FROM daily_consumption
		WHERE contract_id = ?
		ORDER BY date DESC
		LIMIT ?`, contractID, limit)
	if err != nil {
		return nil, fmt.Errorf("store: querying daily rows: %w", err)
	}
	defer rows.Close()

	var out []DailyRow
	for rows.Next() {
		var r DailyRow
		if err := rows.Scan(&r.Date, &r.TotalKWh, &r.LowerKWh, &r.HigherKWh, &r.AvgTemp); err != nil {
			return nil, fmt.Errorf("store: scanning daily row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterating daily rows: %w", err)
	}

	// Reverse into chronological order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// numeric converts a normalized map value into a nullable SQL float. The
// provider mixes numbers and nulls freely.
func numeric(v any) *float64 {
	switch n := v.(type) {
	case float64:
		return &n
	case int:
		f := float64(n)
		return &f
	}
	return nil
}
