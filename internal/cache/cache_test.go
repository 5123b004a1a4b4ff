package cache

import (
	"database/sql"
	"testing"
	"time"

	"github.com/Edwardo1983/PROGNOZA/internal/series"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	s, err := New(db)
	if err != nil {
		t.Fatalf("bootstrap schema: %v", err)
	}
	return s
}

func sampleSeries() series.Series {
	row := series.NewRow(time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC))
	row.Values[series.TempC] = 21.5
	row.Source = "openweather"
	return series.Series{Rows: []series.Row{row}}
}

func TestRoundTrip(t *testing.T) {
	s := newTestStore(t)
	s.Set("openweather", "hourly", "k", sampleSeries(), time.Minute)

	got, ok := s.Get("openweather", "hourly", "k")
	if !ok {
		t.Fatal("expected a hit")
	}
	if got.Len() != 1 {
		t.Fatalf("got %d rows, want 1", got.Len())
	}
	row := got.Rows[0]
	if row.Values[series.TempC] != 21.5 {
		t.Errorf("temp = %v, want 21.5", row.Values[series.TempC])
	}
	if !series.IsMissing(row.Values[series.Humidity]) {
		t.Errorf("humidity should survive as missing, got %v", row.Values[series.Humidity])
	}
	if row.Source != "openweather" {
		t.Errorf("source = %q, want openweather", row.Source)
	}
}

func TestMissDistinguishesNothing(t *testing.T) {
	s := newTestStore(t)
	if _, ok := s.Get("openweather", "hourly", "absent"); ok {
		t.Fatal("unexpected hit for an absent key")
	}
}

func TestExpiry(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	now := base
	s.now = func() time.Time { return now }

	s.Set("openweather", "hourly", "k", sampleSeries(), time.Minute)
	if _, ok := s.Get("openweather", "hourly", "k"); !ok {
		t.Fatal("expected a hit before expiry")
	}

	now = base.Add(time.Minute)
	if _, ok := s.Get("openweather", "hourly", "k"); ok {
		t.Fatal("expected a miss at the expiry instant")
	}

	// The expired row must be gone, not just masked.
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM forecast_cache`).Scan(&count); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 0 {
		t.Errorf("expired row not deleted, %d rows remain", count)
	}
}

func TestCorruptEntryMisses(t *testing.T) {
	s := newTestStore(t)
	_, err := s.db.Exec(`
		REPLACE INTO forecast_cache (provider, scope, cache_key, expires_at, payload)
		VALUES (?, ?, ?, ?, ?)
	`, "openweather", "hourly", "k", time.Now().Add(time.Hour).Unix(), []byte("not gob"))
	if err != nil {
		t.Fatalf("seed corrupt row: %v", err)
	}
	if _, ok := s.Get("openweather", "hourly", "k"); ok {
		t.Fatal("corrupt entry must be a miss")
	}
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM forecast_cache`).Scan(&count); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 0 {
		t.Errorf("corrupt row not deleted, %d rows remain", count)
	}
}

func TestZeroTTLNotStored(t *testing.T) {
	s := newTestStore(t)
	s.Set("openweather", "hourly", "k", sampleSeries(), 0)
	if _, ok := s.Get("openweather", "hourly", "k"); ok {
		t.Fatal("zero TTL must not be stored")
	}
}

func TestDisabledStore(t *testing.T) {
	s := Open("")
	s.Set("openweather", "hourly", "k", sampleSeries(), time.Minute)
	if _, ok := s.Get("openweather", "hourly", "k"); ok {
		t.Fatal("a store without a database must always miss")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
