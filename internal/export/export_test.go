package export

import (
	"encoding/csv"
	"encoding/gob"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Edwardo1983/PROGNOZA/internal/series"
)

func sampleSeries() series.Series {
	t0 := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	first := series.NewRow(t0)
	first.Values[series.TempC] = 21.5
	first.Values[series.WindMS] = 3.25
	first.Source = "openweather"

	second := series.NewRow(t0.Add(time.Hour))
	second.Source = "openmeteo_ecmwf"

	return series.Series{Rows: []series.Row{first, second}}
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "forecast.csv")
	if err := Write(sampleSeries(), path); err != nil {
		t.Fatalf("write: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want header plus 2 rows", len(records))
	}

	header := records[0]
	if header[0] != "time" || header[len(header)-1] != "source" {
		t.Errorf("header = %v", header)
	}
	for i, want := range series.ColumnNames {
		if header[i+1] != want {
			t.Errorf("header column %d = %q, want %q", i+1, header[i+1], want)
		}
	}

	first := records[1]
	if first[0] != "2026-08-31T10:00:00Z" {
		t.Errorf("time = %q", first[0])
	}
	if first[1] != "21.5" {
		t.Errorf("temp = %q, want 21.5", first[1])
	}
	if first[len(first)-1] != "openweather" {
		t.Errorf("source = %q", first[len(first)-1])
	}

	// Missing values serialize as empty cells.
	second := records[2]
	if second[1] != "" {
		t.Errorf("missing temp = %q, want empty", second[1])
	}
}

func TestWriteGobRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forecast.bin")
	want := sampleSeries()
	if err := Write(want, path); err != nil {
		t.Fatalf("write: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	var got series.Series
	if err := gob.NewDecoder(f).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Len() != want.Len() {
		t.Fatalf("got %d rows, want %d", got.Len(), want.Len())
	}
	if got.Rows[0].Values[series.TempC] != 21.5 {
		t.Errorf("temp = %v, want 21.5", got.Rows[0].Values[series.TempC])
	}
	if !series.IsMissing(got.Rows[1].Values[series.TempC]) {
		t.Errorf("missing temp did not survive the round trip: %v", got.Rows[1].Values[series.TempC])
	}
}

func TestWriteParquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forecast.parquet")
	if err := Write(sampleSeries(), path); err != nil {
		t.Fatalf("write: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size() == 0 {
		t.Error("parquet output is empty")
	}
}
