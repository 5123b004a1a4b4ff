package series

import (
	"testing"
	"time"
)

func ts(h, m int) time.Time {
	return time.Date(2026, 8, 31, h, m, 0, 0, time.UTC)
}

func TestColumnNames(t *testing.T) {
	if len(ColumnNames) != int(NumColumns) {
		t.Fatalf("ColumnNames has %d entries, want %d", len(ColumnNames), NumColumns)
	}
	for i, name := range ColumnNames {
		if name == "" {
			t.Errorf("column %d has no name", i)
		}
	}
}

func TestNewRowAllMissing(t *testing.T) {
	row := NewRow(ts(10, 0))
	if row.HasData() {
		t.Fatal("new row should have no data")
	}
	for c, v := range row.Values {
		if !IsMissing(v) {
			t.Errorf("column %d not missing: %v", c, v)
		}
	}
}

func TestNormalizeSortsAndDeduplicates(t *testing.T) {
	early := NewRow(ts(10, 0))
	early.Values[TempC] = 1

	late := NewRow(ts(11, 0))
	late.Values[TempC] = 2

	dup := NewRow(ts(10, 0))
	dup.Values[TempC] = 3

	got := Series{Rows: []Row{late, early, dup}}.Normalize()
	if got.Len() != 2 {
		t.Fatalf("got %d rows, want 2", got.Len())
	}
	if !got.Rows[0].Time.Equal(ts(10, 0)) || !got.Rows[1].Time.Equal(ts(11, 0)) {
		t.Fatalf("rows not sorted: %v, %v", got.Rows[0].Time, got.Rows[1].Time)
	}
	// Last asserted row wins for a repeated timestamp.
	if got.Rows[0].Values[TempC] != 3 {
		t.Errorf("dedup kept %v, want 3", got.Rows[0].Values[TempC])
	}
}

func TestNormalizeConvertsToUTC(t *testing.T) {
	loc := time.FixedZone("EET", 2*3600)
	row := NewRow(time.Date(2026, 8, 31, 12, 0, 0, 0, loc))
	got := Series{Rows: []Row{row}}.Normalize()
	if got.Rows[0].Time.Location() != time.UTC {
		t.Errorf("timestamp not UTC: %v", got.Rows[0].Time)
	}
	if !got.Rows[0].Time.Equal(ts(10, 0)) {
		t.Errorf("got %v, want %v", got.Rows[0].Time, ts(10, 0))
	}
}

func TestSliceInclusive(t *testing.T) {
	var s Series
	for h := 8; h <= 14; h++ {
		s.Rows = append(s.Rows, NewRow(ts(h, 0)))
	}
	got := s.Slice(ts(10, 0), ts(12, 0))
	if got.Len() != 3 {
		t.Fatalf("got %d rows, want 3", got.Len())
	}
	if !got.Rows[0].Time.Equal(ts(10, 0)) || !got.Rows[2].Time.Equal(ts(12, 0)) {
		t.Errorf("bounds not inclusive: %v .. %v", got.Rows[0].Time, got.Rows[2].Time)
	}
}

func TestUnionTimes(t *testing.T) {
	a := Series{Rows: []Row{NewRow(ts(10, 0)), NewRow(ts(11, 0))}}
	b := Series{Rows: []Row{NewRow(ts(11, 0)), NewRow(ts(12, 0))}}
	got := UnionTimes(a, b)
	want := []time.Time{ts(10, 0), ts(11, 0), ts(12, 0)}
	if len(got) != len(want) {
		t.Fatalf("got %d timestamps, want %d", len(got), len(want))
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("timestamp %d: got %v, want %v", i, got[i], want[i])
		}
	}
}
