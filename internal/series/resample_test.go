package series

import (
	"testing"
	"time"
)

func rowAt(t time.Time, temp float64) Row {
	r := NewRow(t)
	r.Values[TempC] = temp
	return r
}

func TestGridInclusive(t *testing.T) {
	got := Grid(ts(10, 0), ts(10, 30), 15*time.Minute)
	want := []time.Time{ts(10, 0), ts(10, 15), ts(10, 30)}
	if len(got) != len(want) {
		t.Fatalf("got %d slots, want %d", len(got), len(want))
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("slot %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestResampleInterpolate(t *testing.T) {
	s := Series{Rows: []Row{
		rowAt(ts(10, 0), 10),
		rowAt(ts(10, 30), 20),
	}}
	got := Resample(s, NowcastStep, Interpolate, 0)
	if got.Len() != 3 {
		t.Fatalf("got %d rows, want 3", got.Len())
	}
	if v := got.Rows[1].Values[TempC]; v != 15 {
		t.Errorf("interpolated temp = %v, want 15", v)
	}
	if v := got.Rows[0].Values[TempC]; v != 10 {
		t.Errorf("grid-aligned temp = %v, want 10", v)
	}
}

func TestResampleMixedCadence(t *testing.T) {
	// 10-minute observations resampled onto the 15-minute grid must leave
	// no gaps between truncated endpoints.
	s := Series{Rows: []Row{
		rowAt(ts(10, 0), 0),
		rowAt(ts(10, 10), 10),
		rowAt(ts(10, 20), 20),
		rowAt(ts(10, 30), 30),
	}}
	got := Resample(s, NowcastStep, Interpolate, 0)
	if got.Len() != 3 {
		t.Fatalf("got %d rows, want 3", got.Len())
	}
	for i, r := range got.Rows {
		want := ts(10, 0).Add(time.Duration(i) * NowcastStep)
		if !r.Time.Equal(want) {
			t.Errorf("row %d at %v, want %v", i, r.Time, want)
		}
		if IsMissing(r.Values[TempC]) {
			t.Errorf("row %d has a gap", i)
		}
	}
	if v := got.Rows[1].Values[TempC]; v != 15 {
		t.Errorf("10:15 temp = %v, want 15", v)
	}
}

func TestResampleInterpolateOutsideRange(t *testing.T) {
	s := Series{Rows: []Row{
		NewRow(ts(10, 0)),
		rowAt(ts(10, 30), 20),
	}}
	got := Resample(s, NowcastStep, Interpolate, 0)
	// Temp is only observed at 10:30; earlier slots must stay missing, not
	// be extrapolated.
	if !IsMissing(got.Rows[0].Values[TempC]) || !IsMissing(got.Rows[1].Values[TempC]) {
		t.Errorf("values extrapolated before first observation: %v, %v",
			got.Rows[0].Values[TempC], got.Rows[1].Values[TempC])
	}
	if v := got.Rows[2].Values[TempC]; v != 20 {
		t.Errorf("10:30 temp = %v, want 20", v)
	}
}

func TestResamplePadLimit(t *testing.T) {
	s := Series{Rows: []Row{
		rowAt(ts(10, 0), 5),
		rowAt(ts(11, 0), 7),
	}}
	got := Resample(s, NowcastStep, Pad, 1)
	if got.Len() != 5 {
		t.Fatalf("got %d rows, want 5", got.Len())
	}
	if v := got.Rows[1].Values[TempC]; v != 5 {
		t.Errorf("10:15 temp = %v, want 5 (within carry limit)", v)
	}
	if !IsMissing(got.Rows[2].Values[TempC]) {
		t.Errorf("10:30 temp = %v, want missing (beyond carry limit)", got.Rows[2].Values[TempC])
	}
	if v := got.Rows[4].Values[TempC]; v != 7 {
		t.Errorf("11:00 temp = %v, want 7", v)
	}
}

func TestResampleNearest(t *testing.T) {
	s := Series{Rows: []Row{
		rowAt(ts(10, 5), 5),
		rowAt(ts(10, 20), 25),
	}}
	got := Resample(s, NowcastStep, Nearest, 0)
	if got.Len() != 2 {
		t.Fatalf("got %d rows, want 2", got.Len())
	}
	if v := got.Rows[0].Values[TempC]; v != 5 {
		t.Errorf("10:00 temp = %v, want 5", v)
	}
	if v := got.Rows[1].Values[TempC]; v != 25 {
		t.Errorf("10:15 temp = %v, want 25", v)
	}
}

func TestPadSource(t *testing.T) {
	src := Series{Rows: []Row{
		{Time: ts(10, 0), Source: "alpha"},
		{Time: ts(10, 20), Source: "beta"},
	}}
	rows := []Row{NewRow(ts(10, 0)), NewRow(ts(10, 15)), NewRow(ts(10, 30))}
	PadSource(rows, src)
	want := []string{"alpha", "alpha", "beta"}
	for i, r := range rows {
		if r.Source != want[i] {
			t.Errorf("row %d source = %q, want %q", i, r.Source, want[i])
		}
	}
}

func TestResampleEmpty(t *testing.T) {
	got := Resample(Series{}, NowcastStep, Interpolate, 0)
	if !got.Empty() {
		t.Errorf("resampling an empty series produced %d rows", got.Len())
	}
}
