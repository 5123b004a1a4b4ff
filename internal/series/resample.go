package series

import (
	"time"
)

// NowcastStep is the fixed cadence all nowcast output is aligned to.
const NowcastStep = 15 * time.Minute

// Method selects how values are aligned onto a fixed-frequency grid.
type Method int

const (
	// Nearest takes the closest source row in time.
	Nearest Method = iota
	// Pad forward-fills from the last source row at or before the grid slot.
	Pad
	// Interpolate fills numeric columns with time-weighted linear
	// interpolation between surrounding non-missing values.
	Interpolate
)

// Resample aligns s onto a fixed grid of the given step, spanning the
// observed range with both endpoints truncated to the step. limit bounds how
// far a value may be carried, expressed in grid steps; 0 means unbounded.
// The source annotation is carried only by Nearest and Pad — provenance is
// categorical and must never be interpolated.
func Resample(s Series, step time.Duration, method Method, limit int) Series {
	s = s.Normalize()
	if s.Empty() || step <= 0 {
		return Series{}
	}
	first := s.Rows[0].Time
	last := s.Rows[len(s.Rows)-1].Time
	grid := Grid(first.Truncate(step), last.Truncate(step), step)

	out := make([]Row, 0, len(grid))
	for _, t := range grid {
		switch method {
		case Nearest:
			out = append(out, nearestRow(s, t, step, limit))
		case Pad:
			out = append(out, padRow(s, t, step, limit))
		case Interpolate:
			out = append(out, interpolateRow(s, t))
		}
	}
	return Series{Rows: out}
}

// Grid returns the timestamps start, start+step, ... through end inclusive.
func Grid(start, end time.Time, step time.Duration) []time.Time {
	var grid []time.Time
	for t := start; ; t = t.Add(step) {
		grid = append(grid, t)
		if !t.Before(end) {
			break
		}
	}
	return grid
}

// PadSource forward-fills the source column of rows from the nearest
// preceding row in src.
func PadSource(rows []Row, src Series) {
	for i := range rows {
		for j := len(src.Rows) - 1; j >= 0; j-- {
			if !src.Rows[j].Time.After(rows[i].Time) {
				rows[i].Source = src.Rows[j].Source
				break
			}
		}
	}
}

func nearestRow(s Series, t time.Time, step time.Duration, limit int) Row {
	best := -1
	var bestDist time.Duration
	for i, r := range s.Rows {
		d := r.Time.Sub(t)
		if d < 0 {
			d = -d
		}
		if best == -1 || d < bestDist {
			best, bestDist = i, d
		}
	}
	if best == -1 || (limit > 0 && bestDist > time.Duration(limit)*step) {
		return NewRow(t)
	}
	row := s.Rows[best]
	row.Time = t
	return row
}

func padRow(s Series, t time.Time, step time.Duration, limit int) Row {
	for i := len(s.Rows) - 1; i >= 0; i-- {
		r := s.Rows[i]
		if r.Time.After(t) {
			continue
		}
		if limit > 0 && t.Sub(r.Time) > time.Duration(limit)*step {
			break
		}
		r.Time = t
		return r
	}
	return NewRow(t)
}

func interpolateRow(s Series, t time.Time) Row {
	row := NewRow(t)
	for c := Column(0); c < NumColumns; c++ {
		row.Values[c] = interpolateAt(s, c, t)
	}
	return row
}

// interpolateAt computes the time-weighted value of column c at t from the
// surrounding non-missing samples. Outside the observed range the value
// stays missing.
func interpolateAt(s Series, c Column, t time.Time) float64 {
	prevIdx, nextIdx := -1, -1
	for i, r := range s.Rows {
		if IsMissing(r.Values[c]) {
			continue
		}
		if !r.Time.After(t) {
			prevIdx = i
		}
		if !r.Time.Before(t) {
			nextIdx = i
			break
		}
	}
	switch {
	case prevIdx == -1 || nextIdx == -1:
		return Missing()
	case prevIdx == nextIdx:
		return s.Rows[prevIdx].Values[c]
	}
	prev, next := s.Rows[prevIdx], s.Rows[nextIdx]
	span := next.Time.Sub(prev.Time).Seconds()
	if span == 0 {
		return prev.Values[c]
	}
	frac := t.Sub(prev.Time).Seconds() / span
	return prev.Values[c] + (next.Values[c]-prev.Values[c])*frac
}
