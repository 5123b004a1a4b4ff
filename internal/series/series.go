// Package series defines the canonical forecast schema shared by every
// provider and the router: a UTC-indexed table with a fixed column set,
// missing values encoded as NaN.
package series

import (
	"math"
	"sort"
	"time"
)

// Column indexes into Row.Values.
type Column int

const (
	TempC Column = iota
	WindMS
	WindDeg
	CloudsPct
	Humidity
	UVIndex
	GHIWm2

	NumColumns
)

// ColumnNames is the canonical column order used in all serialized output.
var ColumnNames = [NumColumns]string{
	"temp_C",
	"wind_ms",
	"wind_deg",
	"clouds_pct",
	"humidity",
	"uvi",
	"ghi_Wm2",
}

// Missing is the sentinel for a value a provider did not supply.
func Missing() float64 {
	return math.NaN()
}

// IsMissing reports whether v is the missing-value sentinel.
func IsMissing(v float64) bool {
	return math.IsNaN(v)
}

// Row is one timestamped record. Source is empty until the router merges
// provider data and assigns provenance.
type Row struct {
	Time   time.Time
	Values [NumColumns]float64
	Source string
}

// NewRow returns a row at t with every column missing.
func NewRow(t time.Time) Row {
	r := Row{Time: t.UTC()}
	for c := range r.Values {
		r.Values[c] = Missing()
	}
	return r
}

// HasData reports whether any column holds a non-missing value.
func (r Row) HasData() bool {
	for _, v := range r.Values {
		if !IsMissing(v) {
			return true
		}
	}
	return false
}

// Series is a time-ordered forecast table. The zero value is an empty,
// schema-conformant series.
type Series struct {
	Rows []Row
}

func (s Series) Empty() bool {
	return len(s.Rows) == 0
}

func (s Series) Len() int {
	return len(s.Rows)
}

// Normalize returns a copy with UTC timestamps, sorted ascending and
// deduplicated. When a timestamp repeats, the last asserted row wins,
// which lets providers that mix "current" and "forecast" sections
// overlap without conflict.
func (s Series) Normalize() Series {
	if len(s.Rows) == 0 {
		return Series{}
	}
	rows := make([]Row, len(s.Rows))
	copy(rows, s.Rows)
	for i := range rows {
		rows[i].Time = rows[i].Time.UTC().Truncate(time.Second)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Time.Before(rows[j].Time)
	})
	out := rows[:0:0]
	for _, r := range rows {
		if n := len(out); n > 0 && out[n-1].Time.Equal(r.Time) {
			out[n-1] = r
			continue
		}
		out = append(out, r)
	}
	return Series{Rows: out}
}

// Slice returns the rows within [start, end] inclusive. The receiver must
// already be normalized.
func (s Series) Slice(start, end time.Time) Series {
	start = start.UTC()
	end = end.UTC()
	var out []Row
	for _, r := range s.Rows {
		if r.Time.Before(start) || r.Time.After(end) {
			continue
		}
		out = append(out, r)
	}
	return Series{Rows: out}
}

// UnionTimes returns the sorted union of timestamps across all series.
func UnionTimes(all ...Series) []time.Time {
	seen := make(map[int64]time.Time)
	for _, s := range all {
		for _, r := range s.Rows {
			seen[r.Time.UnixNano()] = r.Time
		}
	}
	keys := make([]int64, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	times := make([]time.Time, len(keys))
	for i, k := range keys {
		times[i] = seen[k]
	}
	return times
}
