// Package router orchestrates the priority-ordered provider list and
// merges their normalized output into one gap-filled series with per-row
// provenance.
package router

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/Edwardo1983/PROGNOZA/internal/metrics"
	"github.com/Edwardo1983/PROGNOZA/internal/provider"
	"github.com/Edwardo1983/PROGNOZA/internal/series"
)

// Result pairs a provider name with its fetched, normalized series.
type Result struct {
	Name string
	Data series.Series
}

// Router queries providers in ascending priority order. A provider's
// failure never aborts a request; the merge degrades to fewer sources.
type Router struct {
	providers []provider.Provider
	tz        *time.Location
}

// New sorts the providers by ascending priority number (lower = preferred).
func New(providers []provider.Provider, tz *time.Location) *Router {
	sorted := make([]provider.Provider, len(providers))
	copy(sorted, providers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority() < sorted[j].Priority()
	})
	if tz == nil {
		tz = time.UTC
	}
	return &Router{providers: sorted, tz: tz}
}

// Hourly merges every provider's forecast for [start, end]. Providers are
// fetched concurrently; merge order depends only on priority, never on
// completion order. Total failure yields an empty schema-conformant series.
func (r *Router) Hourly(ctx context.Context, start, end time.Time) series.Series {
	start = start.UTC()
	end = end.UTC()

	results := r.collect(r.providers, func(p provider.Provider) (series.Series, error) {
		return p.Hourly(ctx, start, end)
	}, ScopeLabelHourly)

	merged := Merge(results).Slice(start, end)
	countMerged(ScopeLabelHourly, merged)
	return merged
}

// Nowcast merges the nowcast-capable providers over their native cadences,
// then resamples onto the fixed 15-minute grid. Numeric columns are
// interpolated; the source column is forward-filled because provenance is
// categorical.
func (r *Router) Nowcast(ctx context.Context, horizonHours int) series.Series {
	var capable []provider.Provider
	for _, p := range r.providers {
		if p.SupportsNowcast() {
			capable = append(capable, p)
		}
	}

	results := r.collect(capable, func(p provider.Provider) (series.Series, error) {
		return p.Nowcast(ctx, horizonHours)
	}, ScopeLabelNowcast)

	merged := Merge(results)
	if merged.Empty() {
		return merged
	}
	resampled := series.Resample(merged, series.NowcastStep, series.Interpolate, 0)
	series.PadSource(resampled.Rows, merged)
	countMerged(ScopeLabelNowcast, resampled)
	return resampled
}

func countMerged(scope string, s series.Series) {
	for _, row := range s.Rows {
		if row.Source != "" {
			metrics.MergedRowsTotal.WithLabelValues(row.Source, scope).Inc()
		}
	}
}

// ToLocal returns a copy with timestamps converted to the configured
// display timezone. Merge logic itself always runs in UTC.
func (r *Router) ToLocal(s series.Series) series.Series {
	rows := make([]series.Row, len(s.Rows))
	copy(rows, s.Rows)
	for i := range rows {
		rows[i].Time = rows[i].Time.In(r.tz)
	}
	return series.Series{Rows: rows}
}

const (
	ScopeLabelHourly  = "hourly"
	ScopeLabelNowcast = "nowcast"
)

// collect fans out one goroutine per provider and joins before returning.
// Results keep the providers' priority order; failed providers contribute
// an empty series and a log warning.
func (r *Router) collect(providers []provider.Provider, fn func(provider.Provider) (series.Series, error), scope string) []Result {
	results := make([]Result, len(providers))
	var wg sync.WaitGroup
	for i, p := range providers {
		wg.Add(1)
		go func(i int, p provider.Provider) {
			defer wg.Done()
			data, err := fn(p)
			if err != nil {
				log.Printf("%s fetch failed for provider %s: %v", scope, p.Name(), err)
				data = series.Series{}
			}
			results[i] = Result{Name: p.Name(), Data: data.Normalize()}
		}(i, p)
	}
	wg.Wait()
	return results
}

// Merge fills every canonical column at every union timestamp from the
// first provider (in the given order) holding a non-missing value there;
// a filled cell is never overwritten. The source column records, per row,
// the first provider with any non-missing value at that timestamp — a
// row-level rule, kept deliberately even though individual cells may be
// filled by lower-priority providers. Merge is a pure function of its
// inputs: merging the same results twice is bit-identical.
func Merge(results []Result) series.Series {
	nonEmpty := results[:0:0]
	for _, res := range results {
		if !res.Data.Empty() {
			nonEmpty = append(nonEmpty, res)
		}
	}
	if len(nonEmpty) == 0 {
		return series.Series{}
	}

	all := make([]series.Series, len(nonEmpty))
	lookups := make([]map[int64]series.Row, len(nonEmpty))
	for i, res := range nonEmpty {
		all[i] = res.Data
		lookup := make(map[int64]series.Row, res.Data.Len())
		for _, row := range res.Data.Rows {
			lookup[row.Time.UnixNano()] = row
		}
		lookups[i] = lookup
	}
	union := series.UnionTimes(all...)

	out := make([]series.Row, 0, len(union))
	for _, t := range union {
		merged := series.NewRow(t)
		key := t.UnixNano()
		for i, res := range nonEmpty {
			row, ok := lookups[i][key]
			if !ok {
				continue
			}
			for c := series.Column(0); c < series.NumColumns; c++ {
				if series.IsMissing(merged.Values[c]) && !series.IsMissing(row.Values[c]) {
					merged.Values[c] = row.Values[c]
				}
			}
			if merged.Source == "" && row.HasData() {
				merged.Source = res.Name
			}
		}
		out = append(out, merged)
	}
	return series.Series{Rows: out}
}
