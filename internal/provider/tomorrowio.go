package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Edwardo1983/PROGNOZA/internal/cache"
	"github.com/Edwardo1983/PROGNOZA/internal/fetch"
	"github.com/Edwardo1983/PROGNOZA/internal/series"
)

const tomorrowIOEndpoint = "https://api.tomorrow.io/v4/timelines"

var tomorrowIOFields = []string{
	"temperature",
	"windSpeed",
	"windDirection",
	"cloudCover",
	"humidity",
	"uvIndex",
	"solarGHI",
}

type TomorrowIOConfig struct {
	Latitude          float64
	Longitude         float64
	APIKey            string
	TTL               time.Duration
	Priority          int
	SkipOnAuthFailure bool
	Policy            fetch.Policy
	Cache             *cache.Store

	// BaseURL overrides the API endpoint; used in tests.
	BaseURL string
}

// TomorrowIO fetches the timelines API at hourly and 15-minute timesteps.
type TomorrowIO struct {
	core
	lat     float64
	lon     float64
	apiKey  string
	baseURL string
}

func NewTomorrowIO(cfg TomorrowIOConfig) *TomorrowIO {
	c := newCore("tomorrow_io", cfg.Priority, cfg.Cache, cfg.Policy, cfg.SkipOnAuthFailure)
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	c.ttls[ScopeHourly] = ttl
	c.ttls[ScopeNowcast] = ttl

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = tomorrowIOEndpoint
	}
	return &TomorrowIO{
		core:    c,
		lat:     cfg.Latitude,
		lon:     cfg.Longitude,
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
	}
}

func (p *TomorrowIO) SupportsNowcast() bool {
	return true
}

func (p *TomorrowIO) Hourly(ctx context.Context, start, end time.Time) (series.Series, error) {
	if p.disabled {
		return series.Series{}, nil
	}
	params := map[string]any{"lat": p.lat, "lon": p.lon, "timestep": "1h"}
	full, err := p.fetchWithCache(ScopeHourly, params, p.ttlFor(ScopeHourly, 30*time.Minute), func() (series.Series, error) {
		return p.fetch(ctx, ScopeHourly, start, end, "1h")
	})
	if err != nil {
		return series.Series{}, err
	}
	return full.Slice(start, end), nil
}

func (p *TomorrowIO) Nowcast(ctx context.Context, horizonHours int) (series.Series, error) {
	if p.disabled {
		return series.Series{}, nil
	}
	now := p.now().UTC()
	start := now.Add(-series.NowcastStep)
	horizon := now.Add(time.Duration(horizonHours) * time.Hour)

	params := map[string]any{"lat": p.lat, "lon": p.lon, "timestep": "15m"}
	full, err := p.fetchWithCache(ScopeNowcast, params, p.ttlFor(ScopeNowcast, 15*time.Minute), func() (series.Series, error) {
		return p.fetch(ctx, ScopeNowcast, start, horizon, "15m")
	})
	if err != nil {
		return series.Series{}, err
	}
	window := full.Slice(start, horizon)
	if window.Empty() {
		return series.Series{}, nil
	}
	return Resample15(window, series.Interpolate), nil
}

func (p *TomorrowIO) fetch(ctx context.Context, scope string, start, end time.Time, timestep string) (series.Series, error) {
	payload, skipped, err := p.request(ctx, scope, start, end, timestep)
	if err != nil || skipped {
		return series.Series{}, err
	}
	return normalizeTomorrowIO(payload), nil
}

func (p *TomorrowIO) request(ctx context.Context, scope string, start, end time.Time, timestep string) (payload tomorrowIOPayload, skipped bool, err error) {
	if p.apiKey == "" {
		return payload, false, fmt.Errorf("tomorrow_io: API key is not configured")
	}

	body := map[string]any{
		"location":  map[string]any{"type": "Point", "coordinates": []float64{p.lon, p.lat}},
		"fields":    tomorrowIOFields,
		"timesteps": []string{timestep},
		"startTime": start.UTC().Format(time.RFC3339),
		"endTime":   end.UTC().Format(time.RFC3339),
		"timezone":  "UTC",
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return payload, false, fmt.Errorf("encode request: %w", err)
	}

	var result tomorrowIOPayload
	reqErr := p.policy.Retry(func() error {
		return p.observe(scope, func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"?apikey="+p.apiKey, bytes.NewReader(encoded))
			if err != nil {
				return fmt.Errorf("create request: %w", err)
			}
			req.Header.Set("Content-Type", "application/json")
			result = tomorrowIOPayload{}
			return fetch.Do(p.client, req, &result)
		})
	})
	if reqErr != nil {
		if authErr, ok := asAuthError(reqErr); ok {
			skip, err := p.authFailure(authErr)
			return tomorrowIOPayload{}, skip, err
		}
		return tomorrowIOPayload{}, false, fmt.Errorf("tomorrow_io request failed: %w", reqErr)
	}
	return result, false, nil
}

type tomorrowIOPayload struct {
	Data struct {
		Timelines []tomorrowIOTimeline `json:"timelines"`
	} `json:"data"`
}

type tomorrowIOTimeline struct {
	Intervals []tomorrowIOInterval `json:"intervals"`
}

type tomorrowIOInterval struct {
	StartTime string             `json:"startTime"`
	Values    map[string]float64 `json:"values"`
}

// normalizeTomorrowIO maps timeline intervals into the canonical schema.
// Intervals with unparsable timestamps are dropped individually.
func normalizeTomorrowIO(payload tomorrowIOPayload) series.Series {
	var s series.Series
	for _, timeline := range payload.Data.Timelines {
		for _, interval := range timeline.Intervals {
			t, err := time.Parse(time.RFC3339, interval.StartTime)
			if err != nil {
				continue
			}
			row := series.NewRow(t)
			setField := func(col series.Column, field string) {
				if v, ok := interval.Values[field]; ok {
					row.Values[col] = v
				}
			}
			setField(series.TempC, "temperature")
			setField(series.WindMS, "windSpeed")
			setField(series.WindDeg, "windDirection")
			setField(series.CloudsPct, "cloudCover")
			setField(series.Humidity, "humidity")
			setField(series.UVIndex, "uvIndex")
			setField(series.GHIWm2, "solarGHI")
			s.Rows = append(s.Rows, row)
		}
	}
	return s.Normalize()
}
