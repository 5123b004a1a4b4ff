package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Edwardo1983/PROGNOZA/internal/cache"
	"github.com/Edwardo1983/PROGNOZA/internal/fetch"
	"github.com/Edwardo1983/PROGNOZA/internal/series"
)

const openMeteoEndpoint = "https://api.open-meteo.com/v1/forecast"

var openMeteoHourlyFields = []string{
	"temperature_2m",
	"windspeed_10m",
	"winddirection_10m",
	"cloudcover",
	"relativehumidity_2m",
	"uv_index",
	"shortwave_radiation",
}

// OpenMeteoConfig configures the Open-Meteo ensemble client. Models picks
// the upstream weather models (default ecmwf).
type OpenMeteoConfig struct {
	Latitude  float64
	Longitude float64
	Models    []string
	TTL       time.Duration
	Priority  int
	Policy    fetch.Policy
	Cache     *cache.Store

	// BaseURL overrides the API endpoint; used in tests.
	BaseURL string
}

// OpenMeteo fetches hourly ECMWF/ICON model output. The API is keyless, so
// there is no auth latch. Nowcast support is derived from the hourly data
// by interpolating onto a 15-minute grid.
type OpenMeteo struct {
	core
	lat     float64
	lon     float64
	models  []string
	baseURL string
}

func NewOpenMeteo(cfg OpenMeteoConfig) *OpenMeteo {
	c := newCore("openmeteo_ecmwf", cfg.Priority, cfg.Cache, cfg.Policy, false)
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	c.ttls[ScopeHourly] = ttl
	c.ttls[ScopeNowcast] = ttl

	models := cfg.Models
	if len(models) == 0 {
		models = []string{"ecmwf"}
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = openMeteoEndpoint
	}
	return &OpenMeteo{
		core:    c,
		lat:     cfg.Latitude,
		lon:     cfg.Longitude,
		models:  models,
		baseURL: baseURL,
	}
}

func (p *OpenMeteo) SupportsNowcast() bool {
	return true
}

func (p *OpenMeteo) Hourly(ctx context.Context, start, end time.Time) (series.Series, error) {
	full, err := p.fetchFull(ctx)
	if err != nil {
		return series.Series{}, err
	}
	return full.Slice(start, end), nil
}

func (p *OpenMeteo) Nowcast(ctx context.Context, horizonHours int) (series.Series, error) {
	now := p.now().UTC()
	horizon := now.Add(time.Duration(horizonHours) * time.Hour)

	full, err := p.fetchFull(ctx)
	if err != nil {
		return series.Series{}, err
	}
	window := full.Slice(now.Add(-time.Hour), horizon)
	if window.Empty() {
		return series.Series{}, nil
	}
	resampled := Resample15(window, series.Interpolate)
	return resampled.Slice(resampled.Rows[0].Time, horizon), nil
}

func (p *OpenMeteo) fetchFull(ctx context.Context) (series.Series, error) {
	params := map[string]any{"lat": p.lat, "lon": p.lon, "models": p.models}
	return p.fetchWithCache(ScopeHourly, params, p.ttlFor(ScopeHourly, time.Hour), func() (series.Series, error) {
		payload, err := p.request(ctx)
		if err != nil {
			return series.Series{}, err
		}
		return normalizeOpenMeteo(payload), nil
	})
}

func (p *OpenMeteo) request(ctx context.Context) (openMeteoPayload, error) {
	query := url.Values{}
	query.Set("latitude", fmt.Sprintf("%v", p.lat))
	query.Set("longitude", fmt.Sprintf("%v", p.lon))
	query.Set("hourly", strings.Join(openMeteoHourlyFields, ","))
	query.Set("models", strings.Join(p.models, ","))
	// Merge logic is UTC-only; display conversion happens downstream.
	query.Set("timezone", "UTC")
	reqURL := p.baseURL + "?" + query.Encode()

	var result openMeteoPayload
	err := p.policy.Retry(func() error {
		return p.observe(ScopeHourly, func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
			if err != nil {
				return fmt.Errorf("create request: %w", err)
			}
			result = openMeteoPayload{}
			return fetch.Do(p.client, req, &result)
		})
	})
	if err != nil {
		return openMeteoPayload{}, fmt.Errorf("open-meteo request failed: %w", err)
	}
	return result, nil
}

type openMeteoPayload struct {
	Hourly      openMeteoHourly   `json:"hourly"`
	HourlyUnits map[string]string `json:"hourly_units"`
}

type openMeteoHourly struct {
	Time          []string   `json:"time"`
	Temperature   []*float64 `json:"temperature_2m"`
	WindSpeed     []*float64 `json:"windspeed_10m"`
	WindDirection []*float64 `json:"winddirection_10m"`
	CloudCover    []*float64 `json:"cloudcover"`
	Humidity      []*float64 `json:"relativehumidity_2m"`
	UVIndex       []*float64 `json:"uv_index"`
	Radiation     []*float64 `json:"shortwave_radiation"`
}

var openMeteoTimeFormats = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

func parseOpenMeteoTime(raw string) (time.Time, bool) {
	for _, format := range openMeteoTimeFormats {
		if t, err := time.Parse(format, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// normalizeOpenMeteo maps the columnar hourly arrays into rows, converting
// wind speed per the payload's stated unit. Entries with unparsable
// timestamps are dropped individually.
func normalizeOpenMeteo(payload openMeteoPayload) series.Series {
	hourly := payload.Hourly
	if len(hourly.Time) == 0 {
		return series.Series{}
	}
	windUnit := payload.HourlyUnits["windspeed_10m"]

	var s series.Series
	for i, raw := range hourly.Time {
		t, ok := parseOpenMeteoTime(raw)
		if !ok {
			continue
		}
		row := series.NewRow(t)
		setValue(&row, series.TempC, at(hourly.Temperature, i))
		if v := at(hourly.WindSpeed, i); v != nil {
			row.Values[series.WindMS] = windToMS(*v, windUnit)
		}
		setValue(&row, series.WindDeg, at(hourly.WindDirection, i))
		setValue(&row, series.CloudsPct, at(hourly.CloudCover, i))
		setValue(&row, series.Humidity, at(hourly.Humidity, i))
		setValue(&row, series.UVIndex, at(hourly.UVIndex, i))
		setValue(&row, series.GHIWm2, at(hourly.Radiation, i))
		s.Rows = append(s.Rows, row)
	}
	return s.Normalize()
}

// at safely indexes a columnar value array that may be shorter than the
// time array.
func at(values []*float64, i int) *float64 {
	if i < 0 || i >= len(values) {
		return nil
	}
	return values[i]
}
