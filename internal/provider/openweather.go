package provider

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/Edwardo1983/PROGNOZA/internal/cache"
	"github.com/Edwardo1983/PROGNOZA/internal/fetch"
	"github.com/Edwardo1983/PROGNOZA/internal/series"
)

const (
	openWeatherEndpointV30 = "https://api.openweathermap.org/data/3.0/onecall"
	openWeatherEndpointV25 = "https://api.openweathermap.org/data/2.5/onecall"
)

// OpenWeatherConfig configures the One Call client. APIMode selects the
// endpoint set: "v30", "v25", or "auto" (3.0 with a legacy 2.5 fallback).
type OpenWeatherConfig struct {
	Latitude          float64
	Longitude         float64
	APIKey            string
	Units             string
	TTL               time.Duration
	Priority          int
	APIMode           string
	SkipOnAuthFailure bool
	Policy            fetch.Policy
	Cache             *cache.Store

	// Endpoints overrides the API mode's endpoint list; used in tests.
	Endpoints []string
}

// OpenWeather fetches hourly forecasts from the OpenWeather One Call API.
// It carries no nowcast capability.
type OpenWeather struct {
	core
	lat       float64
	lon       float64
	apiKey    string
	units     string
	endpoints []string
}

func NewOpenWeather(cfg OpenWeatherConfig) *OpenWeather {
	c := newCore("openweather", cfg.Priority, cfg.Cache, cfg.Policy, cfg.SkipOnAuthFailure)
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	c.ttls[ScopeHourly] = ttl

	units := cfg.Units
	if units == "" {
		units = "metric"
	}
	endpoints := cfg.Endpoints
	if len(endpoints) == 0 {
		switch cfg.APIMode {
		case "v30":
			endpoints = []string{openWeatherEndpointV30}
		case "v25":
			endpoints = []string{openWeatherEndpointV25}
		default:
			endpoints = []string{openWeatherEndpointV30, openWeatherEndpointV25}
		}
	}
	return &OpenWeather{
		core:      c,
		lat:       cfg.Latitude,
		lon:       cfg.Longitude,
		apiKey:    cfg.APIKey,
		units:     units,
		endpoints: endpoints,
	}
}

func (p *OpenWeather) SupportsNowcast() bool {
	return false
}

func (p *OpenWeather) Nowcast(ctx context.Context, horizonHours int) (series.Series, error) {
	return series.Series{}, fmt.Errorf("%s does not support nowcast", p.name)
}

func (p *OpenWeather) Hourly(ctx context.Context, start, end time.Time) (series.Series, error) {
	if p.disabled {
		return series.Series{}, nil
	}
	params := map[string]any{"lat": p.lat, "lon": p.lon, "units": p.units}
	full, err := p.fetchWithCache(ScopeHourly, params, p.ttlFor(ScopeHourly, 30*time.Minute), func() (series.Series, error) {
		payload, skipped, err := p.request(ctx)
		if err != nil || skipped {
			return series.Series{}, err
		}
		return normalizeOpenWeather(payload), nil
	})
	if err != nil {
		return series.Series{}, err
	}
	return full.Slice(start, end), nil
}

// request walks the configured endpoints in order. Auth failures and
// exhausted retries against a non-final endpoint fall through to the next
// one; on the final endpoint an auth failure either latches the provider
// (skipped=true) or becomes a hard error.
func (p *OpenWeather) request(ctx context.Context) (payload openWeatherPayload, skipped bool, err error) {
	if p.apiKey == "" {
		return payload, false, fmt.Errorf("openweather: API key is not configured")
	}

	query := url.Values{}
	query.Set("lat", fmt.Sprintf("%v", p.lat))
	query.Set("lon", fmt.Sprintf("%v", p.lon))
	query.Set("appid", p.apiKey)
	query.Set("units", p.units)
	query.Set("exclude", "minutely,daily,alerts")

	for i, endpoint := range p.endpoints {
		last := i == len(p.endpoints)-1
		reqURL := endpoint + "?" + query.Encode()

		var result openWeatherPayload
		reqErr := p.policy.Retry(func() error {
			return p.observe(ScopeHourly, func() error {
				req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
				if err != nil {
					return fmt.Errorf("create request: %w", err)
				}
				result = openWeatherPayload{}
				return fetch.Do(p.client, req, &result)
			})
		})
		if reqErr == nil {
			return result, false, nil
		}

		if !last {
			log.Printf("openweather: endpoint %s failed (%v); retrying with legacy API", endpoint, reqErr)
			continue
		}
		if authErr, ok := asAuthError(reqErr); ok {
			skip, err := p.authFailure(authErr)
			return openWeatherPayload{}, skip, err
		}
		return openWeatherPayload{}, false, fmt.Errorf("openweather request failed for %s: %w", endpoint, reqErr)
	}
	return openWeatherPayload{}, false, fmt.Errorf("openweather: no endpoints configured")
}

type openWeatherPayload struct {
	Current *openWeatherEntry  `json:"current"`
	Hourly  []openWeatherEntry `json:"hourly"`
}

type openWeatherEntry struct {
	Dt        *int64   `json:"dt"`
	Temp      *float64 `json:"temp"`
	WindSpeed *float64 `json:"wind_speed"`
	WindDeg   *float64 `json:"wind_deg"`
	Clouds    *float64 `json:"clouds"`
	Humidity  *float64 `json:"humidity"`
	UVI       *float64 `json:"uvi"`
}

// normalizeOpenWeather flattens the current and hourly sections into the
// canonical schema. Entries without a timestamp are dropped; where the
// sections overlap, the hourly (forecast) row wins via keep-last dedup.
func normalizeOpenWeather(payload openWeatherPayload) series.Series {
	var s series.Series
	appendEntry := func(e openWeatherEntry) {
		if e.Dt == nil {
			return
		}
		row := series.NewRow(time.Unix(*e.Dt, 0).UTC())
		setValue(&row, series.TempC, e.Temp)
		setValue(&row, series.WindMS, e.WindSpeed)
		setValue(&row, series.WindDeg, e.WindDeg)
		setValue(&row, series.CloudsPct, e.Clouds)
		setValue(&row, series.Humidity, e.Humidity)
		setValue(&row, series.UVIndex, e.UVI)
		s.Rows = append(s.Rows, row)
	}
	if payload.Current != nil {
		appendEntry(*payload.Current)
	}
	for _, e := range payload.Hourly {
		appendEntry(e)
	}
	return s.Normalize()
}
