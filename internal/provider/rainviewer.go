package provider

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Edwardo1983/PROGNOZA/internal/cache"
	"github.com/Edwardo1983/PROGNOZA/internal/fetch"
	"github.com/Edwardo1983/PROGNOZA/internal/series"
)

const rainviewerEndpoint = "https://api.rainviewer.com/public/weather-maps.json"

type RainviewerConfig struct {
	APIKey   string
	TTL      time.Duration
	Priority int
	Policy   fetch.Policy
	Cache    *cache.Store

	// BaseURL overrides the API endpoint; used in tests.
	BaseURL string
}

// Rainviewer proxies the radar nowcast feed. It is nowcast-only: the
// hourly scope always yields an empty series. Radar frames carry no
// scalar fields from the canonical schema, so its rows extend the nowcast
// timeline without supplying values.
type Rainviewer struct {
	core
	apiKey  string
	baseURL string
}

func NewRainviewer(cfg RainviewerConfig) *Rainviewer {
	c := newCore("rainviewer_nowcast", cfg.Priority, cfg.Cache, cfg.Policy, false)
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	c.ttls[ScopeNowcast] = ttl

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = rainviewerEndpoint
	}
	return &Rainviewer{core: c, apiKey: cfg.APIKey, baseURL: baseURL}
}

func (p *Rainviewer) SupportsNowcast() bool {
	return true
}

func (p *Rainviewer) Hourly(ctx context.Context, start, end time.Time) (series.Series, error) {
	return series.Series{}, nil
}

func (p *Rainviewer) Nowcast(ctx context.Context, horizonHours int) (series.Series, error) {
	horizon := p.now().UTC().Add(time.Duration(horizonHours) * time.Hour)

	params := map[string]any{"horizon": horizonHours}
	full, err := p.fetchWithCache(ScopeNowcast, params, p.ttlFor(ScopeNowcast, 10*time.Minute), func() (series.Series, error) {
		if p.apiKey == "" {
			return series.Series{}, nil
		}
		payload, err := p.request(ctx)
		if err != nil {
			return series.Series{}, err
		}
		return normalizeRainviewer(payload), nil
	})
	if err != nil {
		return series.Series{}, err
	}
	window := full.Slice(time.Unix(0, 0), horizon)
	if window.Empty() {
		return series.Series{}, nil
	}
	return series.Resample(window, series.NowcastStep, series.Pad, 1), nil
}

func (p *Rainviewer) request(ctx context.Context) (rainviewerPayload, error) {
	var result rainviewerPayload
	err := p.policy.Retry(func() error {
		return p.observe(ScopeNowcast, func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL, nil)
			if err != nil {
				return fmt.Errorf("create request: %w", err)
			}
			if p.apiKey != "" {
				req.Header.Set("Authorization", "Bearer "+p.apiKey)
			}
			result = rainviewerPayload{}
			return fetch.Do(p.client, req, &result)
		})
	})
	if err != nil {
		return rainviewerPayload{}, fmt.Errorf("rainviewer request failed: %w", err)
	}
	return result, nil
}

type rainviewerPayload struct {
	Radar struct {
		Nowcast []rainviewerFrame `json:"nowcast"`
	} `json:"radar"`
}

type rainviewerFrame struct {
	Time *int64 `json:"time"`
	Path string `json:"path"`
}

func normalizeRainviewer(payload rainviewerPayload) series.Series {
	var s series.Series
	for _, frame := range payload.Radar.Nowcast {
		if frame.Time == nil {
			continue
		}
		s.Rows = append(s.Rows, series.NewRow(time.Unix(*frame.Time, 0).UTC()))
	}
	return s.Normalize()
}
