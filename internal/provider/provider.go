// Package provider implements one client per external forecast service.
// Each client normalizes its provider-specific payload into the canonical
// schema and owns its own retry, endpoint-fallback and auth-disable policy.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/Edwardo1983/PROGNOZA/internal/cache"
	"github.com/Edwardo1983/PROGNOZA/internal/fetch"
	"github.com/Edwardo1983/PROGNOZA/internal/metrics"
	"github.com/Edwardo1983/PROGNOZA/internal/series"
)

// Request scopes, used to namespace cache keys and TTLs.
const (
	ScopeHourly  = "hourly"
	ScopeNowcast = "nowcast"
)

// Provider is one external forecast source. Hourly is mandatory; Nowcast
// is only called when SupportsNowcast reports true. Disabled exposes the
// auth-failure latch for callers that report provider health.
type Provider interface {
	Name() string
	Priority() int
	SupportsNowcast() bool
	Disabled() bool
	Hourly(ctx context.Context, start, end time.Time) (series.Series, error)
	Nowcast(ctx context.Context, horizonHours int) (series.Series, error)
}

// core carries the state every provider implementation shares: identity,
// merge priority, per-scope TTLs, the cache handle and the auth latch.
type core struct {
	name              string
	priority          int
	ttls              map[string]time.Duration
	store             *cache.Store
	policy            fetch.Policy
	client            *http.Client
	skipOnAuthFailure bool
	disabled          bool
	authLogged        bool
	now               func() time.Time
}

func newCore(name string, priority int, store *cache.Store, policy fetch.Policy, skipOnAuthFailure bool) core {
	if policy.MaxAttempts == 0 {
		policy = fetch.DefaultPolicy()
	}
	return core{
		name:              name,
		priority:          priority,
		ttls:              make(map[string]time.Duration),
		store:             store,
		policy:            policy,
		client:            fetch.NewClient(policy),
		skipOnAuthFailure: skipOnAuthFailure,
		now:               time.Now,
	}
}

func (c *core) Name() string {
	return c.name
}

func (c *core) Priority() int {
	return c.priority
}

// Disabled reports whether the auth-failure latch has fired. The latch is
// per instance and set at most once per process lifetime.
func (c *core) Disabled() bool {
	return c.disabled
}

func (c *core) ttlFor(scope string, fallback time.Duration) time.Duration {
	if ttl, ok := c.ttls[scope]; ok && ttl > 0 {
		return ttl
	}
	return fallback
}

// cacheKey canonically serializes request parameters. json.Marshal sorts
// map keys, so equal parameter sets always produce equal keys.
func (c *core) cacheKey(params map[string]any) string {
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Sprintf("%v", params)
	}
	return string(raw)
}

// fetchWithCache consults the cache before letting fetcher touch the
// network, and writes successful non-empty fetches back with the scope's
// TTL.
func (c *core) fetchWithCache(scope string, params map[string]any, ttl time.Duration, fetcher func() (series.Series, error)) (series.Series, error) {
	key := c.cacheKey(params)
	if ttl > 0 && c.store != nil {
		if cached, ok := c.store.Get(c.name, scope, key); ok {
			metrics.CacheOpsTotal.WithLabelValues(c.name, scope, "hit").Inc()
			return cached, nil
		}
		metrics.CacheOpsTotal.WithLabelValues(c.name, scope, "miss").Inc()
	}
	data, err := fetcher()
	if err != nil {
		return series.Series{}, err
	}
	if ttl > 0 && c.store != nil && !data.Empty() {
		c.store.Set(c.name, scope, key, data, ttl)
		metrics.CacheOpsTotal.WithLabelValues(c.name, scope, "store").Inc()
	}
	return data, nil
}

// authFailure resolves an upstream 401/403. When the provider tolerates
// auth failure it logs once, latches the disabled flag and reports
// skip=true; otherwise the error is returned for the caller to surface.
func (c *core) authFailure(err *fetch.AuthError) (skip bool, out error) {
	if c.skipOnAuthFailure {
		if !c.authLogged {
			log.Printf("%s: %v; provider disabled until restart", c.name, err)
			c.authLogged = true
		}
		c.disabled = true
		return true, nil
	}
	return false, fmt.Errorf("%s rejected the API key: %w; update the key or disable the provider", c.name, err)
}

// observe wraps a network call with the request counter and latency
// histogram.
func (c *core) observe(scope string, call func() error) error {
	start := time.Now()
	err := call()
	metrics.ProviderRequestLatency.WithLabelValues(c.name, scope).Observe(time.Since(start).Seconds())
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.ProviderRequestsTotal.WithLabelValues(c.name, scope, status).Inc()
	return err
}
