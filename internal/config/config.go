// Package config loads the provider topology from YAML, resolving ${VAR}
// environment references and API-key precedence at the configuration
// boundary so the providers themselves never touch the environment.
package config

import (
	"fmt"
	"log"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/Edwardo1983/PROGNOZA/internal/cache"
	"github.com/Edwardo1983/PROGNOZA/internal/fetch"
	"github.com/Edwardo1983/PROGNOZA/internal/provider"
)

// Config is the structured document consumed, not owned, by the core.
type Config struct {
	Location  Location         `yaml:"location"`
	Timezone  string           `yaml:"timezone"`
	CachePath string           `yaml:"cache_path"`
	Providers []ProviderConfig `yaml:"providers"`
}

type Location struct {
	Lat       float64 `yaml:"lat"`
	Lon       float64 `yaml:"lon"`
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
}

// Coords resolves the lat/lon aliases.
func (l Location) Coords() (float64, float64) {
	lat, lon := l.Lat, l.Lon
	if lat == 0 && l.Latitude != 0 {
		lat = l.Latitude
	}
	if lon == 0 && l.Longitude != 0 {
		lon = l.Longitude
	}
	return lat, lon
}

// ProviderConfig is one entry of the providers list. Unset booleans and
// coordinates inherit defaults (skip_on_auth_failure defaults to true;
// coordinates default to the shared location).
type ProviderConfig struct {
	Type              string   `yaml:"type"`
	Priority          int      `yaml:"priority"`
	TTL               int      `yaml:"ttl"`
	TTLSeconds        int      `yaml:"ttl_seconds"`
	APIKey            string   `yaml:"api_key"`
	Models            []string `yaml:"models"`
	Units             string   `yaml:"units"`
	APIMode           string   `yaml:"api_mode"`
	SkipOnAuthFailure *bool    `yaml:"skip_on_auth_failure"`
	Lat               *float64 `yaml:"lat"`
	Lon               *float64 `yaml:"lon"`
}

func (p ProviderConfig) ttl() time.Duration {
	seconds := p.TTL
	if seconds == 0 {
		seconds = p.TTLSeconds
	}
	return time.Duration(seconds) * time.Second
}

func (p ProviderConfig) skipOnAuthFailure() bool {
	if p.SkipOnAuthFailure == nil {
		return true
	}
	return *p.SkipOnAuthFailure
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z0-9_]+)\}`)

// ExpandEnv substitutes ${VAR} references in raw configuration bytes.
// An unset variable is a hard error naming the variable; configuration
// errors must never be silently defaulted.
func ExpandEnv(raw []byte) ([]byte, error) {
	var expandErr error
	expanded := envVarPattern.ReplaceAllFunc(raw, func(match []byte) []byte {
		name := string(envVarPattern.FindSubmatch(match)[1])
		value, ok := os.LookupEnv(name)
		if !ok {
			if expandErr == nil {
				expandErr = fmt.Errorf("environment variable %q referenced in config is not set", name)
			}
			return match
		}
		return []byte(value)
	})
	if expandErr != nil {
		return nil, expandErr
	}
	return expanded, nil
}

// Load reads, expands and parses the YAML document at path.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(raw)
}

// Parse expands environment references and unmarshals the document.
func Parse(raw []byte) (*Config, error) {
	expanded, err := ExpandEnv(raw)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(expanded, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var knownTypes = map[string]bool{
	"openweather":        true,
	"openmeteo_ecmwf":    true,
	"tomorrow_io":        true,
	"rainviewer_nowcast": true,
}

func (c *Config) validate() error {
	var result *multierror.Error
	for i, p := range c.Providers {
		if !knownTypes[p.Type] {
			result = multierror.Append(result, fmt.Errorf("providers[%d]: unsupported provider type %q", i, p.Type))
		}
		if p.TTL < 0 || p.TTLSeconds < 0 {
			result = multierror.Append(result, fmt.Errorf("providers[%d]: negative TTL", i))
		}
	}
	return result.ErrorOrNil()
}

// timezoneAliases maps site-local names onto IANA zones. Brezoaia
// (Dambovita) sits in the Bucharest zone.
var timezoneAliases = map[string]string{
	"europe/brezoaia": "Europe/Bucharest",
	"brezoaia":        "Europe/Bucharest",
}

// ResolveTimezone maps the configured timezone to a loadable location,
// falling back to UTC on unknown names. The timezone is display-only;
// merge logic always runs in UTC.
func ResolveTimezone(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	candidate := name
	if alias, ok := timezoneAliases[strings.ToLower(name)]; ok {
		candidate = alias
	}
	loc, err := time.LoadLocation(candidate)
	if err != nil {
		log.Printf("unknown timezone %q, falling back to UTC", name)
		return time.UTC
	}
	return loc
}

// apiKey resolves the ordered secret precedence: explicit config value,
// then the named environment variables, then absence.
func apiKey(configured string, envNames ...string) string {
	if configured != "" {
		return configured
	}
	for _, name := range envNames {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// BuildProviders instantiates one client per configured entry, sharing the
// cache store. A provider that requires an API key and resolves none is a
// fatal configuration error.
func BuildProviders(cfg *Config, store *cache.Store) ([]provider.Provider, error) {
	lat, lon := cfg.Location.Coords()
	var providers []provider.Provider
	var result *multierror.Error

	for i, entry := range cfg.Providers {
		entryLat, entryLon := lat, lon
		if entry.Lat != nil {
			entryLat = *entry.Lat
		}
		if entry.Lon != nil {
			entryLon = *entry.Lon
		}
		priority := entry.Priority
		if priority == 0 {
			priority = 100
		}

		switch entry.Type {
		case "openweather":
			key := apiKey(entry.APIKey, "OPENWEATHER_API_KEY")
			if key == "" {
				result = multierror.Append(result, fmt.Errorf("providers[%d]: openweather requires api_key or OPENWEATHER_API_KEY", i))
				continue
			}
			providers = append(providers, provider.NewOpenWeather(provider.OpenWeatherConfig{
				Latitude:          entryLat,
				Longitude:         entryLon,
				APIKey:            key,
				Units:             entry.Units,
				TTL:               entry.ttl(),
				Priority:          priority,
				APIMode:           entry.APIMode,
				SkipOnAuthFailure: entry.skipOnAuthFailure(),
				Policy:            fetch.DefaultPolicy(),
				Cache:             store,
			}))
		case "openmeteo_ecmwf":
			providers = append(providers, provider.NewOpenMeteo(provider.OpenMeteoConfig{
				Latitude:  entryLat,
				Longitude: entryLon,
				Models:    entry.Models,
				TTL:       entry.ttl(),
				Priority:  priority,
				Policy:    fetch.DefaultPolicy(),
				Cache:     store,
			}))
		case "tomorrow_io":
			key := apiKey(entry.APIKey, "TOMORROW_IO_API_KEY", "TOMORROWIO_API_KEY")
			if key == "" {
				result = multierror.Append(result, fmt.Errorf("providers[%d]: tomorrow_io requires api_key or TOMORROW_IO_API_KEY", i))
				continue
			}
			providers = append(providers, provider.NewTomorrowIO(provider.TomorrowIOConfig{
				Latitude:          entryLat,
				Longitude:         entryLon,
				APIKey:            key,
				TTL:               entry.ttl(),
				Priority:          priority,
				SkipOnAuthFailure: entry.skipOnAuthFailure(),
				Policy:            fetch.DefaultPolicy(),
				Cache:             store,
			}))
		case "rainviewer_nowcast":
			providers = append(providers, provider.NewRainviewer(provider.RainviewerConfig{
				APIKey:   apiKey(entry.APIKey, "RAINVIEWER_API_KEY"),
				TTL:      entry.ttl(),
				Priority: priority,
				Policy:   fetch.DefaultPolicy(),
				Cache:    store,
			}))
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return providers, nil
}
