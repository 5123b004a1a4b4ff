// Command prognoza fetches, merges and exports the aggregated weather
// forecast for the configured site.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"

	"github.com/Edwardo1983/PROGNOZA/internal/cache"
	"github.com/Edwardo1983/PROGNOZA/internal/config"
	"github.com/Edwardo1983/PROGNOZA/internal/export"
	"github.com/Edwardo1983/PROGNOZA/internal/router"
	"github.com/Edwardo1983/PROGNOZA/internal/series"
)

const defaultCachePath = ".cache/weather_cache.db"

var cli struct {
	Hourly  *int   `help:"Fetch N hours of hourly forecast." xor:"mode" required:""`
	Nowcast *int   `help:"Fetch a nowcast covering N hours at 15-minute cadence." xor:"mode" required:""`
	Out     string `help:"Output file path (.csv, .parquet, or a serialized blob)." required:"" type:"path"`
	Config  string `help:"Path to the weather YAML config." default:"config/weather.yaml" type:"path"`
}

func main() {
	ktx := kong.Parse(&cli,
		kong.Name("prognoza"),
		kong.Description("Aggregate hourly and nowcast forecasts from the configured providers."),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
	)

	cfg, err := config.Load(cli.Config)
	ktx.FatalIfErrorf(err)

	if len(cfg.Providers) == 0 {
		fmt.Fprintln(os.Stderr, "prognoza: no providers configured")
		os.Exit(1)
	}

	cachePath := cfg.CachePath
	if cachePath == "" {
		cachePath = defaultCachePath
	}
	store := cache.Open(cachePath)
	defer store.Close()

	providers, err := config.BuildProviders(cfg, store)
	ktx.FatalIfErrorf(err)

	// Display timezone precedence: WEATHER_ROUTER_TZ, then config, then UTC.
	tzName := os.Getenv("WEATHER_ROUTER_TZ")
	if tzName == "" {
		tzName = cfg.Timezone
	}
	r := router.New(providers, config.ResolveTimezone(tzName))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var (
		result series.Series
		mode   string
	)
	now := time.Now().UTC()
	if cli.Hourly != nil {
		mode = "hourly"
		result = r.Hourly(ctx, now, now.Add(time.Duration(*cli.Hourly)*time.Hour))
	} else {
		mode = "nowcast"
		result = r.Nowcast(ctx, *cli.Nowcast)
	}

	if result.Empty() {
		fmt.Fprintln(os.Stderr, "prognoza: no forecast data returned by any provider")
		os.Exit(1)
	}

	if err := export.Write(result, cli.Out); err != nil {
		ktx.FatalIfErrorf(fmt.Errorf("write output: %w", err))
	}
	log.Printf("wrote %d %s rows to %s", result.Len(), mode, cli.Out)
}
