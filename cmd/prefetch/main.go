// Command prefetch batch-fetches daily weather for every configured region
// and writes the combined table to the prefetched CSV file. Any region's
// failure aborts the run without writing a partial file, and the process
// exits non-zero.
package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/i474232898/region-weather-dashboard/internal/config"
	"github.com/i474232898/region-weather-dashboard/internal/store"
	"github.com/i474232898/region-weather-dashboard/internal/weather"
	"github.com/i474232898/region-weather-dashboard/internal/weather/providers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	provider := providers.NewOpenMeteoProvider(httpClient, cfg.OpenMeteoBaseURL, cfg.Timezone, providers.BackoffConfig{
		MaxAttempts: cfg.FetchRetries,
		Base:        cfg.BackoffBase,
		Max:         cfg.BackoffMax,
	})

	cache := weather.NewCache[weather.Table](cfg.CacheTTL)
	service := weather.NewService(provider, cache, cfg.PoliteDelay)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("prefetching %d regions, %s..%s",
		len(cfg.Regions),
		cfg.PrefetchStart.Format(weather.DateLayout),
		cfg.PrefetchEnd.Format(weather.DateLayout),
	)

	table, err := service.FetchMany(ctx, cfg.Regions, cfg.PrefetchStart, cfg.PrefetchEnd, true)
	if err != nil {
		log.Fatalf("prefetch failed: %v", err)
	}

	csvStore := store.NewCSVStore(cfg.PrefetchPath)
	if err := csvStore.Write(table); err != nil {
		log.Fatalf("failed to write %s: %v", cfg.PrefetchPath, err)
	}

	log.Printf("wrote %s: %d rows", cfg.PrefetchPath, len(table))
}
