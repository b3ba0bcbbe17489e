package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelvins/geocoder"

	"github.com/i474232898/region-weather-dashboard/internal/weather"
)

// defaultRegions is the built-in region table, overridable via
// WEATHER_REGIONS.
var defaultRegions = []weather.Region{
	{Name: "New Delhi", Lat: 28.6139, Lon: 77.2090},
	{Name: "Mumbai", Lat: 19.0760, Lon: 72.8777},
	{Name: "Kolkata", Lat: 22.5726, Lon: 88.3639},
	{Name: "Chennai", Lat: 13.0827, Lon: 80.2707},
	{Name: "Bengaluru", Lat: 12.9716, Lon: 77.5946},
	{Name: "Hyderabad", Lat: 17.3850, Lon: 78.4867},
	{Name: "Pune", Lat: 18.5204, Lon: 73.8567},
	{Name: "Ahmedabad", Lat: 23.0225, Lon: 72.5714},
	{Name: "Jaipur", Lat: 26.9124, Lon: 75.7873},
	{Name: "Lucknow", Lat: 26.8467, Lon: 80.9462},
}

type AppConfig struct {
	// Regions to serve and prefetch, in configured order.
	Regions []weather.Region

	// Prefetch window. End defaults to today.
	PrefetchStart time.Time
	PrefetchEnd   time.Time

	// Fetch memoization and upstream politeness.
	CacheTTL    time.Duration
	PoliteDelay time.Duration

	// Outbound HTTP resilience.
	FetchRetries int
	BackoffBase  time.Duration
	BackoffMax   time.Duration
	HTTPTimeout  time.Duration

	// Prefetched file location and optional refresh interval (0 = disabled).
	PrefetchPath            string
	PrefetchRefreshInterval time.Duration

	OpenMeteoBaseURL string
	Timezone         string

	Port string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg := &AppConfig{}

	regions, err := loadRegions()
	if err != nil {
		return nil, err
	}
	cfg.Regions = regions

	start, err := parseDate(getenvDefault("PREFETCH_START_DATE", "2023-01-01"))
	if err != nil {
		return nil, fmt.Errorf("invalid PREFETCH_START_DATE: %w", err)
	}
	cfg.PrefetchStart = start

	endStr := os.Getenv("PREFETCH_END_DATE")
	if endStr == "" {
		cfg.PrefetchEnd = today()
	} else {
		end, err := parseDate(endStr)
		if err != nil {
			return nil, fmt.Errorf("invalid PREFETCH_END_DATE: %w", err)
		}
		cfg.PrefetchEnd = end
	}
	if cfg.PrefetchStart.After(cfg.PrefetchEnd) {
		return nil, fmt.Errorf("PREFETCH_START_DATE is after PREFETCH_END_DATE")
	}

	cfg.CacheTTL, err = getenvDuration("CACHE_TTL", time.Hour)
	if err != nil {
		return nil, err
	}
	cfg.PoliteDelay, err = getenvDuration("POLITE_DELAY", 300*time.Millisecond)
	if err != nil {
		return nil, err
	}

	cfg.FetchRetries = getenvInt("FETCH_RETRIES", 3)
	if cfg.FetchRetries < 1 {
		return nil, fmt.Errorf("FETCH_RETRIES must be at least 1, got %d", cfg.FetchRetries)
	}
	cfg.BackoffBase, err = getenvDuration("BACKOFF_BASE", 1500*time.Millisecond)
	if err != nil {
		return nil, err
	}
	cfg.BackoffMax, err = getenvDuration("BACKOFF_MAX", 10*time.Second)
	if err != nil {
		return nil, err
	}
	cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	cfg.PrefetchPath = getenvDefault("PREFETCH_PATH", "data.csv")
	cfg.PrefetchRefreshInterval, err = getenvDuration("PREFETCH_REFRESH_INTERVAL", 0)
	if err != nil {
		return nil, err
	}

	cfg.OpenMeteoBaseURL = os.Getenv("OPEN_METEO_BASE_URL")
	cfg.Timezone = getenvDefault("WEATHER_TIMEZONE", "Asia/Kolkata")
	cfg.Port = getenvDefault("PORT", "8080")

	return cfg, nil
}

// loadRegions parses WEATHER_REGIONS, a comma list of Name:lat:lon entries.
// A bare Name entry is resolved through the geocoder, which needs
// GEOCODER_API_KEY set.
func loadRegions() ([]weather.Region, error) {
	raw := os.Getenv("WEATHER_REGIONS")
	if raw == "" {
		return defaultRegions, nil
	}
	return ParseRegions(raw, os.Getenv("GEOCODER_API_KEY"))
}

func ParseRegions(raw, geocoderAPIKey string) ([]weather.Region, error) {
	var regions []weather.Region
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		parts := strings.Split(entry, ":")
		switch len(parts) {
		case 1:
			region, err := geocodeRegion(parts[0], geocoderAPIKey)
			if err != nil {
				return nil, err
			}
			regions = append(regions, region)
		case 3:
			lat, err := strconv.ParseFloat(parts[1], 64)
			if err != nil {
				return nil, fmt.Errorf("region %q: invalid latitude: %w", parts[0], err)
			}
			lon, err := strconv.ParseFloat(parts[2], 64)
			if err != nil {
				return nil, fmt.Errorf("region %q: invalid longitude: %w", parts[0], err)
			}
			regions = append(regions, weather.Region{Name: parts[0], Lat: lat, Lon: lon})
		default:
			return nil, fmt.Errorf("invalid region entry %q; want Name or Name:lat:lon", entry)
		}
	}
	if len(regions) == 0 {
		return nil, fmt.Errorf("WEATHER_REGIONS is set but contains no regions")
	}
	return regions, nil
}

func geocodeRegion(name, apiKey string) (weather.Region, error) {
	if apiKey == "" {
		return weather.Region{}, fmt.Errorf("region %q has no coordinates and GEOCODER_API_KEY is not set", name)
	}

	geocoder.ApiKey = apiKey
	location, err := geocoder.Geocoding(geocoder.Address{City: name})
	if err != nil {
		return weather.Region{}, fmt.Errorf("geocode %q: %w", name, err)
	}

	return weather.Region{Name: name, Lat: location.Latitude, Lon: location.Longitude}, nil
}

func today() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(weather.DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
