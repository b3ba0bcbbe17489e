package weather

import (
	"context"
	"time"
)

// Provider abstracts a daily weather data source (e.g. Open-Meteo).
// Fetch returns one row per calendar day over the inclusive start..end range,
// each row tagged with the region name. Providers do not retry on their own;
// transport resilience lives below this interface.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, region Region, start, end time.Time) (Table, error)
}
