package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/region-weather-dashboard/internal/weather"
)

// DefaultOpenMeteoBaseURL is the public Open-Meteo forecast endpoint.
const DefaultOpenMeteoBaseURL = "https://api.open-meteo.com/v1/forecast"

// OpenMeteoProvider implements weather.Provider against the Open-Meteo daily
// forecast API. The timezone is fixed per provider so day boundaries stay
// consistent across regions.
type OpenMeteoProvider struct {
	name     string
	baseURL  string
	timezone string
	httpCfg  HTTPClientConfig
	circuit  *gobreaker.CircuitBreaker
}

func NewOpenMeteoProvider(client *http.Client, baseURL, timezone string, backoff BackoffConfig) *OpenMeteoProvider {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openmeteo",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	if baseURL == "" {
		baseURL = DefaultOpenMeteoBaseURL
	}

	return &OpenMeteoProvider{
		name:     "openmeteo",
		baseURL:  baseURL,
		timezone: timezone,
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: backoff,
		},
		circuit: cb,
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

// Fetch retrieves daily mean temperature and precipitation sum for one region
// over the inclusive start..end range.
func (p *OpenMeteoProvider) Fetch(ctx context.Context, region weather.Region, start, end time.Time) (weather.Table, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", fmt.Sprintf("%.4f", region.Lat))
		values.Set("longitude", fmt.Sprintf("%.4f", region.Lon))
		values.Set("start_date", start.Format(weather.DateLayout))
		values.Set("end_date", end.Format(weather.DateLayout))
		values.Set("daily", "temperature_2m_mean,precipitation_sum")
		values.Set("timezone", p.timezone)

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doResilientGet(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		Daily struct {
			Time          []string   `json:"time"`
			Temperature   []*float64 `json:"temperature_2m_mean"`
			Precipitation []*float64 `json:"precipitation_sum"`
		} `json:"daily"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", weather.ErrSchema, err)
	}

	daily := payload.Daily
	if len(daily.Time) == 0 {
		return nil, fmt.Errorf("%w: daily time series missing", weather.ErrSchema)
	}
	if len(daily.Temperature) != len(daily.Time) || len(daily.Precipitation) != len(daily.Time) {
		return nil, fmt.Errorf("%w: parallel arrays disagree (%d dates, %d temperatures, %d precipitation sums)",
			weather.ErrSchema, len(daily.Time), len(daily.Temperature), len(daily.Precipitation))
	}

	table := make(weather.Table, 0, len(daily.Time))
	for i, ds := range daily.Time {
		day, err := time.Parse(weather.DateLayout, ds)
		if err != nil {
			return nil, fmt.Errorf("%w: bad date %q", weather.ErrSchema, ds)
		}
		table = append(table, weather.Observation{
			Region:   region.Name,
			Date:     day.UTC(),
			TempC:    daily.Temperature[i],
			PrecipMM: daily.Precipitation[i],
		})
	}

	return table, nil
}
