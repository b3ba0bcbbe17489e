package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/region-weather-dashboard/internal/store"
	"github.com/i474232898/region-weather-dashboard/internal/weather"
)

// stubProvider serves a fixed temperature per region-day, or fails entirely.
type stubProvider struct {
	calls int
	fail  bool
	tempC float64
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Fetch(_ context.Context, region weather.Region, start, end time.Time) (weather.Table, error) {
	p.calls++
	if p.fail {
		return nil, errors.New("upstream down")
	}
	var table weather.Table
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		temp := p.tempC
		precip := 0.5
		table = append(table, weather.Observation{Region: region.Name, Date: d, TempC: &temp, PrecipMM: &precip})
	}
	return table, nil
}

var testRegions = []weather.Region{
	{Name: "Paris", Lat: 48.8566, Lon: 2.3522},
	{Name: "Lyon", Lat: 45.7640, Lon: 4.8357},
}

func newTestApp(t *testing.T, provider weather.Provider, csvStore *store.CSVStore) *fiber.App {
	t.Helper()

	app := fiber.New()
	cache := weather.NewCache[weather.Table](time.Hour)
	svc := weather.NewService(provider, cache, 0)
	RegisterRoutes(app, svc, csvStore, testRegions)
	return app
}

func emptyStore(t *testing.T) *store.CSVStore {
	t.Helper()
	return store.NewCSVStore(filepath.Join(t.TempDir(), "data.csv"))
}

func doRequest(t *testing.T, app *fiber.App, target string) *http.Response {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return resp
}

func TestObservationsParameterValidation(t *testing.T) {
	app := newTestApp(t, &stubProvider{tempC: 20}, emptyStore(t))

	cases := []struct {
		name   string
		target string
	}{
		{"missing regions", "/api/v1/weather/observations?from=2023-01-01&to=2023-01-03"},
		{"missing dates", "/api/v1/weather/observations?regions=Paris"},
		{"bad date", "/api/v1/weather/observations?regions=Paris&from=yesterday&to=2023-01-03"},
		{"start after end", "/api/v1/weather/observations?regions=Paris&from=2023-02-01&to=2023-01-01"},
		{"window too small", "/api/v1/weather/observations?regions=Paris&from=2023-01-01&to=2023-01-03&window=0"},
		{"window too large", "/api/v1/weather/observations?regions=Paris&from=2023-01-01&to=2023-01-03&window=400"},
		{"bad source", "/api/v1/weather/observations?regions=Paris&from=2023-01-01&to=2023-01-03&source=psychic"},
		{"unknown region", "/api/v1/weather/observations?regions=Atlantis&from=2023-01-01&to=2023-01-03"},
	}

	for _, tc := range cases {
		resp := doRequest(t, app, tc.target)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: expected status 400, got %d", tc.name, resp.StatusCode)
		}
	}
}

func TestObservationsLiveFetch(t *testing.T) {
	provider := &stubProvider{tempC: 25}
	app := newTestApp(t, provider, emptyStore(t))

	resp := doRequest(t, app, "/api/v1/weather/observations?regions=Paris,Lyon&from=2023-01-01&to=2023-01-03&window=1")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}

	var body struct {
		Window int                          `json:"window"`
		Rows   []weather.RollingObservation `json:"rows"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(body.Rows) != 6 {
		t.Fatalf("expected 6 rows (2 regions x 3 days), got %d", len(body.Rows))
	}
	if body.Window != 1 {
		t.Errorf("expected window 1, got %d", body.Window)
	}
	if provider.calls != 2 {
		t.Errorf("expected one fetch per region, got %d", provider.calls)
	}
}

func TestObservationsDuplicateRegionSelection(t *testing.T) {
	provider := &stubProvider{tempC: 25}
	app := newTestApp(t, provider, emptyStore(t))

	resp := doRequest(t, app, "/api/v1/weather/observations?regions=Paris,Paris&from=2023-01-01&to=2023-01-02&window=2")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}

	var body struct {
		Rows []weather.RollingObservation `json:"rows"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(body.Rows) != 2 {
		t.Fatalf("expected 2 rows for the deduplicated region, got %d", len(body.Rows))
	}
	seen := map[string]bool{}
	for _, row := range body.Rows {
		key := row.Region + "|" + row.Date.Format(weather.DateLayout)
		if seen[key] {
			t.Errorf("duplicate (region, date) pair %s", key)
		}
		seen[key] = true
	}
	if provider.calls != 1 {
		t.Errorf("expected a single fetch for the repeated region, got %d", provider.calls)
	}
}

func TestObservationsPreferPrefetchedFile(t *testing.T) {
	csvStore := emptyStore(t)

	var table weather.Table
	base := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		temp := 10.0
		table = append(table, weather.Observation{Region: "Paris", Date: base.AddDate(0, 0, i), TempC: &temp})
	}
	if err := csvStore.Write(table); err != nil {
		t.Fatalf("failed to seed prefetched file: %v", err)
	}

	// A failing provider proves the prefetched path makes no live call.
	provider := &stubProvider{fail: true}
	app := newTestApp(t, provider, csvStore)

	resp := doRequest(t, app, "/api/v1/weather/observations?regions=Paris&from=2023-01-01&to=2023-01-03")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200 from prefetched data, got %d", resp.StatusCode)
	}
	if provider.calls != 0 {
		t.Errorf("expected no live fetch, got %d calls", provider.calls)
	}
}

func TestObservationsForceLiveSkipsPrefetchedFile(t *testing.T) {
	csvStore := emptyStore(t)
	temp := 10.0
	seed := weather.Table{{Region: "Paris", Date: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), TempC: &temp}}
	if err := csvStore.Write(seed); err != nil {
		t.Fatalf("failed to seed prefetched file: %v", err)
	}

	provider := &stubProvider{tempC: 35}
	app := newTestApp(t, provider, csvStore)

	resp := doRequest(t, app, "/api/v1/weather/observations?regions=Paris&from=2023-01-01&to=2023-01-01&force_live=true")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}
	if provider.calls != 1 {
		t.Errorf("expected a live fetch despite the prefetched file, got %d calls", provider.calls)
	}
}

func TestObservationsUpstreamFailure(t *testing.T) {
	app := newTestApp(t, &stubProvider{fail: true}, emptyStore(t))

	resp := doRequest(t, app, "/api/v1/weather/observations?regions=Paris&from=2023-01-01&to=2023-01-03")
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected status 502, got %d", resp.StatusCode)
	}
}

func TestSummaryEndpoint(t *testing.T) {
	app := newTestApp(t, &stubProvider{tempC: 41}, emptyStore(t))

	resp := doRequest(t, app, "/api/v1/weather/summary?regions=Paris&from=2023-06-01&to=2023-06-03")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}

	var body struct {
		Summaries []weather.RegionSummary `json:"summaries"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(body.Summaries) != 1 {
		t.Fatalf("expected one summary, got %d", len(body.Summaries))
	}
	s := body.Summaries[0]
	if s.HotDays != 3 {
		t.Errorf("expected 3 hot days at 41C, got %d", s.HotDays)
	}
	if s.AvgTempC == nil || *s.AvgTempC != 41 {
		t.Errorf("expected avg 41, got %v", s.AvgTempC)
	}
}

func TestObservationsCSVExport(t *testing.T) {
	app := newTestApp(t, &stubProvider{tempC: 20}, emptyStore(t))

	resp := doRequest(t, app, "/api/v1/weather/observations.csv?regions=Paris&from=2023-01-01&to=2023-01-02")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get(fiber.HeaderContentType); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("expected text/csv content type, got %q", ct)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	if lines[0] != "region,date,temp,precip" {
		t.Errorf("unexpected csv header %q", lines[0])
	}
	if len(lines) != 3 {
		t.Errorf("expected header + 2 rows, got %d lines", len(lines))
	}
}

func TestListRegions(t *testing.T) {
	app := newTestApp(t, &stubProvider{tempC: 20}, emptyStore(t))

	resp := doRequest(t, app, "/api/v1/regions")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}

	var regions []weather.Region
	if err := json.NewDecoder(resp.Body).Decode(&regions); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(regions) != 2 || regions[0].Name != "Paris" {
		t.Errorf("unexpected regions %+v", regions)
	}
}
