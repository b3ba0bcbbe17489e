package httpapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/region-weather-dashboard/internal/store"
	"github.com/i474232898/region-weather-dashboard/internal/weather"
)

var validate = validator.New()

const defaultWindowDays = 30

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *weather.Service, csvStore *store.CSVStore, regions []weather.Region) {
	h := &handler{service: service, store: csvStore, regions: regions}

	v1 := app.Group("/api/v1")
	v1.Get("/regions", h.listRegions)
	v1.Get("/weather/observations", h.observations)
	v1.Get("/weather/observations.csv", h.observationsCSV)
	v1.Get("/weather/summary", h.summary)
	v1.Get("/weather/monthly", h.monthly)
}

type handler struct {
	service *weather.Service
	store   *store.CSVStore
	regions []weather.Region
}

// selectionQuery holds the parameters every weather endpoint shares.
type selectionQuery struct {
	Regions   []string  `validate:"required,min=1"`
	From      time.Time `validate:"required"`
	To        time.Time `validate:"required,gtefield=From"`
	Window    int       `validate:"min=1,max=365"`
	ForceLive bool
	Source    string `validate:"omitempty,oneof=prefetched live"`
}

func (q *selectionQuery) bind(c *fiber.Ctx) error {
	for _, name := range strings.Split(c.Query("regions"), ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			q.Regions = append(q.Regions, name)
		}
	}

	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}
	from, err := time.Parse(weather.DateLayout, fromStr)
	if err != nil {
		return fmt.Errorf("invalid from date; use %s", weather.DateLayout)
	}
	to, err := time.Parse(weather.DateLayout, toStr)
	if err != nil {
		return fmt.Errorf("invalid to date; use %s", weather.DateLayout)
	}
	q.From = from.UTC()
	q.To = to.UTC()

	q.Window = c.QueryInt("window", defaultWindowDays)
	q.ForceLive = c.QueryBool("force_live", false)
	q.Source = c.Query("source")
	return nil
}

func parseSelection(c *fiber.Ctx) (selectionQuery, error) {
	var q selectionQuery
	if err := q.bind(c); err != nil {
		return q, err
	}
	if err := validate.Struct(q); err != nil {
		return q, err
	}
	return q, nil
}

func (h *handler) resolveRegions(names []string) ([]weather.Region, error) {
	byName := make(map[string]weather.Region, len(h.regions))
	for _, r := range h.regions {
		byName[r.Name] = r
	}

	// Repeated names collapse to their first occurrence so the resulting
	// table stays unique on (region, date).
	selected := make([]weather.Region, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		r, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown region %q", name)
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		selected = append(selected, r)
	}
	return selected, nil
}

// load returns observations for the selection. The prefetched file is
// preferred unless the caller forces a live fetch or asks for source=live;
// when the file is absent, unreadable, or has nothing for the selection, the
// handler falls back to a live fetch.
func (h *handler) load(ctx context.Context, selected []weather.Region, q selectionQuery) (weather.Table, error) {
	if !q.ForceLive && q.Source != "live" {
		table, err := h.store.Read()
		switch {
		case err == nil:
			filtered := filterTable(table, selected, q.From, q.To)
			if len(filtered) > 0 {
				return filtered, nil
			}
			log.Printf("prefetched file had no rows for selection; falling back to live fetch")
		case !errors.Is(err, store.ErrNotFound):
			log.Printf("failed to load prefetched file: %v; falling back to live fetch", err)
		}
	}

	return h.service.FetchMany(ctx, selected, q.From, q.To, q.ForceLive)
}

func filterTable(table weather.Table, selected []weather.Region, from, to time.Time) weather.Table {
	names := make(map[string]bool, len(selected))
	for _, r := range selected {
		names[r.Name] = true
	}

	var out weather.Table
	for _, obs := range table {
		if !names[obs.Region] {
			continue
		}
		if obs.Date.Before(from) || obs.Date.After(to) {
			continue
		}
		out = append(out, obs)
	}
	return out
}

func (h *handler) loadSelection(c *fiber.Ctx) (selectionQuery, weather.Table, error) {
	q, err := parseSelection(c)
	if err != nil {
		return q, nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	selected, err := h.resolveRegions(q.Regions)
	if err != nil {
		return q, nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	table, err := h.load(c.Context(), selected, q)
	if err != nil {
		if errors.Is(err, weather.ErrInvalidRange) || errors.Is(err, weather.ErrNoRegions) {
			return q, nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return q, nil, fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	if len(table) == 0 {
		return q, nil, fiber.NewError(fiber.StatusNotFound, "no data for chosen parameters")
	}

	return q, table, nil
}

func (h *handler) listRegions(c *fiber.Ctx) error {
	return c.JSON(h.regions)
}

func (h *handler) observations(c *fiber.Ctx) error {
	q, table, err := h.loadSelection(c)
	if err != nil {
		return err
	}

	rows, err := weather.Augment(table, q.Window)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	return c.JSON(fiber.Map{
		"from":   q.From.Format(weather.DateLayout),
		"to":     q.To.Format(weather.DateLayout),
		"window": q.Window,
		"rows":   rows,
	})
}

func (h *handler) observationsCSV(c *fiber.Ctx) error {
	_, table, err := h.loadSelection(c)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := store.WriteTable(&buf, table); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="weather_filtered.csv"`)
	return c.Send(buf.Bytes())
}

func (h *handler) summary(c *fiber.Ctx) error {
	q, table, err := h.loadSelection(c)
	if err != nil {
		return err
	}

	summaries := weather.Summarize(table)
	// Hottest regions first; regions without temperature data go last.
	sort.SliceStable(summaries, func(i, j int) bool {
		a, b := summaries[i].AvgTempC, summaries[j].AvgTempC
		if a == nil {
			return false
		}
		if b == nil {
			return true
		}
		return *a > *b
	})

	return c.JSON(fiber.Map{
		"from":      q.From.Format(weather.DateLayout),
		"to":        q.To.Format(weather.DateLayout),
		"summaries": summaries,
	})
}

func (h *handler) monthly(c *fiber.Ctx) error {
	_, table, err := h.loadSelection(c)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"cells": weather.MonthlyAverages(table),
	})
}
