package weather

import (
	"errors"
	"time"
)

// DateLayout is the calendar-day format used for API parameters, cache keys
// and the persisted file.
const DateLayout = "2006-01-02"

var (
	// ErrSchema indicates a malformed or unexpected upstream payload.
	ErrSchema = errors.New("unexpected weather api payload")
	// ErrInvalidWindow indicates a rolling window outside 1..365 days.
	ErrInvalidWindow = errors.New("rolling window must be between 1 and 365 days")
	// ErrInvalidRange indicates a start date after the end date.
	ErrInvalidRange = errors.New("start date must not be after end date")
	// ErrNoRegions indicates an empty region selection.
	ErrNoRegions = errors.New("no regions selected")
)

// Region is a named geographic point used as a fetch key.
// Regions are defined by configuration at startup and never mutated.
type Region struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// Observation is one region-day of daily aggregates. Temperature and
// precipitation are nil when the upstream API has no value for that day.
type Observation struct {
	Region   string    `json:"region"`
	Date     time.Time `json:"date"` // calendar day at midnight UTC
	TempC    *float64  `json:"tempC"`
	PrecipMM *float64  `json:"precipMm"`
}

// Table is a sequence of observations, unique on (region, date).
type Table []Observation

// RollingObservation is an observation augmented with the trailing rolling
// mean temperature. Nil when no temperature fell inside the window.
type RollingObservation struct {
	Observation
	RollingTempC *float64 `json:"rollingTempC"`
}

// RegionSummary aggregates one region's observations. AvgTempC and MaxTempC
// are nil when the region had no temperature data at all, rather than zero.
type RegionSummary struct {
	Region        string   `json:"region"`
	AvgTempC      *float64 `json:"avgTempC"`
	MaxTempC      *float64 `json:"maxTempC"`
	HotDays       int      `json:"hotDays"`
	TotalPrecipMM float64  `json:"totalPrecipMm"`
}

// MonthlyMean is one cell of the region x month average-temperature pivot.
type MonthlyMean struct {
	Region   string  `json:"region"`
	Month    string  `json:"month"` // YYYY-MM
	AvgTempC float64 `json:"avgTempC"`
}
