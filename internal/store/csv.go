package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/i474232898/region-weather-dashboard/internal/weather"
)

var (
	// ErrNotFound is returned when no prefetched data file exists.
	ErrNotFound = errors.New("no prefetched data file")
)

var csvHeader = []string{"region", "date", "temp", "precip"}

// CSVStore persists an observation table as a flat CSV file with one row per
// region-day. Writes overwrite the previous file, so re-running a prefetch
// with the same parameters is idempotent.
type CSVStore struct {
	path string
}

func NewCSVStore(path string) *CSVStore {
	return &CSVStore{path: path}
}

func (s *CSVStore) Path() string {
	return s.path
}

// Write sorts the table by (region, date) and overwrites the file.
func (s *CSVStore) Write(table weather.Table) error {
	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("create %s: %w", s.path, err)
	}
	if err := WriteTable(f, table); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", s.path, err)
	}
	return nil
}

// Read loads the persisted table. Returns ErrNotFound when the file does not
// exist.
func (s *CSVStore) Read() (weather.Table, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	defer f.Close()

	table, err := ReadTable(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	return table, nil
}

// WriteTable serializes the table as CSV with the header
// region,date,temp,precip. Null values become empty cells. Rows are written
// sorted by (region, date).
func WriteTable(w io.Writer, table weather.Table) error {
	sorted := make(weather.Table, len(table))
	copy(sorted, table)
	weather.SortByRegionDate(sorted)

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, obs := range sorted {
		rec := []string{
			obs.Region,
			obs.Date.Format(weather.DateLayout),
			formatFloat(obs.TempC),
			formatFloat(obs.PrecipMM),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadTable parses a CSV produced by WriteTable. Empty cells come back as nil.
func ReadTable(r io.Reader) (weather.Table, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty csv: missing header")
	}

	header := records[0]
	if len(header) != len(csvHeader) {
		return nil, fmt.Errorf("unexpected csv header %v", header)
	}
	for i, col := range csvHeader {
		if header[i] != col {
			return nil, fmt.Errorf("unexpected csv header %v", header)
		}
	}

	table := make(weather.Table, 0, len(records)-1)
	for _, rec := range records[1:] {
		date, err := time.Parse(weather.DateLayout, rec[1])
		if err != nil {
			return nil, fmt.Errorf("bad date %q: %w", rec[1], err)
		}
		temp, err := parseFloat(rec[2])
		if err != nil {
			return nil, fmt.Errorf("bad temp %q: %w", rec[2], err)
		}
		precip, err := parseFloat(rec[3])
		if err != nil {
			return nil, fmt.Errorf("bad precip %q: %w", rec[3], err)
		}
		table = append(table, weather.Observation{
			Region:   rec[0],
			Date:     date.UTC(),
			TempC:    temp,
			PrecipMM: precip,
		})
	}

	return table, nil
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func parseFloat(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
