package weather

import "sort"

// HotDayThresholdC is the daily mean temperature at or above which a day
// counts as hot in region summaries.
const HotDayThresholdC = 40.0

// SortByRegionDate sorts a table by (region, date) in place.
func SortByRegionDate(t Table) {
	sort.SliceStable(t, func(i, j int) bool {
		if t[i].Region != t[j].Region {
			return t[i].Region < t[j].Region
		}
		return t[i].Date.Before(t[j].Date)
	})
}

// Augment computes a trailing rolling mean temperature per region over up to
// windowDays rows. The window shrinks at the start of a region's series
// instead of yielding undefined values, and null temperatures are skipped
// inside the window; a window with no temperatures yields a nil rolling mean.
// The input table is not modified; the result is sorted by (region, date).
func Augment(table Table, windowDays int) ([]RollingObservation, error) {
	if windowDays < 1 || windowDays > 365 {
		return nil, ErrInvalidWindow
	}

	sorted := make(Table, len(table))
	copy(sorted, table)
	SortByRegionDate(sorted)

	out := make([]RollingObservation, 0, len(sorted))
	for i, obs := range sorted {
		var sum float64
		var n int
		// Walk back through the window, stopping at the region boundary.
		for j := i; j >= 0 && i-j < windowDays && sorted[j].Region == obs.Region; j-- {
			if sorted[j].TempC != nil {
				sum += *sorted[j].TempC
				n++
			}
		}

		row := RollingObservation{Observation: obs}
		if n > 0 {
			mean := sum / float64(n)
			row.RollingTempC = &mean
		}
		out = append(out, row)
	}

	return out, nil
}

// Summarize aggregates the table into one RegionSummary per region, in
// first-seen region order. Regions whose temperatures are all null get nil
// average and maximum rather than zero; precipitation is always summed.
func Summarize(table Table) []RegionSummary {
	type acc struct {
		sumTemp float64
		nTemp   int
		maxTemp float64
		hotDays int
		precip  float64
	}

	var order []string
	byRegion := make(map[string]*acc)

	for _, obs := range table {
		a, ok := byRegion[obs.Region]
		if !ok {
			a = &acc{}
			byRegion[obs.Region] = a
			order = append(order, obs.Region)
		}
		if obs.TempC != nil {
			t := *obs.TempC
			a.sumTemp += t
			if a.nTemp == 0 || t > a.maxTemp {
				a.maxTemp = t
			}
			a.nTemp++
			if t >= HotDayThresholdC {
				a.hotDays++
			}
		}
		if obs.PrecipMM != nil {
			a.precip += *obs.PrecipMM
		}
	}

	summaries := make([]RegionSummary, 0, len(order))
	for _, region := range order {
		a := byRegion[region]
		s := RegionSummary{
			Region:        region,
			HotDays:       a.hotDays,
			TotalPrecipMM: a.precip,
		}
		if a.nTemp > 0 {
			avg := a.sumTemp / float64(a.nTemp)
			max := a.maxTemp
			s.AvgTempC = &avg
			s.MaxTempC = &max
		}
		summaries = append(summaries, s)
	}

	return summaries
}

// MonthlyAverages computes the mean temperature per (region, calendar month)
// pivot, sorted by region then month. Days with null temperature are skipped;
// a region-month with no temperatures produces no cell.
func MonthlyAverages(table Table) []MonthlyMean {
	type key struct {
		region string
		month  string
	}
	sums := make(map[key]float64)
	counts := make(map[key]int)

	for _, obs := range table {
		if obs.TempC == nil {
			continue
		}
		k := key{region: obs.Region, month: obs.Date.Format("2006-01")}
		sums[k] += *obs.TempC
		counts[k]++
	}

	out := make([]MonthlyMean, 0, len(sums))
	for k, sum := range sums {
		out = append(out, MonthlyMean{
			Region:   k.region,
			Month:    k.month,
			AvgTempC: sum / float64(counts[k]),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Region != out[j].Region {
			return out[i].Region < out[j].Region
		}
		return out[i].Month < out[j].Month
	})

	return out
}
