package analytics

import (
	"sort"
	"time"

	"covidcli/pkg/contracts/domain"
)

// RollingAverages builds the per-location trend series: raw daily new cases
// and deaths plus their trailing means over the configured window. A window
// position shorter than the configured size averages the observations that
// exist, so every point has a smoothed value from day one.
//
// Output is ordered by location, then date.
func (a *Analyzer) RollingAverages(records []domain.CleanRecord) []TrendPoint {
	groups := groupByLocationOrdered(records)

	trends := make([]TrendPoint, 0, len(records))
	for _, group := range groups {
		cases := newTrailingMean(a.window)
		deaths := newTrailingMean(a.window)

		for _, record := range group.records {
			trends = append(trends, TrendPoint{
				Location:          record.Location,
				Date:              record.Date,
				NewCases:          record.NewCases,
				NewDeaths:         record.NewDeaths,
				SmoothedNewCases:  cases.push(record.NewCases),
				SmoothedNewDeaths: deaths.push(record.NewDeaths),
			})
		}
	}

	return trends
}

// DetectPeaks finds each location's worst day in a trend series, raw and
// smoothed. Ties keep the earliest date. A location whose values never rise
// above zero reports a zero peak with no date.
func (a *Analyzer) DetectPeaks(trends []TrendPoint) []PeakStat {
	byLocation := make(map[string]*PeakStat)
	var order []string

	for _, point := range trends {
		peak, ok := byLocation[point.Location]
		if !ok {
			peak = &PeakStat{
				Location:                 point.Location,
				PeakNewCases:             point.NewCases,
				PeakNewCasesDate:         point.Date,
				PeakSmoothedNewCases:     point.SmoothedNewCases,
				PeakSmoothedNewCasesDate: point.Date,
			}
			byLocation[point.Location] = peak
			order = append(order, point.Location)
			continue
		}

		if point.NewCases > peak.PeakNewCases {
			peak.PeakNewCases = point.NewCases
			peak.PeakNewCasesDate = point.Date
		}
		if point.SmoothedNewCases > peak.PeakSmoothedNewCases {
			peak.PeakSmoothedNewCases = point.SmoothedNewCases
			peak.PeakSmoothedNewCasesDate = point.Date
		}
	}

	sort.Strings(order)

	peaks := make([]PeakStat, 0, len(order))
	for _, location := range order {
		peak := byLocation[location]
		if peak.PeakNewCases < 0 {
			peak.PeakNewCases = 0
			peak.PeakNewCasesDate = time.Time{}
		}
		if peak.PeakSmoothedNewCases < 0 {
			peak.PeakSmoothedNewCases = 0
			peak.PeakSmoothedNewCasesDate = time.Time{}
		}
		peaks = append(peaks, *peak)
	}

	return peaks
}

// trailingMean maintains a sliding trailing-window average. Positions before
// the window is full average what has been seen so far.
type trailingMean struct {
	size   int
	values []float64
	sum    float64
}

func newTrailingMean(size int) *trailingMean {
	if size < 1 {
		size = 1
	}
	return &trailingMean{size: size, values: make([]float64, 0, size)}
}

func (t *trailingMean) push(value float64) float64 {
	t.values = append(t.values, value)
	t.sum += value
	if len(t.values) > t.size {
		t.sum -= t.values[0]
		t.values = t.values[1:]
	}
	return t.sum / float64(len(t.values))
}

// cleanGroup is one location's records in ascending date order.
type cleanGroup struct {
	location string
	records  []domain.CleanRecord
}

// groupByLocationOrdered groups clean records by location, locations sorted
// alphabetically and each group sorted by date. The pipeline already emits
// this order; re-grouping here keeps the analytics correct for callers that
// assembled records some other way.
func groupByLocationOrdered(records []domain.CleanRecord) []cleanGroup {
	byLocation := make(map[string][]domain.CleanRecord)
	for _, record := range records {
		byLocation[record.Location] = append(byLocation[record.Location], record)
	}

	locations := make([]string, 0, len(byLocation))
	for location := range byLocation {
		locations = append(locations, location)
	}
	sort.Strings(locations)

	groups := make([]cleanGroup, 0, len(locations))
	for _, location := range locations {
		group := byLocation[location]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Date.Before(group[j].Date)
		})
		groups = append(groups, cleanGroup{location: location, records: group})
	}

	return groups
}
