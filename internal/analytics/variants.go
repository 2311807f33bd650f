package analytics

import (
	"sort"
	"time"

	"covidcli/pkg/contracts/domain"
)

// VariantImpacts measures, for every configured variant marker and location,
// how the smoothed case curve moved around the emergence date: the mean
// smoothed new cases in the window before emergence vs the window starting
// at it, plus the peak inside the post window.
//
// Windows cover [emergence-N, emergence) and [emergence, emergence+N) in
// days. Only dates actually observed contribute; a (variant, location) pair
// with no observation in either window is omitted, because a dataset ending
// before an emergence date has nothing to say about it.
//
// Results are ordered by marker (chronological), then location.
func (a *Analyzer) VariantImpacts(trends []TrendPoint) []VariantImpact {
	byLocation := make(map[string][]TrendPoint)
	var locations []string
	for _, point := range trends {
		if _, ok := byLocation[point.Location]; !ok {
			locations = append(locations, point.Location)
		}
		byLocation[point.Location] = append(byLocation[point.Location], point)
	}
	sort.Strings(locations)

	var impacts []VariantImpact
	for _, marker := range a.markers {
		for _, location := range locations {
			impact, ok := a.variantImpact(marker, location, byLocation[location])
			if !ok {
				continue
			}
			impacts = append(impacts, impact)
		}
	}

	return impacts
}

func (a *Analyzer) variantImpact(marker VariantMarker, location string, points []TrendPoint) (VariantImpact, bool) {
	windowStart := marker.EmergenceDate.AddDate(0, 0, -a.variantDays)
	windowEnd := marker.EmergenceDate.AddDate(0, 0, a.variantDays)

	impact := VariantImpact{
		Variant:       marker.Name,
		Location:      location,
		EmergenceDate: marker.EmergenceDate,
		WindowDays:    a.variantDays,
	}

	var sumBefore, sumAfter float64
	var peakSet bool

	for _, point := range points {
		switch {
		case inRange(point.Date, windowStart, marker.EmergenceDate):
			impact.DaysBefore++
			sumBefore += point.SmoothedNewCases
		case inRange(point.Date, marker.EmergenceDate, windowEnd):
			impact.DaysAfter++
			sumAfter += point.SmoothedNewCases
			if !peakSet || point.SmoothedNewCases > impact.PeakAfter {
				impact.PeakAfter = point.SmoothedNewCases
				impact.PeakAfterDate = point.Date
				peakSet = true
			}
		}
	}

	if impact.DaysBefore == 0 && impact.DaysAfter == 0 {
		return VariantImpact{}, false
	}

	if impact.DaysBefore > 0 {
		impact.AvgBefore = sumBefore / float64(impact.DaysBefore)
	}
	if impact.DaysAfter > 0 {
		impact.AvgAfter = sumAfter / float64(impact.DaysAfter)
	}
	if impact.AvgBefore > 0 && impact.DaysAfter > 0 {
		impact.ChangeFactor = domain.Float(impact.AvgAfter / impact.AvgBefore)
	}

	return impact, true
}

// inRange reports whether date falls in [start, end).
func inRange(date, start, end time.Time) bool {
	return !date.Before(start) && date.Before(end)
}
