package analytics

import (
	"fmt"
	"time"

	"covidcli/pkg/contracts/domain"
)

// BuildInsights distills summaries, trends, and vaccination progress into the
// narrated key findings of a run: highest totals, death-rate extremes,
// best/worst coverage, and the steepest current rise. Every line has the
// scalar behind it on the struct, so exporters can render numbers and the
// CLI can print prose from the same object.
//
// Findings whose inputs are entirely absent are skipped, not zero-filled: a
// run over locations with no vaccination data simply has no coverage lines.
func (a *Analyzer) BuildInsights(summaries []domain.LocationSummary, trends []TrendPoint, progress []VaccinationProgress) *KeyInsights {
	insights := &KeyInsights{
		GeneratedAt:   time.Now().UTC(),
		Window:        a.window,
		LocationCount: len(summaries),
	}

	for _, summary := range summaries {
		if summary.TotalCases != nil {
			insights.CombinedTotalCases += *summary.TotalCases
			if insights.HighestTotalCases == nil || *summary.TotalCases > insights.HighestTotalCases.Value {
				insights.HighestTotalCases = &LocationValue{
					Location: summary.Location,
					Value:    *summary.TotalCases,
					Date:     summary.LatestDate,
				}
			}
		}
		if summary.TotalDeaths != nil {
			insights.CombinedTotalDeaths += *summary.TotalDeaths
			if insights.HighestTotalDeaths == nil || *summary.TotalDeaths > insights.HighestTotalDeaths.Value {
				insights.HighestTotalDeaths = &LocationValue{
					Location: summary.Location,
					Value:    *summary.TotalDeaths,
					Date:     summary.LatestDate,
				}
			}
		}
		if summary.DeathRate != nil {
			if insights.HighestDeathRate == nil || *summary.DeathRate > insights.HighestDeathRate.Value {
				insights.HighestDeathRate = &LocationValue{
					Location: summary.Location,
					Value:    *summary.DeathRate,
					Date:     summary.LatestDate,
				}
			}
			if insights.LowestDeathRate == nil || *summary.DeathRate < insights.LowestDeathRate.Value {
				insights.LowestDeathRate = &LocationValue{
					Location: summary.Location,
					Value:    *summary.DeathRate,
					Date:     summary.LatestDate,
				}
			}
		}
	}

	for _, entry := range progress {
		if entry.Coverage == nil {
			continue
		}
		if insights.BestCoverage == nil || *entry.Coverage > insights.BestCoverage.Value {
			insights.BestCoverage = &LocationValue{
				Location: entry.Location,
				Value:    *entry.Coverage,
				Date:     entry.AsOf,
			}
		}
		if insights.WorstCoverage == nil || *entry.Coverage < insights.WorstCoverage.Value {
			insights.WorstCoverage = &LocationValue{
				Location: entry.Location,
				Value:    *entry.Coverage,
				Date:     entry.AsOf,
			}
		}
	}

	insights.SteepestRecentRise = steepestRecentRise(trends)

	insights.Lines = a.narrate(insights, progress)

	return insights
}

// steepestRecentRise finds the location whose latest smoothed new-case value
// is the highest: the sharpest wave in progress at the end of the data.
func steepestRecentRise(trends []TrendPoint) *LocationValue {
	latest := make(map[string]TrendPoint)
	for _, point := range trends {
		current, ok := latest[point.Location]
		if !ok || point.Date.After(current.Date) {
			latest[point.Location] = point
		}
	}

	var steepest *LocationValue
	for _, point := range latest {
		if point.SmoothedNewCases <= 0 {
			continue
		}
		if steepest == nil || point.SmoothedNewCases > steepest.Value ||
			(point.SmoothedNewCases == steepest.Value && point.Location < steepest.Location) {
			steepest = &LocationValue{
				Location: point.Location,
				Value:    point.SmoothedNewCases,
				Date:     point.Date.Format(domain.DateFormat),
			}
		}
	}

	return steepest
}

// narrate renders the findings as presentation-ready lines.
func (a *Analyzer) narrate(insights *KeyInsights, progress []VaccinationProgress) []string {
	var lines []string

	if insights.HighestTotalCases != nil {
		lines = append(lines, fmt.Sprintf(
			"%s has the highest cumulative caseload: %.0f cases as of %s.",
			insights.HighestTotalCases.Location,
			insights.HighestTotalCases.Value,
			insights.HighestTotalCases.Date,
		))
	}

	if insights.HighestTotalDeaths != nil {
		lines = append(lines, fmt.Sprintf(
			"%s has recorded the most deaths: %.0f.",
			insights.HighestTotalDeaths.Location,
			insights.HighestTotalDeaths.Value,
		))
	}

	if insights.HighestDeathRate != nil && insights.LowestDeathRate != nil {
		lines = append(lines, fmt.Sprintf(
			"Death rates range from %.2f%% (%s) down to %.2f%% (%s).",
			insights.HighestDeathRate.Value, insights.HighestDeathRate.Location,
			insights.LowestDeathRate.Value, insights.LowestDeathRate.Location,
		))
	}

	if insights.SteepestRecentRise != nil {
		lines = append(lines, fmt.Sprintf(
			"%s shows the steepest current wave: a %d-day average of %.0f new cases per day as of %s.",
			insights.SteepestRecentRise.Location,
			insights.Window,
			insights.SteepestRecentRise.Value,
			insights.SteepestRecentRise.Date,
		))
	}

	if insights.BestCoverage != nil {
		line := fmt.Sprintf(
			"%s leads vaccination coverage at %.1f%% of its population (target %.0f%%)",
			insights.BestCoverage.Location, insights.BestCoverage.Value, a.target,
		)
		if insights.WorstCoverage != nil && insights.WorstCoverage.Location != insights.BestCoverage.Location {
			line += fmt.Sprintf("; %s trails at %.1f%%", insights.WorstCoverage.Location, insights.WorstCoverage.Value)
		}
		lines = append(lines, line+".")
	}

	if noData := countNoData(progress); noData > 0 {
		lines = append(lines, fmt.Sprintf(
			"%d of %d locations have no vaccination data yet.",
			noData, len(progress),
		))
	}

	return lines
}

func countNoData(progress []VaccinationProgress) int {
	count := 0
	for _, entry := range progress {
		if entry.Status == ProgressStatusNoData {
			count++
		}
	}
	return count
}
