package analytics

import (
	"covidcli/pkg/contracts/domain"
)

// VaccinationProgress positions every location against the configured
// coverage target using its latest figures. Coverage comes from the
// summary's derived vaccinated percent when the pipeline produced one;
// otherwise it is derived here from total vaccinations and population with
// the same guards. Locations where neither path yields a value report the
// "no data" status with an absent coverage — never a fabricated zero.
//
// Results keep the input (alphabetical) order.
func (a *Analyzer) VaccinationProgress(summaries []domain.LocationSummary) []VaccinationProgress {
	progress := make([]VaccinationProgress, 0, len(summaries))

	for _, summary := range summaries {
		entry := VaccinationProgress{
			Location:      summary.Location,
			ISOCode:       summary.ISOCode,
			AsOf:          summary.LatestDate,
			TargetPercent: a.target,
			Status:        ProgressStatusNoData,
		}

		coverage := coverageOf(summary)
		if coverage != nil {
			entry.Coverage = coverage
			if *coverage >= a.target {
				entry.Status = ProgressStatusReached
			} else {
				entry.Status = ProgressStatusInProgress
				entry.RemainingPercent = domain.Float(a.target - *coverage)
			}
		}

		progress = append(progress, entry)
	}

	return progress
}

// coverageOf extracts or derives the latest vaccinated percent. Doses per
// hundred can exceed 100 for multi-dose schedules; the value is reported as
// given, not capped.
func coverageOf(summary domain.LocationSummary) *float64 {
	if summary.VaccinatedPercent != nil {
		return domain.Float(*summary.VaccinatedPercent)
	}

	vaccinations, ok := domain.FloatValue(summary.TotalVaccinations)
	if !ok {
		return nil
	}
	population, ok := domain.FloatValue(summary.Population)
	if !ok || population <= 0 {
		return nil
	}

	return domain.Float(vaccinations / population * 100)
}
