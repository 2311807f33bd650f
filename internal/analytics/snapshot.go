package analytics

import (
	"sort"

	"covidcli/pkg/contracts/domain"
)

// LatestSnapshot builds the cross-location view from per-location summaries:
// combined totals over the values that exist and the top-N locations by
// cumulative cases. AsOf is the most recent latest-date across locations.
func (a *Analyzer) LatestSnapshot(summaries []domain.LocationSummary) Snapshot {
	snapshot := Snapshot{Locations: len(summaries)}

	for _, summary := range summaries {
		if summary.LatestDate > snapshot.AsOf {
			snapshot.AsOf = summary.LatestDate
		}
		if summary.TotalCases != nil {
			snapshot.CombinedCases += *summary.TotalCases
		}
		if summary.TotalDeaths != nil {
			snapshot.CombinedDeaths += *summary.TotalDeaths
		}
	}

	snapshot.TopByCases = ApplySummaryFilter(summaries, domain.SummaryFilter{
		SortBy:   "total_cases",
		SortDesc: true,
		Limit:    a.topN,
	})

	return snapshot
}

// DeathRateComparison ranks locations by their latest death rate, highest
// first. Locations whose rate is absent (zero or unreported cases) are left
// out rather than ranked as zero. Ties rank by location name for stable
// output.
func (a *Analyzer) DeathRateComparison(summaries []domain.LocationSummary) []RateRanking {
	ranked := make([]RateRanking, 0, len(summaries))
	for _, summary := range summaries {
		if summary.DeathRate == nil {
			continue
		}
		ranked = append(ranked, RateRanking{
			Location:    summary.Location,
			DeathRate:   *summary.DeathRate,
			TotalCases:  summary.TotalCases,
			TotalDeaths: summary.TotalDeaths,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].DeathRate != ranked[j].DeathRate {
			return ranked[i].DeathRate > ranked[j].DeathRate
		}
		return ranked[i].Location < ranked[j].Location
	})

	for i := range ranked {
		ranked[i].Rank = i + 1
	}

	return ranked
}

// ApplySummaryFilter selects and orders summaries per the filter contract.
// The input slice is not modified.
func ApplySummaryFilter(summaries []domain.LocationSummary, filter domain.SummaryFilter) []domain.LocationSummary {
	selected := make([]domain.LocationSummary, 0, len(summaries))

	for _, summary := range summaries {
		if len(filter.Locations) > 0 && !containsString(filter.Locations, summary.Location) {
			continue
		}
		if filter.MinTotalCases > 0 {
			if summary.TotalCases == nil || *summary.TotalCases < filter.MinTotalCases {
				continue
			}
		}
		selected = append(selected, summary)
	}

	if filter.SortBy != "" {
		sortSummaries(selected, filter.SortBy, filter.SortDesc)
	}

	if filter.Limit > 0 && len(selected) > filter.Limit {
		selected = selected[:filter.Limit]
	}

	return selected
}

// sortSummaries orders summaries in place by the named field. Absent metric
// values sort below any present value so rankings never fabricate zeros.
func sortSummaries(summaries []domain.LocationSummary, sortBy string, desc bool) {
	value := func(s domain.LocationSummary) (float64, bool) {
		switch sortBy {
		case "total_cases":
			return domain.FloatValue(s.TotalCases)
		case "total_deaths":
			return domain.FloatValue(s.TotalDeaths)
		case "death_rate":
			return domain.FloatValue(s.DeathRate)
		case "vaccinated_percent":
			return domain.FloatValue(s.VaccinatedPercent)
		case "peak_new_cases":
			return s.PeakNewCases, true
		default:
			return 0, false
		}
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		if sortBy == "location" {
			if desc {
				return summaries[i].Location > summaries[j].Location
			}
			return summaries[i].Location < summaries[j].Location
		}

		vi, oki := value(summaries[i])
		vj, okj := value(summaries[j])
		if oki != okj {
			return oki // present values order before absent ones
		}
		if vi == vj {
			return summaries[i].Location < summaries[j].Location
		}
		if desc {
			return vi > vj
		}
		return vi < vj
	})
}

func containsString(list []string, item string) bool {
	for _, s := range list {
		if s == item {
			return true
		}
	}
	return false
}
