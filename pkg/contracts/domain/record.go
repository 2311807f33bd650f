package domain

import (
	"fmt"
	"strings"
	"time"
)

// DateFormat is the canonical date layout for all record serialization.
const DateFormat = "2006-01-02"

// Record is one raw observation for a (location, date) pair as loaded from an
// OWID-convention COVID-19 dataset. Numeric fields are pointers: nil means the
// source reported no value that day, which is distinct from a reported zero.
type Record struct {
	ISOCode  string    `json:"iso_code,omitempty" csv:"iso_code"`
	Location string    `json:"location" csv:"location" validate:"required"`
	Date     time.Time `json:"date" csv:"date" validate:"required"`

	TotalCases            *float64 `json:"total_cases,omitempty" csv:"total_cases"`
	NewCases              *float64 `json:"new_cases,omitempty" csv:"new_cases"`
	TotalDeaths           *float64 `json:"total_deaths,omitempty" csv:"total_deaths"`
	NewDeaths             *float64 `json:"new_deaths,omitempty" csv:"new_deaths"`
	TotalVaccinations     *float64 `json:"total_vaccinations,omitempty" csv:"total_vaccinations"`
	PeopleVaccinated      *float64 `json:"people_vaccinated,omitempty" csv:"people_vaccinated"`
	PeopleFullyVaccinated *float64 `json:"people_fully_vaccinated,omitempty" csv:"people_fully_vaccinated"`
	Population            *float64 `json:"population,omitempty" csv:"population"`
	GDPPerCapita          *float64 `json:"gdp_per_capita,omitempty" csv:"gdp_per_capita"`
	HumanDevelopmentIndex *float64 `json:"human_development_index,omitempty" csv:"human_development_index"`
}

// Key returns the (location, date) identity of the record.
func (r Record) Key() string {
	return fmt.Sprintf("%s|%s", r.Location, r.Date.Format(DateFormat))
}

// CleanRecord is one fully prepared row for a (location, date) pair.
//
// NewCases and NewDeaths are concrete values: the pipeline zero-fills absences
// from the first difference of the cumulative totals, so a clean row always has
// them. The remaining numeric fields stay pointer-typed because preparation may
// legitimately leave them absent: TotalVaccinations when a location's sequence
// has no preceding reported value, DeathRate when TotalCases is zero or absent,
// VaccinatedPercent when the metric is disabled or Population is unknown.
type CleanRecord struct {
	ISOCode  string    `json:"iso_code,omitempty" csv:"iso_code"`
	Location string    `json:"location" csv:"location" validate:"required"`
	Date     time.Time `json:"date" csv:"date" validate:"required"`

	TotalCases        *float64 `json:"total_cases,omitempty" csv:"total_cases"`
	NewCases          float64  `json:"new_cases" csv:"new_cases"`
	TotalDeaths       *float64 `json:"total_deaths,omitempty" csv:"total_deaths"`
	NewDeaths         float64  `json:"new_deaths" csv:"new_deaths"`
	TotalVaccinations *float64 `json:"total_vaccinations,omitempty" csv:"total_vaccinations"`
	Population        *float64 `json:"population,omitempty" csv:"population"`
	DeathRate         *float64 `json:"death_rate,omitempty" csv:"death_rate"`
	VaccinatedPercent *float64 `json:"vaccinated_percent,omitempty" csv:"vaccinated_percent"`
}

// Key returns the (location, date) identity of the record.
func (r CleanRecord) Key() string {
	return fmt.Sprintf("%s|%s", r.Location, r.Date.Format(DateFormat))
}

// Float returns a pointer to v. Convenience for building records whose
// optional numeric fields are present.
func Float(v float64) *float64 {
	return &v
}

// FloatValue dereferences p, reporting whether a value was present.
func FloatValue(p *float64) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}

// NormalizeLocation trims surrounding whitespace from a location name.
// Dataset rows occasionally carry padded names; comparisons and grouping
// must treat "Kenya " and "Kenya" as the same location.
func NormalizeLocation(name string) string {
	return strings.TrimSpace(name)
}

// IsAggregateISOCode reports whether an ISO code uses the dataset's
// aggregate prefix (for example "OWID_WRL" for the World pseudo-location).
func IsAggregateISOCode(isoCode, prefix string) bool {
	return prefix != "" && strings.HasPrefix(isoCode, prefix)
}

// RecordFilter selects raw records by location identity. Both policies are
// independent and compose by AND: a row survives only if it passes the
// allow-list (when one is set) and is not an excluded aggregate.
type RecordFilter struct {
	// AllowList keeps only the listed locations. Empty means no
	// allow-list filtering.
	AllowList []string `json:"allow_list,omitempty"`

	// ExcludeAggregates drops the listed aggregate pseudo-locations
	// (for example "World").
	ExcludeAggregates []string `json:"exclude_aggregates,omitempty"`

	// AggregateISOPrefix additionally drops rows whose ISO code carries
	// this prefix, so aggregates absent from ExcludeAggregates cannot
	// leak into per-country analysis. Empty disables the check.
	AggregateISOPrefix string `json:"aggregate_iso_prefix,omitempty"`
}

// Allows reports whether a record passes both filter policies.
func (f RecordFilter) Allows(r Record) bool {
	loc := NormalizeLocation(r.Location)

	if len(f.AllowList) > 0 {
		found := false
		for _, allowed := range f.AllowList {
			if loc == allowed {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	for _, aggregate := range f.ExcludeAggregates {
		if loc == aggregate {
			return false
		}
	}

	if IsAggregateISOCode(r.ISOCode, f.AggregateISOPrefix) {
		return false
	}

	return true
}

// IsNoOp reports whether the filter passes every record through unchanged.
func (f RecordFilter) IsNoOp() bool {
	return len(f.AllowList) == 0 && len(f.ExcludeAggregates) == 0 && f.AggregateISOPrefix == ""
}
