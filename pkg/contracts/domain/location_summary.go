package domain

import (
	"fmt"
	"strings"
	"time"
)

// LocationSummary is the single source of truth for per-location reporting
// data. Every consumer — the reporting CLI, exporters, and the insights
// builder — works from this structure, so the latest-date snapshot and the
// peak statistics are computed once and carried everywhere.
//
// Field semantics follow the clean dataset: pointer-typed metrics are absent
// when the underlying data never reported them (a location with no
// vaccination figures keeps a nil TotalVaccinations; a location whose latest
// TotalCases is zero keeps a nil DeathRate).
//
// Usage:
//
//	summary := &LocationSummary{
//	    Location:   "Kenya",
//	    ISOCode:    "KEN",
//	    LatestDate: "2021-11-30",
//	    DaysObserved: 670,
//	}
type LocationSummary struct {
	// Location is the country or region name exactly as it appears in the
	// dataset (for example "United States").
	Location string `json:"location" csv:"Location" validate:"required,min=2,max=64"`

	// ISOCode is the standardized country code used by map consumers
	// (for example "KEN"). Empty when the source row carried none.
	ISOCode string `json:"iso_code,omitempty" csv:"ISOCode" validate:"omitempty,max=16"`

	// LatestDate is the most recent observed date for the location in
	// "2006-01-02" form.
	LatestDate string `json:"latest_date" csv:"LatestDate" validate:"required"`

	// DaysObserved counts the rows (distinct dates) seen for the location.
	DaysObserved int `json:"days_observed" csv:"DaysObserved" validate:"min=0"`

	// Latest cumulative figures as of LatestDate. Nil means never reported.
	TotalCases        *float64 `json:"total_cases,omitempty" csv:"TotalCases"`
	TotalDeaths       *float64 `json:"total_deaths,omitempty" csv:"TotalDeaths"`
	TotalVaccinations *float64 `json:"total_vaccinations,omitempty" csv:"TotalVaccinations"`
	Population        *float64 `json:"population,omitempty" csv:"Population"`

	// Derived rates as of LatestDate, guarded the same way the pipeline
	// guards them: nil rather than a division by a zero or absent
	// denominator.
	DeathRate         *float64 `json:"death_rate,omitempty" csv:"DeathRate"`
	VaccinatedPercent *float64 `json:"vaccinated_percent,omitempty" csv:"VaccinatedPercent"`

	// PeakNewCases is the highest single-day new-case count and the date
	// it occurred on.
	PeakNewCases     float64 `json:"peak_new_cases" csv:"PeakNewCases" validate:"min=0"`
	PeakNewCasesDate string  `json:"peak_new_cases_date,omitempty" csv:"PeakNewCasesDate"`

	// PeakSmoothedNewCases is the highest trailing-average new-case value
	// (seven-day window by default) and the date it occurred on.
	PeakSmoothedNewCases     float64 `json:"peak_smoothed_new_cases" csv:"PeakSmoothedNewCases" validate:"min=0"`
	PeakSmoothedNewCasesDate string  `json:"peak_smoothed_new_cases_date,omitempty" csv:"PeakSmoothedNewCasesDate"`

	// GeneratedAt is when this summary was built.
	GeneratedAt time.Time `json:"generated_at,omitempty" csv:"GeneratedAt,omitempty"`

	// DataSource names the file the summary was derived from.
	DataSource string `json:"data_source,omitempty" csv:"DataSource,omitempty"`

	// Version tracks the structure version for compatibility.
	Version string `json:"version,omitempty" csv:"Version,omitempty"`
}

// LocationSummaryVersion is the current LocationSummary structure version.
const LocationSummaryVersion = "1.0"

// ValidateLocationSummary checks the business rules a summary must satisfy
// before export. Returns nil when valid, otherwise an error naming the first
// violated rule.
func ValidateLocationSummary(summary *LocationSummary) error {
	if summary == nil {
		return fmt.Errorf("location summary cannot be nil")
	}

	if strings.TrimSpace(summary.Location) == "" {
		return fmt.Errorf("location is required")
	}

	if summary.LatestDate == "" {
		return fmt.Errorf("latest date is required")
	}
	if _, err := time.Parse(DateFormat, summary.LatestDate); err != nil {
		return fmt.Errorf("latest date %q must be in format %q: %w", summary.LatestDate, DateFormat, err)
	}

	if summary.DaysObserved < 0 {
		return fmt.Errorf("days observed cannot be negative: %d", summary.DaysObserved)
	}

	if summary.PeakNewCases < 0 {
		return fmt.Errorf("peak new cases cannot be negative: %.2f", summary.PeakNewCases)
	}
	if summary.PeakSmoothedNewCases < 0 {
		return fmt.Errorf("peak smoothed new cases cannot be negative: %.2f", summary.PeakSmoothedNewCases)
	}

	if summary.DeathRate != nil && *summary.DeathRate < 0 {
		return fmt.Errorf("death rate cannot be negative: %.4f", *summary.DeathRate)
	}
	if summary.VaccinatedPercent != nil && *summary.VaccinatedPercent < 0 {
		return fmt.Errorf("vaccinated percent cannot be negative: %.4f", *summary.VaccinatedPercent)
	}

	return nil
}

// NewLocationSummary creates a summary with the identity fields set and
// metadata initialized. Metric fields are filled in by the summarizer.
func NewLocationSummary(location, isoCode, latestDate string, daysObserved int) (*LocationSummary, error) {
	summary := &LocationSummary{
		Location:     NormalizeLocation(location),
		ISOCode:      strings.TrimSpace(isoCode),
		LatestDate:   latestDate,
		DaysObserved: daysObserved,
		GeneratedAt:  time.Now(),
		Version:      LocationSummaryVersion,
	}

	if err := ValidateLocationSummary(summary); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return summary, nil
}

// SummaryFilter selects and orders location summaries for ranked reporting.
type SummaryFilter struct {
	// Locations restricts the result to the named locations. Empty means
	// no restriction.
	Locations []string `json:"locations,omitempty"`

	// MinTotalCases drops summaries whose latest total is below the bound
	// (absent totals always drop when the bound is positive).
	MinTotalCases float64 `json:"min_total_cases,omitempty"`

	// SortBy orders the result. Valid values: "location", "total_cases",
	// "total_deaths", "death_rate", "vaccinated_percent", "peak_new_cases".
	SortBy string `json:"sort_by,omitempty"`

	// SortDesc selects descending order.
	SortDesc bool `json:"sort_desc,omitempty"`

	// Limit caps the number of summaries returned; zero means no cap.
	Limit int `json:"limit,omitempty"`
}
