package analytics

import (
	"time"

	"covidcli/internal/config"
	"covidcli/pkg/contracts/domain"
)

// TrendPoint is one per-location, per-day point of the trend series: the raw
// daily values plus their trailing-window averages.
type TrendPoint struct {
	Location string    `json:"location"`
	Date     time.Time `json:"date"`

	NewCases  float64 `json:"new_cases"`
	NewDeaths float64 `json:"new_deaths"`

	// Trailing means over the configured window. Windows shorter than the
	// configured size average whatever exists, so the head of a series is
	// smoothed over fewer days rather than left absent.
	SmoothedNewCases  float64 `json:"smoothed_new_cases"`
	SmoothedNewDeaths float64 `json:"smoothed_new_deaths"`
}

// PeakStat holds a location's worst observed day, raw and smoothed.
// Peaks below zero (possible when a location only ever published downward
// corrections) are floored to zero with an empty date.
type PeakStat struct {
	Location string `json:"location"`

	PeakNewCases     float64   `json:"peak_new_cases"`
	PeakNewCasesDate time.Time `json:"peak_new_cases_date"`

	PeakSmoothedNewCases     float64   `json:"peak_smoothed_new_cases"`
	PeakSmoothedNewCasesDate time.Time `json:"peak_smoothed_new_cases_date"`
}

// VariantMarker pairs a variant of concern with its emergence date.
type VariantMarker struct {
	Name          string    `json:"name"`
	EmergenceDate time.Time `json:"emergence_date"`
}

// DefaultMarkers returns the configured variant emergence markers in
// chronological order. Markers with unparseable dates are skipped.
func DefaultMarkers() []VariantMarker {
	markers := make([]VariantMarker, 0, len(config.DefaultVariantMarkers))
	for _, m := range config.DefaultVariantMarkers {
		date, err := time.Parse(domain.DateFormat, m.Date)
		if err != nil {
			continue
		}
		markers = append(markers, VariantMarker{Name: m.Name, EmergenceDate: date})
	}
	return markers
}

// VariantImpact measures how a location's smoothed case curve moved around a
// variant's emergence: average level in the window before vs after, and the
// post-emergence peak.
type VariantImpact struct {
	Variant       string    `json:"variant"`
	Location      string    `json:"location"`
	EmergenceDate time.Time `json:"emergence_date"`
	WindowDays    int       `json:"window_days"`

	// Observations actually present inside each window. Reporting gaps make
	// these smaller than WindowDays.
	DaysBefore int `json:"days_before"`
	DaysAfter  int `json:"days_after"`

	AvgBefore float64 `json:"avg_smoothed_before"`
	AvgAfter  float64 `json:"avg_smoothed_after"`

	// ChangeFactor is AvgAfter / AvgBefore. Nil when the before-window mean
	// is zero or unobserved, where a ratio would be meaningless.
	ChangeFactor *float64 `json:"change_factor,omitempty"`

	PeakAfter     float64   `json:"peak_after"`
	PeakAfterDate time.Time `json:"peak_after_date"`
}

// CorrelationMatrix is a Pearson matrix over latest-per-location values of
// the key metrics. Cells are pairwise-complete: each coefficient uses only
// the locations where both metrics have a value, and stays nil when fewer
// than the minimum pairs exist or a series is constant.
type CorrelationMatrix struct {
	Metrics      []string     `json:"metrics"`
	Coefficients [][]*float64 `json:"coefficients"`
	SamplePairs  [][]int      `json:"sample_pairs"`
	Locations    int          `json:"locations"`
}

// At returns the coefficient for a metric pair by name.
func (m *CorrelationMatrix) At(row, col string) (float64, bool) {
	i := m.index(row)
	j := m.index(col)
	if i < 0 || j < 0 || m.Coefficients[i][j] == nil {
		return 0, false
	}
	return *m.Coefficients[i][j], true
}

func (m *CorrelationMatrix) index(metric string) int {
	for i, name := range m.Metrics {
		if name == metric {
			return i
		}
	}
	return -1
}

// Vaccination progress statuses.
const (
	ProgressStatusReached    = "reached"
	ProgressStatusInProgress = "in progress"
	ProgressStatusNoData     = "no data"
)

// VaccinationProgress positions one location against the coverage target.
// Coverage is the latest vaccinated percent of the population; when neither
// a derived percent nor the total-vaccinations/population pair is available
// the status is "no data" and Coverage stays nil rather than a fabricated
// zero.
type VaccinationProgress struct {
	Location string `json:"location"`
	ISOCode  string `json:"iso_code,omitempty"`
	AsOf     string `json:"as_of"`

	Coverage         *float64 `json:"coverage,omitempty"`
	TargetPercent    float64  `json:"target_percent"`
	RemainingPercent *float64 `json:"remaining_percent,omitempty"`

	Status string `json:"status"`
}

// RateRanking is one row of the death-rate comparison: locations with a
// present latest death rate, ranked highest first.
type RateRanking struct {
	Rank        int      `json:"rank"`
	Location    string   `json:"location"`
	DeathRate   float64  `json:"death_rate"`
	TotalCases  *float64 `json:"total_cases,omitempty"`
	TotalDeaths *float64 `json:"total_deaths,omitempty"`
}

// Snapshot is the cross-location view at the latest observed dates: combined
// totals over present values and the top-N locations by cumulative cases.
type Snapshot struct {
	AsOf           string                   `json:"as_of"`
	Locations      int                      `json:"locations"`
	CombinedCases  float64                  `json:"combined_cases"`
	CombinedDeaths float64                  `json:"combined_deaths"`
	TopByCases     []domain.LocationSummary `json:"top_by_cases"`
}

// LocationValue is a scalar insight: which location, what value, and when.
type LocationValue struct {
	Location string  `json:"location"`
	Value    float64 `json:"value"`
	Date     string  `json:"date,omitempty"`
}

// KeyInsights carries the narrated findings of a report run together with
// the scalar values backing each line, so consumers can render either the
// prose or the numbers.
type KeyInsights struct {
	GeneratedAt   time.Time `json:"generated_at"`
	Window        int       `json:"window"`
	LocationCount int       `json:"location_count"`

	CombinedTotalCases  float64 `json:"combined_total_cases"`
	CombinedTotalDeaths float64 `json:"combined_total_deaths"`

	HighestTotalCases  *LocationValue `json:"highest_total_cases,omitempty"`
	HighestTotalDeaths *LocationValue `json:"highest_total_deaths,omitempty"`
	HighestDeathRate   *LocationValue `json:"highest_death_rate,omitempty"`
	LowestDeathRate    *LocationValue `json:"lowest_death_rate,omitempty"`
	BestCoverage       *LocationValue `json:"best_coverage,omitempty"`
	WorstCoverage      *LocationValue `json:"worst_coverage,omitempty"`
	SteepestRecentRise *LocationValue `json:"steepest_recent_rise,omitempty"`

	// Lines are the narrative findings in presentation order.
	Lines []string `json:"lines"`
}

// Report bundles every analytics product of one run. Independent exporters
// each read their slice of it; nothing here is mutated after BuildReport
// returns.
type Report struct {
	GeneratedAt time.Time `json:"generated_at"`
	Window      int       `json:"window"`

	Summaries  []domain.LocationSummary `json:"summaries"`
	Trends     []TrendPoint             `json:"trends"`
	Peaks      []PeakStat               `json:"peaks"`
	Snapshot   Snapshot                 `json:"snapshot"`
	DeathRates []RateRanking            `json:"death_rates"`
	Progress   []VaccinationProgress    `json:"progress"`
	Variants   []VariantImpact          `json:"variants"`

	// Correlation is nil when the run had no raw records to correlate
	// (the report CLI's -raw input is optional).
	Correlation *CorrelationMatrix `json:"correlation,omitempty"`

	Insights *KeyInsights `json:"insights"`
}

// AnalyzerConfig contains the tunables of the analytics layer.
type AnalyzerConfig struct {
	// RollingWindow is the trailing-mean window in days.
	RollingWindow int `json:"rolling_window"`

	// TopN caps ranked lists (snapshot top locations).
	TopN int `json:"top_n"`

	// VaccinationTarget is the coverage goal in percent of population.
	VaccinationTarget float64 `json:"vaccination_target"`

	// VariantWindowDays sizes the before/after windows around each
	// variant emergence date.
	VariantWindowDays int `json:"variant_window_days"`

	// MinCorrelationPairs is the smallest pairwise-complete sample a
	// correlation coefficient may be computed from.
	MinCorrelationPairs int `json:"min_correlation_pairs"`

	// Markers are the variant emergence dates to analyze.
	Markers []VariantMarker `json:"markers"`
}

// DefaultAnalyzerConfig returns the analytics defaults.
func DefaultAnalyzerConfig() AnalyzerConfig {
	return AnalyzerConfig{
		RollingWindow:       config.DefaultRollingWindow,
		TopN:                config.DefaultTopN,
		VaccinationTarget:   config.DefaultVaccinationTarget,
		VariantWindowDays:   config.DefaultVariantWindowDays,
		MinCorrelationPairs: config.MinCorrelationPairs,
		Markers:             DefaultMarkers(),
	}
}

// IsValid checks the config bounds.
func (c AnalyzerConfig) IsValid() bool {
	return c.RollingWindow > 0 && c.TopN > 0 &&
		c.VaccinationTarget > 0 && c.VaccinationTarget <= 100 &&
		c.VariantWindowDays > 0 && c.MinCorrelationPairs >= 2
}
