package dataprocessing

import (
	"time"

	"github.com/google/uuid"

	"covidcli/internal/config"
)

// Pipeline step names. They key PrepareStats.StepDurations and label the
// per-step metrics and spans, so they must stay stable across releases.
const (
	StepFilter          = "filter"
	StepNormalize       = "normalize"
	StepDeltaFill       = "delta_fill"
	StepVaccinationFill = "vaccination_fill"
	StepDerive          = "derive"
	StepProject         = "project"
)

// PrepareOptions configures which derived metrics the pipeline computes.
// The fills and the location filter always run; only derivation is optional.
type PrepareOptions struct {
	// DeriveDeathRate computes total_deaths / total_cases * 100 for rows
	// whose total_cases is present and positive.
	DeriveDeathRate bool

	// DeriveVaccinatedPercent computes total_vaccinations / population * 100
	// for rows whose population is present and positive.
	DeriveVaccinatedPercent bool
}

// DefaultOptions returns the default preparation options: death rate on,
// vaccinated percent off.
func DefaultOptions() PrepareOptions {
	return PrepareOptions{
		DeriveDeathRate:         true,
		DeriveVaccinatedPercent: false,
	}
}

// OptionsFromConfig builds preparation options from pipeline configuration.
func OptionsFromConfig(cfg config.PipelineConfig) PrepareOptions {
	return PrepareOptions{
		DeriveDeathRate:         cfg.DeriveDeathRate,
		DeriveVaccinatedPercent: cfg.DeriveVaccinatedPercent,
	}
}

// PrepareStats records what a single pipeline run did to the data. It is
// logged at the end of the run, embedded in the run manifest, and mirrored
// into the metrics registry.
type PrepareStats struct {
	// RunID uniquely identifies the pipeline run across logs, metrics,
	// and the run manifest.
	RunID string `json:"run_id"`

	// StartedAt is when the run began, in UTC.
	StartedAt time.Time `json:"started_at"`

	// RowsIn counts raw records handed to the pipeline; RowsOut counts
	// clean records emitted.
	RowsIn  int `json:"rows_in"`
	RowsOut int `json:"rows_out"`

	// Locations counts distinct locations surviving the filter.
	Locations int `json:"locations"`

	// Rows dropped by each filter policy. A row failing both policies is
	// attributed to the allow-list, which is checked first.
	FilteredByAllowList  int `json:"filtered_by_allow_list"`
	FilteredAsAggregates int `json:"filtered_as_aggregates"`

	// DuplicatesDropped counts repeated (location, date) rows removed
	// during normalization; the later source occurrence wins.
	DuplicatesDropped int `json:"duplicates_dropped"`

	// DeltaFills counts absent new_cases/new_deaths values replaced by
	// cumulative first differences. VaccinationFills counts absent
	// total_vaccinations values carried forward within a location.
	DeltaFills       int `json:"delta_fills"`
	VaccinationFills int `json:"vaccination_fills"`

	// Derived-metric outcomes: values computed vs left absent because a
	// guard (zero or absent denominator) applied. Only populated for
	// metrics the options enabled.
	DerivedDeathRates        int `json:"derived_death_rates"`
	AbsentDeathRates         int `json:"absent_death_rates"`
	DerivedVaccinatedPercent int `json:"derived_vaccinated_percent"`
	AbsentVaccinatedPercent  int `json:"absent_vaccinated_percent"`

	// StepDurations holds wall-clock duration per pipeline step, keyed by
	// the Step* constants. TotalDuration spans the whole run.
	StepDurations map[string]time.Duration `json:"step_durations"`
	TotalDuration time.Duration            `json:"total_duration"`
}

// NewPrepareStats creates run statistics with a fresh run ID.
func NewPrepareStats() *PrepareStats {
	return &PrepareStats{
		RunID:         uuid.New().String(),
		StartedAt:     time.Now().UTC(),
		StepDurations: make(map[string]time.Duration),
	}
}

// Filtered returns the total rows dropped by both filter policies.
func (s *PrepareStats) Filtered() int {
	return s.FilteredByAllowList + s.FilteredAsAggregates
}

// DerivedValues returns the total derived-metric values computed.
func (s *PrepareStats) DerivedValues() int {
	return s.DerivedDeathRates + s.DerivedVaccinatedPercent
}
