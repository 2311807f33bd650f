package config

import "time"

// Application constants - all hardcoded values for the COVID data pipeline
const (
	// Application Info
	AppName    = "COVID Data Pipeline"
	AppVersion = "1.0.0"

	// Dataset Column Names (OWID header conventions)
	ColISOCode               = "iso_code"
	ColLocation              = "location"
	ColDate                  = "date"
	ColTotalCases            = "total_cases"
	ColNewCases              = "new_cases"
	ColTotalDeaths           = "total_deaths"
	ColNewDeaths             = "new_deaths"
	ColTotalVaccinations     = "total_vaccinations"
	ColPeopleVaccinated      = "people_vaccinated"
	ColPeopleFullyVaccinated = "people_fully_vaccinated"
	ColPopulation            = "population"
	ColGDPPerCapita          = "gdp_per_capita"
	ColHDI                   = "human_development_index"

	// Derived columns appended by the preparation pipeline
	ColDeathRate         = "death_rate"
	ColVaccinatedPercent = "vaccinated_percent"

	// Aggregate pseudo-locations carry this ISO code prefix in the source data
	AggregateISOPrefix = "OWID_"

	// Dataset File Handling
	DefaultRawDatasetName = "owid-covid-data.csv"
	RawCSVPattern         = `(?i).*\.csv$`
	RawExcelPattern       = `(?i).*\.xlsx?$`

	// Analytics Defaults
	DefaultRollingWindow     = 7
	DefaultTopN              = 10
	DefaultVaccinationTarget = 70.0
	DefaultVariantWindowDays = 30
	MinCorrelationPairs      = 3

	// Loader Warning Throttle
	DefaultWarnRatePerSecond = 5
	DefaultWarnBurst         = 10

	// Operation Timeouts
	DefaultPrepareTimeout = 15 * time.Minute
	DefaultReportTimeout  = 10 * time.Minute

	// File Paths (relative to executable)
	DefaultDataDir    = "data"
	DefaultRawDir     = "data/raw"
	DefaultCleanDir   = "data/clean"
	DefaultReportsDir = "data/reports"
	DefaultLogsDir    = "logs"

	// Well-known Output Files
	CleanDatasetFileName    = "covid_clean.csv"
	SummaryCSVFileName      = "location_summary.csv"
	SummaryJSONFileName     = "location_summary.json"
	TrendsCSVFileName       = "trends.csv"
	MapDataCSVFileName      = "map_data.csv"
	InsightsCSVFileName     = "key_insights.csv"
	WorkbookFileName        = "covid_summary.xlsx"
	RunManifestFileName     = "run_manifest.json"
	MetricsTextfileFileName = "covid_pipeline_metrics.prom"

	// Log Settings
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "json"
	DefaultLogFile    = "logs/covidcli.log"
	MaxLogFileSize    = 100 * 1024 * 1024 // 100MB
	MaxLogFileAge     = 30                // days
	MaxLogFileBackups = 10

	// Error Messages
	ErrMsgInputNotFound  = "Input dataset not found. Place the raw CSV under data/raw or pass -in explicitly."
	ErrMsgSchemaMismatch = "Input dataset is missing required columns. Expected at least 'location' and 'date' headers."
	ErrMsgNoRowsSurvived = "No rows survived the location filter. Check -locations against the dataset."

	// Success Messages
	MsgPrepareComplete = "Data preparation completed successfully."
	MsgReportComplete  = "Report generation completed successfully."
)

// DefaultLocationAllowList is the comparative country set used when no
// explicit allow-list is configured.
var DefaultLocationAllowList = []string{
	"Kenya",
	"United States",
	"India",
	"United Kingdom",
	"Brazil",
	"Germany",
	"South Africa",
}

// DefaultAggregateLocations are pseudo-locations excluded from per-country
// analysis in global mode.
var DefaultAggregateLocations = []string{
	"World",
	"European Union",
	"International",
}

// VariantMarkerDate pairs a variant name with its emergence date.
type VariantMarkerDate struct {
	Name string
	Date string
}

// DefaultVariantMarkers are the variant emergence dates annotated on trend
// analysis, in chronological order.
var DefaultVariantMarkers = []VariantMarkerDate{
	{Name: "Alpha", Date: "2020-12-01"},
	{Name: "Delta", Date: "2021-04-01"},
	{Name: "Omicron", Date: "2021-11-15"},
}

// Feature Flags - compile-time configuration
const (
	// Core Features
	FeatureMetricsEnabled  = true
	FeatureTracingEnabled  = false
	FeatureManifestEnabled = true
	FeatureExcelInput      = true

	// Development Features
	FeatureDebugLoggingEnabled = false
	FeatureVerboseModeEnabled  = false
)

// GetFeatureFlag returns the value of a feature flag
func GetFeatureFlag(flag string) bool {
	switch flag {
	case "metrics":
		return FeatureMetricsEnabled
	case "tracing":
		return FeatureTracingEnabled
	case "manifest":
		return FeatureManifestEnabled
	case "excel_input":
		return FeatureExcelInput
	case "debug_logging":
		return FeatureDebugLoggingEnabled
	case "verbose_mode":
		return FeatureVerboseModeEnabled
	default:
		return false
	}
}
