// Package dataprocessing prepares raw COVID-19 observations for reporting.
// It consolidates dataset loading, the preparation pipeline, and location
// summary generation so every downstream consumer works from the same clean
// rows and the same per-location figures.
//
// # Architecture
//
// The package is organized into three components:
//
//  1. Loader: reads the raw dataset (CSV or XLSX) into records
//  2. Pipeline: filters, normalizes, fills, derives, and projects
//  3. Summarizer: builds the per-location summary contract
//
// # Usage
//
// Loading and preparing a dataset:
//
//	loader := dataprocessing.NewLoader(logger, dataprocessing.DefaultLoaderConfig())
//	records, _, err := loader.Load(ctx, "data/raw/owid-covid-data.csv")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	clean, stats, err := dataprocessing.Prepare(ctx, records, filter, dataprocessing.DefaultOptions())
//
// Summarizing the clean rows:
//
//	summarizer := dataprocessing.NewSummarizer(logger, dataprocessing.DefaultSummarizerConfig())
//	summaries, err := summarizer.GenerateFromRecords(ctx, clean)
//
// # Missing-Values Policy
//
// The raw dataset reports many cells as empty: a day without a vaccination
// figure, a country that never reports GDP, a week-old location with no
// death yet. The pipeline never conflates these absences with zero. The
// policy, applied in this order within each location's date-ordered rows:
//
//   - new_cases / new_deaths: an absent daily delta is reconstructed as the
//     first difference of the corresponding cumulative total. The first row
//     (and any row before a cumulative value has been seen) diffs to zero.
//     Deltas present in the source are kept verbatim.
//   - total_vaccinations: an absent value repeats the last reported one.
//     The fill never crosses into another location, and rows before the
//     first reported value stay absent.
//   - death_rate / vaccinated_percent: derived only where the denominator
//     is present and positive; otherwise the value stays absent. A zero
//     denominator is an absent rate, never a division, NaN, or Inf.
//   - everything else (population, gdp_per_capita, ...): absent stays
//     absent. No imputation.
//
// # Data Flow
//
// The typical flow through this package:
//
//	CSV/XLSX file → Loader → Records → Pipeline → CleanRecords → Summarizer → LocationSummaries
//
// # Error Handling
//
// The loader types its failures: DATA_LOAD when the source cannot be read,
// SCHEMA when the location/date headers are missing. Cell-level problems are
// not errors — malformed numeric cells degrade to absent values and are
// counted in the load statistics.
package dataprocessing
