// Package analytics computes the descriptive statistics of a report run over
// prepared COVID-19 records: rolling averages, peak detection, latest-date
// snapshots, death-rate comparison, vaccination progress, variant-emergence
// impact windows, cross-metric correlation, and narrated key insights.
//
// # Architecture
//
// One Analyzer holds the run configuration (window size, top-N, coverage
// target, variant markers, correlation guard); every method is a pure
// function of its inputs, so a single Analyzer is shared safely across
// goroutines. BuildReport runs the full pass and returns a Report that the
// exporters each read their slice of.
//
//	analyzer := analytics.NewAnalyzer(logger, analytics.DefaultAnalyzerConfig())
//	report, err := analyzer.BuildReport(ctx, clean, raw, summaries)
//	if err != nil {
//	    return err
//	}
//	analytics.WriteTrendsCSV(ctx, trendsPath, report.Trends)
//	analytics.WriteInsightsCSV(ctx, insightsPath, report)
//
// # Inputs
//
// The analytics layer never loads or cleans data itself. It consumes:
//
//   - clean records from the preparation pipeline (trend series, variant
//     windows),
//   - per-location summaries from the summarizer (snapshot, rankings,
//     vaccination progress, insights),
//   - optionally raw records, because correlation needs columns (GDP per
//     capita, human development index) the clean projection drops.
//
// # Absent-Value Policy
//
// Absent inputs produce absent outputs, never fabricated zeros:
//
//   - a location without a death rate is excluded from the rate ranking,
//   - a location without vaccination figures reports the "no data" progress
//     status with a nil coverage,
//   - a correlation cell with fewer than the minimum pairwise-complete
//     observations, or over a constant series, stays nil.
//
// # Rolling Semantics
//
// Trailing means include the current day and average whatever the window
// holds, so the head of a series is smoothed over fewer days instead of
// being dropped. Peaks below zero (locations that only published downward
// corrections) are floored to zero with an empty date.
package analytics
