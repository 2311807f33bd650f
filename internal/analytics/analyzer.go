package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"covidcli/pkg/contracts/domain"
)

// Analyzer computes the descriptive statistics of a report run from prepared
// records. It holds configuration only; every method is a pure function of
// its inputs, so one Analyzer is safe to share across goroutines.
type Analyzer struct {
	window       int
	topN         int
	target       float64
	variantDays  int
	minCorrPairs int
	markers      []VariantMarker
	logger       *slog.Logger
}

// NewAnalyzer creates an analyzer with the specified configuration.
// Non-positive or missing values fall back to the defaults.
func NewAnalyzer(logger *slog.Logger, cfg AnalyzerConfig) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}

	defaults := DefaultAnalyzerConfig()
	if cfg.RollingWindow <= 0 {
		cfg.RollingWindow = defaults.RollingWindow
	}
	if cfg.TopN <= 0 {
		cfg.TopN = defaults.TopN
	}
	if cfg.VaccinationTarget <= 0 {
		cfg.VaccinationTarget = defaults.VaccinationTarget
	}
	if cfg.VariantWindowDays <= 0 {
		cfg.VariantWindowDays = defaults.VariantWindowDays
	}
	if cfg.MinCorrelationPairs < 2 {
		cfg.MinCorrelationPairs = defaults.MinCorrelationPairs
	}
	if cfg.Markers == nil {
		cfg.Markers = defaults.Markers
	}

	return &Analyzer{
		window:       cfg.RollingWindow,
		topN:         cfg.TopN,
		target:       cfg.VaccinationTarget,
		variantDays:  cfg.VariantWindowDays,
		minCorrPairs: cfg.MinCorrelationPairs,
		markers:      cfg.Markers,
		logger:       logger,
	}
}

// Window returns the configured trailing-mean window in days.
func (a *Analyzer) Window() int {
	return a.window
}

// BuildReport runs the full analytics pass over prepared records and the
// per-location summaries derived from them. raw is optional: when present it
// feeds the cross-metric correlation, which needs columns (GDP per capita,
// human development index) the clean projection drops.
//
// The inputs are read, never mutated; the returned report owns all of its
// slices.
func (a *Analyzer) BuildReport(ctx context.Context, clean []domain.CleanRecord, raw []domain.Record, summaries []domain.LocationSummary) (*Report, error) {
	start := time.Now()

	if len(clean) == 0 {
		return nil, fmt.Errorf("no clean records to analyze")
	}

	a.logger.InfoContext(ctx, "building analytics report",
		slog.Int("clean_records", len(clean)),
		slog.Int("raw_records", len(raw)),
		slog.Int("locations", len(summaries)),
		slog.Int("window", a.window),
	)

	report := &Report{
		GeneratedAt: time.Now().UTC(),
		Window:      a.window,
		Summaries:   summaries,
	}

	sections := []struct {
		name string
		fn   func()
	}{
		{"trends", func() { report.Trends = a.RollingAverages(clean) }},
		{"peaks", func() { report.Peaks = a.DetectPeaks(report.Trends) }},
		{"snapshot", func() { report.Snapshot = a.LatestSnapshot(summaries) }},
		{"death_rates", func() { report.DeathRates = a.DeathRateComparison(summaries) }},
		{"progress", func() { report.Progress = a.VaccinationProgress(summaries) }},
		{"variants", func() { report.Variants = a.VariantImpacts(report.Trends) }},
		{"correlation", func() {
			if len(raw) > 0 {
				report.Correlation = a.Correlation(raw)
			}
		}},
		{"insights", func() {
			report.Insights = a.BuildInsights(summaries, report.Trends, report.Progress)
		}},
	}

	for _, section := range sections {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("analytics cancelled before %s: %w", section.name, ctx.Err())
		default:
		}
		section.fn()
	}

	a.logger.InfoContext(ctx, "analytics report built",
		slog.Int("trend_points", len(report.Trends)),
		slog.Int("variant_impacts", len(report.Variants)),
		slog.Bool("correlation", report.Correlation != nil),
		slog.Duration("duration", time.Since(start)),
	)

	return report, nil
}
