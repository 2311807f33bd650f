package dataprocessing

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"covidcli/internal/config"
	"covidcli/internal/errors"
	"covidcli/pkg/contracts/domain"
)

// Summarizer is the single source of truth for per-location summaries.
// Every consumer of per-location reporting data — the report CLI, the
// exporters, the insights builder — works from the summaries produced here,
// so the latest-date snapshot and the peak statistics are computed once.
type Summarizer struct {
	logger        *slog.Logger
	rollingWindow int
	dateFormat    string
	dataSource    string
}

// SummarizerConfig holds configuration options for the Summarizer.
type SummarizerConfig struct {
	// RollingWindow is the trailing-mean window used for the smoothed
	// new-case peak.
	RollingWindow int

	// DateFormat is the layout for date strings in summaries.
	DateFormat string

	// DataSource names the dataset the summaries are derived from; it is
	// carried into every summary for provenance.
	DataSource string
}

// DefaultSummarizerConfig returns a default configuration.
func DefaultSummarizerConfig() SummarizerConfig {
	return SummarizerConfig{
		RollingWindow: config.DefaultRollingWindow,
		DateFormat:    domain.DateFormat,
	}
}

// NewSummarizer creates a location summarizer.
func NewSummarizer(logger *slog.Logger, cfg SummarizerConfig) *Summarizer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RollingWindow <= 0 {
		cfg.RollingWindow = config.DefaultRollingWindow
	}
	if cfg.DateFormat == "" {
		cfg.DateFormat = domain.DateFormat
	}
	return &Summarizer{
		logger:        logger,
		rollingWindow: cfg.RollingWindow,
		dateFormat:    cfg.DateFormat,
		dataSource:    cfg.DataSource,
	}
}

// GenerateFromRecords builds one LocationSummary per location from clean
// records. Latest metric values are the last reported ones, scanned
// backwards per metric so a trailing absent cell does not blank a figure
// reported the day before.
func (s *Summarizer) GenerateFromRecords(ctx context.Context, records []domain.CleanRecord) ([]domain.LocationSummary, error) {
	s.logger.InfoContext(ctx, "generating location summaries",
		slog.Int("record_count", len(records)))

	if len(records) == 0 {
		return []domain.LocationSummary{}, nil
	}

	grouped := s.groupByLocation(records)

	summaries := make([]domain.LocationSummary, 0, len(grouped))
	for location, group := range grouped {
		summary, err := s.summarizeLocation(location, group)
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to summarize location",
				slog.String("location", location),
				slog.String("error", err.Error()))
			return nil, fmt.Errorf("summarize location %s: %w", location, err)
		}
		summaries = append(summaries, *summary)
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Location < summaries[j].Location
	})

	s.logger.InfoContext(ctx, "location summaries generated",
		slog.Int("location_count", len(summaries)))

	return summaries, nil
}

// WriteCSV writes summaries to a CSV file in the standard column order.
func (s *Summarizer) WriteCSV(ctx context.Context, path string, summaries []domain.LocationSummary) error {
	s.logger.InfoContext(ctx, "writing location summaries to CSV",
		slog.String("path", path),
		slog.Int("summary_count", len(summaries)))

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.NewStorageError("failed to create directory for summary CSV", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return errors.NewStorageError("failed to create summary CSV file", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"Location", "ISOCode", "LatestDate", "DaysObserved",
		"TotalCases", "TotalDeaths", "TotalVaccinations", "Population",
		"DeathRate", "VaccinatedPercent",
		"PeakNewCases", "PeakNewCasesDate",
		"PeakSmoothedNewCases", "PeakSmoothedNewCasesDate",
	}
	if err := writer.Write(header); err != nil {
		return errors.NewStorageError("failed to write summary CSV header", err)
	}

	for _, summary := range summaries {
		row := []string{
			summary.Location,
			summary.ISOCode,
			summary.LatestDate,
			fmt.Sprintf("%d", summary.DaysObserved),
			formatOptionalTotal(summary.TotalCases),
			formatOptionalTotal(summary.TotalDeaths),
			formatOptionalTotal(summary.TotalVaccinations),
			formatOptionalTotal(summary.Population),
			formatOptionalRate(summary.DeathRate),
			formatOptionalRate(summary.VaccinatedPercent),
			fmt.Sprintf("%.0f", summary.PeakNewCases),
			summary.PeakNewCasesDate,
			fmt.Sprintf("%.2f", summary.PeakSmoothedNewCases),
			summary.PeakSmoothedNewCasesDate,
		}
		if err := writer.Write(row); err != nil {
			return errors.NewStorageError("failed to write summary CSV row", err)
		}
	}

	s.logger.InfoContext(ctx, "location summaries written to CSV",
		slog.String("path", path))

	return nil
}

// WriteJSON writes summaries to a JSON file with document metadata.
func (s *Summarizer) WriteJSON(ctx context.Context, path string, summaries []domain.LocationSummary) error {
	s.logger.InfoContext(ctx, "writing location summaries to JSON",
		slog.String("path", path),
		slog.Int("summary_count", len(summaries)))

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.NewStorageError("failed to create directory for summary JSON", err)
	}

	document := map[string]interface{}{
		"locations":    summaries,
		"count":        len(summaries),
		"generated_at": time.Now().Format(time.RFC3339),
		"format":       "location_summary_v1",
	}
	if s.dataSource != "" {
		document["data_source"] = s.dataSource
	}

	file, err := os.Create(path)
	if err != nil {
		return errors.NewStorageError("failed to create summary JSON file", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(document); err != nil {
		return errors.NewStorageError("failed to encode summaries to JSON", err)
	}

	s.logger.InfoContext(ctx, "location summaries written to JSON",
		slog.String("path", path))

	return nil
}

// groupByLocation groups clean records by location name.
func (s *Summarizer) groupByLocation(records []domain.CleanRecord) map[string][]domain.CleanRecord {
	grouped := make(map[string][]domain.CleanRecord)
	for _, record := range records {
		location := strings.TrimSpace(record.Location)
		if location == "" {
			continue
		}
		grouped[location] = append(grouped[location], record)
	}
	return grouped
}

// summarizeLocation builds the summary for a single location.
func (s *Summarizer) summarizeLocation(location string, records []domain.CleanRecord) (*domain.LocationSummary, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("no records provided for location %s", location)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Date.Before(records[j].Date)
	})

	latest := records[len(records)-1]

	summary, err := domain.NewLocationSummary(location, isoCodeOf(records), latest.Date.Format(s.dateFormat), len(records))
	if err != nil {
		return nil, err
	}
	summary.DataSource = s.dataSource

	summary.TotalCases = lastPresent(records, func(r domain.CleanRecord) *float64 { return r.TotalCases })
	summary.TotalDeaths = lastPresent(records, func(r domain.CleanRecord) *float64 { return r.TotalDeaths })
	summary.TotalVaccinations = lastPresent(records, func(r domain.CleanRecord) *float64 { return r.TotalVaccinations })
	summary.Population = lastPresent(records, func(r domain.CleanRecord) *float64 { return r.Population })
	summary.DeathRate = lastPresent(records, func(r domain.CleanRecord) *float64 { return r.DeathRate })
	summary.VaccinatedPercent = lastPresent(records, func(r domain.CleanRecord) *float64 { return r.VaccinatedPercent })

	s.annotatePeaks(summary, records)

	if err := domain.ValidateLocationSummary(summary); err != nil {
		return nil, err
	}

	return summary, nil
}

// annotatePeaks fills the raw and smoothed new-case peaks. Ties keep the
// earliest date.
func (s *Summarizer) annotatePeaks(summary *domain.LocationSummary, records []domain.CleanRecord) {
	window := make([]float64, 0, s.rollingWindow)
	windowSum := 0.0

	for i, record := range records {
		if i == 0 || record.NewCases > summary.PeakNewCases {
			summary.PeakNewCases = record.NewCases
			summary.PeakNewCasesDate = record.Date.Format(s.dateFormat)
		}

		// Trailing mean over the last rollingWindow values; shorter
		// prefixes average what exists.
		window = append(window, record.NewCases)
		windowSum += record.NewCases
		if len(window) > s.rollingWindow {
			windowSum -= window[0]
			window = window[1:]
		}
		smoothed := windowSum / float64(len(window))

		if i == 0 || smoothed > summary.PeakSmoothedNewCases {
			summary.PeakSmoothedNewCases = smoothed
			summary.PeakSmoothedNewCasesDate = record.Date.Format(s.dateFormat)
		}
	}

	// Negative peaks can only come from all-negative corrections; the
	// summary contract floors them at zero.
	if summary.PeakNewCases < 0 {
		summary.PeakNewCases = 0
		summary.PeakNewCasesDate = ""
	}
	if summary.PeakSmoothedNewCases < 0 {
		summary.PeakSmoothedNewCases = 0
		summary.PeakSmoothedNewCasesDate = ""
	}
}

// isoCodeOf returns the first non-empty ISO code in the group.
func isoCodeOf(records []domain.CleanRecord) string {
	for _, record := range records {
		if code := strings.TrimSpace(record.ISOCode); code != "" {
			return code
		}
	}
	return ""
}

// lastPresent scans backwards for the most recent reported value of one
// metric, copying it so the summary does not alias the record.
func lastPresent(records []domain.CleanRecord, metric func(domain.CleanRecord) *float64) *float64 {
	for i := len(records) - 1; i >= 0; i-- {
		if value := metric(records[i]); value != nil {
			out := *value
			return &out
		}
	}
	return nil
}

// formatOptionalTotal renders a cumulative figure, empty when absent.
func formatOptionalTotal(value *float64) string {
	if value == nil {
		return ""
	}
	return fmt.Sprintf("%.0f", *value)
}

// formatOptionalRate renders a rate with two decimals, empty when absent.
func formatOptionalRate(value *float64) string {
	if value == nil {
		return ""
	}
	return fmt.Sprintf("%.2f", *value)
}
