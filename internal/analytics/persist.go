package analytics

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"covidcli/internal/errors"
	"covidcli/pkg/contracts/domain"
)

// WriteTrendsCSV saves the trend series to a CSV file, one row per
// (location, date) point.
func WriteTrendsCSV(ctx context.Context, path string, trends []TrendPoint) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.NewStorageError("failed to create trends directory", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return errors.NewStorageError("failed to create trends CSV file", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"Location", "Date", "NewCases", "SmoothedNewCases", "NewDeaths", "SmoothedNewDeaths"}
	if err := writer.Write(header); err != nil {
		return errors.NewStorageError("failed to write trends CSV header", err)
	}

	for _, point := range trends {
		row := []string{
			point.Location,
			point.Date.Format(domain.DateFormat),
			formatFloat(point.NewCases, 0),
			formatFloat(point.SmoothedNewCases, 2),
			formatFloat(point.NewDeaths, 0),
			formatFloat(point.SmoothedNewDeaths, 2),
		}
		if err := writer.Write(row); err != nil {
			return errors.NewStorageError(fmt.Sprintf("failed to write trends row for %s", point.Location), err)
		}
	}

	slog.Default().InfoContext(ctx, "trend series written",
		slog.String("path", path),
		slog.Int("points", len(trends)))

	return nil
}

// WriteInsightsCSV saves the report's findings as a sectioned CSV: a
// metadata block, the narrative lines, then the ranked tables. The layout is
// meant to open cleanly in a spreadsheet, with blank rows between sections.
func WriteInsightsCSV(ctx context.Context, path string, report *Report) error {
	if report == nil || report.Insights == nil {
		return errors.NewAppValidationError("insights report is empty")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.NewStorageError("failed to create insights directory", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return errors.NewStorageError("failed to create insights CSV file", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	insights := report.Insights

	writer.Write([]string{"COVID-19 Key Insights Report"})
	writer.Write([]string{"Generated:", insights.GeneratedAt.Format("2006-01-02 15:04:05")})
	writer.Write([]string{"As Of:", report.Snapshot.AsOf})
	writer.Write([]string{"Locations:", strconv.Itoa(insights.LocationCount)})
	writer.Write([]string{"Rolling Window (days):", strconv.Itoa(insights.Window)})
	writer.Write([]string{"Combined Total Cases:", formatFloat(insights.CombinedTotalCases, 0)})
	writer.Write([]string{"Combined Total Deaths:", formatFloat(insights.CombinedTotalDeaths, 0)})
	writer.Write([]string{""})

	writer.Write([]string{"KEY INSIGHTS"})
	for i, line := range insights.Lines {
		writer.Write([]string{strconv.Itoa(i + 1), line})
	}
	writer.Write([]string{""})

	writer.Write([]string{"TOP LOCATIONS BY TOTAL CASES"})
	writer.Write([]string{"Rank", "Location", "ISOCode", "TotalCases", "TotalDeaths", "DeathRate"})
	for i, summary := range report.Snapshot.TopByCases {
		writer.Write([]string{
			strconv.Itoa(i + 1),
			summary.Location,
			summary.ISOCode,
			formatOptional(summary.TotalCases, 0),
			formatOptional(summary.TotalDeaths, 0),
			formatOptional(summary.DeathRate, 2),
		})
	}
	writer.Write([]string{""})

	writer.Write([]string{"DEATH RATE COMPARISON"})
	writer.Write([]string{"Rank", "Location", "DeathRate", "TotalCases", "TotalDeaths"})
	for _, entry := range report.DeathRates {
		writer.Write([]string{
			strconv.Itoa(entry.Rank),
			entry.Location,
			formatFloat(entry.DeathRate, 2),
			formatOptional(entry.TotalCases, 0),
			formatOptional(entry.TotalDeaths, 0),
		})
	}
	writer.Write([]string{""})

	writer.Write([]string{"VACCINATION PROGRESS"})
	writer.Write([]string{"Location", "Coverage", "Target", "Remaining", "Status"})
	for _, entry := range report.Progress {
		writer.Write([]string{
			entry.Location,
			formatOptional(entry.Coverage, 1),
			formatFloat(entry.TargetPercent, 0),
			formatOptional(entry.RemainingPercent, 1),
			entry.Status,
		})
	}

	if len(report.Variants) > 0 {
		writer.Write([]string{""})
		writer.Write([]string{"VARIANT IMPACT"})
		writer.Write([]string{"Variant", "Emergence", "Location", "AvgBefore", "AvgAfter", "ChangeFactor", "PeakAfter", "PeakAfterDate"})
		for _, impact := range report.Variants {
			writer.Write([]string{
				impact.Variant,
				impact.EmergenceDate.Format(domain.DateFormat),
				impact.Location,
				formatFloat(impact.AvgBefore, 2),
				formatFloat(impact.AvgAfter, 2),
				formatOptional(impact.ChangeFactor, 2),
				formatFloat(impact.PeakAfter, 2),
				formatDate(impact.PeakAfterDate),
			})
		}
	}

	if err := writer.Error(); err != nil {
		return errors.NewStorageError("failed to write insights CSV", err)
	}

	slog.Default().InfoContext(ctx, "key insights written",
		slog.String("path", path),
		slog.Int("lines", len(insights.Lines)))

	return nil
}

// formatFloat formats a value for CSV output with the given precision.
func formatFloat(value float64, precision int) string {
	return strconv.FormatFloat(value, 'f', precision, 64)
}

// formatOptional renders an absent value as an empty cell.
func formatOptional(value *float64, precision int) string {
	if value == nil {
		return ""
	}
	return formatFloat(*value, precision)
}

// formatDate renders a zero time as an empty cell.
func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(domain.DateFormat)
}
