package exporter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"covidcli/internal/analytics"
	"covidcli/internal/config"
	"covidcli/internal/errors"
	"covidcli/pkg/contracts/domain"
)

// Workbook sheet names.
const (
	SheetSummary     = "Summary"
	SheetTrends      = "Trends"
	SheetVaccination = "Vaccination"
	SheetCorrelation = "Correlation"
)

// WorkbookExporter writes the multi-sheet XLSX summary workbook from an
// analytics report.
type WorkbookExporter struct {
	paths *config.Paths
}

// NewWorkbookExporter creates a new workbook exporter
func NewWorkbookExporter(paths *config.Paths) *WorkbookExporter {
	return &WorkbookExporter{paths: paths}
}

// ExportWorkbook writes Summary, Trends and Vaccination sheets, plus a
// Correlation sheet when the report carries a matrix. Relative paths
// resolve into the reports directory.
func (w *WorkbookExporter) ExportWorkbook(report *analytics.Report, outputPath string) error {
	if report == nil {
		return errors.NewAppValidationError("workbook report is empty")
	}

	fullPath := outputPath
	if !filepath.IsAbs(fullPath) {
		fullPath = w.paths.GetReportPath(fullPath)
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return errors.NewStorageError("failed to create workbook directory", err).
			WithContext("path", fullPath)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetSummary); err != nil {
		return errors.NewStorageError("failed to name summary sheet", err)
	}
	if err := writeSummarySheet(f, report.Summaries); err != nil {
		return err
	}
	if err := writeTrendsSheet(f, report.Trends); err != nil {
		return err
	}
	if err := writeVaccinationSheet(f, report.Progress); err != nil {
		return err
	}
	if report.Correlation != nil {
		if err := writeCorrelationSheet(f, report.Correlation); err != nil {
			return err
		}
	}

	if err := f.SaveAs(fullPath); err != nil {
		return errors.NewStorageError("failed to save workbook", err).
			WithContext("path", fullPath)
	}

	slog.Info("Workbook exported",
		slog.String("path", fullPath),
		slog.Int("summaries", len(report.Summaries)),
		slog.Int("trend_points", len(report.Trends)),
		slog.Bool("correlation", report.Correlation != nil))
	return nil
}

func writeSummarySheet(f *excelize.File, summaries []domain.LocationSummary) error {
	rows := [][]interface{}{{
		"Location", "ISOCode", "LatestDate", "DaysObserved",
		"TotalCases", "TotalDeaths", "TotalVaccinations", "Population",
		"DeathRate", "VaccinatedPercent",
		"PeakNewCases", "PeakNewCasesDate",
		"PeakSmoothedNewCases", "PeakSmoothedNewCasesDate",
	}}
	for _, summary := range summaries {
		rows = append(rows, []interface{}{
			summary.Location,
			summary.ISOCode,
			summary.LatestDate,
			summary.DaysObserved,
			optionalCell(summary.TotalCases),
			optionalCell(summary.TotalDeaths),
			optionalCell(summary.TotalVaccinations),
			optionalCell(summary.Population),
			optionalCell(summary.DeathRate),
			optionalCell(summary.VaccinatedPercent),
			summary.PeakNewCases,
			summary.PeakNewCasesDate,
			summary.PeakSmoothedNewCases,
			summary.PeakSmoothedNewCasesDate,
		})
	}
	if err := writeSheetRows(f, SheetSummary, rows); err != nil {
		return err
	}
	return f.SetColWidth(SheetSummary, "A", "A", 22)
}

func writeTrendsSheet(f *excelize.File, trends []analytics.TrendPoint) error {
	if _, err := f.NewSheet(SheetTrends); err != nil {
		return errors.NewStorageError("failed to create trends sheet", err)
	}
	rows := [][]interface{}{{
		"Location", "Date", "NewCases", "SmoothedNewCases", "NewDeaths", "SmoothedNewDeaths",
	}}
	for _, point := range trends {
		rows = append(rows, []interface{}{
			point.Location,
			formatDate(point.Date),
			point.NewCases,
			point.SmoothedNewCases,
			point.NewDeaths,
			point.SmoothedNewDeaths,
		})
	}
	if err := writeSheetRows(f, SheetTrends, rows); err != nil {
		return err
	}
	return f.SetColWidth(SheetTrends, "A", "B", 18)
}

func writeVaccinationSheet(f *excelize.File, progress []analytics.VaccinationProgress) error {
	if _, err := f.NewSheet(SheetVaccination); err != nil {
		return errors.NewStorageError("failed to create vaccination sheet", err)
	}
	rows := [][]interface{}{{
		"Location", "ISOCode", "AsOf", "Coverage", "Target", "Remaining", "Status",
	}}
	for _, entry := range progress {
		rows = append(rows, []interface{}{
			entry.Location,
			entry.ISOCode,
			entry.AsOf,
			optionalCell(entry.Coverage),
			entry.TargetPercent,
			optionalCell(entry.RemainingPercent),
			entry.Status,
		})
	}
	if err := writeSheetRows(f, SheetVaccination, rows); err != nil {
		return err
	}
	return f.SetColWidth(SheetVaccination, "A", "A", 22)
}

func writeCorrelationSheet(f *excelize.File, matrix *analytics.CorrelationMatrix) error {
	if _, err := f.NewSheet(SheetCorrelation); err != nil {
		return errors.NewStorageError("failed to create correlation sheet", err)
	}

	header := make([]interface{}, 0, len(matrix.Metrics)+1)
	header = append(header, "Metric")
	for _, metric := range matrix.Metrics {
		header = append(header, metric)
	}
	rows := [][]interface{}{header}

	for i, metric := range matrix.Metrics {
		row := make([]interface{}, 0, len(matrix.Metrics)+1)
		row = append(row, metric)
		for j := range matrix.Metrics {
			row = append(row, optionalCell(matrix.Coefficients[i][j]))
		}
		rows = append(rows, row)
	}

	// Footer notes how many locations fed the matrix.
	rows = append(rows, []interface{}{}, []interface{}{"Locations", matrix.Locations})

	if err := writeSheetRows(f, SheetCorrelation, rows); err != nil {
		return err
	}
	return f.SetColWidth(SheetCorrelation, "A", "A", 26)
}

// writeSheetRows writes rows top to bottom starting at A1.
func writeSheetRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i := range rows {
		if len(rows[i]) == 0 {
			continue
		}
		cell := fmt.Sprintf("A%d", i+1)
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return errors.NewStorageError(
				fmt.Sprintf("failed to write %s row %d", sheet, i+1), err)
		}
	}
	return nil
}

// optionalCell maps an absent metric to an empty cell rather than zero.
func optionalCell(p *float64) interface{} {
	if p == nil {
		return ""
	}
	return *p
}
