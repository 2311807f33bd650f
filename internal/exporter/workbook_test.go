package exporter

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"covidcli/internal/analytics"
	"covidcli/internal/errors"
	"covidcli/pkg/contracts/domain"
)

func workbookReport() *analytics.Report {
	return &analytics.Report{
		GeneratedAt: time.Now().UTC(),
		Window:      7,
		Summaries: []domain.LocationSummary{
			{
				Location:                 "Kenya",
				ISOCode:                  "KEN",
				LatestDate:               "2021-11-30",
				DaysObserved:             3,
				TotalCases:               domain.Float(254000),
				TotalDeaths:              domain.Float(5300),
				Population:               domain.Float(50800000),
				DeathRate:                domain.Float(2.09),
				PeakNewCases:             900,
				PeakNewCasesDate:         "2021-08-15",
				PeakSmoothedNewCases:     750.5,
				PeakSmoothedNewCasesDate: "2021-08-17",
			},
		},
		Trends: []analytics.TrendPoint{
			{Location: "Kenya", Date: day("2021-11-29"),
				NewCases: 100, SmoothedNewCases: 95.5, NewDeaths: 2, SmoothedNewDeaths: 1.5},
			{Location: "Kenya", Date: day("2021-11-30"),
				NewCases: 120, SmoothedNewCases: 101.2, NewDeaths: 1, SmoothedNewDeaths: 1.4},
		},
		Progress: []analytics.VaccinationProgress{
			{Location: "Kenya", ISOCode: "KEN", AsOf: "2021-11-30",
				Coverage: domain.Float(84.5), TargetPercent: 70,
				Status: analytics.ProgressStatusReached},
			{Location: "Tonga", AsOf: "2021-11-30", TargetPercent: 70,
				Status: analytics.ProgressStatusNoData},
		},
		Correlation: &analytics.CorrelationMatrix{
			Metrics: []string{"total_cases", "total_deaths"},
			Coefficients: [][]*float64{
				{domain.Float(1), domain.Float(0.98)},
				{domain.Float(0.98), domain.Float(1)},
			},
			SamplePairs: [][]int{{5, 5}, {5, 5}},
			Locations:   5,
		},
	}
}

func TestWorkbookExporter_ExportWorkbook(t *testing.T) {
	_, paths := setupTestEnv(t)
	exporter := NewWorkbookExporter(paths)

	outputPath := filepath.Join(paths.ReportsDir, "covid_summary.xlsx")
	require.NoError(t, exporter.ExportWorkbook(workbookReport(), outputPath))

	f, err := excelize.OpenFile(outputPath)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetSummary, SheetTrends, SheetVaccination, SheetCorrelation},
		f.GetSheetList())

	cell := func(sheet, axis string) string {
		value, err := f.GetCellValue(sheet, axis)
		require.NoError(t, err)
		return value
	}

	// Summary sheet mirrors the location summary CSV layout.
	assert.Equal(t, "Location", cell(SheetSummary, "A1"))
	assert.Equal(t, "Kenya", cell(SheetSummary, "A2"))
	assert.Equal(t, "KEN", cell(SheetSummary, "B2"))
	assert.Equal(t, "254000", cell(SheetSummary, "E2"))
	assert.Equal(t, "2.09", cell(SheetSummary, "I2"))
	assert.Equal(t, "", cell(SheetSummary, "G2"), "absent total_vaccinations stays empty")
	assert.Equal(t, "", cell(SheetSummary, "J2"), "absent vaccinated_percent stays empty")
	assert.Equal(t, "900", cell(SheetSummary, "K2"))
	assert.Equal(t, "750.5", cell(SheetSummary, "M2"))

	// Trends sheet carries one row per (location, date).
	assert.Equal(t, "Date", cell(SheetTrends, "B1"))
	assert.Equal(t, "2021-11-29", cell(SheetTrends, "B2"))
	assert.Equal(t, "100", cell(SheetTrends, "C2"))
	assert.Equal(t, "95.5", cell(SheetTrends, "D2"))
	assert.Equal(t, "101.2", cell(SheetTrends, "D3"))

	// Vaccination sheet keeps the no-data row with empty coverage.
	assert.Equal(t, "84.5", cell(SheetVaccination, "D2"))
	assert.Equal(t, "reached", cell(SheetVaccination, "G2"))
	assert.Equal(t, "", cell(SheetVaccination, "D3"))
	assert.Equal(t, "no data", cell(SheetVaccination, "G3"))

	// Correlation sheet: symmetric matrix plus the locations footer.
	assert.Equal(t, "Metric", cell(SheetCorrelation, "A1"))
	assert.Equal(t, "total_cases", cell(SheetCorrelation, "B1"))
	assert.Equal(t, "1", cell(SheetCorrelation, "B2"))
	assert.Equal(t, "0.98", cell(SheetCorrelation, "C2"))
	assert.Equal(t, "0.98", cell(SheetCorrelation, "B3"))
	assert.Equal(t, "Locations", cell(SheetCorrelation, "A5"))
	assert.Equal(t, "5", cell(SheetCorrelation, "B5"))
}

func TestWorkbookExporter_WithoutCorrelation(t *testing.T) {
	_, paths := setupTestEnv(t)
	exporter := NewWorkbookExporter(paths)

	report := workbookReport()
	report.Correlation = nil

	outputPath := filepath.Join(paths.ReportsDir, "covid_summary.xlsx")
	require.NoError(t, exporter.ExportWorkbook(report, outputPath))

	f, err := excelize.OpenFile(outputPath)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetSummary, SheetTrends, SheetVaccination}, f.GetSheetList())
}

func TestWorkbookExporter_NilReport(t *testing.T) {
	_, paths := setupTestEnv(t)
	exporter := NewWorkbookExporter(paths)

	err := exporter.ExportWorkbook(nil, filepath.Join(paths.ReportsDir, "covid_summary.xlsx"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))
}

func TestWorkbookExporter_RelativePathResolvesToReports(t *testing.T) {
	_, paths := setupTestEnv(t)
	exporter := NewWorkbookExporter(paths)

	require.NoError(t, exporter.ExportWorkbook(workbookReport(), "covid_summary.xlsx"))
	assert.FileExists(t, paths.GetReportPath("covid_summary.xlsx"))
}

func TestWorkbookExporter_AbsentCorrelationCellStaysEmpty(t *testing.T) {
	_, paths := setupTestEnv(t)
	exporter := NewWorkbookExporter(paths)

	report := workbookReport()
	report.Correlation.Coefficients[0][1] = nil
	report.Correlation.Coefficients[1][0] = nil

	outputPath := filepath.Join(paths.ReportsDir, "covid_summary.xlsx")
	require.NoError(t, exporter.ExportWorkbook(report, outputPath))

	f, err := excelize.OpenFile(outputPath)
	require.NoError(t, err)
	defer f.Close()

	value, err := f.GetCellValue(SheetCorrelation, "C2")
	require.NoError(t, err)
	assert.Equal(t, "", value, "an undefined coefficient must not surface as zero")
}
