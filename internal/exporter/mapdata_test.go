package exporter

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"covidcli/pkg/contracts/domain"
)

func rawMapFixture() []domain.Record {
	return []domain.Record{
		// Kenya's trailing day omits total_cases; the exporter scans back.
		{ISOCode: "KEN", Location: "Kenya", Date: day("2021-11-29"),
			TotalCases: domain.Float(254000), Population: domain.Float(50800000)},
		{ISOCode: "KEN", Location: "Kenya", Date: day("2021-11-30")},
		{ISOCode: "BRA", Location: "Brazil", Date: day("2021-11-30"),
			TotalCases: domain.Float(21200000), Population: domain.Float(212000000)},
		// Tonga never reported a population.
		{ISOCode: "TON", Location: "Tonga", Date: day("2021-11-30"),
			TotalCases: domain.Float(1000)},
		// No ISO code: cannot key a map region.
		{Location: "Northern Cyprus", Date: day("2021-11-30"),
			TotalCases: domain.Float(5000)},
	}
}

func TestMapDataExporter_ExportMapData(t *testing.T) {
	_, paths := setupTestEnv(t)
	exporter := NewMapDataExporter(paths)

	outputPath := filepath.Join(paths.ReportsDir, "map_data.csv")
	countries, err := exporter.ExportMapData(rawMapFixture(), outputPath)
	require.NoError(t, err)
	assert.Equal(t, 3, countries)

	rows := readCSVFile(t, outputPath)
	require.Len(t, rows, 4, "three keyed countries; the ISO-less row is skipped")
	assert.Equal(t, []string{"iso_code", "location", "total_cases", "cases_per_million"}, rows[0])

	// Ordered by ISO code.
	assert.Equal(t, "BRA", rows[1][0])
	assert.Equal(t, "KEN", rows[2][0])
	assert.Equal(t, "TON", rows[3][0])

	assert.Equal(t, []string{"BRA", "Brazil", "21200000", "100000.00"}, rows[1])
	assert.Equal(t, []string{"KEN", "Kenya", "254000", "5000.00"}, rows[2])

	// Without a population the normalized column stays empty.
	assert.Equal(t, []string{"TON", "Tonga", "1000", ""}, rows[3])
}

func TestMapDataExporter_LatestValuesScanBackwards(t *testing.T) {
	_, paths := setupTestEnv(t)
	exporter := NewMapDataExporter(paths)

	records := []domain.Record{
		{ISOCode: "KEN", Location: "Kenya", Date: day("2021-11-28"),
			TotalCases: domain.Float(250000)},
		{ISOCode: "KEN", Location: "Kenya", Date: day("2021-11-29"),
			Population: domain.Float(50800000)},
		{ISOCode: "KEN", Location: "Kenya", Date: day("2021-11-30")},
	}

	outputPath := filepath.Join(paths.ReportsDir, "map_data.csv")
	_, err := exporter.ExportMapData(records, outputPath)
	require.NoError(t, err)

	rows := readCSVFile(t, outputPath)
	require.Len(t, rows, 2)

	// Cases come from the 28th, population from the 29th: each metric
	// takes its own latest reported value.
	assert.Equal(t, "250000", rows[1][2])
	expected := 250000.0 / 50800000.0 * 1_000_000
	assert.Equal(t, formatFloat(expected), rows[1][3])
}

func TestMapDataExporter_UnsortedInput(t *testing.T) {
	_, paths := setupTestEnv(t)
	exporter := NewMapDataExporter(paths)

	// The newer row arrives first; grouping must sort by date before the
	// backward scan.
	records := []domain.Record{
		{ISOCode: "KEN", Location: "Kenya", Date: day("2021-11-30"),
			TotalCases: domain.Float(254000)},
		{ISOCode: "KEN", Location: "Kenya", Date: day("2021-11-01"),
			TotalCases: domain.Float(200000)},
	}

	outputPath := filepath.Join(paths.ReportsDir, "map_data.csv")
	_, err := exporter.ExportMapData(records, outputPath)
	require.NoError(t, err)

	rows := readCSVFile(t, outputPath)
	require.Len(t, rows, 2)
	assert.Equal(t, "254000", rows[1][2])
}

func TestMapDataExporter_NoRecords(t *testing.T) {
	_, paths := setupTestEnv(t)
	exporter := NewMapDataExporter(paths)

	outputPath := filepath.Join(paths.ReportsDir, "map_data.csv")
	countries, err := exporter.ExportMapData(nil, outputPath)
	require.NoError(t, err)
	assert.Zero(t, countries)

	rows := readCSVFile(t, outputPath)
	require.Len(t, rows, 1, "header row only")
}
