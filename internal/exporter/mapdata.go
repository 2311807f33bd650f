package exporter

import (
	"log/slog"
	"sort"

	"covidcli/internal/config"
	"covidcli/internal/errors"
	"covidcli/pkg/contracts/domain"
)

// MapDataExporter writes the choropleth input consumed by map renderers:
// one row per ISO country code with the latest reported cumulative cases.
type MapDataExporter struct {
	csvWriter *CSVWriter
}

// NewMapDataExporter creates a new map data exporter
func NewMapDataExporter(paths *config.Paths) *MapDataExporter {
	return &MapDataExporter{
		csvWriter: NewCSVWriter(paths),
	}
}

// mapEntry accumulates the latest reported values for one ISO code.
type mapEntry struct {
	isoCode    string
	location   string
	totalCases *float64
	population *float64
}

// ExportMapData writes a CSV keyed by ISO code from raw records, returning
// the number of countries written. Callers pass the globally scoped dataset
// with aggregates already excluded; rows without an ISO code cannot key a
// map region and are skipped. The latest reported value per metric is taken
// independently, so a trailing row that omits total_cases never blanks a
// country.
func (m *MapDataExporter) ExportMapData(records []domain.Record, outputPath string) (int, error) {
	entries, skipped := latestByISOCode(records)

	csvRecords := make([][]string, 0, len(entries))
	for _, entry := range entries {
		csvRecords = append(csvRecords, []string{
			entry.isoCode,
			entry.location,
			formatOptionalCount(entry.totalCases),
			formatCasesPerMillion(entry.totalCases, entry.population),
		})
	}

	headers := []string{config.ColISOCode, config.ColLocation, config.ColTotalCases, "cases_per_million"}
	if err := m.csvWriter.WriteSimpleCSV(outputPath, headers, csvRecords); err != nil {
		return 0, errors.NewStorageError("failed to write map data", err).
			WithContext("path", outputPath)
	}

	slog.Info("Map data exported",
		slog.String("path", outputPath),
		slog.Int("countries", len(entries)),
		slog.Int("rows_without_iso_code", skipped))
	return len(entries), nil
}

// latestByISOCode groups records by ISO code and scans each group backwards
// in time for the latest reported total_cases and population. Returns the
// entries ordered by ISO code and the count of rows skipped for carrying no
// code.
func latestByISOCode(records []domain.Record) ([]mapEntry, int) {
	grouped := make(map[string][]domain.Record)
	skipped := 0
	for _, record := range records {
		if record.ISOCode == "" {
			skipped++
			continue
		}
		grouped[record.ISOCode] = append(grouped[record.ISOCode], record)
	}

	codes := make([]string, 0, len(grouped))
	for code := range grouped {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	entries := make([]mapEntry, 0, len(codes))
	for _, code := range codes {
		group := grouped[code]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Date.Before(group[j].Date)
		})

		entry := mapEntry{isoCode: code, location: group[len(group)-1].Location}
		for i := len(group) - 1; i >= 0; i-- {
			if entry.totalCases == nil && group[i].TotalCases != nil {
				entry.totalCases = group[i].TotalCases
			}
			if entry.population == nil && group[i].Population != nil {
				entry.population = group[i].Population
			}
			if entry.totalCases != nil && entry.population != nil {
				break
			}
		}
		entries = append(entries, entry)
	}
	return entries, skipped
}

// formatCasesPerMillion derives the population-normalized figure when both
// inputs are known and the population is positive; otherwise the cell stays
// empty.
func formatCasesPerMillion(totalCases, population *float64) string {
	cases, ok := domain.FloatValue(totalCases)
	if !ok {
		return ""
	}
	pop, ok := domain.FloatValue(population)
	if !ok || pop <= 0 {
		return ""
	}
	return formatFloat(cases / pop * 1_000_000)
}
