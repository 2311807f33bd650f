package exporter

import (
	"fmt"
	"sort"

	"covidcli/internal/config"
	"covidcli/internal/errors"
	"covidcli/pkg/contracts/domain"
)

// CleanExporter writes the prepared dataset produced by the pipeline.
type CleanExporter struct {
	csvWriter *CSVWriter
}

// NewCleanExporter creates a new clean dataset exporter
func NewCleanExporter(paths *config.Paths) *CleanExporter {
	return &CleanExporter{
		csvWriter: NewCSVWriter(paths),
	}
}

// CleanHeaders returns the documented column set of the clean dataset, in
// output order.
func CleanHeaders() []string {
	return []string{
		config.ColISOCode, config.ColLocation, config.ColDate,
		config.ColTotalCases, config.ColNewCases,
		config.ColTotalDeaths, config.ColNewDeaths,
		config.ColTotalVaccinations, config.ColPopulation,
		config.ColDeathRate, config.ColVaccinatedPercent,
	}
}

// ExportCSV writes all clean records to a single CSV file, ordered by
// location then date. The input slice is never reordered or modified.
func (e *CleanExporter) ExportCSV(records []domain.CleanRecord, outputPath string) error {
	ordered := orderForExport(records)

	csvRecords := make([][]string, 0, len(ordered))
	for _, record := range ordered {
		csvRecords = append(csvRecords, recordToCSVRow(record))
	}

	if err := e.csvWriter.WriteSimpleCSV(outputPath, CleanHeaders(), csvRecords); err != nil {
		return errors.NewStorageError("failed to write clean dataset", err).
			WithContext("path", outputPath)
	}
	return nil
}

// ExportCSVStreaming writes clean records through a streaming writer, one
// row at a time. Preferred for full-dataset exports where building the
// whole [][]string in memory is wasteful. Returns the number of rows
// written.
func (e *CleanExporter) ExportCSVStreaming(records []domain.CleanRecord, outputPath string) (int, error) {
	ordered := orderForExport(records)

	stream, err := e.csvWriter.CreateStreamWriter(outputPath, CleanHeaders())
	if err != nil {
		return 0, errors.NewStorageError("failed to create clean dataset writer", err).
			WithContext("path", outputPath)
	}

	for _, record := range ordered {
		if err := stream.WriteRecord(recordToCSVRow(record)); err != nil {
			stream.Close()
			return stream.Rows(), errors.NewStorageError(
				fmt.Sprintf("failed to write clean record %s", record.Key()), err)
		}
	}

	if err := stream.Close(); err != nil {
		return stream.Rows(), errors.NewStorageError("failed to close clean dataset writer", err).
			WithContext("path", outputPath)
	}
	return stream.Rows(), nil
}

// orderForExport returns a copy sorted by location then date. The pipeline
// already emits this order; sorting a copy keeps the artifact deterministic
// without touching the caller's slice.
func orderForExport(records []domain.CleanRecord) []domain.CleanRecord {
	ordered := make([]domain.CleanRecord, len(records))
	copy(ordered, records)

	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Location != ordered[j].Location {
			return ordered[i].Location < ordered[j].Location
		}
		return ordered[i].Date.Before(ordered[j].Date)
	})
	return ordered
}

// recordToCSVRow converts a clean record to a CSV row. Counts are written
// as whole numbers, rates with two decimals, absent values as empty cells.
func recordToCSVRow(record domain.CleanRecord) []string {
	return []string{
		record.ISOCode,
		record.Location,
		formatDate(record.Date),
		formatOptionalCount(record.TotalCases),
		formatCount(record.NewCases),
		formatOptionalCount(record.TotalDeaths),
		formatCount(record.NewDeaths),
		formatOptionalCount(record.TotalVaccinations),
		formatOptionalCount(record.Population),
		formatOptional(record.DeathRate),
		formatOptional(record.VaccinatedPercent),
	}
}
