// Package exporter writes the file artifacts of a pipeline run.
//
// This package contains the artifact writers both CLIs share:
//
// CSVWriter: Core CSV writing functionality with support for headers,
// streaming, and UTF-8 BOM for Excel compatibility. Relative paths resolve
// into the data directory layout (raw/, clean/, reports/).
//
// CleanExporter: Writes the prepared dataset in the documented column
// projection, either buffered or through a streaming writer for the full
// dataset.
//
// MapDataExporter: Writes the choropleth input keyed by ISO country code
// from globally scoped raw records.
//
// WorkbookExporter: Writes the multi-sheet XLSX summary workbook from an
// analytics report.
//
// RunManifest: Records what a run consumed (dataset path, BLAKE2b
// fingerprint, loader and pipeline accounting) and produced (artifact
// paths, row counts, sizes).
//
// Absent metric values are written as empty cells everywhere; a value the
// source never reported must not reappear as a zero in an artifact.
//
// Example usage:
//
//	cleanExporter := exporter.NewCleanExporter(paths)
//	rows, err := cleanExporter.ExportCSVStreaming(records, paths.CleanCSV)
//
//	manifest := exporter.NewRunManifest(stats.RunID, "comparative")
//	manifest.SetDataset(datasetPath, fingerprint, size)
//	manifest.RecordArtifact("clean_csv", paths.CleanCSV, rows)
//	err = manifest.Save(paths.ManifestJSON)
package exporter
