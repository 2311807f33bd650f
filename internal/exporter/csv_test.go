package exporter

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"covidcli/internal/config"
)

// setupTestEnv builds a CSV writer over a throwaway data directory layout.
func setupTestEnv(t *testing.T) (*CSVWriter, *config.Paths) {
	t.Helper()

	paths := config.PathsFromBase(t.TempDir())
	require.NoError(t, paths.EnsureDirectories())

	return NewCSVWriter(paths), paths
}

// readCSVFile reads a CSV artifact back, stripping any UTF-8 BOM first.
func readCSVFile(t *testing.T, path string) [][]string {
	t.Helper()

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	content = bytes.TrimPrefix(content, []byte{0xEF, 0xBB, 0xBF})

	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	require.NoError(t, err)
	return rows
}

func TestNewCSVWriter(t *testing.T) {
	paths := &config.Paths{}
	writer := NewCSVWriter(paths)

	assert.NotNil(t, writer)
	assert.Equal(t, paths, writer.paths)
}

func TestCSVWriter_WriteCSV(t *testing.T) {
	writer, paths := setupTestEnv(t)

	tests := []struct {
		name     string
		filePath string
		options  WriteOptions
		validate func(t *testing.T, fullPath string)
	}{
		{
			name:     "basic write with headers",
			filePath: "basic.csv",
			options: WriteOptions{
				Headers: []string{"location", "date", "value"},
				Records: [][]string{
					{"Kenya", "2021-01-01", "100"},
					{"Brazil", "2021-01-01", "7000"},
				},
			},
			validate: func(t *testing.T, fullPath string) {
				rows := readCSVFile(t, fullPath)
				require.Len(t, rows, 3)
				assert.Equal(t, []string{"location", "date", "value"}, rows[0])
				assert.Equal(t, "Kenya", rows[1][0])
				assert.Equal(t, "7000", rows[2][2])
			},
		},
		{
			name:     "BOM prefix written once at file start",
			filePath: "bom.csv",
			options: WriteOptions{
				Headers:   []string{"iso_code"},
				Records:   [][]string{{"KEN"}},
				BOMPrefix: true,
			},
			validate: func(t *testing.T, fullPath string) {
				content, err := os.ReadFile(fullPath)
				require.NoError(t, err)
				assert.True(t, bytes.HasPrefix(content, []byte{0xEF, 0xBB, 0xBF}))
				assert.Equal(t, 1, bytes.Count(content, []byte{0xEF, 0xBB, 0xBF}))
			},
		},
		{
			name:     "headers only when no records",
			filePath: "empty.csv",
			options: WriteOptions{
				Headers: []string{"location", "value"},
			},
			validate: func(t *testing.T, fullPath string) {
				rows := readCSVFile(t, fullPath)
				require.Len(t, rows, 1)
				assert.Equal(t, []string{"location", "value"}, rows[0])
			},
		},
		{
			name:     "truncates an existing file when not appending",
			filePath: "truncate.csv",
			options: WriteOptions{
				Headers: []string{"location"},
				Records: [][]string{{"Kenya"}},
			},
			validate: func(t *testing.T, fullPath string) {
				// Second write replaces the first entirely.
				err := writer.WriteCSV(fullPath, WriteOptions{
					Headers: []string{"location"},
					Records: [][]string{{"Brazil"}},
				})
				require.NoError(t, err)

				rows := readCSVFile(t, fullPath)
				require.Len(t, rows, 2)
				assert.Equal(t, "Brazil", rows[1][0])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := writer.WriteCSV(tt.filePath, tt.options)
			require.NoError(t, err)
			tt.validate(t, paths.GetReportPath(tt.filePath))
		})
	}
}

func TestCSVWriter_AppendToCSV(t *testing.T) {
	writer, paths := setupTestEnv(t)

	require.NoError(t, writer.WriteSimpleCSV("append.csv",
		[]string{"location", "value"},
		[][]string{{"Kenya", "100"}}))

	require.NoError(t, writer.AppendToCSV("append.csv", [][]string{
		{"Brazil", "7000"},
	}))

	rows := readCSVFile(t, paths.GetReportPath("append.csv"))
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"location", "value"}, rows[0])
	assert.Equal(t, "Brazil", rows[2][0])

	// Appending must not write a second BOM or header.
	content, err := os.ReadFile(paths.GetReportPath("append.csv"))
	require.NoError(t, err)
	assert.Equal(t, 1, bytes.Count(content, []byte{0xEF, 0xBB, 0xBF}))
	assert.Equal(t, 1, strings.Count(string(content), "location,value"))
}

func TestCSVWriter_ResolvePath(t *testing.T) {
	writer, paths := setupTestEnv(t)

	tests := []struct {
		name     string
		filePath string
		want     string
	}{
		{
			name:     "absolute path kept as-is",
			filePath: filepath.Join(paths.DataDir, "somewhere", "x.csv"),
			want:     filepath.Join(paths.DataDir, "somewhere", "x.csv"),
		},
		{
			name:     "raw prefix resolves to raw directory",
			filePath: "raw/dataset.csv",
			want:     paths.GetRawPath("dataset.csv"),
		},
		{
			name:     "clean prefix resolves to clean directory",
			filePath: "clean/covid_clean.csv",
			want:     paths.GetCleanPath("covid_clean.csv"),
		},
		{
			name:     "bare filename defaults to reports directory",
			filePath: "trends.csv",
			want:     paths.GetReportPath("trends.csv"),
		},
		{
			name:     "relative subdirectory stays under reports",
			filePath: "archive/trends.csv",
			want:     paths.GetReportPath(filepath.Join("archive", "trends.csv")),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, writer.resolvePath(tt.filePath))
		})
	}
}

func TestStreamWriter(t *testing.T) {
	writer, paths := setupTestEnv(t)

	stream, err := writer.CreateStreamWriter("stream.csv", []string{"location", "date", "new_cases"})
	require.NoError(t, err)

	require.NoError(t, stream.WriteRecord([]string{"Kenya", "2021-01-01", "0"}))
	require.NoError(t, stream.WriteRecord([]string{"Kenya", "2021-01-02", "5"}))
	assert.Equal(t, 2, stream.Rows())

	require.NoError(t, stream.Close())

	rows := readCSVFile(t, paths.GetReportPath("stream.csv"))
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"location", "date", "new_cases"}, rows[0])
	assert.Equal(t, []string{"Kenya", "2021-01-02", "5"}, rows[2])

	content, err := os.ReadFile(paths.GetReportPath("stream.csv"))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(content, []byte{0xEF, 0xBB, 0xBF}),
		"stream writer always writes the Excel compatibility BOM")
}

func TestStreamWriter_CreatesMissingDirectory(t *testing.T) {
	writer, paths := setupTestEnv(t)

	target := filepath.Join(paths.ReportsDir, "nested", "deep", "stream.csv")
	stream, err := writer.CreateStreamWriter(target, []string{"location"})
	require.NoError(t, err)
	require.NoError(t, stream.WriteRecord([]string{"Kenya"}))
	require.NoError(t, stream.Close())

	assert.FileExists(t, target)
}
