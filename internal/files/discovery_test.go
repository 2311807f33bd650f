package files

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDiscovery(t *testing.T) {
	basePath := "/test/base"
	discovery := NewDiscovery(basePath)

	assert.NotNil(t, discovery)
	assert.Equal(t, basePath, discovery.basePath)
}

func TestFindExcelFiles(t *testing.T) {
	tests := []struct {
		name          string
		files         []string
		expectedCount int
		description   string
	}{
		{
			name:          "only Excel files",
			files:         []string{"covid1.xlsx", "covid2.xls", "covid3.XLSX"},
			expectedCount: 3,
			description:   "Should find all Excel files regardless of case",
		},
		{
			name:          "mixed file types",
			files:         []string{"covid.xlsx", "data.csv", "doc.pdf", "sheet.xls"},
			expectedCount: 2,
			description:   "Should find only Excel files",
		},
		{
			name:          "skips Office lock files",
			files:         []string{"covid.xlsx", "~$covid.xlsx"},
			expectedCount: 1,
			description:   "Should skip ~$-prefixed lock files",
		},
		{
			name:          "no Excel files",
			files:         []string{"data.csv", "doc.pdf", "readme.txt"},
			expectedCount: 0,
			description:   "Should find no Excel files",
		},
		{
			name:          "empty directory",
			files:         []string{},
			expectedCount: 0,
			description:   "Should handle empty directory",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			discovery := NewDiscovery(tmpDir)

			testDir := "excel_test"
			fullTestDir := filepath.Join(tmpDir, testDir)
			err := os.MkdirAll(fullTestDir, 0755)
			require.NoError(t, err)

			// Create test files with different modification times
			for i, filename := range tt.files {
				filePath := filepath.Join(fullTestDir, filename)
				err := os.WriteFile(filePath, []byte("test content"), 0644)
				require.NoError(t, err)

				// Set different modification times to test sorting
				modTime := time.Now().Add(time.Duration(i) * time.Minute)
				err = os.Chtimes(filePath, modTime, modTime)
				require.NoError(t, err)
			}

			files, err := discovery.FindExcelFiles(testDir)
			assert.NoError(t, err, tt.description)
			assert.Equal(t, tt.expectedCount, len(files), tt.description)

			// Verify files are sorted by modification time (oldest first)
			if len(files) > 1 {
				for i := 1; i < len(files); i++ {
					assert.True(t, files[i-1].ModTime.Before(files[i].ModTime) ||
						files[i-1].ModTime.Equal(files[i].ModTime),
						"Files should be sorted by modification time")
				}
			}

			// Verify file properties
			for _, file := range files {
				assert.NotEmpty(t, file.Name)
				assert.NotEmpty(t, file.Path)
				assert.False(t, file.IsDir)
				assert.Greater(t, file.Size, int64(0))
				assert.False(t, file.ModTime.IsZero())
			}
		})
	}
}

func TestFindCSVFiles(t *testing.T) {
	tests := []struct {
		name          string
		files         []string
		expectedCount int
		description   string
	}{
		{
			name:          "only CSV files",
			files:         []string{"data1.csv", "data2.CSV", "snapshot.csv"},
			expectedCount: 3,
			description:   "Should find all CSV files regardless of case",
		},
		{
			name:          "mixed file types",
			files:         []string{"owid-covid-data.csv", "covid.xlsx", "doc.pdf"},
			expectedCount: 1,
			description:   "Should find only CSV files",
		},
		{
			name:          "no CSV files",
			files:         []string{"covid.xlsx", "doc.pdf", "readme.txt"},
			expectedCount: 0,
			description:   "Should find no CSV files",
		},
		{
			name:          "empty directory",
			files:         []string{},
			expectedCount: 0,
			description:   "Should handle empty directory",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			discovery := NewDiscovery(tmpDir)

			testDir := "csv_test"
			fullTestDir := filepath.Join(tmpDir, testDir)
			err := os.MkdirAll(fullTestDir, 0755)
			require.NoError(t, err)

			// Create test files
			for _, filename := range tt.files {
				filePath := filepath.Join(fullTestDir, filename)
				err := os.WriteFile(filePath, []byte("test,csv,content"), 0644)
				require.NoError(t, err)
			}

			files, err := discovery.FindCSVFiles(testDir)
			assert.NoError(t, err, tt.description)
			assert.Equal(t, tt.expectedCount, len(files), tt.description)

			// Verify file properties
			for _, file := range files {
				assert.NotEmpty(t, file.Name)
				assert.True(t, filepath.Ext(file.Name) == ".csv" || filepath.Ext(file.Name) == ".CSV")
				assert.False(t, file.IsDir)
			}
		})
	}
}

func TestFindDatasetFiles(t *testing.T) {
	tmpDir := t.TempDir()
	discovery := NewDiscovery(tmpDir)

	testDir := "dataset_test"
	fullTestDir := filepath.Join(tmpDir, testDir)
	require.NoError(t, os.MkdirAll(fullTestDir, 0755))

	// Create mixed dataset files with staggered modification times
	files := []string{"old-snapshot.csv", "covid-data.xlsx", "owid-covid-data.csv", "~$covid-data.xlsx", "readme.txt"}
	base := time.Now().Add(-time.Hour)
	for i, filename := range files {
		filePath := filepath.Join(fullTestDir, filename)
		require.NoError(t, os.WriteFile(filePath, []byte("test content"), 0644))
		modTime := base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, os.Chtimes(filePath, modTime, modTime))
	}

	found, err := discovery.FindDatasetFiles(testDir)
	require.NoError(t, err)

	// txt and lock files excluded
	assert.Len(t, found, 3)

	// Sorted newest first so the head is the most recent snapshot
	assert.Equal(t, "owid-covid-data.csv", found[0].Name)
	for i := 1; i < len(found); i++ {
		assert.True(t, found[i-1].ModTime.After(found[i].ModTime) ||
			found[i-1].ModTime.Equal(found[i].ModTime),
			"Dataset files should be sorted newest first")
	}
}

func TestFindFilesByPattern(t *testing.T) {
	tests := []struct {
		name          string
		files         []string
		pattern       string
		expectedCount int
		description   string
	}{
		{
			name:          "wildcard pattern",
			files:         []string{"trends1.csv", "trends2.csv", "other.json"},
			pattern:       "trends*.csv",
			expectedCount: 2,
			description:   "Should find files matching wildcard pattern",
		},
		{
			name:          "specific extension pattern",
			files:         []string{"run1.log", "run2.log", "notes.txt"},
			pattern:       "*.log",
			expectedCount: 2,
			description:   "Should find files with specific extension",
		},
		{
			name:          "no matches",
			files:         []string{"file1.txt", "file2.csv"},
			pattern:       "*.log",
			expectedCount: 0,
			description:   "Should return empty when no matches",
		},
		{
			name:          "exact filename pattern",
			files:         []string{"owid-covid-data.csv", "other.csv"},
			pattern:       "owid-covid-data.csv",
			expectedCount: 1,
			description:   "Should find exact filename match",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			discovery := NewDiscovery(tmpDir)

			testDir := "pattern_test"
			fullTestDir := filepath.Join(tmpDir, testDir)
			err := os.MkdirAll(fullTestDir, 0755)
			require.NoError(t, err)

			// Create test files
			for _, filename := range tt.files {
				filePath := filepath.Join(fullTestDir, filename)
				err := os.WriteFile(filePath, []byte("test content"), 0644)
				require.NoError(t, err)
			}

			files, err := discovery.FindFilesByPattern(testDir, tt.pattern)
			assert.NoError(t, err, tt.description)
			assert.Equal(t, tt.expectedCount, len(files), tt.description)

			// Verify file properties
			for _, file := range files {
				assert.NotEmpty(t, file.Name)
				assert.NotEmpty(t, file.Path)
				assert.False(t, file.IsDir)
			}
		})
	}
}

func TestFindDatedSnapshots(t *testing.T) {
	tests := []struct {
		name          string
		files         []string
		expectedDates []string
		description   string
	}{
		{
			name: "valid dated snapshots",
			files: []string{
				"owid-covid-data-2021-01-10.csv",
				"owid-covid-data-2021-01-11.csv",
				"owid-covid-data-2021-01-12.csv",
			},
			expectedDates: []string{"2021-01-10", "2021-01-11", "2021-01-12"},
			description:   "Should find and map dated snapshots by date",
		},
		{
			name: "mixed CSV files",
			files: []string{
				"owid-covid-data-2021-01-10.csv",
				"other_data.csv",
				"owid-covid-data-2021-01-11.csv",
				"location_summary.csv",
			},
			expectedDates: []string{"2021-01-10", "2021-01-11"},
			description:   "Should find only dated snapshots",
		},
		{
			name:          "no dated snapshots",
			files:         []string{"data.csv", "trends.csv", "summary.csv"},
			expectedDates: []string{},
			description:   "Should return empty map when no dated snapshots found",
		},
		{
			name:          "empty directory",
			files:         []string{},
			expectedDates: []string{},
			description:   "Should handle empty directory",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			discovery := NewDiscovery(tmpDir)

			testDir := "snapshot_test"
			fullTestDir := filepath.Join(tmpDir, testDir)
			err := os.MkdirAll(fullTestDir, 0755)
			require.NoError(t, err)

			// Create test files
			for _, filename := range tt.files {
				filePath := filepath.Join(fullTestDir, filename)
				err := os.WriteFile(filePath, []byte("test,csv,content"), 0644)
				require.NoError(t, err)
			}

			snapshots, err := discovery.FindDatedSnapshots(testDir)
			assert.NoError(t, err, tt.description)
			assert.Equal(t, len(tt.expectedDates), len(snapshots), tt.description)

			// Verify expected dates are found
			for _, expectedDate := range tt.expectedDates {
				file, exists := snapshots[expectedDate]
				assert.True(t, exists, "Expected date %s should be found", expectedDate)
				assert.NotEmpty(t, file.Name)
				assert.NotEmpty(t, file.Path)
				assert.False(t, file.IsDir)
			}
		})
	}
}

func TestGetLatestFile(t *testing.T) {
	tests := []struct {
		name        string
		files       []FileInfo
		expectFound bool
		expectedIdx int
		description string
	}{
		{
			name: "multiple files with different times",
			files: []FileInfo{
				{Name: "old.csv", ModTime: time.Date(2021, 1, 10, 0, 0, 0, 0, time.UTC)},
				{Name: "latest.csv", ModTime: time.Date(2021, 1, 12, 0, 0, 0, 0, time.UTC)},
				{Name: "middle.csv", ModTime: time.Date(2021, 1, 11, 0, 0, 0, 0, time.UTC)},
			},
			expectFound: true,
			expectedIdx: 1, // latest.csv
			description: "Should return file with latest modification time",
		},
		{
			name: "single file",
			files: []FileInfo{
				{Name: "only.csv", ModTime: time.Date(2021, 1, 10, 0, 0, 0, 0, time.UTC)},
			},
			expectFound: true,
			expectedIdx: 0,
			description: "Should return single file",
		},
		{
			name:        "empty slice",
			files:       []FileInfo{},
			expectFound: false,
			expectedIdx: -1,
			description: "Should return false for empty slice",
		},
		{
			name: "files with same time",
			files: []FileInfo{
				{Name: "file1.csv", ModTime: time.Date(2021, 1, 10, 0, 0, 0, 0, time.UTC)},
				{Name: "file2.csv", ModTime: time.Date(2021, 1, 10, 0, 0, 0, 0, time.UTC)},
			},
			expectFound: true,
			expectedIdx: 0, // Should return first one
			description: "Should return first file when times are equal",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			latest, found := GetLatestFile(tt.files)

			assert.Equal(t, tt.expectFound, found, tt.description)

			if tt.expectFound {
				expectedFile := tt.files[tt.expectedIdx]
				assert.Equal(t, expectedFile.Name, latest.Name)
				assert.Equal(t, expectedFile.ModTime, latest.ModTime)
			}
		})
	}
}

func TestAbsolutePaths(t *testing.T) {
	tmpDir := t.TempDir()
	discovery := NewDiscovery("/base/path") // Different from tmpDir

	// Create test directory with absolute path
	testDir := filepath.Join(tmpDir, "absolute_test")
	err := os.MkdirAll(testDir, 0755)
	require.NoError(t, err)

	// Create test files
	testFiles := []string{"test1.xlsx", "test2.csv"}
	for _, filename := range testFiles {
		filePath := filepath.Join(testDir, filename)
		err := os.WriteFile(filePath, []byte("test content"), 0644)
		require.NoError(t, err)
	}

	t.Run("FindExcelFiles with absolute path", func(t *testing.T) {
		files, err := discovery.FindExcelFiles(testDir) // Using absolute path
		assert.NoError(t, err)
		assert.Equal(t, 1, len(files)) // Only .xlsx files
	})

	t.Run("FindCSVFiles with absolute path", func(t *testing.T) {
		files, err := discovery.FindCSVFiles(testDir) // Using absolute path
		assert.NoError(t, err)
		assert.Equal(t, 1, len(files)) // Only .csv files
	})

	t.Run("FindDatasetFiles with absolute path", func(t *testing.T) {
		files, err := discovery.FindDatasetFiles(testDir) // Using absolute path
		assert.NoError(t, err)
		assert.Equal(t, 2, len(files)) // Both dataset formats
	})
}

func TestErrorHandling(t *testing.T) {
	discovery := NewDiscovery("/base/path")

	t.Run("non-existent directory", func(t *testing.T) {
		_, err := discovery.FindExcelFiles("/non/existent/directory")
		assert.Error(t, err)
	})

	t.Run("non-existent directory for dataset files", func(t *testing.T) {
		_, err := discovery.FindDatasetFiles("/non/existent/directory")
		assert.Error(t, err)
	})

	t.Run("invalid pattern", func(t *testing.T) {
		tmpDir := t.TempDir()
		_, err := discovery.FindFilesByPattern(tmpDir, "[invalid")
		assert.Error(t, err)
	})
}

// Benchmark file discovery operations
func BenchmarkFindDatasetFiles(b *testing.B) {
	tmpDir := b.TempDir()
	discovery := NewDiscovery(tmpDir)

	// Create many test files
	testDir := filepath.Join(tmpDir, "benchmark_test")
	os.MkdirAll(testDir, 0755)

	for i := 0; i < 100; i++ {
		filename := filepath.Join(testDir, fmt.Sprintf("snapshot_%03d.csv", i))
		os.WriteFile(filename, []byte("test"), 0644)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = discovery.FindDatasetFiles("benchmark_test")
	}
}
