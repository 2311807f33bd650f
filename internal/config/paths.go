package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains all the application paths
// This is the single source of truth for ALL file paths in the application
type Paths struct {
	ExecutableDir string
	DataDir       string
	RawDir        string
	CleanDir      string
	ReportsDir    string
	LogsDir       string

	// Well-known files
	RawDataset      string
	CleanCSV        string
	SummaryCSV      string
	SummaryJSON     string
	TrendsCSV       string
	MapDataCSV      string
	InsightsCSV     string
	WorkbookXLSX    string
	ManifestJSON    string
	MetricsTextfile string
}

// GetPaths returns the application paths relative to the executable location
// All paths are ALWAYS relative to the executable directory, never the current working directory
func GetPaths() (*Paths, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %v", err)
	}

	// Resolve symlinks to get the actual executable location
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve executable symlinks: %v", err)
	}

	// Get the directory containing the executable
	exeDir := filepath.Dir(exe)

	return PathsFromBase(exeDir), nil
}

// PathsFromBase builds the path layout rooted at the given base directory.
// Used directly by tests and by CLIs honoring a -data-dir override.
//
// Directory structure:
//
//	base/
//	  ├── data/
//	  │   ├── raw/       (source datasets)
//	  │   ├── clean/     (prepared datasets)
//	  │   └── reports/   (analysis artifacts)
//	  └── logs/          (application logs)
func PathsFromBase(baseDir string) *Paths {
	dataDir := filepath.Join(baseDir, "data")
	rawDir := filepath.Join(dataDir, "raw")
	cleanDir := filepath.Join(dataDir, "clean")
	reportsDir := filepath.Join(dataDir, "reports")

	return &Paths{
		ExecutableDir: baseDir,
		DataDir:       dataDir,
		RawDir:        rawDir,
		CleanDir:      cleanDir,
		ReportsDir:    reportsDir,
		LogsDir:       filepath.Join(baseDir, "logs"),

		RawDataset:      filepath.Join(rawDir, DefaultRawDatasetName),
		CleanCSV:        filepath.Join(cleanDir, CleanDatasetFileName),
		SummaryCSV:      filepath.Join(reportsDir, SummaryCSVFileName),
		SummaryJSON:     filepath.Join(reportsDir, SummaryJSONFileName),
		TrendsCSV:       filepath.Join(reportsDir, TrendsCSVFileName),
		MapDataCSV:      filepath.Join(reportsDir, MapDataCSVFileName),
		InsightsCSV:     filepath.Join(reportsDir, InsightsCSVFileName),
		WorkbookXLSX:    filepath.Join(reportsDir, WorkbookFileName),
		ManifestJSON:    filepath.Join(reportsDir, RunManifestFileName),
		MetricsTextfile: filepath.Join(reportsDir, MetricsTextfileFileName),
	}
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.DataDir,
		p.RawDir,
		p.CleanDir,
		p.ReportsDir,
		p.LogsDir,
	}

	logger := slog.Default()

	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %v", dir, err)
		}

		if logger != nil {
			logger.Debug("Ensured directory exists",
				slog.String("directory", dir))
		}
	}

	return nil
}

// GetRelativePath returns a path relative to the executable directory
func (p *Paths) GetRelativePath(subpath string) string {
	return filepath.Join(p.ExecutableDir, subpath)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// GetRawPath returns the path for a raw dataset file
func (p *Paths) GetRawPath(filename string) string {
	return filepath.Join(p.RawDir, filename)
}

// GetCleanPath returns the path for a clean dataset file
func (p *Paths) GetCleanPath(filename string) string {
	return filepath.Join(p.CleanDir, filename)
}

// GetReportPath returns the path for a report file
func (p *Paths) GetReportPath(filename string) string {
	return filepath.Join(p.ReportsDir, filename)
}

// GetLogPath returns the path for a log file
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// LogPathResolution logs detailed path resolution information for debugging
func (p *Paths) LogPathResolution() {
	logger := slog.Default()
	if logger == nil {
		return
	}

	logger.Info("Path resolution summary",
		slog.Group("directories",
			slog.String("executable", p.ExecutableDir),
			slog.String("data", p.DataDir),
			slog.String("raw", p.RawDir),
			slog.String("clean", p.CleanDir),
			slog.String("reports", p.ReportsDir),
			slog.String("logs", p.LogsDir),
		),
		slog.Group("artifacts",
			slog.String("clean_csv", p.CleanCSV),
			slog.String("summary_csv", p.SummaryCSV),
			slog.String("summary_json", p.SummaryJSON),
			slog.String("trends_csv", p.TrendsCSV),
			slog.String("map_data_csv", p.MapDataCSV),
			slog.String("insights_csv", p.InsightsCSV),
			slog.String("workbook_xlsx", p.WorkbookXLSX),
			slog.String("manifest_json", p.ManifestJSON),
			slog.String("metrics_textfile", p.MetricsTextfile),
		))
}
