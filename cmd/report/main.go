package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"covidcli/internal/analytics"
	"covidcli/internal/config"
	"covidcli/internal/dataprocessing"
	"covidcli/internal/exporter"
	"covidcli/internal/files"
	"covidcli/internal/infrastructure"
	"covidcli/pkg/contracts/domain"
)

func main() {
	cleanFile := flag.String("clean", "", "clean dataset CSV produced by prepare (defaults to data/clean/covid_clean.csv)")
	rawFile := flag.String("raw", "", "optional raw dataset; enables the correlation and map-data products")
	outputDir := flag.String("out-dir", "", "output directory for report artifacts (defaults to data/reports)")
	topN := flag.Int("top", 0, "locations in ranked lists (defaults to config)")
	window := flag.Int("window", 0, "trailing-mean window in days (defaults to config)")
	target := flag.Float64("target", 0, "vaccination coverage target in percent (defaults to config)")
	xlsx := flag.Bool("xlsx", false, "also write the multi-sheet XLSX workbook")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	// Initialize paths
	paths, err := config.GetPaths()
	if err != nil {
		slog.Error("Failed to initialize paths", "error", err)
		os.Exit(1)
	}
	if err := paths.EnsureDirectories(); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Warn("Failed to load config, using defaults", "error", err)
		cfg = config.Default()
		cfg.Logging.FilePath = paths.GetLogPath("report.log")
	}

	if *topN > 0 {
		cfg.Analytics.TopN = *topN
	}
	if *window > 0 {
		cfg.Analytics.RollingWindow = *window
	}
	if *target > 0 {
		cfg.Analytics.VaccinationTarget = *target
	}
	if *verbose {
		cfg.Logging.Level = "debug"
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()

	var metrics *infrastructure.PipelineMetrics
	providers, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
	if err != nil {
		logger.Warn("Observability init failed, continuing unobserved",
			slog.String("error", err.Error()))
		providers = nil
	} else {
		defer providers.Shutdown(context.Background())
		if metrics, err = infrastructure.CreatePipelineMetrics(providers.Meter); err != nil {
			logger.Warn("Pipeline metrics unavailable", slog.String("error", err.Error()))
			metrics = nil
		}
	}

	// Use centralized directories as defaults if not specified
	cleanPath := *cleanFile
	if cleanPath == "" {
		cleanPath = paths.CleanCSV
	}
	if *outputDir == "" {
		*outputDir = paths.ReportsDir
	}
	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		logger.Error("Failed to create output directory", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Starting COVID report generation",
		slog.String("clean", cleanPath),
		slog.String("raw", *rawFile),
		slog.String("output_dir", *outputDir),
		slog.Int("window", cfg.Analytics.RollingWindow),
		slog.Int("top_n", cfg.Analytics.TopN),
		slog.Bool("xlsx", *xlsx))

	// Check if the clean dataset exists
	if _, err := os.Stat(cleanPath); os.IsNotExist(err) {
		logger.Error("Clean dataset not found",
			slog.String("path", cleanPath),
			slog.String("hint", "Run prepare first to generate the clean dataset"))
		os.Exit(1)
	}

	cleanRecords, err := loadCleanData(cleanPath)
	if err != nil {
		logger.Error("Failed to load clean dataset", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if len(cleanRecords) == 0 {
		logger.Error("No records found in clean dataset",
			slog.String("path", cleanPath),
			slog.String("hint", "Check that prepare produced data rows"))
		os.Exit(1)
	}
	logger.Info("Loaded clean dataset", slog.Int("records", len(cleanRecords)))

	// Every log line emitted under this context carries the same trace ID.
	ctx := infrastructure.EnsureTraceID(context.Background())
	started := time.Now()
	runID := uuid.New().String()

	// The raw dataset is optional; without it the correlation matrix and
	// the map-data product are skipped.
	var rawRecords []domain.Record
	if *rawFile != "" {
		loader := dataprocessing.NewLoader(infrastructure.WithComponent(logger, "loader"), dataprocessing.DefaultLoaderConfig())
		var loadStats *dataprocessing.LoadStats
		rawRecords, loadStats, err = loader.Load(ctx, *rawFile)
		if err != nil {
			logger.Error("Failed to load raw dataset", slog.String("error", err.Error()))
			os.Exit(1)
		}
		// Global products exclude aggregate pseudo-locations but never
		// apply the comparative allow-list.
		rawRecords = excludeAggregates(rawRecords, domain.RecordFilter{
			ExcludeAggregates:  cfg.Pipeline.ExcludeAggregates,
			AggregateISOPrefix: cfg.Pipeline.AggregateISOPrefix,
		})
		logger.Info("Loaded raw dataset",
			slog.Int("records", loadStats.RecordsLoaded),
			slog.Int("rows_skipped", loadStats.RowsSkipped),
			slog.Int("after_aggregate_exclusion", len(rawRecords)))
	}

	summarizer := dataprocessing.NewSummarizer(infrastructure.WithComponent(logger, "summarizer"), dataprocessing.SummarizerConfig{
		RollingWindow: cfg.Analytics.RollingWindow,
		DateFormat:    domain.DateFormat,
		DataSource:    cleanPath,
	})
	summaries, err := summarizer.GenerateFromRecords(ctx, cleanRecords)
	if err != nil {
		logger.Error("Failed to summarize locations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	analyzerCfg := analytics.DefaultAnalyzerConfig()
	analyzerCfg.RollingWindow = cfg.Analytics.RollingWindow
	analyzerCfg.TopN = cfg.Analytics.TopN
	analyzerCfg.VaccinationTarget = cfg.Analytics.VaccinationTarget
	analyzerCfg.VariantWindowDays = cfg.Analytics.VariantWindowDays
	analyzer := analytics.NewAnalyzer(infrastructure.WithComponent(logger, "analytics"), analyzerCfg)

	report, err := analyzer.BuildReport(ctx, cleanRecords, rawRecords, summaries)
	if err != nil {
		logger.Error("Failed to build analytics report", slog.String("error", err.Error()))
		os.Exit(1)
	}

	manifest := exporter.NewRunManifest(runID, "report")
	fileManager := files.NewManager(paths)
	fingerprint, err := fileManager.Fingerprint(cleanPath)
	if err != nil {
		logger.Warn("Dataset fingerprint unavailable", slog.String("error", err.Error()))
	}
	size, _ := fileManager.GetFileSize(cleanPath)
	manifest.SetDataset(cleanPath, fingerprint, size)

	// Independent artifacts fan out concurrently; nothing below mutates the
	// report, so the writers only share read access.
	summaryCSVPath := filepath.Join(*outputDir, config.SummaryCSVFileName)
	summaryJSONPath := filepath.Join(*outputDir, config.SummaryJSONFileName)
	trendsPath := filepath.Join(*outputDir, config.TrendsCSVFileName)
	insightsPath := filepath.Join(*outputDir, config.InsightsCSVFileName)
	mapDataPath := filepath.Join(*outputDir, config.MapDataCSVFileName)
	workbookPath := filepath.Join(*outputDir, config.WorkbookFileName)
	manifestPath := filepath.Join(*outputDir, config.RunManifestFileName)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		artifactStart := time.Now()
		err := summarizer.WriteCSV(gctx, summaryCSVPath, summaries)
		infrastructure.RecordArtifactMetrics(gctx, metrics, "summary_csv", time.Since(artifactStart), err)
		if err != nil {
			return err
		}
		manifest.RecordArtifact("summary_csv", summaryCSVPath, len(summaries))
		return nil
	})
	g.Go(func() error {
		artifactStart := time.Now()
		err := summarizer.WriteJSON(gctx, summaryJSONPath, summaries)
		infrastructure.RecordArtifactMetrics(gctx, metrics, "summary_json", time.Since(artifactStart), err)
		if err != nil {
			return err
		}
		manifest.RecordArtifact("summary_json", summaryJSONPath, len(summaries))
		return nil
	})
	g.Go(func() error {
		artifactStart := time.Now()
		err := analytics.WriteTrendsCSV(gctx, trendsPath, report.Trends)
		infrastructure.RecordArtifactMetrics(gctx, metrics, "trends_csv", time.Since(artifactStart), err)
		if err != nil {
			return err
		}
		manifest.RecordArtifact("trends_csv", trendsPath, len(report.Trends))
		return nil
	})
	g.Go(func() error {
		artifactStart := time.Now()
		err := analytics.WriteInsightsCSV(gctx, insightsPath, report)
		infrastructure.RecordArtifactMetrics(gctx, metrics, "insights_csv", time.Since(artifactStart), err)
		if err != nil {
			return err
		}
		rows := 0
		if report.Insights != nil {
			rows = len(report.Insights.Lines)
		}
		manifest.RecordArtifact("insights_csv", insightsPath, rows)
		return nil
	})
	if len(rawRecords) > 0 {
		mapExporter := exporter.NewMapDataExporter(paths)
		g.Go(func() error {
			artifactStart := time.Now()
			countries, err := mapExporter.ExportMapData(rawRecords, mapDataPath)
			infrastructure.RecordArtifactMetrics(gctx, metrics, "map_data_csv", time.Since(artifactStart), err)
			if err != nil {
				return err
			}
			manifest.RecordArtifact("map_data_csv", mapDataPath, countries)
			return nil
		})
	}
	if *xlsx {
		workbookExporter := exporter.NewWorkbookExporter(paths)
		g.Go(func() error {
			artifactStart := time.Now()
			err := workbookExporter.ExportWorkbook(report, workbookPath)
			infrastructure.RecordArtifactMetrics(gctx, metrics, "workbook_xlsx", time.Since(artifactStart), err)
			if err != nil {
				return err
			}
			manifest.RecordArtifact("workbook_xlsx", workbookPath, len(report.Summaries))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("Report generation failed", slog.String("error", err.Error()))
		manifest.Fail(err)
		if saveErr := manifest.Save(manifestPath); saveErr != nil {
			logger.Warn("Failed to save run manifest", slog.String("error", saveErr.Error()))
		}
		infrastructure.RecordRunMetrics(ctx, metrics, runID, "report",
			time.Since(started), false, err)
		os.Exit(1)
	}

	manifest.Complete()
	if err := manifest.Save(manifestPath); err != nil {
		logger.Warn("Failed to save run manifest", slog.String("error", err.Error()))
	}

	infrastructure.RecordRunMetrics(ctx, metrics, runID, "report",
		time.Since(started), true, nil)
	if providers != nil {
		if runtimeMetrics, rmErr := infrastructure.NewRuntimeMetrics(providers.Meter); rmErr == nil {
			runStats := runtimeMetrics.Collect(ctx, started)
			logger.Debug("Run runtime statistics", slog.Any("stats", runStats.FormatStats()))
		}
		if err := providers.WriteMetricsTextfile(paths.MetricsTextfile); err != nil {
			logger.Warn("Failed to write metrics textfile", slog.String("error", err.Error()))
		}
	}

	logger.Info("Report generation complete",
		slog.String("run_id", runID),
		slog.Int("locations", len(summaries)),
		slog.Int("trend_points", len(report.Trends)),
		slog.Bool("correlation", report.Correlation != nil),
		slog.String("output_dir", *outputDir),
		slog.Duration("elapsed", time.Since(started)))

	printReportSummary(report)
}

// loadCleanData reads the clean dataset back into memory. Columns are
// resolved by header name; empty optional cells stay nil so absent metrics
// survive the round trip.
func loadCleanData(csvPath string) ([]domain.CleanRecord, error) {
	file, err := os.Open(csvPath)
	if err != nil {
		return nil, fmt.Errorf("open clean dataset: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimPrefix(strings.TrimSpace(name), "\uFEFF")
		columns[strings.ToLower(name)] = i
	}
	locationIdx, ok := columns[config.ColLocation]
	if !ok {
		return nil, fmt.Errorf("clean dataset is missing the %s column", config.ColLocation)
	}
	dateIdx, ok := columns[config.ColDate]
	if !ok {
		return nil, fmt.Errorf("clean dataset is missing the %s column", config.ColDate)
	}

	var records []domain.CleanRecord
	for {
		row, err := reader.Read()
		if err != nil {
			break // EOF
		}

		date, err := time.Parse(domain.DateFormat, cell(row, dateIdx))
		if err != nil {
			continue // Skip rows without a parseable date
		}
		location := cell(row, locationIdx)
		if location == "" {
			continue
		}

		record := domain.CleanRecord{
			Location: location,
			Date:     date,

			NewCases:  countField(row, columns, config.ColNewCases),
			NewDeaths: countField(row, columns, config.ColNewDeaths),

			TotalCases:        optionalField(row, columns, config.ColTotalCases),
			TotalDeaths:       optionalField(row, columns, config.ColTotalDeaths),
			TotalVaccinations: optionalField(row, columns, config.ColTotalVaccinations),
			Population:        optionalField(row, columns, config.ColPopulation),
			DeathRate:         optionalField(row, columns, config.ColDeathRate),
			VaccinatedPercent: optionalField(row, columns, config.ColVaccinatedPercent),
		}
		if idx, ok := columns[config.ColISOCode]; ok {
			record.ISOCode = cell(row, idx)
		}

		records = append(records, record)
	}

	return records, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// optionalField parses a cell into a pointer; empty or unparseable cells
// stay nil rather than becoming fabricated zeros.
func optionalField(row []string, columns map[string]int, name string) *float64 {
	idx, ok := columns[name]
	if !ok {
		return nil
	}
	value := cell(row, idx)
	if value == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil
	}
	return domain.Float(parsed)
}

// excludeAggregates drops rows rejected by the filter. Report products built
// from raw records cover the whole dataset, so the filter carries only the
// aggregate exclusions, never a location allow-list.
func excludeAggregates(records []domain.Record, filter domain.RecordFilter) []domain.Record {
	if filter.IsNoOp() {
		return records
	}
	filtered := make([]domain.Record, 0, len(records))
	for _, record := range records {
		if filter.Allows(record) {
			filtered = append(filtered, record)
		}
	}
	return filtered
}

// countField parses a zero-filled delta column; absent cells read as zero.
func countField(row []string, columns map[string]int, name string) float64 {
	idx, ok := columns[name]
	if !ok {
		return 0
	}
	parsed, err := strconv.ParseFloat(cell(row, idx), 64)
	if err != nil {
		return 0
	}
	return parsed
}

func printReportSummary(report *analytics.Report) {
	snapshot := report.Snapshot

	fmt.Println("\n=== COVID REPORT SUMMARY ===")
	fmt.Printf("%-22s | %s\n", "As of", snapshot.AsOf)
	fmt.Printf("%-22s | %d\n", "Locations", snapshot.Locations)
	fmt.Printf("%-22s | %.0f\n", "Combined cases", snapshot.CombinedCases)
	fmt.Printf("%-22s | %.0f\n", "Combined deaths", snapshot.CombinedDeaths)
	fmt.Printf("%-22s | %d days\n", "Smoothing window", report.Window)

	if len(snapshot.TopByCases) > 0 {
		fmt.Println("\n=== TOP LOCATIONS BY TOTAL CASES ===")
		fmt.Println("Location             | Total Cases | Total Deaths | Death Rate | Vaccinated %")
		fmt.Println("---------------------|-------------|--------------|------------|-------------")
		for _, summary := range snapshot.TopByCases {
			fmt.Printf("%-20s | %11s | %12s | %10s | %12s\n",
				summary.Location,
				consoleCount(summary.TotalCases),
				consoleCount(summary.TotalDeaths),
				consoleRate(summary.DeathRate),
				consoleRate(summary.VaccinatedPercent))
		}
	}

	if report.Insights != nil && len(report.Insights.Lines) > 0 {
		fmt.Println("\n=== KEY INSIGHTS ===")
		for _, line := range report.Insights.Lines {
			fmt.Println("  - " + line)
		}
	}
}

// consoleCount renders an optional cumulative count for the console table;
// never-reported values print as n/a.
func consoleCount(value *float64) string {
	if value == nil {
		return "n/a"
	}
	return strconv.FormatFloat(*value, 'f', 0, 64)
}

func consoleRate(value *float64) string {
	if value == nil {
		return "n/a"
	}
	return strconv.FormatFloat(*value, 'f', 2, 64)
}
