package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"covidcli/internal/config"
	"covidcli/internal/dataprocessing"
	"covidcli/internal/errors"
	"covidcli/internal/exporter"
	"covidcli/internal/files"
	"covidcli/internal/infrastructure"
	"covidcli/internal/validation"
)

func main() {
	inFile := flag.String("in", "", "input dataset, .csv or .xlsx (defaults to data/raw/owid-covid-data.csv)")
	dataDir := flag.String("data-dir", "", "base data directory (defaults to data relative to executable)")
	outFile := flag.String("out", "", "output path for the clean dataset CSV (defaults to data/clean/covid_clean.csv)")
	mode := flag.String("mode", "", "pipeline mode: comparative or global (defaults to config)")
	locations := flag.String("locations", "", "comma-separated location allow-list overriding the configured one")
	derive := flag.String("derive", "", "derived columns to compute: death_rate,vaccinated_percent")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	// Initialize paths first to get default directories
	var (
		paths *config.Paths
		err   error
	)
	if *dataDir != "" {
		paths = config.PathsFromBase(*dataDir)
	} else {
		paths, err = config.GetPaths()
		if err != nil {
			slog.Error("Failed to initialize paths", "error", err)
			os.Exit(1)
		}
	}

	// Ensure all required directories exist
	if err := paths.EnsureDirectories(); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Warn("Failed to load config, using defaults", "error", err)
		cfg = config.Default()
		cfg.Logging.FilePath = paths.GetLogPath("prepare.log")
	}

	// Flags override whatever config and environment resolved to.
	if *mode != "" {
		cfg.Pipeline.Mode = *mode
	}
	if *locations != "" {
		cfg.Pipeline.Locations = splitList(*locations)
	}
	if *derive != "" {
		if err := applyDeriveOverride(cfg, *derive); err != nil {
			slog.Error("Invalid -derive value", "error", err)
			os.Exit(1)
		}
	}
	if *verbose {
		cfg.Logging.Level = "debug"
	}
	if cfg.Pipeline.Mode != "comparative" && cfg.Pipeline.Mode != "global" {
		slog.Error("Invalid pipeline mode", "mode", cfg.Pipeline.Mode,
			"hint", "use comparative or global")
		os.Exit(1)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()

	// Observability is best effort: a failed exporter never blocks a run.
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

	inputPath := *inFile
	if inputPath == "" {
		if *dataDir != "" {
			inputPath = paths.RawDataset
		} else {
			inputPath = cfg.GetInputFile()
		}
	}
	outputPath := *outFile
	if outputPath == "" {
		outputPath = paths.CleanCSV
	}

	// When no explicit input was given and the default file is absent, fall
	// back to the newest dataset dropped into the raw directory.
	if *inFile == "" {
		if _, statErr := os.Stat(inputPath); os.IsNotExist(statErr) {
			discovery := files.NewDiscovery(paths.DataDir)
			if candidates, findErr := discovery.FindDatasetFiles(paths.RawDir); findErr == nil {
				if latest, ok := files.GetLatestFile(candidates); ok {
					logger.Info("Default dataset missing, using newest raw file",
						slog.String("path", latest.Path),
						slog.Time("modified", latest.ModTime))
					inputPath = latest.Path
				}
			}
		}
	}

	logger.Info("Starting COVID data preparation",
		slog.String("input", inputPath),
		slog.String("output", outputPath),
		slog.String("mode", cfg.Pipeline.Mode),
		slog.Int("locations", len(cfg.Pipeline.Locations)),
		slog.Bool("derive_death_rate", cfg.Pipeline.DeriveDeathRate),
		slog.Bool("derive_vaccinated_percent", cfg.Pipeline.DeriveVaccinatedPercent))

	// Pre-flight: reject missing, unreadable, or misnamed datasets before
	// any parsing starts.
	validator := validation.NewDatasetValidator(logger)
	if err := validator.ValidateDatasetSource(inputPath, cfg.Data.Format); err != nil {
		logger.Error("Dataset failed pre-flight validation",
			slog.String("path", inputPath),
			slog.String("error", err.Error()),
			slog.String("hint", "pass -in with a path to an OWID-convention .csv or .xlsx export"))
		os.Exit(1)
	}

	// Every log line emitted under this context carries the same trace ID.
	ctx := infrastructure.EnsureTraceID(context.Background())
	started := time.Now()

	loader := dataprocessing.NewLoader(infrastructure.WithComponent(logger, "loader"), dataprocessing.LoaderConfig{
		WarnRatePerSecond: cfg.Pipeline.WarnRatePerSecond,
		WarnBurst:         cfg.Pipeline.WarnBurst,
	})
	records, loadStats, err := loader.Load(ctx, inputPath)
	if err != nil {
		switch {
		case errors.IsType(err, errors.ErrTypeSchema):
			logger.Error("Dataset rejected: required columns missing",
				slog.String("error", err.Error()))
		case errors.IsType(err, errors.ErrTypeDataLoad):
			logger.Error("Failed to read dataset",
				slog.String("path", inputPath),
				slog.String("error", err.Error()))
		default:
			logger.Error("Failed to load dataset", slog.String("error", err.Error()))
		}
		os.Exit(1)
	}
	if len(records) == 0 {
		logger.Error("No records loaded from dataset",
			slog.String("path", inputPath),
			slog.String("hint", "check that the file carries data rows below the header"))
		os.Exit(1)
	}

	pipeline := dataprocessing.NewPipeline(infrastructure.WithComponent(logger, "pipeline"))
	if providers != nil {
		pipeline = pipeline.WithObservability(providers.Tracer, metrics)
	}
	clean, stats, err := pipeline.Prepare(ctx, records, cfg.Filter(), dataprocessing.PrepareOptions{
		DeriveDeathRate:         cfg.Pipeline.DeriveDeathRate,
		DeriveVaccinatedPercent: cfg.Pipeline.DeriveVaccinatedPercent,
	})
	if err != nil {
		logger.Error("Data preparation failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	manifest := exporter.NewRunManifest(stats.RunID, cfg.Pipeline.Mode)
	fileManager := files.NewManager(paths)
	fingerprint, err := fileManager.Fingerprint(inputPath)
	if err != nil {
		logger.Warn("Dataset fingerprint unavailable", slog.String("error", err.Error()))
	}
	size, _ := fileManager.GetFileSize(inputPath)
	manifest.SetDataset(inputPath, fingerprint, size)
	manifest.SetLoadStats(loadStats)
	manifest.SetPrepareStats(stats)

	cleanExporter := exporter.NewCleanExporter(paths)
	rows, err := cleanExporter.ExportCSVStreaming(clean, outputPath)
	if err != nil {
		logger.Error("Failed to write clean dataset", slog.String("error", err.Error()))
		manifest.Fail(err)
		if saveErr := manifest.Save(paths.ManifestJSON); saveErr != nil {
			logger.Warn("Failed to save run manifest", slog.String("error", saveErr.Error()))
		}
		infrastructure.RecordRunMetrics(ctx, metrics, stats.RunID, cfg.Pipeline.Mode,
			time.Since(started), false, err)
		os.Exit(1)
	}
	manifest.RecordArtifact("clean_csv", outputPath, rows)
	manifest.Complete()
	if err := manifest.Save(paths.ManifestJSON); err != nil {
		logger.Warn("Failed to save run manifest", slog.String("error", err.Error()))
	}

	infrastructure.RecordRunMetrics(ctx, metrics, stats.RunID, cfg.Pipeline.Mode,
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

	logger.Info("Data preparation complete",
		slog.String("run_id", stats.RunID),
		slog.Int("rows_out", rows),
		slog.String("clean_csv", outputPath),
		slog.Duration("elapsed", time.Since(started)))

	printPrepareSummary(loadStats, stats, rows, outputPath)
}

// splitList parses a comma-separated flag value into trimmed entries.
func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// applyDeriveOverride replaces the configured derived-column switches with
// the -derive flag value.
func applyDeriveOverride(cfg *config.Config, value string) error {
	cfg.Pipeline.DeriveDeathRate = false
	cfg.Pipeline.DeriveVaccinatedPercent = false
	for _, name := range splitList(value) {
		switch name {
		case "death_rate":
			cfg.Pipeline.DeriveDeathRate = true
		case "vaccinated_percent":
			cfg.Pipeline.DeriveVaccinatedPercent = true
		default:
			return fmt.Errorf("unknown derived column %q (want death_rate or vaccinated_percent)", name)
		}
	}
	return nil
}

func printPrepareSummary(loadStats *dataprocessing.LoadStats, stats *dataprocessing.PrepareStats, rows int, outputPath string) {
	fmt.Println("\n=== DATA PREPARATION SUMMARY ===")
	fmt.Printf("%-26s | %s\n", "Source", loadStats.SourcePath)
	fmt.Printf("%-26s | %s\n", "Format", loadStats.Format)
	fmt.Printf("%-26s | %8d\n", "Rows read", loadStats.RowsRead)
	fmt.Printf("%-26s | %8d\n", "Records loaded", loadStats.RecordsLoaded)
	fmt.Printf("%-26s | %8d\n", "Rows skipped", loadStats.RowsSkipped)
	fmt.Printf("%-26s | %8d\n", "Malformed cells", loadStats.MalformedCells)

	fmt.Println("\n=== PIPELINE ===")
	fmt.Printf("%-26s | %8d\n", "Rows in", stats.RowsIn)
	fmt.Printf("%-26s | %8d\n", "Dropped by allow-list", stats.FilteredByAllowList)
	fmt.Printf("%-26s | %8d\n", "Dropped as aggregates", stats.FilteredAsAggregates)
	fmt.Printf("%-26s | %8d\n", "Duplicates dropped", stats.DuplicatesDropped)
	fmt.Printf("%-26s | %8d\n", "Delta fills", stats.DeltaFills)
	fmt.Printf("%-26s | %8d\n", "Vaccination fills", stats.VaccinationFills)
	fmt.Printf("%-26s | %8d\n", "Derived death rates", stats.DerivedDeathRates)
	fmt.Printf("%-26s | %8d\n", "Derived vaccinated pct", stats.DerivedVaccinatedPercent)
	fmt.Printf("%-26s | %8d\n", "Rows out", stats.RowsOut)
	fmt.Printf("%-26s | %8d\n", "Locations", stats.Locations)
	fmt.Printf("%-26s | %8s\n", "Duration", stats.TotalDuration.Round(time.Millisecond))

	fmt.Printf("\nClean dataset written to %s (%d rows)\n", outputPath, rows)
}
