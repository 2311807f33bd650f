package dataprocessing

import (
	"context"
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/time/rate"

	"covidcli/internal/config"
	"covidcli/internal/errors"
	"covidcli/pkg/contracts/domain"
)

// loaderContextCheckRows is how often the row loop polls for cancellation.
const loaderContextCheckRows = 10000

// dateLayouts are the accepted date formats, tried in order. The OWID
// dataset uses ISO dates; the rest cover hand-edited exports.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// Loader reads raw epidemiological records from a delimited text or XLSX
// dataset. Rows whose location or date cannot be established are skipped;
// malformed numeric cells degrade to absent values. Both are counted and
// logged through a rate limiter so a corrupt file cannot flood the log.
type Loader struct {
	logger      *slog.Logger
	warnLimiter *rate.Limiter
}

// LoaderConfig holds construction options for the Loader.
type LoaderConfig struct {
	// WarnRatePerSecond and WarnBurst bound how fast cell-level warnings
	// reach the log. Counting in LoadStats is never throttled.
	WarnRatePerSecond float64
	WarnBurst         int
}

// DefaultLoaderConfig returns the default loader configuration.
func DefaultLoaderConfig() LoaderConfig {
	return LoaderConfig{
		WarnRatePerSecond: config.DefaultWarnRatePerSecond,
		WarnBurst:         config.DefaultWarnBurst,
	}
}

// NewLoader creates a dataset loader.
func NewLoader(logger *slog.Logger, cfg LoaderConfig) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.WarnRatePerSecond <= 0 {
		cfg.WarnRatePerSecond = config.DefaultWarnRatePerSecond
	}
	if cfg.WarnBurst < 1 {
		cfg.WarnBurst = config.DefaultWarnBurst
	}
	return &Loader{
		logger:      logger,
		warnLimiter: rate.NewLimiter(rate.Limit(cfg.WarnRatePerSecond), cfg.WarnBurst),
	}
}

// LoadStats describes what the loader accepted and rejected from one source.
type LoadStats struct {
	SourcePath     string `json:"source_path"`
	Format         string `json:"format"`
	RowsRead       int    `json:"rows_read"`
	RecordsLoaded  int    `json:"records_loaded"`
	RowsSkipped    int    `json:"rows_skipped"`
	MalformedCells int    `json:"malformed_cells"`
}

// Load reads the dataset at path, dispatching on the file extension.
func (l *Loader) Load(ctx context.Context, path string) ([]domain.Record, *LoadStats, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return l.LoadCSV(ctx, path)
	case ".xlsx", ".xls":
		return l.LoadXLSX(ctx, path)
	default:
		return nil, nil, errors.NewDataLoadError(
			fmt.Sprintf("unrecognized dataset extension %q", ext), nil).
			WithContext("path", path)
	}
}

// LoadCSV reads a delimited text dataset. The header row maps columns by
// name (case-insensitive, BOM-tolerant); rows may vary in width and carry
// lazy quoting.
func (l *Loader) LoadCSV(ctx context.Context, path string) ([]domain.Record, *LoadStats, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.NewDataLoadError("failed to open dataset", err).
			WithContext("path", path)
	}
	defer file.Close()

	stats := &LoadStats{SourcePath: path, Format: "csv"}

	reader := csv.NewReader(file)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, stats, errors.NewSchemaError(config.ErrMsgSchemaMismatch,
			[]string{config.ColLocation, config.ColDate}).
			WithContext("path", path)
	}
	if err != nil {
		return nil, stats, errors.NewDataLoadError("failed to read dataset header", err).
			WithContext("path", path)
	}

	columns, err := headerIndex(header)
	if err != nil {
		return nil, stats, err
	}

	var records []domain.Record
	line := 1 // header occupies line 1
	for {
		if line%loaderContextCheckRows == 0 {
			select {
			case <-ctx.Done():
				return nil, stats, fmt.Errorf("dataset load cancelled: %w", ctx.Err())
			default:
			}
		}

		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			var parseErr *csv.ParseError
			if stderrors.As(err, &parseErr) {
				stats.RowsRead++
				stats.RowsSkipped++
				l.warn(ctx, "skipping unparseable row",
					slog.Int("line", line),
					slog.String("error", err.Error()))
				continue
			}
			return nil, stats, errors.NewDataLoadError("failed while reading dataset rows", err).
				WithContext("path", path).
				WithContext("line", line)
		}

		stats.RowsRead++
		record, ok := l.rowToRecord(ctx, row, columns, line, stats)
		if !ok {
			continue
		}
		records = append(records, record)
	}

	stats.RecordsLoaded = len(records)
	l.logLoadSummary(ctx, stats)
	return records, stats, nil
}

// LoadXLSX reads the first sheet of an Excel workbook using the same header
// mapping as the CSV path.
func (l *Loader) LoadXLSX(ctx context.Context, path string) ([]domain.Record, *LoadStats, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, errors.NewDataLoadError("failed to open workbook", err).
			WithContext("path", path)
	}
	defer f.Close()

	stats := &LoadStats{SourcePath: path, Format: "xlsx"}

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, stats, errors.NewDataLoadError("workbook has no sheets", nil).
			WithContext("path", path)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, stats, errors.NewDataLoadError("failed to read workbook rows", err).
			WithContext("path", path).
			WithContext("sheet", sheets[0])
	}
	if len(rows) == 0 {
		return nil, stats, errors.NewSchemaError(config.ErrMsgSchemaMismatch,
			[]string{config.ColLocation, config.ColDate}).
			WithContext("path", path)
	}

	columns, err := headerIndex(rows[0])
	if err != nil {
		return nil, stats, err
	}

	var records []domain.Record
	for i := 1; i < len(rows); i++ {
		if i%loaderContextCheckRows == 0 {
			select {
			case <-ctx.Done():
				return nil, stats, fmt.Errorf("dataset load cancelled: %w", ctx.Err())
			default:
			}
		}

		stats.RowsRead++
		record, ok := l.rowToRecord(ctx, rows[i], columns, i+1, stats)
		if !ok {
			continue
		}
		records = append(records, record)
	}

	stats.RecordsLoaded = len(records)
	l.logLoadSummary(ctx, stats)
	return records, stats, nil
}

// headerIndex maps column names to their positions. Names match
// case-insensitively with surrounding whitespace and a UTF-8 BOM stripped.
func headerIndex(header []string) (map[string]int, error) {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\uFEFF")
		}
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if _, seen := columns[name]; !seen {
			columns[name] = i
		}
	}

	var missing []string
	for _, required := range []string{config.ColLocation, config.ColDate} {
		if _, ok := columns[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, errors.NewSchemaError(config.ErrMsgSchemaMismatch, missing)
	}

	return columns, nil
}

// rowToRecord converts one source row. Rows without a usable location or
// date are skipped; malformed numeric cells become absent values so the row
// stays usable.
func (l *Loader) rowToRecord(ctx context.Context, row []string, columns map[string]int, line int, stats *LoadStats) (domain.Record, bool) {
	cell := func(name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	location := domain.NormalizeLocation(cell(config.ColLocation))
	if location == "" {
		stats.RowsSkipped++
		l.warn(ctx, "skipping row without location", slog.Int("line", line))
		return domain.Record{}, false
	}

	rawDate := cell(config.ColDate)
	date, err := parseDate(rawDate)
	if err != nil {
		stats.RowsSkipped++
		l.warn(ctx, "skipping row with unparseable date",
			slog.Int("line", line),
			slog.String("location", location),
			slog.String("date", rawDate))
		return domain.Record{}, false
	}

	numeric := func(column string) *float64 {
		raw := cell(column)
		if raw == "" {
			return nil
		}
		value, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
		if err != nil {
			stats.MalformedCells++
			l.warn(ctx, "ignoring malformed numeric cell",
				slog.Int("line", line),
				slog.String("location", location),
				slog.String("column", column),
				slog.String("value", raw))
			return nil
		}
		return &value
	}

	return domain.Record{
		ISOCode:               cell(config.ColISOCode),
		Location:              location,
		Date:                  date,
		TotalCases:            numeric(config.ColTotalCases),
		NewCases:              numeric(config.ColNewCases),
		TotalDeaths:           numeric(config.ColTotalDeaths),
		NewDeaths:             numeric(config.ColNewDeaths),
		TotalVaccinations:     numeric(config.ColTotalVaccinations),
		PeopleVaccinated:      numeric(config.ColPeopleVaccinated),
		PeopleFullyVaccinated: numeric(config.ColPeopleFullyVaccinated),
		Population:            numeric(config.ColPopulation),
		GDPPerCapita:          numeric(config.ColGDPPerCapita),
		HumanDevelopmentIndex: numeric(config.ColHDI),
	}, true
}

// parseDate attempts the accepted date layouts in order.
func parseDate(value string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if date, err := time.Parse(layout, value); err == nil {
			return date, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse date: %q", value)
}

// warn logs through the rate limiter. Dropped messages stay counted in the
// load statistics, so nothing is lost except log volume.
func (l *Loader) warn(ctx context.Context, msg string, args ...any) {
	if !l.warnLimiter.Allow() {
		return
	}
	l.logger.WarnContext(ctx, msg, args...)
}

// logLoadSummary reports the final load counts once, unthrottled.
func (l *Loader) logLoadSummary(ctx context.Context, stats *LoadStats) {
	l.logger.InfoContext(ctx, "dataset loaded",
		slog.String("path", stats.SourcePath),
		slog.String("format", stats.Format),
		slog.Int("rows_read", stats.RowsRead),
		slog.Int("records_loaded", stats.RecordsLoaded),
		slog.Int("rows_skipped", stats.RowsSkipped),
		slog.Int("malformed_cells", stats.MalformedCells))
}
