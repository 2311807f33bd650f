package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"covidcli/internal/infrastructure"
	"covidcli/pkg/contracts/domain"
)

// Pipeline prepares raw records for reporting. A Pipeline holds no run
// state: the same instance can prepare any number of datasets, including
// concurrently.
type Pipeline struct {
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *infrastructure.PipelineMetrics
}

// NewPipeline creates a preparation pipeline.
func NewPipeline(logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{logger: logger}
}

// WithObservability attaches a tracer and pipeline metrics. Either may be
// nil; steps then run unobserved.
func (p *Pipeline) WithObservability(tracer trace.Tracer, metrics *infrastructure.PipelineMetrics) *Pipeline {
	p.tracer = tracer
	p.metrics = metrics
	return p
}

// Prepare runs the full preparation over raw records:
//
//  1. filter rows by the location policies
//  2. normalize: group by location, sort ascending by date, drop
//     duplicate (location, date) rows keeping the later occurrence
//  3. zero-fill absent new_cases/new_deaths from cumulative first
//     differences; a location's first row diffs to zero
//  4. forward-fill total_vaccinations within each location
//  5. derive the enabled rate metrics with zero/absent-denominator guards
//  6. project to the clean column set
//
// The input slice is never mutated. The returned statistics are valid even
// when an error is returned.
func (p *Pipeline) Prepare(ctx context.Context, records []domain.Record, filter domain.RecordFilter, options PrepareOptions) ([]domain.CleanRecord, *PrepareStats, error) {
	stats := NewPrepareStats()
	stats.RowsIn = len(records)
	start := time.Now()

	p.logger.InfoContext(ctx, "starting data preparation",
		slog.String("run_id", stats.RunID),
		slog.Int("rows_in", stats.RowsIn),
		slog.Int("allow_list", len(filter.AllowList)),
		slog.Int("exclude_aggregates", len(filter.ExcludeAggregates)),
		slog.Bool("derive_death_rate", options.DeriveDeathRate),
		slog.Bool("derive_vaccinated_percent", options.DeriveVaccinatedPercent))

	var filtered []domain.Record
	if err := p.runStep(ctx, stats, StepFilter, func(context.Context) error {
		filtered = p.filterRecords(records, filter, stats)
		return nil
	}); err != nil {
		return nil, stats, err
	}

	var groups []locationGroup
	if err := p.runStep(ctx, stats, StepNormalize, func(context.Context) error {
		groups = p.normalize(filtered, stats)
		return nil
	}); err != nil {
		return nil, stats, err
	}

	if err := p.runStep(ctx, stats, StepDeltaFill, func(context.Context) error {
		p.fillDeltas(groups, stats)
		return nil
	}); err != nil {
		return nil, stats, err
	}

	if err := p.runStep(ctx, stats, StepVaccinationFill, func(context.Context) error {
		p.fillVaccinations(groups, stats)
		return nil
	}); err != nil {
		return nil, stats, err
	}

	var derivedValues [][]derived
	if err := p.runStep(ctx, stats, StepDerive, func(context.Context) error {
		derivedValues = p.derive(groups, options, stats)
		return nil
	}); err != nil {
		return nil, stats, err
	}

	var clean []domain.CleanRecord
	if err := p.runStep(ctx, stats, StepProject, func(context.Context) error {
		clean = p.project(groups, derivedValues)
		return nil
	}); err != nil {
		return nil, stats, err
	}

	stats.RowsOut = len(clean)
	stats.Locations = len(groups)
	stats.TotalDuration = time.Since(start)
	p.recordRunCounters(ctx, stats)

	p.logger.InfoContext(ctx, "data preparation complete",
		slog.String("run_id", stats.RunID),
		slog.Int("rows_in", stats.RowsIn),
		slog.Int("rows_out", stats.RowsOut),
		slog.Int("locations", stats.Locations),
		slog.Int("filtered", stats.Filtered()),
		slog.Int("duplicates_dropped", stats.DuplicatesDropped),
		slog.Int("delta_fills", stats.DeltaFills),
		slog.Int("vaccination_fills", stats.VaccinationFills),
		slog.Int("derived_values", stats.DerivedValues()),
		slog.Duration("duration", stats.TotalDuration))

	return clean, stats, nil
}

// Prepare runs the preparation pipeline with a default-configured Pipeline.
// Callers wanting metrics or tracing construct a Pipeline instead.
func Prepare(ctx context.Context, records []domain.Record, filter domain.RecordFilter, options PrepareOptions) ([]domain.CleanRecord, *PrepareStats, error) {
	return NewPipeline(nil).Prepare(ctx, records, filter, options)
}

// locationGroup is one location's rows in ascending date order.
type locationGroup struct {
	location string
	records  []domain.Record
}

// derived holds the rate metrics computed for one row before projection.
type derived struct {
	deathRate         *float64
	vaccinatedPercent *float64
}

// runStep executes one pipeline step with cancellation, timing, metrics,
// and an optional span around it.
func (p *Pipeline) runStep(ctx context.Context, stats *PrepareStats, step string, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("pipeline cancelled before %s: %w", step, err)
	}

	stepCtx := ctx
	var span trace.Span
	if p.tracer != nil {
		stepCtx, span = p.tracer.Start(ctx, "pipeline."+step,
			trace.WithAttributes(attribute.String("run.id", stats.RunID)))
		defer span.End()
	}

	start := time.Now()
	err := fn(stepCtx)
	duration := time.Since(start)

	stats.StepDurations[step] = duration
	infrastructure.RecordStepMetrics(stepCtx, p.metrics, stats.RunID, step, duration, err == nil)
	if err != nil {
		infrastructure.RecordError(stepCtx, err)
	}

	p.logger.DebugContext(stepCtx, "pipeline step finished",
		slog.String("run_id", stats.RunID),
		slog.String("step", step),
		slog.Duration("duration", duration))

	return err
}

// filterRecords applies both location policies. The allow-list is checked
// first, so a row failing both is attributed to it in the statistics.
func (p *Pipeline) filterRecords(records []domain.Record, filter domain.RecordFilter, stats *PrepareStats) []domain.Record {
	if filter.IsNoOp() {
		kept := make([]domain.Record, len(records))
		copy(kept, records)
		return kept
	}

	allowed := make(map[string]bool, len(filter.AllowList))
	for _, location := range filter.AllowList {
		allowed[domain.NormalizeLocation(location)] = true
	}
	excluded := make(map[string]bool, len(filter.ExcludeAggregates))
	for _, aggregate := range filter.ExcludeAggregates {
		excluded[domain.NormalizeLocation(aggregate)] = true
	}

	kept := make([]domain.Record, 0, len(records))
	for _, record := range records {
		location := domain.NormalizeLocation(record.Location)

		if len(allowed) > 0 && !allowed[location] {
			stats.FilteredByAllowList++
			continue
		}
		if excluded[location] || domain.IsAggregateISOCode(record.ISOCode, filter.AggregateISOPrefix) {
			stats.FilteredAsAggregates++
			continue
		}
		kept = append(kept, record)
	}
	return kept
}

// normalize groups rows by location, truncates dates to UTC midnight, sorts
// each group ascending by date, and drops duplicate dates keeping the later
// source occurrence. Groups come back in alphabetical location order so
// every run emits rows deterministically.
func (p *Pipeline) normalize(records []domain.Record, stats *PrepareStats) []locationGroup {
	byLocation := make(map[string][]domain.Record)
	for _, record := range records {
		location := domain.NormalizeLocation(record.Location)
		record.Location = location
		record.Date = truncateToDay(record.Date)
		byLocation[location] = append(byLocation[location], record)
	}

	locations := make([]string, 0, len(byLocation))
	for location := range byLocation {
		locations = append(locations, location)
	}
	sort.Strings(locations)

	groups := make([]locationGroup, 0, len(locations))
	for _, location := range locations {
		group := byLocation[location]

		// Stable sort keeps source order among equal dates, so the last
		// row of a duplicate run is the later source occurrence.
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Date.Before(group[j].Date)
		})

		deduped := make([]domain.Record, 0, len(group))
		for i, record := range group {
			if i+1 < len(group) && record.Date.Equal(group[i+1].Date) {
				stats.DuplicatesDropped++
				continue
			}
			deduped = append(deduped, record)
		}

		groups = append(groups, locationGroup{location: location, records: deduped})
	}
	return groups
}

// fillDeltas replaces absent new_cases/new_deaths with the first difference
// of the corresponding cumulative total within the location's ordered
// sequence. A location's first row, or a row before any cumulative value
// has been seen, diffs to zero. Values present in the source are never
// touched, even when they disagree with the difference.
func (p *Pipeline) fillDeltas(groups []locationGroup, stats *PrepareStats) {
	for gi := range groups {
		var prevCases, prevDeaths *float64
		for ri := range groups[gi].records {
			record := &groups[gi].records[ri]

			if record.NewCases == nil {
				record.NewCases = domain.Float(cumulativeDelta(record.TotalCases, prevCases))
				stats.DeltaFills++
			}
			if record.NewDeaths == nil {
				record.NewDeaths = domain.Float(cumulativeDelta(record.TotalDeaths, prevDeaths))
				stats.DeltaFills++
			}

			if record.TotalCases != nil {
				prevCases = record.TotalCases
			}
			if record.TotalDeaths != nil {
				prevDeaths = record.TotalDeaths
			}
		}
	}
}

// cumulativeDelta computes current minus previous. Either side absent
// yields zero: before the first reported total there is nothing to diff
// against.
func cumulativeDelta(current, previous *float64) float64 {
	cur, ok := domain.FloatValue(current)
	if !ok {
		return 0
	}
	prev, seen := domain.FloatValue(previous)
	if !seen {
		return 0
	}
	return cur - prev
}

// fillVaccinations carries the last reported total_vaccinations forward
// within each location. The fill never crosses a location boundary, and a
// group whose head is absent keeps an absent head.
func (p *Pipeline) fillVaccinations(groups []locationGroup, stats *PrepareStats) {
	for gi := range groups {
		var last *float64
		for ri := range groups[gi].records {
			record := &groups[gi].records[ri]
			if record.TotalVaccinations != nil {
				last = record.TotalVaccinations
				continue
			}
			if last != nil {
				record.TotalVaccinations = domain.Float(*last)
				stats.VaccinationFills++
			}
		}
	}
}

// derive computes the enabled rate metrics per row, guarded so a zero or
// absent denominator yields an absent value rather than a division.
func (p *Pipeline) derive(groups []locationGroup, options PrepareOptions, stats *PrepareStats) [][]derived {
	all := make([][]derived, len(groups))
	for gi, group := range groups {
		values := make([]derived, len(group.records))
		for ri, record := range group.records {
			if options.DeriveDeathRate {
				values[ri].deathRate = deathRate(record)
				if values[ri].deathRate != nil {
					stats.DerivedDeathRates++
				} else {
					stats.AbsentDeathRates++
				}
			}
			if options.DeriveVaccinatedPercent {
				values[ri].vaccinatedPercent = vaccinatedPercent(record)
				if values[ri].vaccinatedPercent != nil {
					stats.DerivedVaccinatedPercent++
				} else {
					stats.AbsentVaccinatedPercent++
				}
			}
		}
		all[gi] = values
	}
	return all
}

// deathRate computes total_deaths / total_cases * 100 for one row. The rate
// is absent when either total is absent or total_cases is not positive.
func deathRate(record domain.Record) *float64 {
	cases, casesPresent := domain.FloatValue(record.TotalCases)
	deaths, deathsPresent := domain.FloatValue(record.TotalDeaths)
	if !casesPresent || !deathsPresent || cases <= 0 {
		return nil
	}
	return domain.Float(deaths / cases * 100)
}

// vaccinatedPercent computes total_vaccinations / population * 100 for one
// row. The percent is absent when either value is absent or population is
// not positive.
func vaccinatedPercent(record domain.Record) *float64 {
	vaccinations, vaccPresent := domain.FloatValue(record.TotalVaccinations)
	population, popPresent := domain.FloatValue(record.Population)
	if !vaccPresent || !popPresent || population <= 0 {
		return nil
	}
	return domain.Float(vaccinations / population * 100)
}

// project flattens the groups into the clean column set. Pointer fields are
// copied so the clean rows share no memory with the pipeline's working
// state; downstream consumers get a read-only handoff.
func (p *Pipeline) project(groups []locationGroup, derivedValues [][]derived) []domain.CleanRecord {
	total := 0
	for _, group := range groups {
		total += len(group.records)
	}

	clean := make([]domain.CleanRecord, 0, total)
	for gi, group := range groups {
		for ri, record := range group.records {
			newCases, _ := domain.FloatValue(record.NewCases)
			newDeaths, _ := domain.FloatValue(record.NewDeaths)

			clean = append(clean, domain.CleanRecord{
				ISOCode:           record.ISOCode,
				Location:          record.Location,
				Date:              record.Date,
				TotalCases:        copyFloat(record.TotalCases),
				NewCases:          newCases,
				TotalDeaths:       copyFloat(record.TotalDeaths),
				NewDeaths:         newDeaths,
				TotalVaccinations: copyFloat(record.TotalVaccinations),
				Population:        copyFloat(record.Population),
				DeathRate:         copyFloat(derivedValues[gi][ri].deathRate),
				VaccinatedPercent: copyFloat(derivedValues[gi][ri].vaccinatedPercent),
			})
		}
	}
	return clean
}

// recordRunCounters mirrors the final statistics into the metrics registry.
func (p *Pipeline) recordRunCounters(ctx context.Context, stats *PrepareStats) {
	if p.metrics == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String("run.id", stats.RunID))
	p.metrics.RecordsLoaded.Add(ctx, int64(stats.RowsIn), attrs)
	p.metrics.RecordsFiltered.Add(ctx, int64(stats.Filtered()), attrs)
	p.metrics.DuplicatesDropped.Add(ctx, int64(stats.DuplicatesDropped), attrs)
	p.metrics.DeltaFills.Add(ctx, int64(stats.DeltaFills), attrs)
	p.metrics.VaccinationFills.Add(ctx, int64(stats.VaccinationFills), attrs)
	p.metrics.DerivedValues.Add(ctx, int64(stats.DerivedValues()), attrs)
	p.metrics.RecordsEmitted.Add(ctx, int64(stats.RowsOut), attrs)
}

// copyFloat duplicates an optional value so callers cannot alias pipeline
// working state.
func copyFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	value := *p
	return &value
}

// truncateToDay normalizes a timestamp to UTC midnight. Dates are calendar
// identities here; any time-of-day component is noise from the source.
func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
