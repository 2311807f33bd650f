package analytics

import (
	"math"
	"sort"

	"covidcli/internal/config"
	"covidcli/pkg/contracts/domain"
)

// correlationMetrics are the columns correlated, in matrix order. GDP per
// capita and the human development index exist only on raw records, which is
// why correlation runs on them rather than the clean projection.
var correlationMetrics = []struct {
	name    string
	extract func(r domain.Record) *float64
}{
	{config.ColTotalCases, func(r domain.Record) *float64 { return r.TotalCases }},
	{config.ColTotalDeaths, func(r domain.Record) *float64 { return r.TotalDeaths }},
	{config.ColTotalVaccinations, func(r domain.Record) *float64 { return r.TotalVaccinations }},
	{config.ColGDPPerCapita, func(r domain.Record) *float64 { return r.GDPPerCapita }},
	{config.ColHDI, func(r domain.Record) *float64 { return r.HumanDevelopmentIndex }},
}

// Correlation computes the Pearson matrix over latest-per-location values of
// the key metrics. Each location contributes its last reported value per
// metric. Cells are pairwise-complete: a coefficient uses only the locations
// where both metrics are present, and stays nil when fewer than the
// configured minimum pairs exist or either series is constant over the pairs
// (zero variance makes the coefficient undefined, not zero).
func (a *Analyzer) Correlation(records []domain.Record) *CorrelationMatrix {
	vectors := latestPerLocation(records)

	n := len(correlationMetrics)
	matrix := &CorrelationMatrix{
		Metrics:      make([]string, n),
		Coefficients: make([][]*float64, n),
		SamplePairs:  make([][]int, n),
		Locations:    len(vectors),
	}
	for i, metric := range correlationMetrics {
		matrix.Metrics[i] = metric.name
		matrix.Coefficients[i] = make([]*float64, n)
		matrix.SamplePairs[i] = make([]int, n)
	}

	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			xs, ys := completePairs(vectors, i, j)
			matrix.SamplePairs[i][j] = len(xs)
			matrix.SamplePairs[j][i] = len(xs)

			if len(xs) < a.minCorrPairs {
				continue
			}
			r, ok := pearson(xs, ys)
			if !ok {
				continue
			}
			matrix.Coefficients[i][j] = domain.Float(r)
			if i != j {
				matrix.Coefficients[j][i] = domain.Float(r)
			}
		}
	}

	return matrix
}

// latestPerLocation reduces raw records to one metric vector per location,
// taking the last reported value of each metric independently. Static
// columns (GDP, HDI) repeat on every row, so "last reported" and "any" agree
// for them; for cumulative totals it is the latest figure.
func latestPerLocation(records []domain.Record) [][]*float64 {
	byLocation := make(map[string][]domain.Record)
	for _, record := range records {
		location := domain.NormalizeLocation(record.Location)
		byLocation[location] = append(byLocation[location], record)
	}

	locations := make([]string, 0, len(byLocation))
	for location := range byLocation {
		locations = append(locations, location)
	}
	sort.Strings(locations)

	vectors := make([][]*float64, 0, len(locations))
	for _, location := range locations {
		group := byLocation[location]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Date.Before(group[j].Date)
		})

		vector := make([]*float64, len(correlationMetrics))
		for m, metric := range correlationMetrics {
			for i := len(group) - 1; i >= 0; i-- {
				if value := metric.extract(group[i]); value != nil {
					vector[m] = domain.Float(*value)
					break
				}
			}
		}
		vectors = append(vectors, vector)
	}

	return vectors
}

// completePairs collects the vector entries where both metrics are present.
func completePairs(vectors [][]*float64, i, j int) (xs, ys []float64) {
	for _, vector := range vectors {
		if vector[i] == nil || vector[j] == nil {
			continue
		}
		xs = append(xs, *vector[i])
		ys = append(ys, *vector[j])
	}
	return xs, ys
}

// pearson computes the correlation coefficient of two equal-length samples.
// Returns ok=false when either sample has zero variance.
func pearson(xs, ys []float64) (float64, bool) {
	n := float64(len(xs))
	if n == 0 {
		return 0, false
	}

	var meanX, meanY float64
	for k := range xs {
		meanX += xs[k]
		meanY += ys[k]
	}
	meanX /= n
	meanY /= n

	var cov, varX, varY float64
	for k := range xs {
		dx := xs[k] - meanX
		dy := ys[k] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}

	if varX == 0 || varY == 0 {
		return 0, false
	}

	r := cov / math.Sqrt(varX*varY)

	// Guard against floating-point drift pushing past the bounds.
	if r > 1 {
		r = 1
	}
	if r < -1 {
		r = -1
	}
	return r, true
}
