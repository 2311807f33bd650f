package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"covidcli/pkg/contracts/domain"
)

func day(value string) time.Time {
	t, err := time.Parse(domain.DateFormat, value)
	if err != nil {
		panic("bad date literal: " + value)
	}
	return t
}

func cleanSeries(location string, start string, newCases ...float64) []domain.CleanRecord {
	records := make([]domain.CleanRecord, 0, len(newCases))
	date := day(start)
	for i, value := range newCases {
		records = append(records, domain.CleanRecord{
			Location:  location,
			Date:      date.AddDate(0, 0, i),
			NewCases:  value,
			NewDeaths: value / 10,
		})
	}
	return records
}

func TestRollingAverages_TrailingWindow(t *testing.T) {
	analyzer := NewAnalyzer(nil, AnalyzerConfig{RollingWindow: 3})

	trends := analyzer.RollingAverages(cleanSeries("Kenya", "2021-01-01", 10, 20, 30, 40))
	require.Len(t, trends, 4)

	// Head of the series averages what exists; full windows slide.
	wantSmoothed := []float64{10, 15, 20, 30}
	for i, want := range wantSmoothed {
		assert.InDelta(t, want, trends[i].SmoothedNewCases, 1e-9, "point %d", i)
	}

	assert.Equal(t, 10.0, trends[0].NewCases, "raw values pass through")
	assert.InDelta(t, 1.0, trends[0].SmoothedNewDeaths, 1e-9, "deaths smoothed independently")
	assert.InDelta(t, 3.0, trends[3].SmoothedNewDeaths, 1e-9)
}

func TestRollingAverages_WindowNeverCrossesLocations(t *testing.T) {
	analyzer := NewAnalyzer(nil, AnalyzerConfig{RollingWindow: 3})

	records := append(
		cleanSeries("Brazil", "2021-01-01", 1000, 1000, 1000),
		cleanSeries("Kenya", "2021-01-01", 10, 20)...,
	)

	trends := analyzer.RollingAverages(records)
	require.Len(t, trends, 5)

	// Output groups sort alphabetically, dates ascending within.
	assert.Equal(t, "Brazil", trends[0].Location)
	assert.Equal(t, "Kenya", trends[3].Location)

	// Kenya's first point must not see Brazil's values.
	assert.InDelta(t, 10.0, trends[3].SmoothedNewCases, 1e-9)
	assert.InDelta(t, 15.0, trends[4].SmoothedNewCases, 1e-9)
}

func TestRollingAverages_UnsortedInput(t *testing.T) {
	analyzer := NewAnalyzer(nil, AnalyzerConfig{RollingWindow: 2})

	records := []domain.CleanRecord{
		{Location: "Kenya", Date: day("2021-01-03"), NewCases: 30},
		{Location: "Kenya", Date: day("2021-01-01"), NewCases: 10},
		{Location: "Kenya", Date: day("2021-01-02"), NewCases: 20},
	}

	trends := analyzer.RollingAverages(records)
	require.Len(t, trends, 3)

	assert.Equal(t, day("2021-01-01"), trends[0].Date)
	assert.InDelta(t, 10.0, trends[0].SmoothedNewCases, 1e-9)
	assert.InDelta(t, 25.0, trends[2].SmoothedNewCases, 1e-9)
}

func TestRollingAverages_SeriesShorterThanWindow(t *testing.T) {
	analyzer := NewAnalyzer(nil, AnalyzerConfig{RollingWindow: 7})

	trends := analyzer.RollingAverages(cleanSeries("Kenya", "2021-01-01", 14, 28))
	require.Len(t, trends, 2)
	assert.InDelta(t, 14.0, trends[0].SmoothedNewCases, 1e-9)
	assert.InDelta(t, 21.0, trends[1].SmoothedNewCases, 1e-9)
}

func TestDetectPeaks(t *testing.T) {
	analyzer := NewAnalyzer(nil, AnalyzerConfig{RollingWindow: 3})

	records := append(
		cleanSeries("Brazil", "2021-01-01", 100, 500, 200),
		cleanSeries("Kenya", "2021-01-01", 10, 20, 30, 40)...,
	)

	peaks := analyzer.DetectPeaks(analyzer.RollingAverages(records))
	require.Len(t, peaks, 2)

	brazil := peaks[0]
	assert.Equal(t, "Brazil", brazil.Location)
	assert.Equal(t, 500.0, brazil.PeakNewCases)
	assert.Equal(t, day("2021-01-02"), brazil.PeakNewCasesDate)
	// Smoothed: [100, 300, 266.67] peaks on day two.
	assert.InDelta(t, 300.0, brazil.PeakSmoothedNewCases, 1e-9)
	assert.Equal(t, day("2021-01-02"), brazil.PeakSmoothedNewCasesDate)

	kenya := peaks[1]
	assert.Equal(t, 40.0, kenya.PeakNewCases)
	assert.Equal(t, day("2021-01-04"), kenya.PeakNewCasesDate)
	assert.InDelta(t, 30.0, kenya.PeakSmoothedNewCases, 1e-9)
}

func TestDetectPeaks_TiesKeepEarliestDate(t *testing.T) {
	analyzer := NewAnalyzer(nil, AnalyzerConfig{RollingWindow: 1})

	peaks := analyzer.DetectPeaks(analyzer.RollingAverages(cleanSeries("Kenya", "2021-01-01", 50, 50, 50)))
	require.Len(t, peaks, 1)
	assert.Equal(t, day("2021-01-01"), peaks[0].PeakNewCasesDate)
	assert.Equal(t, day("2021-01-01"), peaks[0].PeakSmoothedNewCasesDate)
}

func TestDetectPeaks_NegativeOnlySeriesFloorsToZero(t *testing.T) {
	analyzer := NewAnalyzer(nil, AnalyzerConfig{RollingWindow: 2})

	peaks := analyzer.DetectPeaks(analyzer.RollingAverages(cleanSeries("Kenya", "2021-01-01", -5, -3)))
	require.Len(t, peaks, 1)
	assert.Equal(t, 0.0, peaks[0].PeakNewCases)
	assert.True(t, peaks[0].PeakNewCasesDate.IsZero())
	assert.Equal(t, 0.0, peaks[0].PeakSmoothedNewCases)
	assert.True(t, peaks[0].PeakSmoothedNewCasesDate.IsZero())
}

func TestTrailingMean(t *testing.T) {
	tests := []struct {
		name   string
		size   int
		values []float64
		want   []float64
	}{
		{
			name:   "window one tracks the input",
			size:   1,
			values: []float64{3, 7, 1},
			want:   []float64{3, 7, 1},
		},
		{
			name:   "window two",
			size:   2,
			values: []float64{2, 4, 6, 8},
			want:   []float64{2, 3, 5, 7},
		},
		{
			name:   "window larger than series",
			size:   10,
			values: []float64{1, 2, 3},
			want:   []float64{1, 1.5, 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mean := newTrailingMean(tt.size)
			for i, value := range tt.values {
				assert.InDelta(t, tt.want[i], mean.push(value), 1e-9, "value %d", i)
			}
		})
	}
}
