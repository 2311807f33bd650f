package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trendPoints(location, start string, smoothed ...float64) []TrendPoint {
	points := make([]TrendPoint, 0, len(smoothed))
	date := day(start)
	for i, value := range smoothed {
		points = append(points, TrendPoint{
			Location:         location,
			Date:             date.AddDate(0, 0, i),
			NewCases:         value,
			SmoothedNewCases: value,
		})
	}
	return points
}

func TestVariantImpacts(t *testing.T) {
	analyzer := NewAnalyzer(nil, AnalyzerConfig{
		VariantWindowDays: 5,
		Markers:           []VariantMarker{{Name: "Delta", EmergenceDate: day("2021-01-10")}},
	})

	// Four observed days before emergence (Jan 6-9), five after (Jan 10-14).
	points := trendPoints("Kenya", "2021-01-06", 10, 10, 10, 10, 20, 30, 40, 30, 20)

	impacts := analyzer.VariantImpacts(points)
	require.Len(t, impacts, 1)

	impact := impacts[0]
	assert.Equal(t, "Delta", impact.Variant)
	assert.Equal(t, "Kenya", impact.Location)
	assert.Equal(t, 5, impact.WindowDays)
	assert.Equal(t, 4, impact.DaysBefore)
	assert.Equal(t, 5, impact.DaysAfter)
	assert.InDelta(t, 10.0, impact.AvgBefore, 1e-9)
	assert.InDelta(t, 28.0, impact.AvgAfter, 1e-9)
	require.NotNil(t, impact.ChangeFactor)
	assert.InDelta(t, 2.8, *impact.ChangeFactor, 1e-9)
	assert.InDelta(t, 40.0, impact.PeakAfter, 1e-9)
	assert.Equal(t, day("2021-01-12"), impact.PeakAfterDate)
}

func TestVariantImpacts_WindowBoundaries(t *testing.T) {
	analyzer := NewAnalyzer(nil, AnalyzerConfig{
		VariantWindowDays: 2,
		Markers:           []VariantMarker{{Name: "Delta", EmergenceDate: day("2021-01-10")}},
	})

	// Jan 7 is outside [Jan 8, Jan 10); Jan 12 is outside [Jan 10, Jan 12).
	points := []TrendPoint{
		{Location: "Kenya", Date: day("2021-01-07"), SmoothedNewCases: 999},
		{Location: "Kenya", Date: day("2021-01-08"), SmoothedNewCases: 10},
		{Location: "Kenya", Date: day("2021-01-09"), SmoothedNewCases: 20},
		{Location: "Kenya", Date: day("2021-01-10"), SmoothedNewCases: 30},
		{Location: "Kenya", Date: day("2021-01-11"), SmoothedNewCases: 50},
		{Location: "Kenya", Date: day("2021-01-12"), SmoothedNewCases: 999},
	}

	impacts := analyzer.VariantImpacts(points)
	require.Len(t, impacts, 1)

	impact := impacts[0]
	assert.Equal(t, 2, impact.DaysBefore)
	assert.Equal(t, 2, impact.DaysAfter)
	assert.InDelta(t, 15.0, impact.AvgBefore, 1e-9)
	assert.InDelta(t, 40.0, impact.AvgAfter, 1e-9)
	assert.InDelta(t, 50.0, impact.PeakAfter, 1e-9, "emergence day belongs to the after window")
}

func TestVariantImpacts_LocationWithoutWindowDataOmitted(t *testing.T) {
	analyzer := NewAnalyzer(nil, AnalyzerConfig{
		VariantWindowDays: 5,
		Markers:           []VariantMarker{{Name: "Omicron", EmergenceDate: day("2021-11-15")}},
	})

	// All of Kenya's data ends months before Omicron emerged.
	impacts := analyzer.VariantImpacts(trendPoints("Kenya", "2021-01-01", 10, 20, 30))
	assert.Empty(t, impacts)
}

func TestVariantImpacts_OnlyAfterWindowObserved(t *testing.T) {
	analyzer := NewAnalyzer(nil, AnalyzerConfig{
		VariantWindowDays: 5,
		Markers:           []VariantMarker{{Name: "Alpha", EmergenceDate: day("2020-12-01")}},
	})

	// Reporting starts on emergence day: a ratio would divide by nothing.
	impacts := analyzer.VariantImpacts(trendPoints("Kenya", "2020-12-01", 5, 10, 15))
	require.Len(t, impacts, 1)

	impact := impacts[0]
	assert.Equal(t, 0, impact.DaysBefore)
	assert.Equal(t, 3, impact.DaysAfter)
	assert.Equal(t, 0.0, impact.AvgBefore)
	assert.InDelta(t, 10.0, impact.AvgAfter, 1e-9)
	assert.Nil(t, impact.ChangeFactor)
}

func TestVariantImpacts_MarkerAndLocationOrder(t *testing.T) {
	analyzer := NewAnalyzer(nil, AnalyzerConfig{
		VariantWindowDays: 5,
		Markers: []VariantMarker{
			{Name: "Alpha", EmergenceDate: day("2020-12-01")},
			{Name: "Delta", EmergenceDate: day("2021-04-01")},
		},
	})

	points := append(
		trendPoints("Kenya", "2020-11-28", 1, 1, 1, 1, 1, 1),
		trendPoints("Brazil", "2020-11-28", 2, 2, 2, 2, 2, 2)...,
	)
	// Give both locations data around Delta too.
	points = append(points, trendPoints("Kenya", "2021-03-30", 3, 3, 3, 3)...)
	points = append(points, trendPoints("Brazil", "2021-03-30", 4, 4, 4, 4)...)

	impacts := analyzer.VariantImpacts(points)
	require.Len(t, impacts, 4)

	assert.Equal(t, "Alpha", impacts[0].Variant)
	assert.Equal(t, "Brazil", impacts[0].Location)
	assert.Equal(t, "Alpha", impacts[1].Variant)
	assert.Equal(t, "Kenya", impacts[1].Location)
	assert.Equal(t, "Delta", impacts[2].Variant)
	assert.Equal(t, "Brazil", impacts[2].Location)
	assert.Equal(t, "Delta", impacts[3].Variant)
	assert.Equal(t, "Kenya", impacts[3].Location)
}

func TestDefaultMarkers(t *testing.T) {
	markers := DefaultMarkers()
	require.Len(t, markers, 3)
	assert.Equal(t, "Alpha", markers[0].Name)
	assert.Equal(t, day("2020-12-01"), markers[0].EmergenceDate)
	assert.Equal(t, "Delta", markers[1].Name)
	assert.Equal(t, day("2021-04-01"), markers[1].EmergenceDate)
	assert.Equal(t, "Omicron", markers[2].Name)
	assert.Equal(t, day("2021-11-15"), markers[2].EmergenceDate)
}
