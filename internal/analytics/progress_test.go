package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"covidcli/pkg/contracts/domain"
)

func TestVaccinationProgress(t *testing.T) {
	analyzer := NewAnalyzer(nil, AnalyzerConfig{VaccinationTarget: 70})

	summaries := []domain.LocationSummary{
		{
			Location:   "Chile",
			LatestDate: "2021-11-30",
			// Derived percent available: used directly.
			VaccinatedPercent: domain.Float(84.5),
		},
		{
			Location:   "Kenya",
			LatestDate: "2021-11-28",
			// No derived percent; coverage comes from totals.
			TotalVaccinations: domain.Float(7500000),
			Population:        domain.Float(50000000),
		},
		{
			Location:   "Micronesia",
			LatestDate: "2021-11-30",
			// Neither path available.
		},
		{
			Location:          "Tonga",
			LatestDate:        "2021-11-30",
			TotalVaccinations: domain.Float(100000),
			// Population absent: deriving would fabricate a figure.
		},
	}

	progress := analyzer.VaccinationProgress(summaries)
	require.Len(t, progress, 4)

	chile := progress[0]
	assert.Equal(t, ProgressStatusReached, chile.Status)
	require.NotNil(t, chile.Coverage)
	assert.InDelta(t, 84.5, *chile.Coverage, 1e-9)
	assert.Nil(t, chile.RemainingPercent, "nothing remains past the target")

	kenya := progress[1]
	assert.Equal(t, ProgressStatusInProgress, kenya.Status)
	require.NotNil(t, kenya.Coverage)
	assert.InDelta(t, 15.0, *kenya.Coverage, 1e-9)
	require.NotNil(t, kenya.RemainingPercent)
	assert.InDelta(t, 55.0, *kenya.RemainingPercent, 1e-9)
	assert.Equal(t, 70.0, kenya.TargetPercent)

	for _, entry := range progress[2:] {
		assert.Equal(t, ProgressStatusNoData, entry.Status, entry.Location)
		assert.Nil(t, entry.Coverage, "no data must never fabricate a zero for %s", entry.Location)
		assert.Nil(t, entry.RemainingPercent)
	}
}

func TestVaccinationProgress_ExactTargetCountsAsReached(t *testing.T) {
	analyzer := NewAnalyzer(nil, AnalyzerConfig{VaccinationTarget: 70})

	progress := analyzer.VaccinationProgress([]domain.LocationSummary{
		{Location: "Kenya", LatestDate: "2021-11-30", VaccinatedPercent: domain.Float(70.0)},
	})

	require.Len(t, progress, 1)
	assert.Equal(t, ProgressStatusReached, progress[0].Status)
}

func TestVaccinationProgress_DosesCanExceedPopulation(t *testing.T) {
	analyzer := NewAnalyzer(nil, DefaultAnalyzerConfig())

	progress := analyzer.VaccinationProgress([]domain.LocationSummary{
		{
			Location:          "Israel",
			LatestDate:        "2021-11-30",
			TotalVaccinations: domain.Float(16000000),
			Population:        domain.Float(9000000),
		},
	})

	require.Len(t, progress, 1)
	require.NotNil(t, progress[0].Coverage)
	assert.Greater(t, *progress[0].Coverage, 100.0, "multi-dose schedules report as given, uncapped")
	assert.Equal(t, ProgressStatusReached, progress[0].Status)
}

func TestVaccinationProgress_ZeroPopulationGuard(t *testing.T) {
	analyzer := NewAnalyzer(nil, DefaultAnalyzerConfig())

	progress := analyzer.VaccinationProgress([]domain.LocationSummary{
		{
			Location:          "Ghost Town",
			LatestDate:        "2021-11-30",
			TotalVaccinations: domain.Float(10),
			Population:        domain.Float(0),
		},
	})

	require.Len(t, progress, 1)
	assert.Equal(t, ProgressStatusNoData, progress[0].Status)
	assert.Nil(t, progress[0].Coverage)
}
