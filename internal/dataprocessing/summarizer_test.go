package dataprocessing

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"covidcli/pkg/contracts/domain"
)

func summaryFixture() []domain.CleanRecord {
	return []domain.CleanRecord{
		// Kenya: rising then falling daily cases, vaccination appears late.
		{ISOCode: "KEN", Location: "Kenya", Date: day("2021-01-01"), TotalCases: domain.Float(100), NewCases: 10, TotalDeaths: domain.Float(2), NewDeaths: 0, Population: domain.Float(50000000)},
		{ISOCode: "KEN", Location: "Kenya", Date: day("2021-01-02"), TotalCases: domain.Float(160), NewCases: 60, TotalDeaths: domain.Float(3), NewDeaths: 1, Population: domain.Float(50000000), DeathRate: domain.Float(1.875)},
		{ISOCode: "KEN", Location: "Kenya", Date: day("2021-01-03"), TotalCases: domain.Float(180), NewCases: 20, TotalDeaths: domain.Float(4), NewDeaths: 1, Population: domain.Float(50000000), TotalVaccinations: domain.Float(1000), DeathRate: domain.Float(2.22)},
		// Brazil: single day.
		{ISOCode: "BRA", Location: "Brazil", Date: day("2021-01-01"), TotalCases: domain.Float(7000000), NewCases: 50000, TotalDeaths: domain.Float(190000), NewDeaths: 800, DeathRate: domain.Float(2.71)},
	}
}

func TestSummarizer_GenerateFromRecords(t *testing.T) {
	summarizer := NewSummarizer(nil, SummarizerConfig{RollingWindow: 2, DataSource: "covid_clean.csv"})

	summaries, err := summarizer.GenerateFromRecords(context.Background(), summaryFixture())
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	// Sorted by location.
	assert.Equal(t, "Brazil", summaries[0].Location)
	assert.Equal(t, "Kenya", summaries[1].Location)

	kenya := summaries[1]
	assert.Equal(t, "KEN", kenya.ISOCode)
	assert.Equal(t, "2021-01-03", kenya.LatestDate)
	assert.Equal(t, 3, kenya.DaysObserved)
	assert.Equal(t, "covid_clean.csv", kenya.DataSource)
	assert.Equal(t, domain.LocationSummaryVersion, kenya.Version)
	assert.False(t, kenya.GeneratedAt.IsZero())

	require.NotNil(t, kenya.TotalCases)
	assert.Equal(t, 180.0, *kenya.TotalCases)
	require.NotNil(t, kenya.TotalDeaths)
	assert.Equal(t, 4.0, *kenya.TotalDeaths)
	require.NotNil(t, kenya.TotalVaccinations)
	assert.Equal(t, 1000.0, *kenya.TotalVaccinations)
	require.NotNil(t, kenya.DeathRate)
	assert.InDelta(t, 2.22, *kenya.DeathRate, 1e-9)
	assert.Nil(t, kenya.VaccinatedPercent)

	// Raw peak: 60 on Jan 2. Smoothed with window 2: [10, 35, 40] peaks
	// at 40 on Jan 3.
	assert.Equal(t, 60.0, kenya.PeakNewCases)
	assert.Equal(t, "2021-01-02", kenya.PeakNewCasesDate)
	assert.InDelta(t, 40.0, kenya.PeakSmoothedNewCases, 1e-9)
	assert.Equal(t, "2021-01-03", kenya.PeakSmoothedNewCasesDate)

	brazil := summaries[0]
	assert.Equal(t, 1, brazil.DaysObserved)
	assert.Equal(t, 50000.0, brazil.PeakNewCases)
	assert.InDelta(t, 50000.0, brazil.PeakSmoothedNewCases, 1e-9, "single row averages itself")
}

func TestSummarizer_LatestValuesScanBackwards(t *testing.T) {
	records := []domain.CleanRecord{
		{Location: "Kenya", Date: day("2021-01-01"), TotalCases: domain.Float(100), DeathRate: domain.Float(2.0)},
		{Location: "Kenya", Date: day("2021-01-02")}, // nothing reported
	}

	summaries, err := NewSummarizer(nil, DefaultSummarizerConfig()).GenerateFromRecords(context.Background(), records)
	require.NoError(t, err)
	require.Len(t, summaries, 1)

	assert.Equal(t, "2021-01-02", summaries[0].LatestDate, "latest date is the last observed row")
	require.NotNil(t, summaries[0].TotalCases)
	assert.Equal(t, 100.0, *summaries[0].TotalCases, "a trailing absent cell must not blank the figure")
	require.NotNil(t, summaries[0].DeathRate)
	assert.Equal(t, 2.0, *summaries[0].DeathRate)
	assert.Nil(t, summaries[0].TotalVaccinations, "never reported stays absent")
}

func TestSummarizer_EmptyInput(t *testing.T) {
	summaries, err := NewSummarizer(nil, DefaultSummarizerConfig()).GenerateFromRecords(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestSummarizer_UnsortedInput(t *testing.T) {
	records := []domain.CleanRecord{
		{Location: "Kenya", Date: day("2021-01-03"), NewCases: 5, TotalCases: domain.Float(30)},
		{Location: "Kenya", Date: day("2021-01-01"), NewCases: 1, TotalCases: domain.Float(10)},
		{Location: "Kenya", Date: day("2021-01-02"), NewCases: 9, TotalCases: domain.Float(25)},
	}

	summaries, err := NewSummarizer(nil, DefaultSummarizerConfig()).GenerateFromRecords(context.Background(), records)
	require.NoError(t, err)
	require.Len(t, summaries, 1)

	assert.Equal(t, "2021-01-03", summaries[0].LatestDate)
	assert.Equal(t, 9.0, summaries[0].PeakNewCases)
	assert.Equal(t, "2021-01-02", summaries[0].PeakNewCasesDate)
}

func TestSummarizer_WriteCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reports", "location_summary.csv")

	summarizer := NewSummarizer(nil, SummarizerConfig{RollingWindow: 2})
	summaries, err := summarizer.GenerateFromRecords(context.Background(), summaryFixture())
	require.NoError(t, err)

	require.NoError(t, summarizer.WriteCSV(context.Background(), path, summaries))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3, "header plus two locations")

	header := rows[0]
	assert.Equal(t, "Location", header[0])
	assert.Equal(t, "ISOCode", header[1])
	assert.Contains(t, header, "DeathRate")
	assert.Contains(t, header, "PeakSmoothedNewCases")

	brazil := rows[1]
	assert.Equal(t, "Brazil", brazil[0])
	assert.Equal(t, "7000000", brazil[4])

	kenya := rows[2]
	assert.Equal(t, "Kenya", kenya[0])
	assert.Equal(t, "", kenya[9], "absent vaccinated percent renders as an empty cell")
	assert.Equal(t, "2.22", kenya[8])
}

func TestSummarizer_WriteJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "location_summary.json")

	summarizer := NewSummarizer(nil, SummarizerConfig{RollingWindow: 2, DataSource: "covid_clean.csv"})
	summaries, err := summarizer.GenerateFromRecords(context.Background(), summaryFixture())
	require.NoError(t, err)

	require.NoError(t, summarizer.WriteJSON(context.Background(), path, summaries))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var document struct {
		Locations  []domain.LocationSummary `json:"locations"`
		Count      int                      `json:"count"`
		Format     string                   `json:"format"`
		DataSource string                   `json:"data_source"`
	}
	require.NoError(t, json.Unmarshal(data, &document))

	assert.Equal(t, 2, document.Count)
	assert.Equal(t, "location_summary_v1", document.Format)
	assert.Equal(t, "covid_clean.csv", document.DataSource)
	require.Len(t, document.Locations, 2)
	assert.Equal(t, "Brazil", document.Locations[0].Location)

	kenya := document.Locations[1]
	require.NotNil(t, kenya.TotalCases)
	assert.Equal(t, 180.0, *kenya.TotalCases)
	assert.Nil(t, kenya.VaccinatedPercent, "absent metrics must not round-trip as zero")
}

func TestSummarizer_Defaults(t *testing.T) {
	cfg := DefaultSummarizerConfig()
	assert.Equal(t, 7, cfg.RollingWindow)
	assert.Equal(t, domain.DateFormat, cfg.DateFormat)

	summarizer := NewSummarizer(nil, SummarizerConfig{})
	assert.Equal(t, 7, summarizer.rollingWindow)
	assert.Equal(t, domain.DateFormat, summarizer.dateFormat)
}
