package reports

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weather-history/internal/models"
)

func testLocations() []models.Location {
	return []models.Location{
		{
			City:      "Foothills Ranch",
			State:     "California",
			StateID:   "CA",
			Alias:     "foothills",
			Latitude:  "33.6802",
			Longitude: "-117.6538",
			TZ:        "America/Los_Angeles",
		},
		{
			City:      "Medina",
			State:     "Ohio",
			StateID:   "OH",
			Alias:     "medina",
			Latitude:  "41.1434",
			Longitude: "-81.8632",
			TZ:        "America/New_York",
		},
	}
}

func TestParseFormat(t *testing.T) {
	for value, expected := range map[string]Format{
		"text": FormatText,
		"":     FormatText,
		"CSV":  FormatCSV,
		"json": FormatJSON,
	} {
		format, err := ParseFormat(value)
		require.NoError(t, err)
		assert.Equal(t, expected, format)
	}

	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestLocationsText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Locations(&buf, FormatText, testLocations()))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "Location")
	assert.Contains(t, lines[0], "Timezone")
	assert.Contains(t, lines[1], "Foothills Ranch, CA")
	assert.Contains(t, lines[1], "33.6802/-117.6538")
	assert.Contains(t, lines[2], "Medina, OH")
}

func TestLocationsCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Locations(&buf, FormatCSV, testLocations()))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "name,alias,longitude,latitude,tz", lines[0])
	assert.Equal(t, `"Foothills Ranch, CA",foothills,-117.6538,33.6802,America/Los_Angeles`, lines[1])
}

func TestLocationsJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Locations(&buf, FormatJSON, testLocations()))

	var document struct {
		Locations []struct {
			Name  string `json:"name"`
			Alias string `json:"alias"`
			TZ    string `json:"tz"`
		} `json:"locations"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &document))
	require.Len(t, document.Locations, 2)
	assert.Equal(t, "Foothills Ranch, CA", document.Locations[0].Name)
	assert.Equal(t, "medina", document.Locations[1].Alias)
}

func TestSummariesText(t *testing.T) {
	summaries := []models.HistorySummary{
		{Alias: "foothills", Count: 1200, OverallSize: 2048 * 1024, RawSize: 1536 * 1024, CompressedSize: 512 * 1024},
		{Alias: "medina", Count: 0},
	}

	var buf bytes.Buffer
	require.NoError(t, Summaries(&buf, FormatText, testLocations(), summaries))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[1], "Foothills Ranch, CA")
	assert.Contains(t, lines[1], "1,200")
	assert.Contains(t, lines[1], "2,048 kiB")
	assert.Contains(t, lines[3], "Total")
	assert.Contains(t, lines[3], "1,200")
}

func TestSummariesCSV(t *testing.T) {
	summaries := []models.HistorySummary{
		{Alias: "foothills", Count: 3, OverallSize: 4096, RawSize: 3000, CompressedSize: 1000},
	}

	var buf bytes.Buffer
	require.NoError(t, Summaries(&buf, FormatCSV, testLocations(), summaries))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "location,entries,entries_size,compressed_size,size", lines[0])
	assert.Equal(t, `"Foothills Ranch, CA",3,3000,1000,4096`, lines[1])
}

func TestSummariesUnknownAliasFallsBack(t *testing.T) {
	summaries := []models.HistorySummary{{Alias: "orphan", Count: 1}}

	var buf bytes.Buffer
	require.NoError(t, Summaries(&buf, FormatText, nil, summaries))
	assert.Contains(t, buf.String(), "orphan")
}

func TestDatesText(t *testing.T) {
	locations := testLocations()
	dates := []models.HistoryDates{
		{
			Location: locations[0],
			Ranges: []models.DateRange{
				models.NewDateRange(models.NewDate(2024, time.July, 1), models.NewDate(2024, time.July, 3)),
				models.NewDateRange(models.NewDate(2024, time.July, 6), models.NewDate(2024, time.July, 6)),
			},
		},
		{Location: locations[1]},
	}

	var buf bytes.Buffer
	require.NoError(t, Dates(&buf, FormatText, dates))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[1], "2024-07-01 thru 2024-07-03")
	assert.NotContains(t, lines[2], "Foothills")
	assert.Contains(t, lines[2], "2024-07-06")
	assert.Contains(t, lines[3], "None")
}

func TestDatesCSV(t *testing.T) {
	dates := []models.HistoryDates{
		{
			Location: testLocations()[0],
			Ranges: []models.DateRange{
				models.NewDateRange(models.NewDate(2024, time.July, 1), models.NewDate(2024, time.July, 3)),
			},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, Dates(&buf, FormatCSV, dates))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "location,start_date,end_date", lines[0])
	assert.Equal(t, `"Foothills Ranch, CA",2024-07-01,2024-07-03`, lines[1])
}

func TestHistoriesText(t *testing.T) {
	daily := models.DailyHistories{
		Location: testLocations()[0],
		Histories: []models.History{
			{
				Alias:           "foothills",
				Date:            models.NewDate(2024, time.July, 1),
				TemperatureHigh: models.Float64(81.5),
				TemperatureLow:  models.Float64(62.25),
				Humidity:        models.Float64(43.0),
				Description:     models.String("Clear all day."),
			},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, Histories(&buf, FormatText, daily))

	output := buf.String()
	assert.Contains(t, output, "2024-07-01")
	assert.Contains(t, output, "81.5")
	assert.Contains(t, output, "62.2")
	assert.Contains(t, output, "Clear all day.")
}

func TestHistoriesJSONUsesWireFields(t *testing.T) {
	daily := models.DailyHistories{
		Location: testLocations()[0],
		Histories: []models.History{
			{
				Alias:           "foothills",
				Date:            models.NewDate(2024, time.July, 1),
				TemperatureHigh: models.Float64(81.5),
			},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, Histories(&buf, FormatJSON, daily))

	var document struct {
		Location  string `json:"location"`
		Histories []struct {
			TemperatureHigh *float64 `json:"temperature_high"`
		} `json:"histories"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &document))
	assert.Equal(t, "Foothills Ranch, CA", document.Location)
	require.Len(t, document.Histories, 1)
	require.NotNil(t, document.Histories[0].TemperatureHigh)
	assert.Equal(t, 81.5, *document.Histories[0].TemperatureHigh)
}

func TestCommafy(t *testing.T) {
	assert.Equal(t, "0", commafy(0))
	assert.Equal(t, "999", commafy(999))
	assert.Equal(t, "1,000", commafy(1000))
	assert.Equal(t, "12,345,678", commafy(12345678))
}
