package index

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weather-history/internal/archive"
	"weather-history/internal/models"
	"weather-history/pkg/database"
	"weather-history/pkg/logging"
	"weather-history/pkg/metrics"
)

func testIndex(t *testing.T) *Index {
	t.Helper()
	logger := logging.NewStructuredLogger("index-test", "dev", logging.ErrorLevel)
	logger.SetOutput(io.Discard)
	collector := metrics.NewCollector("weather_history_test", prometheus.NewRegistry())
	db, err := database.New(&database.Config{
		Driver:       "sqlite",
		Path:         filepath.Join(t.TempDir(), "index.db"),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}, logger, collector)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ix := New(db, logger)
	require.NoError(t, ix.InitSchema(context.Background()))
	return ix
}

func testLocation(alias, city, state, stateID string) models.Location {
	return models.Location{
		City:      city,
		State:     state,
		StateID:   stateID,
		Alias:     alias,
		Latitude:  "33.6802",
		Longitude: "-117.6538",
		TZ:        "America/Los_Angeles",
	}
}

func testRecord(alias string, date time.Time) archive.ContentRecord {
	return archive.ContentRecord{
		Metadata: archive.EntryMetadata{Alias: alias, Date: date, Size: 512, CompressedSize: 128},
		History: models.History{
			Alias:           alias,
			Date:            date,
			TemperatureHigh: models.Float64(77.0),
			TemperatureLow:  models.Float64(56.0),
			Humidity:        models.Float64(43.0),
			WindDirection:   models.Int64(337),
			Description:     models.String("Sun and clouds mixed."),
		},
	}
}

func insertRecords(t *testing.T, ix *Index, lid int64, records []archive.ContentRecord) {
	t.Helper()
	ctx := context.Background()
	tx, err := ix.BeginTx(ctx)
	require.NoError(t, err)
	for _, record := range records {
		require.NoError(t, ix.InsertHistory(ctx, tx, lid, record.Metadata, record.History))
	}
	require.NoError(t, tx.Commit())
}

func TestAddAndQueryLocations(t *testing.T) {
	ix := testIndex(t)
	ctx := context.Background()

	foothills, err := ix.AddLocation(ctx, testLocation("foothills", "Foothills Ranch", "California", "CA"))
	require.NoError(t, err)
	assert.Greater(t, foothills, int64(0))
	tigard, err := ix.AddLocation(ctx, testLocation("tigard", "Tigard", "Oregon", "OR"))
	require.NoError(t, err)
	assert.NotEqual(t, foothills, tigard)

	locations, err := ix.Locations(ctx, nil)
	require.NoError(t, err)
	require.Len(t, locations, 2)
	// Ordered by city then state id.
	assert.Equal(t, "foothills", locations[0].Alias)
	assert.Equal(t, "tigard", locations[1].Alias)

	locations, err = ix.Locations(ctx, models.LocationFilters{{City: "foot*"}})
	require.NoError(t, err)
	require.Len(t, locations, 1)
	assert.Equal(t, "foothills", locations[0].Alias)

	locations, err = ix.Locations(ctx, models.LocationFilters{{City: "foot*"}, {State: "or"}})
	require.NoError(t, err)
	assert.Len(t, locations, 2)

	locations, err = ix.Locations(ctx, models.LocationFilters{{City: "foot*", State: "or"}})
	require.NoError(t, err)
	assert.Empty(t, locations)

	locations, err = ix.Locations(ctx, models.LocationFilters{{Name: "*GARD*"}})
	require.NoError(t, err)
	require.Len(t, locations, 1)
	assert.Equal(t, "tigard", locations[0].Alias)
}

func TestLocationID(t *testing.T) {
	ix := testIndex(t)
	ctx := context.Background()
	want, err := ix.AddLocation(ctx, testLocation("foothills", "Foothills Ranch", "California", "CA"))
	require.NoError(t, err)

	got, err := ix.LocationID(ctx, "foothills")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = ix.LocationID(ctx, "missing")
	var notFound *models.NotFoundError
	require.ErrorAs(t, err, &notFound)

	ids, err := ix.LocationIDs(ctx)
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, LocationID{ID: want, Alias: "foothills"}, ids[0])
}

func TestInsertAndQueryHistories(t *testing.T) {
	ix := testIndex(t)
	ctx := context.Background()
	location := testLocation("foothills", "Foothills Ranch", "California", "CA")
	lid, err := ix.AddLocation(ctx, location)
	require.NoError(t, err)

	dates := []time.Time{
		models.NewDate(2023, time.May, 1),
		models.NewDate(2023, time.May, 2),
		models.NewDate(2023, time.May, 3),
	}
	var records []archive.ContentRecord
	for _, date := range dates {
		records = append(records, testRecord(location.Alias, date))
	}
	insertRecords(t, ix, lid, records)

	daily, err := ix.DailyHistories(ctx, location, models.NewDateRange(dates[0], dates[1]))
	require.NoError(t, err)
	require.Len(t, daily.Histories, 2)
	assert.Equal(t, dates[0], daily.Histories[0].Date)
	assert.Equal(t, dates[1], daily.Histories[1].Date)
	assert.Equal(t, records[0].History, daily.Histories[0])

	ranges, err := ix.HistoryDates(ctx, location)
	require.NoError(t, err)
	require.Len(t, ranges.Ranges, 1)
	assert.Equal(t, models.NewDateRange(dates[0], dates[2]), ranges.Ranges[0])
}

func TestInsertRollsBackOnFailure(t *testing.T) {
	ix := testIndex(t)
	ctx := context.Background()
	lid, err := ix.AddLocation(ctx, testLocation("foothills", "Foothills Ranch", "California", "CA"))
	require.NoError(t, err)

	tx, err := ix.BeginTx(ctx)
	require.NoError(t, err)
	record := testRecord("foothills", models.NewDate(2023, time.May, 1))
	require.NoError(t, ix.InsertHistory(ctx, tx, lid, record.Metadata, record.History))
	require.NoError(t, tx.Rollback())

	counts, err := ix.HistoryCounts(ctx)
	require.NoError(t, err)
	assert.Zero(t, counts["foothills"])
}

func TestReloadReplacesRows(t *testing.T) {
	ix := testIndex(t)
	ctx := context.Background()
	location := testLocation("foothills", "Foothills Ranch", "California", "CA")
	lid, err := ix.AddLocation(ctx, location)
	require.NoError(t, err)

	stale := []archive.ContentRecord{
		testRecord(location.Alias, models.NewDate(2023, time.May, 1)),
		testRecord(location.Alias, models.NewDate(2023, time.May, 2)),
	}
	insertRecords(t, ix, lid, stale)

	fresh := []archive.ContentRecord{
		testRecord(location.Alias, models.NewDate(2023, time.June, 1)),
	}
	require.NoError(t, ix.ReloadLocation(ctx, lid, fresh))

	ranges, err := ix.HistoryDates(ctx, location)
	require.NoError(t, err)
	require.Len(t, ranges.Ranges, 1)
	assert.Equal(t, models.NewDate(2023, time.June, 1), ranges.Ranges[0].Start)

	counts, err := ix.HistoryCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts["foothills"])
}

func TestSummaries(t *testing.T) {
	ix := testIndex(t)
	ctx := context.Background()
	location := testLocation("foothills", "Foothills Ranch", "California", "CA")
	lid, err := ix.AddLocation(ctx, location)
	require.NoError(t, err)
	_, err = ix.AddLocation(ctx, testLocation("tigard", "Tigard", "Oregon", "OR"))
	require.NoError(t, err)

	insertRecords(t, ix, lid, []archive.ContentRecord{
		testRecord(location.Alias, models.NewDate(2023, time.May, 1)),
		testRecord(location.Alias, models.NewDate(2023, time.May, 2)),
	})

	summaries, err := ix.Summaries(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, models.HistorySummary{Alias: "foothills", Count: 2, RawSize: 1024, CompressedSize: 256}, summaries[0])
	assert.Equal(t, models.HistorySummary{Alias: "tigard"}, summaries[1])
}

func TestSchemaInitIsIdempotent(t *testing.T) {
	ix := testIndex(t)
	require.NoError(t, ix.InitSchema(context.Background()))
	require.NoError(t, ix.DropSchema(context.Background()))
	require.NoError(t, ix.InitSchema(context.Background()))
}
