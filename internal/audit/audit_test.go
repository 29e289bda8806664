package audit

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
	"weather-history/internal/index"
	"weather-history/internal/locations"
	"weather-history/internal/models"
	"weather-history/pkg/database"
	"weather-history/pkg/logging"
	"weather-history/pkg/metrics"
)

func testLogger() *logging.StructuredLogger {
	logger := logging.NewStructuredLogger("audit-test", "dev", logging.FatalLevel)
	logger.SetOutput(io.Discard)
	return logger
}

type fixture struct {
	store *locations.Store
	ix    *index.Index
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	logger := testLogger()
	dir, err := archive.NewDir(t.TempDir())
	require.NoError(t, err)
	store, err := locations.Create(dir, logger)
	require.NoError(t, err)

	db, err := database.New(&database.Config{
		Driver:       "sqlite",
		Path:         filepath.Join(t.TempDir(), "index.db"),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}, logger, metrics.NewCollector("weather_history_test", prometheus.NewRegistry()))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	ix := index.New(db, logger)
	require.NoError(t, ix.InitSchema(context.Background()))
	return fixture{store: store, ix: ix}
}

func (f fixture) addLocation(t *testing.T, alias string, indexed bool) models.Location {
	t.Helper()
	location, err := f.store.Add(models.Location{
		City: alias, State: "Test", StateID: "TS", Alias: alias,
		Latitude: "10", Longitude: "10", TZ: "UTC",
	})
	require.NoError(t, err)
	if indexed {
		_, err = f.ix.AddLocation(context.Background(), location)
		require.NoError(t, err)
	}
	return location
}

func (f fixture) appendHistories(t *testing.T, alias string, days int) {
	t.Helper()
	a, err := archive.Open(alias, f.store.Dir().ArchivePath(alias), testLogger())
	require.NoError(t, err)
	var batch []models.History
	for day := 1; day <= days; day++ {
		batch = append(batch, models.History{Alias: alias, Date: models.NewDate(2023, time.April, day)})
	}
	_, err = a.Append(batch)
	require.NoError(t, err)
}

func (f fixture) indexHistories(t *testing.T, alias string, days int) {
	t.Helper()
	ctx := context.Background()
	lid, err := f.ix.LocationID(ctx, alias)
	require.NoError(t, err)
	tx, err := f.ix.BeginTx(ctx)
	require.NoError(t, err)
	for day := 1; day <= days; day++ {
		date := models.NewDate(2023, time.April, day)
		metadata := archive.EntryMetadata{Alias: alias, Date: date, Size: 256, CompressedSize: 64}
		err = f.ix.InsertHistory(ctx, tx, lid, metadata, models.History{Alias: alias, Date: date})
		require.NoError(t, err)
	}
	require.NoError(t, tx.Commit())
}

func TestCleanAudit(t *testing.T) {
	f := newFixture(t)
	f.addLocation(t, "alpha", true)
	f.appendHistories(t, "alpha", 3)
	f.indexHistories(t, "alpha", 3)

	report, err := New(f.store, f.ix, testLogger()).Run(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Clean())
}

func TestLocationAuditSymmetry(t *testing.T) {
	f := newFixture(t)
	// alpha exists only in the archive side, bravo on both sides, and the
	// index holds an alias the catalog never had.
	f.addLocation(t, "alpha", false)
	f.addLocation(t, "bravo", true)
	_, err := f.ix.AddLocation(context.Background(), models.Location{
		City: "Orphan", State: "Test", StateID: "TS", Alias: "orphan",
		Latitude: "10", Longitude: "10", TZ: "UTC",
	})
	require.NoError(t, err)

	report, err := New(f.store, f.ix, testLogger()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha"}, report.Locations.MissingFromIndex)
	assert.Equal(t, []string{"orphan"}, report.Locations.MissingFromArchive)
}

func TestHistoryAuditReportsDrift(t *testing.T) {
	f := newFixture(t)
	f.addLocation(t, "alpha", true)
	f.appendHistories(t, "alpha", 5)
	f.indexHistories(t, "alpha", 2)

	f.addLocation(t, "bravo", true)
	f.appendHistories(t, "bravo", 1)
	f.indexHistories(t, "bravo", 1)

	report, err := New(f.store, f.ix, testLogger()).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Histories, 1)
	drift := report.Histories[0]
	assert.Equal(t, "alpha", drift.Alias)
	assert.Equal(t, 5, drift.ArchiveCount)
	assert.Equal(t, 2, drift.IndexCount)
	assert.Equal(t, 3, drift.IndexMissing())
	assert.Zero(t, drift.IndexExtra())
}

func TestAuditIsReadOnly(t *testing.T) {
	f := newFixture(t)
	f.addLocation(t, "alpha", true)
	f.appendHistories(t, "alpha", 2)

	_, err := New(f.store, f.ix, testLogger()).Run(context.Background())
	require.NoError(t, err)

	counts, err := f.ix.HistoryCounts(context.Background())
	require.NoError(t, err)
	assert.Zero(t, counts["alpha"])
	ranges, err := openArchiveRanges(t, f, "alpha")
	require.NoError(t, err)
	require.Len(t, ranges.Ranges, 1)
	assert.Equal(t, models.NewDate(2023, time.April, 1), ranges.Ranges[0].Start)
}

func openArchiveRanges(t *testing.T, f fixture, alias string) (models.DateRanges, error) {
	t.Helper()
	a, err := archive.Open(alias, f.store.Dir().ArchivePath(alias), testLogger())
	require.NoError(t, err)
	return a.Dates(nil)
}
