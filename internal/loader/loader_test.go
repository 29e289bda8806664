package loader

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weather-history/internal/archive"
	"weather-history/internal/index"
	"weather-history/internal/models"
	"weather-history/pkg/database"
	"weather-history/pkg/logging"
	"weather-history/pkg/metrics"
)

func testLogger() *logging.StructuredLogger {
	logger := logging.NewStructuredLogger("loader-test", "dev", logging.FatalLevel)
	logger.SetOutput(io.Discard)
	return logger
}

func testCollector() *metrics.Collector {
	return metrics.NewCollector("weather_history_test", prometheus.NewRegistry())
}

func testIndex(t *testing.T) *index.Index {
	t.Helper()
	logger := testLogger()
	db, err := database.New(&database.Config{
		Driver:       "sqlite",
		Path:         filepath.Join(t.TempDir(), "index.db"),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}, logger, testCollector())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ix := index.New(db, logger)
	require.NoError(t, ix.InitSchema(context.Background()))
	return ix
}

// buildArchives creates one container per alias with the given number of daily
// histories and returns the work units with placeholder row ids.
func buildArchives(t *testing.T, dir archive.Dir, counts map[string]int) int {
	t.Helper()
	total := 0
	for alias, count := range counts {
		a, err := archive.Create(alias, dir.ArchivePath(alias), testLogger())
		require.NoError(t, err)
		var batch []models.History
		for day := 1; day <= count; day++ {
			batch = append(batch, models.History{
				Alias:           alias,
				Date:            models.NewDate(2023, time.March, day),
				TemperatureHigh: models.Float64(50 + float64(day)),
			})
		}
		added, err := a.Append(batch)
		require.NoError(t, err)
		require.Len(t, added, count)
		total += count
	}
	return total
}

func indexUnits(t *testing.T, ix *index.Index, dir archive.Dir, aliases ...string) []Unit {
	t.Helper()
	ctx := context.Background()
	for _, alias := range aliases {
		_, err := ix.AddLocation(ctx, models.Location{
			City: alias, State: "Test", StateID: "TS", Alias: alias,
			Latitude: "10", Longitude: "10", TZ: "UTC",
		})
		require.NoError(t, err)
	}
	ids, err := ix.LocationIDs(ctx)
	require.NoError(t, err)
	units := make([]Unit, len(ids))
	for i, id := range ids {
		units[i] = Unit{LID: id.ID, Alias: id.Alias, ArchivePath: dir.ArchivePath(id.Alias)}
	}
	return units
}

func TestRunCompletenessAcrossWorkerCounts(t *testing.T) {
	dir, err := archive.NewDir(t.TempDir())
	require.NoError(t, err)
	counts := map[string]int{"alpha": 4, "bravo": 3, "charlie": 5}
	total := buildArchives(t, dir, counts)

	for _, workers := range []int{1, 2, 8} {
		ix := testIndex(t)
		units := indexUnits(t, ix, dir, "alpha", "bravo", "charlie")
		logger := testLogger()
		l := New(NewArchiveProducer(logger), NewIndexConsumer(ix, logger), workers, logger, testCollector())

		result, err := l.Run(context.Background(), units)
		require.NoError(t, err)
		assert.Equal(t, total, result.Records)
		assert.Equal(t, 3, result.LocationsLoaded)
		assert.False(t, result.Partial())
		assert.NotEmpty(t, result.RunID)

		indexed, err := ix.HistoryCounts(context.Background())
		require.NoError(t, err)
		for alias, count := range counts {
			assert.Equal(t, count, indexed[alias], "alias %s with %d workers", alias, workers)
		}
	}
}

func TestRunIsolatesFailedProducer(t *testing.T) {
	dir, err := archive.NewDir(t.TempDir())
	require.NoError(t, err)
	buildArchives(t, dir, map[string]int{"alpha": 4, "charlie": 5})

	ix := testIndex(t)
	// bravo has a location row but no container on disk.
	units := indexUnits(t, ix, dir, "alpha", "bravo", "charlie")
	logger := testLogger()
	l := New(NewArchiveProducer(logger), NewIndexConsumer(ix, logger), 2, logger, testCollector())

	result, err := l.Run(context.Background(), units)
	require.NoError(t, err)
	assert.True(t, result.Partial())
	assert.Equal(t, 3, result.LocationsTotal)
	assert.GreaterOrEqual(t, result.LocationsFailed, 1)

	indexed, err := ix.HistoryCounts(context.Background())
	require.NoError(t, err)
	assert.Zero(t, indexed["bravo"])
	// Units claimed by the surviving worker still commit.
	assert.Equal(t, result.Records, indexed["alpha"]+indexed["charlie"])
}

func TestRunSurvivesProducerPanic(t *testing.T) {
	ix := testIndex(t)
	dir, err := archive.NewDir(t.TempDir())
	require.NoError(t, err)
	units := indexUnits(t, ix, dir, "alpha")
	logger := testLogger()
	l := New(panicProducer{}, NewIndexConsumer(ix, logger), 1, logger, testCollector())

	result, err := l.Run(context.Background(), units)
	require.NoError(t, err)
	assert.Zero(t, result.Records)
	assert.True(t, result.Partial())
}

type panicProducer struct{}

func (panicProducer) Gather(context.Context, Unit, chan<- Record) error {
	panic("broken producer")
}

func TestConsumerFailureCommitsNothing(t *testing.T) {
	dir, err := archive.NewDir(t.TempDir())
	require.NoError(t, err)
	buildArchives(t, dir, map[string]int{"alpha": 4, "bravo": 3})

	ix := testIndex(t)
	units := indexUnits(t, ix, dir, "alpha", "bravo")
	logger := testLogger()
	l := New(NewArchiveProducer(logger), failAfterConsumer{ix: ix, logger: logger, failAfter: 2}, 2, logger, testCollector())

	_, err = l.Run(context.Background(), units)
	require.Error(t, err)

	indexed, err := ix.HistoryCounts(context.Background())
	require.NoError(t, err)
	assert.Zero(t, indexed["alpha"])
	assert.Zero(t, indexed["bravo"])
}

// failAfterConsumer inserts through the real index transaction and aborts it
// after a fixed number of records.
type failAfterConsumer struct {
	ix        *index.Index
	logger    *logging.StructuredLogger
	failAfter int
}

func (c failAfterConsumer) Collect(ctx context.Context, records <-chan Record) (int, error) {
	tx, err := c.ix.BeginTx(ctx)
	if err != nil {
		return 0, err
	}
	count := 0
	for record := range records {
		if count >= c.failAfter {
			tx.Rollback()
			return 0, errors.New("simulated consumer failure")
		}
		if err := c.ix.InsertHistory(ctx, tx, record.LID, record.Metadata, record.History); err != nil {
			tx.Rollback()
			return 0, err
		}
		count++
	}
	tx.Rollback()
	return 0, errors.New("simulated consumer failure")
}

func TestQueuePopsDestructively(t *testing.T) {
	queue := NewQueue([]Unit{{Alias: "a"}, {Alias: "b"}})
	assert.Equal(t, 2, queue.Len())

	unit, ok := queue.Pop()
	require.True(t, ok)
	assert.Equal(t, "a", unit.Alias)
	_, ok = queue.Pop()
	require.True(t, ok)
	_, ok = queue.Pop()
	assert.False(t, ok)
	assert.Zero(t, queue.Len())
}
