package locations

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weather-history/internal/archive"
	"weather-history/internal/models"
	"weather-history/pkg/logging"
)

func testLogger() *logging.StructuredLogger {
	logger := logging.NewStructuredLogger("locations-test", "dev", logging.ErrorLevel)
	logger.SetOutput(io.Discard)
	return logger
}

func testDir(t *testing.T) archive.Dir {
	t.Helper()
	dir, err := archive.NewDir(t.TempDir())
	require.NoError(t, err)
	return dir
}

func testLocation() models.Location {
	return models.Location{
		City:      "Foothills Ranch",
		State:     "California",
		StateID:   "CA",
		Alias:     "foothills",
		Latitude:  "33.6802",
		Longitude: "-117.6538",
		TZ:        "America/Los_Angeles",
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Create(testDir(t), testLogger())
	require.NoError(t, err)
	return store
}

func TestCreateAndOpen(t *testing.T) {
	dir := testDir(t)
	_, err := Open(dir, testLogger())
	var notFound *models.NotFoundError
	require.ErrorAs(t, err, &notFound)

	_, err = Create(dir, testLogger())
	require.NoError(t, err)

	_, err = Create(dir, testLogger())
	var exists *models.AlreadyExistsError
	require.ErrorAs(t, err, &exists)

	store, err := Open(dir, testLogger())
	require.NoError(t, err)
	locations, err := store.Get()
	require.NoError(t, err)
	assert.Empty(t, locations)
}

func TestAddPersistsAndCreatesArchive(t *testing.T) {
	store := newTestStore(t)

	added, err := store.Add(testLocation())
	require.NoError(t, err)
	assert.Equal(t, "foothills", added.Alias)
	assert.Equal(t, "Foothills Ranch, CA", added.Name())
	assert.FileExists(t, store.Dir().ArchivePath(added.Alias))

	a, err := archive.Open(added.Alias, store.Dir().ArchivePath(added.Alias), testLogger())
	require.NoError(t, err)
	summary, err := a.Summary()
	require.NoError(t, err)
	assert.Zero(t, summary.Count)

	locations, err := store.Get()
	require.NoError(t, err)
	require.Len(t, locations, 1)
	assert.Equal(t, added, locations[0])
}

func TestAddNormalizesAlias(t *testing.T) {
	store := newTestStore(t)
	location := testLocation()
	location.Alias = " FootHills "

	added, err := store.Add(location)
	require.NoError(t, err)
	assert.Equal(t, "foothills", added.Alias)
}

func TestAddRejectsBadLatitude(t *testing.T) {
	store := newTestStore(t)
	before, err := os.ReadFile(store.Dir().File(Filename))
	require.NoError(t, err)

	location := testLocation()
	location.Latitude = "91"
	_, err = store.Add(location)
	var validationErr *models.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "latitude", validationErr.Field)

	after, err := os.ReadFile(store.Dir().File(Filename))
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.NoFileExists(t, store.Dir().ArchivePath(location.Alias))
}

func TestAddValidatesEveryField(t *testing.T) {
	tests := []struct {
		field  string
		mutate func(*models.Location)
	}{
		{"city", func(l *models.Location) { l.City = " " }},
		{"state", func(l *models.Location) { l.State = "" }},
		{"state_id", func(l *models.Location) { l.StateID = "" }},
		{"alias", func(l *models.Location) { l.Alias = "  " }},
		{"latitude", func(l *models.Location) { l.Latitude = "north" }},
		{"longitude", func(l *models.Location) { l.Longitude = "-180.5" }},
		{"tz", func(l *models.Location) { l.TZ = "America/Nowhere" }},
	}
	for _, test := range tests {
		t.Run(test.field, func(t *testing.T) {
			store := newTestStore(t)
			location := testLocation()
			test.mutate(&location)

			_, err := store.Add(location)
			var validationErr *models.ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, test.field, validationErr.Field)
		})
	}
}

func TestAddRejectsDuplicateAlias(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Add(testLocation())
	require.NoError(t, err)

	duplicate := testLocation()
	duplicate.City = "Somewhere Else"
	_, err = store.Add(duplicate)
	var exists *models.AlreadyExistsError
	require.ErrorAs(t, err, &exists)
}

func TestAddSortsByName(t *testing.T) {
	store := newTestStore(t)
	second := testLocation()
	second.City = "Vista"
	second.Alias = "vista"
	_, err := store.Add(second)
	require.NoError(t, err)
	_, err = store.Add(testLocation())
	require.NoError(t, err)

	locations, err := store.Get()
	require.NoError(t, err)
	require.Len(t, locations, 2)
	assert.Equal(t, "foothills", locations[0].Alias)
	assert.Equal(t, "vista", locations[1].Alias)
}

func TestFindFilters(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Add(testLocation())
	require.NoError(t, err)
	other := models.Location{
		City:      "Tigard",
		State:     "Oregon",
		StateID:   "OR",
		Alias:     "tigard",
		Latitude:  "45.4312",
		Longitude: "-122.7715",
		TZ:        "America/Los_Angeles",
	}
	_, err = store.Add(other)
	require.NoError(t, err)

	matched, err := store.Find(models.LocationFilters{{City: "foot*"}})
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, "foothills", matched[0].Alias)

	matched, err = store.Find(models.LocationFilters{{City: "foot*"}, {State: "or"}})
	require.NoError(t, err)
	assert.Len(t, matched, 2)

	matched, err = store.Find(models.LocationFilters{{City: "foot*", State: "or"}})
	require.NoError(t, err)
	assert.Empty(t, matched)

	matched, err = store.Find(nil)
	require.NoError(t, err)
	assert.Len(t, matched, 2)
}

func TestLoadDropsInvalidAndDuplicateEntries(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Add(testLocation())
	require.NoError(t, err)

	// Rewrite the document with a duplicate alias and a bad latitude entry.
	path := store.Dir().File(Filename)
	doc := `{"locations":[
		{"city":"Foothills Ranch","state":"California","state_id":"CA","alias":"foothills","latitude":"33.6802","longitude":"-117.6538","tz":"America/Los_Angeles"},
		{"city":"Copy","state":"California","state_id":"CA","alias":"foothills","latitude":"33.0","longitude":"-117.0","tz":"America/Los_Angeles"},
		{"city":"Broken","state":"Nevada","state_id":"NV","alias":"broken","latitude":"999","longitude":"-115.0","tz":"America/Los_Angeles"}
	]}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	locations, err := store.Get()
	require.NoError(t, err)
	require.Len(t, locations, 1)
	assert.Equal(t, "foothills", locations[0].Alias)
	assert.Equal(t, "Foothills Ranch", locations[0].City)
}

func TestSaveLeavesNoWorkFiles(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Add(testLocation())
	require.NoError(t, err)

	entries, err := os.ReadDir(store.Dir().Root())
	require.NoError(t, err)
	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		assert.NotEqual(t, updateExt, ext)
		assert.NotEqual(t, backupExt, ext)
	}
}
