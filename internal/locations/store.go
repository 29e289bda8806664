package locations

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"weather-history/internal/archive"
	"weather-history/internal/models"
	"weather-history/pkg/logging"
)

// Filename is the catalog document name under the weather data directory.
const Filename = "locations.json"

const (
	updateExt = ".upd"
	backupExt = ".bu"
)

// document is the persisted catalog schema. The display name is derived and
// never stored.
type document struct {
	Locations []models.Location `json:"locations"`
}

// Store is the canonical catalog of known locations backed by a single JSON
// document with atomic replace on save. Adding a location also creates its
// empty history archive.
type Store struct {
	dir    archive.Dir
	logger *logging.StructuredLogger
}

// Open opens the catalog in dir, failing if the document does not exist.
func Open(dir archive.Dir, logger *logging.StructuredLogger) (*Store, error) {
	path := dir.File(Filename)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, &models.NotFoundError{Resource: "locations document", ID: path}
	} else if err != nil {
		return nil, fmt.Errorf("open locations document: %w", err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

// Create initializes an empty catalog in dir, failing if one already exists.
func Create(dir archive.Dir, logger *logging.StructuredLogger) (*Store, error) {
	path := dir.File(Filename)
	if _, err := os.Stat(path); err == nil {
		return nil, &models.AlreadyExistsError{Resource: "locations document", ID: path}
	}
	store := &Store{dir: dir, logger: logger}
	if err := store.save(nil); err != nil {
		return nil, err
	}
	return store, nil
}

// Dir returns the weather data directory backing the store.
func (s *Store) Dir() archive.Dir {
	return s.dir
}

// Get returns every cataloged location, in document order.
func (s *Store) Get() ([]models.Location, error) {
	return s.load()
}

// Find returns the locations matching the filters. An empty filter collection
// matches everything.
func (s *Store) Find(filters models.LocationFilters) ([]models.Location, error) {
	all, err := s.load()
	if err != nil {
		return nil, err
	}
	matched := all[:0]
	for _, location := range all {
		if filters.Match(location) {
			matched = append(matched, location)
		}
	}
	return matched, nil
}

// Add validates the location, rejects a duplicate alias, inserts it into the
// document sorted by display name, saves atomically, and creates the empty
// history archive for the new alias. Nothing is persisted when any step fails
// before the save.
func (s *Store) Add(location models.Location) (models.Location, error) {
	validated, err := validateLocation(location)
	if err != nil {
		return models.Location{}, err
	}
	all, err := s.load()
	if err != nil {
		return models.Location{}, err
	}
	for _, other := range all {
		if other.Alias == validated.Alias {
			return models.Location{}, &models.AlreadyExistsError{Resource: "location", ID: validated.Alias}
		}
	}
	all = append(all, validated)
	sort.Slice(all, func(i, j int) bool {
		return strings.ToLower(all[i].Name()) < strings.ToLower(all[j].Name())
	})
	if err := s.save(all); err != nil {
		return models.Location{}, err
	}
	if _, err := archive.Create(validated.Alias, s.dir.ArchivePath(validated.Alias), s.logger); err != nil {
		return models.Location{}, fmt.Errorf("%q: create location archive: %w", validated.Alias, err)
	}
	s.logger.Info(context.Background(), "location added",
		logging.Fields{"alias": validated.Alias, "name": validated.Name()})
	return validated, nil
}

// load reads the document, deduplicating by alias and dropping entries that
// fail validation, each with a warning. The store degrades rather than
// refusing to start.
func (s *Store) load() ([]models.Location, error) {
	path := s.dir.File(Filename)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read locations document: %w", err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse locations document: %w", err)
	}
	seen := make(map[string]bool, len(doc.Locations))
	locations := make([]models.Location, 0, len(doc.Locations))
	for _, entry := range doc.Locations {
		validated, validateErr := validateLocation(entry)
		if validateErr != nil {
			s.logger.Warn(context.Background(), "invalid location dropped",
				logging.Fields{"alias": entry.Alias, "reason": validateErr.Error()})
			continue
		}
		if seen[validated.Alias] {
			s.logger.Warn(context.Background(), "duplicate location alias dropped",
				logging.Fields{"alias": validated.Alias})
			continue
		}
		seen[validated.Alias] = true
		locations = append(locations, validated)
	}
	return locations, nil
}

// save writes the document to an update file, backs up the original, renames
// the update into place, and removes the backup. A failure before the rename
// leaves the original untouched.
func (s *Store) save(locations []models.Location) error {
	doc := document{Locations: locations}
	if doc.Locations == nil {
		doc.Locations = []models.Location{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize locations document: %w", err)
	}

	path := s.dir.File(Filename)
	updatePath := path + updateExt
	if err := os.WriteFile(updatePath, data, 0o644); err != nil {
		return fmt.Errorf("write locations update: %w", err)
	}

	backupPath := path + backupExt
	hasOriginal := true
	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		hasOriginal = false
	}
	if hasOriginal {
		if err := copyFile(path, backupPath); err != nil {
			os.Remove(updatePath)
			return fmt.Errorf("backup locations document: %w", err)
		}
	}
	if err := os.Rename(updatePath, path); err != nil {
		os.Remove(updatePath)
		if hasOriginal {
			os.Remove(backupPath)
		}
		return fmt.Errorf("commit locations update: %w", err)
	}
	if hasOriginal {
		if err := os.Remove(backupPath); err != nil {
			return fmt.Errorf("remove locations backup: %w", err)
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}
