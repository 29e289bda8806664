package index

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"weather-history/internal/models"
	"weather-history/pkg/database"
	"weather-history/pkg/logging"
)

// Index is the relational mirror of the archives. It answers filtered and
// aggregated queries the containers cannot serve without opening every file.
// Every multi-statement mutation runs inside a transaction; a failure rolls
// the whole operation back.
type Index struct {
	db     *database.DB
	logger *logging.StructuredLogger
}

// New creates an index over an open database connection.
func New(db *database.DB, logger *logging.StructuredLogger) *Index {
	return &Index{db: db, logger: logger}
}

// BeginTx starts a transaction owned by the caller.
func (ix *Index) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	return ix.db.BeginTx(ctx)
}

// LocationID is an index row id paired with its alias.
type LocationID struct {
	ID    int64  `db:"id"`
	Alias string `db:"alias"`
}

// AddLocation inserts a location row and returns its id.
func (ix *Index) AddLocation(ctx context.Context, location models.Location) (int64, error) {
	tx, err := ix.db.BeginTx(ctx)
	if err != nil {
		return 0, err
	}
	id, err := insertLocation(ctx, tx, location)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("%q: add location to index: %w", location.Alias, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%q: add location to index: %w", location.Alias, err)
	}
	return id, nil
}

func insertLocation(ctx context.Context, tx *sqlx.Tx, location models.Location) (int64, error) {
	const insertSQL = `
		INSERT INTO locations (city, state, state_id, alias, latitude, longitude, tz)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, tx.Rebind(insertSQL),
		location.City, location.State, location.StateID, location.Alias,
		location.Latitude, location.Longitude, location.TZ); err != nil {
		return 0, err
	}
	var id int64
	if err := tx.GetContext(ctx, &id, tx.Rebind("SELECT id FROM locations WHERE alias = ?"), location.Alias); err != nil {
		return 0, err
	}
	return id, nil
}

// Locations returns the locations matching the filters, ordered by city then
// abbreviated state name. Filter patterns translate to LIKE predicates, OR
// across filters and AND within one.
func (ix *Index) Locations(ctx context.Context, filters models.LocationFilters) ([]models.Location, error) {
	query, args := locationsQuery(filters)
	var locations []models.Location
	if err := ix.db.SelectContext(ctx, "locations", &locations, query, args...); err != nil {
		return nil, fmt.Errorf("query index locations: %w", err)
	}
	return locations, nil
}

// locationsQuery builds the filtered select. Wildcards become "%" and every
// comparison is lowercased so matching stays case insensitive across drivers.
func locationsQuery(filters models.LocationFilters) (string, []interface{}) {
	query := "SELECT city, state, state_id, alias, latitude, longitude, tz FROM locations"
	var predicates []string
	var args []interface{}
	for _, filter := range filters {
		if filter.IsEmpty() {
			continue
		}
		var terms []string
		if filter.City != "" {
			terms = append(terms, "LOWER(city) LIKE ?")
			args = append(args, likePattern(filter.City))
		}
		if filter.State != "" {
			if len(filter.State) > 2 {
				terms = append(terms, "(LOWER(state) LIKE ? OR LOWER(state_id) LIKE ?)")
				args = append(args, likePattern(filter.State), likePattern(filter.State))
			} else {
				terms = append(terms, "LOWER(state_id) LIKE ?")
				args = append(args, likePattern(filter.State))
			}
		}
		if filter.Name != "" {
			terms = append(terms, "(LOWER(city || ', ' || state_id) LIKE ? OR LOWER(alias) LIKE ?)")
			args = append(args, likePattern(filter.Name), likePattern(filter.Name))
		}
		predicates = append(predicates, "("+strings.Join(terms, " AND ")+")")
	}
	if len(predicates) > 0 {
		query += " WHERE " + strings.Join(predicates, " OR ")
	}
	query += " ORDER BY city, state_id"
	return query, args
}

func likePattern(pattern string) string {
	return strings.ToLower(strings.ReplaceAll(pattern, "*", "%"))
}

// LocationIDs returns every location row id and alias, ordered by alias.
func (ix *Index) LocationIDs(ctx context.Context) ([]LocationID, error) {
	var ids []LocationID
	const query = "SELECT id, alias FROM locations ORDER BY alias ASC"
	if err := ix.db.SelectContext(ctx, "location_ids", &ids, query); err != nil {
		return nil, fmt.Errorf("query index location ids: %w", err)
	}
	return ids, nil
}

// Location returns the indexed location for an alias.
func (ix *Index) Location(ctx context.Context, alias string) (models.Location, error) {
	var location models.Location
	const query = "SELECT city, state, state_id, alias, latitude, longitude, tz FROM locations WHERE alias = ?"
	err := ix.db.GetContext(ctx, "location", &location, query, alias)
	if err == sql.ErrNoRows {
		return models.Location{}, &models.NotFoundError{Resource: "indexed location", ID: alias}
	}
	if err != nil {
		return models.Location{}, fmt.Errorf("%q: query index location: %w", alias, err)
	}
	return location, nil
}

// LocationID returns the row id for an alias.
func (ix *Index) LocationID(ctx context.Context, alias string) (int64, error) {
	var id int64
	err := ix.db.GetContext(ctx, "location_id", &id, "SELECT id FROM locations WHERE alias = ?", alias)
	if err == sql.ErrNoRows {
		return 0, &models.NotFoundError{Resource: "indexed location", ID: alias}
	}
	if err != nil {
		return 0, fmt.Errorf("%q: query index location id: %w", alias, err)
	}
	return id, nil
}
