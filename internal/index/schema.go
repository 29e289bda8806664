package index

import (
	"context"
	"fmt"
)

// The index mirrors the archives: one locations row per alias, one metadata
// row per stored history date with size bookkeeping, and one history row per
// metadata row carrying the weather fields. Dates are stored as ISO-8601 text,
// sunrise and sunset as unix seconds.

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS locations (
    id        INTEGER PRIMARY KEY AUTOINCREMENT,
    city      TEXT NOT NULL,
    state     TEXT NOT NULL,
    state_id  TEXT NOT NULL,
    alias     TEXT NOT NULL UNIQUE,
    latitude  TEXT NOT NULL,
    longitude TEXT NOT NULL,
    tz        TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS metadata (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    lid        INTEGER NOT NULL REFERENCES locations (id),
    date       TEXT NOT NULL,
    store_size INTEGER NOT NULL,
    size       INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS history (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    mid         INTEGER NOT NULL REFERENCES metadata (id),
    temp_high   REAL,
    temp_low    REAL,
    temp_mean   REAL,
    dew_point   REAL,
    humidity    REAL,
    sunrise_t   INTEGER,
    sunset_t    INTEGER,
    cloud_cover REAL,
    moon_phase  REAL,
    uv_index    REAL,
    wind_speed  REAL,
    wind_gust   REAL,
    wind_dir    INTEGER,
    visibility  REAL,
    pressure    REAL,
    precip      REAL,
    precip_prob REAL,
    precip_type TEXT,
    description TEXT
);
CREATE INDEX IF NOT EXISTS idx_metadata_lid_date ON metadata (lid, date);
CREATE INDEX IF NOT EXISTS idx_history_mid ON history (mid);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS locations (
    id        BIGSERIAL PRIMARY KEY,
    city      TEXT NOT NULL,
    state     TEXT NOT NULL,
    state_id  TEXT NOT NULL,
    alias     TEXT NOT NULL UNIQUE,
    latitude  TEXT NOT NULL,
    longitude TEXT NOT NULL,
    tz        TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS metadata (
    id         BIGSERIAL PRIMARY KEY,
    lid        BIGINT NOT NULL REFERENCES locations (id),
    date       TEXT NOT NULL,
    store_size BIGINT NOT NULL,
    size       BIGINT NOT NULL
);
CREATE TABLE IF NOT EXISTS history (
    id          BIGSERIAL PRIMARY KEY,
    mid         BIGINT NOT NULL REFERENCES metadata (id),
    temp_high   DOUBLE PRECISION,
    temp_low    DOUBLE PRECISION,
    temp_mean   DOUBLE PRECISION,
    dew_point   DOUBLE PRECISION,
    humidity    DOUBLE PRECISION,
    sunrise_t   BIGINT,
    sunset_t    BIGINT,
    cloud_cover DOUBLE PRECISION,
    moon_phase  DOUBLE PRECISION,
    uv_index    DOUBLE PRECISION,
    wind_speed  DOUBLE PRECISION,
    wind_gust   DOUBLE PRECISION,
    wind_dir    BIGINT,
    visibility  DOUBLE PRECISION,
    pressure    DOUBLE PRECISION,
    precip      DOUBLE PRECISION,
    precip_prob DOUBLE PRECISION,
    precip_type TEXT,
    description TEXT
);
CREATE INDEX IF NOT EXISTS idx_metadata_lid_date ON metadata (lid, date);
CREATE INDEX IF NOT EXISTS idx_history_mid ON history (mid);
`

const dropSchema = `
DROP TABLE IF EXISTS history;
DROP TABLE IF EXISTS metadata;
DROP TABLE IF EXISTS locations;
`

// InitSchema creates the index tables for the connected driver.
func (ix *Index) InitSchema(ctx context.Context) error {
	schema := sqliteSchema
	if ix.db.Driver() == "postgres" {
		schema = postgresSchema
	}
	if _, err := ix.db.ExecContext(ctx, "init_schema", schema); err != nil {
		return fmt.Errorf("initialize index schema: %w", err)
	}
	return nil
}

// DropSchema removes the index tables.
func (ix *Index) DropSchema(ctx context.Context) error {
	if _, err := ix.db.ExecContext(ctx, "drop_schema", dropSchema); err != nil {
		return fmt.Errorf("drop index schema: %w", err)
	}
	return nil
}
