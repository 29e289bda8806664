package models

import "fmt"

// Location represents a tracked weather location. Locations are created once
// through a validated add and are immutable afterwards; the alias is the
// primary key across the catalog, the archives, and the secondary index.
type Location struct {
	City      string `json:"city" db:"city"`
	State     string `json:"state" db:"state"`
	StateID   string `json:"state_id" db:"state_id"`
	Alias     string `json:"alias" db:"alias"`
	Latitude  string `json:"latitude" db:"latitude"`
	Longitude string `json:"longitude" db:"longitude"`
	TZ        string `json:"tz" db:"tz"`
}

// Name returns the display name derived from the city and the abbreviated
// state name. It is never persisted.
func (l Location) Name() string {
	return fmt.Sprintf("%s, %s", l.City, l.StateID)
}

// HistorySummary contains per-location history counts and byte totals computed
// from archive entry metadata.
type HistorySummary struct {
	Alias          string
	Count          int
	OverallSize    int64
	RawSize        int64
	CompressedSize int64
}

// DailyHistories pairs a location with a slice of its daily histories.
type DailyHistories struct {
	Location  Location
	Histories []History
}

// HistoryDates pairs a location with its stored history dates collapsed into
// contiguous ranges.
type HistoryDates struct {
	Location Location
	Ranges   []DateRange
}
