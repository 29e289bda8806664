package index

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"weather-history/internal/archive"
	"weather-history/internal/models"
)

// historyRow is the joined metadata and history row shape.
type historyRow struct {
	Date        string   `db:"date"`
	TempHigh    *float64 `db:"temp_high"`
	TempLow     *float64 `db:"temp_low"`
	TempMean    *float64 `db:"temp_mean"`
	DewPoint    *float64 `db:"dew_point"`
	Humidity    *float64 `db:"humidity"`
	SunriseT    *int64   `db:"sunrise_t"`
	SunsetT     *int64   `db:"sunset_t"`
	CloudCover  *float64 `db:"cloud_cover"`
	MoonPhase   *float64 `db:"moon_phase"`
	UVIndex     *float64 `db:"uv_index"`
	WindSpeed   *float64 `db:"wind_speed"`
	WindGust    *float64 `db:"wind_gust"`
	WindDir     *int64   `db:"wind_dir"`
	Visibility  *float64 `db:"visibility"`
	Pressure    *float64 `db:"pressure"`
	Precip      *float64 `db:"precip"`
	PrecipProb  *float64 `db:"precip_prob"`
	PrecipType  *string  `db:"precip_type"`
	Description *string  `db:"description"`
}

func (r historyRow) toHistory(alias string) (models.History, error) {
	date, err := models.ParseDate(r.Date)
	if err != nil {
		return models.History{}, fmt.Errorf("%q: index history row: %w", alias, err)
	}
	return models.History{
		Alias:               alias,
		Date:                date,
		TemperatureHigh:     r.TempHigh,
		TemperatureLow:      r.TempLow,
		TemperatureMean:     r.TempMean,
		DewPoint:            r.DewPoint,
		Humidity:            r.Humidity,
		PrecipitationChance: r.PrecipProb,
		PrecipitationType:   r.PrecipType,
		PrecipitationAmount: r.Precip,
		WindSpeed:           r.WindSpeed,
		WindGust:            r.WindGust,
		WindDirection:       r.WindDir,
		CloudCover:          r.CloudCover,
		Pressure:            r.Pressure,
		UVIndex:             r.UVIndex,
		Sunrise:             unixTime(r.SunriseT),
		Sunset:              unixTime(r.SunsetT),
		MoonPhase:           r.MoonPhase,
		Visibility:          r.Visibility,
		Description:         r.Description,
	}, nil
}

func unixSeconds(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	secs := t.UTC().Unix()
	return &secs
}

func unixTime(secs *int64) *time.Time {
	if secs == nil {
		return nil
	}
	t := time.Unix(*secs, 0).UTC()
	return &t
}

// InsertHistory writes the metadata row and its paired history row inside the
// caller's transaction. The sizes come from the archive entry metadata.
func (ix *Index) InsertHistory(ctx context.Context, tx *sqlx.Tx, lid int64, metadata archive.EntryMetadata, history models.History) error {
	const metadataSQL = `
		INSERT INTO metadata (lid, date, store_size, size)
		VALUES (?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, tx.Rebind(metadataSQL),
		lid, models.FormatDate(history.Date), metadata.CompressedSize, metadata.Size); err != nil {
		return fmt.Errorf("lid %d: insert metadata for %s: %w", lid, models.FormatDate(history.Date), err)
	}
	var mid int64
	const midSQL = "SELECT id FROM metadata WHERE lid = ? AND date = ? ORDER BY id DESC LIMIT 1"
	if err := tx.GetContext(ctx, &mid, tx.Rebind(midSQL), lid, models.FormatDate(history.Date)); err != nil {
		return fmt.Errorf("lid %d: metadata id for %s: %w", lid, models.FormatDate(history.Date), err)
	}

	const historySQL = `
		INSERT INTO history (
			mid, temp_high, temp_low, temp_mean, dew_point, humidity, sunrise_t, sunset_t,
			cloud_cover, moon_phase, uv_index, wind_speed, wind_gust, wind_dir, visibility,
			pressure, precip, precip_prob, precip_type, description
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, tx.Rebind(historySQL),
		mid,
		history.TemperatureHigh, history.TemperatureLow, history.TemperatureMean,
		history.DewPoint, history.Humidity,
		unixSeconds(history.Sunrise), unixSeconds(history.Sunset),
		history.CloudCover, history.MoonPhase, history.UVIndex,
		history.WindSpeed, history.WindGust, history.WindDirection,
		history.Visibility, history.Pressure,
		history.PrecipitationAmount, history.PrecipitationChance, history.PrecipitationType,
		history.Description); err != nil {
		return fmt.Errorf("lid %d: insert history for %s: %w", lid, models.FormatDate(history.Date), err)
	}
	return nil
}

// DailyHistories returns a location's history rows inside the range, ordered
// by date.
func (ix *Index) DailyHistories(ctx context.Context, location models.Location, dateRange models.DateRange) (models.DailyHistories, error) {
	const query = `
		SELECT
			m.date AS date,
			h.temp_high, h.temp_low, h.temp_mean, h.dew_point, h.humidity,
			h.sunrise_t, h.sunset_t, h.cloud_cover, h.moon_phase, h.uv_index,
			h.wind_speed, h.wind_gust, h.wind_dir, h.visibility, h.pressure,
			h.precip, h.precip_prob, h.precip_type, h.description
		FROM locations AS l
			INNER JOIN metadata AS m ON l.id = m.lid
			INNER JOIN history AS h ON m.id = h.mid
		WHERE l.alias = ? AND m.date BETWEEN ? AND ?
		ORDER BY date`
	var rows []historyRow
	err := ix.db.SelectContext(ctx, "daily_histories", &rows, query,
		location.Alias, models.FormatDate(dateRange.Start), models.FormatDate(dateRange.End))
	if err != nil {
		return models.DailyHistories{}, fmt.Errorf("%q: query daily histories: %w", location.Alias, err)
	}
	daily := models.DailyHistories{Location: location, Histories: make([]models.History, 0, len(rows))}
	for _, row := range rows {
		history, convErr := row.toHistory(location.Alias)
		if convErr != nil {
			return models.DailyHistories{}, convErr
		}
		daily.Histories = append(daily.Histories, history)
	}
	return daily, nil
}

// HistoryDates returns a location's stored dates collapsed into contiguous
// ranges, ordered ascending.
func (ix *Index) HistoryDates(ctx context.Context, location models.Location) (models.DateRanges, error) {
	var texts []string
	const query = "SELECT m.date FROM locations AS l INNER JOIN metadata AS m ON l.id = m.lid WHERE l.alias = ? ORDER BY m.date"
	if err := ix.db.SelectContext(ctx, "history_dates", &texts, query, location.Alias); err != nil {
		return models.DateRanges{}, fmt.Errorf("%q: query history dates: %w", location.Alias, err)
	}
	dates := make([]time.Time, 0, len(texts))
	for _, text := range texts {
		date, err := models.ParseDate(text)
		if err != nil {
			return models.DateRanges{}, fmt.Errorf("%q: index date row: %w", location.Alias, err)
		}
		dates = append(dates, date)
	}
	return models.CollapseDates(location.Alias, dates), nil
}

// ReloadLocation replaces every history and metadata row for a location id
// with records sourced fresh from its archive. Delete and reinsert run in one
// transaction; a failure leaves the index unchanged.
func (ix *Index) ReloadLocation(ctx context.Context, lid int64, records []archive.ContentRecord) error {
	tx, err := ix.db.BeginTx(ctx)
	if err != nil {
		return err
	}
	fail := func(err error) error {
		tx.Rollback()
		return err
	}
	const deleteHistorySQL = `
		DELETE FROM history WHERE mid IN (SELECT id FROM metadata WHERE lid = ?)`
	if _, err := tx.ExecContext(ctx, tx.Rebind(deleteHistorySQL), lid); err != nil {
		return fail(fmt.Errorf("lid %d: delete history rows: %w", lid, err))
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM metadata WHERE lid = ?"), lid); err != nil {
		return fail(fmt.Errorf("lid %d: delete metadata rows: %w", lid, err))
	}
	for _, record := range records {
		if err := ix.InsertHistory(ctx, tx, lid, record.Metadata, record.History); err != nil {
			return fail(err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("lid %d: commit reload: %w", lid, err)
	}
	return nil
}

// summaryRow backs the aggregate summary query.
type summaryRow struct {
	Alias     string `db:"alias"`
	Count     int    `db:"count"`
	RawSize   *int64 `db:"raw_size"`
	StoreSize *int64 `db:"store_size"`
}

// Summaries returns per-location record counts and byte totals, ordered by
// alias. Locations without histories report zero counts.
func (ix *Index) Summaries(ctx context.Context) ([]models.HistorySummary, error) {
	const query = `
		SELECT
			l.alias AS alias,
			COUNT(m.id) AS count,
			SUM(m.size) AS raw_size,
			SUM(m.store_size) AS store_size
		FROM locations AS l
			LEFT JOIN metadata AS m ON l.id = m.lid
		GROUP BY l.alias
		ORDER BY l.alias`
	var rows []summaryRow
	if err := ix.db.SelectContext(ctx, "summaries", &rows, query); err != nil {
		return nil, fmt.Errorf("query index summaries: %w", err)
	}
	summaries := make([]models.HistorySummary, len(rows))
	for i, row := range rows {
		summaries[i] = models.HistorySummary{Alias: row.Alias, Count: row.Count}
		if row.RawSize != nil {
			summaries[i].RawSize = *row.RawSize
		}
		if row.StoreSize != nil {
			summaries[i].CompressedSize = *row.StoreSize
		}
	}
	return summaries, nil
}

// HistoryCounts returns the stored history count per alias, including aliases
// with no rows.
func (ix *Index) HistoryCounts(ctx context.Context) (map[string]int, error) {
	summaries, err := ix.Summaries(ctx)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(summaries))
	for _, summary := range summaries {
		counts[summary.Alias] = summary.Count
	}
	return counts, nil
}
