package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"weather-history/internal/models"
	"weather-history/pkg/logging"
)

// Archive is a per-location append-only container of daily histories, one
// compressed entry per date. Reads may run concurrently with an append because
// the update is committed with an atomic rename, but the container supports a
// single writer only; callers must not append to the same alias concurrently.
type Archive struct {
	alias  string
	path   string
	logger *logging.StructuredLogger
}

// Open opens an existing container, failing if it is absent or not a readable
// zip file.
func Open(alias, path string, logger *logging.StructuredLogger) (*Archive, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, &models.NotFoundError{Resource: "archive", ID: alias}
	} else if err != nil {
		return nil, fmt.Errorf("%q: open archive: %w", alias, err)
	}
	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%q: invalid archive %s: %w", alias, path, err)
	}
	reader.Close()
	return &Archive{alias: alias, path: path, logger: logger}, nil
}

// Create initializes a new empty container, failing if one already exists.
func Create(alias, path string, logger *logging.StructuredLogger) (*Archive, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, &models.AlreadyExistsError{Resource: "archive", ID: alias}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%q: create archive: %w", alias, err)
	}
	writer := zip.NewWriter(file)
	if err := writer.Close(); err != nil {
		file.Close()
		os.Remove(path)
		return nil, fmt.Errorf("%q: create archive: %w", alias, err)
	}
	if err := file.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("%q: create archive: %w", alias, err)
	}
	return &Archive{alias: alias, path: path, logger: logger}, nil
}

// Alias returns the location alias the container belongs to.
func (a *Archive) Alias() string {
	return a.alias
}

// Path returns the container file path.
func (a *Archive) Path() string {
	return a.path
}

// Summary walks entry metadata without decompressing payloads and returns the
// record count plus byte totals. OverallSize is the container file size.
func (a *Archive) Summary() (models.HistorySummary, error) {
	info, err := os.Stat(a.path)
	if err != nil {
		return models.HistorySummary{}, fmt.Errorf("%q: archive summary: %w", a.alias, err)
	}
	summary := models.HistorySummary{Alias: a.alias, OverallSize: info.Size()}
	entries, err := a.Metadata()
	if err != nil {
		return models.HistorySummary{}, err
	}
	for _, entry := range entries {
		summary.Count++
		summary.RawSize += entry.Size
		summary.CompressedSize += entry.CompressedSize
	}
	return summary, nil
}

// Dates returns the stored history dates, optionally restricted to a range,
// collapsed into sorted contiguous ranges.
func (a *Archive) Dates(selector *models.DateRange) (models.DateRanges, error) {
	dates, err := a.storedDates()
	if err != nil {
		return models.DateRanges{}, err
	}
	if selector != nil {
		filtered := dates[:0]
		for _, date := range dates {
			if selector.Covers(date) {
				filtered = append(filtered, date)
			}
		}
		dates = filtered
	}
	return models.CollapseDates(a.alias, dates), nil
}

// Histories returns a single pass cursor over the stored histories whose dates
// fall inside the range, sorted by date ascending. Entries that fail to decode
// are logged and skipped.
func (a *Archive) Histories(dateRange models.DateRange) (*HistoryCursor, error) {
	reader, files, err := a.openEntries()
	if err != nil {
		return nil, err
	}
	selected := files[:0]
	for _, file := range files {
		date, nameErr := entryDate(file.Name)
		if nameErr != nil {
			a.warnEntry(file.Name, nameErr)
			continue
		}
		if dateRange.Covers(date) {
			selected = append(selected, file)
		}
	}
	return &HistoryCursor{archive: a, reader: reader, files: selected}, nil
}

// Content returns a single pass cursor over every stored entry, yielding
// metadata paired with the decoded history. Entry order is unspecified.
func (a *Archive) Content() (*ContentCursor, error) {
	reader, files, err := a.openEntries()
	if err != nil {
		return nil, err
	}
	return &ContentCursor{archive: a, reader: reader, files: files}, nil
}

// Metadata returns metadata for every stored entry, sorted by date.
func (a *Archive) Metadata() ([]EntryMetadata, error) {
	return a.metadata(nil)
}

// MetadataByDates returns metadata for the entries matching the given dates,
// sorted by date. Dates with no stored entry are ignored.
func (a *Archive) MetadataByDates(dates []time.Time) ([]EntryMetadata, error) {
	if len(dates) == 0 {
		return nil, nil
	}
	wanted := make(map[time.Time]bool, len(dates))
	for _, date := range dates {
		wanted[date] = true
	}
	return a.metadata(wanted)
}

func (a *Archive) metadata(wanted map[time.Time]bool) ([]EntryMetadata, error) {
	reader, files, err := a.openEntries()
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	var entries []EntryMetadata
	for _, file := range files {
		date, nameErr := entryDate(file.Name)
		if nameErr != nil {
			a.warnEntry(file.Name, nameErr)
			continue
		}
		if wanted != nil && !wanted[date] {
			continue
		}
		entries = append(entries, EntryMetadata{
			Alias:          a.alias,
			Date:           date,
			Size:           int64(file.UncompressedSize64),
			CompressedSize: int64(file.CompressedSize64),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Date.Before(entries[j].Date) })
	return entries, nil
}

// Append stores the histories whose dates are not already present and returns
// the sorted list of dates actually added. Duplicate dates within the batch
// and dates already stored are skipped with a warning, never overwritten. The
// update is committed by an atomic rename so readers always observe a complete
// container; concurrent appends to the same archive are not supported.
func (a *Archive) Append(histories []models.History) ([]time.Time, error) {
	if len(histories) == 0 {
		return nil, nil
	}
	stored, err := a.storedDates()
	if err != nil {
		return nil, err
	}
	existing := make(map[time.Time]bool, len(stored))
	for _, date := range stored {
		existing[date] = true
	}

	batch := make(map[time.Time]bool, len(histories))
	var additions []models.History
	for _, history := range histories {
		if history.Date.IsZero() {
			a.logger.Warn(context.Background(), "history without a date skipped",
				logging.Fields{"alias": a.alias})
			continue
		}
		switch {
		case batch[history.Date]:
			a.logger.Warn(context.Background(), "duplicate date in append batch",
				logging.Fields{"alias": a.alias, "date": models.FormatDate(history.Date)})
		case existing[history.Date]:
			a.logger.Warn(context.Background(), "date already stored, not overwritten",
				logging.Fields{"alias": a.alias, "date": models.FormatDate(history.Date)})
			batch[history.Date] = true
		default:
			batch[history.Date] = true
			additions = append(additions, history)
		}
	}
	if len(additions) == 0 {
		return nil, nil
	}

	if err := a.rewrite(additions); err != nil {
		return nil, err
	}
	added := make([]time.Time, len(additions))
	for i, history := range additions {
		added[i] = history.Date
	}
	sort.Slice(added, func(i, j int) bool { return added[i].Before(added[j]) })
	return added, nil
}

// storedDates returns every decodable entry date in the container, sorted.
func (a *Archive) storedDates() ([]time.Time, error) {
	reader, files, err := a.openEntries()
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	dates := make([]time.Time, 0, len(files))
	for _, file := range files {
		date, nameErr := entryDate(file.Name)
		if nameErr != nil {
			a.warnEntry(file.Name, nameErr)
			continue
		}
		dates = append(dates, date)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}

// openEntries opens the container and returns its history entries. Directory
// entries are excluded. The caller owns closing the reader.
func (a *Archive) openEntries() (*zip.ReadCloser, []*zip.File, error) {
	reader, err := zip.OpenReader(a.path)
	if err != nil {
		return nil, nil, fmt.Errorf("%q: open archive: %w", a.alias, err)
	}
	files := make([]*zip.File, 0, len(reader.File))
	for _, file := range reader.File {
		if file.FileInfo().IsDir() {
			continue
		}
		files = append(files, file)
	}
	return reader, files, nil
}

func (a *Archive) warnEntry(name string, err error) {
	a.logger.Warn(context.Background(), "archive entry skipped",
		logging.Fields{"alias": a.alias, "entry": name, "reason": err.Error()})
}
