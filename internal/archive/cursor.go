package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"sort"

	"weather-history/internal/models"
)

// HistoryCursor iterates the histories selected by Archive.Histories in date
// order. The cursor is finite and single pass; reopen the archive to iterate
// again. Usage follows sql.Rows: Next, then Close, then Err.
type HistoryCursor struct {
	archive *Archive
	reader  *zip.ReadCloser
	files   []*zip.File
	sorted  bool
	pos     int
	current models.History
	err     error
	closed  bool
}

// Next advances to the next decodable history. It returns false when the
// entries are exhausted or the cursor is closed.
func (c *HistoryCursor) Next() bool {
	if c.closed {
		return false
	}
	if !c.sorted {
		sort.Slice(c.files, func(i, j int) bool { return c.files[i].Name < c.files[j].Name })
		c.sorted = true
	}
	for c.pos < len(c.files) {
		file := c.files[c.pos]
		c.pos++
		history, err := decodeEntry(c.archive.alias, file)
		if err != nil {
			c.archive.warnEntry(file.Name, err)
			continue
		}
		c.current = history
		return true
	}
	c.Close()
	return false
}

// History returns the history produced by the last successful Next.
func (c *HistoryCursor) History() models.History {
	return c.current
}

// Err returns the first error that terminated iteration, if any. Decode
// failures of single entries are skipped, not reported here.
func (c *HistoryCursor) Err() error {
	return c.err
}

// Close releases the underlying container reader. Safe to call repeatedly.
func (c *HistoryCursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.reader.Close()
}

// ContentRecord pairs one entry's metadata with its decoded history.
type ContentRecord struct {
	Metadata EntryMetadata
	History  models.History
}

// ContentCursor iterates every entry of a container, yielding metadata with
// the decoded history. Entry order is unspecified. Single pass, like
// HistoryCursor.
type ContentCursor struct {
	archive *Archive
	reader  *zip.ReadCloser
	files   []*zip.File
	pos     int
	current ContentRecord
	err     error
	closed  bool
}

// Next advances to the next decodable entry.
func (c *ContentCursor) Next() bool {
	if c.closed {
		return false
	}
	for c.pos < len(c.files) {
		file := c.files[c.pos]
		c.pos++
		date, err := entryDate(file.Name)
		if err != nil {
			c.archive.warnEntry(file.Name, err)
			continue
		}
		history, err := decodeEntry(c.archive.alias, file)
		if err != nil {
			c.archive.warnEntry(file.Name, err)
			continue
		}
		c.current = ContentRecord{
			Metadata: EntryMetadata{
				Alias:          c.archive.alias,
				Date:           date,
				Size:           int64(file.UncompressedSize64),
				CompressedSize: int64(file.CompressedSize64),
			},
			History: history,
		}
		return true
	}
	c.Close()
	return false
}

// Record returns the record produced by the last successful Next.
func (c *ContentCursor) Record() ContentRecord {
	return c.current
}

// Err returns the first error that terminated iteration, if any.
func (c *ContentCursor) Err() error {
	return c.err
}

// Close releases the underlying container reader. Safe to call repeatedly.
func (c *ContentCursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.reader.Close()
}

// decodeEntry reads and decodes one container entry.
func decodeEntry(alias string, file *zip.File) (models.History, error) {
	entry, err := file.Open()
	if err != nil {
		return models.History{}, fmt.Errorf("%q: open entry %s: %w", alias, file.Name, err)
	}
	defer entry.Close()
	data, err := io.ReadAll(entry)
	if err != nil {
		return models.History{}, fmt.Errorf("%q: read entry %s: %w", alias, file.Name, err)
	}
	return decodeHistory(alias, data)
}
