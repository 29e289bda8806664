package archive

import (
	"fmt"
	"path"
	"strings"
	"time"
)

const entryDateLayout = "20060102"

// entryName builds the container entry name for a history date. The date is
// recoverable from the name alone so no separate index is needed.
func entryName(alias string, date time.Time) string {
	return fmt.Sprintf("%s/%s-%s.json", alias, alias, date.Format(entryDateLayout))
}

// entryDate recovers the history date from a container entry name.
func entryDate(name string) (time.Time, error) {
	base := strings.TrimSuffix(path.Base(name), ".json")
	sep := strings.LastIndexByte(base, '-')
	if sep < 0 || sep == len(base)-1 {
		return time.Time{}, fmt.Errorf("malformed history entry name %q", name)
	}
	date, err := time.ParseInLocation(entryDateLayout, base[sep+1:], time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("history entry name %q: bad date: %w", name, err)
	}
	return date, nil
}

// EntryMetadata describes one stored history entry without decompressing it.
// Size is the uncompressed payload size.
type EntryMetadata struct {
	Alias          string
	Date           time.Time
	Size           int64
	CompressedSize int64
}
