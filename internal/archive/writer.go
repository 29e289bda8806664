package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/flate"

	"weather-history/internal/models"
)

const (
	updateExt = ".upd"
	backupExt = ".bu"
)

// renameFile commits an update over the original container. Indirection for
// interruption tests.
var renameFile = os.Rename

// rewrite builds an updated container holding the existing entries plus the
// additions, then swaps it into place. The original file is backed up first
// and only removed after the update renames cleanly, so a failure at any step
// leaves the visible container unchanged.
func (a *Archive) rewrite(additions []models.History) error {
	updatePath := a.path + updateExt
	if err := a.writeUpdate(updatePath, additions); err != nil {
		os.Remove(updatePath)
		return err
	}

	backupPath := a.path + backupExt
	if err := copyFile(a.path, backupPath); err != nil {
		os.Remove(updatePath)
		return fmt.Errorf("%q: backup archive: %w", a.alias, err)
	}
	if err := renameFile(updatePath, a.path); err != nil {
		os.Remove(updatePath)
		os.Remove(backupPath)
		return fmt.Errorf("%q: commit archive update: %w", a.alias, err)
	}
	if err := os.Remove(backupPath); err != nil {
		return fmt.Errorf("%q: remove archive backup: %w", a.alias, err)
	}
	return nil
}

// writeUpdate writes the updated container to path, copying the existing
// entries without recompression and appending the additions.
func (a *Archive) writeUpdate(path string, additions []models.History) error {
	reader, files, err := a.openEntries()
	if err != nil {
		return err
	}
	defer reader.Close()

	updateFile, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%q: create update file: %w", a.alias, err)
	}
	writer := zip.NewWriter(updateFile)
	writer.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})

	fail := func(err error) error {
		writer.Close()
		updateFile.Close()
		return err
	}
	for _, file := range files {
		if err := writer.Copy(file); err != nil {
			return fail(fmt.Errorf("%q: copy entry %s: %w", a.alias, file.Name, err))
		}
	}
	for _, history := range additions {
		data, err := encodeHistory(history)
		if err != nil {
			return fail(err)
		}
		header := &zip.FileHeader{
			Name:     entryName(a.alias, history.Date),
			Method:   zip.Deflate,
			Modified: history.Date,
		}
		entry, err := writer.CreateHeader(header)
		if err != nil {
			return fail(fmt.Errorf("%q: create entry for %s: %w", a.alias, models.FormatDate(history.Date), err))
		}
		if _, err := entry.Write(data); err != nil {
			return fail(fmt.Errorf("%q: write entry for %s: %w", a.alias, models.FormatDate(history.Date), err))
		}
	}
	if err := writer.Close(); err != nil {
		updateFile.Close()
		return fmt.Errorf("%q: finish update file: %w", a.alias, err)
	}
	if err := updateFile.Close(); err != nil {
		return fmt.Errorf("%q: close update file: %w", a.alias, err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
