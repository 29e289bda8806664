package archive

import (
	"fmt"
	"os"
	"path/filepath"
)

// Dir is the weather data root directory. Archive containers and the location
// catalog all live directly under it.
type Dir struct {
	root string
}

// NewDir returns a Dir for root, verifying the directory exists.
func NewDir(root string) (Dir, error) {
	info, err := os.Stat(root)
	if err != nil {
		return Dir{}, fmt.Errorf("weather directory %q: %w", root, err)
	}
	if !info.IsDir() {
		return Dir{}, fmt.Errorf("weather directory %q: not a directory", root)
	}
	return Dir{root: root}, nil
}

// Root returns the directory path.
func (d Dir) Root() string {
	return d.root
}

// ArchivePath returns the container path for a location alias.
func (d Dir) ArchivePath(alias string) string {
	return filepath.Join(d.root, alias+".zip")
}

// File returns the path of a file directly under the directory.
func (d Dir) File(name string) string {
	return filepath.Join(d.root, name)
}
