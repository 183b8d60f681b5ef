package migration

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Extension is the suffix a file must carry to be treated as a migration.
const Extension = ".sql"

// ErrDirNotFound indicates the migrations directory does not exist.
var ErrDirNotFound = errors.New("migrations directory not found")

// LoadFromDir lists the migration files in dir and returns them unsorted.
// Subdirectories, hidden files and files without the .sql extension are
// skipped. A missing directory yields ErrDirNotFound; an empty one yields an
// empty slice.
func LoadFromDir(dir string) ([]Migration, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrDirNotFound, dir)
		}

		return nil, fmt.Errorf("reading migrations directory %s: %w", dir, err)
	}

	migrations := make([]Migration, 0, len(entries))

	for _, entry := range entries {
		if !isMigrationFile(entry) {
			continue
		}

		migrations = append(migrations, Migration{
			Filename: entry.Name(),
			Path:     filepath.Join(dir, entry.Name()),
		})
	}

	return migrations, nil
}

func isMigrationFile(entry fs.DirEntry) bool {
	if entry.IsDir() {
		return false
	}

	name := entry.Name()
	if strings.HasPrefix(name, ".") {
		return false
	}

	return filepath.Ext(name) == Extension
}

// Discover loads and sorts the migrations in dir.
func Discover(dir string) ([]Migration, error) {
	migrations, err := LoadFromDir(dir)
	if err != nil {
		return nil, err
	}

	return Sort(migrations), nil
}
