package migration

import (
	"fmt"
	"os"
)

// Migration is one SQL file discovered in the migrations directory. The
// filename is its identity in the tracking table and its position in the
// apply order. The body is read lazily by ReadSQL, when the migration is
// about to be applied.
type Migration struct {
	Filename string // "0001_create_users.sql"
	Path     string // Path to the file, joined with the scanned directory
}

// ReadSQL returns the full contents of the migration file.
func (m *Migration) ReadSQL() (string, error) {
	data, err := os.ReadFile(m.Path)
	if err != nil {
		return "", fmt.Errorf("reading migration file %s: %w", m.Path, err)
	}

	return string(data), nil
}
