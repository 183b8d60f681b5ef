package tracker

import "fmt"

// createTableSQL returns the DDL for the tracking table. table must already be
// a quoted identifier.
func createTableSQL(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    filename   VARCHAR(255) PRIMARY KEY,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`, table)
}
