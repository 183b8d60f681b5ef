package tracker

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`) //nolint:gochecknoglobals // compiled once

// Querier is the subset of pgx.Conn and pgx.Tx the tracker needs. Passing the
// run's transaction makes every read and write part of that transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// AppliedMigration represents a row of the tracking table.
type AppliedMigration struct {
	Filename  string
	AppliedAt time.Time
}

// Tracker reads and writes the migrations tracking table.
type Tracker struct {
	name  string
	table string
}

// New creates a Tracker for the named table. The name must be a plain
// identifier; it is quoted before use in any statement.
func New(table string) (*Tracker, error) {
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTableName, table)
	}

	return &Tracker{
		name:  table,
		table: pgx.Identifier{table}.Sanitize(),
	}, nil
}

// Table returns the unquoted table name.
func (t *Tracker) Table() string {
	return t.name
}

// EnsureTable creates the tracking table if it does not exist.
func (t *Tracker) EnsureTable(ctx context.Context, q Querier) error {
	if _, err := q.Exec(ctx, createTableSQL(t.table)); err != nil {
		return fmt.Errorf("%w: %w", ErrTableCreation, err)
	}

	return nil
}

// TableExists reports whether the tracking table is present. It never creates it.
func (t *Tracker) TableExists(ctx context.Context, q Querier) (bool, error) {
	var exists bool

	if err := q.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, t.table).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking tracking table %s: %w", t.name, err)
	}

	return exists, nil
}

// IsApplied checks whether a file has been recorded as applied.
func (t *Tracker) IsApplied(ctx context.Context, q Querier, filename string) (bool, error) {
	var exists bool

	err := q.QueryRow(ctx,
		fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE filename = $1)`, t.table),
		filename,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking if migration %s is applied: %w", filename, err)
	}

	return exists, nil
}

// RecordApplied inserts a tracking row for filename. A second record for the
// same file violates the primary key and is reported as an error.
func (t *Tracker) RecordApplied(ctx context.Context, q Querier, filename string) error {
	_, err := q.Exec(ctx,
		fmt.Sprintf(`INSERT INTO %s (filename) VALUES ($1)`, t.table),
		filename,
	)
	if err != nil {
		return fmt.Errorf("recording migration %s as applied: %w", filename, err)
	}

	return nil
}

// GetApplied returns all tracking rows ordered by filename.
func (t *Tracker) GetApplied(ctx context.Context, q Querier) ([]AppliedMigration, error) {
	rows, err := q.Query(ctx,
		fmt.Sprintf(`SELECT filename, applied_at FROM %s ORDER BY filename`, t.table),
	)
	if err != nil {
		return nil, fmt.Errorf("querying applied migrations: %w", err)
	}
	defer rows.Close()

	applied, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (AppliedMigration, error) {
		var m AppliedMigration
		if scanErr := row.Scan(&m.Filename, &m.AppliedAt); scanErr != nil {
			return AppliedMigration{}, fmt.Errorf("scanning migration row: %w", scanErr)
		}

		return m, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning applied migrations: %w", err)
	}

	return applied, nil
}

// AppliedSet returns the applied filenames as a set. A missing tracking table
// yields an empty set.
func (t *Tracker) AppliedSet(ctx context.Context, q Querier) (map[string]bool, error) {
	exists, err := t.TableExists(ctx, q)
	if err != nil {
		return nil, err
	}

	set := make(map[string]bool)
	if !exists {
		return set, nil
	}

	applied, err := t.GetApplied(ctx, q)
	if err != nil {
		return nil, err
	}

	for _, a := range applied {
		set[a.Filename] = true
	}

	return set, nil
}
