package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/aqasim81/migration-runner/internal/migration"
	"github.com/aqasim81/migration-runner/internal/tracker"
)

// Progress status constants reported via ProgressEvent.
const (
	StatusStarting  = "starting"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusSkipped   = "skipped"
	// StatusPending is reported in dry-run mode for migrations that would apply.
	StatusPending = "pending"
)

// ProgressEvent is emitted by the executor for each migration processed.
type ProgressEvent struct {
	Migration *migration.Migration
	Status    string
	Duration  time.Duration
	Error     error
}

// MigrationTracker abstracts tracking-table operations for testability. Every
// call receives the transaction it must run in.
type MigrationTracker interface {
	EnsureTable(ctx context.Context, q tracker.Querier) error
	IsApplied(ctx context.Context, q tracker.Querier, filename string) (bool, error)
	RecordApplied(ctx context.Context, q tracker.Querier, filename string) error
}

// readSQLFunc loads a migration body.
type readSQLFunc func(m *migration.Migration) (string, error)

// Executor applies pending migrations and records them in the tracking table.
type Executor struct {
	db               TxBeginner
	tracker          MigrationTracker
	policy           Policy
	lockTimeout      time.Duration
	statementTimeout time.Duration
	dryRun           bool
	onProgress       func(ProgressEvent)
	readSQL          readSQLFunc
}

// Option configures an Executor.
type Option func(*Executor)

// WithPolicy sets the commit policy. The default is PolicyRun.
func WithPolicy(p Policy) Option {
	return func(e *Executor) { e.policy = p }
}

// WithLockTimeout sets the per-transaction lock_timeout.
func WithLockTimeout(d time.Duration) Option {
	return func(e *Executor) { e.lockTimeout = d }
}

// WithStatementTimeout sets the per-transaction statement_timeout.
func WithStatementTimeout(d time.Duration) Option {
	return func(e *Executor) { e.statementTimeout = d }
}

// WithDryRun performs lookups only. Nothing is executed and the transaction
// is rolled back.
func WithDryRun(b bool) Option {
	return func(e *Executor) { e.dryRun = b }
}

// WithProgressCallback sets a function called for each migration processed.
func WithProgressCallback(fn func(ProgressEvent)) Option {
	return func(e *Executor) { e.onProgress = fn }
}

// New creates an Executor that opens transactions on db.
func New(db TxBeginner, t MigrationTracker, opts ...Option) *Executor {
	e := &Executor{
		db:      db,
		tracker: t,
		policy:  PolicyRun,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.readSQL == nil {
		e.readSQL = func(m *migration.Migration) (string, error) { return m.ReadSQL() }
	}

	return e
}

// Apply executes pending migrations in the given order, skipping those
// already recorded. Under PolicyRun nothing is committed unless every
// migration succeeds. An empty list is a no-op.
func (e *Executor) Apply(ctx context.Context, migrations []migration.Migration) error {
	if len(migrations) == 0 {
		return nil
	}

	if e.policy == PolicyUnit && !e.dryRun {
		return e.applyPerUnit(ctx, migrations)
	}

	return e.inTx(ctx, func(tx pgx.Tx) error {
		if err := e.tracker.EnsureTable(ctx, tx); err != nil {
			return err
		}

		for i := range migrations {
			if err := e.applyOne(ctx, tx, &migrations[i]); err != nil {
				return err
			}
		}

		return nil
	})
}

// applyPerUnit commits the tracking table first, then each migration in a
// transaction of its own. Earlier migrations stay committed if a later one
// fails.
func (e *Executor) applyPerUnit(ctx context.Context, migrations []migration.Migration) error {
	err := e.inTx(ctx, func(tx pgx.Tx) error {
		return e.tracker.EnsureTable(ctx, tx)
	})
	if err != nil {
		return err
	}

	for i := range migrations {
		m := &migrations[i]

		if err := e.inTx(ctx, func(tx pgx.Tx) error {
			return e.applyOne(ctx, tx, m)
		}); err != nil {
			return err
		}
	}

	return nil
}

// applyOne handles a single migration inside tx: skip if recorded, report in
// dry-run mode, otherwise execute, record, and fire progress.
func (e *Executor) applyOne(ctx context.Context, tx pgx.Tx, m *migration.Migration) error {
	applied, err := e.tracker.IsApplied(ctx, tx, m.Filename)
	if err != nil {
		return fmt.Errorf("checking migration %s: %w", m.Filename, err)
	}

	if applied {
		e.fireProgress(ProgressEvent{Migration: m, Status: StatusSkipped})
		return nil
	}

	if e.dryRun {
		e.fireProgress(ProgressEvent{Migration: m, Status: StatusPending})
		return nil
	}

	e.fireProgress(ProgressEvent{Migration: m, Status: StatusStarting})

	start := time.Now()
	execErr := e.execute(ctx, tx, m)
	duration := time.Since(start)

	if execErr != nil {
		e.fireProgress(ProgressEvent{
			Migration: m,
			Status:    StatusFailed,
			Duration:  duration,
			Error:     execErr,
		})

		return execErr
	}

	e.fireProgress(ProgressEvent{
		Migration: m,
		Status:    StatusCompleted,
		Duration:  duration,
	})

	return nil
}

// execute reads the body, runs it, and inserts the tracking record.
func (e *Executor) execute(ctx context.Context, tx pgx.Tx, m *migration.Migration) error {
	body, err := e.readSQL(m)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrExecutionFailed, m.Filename, err)
	}

	// No arguments, so pgx uses the simple protocol and a file may hold
	// several statements.
	if _, err := tx.Exec(ctx, body); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrExecutionFailed, m.Filename, err)
	}

	if err := e.tracker.RecordApplied(ctx, tx, m.Filename); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrExecutionFailed, m.Filename, err)
	}

	return nil
}

func (e *Executor) fireProgress(event ProgressEvent) {
	if e.onProgress != nil {
		e.onProgress(event)
	}
}
