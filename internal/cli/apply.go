package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/aqasim81/migration-runner/internal/config"
	"github.com/aqasim81/migration-runner/internal/database"
	"github.com/aqasim81/migration-runner/internal/executor"
	"github.com/aqasim81/migration-runner/internal/migration"
	"github.com/aqasim81/migration-runner/internal/preflight"
	"github.com/aqasim81/migration-runner/internal/tracker"
)

// connectDB opens the run's single connection. Swapped in tests.
var connectDB = database.Connect //nolint:gochecknoglobals // test seam

var applyCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "apply",
	Short: "Apply pending migrations",
	Long: `Wait for the database, then apply every migration file not yet recorded
in the tracking table, in filename order. Pending files are checked for
statements that cannot run inside a transaction before anything executes.`,
	RunE: runApply,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	registerApplyFlags(applyCmd)
	rootCmd.AddCommand(applyCmd)
}

func registerApplyFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("dry-run", false, "show what would be applied without executing")
	cmd.Flags().Bool("skip-preflight", false, "apply even if preflight reports errors")
	cmd.Flags().Duration("lock-timeout", 0, "override lock timeout (e.g., 10s, 1m)")
	cmd.Flags().Duration("statement-timeout", 0, "override statement timeout (e.g., 30s, 5m)")
	cmd.Flags().String("commit-policy", "", "commit once per run (run) or once per migration (unit)")
}

type applyOpts struct {
	policy        executor.Policy
	lockTimeout   time.Duration
	stmtTimeout   time.Duration
	dryRun        bool
	skipPreflight bool
}

func runApply(cmd *cobra.Command, _ []string) error {
	cfg := AppConfig

	if err := cfg.RequireDatabaseURL(); err != nil {
		return err
	}

	policy, err := executor.ParsePolicy(cfg.CommitPolicy)
	if err != nil {
		return err
	}

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	skipPreflight, _ := cmd.Flags().GetBool("skip-preflight")

	opts := applyOpts{
		policy:        policy,
		lockTimeout:   cfg.LockTimeout,
		stmtTimeout:   cfg.StatementTimeout,
		dryRun:        dryRun,
		skipPreflight: skipPreflight,
	}

	ctx := commandContext(cmd)
	log := commandLogger().WithFields(logrus.Fields{
		"run_id":   uuid.NewString(),
		"database": config.RedactURL(cfg.DatabaseURL),
	})

	if err := waitForDatabase(ctx, cfg, log); err != nil {
		return err
	}

	sorted, err := loadAndSortMigrations(cfg.MigrationsDir, log)
	if err != nil || len(sorted) == 0 {
		return err
	}

	t, err := tracker.New(cfg.TrackingTable)
	if err != nil {
		return err
	}

	conn, err := connectDB(ctx, cfg.DatabaseURL, cfg.ConnectTimeout)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close(ctx, conn) //nolint:errcheck // nothing to recover after the run

	if !opts.skipPreflight {
		if err := preflightPending(ctx, log, conn, t, sorted); err != nil {
			return err
		}
	}

	return executeMigrations(ctx, log, conn, t, sorted, opts)
}

// loadAndSortMigrations discovers migration files. An empty directory yields
// nil without error.
func loadAndSortMigrations(dir string, log logrus.FieldLogger) ([]migration.Migration, error) {
	sorted, err := migration.Discover(dir)
	if err != nil {
		return nil, fmt.Errorf("loading migrations: %w", err)
	}

	if len(sorted) == 0 {
		log.WithField("dir", dir).Info("No migration files found")
		return nil, nil
	}

	log.WithFields(logrus.Fields{"dir": dir, "count": len(sorted)}).Debug("Discovered migrations")

	return sorted, nil
}

// preflightPending checks the files that are not yet recorded. Already
// applied files are never re-checked.
func preflightPending(
	ctx context.Context,
	log logrus.FieldLogger,
	q tracker.Querier,
	t *tracker.Tracker,
	sorted []migration.Migration,
) error {
	applied, err := t.AppliedSet(ctx, q)
	if err != nil {
		return err
	}

	pending := filterPending(sorted, applied)
	if len(pending) == 0 {
		return nil
	}

	report, err := preflight.New().Check(pending)
	if err != nil {
		return err
	}

	logFindings(log, report)

	return report.Err()
}

func filterPending(sorted []migration.Migration, applied map[string]bool) []migration.Migration {
	pending := make([]migration.Migration, 0, len(sorted))

	for _, m := range sorted {
		if !applied[m.Filename] {
			pending = append(pending, m)
		}
	}

	return pending
}

func logFindings(log logrus.FieldLogger, report *preflight.Report) {
	for _, f := range report.Findings {
		entry := log.WithFields(logrus.Fields{
			"migration": f.Filename,
			"rule":      f.Rule,
		})

		if f.Statement != "" {
			entry = entry.WithField("statement", f.Statement)
		}

		if f.Severity == preflight.Error {
			entry.Error(f.Message)
		} else {
			entry.Warn(f.Message)
		}
	}
}

type applyCounts struct {
	applied int
	skipped int
	pending int
}

func progressLogger(log logrus.FieldLogger, counts *applyCounts) func(executor.ProgressEvent) {
	return func(ev executor.ProgressEvent) {
		entry := log.WithField("migration", ev.Migration.Filename)

		switch ev.Status {
		case executor.StatusStarting:
			entry.Debug("Applying migration")
		case executor.StatusCompleted:
			counts.applied++
			entry.WithField("duration", ev.Duration.Truncate(time.Millisecond).String()).Info("Applied migration")
		case executor.StatusSkipped:
			counts.skipped++
			entry.Info("Skipped migration, already applied")
		case executor.StatusPending:
			counts.pending++
			entry.Info("Would apply migration")
		case executor.StatusFailed:
			entry.WithError(ev.Error).Error("Migration failed")
		}
	}
}

func executeMigrations(
	ctx context.Context,
	log logrus.FieldLogger,
	db executor.TxBeginner,
	t *tracker.Tracker,
	sorted []migration.Migration,
	opts applyOpts,
) error {
	var counts applyCounts

	exec := executor.New(db, t,
		executor.WithPolicy(opts.policy),
		executor.WithLockTimeout(opts.lockTimeout),
		executor.WithStatementTimeout(opts.stmtTimeout),
		executor.WithDryRun(opts.dryRun),
		executor.WithProgressCallback(progressLogger(log, &counts)),
	)

	if opts.dryRun {
		log.Info("Dry run, no changes will be made")
	}

	if err := exec.Apply(ctx, sorted); err != nil {
		if opts.policy == executor.PolicyRun && !opts.dryRun {
			log.Warn("Transaction rolled back, no migration from this run was committed")
		}

		return err
	}

	if opts.dryRun {
		log.WithFields(logrus.Fields{
			"would_apply":     counts.pending,
			"already_applied": counts.skipped,
		}).Info("Dry run complete")

		return nil
	}

	log.WithFields(logrus.Fields{
		"applied": counts.applied,
		"skipped": counts.skipped,
	}).Info("Apply complete")

	return nil
}

// pgx.Conn is the production TxBeginner and Querier.
var (
	_ executor.TxBeginner = (*pgx.Conn)(nil)
	_ tracker.Querier     = (*pgx.Conn)(nil)
)
