package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/aqasim81/migration-runner/internal/config"
	"github.com/aqasim81/migration-runner/internal/database"
	"github.com/aqasim81/migration-runner/internal/migration"
	"github.com/aqasim81/migration-runner/internal/tracker"
)

// Migration states reported by status.
const (
	stateApplied = "applied"
	statePending = "pending"
	// stateMissing is a tracking record whose file is gone from disk.
	stateMissing = "missing"
)

var statusCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "status",
	Short: "Show migration status",
	Long: `Display each migration file as applied or pending, and any tracking
records whose file no longer exists. Never creates the tracking table.`,
	RunE: runStatus,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	statusCmd.Flags().String("format", "text", "output format (text, json)")
	rootCmd.AddCommand(statusCmd)
}

type migrationStatus struct {
	Filename  string     `json:"filename"`
	State     string     `json:"state"`
	AppliedAt *time.Time `json:"applied_at,omitempty"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg := AppConfig

	format, _ := cmd.Flags().GetString("format")
	if format != "text" && format != "json" {
		return fmt.Errorf("%w: unknown status format %q", config.ErrInvalidConfig, format)
	}

	if err := cfg.RequireDatabaseURL(); err != nil {
		return err
	}

	ctx := commandContext(cmd)
	log := commandLogger().WithFields(logrus.Fields{
		"run_id":   uuid.NewString(),
		"database": config.RedactURL(cfg.DatabaseURL),
	})

	if err := waitForDatabase(ctx, cfg, log); err != nil {
		return err
	}

	sorted, err := migration.Discover(cfg.MigrationsDir)
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}

	t, err := tracker.New(cfg.TrackingTable)
	if err != nil {
		return err
	}

	conn, err := connectDB(ctx, cfg.DatabaseURL, cfg.ConnectTimeout)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close(ctx, conn) //nolint:errcheck // read-only

	var applied []tracker.AppliedMigration

	exists, err := t.TableExists(ctx, conn)
	if err != nil {
		return err
	}

	if exists {
		if applied, err = t.GetApplied(ctx, conn); err != nil {
			return err
		}
	}

	rows := buildStatus(sorted, applied)

	if format == "json" {
		return writeStatusJSON(cmd.OutOrStdout(), rows)
	}

	writeStatusText(cmd.OutOrStdout(), rows)

	return nil
}

// buildStatus lists files in sorted order, then records without a file.
func buildStatus(sorted []migration.Migration, applied []tracker.AppliedMigration) []migrationStatus {
	byName := make(map[string]time.Time, len(applied))
	for _, a := range applied {
		byName[a.Filename] = a.AppliedAt
	}

	rows := make([]migrationStatus, 0, len(sorted)+len(applied))
	onDisk := make(map[string]bool, len(sorted))

	for _, m := range sorted {
		onDisk[m.Filename] = true

		at, ok := byName[m.Filename]
		if !ok {
			rows = append(rows, migrationStatus{Filename: m.Filename, State: statePending})
			continue
		}

		rows = append(rows, migrationStatus{Filename: m.Filename, State: stateApplied, AppliedAt: &at})
	}

	for _, a := range applied {
		if onDisk[a.Filename] {
			continue
		}

		at := a.AppliedAt
		rows = append(rows, migrationStatus{Filename: a.Filename, State: stateMissing, AppliedAt: &at})
	}

	return rows
}

func writeStatusText(out io.Writer, rows []migrationStatus) {
	if len(rows) == 0 {
		fmt.Fprintln(out, "No migrations found.")
		return
	}

	counts := make(map[string]int)

	for _, r := range rows {
		counts[r.State]++

		at := "-"
		if r.AppliedAt != nil {
			at = r.AppliedAt.UTC().Format(time.RFC3339)
		}

		fmt.Fprintf(out, "%-8s  %-25s  %s\n", r.State, at, r.Filename)
	}

	fmt.Fprintf(out, "\n%d applied, %d pending", counts[stateApplied], counts[statePending])

	if n := counts[stateMissing]; n > 0 {
		fmt.Fprintf(out, ", %d missing", n)
	}

	fmt.Fprintln(out)
}

func writeStatusJSON(out io.Writer, rows []migrationStatus) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	if err := enc.Encode(rows); err != nil {
		return fmt.Errorf("encoding status: %w", err)
	}

	return nil
}
