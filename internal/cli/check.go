package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/aqasim81/migration-runner/internal/migration"
	"github.com/aqasim81/migration-runner/internal/preflight"
)

var checkCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "check [migration-dir]",
	Short: "Check migrations without touching the database",
	Long: `Parse every migration file with the PostgreSQL parser and report
statements that cannot run inside the runner's transaction, embedded
transaction control, unparseable files and empty files. Exits non-zero
when any error is found.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	dir := AppConfig.MigrationsDir
	if len(args) > 0 {
		dir = args[0]
	}

	sorted, err := migration.Discover(dir)
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}

	if len(sorted) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No migration files found.")
		return nil
	}

	report, err := preflight.New().Check(sorted)
	if err != nil {
		return err
	}

	printFindings(cmd.OutOrStdout(), report)

	return report.Err()
}

func printFindings(out io.Writer, report *preflight.Report) {
	current := ""

	for _, f := range report.Findings {
		if f.Filename != current {
			current = f.Filename
			fmt.Fprintf(out, "\n=== %s ===\n", current)
		}

		fmt.Fprintf(out, "  [%s] %s\n", f.Severity, f.Message)
		fmt.Fprintf(out, "    Rule:  %s\n", f.Rule)

		if f.Statement != "" {
			fmt.Fprintf(out, "    SQL:   %s\n", f.Statement)
		}
	}

	if len(report.Findings) == 0 {
		fmt.Fprintf(out, "No problems found in %d migration(s).\n", report.Checked)
		return
	}

	fmt.Fprintf(out, "\nChecked %d migration(s): %d error(s), %d warning(s).\n",
		report.Checked, report.Count(preflight.Error), report.Count(preflight.Warning))
}
