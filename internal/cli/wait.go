package cli

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/aqasim81/migration-runner/internal/config"
	"github.com/aqasim81/migration-runner/internal/readiness"
)

// waitForDatabase blocks until the database answers or the readiness policy
// is exhausted. Swapped in tests.
var waitForDatabase = func(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) error { //nolint:gochecknoglobals // test seam
	p := readiness.New(cfg.DatabaseURL, readiness.PolicyFromConfig(cfg),
		readiness.WithLogger(log),
		readiness.WithConnectTimeout(cfg.ConnectTimeout),
	)

	res := p.Wait(ctx)
	if res.Ready {
		return nil
	}

	if res.LastErr == nil {
		return fmt.Errorf("%w after %d attempt(s)", readiness.ErrNotReady, res.Attempts)
	}

	return fmt.Errorf("%w after %d attempt(s): %w", readiness.ErrNotReady, res.Attempts, res.LastErr)
}

var waitCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "wait",
	Short: "Wait until the database accepts connections",
	Long: `Probe the database with SELECT 1 until it answers, up to --ready-attempts
times with --ready-interval between attempts. Exits non-zero if it never
becomes ready.`,
	RunE: runWait,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	rootCmd.AddCommand(waitCmd)
}

func runWait(cmd *cobra.Command, _ []string) error {
	cfg := AppConfig

	if err := cfg.RequireDatabaseURL(); err != nil {
		return err
	}

	log := commandLogger().WithFields(logrus.Fields{
		"run_id":   uuid.NewString(),
		"database": config.RedactURL(cfg.DatabaseURL),
	})

	return waitForDatabase(commandContext(cmd), cfg, log)
}
