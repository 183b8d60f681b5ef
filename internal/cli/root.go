package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/aqasim81/migration-runner/internal/config"
	"github.com/aqasim81/migration-runner/internal/logging"
)

const version = "0.1.0"

// AppConfig holds the loaded configuration, set during PersistentPreRunE.
var AppConfig *config.Config //nolint:gochecknoglobals // standard Cobra pattern for shared config

// Logger is built from AppConfig during PersistentPreRunE.
var Logger *logrus.Logger //nolint:gochecknoglobals // shared by all subcommands

// rootCmd is the base command. Run without a subcommand it applies pending
// migrations, which is what a deploy-time init container wants.
var rootCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:     "migrate",
	Version: version,
	Short:   "Apply pending PostgreSQL schema migrations",
	Long: `migrate waits for PostgreSQL to accept connections, then applies every
*.sql file in the migrations directory that is not yet recorded in the
tracking table, in filename order. By default the whole run is one
transaction: either every pending file is applied and recorded, or none is.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return loadConfig(cmd)
	},
	RunE: runApply,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	pf := rootCmd.PersistentFlags()
	pf.String("config", "migrate.yml", "path to configuration file")
	pf.String("database-url", "", "PostgreSQL connection string")
	pf.String("migrations-dir", "", "path to migration files")
	pf.String("tracking-table", "", "name of the migrations tracking table")
	pf.Int("ready-attempts", 0, "maximum readiness probes before giving up")
	pf.Duration("ready-interval", 0, "wait between readiness probes (e.g., 2s)")
	pf.String("log-level", "", "log level (debug, info, warn, error)")
	pf.String("log-format", "", "log format (text, json)")

	registerApplyFlags(rootCmd)
}

// Execute runs the root command. Called from main. SIGINT and SIGTERM cancel
// the command context so open transactions are rolled back.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)

	stop()

	if err != nil {
		logger := Logger
		if logger == nil {
			logger = logrus.StandardLogger()
		}

		logger.WithError(err).Error("migrate failed")
		os.Exit(1)
	}
}

// loadConfig loads configuration with precedence: flag > env > file, then
// builds the logger.
func loadConfig(cmd *cobra.Command) error {
	configPath, _ := cmd.Flags().GetString("config")
	allowMissing := !cmd.Flags().Changed("config")

	cfg, err := config.Load(configPath, allowMissing)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	if err := config.MergeEnv(cfg); err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	mergeFlags(cmd, cfg)

	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("configuring logging: %w", err)
	}

	AppConfig = cfg
	Logger = logger

	return nil
}

// mergeFlags overrides config with explicitly-set CLI flags.
func mergeFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	stringFlags := []struct {
		name string
		dst  *string
	}{
		{"database-url", &cfg.DatabaseURL},
		{"migrations-dir", &cfg.MigrationsDir},
		{"tracking-table", &cfg.TrackingTable},
		{"log-level", &cfg.LogLevel},
		{"log-format", &cfg.LogFormat},
		{"commit-policy", &cfg.CommitPolicy},
	}

	for _, s := range stringFlags {
		if flags.Changed(s.name) {
			*s.dst, _ = flags.GetString(s.name)
		}
	}

	if flags.Changed("ready-attempts") {
		cfg.ReadyAttempts, _ = flags.GetInt("ready-attempts")
	}

	if flags.Changed("ready-interval") {
		cfg.ReadyInterval, _ = flags.GetDuration("ready-interval")
	}

	if flags.Changed("lock-timeout") {
		cfg.LockTimeout, _ = flags.GetDuration("lock-timeout")
	}

	if flags.Changed("statement-timeout") {
		cfg.StatementTimeout, _ = flags.GetDuration("statement-timeout")
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}

	return context.Background()
}

func commandLogger() logrus.FieldLogger {
	if Logger == nil {
		return logging.Discard()
	}

	return Logger
}
