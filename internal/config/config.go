package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for configuration fields.
const (
	DefaultMigrationsDir    = "/migration/sql"
	DefaultTrackingTable    = "_migrations"
	DefaultReadyAttempts    = 30
	DefaultReadyInterval    = 2 * time.Second
	DefaultConnectTimeout   = 5 * time.Second
	DefaultLockTimeout      = time.Duration(0)
	DefaultStatementTimeout = time.Duration(0)
	DefaultCommitPolicy     = "run"
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "text"
)

// ErrDatabaseURLRequired indicates no connection target was configured.
var ErrDatabaseURLRequired = errors.New(
	"database URL is required (set DATABASE_URL, MIGRATE_DATABASE_URL, --database-url, or database_url in config)",
)

// ErrInvalidConfig indicates a configuration value is out of range or unknown.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the runner configuration. It is built once at startup from the
// config file, the environment and command-line flags, and then passed down.
type Config struct {
	DatabaseURL      string
	MigrationsDir    string
	TrackingTable    string
	ReadyAttempts    int
	ReadyInterval    time.Duration
	ConnectTimeout   time.Duration
	LockTimeout      time.Duration
	StatementTimeout time.Duration
	// CommitPolicy is resolved by executor.ParsePolicy when a run starts.
	CommitPolicy     string
	LogLevel         string
	LogFormat        string
}

// yamlConfig is the raw YAML file representation with string durations.
type yamlConfig struct {
	DatabaseURL      string `yaml:"database_url"`
	MigrationsDir    string `yaml:"migrations_dir"`
	TrackingTable    string `yaml:"tracking_table"`
	ReadyAttempts    int    `yaml:"ready_attempts"`
	ReadyInterval    string `yaml:"ready_interval"`
	ConnectTimeout   string `yaml:"connect_timeout"`
	LockTimeout      string `yaml:"lock_timeout"`
	StatementTimeout string `yaml:"statement_timeout"`
	CommitPolicy     string `yaml:"commit_policy"`
	Log              struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// New returns a Config populated with default values.
func New() *Config {
	return &Config{
		MigrationsDir:    DefaultMigrationsDir,
		TrackingTable:    DefaultTrackingTable,
		ReadyAttempts:    DefaultReadyAttempts,
		ReadyInterval:    DefaultReadyInterval,
		ConnectTimeout:   DefaultConnectTimeout,
		LockTimeout:      DefaultLockTimeout,
		StatementTimeout: DefaultStatementTimeout,
		CommitPolicy:     DefaultCommitPolicy,
		LogLevel:         DefaultLogLevel,
		LogFormat:        DefaultLogFormat,
	}
}

// Load reads a YAML configuration file and returns a Config.
// If allowMissing is true and the file does not exist, defaults are returned.
func Load(path string, allowMissing bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && allowMissing {
			return New(), nil
		}

		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var raw yamlConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	return fromYAML(&raw)
}

// fromYAML converts the raw YAML representation to a Config with defaults applied.
func fromYAML(raw *yamlConfig) (*Config, error) {
	cfg := New()

	setString(&cfg.DatabaseURL, raw.DatabaseURL)
	setString(&cfg.MigrationsDir, raw.MigrationsDir)
	setString(&cfg.TrackingTable, raw.TrackingTable)
	setString(&cfg.CommitPolicy, raw.CommitPolicy)
	setString(&cfg.LogLevel, raw.Log.Level)
	setString(&cfg.LogFormat, raw.Log.Format)

	if raw.ReadyAttempts != 0 {
		cfg.ReadyAttempts = raw.ReadyAttempts
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"ready_interval", raw.ReadyInterval, &cfg.ReadyInterval},
		{"connect_timeout", raw.ConnectTimeout, &cfg.ConnectTimeout},
		{"lock_timeout", raw.LockTimeout, &cfg.LockTimeout},
		{"statement_timeout", raw.StatementTimeout, &cfg.StatementTimeout},
	}

	for _, d := range durations {
		if d.raw == "" {
			continue
		}

		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return nil, fmt.Errorf("parsing %s %q: %w", d.key, d.raw, err)
		}

		*d.dst = parsed
	}

	return cfg, nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// MergeEnv overrides config fields from the environment. DATABASE_URL is read
// first so that the more specific MIGRATE_DATABASE_URL wins when both are set.
// An unparseable numeric or duration value is an ErrInvalidConfig.
func MergeEnv(cfg *Config) error {
	setString(&cfg.DatabaseURL, os.Getenv("DATABASE_URL"))
	setString(&cfg.DatabaseURL, os.Getenv("MIGRATE_DATABASE_URL"))
	setString(&cfg.MigrationsDir, os.Getenv("MIGRATE_MIGRATIONS_DIR"))
	setString(&cfg.TrackingTable, os.Getenv("MIGRATE_TRACKING_TABLE"))
	setString(&cfg.CommitPolicy, os.Getenv("MIGRATE_COMMIT_POLICY"))
	setString(&cfg.LogLevel, os.Getenv("MIGRATE_LOG_LEVEL"))
	setString(&cfg.LogFormat, os.Getenv("MIGRATE_LOG_FORMAT"))

	if v := os.Getenv("MIGRATE_READY_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: MIGRATE_READY_ATTEMPTS %q is not an integer", ErrInvalidConfig, v)
		}

		cfg.ReadyAttempts = n
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"MIGRATE_READY_INTERVAL", &cfg.ReadyInterval},
		{"MIGRATE_CONNECT_TIMEOUT", &cfg.ConnectTimeout},
		{"MIGRATE_LOCK_TIMEOUT", &cfg.LockTimeout},
		{"MIGRATE_STATEMENT_TIMEOUT", &cfg.StatementTimeout},
	}

	for _, d := range durations {
		if err := envDuration(d.dst, d.key); err != nil {
			return err
		}
	}

	return nil
}

func envDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%w: %s %q: %w", ErrInvalidConfig, key, v, err)
	}

	*dst = d

	return nil
}

// Validate checks that every field holds a usable value. The database URL is
// not checked here because commands such as check never connect; use
// RequireDatabaseURL where a connection is needed.
func (c *Config) Validate() error {
	if c.MigrationsDir == "" {
		return fmt.Errorf("%w: migrations_dir must not be empty", ErrInvalidConfig)
	}

	if c.ReadyAttempts < 1 {
		return fmt.Errorf("%w: ready_attempts must be at least 1, got %d", ErrInvalidConfig, c.ReadyAttempts)
	}

	if c.ReadyInterval <= 0 {
		return fmt.Errorf("%w: ready_interval must be positive, got %s", ErrInvalidConfig, c.ReadyInterval)
	}

	if c.ConnectTimeout < 0 || c.LockTimeout < 0 || c.StatementTimeout < 0 {
		return fmt.Errorf("%w: timeouts must not be negative", ErrInvalidConfig)
	}

	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	}

	return nil
}

// RequireDatabaseURL returns ErrDatabaseURLRequired when no connection target is set.
func (c *Config) RequireDatabaseURL() error {
	if c.DatabaseURL == "" {
		return ErrDatabaseURLRequired
	}

	return nil
}
