package preflight

import (
	"fmt"

	"github.com/aqasim81/migration-runner/internal/migration"
)

// Built-in checks that are not statement rules.
const (
	RuleParseError     = "parse-error"
	RuleEmptyMigration = "empty-migration"
)

// Finding is one problem detected in a migration file.
type Finding struct {
	Rule      string
	Severity  Severity
	Filename  string
	StmtIndex int    // 0-based; -1 when the finding is about the whole file
	Statement string // truncated for display
	Message   string
}

// Report collects findings across a set of migrations.
type Report struct {
	Checked  int
	Findings []Finding
}

// Count returns the number of findings with the given severity.
func (r *Report) Count(sev Severity) int {
	n := 0

	for i := range r.Findings {
		if r.Findings[i].Severity == sev {
			n++
		}
	}

	return n
}

// HasErrors reports whether any finding blocks apply.
func (r *Report) HasErrors() bool {
	return r.Count(Error) > 0
}

// Err returns ErrBlocked when the report has error findings, nil otherwise.
func (r *Report) Err() error {
	if n := r.Count(Error); n > 0 {
		return fmt.Errorf("%w: %d error(s) in %d migration(s)", ErrBlocked, n, r.Checked)
	}

	return nil
}

// Option configures the Checker.
type Option func(*Checker)

// WithRegistry sets a custom rule registry.
func WithRegistry(r *Registry) Option {
	return func(c *Checker) { c.registry = r }
}

// Checker parses migration files and runs rules against every statement.
type Checker struct {
	registry *Registry
	readSQL  func(m *migration.Migration) (string, error)
}

// New creates a Checker with the default registry.
func New(opts ...Option) *Checker {
	c := &Checker{
		registry: DefaultRegistry(),
		readSQL:  func(m *migration.Migration) (string, error) { return m.ReadSQL() },
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// CheckSQL checks a single file body.
func (c *Checker) CheckSQL(filename, sql string) []Finding {
	result, err := Parse(sql)
	if err != nil {
		return []Finding{{
			Rule:      RuleParseError,
			Severity:  Error,
			Filename:  filename,
			StmtIndex: -1,
			Message:   err.Error(),
		}}
	}

	if len(result.Stmts) == 0 {
		return []Finding{{
			Rule:      RuleEmptyMigration,
			Severity:  Warning,
			Filename:  filename,
			StmtIndex: -1,
			Message:   "migration contains no statements",
		}}
	}

	var findings []Finding

	for i, stmt := range result.Stmts {
		ctx := &RuleContext{
			Filename:  filename,
			StmtIndex: i,
			SQL:       result.SQL,
		}

		for _, rule := range c.registry.Rules() {
			findings = append(findings, rule.Check(stmt, ctx)...)
		}
	}

	return findings
}

// Check reads and checks each migration in order. Only read failures are
// returned as errors; problems in the SQL become findings.
func (c *Checker) Check(migrations []migration.Migration) (*Report, error) {
	report := &Report{}

	for i := range migrations {
		m := &migrations[i]

		sql, err := c.readSQL(m)
		if err != nil {
			return nil, fmt.Errorf("checking migration %s: %w", m.Filename, err)
		}

		report.Findings = append(report.Findings, c.CheckSQL(m.Filename, sql)...)
		report.Checked++
	}

	return report, nil
}
