package preflight_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqasim81/migration-runner/internal/migration"
	"github.com/aqasim81/migration-runner/internal/preflight"
)

func TestCheckSQL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		sql          string
		wantRules    []string
		wantSeverity preflight.Severity
		wantMessage  string
	}{
		{
			name: "plain DDL is clean",
			sql:  "CREATE TABLE users (id SERIAL PRIMARY KEY);\nCREATE INDEX idx_users_id ON users (id);",
		},
		{
			name:         "CREATE INDEX CONCURRENTLY is blocked",
			sql:          "CREATE INDEX CONCURRENTLY idx_users_email ON users (email);",
			wantRules:    []string{"non-transactional"},
			wantSeverity: preflight.Error,
			wantMessage:  "CREATE INDEX CONCURRENTLY cannot run inside a transaction block",
		},
		{
			name:         "DROP INDEX CONCURRENTLY is blocked",
			sql:          "DROP INDEX CONCURRENTLY idx_users_email;",
			wantRules:    []string{"non-transactional"},
			wantSeverity: preflight.Error,
			wantMessage:  "DROP INDEX CONCURRENTLY",
		},
		{
			name:         "REINDEX CONCURRENTLY is blocked",
			sql:          "REINDEX INDEX CONCURRENTLY idx_users_email;",
			wantRules:    []string{"non-transactional"},
			wantSeverity: preflight.Error,
			wantMessage:  "REINDEX CONCURRENTLY",
		},
		{
			name: "plain REINDEX is allowed",
			sql:  "REINDEX INDEX idx_users_email;",
		},
		{
			name:         "VACUUM is blocked",
			sql:          "VACUUM users;",
			wantRules:    []string{"non-transactional"},
			wantSeverity: preflight.Error,
			wantMessage:  "VACUUM",
		},
		{
			name: "ANALYZE is allowed",
			sql:  "ANALYZE users;",
		},
		{
			name:         "CREATE DATABASE is blocked",
			sql:          "CREATE DATABASE todo_copy;",
			wantRules:    []string{"non-transactional"},
			wantSeverity: preflight.Error,
			wantMessage:  "CREATE DATABASE",
		},
		{
			name:         "DROP DATABASE is blocked",
			sql:          "DROP DATABASE todo_copy;",
			wantRules:    []string{"non-transactional"},
			wantSeverity: preflight.Error,
			wantMessage:  "DROP DATABASE",
		},
		{
			name:         "ALTER SYSTEM is blocked",
			sql:          "ALTER SYSTEM SET work_mem = '64MB';",
			wantRules:    []string{"non-transactional"},
			wantSeverity: preflight.Error,
			wantMessage:  "ALTER SYSTEM",
		},
		{
			name:         "CREATE TABLESPACE is blocked",
			sql:          "CREATE TABLESPACE fast LOCATION '/mnt/fast';",
			wantRules:    []string{"non-transactional"},
			wantSeverity: preflight.Error,
			wantMessage:  "CREATE TABLESPACE",
		},
		{
			name:         "DROP TABLESPACE is blocked",
			sql:          "DROP TABLESPACE fast;",
			wantRules:    []string{"non-transactional"},
			wantSeverity: preflight.Error,
			wantMessage:  "DROP TABLESPACE",
		},
		{
			name:         "embedded BEGIN and COMMIT are blocked",
			sql:          "BEGIN;\nCREATE TABLE t (id INT);\nCOMMIT;",
			wantRules:    []string{"transaction-control", "transaction-control"},
			wantSeverity: preflight.Error,
			wantMessage:  "the runner manages the transaction",
		},
		{
			name:         "SAVEPOINT is blocked",
			sql:          "SAVEPOINT before_users;",
			wantRules:    []string{"transaction-control"},
			wantSeverity: preflight.Error,
			wantMessage:  "SAVEPOINT",
		},
		{
			name:         "empty file is a warning",
			sql:          "",
			wantRules:    []string{preflight.RuleEmptyMigration},
			wantSeverity: preflight.Warning,
		},
		{
			name:         "comment-only file is a warning",
			sql:          "-- nothing to do yet\n",
			wantRules:    []string{preflight.RuleEmptyMigration},
			wantSeverity: preflight.Warning,
		},
		{
			name:         "unparseable file is an error",
			sql:          "CREAT TABLE users (id INT);",
			wantRules:    []string{preflight.RuleParseError},
			wantSeverity: preflight.Error,
			wantMessage:  "parsing SQL",
		},
	}

	checker := preflight.New()

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			findings := checker.CheckSQL("0001_test.sql", tt.sql)

			rules := make([]string, 0, len(findings))
			for _, f := range findings {
				rules = append(rules, f.Rule)
				assert.Equal(t, "0001_test.sql", f.Filename)
				assert.Equal(t, tt.wantSeverity, f.Severity)

				if tt.wantMessage != "" {
					assert.Contains(t, f.Message, tt.wantMessage)
				}
			}

			if len(tt.wantRules) == 0 {
				assert.Empty(t, findings)
				return
			}

			assert.Equal(t, tt.wantRules, rules)
		})
	}
}

func TestCheckSQL_locatesOffendingStatement(t *testing.T) {
	t.Parallel()

	sql := "CREATE TABLE users (id INT, email TEXT);\n\nCREATE INDEX CONCURRENTLY idx_users_email ON users (email);\n"

	findings := preflight.New().CheckSQL("0002_index.sql", sql)

	require.Len(t, findings, 1)
	assert.Equal(t, 1, findings[0].StmtIndex)
	assert.True(t,
		strings.HasPrefix(findings[0].Statement, "CREATE INDEX CONCURRENTLY idx_users_email ON users"),
		"statement was %q", findings[0].Statement,
	)
	assert.NotContains(t, findings[0].Statement, "CREATE TABLE")
}

func TestCheckSQL_fileLevelFindingsHaveNoStatement(t *testing.T) {
	t.Parallel()

	findings := preflight.New().CheckSQL("0003_empty.sql", "   \n")

	require.Len(t, findings, 1)
	assert.Equal(t, -1, findings[0].StmtIndex)
	assert.Empty(t, findings[0].Statement)
}

func TestCheckSQL_customRegistry(t *testing.T) {
	t.Parallel()

	r := preflight.NewRegistry()
	r.Register(preflight.NewTransactionControlRule())

	checker := preflight.New(preflight.WithRegistry(r))

	assert.Empty(t, checker.CheckSQL("a.sql", "CREATE INDEX CONCURRENTLY i ON t (id);"))
	assert.Len(t, checker.CheckSQL("a.sql", "COMMIT;"), 1)
}

func TestCheck(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}

	write("0001_users.sql", "CREATE TABLE users (id INT);")
	write("0002_empty.sql", "")
	write("0003_index.sql", "CREATE INDEX CONCURRENTLY idx ON users (id);")

	ms, err := migration.Discover(dir)
	require.NoError(t, err)

	report, err := preflight.New().Check(ms)

	require.NoError(t, err)
	assert.Equal(t, 3, report.Checked)
	assert.Equal(t, 1, report.Count(preflight.Warning))
	assert.Equal(t, 1, report.Count(preflight.Error))
	assert.True(t, report.HasErrors())
	require.ErrorIs(t, report.Err(), preflight.ErrBlocked)
	assert.Contains(t, report.Err().Error(), "1 error(s) in 3 migration(s)")
}

func TestCheck_warningsOnlyDoNotBlock(t *testing.T) {
	t.Parallel()

	report := &preflight.Report{
		Checked:  1,
		Findings: []preflight.Finding{{Rule: preflight.RuleEmptyMigration, Severity: preflight.Warning}},
	}

	assert.False(t, report.HasErrors())
	assert.NoError(t, report.Err())
}

func TestCheck_readFailure(t *testing.T) {
	t.Parallel()

	ms := []migration.Migration{{Filename: "0001_gone.sql", Path: filepath.Join(t.TempDir(), "0001_gone.sql")}}

	_, err := preflight.New().Check(ms)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "checking migration 0001_gone.sql")
}

func TestSeverity_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "WARNING", preflight.Warning.String())
	assert.Equal(t, "ERROR", preflight.Error.String())
	assert.Equal(t, "UNKNOWN", preflight.Severity(99).String())
}
