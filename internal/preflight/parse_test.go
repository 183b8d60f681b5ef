package preflight_test

import (
	"testing"

	pg_query "github.com/pganalyze/pg_query_go/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqasim81/migration-runner/internal/preflight"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		sql       string
		wantErr   bool
		wantStmts int
	}{
		{name: "single statement", sql: "CREATE TABLE users (id INT);", wantStmts: 1},
		{name: "multiple statements", sql: "CREATE TABLE a (id INT); CREATE TABLE b (id INT);", wantStmts: 2},
		{name: "leading whitespace", sql: "\n\n  CREATE TABLE a (id INT);", wantStmts: 1},
		{name: "empty", sql: "", wantStmts: 0},
		{name: "whitespace only", sql: " \n\t", wantStmts: 0},
		{name: "invalid", sql: "CREAT TABLE a (id INT);", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result, err := preflight.Parse(tt.sql)
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Len(t, result.Stmts, tt.wantStmts)
			assert.Equal(t, tt.sql, result.SQL)
		})
	}
}

func TestParse_nodeTypes(t *testing.T) {
	t.Parallel()

	result, err := preflight.Parse("CREATE INDEX CONCURRENTLY idx ON users (email);")
	require.NoError(t, err)
	require.Len(t, result.Stmts, 1)

	node, ok := result.Stmts[0].Stmt.Node.(*pg_query.Node_IndexStmt)
	require.True(t, ok, "expected IndexStmt node")
	assert.True(t, node.IndexStmt.Concurrent)
}

func TestStatementText(t *testing.T) {
	t.Parallel()

	sql := "  CREATE TABLE a (id INT);\n  CREATE TABLE b (id INT);"
	result, err := preflight.Parse(sql)
	require.NoError(t, err)
	require.Len(t, result.Stmts, 2)

	assert.Equal(t, "CREATE TABLE a (id INT)", preflight.StatementText(result.Stmts[0], sql))
	assert.Contains(t, preflight.StatementText(result.Stmts[1], sql), "CREATE TABLE b (id INT)")
	assert.Empty(t, preflight.StatementText(&pg_query.RawStmt{StmtLocation: 999}, sql))
}

func TestTruncateSQL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		sql    string
		maxLen int
		want   string
	}{
		{name: "short", sql: "SELECT 1", maxLen: 100, want: "SELECT 1"},
		{name: "exact", sql: "SELECT 1", maxLen: 8, want: "SELECT 1"},
		{name: "truncated", sql: "SELECT * FROM very_long_table_name WHERE id = 1", maxLen: 20, want: "SELECT * FROM ver..."},
		{name: "collapses whitespace", sql: "SELECT\n    1", maxLen: 100, want: "SELECT 1"},
		{name: "maxLen too small", sql: "SELECT 1", maxLen: 3, want: "SELECT 1"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, preflight.TruncateSQL(tt.sql, tt.maxLen))
		})
	}
}
