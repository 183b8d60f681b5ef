package preflight

import (
	"fmt"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// maxStatementLen bounds statement text carried in findings.
const maxStatementLen = 120

// ParseResult holds the parsed statements and the SQL they were parsed from.
type ParseResult struct {
	Stmts []*pg_query.RawStmt
	SQL   string
}

// Parse parses a PostgreSQL SQL string. Empty, whitespace-only and
// comment-only input yields zero statements.
func Parse(sql string) (*ParseResult, error) {
	if strings.TrimSpace(sql) == "" {
		return &ParseResult{SQL: sql}, nil
	}

	tree, err := pg_query.Parse(sql)
	if err != nil {
		return nil, fmt.Errorf("parsing SQL: %w", err)
	}

	return &ParseResult{
		Stmts: tree.Stmts,
		SQL:   sql,
	}, nil
}

// StatementText returns the source text of stmt. A zero StmtLen means the
// statement runs to the end of the input.
func StatementText(stmt *pg_query.RawStmt, sql string) string {
	start := int(stmt.StmtLocation)
	if start < 0 || start > len(sql) {
		return ""
	}

	end := len(sql)
	if stmt.StmtLen > 0 && start+int(stmt.StmtLen) <= len(sql) {
		end = start + int(stmt.StmtLen)
	}

	return strings.TrimSpace(sql[start:end])
}

// TruncateSQL truncates a SQL string to maxLen bytes for display, collapsing
// runs of whitespace first.
func TruncateSQL(sql string, maxLen int) string {
	sql = strings.Join(strings.Fields(sql), " ")

	if len(sql) <= maxLen || maxLen < 4 { //nolint:mnd // room for "..."
		return sql
	}

	return sql[:maxLen-3] + "..."
}
