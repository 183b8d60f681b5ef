package preflight

import (
	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// NonTransactionalRule flags statements PostgreSQL refuses to run inside a
// transaction block. Every migration runs in one, so these always fail.
type NonTransactionalRule struct{}

// NewNonTransactionalRule creates a new NonTransactionalRule.
func NewNonTransactionalRule() *NonTransactionalRule { return &NonTransactionalRule{} }

// ID returns the rule identifier.
func (r *NonTransactionalRule) ID() string { return "non-transactional" }

// Check examines a statement for commands that cannot run in a transaction.
func (r *NonTransactionalRule) Check(stmt *pg_query.RawStmt, ctx *RuleContext) []Finding {
	what := nonTransactionalCommand(stmt.GetStmt())
	if what == "" {
		return nil
	}

	return []Finding{ctx.finding(r.ID(), Error, stmt,
		what+" cannot run inside a transaction block")}
}

// nonTransactionalCommand names the offending command, or returns "" when the
// statement is allowed in a transaction.
func nonTransactionalCommand(node *pg_query.Node) string {
	switch n := node.GetNode().(type) {
	case *pg_query.Node_IndexStmt:
		if n.IndexStmt.GetConcurrent() {
			return "CREATE INDEX CONCURRENTLY"
		}
	case *pg_query.Node_DropStmt:
		if n.DropStmt.GetConcurrent() {
			return "DROP INDEX CONCURRENTLY"
		}
	case *pg_query.Node_ReindexStmt:
		if hasOption(n.ReindexStmt.GetParams(), "concurrently") {
			return "REINDEX CONCURRENTLY"
		}
	case *pg_query.Node_VacuumStmt:
		if n.VacuumStmt.GetIsVacuumcmd() {
			return "VACUUM"
		}
	case *pg_query.Node_CreatedbStmt:
		return "CREATE DATABASE"
	case *pg_query.Node_DropdbStmt:
		return "DROP DATABASE"
	case *pg_query.Node_AlterSystemStmt:
		return "ALTER SYSTEM"
	case *pg_query.Node_CreateTableSpaceStmt:
		return "CREATE TABLESPACE"
	case *pg_query.Node_DropTableSpaceStmt:
		return "DROP TABLESPACE"
	}

	return ""
}

func hasOption(opts []*pg_query.Node, name string) bool {
	for _, opt := range opts {
		de, ok := opt.GetNode().(*pg_query.Node_DefElem)
		if !ok {
			continue
		}

		if de.DefElem.GetDefname() == name {
			return true
		}
	}

	return false
}
