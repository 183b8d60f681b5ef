package preflight

import (
	pg_query "github.com/pganalyze/pg_query_go/v6"
)

//nolint:gochecknoglobals // lookup table
var transactionCommands = map[pg_query.TransactionStmtKind]string{
	pg_query.TransactionStmtKind_TRANS_STMT_BEGIN:            "BEGIN",
	pg_query.TransactionStmtKind_TRANS_STMT_START:            "START TRANSACTION",
	pg_query.TransactionStmtKind_TRANS_STMT_COMMIT:           "COMMIT",
	pg_query.TransactionStmtKind_TRANS_STMT_ROLLBACK:         "ROLLBACK",
	pg_query.TransactionStmtKind_TRANS_STMT_SAVEPOINT:        "SAVEPOINT",
	pg_query.TransactionStmtKind_TRANS_STMT_RELEASE:          "RELEASE SAVEPOINT",
	pg_query.TransactionStmtKind_TRANS_STMT_ROLLBACK_TO:      "ROLLBACK TO SAVEPOINT",
	pg_query.TransactionStmtKind_TRANS_STMT_PREPARE:          "PREPARE TRANSACTION",
	pg_query.TransactionStmtKind_TRANS_STMT_COMMIT_PREPARED:   "COMMIT PREPARED",
	pg_query.TransactionStmtKind_TRANS_STMT_ROLLBACK_PREPARED: "ROLLBACK PREPARED",
}

// TransactionControlRule flags transaction control statements. The runner
// owns the transaction; a COMMIT inside a file would end it early.
type TransactionControlRule struct{}

// NewTransactionControlRule creates a new TransactionControlRule.
func NewTransactionControlRule() *TransactionControlRule { return &TransactionControlRule{} }

// ID returns the rule identifier.
func (r *TransactionControlRule) ID() string { return "transaction-control" }

// Check examines a statement for BEGIN, COMMIT, ROLLBACK and savepoints.
func (r *TransactionControlRule) Check(stmt *pg_query.RawStmt, ctx *RuleContext) []Finding {
	node, ok := stmt.GetStmt().GetNode().(*pg_query.Node_TransactionStmt)
	if !ok {
		return nil
	}

	cmd, known := transactionCommands[node.TransactionStmt.GetKind()]
	if !known {
		cmd = "transaction control"
	}

	return []Finding{ctx.finding(r.ID(), Error, stmt,
		cmd+" is not allowed in a migration; the runner manages the transaction")}
}
