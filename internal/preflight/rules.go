package preflight

import pg_query "github.com/pganalyze/pg_query_go/v6"

// Rule inspects one parsed statement.
type Rule interface {
	// ID returns a unique kebab-case identifier for this rule.
	ID() string
	// Check examines a single parsed statement and returns any findings.
	Check(stmt *pg_query.RawStmt, ctx *RuleContext) []Finding
}

// RuleContext identifies the statement under inspection.
type RuleContext struct {
	Filename  string
	StmtIndex int
	SQL       string // full file body
}

// finding builds a Finding for stmt with location fields filled in.
func (c *RuleContext) finding(rule string, sev Severity, stmt *pg_query.RawStmt, msg string) Finding {
	return Finding{
		Rule:      rule,
		Severity:  sev,
		Filename:  c.Filename,
		StmtIndex: c.StmtIndex,
		Statement: TruncateSQL(StatementText(stmt, c.SQL), maxStatementLen),
		Message:   msg,
	}
}

// Registry holds a collection of rules.
type Registry struct {
	rules []Rule
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a rule to the registry.
func (r *Registry) Register(rule Rule) {
	r.rules = append(r.rules, rule)
}

// Rules returns all registered rules.
func (r *Registry) Rules() []Rule {
	return r.rules
}

// DefaultRegistry returns a Registry with the built-in statement rules.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewNonTransactionalRule())
	r.Register(NewTransactionControlRule())

	return r
}
