package executor

import "fmt"

// Policy controls how many transactions a run uses.
type Policy string

const (
	// PolicyRun applies every pending migration in a single transaction that
	// commits once at the end of the run.
	PolicyRun Policy = "run"
	// PolicyUnit gives each pending migration its own transaction holding its
	// statements and its tracking record.
	PolicyUnit Policy = "unit"
)

// ParsePolicy converts a configuration value to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case PolicyRun, PolicyUnit:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}
