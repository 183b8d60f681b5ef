package executor

import "errors"

// ErrExecutionFailed indicates a migration failed to execute.
var ErrExecutionFailed = errors.New("migration execution failed")

// ErrUnknownPolicy indicates a commit policy name that is neither run nor unit.
var ErrUnknownPolicy = errors.New("unknown commit policy")
