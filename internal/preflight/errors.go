package preflight

import "errors"

// ErrBlocked indicates preflight found error-severity findings.
var ErrBlocked = errors.New("preflight check failed")
