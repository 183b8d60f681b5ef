package readiness

import "errors"

// ErrNotReady indicates the database did not accept connections within the
// configured number of attempts.
var ErrNotReady = errors.New("database not ready")
