package tracker

import "errors"

// ErrTableCreation indicates the tracking table could not be created.
var ErrTableCreation = errors.New("creating migrations tracking table")

// ErrInvalidTableName indicates the configured tracking table name is not a
// plain PostgreSQL identifier.
var ErrInvalidTableName = errors.New("invalid tracking table name")
