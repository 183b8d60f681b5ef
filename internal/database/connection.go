package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// Connect opens a single connection to the given database URL. A positive
// connectTimeout bounds the dial and startup handshake. The caller must Close
// the returned connection.
func Connect(ctx context.Context, databaseURL string, connectTimeout time.Duration) (*pgx.Conn, error) {
	connCfg, err := pgx.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDatabaseURL, err)
	}

	if connectTimeout > 0 {
		connCfg.ConnectTimeout = connectTimeout
	}

	conn, err := pgx.ConnectConfig(ctx, connCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	return conn, nil
}

// Close closes conn, ignoring a cancelled ctx so the server side is released
// even when the run was interrupted.
func Close(ctx context.Context, conn *pgx.Conn) error {
	if conn == nil {
		return nil
	}

	if err := conn.Close(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("closing connection: %w", err)
	}

	return nil
}
