// Package readiness waits for a PostgreSQL server to accept connections
// before any migration work starts.
package readiness

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/aqasim81/migration-runner/internal/config"
	"github.com/aqasim81/migration-runner/internal/database"
	"github.com/aqasim81/migration-runner/internal/logging"
)

// Policy bounds how long Wait keeps probing.
type Policy struct {
	MaxAttempts int
	Interval    time.Duration
}

// PolicyFromConfig returns the retry policy described by cfg.
func PolicyFromConfig(cfg *config.Config) Policy {
	return Policy{MaxAttempts: cfg.ReadyAttempts, Interval: cfg.ReadyInterval}
}

// ProbeResult is the outcome of a single probe attempt.
type ProbeResult struct {
	Ready bool
	Err   error
}

// Result summarises a Wait call.
type Result struct {
	Ready    bool
	Attempts int
	LastErr  error
}

type probeFunc func(ctx context.Context) ProbeResult

// Prober checks that the target database answers a trivial query.
type Prober struct {
	target         string
	policy         Policy
	connectTimeout time.Duration
	logger         logrus.FieldLogger
	probe          probeFunc
	timer          backoff.Timer
}

// Option configures a Prober.
type Option func(*Prober)

// WithLogger sets the logger used for per-attempt output.
func WithLogger(l logrus.FieldLogger) Option {
	return func(p *Prober) { p.logger = l }
}

// WithConnectTimeout bounds each connection attempt.
func WithConnectTimeout(d time.Duration) Option {
	return func(p *Prober) { p.connectTimeout = d }
}

// New creates a Prober for the given connection target.
func New(target string, policy Policy, opts ...Option) *Prober {
	p := &Prober{
		target:         target,
		policy:         policy,
		connectTimeout: config.DefaultConnectTimeout,
		logger:         logging.Discard(),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.probe == nil {
		p.probe = p.Probe
	}

	return p
}

// Probe opens a fresh connection, runs SELECT 1 and closes the connection.
// It never returns an error; failures are reported in the result.
func (p *Prober) Probe(ctx context.Context) ProbeResult {
	conn, err := database.Connect(ctx, p.target, p.connectTimeout)
	if err != nil {
		return ProbeResult{Err: err}
	}
	defer database.Close(ctx, conn) //nolint:errcheck // probe connection, nothing to recover

	var one int
	if err := conn.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return ProbeResult{Err: fmt.Errorf("probe query: %w", err)}
	}

	return ProbeResult{Ready: true}
}

// Wait probes until the database is ready or the policy is exhausted. It makes
// at most MaxAttempts probes, sleeping Interval between consecutive ones, and
// returns as soon as one succeeds. An unparseable connection target stops the
// loop at once since retrying cannot fix it.
func (p *Prober) Wait(ctx context.Context) Result {
	maxAttempts := max(p.policy.MaxAttempts, 1)

	var res Result

	operation := func() error {
		res.Attempts++

		pr := p.probe(ctx)
		if pr.Ready {
			res.Ready = true
			return nil
		}

		if pr.Err == nil {
			pr.Err = ErrNotReady
		}

		res.LastErr = pr.Err

		p.logger.WithFields(logrus.Fields{
			"attempt":      res.Attempts,
			"max_attempts": maxAttempts,
			"error":        pr.Err.Error(),
		}).Warn("Database not ready")

		if errors.Is(pr.Err, database.ErrInvalidDatabaseURL) {
			return backoff.Permanent(pr.Err)
		}

		return pr.Err
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.policy.Interval), uint64(maxAttempts-1)),
		ctx,
	)

	notify := func(_ error, next time.Duration) {
		p.logger.WithField("retry_in", next).Debug("Waiting before next probe")
	}

	p.logger.WithField("max_attempts", maxAttempts).Info("Waiting for database to be ready")

	if err := backoff.RetryNotifyWithTimer(operation, b, notify, p.timer); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && res.LastErr == nil {
			res.LastErr = ctxErr
		}

		p.logger.WithField("attempts", res.Attempts).Error("Database failed to become ready")

		return res
	}

	p.logger.WithField("attempts", res.Attempts).Info("Database is ready")

	return res
}
