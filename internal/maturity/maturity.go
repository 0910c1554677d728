// Package maturity flips instruments whose maturity date has passed from
// ACTIVE to MATURED. The job is safe to run from several replicas at once: a
// Postgres advisory lock lets exactly one instance perform each sweep.
package maturity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultLockKey identifies the advisory lock shared by all replicas of
// this job. Changing it across a fleet mid-deploy allows two concurrent
// sweeps, so treat it as fixed.
const DefaultLockKey = 90201

// DefaultInterval is the sweep cadence when none is configured.
const DefaultInterval = time.Hour

const (
	statusActive  = "ACTIVE"
	statusMatured = "MATURED"
)

const (
	lockSQL   = `SELECT pg_try_advisory_lock($1)`
	unlockSQL = `SELECT pg_advisory_unlock($1)`
	updateSQL = `
		UPDATE instruments
		SET instrument_status = $1
		WHERE instrument_status = $2
		  AND maturity_date <= CURRENT_DATE
		  AND deleted_at IS NULL`
)

// Runner performs periodic maturity sweeps over one connection pool.
type Runner struct {
	pool     *pgxpool.Pool
	lockKey  int64
	interval time.Duration
	logger   *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithLockKey overrides the advisory lock key.
func WithLockKey(key int64) Option {
	return func(r *Runner) {
		if key != 0 {
			r.lockKey = key
		}
	}
}

// WithInterval sets the sweep cadence.
func WithInterval(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithLogger sets the runner's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a maturity runner over a pool.
func New(pool *pgxpool.Pool, opts ...Option) (*Runner, error) {
	if pool == nil {
		return nil, errors.New("maturity: pool is required")
	}
	r := &Runner{
		pool:     pool,
		lockKey:  DefaultLockKey,
		interval: DefaultInterval,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run sweeps immediately and then on every interval tick until the context
// is canceled. Sweep errors are logged and do not stop the loop.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("maturity job started",
		"interval", r.interval,
		"lock_key", r.lockKey)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if err := r.Tick(ctx); err != nil {
			r.logger.Error("maturity sweep failed", "error", err)
		}
		select {
		case <-ctx.Done():
			r.logger.Info("maturity job stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Tick performs one sweep. When another replica holds the advisory lock the
// sweep is skipped without error.
func (r *Runner) Tick(ctx context.Context) error {
	// The lock is session-scoped, so both lock and unlock must run on the
	// same connection; a pooled Exec could unlock on a different session.
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("maturity: acquire connection: %w", err)
	}
	defer conn.Release()

	var locked bool
	if err := conn.QueryRow(ctx, lockSQL, r.lockKey).Scan(&locked); err != nil {
		return fmt.Errorf("maturity: take advisory lock: %w", err)
	}
	if !locked {
		r.logger.Info("another instance holds the lock, skipping sweep")
		return nil
	}
	defer func() {
		// Unlock even when the surrounding context was canceled mid-sweep.
		unlockCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		var unlocked bool
		if err := conn.QueryRow(unlockCtx, unlockSQL, r.lockKey).Scan(&unlocked); err != nil {
			r.logger.Error("failed to release advisory lock", "error", err)
		}
	}()

	tag, err := conn.Exec(ctx, updateSQL, statusMatured, statusActive)
	if err != nil {
		return fmt.Errorf("maturity: update instruments: %w", err)
	}

	r.logger.Info("maturity sweep complete", "matured", tag.RowsAffected())
	return nil
}
