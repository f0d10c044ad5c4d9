// Package txn wraps database transactions in a bounded retry loop with an
// injected conflict policy, so contention handling is explicit and tests
// can simulate conflicts deterministically.
package txn

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/greenbasket/groupbuy-service/internal/apperr"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// ConflictPolicy decides whether a failed attempt may be retried and how
// long to wait before the next one.
type ConflictPolicy interface {
	Retryable(err error) bool
	Backoff(attempt int) time.Duration
}

// PGConflictPolicy retries serialization failures and deadlocks with a
// small linear backoff.
type PGConflictPolicy struct {
	Step time.Duration
}

func (p PGConflictPolicy) Retryable(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == "40001" || pqErr.Code == "40P01"
}

func (p PGConflictPolicy) Backoff(attempt int) time.Duration {
	step := p.Step
	if step <= 0 {
		step = 20 * time.Millisecond
	}
	return time.Duration(attempt) * step
}

// Retry runs op until it succeeds, fails non-retryably, or the attempt
// ceiling is reached. After the ceiling it surfaces Contention so the
// caller can resubmit; it never blocks indefinitely.
func Retry(ctx context.Context, policy ConflictPolicy, maxAttempts int, log *zap.Logger, op func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if !policy.Retryable(err) {
			return err
		}
		lastErr = err
		if attempt == maxAttempts {
			break
		}
		log.Warn("transaction conflict, retrying",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(policy.Backoff(attempt)):
		}
	}
	log.Warn("transaction retries exhausted", zap.Error(lastErr))
	return apperr.ErrContention
}

type Manager struct {
	db          *sqlx.DB
	policy      ConflictPolicy
	maxAttempts int
	logger      *zap.Logger
}

const defaultMaxAttempts = 3

func NewManager(db *sqlx.DB, policy ConflictPolicy, maxAttempts int, log *zap.Logger) *Manager {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	return &Manager{db: db, policy: policy, maxAttempts: maxAttempts, logger: log}
}

// WithinTx runs fn inside a single database transaction, retried per the
// conflict policy. The transaction is the unit of atomicity for a whole
// checkout: all counter updates and document writes commit together or
// not at all.
func (m *Manager) WithinTx(ctx context.Context, fn func(ctx context.Context, tx *sqlx.Tx) error) error {
	return Retry(ctx, m.policy, m.maxAttempts, m.logger, func(ctx context.Context) error {
		return m.runOnce(ctx, fn)
	})
}

func (m *Manager) runOnce(ctx context.Context, fn func(ctx context.Context, tx *sqlx.Tx) error) error {
	tx, err := m.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	if err := fn(ctx, tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
