package txn

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/greenbasket/groupbuy-service/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type alwaysRetry struct{}

func (alwaysRetry) Retryable(error) bool      { return true }
func (alwaysRetry) Backoff(int) time.Duration { return 0 }

type neverRetry struct{}

func (neverRetry) Retryable(error) bool      { return false }
func (neverRetry) Backoff(int) time.Duration { return 0 }

func TestRetrySucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), alwaysRetry{}, 3, zap.NewNop(), func(context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryRecoversFromConflict(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), alwaysRetry{}, 3, zap.NewNop(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("serialization failure")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryExhaustionSurfacesContention(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), alwaysRetry{}, 3, zap.NewNop(), func(context.Context) error {
		calls++
		return errors.New("serialization failure")
	})
	assert.Equal(t, 3, calls)
	assert.True(t, errors.Is(err, apperr.ErrContention))
}

type countingPolicy struct{ backoffs int }

func (p *countingPolicy) Retryable(error) bool { return true }
func (p *countingPolicy) Backoff(int) time.Duration {
	p.backoffs++
	return 0
}

func TestRetryDoesNotBackOffAfterFinalAttempt(t *testing.T) {
	policy := &countingPolicy{}
	err := Retry(context.Background(), policy, 3, zap.NewNop(), func(context.Context) error {
		return errors.New("serialization failure")
	})
	assert.True(t, errors.Is(err, apperr.ErrContention))
	assert.Equal(t, 2, policy.backoffs, "no wait between the last attempt and giving up")
}

func TestRetryStopsOnNonRetryableError(t *testing.T) {
	boom := errors.New("constraint violation")
	calls := 0
	err := Retry(context.Background(), neverRetry{}, 3, zap.NewNop(), func(context.Context) error {
		calls++
		return boom
	})
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, boom)
}

func TestRetryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, alwaysRetry{}, 5, zap.NewNop(), func(context.Context) error {
		return errors.New("serialization failure")
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPGConflictPolicyBackoffGrows(t *testing.T) {
	p := PGConflictPolicy{}
	assert.Less(t, p.Backoff(1), p.Backoff(3))
}

func TestPGConflictPolicyIgnoresPlainErrors(t *testing.T) {
	assert.False(t, PGConflictPolicy{}.Retryable(errors.New("boom")))
}
