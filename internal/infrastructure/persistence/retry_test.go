package persistence

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/anthonybir/ipupy-tesoreria-sub005/internal/domain/shared"
	"github.com/anthonybir/ipupy-tesoreria-sub005/internal/infrastructure/config"
)

func newTestRetryPolicy(maxAttempts int) *RetryPolicy {
	return NewRetryPolicy(config.RetryConfig{
		MaxAttempts:     maxAttempts,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
	}, zap.NewNop())
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"nil", nil, false},
		{"serialization failure", &pgconn.PgError{Code: "40001"}, true},
		{"deadlock detected", &pgconn.PgError{Code: "40P01"}, true},
		{"lock not available", &pgconn.PgError{Code: "55P03"}, true},
		{"connection failure class 08", &pgconn.PgError{Code: "08006"}, true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"check violation", &pgconn.PgError{Code: "23514"}, false},
		{"bad connection", driver.ErrBadConn, true},
		{"deadline exceeded", context.DeadlineExceeded, true},
		{"wrapped retryable", shared.NewRetryableError(errors.New("conn reset")), true},
		{"plain error", errors.New("boom"), false},
		{
			"insufficient funds",
			shared.NewInsufficientFundsError(uuid.New(), decimal.NewFromInt(10), decimal.NewFromInt(20)),
			false,
		},
		{"approval conflict", shared.NewConflictError(uuid.New(), "approved"), false},
		{"validation", shared.NewValidationError("amount", "must be positive"), false},
		{"constraint violation", shared.NewConstraintViolationError("chk", "negative"), false},
		{
			"wrapped pg error",
			fmt.Errorf("save fund: %w", &pgconn.PgError{Code: "40P01"}),
			true,
		},
		{
			"business error wrapping a retryable cause stays fatal",
			fmt.Errorf("context: %w", shared.NewConflictError(uuid.New(), "approved")),
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, IsRetryable(tt.err))
		})
	}
}

func TestRetryPolicy_Do(t *testing.T) {
	ctx := context.Background()

	t.Run("succeeds first try", func(t *testing.T) {
		policy := newTestRetryPolicy(3)
		calls := 0
		err := policy.Do(ctx, func() error {
			calls++
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("retries transient failures until success", func(t *testing.T) {
		policy := newTestRetryPolicy(3)
		calls := 0
		err := policy.Do(ctx, func() error {
			calls++
			if calls < 3 {
				return &pgconn.PgError{Code: "40001"}
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up after the attempt budget", func(t *testing.T) {
		policy := newTestRetryPolicy(3)
		calls := 0
		err := policy.Do(ctx, func() error {
			calls++
			return &pgconn.PgError{Code: "40P01"}
		})
		require.Error(t, err)
		assert.Equal(t, 3, calls)

		var pgErr *pgconn.PgError
		assert.ErrorAs(t, err, &pgErr)
	})

	t.Run("business errors short-circuit on the first attempt", func(t *testing.T) {
		policy := newTestRetryPolicy(5)
		calls := 0
		fatal := shared.NewInsufficientFundsError(uuid.New(), decimal.Zero, decimal.NewFromInt(1))
		err := policy.Do(ctx, func() error {
			calls++
			return fatal
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)

		var insufficient *shared.InsufficientFundsError
		assert.ErrorAs(t, err, &insufficient)
	})

	t.Run("cancelled context stops retrying", func(t *testing.T) {
		policy := newTestRetryPolicy(10)
		cancelled, cancel := context.WithCancel(ctx)

		calls := 0
		err := policy.Do(cancelled, func() error {
			calls++
			cancel()
			return &pgconn.PgError{Code: "40001"}
		})
		require.Error(t, err)
		assert.LessOrEqual(t, calls, 2)
	})
}
