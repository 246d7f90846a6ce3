package persistence

import (
	"context"
	"database/sql/driver"
	"errors"
	"strings"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/anthonybir/ipupy-tesoreria-sub005/internal/domain/shared"
	"github.com/anthonybir/ipupy-tesoreria-sub005/internal/infrastructure/config"
)

// Postgres error codes that warrant a retry of the whole transaction
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
	pgCheckViolation       = "23514"
)

// RetryPolicy is the single place that decides what gets retried and how
// often. Call sites never carry their own retry counters.
type RetryPolicy struct {
	maxAttempts int
	template    backoff.ExponentialBackOff
	logger      *zap.Logger
}

// NewRetryPolicy builds a retry policy from configuration
func NewRetryPolicy(cfg config.RetryConfig, log *zap.Logger) *RetryPolicy {
	bo := backoff.ExponentialBackOff{
		InitialInterval:     cfg.InitialInterval,
		MaxInterval:         cfg.MaxInterval,
		RandomizationFactor: backoff.DefaultRandomizationFactor,
		Multiplier:          backoff.DefaultMultiplier,
		MaxElapsedTime:      0,
		Clock:               backoff.SystemClock,
	}
	return &RetryPolicy{
		maxAttempts: cfg.MaxAttempts,
		template:    bo,
		logger:      log.Named("retry"),
	}
}

// Do runs op with bounded exponential backoff. An error that classifies as
// transient is retried up to the attempt budget; anything else returns
// immediately.
func (p *RetryPolicy) Do(ctx context.Context, op func() error) error {
	bo := p.template
	bo.Reset()

	attempt := 0
	wrapped := func() error {
		attempt++
		err := op()
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return backoff.Permanent(err)
		}
		p.logger.Warn("transient database failure, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", p.maxAttempts),
			zap.Error(err),
		)
		return err
	}

	return backoff.Retry(wrapped,
		backoff.WithContext(backoff.WithMaxRetries(&bo, uint64(p.maxAttempts-1)), ctx))
}

// IsRetryable classifies an error as a transient infrastructure failure.
// Business-rule errors are never retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Explicitly wrapped infra failures.
	var retryable *shared.RetryableError
	if errors.As(err, &retryable) {
		return true
	}

	// Business errors short-circuit regardless of what wraps them.
	var insufficient *shared.InsufficientFundsError
	var conflict *shared.ConflictError
	var validation *shared.ValidationError
	var constraint *shared.ConstraintViolationError
	if errors.As(err, &insufficient) || errors.As(err, &conflict) ||
		errors.As(err, &validation) || errors.As(err, &constraint) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable:
			return true
		}
		// Class 08: connection exceptions.
		return strings.HasPrefix(pgErr.Code, "08")
	}

	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	return false
}

// translatePGError maps low-level postgres errors onto the domain taxonomy.
// A fired non-negativity CHECK is a defect signal, not a business error.
func translatePGError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgCheckViolation {
		return shared.NewConstraintViolationError(pgErr.ConstraintName, pgErr.Message)
	}
	return err
}
