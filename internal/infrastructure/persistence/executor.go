package persistence

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/anthonybir/ipupy-tesoreria-sub005/internal/domain/treasury"
	"github.com/anthonybir/ipupy-tesoreria-sub005/internal/infrastructure/telemetry"
)

// TxFunc is the callback run by the executor. The *gorm.DB it receives is
// bound to the executor's single pinned connection; every statement the
// callback issues goes through that handle, so session context and
// transaction boundaries cannot drift across connections.
type TxFunc func(db *gorm.DB) error

// Executor runs queries and transactions under an explicit SecurityContext.
// The caller's identity, role and church scope are registered as postgres
// session settings (app.user_id, app.role, app.church_id) on the one
// connection the work runs on.
type Executor struct {
	db           *gorm.DB
	logger       *zap.Logger
	retry        *RetryPolicy
	queryTimeout time.Duration
}

// NewExecutor creates an Executor on the given database handle
func NewExecutor(db *gorm.DB, retry *RetryPolicy, log *zap.Logger, queryTimeout time.Duration) *Executor {
	return &Executor{
		db:           db,
		logger:       log.Named("executor"),
		retry:        retry,
		queryTimeout: queryTimeout,
	}
}

// ExecuteWithContext pins one pooled connection, applies the security context
// as session settings, runs fn, then clears the settings before the
// connection returns to the pool.
func (e *Executor) ExecuteWithContext(ctx context.Context, sc treasury.SecurityContext, fn TxFunc) error {
	ctx, cancel := context.WithTimeout(ctx, e.queryTimeout)
	defer cancel()

	ctx, span := telemetry.StartServiceSpan(ctx, "executor", "execute_with_context")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrUserID, sc.UserID().String())

	err := e.db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		if err := applySessionContext(conn, sc, false); err != nil {
			return err
		}
		// Settings must not leak to the next borrower of this connection.
		defer clearSessionContext(conn, e.logger)
		return fn(conn)
	})
	if err != nil {
		telemetry.RecordError(span, err)
	}
	return err
}

// ExecuteTransaction pins one pooled connection, opens a transaction on it,
// applies the security context transaction-locally, and runs fn with the
// transaction handle. COMMIT on nil return; ROLLBACK on error, which then
// propagates unchanged. Partial commits are impossible by construction.
func (e *Executor) ExecuteTransaction(ctx context.Context, sc treasury.SecurityContext, fn TxFunc) error {
	ctx, cancel := context.WithTimeout(ctx, e.queryTimeout)
	defer cancel()

	ctx, span := telemetry.StartServiceSpan(ctx, "executor", "execute_transaction")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrUserID, sc.UserID().String())

	err := e.db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		return conn.Transaction(func(tx *gorm.DB) error {
			// set_config with is_local=true dies with the transaction, so
			// no cleanup is needed on either commit or rollback.
			if err := applySessionContext(tx, sc, true); err != nil {
				return err
			}
			return fn(tx)
		})
	})
	if err != nil {
		telemetry.RecordError(span, err)
	}
	return err
}

// ExecuteTransactionWithRetry wraps ExecuteTransaction in the retry policy.
// Only errors classified as transient are retried; business failures
// (insufficient funds, conflicts, validation) surface immediately.
func (e *Executor) ExecuteTransactionWithRetry(ctx context.Context, sc treasury.SecurityContext, fn TxFunc) error {
	return e.retry.Do(ctx, func() error {
		return e.ExecuteTransaction(ctx, sc, fn)
	})
}

// applySessionContext registers the security context as postgres session
// settings. With txLocal the settings are scoped to the open transaction.
func applySessionContext(db *gorm.DB, sc treasury.SecurityContext, txLocal bool) error {
	return db.Exec(
		"SELECT set_config('app.user_id', ?, ?), set_config('app.role', ?, ?), set_config('app.church_id', ?, ?)",
		sc.UserID().String(), txLocal,
		string(sc.Role()), txLocal,
		sc.ChurchScope(), txLocal,
	).Error
}

// clearSessionContext blanks the session settings on a pinned connection
func clearSessionContext(db *gorm.DB, log *zap.Logger) {
	err := db.Exec(
		"SELECT set_config('app.user_id', '', false), set_config('app.role', '', false), set_config('app.church_id', '', false)",
	).Error
	if err != nil {
		log.Warn("failed to clear session context", zap.Error(err))
	}
}
