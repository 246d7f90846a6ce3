package shared

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound         = NewDomainError("NOT_FOUND", "Resource not found")
	ErrInvalidInput     = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrInvalidState     = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrFundInactive     = NewDomainError("FUND_INACTIVE", "Fund is not active")
	ErrSameFundTransfer = NewDomainError("SAME_FUND", "Source and destination fund must differ")
)

// ValidationError signals malformed input rejected before any row is locked.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError creates a validation error for a named field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// InsufficientFundsError is the business failure for a debit exceeding the
// locked source balance. The transaction is rolled back with no rows touched.
type InsufficientFundsError struct {
	FundID         uuid.UUID
	CurrentBalance decimal.Decimal
	RequiredAmount decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds in %s: available %s, required %s",
		e.FundID, e.CurrentBalance.StringFixed(2), e.RequiredAmount.StringFixed(2))
}

// NewInsufficientFundsError creates an InsufficientFundsError
func NewInsufficientFundsError(fundID uuid.UUID, current, required decimal.Decimal) *InsufficientFundsError {
	return &InsufficientFundsError{FundID: fundID, CurrentBalance: current, RequiredAmount: required}
}

// ConflictError signals an approval attempt on a report that is no longer
// pending. It carries the status the losing caller actually observed.
type ConflictError struct {
	ReportID      uuid.UUID
	CurrentStatus string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("report %s is not pending approval (status %s)", e.ReportID, e.CurrentStatus)
}

// NewConflictError creates a ConflictError
func NewConflictError(reportID uuid.UUID, status string) *ConflictError {
	return &ConflictError{ReportID: reportID, CurrentStatus: status}
}

// ConstraintViolationError means the storage-level non-negativity check fired
// even though the application verified the balance first. That is a defect,
// not a recoverable business condition; callers log it loudly and surface a
// generic message.
type ConstraintViolationError struct {
	Constraint string
	Detail     string
}

func (e *ConstraintViolationError) Error() string {
	return fmt.Sprintf("storage constraint %q violated: %s", e.Constraint, e.Detail)
}

// NewConstraintViolationError creates a ConstraintViolationError
func NewConstraintViolationError(constraint, detail string) *ConstraintViolationError {
	return &ConstraintViolationError{Constraint: constraint, Detail: detail}
}

// RetryableError wraps a transient infrastructure failure (connection loss,
// lock timeout, serialization failure). The retry policy recognizes it; the
// wrapped cause stays reachable through errors.Unwrap.
type RetryableError struct {
	Cause error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("transient infrastructure failure: %v", e.Cause)
}

// Unwrap returns the wrapped cause
func (e *RetryableError) Unwrap() error {
	return e.Cause
}

// NewRetryableError wraps err as retryable
func NewRetryableError(err error) *RetryableError {
	return &RetryableError{Cause: err}
}
