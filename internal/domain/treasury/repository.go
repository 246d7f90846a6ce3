package treasury

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// FundRepository is the fund balance store. Methods taking a *gorm.DB operate
// on an open transaction handed out by the persistence executor and must not
// be called outside one; row locks only mean something inside BEGIN..COMMIT.
type FundRepository interface {
	Create(ctx context.Context, fund *Fund) error
	// FindByID is the unlocked read used for display paths.
	FindByID(ctx context.Context, id uuid.UUID) (*Fund, error)
	FindByName(ctx context.Context, name string) (*Fund, error)
	ListActive(ctx context.Context) ([]*Fund, error)

	// FindByIDForUpdate reads a fund under FOR UPDATE.
	FindByIDForUpdate(tx *gorm.DB, id uuid.UUID) (*Fund, error)
	// LockPair locks two fund rows in ascending-ID order regardless of the
	// order the arguments arrive in, and returns them keyed by ID.
	LockPair(tx *gorm.DB, a, b uuid.UUID) (map[uuid.UUID]*Fund, error)
	// LockByNames locks the named fund rows in ascending-ID order.
	LockByNames(tx *gorm.DB, names []string) (map[string]*Fund, error)
	// UpdateBalance persists the fund's balance. A storage-level
	// non-negativity violation surfaces as ConstraintViolationError.
	UpdateBalance(tx *gorm.DB, fund *Fund) error
}

// TransactionRepository appends ledger transaction rows. Rows are append-only;
// there is no update or delete.
type TransactionRepository interface {
	Append(tx *gorm.DB, transaction *Transaction) error
	FindByID(ctx context.Context, id uuid.UUID) (*Transaction, error)
	ListByFund(ctx context.Context, fundID uuid.UUID, limit, offset int) ([]*Transaction, int64, error)
}

// MovementRepository is the append-only audit trail of balance changes
type MovementRepository interface {
	Append(tx *gorm.DB, movement *FundMovement) error
	ListByFund(ctx context.Context, fundID uuid.UUID) ([]*FundMovement, error)
	// SumByFund returns the sum of signed movements for a fund since creation.
	SumByFund(ctx context.Context, fundID uuid.UUID) (decimal.Decimal, error)
}

// ReportRepository persists monthly reports
type ReportRepository interface {
	Create(ctx context.Context, report *MonthlyReport) error
	FindByID(ctx context.Context, id uuid.UUID) (*MonthlyReport, error)
	// FindByIDForUpdate locks the report row for the approval transaction.
	FindByIDForUpdate(tx *gorm.DB, id uuid.UUID) (*MonthlyReport, error)
	// Save persists status transitions; usable inside or outside a
	// surrounding transaction via the handle it is given.
	Save(tx *gorm.DB, report *MonthlyReport) error
}
