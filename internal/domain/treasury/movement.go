package treasury

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/anthonybir/ipupy-tesoreria-sub005/internal/domain/shared"
)

// FundMovement is one immutable audit record per balance change. The sum of a
// fund's movements since creation always equals current minus initial balance;
// the integrity check in the application layer verifies exactly that.
type FundMovement struct {
	ID              uuid.UUID       `gorm:"type:uuid;primary_key"`
	FundID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	PreviousBalance decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Movement        decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	NewBalance      decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	CreatedAt       time.Time       `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (FundMovement) TableName() string {
	return "fund_movements"
}

// NewFundMovement records a balance change from previous to new. The signed
// delta is derived, never supplied, so the three figures cannot disagree.
func NewFundMovement(fundID uuid.UUID, previous, next decimal.Decimal) (*FundMovement, error) {
	if fundID == uuid.Nil {
		return nil, shared.NewValidationError("fundId", "fund ID is required")
	}
	if next.IsNegative() {
		return nil, shared.NewValidationError("newBalance", "balance cannot go negative")
	}
	return &FundMovement{
		ID:              uuid.New(),
		FundID:          fundID,
		PreviousBalance: previous,
		Movement:        next.Sub(previous),
		NewBalance:      next,
		CreatedAt:       time.Now(),
	}, nil
}
