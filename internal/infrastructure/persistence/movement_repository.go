package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/anthonybir/ipupy-tesoreria-sub005/internal/domain/treasury"
)

// GormMovementRepository implements treasury.MovementRepository using GORM.
// fund_movements is the append-only audit trail; rows are never updated or
// deleted.
type GormMovementRepository struct {
	db *gorm.DB
}

// NewGormMovementRepository creates a new GormMovementRepository
func NewGormMovementRepository(db *gorm.DB) *GormMovementRepository {
	return &GormMovementRepository{db: db}
}

// Append inserts one audit movement row inside the caller's transaction
func (r *GormMovementRepository) Append(tx *gorm.DB, movement *treasury.FundMovement) error {
	return translatePGError(tx.Create(movement).Error)
}

// ListByFund returns a fund's movements oldest first, for balance history
// reconstruction
func (r *GormMovementRepository) ListByFund(ctx context.Context, fundID uuid.UUID) ([]*treasury.FundMovement, error) {
	var movements []*treasury.FundMovement
	if err := r.db.WithContext(ctx).
		Where("fund_id = ?", fundID).
		Order("created_at ASC").
		Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

// SumByFund returns the sum of signed movements for a fund since creation.
// For a drift-free ledger this equals current balance minus initial balance.
func (r *GormMovementRepository) SumByFund(ctx context.Context, fundID uuid.UUID) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	err := r.db.WithContext(ctx).Model(&treasury.FundMovement{}).
		Select("COALESCE(SUM(movement), 0) AS total").
		Where("fund_id = ?", fundID).
		Scan(&result).Error
	if err != nil {
		return decimal.Zero, err
	}
	return result.Total, nil
}
