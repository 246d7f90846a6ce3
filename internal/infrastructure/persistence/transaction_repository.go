package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/anthonybir/ipupy-tesoreria-sub005/internal/domain/shared"
	"github.com/anthonybir/ipupy-tesoreria-sub005/internal/domain/treasury"
)

// GormTransactionRepository implements treasury.TransactionRepository using
// GORM. The transactions table is append-only; this type deliberately has no
// update or delete method.
type GormTransactionRepository struct {
	db *gorm.DB
}

// NewGormTransactionRepository creates a new GormTransactionRepository
func NewGormTransactionRepository(db *gorm.DB) *GormTransactionRepository {
	return &GormTransactionRepository{db: db}
}

// Append inserts one ledger transaction row inside the caller's transaction
func (r *GormTransactionRepository) Append(tx *gorm.DB, transaction *treasury.Transaction) error {
	return translatePGError(tx.Create(transaction).Error)
}

// FindByID finds a transaction by ID
func (r *GormTransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*treasury.Transaction, error) {
	var transaction treasury.Transaction
	if err := r.db.WithContext(ctx).First(&transaction, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &transaction, nil
}

// ListByFund lists a fund's transactions most recent first
func (r *GormTransactionRepository) ListByFund(ctx context.Context, fundID uuid.UUID, limit, offset int) ([]*treasury.Transaction, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&treasury.Transaction{}).
		Where("fund_id = ?", fundID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := r.db.WithContext(ctx).
		Where("fund_id = ?", fundID).
		Order("date DESC")
	if limit > 0 {
		query = query.Limit(limit).Offset(offset)
	}

	var transactions []*treasury.Transaction
	if err := query.Find(&transactions).Error; err != nil {
		return nil, 0, err
	}
	return transactions, total, nil
}
