package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/anthonybir/ipupy-tesoreria-sub005/internal/domain/shared"
	"github.com/anthonybir/ipupy-tesoreria-sub005/internal/domain/treasury"
)

// GormFundRepository implements treasury.FundRepository using GORM
type GormFundRepository struct {
	db *gorm.DB
}

// NewGormFundRepository creates a new GormFundRepository
func NewGormFundRepository(db *gorm.DB) *GormFundRepository {
	return &GormFundRepository{db: db}
}

// Create inserts a new fund
func (r *GormFundRepository) Create(ctx context.Context, fund *treasury.Fund) error {
	return translatePGError(r.db.WithContext(ctx).Create(fund).Error)
}

// FindByID reads a fund without locking. Display paths only; mutating
// transactions must use FindByIDForUpdate.
func (r *GormFundRepository) FindByID(ctx context.Context, id uuid.UUID) (*treasury.Fund, error) {
	var fund treasury.Fund
	if err := r.db.WithContext(ctx).First(&fund, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &fund, nil
}

// FindByName reads a fund by its unique name
func (r *GormFundRepository) FindByName(ctx context.Context, name string) (*treasury.Fund, error) {
	var fund treasury.Fund
	if err := r.db.WithContext(ctx).First(&fund, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &fund, nil
}

// ListActive returns all active funds ordered by name
func (r *GormFundRepository) ListActive(ctx context.Context) ([]*treasury.Fund, error) {
	var funds []*treasury.Fund
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name ASC").
		Find(&funds).Error; err != nil {
		return nil, err
	}
	return funds, nil
}

// FindByIDForUpdate reads a fund under FOR UPDATE. Must run on an open
// transaction handle.
func (r *GormFundRepository) FindByIDForUpdate(tx *gorm.DB, id uuid.UUID) (*treasury.Fund, error) {
	var fund treasury.Fund
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&fund, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &fund, nil
}

// LockPair locks two fund rows one at a time in ascending-ID order,
// regardless of which argument is source and which is destination. Every
// mutating path locks in this same global order, so opposite-direction
// transfers on the same pair cannot deadlock.
func (r *GormFundRepository) LockPair(tx *gorm.DB, a, b uuid.UUID) (map[uuid.UUID]*treasury.Fund, error) {
	first, second := a, b
	if second.String() < first.String() {
		first, second = second, first
	}

	funds := make(map[uuid.UUID]*treasury.Fund, 2)
	for _, id := range []uuid.UUID{first, second} {
		fund, err := r.FindByIDForUpdate(tx, id)
		if err != nil {
			return nil, err
		}
		funds[fund.ID] = fund
	}
	return funds, nil
}

// LockByNames locks the named fund rows in one statement, ordered by
// ascending ID to keep the global lock order. Returns the funds keyed by
// name; a missing name is an error.
func (r *GormFundRepository) LockByNames(tx *gorm.DB, names []string) (map[string]*treasury.Fund, error) {
	var funds []*treasury.Fund
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("name IN ?", names).
		Order("id ASC").
		Find(&funds).Error; err != nil {
		return nil, err
	}

	byName := make(map[string]*treasury.Fund, len(funds))
	for _, f := range funds {
		byName[f.Name] = f
	}
	for _, name := range names {
		if _, ok := byName[name]; !ok {
			return nil, shared.NewDomainError("FUND_NOT_FOUND", "no fund named "+name)
		}
	}
	return byName, nil
}

// UpdateBalance persists the fund's balance under the lock already held. A
// fired storage-level non-negativity CHECK surfaces as
// ConstraintViolationError.
func (r *GormFundRepository) UpdateBalance(tx *gorm.DB, fund *treasury.Fund) error {
	result := tx.Model(&treasury.Fund{}).
		Where("id = ?", fund.ID).
		Updates(map[string]any{
			"current_balance": fund.CurrentBalance,
			"updated_at":      time.Now(),
		})
	if result.Error != nil {
		return translatePGError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}
