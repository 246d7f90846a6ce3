package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/anthonybir/ipupy-tesoreria-sub005/internal/domain/shared"
	"github.com/anthonybir/ipupy-tesoreria-sub005/internal/domain/treasury"
)

// GormReportRepository implements treasury.ReportRepository using GORM
type GormReportRepository struct {
	db *gorm.DB
}

// NewGormReportRepository creates a new GormReportRepository
func NewGormReportRepository(db *gorm.DB) *GormReportRepository {
	return &GormReportRepository{db: db}
}

// Create inserts a new monthly report
func (r *GormReportRepository) Create(ctx context.Context, report *treasury.MonthlyReport) error {
	return translatePGError(r.db.WithContext(ctx).Create(report).Error)
}

// FindByID reads a report without locking
func (r *GormReportRepository) FindByID(ctx context.Context, id uuid.UUID) (*treasury.MonthlyReport, error) {
	var report treasury.MonthlyReport
	if err := r.db.WithContext(ctx).First(&report, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &report, nil
}

// FindByIDForUpdate locks the report row for the approval transaction.
// Concurrent approval attempts on the same report serialize here; the loser
// re-reads the already-updated status.
func (r *GormReportRepository) FindByIDForUpdate(tx *gorm.DB, id uuid.UUID) (*treasury.MonthlyReport, error) {
	var report treasury.MonthlyReport
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&report, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &report, nil
}

// Save persists the report on the given handle, which may be a transaction
func (r *GormReportRepository) Save(tx *gorm.DB, report *treasury.MonthlyReport) error {
	return translatePGError(tx.Save(report).Error)
}
