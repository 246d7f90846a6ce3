package treasury

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/anthonybir/ipupy-tesoreria-sub005/internal/domain/shared"
)

// ReportStatus is the state of a monthly report in the approval workflow
type ReportStatus string

const (
	StatusDraft     ReportStatus = "draft"
	StatusSubmitted ReportStatus = "submitted"
	// StatusPendingAdmin keeps the source system's vocabulary: the report has
	// been reviewed by the treasurer and awaits national administration.
	StatusPendingAdmin ReportStatus = "pendiente_admin"
	StatusApproved     ReportStatus = "approved"
	StatusRejected     ReportStatus = "rejected"
)

// IsPendingApproval reports whether the status admits the approval transition
func (s ReportStatus) IsPendingApproval() bool {
	return s == StatusSubmitted || s == StatusPendingAdmin
}

// MonthlyReport is a church's financial report for one period. Its category
// columns are the input to the allocation calculator; its status is mutated
// only through the workflow methods below.
type MonthlyReport struct {
	shared.BaseEntity
	ChurchID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_reports_church_period,priority:1"`
	Year     int       `gorm:"not null;uniqueIndex:idx_reports_church_period,priority:2"`
	Month    int       `gorm:"not null;uniqueIndex:idx_reports_church_period,priority:3"`

	// Congregational income
	Diezmos  decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Ofrendas decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Anexos   decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Otros    decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`

	// Designated offerings remitted 100% to their national funds
	Misiones         decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	LazosAmor        decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	MisionPosible    decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	APY              decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	InstitutoBiblico decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	DiezmoPastoral   decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`

	// Designated offerings that stay local
	Caballeros decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Damas      decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Jovenes    decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Ninos      decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`

	// Operating expenses, always local
	EnergiaElectrica  decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Agua              decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	RecoleccionBasura decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	OtrosGastos       decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`

	// Bank deposit of the national remittance, recorded by the church
	NumeroDeposito  string          `gorm:"type:varchar(50)"`
	FechaDeposito   *time.Time
	MontoDepositado decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`

	Status          ReportStatus `gorm:"type:varchar(20);not null;default:'draft';index"`
	SubmittedAt     *time.Time
	ApprovedAt      *time.Time
	ApprovedBy      *uuid.UUID `gorm:"type:uuid"`
	RejectedAt      *time.Time
	RejectedBy      *uuid.UUID `gorm:"type:uuid"`
	RejectionReason string     `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (MonthlyReport) TableName() string {
	return "monthly_reports"
}

// NewMonthlyReport creates a draft report for a church and period
func NewMonthlyReport(churchID uuid.UUID, year, month int) (*MonthlyReport, error) {
	if churchID == uuid.Nil {
		return nil, shared.NewValidationError("churchId", "church ID is required")
	}
	if year < 2000 || year > 2200 {
		return nil, shared.NewValidationError("year", "year out of range")
	}
	if month < 1 || month > 12 {
		return nil, shared.NewValidationError("month", "month must be 1-12")
	}
	return &MonthlyReport{
		BaseEntity: shared.NewBaseEntity(),
		ChurchID:   churchID,
		Year:       year,
		Month:      month,
		Status:     StatusDraft,
	}, nil
}

// Period returns the report period as "YYYY-MM"
func (r *MonthlyReport) Period() string {
	return fmt.Sprintf("%04d-%02d", r.Year, r.Month)
}

// Totals extracts the category totals consumed by the allocation calculator
func (r *MonthlyReport) Totals() ReportTotals {
	return ReportTotals{
		Diezmos:           r.Diezmos,
		Ofrendas:          r.Ofrendas,
		Anexos:            r.Anexos,
		Otros:             r.Otros,
		Misiones:          r.Misiones,
		LazosAmor:         r.LazosAmor,
		MisionPosible:     r.MisionPosible,
		APY:               r.APY,
		InstitutoBiblico:  r.InstitutoBiblico,
		DiezmoPastoral:    r.DiezmoPastoral,
		Caballeros:        r.Caballeros,
		Damas:             r.Damas,
		Jovenes:           r.Jovenes,
		Ninos:             r.Ninos,
		EnergiaElectrica:  r.EnergiaElectrica,
		Agua:              r.Agua,
		RecoleccionBasura: r.RecoleccionBasura,
		OtrosGastos:       r.OtrosGastos,
	}
}

// Submit moves a draft report into the submitted state
func (r *MonthlyReport) Submit() error {
	if r.Status != StatusDraft {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("cannot submit report in %s status", r.Status))
	}
	now := time.Now()
	r.Status = StatusSubmitted
	r.SubmittedAt = &now
	r.UpdatedAt = now
	return nil
}

// MarkPendingAdmin moves a submitted report into national-admin review
func (r *MonthlyReport) MarkPendingAdmin() error {
	if r.Status != StatusSubmitted {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("cannot mark report pending in %s status", r.Status))
	}
	r.Status = StatusPendingAdmin
	r.UpdatedAt = time.Now()
	return nil
}

// Approve finalizes the report. Approval is terminal; a report reaches
// approved at most once, enforced here and re-checked under the row lock by
// the approval service.
func (r *MonthlyReport) Approve(approvedBy uuid.UUID) error {
	if !r.Status.IsPendingApproval() {
		return shared.NewConflictError(r.ID, string(r.Status))
	}
	if approvedBy == uuid.Nil {
		return shared.NewValidationError("approvedBy", "approving user ID is required")
	}
	now := time.Now()
	r.Status = StatusApproved
	r.ApprovedAt = &now
	r.ApprovedBy = &approvedBy
	r.UpdatedAt = now
	return nil
}

// Reject marks the report rejected. The church gets it back as an editable
// draft through a separate, out-of-core path.
func (r *MonthlyReport) Reject(rejectedBy uuid.UUID, reason string) error {
	if !r.Status.IsPendingApproval() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("cannot reject report in %s status", r.Status))
	}
	if rejectedBy == uuid.Nil {
		return shared.NewValidationError("rejectedBy", "rejecting user ID is required")
	}
	now := time.Now()
	r.Status = StatusRejected
	r.RejectedAt = &now
	r.RejectedBy = &rejectedBy
	r.RejectionReason = reason
	r.UpdatedAt = now
	return nil
}
