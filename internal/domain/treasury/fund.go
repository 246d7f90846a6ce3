package treasury

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/anthonybir/ipupy-tesoreria-sub005/internal/domain/shared"
)

// FundType classifies a fund within the national treasury
type FundType string

const (
	FundTypeNacional  FundType = "nacional"
	FundTypeDesignado FundType = "designado"
	FundTypeLocal     FundType = "local"
)

// IsValid reports whether the fund type is known
func (t FundType) IsValid() bool {
	switch t {
	case FundTypeNacional, FundTypeDesignado, FundTypeLocal:
		return true
	}
	return false
}

// Fund is a named pool of money with its own running balance.
// CurrentBalance never goes below zero; the funds table carries a CHECK
// constraint enforcing the same invariant independently of this type.
type Fund struct {
	shared.BaseEntity
	Name           string          `gorm:"type:varchar(100);not null;uniqueIndex"`
	Type           FundType        `gorm:"type:varchar(20);not null"`
	CurrentBalance decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0;check:current_balance >= 0"`
	InitialBalance decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	IsActive       bool            `gorm:"not null;default:true;index"`
}

// TableName returns the table name for GORM
func (Fund) TableName() string {
	return "funds"
}

// NewFund creates a fund with the given opening balance
func NewFund(name string, fundType FundType, initialBalance decimal.Decimal) (*Fund, error) {
	if name == "" {
		return nil, shared.NewValidationError("name", "fund name cannot be empty")
	}
	if !fundType.IsValid() {
		return nil, shared.NewValidationError("type", "unknown fund type "+string(fundType))
	}
	if initialBalance.IsNegative() {
		return nil, shared.NewValidationError("initialBalance", "opening balance cannot be negative")
	}
	return &Fund{
		BaseEntity:     shared.NewBaseEntity(),
		Name:           name,
		Type:           fundType,
		CurrentBalance: initialBalance,
		InitialBalance: initialBalance,
		IsActive:       true,
	}, nil
}

// Deposit increases the fund balance by amount
func (f *Fund) Deposit(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return shared.NewValidationError("amount", "deposit amount must be positive")
	}
	f.CurrentBalance = f.CurrentBalance.Add(amount)
	f.UpdatedAt = time.Now()
	return nil
}

// Withdraw decreases the fund balance by amount. The caller must hold the fund
// row lock; this check alone does not make concurrent withdrawals safe.
func (f *Fund) Withdraw(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return shared.NewValidationError("amount", "withdrawal amount must be positive")
	}
	if amount.GreaterThan(f.CurrentBalance) {
		return shared.NewInsufficientFundsError(f.ID, f.CurrentBalance, amount)
	}
	f.CurrentBalance = f.CurrentBalance.Sub(amount)
	f.UpdatedAt = time.Now()
	return nil
}

// Deactivate marks the fund inactive. Inactive funds reject postings.
func (f *Fund) Deactivate() {
	f.IsActive = false
	f.UpdatedAt = time.Now()
}
