package treasury

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/anthonybir/ipupy-tesoreria-sub005/internal/domain/shared"
)

// Transaction is one side of a ledger posting: a single credit (AmountIn) or
// debit (AmountOut) against a fund, with the fund balance snapshot taken
// after applying it. Rows are append-only; every transfer produces exactly
// two of them, every report posting exactly one per destination fund.
type Transaction struct {
	ID        uuid.UUID       `gorm:"type:uuid;primary_key"`
	FundID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	ChurchID  *uuid.UUID      `gorm:"type:uuid;index"`
	Concept   string          `gorm:"type:varchar(255);not null"`
	AmountIn  decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	AmountOut decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Balance   decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Date      time.Time       `gorm:"not null;index"`
	CreatedBy uuid.UUID       `gorm:"type:uuid;not null"`
}

// TableName returns the table name for GORM
func (Transaction) TableName() string {
	return "transactions"
}

// NewCreditTransaction records money entering a fund. balanceAfter is the
// fund balance after the credit, read under the fund row lock.
func NewCreditTransaction(fundID uuid.UUID, churchID *uuid.UUID, concept string, amount, balanceAfter decimal.Decimal, createdBy uuid.UUID) (*Transaction, error) {
	return newTransaction(fundID, churchID, concept, amount, decimal.Zero, balanceAfter, createdBy)
}

// NewDebitTransaction records money leaving a fund
func NewDebitTransaction(fundID uuid.UUID, churchID *uuid.UUID, concept string, amount, balanceAfter decimal.Decimal, createdBy uuid.UUID) (*Transaction, error) {
	return newTransaction(fundID, churchID, concept, decimal.Zero, amount, balanceAfter, createdBy)
}

func newTransaction(fundID uuid.UUID, churchID *uuid.UUID, concept string, amountIn, amountOut, balance decimal.Decimal, createdBy uuid.UUID) (*Transaction, error) {
	if fundID == uuid.Nil {
		return nil, shared.NewValidationError("fundId", "fund ID is required")
	}
	if concept == "" {
		return nil, shared.NewValidationError("concept", "concept cannot be empty")
	}
	if createdBy == uuid.Nil {
		return nil, shared.NewValidationError("createdBy", "creating user is required")
	}
	amount := amountIn.Add(amountOut)
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewValidationError("amount", "amount must be positive")
	}
	return &Transaction{
		ID:        uuid.New(),
		FundID:    fundID,
		ChurchID:  churchID,
		Concept:   concept,
		AmountIn:  amountIn,
		AmountOut: amountOut,
		Balance:   balance,
		Date:      time.Now(),
		CreatedBy: createdBy,
	}, nil
}
