package treasury

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/anthonybir/ipupy-tesoreria-sub005/internal/domain/shared"
	"github.com/anthonybir/ipupy-tesoreria-sub005/internal/domain/treasury"
	"github.com/anthonybir/ipupy-tesoreria-sub005/internal/infrastructure/persistence"
	"github.com/anthonybir/ipupy-tesoreria-sub005/internal/infrastructure/telemetry"
)

// BalanceCache is the read cache invalidated after committed postings.
// Posting paths tolerate cache failures; the ledger is always authoritative.
type BalanceCache interface {
	Get(ctx context.Context, fundID uuid.UUID) (decimal.Decimal, bool, error)
	Set(ctx context.Context, fundID uuid.UUID, balance decimal.Decimal) error
	Invalidate(ctx context.Context, fundIDs ...uuid.UUID) error
}

// TransferService moves money between funds atomically
type TransferService struct {
	executor     *persistence.Executor
	fundRepo     treasury.FundRepository
	txRepo       treasury.TransactionRepository
	movementRepo treasury.MovementRepository
	cache        BalanceCache
	logger       *zap.Logger
}

// NewTransferService creates a new TransferService. cache may be nil when no
// read cache is deployed.
func NewTransferService(
	executor *persistence.Executor,
	fundRepo treasury.FundRepository,
	txRepo treasury.TransactionRepository,
	movementRepo treasury.MovementRepository,
	cache BalanceCache,
	logger *zap.Logger,
) *TransferService {
	return &TransferService{
		executor:     executor,
		fundRepo:     fundRepo,
		txRepo:       txRepo,
		movementRepo: movementRepo,
		cache:        cache,
		logger:       logger.Named("transfer"),
	}
}

// TransferRequest describes a fund-to-fund transfer
type TransferRequest struct {
	SourceFundID      uuid.UUID
	DestinationFundID uuid.UUID
	Amount            decimal.Decimal
	Description       string
}

// TransferResult is the outcome of a committed transfer
type TransferResult struct {
	TransferOutID          uuid.UUID       `json:"transfer_out_id"`
	TransferInID           uuid.UUID       `json:"transfer_in_id"`
	SourceFundBalance      decimal.Decimal `json:"source_fund_balance"`
	DestinationFundBalance decimal.Decimal `json:"destination_fund_balance"`
}

// TransferFunds executes an atomic two-sided transfer: both fund rows locked
// in global order, a debit and a credit ledger row, both balance updates and
// both audit movements, all in one transaction. The result is all-or-nothing;
// no partial state is ever visible.
func (s *TransferService) TransferFunds(ctx context.Context, req TransferRequest, sc treasury.SecurityContext) (*TransferResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "transfer", "transfer_funds")
	defer span.End()
	telemetry.SetAttributes(span,
		"source_fund_id", req.SourceFundID.String(),
		"destination_fund_id", req.DestinationFundID.String(),
		telemetry.SpanAttrAmount, req.Amount.String(),
		telemetry.SpanAttrUserID, sc.UserID().String(),
	)

	// Validation happens before any row is locked.
	if err := validateTransferRequest(req); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var result *TransferResult
	err := s.executor.ExecuteTransactionWithRetry(ctx, sc, func(tx *gorm.DB) error {
		funds, err := s.fundRepo.LockPair(tx, req.SourceFundID, req.DestinationFundID)
		if err != nil {
			return err
		}
		source, dest := funds[req.SourceFundID], funds[req.DestinationFundID]
		if !source.IsActive || !dest.IsActive {
			return shared.ErrFundInactive
		}

		if req.Amount.GreaterThan(source.CurrentBalance) {
			return shared.NewInsufficientFundsError(source.ID, source.CurrentBalance, req.Amount)
		}

		prevSource := source.CurrentBalance
		prevDest := dest.CurrentBalance
		if err := source.Withdraw(req.Amount); err != nil {
			return err
		}
		if err := dest.Deposit(req.Amount); err != nil {
			return err
		}

		debit, err := treasury.NewDebitTransaction(
			source.ID, sc.ChurchID(), req.Description, req.Amount, source.CurrentBalance, sc.UserID())
		if err != nil {
			return err
		}
		credit, err := treasury.NewCreditTransaction(
			dest.ID, sc.ChurchID(), req.Description, req.Amount, dest.CurrentBalance, sc.UserID())
		if err != nil {
			return err
		}
		if err := s.txRepo.Append(tx, debit); err != nil {
			return err
		}
		if err := s.txRepo.Append(tx, credit); err != nil {
			return err
		}

		if err := s.fundRepo.UpdateBalance(tx, source); err != nil {
			return err
		}
		if err := s.fundRepo.UpdateBalance(tx, dest); err != nil {
			return err
		}

		sourceMove, err := treasury.NewFundMovement(source.ID, prevSource, source.CurrentBalance)
		if err != nil {
			return err
		}
		destMove, err := treasury.NewFundMovement(dest.ID, prevDest, dest.CurrentBalance)
		if err != nil {
			return err
		}
		if err := s.movementRepo.Append(tx, sourceMove); err != nil {
			return err
		}
		if err := s.movementRepo.Append(tx, destMove); err != nil {
			return err
		}

		result = &TransferResult{
			TransferOutID:          debit.ID,
			TransferInID:           credit.ID,
			SourceFundBalance:      source.CurrentBalance,
			DestinationFundBalance: dest.CurrentBalance,
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		var constraint *shared.ConstraintViolationError
		if errors.As(err, &constraint) {
			// The storage CHECK fired despite the application check. Defect,
			// not a business condition.
			s.logger.Error("balance constraint violated during transfer",
				zap.String("source_fund_id", req.SourceFundID.String()),
				zap.String("destination_fund_id", req.DestinationFundID.String()),
				zap.String("amount", req.Amount.String()),
				zap.Error(err),
			)
		}
		return nil, err
	}

	s.invalidateBalances(ctx, req.SourceFundID, req.DestinationFundID)

	s.logger.Info("transfer committed",
		zap.String("transfer_out_id", result.TransferOutID.String()),
		zap.String("transfer_in_id", result.TransferInID.String()),
		zap.String("amount", req.Amount.String()),
		zap.String("user_id", sc.UserID().String()),
	)
	return result, nil
}

func validateTransferRequest(req TransferRequest) error {
	if req.SourceFundID == uuid.Nil {
		return shared.NewValidationError("sourceFundId", "source fund ID is required")
	}
	if req.DestinationFundID == uuid.Nil {
		return shared.NewValidationError("destinationFundId", "destination fund ID is required")
	}
	if req.SourceFundID == req.DestinationFundID {
		return shared.ErrSameFundTransfer
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return shared.NewValidationError("amount", fmt.Sprintf("transfer amount must be positive, got %s", req.Amount))
	}
	if req.Description == "" {
		return shared.NewValidationError("description", "description is required")
	}
	return nil
}

// invalidateBalances drops cached balances after a commit, best effort
func (s *TransferService) invalidateBalances(ctx context.Context, fundIDs ...uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, fundIDs...); err != nil {
		s.logger.Warn("failed to invalidate balance cache", zap.Error(err))
	}
}
