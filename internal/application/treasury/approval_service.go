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

// ApprovalService drives the monthly report workflow. Only the approval
// transition posts money; everything else is a guarded status change.
type ApprovalService struct {
	executor     *persistence.Executor
	reportRepo   treasury.ReportRepository
	fundRepo     treasury.FundRepository
	txRepo       treasury.TransactionRepository
	movementRepo treasury.MovementRepository
	cache        BalanceCache
	logger       *zap.Logger
}

// NewApprovalService creates a new ApprovalService
func NewApprovalService(
	executor *persistence.Executor,
	reportRepo treasury.ReportRepository,
	fundRepo treasury.FundRepository,
	txRepo treasury.TransactionRepository,
	movementRepo treasury.MovementRepository,
	cache BalanceCache,
	logger *zap.Logger,
) *ApprovalService {
	return &ApprovalService{
		executor:     executor,
		reportRepo:   reportRepo,
		fundRepo:     fundRepo,
		txRepo:       txRepo,
		movementRepo: movementRepo,
		cache:        cache,
		logger:       logger.Named("approval"),
	}
}

// ApprovalResult is the outcome of a committed approval
type ApprovalResult struct {
	PostedTransactionIDs []uuid.UUID     `json:"posted_transaction_ids"`
	TotalPosted          decimal.Decimal `json:"total_posted"`
	ResidualPastoral     decimal.Decimal `json:"residual_pastoral"`
}

// ApproveReport converts a pending report into ledger postings and marks it
// approved, all in one transaction. The report row lock serializes
// concurrent approval attempts; the loser re-reads the updated status and
// gets a ConflictError, so a report posts exactly once.
func (s *ApprovalService) ApproveReport(ctx context.Context, reportID uuid.UUID, sc treasury.SecurityContext) (*ApprovalResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "approval", "approve_report")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrReportID, reportID.String(),
		telemetry.SpanAttrUserID, sc.UserID().String(),
	)

	if reportID == uuid.Nil {
		err := shared.NewValidationError("reportId", "report ID is required")
		telemetry.RecordError(span, err)
		return nil, err
	}

	var (
		result          *ApprovalResult
		postedFundIDs   []uuid.UUID
		residualClamped bool
		period          string
	)
	err := s.executor.ExecuteTransactionWithRetry(ctx, sc, func(tx *gorm.DB) error {
		// The callback may run more than once under retry; everything is
		// re-derived from the locked rows each attempt.
		result = nil
		postedFundIDs = nil

		report, err := s.reportRepo.FindByIDForUpdate(tx, reportID)
		if err != nil {
			return err
		}
		period = report.Period()

		if !report.Status.IsPendingApproval() {
			return shared.NewConflictError(report.ID, string(report.Status))
		}

		alloc := treasury.CalculateAllocation(report.Totals())
		residualClamped = alloc.ResidualClamped

		posted := make([]uuid.UUID, 0, len(alloc.Entries))
		total := decimal.Zero
		if len(alloc.Entries) > 0 {
			names := make([]string, len(alloc.Entries))
			for i, entry := range alloc.Entries {
				names[i] = entry.Category.FundName()
			}
			funds, err := s.fundRepo.LockByNames(tx, names)
			if err != nil {
				return err
			}

			for _, entry := range alloc.Entries {
				fund := funds[entry.Category.FundName()]
				if !fund.IsActive {
					return shared.ErrFundInactive
				}

				prev := fund.CurrentBalance
				if err := fund.Deposit(entry.Amount); err != nil {
					return err
				}

				// Single-sided posting: reported income enters the national
				// fund attributed to the church; no other fund is debited.
				churchID := report.ChurchID
				concept := fmt.Sprintf("%s informe %s", entry.Category.FundName(), report.Period())
				credit, err := treasury.NewCreditTransaction(
					fund.ID, &churchID, concept, entry.Amount, fund.CurrentBalance, sc.UserID())
				if err != nil {
					return err
				}
				if err := s.txRepo.Append(tx, credit); err != nil {
					return err
				}
				if err := s.fundRepo.UpdateBalance(tx, fund); err != nil {
					return err
				}
				movement, err := treasury.NewFundMovement(fund.ID, prev, fund.CurrentBalance)
				if err != nil {
					return err
				}
				if err := s.movementRepo.Append(tx, movement); err != nil {
					return err
				}

				posted = append(posted, credit.ID)
				postedFundIDs = append(postedFundIDs, fund.ID)
				total = total.Add(entry.Amount)
			}
		}

		if err := report.Approve(sc.UserID()); err != nil {
			return err
		}
		if err := s.reportRepo.Save(tx, report); err != nil {
			return err
		}

		result = &ApprovalResult{
			PostedTransactionIDs: posted,
			TotalPosted:          total,
			ResidualPastoral:     alloc.ResidualPastoral,
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		var constraint *shared.ConstraintViolationError
		if errors.As(err, &constraint) {
			s.logger.Error("balance constraint violated during report approval",
				zap.String("report_id", reportID.String()),
				zap.Error(err),
			)
		}
		return nil, err
	}

	if residualClamped {
		// Declared expenses plus remittances exceed declared income. The
		// approval stands; the figure just deserves a second look.
		s.logger.Warn("negative pastoral residual clamped to zero",
			zap.String("report_id", reportID.String()),
			zap.String("period", period),
		)
	}

	if s.cache != nil && len(postedFundIDs) > 0 {
		if err := s.cache.Invalidate(ctx, postedFundIDs...); err != nil {
			s.logger.Warn("failed to invalidate balance cache", zap.Error(err))
		}
	}

	s.logger.Info("report approved",
		zap.String("report_id", reportID.String()),
		zap.String("period", period),
		zap.Int("postings", len(result.PostedTransactionIDs)),
		zap.String("total_posted", result.TotalPosted.String()),
		zap.String("approved_by", sc.UserID().String()),
	)
	return result, nil
}

// SubmitReport moves a draft report to submitted
func (s *ApprovalService) SubmitReport(ctx context.Context, reportID uuid.UUID, sc treasury.SecurityContext) error {
	return s.transition(ctx, reportID, sc, "submit_report", func(report *treasury.MonthlyReport) error {
		return report.Submit()
	})
}

// MarkReportPendingAdmin moves a submitted report into national-admin review
func (s *ApprovalService) MarkReportPendingAdmin(ctx context.Context, reportID uuid.UUID, sc treasury.SecurityContext) error {
	return s.transition(ctx, reportID, sc, "mark_pending_admin", func(report *treasury.MonthlyReport) error {
		return report.MarkPendingAdmin()
	})
}

// RejectReport rejects a pending report with a reason. No money moves.
func (s *ApprovalService) RejectReport(ctx context.Context, reportID uuid.UUID, reason string, sc treasury.SecurityContext) error {
	return s.transition(ctx, reportID, sc, "reject_report", func(report *treasury.MonthlyReport) error {
		return report.Reject(sc.UserID(), reason)
	})
}

// transition applies a status change under the report row lock
func (s *ApprovalService) transition(ctx context.Context, reportID uuid.UUID, sc treasury.SecurityContext, op string, apply func(*treasury.MonthlyReport) error) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "approval", op)
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrReportID, reportID.String())

	if reportID == uuid.Nil {
		err := shared.NewValidationError("reportId", "report ID is required")
		telemetry.RecordError(span, err)
		return err
	}

	err := s.executor.ExecuteTransaction(ctx, sc, func(tx *gorm.DB) error {
		report, err := s.reportRepo.FindByIDForUpdate(tx, reportID)
		if err != nil {
			return err
		}
		if err := apply(report); err != nil {
			return err
		}
		return s.reportRepo.Save(tx, report)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	s.logger.Info("report status changed",
		zap.String("report_id", reportID.String()),
		zap.String("operation", op),
		zap.String("user_id", sc.UserID().String()),
	)
	return nil
}
