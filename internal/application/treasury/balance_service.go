package treasury

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/anthonybir/ipupy-tesoreria-sub005/internal/domain/treasury"
	"github.com/anthonybir/ipupy-tesoreria-sub005/internal/infrastructure/telemetry"
)

// BalanceService serves display-path balance reads and ledger integrity
// checks. Reads here are unlocked; anything that mutates goes through the
// transfer or approval services.
type BalanceService struct {
	fundRepo     treasury.FundRepository
	movementRepo treasury.MovementRepository
	cache        BalanceCache
	logger       *zap.Logger
}

// NewBalanceService creates a new BalanceService. cache may be nil.
func NewBalanceService(
	fundRepo treasury.FundRepository,
	movementRepo treasury.MovementRepository,
	cache BalanceCache,
	logger *zap.Logger,
) *BalanceService {
	return &BalanceService{
		fundRepo:     fundRepo,
		movementRepo: movementRepo,
		cache:        cache,
		logger:       logger.Named("balance"),
	}
}

// GetBalance returns a fund's current balance, read through the cache when
// one is configured
func (s *BalanceService) GetBalance(ctx context.Context, fundID uuid.UUID) (decimal.Decimal, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "balance", "get_balance")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrFundID, fundID.String())

	if s.cache != nil {
		balance, hit, err := s.cache.Get(ctx, fundID)
		if err != nil {
			// Cache trouble degrades to a database read.
			s.logger.Warn("balance cache read failed", zap.Error(err))
		} else if hit {
			telemetry.SetAttribute(span, "cache_hit", true)
			return balance, nil
		}
	}

	fund, err := s.fundRepo.FindByID(ctx, fundID)
	if err != nil {
		telemetry.RecordError(span, err)
		return decimal.Zero, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, fundID, fund.CurrentBalance); err != nil {
			s.logger.Warn("balance cache write failed", zap.Error(err))
		}
	}
	return fund.CurrentBalance, nil
}

// ListActiveFunds returns all active funds for display
func (s *BalanceService) ListActiveFunds(ctx context.Context) ([]*treasury.Fund, error) {
	return s.fundRepo.ListActive(ctx)
}

// IntegrityReport compares a fund's balance against its audit trail
type IntegrityReport struct {
	FundID         uuid.UUID       `json:"fund_id"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
	MovementSum    decimal.Decimal `json:"movement_sum"`
	Drift          decimal.Decimal `json:"drift"`
	Consistent     bool            `json:"consistent"`
}

// VerifyFundIntegrity checks that the sum of a fund's movements since
// creation equals current balance minus initial balance. Non-zero drift
// means a balance changed without its audit row, or vice versa.
func (s *BalanceService) VerifyFundIntegrity(ctx context.Context, fundID uuid.UUID) (*IntegrityReport, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "balance", "verify_fund_integrity")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrFundID, fundID.String())

	fund, err := s.fundRepo.FindByID(ctx, fundID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	sum, err := s.movementRepo.SumByFund(ctx, fundID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	drift := fund.CurrentBalance.Sub(fund.InitialBalance).Sub(sum)
	report := &IntegrityReport{
		FundID:         fundID,
		CurrentBalance: fund.CurrentBalance,
		InitialBalance: fund.InitialBalance,
		MovementSum:    sum,
		Drift:          drift,
		Consistent:     drift.IsZero(),
	}
	if !report.Consistent {
		s.logger.Error("fund ledger drift detected",
			zap.String("fund_id", fundID.String()),
			zap.String("drift", drift.String()),
		)
	}
	return report, nil
}
