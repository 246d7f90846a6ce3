package treasury

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/anthonybir/ipupy-tesoreria-sub005/internal/domain/shared"
	"github.com/anthonybir/ipupy-tesoreria-sub005/internal/domain/treasury"
	"github.com/anthonybir/ipupy-tesoreria-sub005/internal/infrastructure/persistence"
)

func setupBalanceService(t *testing.T) (*BalanceService, *gorm.DB, *fakeBalanceCache) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&treasury.Fund{}, &treasury.FundMovement{}))

	cache := newFakeBalanceCache()
	svc := NewBalanceService(
		persistence.NewGormFundRepository(db),
		persistence.NewGormMovementRepository(db),
		cache,
		zap.NewNop(),
	)
	return svc, db, cache
}

func TestBalanceService_GetBalance(t *testing.T) {
	svc, db, cache := setupBalanceService(t)
	ctx := context.Background()

	fund, err := treasury.NewFund("Fondo Nacional", treasury.FundTypeNacional, decimal.NewFromInt(750))
	require.NoError(t, err)
	require.NoError(t, db.Create(fund).Error)

	t.Run("miss reads the store and fills the cache", func(t *testing.T) {
		balance, err := svc.GetBalance(ctx, fund.ID)
		require.NoError(t, err)
		assert.True(t, balance.Equal(decimal.NewFromInt(750)))

		cached, hit, err := cache.Get(ctx, fund.ID)
		require.NoError(t, err)
		require.True(t, hit)
		assert.True(t, cached.Equal(decimal.NewFromInt(750)))
	})

	t.Run("hit skips the store", func(t *testing.T) {
		// Poison the cache; a hit must return the cached figure untouched.
		require.NoError(t, cache.Set(ctx, fund.ID, decimal.NewFromInt(999)))

		balance, err := svc.GetBalance(ctx, fund.ID)
		require.NoError(t, err)
		assert.True(t, balance.Equal(decimal.NewFromInt(999)))
	})

	t.Run("unknown fund", func(t *testing.T) {
		_, err := svc.GetBalance(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestBalanceService_ListActiveFunds(t *testing.T) {
	svc, db, _ := setupBalanceService(t)
	ctx := context.Background()

	active, err := treasury.NewFund("Damas", treasury.FundTypeLocal, decimal.Zero)
	require.NoError(t, err)
	require.NoError(t, db.Create(active).Error)

	retired, err := treasury.NewFund("Fondo Cerrado", treasury.FundTypeLocal, decimal.Zero)
	require.NoError(t, err)
	require.NoError(t, db.Create(retired).Error)
	// An explicit update; Create would let the column default win for false.
	require.NoError(t, db.Model(retired).Update("is_active", false).Error)

	funds, err := svc.ListActiveFunds(ctx)
	require.NoError(t, err)
	require.Len(t, funds, 1)
	assert.Equal(t, "Damas", funds[0].Name)
}

func TestBalanceService_VerifyFundIntegrity(t *testing.T) {
	ctx := context.Background()

	t.Run("consistent ledger", func(t *testing.T) {
		svc, db, _ := setupBalanceService(t)

		fund, err := treasury.NewFund("Misiones", treasury.FundTypeDesignado, decimal.NewFromInt(100))
		require.NoError(t, err)

		// 100 -> 350 -> 300, all with audit rows.
		first, err := treasury.NewFundMovement(fund.ID, decimal.NewFromInt(100), decimal.NewFromInt(350))
		require.NoError(t, err)
		second, err := treasury.NewFundMovement(fund.ID, decimal.NewFromInt(350), decimal.NewFromInt(300))
		require.NoError(t, err)
		fund.CurrentBalance = decimal.NewFromInt(300)

		require.NoError(t, db.Create(fund).Error)
		require.NoError(t, db.Create(first).Error)
		require.NoError(t, db.Create(second).Error)

		report, err := svc.VerifyFundIntegrity(ctx, fund.ID)
		require.NoError(t, err)
		assert.True(t, report.Consistent)
		assert.True(t, report.Drift.IsZero())
		assert.True(t, report.MovementSum.Equal(decimal.NewFromInt(200)))
	})

	t.Run("detects drift", func(t *testing.T) {
		svc, db, _ := setupBalanceService(t)

		fund, err := treasury.NewFund("APY", treasury.FundTypeDesignado, decimal.NewFromInt(100))
		require.NoError(t, err)
		// Balance moved without an audit row.
		fund.CurrentBalance = decimal.NewFromInt(180)
		require.NoError(t, db.Create(fund).Error)

		report, err := svc.VerifyFundIntegrity(ctx, fund.ID)
		require.NoError(t, err)
		assert.False(t, report.Consistent)
		assert.True(t, report.Drift.Equal(decimal.NewFromInt(80)))
	})

	t.Run("fresh fund with no movements is consistent", func(t *testing.T) {
		svc, db, _ := setupBalanceService(t)

		fund, err := treasury.NewFund("Jovenes", treasury.FundTypeLocal, decimal.NewFromInt(5000))
		require.NoError(t, err)
		require.NoError(t, db.Create(fund).Error)

		report, err := svc.VerifyFundIntegrity(ctx, fund.ID)
		require.NoError(t, err)
		assert.True(t, report.Consistent)
	})
}
