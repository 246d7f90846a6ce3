package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/anthonybir/ipupy-tesoreria-sub005/internal/domain/shared"
	"github.com/anthonybir/ipupy-tesoreria-sub005/internal/domain/treasury"
)

func setupFundTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&treasury.Fund{})
	require.NoError(t, err)

	return db
}

// newMockFundRepo creates a repository over sqlmock with the postgres
// dialector, for asserting the exact locking SQL
func newMockFundRepo(t *testing.T) (*GormFundRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})
	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormFundRepository(gormDB), mock, mockDB
}

func fundRows(funds ...*treasury.Fund) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "created_at", "updated_at", "name", "type",
		"current_balance", "initial_balance", "is_active",
	})
	for _, f := range funds {
		rows.AddRow(f.ID.String(), f.CreatedAt, f.UpdatedAt, f.Name, string(f.Type),
			f.CurrentBalance.String(), f.InitialBalance.String(), f.IsActive)
	}
	return rows
}

func TestGormFundRepository_CreateAndFind(t *testing.T) {
	db := setupFundTestDB(t)
	repo := NewGormFundRepository(db)
	ctx := context.Background()

	fund, err := treasury.NewFund("Fondo Nacional", treasury.FundTypeNacional, decimal.NewFromInt(1000))
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, fund))

	t.Run("finds by id", func(t *testing.T) {
		found, err := repo.FindByID(ctx, fund.ID)
		require.NoError(t, err)
		assert.Equal(t, fund.ID, found.ID)
		assert.True(t, found.CurrentBalance.Equal(decimal.NewFromInt(1000)))
	})

	t.Run("finds by name", func(t *testing.T) {
		found, err := repo.FindByName(ctx, "Fondo Nacional")
		require.NoError(t, err)
		assert.Equal(t, fund.ID, found.ID)
	})

	t.Run("not found maps to domain error", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)

		_, err = repo.FindByName(ctx, "no such fund")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormFundRepository_ListActive(t *testing.T) {
	db := setupFundTestDB(t)
	repo := NewGormFundRepository(db)
	ctx := context.Background()

	active, err := treasury.NewFund("Misiones", treasury.FundTypeDesignado, decimal.Zero)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, active))

	retired, err := treasury.NewFund("Fondo Viejo", treasury.FundTypeLocal, decimal.Zero)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, retired))
	// An explicit update; Create would let the column default win for false.
	require.NoError(t, db.Model(retired).Update("is_active", false).Error)

	funds, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, funds, 1)
	assert.Equal(t, "Misiones", funds[0].Name)
}

func TestGormFundRepository_FindByIDForUpdate(t *testing.T) {
	repo, mock, mockDB := newMockFundRepo(t)
	defer mockDB.Close()

	fund, err := treasury.NewFund("APY", treasury.FundTypeDesignado, decimal.NewFromInt(500))
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT .* FROM "funds" WHERE id = \$1 .* FOR UPDATE`).
		WithArgs(fund.ID, 1).
		WillReturnRows(fundRows(fund))

	locked, err := repo.FindByIDForUpdate(repo.db, fund.ID)
	require.NoError(t, err)
	assert.Equal(t, fund.ID, locked.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestGormFundRepository_LockPair_Order verifies both rows are locked in
// ascending-ID order no matter which argument comes first. Expectations are
// ordered, so a wrong lock order fails the test.
func TestGormFundRepository_LockPair_Order(t *testing.T) {
	low, err := treasury.NewFund("Fondo A", treasury.FundTypeNacional, decimal.NewFromInt(100))
	require.NoError(t, err)
	high, err := treasury.NewFund("Fondo B", treasury.FundTypeLocal, decimal.NewFromInt(200))
	require.NoError(t, err)
	low.ID = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	high.ID = uuid.MustParse("99999999-9999-9999-9999-999999999999")

	for name, args := range map[string][2]uuid.UUID{
		"already ascending": {low.ID, high.ID},
		"descending input":  {high.ID, low.ID},
	} {
		t.Run(name, func(t *testing.T) {
			repo, mock, mockDB := newMockFundRepo(t)
			defer mockDB.Close()

			mock.ExpectQuery(`SELECT .* FROM "funds" WHERE id = \$1 .* FOR UPDATE`).
				WithArgs(low.ID, 1).
				WillReturnRows(fundRows(low))
			mock.ExpectQuery(`SELECT .* FROM "funds" WHERE id = \$1 .* FOR UPDATE`).
				WithArgs(high.ID, 1).
				WillReturnRows(fundRows(high))

			funds, err := repo.LockPair(repo.db, args[0], args[1])
			require.NoError(t, err)
			require.Len(t, funds, 2)
			assert.Equal(t, "Fondo A", funds[low.ID].Name)
			assert.Equal(t, "Fondo B", funds[high.ID].Name)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestGormFundRepository_LockByNames(t *testing.T) {
	t.Run("returns funds keyed by name", func(t *testing.T) {
		repo, mock, mockDB := newMockFundRepo(t)
		defer mockDB.Close()

		a, err := treasury.NewFund("Misiones", treasury.FundTypeDesignado, decimal.Zero)
		require.NoError(t, err)
		b, err := treasury.NewFund("Fondo Nacional", treasury.FundTypeNacional, decimal.Zero)
		require.NoError(t, err)

		mock.ExpectQuery(`SELECT .* FROM "funds" WHERE name IN .* ORDER BY id ASC FOR UPDATE`).
			WithArgs("Misiones", "Fondo Nacional").
			WillReturnRows(fundRows(a, b))

		funds, err := repo.LockByNames(repo.db, []string{"Misiones", "Fondo Nacional"})
		require.NoError(t, err)
		require.Len(t, funds, 2)
		assert.Equal(t, a.ID, funds["Misiones"].ID)
		assert.Equal(t, b.ID, funds["Fondo Nacional"].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing name is an error", func(t *testing.T) {
		repo, mock, mockDB := newMockFundRepo(t)
		defer mockDB.Close()

		a, err := treasury.NewFund("Misiones", treasury.FundTypeDesignado, decimal.Zero)
		require.NoError(t, err)

		mock.ExpectQuery(`SELECT .* FROM "funds" WHERE name IN .* ORDER BY id ASC FOR UPDATE`).
			WithArgs("Misiones", "No Existe").
			WillReturnRows(fundRows(a))

		_, err = repo.LockByNames(repo.db, []string{"Misiones", "No Existe"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "No Existe")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormFundRepository_UpdateBalance(t *testing.T) {
	fund, err := treasury.NewFund("Damas", treasury.FundTypeLocal, decimal.NewFromInt(300))
	require.NoError(t, err)

	t.Run("updates the balance column", func(t *testing.T) {
		repo, mock, mockDB := newMockFundRepo(t)
		defer mockDB.Close()

		mock.ExpectExec(`UPDATE "funds" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.UpdateBalance(repo.db, fund))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row maps to not found", func(t *testing.T) {
		repo, mock, mockDB := newMockFundRepo(t)
		defer mockDB.Close()

		mock.ExpectExec(`UPDATE "funds" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdateBalance(repo.db, fund)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("fired CHECK maps to constraint violation", func(t *testing.T) {
		repo, mock, mockDB := newMockFundRepo(t)
		defer mockDB.Close()

		mock.ExpectExec(`UPDATE "funds" SET`).
			WillReturnError(&pgconn.PgError{
				Code:           "23514",
				ConstraintName: "chk_funds_current_balance",
				Message:        "new row violates check constraint",
			})

		err := repo.UpdateBalance(repo.db, fund)
		require.Error(t, err)

		var constraint *shared.ConstraintViolationError
		require.ErrorAs(t, err, &constraint)
		assert.Equal(t, "chk_funds_current_balance", constraint.Constraint)
	})
}

func TestGormFundRepository_UpdateBalanceTouchesUpdatedAt(t *testing.T) {
	db := setupFundTestDB(t)
	repo := NewGormFundRepository(db)
	ctx := context.Background()

	fund, err := treasury.NewFund("Jovenes", treasury.FundTypeLocal, decimal.NewFromInt(50))
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, fund))

	before := fund.UpdatedAt
	time.Sleep(5 * time.Millisecond)

	require.NoError(t, fund.Deposit(decimal.NewFromInt(25)))
	require.NoError(t, repo.UpdateBalance(db, fund))

	found, err := repo.FindByID(ctx, fund.ID)
	require.NoError(t, err)
	assert.True(t, found.CurrentBalance.Equal(decimal.NewFromInt(75)))
	assert.True(t, found.UpdatedAt.After(before))
}
