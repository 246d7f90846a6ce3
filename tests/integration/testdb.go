// Package integration spins up a real PostgreSQL with testcontainers and
// runs the treasury core against it. These tests exercise the locking and
// atomicity behavior that sqlmock-level tests cannot.
package integration

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	apptreasury "github.com/anthonybir/ipupy-tesoreria-sub005/internal/application/treasury"
	"github.com/anthonybir/ipupy-tesoreria-sub005/internal/domain/treasury"
	"github.com/anthonybir/ipupy-tesoreria-sub005/internal/infrastructure/config"
	"github.com/anthonybir/ipupy-tesoreria-sub005/internal/infrastructure/persistence"
)

var (
	sharedContainer    testcontainers.Container
	sharedContainerMu  sync.Mutex
	sharedContainerDSN string
)

// TestDB is a connection to a containerized PostgreSQL with the treasury
// schema migrated
type TestDB struct {
	DB    *gorm.DB
	SqlDB *sql.DB
	DSN   string
	t     *testing.T
}

// NewTestDB connects to a shared PostgreSQL container, migrating the schema
// on first use. Tests isolate themselves with CleanTables.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	sharedContainerMu.Lock()
	defer sharedContainerMu.Unlock()

	ctx := context.Background()

	if sharedContainer == nil {
		container, err := tcpostgres.Run(ctx,
			"postgres:16-alpine",
			tcpostgres.WithDatabase("tesoreria_test"),
			tcpostgres.WithUsername("postgres"),
			tcpostgres.WithPassword("admin123"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second)),
		)
		require.NoError(t, err, "Failed to start PostgreSQL container")

		dsn, err := container.ConnectionString(ctx, "sslmode=disable")
		require.NoError(t, err, "Failed to get connection string")

		db, sqlDB := connectToDatabase(t, dsn)
		migrateSchema(t, db)
		require.NoError(t, sqlDB.Close())

		sharedContainer = container
		sharedContainerDSN = dsn
	}

	db, sqlDB := connectToDatabase(t, sharedContainerDSN)
	testDB := &TestDB{DB: db, SqlDB: sqlDB, DSN: sharedContainerDSN, t: t}

	t.Cleanup(func() {
		if testDB.SqlDB != nil {
			testDB.SqlDB.Close()
		}
	})
	return testDB
}

// CleanTables truncates the treasury tables between tests
func (tdb *TestDB) CleanTables() {
	tdb.t.Helper()
	for _, table := range []string{"fund_movements", "transactions", "monthly_reports", "funds"} {
		err := tdb.DB.Exec("TRUNCATE TABLE " + table + " CASCADE").Error
		require.NoError(tdb.t, err, "Failed to truncate %s", table)
	}
}

func connectToDatabase(t *testing.T, dsn string) (*gorm.DB, *sql.DB) {
	t.Helper()

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	require.NoError(t, err, "Failed to connect to database")

	sqlDB, err := db.DB()
	require.NoError(t, err, "Failed to get underlying SQL DB")

	// Enough headroom for the concurrency tests to actually contend.
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	return db, sqlDB
}

func migrateSchema(t *testing.T, db *gorm.DB) {
	t.Helper()
	err := db.AutoMigrate(
		&treasury.Fund{},
		&treasury.Transaction{},
		&treasury.FundMovement{},
		&treasury.MonthlyReport{},
	)
	require.NoError(t, err, "Failed to migrate schema")
}

// harness wires the real services over the test database
type harness struct {
	db           *TestDB
	executor     *persistence.Executor
	fundRepo     *persistence.GormFundRepository
	txRepo       *persistence.GormTransactionRepository
	movementRepo *persistence.GormMovementRepository
	reportRepo   *persistence.GormReportRepository
	transfers    *apptreasury.TransferService
	approvals    *apptreasury.ApprovalService
	balances     *apptreasury.BalanceService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	tdb := NewTestDB(t)
	tdb.CleanTables()

	log := zap.NewNop()
	retry := persistence.NewRetryPolicy(config.RetryConfig{
		MaxAttempts:     5,
		InitialInterval: 10 * time.Millisecond,
		MaxInterval:     100 * time.Millisecond,
	}, log)
	executor := persistence.NewExecutor(tdb.DB, retry, log, 30*time.Second)

	fundRepo := persistence.NewGormFundRepository(tdb.DB)
	txRepo := persistence.NewGormTransactionRepository(tdb.DB)
	movementRepo := persistence.NewGormMovementRepository(tdb.DB)
	reportRepo := persistence.NewGormReportRepository(tdb.DB)

	return &harness{
		db:           tdb,
		executor:     executor,
		fundRepo:     fundRepo,
		txRepo:       txRepo,
		movementRepo: movementRepo,
		reportRepo:   reportRepo,
		transfers: apptreasury.NewTransferService(
			executor, fundRepo, txRepo, movementRepo, nil, log),
		approvals: apptreasury.NewApprovalService(
			executor, reportRepo, fundRepo, txRepo, movementRepo, nil, log),
		balances: apptreasury.NewBalanceService(fundRepo, movementRepo, nil, log),
	}
}

func (h *harness) seedFund(t *testing.T, name string, fundType treasury.FundType, balance int64) *treasury.Fund {
	t.Helper()
	fund, err := treasury.NewFund(name, fundType, decimal.NewFromInt(balance))
	require.NoError(t, err)
	require.NoError(t, h.fundRepo.Create(context.Background(), fund))
	return fund
}

func (h *harness) adminContext(t *testing.T) treasury.SecurityContext {
	t.Helper()
	sc, err := treasury.NewSecurityContext(uuid.New(), treasury.RoleAdmin, nil)
	require.NoError(t, err)
	return sc
}

func (h *harness) fundBalance(t *testing.T, fundID uuid.UUID) decimal.Decimal {
	t.Helper()
	fund, err := h.fundRepo.FindByID(context.Background(), fundID)
	require.NoError(t, err)
	return fund.CurrentBalance
}
