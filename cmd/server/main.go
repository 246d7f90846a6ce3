package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	treasuryapp "github.com/anthonybir/ipupy-tesoreria-sub005/internal/application/treasury"
	"github.com/anthonybir/ipupy-tesoreria-sub005/internal/domain/shared"
	"github.com/anthonybir/ipupy-tesoreria-sub005/internal/domain/treasury"
	"github.com/anthonybir/ipupy-tesoreria-sub005/internal/infrastructure/cache"
	"github.com/anthonybir/ipupy-tesoreria-sub005/internal/infrastructure/config"
	"github.com/anthonybir/ipupy-tesoreria-sub005/internal/infrastructure/logger"
	"github.com/anthonybir/ipupy-tesoreria-sub005/internal/infrastructure/persistence"
)

// application bundles the treasury services behind one composition root.
// The serving surface (HTTP, gRPC or jobs) hangs off this struct.
type application struct {
	transfers *treasuryapp.TransferService
	approvals *treasuryapp.ApprovalService
	balances  *treasuryapp.BalanceService
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting treasury core",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
	)

	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	db, err := persistence.NewDatabase(&cfg.Database, log, gormLogLevel)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if err := db.DB.AutoMigrate(
		&treasury.Fund{},
		&treasury.Transaction{},
		&treasury.FundMovement{},
		&treasury.MonthlyReport{},
	); err != nil {
		log.Fatal("Failed to migrate schema", zap.Error(err))
	}

	// The balance cache is an optimization; the core runs without it.
	var balanceCache treasuryapp.BalanceCache
	redisCache, err := cache.NewRedisBalanceCache(cfg.Redis)
	if err != nil {
		log.Warn("Balance cache unavailable, reads go straight to the database", zap.Error(err))
	} else {
		balanceCache = redisCache
		defer func() {
			if err := redisCache.Close(); err != nil {
				log.Error("Error closing Redis", zap.Error(err))
			}
		}()
		log.Info("Balance cache connected")
	}

	retry := persistence.NewRetryPolicy(cfg.Retry, log)
	executor := persistence.NewExecutor(db.DB, retry, log, cfg.Database.QueryTimeout)

	fundRepo := persistence.NewGormFundRepository(db.DB)
	txRepo := persistence.NewGormTransactionRepository(db.DB)
	movementRepo := persistence.NewGormMovementRepository(db.DB)
	reportRepo := persistence.NewGormReportRepository(db.DB)

	app := &application{
		transfers: treasuryapp.NewTransferService(executor, fundRepo, txRepo, movementRepo, balanceCache, log),
		approvals: treasuryapp.NewApprovalService(executor, reportRepo, fundRepo, txRepo, movementRepo, balanceCache, log),
		balances:  treasuryapp.NewBalanceService(fundRepo, movementRepo, balanceCache, log),
	}
	log.Info("Treasury services initialized", zap.Bool("cache_enabled", balanceCache != nil))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := ensureNationalFunds(ctx, fundRepo, log); err != nil {
		log.Fatal("Failed to seed national funds", zap.Error(err))
	}

	// Periodic ledger integrity sweep over active funds.
	go integritySweep(ctx, app.balances, log)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("Shutting down", zap.String("signal", sig.String()))
	cancel()

	// Give in-flight work a moment to finish before connections close.
	time.Sleep(500 * time.Millisecond)
	log.Info("Treasury core stopped")
}

// ensureNationalFunds creates the funds every allocation entry posts into,
// so an approval never fails on a missing destination.
func ensureNationalFunds(ctx context.Context, fundRepo treasury.FundRepository, log *zap.Logger) error {
	national := map[string]treasury.FundType{
		"Fondo Nacional":    treasury.FundTypeNacional,
		"Misiones":          treasury.FundTypeDesignado,
		"Lazos de Amor":     treasury.FundTypeDesignado,
		"Mision Posible":    treasury.FundTypeDesignado,
		"APY":               treasury.FundTypeDesignado,
		"Instituto Biblico": treasury.FundTypeDesignado,
		"Diezmo Pastoral":   treasury.FundTypeDesignado,
	}
	for name, fundType := range national {
		_, err := fundRepo.FindByName(ctx, name)
		if err == nil {
			continue
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		fund, err := treasury.NewFund(name, fundType, decimal.Zero)
		if err != nil {
			return err
		}
		if err := fundRepo.Create(ctx, fund); err != nil {
			return err
		}
		log.Info("Created national fund", zap.String("name", name))
	}
	return nil
}

// integritySweep periodically verifies that each active fund's movements sum
// to its balance change. Drift is logged by the service itself.
func integritySweep(ctx context.Context, balances *treasuryapp.BalanceService, log *zap.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			funds, err := balances.ListActiveFunds(ctx)
			if err != nil {
				log.Warn("Integrity sweep could not list funds", zap.Error(err))
				continue
			}
			for _, fund := range funds {
				if _, err := balances.VerifyFundIntegrity(ctx, fund.ID); err != nil {
					log.Warn("Integrity check failed",
						zap.String("fund_id", fund.ID.String()),
						zap.Error(err),
					)
				}
			}
		}
	}
}
