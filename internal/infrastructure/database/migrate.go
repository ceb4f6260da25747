package database

import (
	"github.com/pixelpaws/settlement-service/internal/domain/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Migrate runs database migrations
func Migrate(db *gorm.DB, logger *zap.Logger) error {
	logger.Info("Running database migrations...")

	if err := createExtensions(db); err != nil {
		logger.Error("Failed to create extensions", zap.Error(err))
		return err
	}

	err := db.AutoMigrate(
		&model.PaymentRecord{},
		&model.UserCoinBalance{},
		&model.CoinTransaction{},
	)
	if err != nil {
		logger.Error("Failed to run migrations", zap.Error(err))
		return err
	}

	if err := createCustomIndexes(db); err != nil {
		logger.Error("Failed to create custom indexes", zap.Error(err))
		return err
	}

	logger.Info("Database migrations completed successfully")
	return nil
}

// createCustomIndexes creates custom indexes that GORM doesn't handle automatically
func createCustomIndexes(db *gorm.DB) error {
	// One audit-ledger grant per checkout session.
	if err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_coin_transactions_reference ON coin_transactions (reference_id) WHERE reference_id IS NOT NULL`).Error; err != nil {
		return err
	}

	// Reconciliation sweeps scan uncredited rows per user.
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_payment_records_uncredited ON payment_records (user_id, created_at) WHERE credited = false`).Error; err != nil {
		return err
	}

	return nil
}

// createExtensions creates required PostgreSQL extensions
func createExtensions(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		return err
	}
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "pgcrypto"`).Error; err != nil {
		return err
	}
	return nil
}
