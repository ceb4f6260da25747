package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pixelpaws/settlement-service/internal/domain/model"
	domainRepo "github.com/pixelpaws/settlement-service/internal/domain/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// coinCreditRepository implements the CoinCreditRepository interface
type coinCreditRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewCoinCreditRepository creates a new coin credit repository instance
func NewCoinCreditRepository(db *gorm.DB, logger *zap.Logger) domainRepo.CoinCreditRepository {
	return &coinCreditRepository{
		db:     db,
		logger: logger,
	}
}

// CreditIfNotCredited settles one session in a single database transaction:
// the payment record is locked FOR UPDATE, so concurrent callers for the same
// session serialize here and exactly one observes credited=false. The balance
// increase, the audit-ledger row and the credited flip commit together or not
// at all.
func (r *coinCreditRepository) CreditIfNotCredited(ctx context.Context, sessionID string, userID uuid.UUID, creditAmount int64) (*domainRepo.CreditResult, error) {
	var result domainRepo.CreditResult
	amount := decimal.NewFromInt(creditAmount)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record model.PaymentRecord
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("session_id = ?", sessionID).
			First(&record).Error
		if err != nil {
			return fmt.Errorf("failed to lock payment record: %w", err)
		}

		if record.Credited {
			// Already settled by an earlier caller; report the current balance.
			var balance model.UserCoinBalance
			err := tx.Where("user_id = ?", userID).First(&balance).Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					result = domainRepo.CreditResult{Credited: false, NewBalance: decimal.Zero}
					return nil
				}
				return fmt.Errorf("failed to read balance: %w", err)
			}
			result = domainRepo.CreditResult{Credited: false, NewBalance: balance.CurrentBalance}
			return nil
		}

		// Lock the user's balance row for update (or create if doesn't exist)
		var balance model.UserCoinBalance
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).
			FirstOrCreate(&balance, model.UserCoinBalance{
				UserID:         userID,
				CurrentBalance: decimal.Zero,
			}).Error
		if err != nil {
			return fmt.Errorf("failed to lock balance: %w", err)
		}

		newBalance := balance.CurrentBalance.Add(amount)

		// Audit-ledger entry referencing the session
		ref := sessionID
		transaction := &model.CoinTransaction{
			UserID:          userID,
			TransactionType: model.TransactionTypeCoinPurchase,
			Amount:          amount,
			BalanceAfter:    newBalance,
			Description:     fmt.Sprintf("Coin purchase via checkout session %s", sessionID),
			ReferenceID:     &ref,
		}
		if err := tx.Create(transaction).Error; err != nil {
			return fmt.Errorf("failed to create coin transaction: %w", err)
		}

		// One-way flip, inside the same transaction as the balance mutation.
		now := time.Now()
		err = tx.Model(&record).Updates(map[string]interface{}{
			"credited":          true,
			"status":            model.PaymentStatusCompleted,
			"provider_verified": true,
			"completed_at":      now,
		}).Error
		if err != nil {
			return fmt.Errorf("failed to flip credited flag: %w", err)
		}

		balance.CurrentBalance = newBalance
		balance.LastTransactionAt = transaction.CreatedAt
		if err := tx.Save(&balance).Error; err != nil {
			return fmt.Errorf("failed to update balance: %w", err)
		}

		result = domainRepo.CreditResult{Credited: true, NewBalance: newBalance}
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to credit coins",
			zap.String("session_id", sessionID),
			zap.String("user_id", userID.String()),
			zap.Int64("credit_amount", creditAmount),
			zap.Error(err))
		return nil, fmt.Errorf("failed to credit coins: %w", err)
	}

	if result.Credited {
		r.logger.Info("Coins credited",
			zap.String("session_id", sessionID),
			zap.String("user_id", userID.String()),
			zap.Int64("credit_amount", creditAmount),
			zap.String("new_balance", result.NewBalance.String()))
	} else {
		r.logger.Info("Session already credited, balance unchanged",
			zap.String("session_id", sessionID),
			zap.String("user_id", userID.String()))
	}

	return &result, nil
}

// GetBalance retrieves the current coin balance for a user
func (r *coinCreditRepository) GetBalance(ctx context.Context, userID uuid.UUID) (*model.UserCoinBalance, error) {
	var balance model.UserCoinBalance

	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&balance).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Return zero balance if not found
			return &model.UserCoinBalance{
				UserID:         userID,
				CurrentBalance: decimal.Zero,
			}, nil
		}
		r.logger.Error("Failed to get coin balance",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get coin balance: %w", err)
	}

	return &balance, nil
}
