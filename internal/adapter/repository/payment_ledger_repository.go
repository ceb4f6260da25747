package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/pixelpaws/settlement-service/internal/domain/model"
	domainRepo "github.com/pixelpaws/settlement-service/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// paymentLedgerRepository implements the PaymentLedgerRepository interface
type paymentLedgerRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewPaymentLedgerRepository creates a new payment ledger repository instance
func NewPaymentLedgerRepository(db *gorm.DB, logger *zap.Logger) domainRepo.PaymentLedgerRepository {
	return &paymentLedgerRepository{
		db:     db,
		logger: logger,
	}
}

// UpsertPending inserts the row for a session or leaves an existing one
// untouched. The unique index on session_id arbitrates concurrent first
// observers; whoever loses the insert simply reads the winner's row back.
func (r *paymentLedgerRepository) UpsertPending(ctx context.Context, sessionID string, userID uuid.UUID, amountMinorUnits, creditAmount int64) (*model.PaymentRecord, error) {
	record := &model.PaymentRecord{
		SessionID:        sessionID,
		UserID:           userID,
		AmountMinorUnits: amountMinorUnits,
		CreditAmount:     creditAmount,
		Status:           model.PaymentStatusPending,
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}},
			DoNothing: true,
		}).
		Create(record).Error
	if err != nil {
		r.logger.Error("Failed to upsert payment record",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to upsert payment record: %w", err)
	}

	// Re-read regardless of who inserted; the stored row is the truth.
	var stored model.PaymentRecord
	err = r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&stored).Error
	if err != nil {
		r.logger.Error("Failed to fetch payment record after upsert",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to fetch payment record: %w", err)
	}

	return &stored, nil
}

// MarkVerified records provider confirmation. Re-marking an already verified
// session is a no-op.
func (r *paymentLedgerRepository) MarkVerified(ctx context.Context, sessionID string) error {
	err := r.db.WithContext(ctx).
		Model(&model.PaymentRecord{}).
		Where("session_id = ?", sessionID).
		Updates(map[string]interface{}{
			"status":            model.PaymentStatusCompleted,
			"provider_verified": true,
		}).Error
	if err != nil {
		r.logger.Error("Failed to mark payment record verified",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return fmt.Errorf("failed to mark payment record verified: %w", err)
	}

	return nil
}

// GetBySessionID retrieves the row for a session, or nil when absent
func (r *paymentLedgerRepository) GetBySessionID(ctx context.Context, sessionID string) (*model.PaymentRecord, error) {
	var record model.PaymentRecord

	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get payment record",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get payment record: %w", err)
	}

	return &record, nil
}

// ListUncredited returns a user's not-yet-credited rows, oldest first
func (r *paymentLedgerRepository) ListUncredited(ctx context.Context, userID uuid.UUID) ([]*model.PaymentRecord, error) {
	var records []*model.PaymentRecord

	err := r.db.WithContext(ctx).
		Where("user_id = ? AND credited = ?", userID, false).
		Order("created_at ASC").
		Find(&records).Error
	if err != nil {
		r.logger.Error("Failed to list uncredited payment records",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list uncredited payment records: %w", err)
	}

	return records, nil
}
