package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/pixelpaws/settlement-service/internal/domain/model"
)

// PaymentLedgerRepository persists one row per external checkout session.
type PaymentLedgerRepository interface {
	// UpsertPending creates the row for a session if absent, or returns the
	// existing row unchanged. Safe to call concurrently for the same session;
	// losing the insert race is not an error.
	UpsertPending(ctx context.Context, sessionID string, userID uuid.UUID, amountMinorUnits, creditAmount int64) (*model.PaymentRecord, error)

	// MarkVerified records that the provider independently confirmed the
	// session as paid and complete. Idempotent.
	MarkVerified(ctx context.Context, sessionID string) error

	// GetBySessionID returns the row for a session, or nil if none exists.
	GetBySessionID(ctx context.Context, sessionID string) (*model.PaymentRecord, error)

	// ListUncredited returns a user's rows whose credited flag is still false,
	// oldest first.
	ListUncredited(ctx context.Context, userID uuid.UUID) ([]*model.PaymentRecord, error)
}
