package usecase

import (
	"context"

	"github.com/google/uuid"
	domainErrors "github.com/pixelpaws/settlement-service/internal/domain/errors"
	domainRepo "github.com/pixelpaws/settlement-service/internal/domain/repository"
	"go.uber.org/zap"
)

// SettlementResult reports the outcome of settling one session. The caller
// cannot tell whether the credit happened on this call or an earlier one;
// both surface as success with the same resulting balance, so retries are
// always safe.
type SettlementResult struct {
	AlreadyProcessed bool
	CreditAmount     int64
	NewBalance       int64
}

// SettlementService runs the verify -> ledger -> credit pipeline. Both
// external entry points and the reconciliation scanner go through here, so
// the settlement policy lives in exactly one place.
type SettlementService struct {
	verifier *SessionVerifier
	ledger   domainRepo.PaymentLedgerRepository
	creditor domainRepo.CoinCreditRepository
	logger   *zap.Logger
}

// NewSettlementService creates a new settlement service instance
func NewSettlementService(
	verifier *SessionVerifier,
	ledger domainRepo.PaymentLedgerRepository,
	creditor domainRepo.CoinCreditRepository,
	logger *zap.Logger,
) *SettlementService {
	return &SettlementService{
		verifier: verifier,
		ledger:   ledger,
		creditor: creditor,
		logger:   logger,
	}
}

// ProcessSession verifies a session and credits its owner exactly once.
func (s *SettlementService) ProcessSession(ctx context.Context, sessionID string, userID uuid.UUID) (*SettlementResult, error) {
	verified, err := s.verifier.Verify(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}

	if _, err := s.ledger.UpsertPending(ctx, verified.SessionID, verified.UserID, verified.ChargedAmount, verified.CreditAmount); err != nil {
		return nil, domainErrors.WrapRejection(domainErrors.KindStorageFailure,
			"failed to record payment", err)
	}

	if err := s.ledger.MarkVerified(ctx, verified.SessionID); err != nil {
		return nil, domainErrors.WrapRejection(domainErrors.KindStorageFailure,
			"failed to record payment", err)
	}

	result, err := s.creditor.CreditIfNotCredited(ctx, verified.SessionID, verified.UserID, verified.CreditAmount)
	if err != nil {
		return nil, domainErrors.WrapRejection(domainErrors.KindStorageFailure,
			"failed to credit coins", err)
	}

	if result.Credited {
		s.logger.Info("Session settled",
			zap.String("session_id", verified.SessionID),
			zap.String("user_id", verified.UserID.String()),
			zap.Int64("credit_amount", verified.CreditAmount))
	}

	return &SettlementResult{
		AlreadyProcessed: !result.Credited,
		CreditAmount:     verified.CreditAmount,
		NewBalance:       result.NewBalance.IntPart(),
	}, nil
}

// Balance returns the caller's current coin balance.
func (s *SettlementService) Balance(ctx context.Context, userID uuid.UUID) (int64, error) {
	balance, err := s.creditor.GetBalance(ctx, userID)
	if err != nil {
		return 0, domainErrors.WrapRejection(domainErrors.KindStorageFailure,
			"failed to read balance", err)
	}
	return balance.CurrentBalance.IntPart(), nil
}
