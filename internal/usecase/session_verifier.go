package usecase

import (
	"context"
	"regexp"
	"strconv"

	"github.com/google/uuid"
	domainErrors "github.com/pixelpaws/settlement-service/internal/domain/errors"
	"github.com/pixelpaws/settlement-service/internal/domain/provider"
	"go.uber.org/zap"
)

// Checkout session ids look like cs_..., cs_test_... or cs_live_....
var sessionIDPattern = regexp.MustCompile(`^cs_(test_|live_)?[A-Za-z0-9]+$`)

const (
	minSessionIDLength = 8
	maxSessionIDLength = 200
)

// VerifiedPayment is a session the verifier accepted for settlement.
type VerifiedPayment struct {
	SessionID     string
	UserID        uuid.UUID
	CreditAmount  int64
	ChargedAmount int64
}

// SessionVerifier applies the settlement policy to provider truth. It is
// read-only: the only side effect of a Verify call is the provider lookup.
type SessionVerifier struct {
	provider        provider.CheckoutProvider
	maxCreditAmount int64
	logger          *zap.Logger
}

// NewSessionVerifier creates a new session verifier instance
func NewSessionVerifier(p provider.CheckoutProvider, maxCreditAmount int64, logger *zap.Logger) *SessionVerifier {
	return &SessionVerifier{
		provider:        p,
		maxCreditAmount: maxCreditAmount,
		logger:          logger,
	}
}

// Verify checks a session against the settlement policy, short-circuiting on
// the first failure. A session must be both paid and complete; partial
// success is always a rejection.
func (v *SessionVerifier) Verify(ctx context.Context, sessionID string, requestingUserID uuid.UUID) (*VerifiedPayment, error) {
	if len(sessionID) < minSessionIDLength || len(sessionID) > maxSessionIDLength ||
		!sessionIDPattern.MatchString(sessionID) {
		return nil, domainErrors.NewRejection(domainErrors.KindMalformedInput, "invalid session id")
	}

	truth, err := v.provider.FetchSession(ctx, sessionID)
	if err != nil {
		v.logger.Error("Provider session lookup failed",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return nil, domainErrors.WrapRejection(domainErrors.KindProviderUnavailable,
			"payment provider unavailable", err)
	}

	if !truth.Paid {
		return nil, domainErrors.NewRejection(domainErrors.KindPaymentNotCaptured, "payment not captured")
	}
	if !truth.Complete {
		return nil, domainErrors.NewRejection(domainErrors.KindSessionIncomplete, "checkout session not complete")
	}

	ownerID, err := uuid.Parse(truth.Metadata[provider.MetadataUserIDKey])
	if err != nil {
		return nil, domainErrors.NewRejection(domainErrors.KindInvalidMetadata, "session metadata invalid")
	}

	creditAmount, err := strconv.ParseInt(truth.Metadata[provider.MetadataCoinAmountKey], 10, 64)
	if err != nil {
		return nil, domainErrors.NewRejection(domainErrors.KindInvalidMetadata, "session metadata invalid")
	}

	if creditAmount <= 0 || creditAmount > v.maxCreditAmount {
		return nil, domainErrors.NewRejection(domainErrors.KindAmountOutOfBounds, "credit amount out of bounds")
	}

	if requestingUserID != uuid.Nil && ownerID != requestingUserID {
		// Someone is trying to settle a session they do not own. Logged apart
		// from ordinary validation failures as a possible fraud signal.
		v.logger.Warn("Ownership mismatch on checkout session",
			zap.String("session_id", sessionID),
			zap.String("session_owner", ownerID.String()),
			zap.String("requesting_user", requestingUserID.String()),
			zap.Bool("fraud_signal", true))
		return nil, domainErrors.NewRejection(domainErrors.KindOwnershipMismatch, "session does not belong to caller")
	}

	return &VerifiedPayment{
		SessionID:     truth.SessionID,
		UserID:        ownerID,
		CreditAmount:  creditAmount,
		ChargedAmount: truth.AmountTotal,
	}, nil
}
