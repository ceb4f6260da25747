package usecase

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	domainErrors "github.com/pixelpaws/settlement-service/internal/domain/errors"
	"github.com/pixelpaws/settlement-service/internal/domain/provider"
	domainRepo "github.com/pixelpaws/settlement-service/internal/domain/repository"
	"go.uber.org/zap"
)

// PendingSession is a provider-confirmed session whose local credit is still
// missing.
type PendingSession struct {
	SessionID        string `json:"sessionId"`
	CreditAmount     int64  `json:"creditAmount"`
	AmountMinorUnits int64  `json:"amountMinorUnits"`
}

// SweepFailure records one session the sweep could not settle.
type SweepFailure struct {
	SessionID string `json:"sessionId"`
	Reason    string `json:"reason"`
}

// SweepReport summarizes a reconciliation sweep.
type SweepReport struct {
	ProcessedCount int            `json:"processedCount"`
	TotalCredits   int64          `json:"totalCredits"`
	Failures       []SweepFailure `json:"failures,omitempty"`
}

// ReconciliationScanner resolves divergence between provider truth and the
// local ledger, in both directions. Discovered sessions flow through the same
// settlement pipeline as direct verification requests.
type ReconciliationScanner struct {
	provider   provider.CheckoutProvider
	ledger     domainRepo.PaymentLedgerRepository
	settlement *SettlementService
	listLimit  int
	logger     *zap.Logger
}

// NewReconciliationScanner creates a new reconciliation scanner instance
func NewReconciliationScanner(
	p provider.CheckoutProvider,
	ledger domainRepo.PaymentLedgerRepository,
	settlement *SettlementService,
	listLimit int,
	logger *zap.Logger,
) *ReconciliationScanner {
	return &ReconciliationScanner{
		provider:   p,
		ledger:     ledger,
		settlement: settlement,
		listLimit:  listLimit,
		logger:     logger,
	}
}

// FindCompletedSessions is the provider-to-local pass: it lists the caller's
// recent provider sessions and keeps the paid-and-complete ones that have no
// credited local record. These are candidates, not credits; the caller still
// pushes each through ProcessSession.
func (s *ReconciliationScanner) FindCompletedSessions(ctx context.Context, userID uuid.UUID, email string) ([]PendingSession, error) {
	if email == "" {
		return nil, domainErrors.NewRejection(domainErrors.KindMalformedInput, "no billing email for caller")
	}

	truths, err := s.provider.ListSessionsByEmail(ctx, email, s.listLimit)
	if err != nil {
		s.logger.Error("Provider session listing failed",
			zap.String("email", email),
			zap.Error(err))
		return nil, domainErrors.WrapRejection(domainErrors.KindProviderUnavailable,
			"payment provider unavailable", err)
	}

	seen := make(map[string]struct{}, len(truths))
	candidates := make([]PendingSession, 0)
	for _, truth := range truths {
		if !truth.Paid || !truth.Complete {
			continue
		}
		if _, dup := seen[truth.SessionID]; dup {
			continue
		}
		seen[truth.SessionID] = struct{}{}

		// Sessions under the same billing email can belong to other accounts.
		ownerID, err := uuid.Parse(truth.Metadata[provider.MetadataUserIDKey])
		if err != nil || ownerID != userID {
			continue
		}

		record, err := s.ledger.GetBySessionID(ctx, truth.SessionID)
		if err != nil {
			s.logger.Error("Ledger lookup failed during reconciliation",
				zap.String("session_id", truth.SessionID),
				zap.Error(err))
			continue
		}
		if record != nil && record.Credited {
			continue
		}

		creditAmount, err := strconv.ParseInt(truth.Metadata[provider.MetadataCoinAmountKey], 10, 64)
		if err != nil {
			continue
		}

		candidates = append(candidates, PendingSession{
			SessionID:        truth.SessionID,
			CreditAmount:     creditAmount,
			AmountMinorUnits: truth.AmountTotal,
		})
	}

	return candidates, nil
}

// ProcessPending is the local-to-provider pass: every uncredited ledger row
// for the user is re-verified against the provider and credited if now
// confirmed. One stuck session never aborts the rest of the sweep; failures
// are accumulated into the report.
func (s *ReconciliationScanner) ProcessPending(ctx context.Context, userID uuid.UUID) (*SweepReport, error) {
	records, err := s.ledger.ListUncredited(ctx, userID)
	if err != nil {
		return nil, domainErrors.WrapRejection(domainErrors.KindStorageFailure,
			"failed to list pending payments", err)
	}

	report := &SweepReport{}
	seen := make(map[string]struct{}, len(records))
	for _, record := range records {
		// AtomicCreditor only guards a single session id; de-duplicate here so
		// one sweep never feeds the same id through the pipeline twice.
		if _, dup := seen[record.SessionID]; dup {
			continue
		}
		seen[record.SessionID] = struct{}{}

		result, err := s.settlement.ProcessSession(ctx, record.SessionID, userID)
		if err != nil {
			reason := "internal error"
			if rej, ok := domainErrors.RejectionFrom(err); ok {
				reason = string(rej.Kind)
			}
			s.logger.Warn("Reconciliation skipped session",
				zap.String("session_id", record.SessionID),
				zap.String("reason", reason),
				zap.Error(err))
			report.Failures = append(report.Failures, SweepFailure{
				SessionID: record.SessionID,
				Reason:    reason,
			})
			continue
		}

		if !result.AlreadyProcessed {
			report.ProcessedCount++
			report.TotalCredits += result.CreditAmount
		}
	}

	s.logger.Info("Reconciliation sweep finished",
		zap.String("user_id", userID.String()),
		zap.Int("processed_count", report.ProcessedCount),
		zap.Int64("total_credits", report.TotalCredits),
		zap.Int("failures", len(report.Failures)))

	return report, nil
}
