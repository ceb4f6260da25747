package usecase_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	domainErrors "github.com/pixelpaws/settlement-service/internal/domain/errors"
	"github.com/pixelpaws/settlement-service/internal/domain/model"
	domainRepo "github.com/pixelpaws/settlement-service/internal/domain/repository"
	"github.com/pixelpaws/settlement-service/internal/usecase"
)

// memoryLedger is an in-memory PaymentLedgerRepository with the same
// concurrency semantics as the database-backed one.
type memoryLedger struct {
	mu      sync.Mutex
	records map[string]*model.PaymentRecord
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{records: make(map[string]*model.PaymentRecord)}
}

func (l *memoryLedger) UpsertPending(_ context.Context, sessionID string, userID uuid.UUID, amountMinorUnits, creditAmount int64) (*model.PaymentRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.records[sessionID]; ok {
		copied := *existing
		return &copied, nil
	}
	record := &model.PaymentRecord{
		SessionID:        sessionID,
		UserID:           userID,
		AmountMinorUnits: amountMinorUnits,
		CreditAmount:     creditAmount,
		Status:           model.PaymentStatusPending,
		CreatedAt:        time.Now(),
	}
	l.records[sessionID] = record
	copied := *record
	return &copied, nil
}

func (l *memoryLedger) MarkVerified(_ context.Context, sessionID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if record, ok := l.records[sessionID]; ok {
		record.Status = model.PaymentStatusCompleted
		record.ProviderVerified = true
	}
	return nil
}

func (l *memoryLedger) GetBySessionID(_ context.Context, sessionID string) (*model.PaymentRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	record, ok := l.records[sessionID]
	if !ok {
		return nil, nil
	}
	copied := *record
	return &copied, nil
}

func (l *memoryLedger) ListUncredited(_ context.Context, userID uuid.UUID) ([]*model.PaymentRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []*model.PaymentRecord
	for _, record := range l.records {
		if record.UserID == userID && !record.Credited {
			copied := *record
			out = append(out, &copied)
		}
	}
	return out, nil
}

// memoryCreditor mirrors the atomic check-and-set of the database creditor:
// the mutex plays the role of the row lock.
type memoryCreditor struct {
	mu       sync.Mutex
	ledger   *memoryLedger
	balances map[uuid.UUID]decimal.Decimal
	audit    []model.CoinTransaction
}

func newMemoryCreditor(ledger *memoryLedger) *memoryCreditor {
	return &memoryCreditor{
		ledger:   ledger,
		balances: make(map[uuid.UUID]decimal.Decimal),
	}
}

func (c *memoryCreditor) CreditIfNotCredited(_ context.Context, sessionID string, userID uuid.UUID, creditAmount int64) (*domainRepo.CreditResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ledger.mu.Lock()
	defer c.ledger.mu.Unlock()

	record := c.ledger.records[sessionID]
	if record.Credited {
		return &domainRepo.CreditResult{Credited: false, NewBalance: c.balances[userID]}, nil
	}

	newBalance := c.balances[userID].Add(decimal.NewFromInt(creditAmount))
	c.balances[userID] = newBalance
	record.Credited = true
	ref := sessionID
	c.audit = append(c.audit, model.CoinTransaction{
		UserID:          userID,
		TransactionType: model.TransactionTypeCoinPurchase,
		Amount:          decimal.NewFromInt(creditAmount),
		BalanceAfter:    newBalance,
		ReferenceID:     &ref,
	})
	return &domainRepo.CreditResult{Credited: true, NewBalance: newBalance}, nil
}

func (c *memoryCreditor) GetBalance(_ context.Context, userID uuid.UUID) (*model.UserCoinBalance, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return &model.UserCoinBalance{UserID: userID, CurrentBalance: c.balances[userID]}, nil
}

func newSettlementFixture(t *testing.T, owner uuid.UUID, truths map[string]string) (*usecase.SettlementService, *memoryLedger, *memoryCreditor, *MockCheckoutProvider) {
	t.Helper()
	logger := zap.NewNop()

	mockProvider := new(MockCheckoutProvider)
	for sessionID, coins := range truths {
		mockProvider.On("FetchSession", mock.Anything, sessionID).
			Return(paidSession(sessionID, owner, coins), nil)
	}

	ledger := newMemoryLedger()
	creditor := newMemoryCreditor(ledger)
	verifier := usecase.NewSessionVerifier(mockProvider, 100000, logger)
	service := usecase.NewSettlementService(verifier, ledger, creditor, logger)
	return service, ledger, creditor, mockProvider
}

func TestSettlementService_ProcessSession(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	const sessionID = "cs_test_settlement001"

	t.Run("credits once and reports balance", func(t *testing.T) {
		service, ledger, creditor, _ := newSettlementFixture(t, owner, map[string]string{sessionID: "500"})

		result, err := service.ProcessSession(ctx, sessionID, owner)

		assert.NoError(t, err)
		assert.False(t, result.AlreadyProcessed)
		assert.Equal(t, int64(500), result.CreditAmount)
		assert.Equal(t, int64(500), result.NewBalance)

		record, _ := ledger.GetBySessionID(ctx, sessionID)
		assert.True(t, record.Credited)
		assert.True(t, record.ProviderVerified)
		assert.Equal(t, model.PaymentStatusCompleted, record.Status)
		assert.Len(t, creditor.audit, 1)
		assert.Equal(t, sessionID, *creditor.audit[0].ReferenceID)
	})

	t.Run("second call is idempotent", func(t *testing.T) {
		service, _, creditor, _ := newSettlementFixture(t, owner, map[string]string{sessionID: "500"})

		first, err := service.ProcessSession(ctx, sessionID, owner)
		assert.NoError(t, err)
		assert.False(t, first.AlreadyProcessed)

		second, err := service.ProcessSession(ctx, sessionID, owner)
		assert.NoError(t, err)
		assert.True(t, second.AlreadyProcessed)
		assert.Equal(t, first.NewBalance, second.NewBalance)

		// Exactly one audit entry despite two successful calls.
		assert.Len(t, creditor.audit, 1)
	})

	t.Run("concurrent callers yield exactly one credit", func(t *testing.T) {
		service, _, creditor, _ := newSettlementFixture(t, owner, map[string]string{sessionID: "500"})

		const callers = 16
		var wg sync.WaitGroup
		credited := make(chan bool, callers)

		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				result, err := service.ProcessSession(ctx, sessionID, owner)
				if assert.NoError(t, err) {
					credited <- !result.AlreadyProcessed
				}
			}()
		}
		wg.Wait()
		close(credited)

		wins := 0
		for won := range credited {
			if won {
				wins++
			}
		}
		assert.Equal(t, 1, wins)

		balance, _ := creditor.GetBalance(ctx, owner)
		assert.True(t, balance.CurrentBalance.Equal(decimal.NewFromInt(500)))
		assert.Len(t, creditor.audit, 1)
	})

	t.Run("rejection never touches the ledger", func(t *testing.T) {
		logger := zap.NewNop()
		mockProvider := new(MockCheckoutProvider)
		truth := paidSession(sessionID, owner, "500")
		truth.Complete = false
		mockProvider.On("FetchSession", mock.Anything, sessionID).Return(truth, nil)

		ledger := newMemoryLedger()
		creditor := newMemoryCreditor(ledger)
		verifier := usecase.NewSessionVerifier(mockProvider, 100000, logger)
		service := usecase.NewSettlementService(verifier, ledger, creditor, logger)

		_, err := service.ProcessSession(ctx, sessionID, owner)

		assert.True(t, domainErrors.IsKind(err, domainErrors.KindSessionIncomplete))
		record, _ := ledger.GetBySessionID(ctx, sessionID)
		assert.Nil(t, record)
		assert.Empty(t, creditor.audit)
	})

	t.Run("ownership mismatch never reaches the creditor", func(t *testing.T) {
		service, ledger, creditor, _ := newSettlementFixture(t, owner, map[string]string{sessionID: "500"})

		_, err := service.ProcessSession(ctx, sessionID, uuid.New())

		assert.True(t, domainErrors.IsKind(err, domainErrors.KindOwnershipMismatch))
		record, _ := ledger.GetBySessionID(ctx, sessionID)
		assert.Nil(t, record)
		assert.Empty(t, creditor.audit)
	})
}
