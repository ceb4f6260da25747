package usecase_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	domainErrors "github.com/pixelpaws/settlement-service/internal/domain/errors"
	"github.com/pixelpaws/settlement-service/internal/domain/provider"
	"github.com/pixelpaws/settlement-service/internal/usecase"
)

// MockCheckoutProvider is a mock implementation of CheckoutProvider
type MockCheckoutProvider struct {
	mock.Mock
}

func (m *MockCheckoutProvider) FetchSession(ctx context.Context, sessionID string) (*provider.SessionTruth, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.SessionTruth), args.Error(1)
}

func (m *MockCheckoutProvider) ListSessionsByEmail(ctx context.Context, email string, limit int) ([]*provider.SessionTruth, error) {
	args := m.Called(ctx, email, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*provider.SessionTruth), args.Error(1)
}

func (m *MockCheckoutProvider) GetProviderName() string {
	return "mock"
}

func paidSession(sessionID string, owner uuid.UUID, coins string) *provider.SessionTruth {
	return &provider.SessionTruth{
		SessionID:   sessionID,
		Paid:        true,
		Complete:    true,
		AmountTotal: 499,
		Currency:    "usd",
		Metadata: map[string]string{
			provider.MetadataUserIDKey:     owner.String(),
			provider.MetadataCoinAmountKey: coins,
		},
	}
}

func TestSessionVerifier_Verify(t *testing.T) {
	logger := zap.NewNop()
	ctx := context.Background()
	owner := uuid.New()
	const sessionID = "cs_test_a1B2c3D4e5F6g7H8"

	t.Run("accepts paid and complete session", func(t *testing.T) {
		mockProvider := new(MockCheckoutProvider)
		mockProvider.On("FetchSession", ctx, sessionID).
			Return(paidSession(sessionID, owner, "500"), nil)

		v := usecase.NewSessionVerifier(mockProvider, 100000, logger)
		verified, err := v.Verify(ctx, sessionID, owner)

		assert.NoError(t, err)
		assert.Equal(t, sessionID, verified.SessionID)
		assert.Equal(t, owner, verified.UserID)
		assert.Equal(t, int64(500), verified.CreditAmount)
		assert.Equal(t, int64(499), verified.ChargedAmount)
		mockProvider.AssertExpectations(t)
	})

	t.Run("rejects malformed session ids before any provider call", func(t *testing.T) {
		mockProvider := new(MockCheckoutProvider)
		v := usecase.NewSessionVerifier(mockProvider, 100000, logger)

		for _, id := range []string{"", "short", "pi_123456789", "cs_has spaces here", "cs_!!invalid!!chars"} {
			_, err := v.Verify(ctx, id, owner)
			assert.True(t, domainErrors.IsKind(err, domainErrors.KindMalformedInput), "id %q", id)
		}

		mockProvider.AssertNotCalled(t, "FetchSession")
	})

	t.Run("surfaces provider failure after retries as unavailable", func(t *testing.T) {
		mockProvider := new(MockCheckoutProvider)
		mockProvider.On("FetchSession", ctx, sessionID).
			Return(nil, &provider.ProviderError{Code: "network_error", Message: "timeout", Transient: true})

		v := usecase.NewSessionVerifier(mockProvider, 100000, logger)
		_, err := v.Verify(ctx, sessionID, owner)

		assert.True(t, domainErrors.IsKind(err, domainErrors.KindProviderUnavailable))
	})

	t.Run("rejects captured but not closed", func(t *testing.T) {
		truth := paidSession(sessionID, owner, "500")
		truth.Complete = false

		mockProvider := new(MockCheckoutProvider)
		mockProvider.On("FetchSession", ctx, sessionID).Return(truth, nil)

		v := usecase.NewSessionVerifier(mockProvider, 100000, logger)
		_, err := v.Verify(ctx, sessionID, owner)

		assert.True(t, domainErrors.IsKind(err, domainErrors.KindSessionIncomplete))
	})

	t.Run("rejects closed but not captured", func(t *testing.T) {
		truth := paidSession(sessionID, owner, "500")
		truth.Paid = false

		mockProvider := new(MockCheckoutProvider)
		mockProvider.On("FetchSession", ctx, sessionID).Return(truth, nil)

		v := usecase.NewSessionVerifier(mockProvider, 100000, logger)
		_, err := v.Verify(ctx, sessionID, owner)

		assert.True(t, domainErrors.IsKind(err, domainErrors.KindPaymentNotCaptured))
	})

	t.Run("rejects missing or garbled metadata", func(t *testing.T) {
		tests := []struct {
			name     string
			metadata map[string]string
		}{
			{"no metadata", map[string]string{}},
			{"missing user id", map[string]string{provider.MetadataCoinAmountKey: "500"}},
			{"bad user id", map[string]string{provider.MetadataUserIDKey: "not-a-uuid", provider.MetadataCoinAmountKey: "500"}},
			{"missing coin amount", map[string]string{provider.MetadataUserIDKey: owner.String()}},
			{"non-integer coin amount", map[string]string{provider.MetadataUserIDKey: owner.String(), provider.MetadataCoinAmountKey: "lots"}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				truth := paidSession(sessionID, owner, "500")
				truth.Metadata = tt.metadata

				mockProvider := new(MockCheckoutProvider)
				mockProvider.On("FetchSession", ctx, sessionID).Return(truth, nil)

				v := usecase.NewSessionVerifier(mockProvider, 100000, logger)
				_, err := v.Verify(ctx, sessionID, owner)

				assert.True(t, domainErrors.IsKind(err, domainErrors.KindInvalidMetadata))
			})
		}
	})

	t.Run("rejects zero, negative and oversized amounts", func(t *testing.T) {
		for _, coins := range []string{"0", "-500", "100001"} {
			truth := paidSession(sessionID, owner, coins)

			mockProvider := new(MockCheckoutProvider)
			mockProvider.On("FetchSession", ctx, sessionID).Return(truth, nil)

			v := usecase.NewSessionVerifier(mockProvider, 100000, logger)
			_, err := v.Verify(ctx, sessionID, owner)

			assert.True(t, domainErrors.IsKind(err, domainErrors.KindAmountOutOfBounds), "coins %s", coins)
		}
	})

	t.Run("rejects session owned by someone else", func(t *testing.T) {
		mockProvider := new(MockCheckoutProvider)
		mockProvider.On("FetchSession", ctx, sessionID).
			Return(paidSession(sessionID, owner, "500"), nil)

		v := usecase.NewSessionVerifier(mockProvider, 100000, logger)
		_, err := v.Verify(ctx, sessionID, uuid.New())

		assert.True(t, domainErrors.IsKind(err, domainErrors.KindOwnershipMismatch))
	})
}
