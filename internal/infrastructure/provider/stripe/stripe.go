package stripe

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/pixelpaws/settlement-service/internal/domain/provider"
	"github.com/pixelpaws/settlement-service/internal/retry"
	"github.com/stripe/stripe-go/v79"
	checkoutsession "github.com/stripe/stripe-go/v79/checkout/session"
	"go.uber.org/zap"
)

const (
	maxAttempts  = 3
	retryBackoff = 2 * time.Second
)

// CheckoutClient implements the CheckoutProvider interface over Stripe
// checkout sessions. It is strictly read-only against Stripe.
type CheckoutClient struct {
	logger *zap.Logger
	policy retry.Policy
}

// NewCheckoutClient creates a new Stripe checkout client.
func NewCheckoutClient(secretKey string, logger *zap.Logger) *CheckoutClient {
	stripe.Key = secretKey
	return &CheckoutClient{
		logger: logger,
		policy: retry.Policy{
			MaxAttempts: maxAttempts,
			Backoff:     retryBackoff,
			Retryable:   isTransient,
		},
	}
}

// GetProviderName returns the provider name
func (c *CheckoutClient) GetProviderName() string {
	return "stripe"
}

// FetchSession retrieves the current truth for one checkout session,
// retrying transient failures.
func (c *CheckoutClient) FetchSession(ctx context.Context, sessionID string) (*provider.SessionTruth, error) {
	var truth *provider.SessionTruth

	err := c.policy.Do(ctx, func() error {
		params := &stripe.CheckoutSessionParams{}
		params.Context = ctx

		s, err := checkoutsession.Get(sessionID, params)
		if err != nil {
			return classify(err)
		}

		truth = toTruth(s)
		return nil
	})
	if err != nil {
		c.logger.Error("Failed to fetch checkout session",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return nil, err
	}

	return truth, nil
}

// ListSessionsByEmail returns the most recent checkout sessions created for a
// billing email, newest first.
func (c *CheckoutClient) ListSessionsByEmail(ctx context.Context, email string, limit int) ([]*provider.SessionTruth, error) {
	var truths []*provider.SessionTruth

	err := c.policy.Do(ctx, func() error {
		params := &stripe.CheckoutSessionListParams{
			CustomerDetails: &stripe.CheckoutSessionListCustomerDetailsParams{
				Email: stripe.String(email),
			},
		}
		params.Context = ctx
		params.Limit = stripe.Int64(int64(limit))

		truths = truths[:0]
		iter := checkoutsession.List(params)
		for iter.Next() {
			truths = append(truths, toTruth(iter.CheckoutSession()))
		}
		if err := iter.Err(); err != nil {
			return classify(err)
		}
		return nil
	})
	if err != nil {
		c.logger.Error("Failed to list checkout sessions",
			zap.String("email", email),
			zap.Error(err))
		return nil, err
	}

	return truths, nil
}

func toTruth(s *stripe.CheckoutSession) *provider.SessionTruth {
	email := s.CustomerEmail
	if s.CustomerDetails != nil && s.CustomerDetails.Email != "" {
		email = s.CustomerDetails.Email
	}

	return &provider.SessionTruth{
		SessionID:     s.ID,
		Paid:          s.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		Complete:      s.Status == stripe.CheckoutSessionStatusComplete,
		AmountTotal:   s.AmountTotal,
		Currency:      string(s.Currency),
		CustomerEmail: email,
		Metadata:      s.Metadata,
	}
}

// classify converts a Stripe error into a ProviderError, marking 429 and 5xx
// responses and plain network failures as transient.
func classify(err error) error {
	var sErr *stripe.Error
	if errors.As(err, &sErr) {
		transient := sErr.HTTPStatusCode == http.StatusTooManyRequests || sErr.HTTPStatusCode >= 500
		return &provider.ProviderError{
			Code:      string(sErr.Code),
			Message:   sErr.Msg,
			Transient: transient,
		}
	}
	return &provider.ProviderError{
		Code:      "network_error",
		Message:   err.Error(),
		Transient: true,
	}
}

func isTransient(err error) bool {
	var pErr *provider.ProviderError
	return errors.As(err, &pErr) && pErr.Transient
}
