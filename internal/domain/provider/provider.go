package provider

import "context"

// Metadata keys the checkout flow stamps onto every session. The verifier
// refuses sessions missing either one.
const (
	MetadataUserIDKey     = "user_id"
	MetadataCoinAmountKey = "coin_amount"
)

// SessionTruth is the provider's current view of a checkout session. Paid and
// Complete are independent: a session can be captured but still open, or
// closed without funds ever being taken. Settlement requires both.
type SessionTruth struct {
	SessionID     string            `json:"session_id"`
	Paid          bool              `json:"paid"`     // funds actually captured
	Complete      bool              `json:"complete"` // checkout flow closed
	AmountTotal   int64             `json:"amount_total"` // charged amount in minor units
	Currency      string            `json:"currency"`
	CustomerEmail string            `json:"customer_email,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// CheckoutProvider is the read-only client for the external payment provider.
// Implementations retry transient failures internally and never mutate
// provider-side state.
type CheckoutProvider interface {
	// FetchSession returns the provider's truth for a single session.
	FetchSession(ctx context.Context, sessionID string) (*SessionTruth, error)

	// ListSessionsByEmail returns the most recent sessions created for a
	// billing email, newest first, up to limit.
	ListSessionsByEmail(ctx context.Context, email string, limit int) ([]*SessionTruth, error)

	// GetProviderName returns the provider name
	GetProviderName() string
}

// ProviderError describes a failed provider call. Transient errors are worth
// retrying; permanent ones (unknown session, malformed id) are not.
type ProviderError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Transient bool   `json:"transient"`
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}
