package errors

import "errors"

// RejectionKind identifies why a settlement attempt was refused.
type RejectionKind string

const (
	KindMalformedInput      RejectionKind = "malformed_input"
	KindProviderUnavailable RejectionKind = "provider_unavailable"
	KindPaymentNotCaptured  RejectionKind = "payment_not_captured"
	KindSessionIncomplete   RejectionKind = "session_incomplete"
	KindInvalidMetadata     RejectionKind = "invalid_metadata"
	KindAmountOutOfBounds   RejectionKind = "amount_out_of_bounds"
	KindOwnershipMismatch   RejectionKind = "ownership_mismatch"
	KindRateLimited         RejectionKind = "rate_limited"
	KindStorageFailure      RejectionKind = "storage_failure"
)

// Rejection is a typed settlement refusal. Message is safe to return to
// clients; the wrapped error carries full detail and stays server-side.
type Rejection struct {
	Kind    RejectionKind
	Message string
	Err     error
}

func (e *Rejection) Error() string {
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Message + ": " + e.Err.Error()
	}
	return string(e.Kind) + ": " + e.Message
}

func (e *Rejection) Unwrap() error {
	return e.Err
}

// NewRejection creates a rejection with a client-safe message.
func NewRejection(kind RejectionKind, message string) *Rejection {
	return &Rejection{Kind: kind, Message: message}
}

// WrapRejection creates a rejection wrapping an internal error.
func WrapRejection(kind RejectionKind, message string, err error) *Rejection {
	return &Rejection{Kind: kind, Message: message, Err: err}
}

// RejectionFrom unwraps a Rejection from an error chain.
func RejectionFrom(err error) (*Rejection, bool) {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}

// IsKind reports whether err is a rejection of the given kind.
func IsKind(err error, kind RejectionKind) bool {
	rej, ok := RejectionFrom(err)
	return ok && rej.Kind == kind
}
