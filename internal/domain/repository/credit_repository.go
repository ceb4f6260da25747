package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/pixelpaws/settlement-service/internal/domain/model"
	"github.com/shopspring/decimal"
)

// CreditResult reports the outcome of an atomic credit attempt. Credited false
// with no error means the session was already settled earlier; NewBalance is
// the current balance either way.
type CreditResult struct {
	Credited   bool
	NewBalance decimal.Decimal
}

// CoinCreditRepository is the only component allowed to increase a coin
// balance from a payment.
type CoinCreditRepository interface {
	// CreditIfNotCredited flips the session's credited flag and increases the
	// owner's balance by creditAmount in one atomic transaction. Exactly one
	// of any number of concurrent calls for the same session wins.
	CreditIfNotCredited(ctx context.Context, sessionID string, userID uuid.UUID, creditAmount int64) (*CreditResult, error)

	// GetBalance retrieves the current coin balance for a user.
	GetBalance(ctx context.Context, userID uuid.UUID) (*model.UserCoinBalance, error)
}
