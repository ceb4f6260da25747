package model

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType represents the type of coin transaction
type TransactionType string

const (
	TransactionTypeCoinPurchase TransactionType = "coin_purchase"
	TransactionTypeAdjustment   TransactionType = "adjustment"
)

// Scan implements sql.Scanner interface
func (t *TransactionType) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*t = TransactionType(v)
	case []byte:
		*t = TransactionType(v)
	default:
		return nil
	}
	return nil
}

// Value implements driver.Valuer interface
func (t TransactionType) Value() (driver.Value, error) {
	return string(t), nil
}

// CoinTransaction is the audit-ledger entry for a balance mutation. A coin
// purchase carries the checkout session id in ReferenceID; the partial unique
// index on that column guarantees one grant per session.
type CoinTransaction struct {
	ID              int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID          uuid.UUID       `gorm:"column:user_id;type:uuid;not null;index:idx_coin_transactions_user_created" json:"user_id"`
	TransactionType TransactionType `gorm:"size:50;not null" json:"transaction_type"`
	Amount          decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	BalanceAfter    decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"balance_after"`
	Description     string          `gorm:"not null" json:"description"`
	ReferenceID     *string         `gorm:"size:200" json:"reference_id,omitempty"`
	CreatedAt       time.Time       `gorm:"default:now();index:idx_coin_transactions_user_created" json:"created_at"`
}

// TableName specifies the table name for GORM
func (CoinTransaction) TableName() string {
	return "coin_transactions"
}

// UserCoinBalance represents the current coin balance for a user
type UserCoinBalance struct {
	UserID            uuid.UUID       `gorm:"column:user_id;type:uuid;primaryKey" json:"user_id"`
	CurrentBalance    decimal.Decimal `gorm:"type:decimal(15,2)" json:"current_balance"`
	LastTransactionAt time.Time       `json:"last_transaction_at"`
}

// TableName specifies the table name for GORM
func (UserCoinBalance) TableName() string {
	return "user_coin_balances"
}
