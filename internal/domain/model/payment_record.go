package model

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
)

// PaymentStatus reflects the local processing stage of a payment record. It
// does not mirror provider truth; a record can be pending locally long after
// the provider has captured the funds.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// Scan implements sql.Scanner interface
func (s *PaymentStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*s = PaymentStatus(v)
	case []byte:
		*s = PaymentStatus(v)
	default:
		return nil
	}
	return nil
}

// Value implements driver.Valuer interface
func (s PaymentStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// PaymentRecord is the durable ledger row for one external checkout session.
// Rows are never deleted; they are the audit trail of every settlement
// attempt. Credited flips false to true exactly once, inside the same
// transaction that increases the owner's coin balance.
type PaymentRecord struct {
	ID               int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID        string        `gorm:"column:session_id;uniqueIndex;size:200;not null" json:"session_id"`
	UserID           uuid.UUID     `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	AmountMinorUnits int64         `gorm:"not null" json:"amount_minor_units"`
	CreditAmount     int64         `gorm:"not null" json:"credit_amount"`
	Status           PaymentStatus `gorm:"size:50;not null;default:'pending'" json:"status"`
	ProviderVerified bool          `gorm:"not null;default:false" json:"provider_verified"`
	Credited         bool          `gorm:"not null;default:false" json:"credited"`
	CreatedAt        time.Time     `gorm:"default:now()" json:"created_at"`
	CompletedAt      *time.Time    `json:"completed_at,omitempty"`
}

// TableName specifies the table name for GORM
func (PaymentRecord) TableName() string {
	return "payment_records"
}
