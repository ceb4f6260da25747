package database

import (
	"github.com/pixelpaws/settlement-service/internal/adapter/repository"
	domainRepo "github.com/pixelpaws/settlement-service/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Repositories holds all repository instances
type Repositories struct {
	Ledger domainRepo.PaymentLedgerRepository
	Credit domainRepo.CoinCreditRepository
}

// NewRepositories creates new repository instances with database connection
func NewRepositories(db *gorm.DB, logger *zap.Logger) *Repositories {
	return &Repositories{
		Ledger: repository.NewPaymentLedgerRepository(db, logger),
		Credit: repository.NewCoinCreditRepository(db, logger),
	}
}
