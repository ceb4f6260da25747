// Command reconcile runs a one-shot reconciliation sweep for a single user,
// for operators chasing a stuck payment without going through the HTTP API.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/pixelpaws/settlement-service/internal/config"
	"github.com/pixelpaws/settlement-service/internal/infrastructure/database"
	stripeprovider "github.com/pixelpaws/settlement-service/internal/infrastructure/provider/stripe"
	"github.com/pixelpaws/settlement-service/internal/logger"
	"github.com/pixelpaws/settlement-service/internal/usecase"
	"go.uber.org/zap"
)

func main() {
	userFlag := flag.String("user", "", "user id to sweep (required)")
	emailFlag := flag.String("email", "", "billing email for the provider-side pass (optional)")
	timeoutFlag := flag.Duration("timeout", 2*time.Minute, "overall sweep timeout")
	flag.Parse()

	userID, err := uuid.Parse(*userFlag)
	if err != nil {
		log.Fatalf("-user must be a valid user id: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := logger.NewZapLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	db, err := database.NewConnection(&cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := database.Close(db, zapLogger); err != nil {
			zapLogger.Error("Failed to close database connection", zap.Error(err))
		}
	}()

	repos := database.NewRepositories(db, zapLogger)
	providerClient := stripeprovider.NewCheckoutClient(cfg.Service.StripeSecretKey, zapLogger)
	verifier := usecase.NewSessionVerifier(providerClient, cfg.Settlement.MaxCreditAmount, zapLogger)
	settlement := usecase.NewSettlementService(verifier, repos.Ledger, repos.Credit, zapLogger)
	scanner := usecase.NewReconciliationScanner(providerClient, repos.Ledger, settlement,
		cfg.Settlement.ReconcileListLimit, zapLogger)

	ctx, cancel := context.WithTimeout(context.Background(), *timeoutFlag)
	defer cancel()

	if *emailFlag != "" {
		candidates, err := scanner.FindCompletedSessions(ctx, userID, *emailFlag)
		if err != nil {
			zapLogger.Fatal("Provider-side pass failed", zap.Error(err))
		}
		zapLogger.Info("Provider-side pass found candidates", zap.Int("count", len(candidates)))
		for _, candidate := range candidates {
			if _, err := settlement.ProcessSession(ctx, candidate.SessionID, userID); err != nil {
				zapLogger.Warn("Candidate session not settled",
					zap.String("session_id", candidate.SessionID),
					zap.Error(err))
			}
		}
	}

	report, err := scanner.ProcessPending(ctx, userID)
	if err != nil {
		zapLogger.Fatal("Sweep failed", zap.Error(err))
	}

	zapLogger.Info("Sweep complete",
		zap.String("user_id", userID.String()),
		zap.Int("processed_count", report.ProcessedCount),
		zap.Int64("total_credits", report.TotalCredits),
		zap.Int("failures", len(report.Failures)))
}
