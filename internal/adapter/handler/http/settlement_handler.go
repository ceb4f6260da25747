package http

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	domainErrors "github.com/pixelpaws/settlement-service/internal/domain/errors"
	"github.com/pixelpaws/settlement-service/internal/middleware/auth"
	"github.com/pixelpaws/settlement-service/internal/usecase"
	"go.uber.org/zap"
)

// SettlementProcessor runs the single-session settlement pipeline.
type SettlementProcessor interface {
	ProcessSession(ctx context.Context, sessionID string, userID uuid.UUID) (*usecase.SettlementResult, error)
	Balance(ctx context.Context, userID uuid.UUID) (int64, error)
}

// Reconciler resolves provider/ledger divergence for one caller.
type Reconciler interface {
	FindCompletedSessions(ctx context.Context, userID uuid.UUID, email string) ([]usecase.PendingSession, error)
	ProcessPending(ctx context.Context, userID uuid.UUID) (*usecase.SweepReport, error)
}

// SettlementHandler handles the payment verification and reconciliation
// endpoints.
type SettlementHandler struct {
	logger     *zap.Logger
	settlement SettlementProcessor
	reconciler Reconciler
}

// NewSettlementHandler creates a new settlement handler instance
func NewSettlementHandler(logger *zap.Logger, settlement SettlementProcessor, reconciler Reconciler) *SettlementHandler {
	return &SettlementHandler{
		logger:     logger,
		settlement: settlement,
		reconciler: reconciler,
	}
}

type VerifyRequest struct {
	SessionID string `json:"sessionId" validate:"required"`
}

type SettleResponse struct {
	Success          bool  `json:"success"`
	AlreadyProcessed bool  `json:"alreadyProcessed,omitempty"`
	CreditAmount     int64 `json:"creditAmount"`
	NewBalance       int64 `json:"newBalance"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// VerifyPayment handles POST /api/v1/payments/verify
func (h *SettlementHandler) VerifyPayment(c echo.Context) error {
	user, err := auth.GetUserFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Success: false, Error: "unauthorized"})
	}

	var req VerifyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Success: false, Error: "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Success: false, Error: "sessionId is required"})
	}

	result, err := h.settlement.ProcessSession(c.Request().Context(), req.SessionID, user.UserID)
	if err != nil {
		return h.rejectionResponse(c, err)
	}

	return c.JSON(http.StatusOK, SettleResponse{
		Success:          true,
		AlreadyProcessed: result.AlreadyProcessed,
		CreditAmount:     result.CreditAmount,
		NewBalance:       result.NewBalance,
	})
}

type ReconcileRequest struct {
	Action    string `json:"action" validate:"required"`
	SessionID string `json:"sessionId,omitempty"`
}

type FindCompletedResponse struct {
	Success        bool                     `json:"success"`
	Sessions       []usecase.PendingSession `json:"sessions"`
	CurrentBalance int64                    `json:"currentBalance"`
}

type SweepResponse struct {
	Success        bool                   `json:"success"`
	ProcessedCount int                    `json:"processedCount"`
	TotalCredits   int64                  `json:"totalCredits"`
	Failures       []usecase.SweepFailure `json:"failures,omitempty"`
}

// Reconcile handles POST /api/v1/payments/reconcile
func (h *SettlementHandler) Reconcile(c echo.Context) error {
	user, err := auth.GetUserFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Success: false, Error: "unauthorized"})
	}

	var req ReconcileRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Success: false, Error: "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Success: false, Error: "action is required"})
	}

	// Resolve the action string into the closed command set once, here at the
	// boundary; everything past this point dispatches on the typed value.
	action, err := parseReconcileAction(req.Action)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Success: false, Error: "unknown action"})
	}

	switch action {
	case actionFindCompletedSessions:
		return h.findCompletedSessions(c, user)
	case actionProcessSession:
		return h.processSession(c, user, req.SessionID)
	case actionProcessPending:
		return h.processPending(c, user)
	default:
		return c.JSON(http.StatusBadRequest, ErrorResponse{Success: false, Error: "unknown action"})
	}
}

func (h *SettlementHandler) findCompletedSessions(c echo.Context, user *auth.AuthUser) error {
	ctx := c.Request().Context()

	sessions, err := h.reconciler.FindCompletedSessions(ctx, user.UserID, user.Email)
	if err != nil {
		return h.rejectionResponse(c, err)
	}

	balance, err := h.settlement.Balance(ctx, user.UserID)
	if err != nil {
		return h.rejectionResponse(c, err)
	}

	return c.JSON(http.StatusOK, FindCompletedResponse{
		Success:        true,
		Sessions:       sessions,
		CurrentBalance: balance,
	})
}

func (h *SettlementHandler) processSession(c echo.Context, user *auth.AuthUser, sessionID string) error {
	if sessionID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Success: false, Error: "sessionId is required"})
	}

	result, err := h.settlement.ProcessSession(c.Request().Context(), sessionID, user.UserID)
	if err != nil {
		return h.rejectionResponse(c, err)
	}

	return c.JSON(http.StatusOK, SettleResponse{
		Success:          true,
		AlreadyProcessed: result.AlreadyProcessed,
		CreditAmount:     result.CreditAmount,
		NewBalance:       result.NewBalance,
	})
}

func (h *SettlementHandler) processPending(c echo.Context, user *auth.AuthUser) error {
	report, err := h.reconciler.ProcessPending(c.Request().Context(), user.UserID)
	if err != nil {
		return h.rejectionResponse(c, err)
	}

	return c.JSON(http.StatusOK, SweepResponse{
		Success:        true,
		ProcessedCount: report.ProcessedCount,
		TotalCredits:   report.TotalCredits,
		Failures:       report.Failures,
	})
}

// rejectionResponse maps a settlement rejection onto an HTTP status. The
// client only ever sees the generic message; full detail is logged here.
func (h *SettlementHandler) rejectionResponse(c echo.Context, err error) error {
	rej, ok := domainErrors.RejectionFrom(err)
	if !ok {
		h.logger.Error("Unclassified settlement error", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Success: false, Error: "internal error"})
	}

	h.logger.Warn("Settlement request rejected",
		zap.String("kind", string(rej.Kind)),
		zap.String("path", c.Request().URL.Path),
		zap.Error(err))

	status := http.StatusInternalServerError
	switch rej.Kind {
	case domainErrors.KindMalformedInput,
		domainErrors.KindInvalidMetadata,
		domainErrors.KindAmountOutOfBounds,
		domainErrors.KindPaymentNotCaptured,
		domainErrors.KindSessionIncomplete:
		status = http.StatusBadRequest
	case domainErrors.KindOwnershipMismatch:
		status = http.StatusForbidden
	case domainErrors.KindRateLimited:
		status = http.StatusTooManyRequests
	case domainErrors.KindProviderUnavailable:
		status = http.StatusServiceUnavailable
	case domainErrors.KindStorageFailure:
		status = http.StatusInternalServerError
	}

	return c.JSON(status, ErrorResponse{Success: false, Error: rej.Message})
}
