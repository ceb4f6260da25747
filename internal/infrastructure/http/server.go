package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	handlers "github.com/pixelpaws/settlement-service/internal/adapter/handler/http"
	"github.com/pixelpaws/settlement-service/internal/config"
	"github.com/pixelpaws/settlement-service/internal/infrastructure/database"
	stripeprovider "github.com/pixelpaws/settlement-service/internal/infrastructure/provider/stripe"
	"github.com/pixelpaws/settlement-service/internal/middleware/auth"
	"github.com/pixelpaws/settlement-service/internal/middleware/ratelimit"
	"github.com/pixelpaws/settlement-service/internal/usecase"
	"go.uber.org/zap"
)

type Server struct {
	config *config.Config
	logger *zap.Logger
	echo   *echo.Echo
	repos  *database.Repositories
	store  ratelimit.CounterStore
}

type requestValidator struct {
	validator *validator.Validate
}

func (v *requestValidator) Validate(i interface{}) error {
	if err := v.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func NewServer(cfg *config.Config, logger *zap.Logger, repos *database.Repositories, store ratelimit.CounterStore) *Server {
	e := echo.New()
	e.Validator = &requestValidator{validator: validator.New()}

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{cfg.Service.ClientURL},
		AllowMethods: []string{echo.GET, echo.POST},
	}))

	return &Server{
		config: cfg,
		logger: logger,
		echo:   e,
		repos:  repos,
		store:  store,
	}
}

func (s *Server) Start() error {
	// Setup routes
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", s.config.Server.HTTP.Host, s.config.Server.HTTP.Port)
	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	// Health check
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": "settlement",
		})
	})

	// Wire the settlement pipeline
	providerClient := stripeprovider.NewCheckoutClient(s.config.Service.StripeSecretKey, s.logger)
	verifier := usecase.NewSessionVerifier(providerClient, s.config.Settlement.MaxCreditAmount, s.logger)
	settlement := usecase.NewSettlementService(verifier, s.repos.Ledger, s.repos.Credit, s.logger)
	scanner := usecase.NewReconciliationScanner(providerClient, s.repos.Ledger, settlement,
		s.config.Settlement.ReconcileListLimit, s.logger)
	settlementHandler := handlers.NewSettlementHandler(s.logger, settlement, scanner)

	gate := ratelimit.NewGate(s.store, s.config.RateLimit.Window, s.config.RateLimit.MaxRequests, s.logger)

	// JWT middleware configuration
	jwtConfig := auth.JWTConfig{
		Secret: s.config.JWT.Secret,
		Logger: s.logger,
		SkipPaths: []string{
			"/health",
		},
	}

	// API v1 routes (all require JWT authentication)
	v1 := s.echo.Group("/api/v1")
	protected := v1.Group("", auth.JWTMiddleware(jwtConfig))

	// Settlement routes; the rate gate runs after auth so the caller
	// fingerprint includes the user id.
	payments := protected.Group("/payments", ratelimit.Middleware(gate))
	payments.POST("/verify", settlementHandler.VerifyPayment)
	payments.POST("/reconcile", settlementHandler.Reconcile)
}
