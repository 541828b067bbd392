// internal/app/server.go
package app

import (
	"context"
	"fmt"
	"net/http"

	"malipo-service/internal/config"
	"malipo-service/internal/db"
	"malipo-service/internal/events"
	invoiceHandler "malipo-service/internal/handlers/invoice"
	organizationHandler "malipo-service/internal/handlers/organization"
	paymentHandler "malipo-service/internal/handlers/payment"
	methodHandler "malipo-service/internal/handlers/paymentmethod"
	planHandler "malipo-service/internal/handlers/plan"
	subscriptionHandler "malipo-service/internal/handlers/subscription"
	wsHandler "malipo-service/internal/handlers/ws"
	"malipo-service/internal/middleware"
	"malipo-service/internal/provider"
	"malipo-service/internal/provider/daraja"
	"malipo-service/internal/provider/pesapal"
	"malipo-service/internal/provider/sandbox"
	"malipo-service/internal/repository/postgres"
	invoiceUsecase "malipo-service/internal/service/invoice"
	organizationUsecase "malipo-service/internal/service/organization"
	paymentUsecase "malipo-service/internal/service/payment"
	methodUsecase "malipo-service/internal/service/paymentmethod"
	planUsecase "malipo-service/internal/service/plan"
	subscriptionUsecase "malipo-service/internal/service/subscription"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	cfg    config.AppConfig
	engine *gin.Engine
	logger *zap.Logger

	httpServer *http.Server
}

func NewServer() *Server {
	cfg := config.Load()
	engine := gin.New()
	return &Server{cfg: cfg, engine: engine}
}

func (s *Server) Start(ctx context.Context) error {
	// ----- Logger -----
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()
	s.logger = logger

	// ----- PostgreSQL -----
	pool, err := db.ConnectDB(ctx, s.cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	// ----- Payment providers -----
	registry := provider.NewRegistry()
	registry.Register(sandbox.New(s.cfg.Fees))
	registry.Register(daraja.New(s.cfg.Daraja, s.cfg.Fees, logger))
	registry.Register(pesapal.New(s.cfg.Pesapal, s.cfg.Fees, logger))

	// ----- Repositories -----
	planRepo := postgres.NewPlanRepository(pool)
	orgRepo := postgres.NewOrganizationRepository(pool)
	subRepo := postgres.NewSubscriptionRepository(pool)
	invoiceRepo := postgres.NewInvoiceRepository(pool)
	paymentRepo := postgres.NewPaymentRepository(pool)
	methodRepo := postgres.NewPaymentMethodRepository(pool)

	// ----- Events hub -----
	hub := events.NewHub(logger)
	go hub.Run(ctx)

	// ----- Services -----
	planService := planUsecase.NewPlanService(planRepo, &s.cfg, logger)
	organizationService := organizationUsecase.NewOrganizationService(orgRepo, &s.cfg, logger)
	methodService := methodUsecase.NewMethodService(methodRepo, registry, &s.cfg, logger)
	paymentService := paymentUsecase.NewPaymentService(paymentRepo, methodRepo, registry, &s.cfg, logger)
	invoiceService := invoiceUsecase.NewInvoiceService(
		invoiceRepo, subRepo, planRepo, orgRepo, paymentService, hub, &s.cfg, logger,
	)
	subscriptionService := subscriptionUsecase.NewSubscriptionService(
		subRepo, planRepo, orgRepo, methodRepo, invoiceService, hub, logger,
	)

	// ----- Handlers -----
	handlers := &Handlers{
		PlanHandler:         planHandler.NewPlanHandler(planService),
		OrganizationHandler: organizationHandler.NewOrganizationHandler(organizationService),
		SubscriptionHandler: subscriptionHandler.NewSubscriptionHandler(subscriptionService),
		MethodHandler:       methodHandler.NewMethodHandler(methodService),
		InvoiceHandler:      invoiceHandler.NewInvoiceHandler(invoiceService),
		PaymentHandler:      paymentHandler.NewPaymentHandler(paymentService),
		WSHandler:           wsHandler.NewWSHandler(hub, logger),
		AuthMiddleware:      middleware.NewAuthMiddleware(s.cfg.JWTSecret),
	}

	// ----- Middlewares -----
	s.engine.Use(
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
		middleware.CORSMiddleware(),
	)

	// ----- Router -----
	SetupRouter(s.engine, logger, handlers)

	s.httpServer = &http.Server{
		Addr:    s.cfg.HTTPAddr,
		Handler: s.engine,
	}

	logger.Info("starting billing API", zap.String("addr", s.cfg.HTTPAddr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server error: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
