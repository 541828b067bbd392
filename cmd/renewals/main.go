package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"malipo-service/internal/config"
	"malipo-service/internal/db"
	"malipo-service/internal/pkg/lock"
	"malipo-service/internal/provider"
	"malipo-service/internal/provider/daraja"
	"malipo-service/internal/provider/pesapal"
	"malipo-service/internal/provider/sandbox"
	"malipo-service/internal/repository/postgres"
	invoiceUsecase "malipo-service/internal/service/invoice"
	paymentUsecase "malipo-service/internal/service/payment"
	renewalUsecase "malipo-service/internal/service/renewal"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// The renewals worker runs the renewal sweep on a cron schedule. It is
// deployed separately from the API so the sweep keeps running through
// API rollouts; the per-subscription redis lock keeps overlapping
// deployments from double-renewing.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("[RENEWALS] No .env file found, relying on system env vars")
	}

	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.ConnectDB(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect to PostgreSQL", zap.Error(err))
	}
	defer pool.Close()

	redisClient, err := db.NewRedisClient(db.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       0,
		PoolSize: 10,
	})
	if err != nil {
		logger.Fatal("failed to connect to Redis", zap.Error(err))
	}

	registry := provider.NewRegistry()
	registry.Register(sandbox.New(cfg.Fees))
	registry.Register(daraja.New(cfg.Daraja, cfg.Fees, logger))
	registry.Register(pesapal.New(cfg.Pesapal, cfg.Fees, logger))

	planRepo := postgres.NewPlanRepository(pool)
	orgRepo := postgres.NewOrganizationRepository(pool)
	subRepo := postgres.NewSubscriptionRepository(pool)
	invoiceRepo := postgres.NewInvoiceRepository(pool)
	paymentRepo := postgres.NewPaymentRepository(pool)
	methodRepo := postgres.NewPaymentMethodRepository(pool)

	paymentService := paymentUsecase.NewPaymentService(paymentRepo, methodRepo, registry, &cfg, logger)
	invoiceService := invoiceUsecase.NewInvoiceService(
		invoiceRepo, subRepo, planRepo, orgRepo, paymentService, nil, &cfg, logger,
	)

	locker := lock.NewRedisLocker(redisClient, "renewal:", cfg.RenewalLockTTL)
	renewalService := renewalUsecase.NewRenewalService(
		subRepo, planRepo, orgRepo, invoiceService, locker, nil, logger,
	)

	c := cron.New()
	_, err = c.AddFunc(cfg.RenewalSchedule, func() {
		outcomes, err := renewalService.ProcessRenewals(ctx)
		if err != nil {
			logger.Error("renewal sweep failed", zap.Error(err))
			return
		}
		for _, o := range outcomes {
			logger.Info("renewal outcome",
				zap.Int64("subscription_id", o.SubscriptionID),
				zap.String("reference", o.Reference),
				zap.String("kind", string(o.Kind)),
				zap.String("message", o.Message),
			)
		}
	})
	if err != nil {
		logger.Fatal("invalid renewal schedule", zap.String("schedule", cfg.RenewalSchedule), zap.Error(err))
	}

	c.Start()
	logger.Info("renewals worker started", zap.String("schedule", cfg.RenewalSchedule))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("stopping renewals worker...")
	<-c.Stop().Done()
	logger.Info("renewals worker stopped")
}
