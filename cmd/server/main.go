package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"CampaignPulse/internal/api"
	"CampaignPulse/internal/campaign"
	"CampaignPulse/internal/config"
	"CampaignPulse/internal/db"
	"CampaignPulse/internal/delivery"
	"CampaignPulse/internal/gateway"
	"CampaignPulse/internal/ingest"
	"CampaignPulse/internal/metrics"
	"CampaignPulse/internal/models"
	"CampaignPulse/internal/queue"
	"CampaignPulse/internal/receipt"
	"CampaignPulse/internal/store"
	"CampaignPulse/internal/worker"
)

func main() {

	// ------------------------------------------------
	// Logger
	// ------------------------------------------------
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// ------------------------------------------------
	// Config
	// ------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	// ------------------------------------------------
	// Root Context + Shutdown
	// ------------------------------------------------
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
		cancel()
	}()

	// ------------------------------------------------
	// Persistence
	// ------------------------------------------------
	var (
		persistence   queue.Persistence = queue.NopPersistence{}
		campaignStore store.CampaignStore
		logStore      store.LogStore
	)

	memory := store.NewMemory()
	campaignStore = memory
	logStore = memory

	if cfg.DatabaseURL != "" {
		pg, err := db.New(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("database connection failed", zap.Error(err))
		}
		defer pg.Close()

		persistence = pg
		campaignStore = pg
		logStore = pg
	}

	// ------------------------------------------------
	// Metrics
	// ------------------------------------------------
	metrics.Init()

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())

	metricsServer := &http.Server{
		Addr:    ":" + cfg.MetricsPort,
		Handler: metricsMux,
	}

	go func() {
		logger.Info("metrics server started", zap.String("port", cfg.MetricsPort))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("metrics server error", zap.Error(err))
		}
	}()

	// ------------------------------------------------
	// Queue Store
	// ------------------------------------------------
	queueStore := queue.NewStore(logger, queue.Options{
		MaxAttempts: cfg.QueueMaxAttempts,
		RetryDelay:  cfg.QueueRetryDelay,
		Persistence: persistence,
	})

	if err := queueStore.Restore(ctx); err != nil {
		logger.Fatal("queue restore failed", zap.Error(err))
	}

	// ------------------------------------------------
	// Delivery Gateway
	// ------------------------------------------------
	var channel gateway.Vendor
	switch cfg.VendorMode {
	case "smtp":
		channel = &gateway.SMTP{
			Host: cfg.SMTPHost,
			Port: cfg.SMTPPort,
			From: cfg.SMTPFrom,
		}
	default:
		channel = gateway.NewSimulated(cfg.VendorAcceptRate, nil)
	}

	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimit)
	gw := gateway.NewGateway(channel, limiter, cfg.GatewayTimeout, logger)

	// ------------------------------------------------
	// Pipeline Stages
	// ------------------------------------------------
	orchestrator := campaign.NewOrchestrator(campaignStore, memory, logStore, queueStore, logger)
	deliverer := delivery.NewHandler(logStore, memory, gw, queueStore, logger)
	reconciler := receipt.NewReconciler(logStore, cfg.ReceiptBatchSize, cfg.ReceiptBatchAge, logger)
	ingester := ingest.NewHandler(memory, memory, logger)

	// ------------------------------------------------
	// Worker Loops
	// ------------------------------------------------
	supervisor := worker.NewSupervisor(logger,
		worker.NewLoop(queueStore, logger, worker.LoopConfig{
			Name:     "ingest",
			Types:    []models.QueueType{models.QueueCustomerIngest, models.QueueOrderIngest},
			Interval: cfg.IngestTick,
			Handler: func(ctx context.Context, _ models.QueueItem, p models.Payload) error {
				return ingester.Apply(ctx, p)
			},
		}),
		worker.NewLoop(queueStore, logger, worker.LoopConfig{
			Name:     "campaign",
			Types:    []models.QueueType{models.QueueCampaignProcess},
			Interval: cfg.CampaignTick,
			Handler: func(ctx context.Context, _ models.QueueItem, p models.Payload) error {
				return orchestrator.HandleLaunch(ctx, p.(models.CampaignLaunchPayload))
			},
		}),
		worker.NewLoop(queueStore, logger, worker.LoopConfig{
			Name:     "delivery",
			Types:    []models.QueueType{models.QueueDeliverySend},
			Interval: cfg.DeliveryTick,
			Handler: func(ctx context.Context, _ models.QueueItem, p models.Payload) error {
				return deliverer.Process(ctx, p.(models.DeliverySendPayload))
			},
		}),
		worker.NewLoop(queueStore, logger, worker.LoopConfig{
			Name:     "receipt",
			Types:    []models.QueueType{models.QueueReceiptProcess},
			Interval: cfg.ReceiptTick,
			Handler: func(ctx context.Context, _ models.QueueItem, p models.Payload) error {
				return reconciler.Add(ctx, p.(models.ReceiptPayload))
			},
			StopHook: reconciler.Flush,
		}),
	)

	supervisor.Start(ctx)

	// ------------------------------------------------
	// HTTP API Server
	// ------------------------------------------------
	apiHandler := &api.Handler{
		Queue:        queueStore,
		Orchestrator: orchestrator,
		Log:          logger,
	}

	apiServer := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: apiHandler.Routes(),
	}

	go func() {
		logger.Info("api server started", zap.String("port", cfg.APIPort))
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("api server error", zap.Error(err))
		}
	}()

	// ------------------------------------------------
	// Wait for shutdown
	// ------------------------------------------------
	<-ctx.Done()

	logger.Info("shutting down services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Stop accepting new work first, then drain the loops; the receipt
	// loop flushes its batch on the way out.
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("api shutdown failed", zap.Error(err))
	}

	supervisor.Stop(shutdownCtx)

	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics shutdown failed", zap.Error(err))
	}

	logger.Info("application shutdown complete")
}
