package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	appwebhook "github.com/storeops/backend/internal/application/webhook"
	auditstore "github.com/storeops/backend/internal/infrastructure/audit"
	"github.com/storeops/backend/internal/infrastructure/cache"
	"github.com/storeops/backend/internal/infrastructure/config"
	"github.com/storeops/backend/internal/infrastructure/logger"
	"github.com/storeops/backend/internal/infrastructure/notification"
	"github.com/storeops/backend/internal/infrastructure/persistence"
	platforminfra "github.com/storeops/backend/internal/infrastructure/platform"
	"github.com/storeops/backend/internal/interfaces/http/handler"
	"github.com/storeops/backend/internal/interfaces/http/middleware"
	"github.com/storeops/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting StoreOps Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize repositories
	clientRepo := persistence.NewGormClientRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	trackingRepo := persistence.NewGormTrackingRepository(db.DB)
	checkoutRepo := persistence.NewGormCheckoutRepository(db.DB)

	// Audit recorder (buffered background writer)
	auditor := auditstore.NewGormRecorder(db.DB, log)
	defer auditor.Close()

	// Delivery deduplication store: Redis preferred, in-memory fallback
	idempotencyFactory := cache.NewIdempotencyStoreFactory(cfg.Redis, cache.WithLogger(log))
	idempotencyStore, err := idempotencyFactory.CreateStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	defer func() {
		if err := idempotencyStore.Close(); err != nil {
			log.Error("Error closing idempotency store", zap.Error(err))
		}
	}()

	// Outbound integrations
	dispatcher := notification.NewOneSignalDispatcher(cfg.OneSignal, nil, log)
	gateway := platforminfra.NewShopifyGateway(cfg.Shopify, nil, log)
	enricher := platforminfra.NewCRMEnricher(cfg.CRM, db.DB, nil, log)

	// Initialize application services
	verifier := appwebhook.NewSignatureVerifier(cfg.Webhook.Secret, auditor, log)
	resolver := appwebhook.NewIdentityResolver(clientRepo, auditor, log)

	trackingReconciler := appwebhook.NewTrackingReconciler(trackingRepo, auditor, log)
	trackingReconciler.SetDefaultCarrier(cfg.Webhook.DefaultCarrier)

	gate := appwebhook.NewNotificationGate(orderRepo, dispatcher, auditor, log)
	gate.SetDispatchTimeout(cfg.Webhook.DispatchTimeout)

	reconciler := appwebhook.NewOrderReconciler(orderRepo, resolver, trackingReconciler, gate, gateway, auditor, log)
	reconciler.SetRecoveryDelay(cfg.Webhook.RecoveryDelay)
	reconciler.SetStoreBaseURL(cfg.Webhook.StoreBaseURL)

	checkoutProcessor := appwebhook.NewCheckoutProcessor(checkoutRepo, resolver, enricher, auditor, log)
	checkoutProcessor.SetRecoveryDelay(cfg.Webhook.RecoveryDelay)

	customerSync := appwebhook.NewCustomerSync(clientRepo, gateway, dispatcher, auditor, log)
	customerSync.SetOverwriteTagsOnEmpty(cfg.Webhook.OverwriteTagsOnEmpty)

	// Initialize HTTP handlers
	webhookHandler := handler.NewWebhookHandler(
		verifier,
		reconciler,
		checkoutProcessor,
		customerSync,
		idempotencyStore,
		cfg.Webhook.DedupTTL,
		log,
	)
	webhookHandler.SetMaxBodySize(cfg.HTTP.MaxBodySize)
	beaconHandler := handler.NewBeaconHandler(auditor, enricher, log)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize router with custom middleware
	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	engine.Use(middleware.Timeout(cfg.HTTP.WriteTimeout))

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db, log))

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(webhookHandler).
		Register(beaconHandler)
	r.Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database, _ *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
