package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"
	"vhs_converter/internal/config"
	"vhs_converter/internal/database"
	"vhs_converter/internal/handlers"
	"vhs_converter/internal/logger"
	"vhs_converter/internal/migrations"
	"vhs_converter/internal/redis"
	"vhs_converter/internal/repository"
	"vhs_converter/internal/services"
	"vhs_converter/pkg/filestore"
	"vhs_converter/pkg/mailer"
	"vhs_converter/pkg/payment"
	"vhs_converter/pkg/sendcloud"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	if err := logger.Initialize(cfg.LogLevel); err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer func() { _ = logger.Log.Sync() }()

	// Initialize database
	db, err := database.Initialize(cfg.DatabaseURL)
	if err != nil {
		logger.Log.Fatal("Failed to connect to database", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Log.Fatal("Failed to get database handle", zap.Error(err))
	}
	defer sqlDB.Close()

	// Initialize Redis
	redisClient, err := redis.Initialize(cfg.RedisURL)
	if err != nil {
		logger.Log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()

	// Vendor clients
	files, closeFiles, err := openFileStore(ctx, cfg)
	if err != nil {
		logger.Log.Fatal("Failed to open file store", zap.Error(err))
	}
	defer closeFiles()

	shippingClient := sendcloud.NewClient(cfg.SendcloudAPIURL, cfg.SendcloudServicePointsURL, cfg.SendcloudPublicKey, cfg.SendcloudSecretKey)
	if !shippingClient.Configured() {
		logger.Log.Warn("Sendcloud keys not set, shipping rates and labels are disabled")
	}
	gateway := payment.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	mail := mailer.New(cfg.SendGridAPIKey, cfg.MailFrom, cfg.MailFromName, logger.Log)

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	noteRepo := repository.NewOrderNoteRepository(db)
	messageRepo := repository.NewOrderMessageRepository(db)
	pricingRepo := repository.NewPricingRepository(db)

	// Initialize services
	sessionTTL := time.Duration(cfg.SessionTimeout) * time.Second
	userService := services.NewUserService(userRepo, redisClient, sessionTTL)
	notificationService := services.NewNotificationService(mail, cfg.BaseURL)
	pricingService := services.NewPricingService(pricingRepo, redisClient, time.Duration(cfg.CacheTTL)*time.Second)
	shippingService := services.NewShippingService(shippingClient, cfg.Studio)
	orderService := services.NewOrderService(orderRepo, noteRepo, pricingService, shippingService, notificationService, files)
	checkoutService := services.NewCheckoutService(orderService, gateway, redisClient, cfg.BaseURL, cfg.Currency)
	messageService := services.NewMessageService(orderService, messageRepo, notificationService, cfg.AdminNotifyEmail)

	if err := migrations.RunMigrations(ctx, db, userService, migrations.Seed{
		AdminEmail:    cfg.AdminSeedEmail,
		AdminPassword: cfg.AdminSeedPassword,
	}); err != nil {
		logger.Log.Fatal("Failed to run migrations", zap.Error(err))
	}

	limiter := handlers.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go limiter.Cleanup(ctx)

	gin.SetMode(gin.ReleaseMode)
	router := handlers.NewRouter(handlers.RouterConfig{
		Users:    userService,
		Orders:   orderService,
		Pricing:  pricingService,
		Shipping: shippingService,
		Checkout: checkoutService,
		Messages: messageService,
		Health: map[string]handlers.HealthCheck{
			"database": sqlDB.PingContext,
			"redis":    redisClient.Ping,
		},
		Limiter:      limiter,
		SessionTTL:   sessionTTL,
		CookieSecure: cfg.CookieSecure,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Info("Server starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Graceful shutdown failed", zap.Error(err))
	}
}

// openFileStore picks the deliverable backend named by FILESTORE_DRIVER.
func openFileStore(ctx context.Context, cfg *config.Config) (filestore.Store, func(), error) {
	switch cfg.FileStoreDriver {
	case "gcs":
		store, err := filestore.NewGCSStore(ctx, cfg.FileStoreBucket, cfg.FileStorePrefix)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	case "s3":
		store, err := filestore.NewS3Store(ctx, filestore.S3StoreConfig{
			Bucket:   cfg.FileStoreBucket,
			Region:   cfg.FileStoreRegion,
			Endpoint: cfg.FileStoreEndpoint,
			Prefix:   cfg.FileStorePrefix,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	default:
		logger.Log.Warn("FILESTORE_DRIVER is none, file uploads are disabled")
		return filestore.Noop(), func() {}, nil
	}
}
