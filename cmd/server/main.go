package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ecofinds/config"
	"ecofinds/internal/api"
	"ecofinds/internal/auth"
	"ecofinds/internal/broker"
	"ecofinds/internal/redisclient"
	"ecofinds/internal/service"
	"ecofinds/internal/store"
	"ecofinds/internal/util"
	"ecofinds/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const serviceName = "ecofinds"

func main() {
	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env, serviceName); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting EcoFinds marketplace", zap.String("env", cfg.Server.Env))

	tp, err := util.InitTracer(serviceName, cfg.Observ.JaegerEndpoint, cfg.Server.Env)
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Error("Error shutting down tracer", zap.Error(err))
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := db.Migrate(migrateCtx)
		cancel()
		if err != nil {
			logger.Fatal("Failed to migrate database", zap.Error(err))
		}
	}
	logger.Info("Database connected")

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	logger.Info("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents)
	defer producer.Close()
	eventPublisher := broker.NewEventPublisher(producer)

	tokens := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	claimTTL := time.Duration(cfg.Business.ListingClaimTTLSeconds) * time.Second

	services := api.Services{
		Auth:          service.NewAuthService(db, tokens, redisClient),
		Users:         service.NewUserService(db),
		Listings:      service.NewListingService(db, db, cfg.Business.DefaultPageSize, cfg.Business.MaxPageSize),
		Cart:          service.NewCartService(db, db),
		Checkout:      service.NewCheckoutService(db, db, redisClient, eventPublisher, claimTTL),
		Orders:        service.NewOrderService(db, eventPublisher),
		Notifications: service.NewNotificationService(db),
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents, cfg.Kafka.ConsumerGroup)
	notificationWorker := worker.NewNotificationWorker(consumer, services.Notifications)
	go func() {
		if err := notificationWorker.Start(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Notification worker error", zap.Error(err))
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(services, api.CookieConfig{
		Name:   cfg.Auth.CookieName,
		Secure: cfg.Auth.CookieSecure,
		MaxAge: cfg.Auth.TokenTTL,
	}, map[string]api.Pinger{
		"postgres": db,
		"redis":    redisClient,
	})
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if err := notificationWorker.Stop(); err != nil {
		logger.Error("Error stopping notification worker", zap.Error(err))
	}

	logger.Info("Server exited")
}
