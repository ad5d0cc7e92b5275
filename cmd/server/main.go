package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"putik-service/config"
	"putik-service/internal/api"
	"putik-service/internal/auth"
	"putik-service/internal/broker"
	"putik-service/internal/redisclient"
	"putik-service/internal/service"
	"putik-service/internal/store"
	"putik-service/internal/util"
	"putik-service/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting putik booking service")

	loc, err := time.LoadLocation(cfg.Business.TimeZone)
	if err != nil {
		logger.Fatal("Invalid booking time zone", zap.String("tz", cfg.Business.TimeZone), zap.Error(err))
	}

	tp, err := util.InitTracer("putik-booking", cfg.Observ.JaegerEndpoint, cfg.Server.Env)
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Warn("Error shutting down tracer", zap.Error(err))
		}
	}()

	db, err := store.NewStore(cfg.Database.URL, store.Options{
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("Database connected")

	if cfg.Database.AutoMigrate {
		migrator, err := store.NewMigrator(db, logger)
		if err != nil {
			logger.Fatal("Failed to prepare migrations", zap.Error(err))
		}
		if err := migrator.Up(); err != nil {
			logger.Fatal("Failed to apply migrations", zap.Error(err))
		}
	}

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, seconds(cfg.Business.SessionTTLSeconds))
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	logger.Info("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicBooking)
	defer producer.Close()
	logger.Info("Kafka producer initialized", zap.String("topic", cfg.Kafka.TopicBooking))

	eventPublisher := broker.NewEventPublisher(producer)

	catalogService := service.NewCatalogService(db, redisClient, seconds(cfg.Business.AvailabilityTTLSeconds))
	cartService := service.NewCartService(db, redisClient, catalogService)
	checkoutService := service.NewCheckoutService(db, redisClient, cartService, eventPublisher, service.CheckoutOptions{
		Location:       loc,
		LockTTL:        seconds(cfg.Business.CheckoutLockSeconds),
		IdempotencyTTL: seconds(cfg.Business.IdempotencyTTLSeconds),
		EnforceLeave:   cfg.Business.EnforceMechanicLeave,
	})
	services := api.Services{
		Catalog:  catalogService,
		Cart:     cartService,
		Checkout: checkoutService,
		Bookings: service.NewBookingService(db, eventPublisher),
		Leaves:   service.NewLeaveService(db),
		Admin:    service.NewAdminService(db, eventPublisher),
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	availabilityConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicBooking, cfg.Kafka.ConsumerGroup)
	availabilityWorker := worker.NewAvailabilityWorker(availabilityConsumer, redisClient)
	go func() {
		if err := availabilityWorker.Start(workerCtx); err != nil && workerCtx.Err() == nil {
			logger.Error("Availability worker error", zap.Error(err))
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(services, auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer), db, map[string]api.Pinger{
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

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if err := availabilityWorker.Stop(); err != nil {
		logger.Warn("Error stopping availability worker", zap.Error(err))
	}

	logger.Info("Server exited")
}
