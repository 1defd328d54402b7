package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/HarshSharma20050924/Lumina-Store-sub000/cache"
	"github.com/HarshSharma20050924/Lumina-Store-sub000/database"
	"github.com/HarshSharma20050924/Lumina-Store-sub000/fulfillment"
	"github.com/HarshSharma20050924/Lumina-Store-sub000/handlers"
	"github.com/HarshSharma20050924/Lumina-Store-sub000/kafka"
	"github.com/HarshSharma20050924/Lumina-Store-sub000/middleware"
	"github.com/HarshSharma20050924/Lumina-Store-sub000/notify"
	"github.com/HarshSharma20050924/Lumina-Store-sub000/store"
)

func main() {
	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize database
	db, err := database.InitDB(logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Initialize Redis; transitions degrade to unserialized operation without it
	rdb, err := cache.InitRedis(logger)
	if err != nil {
		logger.Warn("Redis unavailable, per-order locking disabled", zap.Error(err))
		rdb = nil
	} else {
		defer rdb.Close()
	}

	// Initialize Kafka producer
	producer, err := kafka.InitProducer(logger)
	if err != nil {
		logger.Fatal("Failed to initialize Kafka producer", zap.Error(err))
	}
	defer producer.Close()

	// Initialize Kafka consumer for external payment confirmations
	consumer, err := kafka.InitConsumer(logger)
	if err != nil {
		logger.Fatal("Failed to initialize Kafka consumer", zap.Error(err))
	}
	defer consumer.Close()

	// Initialize OpenTelemetry
	shutdown, err := middleware.InitTracing("fulfillment-service")
	if err != nil {
		logger.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer shutdown()

	orderStore := store.NewOrderStore(db, logger)
	notifier := notify.NewDispatcher(db, producer, logger)

	var locks fulfillment.Locker
	var idem handlers.Idempotency
	if rdb != nil {
		locks = cache.NewOrderLocks(rdb)
		idem = cache.NewIdempotency(rdb)
	}
	machine := fulfillment.NewStateMachine(orderStore, notifier, locks, logger)

	// Start Kafka consumer in background
	go func() {
		if err := kafka.StartConsumer(consumer, orderStore, logger); err != nil {
			logger.Error("Kafka consumer error", zap.Error(err))
		}
	}()

	// Setup REST API with Gin
	router := gin.New()
	router.Use(gin.Recovery())
	// OpenTelemetry middleware must be first to extract trace context
	router.Use(otelgin.Middleware("fulfillment-service"))
	router.Use(middleware.LoggerMiddleware(logger))
	router.Use(middleware.MetricsMiddleware())

	// Health check endpoint
	router.GET("/health", handlers.HealthCheck)

	// Metrics endpoint
	router.GET("/metrics", middleware.PrometheusHandler())

	jwtSecret := []byte(getEnv("JWT_SECRET", "your-secret-key-change-in-production"))
	auth := middleware.Auth(jwtSecret)

	orderHandler := handlers.NewOrderHandler(orderStore, machine, notifier, producer, idem, logger)
	notificationHandler := handlers.NewNotificationHandler(notifier, logger)
	productHandler := handlers.NewProductHandler(db, rdb, logger)

	// Catalog reads are public; stock shown here is advisory only
	router.GET("/products", productHandler.GetProducts)
	router.GET("/products/:id", productHandler.GetProduct)

	orders := router.Group("/orders", auth)
	orders.POST("", middleware.RequireRole(middleware.RoleCustomer), orderHandler.CreateOrder)
	orders.GET("/myorders", middleware.RequireRole(middleware.RoleCustomer), orderHandler.MyOrders)
	orders.GET("", middleware.RequireRole(middleware.RoleAdmin, middleware.RoleAgent), orderHandler.ListOrders)
	orders.POST("/:id/arrival", middleware.RequireRole(middleware.RoleAdmin, middleware.RoleAgent), orderHandler.NotifyArrival)
	orders.PATCH("/:id/status", middleware.RequireRole(middleware.RoleAdmin, middleware.RoleAgent), orderHandler.UpdateStatus)

	notifications := router.Group("/notifications", auth)
	notifications.POST("/send", middleware.RequireRole(middleware.RoleAdmin), notificationHandler.Send)
	notifications.GET("/poll", notificationHandler.Poll)
	notifications.GET("/my", notificationHandler.History)

	// Start REST server
	srv := &http.Server{
		Addr:    ":" + getEnv("PORT", "8085"),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start REST server", zap.Error(err))
		}
	}()

	logger.Info("Fulfillment Service started", zap.String("addr", srv.Addr))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
