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

	"storefront/config"
	"storefront/internal/api"
	"storefront/internal/broker"
	"storefront/internal/gateway"
	"storefront/internal/pricing"
	"storefront/internal/redisclient"
	"storefront/internal/service"
	"storefront/internal/store"
	"storefront/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting storefront", zap.String("api", cfg.API.BaseURL))

	tp, err := util.InitTracer(util.ServiceName, cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	rates, err := pricing.ParseRates(cfg.Pricing.GSTRate, cfg.Pricing.DeliveryFee)
	if err != nil {
		log.Fatalf("Invalid pricing config: %v", err)
	}

	var opts []service.CheckoutOption
	var db *store.Store
	var redisClient *redisclient.Client

	if cfg.Database.URL != "" {
		db, err = store.NewStore(cfg.Database.URL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		migrateCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = db.Migrate(migrateCtx)
		cancel()
		if err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
		opts = append(opts, service.WithJournal(db))
		logger.Info("Checkout journal enabled")
	}

	if cfg.Redis.Addr != "" {
		redisClient, err = redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		opts = append(opts, service.WithLocker(redisClient))
		logger.Info("Checkout lock enabled", zap.String("addr", cfg.Redis.Addr))
	}

	if len(cfg.Kafka.Brokers) > 0 {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicCheckout)
		defer producer.Close()
		opts = append(opts, service.WithPublisher(broker.NewEventPublisher(producer)))
		logger.Info("Checkout events enabled", zap.String("topic", cfg.Kafka.TopicCheckout))
	}

	session := gateway.NewSession()
	client := gateway.New(cfg.API.BaseURL, session, gateway.WithTimeout(cfg.API.Timeout))

	svc := service.New(client, session, rates, cfg.Pricing.FromServer, service.CheckoutConfig{
		LockTTL:        cfg.Checkout.LockTTL,
		IdempotencyTTL: cfg.Checkout.IdempotencyTTL,
	}, opts...)

	ratesCtx, ratesCancel := context.WithTimeout(context.Background(), cfg.API.Timeout)
	svc.Rates.Load(ratesCtx)
	ratesCancel()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(svc)
	if db != nil {
		handler.WithDependency("postgres", db).WithJournal(db)
	}
	if redisClient != nil {
		handler.WithDependency("redis", redisClient).WithOrderResolver(redisClient)
	}
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
