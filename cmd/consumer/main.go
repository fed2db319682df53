package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/storefront/order-fulfillment/internal/adapter/codec"
	"github.com/storefront/order-fulfillment/internal/adapter/handler"
	"github.com/storefront/order-fulfillment/internal/adapter/mq"
	"github.com/storefront/order-fulfillment/internal/adapter/storage"
	"github.com/storefront/order-fulfillment/internal/config"
	"github.com/storefront/order-fulfillment/internal/core/service"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize MySQL
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		logger.Fatal("failed to open mysql", zap.Error(err))
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		logger.Fatal("failed to ping mysql", zap.Error(err))
	}
	logger.Info("connected to mysql")

	// Initialize Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		PoolSize: 100,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal("failed to connect redis", zap.Error(err))
	}
	logger.Info("connected to redis")

	// Initialize adapters
	mysqlAdapter := storage.NewMySQLAdapter(db)
	recordStore := storage.NewRedisRecordStore(rdb)

	// Seed stock before workers start consuming
	if cfg.SeedProduct != "" {
		if err := mysqlAdapter.UpsertStock(ctx, cfg.SeedProduct, cfg.SeedStock); err != nil {
			logger.Fatal("failed to seed stock", zap.Error(err))
		}
		logger.Info("seeded stock",
			zap.String("product_id", cfg.SeedProduct),
			zap.Int("stock", cfg.SeedStock),
		)
	}

	// Initialize RabbitMQ
	mqClient, err := mq.NewClient(cfg.AMQPURL, mq.Topology{
		Exchange:           cfg.Exchange,
		Queue:              cfg.Queue,
		RoutingKey:         cfg.RoutingKey,
		DeadLetterExchange: cfg.DeadLetterExchange,
		DeadLetterQueue:    cfg.DeadLetterQueue,
	}, logger)
	if err != nil {
		logger.Fatal("failed to connect rabbitmq", zap.Error(err))
	}

	// Initialize service and intake
	fulfillment := service.NewFulfillmentService(recordStore, mysqlAdapter, mysqlAdapter, logger)
	intake := handler.NewMessageIntake(codec.NewJSONTransformer(), fulfillment, cfg.MessageTimeout, logger)

	deliveries, err := mqClient.Consume(cfg.WorkerCount)
	if err != nil {
		logger.Fatal("failed to start consuming", zap.Error(err))
	}

	workersDone := make(chan struct{})
	go func() {
		intake.ConsumeLoop(ctx, deliveries, cfg.WorkerCount)
		close(workersDone)
	}()
	logger.Info("started workers", zap.Int("count", cfg.WorkerCount))

	// Initialize ops HTTP server
	httpHandler := handler.NewHTTPHandler(mysqlAdapter, recordStore)
	router := mux.NewRouter()
	httpHandler.Register(router)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	go func() {
		logger.Info("ops http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("http server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	// Closing the channel ends the delivery stream; workers drain what
	// they already hold.
	if err := mqClient.Close(); err != nil {
		logger.Error("rabbitmq close error", zap.Error(err))
	}
	<-workersDone
	logger.Info("workers stopped")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	logger.Info("http server stopped")

	rdb.Close()
	db.Close()
	logger.Info("connections closed")
}
