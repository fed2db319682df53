package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storefront/order-fulfillment/internal/adapter/mq"
	"github.com/storefront/order-fulfillment/internal/config"
)

const (
	totalOrders   = 50
	duplicateRate = 5 // every Nth order is published twice
	productID     = "flash-item"
)

type orderMessage struct {
	ID       string `json:"id"`
	Customer string `json:"customer"`
	ItemList []struct {
		ProductID string `json:"productId"`
		Quantity  int    `json:"quantity"`
	} `json:"itemList"`
}

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	cfg := config.Load()

	client, err := mq.NewClient(cfg.AMQPURL, mq.Topology{
		Exchange:           cfg.Exchange,
		Queue:              cfg.Queue,
		RoutingKey:         cfg.RoutingKey,
		DeadLetterExchange: cfg.DeadLetterExchange,
		DeadLetterQueue:    cfg.DeadLetterQueue,
	}, logger)
	if err != nil {
		logger.Fatal("failed to connect rabbitmq", zap.Error(err))
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	published := 0
	duplicates := 0
	start := time.Now()

	for i := 0; i < totalOrders; i++ {
		msg := orderMessage{
			ID:       uuid.NewString(),
			Customer: fmt.Sprintf("customer-%d", i),
		}
		msg.ItemList = append(msg.ItemList, struct {
			ProductID string `json:"productId"`
			Quantity  int    `json:"quantity"`
		}{ProductID: productID, Quantity: 1})

		body, err := json.Marshal(msg)
		if err != nil {
			logger.Fatal("failed to marshal order", zap.Error(err))
		}

		if err := client.Publish(ctx, body); err != nil {
			logger.Fatal("failed to publish order", zap.Error(err))
		}
		published++

		// Simulate at-least-once delivery: republish some orders
		// verbatim so dedup has something to suppress.
		if i%duplicateRate == 0 {
			if err := client.Publish(ctx, body); err != nil {
				logger.Fatal("failed to publish duplicate", zap.Error(err))
			}
			published++
			duplicates++
		}
	}

	logger.Info("load generation finished",
		zap.Int("orders", totalOrders),
		zap.Int("published", published),
		zap.Int("duplicates", duplicates),
		zap.Duration("elapsed", time.Since(start)),
	)
}
