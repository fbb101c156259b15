package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/saji-pos/api/internal/config"
	"github.com/saji-pos/api/internal/cursor"
	"github.com/saji-pos/api/internal/database"
	"github.com/saji-pos/api/internal/event"
	"github.com/saji-pos/api/internal/router"
	"github.com/saji-pos/api/internal/service"
	"github.com/saji-pos/api/internal/ws"
)

func main() {
	cfg := config.Load()

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Unable to ping database: %v", err)
	}
	log.Println("Connected to database")

	queries := database.New(pool)

	// Notification cursors: Redis when configured, in-memory otherwise.
	var cursors cursor.Store
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("Unable to ping redis: %v", err)
		}
		log.Println("Connected to redis")
		cursors = cursor.NewRedis(rdb)
	} else {
		log.Println("REDIS_ADDR not set, using in-memory notification cursors")
		cursors = cursor.NewMemory()
	}

	// Domain event wiring. The expense bridge turns stock purchases into
	// ledger entries; the hub subscriber fans order events out to
	// connected POS screens.
	bus := event.NewBus()
	bridge := service.NewExpenseBridge(queries)
	bus.SubscribeStockMovement(bridge.HandleStockMovement)

	hub := ws.NewHub()
	go hub.Run()
	bus.SubscribeOrder(func(ctx context.Context, e event.OrderEvent) {
		payload, err := json.Marshal(map[string]interface{}{
			"order_id":     e.Order.ID,
			"order_number": e.Order.OrderNumber,
			"status":       e.Order.Status,
		})
		if err != nil {
			return
		}
		hub.BroadcastToTenant(e.TenantID, ws.Event{Type: e.Type, Payload: payload})
	})

	r := router.New(cfg, queries, pool, bus, cursors, hub)

	log.Printf("Starting server on :%s", cfg.Port)
	if err := http.ListenAndServe(fmt.Sprintf(":%s", cfg.Port), r); err != nil {
		log.Fatal(err)
	}
}
