// Package event carries the synchronous domain events the services
// publish after their storage commits. Subscribers run inline on the
// publishing goroutine; a subscriber that needs isolation from the
// request should spawn its own goroutine.
package event

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/saji-pos/api/internal/database"
)

// StockMovementRecorded is published exactly once per stock movement,
// after the movement row is durably committed. It is never re-published
// for edits.
type StockMovementRecorded struct {
	Movement       database.StockMovement
	IngredientName string
}

// StockMovementHandler consumes StockMovementRecorded events.
type StockMovementHandler func(ctx context.Context, e StockMovementRecorded)

// Order event types.
const (
	OrderCreated       = "order.created"
	OrderStatusChanged = "order.status_changed"
)

// OrderEvent is published after an order write commits. Consumed by the
// websocket fan-out.
type OrderEvent struct {
	Type     string
	TenantID uuid.UUID
	Order    database.Order
}

type OrderHandler func(ctx context.Context, e OrderEvent)

// Bus is a minimal in-process publisher. Subscription happens during
// wiring, before any request is served, so the lock only guards against
// misuse.
type Bus struct {
	mu        sync.RWMutex
	stockSubs []StockMovementHandler
	orderSubs []OrderHandler
}

func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) SubscribeStockMovement(h StockMovementHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stockSubs = append(b.stockSubs, h)
}

func (b *Bus) PublishStockMovement(ctx context.Context, e StockMovementRecorded) {
	b.mu.RLock()
	subs := b.stockSubs
	b.mu.RUnlock()
	for _, h := range subs {
		h(ctx, e)
	}
}

func (b *Bus) SubscribeOrder(h OrderHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.orderSubs = append(b.orderSubs, h)
}

func (b *Bus) PublishOrder(ctx context.Context, e OrderEvent) {
	b.mu.RLock()
	subs := b.orderSubs
	b.mu.RUnlock()
	for _, h := range subs {
		h(ctx, e)
	}
}
