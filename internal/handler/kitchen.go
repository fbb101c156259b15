package handler

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/saji-pos/api/internal/database"
)

// KitchenServicer defines the service methods needed by the kitchen
// display handlers.
type KitchenServicer interface {
	KitchenQueue(ctx context.Context, tenantID uuid.UUID, view string) ([]database.Order, error)
}

// KitchenItemStore loads the items shown on the kitchen tickets, one
// batched query per level instead of one per order.
type KitchenItemStore interface {
	ListOrderItemsByOrders(ctx context.Context, orderIDs []int64) ([]database.OrderItem, error)
	ListOrderItemModifiersByOrderItems(ctx context.Context, orderItemIDs []int64) ([]database.OrderItemModifier, error)
}

// KitchenHandler serves the kitchen display queue.
type KitchenHandler struct {
	svc   KitchenServicer
	store KitchenItemStore
}

func NewKitchenHandler(svc KitchenServicer, store KitchenItemStore) *KitchenHandler {
	return &KitchenHandler{svc: svc, store: store}
}

// RegisterRoutes registers kitchen endpoints on the given Chi router.
// Expected to be mounted inside a tenant-scoped subrouter: /tenants/{tid}/kitchen
func (h *KitchenHandler) RegisterRoutes(r chi.Router) {
	r.Get("/orders", h.Queue)
}

type kitchenQueueResponse struct {
	View   string          `json:"view"`
	Orders []orderResponse `json:"orders"`
}

// Queue handles GET /tenants/{tid}/kitchen/orders?view=all|active|ready.
// Orders come back oldest-first so the kitchen works the queue fairly.
func (h *KitchenHandler) Queue(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantIDFromRequest(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid tenant ID"})
		return
	}

	view := r.URL.Query().Get("view")
	if view == "" {
		view = "all"
	}
	switch view {
	case "all", "active", "ready":
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid view, use all, active or ready"})
		return
	}

	orders, err := h.svc.KitchenQueue(r.Context(), tenantID, view)
	if err != nil {
		log.Printf("ERROR: kitchen queue: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, len(orders))
	if len(orders) == 0 {
		writeJSON(w, http.StatusOK, kitchenQueueResponse{View: view, Orders: resp})
		return
	}

	orderIDs := make([]int64, len(orders))
	for i, o := range orders {
		orderIDs[i] = o.ID
	}
	items, err := h.store.ListOrderItemsByOrders(r.Context(), orderIDs)
	if err != nil {
		log.Printf("ERROR: kitchen order items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	itemIDs := make([]int64, len(items))
	for i, item := range items {
		itemIDs[i] = item.ID
	}
	mods, err := h.store.ListOrderItemModifiersByOrderItems(r.Context(), itemIDs)
	if err != nil {
		log.Printf("ERROR: kitchen order item modifiers: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	modsByItem := make(map[int64][]database.OrderItemModifier, len(items))
	for _, m := range mods {
		modsByItem[m.OrderItemID] = append(modsByItem[m.OrderItemID], m)
	}
	itemsByOrder := make(map[int64][]database.OrderItem, len(orders))
	for _, item := range items {
		itemsByOrder[item.OrderID] = append(itemsByOrder[item.OrderID], item)
	}

	for i, o := range orders {
		or := dbOrderToResponse(o)
		orderItems := itemsByOrder[o.ID]
		or.Items = make([]orderItemResponse, len(orderItems))
		for j, item := range orderItems {
			or.Items[j] = dbOrderItemToResponse(item, modsByItem[item.ID])
		}
		resp[i] = or
	}

	writeJSON(w, http.StatusOK, kitchenQueueResponse{View: view, Orders: resp})
}
