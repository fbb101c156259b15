package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/saji-pos/api/internal/database"
	"github.com/saji-pos/api/internal/middleware"
	"github.com/saji-pos/api/internal/service"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error)
	Confirm(ctx context.Context, tenantID uuid.UUID, orderID int64) (database.Order, error)
	StartPreparing(ctx context.Context, tenantID uuid.UUID, orderID int64) (database.Order, error)
	MarkReady(ctx context.Context, tenantID uuid.UUID, orderID int64) (database.Order, error)
	MarkServed(ctx context.Context, tenantID uuid.UUID, orderID int64) (database.Order, error)
	Complete(ctx context.Context, tenantID uuid.UUID, orderID int64) (database.Order, error)
	Cancel(ctx context.Context, tenantID uuid.UUID, orderID int64) (database.Order, error)
	MarkPaid(ctx context.Context, tenantID uuid.UUID, orderID int64) (database.Order, error)
}

// OrderStore defines the database methods needed by order read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID int64) ([]database.OrderItem, error)
	ListOrderItemModifiersByOrderItem(ctx context.Context, orderItemID int64) ([]database.OrderItemModifier, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc   OrderServicer
	store OrderStore
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, store OrderStore) *OrderHandler {
	return &OrderHandler{svc: svc, store: store}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Expected to be mounted inside a tenant-scoped subrouter: /tenants/{tid}/orders
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/confirm", h.transition(h.svc.Confirm))
	r.Post("/{id}/preparing", h.transition(h.svc.StartPreparing))
	r.Post("/{id}/ready", h.transition(h.svc.MarkReady))
	r.Post("/{id}/served", h.transition(h.svc.MarkServed))
	r.Post("/{id}/complete", h.transition(h.svc.Complete))
	r.Post("/{id}/cancel", h.transition(h.svc.Cancel))
	r.Post("/{id}/pay", h.transition(h.svc.MarkPaid))
}

// --- Request / Response types ---

type createOrderRequest struct {
	OrderType      string                   `json:"order_type"`
	TableNumber    string                   `json:"table_number"`
	CustomerName   string                   `json:"customer_name"`
	Notes          string                   `json:"notes"`
	TaxAmount      string                   `json:"tax_amount"`
	ServiceCharge  string                   `json:"service_charge"`
	DiscountAmount string                   `json:"discount_amount"`
	Items          []createOrderItemRequest `json:"items"`
}

type createOrderItemRequest struct {
	ItemName    string                           `json:"item_name"`
	VariantName string                           `json:"variant_name"`
	Quantity    int32                            `json:"quantity"`
	UnitPrice   string                           `json:"unit_price"`
	Notes       string                           `json:"notes"`
	Modifiers   []createOrderItemModifierRequest `json:"modifiers"`
}

type createOrderItemModifierRequest struct {
	ModifierName string `json:"modifier_name"`
	Quantity     int32  `json:"quantity"`
	Price        string `json:"price"`
}

type orderResponse struct {
	ID             int64               `json:"id"`
	TenantID       uuid.UUID           `json:"tenant_id"`
	OrderNumber    string              `json:"order_number"`
	OrderType      string              `json:"order_type"`
	Status         string              `json:"status"`
	PaymentStatus  string              `json:"payment_status"`
	TableNumber    *string             `json:"table_number"`
	CustomerName   *string             `json:"customer_name"`
	Notes          *string             `json:"notes"`
	Subtotal       string              `json:"subtotal"`
	TaxAmount      string              `json:"tax_amount"`
	ServiceCharge  string              `json:"service_charge"`
	DiscountAmount string              `json:"discount_amount"`
	Total          string              `json:"total"`
	CreatedBy      uuid.UUID           `json:"created_by"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
	PreparingAt    *time.Time          `json:"preparing_at"`
	ReadyAt        *time.Time          `json:"ready_at"`
	ServedAt       *time.Time          `json:"served_at"`
	PaidAt         *time.Time          `json:"paid_at"`
	Items          []orderItemResponse `json:"items,omitempty"`
}

type orderItemResponse struct {
	ID          int64                       `json:"id"`
	ItemName    string                      `json:"item_name"`
	VariantName *string                     `json:"variant_name"`
	Quantity    int32                       `json:"quantity"`
	UnitPrice   string                      `json:"unit_price"`
	Subtotal    string                      `json:"subtotal"`
	Notes       *string                     `json:"notes"`
	Modifiers   []orderItemModifierResponse `json:"modifiers"`
}

type orderItemModifierResponse struct {
	ID           int64  `json:"id"`
	ModifierName string `json:"modifier_name"`
	Quantity     int32  `json:"quantity"`
	Price        string `json:"price"`
}

// orderListResponse wraps a list of orders with pagination metadata.
type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// --- Handlers ---

// Create handles POST /tenants/{tid}/orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantIDFromRequest(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid tenant ID"})
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.OrderType == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "order_type is required"})
		return
	}
	if len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "items are required"})
		return
	}

	svcItems := make([]service.CreateOrderItemRequest, len(req.Items))
	for i, item := range req.Items {
		mods := make([]service.CreateOrderItemModifierRequest, len(item.Modifiers))
		for j, mod := range item.Modifiers {
			mods[j] = service.CreateOrderItemModifierRequest{
				ModifierName: mod.ModifierName,
				Quantity:     mod.Quantity,
				Price:        mod.Price,
			}
		}
		svcItems[i] = service.CreateOrderItemRequest{
			ItemName:    item.ItemName,
			VariantName: item.VariantName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Notes:       item.Notes,
			Modifiers:   mods,
		}
	}

	result, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		TenantID:       tenantID,
		CreatedBy:      claims.UserID,
		OrderType:      req.OrderType,
		TableNumber:    req.TableNumber,
		CustomerName:   req.CustomerName,
		Notes:          req.Notes,
		TaxAmount:      req.TaxAmount,
		ServiceCharge:  req.ServiceCharge,
		DiscountAmount: req.DiscountAmount,
		Items:          svcItems,
	})
	if err != nil {
		if isOrderValidationError(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: create order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(result))
}

// List handles GET /tenants/{tid}/orders.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantIDFromRequest(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid tenant ID"})
		return
	}

	limit, offset := parsePagination(r)

	params := database.ListOrdersParams{
		TenantID: tenantID,
		Limit:    int32(limit),
		Offset:   int32(offset),
	}
	if s := r.URL.Query().Get("status"); s != "" {
		params.Statuses = []string{s}
	}

	orders, err := h.store.ListOrders(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = dbOrderToResponse(o)
	}

	writeJSON(w, http.StatusOK, orderListResponse{
		Orders: resp,
		Limit:  limit,
		Offset: offset,
	})
}

// Get handles GET /tenants/{tid}/orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantIDFromRequest(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid tenant ID"})
		return
	}

	orderID, ok := idFromRequest(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.store.GetOrder(r.Context(), database.GetOrderParams{
		ID:       orderID,
		TenantID: tenantID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	items, err := h.store.ListOrderItemsByOrder(r.Context(), orderID)
	if err != nil {
		log.Printf("ERROR: list order items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	itemResponses := make([]orderItemResponse, len(items))
	for i, item := range items {
		mods, err := h.store.ListOrderItemModifiersByOrderItem(r.Context(), item.ID)
		if err != nil {
			log.Printf("ERROR: list order item modifiers: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		itemResponses[i] = dbOrderItemToResponse(item, mods)
	}

	resp := dbOrderToResponse(order)
	resp.Items = itemResponses

	writeJSON(w, http.StatusOK, resp)
}

// transition wraps a single state machine move as a handler.
func (h *OrderHandler) transition(fn func(context.Context, uuid.UUID, int64) (database.Order, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := tenantIDFromRequest(r)
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid tenant ID"})
			return
		}
		orderID, ok := idFromRequest(r)
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
			return
		}

		order, err := fn(r.Context(), tenantID, orderID)
		if err != nil {
			writeServiceError(w, "order transition", err)
			return
		}
		writeJSON(w, http.StatusOK, dbOrderToResponse(order))
	}
}

// --- Helpers ---

// isOrderValidationError checks if the error is a known validation error
// from the service layer that should result in 400 Bad Request.
func isOrderValidationError(err error) bool {
	return errors.Is(err, service.ErrEmptyItems) ||
		errors.Is(err, service.ErrInvalidOrderType) ||
		errors.Is(err, service.ErrInvalidQuantity) ||
		errors.Is(err, service.ErrEmptyItemName) ||
		errors.Is(err, service.ErrInvalidUnitPrice) ||
		errors.Is(err, service.ErrInvalidAdjustment)
}

func toOrderResponse(result *service.CreateOrderResult) orderResponse {
	resp := dbOrderToResponse(result.Order)
	resp.Items = make([]orderItemResponse, len(result.Items))
	for i, ir := range result.Items {
		resp.Items[i] = dbOrderItemToResponse(ir.Item, ir.Modifiers)
	}
	return resp
}

// dbOrderToResponse converts a database.Order to an orderResponse.
func dbOrderToResponse(o database.Order) orderResponse {
	return orderResponse{
		ID:             o.ID,
		TenantID:       o.TenantID,
		OrderNumber:    o.OrderNumber,
		OrderType:      o.OrderType,
		Status:         o.Status,
		PaymentStatus:  o.PaymentStatus,
		TableNumber:    textPtr(o.TableNumber),
		CustomerName:   textPtr(o.CustomerName),
		Notes:          textPtr(o.Notes),
		Subtotal:       numericToString(o.Subtotal),
		TaxAmount:      numericToString(o.TaxAmount),
		ServiceCharge:  numericToString(o.ServiceCharge),
		DiscountAmount: numericToString(o.DiscountAmount),
		Total:          numericToString(o.Total),
		CreatedBy:      o.CreatedBy,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
		PreparingAt:    timePtr(o.PreparingAt),
		ReadyAt:        timePtr(o.ReadyAt),
		ServedAt:       timePtr(o.ServedAt),
		PaidAt:         timePtr(o.PaidAt),
	}
}

// dbOrderItemToResponse converts a database.OrderItem and its modifiers to an orderItemResponse.
func dbOrderItemToResponse(item database.OrderItem, mods []database.OrderItemModifier) orderItemResponse {
	resp := orderItemResponse{
		ID:          item.ID,
		ItemName:    item.ItemName,
		VariantName: textPtr(item.VariantName),
		Quantity:    item.Quantity,
		UnitPrice:   numericToString(item.UnitPrice),
		Subtotal:    numericToString(item.Subtotal),
		Notes:       textPtr(item.Notes),
	}
	resp.Modifiers = make([]orderItemModifierResponse, len(mods))
	for j, mod := range mods {
		resp.Modifiers[j] = orderItemModifierResponse{
			ID:           mod.ID,
			ModifierName: mod.ModifierName,
			Quantity:     mod.Quantity,
			Price:        numericToString(mod.Price),
		}
	}
	return resp
}
