package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/saji-pos/api/internal/auth"
	"github.com/saji-pos/api/internal/database"
	"github.com/saji-pos/api/internal/enum"
	"github.com/saji-pos/api/internal/handler"
	"github.com/saji-pos/api/internal/middleware"
)

// --- Mock KitchenServicer ---

type mockKitchenService struct {
	queueFn func(ctx context.Context, tenantID uuid.UUID, view string) ([]database.Order, error)
}

func (m *mockKitchenService) KitchenQueue(ctx context.Context, tenantID uuid.UUID, view string) ([]database.Order, error) {
	return m.queueFn(ctx, tenantID, view)
}

func setupKitchenRouter(svc *mockKitchenService, store *mockOrderStore) *chi.Mux {
	h := handler.NewKitchenHandler(svc, store)
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testJWTSecret))
	r.Route("/tenants/{tid}/kitchen", func(r chi.Router) {
		r.Use(middleware.RequireTenant)
		h.RegisterRoutes(r)
	})
	return r
}

func kitchenClaims(tenantID uuid.UUID) *auth.Claims {
	c := testClaims(tenantID)
	c.Role = enum.UserRoleKitchen
	return c
}

// --- Tests ---

func TestKitchenQueue_DefaultsToAll(t *testing.T) {
	tenantID := uuid.New()
	claims := kitchenClaims(tenantID)

	svc := &mockKitchenService{
		queueFn: func(ctx context.Context, tid uuid.UUID, view string) ([]database.Order, error) {
			if view != "all" {
				t.Errorf("view: got %q, want all", view)
			}
			return []database.Order{
				testOrder(tenantID, enum.OrderStatusConfirmed),
			}, nil
		},
	}

	router := setupKitchenRouter(svc, &mockOrderStore{})
	rr := doAuthRequest(t, router, "GET", "/tenants/"+tenantID.String()+"/kitchen/orders", nil, claims)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeBody(t, rr)
	if resp["view"] != "all" {
		t.Errorf("view: got %v, want all", resp["view"])
	}
	orders := resp["orders"].([]interface{})
	if len(orders) != 1 {
		t.Fatalf("orders: got %d, want 1", len(orders))
	}
}

func TestKitchenQueue_ViewPassedThrough(t *testing.T) {
	tenantID := uuid.New()
	claims := kitchenClaims(tenantID)

	svc := &mockKitchenService{
		queueFn: func(ctx context.Context, tid uuid.UUID, view string) ([]database.Order, error) {
			if view != "ready" {
				t.Errorf("view: got %q, want ready", view)
			}
			return nil, nil
		},
	}

	router := setupKitchenRouter(svc, &mockOrderStore{})
	rr := doAuthRequest(t, router, "GET", "/tenants/"+tenantID.String()+"/kitchen/orders?view=ready", nil, claims)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestKitchenQueue_InvalidView(t *testing.T) {
	tenantID := uuid.New()
	claims := kitchenClaims(tenantID)

	router := setupKitchenRouter(&mockKitchenService{}, &mockOrderStore{})
	rr := doAuthRequest(t, router, "GET", "/tenants/"+tenantID.String()+"/kitchen/orders?view=done", nil, claims)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestKitchenQueue_TicketsIncludeItems(t *testing.T) {
	tenantID := uuid.New()
	claims := kitchenClaims(tenantID)

	svc := &mockKitchenService{
		queueFn: func(ctx context.Context, tid uuid.UUID, view string) ([]database.Order, error) {
			return []database.Order{testOrder(tenantID, enum.OrderStatusPreparing)}, nil
		},
	}
	store := &mockOrderStore{
		listOrderItemsByOrdersFn: func(ctx context.Context, orderIDs []int64) ([]database.OrderItem, error) {
			return []database.OrderItem{
				{ID: 1, OrderID: orderIDs[0], ItemName: "Nasi Ayam", Quantity: 2, UnitPrice: testNumeric("35000.00"), Subtotal: testNumeric("70000.00")},
			}, nil
		},
		listOrderItemModsBatchFn: func(ctx context.Context, orderItemIDs []int64) ([]database.OrderItemModifier, error) {
			return []database.OrderItemModifier{
				{ID: 1, OrderItemID: orderItemIDs[0], ModifierName: "Extra sambal", Quantity: 1, Price: testNumeric("2000.00")},
			}, nil
		},
	}

	router := setupKitchenRouter(svc, store)
	rr := doAuthRequest(t, router, "GET", "/tenants/"+tenantID.String()+"/kitchen/orders?view=active", nil, claims)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeBody(t, rr)
	orders := resp["orders"].([]interface{})
	order := orders[0].(map[string]interface{})
	items := order["items"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("items: got %d, want 1", len(items))
	}
	item := items[0].(map[string]interface{})
	if item["item_name"] != "Nasi Ayam" {
		t.Errorf("item_name: got %v", item["item_name"])
	}
	mods := item["modifiers"].([]interface{})
	if len(mods) != 1 {
		t.Fatalf("modifiers: got %d, want 1", len(mods))
	}
}

func TestKitchenQueue_LoadsItemsInOneBatch(t *testing.T) {
	tenantID := uuid.New()
	claims := kitchenClaims(tenantID)

	first := testOrder(tenantID, enum.OrderStatusConfirmed)
	second := testOrder(tenantID, enum.OrderStatusPreparing)
	second.ID = first.ID + 1

	svc := &mockKitchenService{
		queueFn: func(ctx context.Context, tid uuid.UUID, view string) ([]database.Order, error) {
			return []database.Order{first, second}, nil
		},
	}

	itemCalls := 0
	modCalls := 0
	store := &mockOrderStore{
		listOrderItemsByOrdersFn: func(ctx context.Context, orderIDs []int64) ([]database.OrderItem, error) {
			itemCalls++
			if len(orderIDs) != 2 {
				t.Errorf("order IDs: got %v, want both queue orders", orderIDs)
			}
			return []database.OrderItem{
				{ID: 1, OrderID: first.ID, ItemName: "Es Teh", Quantity: 1, UnitPrice: testNumeric("8000.00"), Subtotal: testNumeric("8000.00")},
				{ID: 2, OrderID: second.ID, ItemName: "Nasi Goreng", Quantity: 1, UnitPrice: testNumeric("30000.00"), Subtotal: testNumeric("30000.00")},
			}, nil
		},
		listOrderItemModsBatchFn: func(ctx context.Context, orderItemIDs []int64) ([]database.OrderItemModifier, error) {
			modCalls++
			if len(orderItemIDs) != 2 {
				t.Errorf("order item IDs: got %v, want both items", orderItemIDs)
			}
			return []database.OrderItemModifier{}, nil
		},
	}

	router := setupKitchenRouter(svc, store)
	rr := doAuthRequest(t, router, "GET", "/tenants/"+tenantID.String()+"/kitchen/orders", nil, claims)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if itemCalls != 1 || modCalls != 1 {
		t.Errorf("store calls: items %d, modifiers %d, want 1 each", itemCalls, modCalls)
	}

	resp := decodeBody(t, rr)
	orders := resp["orders"].([]interface{})
	if len(orders) != 2 {
		t.Fatalf("orders: got %d, want 2", len(orders))
	}
	for i, want := range []string{"Es Teh", "Nasi Goreng"} {
		order := orders[i].(map[string]interface{})
		items := order["items"].([]interface{})
		if len(items) != 1 {
			t.Fatalf("order %d items: got %d, want 1", i, len(items))
		}
		if got := items[0].(map[string]interface{})["item_name"]; got != want {
			t.Errorf("order %d item_name: got %v, want %s", i, got, want)
		}
	}
}
