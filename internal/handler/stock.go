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

// StockServicer defines the service methods needed by stock handlers.
// Satisfied by *service.StockService; narrow interface for testability.
type StockServicer interface {
	RecordMovement(ctx context.Context, req service.RecordMovementRequest) (database.StockMovement, error)
}

// StockStore defines the database methods needed by stock read handlers.
type StockStore interface {
	CreateIngredient(ctx context.Context, arg database.CreateIngredientParams) (database.Ingredient, error)
	GetIngredient(ctx context.Context, arg database.GetIngredientParams) (database.Ingredient, error)
	GetStockMovement(ctx context.Context, arg database.GetStockMovementParams) (database.StockMovement, error)
}

// StockHandler handles ingredient and stock movement endpoints.
type StockHandler struct {
	svc   StockServicer
	store StockStore
}

// NewStockHandler creates a new StockHandler.
func NewStockHandler(svc StockServicer, store StockStore) *StockHandler {
	return &StockHandler{svc: svc, store: store}
}

// RegisterRoutes registers stock endpoints on the given Chi router.
// Expected to be mounted inside a tenant-scoped subrouter: /tenants/{tid}/stock
func (h *StockHandler) RegisterRoutes(r chi.Router) {
	r.Post("/ingredients", h.CreateIngredient)
	r.Get("/ingredients/{id}", h.GetIngredient)
	r.Post("/movements", h.RecordMovement)
	r.Get("/movements/{id}", h.GetMovement)
}

// --- Request / Response types ---

type createIngredientRequest struct {
	Name string `json:"name"`
	Unit string `json:"unit"`
}

type ingredientResponse struct {
	ID        int64     `json:"id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	Name      string    `json:"name"`
	Unit      string    `json:"unit"`
	CreatedAt time.Time `json:"created_at"`
}

type recordMovementRequest struct {
	IngredientID int64  `json:"ingredient_id"`
	Type         string `json:"type"`
	Quantity     string `json:"quantity"`
	CostPerUnit  string `json:"cost_per_unit"`
	Reference    string `json:"reference"`
	Notes        string `json:"notes"`
}

type movementResponse struct {
	ID           int64     `json:"id"`
	TenantID     uuid.UUID `json:"tenant_id"`
	IngredientID int64     `json:"ingredient_id"`
	Type         string    `json:"type"`
	Quantity     string    `json:"quantity"`
	CostPerUnit  *string   `json:"cost_per_unit"`
	Reference    *string   `json:"reference"`
	Notes        *string   `json:"notes"`
	UserID       uuid.UUID `json:"user_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// --- Handlers ---

// CreateIngredient handles POST /tenants/{tid}/stock/ingredients.
func (h *StockHandler) CreateIngredient(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantIDFromRequest(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid tenant ID"})
		return
	}

	var req createIngredientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	if req.Unit == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unit is required"})
		return
	}

	ingredient, err := h.store.CreateIngredient(r.Context(), database.CreateIngredientParams{
		TenantID: tenantID,
		Name:     req.Name,
		Unit:     req.Unit,
	})
	if err != nil {
		log.Printf("ERROR: create ingredient: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, dbIngredientToResponse(ingredient))
}

// GetIngredient handles GET /tenants/{tid}/stock/ingredients/{id}.
func (h *StockHandler) GetIngredient(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantIDFromRequest(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid tenant ID"})
		return
	}
	id, ok := idFromRequest(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid ingredient ID"})
		return
	}

	ingredient, err := h.store.GetIngredient(r.Context(), database.GetIngredientParams{
		ID:       id,
		TenantID: tenantID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "ingredient not found"})
			return
		}
		log.Printf("ERROR: get ingredient: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, dbIngredientToResponse(ingredient))
}

// RecordMovement handles POST /tenants/{tid}/stock/movements.
// An inbound movement with a cost also produces a STOCK_PURCHASE
// expense through the bridge.
func (h *StockHandler) RecordMovement(w http.ResponseWriter, r *http.Request) {
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

	var req recordMovementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.IngredientID <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "ingredient_id is required"})
		return
	}

	movement, err := h.svc.RecordMovement(r.Context(), service.RecordMovementRequest{
		TenantID:     tenantID,
		UserID:       claims.UserID,
		IngredientID: req.IngredientID,
		Type:         req.Type,
		Quantity:     req.Quantity,
		CostPerUnit:  req.CostPerUnit,
		Reference:    req.Reference,
		Notes:        req.Notes,
	})
	if err != nil {
		if isStockValidationError(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		writeServiceError(w, "record stock movement", err)
		return
	}

	writeJSON(w, http.StatusCreated, dbMovementToResponse(movement))
}

// GetMovement handles GET /tenants/{tid}/stock/movements/{id}.
func (h *StockHandler) GetMovement(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantIDFromRequest(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid tenant ID"})
		return
	}
	id, ok := idFromRequest(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid movement ID"})
		return
	}

	movement, err := h.store.GetStockMovement(r.Context(), database.GetStockMovementParams{
		ID:       id,
		TenantID: tenantID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "movement not found"})
			return
		}
		log.Printf("ERROR: get stock movement: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, dbMovementToResponse(movement))
}

// --- Helpers ---

func isStockValidationError(err error) bool {
	return errors.Is(err, service.ErrInvalidMovementType) ||
		errors.Is(err, service.ErrInvalidStockQty) ||
		errors.Is(err, service.ErrInvalidCost)
}

func dbIngredientToResponse(i database.Ingredient) ingredientResponse {
	return ingredientResponse{
		ID:        i.ID,
		TenantID:  i.TenantID,
		Name:      i.Name,
		Unit:      i.Unit,
		CreatedAt: i.CreatedAt,
	}
}

func dbMovementToResponse(m database.StockMovement) movementResponse {
	resp := movementResponse{
		ID:           m.ID,
		TenantID:     m.TenantID,
		IngredientID: m.IngredientID,
		Type:         m.Type,
		Quantity:     numericToString(m.Quantity),
		Reference:    textPtr(m.Reference),
		Notes:        textPtr(m.Notes),
		UserID:       m.UserID,
		CreatedAt:    m.CreatedAt,
	}
	if m.CostPerUnit.Valid {
		s := numericToString(m.CostPerUnit)
		resp.CostPerUnit = &s
	}
	return resp
}
