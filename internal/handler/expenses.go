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
	"github.com/saji-pos/api/internal/database"
	"github.com/saji-pos/api/internal/enum"
	"github.com/saji-pos/api/internal/middleware"
	"github.com/saji-pos/api/internal/service"
)

// ExpenseServicer defines the service methods needed by expense handlers.
// Satisfied by *service.ExpenseService; narrow interface for testability.
type ExpenseServicer interface {
	Create(ctx context.Context, tenantID, userID uuid.UUID, in service.ExpenseInput) (database.Expense, error)
	Get(ctx context.Context, tenantID uuid.UUID, id int64) (database.Expense, error)
	Update(ctx context.Context, tenantID uuid.UUID, id int64, in service.ExpenseInput) (database.Expense, error)
	Delete(ctx context.Context, tenantID uuid.UUID, id int64) error
	List(ctx context.Context, tenantID uuid.UUID, q service.ExpenseQuery) ([]database.Expense, error)
	Summarize(ctx context.Context, tenantID uuid.UUID, q service.ExpenseQuery) (*service.ExpenseSummary, error)
}

// ExpenseHandler handles the expense ledger endpoints.
type ExpenseHandler struct {
	svc ExpenseServicer
}

// NewExpenseHandler creates a new ExpenseHandler.
func NewExpenseHandler(svc ExpenseServicer) *ExpenseHandler {
	return &ExpenseHandler{svc: svc}
}

// RegisterRoutes registers expense endpoints on the given Chi router.
// Expected to be mounted inside a tenant-scoped subrouter: /tenants/{tid}/expenses
func (h *ExpenseHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/summary", h.Summary)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type expenseRequest struct {
	Category    string `json:"category"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	ExpenseDate string `json:"expense_date"`
	Reference   string `json:"reference"`
	Notes       string `json:"notes"`
}

type expenseResponse struct {
	ID              int64     `json:"id"`
	TenantID        uuid.UUID `json:"tenant_id"`
	Category        string    `json:"category"`
	CategoryLabel   string    `json:"category_label"`
	CategoryColor   string    `json:"category_color"`
	Description     string    `json:"description"`
	Amount          string    `json:"amount"`
	ExpenseDate     string    `json:"expense_date"`
	Reference       *string   `json:"reference"`
	Notes           *string   `json:"notes"`
	UserID          uuid.UUID `json:"user_id"`
	StockMovementID *int64    `json:"stock_movement_id"`
	IsStockLinked   bool      `json:"is_stock_linked"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type expenseListResponse struct {
	Expenses []expenseResponse `json:"expenses"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
}

type categorySummaryResponse struct {
	Category string `json:"category"`
	Label    string `json:"label"`
	Color    string `json:"color"`
	Total    string `json:"total"`
	Count    int64  `json:"count"`
}

type expenseSummaryResponse struct {
	Total      string                    `json:"total"`
	Count      int64                     `json:"count"`
	Categories []categorySummaryResponse `json:"categories"`
}

// --- Handlers ---

// Create handles POST /tenants/{tid}/expenses.
func (h *ExpenseHandler) Create(w http.ResponseWriter, r *http.Request) {
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

	var req expenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	expense, err := h.svc.Create(r.Context(), tenantID, claims.UserID, expenseInputFromRequest(req))
	if err != nil {
		if isExpenseValidationError(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: create expense: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, dbExpenseToResponse(expense))
}

// List handles GET /tenants/{tid}/expenses.
func (h *ExpenseHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantIDFromRequest(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid tenant ID"})
		return
	}

	q, err := expenseQueryFromRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	expenses, err := h.svc.List(r.Context(), tenantID, q)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCategory) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: list expenses: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]expenseResponse, len(expenses))
	for i, e := range expenses {
		resp[i] = dbExpenseToResponse(e)
	}

	writeJSON(w, http.StatusOK, expenseListResponse{
		Expenses: resp,
		Limit:    int(q.Limit),
		Offset:   int(q.Offset),
	})
}

// Summary handles GET /tenants/{tid}/expenses/summary.
func (h *ExpenseHandler) Summary(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantIDFromRequest(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid tenant ID"})
		return
	}

	q, err := expenseQueryFromRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	summary, err := h.svc.Summarize(r.Context(), tenantID, q)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCategory) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: expense summary: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := expenseSummaryResponse{
		Total: summary.Total.StringFixed(2),
		Count: summary.Count,
	}
	for _, c := range summary.Categories {
		resp.Categories = append(resp.Categories, categorySummaryResponse{
			Category: c.Category,
			Label:    c.Label,
			Color:    c.Color,
			Total:    c.Total.StringFixed(2),
			Count:    c.Count,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /tenants/{tid}/expenses/{id}.
func (h *ExpenseHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantIDFromRequest(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid tenant ID"})
		return
	}
	id, ok := idFromRequest(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid expense ID"})
		return
	}

	expense, err := h.svc.Get(r.Context(), tenantID, id)
	if err != nil {
		writeServiceError(w, "get expense", err)
		return
	}

	writeJSON(w, http.StatusOK, dbExpenseToResponse(expense))
}

// Update handles PUT /tenants/{tid}/expenses/{id}.
// Stock-linked expenses cannot be edited; the service answers 403.
func (h *ExpenseHandler) Update(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantIDFromRequest(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid tenant ID"})
		return
	}
	id, ok := idFromRequest(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid expense ID"})
		return
	}

	var req expenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	expense, err := h.svc.Update(r.Context(), tenantID, id, expenseInputFromRequest(req))
	if err != nil {
		if isExpenseValidationError(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		writeServiceError(w, "update expense", err)
		return
	}

	writeJSON(w, http.StatusOK, dbExpenseToResponse(expense))
}

// Delete handles DELETE /tenants/{tid}/expenses/{id}.
func (h *ExpenseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantIDFromRequest(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid tenant ID"})
		return
	}
	id, ok := idFromRequest(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid expense ID"})
		return
	}

	if err := h.svc.Delete(r.Context(), tenantID, id); err != nil {
		writeServiceError(w, "delete expense", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Helpers ---

func expenseInputFromRequest(req expenseRequest) service.ExpenseInput {
	return service.ExpenseInput{
		Category:    req.Category,
		Description: req.Description,
		Amount:      req.Amount,
		ExpenseDate: req.ExpenseDate,
		Reference:   req.Reference,
		Notes:       req.Notes,
	}
}

func expenseQueryFromRequest(r *http.Request) (service.ExpenseQuery, error) {
	start, end, err := parseDateRange(r)
	if err != nil {
		return service.ExpenseQuery{}, err
	}
	limit, offset := parsePagination(r)
	return service.ExpenseQuery{
		StartDate: start,
		EndDate:   end,
		Category:  r.URL.Query().Get("category"),
		Search:    r.URL.Query().Get("search"),
		Limit:     int32(limit),
		Offset:    int32(offset),
	}, nil
}

func isExpenseValidationError(err error) bool {
	return errors.Is(err, service.ErrInvalidCategory) ||
		errors.Is(err, service.ErrEmptyDescription) ||
		errors.Is(err, service.ErrDescriptionTooLong) ||
		errors.Is(err, service.ErrInvalidAmount) ||
		errors.Is(err, service.ErrInvalidExpenseDate) ||
		errors.Is(err, service.ErrReferenceTooLong) ||
		errors.Is(err, service.ErrNotesTooLong)
}

func dbExpenseToResponse(e database.Expense) expenseResponse {
	meta := enum.ExpenseCategoryInfo(e.Category)
	resp := expenseResponse{
		ID:            e.ID,
		TenantID:      e.TenantID,
		Category:      e.Category,
		CategoryLabel: meta.Label,
		CategoryColor: meta.Color,
		Description:   e.Description,
		Amount:        numericToString(e.Amount),
		ExpenseDate:   e.ExpenseDate.Time.Format("2006-01-02"),
		Reference:     textPtr(e.Reference),
		Notes:         textPtr(e.Notes),
		UserID:        e.UserID,
		IsStockLinked: e.StockMovementID.Valid,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
	if e.StockMovementID.Valid {
		id := e.StockMovementID.Int64
		resp.StockMovementID = &id
	}
	return resp
}
