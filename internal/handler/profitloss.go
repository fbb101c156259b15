package handler

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/saji-pos/api/internal/service"
)

// ProfitLossServicer defines the service methods needed by the report
// handler. Satisfied by *service.ProfitLossService.
type ProfitLossServicer interface {
	Report(ctx context.Context, tenantID uuid.UUID, start, end time.Time) (*service.ProfitLossReport, error)
}

// ProfitLossHandler serves the profit and loss report.
type ProfitLossHandler struct {
	svc ProfitLossServicer
}

func NewProfitLossHandler(svc ProfitLossServicer) *ProfitLossHandler {
	return &ProfitLossHandler{svc: svc}
}

// RegisterRoutes registers report endpoints on the given Chi router.
// Expected to be mounted inside a tenant-scoped subrouter: /tenants/{tid}/reports
func (h *ProfitLossHandler) RegisterRoutes(r chi.Router) {
	r.Get("/profit-loss", h.ProfitLoss)
}

// --- Response types ---

type incomeSummaryResponse struct {
	Subtotal       string `json:"subtotal"`
	TaxAmount      string `json:"tax_amount"`
	ServiceCharge  string `json:"service_charge"`
	DiscountAmount string `json:"discount_amount"`
	Total          string `json:"total"`
	OrderCount     int64  `json:"order_count"`
}

type expenseBreakdownResponse struct {
	Total       string                    `json:"total"`
	StockCost   string                    `json:"stock_cost"`
	Operational string                    `json:"operational"`
	Categories  []categorySummaryResponse `json:"categories"`
}

type dailyPointResponse struct {
	Date    string `json:"date"`
	Income  string `json:"income"`
	Expense string `json:"expense"`
	Net     string `json:"net"`
}

type profitLossResponse struct {
	StartDate  string                   `json:"start_date"`
	EndDate    string                   `json:"end_date"`
	Income     incomeSummaryResponse    `json:"income"`
	Expenses   expenseBreakdownResponse `json:"expenses"`
	NetProfit  string                   `json:"net_profit"`
	Margin     string                   `json:"margin"`
	DailyTrend []dailyPointResponse     `json:"daily_trend"`
}

// ProfitLoss handles GET /tenants/{tid}/reports/profit-loss.
// Defaults to the current calendar month when no range is given.
func (h *ProfitLossHandler) ProfitLoss(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantIDFromRequest(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid tenant ID"})
		return
	}

	start, end, err := parseDateRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	report, err := h.svc.Report(r.Context(), tenantID, start, end)
	if err != nil {
		log.Printf("ERROR: profit loss report: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := profitLossResponse{
		StartDate: report.StartDate,
		EndDate:   report.EndDate,
		Income: incomeSummaryResponse{
			Subtotal:       report.Income.Subtotal.StringFixed(2),
			TaxAmount:      report.Income.TaxAmount.StringFixed(2),
			ServiceCharge:  report.Income.ServiceCharge.StringFixed(2),
			DiscountAmount: report.Income.DiscountAmount.StringFixed(2),
			Total:          report.Income.Total.StringFixed(2),
			OrderCount:     report.Income.OrderCount,
		},
		Expenses: expenseBreakdownResponse{
			Total:       report.Expenses.Total.StringFixed(2),
			StockCost:   report.Expenses.StockCost.StringFixed(2),
			Operational: report.Expenses.Operational.StringFixed(2),
		},
		NetProfit: report.NetProfit.StringFixed(2),
		Margin:    report.Margin.StringFixed(2),
	}
	for _, c := range report.Expenses.Categories {
		resp.Expenses.Categories = append(resp.Expenses.Categories, categorySummaryResponse{
			Category: c.Category,
			Label:    c.Label,
			Color:    c.Color,
			Total:    c.Total.StringFixed(2),
			Count:    c.Count,
		})
	}
	for _, p := range report.DailyTrend {
		resp.DailyTrend = append(resp.DailyTrend, dailyPointResponse{
			Date:    p.Date,
			Income:  p.Income.StringFixed(2),
			Expense: p.Expense.StringFixed(2),
			Net:     p.Net.StringFixed(2),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}
