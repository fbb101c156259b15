package handler

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/saji-pos/api/internal/database"
	"github.com/shopspring/decimal"
)

// PrintHandler renders the print payloads a POS front end feeds to a
// receipt printer: the waiter check, the kitchen ticket and the
// customer receipt. Output is structured JSON, not raw ESC/POS.
type PrintHandler struct {
	store OrderStore
}

func NewPrintHandler(store OrderStore) *PrintHandler {
	return &PrintHandler{store: store}
}

// RegisterRoutes registers print endpoints on the given Chi router.
// Expected to be mounted inside a tenant-scoped subrouter: /tenants/{tid}/orders
func (h *PrintHandler) RegisterRoutes(r chi.Router) {
	r.Get("/{id}/print/waiter", h.document(buildWaiterDoc))
	r.Get("/{id}/print/kitchen", h.document(buildKitchenDoc))
	r.Get("/{id}/print/receipt", h.document(buildReceiptDoc))
}

// --- Response types ---

type printLineResponse struct {
	Name      string             `json:"name"`
	Variant   *string            `json:"variant"`
	Quantity  int32              `json:"quantity"`
	UnitPrice string             `json:"unit_price,omitempty"`
	Amount    string             `json:"amount,omitempty"`
	Notes     *string            `json:"notes"`
	Mods      []printModResponse `json:"modifiers,omitempty"`
}

type printModResponse struct {
	Name     string `json:"name"`
	Quantity int32  `json:"quantity"`
	Amount   string `json:"amount,omitempty"`
}

type printDocResponse struct {
	Document       string              `json:"document"`
	OrderNumber    string              `json:"order_number"`
	OrderType      string              `json:"order_type"`
	TableNumber    *string             `json:"table_number"`
	CustomerName   *string             `json:"customer_name"`
	Notes          *string             `json:"notes"`
	PrintedAt      time.Time           `json:"printed_at"`
	Lines          []printLineResponse `json:"lines"`
	Subtotal       string              `json:"subtotal,omitempty"`
	TaxAmount      string              `json:"tax_amount,omitempty"`
	ServiceCharge  string              `json:"service_charge,omitempty"`
	DiscountAmount string              `json:"discount_amount,omitempty"`
	Total          string              `json:"total,omitempty"`
	PaymentStatus  string              `json:"payment_status,omitempty"`
}

type printDocBuilder func(order database.Order, items []orderPrintItem) printDocResponse

type orderPrintItem struct {
	item database.OrderItem
	mods []database.OrderItemModifier
}

// document loads the order with its items and hands it to the builder.
func (h *PrintHandler) document(build printDocBuilder) http.HandlerFunc {
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

		order, err := h.store.GetOrder(r.Context(), database.GetOrderParams{
			ID:       orderID,
			TenantID: tenantID,
		})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
				return
			}
			log.Printf("ERROR: get order for print: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}

		rows, err := h.store.ListOrderItemsByOrder(r.Context(), orderID)
		if err != nil {
			log.Printf("ERROR: list order items for print: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}

		items := make([]orderPrintItem, len(rows))
		for i, item := range rows {
			mods, err := h.store.ListOrderItemModifiersByOrderItem(r.Context(), item.ID)
			if err != nil {
				log.Printf("ERROR: list modifiers for print: %v", err)
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
				return
			}
			items[i] = orderPrintItem{item: item, mods: mods}
		}

		writeJSON(w, http.StatusOK, build(order, items))
	}
}

// --- Builders ---

// buildKitchenDoc has no money on it: the kitchen only needs what to
// make and in what quantity.
func buildKitchenDoc(order database.Order, items []orderPrintItem) printDocResponse {
	doc := printDocHeader("kitchen", order)
	for _, pi := range items {
		line := printLineResponse{
			Name:     pi.item.ItemName,
			Variant:  textPtr(pi.item.VariantName),
			Quantity: pi.item.Quantity,
			Notes:    textPtr(pi.item.Notes),
		}
		for _, m := range pi.mods {
			line.Mods = append(line.Mods, printModResponse{Name: m.ModifierName, Quantity: m.Quantity})
		}
		doc.Lines = append(doc.Lines, line)
	}
	return doc
}

// buildWaiterDoc is the check the waiter carries to the table: what
// was ordered and in what quantity, no money on it.
func buildWaiterDoc(order database.Order, items []orderPrintItem) printDocResponse {
	doc := printDocHeader("waiter", order)
	for _, pi := range items {
		doc.Lines = append(doc.Lines, printLineResponse{
			Name:     pi.item.ItemName,
			Variant:  textPtr(pi.item.VariantName),
			Quantity: pi.item.Quantity,
			Notes:    textPtr(pi.item.Notes),
		})
	}
	return doc
}

// buildReceiptDoc is the customer-facing document: per-line unit
// prices and the full totals block.
func buildReceiptDoc(order database.Order, items []orderPrintItem) printDocResponse {
	doc := printDocHeader("receipt", order)
	doc.Lines = receiptLines(items)
	doc.Subtotal = formatMoney(order.Subtotal)
	doc.TaxAmount = formatMoney(order.TaxAmount)
	doc.ServiceCharge = formatMoney(order.ServiceCharge)
	doc.DiscountAmount = formatMoney(order.DiscountAmount)
	doc.Total = formatMoney(order.Total)
	doc.PaymentStatus = order.PaymentStatus
	return doc
}

func printDocHeader(document string, order database.Order) printDocResponse {
	return printDocResponse{
		Document:     document,
		OrderNumber:  order.OrderNumber,
		OrderType:    order.OrderType,
		TableNumber:  textPtr(order.TableNumber),
		CustomerName: textPtr(order.CustomerName),
		Notes:        textPtr(order.Notes),
		PrintedAt:    time.Now(),
	}
}

func receiptLines(items []orderPrintItem) []printLineResponse {
	lines := make([]printLineResponse, len(items))
	for i, pi := range items {
		line := printLineResponse{
			Name:      pi.item.ItemName,
			Variant:   textPtr(pi.item.VariantName),
			Quantity:  pi.item.Quantity,
			UnitPrice: formatMoney(pi.item.UnitPrice),
			Amount:    formatMoney(pi.item.Subtotal),
			Notes:     textPtr(pi.item.Notes),
		}
		for _, m := range pi.mods {
			line.Mods = append(line.Mods, printModResponse{
				Name:     m.ModifierName,
				Quantity: m.Quantity,
				Amount:   formatMoney(m.Price),
			})
		}
		lines[i] = line
	}
	return lines
}

// formatMoney renders an amount for the receipt: no decimals, comma as
// the thousands separator.
func formatMoney(n pgtype.Numeric) string {
	d := decimal.Zero
	if n.Valid {
		if val, err := n.Value(); err == nil && val != nil {
			if parsed, err := decimal.NewFromString(val.(string)); err == nil {
				d = parsed
			}
		}
	}
	s := d.Round(0).StringFixed(0)

	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
