package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/saji-pos/api/internal/database"
	"github.com/saji-pos/api/internal/enum"
	"github.com/saji-pos/api/internal/event"
	"github.com/shopspring/decimal"
)

const maxOrderNumberRetries = 3

// Errors returned by the order service.
var (
	ErrEmptyItems        = errors.New("items are required")
	ErrInvalidOrderType  = errors.New("invalid order_type")
	ErrInvalidQuantity   = errors.New("quantity must be > 0")
	ErrEmptyItemName     = errors.New("item_name is required")
	ErrInvalidUnitPrice  = errors.New("invalid unit_price")
	ErrInvalidAdjustment = errors.New("invalid tax/service/discount amount")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed to create orders.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetNextOrderNumber(ctx context.Context, tenantID uuid.UUID) (int32, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	CreateOrderItemModifier(ctx context.Context, arg database.CreateOrderItemModifierParams) (database.OrderItemModifier, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
type NewOrderStore func(db database.DBTX) OrderStore

// KitchenStore defines the DB methods behind the order lifecycle.
// Satisfied by *database.Queries; narrow interface for testability.
type KitchenStore interface {
	GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	ListKitchenOrders(ctx context.Context, arg database.ListKitchenOrdersParams) ([]database.Order, error)
	TransitionOrderStatus(ctx context.Context, arg database.TransitionOrderStatusParams) (database.Order, error)
	MarkOrderPreparing(ctx context.Context, arg database.TransitionOrderStatusParams) (database.Order, error)
	MarkOrderReady(ctx context.Context, arg database.TransitionOrderStatusParams) (database.Order, error)
	MarkOrderServed(ctx context.Context, arg database.TransitionOrderStatusParams) (database.Order, error)
	CancelOrder(ctx context.Context, arg database.CancelOrderParams) (database.Order, error)
	MarkOrderPaid(ctx context.Context, arg database.MarkOrderPaidParams) (database.Order, error)
}

// CreateOrderRequest is the validated input for creating an order.
// Items arrive as name/price snapshots; the catalog that produced them
// is not the core's concern. Monetary adjustments are fixed here at
// creation time and never recomputed.
type CreateOrderRequest struct {
	TenantID       uuid.UUID
	CreatedBy      uuid.UUID
	OrderType      string
	TableNumber    string
	CustomerName   string
	Notes          string
	TaxAmount      string
	ServiceCharge  string
	DiscountAmount string
	Items          []CreateOrderItemRequest
}

// CreateOrderItemRequest is a single item in the order.
type CreateOrderItemRequest struct {
	ItemName    string
	VariantName string
	Quantity    int32
	UnitPrice   string
	Notes       string
	Modifiers   []CreateOrderItemModifierRequest
}

// CreateOrderItemModifierRequest is a modifier on an order item.
type CreateOrderItemModifierRequest struct {
	ModifierName string
	Quantity     int32
	Price        string
}

// CreateOrderResult is the full created order with items.
type CreateOrderResult struct {
	Order database.Order
	Items []OrderItemResult
}

// OrderItemResult is an item with its modifiers.
type OrderItemResult struct {
	Item      database.OrderItem
	Modifiers []database.OrderItemModifier
}

// OrderService handles order creation and the status state machine.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
	store    KitchenStore
	bus      *event.Bus
}

// NewOrderService creates a new OrderService. bus may be nil when no
// subscriber cares about order events.
func NewOrderService(pool TxBeginner, newStore NewOrderStore, store KitchenStore, bus *event.Bus) *OrderService {
	return &OrderService{pool: pool, newStore: newStore, store: store, bus: bus}
}

// processedItem holds a prepared order item and its modifiers.
type processedItem struct {
	params    database.CreateOrderItemParams
	modifiers []database.CreateOrderItemModifierParams
}

// CreateOrder validates, calculates totals, and creates an order
// atomically. Retries up to maxOrderNumberRetries times on order_number
// unique constraint violations (race where concurrent transactions get
// the same MAX).
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	if err := validateOrderType(req.OrderType); err != nil {
		return nil, err
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	var lastErr error
	for attempt := 0; attempt < maxOrderNumberRetries; attempt++ {
		result, err := s.createOrderTx(ctx, req)
		if err == nil {
			if s.bus != nil {
				s.bus.PublishOrder(ctx, event.OrderEvent{
					Type:     event.OrderCreated,
					TenantID: req.TenantID,
					Order:    result.Order,
				})
			}
			return result, nil
		}
		if isOrderNumberConflict(err) {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

// isOrderNumberConflict checks if the error is a unique constraint
// violation on the order number (pgconn error code 23505).
func isOrderNumberConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "orders_tenant_id_order_number_key"
	}
	return false
}

// createOrderTx executes the full order creation in a single transaction.
func (s *OrderService) createOrderTx(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	nextNum, err := store.GetNextOrderNumber(ctx, req.TenantID)
	if err != nil {
		return nil, fmt.Errorf("get next order number: %w", err)
	}
	orderNumber := fmt.Sprintf("ORD-%03d", nextNum)

	// --- Process items: validate + calculate line totals ---
	orderSubtotal := decimal.Zero
	var items []processedItem

	for i, item := range req.Items {
		if item.ItemName == "" {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrEmptyItemName)
		}
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrInvalidQuantity)
		}
		unitPrice, err := decimal.NewFromString(item.UnitPrice)
		if err != nil || unitPrice.IsNegative() {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrInvalidUnitPrice)
		}

		modifiersTotal := decimal.Zero
		var itemModifiers []database.CreateOrderItemModifierParams
		for j, mod := range item.Modifiers {
			if mod.Quantity <= 0 {
				return nil, fmt.Errorf("items[%d].modifiers[%d]: %w", i, j, ErrInvalidQuantity)
			}
			modPrice, err := decimal.NewFromString(mod.Price)
			if err != nil || modPrice.IsNegative() {
				return nil, fmt.Errorf("items[%d].modifiers[%d]: %w", i, j, ErrInvalidUnitPrice)
			}
			modifiersTotal = modifiersTotal.Add(modPrice.Mul(decimal.NewFromInt32(mod.Quantity)))
			itemModifiers = append(itemModifiers, database.CreateOrderItemModifierParams{
				ModifierName: mod.ModifierName,
				Quantity:     mod.Quantity,
				Price:        decimalToNumeric(modPrice),
			})
		}

		// line subtotal = (unit_price * quantity) + modifiers_total
		itemSubtotal := unitPrice.Mul(decimal.NewFromInt32(item.Quantity)).Add(modifiersTotal)
		orderSubtotal = orderSubtotal.Add(itemSubtotal)

		items = append(items, processedItem{
			params: database.CreateOrderItemParams{
				ItemName:    item.ItemName,
				VariantName: textOrNull(item.VariantName),
				Quantity:    item.Quantity,
				UnitPrice:   decimalToNumeric(unitPrice),
				Subtotal:    decimalToNumeric(itemSubtotal),
				Notes:       textOrNull(item.Notes),
			},
			modifiers: itemModifiers,
		})
	}

	taxAmount, err := parseAmountOrZero(req.TaxAmount)
	if err != nil {
		return nil, err
	}
	serviceCharge, err := parseAmountOrZero(req.ServiceCharge)
	if err != nil {
		return nil, err
	}
	discountAmount, err := parseAmountOrZero(req.DiscountAmount)
	if err != nil {
		return nil, err
	}

	total := orderSubtotal.Add(taxAmount).Add(serviceCharge).Sub(discountAmount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		TenantID:       req.TenantID,
		OrderNumber:    orderNumber,
		OrderType:      req.OrderType,
		Status:         enum.OrderStatusPending,
		PaymentStatus:  enum.PaymentStatusUnpaid,
		TableNumber:    textOrNull(req.TableNumber),
		CustomerName:   textOrNull(req.CustomerName),
		Notes:          textOrNull(req.Notes),
		Subtotal:       decimalToNumeric(orderSubtotal),
		TaxAmount:      decimalToNumeric(taxAmount),
		ServiceCharge:  decimalToNumeric(serviceCharge),
		DiscountAmount: decimalToNumeric(discountAmount),
		Total:          decimalToNumeric(total),
		CreatedBy:      req.CreatedBy,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	var itemResults []OrderItemResult
	for _, pi := range items {
		pi.params.OrderID = order.ID
		item, err := store.CreateOrderItem(ctx, pi.params)
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}

		var modResults []database.OrderItemModifier
		for _, mod := range pi.modifiers {
			mod.OrderItemID = item.ID
			oim, err := store.CreateOrderItemModifier(ctx, mod)
			if err != nil {
				return nil, fmt.Errorf("create order item modifier: %w", err)
			}
			modResults = append(modResults, oim)
		}

		itemResults = append(itemResults, OrderItemResult{Item: item, Modifiers: modResults})
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &CreateOrderResult{Order: order, Items: itemResults}, nil
}

// --- State machine ---
//
// PENDING → CONFIRMED → PREPARING → READY → SERVED → COMPLETED,
// CANCELLED reachable from PENDING and CONFIRMED. Each transition is a
// single compare-and-swap update; a failed precondition is reported,
// never corrected.

// Confirm moves a pending order into the kitchen queue.
func (s *OrderService) Confirm(ctx context.Context, tenantID uuid.UUID, orderID int64) (database.Order, error) {
	order, err := s.store.TransitionOrderStatus(ctx, database.TransitionOrderStatusParams{
		ID:         orderID,
		TenantID:   tenantID,
		NewStatus:  enum.OrderStatusConfirmed,
		FromStatus: enum.OrderStatusPending,
	})
	return s.finishTransition(ctx, tenantID, orderID, order, err, enum.OrderStatusConfirmed)
}

// StartPreparing records that the kitchen picked the order up.
// Requires CONFIRMED; sets preparing_at exactly once.
func (s *OrderService) StartPreparing(ctx context.Context, tenantID uuid.UUID, orderID int64) (database.Order, error) {
	order, err := s.store.MarkOrderPreparing(ctx, database.TransitionOrderStatusParams{
		ID:         orderID,
		TenantID:   tenantID,
		NewStatus:  enum.OrderStatusPreparing,
		FromStatus: enum.OrderStatusConfirmed,
	})
	return s.finishTransition(ctx, tenantID, orderID, order, err, enum.OrderStatusPreparing)
}

// MarkReady requires PREPARING; sets ready_at.
func (s *OrderService) MarkReady(ctx context.Context, tenantID uuid.UUID, orderID int64) (database.Order, error) {
	order, err := s.store.MarkOrderReady(ctx, database.TransitionOrderStatusParams{
		ID:         orderID,
		TenantID:   tenantID,
		NewStatus:  enum.OrderStatusReady,
		FromStatus: enum.OrderStatusPreparing,
	})
	return s.finishTransition(ctx, tenantID, orderID, order, err, enum.OrderStatusReady)
}

// MarkServed requires READY; sets served_at.
func (s *OrderService) MarkServed(ctx context.Context, tenantID uuid.UUID, orderID int64) (database.Order, error) {
	order, err := s.store.MarkOrderServed(ctx, database.TransitionOrderStatusParams{
		ID:         orderID,
		TenantID:   tenantID,
		NewStatus:  enum.OrderStatusServed,
		FromStatus: enum.OrderStatusReady,
	})
	return s.finishTransition(ctx, tenantID, orderID, order, err, enum.OrderStatusServed)
}

// Complete closes out a served order.
func (s *OrderService) Complete(ctx context.Context, tenantID uuid.UUID, orderID int64) (database.Order, error) {
	order, err := s.store.TransitionOrderStatus(ctx, database.TransitionOrderStatusParams{
		ID:         orderID,
		TenantID:   tenantID,
		NewStatus:  enum.OrderStatusCompleted,
		FromStatus: enum.OrderStatusServed,
	})
	return s.finishTransition(ctx, tenantID, orderID, order, err, enum.OrderStatusCompleted)
}

// Cancel is allowed before the kitchen starts: PENDING or CONFIRMED.
func (s *OrderService) Cancel(ctx context.Context, tenantID uuid.UUID, orderID int64) (database.Order, error) {
	order, err := s.store.CancelOrder(ctx, database.CancelOrderParams{
		ID:           orderID,
		TenantID:     tenantID,
		NewStatus:    enum.OrderStatusCancelled,
		FromStatuses: []string{enum.OrderStatusPending, enum.OrderStatusConfirmed},
	})
	return s.finishTransition(ctx, tenantID, orderID, order, err, enum.OrderStatusCancelled)
}

// MarkPaid flips payment_status UNPAID → PAID and stamps paid_at.
func (s *OrderService) MarkPaid(ctx context.Context, tenantID uuid.UUID, orderID int64) (database.Order, error) {
	order, err := s.store.MarkOrderPaid(ctx, database.MarkOrderPaidParams{
		ID:         orderID,
		TenantID:   tenantID,
		NewStatus:  enum.PaymentStatusPaid,
		FromStatus: enum.PaymentStatusUnpaid,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return s.explainFailure(ctx, tenantID, orderID, "payment status")
		}
		return database.Order{}, fmt.Errorf("mark paid: %w", err)
	}
	return order, nil
}

// KitchenQueue returns the orders a kitchen display view shows,
// oldest-first. view is "all", "active" or "ready".
func (s *OrderService) KitchenQueue(ctx context.Context, tenantID uuid.UUID, view string) ([]database.Order, error) {
	return s.store.ListKitchenOrders(ctx, database.ListKitchenOrdersParams{
		TenantID: tenantID,
		Statuses: enum.KitchenStatuses(view),
	})
}

// finishTransition turns the CAS result into the error taxonomy and
// publishes the status event on success.
func (s *OrderService) finishTransition(ctx context.Context, tenantID uuid.UUID, orderID int64, order database.Order, err error, target string) (database.Order, error) {
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return s.explainFailure(ctx, tenantID, orderID, target)
		}
		return database.Order{}, fmt.Errorf("transition to %s: %w", target, err)
	}
	if s.bus != nil {
		s.bus.PublishOrder(ctx, event.OrderEvent{
			Type:     event.OrderStatusChanged,
			TenantID: tenantID,
			Order:    order,
		})
	}
	return order, nil
}

// explainFailure disambiguates a zero-row CAS: the order is either
// missing (or another tenant's — same thing) or in the wrong state.
func (s *OrderService) explainFailure(ctx context.Context, tenantID uuid.UUID, orderID int64, target string) (database.Order, error) {
	current, err := s.store.GetOrder(ctx, database.GetOrderParams{ID: orderID, TenantID: tenantID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrNotFound
		}
		return database.Order{}, fmt.Errorf("get order: %w", err)
	}
	return database.Order{}, fmt.Errorf("%w: %s cannot move to %s", ErrInvalidTransition, current.Status, target)
}

// --- Helpers ---

func validateOrderType(s string) error {
	switch s {
	case enum.OrderTypeDineIn, enum.OrderTypeTakeaway:
		return nil
	}
	return ErrInvalidOrderType
}

func parseAmountOrZero(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return decimal.Zero, ErrInvalidAdjustment
	}
	return d, nil
}
