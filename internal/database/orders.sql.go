package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, tenant_id, order_number, order_type, status, payment_status,
	table_number, customer_name, notes,
	subtotal, tax_amount, service_charge, discount_amount, total,
	created_by, created_at, updated_at, preparing_at, ready_at, served_at, paid_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.TenantID, &o.OrderNumber, &o.OrderType, &o.Status, &o.PaymentStatus,
		&o.TableNumber, &o.CustomerName, &o.Notes,
		&o.Subtotal, &o.TaxAmount, &o.ServiceCharge, &o.DiscountAmount, &o.Total,
		&o.CreatedBy, &o.CreatedAt, &o.UpdatedAt, &o.PreparingAt, &o.ReadyAt, &o.ServedAt, &o.PaidAt,
	)
	return o, err
}

func collectOrders(rows pgx.Rows) ([]Order, error) {
	defer rows.Close()
	var items []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}

const getNextOrderNumber = `
SELECT COALESCE(MAX(split_part(order_number, '-', 2)::int), 0) + 1
FROM orders
WHERE tenant_id = $1
`

// GetNextOrderNumber returns the next sequence number for a tenant's
// order_number. Racy by itself; callers retry on the unique violation.
func (q *Queries) GetNextOrderNumber(ctx context.Context, tenantID uuid.UUID) (int32, error) {
	var n int32
	err := q.db.QueryRow(ctx, getNextOrderNumber, tenantID).Scan(&n)
	return n, err
}

const createOrder = `
INSERT INTO orders (
	tenant_id, order_number, order_type, status, payment_status,
	table_number, customer_name, notes,
	subtotal, tax_amount, service_charge, discount_amount, total,
	created_by
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
RETURNING ` + orderColumns

type CreateOrderParams struct {
	TenantID       uuid.UUID
	OrderNumber    string
	OrderType      string
	Status         string
	PaymentStatus  string
	TableNumber    pgtype.Text
	CustomerName   pgtype.Text
	Notes          pgtype.Text
	Subtotal       pgtype.Numeric
	TaxAmount      pgtype.Numeric
	ServiceCharge  pgtype.Numeric
	DiscountAmount pgtype.Numeric
	Total          pgtype.Numeric
	CreatedBy      uuid.UUID
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.TenantID, arg.OrderNumber, arg.OrderType, arg.Status, arg.PaymentStatus,
		arg.TableNumber, arg.CustomerName, arg.Notes,
		arg.Subtotal, arg.TaxAmount, arg.ServiceCharge, arg.DiscountAmount, arg.Total,
		arg.CreatedBy,
	)
	return scanOrder(row)
}

const createOrderItem = `
INSERT INTO order_items (order_id, item_name, variant_name, quantity, unit_price, subtotal, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, order_id, item_name, variant_name, quantity, unit_price, subtotal, notes
`

type CreateOrderItemParams struct {
	OrderID     int64
	ItemName    string
	VariantName pgtype.Text
	Quantity    int32
	UnitPrice   pgtype.Numeric
	Subtotal    pgtype.Numeric
	Notes       pgtype.Text
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	var i OrderItem
	err := q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID, arg.ItemName, arg.VariantName, arg.Quantity, arg.UnitPrice, arg.Subtotal, arg.Notes,
	).Scan(&i.ID, &i.OrderID, &i.ItemName, &i.VariantName, &i.Quantity, &i.UnitPrice, &i.Subtotal, &i.Notes)
	return i, err
}

const createOrderItemModifier = `
INSERT INTO order_item_modifiers (order_item_id, modifier_name, quantity, price)
VALUES ($1, $2, $3, $4)
RETURNING id, order_item_id, modifier_name, quantity, price
`

type CreateOrderItemModifierParams struct {
	OrderItemID  int64
	ModifierName string
	Quantity     int32
	Price        pgtype.Numeric
}

func (q *Queries) CreateOrderItemModifier(ctx context.Context, arg CreateOrderItemModifierParams) (OrderItemModifier, error) {
	var m OrderItemModifier
	err := q.db.QueryRow(ctx, createOrderItemModifier,
		arg.OrderItemID, arg.ModifierName, arg.Quantity, arg.Price,
	).Scan(&m.ID, &m.OrderItemID, &m.ModifierName, &m.Quantity, &m.Price)
	return m, err
}

const getOrder = `
SELECT ` + orderColumns + `
FROM orders
WHERE id = $1 AND tenant_id = $2
`

type GetOrderParams struct {
	ID       int64
	TenantID uuid.UUID
}

func (q *Queries) GetOrder(ctx context.Context, arg GetOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, arg.ID, arg.TenantID))
}

const listOrders = `
SELECT ` + orderColumns + `
FROM orders
WHERE tenant_id = $1
  AND ($2::text[] IS NULL OR status = ANY($2))
ORDER BY created_at DESC, id DESC
LIMIT $3 OFFSET $4
`

type ListOrdersParams struct {
	TenantID uuid.UUID
	Statuses []string
	Limit    int32
	Offset   int32
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders, arg.TenantID, arg.Statuses, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

const listKitchenOrders = `
SELECT ` + orderColumns + `
FROM orders
WHERE tenant_id = $1 AND status = ANY($2)
ORDER BY created_at ASC, id ASC
`

type ListKitchenOrdersParams struct {
	TenantID uuid.UUID
	Statuses []string
}

// ListKitchenOrders returns the kitchen queue oldest-first. The
// created_at ASC, id ASC ordering is the FIFO fairness guarantee.
func (q *Queries) ListKitchenOrders(ctx context.Context, arg ListKitchenOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listKitchenOrders, arg.TenantID, arg.Statuses)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

const listOrderItemsByOrder = `
SELECT id, order_id, item_name, variant_name, quantity, unit_price, subtotal, notes
FROM order_items
WHERE order_id = $1
ORDER BY id
`

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID int64) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OrderItem
	for rows.Next() {
		var i OrderItem
		if err := rows.Scan(&i.ID, &i.OrderID, &i.ItemName, &i.VariantName, &i.Quantity, &i.UnitPrice, &i.Subtotal, &i.Notes); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listOrderItemModifiersByOrderItem = `
SELECT id, order_item_id, modifier_name, quantity, price
FROM order_item_modifiers
WHERE order_item_id = $1
ORDER BY id
`

func (q *Queries) ListOrderItemModifiersByOrderItem(ctx context.Context, orderItemID int64) ([]OrderItemModifier, error) {
	rows, err := q.db.Query(ctx, listOrderItemModifiersByOrderItem, orderItemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OrderItemModifier
	for rows.Next() {
		var m OrderItemModifier
		if err := rows.Scan(&m.ID, &m.OrderItemID, &m.ModifierName, &m.Quantity, &m.Price); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

const listOrderItemsByOrders = `
SELECT id, order_id, item_name, variant_name, quantity, unit_price, subtotal, notes
FROM order_items
WHERE order_id = ANY($1)
ORDER BY order_id, id
`

// ListOrderItemsByOrders loads the items for a batch of orders in one
// round trip, grouped by order_id in the ORDER BY.
func (q *Queries) ListOrderItemsByOrders(ctx context.Context, orderIDs []int64) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrders, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OrderItem
	for rows.Next() {
		var i OrderItem
		if err := rows.Scan(&i.ID, &i.OrderID, &i.ItemName, &i.VariantName, &i.Quantity, &i.UnitPrice, &i.Subtotal, &i.Notes); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listOrderItemModifiersByOrderItems = `
SELECT id, order_item_id, modifier_name, quantity, price
FROM order_item_modifiers
WHERE order_item_id = ANY($1)
ORDER BY order_item_id, id
`

func (q *Queries) ListOrderItemModifiersByOrderItems(ctx context.Context, orderItemIDs []int64) ([]OrderItemModifier, error) {
	rows, err := q.db.Query(ctx, listOrderItemModifiersByOrderItems, orderItemIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OrderItemModifier
	for rows.Next() {
		var m OrderItemModifier
		if err := rows.Scan(&m.ID, &m.OrderItemID, &m.ModifierName, &m.Quantity, &m.Price); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

// Status transitions are single-row compare-and-swap updates: the
// expected current status sits in the WHERE clause, so two concurrent
// calls can never both succeed. Zero rows means "wrong status or wrong
// tenant"; callers disambiguate with a follow-up GetOrder.

const transitionOrderStatus = `
UPDATE orders
SET status = $3, updated_at = now()
WHERE id = $1 AND tenant_id = $2 AND status = $4
RETURNING ` + orderColumns

type TransitionOrderStatusParams struct {
	ID         int64
	TenantID   uuid.UUID
	NewStatus  string
	FromStatus string
}

func (q *Queries) TransitionOrderStatus(ctx context.Context, arg TransitionOrderStatusParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, transitionOrderStatus, arg.ID, arg.TenantID, arg.NewStatus, arg.FromStatus))
}

const markOrderPreparing = `
UPDATE orders
SET status = $3, preparing_at = now(), updated_at = now()
WHERE id = $1 AND tenant_id = $2 AND status = $4
RETURNING ` + orderColumns

func (q *Queries) MarkOrderPreparing(ctx context.Context, arg TransitionOrderStatusParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, markOrderPreparing, arg.ID, arg.TenantID, arg.NewStatus, arg.FromStatus))
}

const markOrderReady = `
UPDATE orders
SET status = $3, ready_at = now(), updated_at = now()
WHERE id = $1 AND tenant_id = $2 AND status = $4
RETURNING ` + orderColumns

func (q *Queries) MarkOrderReady(ctx context.Context, arg TransitionOrderStatusParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, markOrderReady, arg.ID, arg.TenantID, arg.NewStatus, arg.FromStatus))
}

const markOrderServed = `
UPDATE orders
SET status = $3, served_at = now(), updated_at = now()
WHERE id = $1 AND tenant_id = $2 AND status = $4
RETURNING ` + orderColumns

func (q *Queries) MarkOrderServed(ctx context.Context, arg TransitionOrderStatusParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, markOrderServed, arg.ID, arg.TenantID, arg.NewStatus, arg.FromStatus))
}

const cancelOrder = `
UPDATE orders
SET status = $3, updated_at = now()
WHERE id = $1 AND tenant_id = $2 AND status = ANY($4)
RETURNING ` + orderColumns

type CancelOrderParams struct {
	ID           int64
	TenantID     uuid.UUID
	NewStatus    string
	FromStatuses []string
}

func (q *Queries) CancelOrder(ctx context.Context, arg CancelOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, cancelOrder, arg.ID, arg.TenantID, arg.NewStatus, arg.FromStatuses))
}

const markOrderPaid = `
UPDATE orders
SET payment_status = $3, paid_at = now(), updated_at = now()
WHERE id = $1 AND tenant_id = $2 AND payment_status = $4
RETURNING ` + orderColumns

type MarkOrderPaidParams struct {
	ID         int64
	TenantID   uuid.UUID
	NewStatus  string
	FromStatus string
}

func (q *Queries) MarkOrderPaid(ctx context.Context, arg MarkOrderPaidParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, markOrderPaid, arg.ID, arg.TenantID, arg.NewStatus, arg.FromStatus))
}

const maxOrderIDByStatus = `
SELECT COALESCE(MAX(id), 0)
FROM orders
WHERE tenant_id = $1 AND status = $2
`

type MaxOrderIDByStatusParams struct {
	TenantID uuid.UUID
	Status   string
}

func (q *Queries) MaxOrderIDByStatus(ctx context.Context, arg MaxOrderIDByStatusParams) (int64, error) {
	var id int64
	err := q.db.QueryRow(ctx, maxOrderIDByStatus, arg.TenantID, arg.Status).Scan(&id)
	return id, err
}

const listOrdersAfterID = `
SELECT ` + orderColumns + `
FROM orders
WHERE tenant_id = $1 AND status = $2 AND id > $3
ORDER BY id ASC
`

type ListOrdersAfterIDParams struct {
	TenantID uuid.UUID
	Status   string
	AfterID  int64
}

func (q *Queries) ListOrdersAfterID(ctx context.Context, arg ListOrdersAfterIDParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrdersAfterID, arg.TenantID, arg.Status, arg.AfterID)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

const countOrdersByStatuses = `
SELECT COUNT(*)
FROM orders
WHERE tenant_id = $1 AND status = ANY($2)
`

type CountOrdersByStatusesParams struct {
	TenantID uuid.UUID
	Statuses []string
}

func (q *Queries) CountOrdersByStatuses(ctx context.Context, arg CountOrdersByStatusesParams) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countOrdersByStatuses, arg.TenantID, arg.Statuses).Scan(&n)
	return n, err
}
