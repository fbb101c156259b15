package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/saji-pos/api/internal/database"
	"github.com/saji-pos/api/internal/enum"
	"github.com/saji-pos/api/internal/event"
	"github.com/shopspring/decimal"
)

// --- Mock implementations ---

// mockTx implements pgx.Tx with only the methods we need.
// The unused methods panic so we catch accidental calls.
type mockTx struct {
	commitErr   error
	rollbackErr error
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error          { return m.commitErr }
func (m *mockTx) Rollback(ctx context.Context) error        { return m.rollbackErr }
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

// mockTxBeginner implements TxBeginner.
type mockTxBeginner struct {
	tx  pgx.Tx
	err error
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	return m.tx, m.err
}

// mockOrderStore implements OrderStore with configurable behavior.
type mockOrderStore struct {
	getNextOrderNumberFn func(ctx context.Context, tenantID uuid.UUID) (int32, error)
	createOrderFn        func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	createOrderItemFn    func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	createOrderItemModFn func(ctx context.Context, arg database.CreateOrderItemModifierParams) (database.OrderItemModifier, error)
}

func (m *mockOrderStore) GetNextOrderNumber(ctx context.Context, tenantID uuid.UUID) (int32, error) {
	return m.getNextOrderNumberFn(ctx, tenantID)
}
func (m *mockOrderStore) CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
	return m.createOrderFn(ctx, arg)
}
func (m *mockOrderStore) CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
	return m.createOrderItemFn(ctx, arg)
}
func (m *mockOrderStore) CreateOrderItemModifier(ctx context.Context, arg database.CreateOrderItemModifierParams) (database.OrderItemModifier, error) {
	return m.createOrderItemModFn(ctx, arg)
}

// mockKitchenStore implements KitchenStore with configurable behavior.
type mockKitchenStore struct {
	getOrderFn           func(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	listKitchenOrdersFn  func(ctx context.Context, arg database.ListKitchenOrdersParams) ([]database.Order, error)
	transitionFn         func(ctx context.Context, arg database.TransitionOrderStatusParams) (database.Order, error)
	markOrderPreparingFn func(ctx context.Context, arg database.TransitionOrderStatusParams) (database.Order, error)
	markOrderReadyFn     func(ctx context.Context, arg database.TransitionOrderStatusParams) (database.Order, error)
	markOrderServedFn    func(ctx context.Context, arg database.TransitionOrderStatusParams) (database.Order, error)
	cancelOrderFn        func(ctx context.Context, arg database.CancelOrderParams) (database.Order, error)
	markOrderPaidFn      func(ctx context.Context, arg database.MarkOrderPaidParams) (database.Order, error)
}

func (m *mockKitchenStore) GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error) {
	return m.getOrderFn(ctx, arg)
}
func (m *mockKitchenStore) ListKitchenOrders(ctx context.Context, arg database.ListKitchenOrdersParams) ([]database.Order, error) {
	return m.listKitchenOrdersFn(ctx, arg)
}
func (m *mockKitchenStore) TransitionOrderStatus(ctx context.Context, arg database.TransitionOrderStatusParams) (database.Order, error) {
	return m.transitionFn(ctx, arg)
}
func (m *mockKitchenStore) MarkOrderPreparing(ctx context.Context, arg database.TransitionOrderStatusParams) (database.Order, error) {
	return m.markOrderPreparingFn(ctx, arg)
}
func (m *mockKitchenStore) MarkOrderReady(ctx context.Context, arg database.TransitionOrderStatusParams) (database.Order, error) {
	return m.markOrderReadyFn(ctx, arg)
}
func (m *mockKitchenStore) MarkOrderServed(ctx context.Context, arg database.TransitionOrderStatusParams) (database.Order, error) {
	return m.markOrderServedFn(ctx, arg)
}
func (m *mockKitchenStore) CancelOrder(ctx context.Context, arg database.CancelOrderParams) (database.Order, error) {
	return m.cancelOrderFn(ctx, arg)
}
func (m *mockKitchenStore) MarkOrderPaid(ctx context.Context, arg database.MarkOrderPaidParams) (database.Order, error) {
	return m.markOrderPaidFn(ctx, arg)
}

// --- Test helpers ---

func makeNumeric(val string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(val)
	return n
}

func numericEquals(n pgtype.Numeric, expected string) bool {
	d := numericToDecimal(n)
	exp, _ := decimal.NewFromString(expected)
	return d.Equal(exp)
}

// newTestService creates an OrderService with mocked dependencies.
// store is the mock OrderStore that will be returned by the NewOrderStore factory.
func newTestService(store *mockOrderStore) *OrderService {
	tx := &mockTx{}
	pool := &mockTxBeginner{tx: tx}
	newStore := func(db database.DBTX) OrderStore { return store }
	return NewOrderService(pool, newStore, nil, nil)
}

// defaultStore returns a mockOrderStore with sensible defaults.
// Individual tests override the functions they care about.
func defaultStore() *mockOrderStore {
	nextItemID := int64(0)
	return &mockOrderStore{
		getNextOrderNumberFn: func(ctx context.Context, tid uuid.UUID) (int32, error) {
			return 1, nil
		},
		createOrderFn: func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
			return database.Order{
				ID:             42,
				TenantID:       arg.TenantID,
				OrderNumber:    arg.OrderNumber,
				OrderType:      arg.OrderType,
				Status:         arg.Status,
				PaymentStatus:  arg.PaymentStatus,
				Subtotal:       arg.Subtotal,
				TaxAmount:      arg.TaxAmount,
				ServiceCharge:  arg.ServiceCharge,
				DiscountAmount: arg.DiscountAmount,
				Total:          arg.Total,
				CreatedBy:      arg.CreatedBy,
			}, nil
		},
		createOrderItemFn: func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
			nextItemID++
			return database.OrderItem{
				ID:        nextItemID,
				OrderID:   arg.OrderID,
				ItemName:  arg.ItemName,
				Quantity:  arg.Quantity,
				UnitPrice: arg.UnitPrice,
				Subtotal:  arg.Subtotal,
				Notes:     arg.Notes,
			}, nil
		},
		createOrderItemModFn: func(ctx context.Context, arg database.CreateOrderItemModifierParams) (database.OrderItemModifier, error) {
			return database.OrderItemModifier{
				ID:           1,
				OrderItemID:  arg.OrderItemID,
				ModifierName: arg.ModifierName,
				Quantity:     arg.Quantity,
				Price:        arg.Price,
			}, nil
		},
	}
}

func basicReq(tenantID uuid.UUID) CreateOrderRequest {
	return CreateOrderRequest{
		TenantID:  tenantID,
		CreatedBy: uuid.New(),
		OrderType: enum.OrderTypeDineIn,
		Items: []CreateOrderItemRequest{
			{ItemName: "Es Kopi Susu", Quantity: 2, UnitPrice: "25000.00"},
		},
	}
}

// =====================
// Validation tests
// =====================

func TestCreateOrder_EmptyItems(t *testing.T) {
	svc := newTestService(defaultStore())
	req := basicReq(uuid.New())
	req.Items = nil

	_, err := svc.CreateOrder(context.Background(), req)
	if !errors.Is(err, ErrEmptyItems) {
		t.Fatalf("expected ErrEmptyItems, got %v", err)
	}
}

func TestCreateOrder_InvalidOrderType(t *testing.T) {
	svc := newTestService(defaultStore())
	req := basicReq(uuid.New())
	req.OrderType = "DELIVERY"

	_, err := svc.CreateOrder(context.Background(), req)
	if !errors.Is(err, ErrInvalidOrderType) {
		t.Fatalf("expected ErrInvalidOrderType, got %v", err)
	}
}

func TestCreateOrder_InvalidQuantity(t *testing.T) {
	svc := newTestService(defaultStore())
	req := basicReq(uuid.New())
	req.Items[0].Quantity = 0

	_, err := svc.CreateOrder(context.Background(), req)
	if !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
}

func TestCreateOrder_EmptyItemName(t *testing.T) {
	svc := newTestService(defaultStore())
	req := basicReq(uuid.New())
	req.Items[0].ItemName = ""

	_, err := svc.CreateOrder(context.Background(), req)
	if !errors.Is(err, ErrEmptyItemName) {
		t.Fatalf("expected ErrEmptyItemName, got %v", err)
	}
}

func TestCreateOrder_InvalidUnitPrice(t *testing.T) {
	svc := newTestService(defaultStore())
	req := basicReq(uuid.New())
	req.Items[0].UnitPrice = "-5.00"

	_, err := svc.CreateOrder(context.Background(), req)
	if !errors.Is(err, ErrInvalidUnitPrice) {
		t.Fatalf("expected ErrInvalidUnitPrice, got %v", err)
	}
}

// =====================
// Calculation tests
// =====================

func TestCreateOrder_Totals(t *testing.T) {
	store := defaultStore()
	svc := newTestService(store)

	req := basicReq(uuid.New())
	req.Items = []CreateOrderItemRequest{
		{
			ItemName:  "Nasi Ayam Bakar",
			Quantity:  2,
			UnitPrice: "30000.00",
			Modifiers: []CreateOrderItemModifierRequest{
				{ModifierName: "Extra sambal", Quantity: 1, Price: "3000.00"},
			},
		},
		{ItemName: "Es Teh", Quantity: 1, UnitPrice: "8000.00"},
	}
	req.TaxAmount = "7100.00"
	req.ServiceCharge = "3550.00"
	req.DiscountAmount = "1650.00"

	result, err := svc.CreateOrder(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// item 1: 2*30000 + 3000 = 63000, item 2: 8000, subtotal 71000
	if !numericEquals(result.Order.Subtotal, "71000.00") {
		t.Errorf("subtotal = %s, want 71000.00", numericToDecimal(result.Order.Subtotal))
	}
	// total: 71000 + 7100 + 3550 - 1650 = 80000
	if !numericEquals(result.Order.Total, "80000.00") {
		t.Errorf("total = %s, want 80000.00", numericToDecimal(result.Order.Total))
	}
	if result.Order.Status != enum.OrderStatusPending {
		t.Errorf("status = %s, want PENDING", result.Order.Status)
	}
	if result.Order.PaymentStatus != enum.PaymentStatusUnpaid {
		t.Errorf("payment_status = %s, want UNPAID", result.Order.PaymentStatus)
	}
	if result.Order.OrderNumber != "ORD-001" {
		t.Errorf("order_number = %s, want ORD-001", result.Order.OrderNumber)
	}
	if len(result.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(result.Items))
	}
	if !numericEquals(result.Items[0].Item.Subtotal, "63000.00") {
		t.Errorf("item subtotal = %s, want 63000.00", numericToDecimal(result.Items[0].Item.Subtotal))
	}
}

func TestCreateOrder_TotalFlooredAtZero(t *testing.T) {
	svc := newTestService(defaultStore())
	req := basicReq(uuid.New())
	req.Items = []CreateOrderItemRequest{
		{ItemName: "Es Teh", Quantity: 1, UnitPrice: "8000.00"},
	}
	req.DiscountAmount = "10000.00"

	result, err := svc.CreateOrder(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !numericEquals(result.Order.Total, "0.00") {
		t.Errorf("total = %s, want 0.00", numericToDecimal(result.Order.Total))
	}
}

// =====================
// Order number retry tests
// =====================

func orderNumberConflict() *pgconn.PgError {
	return &pgconn.PgError{Code: "23505", ConstraintName: "orders_tenant_id_order_number_key"}
}

func TestCreateOrder_RetriesOnOrderNumberConflict(t *testing.T) {
	store := defaultStore()
	attempts := 0
	inner := store.createOrderFn
	store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		attempts++
		if attempts == 1 {
			return database.Order{}, orderNumberConflict()
		}
		return inner(ctx, arg)
	}
	svc := newTestService(store)

	result, err := svc.CreateOrder(context.Background(), basicReq(uuid.New()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
	if result == nil {
		t.Fatal("expected result")
	}
}

func TestCreateOrder_RetryExhaustion(t *testing.T) {
	store := defaultStore()
	attempts := 0
	store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		attempts++
		return database.Order{}, orderNumberConflict()
	}
	svc := newTestService(store)

	_, err := svc.CreateOrder(context.Background(), basicReq(uuid.New()))
	if err == nil {
		t.Fatal("expected error after retry exhaustion")
	}
	if attempts != maxOrderNumberRetries {
		t.Errorf("attempts = %d, want %d", attempts, maxOrderNumberRetries)
	}
}

func TestCreateOrder_NonConflictErrorNotRetried(t *testing.T) {
	store := defaultStore()
	attempts := 0
	store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		attempts++
		return database.Order{}, errors.New("connection lost")
	}
	svc := newTestService(store)

	_, err := svc.CreateOrder(context.Background(), basicReq(uuid.New()))
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

// =====================
// State machine tests
// =====================

func transitionService(store *mockKitchenStore, bus *event.Bus) *OrderService {
	return NewOrderService(nil, nil, store, bus)
}

func TestStartPreparing_Success(t *testing.T) {
	tenantID := uuid.New()
	var got database.TransitionOrderStatusParams
	store := &mockKitchenStore{
		markOrderPreparingFn: func(ctx context.Context, arg database.TransitionOrderStatusParams) (database.Order, error) {
			got = arg
			return database.Order{ID: arg.ID, TenantID: arg.TenantID, Status: arg.NewStatus}, nil
		},
	}
	svc := transitionService(store, nil)

	order, err := svc.StartPreparing(context.Background(), tenantID, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.Status != enum.OrderStatusPreparing {
		t.Errorf("status = %s, want PREPARING", order.Status)
	}
	if got.FromStatus != enum.OrderStatusConfirmed {
		t.Errorf("from status = %s, want CONFIRMED", got.FromStatus)
	}
}

func TestStartPreparing_WrongStatus(t *testing.T) {
	tenantID := uuid.New()
	store := &mockKitchenStore{
		markOrderPreparingFn: func(ctx context.Context, arg database.TransitionOrderStatusParams) (database.Order, error) {
			return database.Order{}, pgx.ErrNoRows
		},
		getOrderFn: func(ctx context.Context, arg database.GetOrderParams) (database.Order, error) {
			return database.Order{ID: arg.ID, Status: enum.OrderStatusPreparing}, nil
		},
	}
	svc := transitionService(store, nil)

	_, err := svc.StartPreparing(context.Background(), tenantID, 7)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestStartPreparing_NotFound(t *testing.T) {
	store := &mockKitchenStore{
		markOrderPreparingFn: func(ctx context.Context, arg database.TransitionOrderStatusParams) (database.Order, error) {
			return database.Order{}, pgx.ErrNoRows
		},
		getOrderFn: func(ctx context.Context, arg database.GetOrderParams) (database.Order, error) {
			return database.Order{}, pgx.ErrNoRows
		},
	}
	svc := transitionService(store, nil)

	_, err := svc.StartPreparing(context.Background(), uuid.New(), 999)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCancel_AllowedFromPendingAndConfirmed(t *testing.T) {
	var got database.CancelOrderParams
	store := &mockKitchenStore{
		cancelOrderFn: func(ctx context.Context, arg database.CancelOrderParams) (database.Order, error) {
			got = arg
			return database.Order{ID: arg.ID, Status: arg.NewStatus}, nil
		},
	}
	svc := transitionService(store, nil)

	order, err := svc.Cancel(context.Background(), uuid.New(), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.Status != enum.OrderStatusCancelled {
		t.Errorf("status = %s, want CANCELLED", order.Status)
	}
	if len(got.FromStatuses) != 2 ||
		got.FromStatuses[0] != enum.OrderStatusPending ||
		got.FromStatuses[1] != enum.OrderStatusConfirmed {
		t.Errorf("from statuses = %v, want [PENDING CONFIRMED]", got.FromStatuses)
	}
}

func TestMarkPaid_AlreadyPaid(t *testing.T) {
	store := &mockKitchenStore{
		markOrderPaidFn: func(ctx context.Context, arg database.MarkOrderPaidParams) (database.Order, error) {
			return database.Order{}, pgx.ErrNoRows
		},
		getOrderFn: func(ctx context.Context, arg database.GetOrderParams) (database.Order, error) {
			return database.Order{ID: arg.ID, Status: enum.OrderStatusServed, PaymentStatus: enum.PaymentStatusPaid}, nil
		},
	}
	svc := transitionService(store, nil)

	_, err := svc.MarkPaid(context.Background(), uuid.New(), 3)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestConfirm_PublishesStatusEvent(t *testing.T) {
	store := &mockKitchenStore{
		transitionFn: func(ctx context.Context, arg database.TransitionOrderStatusParams) (database.Order, error) {
			return database.Order{ID: arg.ID, TenantID: arg.TenantID, Status: arg.NewStatus}, nil
		},
	}
	bus := event.NewBus()
	var published []event.OrderEvent
	bus.SubscribeOrder(func(ctx context.Context, e event.OrderEvent) {
		published = append(published, e)
	})
	svc := transitionService(store, bus)

	tenantID := uuid.New()
	if _, err := svc.Confirm(context.Background(), tenantID, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(published) != 1 {
		t.Fatalf("published = %d events, want 1", len(published))
	}
	if published[0].Type != event.OrderStatusChanged {
		t.Errorf("event type = %s, want %s", published[0].Type, event.OrderStatusChanged)
	}
	if published[0].TenantID != tenantID {
		t.Errorf("event tenant = %s, want %s", published[0].TenantID, tenantID)
	}
}

func TestKitchenQueue_ViewStatuses(t *testing.T) {
	var got database.ListKitchenOrdersParams
	store := &mockKitchenStore{
		listKitchenOrdersFn: func(ctx context.Context, arg database.ListKitchenOrdersParams) ([]database.Order, error) {
			got = arg
			return nil, nil
		},
	}
	svc := transitionService(store, nil)

	cases := []struct {
		view string
		want []string
	}{
		{"active", []string{enum.OrderStatusConfirmed, enum.OrderStatusPreparing}},
		{"ready", []string{enum.OrderStatusReady}},
		{"all", []string{enum.OrderStatusConfirmed, enum.OrderStatusPreparing, enum.OrderStatusReady}},
	}
	for _, tc := range cases {
		if _, err := svc.KitchenQueue(context.Background(), uuid.New(), tc.view); err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.view, err)
		}
		if len(got.Statuses) != len(tc.want) {
			t.Fatalf("%s: statuses = %v, want %v", tc.view, got.Statuses, tc.want)
		}
		for i := range tc.want {
			if got.Statuses[i] != tc.want[i] {
				t.Errorf("%s: statuses = %v, want %v", tc.view, got.Statuses, tc.want)
			}
		}
	}
}
