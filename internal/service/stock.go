package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/saji-pos/api/internal/database"
	"github.com/saji-pos/api/internal/enum"
	"github.com/saji-pos/api/internal/event"
	"github.com/shopspring/decimal"
)

// Validation errors for stock movements.
var (
	ErrInvalidMovementType = errors.New("invalid movement type")
	ErrInvalidStockQty     = errors.New("quantity must be > 0")
	ErrInvalidCost         = errors.New("invalid cost_per_unit")
)

// StockStore defines the DB methods behind stock recording.
type StockStore interface {
	GetIngredient(ctx context.Context, arg database.GetIngredientParams) (database.Ingredient, error)
	CreateStockMovement(ctx context.Context, arg database.CreateStockMovementParams) (database.StockMovement, error)
}

// RecordMovementRequest is the validated input for a stock movement.
// CostPerUnit is optional; an empty string means the cost is unknown.
type RecordMovementRequest struct {
	TenantID     uuid.UUID
	UserID       uuid.UUID
	IngredientID int64
	Type         string
	Quantity     string
	CostPerUnit  string
	Reference    string
	Notes        string
}

// StockService records stock movements and announces them on the bus.
// Movements are append-only: there is no update or delete path, and the
// recorded event fires exactly once per movement.
type StockService struct {
	store StockStore
	bus   *event.Bus
}

func NewStockService(store StockStore, bus *event.Bus) *StockService {
	return &StockService{store: store, bus: bus}
}

// RecordMovement inserts the movement and publishes
// StockMovementRecorded after the write succeeds.
func (s *StockService) RecordMovement(ctx context.Context, req RecordMovementRequest) (database.StockMovement, error) {
	if req.Type != enum.StockMovementIn && req.Type != enum.StockMovementOut {
		return database.StockMovement{}, ErrInvalidMovementType
	}
	quantity, err := decimal.NewFromString(req.Quantity)
	if err != nil || !quantity.IsPositive() {
		return database.StockMovement{}, ErrInvalidStockQty
	}
	var costPerUnit pgtype.Numeric
	if req.CostPerUnit != "" {
		cost, err := decimal.NewFromString(req.CostPerUnit)
		if err != nil || cost.IsNegative() {
			return database.StockMovement{}, ErrInvalidCost
		}
		costPerUnit = decimalToNumeric(cost)
	}

	ingredient, err := s.store.GetIngredient(ctx, database.GetIngredientParams{
		ID:       req.IngredientID,
		TenantID: req.TenantID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.StockMovement{}, ErrNotFound
		}
		return database.StockMovement{}, fmt.Errorf("get ingredient: %w", err)
	}

	movement, err := s.store.CreateStockMovement(ctx, database.CreateStockMovementParams{
		TenantID:     req.TenantID,
		IngredientID: req.IngredientID,
		Type:         req.Type,
		Quantity:     decimalToNumeric(quantity),
		CostPerUnit:  costPerUnit,
		Reference:    textOrNull(req.Reference),
		Notes:        textOrNull(req.Notes),
		UserID:       req.UserID,
	})
	if err != nil {
		return database.StockMovement{}, fmt.Errorf("create stock movement: %w", err)
	}

	if s.bus != nil {
		s.bus.PublishStockMovement(ctx, event.StockMovementRecorded{
			Movement:       movement,
			IngredientName: ingredient.Name,
		})
	}
	return movement, nil
}

// BridgeStore defines the single write the expense bridge needs.
type BridgeStore interface {
	CreateStockExpense(ctx context.Context, arg database.CreateStockExpenseParams) (database.Expense, error)
}

// ExpenseBridge turns inbound stock purchases into STOCK_PURCHASE
// expense entries. One movement produces at most one expense, enforced
// by the unique index on expenses.stock_movement_id.
type ExpenseBridge struct {
	store BridgeStore
}

func NewExpenseBridge(store BridgeStore) *ExpenseBridge {
	return &ExpenseBridge{store: store}
}

// HandleStockMovement is the bus subscriber. Outbound movements and
// movements without a positive cost are skipped: no cost means no
// money changed hands that we know of.
func (b *ExpenseBridge) HandleStockMovement(ctx context.Context, e event.StockMovementRecorded) {
	m := e.Movement
	if m.Type != enum.StockMovementIn {
		return
	}
	cost := numericToDecimal(m.CostPerUnit)
	if !cost.IsPositive() {
		return
	}
	quantity := numericToDecimal(m.Quantity)
	amount := quantity.Mul(cost)

	name := e.IngredientName
	if name == "" {
		name = "Raw material"
	}
	description := fmt.Sprintf("Stock purchase: %s (%s units)", name, quantity.String())

	_, err := b.store.CreateStockExpense(ctx, database.CreateStockExpenseParams{
		TenantID:        m.TenantID,
		Category:        enum.ExpenseCategoryStockPurchase,
		Description:     description,
		Amount:          decimalToNumeric(amount),
		ExpenseDate:     pgtype.Date{Time: m.CreatedAt, Valid: true},
		Reference:       m.Reference,
		Notes:           m.Notes,
		UserID:          m.UserID,
		StockMovementID: m.ID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Already bridged; replay is a no-op.
			return
		}
		log.Printf("expense bridge: movement %d: %v", m.ID, err)
	}
}
