package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Tenant struct {
	ID        uuid.UUID
	Name      string
	Address   pgtype.Text
	Phone     pgtype.Text
	CreatedAt time.Time
	UpdatedAt time.Time
}

type User struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	Email        string
	PasswordHash string
	FullName     string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Order struct {
	ID             int64
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
	CreatedAt      time.Time
	UpdatedAt      time.Time
	PreparingAt    pgtype.Timestamptz
	ReadyAt        pgtype.Timestamptz
	ServedAt       pgtype.Timestamptz
	PaidAt         pgtype.Timestamptz
}

type OrderItem struct {
	ID          int64
	OrderID     int64
	ItemName    string
	VariantName pgtype.Text
	Quantity    int32
	UnitPrice   pgtype.Numeric
	Subtotal    pgtype.Numeric
	Notes       pgtype.Text
}

type OrderItemModifier struct {
	ID           int64
	OrderItemID  int64
	ModifierName string
	Quantity     int32
	Price        pgtype.Numeric
}

type Ingredient struct {
	ID        int64
	TenantID  uuid.UUID
	Name      string
	Unit      string
	CreatedAt time.Time
}

type StockMovement struct {
	ID           int64
	TenantID     uuid.UUID
	IngredientID int64
	Type         string
	Quantity     pgtype.Numeric
	CostPerUnit  pgtype.Numeric
	Reference    pgtype.Text
	Notes        pgtype.Text
	UserID       uuid.UUID
	CreatedAt    time.Time
}

type Expense struct {
	ID              int64
	TenantID        uuid.UUID
	Category        string
	Description     string
	Amount          pgtype.Numeric
	ExpenseDate     pgtype.Date
	Reference       pgtype.Text
	Notes           pgtype.Text
	UserID          uuid.UUID
	StockMovementID pgtype.Int8
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
