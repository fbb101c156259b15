package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createIngredient = `
INSERT INTO ingredients (tenant_id, name, unit)
VALUES ($1, $2, $3)
RETURNING id, tenant_id, name, unit, created_at
`

type CreateIngredientParams struct {
	TenantID uuid.UUID
	Name     string
	Unit     string
}

func (q *Queries) CreateIngredient(ctx context.Context, arg CreateIngredientParams) (Ingredient, error) {
	var i Ingredient
	err := q.db.QueryRow(ctx, createIngredient, arg.TenantID, arg.Name, arg.Unit).
		Scan(&i.ID, &i.TenantID, &i.Name, &i.Unit, &i.CreatedAt)
	return i, err
}

const getIngredient = `
SELECT id, tenant_id, name, unit, created_at
FROM ingredients
WHERE id = $1 AND tenant_id = $2
`

type GetIngredientParams struct {
	ID       int64
	TenantID uuid.UUID
}

func (q *Queries) GetIngredient(ctx context.Context, arg GetIngredientParams) (Ingredient, error) {
	var i Ingredient
	err := q.db.QueryRow(ctx, getIngredient, arg.ID, arg.TenantID).
		Scan(&i.ID, &i.TenantID, &i.Name, &i.Unit, &i.CreatedAt)
	return i, err
}

const createStockMovement = `
INSERT INTO stock_movements (tenant_id, ingredient_id, type, quantity, cost_per_unit, reference, notes, user_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, tenant_id, ingredient_id, type, quantity, cost_per_unit, reference, notes, user_id, created_at
`

type CreateStockMovementParams struct {
	TenantID     uuid.UUID
	IngredientID int64
	Type         string
	Quantity     pgtype.Numeric
	CostPerUnit  pgtype.Numeric
	Reference    pgtype.Text
	Notes        pgtype.Text
	UserID       uuid.UUID
}

func (q *Queries) CreateStockMovement(ctx context.Context, arg CreateStockMovementParams) (StockMovement, error) {
	var m StockMovement
	err := q.db.QueryRow(ctx, createStockMovement,
		arg.TenantID, arg.IngredientID, arg.Type, arg.Quantity, arg.CostPerUnit,
		arg.Reference, arg.Notes, arg.UserID,
	).Scan(&m.ID, &m.TenantID, &m.IngredientID, &m.Type, &m.Quantity, &m.CostPerUnit,
		&m.Reference, &m.Notes, &m.UserID, &m.CreatedAt)
	return m, err
}

const getStockMovement = `
SELECT id, tenant_id, ingredient_id, type, quantity, cost_per_unit, reference, notes, user_id, created_at
FROM stock_movements
WHERE id = $1 AND tenant_id = $2
`

type GetStockMovementParams struct {
	ID       int64
	TenantID uuid.UUID
}

func (q *Queries) GetStockMovement(ctx context.Context, arg GetStockMovementParams) (StockMovement, error) {
	var m StockMovement
	err := q.db.QueryRow(ctx, getStockMovement, arg.ID, arg.TenantID).
		Scan(&m.ID, &m.TenantID, &m.IngredientID, &m.Type, &m.Quantity, &m.CostPerUnit,
			&m.Reference, &m.Notes, &m.UserID, &m.CreatedAt)
	return m, err
}
