package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const expenseColumns = `id, tenant_id, category, description, amount, expense_date,
	reference, notes, user_id, stock_movement_id, created_at, updated_at`

func scanExpense(row pgx.Row) (Expense, error) {
	var e Expense
	err := row.Scan(
		&e.ID, &e.TenantID, &e.Category, &e.Description, &e.Amount, &e.ExpenseDate,
		&e.Reference, &e.Notes, &e.UserID, &e.StockMovementID, &e.CreatedAt, &e.UpdatedAt,
	)
	return e, err
}

const createExpense = `
INSERT INTO expenses (tenant_id, category, description, amount, expense_date, reference, notes, user_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + expenseColumns

type CreateExpenseParams struct {
	TenantID    uuid.UUID
	Category    string
	Description string
	Amount      pgtype.Numeric
	ExpenseDate pgtype.Date
	Reference   pgtype.Text
	Notes       pgtype.Text
	UserID      uuid.UUID
}

func (q *Queries) CreateExpense(ctx context.Context, arg CreateExpenseParams) (Expense, error) {
	row := q.db.QueryRow(ctx, createExpense,
		arg.TenantID, arg.Category, arg.Description, arg.Amount, arg.ExpenseDate,
		arg.Reference, arg.Notes, arg.UserID,
	)
	return scanExpense(row)
}

const createStockExpense = `
INSERT INTO expenses (tenant_id, category, description, amount, expense_date, reference, notes, user_id, stock_movement_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (stock_movement_id) DO NOTHING
RETURNING ` + expenseColumns

type CreateStockExpenseParams struct {
	TenantID        uuid.UUID
	Category        string
	Description     string
	Amount          pgtype.Numeric
	ExpenseDate     pgtype.Date
	Reference       pgtype.Text
	Notes           pgtype.Text
	UserID          uuid.UUID
	StockMovementID int64
}

// CreateStockExpense inserts the bridge-derived expense for a stock
// movement. The unique index on stock_movement_id makes the 1:1
// relationship durable: replaying the same movement returns
// pgx.ErrNoRows instead of double-counting.
func (q *Queries) CreateStockExpense(ctx context.Context, arg CreateStockExpenseParams) (Expense, error) {
	row := q.db.QueryRow(ctx, createStockExpense,
		arg.TenantID, arg.Category, arg.Description, arg.Amount, arg.ExpenseDate,
		arg.Reference, arg.Notes, arg.UserID, arg.StockMovementID,
	)
	return scanExpense(row)
}

const getExpense = `
SELECT ` + expenseColumns + `
FROM expenses
WHERE id = $1 AND tenant_id = $2
`

type GetExpenseParams struct {
	ID       int64
	TenantID uuid.UUID
}

func (q *Queries) GetExpense(ctx context.Context, arg GetExpenseParams) (Expense, error) {
	return scanExpense(q.db.QueryRow(ctx, getExpense, arg.ID, arg.TenantID))
}

const updateExpense = `
UPDATE expenses
SET category = $3, description = $4, amount = $5, expense_date = $6,
    reference = $7, notes = $8, updated_at = now()
WHERE id = $1 AND tenant_id = $2 AND stock_movement_id IS NULL
RETURNING ` + expenseColumns

type UpdateExpenseParams struct {
	ID          int64
	TenantID    uuid.UUID
	Category    string
	Description string
	Amount      pgtype.Numeric
	ExpenseDate pgtype.Date
	Reference   pgtype.Text
	Notes       pgtype.Text
}

// UpdateExpense refuses stock-linked rows at the SQL level as well as
// in the service; the WHERE guard is the backstop.
func (q *Queries) UpdateExpense(ctx context.Context, arg UpdateExpenseParams) (Expense, error) {
	row := q.db.QueryRow(ctx, updateExpense,
		arg.ID, arg.TenantID, arg.Category, arg.Description, arg.Amount,
		arg.ExpenseDate, arg.Reference, arg.Notes,
	)
	return scanExpense(row)
}

const deleteExpense = `
DELETE FROM expenses
WHERE id = $1 AND tenant_id = $2 AND stock_movement_id IS NULL
`

type DeleteExpenseParams struct {
	ID       int64
	TenantID uuid.UUID
}

func (q *Queries) DeleteExpense(ctx context.Context, arg DeleteExpenseParams) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteExpense, arg.ID, arg.TenantID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const listExpenses = `
SELECT ` + expenseColumns + `
FROM expenses
WHERE tenant_id = $1
  AND expense_date BETWEEN $2 AND $3
  AND ($4::text = '' OR category = $4)
  AND ($5::text = '' OR description ILIKE '%' || $5 || '%' OR reference ILIKE '%' || $5 || '%')
ORDER BY expense_date DESC, id DESC
LIMIT $6 OFFSET $7
`

type ListExpensesParams struct {
	TenantID  uuid.UUID
	StartDate pgtype.Date
	EndDate   pgtype.Date
	Category  string
	Search    string
	Limit     int32
	Offset    int32
}

func (q *Queries) ListExpenses(ctx context.Context, arg ListExpensesParams) ([]Expense, error) {
	rows, err := q.db.Query(ctx, listExpenses,
		arg.TenantID, arg.StartDate, arg.EndDate, arg.Category, arg.Search, arg.Limit, arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

const summarizeExpensesByCategory = `
SELECT category, COALESCE(SUM(amount), 0) AS total, COUNT(*) AS count
FROM expenses
WHERE tenant_id = $1
  AND expense_date BETWEEN $2 AND $3
  AND ($4::text = '' OR category = $4)
GROUP BY category
ORDER BY total DESC
`

type SummarizeExpensesByCategoryParams struct {
	TenantID  uuid.UUID
	StartDate pgtype.Date
	EndDate   pgtype.Date
	Category  string
}

type SummarizeExpensesByCategoryRow struct {
	Category string
	Total    pgtype.Numeric
	Count    int64
}

// SummarizeExpensesByCategory is the single aggregation pass behind
// both the ledger summary and the P/L expense breakdown.
func (q *Queries) SummarizeExpensesByCategory(ctx context.Context, arg SummarizeExpensesByCategoryParams) ([]SummarizeExpensesByCategoryRow, error) {
	rows, err := q.db.Query(ctx, summarizeExpensesByCategory,
		arg.TenantID, arg.StartDate, arg.EndDate, arg.Category,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SummarizeExpensesByCategoryRow
	for rows.Next() {
		var r SummarizeExpensesByCategoryRow
		if err := rows.Scan(&r.Category, &r.Total, &r.Count); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const sumExpensesByDay = `
SELECT expense_date, COALESCE(SUM(amount), 0) AS expense
FROM expenses
WHERE tenant_id = $1 AND expense_date BETWEEN $2 AND $3
GROUP BY expense_date
ORDER BY expense_date
`

type SumExpensesByDayParams struct {
	TenantID  uuid.UUID
	StartDate pgtype.Date
	EndDate   pgtype.Date
}

type SumExpensesByDayRow struct {
	ExpenseDate pgtype.Date
	Expense     pgtype.Numeric
}

func (q *Queries) SumExpensesByDay(ctx context.Context, arg SumExpensesByDayParams) ([]SumExpensesByDayRow, error) {
	rows, err := q.db.Query(ctx, sumExpensesByDay, arg.TenantID, arg.StartDate, arg.EndDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SumExpensesByDayRow
	for rows.Next() {
		var r SumExpensesByDayRow
		if err := rows.Scan(&r.ExpenseDate, &r.Expense); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}
