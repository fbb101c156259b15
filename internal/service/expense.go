package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/saji-pos/api/internal/database"
	"github.com/saji-pos/api/internal/enum"
	"github.com/shopspring/decimal"
)

// Validation errors for manual expense input.
var (
	ErrInvalidCategory    = errors.New("invalid category")
	ErrEmptyDescription   = errors.New("description is required")
	ErrDescriptionTooLong = errors.New("description must be at most 255 characters")
	ErrInvalidAmount      = errors.New("amount must be > 0")
	ErrInvalidExpenseDate = errors.New("invalid expense_date")
	ErrReferenceTooLong   = errors.New("reference must be at most 100 characters")
	ErrNotesTooLong       = errors.New("notes must be at most 1000 characters")
)

// ExpenseStore defines the DB methods behind the expense ledger.
type ExpenseStore interface {
	CreateExpense(ctx context.Context, arg database.CreateExpenseParams) (database.Expense, error)
	GetExpense(ctx context.Context, arg database.GetExpenseParams) (database.Expense, error)
	UpdateExpense(ctx context.Context, arg database.UpdateExpenseParams) (database.Expense, error)
	DeleteExpense(ctx context.Context, arg database.DeleteExpenseParams) (int64, error)
	ListExpenses(ctx context.Context, arg database.ListExpensesParams) ([]database.Expense, error)
	SummarizeExpensesByCategory(ctx context.Context, arg database.SummarizeExpensesByCategoryParams) ([]database.SummarizeExpensesByCategoryRow, error)
}

// ExpenseInput is the validated input for creating or updating a
// manual expense. Amounts travel as decimal strings end to end.
type ExpenseInput struct {
	Category    string
	Description string
	Amount      string
	ExpenseDate string // YYYY-MM-DD
	Reference   string
	Notes       string
}

// ExpenseQuery filters the expense list. Zero dates default to the
// current calendar month.
type ExpenseQuery struct {
	StartDate time.Time
	EndDate   time.Time
	Category  string
	Search    string
	Limit     int32
	Offset    int32
}

// ExpenseSummary is the per-category aggregation for a period.
type ExpenseSummary struct {
	Total      decimal.Decimal
	Count      int64
	Categories []CategorySummary
}

// CategorySummary is one category's share of the total.
type CategorySummary struct {
	Category string
	Label    string
	Color    string
	Total    decimal.Decimal
	Count    int64
}

// ExpenseService handles the manual expense ledger. Stock-linked rows
// (created by the bridge) are readable here but immutable.
type ExpenseService struct {
	store ExpenseStore
}

func NewExpenseService(store ExpenseStore) *ExpenseService {
	return &ExpenseService{store: store}
}

// Create records a manual expense. The stock_movement_id column is
// never set through this path.
func (s *ExpenseService) Create(ctx context.Context, tenantID, userID uuid.UUID, in ExpenseInput) (database.Expense, error) {
	amount, date, err := validateExpenseInput(in)
	if err != nil {
		return database.Expense{}, err
	}
	expense, err := s.store.CreateExpense(ctx, database.CreateExpenseParams{
		TenantID:    tenantID,
		Category:    in.Category,
		Description: in.Description,
		Amount:      decimalToNumeric(amount),
		ExpenseDate: date,
		Reference:   textOrNull(in.Reference),
		Notes:       textOrNull(in.Notes),
		UserID:      userID,
	})
	if err != nil {
		return database.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	return expense, nil
}

// Get returns one expense, stock-linked or not.
func (s *ExpenseService) Get(ctx context.Context, tenantID uuid.UUID, id int64) (database.Expense, error) {
	expense, err := s.store.GetExpense(ctx, database.GetExpenseParams{ID: id, TenantID: tenantID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Expense{}, ErrNotFound
		}
		return database.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return expense, nil
}

// Update edits a manual expense. Stock-linked expenses are refused with
// ErrForbidden; the only way to correct one is a compensating entry.
func (s *ExpenseService) Update(ctx context.Context, tenantID uuid.UUID, id int64, in ExpenseInput) (database.Expense, error) {
	amount, date, err := validateExpenseInput(in)
	if err != nil {
		return database.Expense{}, err
	}
	expense, err := s.store.UpdateExpense(ctx, database.UpdateExpenseParams{
		ID:          id,
		TenantID:    tenantID,
		Category:    in.Category,
		Description: in.Description,
		Amount:      decimalToNumeric(amount),
		ExpenseDate: date,
		Reference:   textOrNull(in.Reference),
		Notes:       textOrNull(in.Notes),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Expense{}, s.explainMutationFailure(ctx, tenantID, id)
		}
		return database.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	return expense, nil
}

// Delete removes a manual expense.
func (s *ExpenseService) Delete(ctx context.Context, tenantID uuid.UUID, id int64) error {
	affected, err := s.store.DeleteExpense(ctx, database.DeleteExpenseParams{ID: id, TenantID: tenantID})
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if affected == 0 {
		return s.explainMutationFailure(ctx, tenantID, id)
	}
	return nil
}

// explainMutationFailure disambiguates a guarded zero-row write: the
// expense either does not exist for this tenant (NotFound) or is
// stock-linked (Forbidden).
func (s *ExpenseService) explainMutationFailure(ctx context.Context, tenantID uuid.UUID, id int64) error {
	existing, err := s.store.GetExpense(ctx, database.GetExpenseParams{ID: id, TenantID: tenantID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("get expense: %w", err)
	}
	if existing.StockMovementID.Valid {
		return fmt.Errorf("%w: stock-linked expenses are immutable", ErrForbidden)
	}
	return ErrNotFound
}

// List returns the filtered expense page, newest expense date first.
func (s *ExpenseService) List(ctx context.Context, tenantID uuid.UUID, q ExpenseQuery) ([]database.Expense, error) {
	q = normalizeExpenseQuery(q)
	if q.Category != "" && !enum.IsExpenseCategory(q.Category) {
		return nil, ErrInvalidCategory
	}
	expenses, err := s.store.ListExpenses(ctx, database.ListExpensesParams{
		TenantID:  tenantID,
		StartDate: pgtype.Date{Time: q.StartDate, Valid: true},
		EndDate:   pgtype.Date{Time: q.EndDate, Valid: true},
		Category:  q.Category,
		Search:    q.Search,
		Limit:     q.Limit,
		Offset:    q.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return expenses, nil
}

// Summarize aggregates the period's expenses per category, largest
// first, plus the grand total.
func (s *ExpenseService) Summarize(ctx context.Context, tenantID uuid.UUID, q ExpenseQuery) (*ExpenseSummary, error) {
	q = normalizeExpenseQuery(q)
	if q.Category != "" && !enum.IsExpenseCategory(q.Category) {
		return nil, ErrInvalidCategory
	}
	rows, err := s.store.SummarizeExpensesByCategory(ctx, database.SummarizeExpensesByCategoryParams{
		TenantID:  tenantID,
		StartDate: pgtype.Date{Time: q.StartDate, Valid: true},
		EndDate:   pgtype.Date{Time: q.EndDate, Valid: true},
		Category:  q.Category,
	})
	if err != nil {
		return nil, fmt.Errorf("summarize expenses: %w", err)
	}

	summary := &ExpenseSummary{Total: decimal.Zero}
	for _, r := range rows {
		total := numericToDecimal(r.Total)
		meta := enum.ExpenseCategoryInfo(r.Category)
		summary.Total = summary.Total.Add(total)
		summary.Count += r.Count
		summary.Categories = append(summary.Categories, CategorySummary{
			Category: r.Category,
			Label:    meta.Label,
			Color:    meta.Color,
			Total:    total,
			Count:    r.Count,
		})
	}
	return summary, nil
}

func validateExpenseInput(in ExpenseInput) (decimal.Decimal, pgtype.Date, error) {
	if !enum.IsExpenseCategory(in.Category) {
		return decimal.Zero, pgtype.Date{}, ErrInvalidCategory
	}
	if in.Description == "" {
		return decimal.Zero, pgtype.Date{}, ErrEmptyDescription
	}
	if len(in.Description) > 255 {
		return decimal.Zero, pgtype.Date{}, ErrDescriptionTooLong
	}
	amount, err := decimal.NewFromString(in.Amount)
	if err != nil || !amount.IsPositive() {
		return decimal.Zero, pgtype.Date{}, ErrInvalidAmount
	}
	date, err := time.Parse("2006-01-02", in.ExpenseDate)
	if err != nil {
		return decimal.Zero, pgtype.Date{}, ErrInvalidExpenseDate
	}
	if len(in.Reference) > 100 {
		return decimal.Zero, pgtype.Date{}, ErrReferenceTooLong
	}
	if len(in.Notes) > 1000 {
		return decimal.Zero, pgtype.Date{}, ErrNotesTooLong
	}
	return amount, pgtype.Date{Time: date, Valid: true}, nil
}

// normalizeExpenseQuery fills the default period (current month) and
// clamps pagination.
func normalizeExpenseQuery(q ExpenseQuery) ExpenseQuery {
	if q.StartDate.IsZero() || q.EndDate.IsZero() {
		now := time.Now()
		q.StartDate = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		q.EndDate = q.StartDate.AddDate(0, 1, -1)
	}
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 20
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return q
}
