package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/saji-pos/api/internal/database"
	"github.com/saji-pos/api/internal/enum"
)

// --- Mocks ---

type mockExpenseStore struct {
	createExpenseFn func(ctx context.Context, arg database.CreateExpenseParams) (database.Expense, error)
	getExpenseFn    func(ctx context.Context, arg database.GetExpenseParams) (database.Expense, error)
	updateExpenseFn func(ctx context.Context, arg database.UpdateExpenseParams) (database.Expense, error)
	deleteExpenseFn func(ctx context.Context, arg database.DeleteExpenseParams) (int64, error)
	listExpensesFn  func(ctx context.Context, arg database.ListExpensesParams) ([]database.Expense, error)
	summarizeFn     func(ctx context.Context, arg database.SummarizeExpensesByCategoryParams) ([]database.SummarizeExpensesByCategoryRow, error)
}

func (m *mockExpenseStore) CreateExpense(ctx context.Context, arg database.CreateExpenseParams) (database.Expense, error) {
	return m.createExpenseFn(ctx, arg)
}
func (m *mockExpenseStore) GetExpense(ctx context.Context, arg database.GetExpenseParams) (database.Expense, error) {
	return m.getExpenseFn(ctx, arg)
}
func (m *mockExpenseStore) UpdateExpense(ctx context.Context, arg database.UpdateExpenseParams) (database.Expense, error) {
	return m.updateExpenseFn(ctx, arg)
}
func (m *mockExpenseStore) DeleteExpense(ctx context.Context, arg database.DeleteExpenseParams) (int64, error) {
	return m.deleteExpenseFn(ctx, arg)
}
func (m *mockExpenseStore) ListExpenses(ctx context.Context, arg database.ListExpensesParams) ([]database.Expense, error) {
	return m.listExpensesFn(ctx, arg)
}
func (m *mockExpenseStore) SummarizeExpensesByCategory(ctx context.Context, arg database.SummarizeExpensesByCategoryParams) ([]database.SummarizeExpensesByCategoryRow, error) {
	return m.summarizeFn(ctx, arg)
}

func validExpenseInput() ExpenseInput {
	return ExpenseInput{
		Category:    enum.ExpenseCategoryRent,
		Description: "March rent",
		Amount:      "5000000.00",
		ExpenseDate: "2026-03-01",
	}
}

// =====================
// Validation tests
// =====================

func TestExpenseCreate_Validation(t *testing.T) {
	svc := NewExpenseService(&mockExpenseStore{})

	cases := []struct {
		name    string
		mutate  func(*ExpenseInput)
		wantErr error
	}{
		{"unknown category", func(in *ExpenseInput) { in.Category = "BRIBES" }, ErrInvalidCategory},
		{"empty description", func(in *ExpenseInput) { in.Description = "" }, ErrEmptyDescription},
		{"description too long", func(in *ExpenseInput) { in.Description = strings.Repeat("x", 256) }, ErrDescriptionTooLong},
		{"zero amount", func(in *ExpenseInput) { in.Amount = "0" }, ErrInvalidAmount},
		{"negative amount", func(in *ExpenseInput) { in.Amount = "-100" }, ErrInvalidAmount},
		{"garbage amount", func(in *ExpenseInput) { in.Amount = "lots" }, ErrInvalidAmount},
		{"bad date", func(in *ExpenseInput) { in.ExpenseDate = "01/03/2026" }, ErrInvalidExpenseDate},
		{"reference too long", func(in *ExpenseInput) { in.Reference = strings.Repeat("r", 101) }, ErrReferenceTooLong},
		{"notes too long", func(in *ExpenseInput) { in.Notes = strings.Repeat("n", 1001) }, ErrNotesTooLong},
	}
	for _, tc := range cases {
		in := validExpenseInput()
		tc.mutate(&in)
		_, err := svc.Create(context.Background(), uuid.New(), uuid.New(), in)
		if !errors.Is(err, tc.wantErr) {
			t.Errorf("%s: got %v, want %v", tc.name, err, tc.wantErr)
		}
	}
}

func TestExpenseCreate_Success(t *testing.T) {
	var got *database.CreateExpenseParams
	svc := NewExpenseService(&mockExpenseStore{
		createExpenseFn: func(ctx context.Context, arg database.CreateExpenseParams) (database.Expense, error) {
			got = &arg
			return database.Expense{ID: 1, Category: arg.Category, Description: arg.Description, Amount: arg.Amount}, nil
		},
	})

	tenantID := uuid.New()
	userID := uuid.New()
	_, err := svc.Create(context.Background(), tenantID, userID, validExpenseInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.TenantID != tenantID || got.UserID != userID {
		t.Error("tenant/user not carried through")
	}
	if !numericEquals(got.Amount, "5000000.00") {
		t.Errorf("amount = %s, want 5000000.00", numericToDecimal(got.Amount))
	}
}

// =====================
// Stock-linked immutability tests
// =====================

func stockLinkedExpense(id int64) database.Expense {
	return database.Expense{
		ID:              id,
		Category:        enum.ExpenseCategoryStockPurchase,
		StockMovementID: pgtype.Int8{Int64: 10, Valid: true},
	}
}

func TestExpenseUpdate_StockLinkedForbidden(t *testing.T) {
	svc := NewExpenseService(&mockExpenseStore{
		updateExpenseFn: func(ctx context.Context, arg database.UpdateExpenseParams) (database.Expense, error) {
			return database.Expense{}, pgx.ErrNoRows
		},
		getExpenseFn: func(ctx context.Context, arg database.GetExpenseParams) (database.Expense, error) {
			return stockLinkedExpense(arg.ID), nil
		},
	})

	_, err := svc.Update(context.Background(), uuid.New(), 5, validExpenseInput())
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestExpenseDelete_StockLinkedForbidden(t *testing.T) {
	svc := NewExpenseService(&mockExpenseStore{
		deleteExpenseFn: func(ctx context.Context, arg database.DeleteExpenseParams) (int64, error) {
			return 0, nil
		},
		getExpenseFn: func(ctx context.Context, arg database.GetExpenseParams) (database.Expense, error) {
			return stockLinkedExpense(arg.ID), nil
		},
	})

	err := svc.Delete(context.Background(), uuid.New(), 5)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestExpenseDelete_NotFound(t *testing.T) {
	svc := NewExpenseService(&mockExpenseStore{
		deleteExpenseFn: func(ctx context.Context, arg database.DeleteExpenseParams) (int64, error) {
			return 0, nil
		},
		getExpenseFn: func(ctx context.Context, arg database.GetExpenseParams) (database.Expense, error) {
			return database.Expense{}, pgx.ErrNoRows
		},
	})

	err := svc.Delete(context.Background(), uuid.New(), 999)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestExpenseDelete_Success(t *testing.T) {
	svc := NewExpenseService(&mockExpenseStore{
		deleteExpenseFn: func(ctx context.Context, arg database.DeleteExpenseParams) (int64, error) {
			return 1, nil
		},
	})

	if err := svc.Delete(context.Background(), uuid.New(), 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// =====================
// Query tests
// =====================

func TestExpenseList_DefaultsToCurrentMonth(t *testing.T) {
	var got database.ListExpensesParams
	svc := NewExpenseService(&mockExpenseStore{
		listExpensesFn: func(ctx context.Context, arg database.ListExpensesParams) ([]database.Expense, error) {
			got = arg
			return nil, nil
		},
	})

	if _, err := svc.List(context.Background(), uuid.New(), ExpenseQuery{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.StartDate.Valid || got.StartDate.Time.Day() != 1 {
		t.Errorf("start date = %v, want first of month", got.StartDate.Time)
	}
	if !got.EndDate.Valid || !got.EndDate.Time.After(got.StartDate.Time) {
		t.Errorf("end date = %v, want after start", got.EndDate.Time)
	}
	if got.Limit != 20 {
		t.Errorf("limit = %d, want default 20", got.Limit)
	}
}

func TestExpenseList_RejectsUnknownCategoryFilter(t *testing.T) {
	svc := NewExpenseService(&mockExpenseStore{})

	_, err := svc.List(context.Background(), uuid.New(), ExpenseQuery{Category: "SNACKS"})
	if !errors.Is(err, ErrInvalidCategory) {
		t.Fatalf("expected ErrInvalidCategory, got %v", err)
	}
}

func TestExpenseSummarize_TotalsAndLabels(t *testing.T) {
	svc := NewExpenseService(&mockExpenseStore{
		summarizeFn: func(ctx context.Context, arg database.SummarizeExpensesByCategoryParams) ([]database.SummarizeExpensesByCategoryRow, error) {
			return []database.SummarizeExpensesByCategoryRow{
				{Category: enum.ExpenseCategoryStockPurchase, Total: makeNumeric("300000.00"), Count: 3},
				{Category: enum.ExpenseCategoryRent, Total: makeNumeric("5000000.00"), Count: 1},
			}, nil
		},
	})

	summary, err := svc.Summarize(context.Background(), uuid.New(), ExpenseQuery{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Total.StringFixed(2) != "5300000.00" {
		t.Errorf("total = %s, want 5300000.00", summary.Total.StringFixed(2))
	}
	if summary.Count != 4 {
		t.Errorf("count = %d, want 4", summary.Count)
	}
	if len(summary.Categories) != 2 {
		t.Fatalf("categories = %d, want 2", len(summary.Categories))
	}
	if summary.Categories[0].Label != "Stock Purchase" || summary.Categories[0].Color != "emerald" {
		t.Errorf("category meta = %q/%q", summary.Categories[0].Label, summary.Categories[0].Color)
	}
}
