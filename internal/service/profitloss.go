package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/saji-pos/api/internal/database"
	"github.com/saji-pos/api/internal/enum"
	"github.com/shopspring/decimal"
)

// ReportStore defines the aggregation queries behind the P/L report.
type ReportStore interface {
	GetIncomeSummary(ctx context.Context, arg database.GetIncomeSummaryParams) (database.GetIncomeSummaryRow, error)
	SumIncomeByDay(ctx context.Context, arg database.SumIncomeByDayParams) ([]database.SumIncomeByDayRow, error)
	SummarizeExpensesByCategory(ctx context.Context, arg database.SummarizeExpensesByCategoryParams) ([]database.SummarizeExpensesByCategoryRow, error)
	SumExpensesByDay(ctx context.Context, arg database.SumExpensesByDayParams) ([]database.SumExpensesByDayRow, error)
}

// IncomeSummary is the paid-order side of the report.
type IncomeSummary struct {
	Subtotal       decimal.Decimal
	TaxAmount      decimal.Decimal
	ServiceCharge  decimal.Decimal
	DiscountAmount decimal.Decimal
	Total          decimal.Decimal
	OrderCount     int64
}

// ExpenseBreakdown is the expense side, split between bridged stock
// purchases and everything else.
type ExpenseBreakdown struct {
	Total       decimal.Decimal
	StockCost   decimal.Decimal
	Operational decimal.Decimal
	Categories  []CategorySummary
}

// DailyPoint is one day in the trend: both sides bucketed by their own
// date (income by creation time, expenses by expense_date) and merged
// by day key.
type DailyPoint struct {
	Date    string // YYYY-MM-DD
	Income  decimal.Decimal
	Expense decimal.Decimal
	Net     decimal.Decimal
}

// ProfitLossReport is the full period report. It is computed on demand;
// nothing is memoized.
type ProfitLossReport struct {
	StartDate  string
	EndDate    string
	Income     IncomeSummary
	Expenses   ExpenseBreakdown
	NetProfit  decimal.Decimal
	Margin     decimal.Decimal // percent, 0 when there is no income
	DailyTrend []DailyPoint
}

// ProfitLossService assembles the report from the order and expense
// aggregates. Income counts PAID orders only, regardless of status.
type ProfitLossService struct {
	store ReportStore
}

func NewProfitLossService(store ReportStore) *ProfitLossService {
	return &ProfitLossService{store: store}
}

// Report builds the P/L for [start, end], inclusive calendar days in
// the given dates' location. Zero dates default to the current month.
func (s *ProfitLossService) Report(ctx context.Context, tenantID uuid.UUID, start, end time.Time) (*ProfitLossReport, error) {
	if start.IsZero() || end.IsZero() {
		now := time.Now()
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		end = start.AddDate(0, 1, -1)
	}
	startAt := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	endAt := time.Date(end.Year(), end.Month(), end.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), end.Location())

	income, err := s.store.GetIncomeSummary(ctx, database.GetIncomeSummaryParams{
		TenantID:      tenantID,
		PaymentStatus: enum.PaymentStatusPaid,
		StartAt:       startAt,
		EndAt:         endAt,
	})
	if err != nil {
		return nil, fmt.Errorf("income summary: %w", err)
	}

	categories, err := s.store.SummarizeExpensesByCategory(ctx, database.SummarizeExpensesByCategoryParams{
		TenantID:  tenantID,
		StartDate: pgtype.Date{Time: startAt, Valid: true},
		EndDate:   pgtype.Date{Time: endAt, Valid: true},
	})
	if err != nil {
		return nil, fmt.Errorf("expense breakdown: %w", err)
	}

	report := &ProfitLossReport{
		StartDate: startAt.Format("2006-01-02"),
		EndDate:   endAt.Format("2006-01-02"),
		Income: IncomeSummary{
			Subtotal:       numericToDecimal(income.Subtotal),
			TaxAmount:      numericToDecimal(income.TaxAmount),
			ServiceCharge:  numericToDecimal(income.ServiceCharge),
			DiscountAmount: numericToDecimal(income.DiscountAmount),
			Total:          numericToDecimal(income.Total),
			OrderCount:     income.OrderCount,
		},
		Expenses: ExpenseBreakdown{
			Total:       decimal.Zero,
			StockCost:   decimal.Zero,
			Operational: decimal.Zero,
		},
	}

	for _, c := range categories {
		total := numericToDecimal(c.Total)
		meta := enum.ExpenseCategoryInfo(c.Category)
		report.Expenses.Total = report.Expenses.Total.Add(total)
		if c.Category == enum.ExpenseCategoryStockPurchase {
			report.Expenses.StockCost = report.Expenses.StockCost.Add(total)
		} else {
			report.Expenses.Operational = report.Expenses.Operational.Add(total)
		}
		report.Expenses.Categories = append(report.Expenses.Categories, CategorySummary{
			Category: c.Category,
			Label:    meta.Label,
			Color:    meta.Color,
			Total:    total,
			Count:    c.Count,
		})
	}

	report.NetProfit = report.Income.Total.Sub(report.Expenses.Total)
	if report.Income.Total.IsPositive() {
		report.Margin = report.NetProfit.Div(report.Income.Total).Mul(decimal.NewFromInt(100)).Round(2)
	} else {
		report.Margin = decimal.Zero
	}

	trend, err := s.dailyTrend(ctx, tenantID, startAt, endAt)
	if err != nil {
		return nil, err
	}
	report.DailyTrend = trend

	return report, nil
}

// dailyTrend merges the two independently grouped daily sums. A day
// appears if either side has activity; missing sides read as zero.
func (s *ProfitLossService) dailyTrend(ctx context.Context, tenantID uuid.UUID, startAt, endAt time.Time) ([]DailyPoint, error) {
	incomeRows, err := s.store.SumIncomeByDay(ctx, database.SumIncomeByDayParams{
		TenantID:      tenantID,
		PaymentStatus: enum.PaymentStatusPaid,
		StartAt:       startAt,
		EndAt:         endAt,
	})
	if err != nil {
		return nil, fmt.Errorf("income by day: %w", err)
	}
	expenseRows, err := s.store.SumExpensesByDay(ctx, database.SumExpensesByDayParams{
		TenantID:  tenantID,
		StartDate: pgtype.Date{Time: startAt, Valid: true},
		EndDate:   pgtype.Date{Time: endAt, Valid: true},
	})
	if err != nil {
		return nil, fmt.Errorf("expenses by day: %w", err)
	}

	byDay := make(map[string]*DailyPoint)
	point := func(day string) *DailyPoint {
		p, ok := byDay[day]
		if !ok {
			p = &DailyPoint{Date: day, Income: decimal.Zero, Expense: decimal.Zero}
			byDay[day] = p
		}
		return p
	}
	for _, r := range incomeRows {
		p := point(r.SaleDate.Time.Format("2006-01-02"))
		p.Income = p.Income.Add(numericToDecimal(r.Income))
	}
	for _, r := range expenseRows {
		p := point(r.ExpenseDate.Time.Format("2006-01-02"))
		p.Expense = p.Expense.Add(numericToDecimal(r.Expense))
	}

	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)

	trend := make([]DailyPoint, 0, len(days))
	for _, day := range days {
		p := byDay[day]
		p.Net = p.Income.Sub(p.Expense)
		trend = append(trend, *p)
	}
	return trend, nil
}
