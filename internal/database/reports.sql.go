package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const getIncomeSummary = `
SELECT
	COALESCE(SUM(subtotal), 0)        AS subtotal,
	COALESCE(SUM(tax_amount), 0)      AS tax_amount,
	COALESCE(SUM(service_charge), 0)  AS service_charge,
	COALESCE(SUM(discount_amount), 0) AS discount_amount,
	COALESCE(SUM(total), 0)           AS total,
	COUNT(*)                          AS order_count
FROM orders
WHERE tenant_id = $1
  AND payment_status = $2
  AND created_at BETWEEN $3 AND $4
`

type GetIncomeSummaryParams struct {
	TenantID      uuid.UUID
	PaymentStatus string
	StartAt       time.Time
	EndAt         time.Time
}

type GetIncomeSummaryRow struct {
	Subtotal       pgtype.Numeric
	TaxAmount      pgtype.Numeric
	ServiceCharge  pgtype.Numeric
	DiscountAmount pgtype.Numeric
	Total          pgtype.Numeric
	OrderCount     int64
}

func (q *Queries) GetIncomeSummary(ctx context.Context, arg GetIncomeSummaryParams) (GetIncomeSummaryRow, error) {
	var r GetIncomeSummaryRow
	err := q.db.QueryRow(ctx, getIncomeSummary,
		arg.TenantID, arg.PaymentStatus, arg.StartAt, arg.EndAt,
	).Scan(&r.Subtotal, &r.TaxAmount, &r.ServiceCharge, &r.DiscountAmount, &r.Total, &r.OrderCount)
	return r, err
}

const sumIncomeByDay = `
SELECT DATE(created_at) AS sale_date, COALESCE(SUM(total), 0) AS income
FROM orders
WHERE tenant_id = $1
  AND payment_status = $2
  AND created_at BETWEEN $3 AND $4
GROUP BY DATE(created_at)
ORDER BY sale_date
`

type SumIncomeByDayParams struct {
	TenantID      uuid.UUID
	PaymentStatus string
	StartAt       time.Time
	EndAt         time.Time
}

type SumIncomeByDayRow struct {
	SaleDate pgtype.Date
	Income   pgtype.Numeric
}

// SumIncomeByDay buckets by the order's creation date. The expense side
// of the daily trend buckets by expense_date; the two are merged by
// date key in the service, not joined here.
func (q *Queries) SumIncomeByDay(ctx context.Context, arg SumIncomeByDayParams) ([]SumIncomeByDayRow, error) {
	rows, err := q.db.Query(ctx, sumIncomeByDay, arg.TenantID, arg.PaymentStatus, arg.StartAt, arg.EndAt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SumIncomeByDayRow
	for rows.Next() {
		var r SumIncomeByDayRow
		if err := rows.Scan(&r.SaleDate, &r.Income); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}
