package enum

// ── Group A: State machines (CHECK constrained in DB) ──

const (
	OrderStatusPending   = "PENDING"
	OrderStatusConfirmed = "CONFIRMED"
	OrderStatusPreparing = "PREPARING"
	OrderStatusReady     = "READY"
	OrderStatusServed    = "SERVED"
	OrderStatusCompleted = "COMPLETED"
	OrderStatusCancelled = "CANCELLED"
)

const (
	PaymentStatusUnpaid   = "UNPAID"
	PaymentStatusPaid     = "PAID"
	PaymentStatusRefunded = "REFUNDED"
)

const (
	StockMovementIn  = "IN"
	StockMovementOut = "OUT"
)

// ── Group C: Borderline (CHECK constrained in DB) ──

const (
	UserRoleOwner   = "OWNER"
	UserRoleManager = "MANAGER"
	UserRoleCashier = "CASHIER"
	UserRoleKitchen = "KITCHEN"
)

const (
	OrderTypeDineIn   = "DINE_IN"
	OrderTypeTakeaway = "TAKEAWAY"
)

// ── Group B: Configurable labels (no DB constraint) ──

const (
	ExpenseCategoryRent          = "RENT"
	ExpenseCategoryUtilities     = "UTILITIES"
	ExpenseCategorySalaries      = "SALARIES"
	ExpenseCategoryMarketing     = "MARKETING"
	ExpenseCategorySupplies      = "SUPPLIES"
	ExpenseCategoryStockPurchase = "STOCK_PURCHASE"
	ExpenseCategoryMaintenance   = "MAINTENANCE"
	ExpenseCategoryOther         = "OTHER"
)

// ExpenseCategoryMeta carries the display label and badge color for a
// category. New categories are rows in the table below, not new branches.
type ExpenseCategoryMeta struct {
	Label string
	Color string
}

var expenseCategories = map[string]ExpenseCategoryMeta{
	ExpenseCategoryRent:          {Label: "Rent", Color: "purple"},
	ExpenseCategoryUtilities:     {Label: "Utilities (Electricity, Water, etc)", Color: "amber"},
	ExpenseCategorySalaries:      {Label: "Salaries", Color: "blue"},
	ExpenseCategoryMarketing:     {Label: "Marketing", Color: "pink"},
	ExpenseCategorySupplies:      {Label: "Supplies", Color: "cyan"},
	ExpenseCategoryStockPurchase: {Label: "Stock Purchase", Color: "emerald"},
	ExpenseCategoryMaintenance:   {Label: "Maintenance", Color: "orange"},
	ExpenseCategoryOther:         {Label: "Other", Color: "zinc"},
}

// IsExpenseCategory reports whether s is one of the closed category set.
func IsExpenseCategory(s string) bool {
	_, ok := expenseCategories[s]
	return ok
}

// ExpenseCategoryInfo returns the display metadata for a category.
// Unknown categories get a zinc badge with the raw value as label.
func ExpenseCategoryInfo(s string) ExpenseCategoryMeta {
	if meta, ok := expenseCategories[s]; ok {
		return meta
	}
	return ExpenseCategoryMeta{Label: s, Color: "zinc"}
}

// KitchenStatuses returns the status set backing a kitchen display view.
// "active" is confirmed+preparing, "ready" is ready only, anything else
// gets the full kitchen-relevant set.
func KitchenStatuses(view string) []string {
	switch view {
	case "active":
		return []string{OrderStatusConfirmed, OrderStatusPreparing}
	case "ready":
		return []string{OrderStatusReady}
	default:
		return []string{OrderStatusConfirmed, OrderStatusPreparing, OrderStatusReady}
	}
}
