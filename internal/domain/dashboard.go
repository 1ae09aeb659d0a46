package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Dashboard is the aggregated, display-ready view of the active period.
type Dashboard struct {
	Categories  []Category                 `json:"categories"`
	Expenses    []Expense                  `json:"expenses"`
	Statuses    []BudgetStatus             `json:"statuses"`
	TotalSpent  decimal.Decimal            `json:"total_spent"` // current month
	ByCategory  map[string]decimal.Decimal `json:"by_category"` // current month, keyed by category name
	MonthStart  time.Time                  `json:"month_start"`
	MonthEnd    time.Time                  `json:"month_end"`
	Alerts      []BudgetAlert              `json:"alerts,omitempty"` // escalations raised by this load
	GeneratedAt time.Time                  `json:"generated_at"`     // the evaluation's "now"
}
