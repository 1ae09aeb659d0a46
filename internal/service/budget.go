package service

import (
	"time"

	"github.com/boddenberg/spendsense-go/internal/domain"

	"github.com/shopspring/decimal"
)

// ============================================================
// Budget evaluation (pure; never reads the wall clock)
// ============================================================

var hundred = decimal.NewFromInt(100)

// Evaluate derives the status of budget from the expenses already selected
// for its period. Category budgets only count their own category; overall
// budgets count everything.
func Evaluate(budget domain.Budget, expensesInPeriod []domain.Expense) domain.BudgetStatus {
	spent := decimal.Zero
	for _, e := range expensesInPeriod {
		if budget.Overall() || e.CategoryID == *budget.CategoryID {
			spent = spent.Add(e.Amount)
		}
	}
	return StatusFromTotals(budget, spent)
}

// StatusFromTotals classifies budget given an already-summed spent figure.
//
// over_budget when spent > limit; near_limit when spent > threshold*limit;
// ok otherwise. A non-positive limit has no percentage and is over budget as
// soon as anything was spent.
func StatusFromTotals(budget domain.Budget, spent decimal.Decimal) domain.BudgetStatus {
	limit := budget.Limit
	status := domain.BudgetStatus{
		Budget:    budget,
		Spent:     spent,
		Limit:     limit,
		Remaining: limit.Sub(spent),
	}

	if !limit.IsPositive() {
		status.Classification = domain.ClassOK
		if spent.IsPositive() {
			status.Classification = domain.ClassOverBudget
		}
		return status
	}

	status.PercentUsed = decimal.NewNullDecimal(spent.Mul(hundred).Div(limit))
	switch {
	case spent.GreaterThan(limit):
		status.Classification = domain.ClassOverBudget
	case spent.GreaterThan(budget.AlertThreshold.Mul(limit)):
		status.Classification = domain.ClassNearLimit
	default:
		status.Classification = domain.ClassOK
	}
	return status
}

// BudgetEvaluator evaluates many budgets against one reference instant.
type BudgetEvaluator struct {
	// Location is the single timezone used for every period boundary in a
	// pass. Nil means now's own location.
	Location *time.Location
	// WeekStart is the first day of weekly periods. The zero value is
	// Sunday, so callers normally set time.Monday.
	WeekStart time.Weekday
}

// NewBudgetEvaluator returns an evaluator with Monday-based weeks.
func NewBudgetEvaluator(loc *time.Location) BudgetEvaluator {
	return BudgetEvaluator{Location: loc, WeekStart: time.Monday}
}

// EvaluateAll evaluates every budget for the period containing now and
// attaches category names. A budget with an unknown period is skipped.
func (e BudgetEvaluator) EvaluateAll(budgets []domain.Budget, expenses []domain.Expense, categories []domain.Category, now time.Time) []domain.BudgetStatus {
	if e.Location != nil {
		now = now.In(e.Location)
	}
	names := make(map[domain.ID]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}

	statuses := make([]domain.BudgetStatus, 0, len(budgets))
	for _, b := range budgets {
		start, end, err := periodRange(b.Period, now, e.WeekStart)
		if err != nil {
			continue
		}
		status := Evaluate(b, selectBetween(expenses, start, end))
		status.CategoryName = categoryLabel(b, names)
		status.PeriodStart = start
		status.PeriodEnd = end
		statuses = append(statuses, status)
	}
	return statuses
}

func categoryLabel(b domain.Budget, names map[domain.ID]string) string {
	if b.Overall() {
		return "Overall"
	}
	if name, ok := names[*b.CategoryID]; ok {
		return name
	}
	return "Category " + b.CategoryID.String()
}
