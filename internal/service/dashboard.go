package service

import (
	"context"
	"sync"
	"time"

	"github.com/boddenberg/spendsense-go/internal/domain"
	"github.com/boddenberg/spendsense-go/internal/infra/observability"
	"github.com/boddenberg/spendsense-go/internal/port"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var dashboardTracer = otel.Tracer("service/dashboard")

// Dashboard assembles the overview screen and raises budget alerts.
type Dashboard struct {
	expenses  *ExpenseService
	budgets   *BudgetService
	evaluator BudgetEvaluator
	notifier  port.Notifier
	metrics   *observability.Metrics
	logger    *zap.Logger

	mu       sync.Mutex
	lastSeen map[domain.ID]domain.Classification
}

// NewDashboard creates the dashboard service. Escalation memory is dropped
// when the session ends.
func NewDashboard(session *SessionManager, expenses *ExpenseService, budgets *BudgetService, evaluator BudgetEvaluator, notifier port.Notifier, metrics *observability.Metrics, logger *zap.Logger) *Dashboard {
	d := &Dashboard{
		expenses:  expenses,
		budgets:   budgets,
		evaluator: evaluator,
		notifier:  notifier,
		metrics:   metrics,
		logger:    logger,
		lastSeen:  make(map[domain.ID]domain.Classification),
	}
	session.OnTransition(func(_, to domain.AuthState) {
		if to == domain.StateAnonymous {
			d.mu.Lock()
			d.lastSeen = make(map[domain.ID]domain.Classification)
			d.mu.Unlock()
		}
	})
	return d
}

// Load fetches categories, expenses and active budgets concurrently and
// evaluates every budget for the period containing now.
func (d *Dashboard) Load(ctx context.Context, now time.Time) (*domain.Dashboard, error) {
	ctx, span := dashboardTracer.Start(ctx, "Dashboard.Load")
	defer span.End()

	var (
		categories []domain.Category
		expenses   []domain.Expense
		budgets    []domain.Budget
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		categories, err = d.expenses.Categories(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		expenses, err = d.expenses.List(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		budgets, err = d.budgets.List(gctx, true)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if d.evaluator.Location != nil {
		now = now.In(d.evaluator.Location)
	}
	statuses := d.evaluator.EvaluateAll(budgets, expenses, categories, now)
	for _, st := range statuses {
		d.metrics.IncrClassification(string(st.Classification))
	}

	monthStart, monthEnd, _ := periodRange(domain.PeriodMonthly, now, d.evaluator.WeekStart)
	total, byCategory := totalsByCategory(selectBetween(expenses, monthStart, monthEnd), categories)

	dash := &domain.Dashboard{
		Categories:  categories,
		Expenses:    expenses,
		Statuses:    statuses,
		TotalSpent:  total,
		ByCategory:  byCategory,
		MonthStart:  monthStart,
		MonthEnd:    monthEnd,
		GeneratedAt: now,
	}
	dash.Alerts = d.raiseAlerts(ctx, statuses, now)

	span.SetAttributes(
		attribute.Int("budgets", len(statuses)),
		attribute.Int("alerts", len(dash.Alerts)),
	)
	return dash, nil
}

// raiseAlerts notifies once per escalation. A budget that drops back to a
// lower level can escalate, and alert, again later.
func (d *Dashboard) raiseAlerts(ctx context.Context, statuses []domain.BudgetStatus, now time.Time) []domain.BudgetAlert {
	var raised []domain.BudgetAlert

	d.mu.Lock()
	for _, st := range statuses {
		prev, seen := d.lastSeen[st.Budget.ID]
		if !seen {
			prev = domain.ClassOK
		}
		d.lastSeen[st.Budget.ID] = st.Classification
		if st.Classification.Severity() <= prev.Severity() {
			continue
		}
		raised = append(raised, domain.BudgetAlert{
			BudgetID:       st.Budget.ID,
			CategoryName:   st.CategoryName,
			Period:         st.Budget.Period,
			Classification: st.Classification,
			Spent:          st.Spent,
			Limit:          st.Limit,
			PercentUsed:    st.PercentUsed,
			PeriodStart:    st.PeriodStart,
			PeriodEnd:      st.PeriodEnd,
			RaisedAt:       now,
		})
	}
	d.mu.Unlock()

	for _, alert := range raised {
		d.metrics.IncrAlert(string(alert.Classification))
		if err := d.notifier.Notify(ctx, alert); err != nil {
			d.logger.Warn("budget alert delivery failed",
				zap.String("budget_id", alert.BudgetID.String()),
				zap.Error(err),
			)
		}
	}
	return raised
}

func totalsByCategory(expenses []domain.Expense, categories []domain.Category) (decimal.Decimal, map[string]decimal.Decimal) {
	names := make(map[domain.ID]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}

	total := decimal.Zero
	by := make(map[string]decimal.Decimal)
	for _, e := range expenses {
		total = total.Add(e.Amount)
		name, ok := names[e.CategoryID]
		if !ok {
			name = "Uncategorized"
		}
		by[name] = by[name].Add(e.Amount)
	}
	return total, by
}
