package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/boddenberg/spendsense-go/internal/domain"
	"github.com/boddenberg/spendsense-go/internal/infra/cache"
	"github.com/boddenberg/spendsense-go/internal/infra/observability"
	"github.com/boddenberg/spendsense-go/internal/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

type fixture struct {
	api      *fakeBackend
	session  *service.SessionManager
	expenses *service.ExpenseService
	budgets  *service.BudgetService
	metrics  *observability.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	api := newFakeBackend()
	api.categories = []domain.Category{{ID: "1", Name: "Food"}, {ID: "2", Name: "Transport"}, {ID: "3", Name: "Entertainment"}}
	metrics := observability.NewMetrics()
	session := loggedIn(t, api)
	c := cache.New[[]domain.Category](time.Minute)
	t.Cleanup(c.Close)
	return &fixture{
		api:      api,
		session:  session,
		expenses: service.NewExpenseService(api, session, c, metrics, zap.NewNop(), fixedClock(testNow)),
		budgets:  service.NewBudgetService(api, session, zap.NewNop()),
		metrics:  metrics,
	}
}

// --- Expenses ---

func TestCategories_Cached(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		cats, err := f.expenses.Categories(ctx)
		require.NoError(t, err)
		require.Len(t, cats, 3)
	}
	assert.Equal(t, 1, f.api.count("categories"))
	assert.InDelta(t, 2.0/3.0, f.metrics.Snapshot().CacheHitRate, 0.001)

	require.NoError(t, f.session.Logout(ctx))
	_, err := f.expenses.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, f.api.count("categories"), "logout purges the category cache")
}

func TestResolveCategory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		in   string
		want domain.ID
	}{
		{"2", "2"},
		{"food", "1"},
		{"  FOOD ", "1"},
		{"Transprt", "2"},
		{"entertainmnet", "3"},
	}
	for _, tt := range tests {
		cat, err := f.expenses.ResolveCategory(ctx, tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, cat.ID, tt.in)
	}

	_, err := f.expenses.ResolveCategory(ctx, "groceries")
	var nf *domain.ErrNotFound
	assert.ErrorAs(t, err, &nf)
}

func TestCreateExpense_ValidationCollectsAll(t *testing.T) {
	f := newFixture(t)
	future := domain.CivilDate(2024, 3, 16)

	_, err := f.expenses.Create(context.Background(), domain.ExpenseInput{
		Amount:     decimal.NewFromInt(-1),
		OccurredAt: &future,
	})
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{"Category is required", "Amount cannot be negative", "Date cannot be in the future"}, ve.Messages)
	assert.Zero(t, f.api.count("create_expense"))
}

func TestCreateExpense_SendsWireDate(t *testing.T) {
	f := newFixture(t)
	today := domain.CivilDate(2024, 3, 15)

	_, err := f.expenses.Create(context.Background(), domain.ExpenseInput{
		CategoryID:  "1",
		Amount:      decimal.RequireFromString("12.50"),
		Description: "  lunch ",
		OccurredAt:  &today,
	})
	require.NoError(t, err)
	require.NotNil(t, f.api.lastExpense)
	assert.Equal(t, "03/15/2024", f.api.lastExpense.CreatedAt)
	assert.Equal(t, "lunch", f.api.lastExpense.Description)
	assert.InDelta(t, 12.5, f.api.lastExpense.Amount, 1e-9)
}

func TestSummary_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.expenses.Summary(context.Background(), domain.SummaryQuery{Month: 13, Year: 1999})
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Messages, 2)

	_, err = f.expenses.Summary(context.Background(), domain.SummaryQuery{Month: 3, Year: 2024})
	assert.NoError(t, err)
}

func TestExpenses_RequireSession(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.Logout(context.Background()))

	_, err := f.expenses.List(context.Background())
	var authErr *domain.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, domain.AuthNotAuthenticated, authErr.Reason)
}

// --- Budgets ---

func TestCreateBudget_DefaultsThreshold(t *testing.T) {
	f := newFixture(t)

	_, err := f.budgets.Create(context.Background(), domain.BudgetInput{
		Limit:  decimal.NewFromInt(500),
		Period: domain.PeriodMonthly,
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.8, f.api.lastBudget.AlertThreshold, 1e-9)
	assert.Nil(t, f.api.lastBudget.CategoryID, "no category means an overall budget")
}

func TestCreateBudget_Validation(t *testing.T) {
	f := newFixture(t)
	bad := decimal.RequireFromString("1.5")
	start, end := domain.CivilDate(2024, 3, 10), domain.CivilDate(2024, 3, 1)

	_, err := f.budgets.Create(context.Background(), domain.BudgetInput{
		Limit:          decimal.Zero,
		Period:         "fortnightly",
		AlertThreshold: &bad,
		StartDate:      &start,
		EndDate:        &end,
	})
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Messages, 4)
	assert.Zero(t, f.api.count("create_budget"))
}

func TestRemoteStatus_Reclassified(t *testing.T) {
	f := newFixture(t)
	th := decimal.RequireFromString("0.5")
	f.api.remote = []domain.RemoteBudgetStatus{
		{BudgetID: "1", CategoryID: idp("1"), CategoryName: "Food", Period: domain.PeriodMonthly, Spent: dec("60"), Limit: dec("100"), AlertThreshold: &th},
		{BudgetID: "2", Period: domain.PeriodWeekly, Spent: dec("10"), Limit: dec("0")},
	}

	statuses, err := f.budgets.RemoteStatus(context.Background())
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	assert.Equal(t, domain.ClassNearLimit, statuses[0].Classification)
	assert.Equal(t, domain.ClassOverBudget, statuses[1].Classification)
	assert.Equal(t, "Overall", statuses[1].CategoryName)
}

// --- Dashboard ---

func TestDashboard_AlertsOncePerEscalation(t *testing.T) {
	f := newFixture(t)
	f.api.budgets = []domain.Budget{
		{ID: "food", CategoryID: idp("1"), Limit: dec("100"), Period: domain.PeriodMonthly, AlertThreshold: dec("0.8"), Active: true},
	}
	f.api.expenses = []domain.Expense{expense("1", "85", domain.CivilDate(2024, 3, 3))}

	notifier := &recordingNotifier{}
	dash := service.NewDashboard(f.session, f.expenses, f.budgets, service.NewBudgetEvaluator(time.UTC), notifier, f.metrics, zap.NewNop())
	ctx := context.Background()

	d, err := dash.Load(ctx, testNow)
	require.NoError(t, err)
	require.Len(t, d.Statuses, 1)
	assert.Equal(t, domain.ClassNearLimit, d.Statuses[0].Classification)
	require.Len(t, d.Alerts, 1)

	// Same state again: no new alert.
	d, err = dash.Load(ctx, testNow)
	require.NoError(t, err)
	assert.Empty(t, d.Alerts)

	// Escalate to over budget.
	f.api.expenses = append(f.api.expenses, expense("1", "20", domain.CivilDate(2024, 3, 14)))
	d, err = dash.Load(ctx, testNow)
	require.NoError(t, err)
	require.Len(t, d.Alerts, 1)
	assert.Equal(t, domain.ClassOverBudget, d.Alerts[0].Classification)

	assert.Len(t, notifier.alerts, 2)
	snap := f.metrics.Snapshot()
	assert.Equal(t, 1.0, snap.Alerts["near_limit"])
	assert.Equal(t, 1.0, snap.Alerts["over_budget"])
	assert.Equal(t, 2.0, snap.Evaluations["near_limit"])
}

func TestDashboard_Totals(t *testing.T) {
	f := newFixture(t)
	f.api.expenses = []domain.Expense{
		expense("1", "10.10", domain.CivilDate(2024, 3, 1)),
		expense("2", "5", domain.CivilDate(2024, 3, 2)),
		expense("1", "1.01", domain.CivilDate(2024, 3, 3)),
		expense("9", "2", domain.CivilDate(2024, 3, 4)),
		expense("1", "100", domain.CivilDate(2024, 2, 28)),
	}
	dash := service.NewDashboard(f.session, f.expenses, f.budgets, service.NewBudgetEvaluator(time.UTC), &recordingNotifier{}, f.metrics, zap.NewNop())

	d, err := dash.Load(context.Background(), testNow)
	require.NoError(t, err)
	assert.True(t, d.TotalSpent.Equal(dec("18.11")), "total %s", d.TotalSpent)
	assert.True(t, d.ByCategory["Food"].Equal(dec("11.11")))
	assert.True(t, d.ByCategory["Uncategorized"].Equal(dec("2")))
	assert.Len(t, d.Expenses, 5)
}

func TestDashboard_NotifierFailureDoesNotFailLoad(t *testing.T) {
	f := newFixture(t)
	f.api.budgets = []domain.Budget{{ID: "all", Limit: dec("1"), Period: domain.PeriodMonthly, AlertThreshold: dec("0.8"), Active: true}}
	f.api.expenses = []domain.Expense{expense("1", "5", domain.CivilDate(2024, 3, 3))}
	dash := service.NewDashboard(f.session, f.expenses, f.budgets, service.NewBudgetEvaluator(time.UTC), &recordingNotifier{err: errors.New("broker down")}, f.metrics, zap.NewNop())

	d, err := dash.Load(context.Background(), testNow)
	require.NoError(t, err)
	assert.Len(t, d.Alerts, 1)
}

func TestDashboard_FetchErrorPropagates(t *testing.T) {
	f := newFixture(t)
	f.api.listErr = &domain.NetworkError{Operation: "fetch expenses", Status: 500}
	dash := service.NewDashboard(f.session, f.expenses, f.budgets, service.NewBudgetEvaluator(time.UTC), &recordingNotifier{}, f.metrics, zap.NewNop())

	_, err := dash.Load(context.Background(), testNow)
	var netErr *domain.NetworkError
	assert.ErrorAs(t, err, &netErr)
}

// --- Assistant ---

func TestAssistant_EmptyQuery(t *testing.T) {
	f := newFixture(t)
	a := service.NewAssistant(f.api, f.session, 4, f.metrics, zap.NewNop())

	_, err := a.Ask(context.Background(), "   ")
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{"Query cannot be empty"}, ve.Messages)
	assert.Zero(t, f.api.count("ai"))
}

func TestAssistant_BoundedHistory(t *testing.T) {
	f := newFixture(t)
	f.api.aiAnswer = "ok"
	a := service.NewAssistant(f.api, f.session, 4, f.metrics, zap.NewNop())
	ctx := context.Background()

	for _, q := range []string{"one", "two", "three"} {
		_, err := a.Ask(ctx, q)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"user: one", "assistant: ok", "user: two", "assistant: ok"}, f.api.lastAI.Context)
	assert.Len(t, a.History(), 4)

	require.NoError(t, f.session.Logout(ctx))
	assert.Empty(t, a.History(), "logout clears the conversation")
}

func TestAssistant_ContextCancelled(t *testing.T) {
	f := newFixture(t)
	a := service.NewAssistant(f.api, f.session, 4, f.metrics, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := a.Ask(ctx, "hello")
	assert.ErrorIs(t, err, context.Canceled)
}
