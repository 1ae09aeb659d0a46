package service

import (
	"context"
	"strings"
	"time"

	"github.com/boddenberg/spendsense-go/internal/domain"
	"github.com/boddenberg/spendsense-go/internal/infra/observability"
	"github.com/boddenberg/spendsense-go/internal/port"

	"github.com/agnivade/levenshtein"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var expenseTracer = otel.Tracer("service/expenses")

const (
	categoriesCacheKey = "categories"
	// maxCategoryDistance is the largest edit distance accepted when a
	// category name is not matched exactly.
	maxCategoryDistance = 2
)

// ExpenseService manages categories and expenses for the logged-in user.
type ExpenseService struct {
	api     port.Backend
	session *SessionManager
	cache   port.Cache[[]domain.Category]
	metrics *observability.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewExpenseService creates the service. The category cache is purged
// whenever the session ends.
func NewExpenseService(api port.Backend, session *SessionManager, cache port.Cache[[]domain.Category], metrics *observability.Metrics, logger *zap.Logger, now func() time.Time) *ExpenseService {
	if now == nil {
		now = time.Now
	}
	s := &ExpenseService{api: api, session: session, cache: cache, metrics: metrics, logger: logger, now: now}
	session.OnTransition(func(_, to domain.AuthState) {
		if to == domain.StateAnonymous || to == domain.StateAuthenticated {
			cache.Purge()
		}
	})
	return s
}

// ============================================================
// Categories
// ============================================================

// Categories returns the category list, served from cache when possible.
func (s *ExpenseService) Categories(ctx context.Context) ([]domain.Category, error) {
	ctx, span := expenseTracer.Start(ctx, "ExpenseService.Categories")
	defer span.End()

	if cached, ok := s.cache.Get(categoriesCacheKey); ok {
		s.metrics.IncrCacheHit("categories")
		return cached, nil
	}
	s.metrics.IncrCacheMiss("categories")

	cats, err := s.api.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Set(categoriesCacheKey, cats)
	return cats, nil
}

// CreateCategory adds a category and invalidates the cached list.
func (s *ExpenseService) CreateCategory(ctx context.Context, name string) (*domain.Category, error) {
	ctx, span := expenseTracer.Start(ctx, "ExpenseService.CreateCategory")
	defer span.End()

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &domain.ValidationError{Messages: []string{"Category name is required"}}
	}

	cat, err := authorized(ctx, s.session, func(ctx context.Context, creds port.Credentials) (*domain.Category, error) {
		return s.api.CreateCategory(ctx, creds, name)
	})
	if err != nil {
		return nil, err
	}
	s.cache.Delete(categoriesCacheKey)
	return cat, nil
}

// ResolveCategory finds a category by ID, by case-insensitive name, or by
// the closest name within a small edit distance.
func (s *ExpenseService) ResolveCategory(ctx context.Context, nameOrID string) (*domain.Category, error) {
	cats, err := s.Categories(ctx)
	if err != nil {
		return nil, err
	}

	q := strings.TrimSpace(nameOrID)
	for i := range cats {
		if cats[i].ID.String() == q {
			return &cats[i], nil
		}
	}
	lq := strings.ToLower(q)
	for i := range cats {
		if strings.ToLower(cats[i].Name) == lq {
			return &cats[i], nil
		}
	}

	best, bestDist := -1, maxCategoryDistance+1
	for i := range cats {
		d := levenshtein.ComputeDistance(lq, strings.ToLower(cats[i].Name))
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return nil, &domain.ErrNotFound{Resource: "category", ID: q}
	}
	return &cats[best], nil
}

// ============================================================
// Expenses
// ============================================================

// Create validates the input and records the expense.
func (s *ExpenseService) Create(ctx context.Context, in domain.ExpenseInput) (*domain.Expense, error) {
	ctx, span := expenseTracer.Start(ctx, "ExpenseService.Create")
	defer span.End()

	if err := s.validate(in); err != nil {
		return nil, err
	}
	req := &domain.CreateExpenseRequest{
		CategoryID:  in.CategoryID,
		Amount:      in.Amount.InexactFloat64(),
		Description: strings.TrimSpace(in.Description),
	}
	if in.OccurredAt != nil {
		req.CreatedAt = in.OccurredAt.Wire()
	}

	exp, err := authorized(ctx, s.session, func(ctx context.Context, creds port.Credentials) (*domain.Expense, error) {
		return s.api.CreateExpense(ctx, creds, req)
	})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("expense_id", exp.ID.String()))
	s.logger.Debug("expense recorded", zap.String("expense_id", exp.ID.String()))
	return exp, nil
}

// List returns every expense of the user.
func (s *ExpenseService) List(ctx context.Context) ([]domain.Expense, error) {
	ctx, span := expenseTracer.Start(ctx, "ExpenseService.List")
	defer span.End()

	return authorized(ctx, s.session, func(ctx context.Context, creds port.Credentials) ([]domain.Expense, error) {
		return s.api.ListExpenses(ctx, creds)
	})
}

// Update applies the non-nil fields of patch.
func (s *ExpenseService) Update(ctx context.Context, id domain.ID, patch ExpensePatch) (*domain.Expense, error) {
	ctx, span := expenseTracer.Start(ctx, "ExpenseService.Update")
	defer span.End()

	var v domain.Validation
	if patch.Amount != nil {
		v.Check(!patch.Amount.IsNegative(), "Amount cannot be negative")
	}
	if patch.OccurredAt != nil {
		v.Check(!s.inFuture(*patch.OccurredAt), "Date cannot be in the future")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	req := &domain.UpdateExpenseRequest{CategoryID: patch.CategoryID, Description: patch.Description}
	if patch.Amount != nil {
		f := patch.Amount.InexactFloat64()
		req.Amount = &f
	}
	if patch.OccurredAt != nil {
		req.CreatedAt = patch.OccurredAt.Wire()
	}

	return authorized(ctx, s.session, func(ctx context.Context, creds port.Credentials) (*domain.Expense, error) {
		return s.api.UpdateExpense(ctx, creds, id, req)
	})
}

// Delete removes an expense.
func (s *ExpenseService) Delete(ctx context.Context, id domain.ID) error {
	ctx, span := expenseTracer.Start(ctx, "ExpenseService.Delete")
	defer span.End()

	return s.session.Authorize(ctx, func(ctx context.Context, creds port.Credentials) error {
		return s.api.DeleteExpense(ctx, creds, id)
	})
}

// Summary fetches the backend aggregate for a month.
func (s *ExpenseService) Summary(ctx context.Context, q domain.SummaryQuery) (*domain.ExpenseSummary, error) {
	ctx, span := expenseTracer.Start(ctx, "ExpenseService.Summary")
	defer span.End()

	var v domain.Validation
	v.Check(q.Month >= 1 && q.Month <= 12, "Month must be between 1 and 12")
	v.Check(q.Year >= 2000 && q.Year <= 2100, "Year must be between 2000 and 2100")
	v.Check(q.Day >= 0 && q.Day <= 31, "Day must be between 1 and 31")
	v.Check(q.Week >= 0 && q.Week <= 5, "Week must be between 1 and 5")
	v.Check(q.Quarter >= 0 && q.Quarter <= 4, "Quarter must be between 1 and 4")
	if err := v.Err(); err != nil {
		return nil, err
	}

	return authorized(ctx, s.session, func(ctx context.Context, creds port.Credentials) (*domain.ExpenseSummary, error) {
		return s.api.ExpenseSummary(ctx, creds, q)
	})
}

// ExpensePatch holds the fields to change; nil fields are left as they are.
type ExpensePatch struct {
	CategoryID  *domain.ID
	Amount      *decimal.Decimal
	Description *string
	OccurredAt  *domain.Date
}

func (s *ExpenseService) validate(in domain.ExpenseInput) error {
	var v domain.Validation
	v.Check(in.CategoryID != "", "Category is required")
	v.Check(!in.Amount.IsNegative(), "Amount cannot be negative")
	if in.OccurredAt != nil {
		v.Check(!s.inFuture(*in.OccurredAt), "Date cannot be in the future")
	}
	return v.Err()
}

// inFuture compares calendar days in the clock's location, so an expense
// dated today is always accepted.
func (s *ExpenseService) inFuture(d domain.Date) bool {
	now := s.now()
	at := d.In(now.Location())
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return !at.Before(today.AddDate(0, 0, 1))
}
