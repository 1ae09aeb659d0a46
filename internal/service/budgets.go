package service

import (
	"context"
	"time"

	"github.com/boddenberg/spendsense-go/internal/domain"
	"github.com/boddenberg/spendsense-go/internal/port"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var budgetTracer = otel.Tracer("service/budgets")

// BudgetService manages budgets and their backend-reported status.
type BudgetService struct {
	api     port.Backend
	session *SessionManager
	logger  *zap.Logger
}

func NewBudgetService(api port.Backend, session *SessionManager, logger *zap.Logger) *BudgetService {
	return &BudgetService{api: api, session: session, logger: logger}
}

// Create validates in and defines the budget. A missing threshold becomes 0.8.
func (s *BudgetService) Create(ctx context.Context, in domain.BudgetInput) (*domain.Budget, error) {
	ctx, span := budgetTracer.Start(ctx, "BudgetService.Create")
	defer span.End()

	threshold := domain.DefaultAlertThreshold
	if in.AlertThreshold != nil {
		threshold = *in.AlertThreshold
	}

	var v domain.Validation
	v.Check(in.Limit.IsPositive(), "Budget amount must be greater than 0")
	v.Check(in.Period.Valid(), "Period must be one of daily, weekly, monthly, yearly")
	checkThreshold(&v, threshold)
	if in.StartDate != nil && in.EndDate != nil {
		v.Check(!in.EndDate.In(time.UTC).Before(in.StartDate.In(time.UTC)), "End date must not be before start date")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	req := &domain.CreateBudgetRequest{
		CategoryID:     in.CategoryID,
		Amount:         in.Limit.InexactFloat64(),
		Period:         in.Period,
		AlertThreshold: threshold.InexactFloat64(),
	}
	if in.StartDate != nil {
		req.StartDate = in.StartDate.Wire()
	}
	if in.EndDate != nil {
		req.EndDate = in.EndDate.Wire()
	}

	b, err := authorized(ctx, s.session, func(ctx context.Context, creds port.Credentials) (*domain.Budget, error) {
		return s.api.CreateBudget(ctx, creds, req)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("budget created", zap.String("budget_id", b.ID.String()), zap.String("period", string(b.Period)))
	return b, nil
}

// List returns the user's budgets.
func (s *BudgetService) List(ctx context.Context, activeOnly bool) ([]domain.Budget, error) {
	ctx, span := budgetTracer.Start(ctx, "BudgetService.List")
	defer span.End()

	return authorized(ctx, s.session, func(ctx context.Context, creds port.Credentials) ([]domain.Budget, error) {
		return s.api.ListBudgets(ctx, creds, activeOnly)
	})
}

// Get returns one budget.
func (s *BudgetService) Get(ctx context.Context, id domain.ID) (*domain.Budget, error) {
	ctx, span := budgetTracer.Start(ctx, "BudgetService.Get")
	defer span.End()

	return authorized(ctx, s.session, func(ctx context.Context, creds port.Credentials) (*domain.Budget, error) {
		return s.api.GetBudget(ctx, creds, id)
	})
}

// BudgetPatch holds the fields to change; nil fields are left as they are.
type BudgetPatch struct {
	Limit          *decimal.Decimal
	Period         *domain.Period
	AlertThreshold *decimal.Decimal
	EndDate        *domain.Date
	Active         *bool
}

// Update applies the non-nil fields of patch.
func (s *BudgetService) Update(ctx context.Context, id domain.ID, patch BudgetPatch) (*domain.Budget, error) {
	ctx, span := budgetTracer.Start(ctx, "BudgetService.Update")
	defer span.End()

	var v domain.Validation
	req := &domain.UpdateBudgetRequest{Period: patch.Period, IsActive: patch.Active}
	if patch.Limit != nil {
		v.Check(patch.Limit.IsPositive(), "Budget amount must be greater than 0")
		f := patch.Limit.InexactFloat64()
		req.Amount = &f
	}
	if patch.Period != nil {
		v.Check(patch.Period.Valid(), "Period must be one of daily, weekly, monthly, yearly")
	}
	if patch.AlertThreshold != nil {
		checkThreshold(&v, *patch.AlertThreshold)
		f := patch.AlertThreshold.InexactFloat64()
		req.AlertThreshold = &f
	}
	if patch.EndDate != nil {
		req.EndDate = patch.EndDate.Wire()
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	return authorized(ctx, s.session, func(ctx context.Context, creds port.Credentials) (*domain.Budget, error) {
		return s.api.UpdateBudget(ctx, creds, id, req)
	})
}

// Delete removes a budget.
func (s *BudgetService) Delete(ctx context.Context, id domain.ID) error {
	ctx, span := budgetTracer.Start(ctx, "BudgetService.Delete")
	defer span.End()

	return s.session.Authorize(ctx, func(ctx context.Context, creds port.Credentials) error {
		return s.api.DeleteBudget(ctx, creds, id)
	})
}

// RemoteStatus fetches the backend's spent figures and classifies them with
// the same rules as local evaluation.
func (s *BudgetService) RemoteStatus(ctx context.Context) ([]domain.BudgetStatus, error) {
	ctx, span := budgetTracer.Start(ctx, "BudgetService.RemoteStatus")
	defer span.End()

	remote, err := authorized(ctx, s.session, func(ctx context.Context, creds port.Credentials) ([]domain.RemoteBudgetStatus, error) {
		return s.api.BudgetStatus(ctx, creds)
	})
	if err != nil {
		return nil, err
	}

	out := make([]domain.BudgetStatus, 0, len(remote))
	for _, r := range remote {
		b := domain.Budget{
			ID:             r.BudgetID,
			CategoryID:     r.CategoryID,
			Limit:          r.Limit,
			Period:         r.Period,
			AlertThreshold: domain.DefaultAlertThreshold,
			Active:         true,
		}
		if r.AlertThreshold != nil {
			b.AlertThreshold = *r.AlertThreshold
		}
		status := StatusFromTotals(b, r.Spent)
		status.CategoryName = r.CategoryName
		if status.CategoryName == "" && b.Overall() {
			status.CategoryName = "Overall"
		}
		out = append(out, status)
	}
	return out, nil
}

func checkThreshold(v *domain.Validation, t decimal.Decimal) {
	v.Check(!t.IsNegative() && t.LessThanOrEqual(decimal.NewFromInt(1)), "Alert threshold must be between 0 and 1")
}
