package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/boddenberg/spendsense-go/internal/domain"
	"github.com/boddenberg/spendsense-go/internal/port"
)

// CreateBudget defines a budget. A nil category makes it an overall budget.
func (c *Client) CreateBudget(ctx context.Context, creds port.Credentials, req *domain.CreateBudgetRequest) (*domain.Budget, error) {
	var budget domain.Budget
	err := c.do(ctx, call{
		op:       "create budget",
		method:   http.MethodPost,
		path:     "/budgets",
		creds:    &creds,
		jsonBody: req,
		out:      &budget,
	})
	if err != nil {
		return nil, err
	}
	return &budget, nil
}

// ListBudgets fetches the user's budgets.
func (c *Client) ListBudgets(ctx context.Context, creds port.Credentials, activeOnly bool) ([]domain.Budget, error) {
	var budgets []domain.Budget
	err := c.do(ctx, call{
		op:     "fetch budgets",
		method: http.MethodGet,
		path:   "/budgets",
		query:  url.Values{"active_only": {strconv.FormatBool(activeOnly)}},
		creds:  &creds,
		out:    &budgets,
	})
	if err != nil {
		return nil, err
	}
	return budgets, nil
}

// GetBudget fetches one budget.
func (c *Client) GetBudget(ctx context.Context, creds port.Credentials, id domain.ID) (*domain.Budget, error) {
	var budget domain.Budget
	err := c.do(ctx, call{
		op:       "fetch budget",
		method:   http.MethodGet,
		path:     idPath("/budgets", id),
		creds:    &creds,
		out:      &budget,
		resource: "budget",
		id:       id.String(),
	})
	if err != nil {
		return nil, err
	}
	return &budget, nil
}

// UpdateBudget applies a partial update.
func (c *Client) UpdateBudget(ctx context.Context, creds port.Credentials, id domain.ID, req *domain.UpdateBudgetRequest) (*domain.Budget, error) {
	var budget domain.Budget
	err := c.do(ctx, call{
		op:       "update budget",
		method:   http.MethodPut,
		path:     idPath("/budgets", id),
		creds:    &creds,
		jsonBody: req,
		out:      &budget,
		resource: "budget",
		id:       id.String(),
	})
	if err != nil {
		return nil, err
	}
	return &budget, nil
}

// DeleteBudget removes a budget.
func (c *Client) DeleteBudget(ctx context.Context, creds port.Credentials, id domain.ID) error {
	return c.do(ctx, call{
		op:       "delete budget",
		method:   http.MethodDelete,
		path:     idPath("/budgets", id),
		creds:    &creds,
		resource: "budget",
		id:       id.String(),
	})
}

// BudgetStatus fetches the backend's own spent/limit/remaining figures.
func (c *Client) BudgetStatus(ctx context.Context, creds port.Credentials) ([]domain.RemoteBudgetStatus, error) {
	var statuses []domain.RemoteBudgetStatus
	err := c.do(ctx, call{
		op:     "fetch budget status",
		method: http.MethodGet,
		path:   "/budgets/status",
		creds:  &creds,
		out:    &statuses,
	})
	if err != nil {
		return nil, err
	}
	return statuses, nil
}
