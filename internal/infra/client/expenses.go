package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/boddenberg/spendsense-go/internal/domain"
	"github.com/boddenberg/spendsense-go/internal/port"
)

// --- Categories ---

// ListCategories fetches all categories. The endpoint is public.
func (c *Client) ListCategories(ctx context.Context) ([]domain.Category, error) {
	var categories []domain.Category
	err := c.do(ctx, call{
		op:     "fetch categories",
		method: http.MethodGet,
		path:   "/categories",
		out:    &categories,
	})
	if err != nil {
		return nil, err
	}
	return categories, nil
}

// CreateCategory adds a category.
func (c *Client) CreateCategory(ctx context.Context, creds port.Credentials, name string) (*domain.Category, error) {
	var category domain.Category
	err := c.do(ctx, call{
		op:       "create category",
		method:   http.MethodPost,
		path:     "/categories",
		creds:    &creds,
		jsonBody: map[string]string{"name": name},
		out:      &category,
	})
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// --- Expenses ---

// CreateExpense records an expense for the authenticated user.
func (c *Client) CreateExpense(ctx context.Context, creds port.Credentials, req *domain.CreateExpenseRequest) (*domain.Expense, error) {
	var expense domain.Expense
	err := c.do(ctx, call{
		op:       "create expense",
		method:   http.MethodPost,
		path:     "/expenses",
		creds:    &creds,
		jsonBody: req,
		out:      &expense,
	})
	if err != nil {
		return nil, err
	}
	return &expense, nil
}

// ListExpenses fetches every expense of the authenticated user.
func (c *Client) ListExpenses(ctx context.Context, creds port.Credentials) ([]domain.Expense, error) {
	var expenses []domain.Expense
	err := c.do(ctx, call{
		op:     "fetch expenses",
		method: http.MethodGet,
		path:   "/expenses",
		creds:  &creds,
		out:    &expenses,
	})
	if err != nil {
		return nil, err
	}
	return expenses, nil
}

// UpdateExpense applies a partial update.
func (c *Client) UpdateExpense(ctx context.Context, creds port.Credentials, id domain.ID, req *domain.UpdateExpenseRequest) (*domain.Expense, error) {
	var expense domain.Expense
	err := c.do(ctx, call{
		op:       "update expense",
		method:   http.MethodPut,
		path:     idPath("/expenses", id),
		creds:    &creds,
		jsonBody: req,
		out:      &expense,
		resource: "expense",
		id:       id.String(),
	})
	if err != nil {
		return nil, err
	}
	return &expense, nil
}

// DeleteExpense removes an expense.
func (c *Client) DeleteExpense(ctx context.Context, creds port.Credentials, id domain.ID) error {
	return c.do(ctx, call{
		op:       "delete expense",
		method:   http.MethodDelete,
		path:     idPath("/expenses", id),
		creds:    &creds,
		resource: "expense",
		id:       id.String(),
	})
}

// ExpenseSummary fetches the backend's aggregate for a month, optionally
// narrowed to a day, week or quarter.
func (c *Client) ExpenseSummary(ctx context.Context, creds port.Credentials, q domain.SummaryQuery) (*domain.ExpenseSummary, error) {
	query := url.Values{}
	query.Set("month", strconv.Itoa(q.Month))
	query.Set("year", strconv.Itoa(q.Year))
	if q.Day > 0 {
		query.Set("day", strconv.Itoa(q.Day))
	}
	if q.Week > 0 {
		query.Set("week", strconv.Itoa(q.Week))
	}
	if q.Quarter > 0 {
		query.Set("quarter", strconv.Itoa(q.Quarter))
	}

	var summary domain.ExpenseSummary
	err := c.do(ctx, call{
		op:     "fetch expense summary",
		method: http.MethodGet,
		path:   "/expenses/summary",
		query:  query,
		creds:  &creds,
		out:    &summary,
	})
	if err != nil {
		return nil, err
	}
	return &summary, nil
}
