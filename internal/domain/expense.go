package domain

import (
	"bytes"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// ============================================================
// Categories & Expenses
// ============================================================

// Category is a backend-owned expense category.
type Category struct {
	ID   ID     `json:"category_id"`
	Name string `json:"name"`
}

func (c *Category) UnmarshalJSON(b []byte) error {
	var raw struct {
		CategoryID ID     `json:"category_id"`
		ID         ID     `json:"id"`
		Name       string `json:"name"`
	}
	if err := json.NewDecoder(bytes.NewReader(b)).Decode(&raw); err != nil {
		return err
	}
	c.ID = raw.CategoryID
	if c.ID == "" {
		c.ID = raw.ID
	}
	c.Name = raw.Name
	return nil
}

// Expense is a single recorded spend.
type Expense struct {
	ID          ID              `json:"expense_id"`
	CategoryID  ID              `json:"category_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	OccurredAt  Date            `json:"created_at"`
}

func (e *Expense) UnmarshalJSON(b []byte) error {
	var raw struct {
		ExpenseID   ID              `json:"expense_id"`
		ID          ID              `json:"id"`
		CategoryID  ID              `json:"category_id"`
		Amount      decimal.Decimal `json:"amount"`
		Description *string         `json:"description"`
		CreatedAt   Date            `json:"created_at"`
		OccurredAt  Date            `json:"occurred_at"`
	}
	if err := json.NewDecoder(bytes.NewReader(b)).Decode(&raw); err != nil {
		return err
	}
	e.ID = raw.ExpenseID
	if e.ID == "" {
		e.ID = raw.ID
	}
	e.CategoryID = raw.CategoryID
	e.Amount = raw.Amount
	e.Description = ""
	if raw.Description != nil {
		e.Description = *raw.Description
	}
	e.OccurredAt = raw.CreatedAt
	if e.OccurredAt.IsZero() {
		e.OccurredAt = raw.OccurredAt
	}
	return nil
}

// ExpenseInput is what the caller provides to record or update an expense.
type ExpenseInput struct {
	CategoryID  ID
	Amount      decimal.Decimal
	Description string
	OccurredAt  *Date // nil lets the backend stamp the current date
}

// CreateExpenseRequest is the body for POST /expenses.
type CreateExpenseRequest struct {
	CategoryID  ID      `json:"category_id"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	CreatedAt   string  `json:"created_at,omitempty"` // MM/DD/YYYY
}

// UpdateExpenseRequest is the body for PUT /expenses/{id}. Nil fields are left unchanged.
type UpdateExpenseRequest struct {
	CategoryID  *ID      `json:"category_id,omitempty"`
	Amount      *float64 `json:"amount,omitempty"`
	Description *string  `json:"description,omitempty"`
	CreatedAt   string   `json:"created_at,omitempty"`
}

// SummaryQuery selects the window for GET /expenses/summary.
type SummaryQuery struct {
	Month   int
	Year    int
	Day     int // optional
	Week    int // optional
	Quarter int // optional
}

// ExpenseSummary is returned by GET /expenses/summary.
type ExpenseSummary struct {
	TotalExpense  decimal.Decimal            `json:"total_expense"`
	ByCategory    map[string]decimal.Decimal `json:"by_category"`
	AveragePerDay decimal.Decimal            `json:"average_per_day"`
	TotalDays     int                        `json:"total_days"`
}
