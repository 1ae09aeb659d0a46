package domain

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Budgets
// ============================================================

// Period is the recurring calendar window a budget limit applies to.
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	PeriodYearly  Period = "yearly"
)

// Valid reports whether p is a known period.
func (p Period) Valid() bool {
	switch p {
	case PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodYearly:
		return true
	}
	return false
}

// DefaultAlertThreshold is applied when a budget is created without one.
var DefaultAlertThreshold = decimal.RequireFromString("0.8")

// Budget is a spending limit over a period, for one category or overall.
type Budget struct {
	ID             ID              `json:"budget_id"`
	CategoryID     *ID             `json:"category_id"` // nil = overall budget
	Limit          decimal.Decimal `json:"amount"`
	Period         Period          `json:"period"`
	AlertThreshold decimal.Decimal `json:"alert_threshold"`
	StartDate      Date            `json:"start_date"`
	EndDate        Date            `json:"end_date"`
	Active         bool            `json:"is_active"`
}

// Overall reports whether the budget spans all categories.
func (b Budget) Overall() bool {
	return b.CategoryID == nil || *b.CategoryID == ""
}

func (b *Budget) UnmarshalJSON(data []byte) error {
	var raw struct {
		BudgetID       ID               `json:"budget_id"`
		ID             ID               `json:"id"`
		CategoryID     *ID              `json:"category_id"`
		Amount         decimal.Decimal  `json:"amount"`
		Limit          *decimal.Decimal `json:"limit"`
		Period         Period           `json:"period"`
		AlertThreshold *decimal.Decimal `json:"alert_threshold"`
		StartDate      Date             `json:"start_date"`
		EndDate        Date             `json:"end_date"`
		IsActive       *bool            `json:"is_active"`
	}
	if err := json.NewDecoder(bytes.NewReader(data)).Decode(&raw); err != nil {
		return err
	}
	b.ID = raw.BudgetID
	if b.ID == "" {
		b.ID = raw.ID
	}
	b.CategoryID = raw.CategoryID
	if b.CategoryID != nil && *b.CategoryID == "" {
		b.CategoryID = nil
	}
	b.Limit = raw.Amount
	if raw.Limit != nil {
		b.Limit = *raw.Limit
	}
	b.Period = raw.Period
	b.AlertThreshold = DefaultAlertThreshold
	if raw.AlertThreshold != nil {
		b.AlertThreshold = *raw.AlertThreshold
	}
	b.StartDate = raw.StartDate
	b.EndDate = raw.EndDate
	b.Active = raw.IsActive == nil || *raw.IsActive
	return nil
}

// BudgetInput is what the caller provides to create a budget.
type BudgetInput struct {
	CategoryID     *ID
	Limit          decimal.Decimal
	Period         Period
	AlertThreshold *decimal.Decimal // nil = DefaultAlertThreshold
	StartDate      *Date
	EndDate        *Date
}

// CreateBudgetRequest is the body for POST /budgets.
type CreateBudgetRequest struct {
	CategoryID     *ID     `json:"category_id"`
	Amount         float64 `json:"amount"`
	Period         Period  `json:"period"`
	AlertThreshold float64 `json:"alert_threshold"`
	StartDate      string  `json:"start_date,omitempty"`
	EndDate        string  `json:"end_date,omitempty"`
}

// UpdateBudgetRequest is the body for PUT /budgets/{id}. Nil fields are left unchanged.
type UpdateBudgetRequest struct {
	Amount         *float64 `json:"amount,omitempty"`
	Period         *Period  `json:"period,omitempty"`
	AlertThreshold *float64 `json:"alert_threshold,omitempty"`
	EndDate        string   `json:"end_date,omitempty"`
	IsActive       *bool    `json:"is_active,omitempty"`
}

// Classification is the three-level budget status.
type Classification string

const (
	ClassOK         Classification = "ok"
	ClassNearLimit  Classification = "near_limit"
	ClassOverBudget Classification = "over_budget"
)

// Severity orders classifications: ok < near_limit < over_budget.
func (c Classification) Severity() int {
	switch c {
	case ClassNearLimit:
		return 1
	case ClassOverBudget:
		return 2
	}
	return 0
}

// BudgetStatus is the derived, display-ready state of one budget.
type BudgetStatus struct {
	Budget         Budget              `json:"budget"`
	CategoryName   string              `json:"category_name,omitempty"`
	Spent          decimal.Decimal     `json:"spent"`
	Limit          decimal.Decimal     `json:"limit"`
	Remaining      decimal.Decimal     `json:"remaining"`
	PercentUsed    decimal.NullDecimal `json:"percent_used"` // invalid when limit is zero
	Classification Classification      `json:"classification"`
	PeriodStart    time.Time           `json:"period_start,omitempty"`
	PeriodEnd      time.Time           `json:"period_end,omitempty"`
}

// RemoteBudgetStatus is one record of GET /budgets/status.
type RemoteBudgetStatus struct {
	BudgetID       ID               `json:"budget_id"`
	CategoryID     *ID              `json:"category_id"`
	CategoryName   string           `json:"category_name"`
	Period         Period           `json:"period"`
	Spent          decimal.Decimal  `json:"spent"`
	Limit          decimal.Decimal  `json:"limit"`
	Remaining      decimal.Decimal  `json:"remaining"`
	AlertThreshold *decimal.Decimal `json:"alert_threshold"`
}

// BudgetAlert is raised when a budget escalates to near_limit or over_budget.
type BudgetAlert struct {
	BudgetID       ID                  `json:"budget_id"`
	CategoryName   string              `json:"category_name,omitempty"`
	Period         Period              `json:"period"`
	Classification Classification      `json:"classification"`
	Spent          decimal.Decimal     `json:"spent"`
	Limit          decimal.Decimal     `json:"limit"`
	PercentUsed    decimal.NullDecimal `json:"percent_used"`
	PeriodStart    time.Time           `json:"period_start"`
	PeriodEnd      time.Time           `json:"period_end"`
	RaisedAt       time.Time           `json:"raised_at"`
}
