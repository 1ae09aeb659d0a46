package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/boddenberg/spendsense-go/internal/domain"
	"github.com/boddenberg/spendsense-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Budgets Handlers
// ============================================================

// budgetRequest creates a budget. Leaving both category fields empty makes
// it an overall budget.
type budgetRequest struct {
	CategoryID     *domain.ID       `json:"category_id"`
	Category       string           `json:"category"`
	Amount         decimal.Decimal  `json:"amount"`
	Period         domain.Period    `json:"period"`
	AlertThreshold *decimal.Decimal `json:"alert_threshold"`
	StartDate      *domain.Date     `json:"start_date"`
	EndDate        *domain.Date     `json:"end_date"`
}

type budgetPatchRequest struct {
	Amount         *decimal.Decimal `json:"amount"`
	Period         *domain.Period   `json:"period"`
	AlertThreshold *decimal.Decimal `json:"alert_threshold"`
	EndDate        *domain.Date     `json:"end_date"`
	IsActive       *bool            `json:"is_active"`
}

func listBudgetsHandler(svc *service.BudgetService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/budgets")
		defer span.End()

		activeOnly := true
		if v := r.URL.Query().Get("active_only"); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "active_only must be a boolean")
				return
			}
			activeOnly = b
		}

		budgets, err := svc.List(ctx, activeOnly)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, budgets)
	}
}

func createBudgetHandler(svc *service.BudgetService, expenses *service.ExpenseService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/budgets")
		defer span.End()

		var req budgetRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		categoryID := req.CategoryID
		if categoryID == nil && req.Category != "" {
			category, err := expenses.ResolveCategory(ctx, req.Category)
			if err != nil {
				handleServiceError(w, err, logger)
				return
			}
			categoryID = &category.ID
		}

		budget, err := svc.Create(ctx, domain.BudgetInput{
			CategoryID:     categoryID,
			Limit:          req.Amount,
			Period:         req.Period,
			AlertThreshold: req.AlertThreshold,
			StartDate:      req.StartDate,
			EndDate:        req.EndDate,
		})
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, budget)
	}
}

func getBudgetHandler(svc *service.BudgetService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/budgets/{id}")
		defer span.End()
		id := domain.ID(chi.URLParam(r, "id"))
		span.SetAttributes(attribute.String("budget.id", id.String()))

		budget, err := svc.Get(ctx, id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, budget)
	}
}

func updateBudgetHandler(svc *service.BudgetService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/budgets/{id}")
		defer span.End()
		id := domain.ID(chi.URLParam(r, "id"))
		span.SetAttributes(attribute.String("budget.id", id.String()))

		var req budgetPatchRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		budget, err := svc.Update(ctx, id, service.BudgetPatch{
			Limit:          req.Amount,
			Period:         req.Period,
			AlertThreshold: req.AlertThreshold,
			EndDate:        req.EndDate,
			Active:         req.IsActive,
		})
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, budget)
	}
}

func deleteBudgetHandler(svc *service.BudgetService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/budgets/{id}")
		defer span.End()

		if err := svc.Delete(ctx, domain.ID(chi.URLParam(r, "id"))); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// budgetStatusHandler evaluates budgets locally for the periods containing now.
func budgetStatusHandler(dash *service.Dashboard, now func() time.Time, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/budgets/status")
		defer span.End()

		d, err := dash.Load(ctx, now())
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, d.Statuses)
	}
}

func remoteBudgetStatusHandler(svc *service.BudgetService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/budgets/status/remote")
		defer span.End()

		statuses, err := svc.RemoteStatus(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, statuses)
	}
}
