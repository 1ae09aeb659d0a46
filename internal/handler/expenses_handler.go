package handler

import (
	"net/http"
	"time"

	"github.com/boddenberg/spendsense-go/internal/domain"
	"github.com/boddenberg/spendsense-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Categories & Expenses Handlers
// ============================================================

type categoryRequest struct {
	Name string `json:"name"`
}

// expenseRequest names the category by ID or, when CategoryID is empty, by
// name (fuzzy matched).
type expenseRequest struct {
	CategoryID  domain.ID       `json:"category_id"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Date        *domain.Date    `json:"date"`
}

type expensePatchRequest struct {
	CategoryID  *domain.ID       `json:"category_id"`
	Amount      *decimal.Decimal `json:"amount"`
	Description *string          `json:"description"`
	Date        *domain.Date     `json:"date"`
}

func listCategoriesHandler(svc *service.ExpenseService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/categories")
		defer span.End()

		categories, err := svc.Categories(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, categories)
	}
}

func createCategoryHandler(svc *service.ExpenseService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/categories")
		defer span.End()

		var req categoryRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		category, err := svc.CreateCategory(ctx, req.Name)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, category)
	}
}

func listExpensesHandler(svc *service.ExpenseService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/expenses")
		defer span.End()

		expenses, err := svc.List(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, expenses)
	}
}

func createExpenseHandler(svc *service.ExpenseService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/expenses")
		defer span.End()

		var req expenseRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		categoryID := req.CategoryID
		if categoryID == "" && req.Category != "" {
			category, err := svc.ResolveCategory(ctx, req.Category)
			if err != nil {
				handleServiceError(w, err, logger)
				return
			}
			categoryID = category.ID
		}

		expense, err := svc.Create(ctx, domain.ExpenseInput{
			CategoryID:  categoryID,
			Amount:      req.Amount,
			Description: req.Description,
			OccurredAt:  req.Date,
		})
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, expense)
	}
}

func updateExpenseHandler(svc *service.ExpenseService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/expenses/{id}")
		defer span.End()
		id := domain.ID(chi.URLParam(r, "id"))
		span.SetAttributes(attribute.String("expense.id", id.String()))

		var req expensePatchRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		expense, err := svc.Update(ctx, id, service.ExpensePatch{
			CategoryID:  req.CategoryID,
			Amount:      req.Amount,
			Description: req.Description,
			OccurredAt:  req.Date,
		})
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, expense)
	}
}

func deleteExpenseHandler(svc *service.ExpenseService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/expenses/{id}")
		defer span.End()
		id := domain.ID(chi.URLParam(r, "id"))

		if err := svc.Delete(ctx, id); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// expenseSummaryHandler defaults month and year to the current ones.
func expenseSummaryHandler(svc *service.ExpenseService, now func() time.Time, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/expenses/summary")
		defer span.End()

		today := now()
		var q domain.SummaryQuery
		var err error
		for _, p := range []struct {
			name string
			dst  *int
			def  int
		}{
			{"month", &q.Month, int(today.Month())},
			{"year", &q.Year, today.Year()},
			{"day", &q.Day, 0},
			{"week", &q.Week, 0},
			{"quarter", &q.Quarter, 0},
		} {
			if *p.dst, err = queryInt(r, p.name, p.def); err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
		}

		summary, err := svc.Summary(ctx, q)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}
