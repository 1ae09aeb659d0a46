// Package handler exposes the client's services as a local JSON API that a
// UI can render from.
package handler

import (
	"net/http"
	"time"

	"github.com/boddenberg/spendsense-go/internal/domain"
	"github.com/boddenberg/spendsense-go/internal/infra/observability"
	"github.com/boddenberg/spendsense-go/internal/port"
	"github.com/boddenberg/spendsense-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Services bundles what the router serves.
type Services struct {
	Session   *service.SessionManager
	Expenses  *service.ExpenseService
	Budgets   *service.BudgetService
	Dashboard *service.Dashboard
	Assistant *service.Assistant

	// Probe is called by /healthz. Listing categories needs no token, which
	// makes it a cheap reachability check.
	Probe port.CategoryAPI

	// Now is the evaluation clock; nil means time.Now.
	Now func() time.Time
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svc Services, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	if svc.Now == nil {
		svc.Now = time.Now
	}

	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svc.Session, svc.Probe))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// =============================================
		// Session
		// GET/POST/DELETE /v1/session
		// =============================================
		r.Get("/session", getSessionHandler(svc.Session))
		r.Post("/session", loginHandler(svc.Session, logger))
		r.Delete("/session", logoutHandler(svc.Session, logger))

		// =============================================
		// Users
		// POST /v1/users, GET/DELETE /v1/users/me
		// =============================================
		r.Post("/users", registerHandler(svc.Session, logger))

		// Categories are public on the backend.
		r.Get("/categories", listCategoriesHandler(svc.Expenses, logger))

		r.Get("/metrics", metricsSnapshotHandler(metrics))

		r.Group(func(r chi.Router) {
			r.Use(RequireSession(svc.Session, logger))

			r.Get("/users/me", meHandler(svc.Session, logger))
			r.Delete("/users/me", deleteAccountHandler(svc.Session, logger))

			// =============================================
			// Categories & Expenses
			// =============================================
			r.Post("/categories", createCategoryHandler(svc.Expenses, logger))

			r.Get("/expenses", listExpensesHandler(svc.Expenses, logger))
			r.Post("/expenses", createExpenseHandler(svc.Expenses, logger))
			r.Get("/expenses/summary", expenseSummaryHandler(svc.Expenses, svc.Now, logger))
			r.Put("/expenses/{id}", updateExpenseHandler(svc.Expenses, logger))
			r.Delete("/expenses/{id}", deleteExpenseHandler(svc.Expenses, logger))

			// =============================================
			// Budgets
			// =============================================
			r.Get("/budgets", listBudgetsHandler(svc.Budgets, logger))
			r.Post("/budgets", createBudgetHandler(svc.Budgets, svc.Expenses, logger))
			r.Get("/budgets/status", budgetStatusHandler(svc.Dashboard, svc.Now, logger))
			r.Get("/budgets/status/remote", remoteBudgetStatusHandler(svc.Budgets, logger))
			r.Get("/budgets/{id}", getBudgetHandler(svc.Budgets, logger))
			r.Put("/budgets/{id}", updateBudgetHandler(svc.Budgets, logger))
			r.Delete("/budgets/{id}", deleteBudgetHandler(svc.Budgets, logger))

			// =============================================
			// Dashboard & Assistant
			// =============================================
			r.Get("/dashboard", dashboardHandler(svc.Dashboard, svc.Now, logger))
			r.Post("/assistant/query", assistantQueryHandler(svc.Assistant, logger))
			r.Get("/assistant/history", assistantHistoryHandler(svc.Assistant))
			r.Delete("/assistant/history", assistantResetHandler(svc.Assistant))
		})
	})

	return r
}

// ============================================================
// Operational handlers
// ============================================================

func healthzHandler(session *service.SessionManager, probe port.CategoryAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now()
		backend := domain.ComponentHealth{Name: "backend", Status: "healthy", LastChecked: now.Format(time.RFC3339)}
		if probe != nil {
			_, err := probe.ListCategories(r.Context())
			backend.LatencyMs = time.Since(now).Milliseconds()
			if err != nil {
				backend.Status = "degraded"
				backend.Error = err.Error()
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   backend.Status,
			Session:  session.State(),
			Services: []domain.ComponentHealth{backend},
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func metricsSnapshotHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.Snapshot())
	}
}
