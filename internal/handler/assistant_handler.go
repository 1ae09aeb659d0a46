package handler

import (
	"net/http"
	"time"

	"github.com/boddenberg/spendsense-go/internal/domain"
	"github.com/boddenberg/spendsense-go/internal/service"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ============================================================
// Dashboard & Assistant Handlers
// ============================================================

type assistantRequest struct {
	Query string `json:"query"`
}

type assistantResponse struct {
	ID        string             `json:"id"`
	Answer    *domain.AIResponse `json:"answer"`
	LatencyMs int64              `json:"latency_ms"`
}

func dashboardHandler(dash *service.Dashboard, now func() time.Time, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/dashboard")
		defer span.End()

		d, err := dash.Load(ctx, now())
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}

func assistantQueryHandler(svc *service.Assistant, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/assistant/query")
		defer span.End()

		var req assistantRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		start := time.Now()
		answer, err := svc.Ask(ctx, req.Query)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, assistantResponse{
			ID:        uuid.NewString(),
			Answer:    answer,
			LatencyMs: time.Since(start).Milliseconds(),
		})
	}
}

func assistantHistoryHandler(svc *service.Assistant) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.History())
	}
}

func assistantResetHandler(svc *service.Assistant) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc.Reset()
		w.WriteHeader(http.StatusNoContent)
	}
}
