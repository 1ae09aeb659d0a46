package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/boddenberg/spendsense-go/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// Shared helper functions
// ============================================================

type errorResponse struct {
	Error    string   `json:"error"`
	Messages []string `json:"messages,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// queryInt reads an optional integer query parameter. Missing yields def.
func queryInt(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return n, nil
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var validation *domain.ValidationError
	var authErr *domain.AuthError
	var notFound *domain.ErrNotFound
	var netErr *domain.NetworkError

	switch {
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.Strings("messages", validation.Messages))
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation failed", Messages: validation.Messages})
	case errors.As(err, &authErr):
		logger.Warn("auth error", zap.String("reason", string(authErr.Reason)))
		status := http.StatusUnauthorized
		if authErr.Reason == domain.AuthRegistrationRejected {
			status = http.StatusConflict
		}
		writeError(w, status, err.Error())
	case errors.As(err, &notFound):
		logger.Debug("not found", zap.String("error", err.Error()))
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &netErr):
		if netErr.Status == 0 {
			logger.Error("backend unavailable", zap.Error(err))
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		logger.Warn("backend error", zap.Int("status", netErr.Status), zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
