package handler

import (
	"net/http"

	"github.com/boddenberg/spendsense-go/internal/domain"
	"github.com/boddenberg/spendsense-go/internal/service"

	"go.uber.org/zap"
)

// RequireSession rejects requests while the client holds no session, so
// routes behind it never reach the backend anonymously.
func RequireSession(session *service.SessionManager, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if session.State() == domain.StateAnonymous {
				logger.Debug("auth: no session",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, (&domain.AuthError{Reason: domain.AuthNotAuthenticated}).Error())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
