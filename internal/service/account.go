package service

import (
	"context"

	"github.com/boddenberg/spendsense-go/internal/port"
)

// DeleteAccount removes the user's account on the backend and then logs
// out locally.
func (m *SessionManager) DeleteAccount(ctx context.Context) error {
	ctx, span := sessionTracer.Start(ctx, "SessionManager.DeleteAccount")
	defer span.End()

	err := m.Authorize(ctx, func(ctx context.Context, creds port.Credentials) error {
		return m.api.DeleteMe(ctx, creds)
	})
	if err != nil {
		return err
	}
	m.logger.Info("account deleted")
	return m.Logout(ctx)
}
