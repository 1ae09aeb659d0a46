// Package service holds the client-side business logic: the session state
// machine, budget evaluation and the services built on the backend API.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/boddenberg/spendsense-go/internal/domain"
	"github.com/boddenberg/spendsense-go/internal/infra/observability"
	"github.com/boddenberg/spendsense-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var sessionTracer = otel.Tracer("service/session")

// TransitionFunc observes session state changes. It runs after the change is
// committed and outside the manager's lock.
type TransitionFunc func(from, to domain.AuthState)

// SessionManager owns the authentication state. Every write to the durable
// store happens under the same lock as the matching state change, so readers
// never see a state that disagrees with the store.
type SessionManager struct {
	api     port.UserAPI
	store   port.SessionStore
	metrics *observability.Metrics
	logger  *zap.Logger
	now     func() time.Time

	mu    sync.Mutex
	state domain.AuthState
	sess  *domain.Session

	hooksMu sync.Mutex
	hooks   []TransitionFunc
}

// SessionOption configures a SessionManager.
type SessionOption func(*SessionManager)

// WithSessionClock overrides the clock used for token expiry checks.
func WithSessionClock(now func() time.Time) SessionOption {
	return func(m *SessionManager) { m.now = now }
}

// NewSessionManager creates a manager in the anonymous state. Call Restore
// to pick up a stored session.
func NewSessionManager(api port.UserAPI, store port.SessionStore, metrics *observability.Metrics, logger *zap.Logger, opts ...SessionOption) *SessionManager {
	m := &SessionManager{
		api:     api,
		store:   store,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
		state:   domain.StateAnonymous,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// OnTransition registers fn to be called on every state change.
func (m *SessionManager) OnTransition(fn TransitionFunc) {
	m.hooksMu.Lock()
	defer m.hooksMu.Unlock()
	m.hooks = append(m.hooks, fn)
}

// State returns the current authentication state.
func (m *SessionManager) State() domain.AuthState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Snapshot returns state and session read under one lock.
func (m *SessionManager) Snapshot() domain.SessionSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return domain.SessionSnapshot{State: m.state, Session: m.sess.Clone()}
}

// Token returns the current access token, or "" when anonymous.
func (m *SessionManager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess == nil {
		return ""
	}
	return m.sess.Token
}

// Claims decodes the current access token's subject and expiry.
func (m *SessionManager) Claims() (*domain.TokenClaims, error) {
	token := m.Token()
	if token == "" {
		return nil, &domain.AuthError{Reason: domain.AuthNotAuthenticated}
	}
	return parseClaims(token)
}

// ============================================================
// Login / Register
// ============================================================

// Login exchanges credentials for a token and stores it. On failure the
// previous session, if any, is left untouched.
func (m *SessionManager) Login(ctx context.Context, email, password string) (*domain.Session, error) {
	ctx, span := sessionTracer.Start(ctx, "SessionManager.Login")
	defer span.End()

	if err := validateLogin(email, password); err != nil {
		return nil, err
	}

	resp, err := m.api.Login(ctx, email, password)
	if err != nil {
		m.logger.Info("login failed", zap.Error(err))
		return nil, err
	}

	sess := &domain.Session{
		Token:     resp.AccessToken,
		TokenType: resp.TokenType,
		UpdatedAt: m.now(),
	}

	m.mu.Lock()
	if err := m.store.Save(ctx, sess); err != nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("persist session: %w", err)
	}
	from := m.swap(domain.StateAuthenticated, sess)
	m.mu.Unlock()

	m.notify(from, domain.StateAuthenticated)
	m.logger.Info("logged in")
	return sess.Clone(), nil
}

// Register creates an account. It does not log in.
func (m *SessionManager) Register(ctx context.Context, name, email, password string) (*domain.User, error) {
	ctx, span := sessionTracer.Start(ctx, "SessionManager.Register")
	defer span.End()

	if err := validateRegistration(name, email, password); err != nil {
		return nil, err
	}

	user, err := m.api.Register(ctx, &domain.RegisterRequest{Name: name, Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	m.logger.Info("account registered", zap.String("user_id", user.ID.String()))
	return user, nil
}

// ============================================================
// Validation / Restore
// ============================================================

// CurrentUser validates the token against the identity endpoint and caches
// the returned profile. A rejected token clears the session.
func (m *SessionManager) CurrentUser(ctx context.Context) (*domain.User, error) {
	ctx, span := sessionTracer.Start(ctx, "SessionManager.CurrentUser")
	defer span.End()

	creds, ok := m.credentials()
	if !ok {
		return nil, &domain.AuthError{Reason: domain.AuthNotAuthenticated}
	}

	user, err := m.api.Me(ctx, creds)
	if err != nil {
		if domain.IsSessionExpired(err) {
			m.expire(ctx, creds.Token)
			return nil, err
		}
		// The token may still be good; keep it and leave the restore phase.
		m.settle(creds.Token)
		return nil, err
	}
	span.SetAttributes(attribute.String("user_id", user.ID.String()))

	m.mu.Lock()
	if m.sess == nil || m.sess.Token != creds.Token {
		// Logged out or replaced while the request was in flight.
		m.mu.Unlock()
		return user, nil
	}
	next := m.sess.Clone()
	u := *user
	next.User = &u
	next.UpdatedAt = m.now()
	if err := m.store.Save(ctx, next); err != nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("persist session: %w", err)
	}
	from := m.swap(domain.StateAuthenticated, next)
	m.mu.Unlock()

	if from != domain.StateAuthenticated {
		m.notify(from, domain.StateAuthenticated)
	}
	return user, nil
}

// Restore loads the stored session at startup. A stored JWT that has already
// expired is dropped without a network call; any other token is validated.
// A network failure keeps the token and returns the NetworkError.
func (m *SessionManager) Restore(ctx context.Context) error {
	ctx, span := sessionTracer.Start(ctx, "SessionManager.Restore")
	defer span.End()

	stored, err := m.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if !stored.Authenticated() {
		return nil
	}
	if stored.TokenType == "" {
		stored.TokenType = domain.DefaultTokenType
	}
	// The saved profile is not trusted until the token is validated.
	stored.User = nil

	m.mu.Lock()
	from := m.swap(domain.StateAuthenticating, stored)
	m.mu.Unlock()
	m.notify(from, domain.StateAuthenticating)

	if claims, err := parseClaims(stored.Token); err == nil && !claims.ExpiresAt.IsZero() && !m.now().Before(claims.ExpiresAt) {
		m.logger.Info("stored token expired, clearing session", zap.Time("expired_at", claims.ExpiresAt))
		m.expire(ctx, stored.Token)
		return nil
	}

	_, err = m.CurrentUser(ctx)
	if domain.IsSessionExpired(err) {
		// The stored token was rejected; restoring into anonymous is not an error.
		return nil
	}
	return err
}

// ============================================================
// Logout / Authorize
// ============================================================

// Logout clears the token and cached profile. Calling it while anonymous is
// a no-op.
func (m *SessionManager) Logout(ctx context.Context) error {
	_, span := sessionTracer.Start(ctx, "SessionManager.Logout")
	defer span.End()

	m.mu.Lock()
	if m.sess == nil && m.state == domain.StateAnonymous {
		m.mu.Unlock()
		return nil
	}
	if err := m.store.Clear(ctx); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("clear session: %w", err)
	}
	from := m.swap(domain.StateAnonymous, nil)
	m.mu.Unlock()

	m.notify(from, domain.StateAnonymous)
	m.logger.Info("logged out")
	return nil
}

// Authorize runs fn with the current credentials. A session_expired error
// from fn clears the session before it is returned.
func (m *SessionManager) Authorize(ctx context.Context, fn func(ctx context.Context, creds port.Credentials) error) error {
	creds, ok := m.credentials()
	if !ok {
		return &domain.AuthError{Reason: domain.AuthNotAuthenticated}
	}
	err := fn(ctx, creds)
	if domain.IsSessionExpired(err) {
		m.expire(ctx, creds.Token)
	}
	return err
}

// authorized is Authorize for calls that return a value.
func authorized[T any](ctx context.Context, m *SessionManager, fn func(ctx context.Context, creds port.Credentials) (T, error)) (T, error) {
	var out T
	err := m.Authorize(ctx, func(ctx context.Context, creds port.Credentials) error {
		var err error
		out, err = fn(ctx, creds)
		return err
	})
	return out, err
}

// ============================================================
// Internal state helpers
// ============================================================

func (m *SessionManager) credentials() (port.Credentials, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.sess.Authenticated() {
		return port.Credentials{}, false
	}
	return port.Credentials{Token: m.sess.Token, TokenType: m.sess.TokenType}, true
}

// expire clears the session if it still carries token. A newer login that
// raced with the failing call is kept.
func (m *SessionManager) expire(ctx context.Context, token string) {
	m.mu.Lock()
	if m.sess == nil || m.sess.Token != token {
		m.mu.Unlock()
		return
	}
	if err := m.store.Clear(ctx); err != nil {
		m.mu.Unlock()
		m.logger.Error("failed to clear expired session", zap.Error(err))
		return
	}
	from := m.swap(domain.StateAnonymous, nil)
	m.mu.Unlock()

	m.notify(from, domain.StateAnonymous)
	m.logger.Info("session expired, logged out")
}

// settle moves an authenticating session to authenticated without a user,
// used when validation could not reach the backend.
func (m *SessionManager) settle(token string) {
	m.mu.Lock()
	if m.state != domain.StateAuthenticating || m.sess == nil || m.sess.Token != token {
		m.mu.Unlock()
		return
	}
	from := m.swap(domain.StateAuthenticated, m.sess)
	m.mu.Unlock()
	m.notify(from, domain.StateAuthenticated)
}

// swap must be called with mu held.
func (m *SessionManager) swap(to domain.AuthState, sess *domain.Session) domain.AuthState {
	from := m.state
	m.state = to
	m.sess = sess.Clone()
	return from
}

// notify fires hooks for a committed change. Login always notifies, even
// authenticated -> authenticated, since the identity may have changed.
func (m *SessionManager) notify(from, to domain.AuthState) {
	m.metrics.IncrSessionTransition(string(from), string(to))
	m.logger.Debug("session transition", zap.String("from", string(from)), zap.String("to", string(to)))

	m.hooksMu.Lock()
	hooks := append([]TransitionFunc(nil), m.hooks...)
	m.hooksMu.Unlock()
	for _, fn := range hooks {
		fn(from, to)
	}
}
