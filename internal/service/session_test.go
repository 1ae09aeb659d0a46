package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/boddenberg/spendsense-go/internal/domain"
	"github.com/boddenberg/spendsense-go/internal/infra/observability"
	"github.com/boddenberg/spendsense-go/internal/infra/sessionstore"
	"github.com/boddenberg/spendsense-go/internal/port"
	"github.com/boddenberg/spendsense-go/internal/service"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

func signedToken(t *testing.T, sub string, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := tok.SignedString([]byte("backend-secret"))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestLogin_StoresTokenWithoutUser(t *testing.T) {
	api := newFakeBackend()
	store := sessionstore.NewMemory()
	m := newSession(t, api, store)

	sess, err := m.Login(context.Background(), "ana@example.com", "Secret1!")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if sess.Token != "tok-1" || sess.User != nil {
		t.Errorf("unexpected session %+v", sess)
	}
	if m.State() != domain.StateAuthenticated {
		t.Errorf("expected authenticated, got %s", m.State())
	}

	stored, _ := store.Load(context.Background())
	if stored == nil || stored.Token != "tok-1" || stored.TokenType != "bearer" {
		t.Errorf("expected token persisted, got %+v", stored)
	}
}

func TestLogin_FailureLeavesNoPartialState(t *testing.T) {
	api := newFakeBackend()
	api.loginErr = &domain.AuthError{Reason: domain.AuthInvalidCredentials}
	store := sessionstore.NewMemory()
	m := newSession(t, api, store)

	_, err := m.Login(context.Background(), "ana@example.com", "wrong")
	var authErr *domain.AuthError
	if !errors.As(err, &authErr) || authErr.Reason != domain.AuthInvalidCredentials {
		t.Fatalf("expected invalid_credentials, got %v", err)
	}
	if m.State() != domain.StateAnonymous || m.Token() != "" {
		t.Errorf("expected anonymous with no token, got %s %q", m.State(), m.Token())
	}
	if stored, _ := store.Load(context.Background()); stored != nil {
		t.Errorf("expected nothing stored, got %+v", stored)
	}
}

func TestLogin_FailureKeepsPreviousSession(t *testing.T) {
	api := newFakeBackend()
	m := loggedIn(t, api)

	api.loginErr = &domain.AuthError{Reason: domain.AuthInvalidCredentials}
	if _, err := m.Login(context.Background(), "bob@example.com", "nope"); err == nil {
		t.Fatal("expected error")
	}
	if m.Token() != "tok-1" || m.State() != domain.StateAuthenticated {
		t.Errorf("previous session must survive a failed login, got %s %q", m.State(), m.Token())
	}
}

func TestLogin_StoreFailureLeavesStateUnchanged(t *testing.T) {
	api := newFakeBackend()
	store := &failingStore{Memory: sessionstore.NewMemory(), saveErr: errStoreDown}
	m := newSession(t, api, store)

	_, err := m.Login(context.Background(), "ana@example.com", "Secret1!")
	if !errors.Is(err, errStoreDown) {
		t.Fatalf("expected store error, got %v", err)
	}
	if m.State() != domain.StateAnonymous || m.Token() != "" {
		t.Errorf("expected unchanged anonymous state, got %s", m.State())
	}
}

func TestLogin_RequiresBothFields(t *testing.T) {
	api := newFakeBackend()
	m := newSession(t, api, sessionstore.NewMemory())

	_, err := m.Login(context.Background(), "", "")
	var ve *domain.ValidationError
	if !errors.As(err, &ve) || len(ve.Messages) != 2 {
		t.Fatalf("expected 2 validation messages, got %v", err)
	}
	if api.total() != 0 {
		t.Error("validation failure must not reach the backend")
	}
}

func TestRegister_ValidationBeforeNetwork(t *testing.T) {
	api := newFakeBackend()
	m := newSession(t, api, sessionstore.NewMemory())

	_, err := m.Register(context.Background(), "Ana", "not-an-email", "abc")
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	// 1 email message + 4 password messages.
	if len(ve.Messages) != 5 {
		t.Errorf("expected 5 messages, got %d: %v", len(ve.Messages), ve.Messages)
	}
	if api.count("register") != 0 {
		t.Error("register must not be called on validation failure")
	}
}

func TestRegister_Success(t *testing.T) {
	api := newFakeBackend()
	m := newSession(t, api, sessionstore.NewMemory())

	user, err := m.Register(context.Background(), "Ana", "a@b.co", "Abcdef1!")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if user.Email != "a@b.co" {
		t.Errorf("unexpected user %+v", user)
	}
	if m.State() != domain.StateAnonymous {
		t.Error("register must not log in")
	}
}

func TestPasswordProblems(t *testing.T) {
	tests := []struct {
		password string
		want     []string
	}{
		{"abc", []string{
			"Password must be at least 8 characters long",
			"Password must contain at least one uppercase letter",
			"Password must contain at least one digit",
			"Password must contain at least one special character",
		}},
		{"Abcdef1!", nil},
		{"ABCDEFG1_", []string{"Password must contain at least one lowercase letter"}},
		{"Abcdefgh1", []string{"Password must contain at least one special character"}},
	}
	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			got := service.PasswordProblems(tt.password)
			if len(got) != len(tt.want) {
				t.Fatalf("PasswordProblems(%q) = %v, want %v", tt.password, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("message %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestValidEmail(t *testing.T) {
	for email, want := range map[string]bool{
		"a@b.co":          true,
		"ana@example.com": true,
		"not-an-email":    false,
		"a@b":             false,
		"a b@example.com": false,
		"":                false,
	} {
		if got := service.ValidEmail(email); got != want {
			t.Errorf("ValidEmail(%q) = %v, want %v", email, got, want)
		}
	}
}

func TestCurrentUser_CachesProfile(t *testing.T) {
	api := newFakeBackend()
	store := sessionstore.NewMemory()
	m := newSession(t, api, store)
	if _, err := m.Login(context.Background(), "ana@example.com", "Secret1!"); err != nil {
		t.Fatal(err)
	}

	user, err := m.CurrentUser(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if user.Name != "Ana" {
		t.Errorf("unexpected user %+v", user)
	}
	if api.lastCreds.Token != "tok-1" {
		t.Errorf("expected bearer token sent, got %+v", api.lastCreds)
	}
	snap := m.Snapshot()
	if snap.Session == nil || snap.Session.User == nil || snap.Session.User.Email != "ana@example.com" {
		t.Errorf("expected profile cached in session, got %+v", snap.Session)
	}
	stored, _ := store.Load(context.Background())
	if stored.User == nil {
		t.Error("expected profile shadow copy in store")
	}
}

func TestCurrentUser_Anonymous(t *testing.T) {
	api := newFakeBackend()
	m := newSession(t, api, sessionstore.NewMemory())

	_, err := m.CurrentUser(context.Background())
	var authErr *domain.AuthError
	if !errors.As(err, &authErr) || authErr.Reason != domain.AuthNotAuthenticated {
		t.Fatalf("expected not_authenticated, got %v", err)
	}
	if api.count("me") != 0 {
		t.Error("no request expected without a token")
	}
}

func TestCurrentUser_401ClearsSession(t *testing.T) {
	api := newFakeBackend()
	store := sessionstore.NewMemory()
	m := newSession(t, api, store)
	if _, err := m.Login(context.Background(), "ana@example.com", "Secret1!"); err != nil {
		t.Fatal(err)
	}

	api.meErr = &domain.AuthError{Reason: domain.AuthSessionExpired}
	_, err := m.CurrentUser(context.Background())
	if !domain.IsSessionExpired(err) {
		t.Fatalf("expected session expired, got %v", err)
	}
	if m.State() != domain.StateAnonymous || m.Token() != "" {
		t.Errorf("expected cleared session, got %s", m.State())
	}
	if stored, _ := store.Load(context.Background()); stored != nil {
		t.Error("expected store cleared")
	}
}

func TestAuthorize_SessionExpiredClears(t *testing.T) {
	api := newFakeBackend()
	m := loggedIn(t, api)

	err := m.Authorize(context.Background(), func(context.Context, port.Credentials) error {
		return &domain.AuthError{Reason: domain.AuthSessionExpired}
	})
	if !domain.IsSessionExpired(err) {
		t.Fatalf("expected session expired, got %v", err)
	}
	if m.State() != domain.StateAnonymous {
		t.Errorf("expected anonymous, got %s", m.State())
	}
}

func TestLogout_Idempotent(t *testing.T) {
	api := newFakeBackend()
	m := loggedIn(t, api)

	var transitions []string
	m.OnTransition(func(from, to domain.AuthState) {
		transitions = append(transitions, string(from)+"->"+string(to))
	})

	if err := m.Logout(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := m.Logout(context.Background()); err != nil {
		t.Fatal(err)
	}
	if m.State() != domain.StateAnonymous {
		t.Errorf("expected anonymous, got %s", m.State())
	}
	if len(transitions) != 1 || transitions[0] != "authenticated->anonymous" {
		t.Errorf("expected exactly one transition, got %v", transitions)
	}
}

func TestRestore_NoStoredSession(t *testing.T) {
	api := newFakeBackend()
	m := newSession(t, api, sessionstore.NewMemory())

	if err := m.Restore(context.Background()); err != nil {
		t.Fatal(err)
	}
	if m.State() != domain.StateAnonymous {
		t.Errorf("expected anonymous, got %s", m.State())
	}
}

func TestRestore_ValidatesStoredToken(t *testing.T) {
	api := newFakeBackend()
	store := sessionstore.NewMemory()
	_ = store.Save(context.Background(), &domain.Session{Token: "opaque-token", TokenType: "bearer"})
	m := newSession(t, api, store)

	var seen []domain.AuthState
	m.OnTransition(func(_, to domain.AuthState) { seen = append(seen, to) })

	if err := m.Restore(context.Background()); err != nil {
		t.Fatal(err)
	}
	if m.State() != domain.StateAuthenticated {
		t.Errorf("expected authenticated, got %s", m.State())
	}
	if len(seen) != 2 || seen[0] != domain.StateAuthenticating || seen[1] != domain.StateAuthenticated {
		t.Errorf("expected authenticating then authenticated, got %v", seen)
	}
}

func TestRestore_ExpiredJWTClearedWithoutNetwork(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	api := newFakeBackend()
	store := sessionstore.NewMemory()
	_ = store.Save(context.Background(), &domain.Session{
		Token:     signedToken(t, "ana@example.com", now.Add(-time.Minute)),
		TokenType: "bearer",
	})
	m := service.NewSessionManager(api, store, observability.NewMetrics(), zap.NewNop(), service.WithSessionClock(fixedClock(now)))

	if err := m.Restore(context.Background()); err != nil {
		t.Fatal(err)
	}
	if m.State() != domain.StateAnonymous {
		t.Errorf("expected anonymous, got %s", m.State())
	}
	if api.count("me") != 0 {
		t.Error("expired token must not be sent to the backend")
	}
	if stored, _ := store.Load(context.Background()); stored != nil {
		t.Error("expected store cleared")
	}
}

func TestRestore_RejectedToken(t *testing.T) {
	api := newFakeBackend()
	api.meErr = &domain.AuthError{Reason: domain.AuthSessionExpired}
	store := sessionstore.NewMemory()
	_ = store.Save(context.Background(), &domain.Session{Token: "revoked", TokenType: "bearer"})
	m := newSession(t, api, store)

	if err := m.Restore(context.Background()); err != nil {
		t.Fatalf("rejected token should restore into anonymous, got %v", err)
	}
	if m.State() != domain.StateAnonymous {
		t.Errorf("expected anonymous, got %s", m.State())
	}
}

func TestRestore_NetworkFailureKeepsToken(t *testing.T) {
	api := newFakeBackend()
	api.meErr = &domain.NetworkError{Operation: "fetch user profile", Message: "backend unreachable"}
	store := sessionstore.NewMemory()
	_ = store.Save(context.Background(), &domain.Session{Token: "tok-keep", TokenType: "bearer"})
	m := newSession(t, api, store)

	err := m.Restore(context.Background())
	var netErr *domain.NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
	snap := m.Snapshot()
	if snap.State != domain.StateAuthenticated || snap.Session.Token != "tok-keep" || snap.Session.User != nil {
		t.Errorf("expected token kept without user, got %+v", snap)
	}
}

func TestRestore_DropsSavedProfileUntilValidated(t *testing.T) {
	api := newFakeBackend()
	api.meErr = &domain.NetworkError{Operation: "fetch user profile", Message: "backend unreachable"}
	store := sessionstore.NewMemory()
	_ = store.Save(context.Background(), &domain.Session{
		Token:     "tok-keep",
		TokenType: "bearer",
		User:      &domain.User{ID: "7", Name: "Old", Email: "old@example.com"},
	})
	m := newSession(t, api, store)

	var during []*domain.User
	m.OnTransition(func(_, to domain.AuthState) {
		if to == domain.StateAuthenticating {
			during = append(during, m.Snapshot().Session.User)
		}
	})

	err := m.Restore(context.Background())
	var netErr *domain.NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
	if len(during) != 1 || during[0] != nil {
		t.Errorf("expected no user while authenticating, got %+v", during)
	}
	snap := m.Snapshot()
	if snap.State != domain.StateAuthenticated || snap.Session.Token != "tok-keep" || snap.Session.User != nil {
		t.Errorf("expected token kept without user, got %+v", snap)
	}
}

func TestClaims(t *testing.T) {
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	api := newFakeBackend()
	api.token = signedToken(t, "ana@example.com", exp)
	m := loggedIn(t, api)

	claims, err := m.Claims()
	if err != nil {
		t.Fatal(err)
	}
	if claims.Subject != "ana@example.com" || !claims.ExpiresAt.Equal(exp) {
		t.Errorf("unexpected claims %+v", claims)
	}
}

func TestDeleteAccount_LogsOut(t *testing.T) {
	api := newFakeBackend()
	m := loggedIn(t, api)

	if err := m.DeleteAccount(context.Background()); err != nil {
		t.Fatal(err)
	}
	if api.count("delete_me") != 1 {
		t.Error("expected DELETE /users/me")
	}
	if m.State() != domain.StateAnonymous {
		t.Errorf("expected anonymous, got %s", m.State())
	}
}
