package domain

import (
	"bytes"
	"encoding/json"
	"time"
)

// ============================================================
// Session / Auth wire types (matches backend API contract)
// ============================================================

// AuthState is the client's view of its authentication.
type AuthState string

const (
	StateAnonymous      AuthState = "anonymous"
	StateAuthenticating AuthState = "authenticating"
	StateAuthenticated  AuthState = "authenticated"
)

// DefaultTokenType is used when the backend omits token_type.
const DefaultTokenType = "bearer"

// User is the identity returned by GET /users/me.
type User struct {
	ID    ID     `json:"user_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// UnmarshalJSON accepts both user_id and id.
func (u *User) UnmarshalJSON(b []byte) error {
	var raw struct {
		UserID ID     `json:"user_id"`
		ID     ID     `json:"id"`
		Name   string `json:"name"`
		Email  string `json:"email"`
	}
	if err := json.NewDecoder(bytes.NewReader(b)).Decode(&raw); err != nil {
		return err
	}
	u.ID = raw.UserID
	if u.ID == "" {
		u.ID = raw.ID
	}
	u.Name = raw.Name
	u.Email = raw.Email
	return nil
}

// Session is the durable authentication record.
// User is set only after Token was validated against the identity endpoint.
type Session struct {
	Token     string    `json:"-"`
	TokenType string    `json:"token_type"`
	User      *User     `json:"user,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Authenticated reports whether the session carries a token.
func (s *Session) Authenticated() bool {
	return s != nil && s.Token != ""
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.User != nil {
		u := *s.User
		c.User = &u
	}
	return &c
}

// RegisterRequest is the body for POST /users.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the body for 200 from POST /users/login.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// TokenClaims are the fields the client reads from a JWT access token
// without verifying it.
type TokenClaims struct {
	Subject   string
	ExpiresAt time.Time // zero when the token carries no exp
}

// SessionSnapshot is the state and session read together.
type SessionSnapshot struct {
	State   AuthState `json:"state"`
	Session *Session  `json:"session,omitempty"`
}
