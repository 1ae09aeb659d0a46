package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/boddenberg/spendsense-go/internal/domain"
	"github.com/boddenberg/spendsense-go/internal/port"
)

// Register creates an account. 4xx responses (duplicate email, rejected
// fields) surface as AuthError{registration_rejected}.
func (c *Client) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.User, error) {
	var user domain.User
	err := c.do(ctx, call{
		op:       "register",
		method:   http.MethodPost,
		path:     "/users",
		jsonBody: req,
		out:      &user,
		onError: func(status int, detail string) error {
			if status >= 400 && status < 500 {
				return &domain.AuthError{Reason: domain.AuthRegistrationRejected, Detail: detail}
			}
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Login exchanges credentials for an access token. The backend expects an
// OAuth2 password form with the email in the username field. Any non-2xx
// response is reported as invalid credentials.
func (c *Client) Login(ctx context.Context, email, password string) (*domain.LoginResponse, error) {
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)

	var resp domain.LoginResponse
	err := c.do(ctx, call{
		op:     "login",
		method: http.MethodPost,
		path:   "/users/login",
		form:   form,
		out:    &resp,
		onError: func(_ int, detail string) error {
			return &domain.AuthError{Reason: domain.AuthInvalidCredentials, Detail: detail}
		},
	})
	if err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, &domain.AuthError{Reason: domain.AuthInvalidCredentials, Detail: "no access token in response"}
	}
	if resp.TokenType == "" {
		resp.TokenType = domain.DefaultTokenType
	}
	return &resp, nil
}

// Me validates the token against the identity endpoint.
func (c *Client) Me(ctx context.Context, creds port.Credentials) (*domain.User, error) {
	var user domain.User
	err := c.do(ctx, call{
		op:     "fetch user profile",
		method: http.MethodGet,
		path:   "/users/me",
		creds:  &creds,
		out:    &user,
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// DeleteMe removes the authenticated account.
func (c *Client) DeleteMe(ctx context.Context, creds port.Credentials) error {
	return c.do(ctx, call{
		op:     "delete user",
		method: http.MethodDelete,
		path:   "/users/me",
		creds:  &creds,
	})
}
