// Package client implements the SpendSense REST backend API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/boddenberg/spendsense-go/internal/domain"
	"github.com/boddenberg/spendsense-go/internal/infra/observability"
	"github.com/boddenberg/spendsense-go/internal/infra/resilience"
	"github.com/boddenberg/spendsense-go/internal/port"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("client")

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// Client calls the SpendSense backend with circuit breaker, bulkhead,
// optional retry of idempotent reads, and tracing.
type Client struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	bulkhead   *resilience.Bulkhead
	cfg        resilience.Config
	metrics    *observability.Metrics
	logger     *zap.Logger
}

var _ port.Backend = (*Client)(nil)

// New creates a backend client.
func New(httpClient *http.Client, baseURL string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, metrics *observability.Metrics, logger *zap.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		cb:         cb,
		bulkhead:   resilience.NewBulkhead(cfg.MaxConcurrency),
		cfg:        cfg,
		metrics:    metrics,
		logger:     logger,
	}
}

// CountsAsFailure tells the circuit breaker which errors reflect backend
// health: transport failures and 5xx. Auth, validation and 4xx responses do not.
func CountsAsFailure(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var netErr *domain.NetworkError
	return errors.As(err, &netErr) && netErr.Temporary()
}

// call describes one backend request.
type call struct {
	op       string // human-readable operation, used in errors, spans and metrics
	method   string
	path     string
	query    url.Values
	creds    *port.Credentials
	jsonBody any
	form     url.Values
	out      any

	// resource/id name the target for 404 mapping.
	resource string
	id       string

	// onError maps non-2xx responses before the generic rules apply.
	// Returning nil falls through to the generic mapping.
	onError func(status int, detail string) error
}

func (c *Client) do(ctx context.Context, cl call) error {
	ctx, span := tracer.Start(ctx, "Client."+strings.ReplaceAll(cl.op, " ", "_"))
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", cl.method),
		attribute.String("http.path", cl.path),
	)

	if err := c.bulkhead.Acquire(ctx); err != nil {
		return &domain.NetworkError{Operation: cl.op, Message: "request cancelled", Err: err}
	}
	defer c.bulkhead.Release()

	start := time.Now()
	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.retryConfig(cl.method), func() error {
			return c.attempt(ctx, cl)
		})
	})
	c.metrics.RecordRequestDuration(cl.op, time.Since(start))

	if err != nil {
		if resilience.IsOpen(err) {
			err = &domain.NetworkError{Operation: cl.op, Message: "backend unavailable, try again shortly", Err: err}
		}
		c.metrics.IncrBackendError(cl.op, errorKind(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Debug("backend request failed",
			zap.String("operation", cl.op),
			zap.String("method", cl.method),
			zap.String("path", cl.path),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// retryConfig applies the configured retries to idempotent reads only.
func (c *Client) retryConfig(method string) resilience.Config {
	cfg := c.cfg
	if method != http.MethodGet {
		cfg.MaxRetries = 0
	}
	return cfg
}

func (c *Client) attempt(ctx context.Context, cl call) error {
	req, err := c.newRequest(ctx, cl)
	if err != nil {
		return resilience.Permanent(err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.NetworkError{Operation: cl.op, Message: "backend unreachable", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if cl.out == nil || resp.StatusCode == http.StatusNoContent {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(cl.out); err != nil && !errors.Is(err, io.EOF) {
			return resilience.Permanent(&domain.NetworkError{
				Operation: cl.op,
				Status:    resp.StatusCode,
				Message:   "malformed response",
				Err:       err,
			})
		}
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	mapped := c.mapError(cl, resp.StatusCode, parseDetail(body))
	var netErr *domain.NetworkError
	if errors.As(mapped, &netErr) && netErr.Temporary() {
		return mapped
	}
	return resilience.Permanent(mapped)
}

func (c *Client) newRequest(ctx context.Context, cl call) (*http.Request, error) {
	u := c.baseURL + cl.path
	if len(cl.query) > 0 {
		u += "?" + cl.query.Encode()
	}

	var body io.Reader
	contentType := ""
	switch {
	case cl.form != nil:
		body = strings.NewReader(cl.form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case cl.jsonBody != nil:
		b, err := json.Marshal(cl.jsonBody)
		if err != nil {
			return nil, fmt.Errorf("encode %s request: %w", cl.op, err)
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, u, body)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", cl.op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if cl.creds != nil {
		req.Header.Set("Authorization", authorizationHeader(*cl.creds))
	}
	return req, nil
}

func (c *Client) mapError(cl call, status int, detail string) error {
	if cl.onError != nil {
		if err := cl.onError(status, detail); err != nil {
			return err
		}
	}
	switch {
	case status == http.StatusUnauthorized && cl.creds != nil:
		return &domain.AuthError{Reason: domain.AuthSessionExpired, Detail: detail}
	case status == http.StatusNotFound && cl.resource != "":
		return &domain.ErrNotFound{Resource: cl.resource, ID: cl.id}
	}
	msg := detail
	if msg == "" {
		msg = fmt.Sprintf("failed to %s", cl.op)
	}
	return &domain.NetworkError{Operation: cl.op, Status: status, Message: msg}
}

// authorizationHeader renders "Bearer <token>" for bearer tokens and keeps
// any other scheme as given.
func authorizationHeader(creds port.Credentials) string {
	scheme := creds.TokenType
	if scheme == "" || strings.EqualFold(scheme, domain.DefaultTokenType) {
		scheme = "Bearer"
	}
	return scheme + " " + creds.Token
}

// parseDetail extracts the backend's error message. The backend answers
// {"detail": "..."} or, for request validation, {"detail": [{"msg": "..."}]}.
func parseDetail(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(payload.Detail, &s); err == nil {
		return s
	}

	var items []struct {
		Msg string `json:"msg"`
		Loc []any  `json:"loc"`
	}
	if err := json.Unmarshal(payload.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg == "" {
				continue
			}
			if len(it.Loc) > 0 {
				msgs = append(msgs, fmt.Sprintf("%v: %s", it.Loc[len(it.Loc)-1], it.Msg))
			} else {
				msgs = append(msgs, it.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}

func errorKind(err error) string {
	var (
		authErr     *domain.AuthError
		notFound    *domain.ErrNotFound
		netErr      *domain.NetworkError
		validateErr *domain.ValidationError
	)
	switch {
	case errors.As(err, &authErr):
		return "auth"
	case errors.As(err, &notFound):
		return "not_found"
	case errors.As(err, &validateErr):
		return "validation"
	case errors.As(err, &netErr):
		if netErr.Status == 0 {
			return "transport"
		}
		if netErr.Status >= 500 {
			return "server"
		}
		return "client"
	}
	return "other"
}

func idPath(prefix string, id domain.ID) string {
	return prefix + "/" + url.PathEscape(id.String())
}
