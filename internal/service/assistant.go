package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/boddenberg/spendsense-go/internal/domain"
	"github.com/boddenberg/spendsense-go/internal/infra/observability"
	"github.com/boddenberg/spendsense-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("service/assistant")

// DefaultHistorySize is how many messages are kept when none is configured.
const DefaultHistorySize = 10

// Assistant forwards questions to the backend AI endpoint, sending the
// recent conversation along as context.
type Assistant struct {
	api     port.AIQuerier
	session *SessionManager
	metrics *observability.Metrics
	logger  *zap.Logger
	now     func() time.Time
	limit   int

	mu      sync.Mutex
	history []domain.ChatMessage
}

// NewAssistant creates the assistant service. historySize bounds the kept
// conversation; the history is cleared when the session ends.
func NewAssistant(api port.AIQuerier, session *SessionManager, historySize int, metrics *observability.Metrics, logger *zap.Logger) *Assistant {
	if historySize <= 0 {
		historySize = DefaultHistorySize
	}
	a := &Assistant{
		api:     api,
		session: session,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
		limit:   historySize,
	}
	session.OnTransition(func(_, to domain.AuthState) {
		if to == domain.StateAnonymous || to == domain.StateAuthenticated {
			a.Reset()
		}
	})
	return a
}

// Ask sends query to the assistant.
func (a *Assistant) Ask(ctx context.Context, query string) (*domain.AIResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "Assistant.Ask")
	defer span.End()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &domain.ValidationError{Messages: []string{"Query cannot be empty"}}
	}

	req := &domain.AIQueryRequest{Query: query, Context: a.contextLines()}
	span.SetAttributes(attribute.Int("context.turns", len(req.Context)))

	start := a.now()
	resp, err := authorized(ctx, a.session, func(ctx context.Context, creds port.Credentials) (*domain.AIResponse, error) {
		return a.api.QueryAI(ctx, creds, req)
	})
	a.metrics.RecordRequestDuration("assistant", time.Since(start))
	if err != nil {
		a.logger.Warn("assistant query failed", zap.Error(err))
		return nil, err
	}

	a.remember(
		domain.ChatMessage{Role: "user", Content: query, Timestamp: start},
		domain.ChatMessage{Role: "assistant", Content: resp.Response, Timestamp: a.now()},
	)
	return resp, nil
}

// History returns a copy of the kept conversation, oldest first.
func (a *Assistant) History() []domain.ChatMessage {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]domain.ChatMessage(nil), a.history...)
}

// Reset forgets the conversation.
func (a *Assistant) Reset() {
	a.mu.Lock()
	a.history = nil
	a.mu.Unlock()
}

func (a *Assistant) remember(msgs ...domain.ChatMessage) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history = append(a.history, msgs...)
	if over := len(a.history) - a.limit; over > 0 {
		a.history = append([]domain.ChatMessage(nil), a.history[over:]...)
	}
}

func (a *Assistant) contextLines() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.history) == 0 {
		return nil
	}
	lines := make([]string, len(a.history))
	for i, m := range a.history {
		lines[i] = m.Role + ": " + m.Content
	}
	return lines
}
