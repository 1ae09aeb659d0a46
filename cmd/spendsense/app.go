package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/boddenberg/spendsense-go/internal/config"
	"github.com/boddenberg/spendsense-go/internal/domain"
	"github.com/boddenberg/spendsense-go/internal/infra/alerts"
	"github.com/boddenberg/spendsense-go/internal/infra/cache"
	"github.com/boddenberg/spendsense-go/internal/infra/client"
	"github.com/boddenberg/spendsense-go/internal/infra/observability"
	"github.com/boddenberg/spendsense-go/internal/infra/resilience"
	"github.com/boddenberg/spendsense-go/internal/infra/sessionstore"
	"github.com/boddenberg/spendsense-go/internal/port"
	"github.com/boddenberg/spendsense-go/internal/service"

	"go.uber.org/zap"
)

// app is the wired object graph shared by every command.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *observability.Metrics

	api       *client.Client
	session   *service.SessionManager
	expenses  *service.ExpenseService
	budgets   *service.BudgetService
	dashboard *service.Dashboard
	assistant *service.Assistant

	closers []func(context.Context) error
}

// newApp wires the client and restores the stored session. A backend that
// cannot be reached during restore is logged, not fatal.
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	// --- Tracing ---
	shutdown, err := observability.InitTracer(ctx, cfg.OTLPEndpoint, "spendsense")
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, shutdown)

	// --- Metrics ---
	a.metrics = observability.NewMetrics()

	// --- Backend client ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	cb := resilience.NewCircuitBreaker("backend", client.CountsAsFailure)
	a.api = client.New(&http.Client{Timeout: cfg.HTTPTimeout}, cfg.APIURL, cb, resilienceCfg, a.metrics, logger)

	// --- Session store ---
	store, err := a.openStore()
	if err != nil {
		a.Close()
		return nil, err
	}

	// --- Services ---
	categories := cache.New[[]domain.Category](cfg.CacheTTL)
	a.closers = append(a.closers, func(context.Context) error { categories.Close(); return nil })

	evaluator := service.NewBudgetEvaluator(cfg.Location)
	evaluator.WeekStart = cfg.WeekStart

	notifier, err := a.openNotifier()
	if err != nil {
		a.Close()
		return nil, err
	}

	a.session = service.NewSessionManager(a.api, store, a.metrics, logger)
	a.expenses = service.NewExpenseService(a.api, a.session, categories, a.metrics, logger, a.now)
	a.budgets = service.NewBudgetService(a.api, a.session, logger)
	a.dashboard = service.NewDashboard(a.session, a.expenses, a.budgets, evaluator, notifier, a.metrics, logger)
	a.assistant = service.NewAssistant(a.api, a.session, cfg.AssistantHistory, a.metrics, logger)

	if err := a.session.Restore(ctx); err != nil {
		var netErr *domain.NetworkError
		if !errors.As(err, &netErr) {
			a.Close()
			return nil, err
		}
		logger.Warn("could not validate stored session, keeping it", zap.Error(err))
	}
	return a, nil
}

func (a *app) openStore() (port.SessionStore, error) {
	if a.cfg.SessionDriver == "memory" {
		return sessionstore.NewMemory(), nil
	}
	store, err := sessionstore.OpenSQLite(a.cfg.SessionPath, a.logger)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { return store.Close() })
	return store, nil
}

// openNotifier always logs alerts and also publishes them when an AMQP URL
// is configured.
func (a *app) openNotifier() (port.Notifier, error) {
	notifiers := alerts.Multi{alerts.NewLog(a.logger)}
	if a.cfg.AlertsAMQPURL == "" {
		return notifiers, nil
	}
	pub, err := alerts.DialAMQP(a.cfg.AlertsAMQPURL, a.cfg.AlertsExchange, a.cfg.AlertsRoutingKey, a.logger)
	if err != nil {
		return nil, fmt.Errorf("connect alerts broker: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { return pub.Close() })
	return append(notifiers, pub), nil
}

// now is the evaluation clock, in the configured timezone.
func (a *app) now() time.Time {
	return time.Now().In(a.cfg.Location)
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.Warn("shutdown step failed", zap.Error(err))
		}
	}
	a.closers = nil
}

// withApp builds the app for one command run and tears it down afterwards.
func withApp(ctx context.Context, fn func(a *app) error) error {
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
