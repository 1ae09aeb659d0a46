package alerts

import (
	"context"
	"errors"

	"github.com/boddenberg/spendsense-go/internal/domain"
	"github.com/boddenberg/spendsense-go/internal/port"

	"go.uber.org/zap"
)

// Log writes alerts to the structured log. It is the default notifier when
// no broker is configured.
type Log struct {
	logger *zap.Logger
}

var _ port.Notifier = (*Log)(nil)

func NewLog(logger *zap.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Notify(_ context.Context, alert domain.BudgetAlert) error {
	fields := []zap.Field{
		zap.String("budget_id", alert.BudgetID.String()),
		zap.String("category", alert.CategoryName),
		zap.String("period", string(alert.Period)),
		zap.String("classification", string(alert.Classification)),
		zap.String("spent", alert.Spent.StringFixed(2)),
		zap.String("limit", alert.Limit.StringFixed(2)),
	}
	if alert.PercentUsed.Valid {
		fields = append(fields, zap.String("percent_used", alert.PercentUsed.Decimal.StringFixed(1)))
	}

	if alert.Classification == domain.ClassOverBudget {
		l.logger.Warn("budget exceeded", fields...)
	} else {
		l.logger.Info("budget near limit", fields...)
	}
	return nil
}

// Multi fans an alert out to every notifier and joins their errors.
type Multi []port.Notifier

func (m Multi) Notify(ctx context.Context, alert domain.BudgetAlert) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
