// Package alerts delivers budget alerts raised by the dashboard.
package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/boddenberg/spendsense-go/internal/domain"
	"github.com/boddenberg/spendsense-go/internal/port"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const publishTimeout = 5 * time.Second

// AMQP publishes alerts to a topic exchange. The routing key is
// "<prefix>.<classification>" so consumers can bind to over_budget only.
type AMQP struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	prefix   string
	logger   *zap.Logger
}

var _ port.Notifier = (*AMQP)(nil)

// DialAMQP connects and declares the exchange.
func DialAMQP(url, exchange, routingPrefix string, logger *zap.Logger) (*AMQP, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	return &AMQP{conn: conn, channel: ch, exchange: exchange, prefix: routingPrefix, logger: logger}, nil
}

// RoutingKey returns the key an alert is published under.
func RoutingKey(prefix string, c domain.Classification) string {
	if prefix == "" {
		return string(c)
	}
	return prefix + "." + string(c)
}

func (a *AMQP) Notify(ctx context.Context, alert domain.BudgetAlert) error {
	body, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	key := RoutingKey(a.prefix, alert.Classification)
	err = a.channel.PublishWithContext(ctx, a.exchange, key,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    alert.RaisedAt,
			MessageId:    alert.BudgetID.String() + "-" + string(alert.Classification),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish alert: %w", err)
	}

	a.logger.Debug("budget alert published",
		zap.String("exchange", a.exchange),
		zap.String("routing_key", key),
		zap.String("budget_id", alert.BudgetID.String()),
	)
	return nil
}

// Close closes the channel and connection.
func (a *AMQP) Close() error {
	if a.channel != nil {
		a.channel.Close()
	}
	if a.conn != nil {
		return a.conn.Close()
	}
	return nil
}
