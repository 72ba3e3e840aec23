// Package amqp hands emitted budget alerts to a RabbitMQ topic exchange.
// Delivery to people is the consumers' job.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"

	flog "github.com/theirongolddev/fincast/internal/log"
	"github.com/theirongolddev/fincast/internal/model"
)

const publishTimeout = 5 * time.Second

// Publisher owns one connection and channel to the broker.
type Publisher struct {
	mu         sync.Mutex
	conn       *amqp091.Connection
	channel    *amqp091.Channel
	exchange   string
	routingKey string
	logger     *slog.Logger
}

// NewPublisher dials url and declares a durable topic exchange.
func NewPublisher(url, exchange, routingKey string, logger *slog.Logger) (*Publisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	p := &Publisher{
		conn:       conn,
		channel:    channel,
		exchange:   exchange,
		routingKey: routingKey,
		logger:     logger.With(flog.FieldComponent, flog.ComponentAMQP),
	}

	err = channel.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return p, nil
}

// PublishAlert publishes one alert as a persistent JSON message.
func (p *Publisher) PublishAlert(ctx context.Context, a model.Alert) error {
	body, err := NewAlertMessage(a).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.channel.PublishWithContext(
		ctx,
		p.exchange,
		RoutingKey(p.routingKey, a.Type),
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    a.ID,
			Timestamp:    a.EmittedAt,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish alert %s: %w", a.ID, err)
	}

	p.logger.InfoContext(ctx, "published budget alert",
		"alert_id", a.ID,
		flog.FieldBudgetID, a.BudgetID,
		"type", a.Type,
		"exchange", p.exchange)
	return nil
}

// PublishAlerts publishes every alert, continuing past failures.
func (p *Publisher) PublishAlerts(ctx context.Context, alerts []model.Alert) error {
	var errs []error
	for _, a := range alerts {
		if err := p.PublishAlert(ctx, a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes the channel and connection.
func (p *Publisher) Close() error {
	var errs []error
	if p.channel != nil {
		if err := p.channel.Close(); err != nil && !errors.Is(err, amqp091.ErrClosed) {
			errs = append(errs, err)
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil && !errors.Is(err, amqp091.ErrClosed) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
