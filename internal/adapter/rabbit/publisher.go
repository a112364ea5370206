package rabbit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/metrics"
	"github.com/Temutjin2k/ride-dispatch/pkg/rabbit"
)

const (
	publishAttempts = 3
	publishBackoff  = 500 * time.Millisecond
)

// RideStatusPublisher publishes ride status changes to a topic exchange.
type RideStatusPublisher struct {
	client   *rabbit.RabbitMQ
	exchange string
	service  string

	l logger.Logger
}

// NewRideStatusPublisher declares the exchange and returns a publisher bound to it.
func NewRideStatusPublisher(client *rabbit.RabbitMQ, exchange, service string, log logger.Logger) (*RideStatusPublisher, error) {
	if err := client.DeclareExchange(exchange); err != nil {
		return nil, err
	}

	return &RideStatusPublisher{
		client:   client,
		exchange: exchange,
		service:  service,
		l:        log,
	}, nil
}

// PublishRideStatus отправляет в exchange с ключом 'ride.status.{status}'.
func (p *RideStatusPublisher) PublishRideStatus(ctx context.Context, msg models.RideStatusEvent) (err error) {
	ctx = wrap.WithAction(ctx, types.ActionPublishStatus)
	defer func() { metrics.RecordPublish(p.service, "rabbitmq", err) }()

	// Проверяем и восстанавливаем соединение
	if err := p.client.EnsureConnection(ctx); err != nil {
		return wrap.Error(ctx, fmt.Errorf("%w: %w", types.ErrFailedToPublishRideStatus, err))
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("failed to marshal message: %w", err))
	}

	key := RoutingKey(msg.Status)

	if err := retry(ctx, publishAttempts, publishBackoff, func() error {
		return p.client.Publish(ctx, p.exchange, key, amqp091.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp091.Persistent,
			CorrelationId: msg.CorrelationID,
			MessageId:     msg.RideID.String(),
			Body:          body,
			Timestamp:     msg.Timestamp,
		})
	}); err != nil {
		return wrap.Error(ctx, fmt.Errorf("%w: %w", types.ErrFailedToPublishRideStatus, err))
	}

	p.l.Debug(ctx, "ride status published", "routing_key", key)
	return nil
}

// RoutingKey is the topic key of a status, e.g. "ride.status.accepted".
func RoutingKey(status types.RideStatus) string {
	return fmt.Sprintf("ride.status.%s", status)
}
