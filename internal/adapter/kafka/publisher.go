package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/metrics"
)

const writeTimeout = 2 * time.Second

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// RideStatusPublisher writes ride status events to a topic keyed by ride id, so
// the events of one ride stay ordered within a partition.
type RideStatusPublisher struct {
	writer  messageWriter
	service string

	l logger.Logger
}

func NewRideStatusPublisher(brokers []string, topic, service string, log logger.Logger) *RideStatusPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: writeTimeout,
	}
	return &RideStatusPublisher{writer: w, service: service, l: log}
}

func (p *RideStatusPublisher) PublishRideStatus(ctx context.Context, msg models.RideStatusEvent) (err error) {
	ctx = wrap.WithAction(ctx, types.ActionPublishStatus)
	defer func() { metrics.RecordPublish(p.service, "kafka", err) }()

	body, err := json.Marshal(msg)
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("failed to marshal message: %w", err))
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.RideID.String()),
		Value: body,
		Time:  msg.Timestamp,
		Headers: []kafka.Header{
			{Key: "status", Value: []byte(msg.Status)},
			{Key: "correlation_id", Value: []byte(msg.CorrelationID)},
		},
	}); err != nil {
		return wrap.Error(ctx, fmt.Errorf("%w: %w", types.ErrFailedToPublishRideStatus, err))
	}

	p.l.Debug(ctx, "ride status published", "status", msg.Status.String())
	return nil
}

func (p *RideStatusPublisher) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
