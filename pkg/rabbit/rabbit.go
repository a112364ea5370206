package rabbit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
)

const (
	heartbeat        = 10 * time.Second
	reconnectRetries = 5
)

var ErrEmptyDSN = errors.New("dsn is empty: can't reconnect")

type RabbitMQ struct {
	Conn     *amqp.Connection
	Channel  *amqp.Channel
	isClosed bool
	mu       sync.Mutex
	dsn      string

	log logger.Logger
}

// New creates rabbitMQ client
func New(ctx context.Context, dsn string, log logger.Logger) (*RabbitMQ, error) {
	r := &RabbitMQ{dsn: dsn, log: log}

	conn, ch, err := dial(dsn)
	if err != nil {
		return nil, err
	}
	r.attach(conn, ch)

	log.Info(wrap.WithAction(ctx, types.ActionRabbitMQConnected), "connected to rabbitMQ")
	return r, nil
}

func dial(dsn string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.DialConfig(dsn, amqp.Config{Heartbeat: heartbeat})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close() // Close connection if channel creation fails
		return nil, nil, fmt.Errorf("failed to open a channel: %w", err)
	}
	return conn, ch, nil
}

// attach stores the connection and watches both the connection and the channel.
// Caller holds r.mu or owns r exclusively.
func (r *RabbitMQ) attach(conn *amqp.Connection, ch *amqp.Channel) {
	connClose := conn.NotifyClose(make(chan *amqp.Error, 1))
	chClose := ch.NotifyClose(make(chan *amqp.Error, 1))

	r.Conn = conn
	r.Channel = ch
	r.isClosed = false

	go r.monitorConnection(conn, connClose, chClose)
}

// monitorConnection marks the client closed once the connection or its channel goes away
func (r *RabbitMQ) monitorConnection(conn *amqp.Connection, connClose, chClose <-chan *amqp.Error) {
	var closeErr *amqp.Error
	select {
	case closeErr = <-connClose:
	case closeErr = <-chClose:
	}

	r.mu.Lock()
	if r.Conn == conn {
		r.isClosed = true
	}
	r.mu.Unlock()

	ctx := wrap.WithAction(context.Background(), types.ActionRabbitConnectionClosed)
	if closeErr != nil {
		r.log.Error(ctx, "RabbitMQ connection closed with error", closeErr)
	} else {
		r.log.Debug(ctx, "RabbitMQ connection closed gracefully")
	}
}

// IsConnectionClosed checks if the connection is closed
func (r *RabbitMQ) IsConnectionClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closedLocked()
}

func (r *RabbitMQ) closedLocked() bool {
	return r.isClosed || r.Conn == nil || r.Conn.IsClosed() || r.Channel == nil || r.Channel.IsClosed()
}

// DeclareExchange declares a durable topic exchange.
func (r *RabbitMQ) DeclareExchange(name string) error {
	r.mu.Lock()
	ch := r.Channel
	r.mu.Unlock()

	if ch == nil {
		return amqp.ErrClosed
	}
	if err := ch.ExchangeDeclare(name, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", name, err)
	}
	return nil
}

// Publish sends body to exchange under key on the current channel.
func (r *RabbitMQ) Publish(ctx context.Context, exchange, key string, msg amqp.Publishing) error {
	r.mu.Lock()
	ch := r.Channel
	r.mu.Unlock()

	if ch == nil {
		return amqp.ErrClosed
	}
	return ch.PublishWithContext(ctx, exchange, key, false, false, msg)
}

// Close closes rabbit connection
func (r *RabbitMQ) Close(ctx context.Context) error {
	ctx = wrap.WithAction(ctx, types.ActionRabbitConnectionClosing)

	r.mu.Lock()
	if r.Conn == nil {
		r.mu.Unlock()
		return nil
	}
	// mark closed early to avoid races with concurrent Close calls
	r.isClosed = true
	ch, conn := r.Channel, r.Conn
	r.Channel, r.Conn = nil, nil
	r.mu.Unlock()

	r.log.Debug(ctx, "closing channel")
	if ch != nil {
		if err := closeWithCtxFunc(ctx, ch.Close); err != nil && ctx.Err() == nil {
			r.log.Error(ctx, "error closing channel", err)
		}
	}

	r.log.Debug(ctx, "closing RabbitMQ connection")
	if err := closeWithCtxFunc(ctx, conn.Close); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("failed to close connection: %w", err)
	}

	r.log.Info(wrap.WithAction(ctx, types.ActionRabbitConnectionClosed), "rabbitMQ closed")
	return nil
}

// helper to close a resource with context cancellation safely
func closeWithCtxFunc(ctx context.Context, fn func() error) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- fn()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		// goroutine can still write into the buffered channel and exit.
		return ctx.Err()
	}
}

// Reconnect dials again with a linear backoff when the connection is gone.
func (r *RabbitMQ) Reconnect(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.dsn == "" {
		return ErrEmptyDSN
	}
	if !r.closedLocked() {
		return nil
	}

	var (
		conn *amqp.Connection
		ch   *amqp.Channel
		err  error
	)
	for i := range reconnectRetries {
		if conn, ch, err = dial(r.dsn); err == nil {
			break
		}

		wait := time.Duration(i+1) * 2 * time.Second
		r.log.Debug(ctx, fmt.Sprintf("reconnect attempt %d failed, retrying in %v", i+1, wait))

		select {
		case <-ctx.Done():
			r.log.Debug(ctx, "graceful shutdown: stopping reconnect attempts")
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	if err != nil {
		return fmt.Errorf("failed to reconnect to RabbitMQ: %w", err)
	}

	r.attach(conn, ch)

	r.log.Info(wrap.WithAction(ctx, types.ActionRabbitReconnected), "RabbitMQ reconnected successfully")
	return nil
}

func (r *RabbitMQ) EnsureConnection(ctx context.Context) error {
	if r.IsConnectionClosed() {
		r.log.Warn(ctx, "rabbit connection closed, reconnecting...")
		if err := r.Reconnect(ctx); err != nil {
			return fmt.Errorf("failed to reconnect to RabbitMQ: %w", err)
		}
	}
	return nil
}
