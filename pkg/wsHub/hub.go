package ws

import (
	"context"
	"errors"
	"net"
	"sync"

	"github.com/google/uuid"

	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
)

var (
	ErrEmptyConn      = errors.New("connection is empty")
	ErrConnIsNotFound = errors.New("connection not found")
	ErrConnClosed     = errors.New("connection closed")
)

// Outcome is the result of a single delivery attempt.
type Outcome string

const (
	Delivered    Outcome = "delivered"
	TimedOut     Outcome = "timeout"
	NotConnected Outcome = "not-connected"
	Failed       Outcome = "failed"
)

// Channel is a live delivery path to one party.
type Channel interface {
	Send(ctx context.Context, msg any) error
	Close() error
}

// ConnectionHub maps party ids to their live channel. One channel per party: a new
// registration replaces and closes the previous one.
type ConnectionHub struct {
	clients map[uuid.UUID]Channel
	l       logger.Logger
	mu      sync.RWMutex

	// onChange, when set, receives the number of live channels after every change.
	onChange func(n int)
}

func NewConnHub(l logger.Logger, onChange func(n int)) *ConnectionHub {
	return &ConnectionHub{
		clients:  make(map[uuid.UUID]Channel),
		l:        l,
		onChange: onChange,
	}
}

// Register binds ch to id. An existing channel for id is closed.
func (h *ConnectionHub) Register(id uuid.UUID, ch Channel) error {
	if ch == nil {
		return ErrEmptyConn
	}

	h.mu.Lock()
	existing, ok := h.clients[id]
	h.clients[id] = ch
	n := len(h.clients)
	h.mu.Unlock()

	if ok && existing != ch {
		ctx := wrap.WithAction(context.Background(), "replace_ws_connection")
		h.l.Debug(ctx, "replacing existing connection", "party_id", id.String())
		if err := existing.Close(); err != nil {
			h.l.Warn(ctx, "failed to close replaced conn", "party_id", id.String(), "error", err.Error())
		}
	}

	h.changed(n)
	return nil
}

// Unregister drops and closes the channel of id.
func (h *ConnectionHub) Unregister(id uuid.UUID) error {
	h.mu.Lock()
	ch, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
	}
	n := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return ErrConnIsNotFound
	}

	h.changed(n)
	return ch.Close()
}

// Remove drops id only while ch is still its registered channel, so a stale
// disconnect cannot evict a newer connection. Reports whether it removed anything.
func (h *ConnectionHub) Remove(id uuid.UUID, ch Channel) bool {
	h.mu.Lock()
	current, ok := h.clients[id]
	if !ok || current != ch {
		h.mu.Unlock()
		return false
	}
	delete(h.clients, id)
	n := len(h.clients)
	h.mu.Unlock()

	h.changed(n)
	return true
}

// Lookup returns the live channel of id.
func (h *ConnectionHub) Lookup(id uuid.UUID) (Channel, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ch, ok := h.clients[id]
	return ch, ok
}

// Send delivers msg to id and classifies the result. The caller bounds the attempt
// with ctx; a channel that fails to write is dropped from the hub.
func (h *ConnectionHub) Send(ctx context.Context, id uuid.UUID, msg any) Outcome {
	ch, ok := h.Lookup(id)
	if !ok {
		return NotConnected
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- ch.Send(ctx, msg)
	}()

	var err error
	select {
	case err = <-errCh:
	case <-ctx.Done():
		return TimedOut
	}

	switch {
	case err == nil:
		return Delivered
	case errors.Is(err, ErrConnClosed):
		h.Remove(id, ch)
		return NotConnected
	case isTimeout(err):
		return TimedOut
	default:
		if h.Remove(id, ch) {
			_ = ch.Close()
		}
		return Failed
	}
}

// Len returns the number of live channels.
func (h *ConnectionHub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close закрывает каждое websocket соединение
func (h *ConnectionHub) Close() {
	ctx := wrap.WithAction(context.Background(), "hub_close")

	// копируем клиентов под локом
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[uuid.UUID]Channel)
	h.mu.Unlock()

	// закрываем вне локов
	for id, ch := range clients {
		if err := ch.Close(); err != nil {
			h.l.Warn(ctx, "failed to close conn", "party_id", id.String(), "error", err.Error())
		}
	}

	h.changed(0)
	h.l.Info(ctx, "all websocket connections closed gracefully", "closed", len(clients))
}

func (h *ConnectionHub) changed(n int) {
	if h.onChange != nil {
		h.onChange(n)
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
