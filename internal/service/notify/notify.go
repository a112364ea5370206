package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/metrics"
	ws "github.com/Temutjin2k/ride-dispatch/pkg/wsHub"
)

type Registry interface {
	Send(ctx context.Context, id uuid.UUID, msg any) ws.Outcome
}

// Service pushes events to parties over their live connection. Pushes are best
// effort: a party without a connection simply misses the event.
type Service struct {
	registry Registry
	timeout  time.Duration
	service  string

	wg sync.WaitGroup
	l  logger.Logger
}

func New(registry Registry, timeout time.Duration, service string, l logger.Logger) *Service {
	return &Service{
		registry: registry,
		timeout:  timeout,
		service:  service,
		l:        l,
	}
}

// Send delivers one event and waits for the outcome, bounded by the push timeout.
func (s *Service) Send(ctx context.Context, partyID uuid.UUID, event types.PushEvent, payload any) ws.Outcome {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out := s.registry.Send(ctx, partyID, models.PushMessage{
		Event:  event,
		Data:   payload,
		SentAt: time.Now().UTC(),
	})
	metrics.RecordNotification(s.service, event.String(), string(out))
	return out
}

// Notify sends in the background and only logs a failed delivery. It is detached
// from ctx cancellation so a finished request does not abort its pushes.
func (s *Service) Notify(ctx context.Context, partyID uuid.UUID, event types.PushEvent, payload any) {
	ctx = wrap.WithAction(context.WithoutCancel(ctx), types.ActionNotify)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		out := s.Send(ctx, partyID, event, payload)
		switch out {
		case ws.Delivered:
		case ws.NotConnected:
			s.l.Debug(ctx, "party not connected, push dropped", "party_id", partyID.String(), "event", event.String())
		default:
			s.l.Warn(ctx, "push not delivered", "party_id", partyID.String(), "event", event.String(), "outcome", string(out))
		}
	}()
}

// Wait blocks until every background push has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}
