package completion

import (
	"context"
	"time"

	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/modelgate/logging"
	"github.com/dev-mohitbeniwal/modelgate/model"
	"github.com/dev-mohitbeniwal/modelgate/retry"
	"github.com/dev-mohitbeniwal/modelgate/util"
)

// Transport moves completion events from publishers to one handler.
type Transport interface {
	Publish(ctx context.Context, event model.CompletionEvent) error
	Start(ctx context.Context, handler Handler) error
	Stop(ctx context.Context) error
}

// MemoryTransport delivers events on the in-process event bus. A handler
// failure is retried a few times before the event is given up.
type MemoryTransport struct {
	bus    *util.EventBus
	policy *retry.Policy
	subID  int
}

func NewMemoryTransport(bus *util.EventBus) *MemoryTransport {
	return &MemoryTransport{
		bus:    bus,
		policy: retry.NewPolicy(3, 50*time.Millisecond, time.Second, true),
	}
}

func (m *MemoryTransport) Publish(ctx context.Context, event model.CompletionEvent) error {
	return m.bus.Publish(ctx, util.EventJobCompleted, event)
}

func (m *MemoryTransport) Start(_ context.Context, handler Handler) error {
	m.subID = m.bus.Subscribe(util.EventJobCompleted, func(ctx context.Context, e util.Event) error {
		event, ok := e.Payload.(model.CompletionEvent)
		if !ok {
			logger.Warn("Unexpected completion payload", zap.Any("payload", e.Payload))
			return nil
		}
		return m.deliver(ctx, handler, event)
	})
	return nil
}

func (m *MemoryTransport) deliver(ctx context.Context, handler Handler, event model.CompletionEvent) error {
	for attempt := 0; ; attempt++ {
		err := handler.Handle(ctx, event)
		if err == nil {
			return nil
		}
		if !m.policy.ShouldRetry(err, attempt) {
			return err
		}
		if werr := retry.Wait(ctx, m.policy.NextDelay(attempt)); werr != nil {
			return err
		}
	}
}

// Stop unsubscribes and waits for deliveries in flight.
func (m *MemoryTransport) Stop(ctx context.Context) error {
	m.bus.Unsubscribe(util.EventJobCompleted, m.subID)
	return m.bus.Wait(ctx)
}
