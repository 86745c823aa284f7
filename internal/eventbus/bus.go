// Package eventbus implements an in-process publish/subscribe bus with
// listener-failure isolation (§4.2). Subscribers are held by capability
// interface; the bus is never back-pointered into a listener.
package eventbus

import (
	"context"
	"log/slog"
	"sync"

	"github.com/rickwalking/telegram-reels-pipeline-sub001/internal/models"
)

// Listener receives published events. Implementations must not block
// indefinitely — the bus dispatches sequentially and has no back-pressure
// mechanism; a slow listener slows every publisher.
type Listener interface {
	Receive(ctx context.Context, event models.PipelineEvent) error
}

// ListenerFunc adapts a plain function to the Listener interface.
type ListenerFunc func(ctx context.Context, event models.PipelineEvent) error

// Receive implements Listener.
func (f ListenerFunc) Receive(ctx context.Context, event models.PipelineEvent) error {
	return f(ctx, event)
}

// Bus is a process-scoped, unpersisted event bus. The zero value is not
// usable; construct with New.
type Bus struct {
	mu        sync.Mutex
	listeners []Listener
	logger    *slog.Logger
}

// New creates an empty Bus.
func New(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{logger: logger}
}

// Subscribe registers a listener. Listeners are invoked in the order they
// were subscribed, across every subsequent Publish call (insertion order).
func (b *Bus) Subscribe(l Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, l)
}

// Publish dispatches event to each subscribed listener in order. A
// listener failure is caught, logged, and never propagated to the
// publisher or to other listeners (§7: "Listener failures on the
// EventBus are always swallowed and logged"). Publish never blocks on
// I/O performed by a listener beyond the listener's own Receive call —
// there is no queuing or back-pressure.
func (b *Bus) Publish(ctx context.Context, event models.PipelineEvent) {
	b.mu.Lock()
	listeners := make([]Listener, len(b.listeners))
	copy(listeners, b.listeners)
	b.mu.Unlock()

	for _, l := range listeners {
		b.dispatchOne(ctx, l, event)
	}
}

func (b *Bus) dispatchOne(ctx context.Context, l Listener, event models.PipelineEvent) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event listener panicked",
				slog.String("event", event.Name),
				slog.Any("recovered", r))
		}
	}()
	if err := l.Receive(ctx, event); err != nil {
		b.logger.Error("event listener failed",
			slog.String("event", event.Name),
			slog.String("stage", string(event.Stage)),
			slog.Any("error", err))
	}
}
