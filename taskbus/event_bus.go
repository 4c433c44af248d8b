package taskbus

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	cbus "github.com/tasklane/taskbus/contract/bus"
	berr "github.com/tasklane/taskbus/contract/errors"
)

// EventBus fans domain events out to every bound listener and forwards
// integration events to the configured publisher. Listener errors never stop
// the fan-out; they are aggregated and returned together.
type EventBus struct {
	reg *ListenerRegistry
	enq cbus.JobEnqueuer
	pub cbus.EventPublisher
}

// NewEventBus constructs an EventBus over reg. Both the enqueuer and the
// publisher may be nil: without an enqueuer, queueable listeners run
// synchronously; without a publisher, PublishIntegration fails.
func NewEventBus(reg *ListenerRegistry, enq cbus.JobEnqueuer, pub cbus.EventPublisher) *EventBus {
	return &EventBus{reg: reg, enq: enq, pub: pub}
}

// Registry returns the underlying listener registry.
func (b *EventBus) Registry() *ListenerRegistry { return b.reg }

// BindDomainEventOf registers a domain event listener for a specific event type.
// For queueable listeners, prefer BindDomainEventRaw with a raw handler that
// implements QueueableListener.
func (b *EventBus) BindDomainEventOf(sample any, handler func(ctx context.Context, e any) error) error {
	if handler == nil {
		return fmt.Errorf("bind domain event %T: %w", sample, berr.ErrNilHandler)
	}

	b.reg.add(reflect.TypeOf(sample), listenerEntry{call: handler, raw: handler})

	return nil
}

// BindDomainEventRaw registers a domain event listener providing a raw handler
// object and a callable. The raw object is used for QueueableListener
// detection and name resolution when enqueuing.
func (b *EventBus) BindDomainEventRaw(sample, raw any, call func(ctx context.Context, e any) error) error {
	if call == nil {
		return fmt.Errorf("bind domain event %T: %w", sample, berr.ErrNilHandler)
	}

	b.reg.add(reflect.TypeOf(sample), listenerEntry{call: call, raw: raw})

	return nil
}

// PublishDomain publishes a domain event to all listeners bound for its type.
// Listeners that implement QueueableListener are enqueued if a JobEnqueuer is
// configured; otherwise they are invoked synchronously. All errors are
// aggregated with errors.Join and returned. An event with no listeners is a
// no-op.
func (b *EventBus) PublishDomain(ctx context.Context, e cbus.DomainEvent) error {
	entries := b.reg.forType(reflect.TypeOf(e))
	if len(entries) == 0 {
		return nil
	}

	var errs []error

	for _, ent := range entries {
		if err := b.handleEntry(ctx, e, ent); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (b *EventBus) handleEntry(ctx context.Context, event cbus.DomainEvent, entry listenerEntry) error {
	// If no enqueuer, invoke synchronously.
	if b.enq == nil {
		return entry.call(ctx, event)
	}

	// Enqueue if the listener is a QueueableListener and an enqueuer is configured.
	if ql, ok := entry.raw.(cbus.QueueableListener); ok {
		qo := cbus.QueueOptions{Queue: ql.QueueName(), DelaySeconds: int(ql.Delay().Seconds())}
		name := reflect.TypeOf(entry.raw).String()

		if err := b.enq.EnqueueListener(ctx, event, name, qo); err != nil {
			return err
		}

		return nil
	}

	// Fallback to sync invocation.
	return entry.call(ctx, event)
}

// PublishIntegration publishes an integration event via the configured EventPublisher.
func (b *EventBus) PublishIntegration(ctx context.Context, e cbus.IntegrationEvent, opts cbus.PublishOptions) error {
	if b.pub == nil {
		return fmt.Errorf("publish integration %T: %w", e, berr.ErrAsyncNotConfigured)
	}

	return b.pub.PublishIntegration(ctx, e, opts)
}

// BindDomainEvent registers a listener for domain event type E. Multiple
// listeners per type are allowed; each publish invokes them in bind order.
func BindDomainEvent[E cbus.DomainEvent](b *EventBus, h cbus.DomainEventHandler[E]) error {
	var zero E

	if h == nil {
		return fmt.Errorf("bind domain event %T: %w", zero, berr.ErrNilHandler)
	}

	t := reflect.TypeOf(zero)
	entry := listenerEntry{
		call: func(ctx context.Context, v any) error {
			e, ok := v.(E)
			if !ok {
				return fmt.Errorf("publish domain %s: %w", reflect.TypeOf(v).String(), berr.ErrHandlerTypeMismatch)
			}

			return h.Handle(ctx, e)
		},
		raw: h,
	}
	b.reg.add(t, entry)

	return nil
}
