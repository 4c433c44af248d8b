package taskbus

import (
	"context"
	"log/slog"

	cbus "github.com/tasklane/taskbus/contract/bus"
)

// Bus bundles a command bus, a query bus, and an event bus over fresh
// registries behind the contract/bus.Bus interface. The per-side buses stay
// reachable through accessors for middleware, chaining, and batch helpers.
//
// Bus is concurrency-safe and contains no global state.
type Bus struct {
	commands *CommandBus
	queries  *QueryBus
	events   *EventBus
}

var _ cbus.Bus = (*Bus)(nil)

// New constructs a new Bus with optional enqueuer and publisher.
// A nil logger keeps handler replacement silent.
func New(jobs cbus.JobEnqueuer, pub cbus.EventPublisher, logger *slog.Logger) *Bus { //nolint:ireturn
	return &Bus{
		commands: NewCommandBus(NewCommandRegistry(), jobs, logger),
		queries:  NewQueryBus(NewQueryRegistry(), logger),
		events:   NewEventBus(NewListenerRegistry(), jobs, pub),
	}
}

// BusOption configures a Bus instance.
type BusOption func(*Bus)

// WithCommandMiddleware registers global command middleware via an option.
func WithCommandMiddleware(mw ...CommandMiddleware) BusOption {
	return func(b *Bus) { b.commands.Use(mw...) }
}

// Commands returns the command side of the bus.
func (b *Bus) Commands() *CommandBus { return b.commands }

// Queries returns the query side of the bus.
func (b *Bus) Queries() *QueryBus { return b.queries }

// Events returns the event side of the bus.
func (b *Bus) Events() *EventBus { return b.events }

// BindCommandOf registers a handler for a specific command type.
func (b *Bus) BindCommandOf(sample any, handler func(ctx context.Context, cmd any) (any, error)) error {
	return b.commands.BindCommandOf(sample, handler)
}

// BindQueryOf registers a handler for a specific query type returning any result.
func (b *Bus) BindQueryOf(sample any, handler func(ctx context.Context, q any) (any, error)) error {
	return b.queries.BindQueryOf(sample, handler)
}

// BindDomainEventOf registers a domain event listener for a specific event type.
func (b *Bus) BindDomainEventOf(sample any, handler func(ctx context.Context, e any) error) error {
	return b.events.BindDomainEventOf(sample, handler)
}

// Dispatch dispatches a command, enqueuing it when it implements Queueable
// and an enqueuer is configured.
func (b *Bus) Dispatch(ctx context.Context, cmd cbus.Command) (any, error) {
	return b.commands.Dispatch(ctx, cmd)
}

// DispatchSync executes the command handler synchronously (with middleware).
func (b *Bus) DispatchSync(ctx context.Context, cmd cbus.Command) (any, error) {
	return b.commands.DispatchSync(ctx, cmd)
}

// Ask executes a query handler synchronously and returns an untyped result.
func (b *Bus) Ask(ctx context.Context, query any) (any, error) {
	return b.queries.Ask(ctx, query)
}

// PublishDomain publishes a domain event to all listeners bound for its type.
func (b *Bus) PublishDomain(ctx context.Context, event cbus.DomainEvent) error {
	return b.events.PublishDomain(ctx, event)
}

// PublishIntegration publishes an integration event via the configured EventPublisher.
func (b *Bus) PublishIntegration(ctx context.Context, event cbus.IntegrationEvent, opts cbus.PublishOptions) error {
	return b.events.PublishIntegration(ctx, event, opts)
}

// Close satisfies contract/bus.Bus. The mediator holds no resources of its
// own; adapter constructors return their own cleanup functions.
func (b *Bus) Close() error { return nil }
