package bus

import "context"

// Bus is a minimal, tech-agnostic interface that mirrors the capabilities of
// the concrete mediator while remaining non-generic for interface
// compatibility.
//
// Typed helpers remain available via generic helper functions in the taskbus
// package. This interface is intended for consumers that want to depend only
// on contracts.
type Bus interface {
	// Bind (untyped) – type-safe bindings continue via helper funcs in taskbus.
	// Rebinding a type replaces the previous handler; binding a nil handler fails.
	BindCommandOf(sample any, handler func(ctx context.Context, v any) (any, error)) error
	BindQueryOf(sample any, handler func(ctx context.Context, v any) (any, error)) error
	BindDomainEventOf(sample any, handler func(ctx context.Context, v any) error) error

	// Exec. Dispatch may enqueue Queueable commands; DispatchSync always
	// invokes the handler in-process and returns its result.
	Dispatch(ctx context.Context, cmd Command) (any, error)
	DispatchSync(ctx context.Context, cmd Command) (any, error)

	// Query
	Ask(ctx context.Context, query any) (any, error)

	// Events
	PublishDomain(ctx context.Context, event DomainEvent) error
	PublishIntegration(ctx context.Context, event IntegrationEvent, opts PublishOptions) error

	// Lifecycle
	Close() error
}
