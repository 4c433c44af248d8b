package bus

import "context"

// JobEnqueuer abstracts command/listener enqueue operations.
// Applications provide an implementation backed by their queue or broker;
// the adapters subpackages ship ready-made ones.
type JobEnqueuer interface {
	EnqueueCommand(ctx context.Context, cmd Command, opts QueueOptions) error
	EnqueueListener(ctx context.Context, evt DomainEvent, handler string, opts QueueOptions) error
}
