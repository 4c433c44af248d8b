package bus

import "time"

// Queueable indicates that a command prefers to be enqueued for async
// processing. Implement on command types that should be queued by default;
// the command bus falls back to synchronous dispatch when no JobEnqueuer
// is configured.
type Queueable interface {
	QueueName() string
	Delay() time.Duration
}

// QueueableListener indicates that a domain event listener may be enqueued.
// If a JobEnqueuer is configured, such listeners are enqueued instead of
// invoked synchronously during PublishDomain.
type QueueableListener interface {
	QueueName() string
	Delay() time.Duration
}
