package bus

// QueueOptions carries enqueue parameters for commands or listeners.
// DelaySeconds is preferred over time units for transport-agnostic mapping.
type QueueOptions struct {
	Queue        string
	DelaySeconds int
	Headers      map[string]string
}

// PublishOptions controls integration event publishing. A non-empty
// TopicOverride takes precedence over the event's own Topic().
type PublishOptions struct {
	TopicOverride string
	Key           string
	Headers       map[string]string
}
