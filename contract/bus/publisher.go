package bus

import "context"

// EventPublisher abstracts publishing integration events to a broker.
// Applications provide an implementation that maps to NATS/RabbitMQ/Kafka
// or use one from the adapters subpackages.
type EventPublisher interface {
	PublishIntegration(ctx context.Context, evt IntegrationEvent, opts PublishOptions) error
}
