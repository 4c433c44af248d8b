package bus

// Adapter combines queueing and publishing capabilities. Anything that
// implements both JobEnqueuer and EventPublisher can back a bus for both
// async command dispatch and integration event publication.
//
// The buses stay decoupled from concrete transports; adapters for NATS,
// RabbitMQ, Kafka, and in-memory recording live under adapters/.
type Adapter interface {
	JobEnqueuer
	EventPublisher
}
