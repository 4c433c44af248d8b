package bus

// DomainEvent is a marker interface for in-process domain events.
// Publication fans out synchronously to every bound listener; individual
// listeners may opt into queueing via QueueableListener.
type DomainEvent interface{}

// IntegrationEvent represents an event destined for an external broker.
// Topic names the default destination; publish options may override it.
type IntegrationEvent interface{ Topic() string }
