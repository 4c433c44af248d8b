/*
Package rabbitmq provides a RabbitMQ adapter for the task bus.
It maps enqueue/publish operations to AMQP, includes an auto-reconnect publisher,
and supports optional header propagation via a bus.HeaderPropagator.
*/
package rabbitmq
