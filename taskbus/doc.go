/*
Package taskbus provides a thin, opinionated mediator for command, query, and
domain event handling. Registries own the type-to-handler associations; buses
add fail-fast dispatch policy around them while staying decoupled from
concrete transports via interfaces.
*/
package taskbus
