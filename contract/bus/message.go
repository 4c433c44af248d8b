package bus

// Command is a marker interface for commands (intent to change state).
// A command has exactly one active handler at a time; handlers are resolved
// by the command's runtime type, so two commands of identical shape but
// different declared type are never confused.
//
// Concrete commands are immutable values built by the caller, typically
// carrying a creation timestamp alongside their use-case fields.
type Command interface{}

// Query is a marker interface for queries. Queries are handled synchronously
// and must not change state.
type Query interface{}
