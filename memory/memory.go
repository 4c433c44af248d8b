package memory

import (
	"github.com/tasklane/taskbus/adapters/inmemory"
	cbus "github.com/tasklane/taskbus/contract/bus"
	"github.com/tasklane/taskbus/taskbus"
)

// New constructs a task bus backed by the in-memory adapter and returns it
// as a contract.Bus along with a cleanup function that closes the bus.
// Handy for tests and local wiring without a broker.
func New() (cbus.Bus, func()) { //nolint:ireturn
	ad := inmemory.New()
	tb := taskbus.New(&ad.Enqueuer, &ad.Publisher, nil)
	cleanup := func() { _ = tb.Close() }
	return tb, cleanup
}
