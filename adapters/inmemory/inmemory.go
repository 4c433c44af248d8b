package inmemory

import (
	"context"
	"sync"

	cbus "github.com/tasklane/taskbus/contract/bus"
)

// Enqueuer is a thread-safe in-memory implementation of cbus.JobEnqueuer.
// It records enqueued commands and listener names together with their queue
// options, for tests and examples.
type Enqueuer struct {
	mu           sync.Mutex
	Commands     []cbus.Command
	CommandOpts  []cbus.QueueOptions
	Listeners    []string
	ListenerOpts []cbus.QueueOptions
}

func (e *Enqueuer) EnqueueCommand(
	ctx context.Context,
	cmd cbus.Command,
	opts cbus.QueueOptions,
) error {
	e.mu.Lock()
	e.Commands = append(e.Commands, cmd)
	e.CommandOpts = append(e.CommandOpts, opts)
	e.mu.Unlock()

	return nil
}

func (e *Enqueuer) EnqueueListener(
	ctx context.Context,
	ev cbus.DomainEvent,
	handler string,
	opts cbus.QueueOptions,
) error {
	e.mu.Lock()
	e.Listeners = append(e.Listeners, handler)
	e.ListenerOpts = append(e.ListenerOpts, opts)
	e.mu.Unlock()

	return nil
}

// Publisher is a thread-safe in-memory implementation of cbus.EventPublisher.
type Publisher struct {
	mu     sync.Mutex
	Events []cbus.IntegrationEvent
	Opts   []cbus.PublishOptions
}

func (p *Publisher) PublishIntegration(
	ctx context.Context,
	e cbus.IntegrationEvent,
	opts cbus.PublishOptions,
) error {
	p.mu.Lock()
	p.Events = append(p.Events, e)
	p.Opts = append(p.Opts, opts)
	p.mu.Unlock()

	return nil
}

// Adapter combines Enqueuer and Publisher to satisfy both interfaces.
// Wire one instance in as both sides of a bus: taskbus.New(a, a, nil).
type Adapter struct {
	Enqueuer
	Publisher
}

// Ensure Adapter implements the combined contract.
var _ cbus.Adapter = (*Adapter)(nil)

// New creates a new in-memory adapter instance.
func New() *Adapter { return &Adapter{} }
