package taskbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"

	cbus "github.com/tasklane/taskbus/contract/bus"
	berr "github.com/tasklane/taskbus/contract/errors"
)

// CommandMiddleware wraps command handler execution. Middlewares are executed in registration order.
type CommandMiddleware func(next CommandHandlerFunc) CommandHandlerFunc

// CommandBus is the write-side entry point. It layers fail-fast dispatch
// policy over a CommandRegistry: nil commands and nil handlers are rejected
// here, unregistered types fail before any handler runs, and handler results
// and errors pass through unchanged. Registration is last-write-wins; a
// non-nil logger surfaces replacements as warnings.
//
// CommandBus is concurrency-safe and contains no global state.
type CommandBus struct {
	reg *CommandRegistry

	// global command middleware executed in registration order
	mw []CommandMiddleware

	enq    cbus.JobEnqueuer
	logger *slog.Logger
}

// NewCommandBus constructs a CommandBus over reg. The enqueuer may be nil;
// Queueable commands then execute synchronously. A nil logger keeps handler
// replacement silent.
func NewCommandBus(reg *CommandRegistry, enq cbus.JobEnqueuer, logger *slog.Logger) *CommandBus {
	return &CommandBus{reg: reg, enq: enq, logger: logger}
}

// Registry returns the underlying command registry.
func (b *CommandBus) Registry() *CommandRegistry { return b.reg }

// Use appends global command middleware. The first middleware added runs
// outermost.
func (b *CommandBus) Use(mw ...CommandMiddleware) { b.mw = append(b.mw, mw...) }

// BindCommandOf registers a handler for a specific command type.
// Provide a zero value of the command type via sample. Rebinding a type
// replaces the previous handler; in-flight dispatches keep the handler they
// already resolved.
func (b *CommandBus) BindCommandOf(sample any, handler func(ctx context.Context, cmd any) (any, error)) error {
	if handler == nil {
		return fmt.Errorf("bind command %T: %w", sample, berr.ErrNilHandler)
	}

	b.bind(reflect.TypeOf(sample), func(ctx context.Context, v any) (any, error) { return handler(ctx, v) })

	return nil
}

func (b *CommandBus) bind(t reflect.Type, fn CommandHandlerFunc) {
	if b.reg.Register(t, fn) && b.logger != nil {
		b.logger.Warn("command handler replaced", "type", t.String())
	}
}

// Dispatch dispatches a command. If the command implements Queueable and a JobEnqueuer is configured,
// it is enqueued with minimal QueueOptions and the result is nil until a worker
// executes it; otherwise, it executes synchronously via DispatchSync.
func (b *CommandBus) Dispatch(ctx context.Context, cmd cbus.Command) (any, error) {
	if q, ok := cmd.(cbus.Queueable); ok && b.enq != nil {
		qo := cbus.QueueOptions{Queue: q.QueueName(), DelaySeconds: int(q.Delay().Seconds())}

		return nil, b.enq.EnqueueCommand(ctx, cmd, qo)
	}

	return b.DispatchSync(ctx, cmd)
}

// DispatchSync executes the command handler synchronously (with middleware)
// and returns exactly what the handler produced.
func (b *CommandBus) DispatchSync(ctx context.Context, cmd cbus.Command) (any, error) {
	return b.dispatchWithMiddleware(ctx, cmd)
}

// DispatchWithMiddleware executes a command with additional per-call middleware
// appended after the global chain.
func (b *CommandBus) DispatchWithMiddleware(ctx context.Context, cmd cbus.Command, mws ...CommandMiddleware) (any, error) {
	return b.dispatchWithMiddleware(ctx, cmd, mws...)
}

func (b *CommandBus) dispatchWithMiddleware(ctx context.Context, cmd cbus.Command, mws ...CommandMiddleware) (any, error) {
	if cmd == nil {
		return nil, fmt.Errorf("dispatch: %w", berr.ErrNilCommand)
	}

	t := reflect.TypeOf(cmd)

	f, ok := b.reg.Handler(t)
	if !ok || f == nil {
		return nil, fmt.Errorf("dispatch %s: %w", t.String(), berr.ErrHandlerNotFound)
	}

	// Combine global and per-call middleware
	chain := make([]CommandMiddleware, 0, len(b.mw)+len(mws))
	chain = append(chain, b.mw...)
	chain = append(chain, mws...)

	// Build chain so the first registered middleware runs first
	final := f
	for i := len(chain) - 1; i >= 0; i-- {
		final = chain[i](final)
	}

	return final(ctx, cmd)
}

// Chain executes commands in order and stops on the first error, discarding
// intermediate results.
func (b *CommandBus) Chain(ctx context.Context, cmds ...cbus.Command) error {
	for _, c := range cmds {
		if _, err := b.dispatchWithMiddleware(ctx, c); err != nil {
			return err
		}
	}

	return nil
}

// revive:disable:max-public-structs
// BatchOptions controls Batch execution behavior.
// OnProgress is called after each command completes (success or failure) with done and total.
// OnError is called when a command returns an error with its index, the command value, and the error.
type BatchOptions struct {
	OnProgress func(done, total int)
	OnError    func(index int, cmd cbus.Command, err error)
}

// revive:enable:max-public-structs

// BatchOpt configures BatchOptions.
type BatchOpt func(*BatchOptions)

// WithBatchProgress sets the progress callback.
func WithBatchProgress(fn func(done, total int)) BatchOpt { //nolint:ireturn
	return func(o *BatchOptions) { o.OnProgress = fn }
}

// WithBatchOnError sets the error callback.
func WithBatchOnError(fn func(index int, cmd cbus.Command, err error)) BatchOpt { //nolint:ireturn
	return func(o *BatchOptions) { o.OnError = fn }
}

// Batch executes the provided commands sequentially.
// It respects context cancellation, reports progress, and aggregates errors.
func (b *CommandBus) Batch(ctx context.Context, cmds []cbus.Command, opts ...BatchOpt) error {
	var o BatchOptions
	for _, f := range opts {
		f(&o)
	}

	total := len(cmds)

	var errs []error

	for i, c := range cmds {
		if err := ctx.Err(); err != nil { // canceled or deadline exceeded
			return errors.Join(append(errs, err)...)
		}

		_, err := b.dispatchWithMiddleware(ctx, c)
		if err != nil {
			if o.OnError != nil {
				o.OnError(i, c, err)
			}

			errs = append(errs, err)
		}

		if o.OnProgress != nil {
			o.OnProgress(i+1, total)
		}
	}

	return errors.Join(errs...)
}

// BindCommand registers a handler for command type C producing R. Rebinding C
// replaces any previously bound handler.
func BindCommand[C cbus.Command, R any](b *CommandBus, h cbus.CommandHandler[C, R]) error {
	var zero C

	if h == nil {
		return fmt.Errorf("bind command %T: %w", zero, berr.ErrNilHandler)
	}

	t := reflect.TypeOf(zero)

	b.bind(t, func(ctx context.Context, v any) (any, error) {
		c, ok := v.(C)
		if !ok {
			return nil, fmt.Errorf("dispatch %s: %w", reflect.TypeOf(v).String(), berr.ErrHandlerTypeMismatch)
		}

		return h.Handle(ctx, c)
	})

	return nil
}

// Dispatch is a typed helper that dispatches cmd on b and asserts the result
// to R. Queueable commands that were enqueued yield R's zero value.
func Dispatch[C cbus.Command, R any](ctx context.Context, b *CommandBus, cmd C) (R, error) {
	res, err := b.Dispatch(ctx, cmd)

	var zero R

	if err != nil {
		return zero, err
	}

	if res == nil {
		return zero, nil
	}

	r, ok := res.(R)
	if !ok {
		return zero, fmt.Errorf("dispatch %s: %w", reflect.TypeOf(cmd).String(), berr.ErrHandlerTypeMismatch)
	}

	return r, nil
}
