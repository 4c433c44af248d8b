package taskbus

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"

	cbus "github.com/tasklane/taskbus/contract/bus"
	berr "github.com/tasklane/taskbus/contract/errors"
)

// QueryBus is the read-side entry point over a QueryRegistry. Queries always
// execute synchronously; there is no queueing shortcut on the read side.
// Dispatch policy matches CommandBus: nil queries and nil handlers are
// rejected, unregistered types fail before any handler runs, and handler
// results and errors pass through unchanged.
type QueryBus struct {
	reg    *QueryRegistry
	logger *slog.Logger
}

// NewQueryBus constructs a QueryBus over reg. A nil logger keeps handler
// replacement silent.
func NewQueryBus(reg *QueryRegistry, logger *slog.Logger) *QueryBus {
	return &QueryBus{reg: reg, logger: logger}
}

// Registry returns the underlying query registry.
func (b *QueryBus) Registry() *QueryRegistry { return b.reg }

// BindQueryOf registers a handler for a specific query type returning any result.
// Provide a zero value of the query type via sample. Rebinding a type replaces
// the previous handler.
func (b *QueryBus) BindQueryOf(sample any, handler func(ctx context.Context, q any) (any, error)) error {
	if handler == nil {
		return fmt.Errorf("bind query %T: %w", sample, berr.ErrNilHandler)
	}

	b.bind(reflect.TypeOf(sample), func(ctx context.Context, v any) (any, error) { return handler(ctx, v) })

	return nil
}

func (b *QueryBus) bind(t reflect.Type, fn QueryHandlerFunc) {
	if b.reg.Register(t, fn) && b.logger != nil {
		b.logger.Warn("query handler replaced", "type", t.String())
	}
}

// Ask executes a query handler synchronously and returns an untyped result.
func (b *QueryBus) Ask(ctx context.Context, q any) (any, error) {
	if q == nil {
		return nil, fmt.Errorf("ask: %w", berr.ErrNilQuery)
	}

	t := reflect.TypeOf(q)

	f, ok := b.reg.Handler(t)
	if !ok || f == nil {
		return nil, fmt.Errorf("ask %s: %w", t.String(), berr.ErrHandlerNotFound)
	}

	return f(ctx, q)
}

// BindQuery registers a handler for query type Q producing R. Rebinding Q
// replaces any previously bound handler.
func BindQuery[Q cbus.Query, R any](b *QueryBus, h cbus.QueryHandler[Q, R]) error {
	var zero Q

	if h == nil {
		return fmt.Errorf("bind query %T: %w", zero, berr.ErrNilHandler)
	}

	t := reflect.TypeOf(zero)

	b.bind(t, func(ctx context.Context, v any) (any, error) {
		q, ok := v.(Q)
		if !ok {
			return nil, fmt.Errorf("ask %s: %w", reflect.TypeOf(v).String(), berr.ErrHandlerTypeMismatch)
		}

		return h.Handle(ctx, q)
	})

	return nil
}

// Ask is a typed helper that executes q on b and asserts the result to R.
func Ask[Q cbus.Query, R any](ctx context.Context, b *QueryBus, q Q) (R, error) {
	res, err := b.Ask(ctx, q)

	var zero R

	if err != nil {
		return zero, err
	}

	r, ok := res.(R)
	if !ok {
		return zero, fmt.Errorf("ask %s: %w", reflect.TypeOf(q).String(), berr.ErrHandlerTypeMismatch)
	}

	return r, nil
}
