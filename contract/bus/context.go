package bus

import "context"

// HeaderPropagator abstracts injecting tracing context into message headers.
// Implementations may bridge to OpenTelemetry or any other propagation
// standard; the adapters stay decoupled from concrete tracing libraries.
// Implementors mutate the provided headers map with whatever keys carry
// the context across process boundaries, and must be safe for concurrent use.
type HeaderPropagator interface {
	Inject(ctx context.Context, headers map[string]string)
}

// NopHeaderPropagator is a no-op implementation useful for tests or when
// tracing is disabled.
type NopHeaderPropagator struct{}

func (NopHeaderPropagator) Inject(ctx context.Context, headers map[string]string) {
	_ = ctx
	_ = headers
}
