package queue

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/quietstack/jetqueue/tracing"
)

// tracePropagator adapts the tracing package's context <-> map bridge to
// broker message headers, and is a no-op when tracing is disabled so push
// and poll paths don't need to branch on cfg.EnableTracing everywhere.
type tracePropagator struct {
	on bool
}

func newTracePropagator(enabled bool) *tracePropagator {
	return &tracePropagator{on: enabled}
}

func (t *tracePropagator) enabled() bool { return t.on }

// inject captures ctx's propagation context, writes it onto headers as
// W3C trace headers, and returns the same data for the envelope's
// trace_context field.
func (t *tracePropagator) inject(ctx context.Context, headers nats.Header) map[string]string {
	if !t.on {
		return nil
	}
	captured := tracing.Inject(ctx)
	for k, v := range captured {
		headers.Set(k, v)
	}
	return captured
}
