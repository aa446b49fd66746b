package oteltransmission

import (
	"context"
	"strings"
	"sync"

	"github.com/dogmatiq/transmission"
	"github.com/dogmatiq/transmission/internal/version"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracing is an implementation of transmission.Caller that provides
// OpenTelemetry tracing for each RPC call.
//
// It adheres to the OpenTelemetry RPC semantic conventions. A new client span
// is started for every call.
type Tracing struct {
	// Next is the caller that performs the call, typically a
	// *transmission.Client.
	Next transmission.Caller

	// TracerProvider is the OpenTelemetry TracerProvider to use for creating
	// spans.
	TracerProvider trace.TracerProvider

	// ServiceName is an application specific service name to use in the span
	// name and attributes.
	//
	// It may be empty, in which case it is omitted from the span.
	ServiceName string

	once           sync.Once
	tracer         trace.Tracer
	spanNamePrefix string
	attributes     []attribute.KeyValue
}

var _ transmission.Caller = (*Tracing)(nil)

// Call invokes an RPC method within a new span.
func (t *Tracing) Call(
	ctx context.Context,
	method string,
	args transmission.Arguments,
) (transmission.Result, error) {
	t.init()

	ctx, span := t.tracer.Start(
		ctx,
		t.spanNamePrefix+sanitizeMethodName(method),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(t.attributes...),
		trace.WithAttributes(callAttributes(method)...),
	)
	defer span.End()

	res, err := t.Next.Call(ctx, method, args)
	if err != nil {
		span.SetAttributes(errorAttributes(err)...)
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		return nil, err
	}

	if outcome, ok := res.Outcome(); ok && outcome != transmission.SuccessOutcome {
		span.SetStatus(codes.Error, outcome)
	} else {
		span.SetStatus(codes.Ok, "")
	}

	return res, nil
}

// init initializes the tracer if it has not already been initialized.
func (t *Tracing) init() {
	t.once.Do(func() {
		t.tracer = t.TracerProvider.Tracer(
			instrumentationName,
			trace.WithInstrumentationVersion(version.Version),
		)

		t.attributes = commonAttributes(t.ServiceName)

		if t.ServiceName != "" {
			t.spanNamePrefix = t.ServiceName + "/"
		}
	})
}

// sanitizeMethodName returns an RPC method name suitable for use in part of
// span name.
func sanitizeMethodName(n string) string {
	return strings.ReplaceAll(n, "/", "-")
}
