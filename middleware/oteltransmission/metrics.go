package oteltransmission

import (
	"context"
	"sync"
	"time"

	"github.com/dogmatiq/transmission"
	"github.com/dogmatiq/transmission/internal/version"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics is an implementation of transmission.Caller that provides
// OpenTelemetry metrics for each RPC call.
type Metrics struct {
	// Next is the caller that performs the call, typically a
	// *transmission.Client.
	Next transmission.Caller

	// MeterProvider is the OpenTelemetry MeterProvider used to create meters.
	MeterProvider metric.MeterProvider

	// ServiceName is an application specific service name to use in the
	// metric attributes.
	//
	// It may be empty, in which case it is omitted.
	ServiceName string

	once       sync.Once
	calls      metric.Int64Counter
	errors     metric.Int64Counter
	duration   metric.Int64Histogram
	attributes []attribute.KeyValue
}

var _ transmission.Caller = (*Metrics)(nil)

// Call invokes an RPC method and records metrics about it.
func (m *Metrics) Call(
	ctx context.Context,
	method string,
	args transmission.Arguments,
) (transmission.Result, error) {
	m.init()

	attrs := callAttributes(method)
	attrs = append(attrs, m.attributes...)
	attrOption := metric.WithAttributes(attrs...)

	m.calls.Add(ctx, 1, attrOption)

	start := time.Now()
	res, err := m.Next.Call(ctx, method, args)
	elapsed := time.Since(start)

	m.duration.Record(ctx, durationToMillis(elapsed), attrOption)

	if err != nil {
		attrs = append(attrs, errorAttributes(err)...)
		m.errors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}

	return res, err
}

// init initializes the meters if they have not already been initialized.
func (m *Metrics) init() {
	m.once.Do(func() {
		meter := m.MeterProvider.Meter(
			instrumentationName,
			metric.WithInstrumentationVersion(version.Version),
		)

		var err error

		m.calls, err = meter.Int64Counter(
			"rpc.client.calls",
			metric.WithDescription("The number of Transmission RPC calls made."),
			metric.WithUnit("1"),
		)
		if err != nil {
			panic(err)
		}

		m.errors, err = meter.Int64Counter(
			"rpc.client.errors",
			metric.WithDescription("The number of Transmission RPC calls that failed."),
			metric.WithUnit("1"),
		)
		if err != nil {
			panic(err)
		}

		m.duration, err = meter.Int64Histogram(
			"rpc.client.duration",
			metric.WithDescription("The amount of time it takes to complete a Transmission RPC call, including any session renegotiation."),
			metric.WithUnit("ms"),
		)
		if err != nil {
			panic(err)
		}

		m.attributes = commonAttributes(m.ServiceName)
	})
}

// durationToMillis converts a duration to milliseconds.
func durationToMillis(d time.Duration) int64 {
	return int64(d / time.Millisecond)
}
