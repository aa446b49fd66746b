package oteltransmission

import (
	"errors"

	"github.com/dogmatiq/transmission"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// ErrorKindKey is the attribute key that describes which kind of failure
// occurred during an RPC call.
const ErrorKindKey = attribute.Key("transmission.error.kind")

// instrumentationName is the name of the instrumentation library used for
// both tracing and metrics.
const instrumentationName = "github.com/dogmatiq/transmission/middleware/oteltransmission"

// commonAttributes returns the OpenTelemetry attributes that are recorded on
// every span and meter.
func commonAttributes(serviceName string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		semconv.RPCSystemKey.String("transmission"),
	}

	if serviceName != "" {
		attrs = append(
			attrs,
			semconv.RPCServiceKey.String(serviceName),
		)
	}

	return attrs
}

// callAttributes returns the attributes that describe a call to the given
// method.
func callAttributes(method string) []attribute.KeyValue {
	return []attribute.KeyValue{
		semconv.RPCMethodKey.String(method),
	}
}

// errorAttributes returns the attributes that describe err.
func errorAttributes(err error) []attribute.KeyValue {
	var (
		connErr  *transmission.ConnectivityError
		authErr  *transmission.AuthenticationError
		protoErr *transmission.ProtocolError
	)

	switch {
	case errors.As(err, &connErr):
		return []attribute.KeyValue{
			ErrorKindKey.String("connectivity"),
		}
	case errors.As(err, &authErr):
		return []attribute.KeyValue{
			ErrorKindKey.String("authentication"),
			semconv.HTTPResponseStatusCodeKey.Int(401),
		}
	case errors.As(err, &protoErr):
		return []attribute.KeyValue{
			ErrorKindKey.String("protocol"),
			semconv.HTTPResponseStatusCodeKey.Int(protoErr.StatusCode),
		}
	default:
		return []attribute.KeyValue{
			ErrorKindKey.String("other"),
		}
	}
}
