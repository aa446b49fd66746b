package transmission

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// CallLogger is an interface for logging RPC calls made by a Client.
type CallLogger interface {
	// LogCall logs about a completed call. Exactly one of res and err is
	// non-nil.
	LogCall(ctx context.Context, req Request, res Result, err error)

	// LogSessionRenewed logs that the daemon issued a new session token while
	// req was being sent.
	LogSessionRenewed(ctx context.Context, req Request)
}

// ZapCallLogger is an implementation of CallLogger using zap.Logger.
type ZapCallLogger struct {
	// Target is the destination for log messages.
	Target *zap.Logger
}

var _ CallLogger = (*ZapCallLogger)(nil)

// NewZapCallLogger returns a CallLogger that writes to l.
func NewZapCallLogger(l *zap.Logger) ZapCallLogger {
	return ZapCallLogger{Target: l}
}

// LogCall logs information about a call request and its outcome.
func (l ZapCallLogger) LogCall(ctx context.Context, req Request, res Result, err error) {
	var w strings.Builder

	w.WriteString("call ")
	writeMethod(&w, req.Method)

	fields := []zap.Field{
		zap.Int("argument_size", len(req.Arguments)),
	}

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		fields = append(fields, zap.String("trace_id", span.SpanContext().TraceID().String()))
	}

	if err != nil {
		var protoErr *ProtocolError
		if errors.As(err, &protoErr) {
			fields = append(fields, zap.Int("status_code", protoErr.StatusCode))
		}

		fields = append(fields, zap.String("error", err.Error()))

		l.Target.Error(
			w.String(),
			fields...,
		)
		return
	}

	if outcome, ok := res.Outcome(); ok {
		fields = append(fields, zap.String("outcome", outcome))
	}

	l.Target.Info(
		w.String(),
		fields...,
	)
}

// LogSessionRenewed logs that the session token was renewed.
func (l ZapCallLogger) LogSessionRenewed(ctx context.Context, req Request) {
	var w strings.Builder

	w.WriteString("renewed session token for ")
	writeMethod(&w, req.Method)

	var fields []zap.Field

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		fields = append(fields, zap.String("trace_id", span.SpanContext().TraceID().String()))
	}

	l.Target.Debug(
		w.String(),
		fields...,
	)
}

// noopLogger is a CallLogger that discards everything.
type noopLogger struct{}

func (noopLogger) LogCall(context.Context, Request, Result, error) {}
func (noopLogger) LogSessionRenewed(context.Context, Request)      {}

// writeMethod formats an RPC method name for display and writes it to w.
func writeMethod(w *strings.Builder, m string) {
	if m == "" || !isPlainMethodName(m) {
		fmt.Fprintf(w, "%#v", m)
	} else {
		w.WriteString(m)
	}
}

// isPlainMethodName returns true if s consists of only letters, digits and
// hyphens.
func isPlainMethodName(s string) bool {
	for _, r := range s {
		if r != '-' && !unicode.IsLetter(r) && !unicode.IsNumber(r) {
			return false
		}
	}

	return true
}
