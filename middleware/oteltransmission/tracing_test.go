package oteltransmission_test

import (
	"context"
	"errors"

	"github.com/dogmatiq/transmission"
	. "github.com/dogmatiq/transmission/internal/fixtures"
	. "github.com/dogmatiq/transmission/middleware/oteltransmission"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"go.opentelemetry.io/otel/codes"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

var _ = Describe("type Tracing", func() {
	var (
		caller   *CallerStub
		recorder *tracetest.SpanRecorder
		tracing  *Tracing
	)

	BeforeEach(func() {
		caller = &CallerStub{
			CallFunc: func(
				context.Context,
				string,
				transmission.Arguments,
			) (transmission.Result, error) {
				return transmission.Result{"result": "success"}, nil
			},
		}

		recorder = tracetest.NewSpanRecorder()

		tracing = &Tracing{
			Next: caller,
			TracerProvider: tracesdk.NewTracerProvider(
				tracesdk.WithSpanProcessor(recorder),
			),
			ServiceName: "package.Service",
		}
	})

	Describe("func Call()", func() {
		It("forwards to the next caller", func() {
			caller.CallFunc = func(
				_ context.Context,
				method string,
				args transmission.Arguments,
			) (transmission.Result, error) {
				Expect(method).To(Equal("torrent-get"))
				Expect(args).To(Equal(transmission.Arguments{"ids": []int{1}}))
				return transmission.Result{"result": "success"}, nil
			}

			res, err := tracing.Call(context.Background(), "torrent-get", transmission.Arguments{"ids": []int{1}})
			Expect(err).ShouldNot(HaveOccurred())
			Expect(res).To(Equal(transmission.Result{"result": "success"}))
		})

		It("passes a context containing the new span to the next caller", func() {
			caller.CallFunc = func(
				ctx context.Context,
				_ string,
				_ transmission.Arguments,
			) (transmission.Result, error) {
				Expect(trace.SpanFromContext(ctx).IsRecording()).To(BeTrue())
				return transmission.Result{}, nil
			}

			_, err := tracing.Call(context.Background(), "session-get", nil)
			Expect(err).ShouldNot(HaveOccurred())
		})

		It("records a client span with the RPC attributes", func() {
			_, err := tracing.Call(context.Background(), "session-get", nil)
			Expect(err).ShouldNot(HaveOccurred())

			spans := recorder.Ended()
			Expect(spans).To(HaveLen(1))

			span := spans[0]
			Expect(span.Name()).To(Equal("package.Service/session-get"))
			Expect(span.SpanKind()).To(Equal(trace.SpanKindClient))
			Expect(span.Status().Code).To(Equal(codes.Ok))
			Expect(span.InstrumentationScope().Name).To(Equal("github.com/dogmatiq/transmission/middleware/oteltransmission"))
			Expect(span.InstrumentationScope().Version).To(Equal("0.0.0-dev"))
			Expect(span.Attributes()).To(ConsistOf(
				semconv.RPCSystemKey.String("transmission"),
				semconv.RPCServiceKey.String("package.Service"),
				semconv.RPCMethodKey.String("session-get"),
			))
		})

		It("omits the service name when it is empty", func() {
			tracing.ServiceName = ""

			_, err := tracing.Call(context.Background(), "session-get", nil)
			Expect(err).ShouldNot(HaveOccurred())

			span := recorder.Ended()[0]
			Expect(span.Name()).To(Equal("session-get"))
			Expect(span.Attributes()).NotTo(ContainElement(
				semconv.RPCServiceKey.String("package.Service"),
			))
		})

		It("marks the span as failed if the daemon reports a failure outcome", func() {
			caller.CallFunc = func(
				context.Context,
				string,
				transmission.Arguments,
			) (transmission.Result, error) {
				return transmission.Result{"result": "duplicate torrent"}, nil
			}

			_, err := tracing.Call(context.Background(), "torrent-add", nil)
			Expect(err).ShouldNot(HaveOccurred())

			span := recorder.Ended()[0]
			Expect(span.Status().Code).To(Equal(codes.Error))
			Expect(span.Status().Description).To(Equal("duplicate torrent"))
		})

		It("records the error and its kind", func() {
			callErr := &transmission.ProtocolError{Method: "session-get", StatusCode: 500}

			caller.CallFunc = func(
				context.Context,
				string,
				transmission.Arguments,
			) (transmission.Result, error) {
				return nil, callErr
			}

			_, err := tracing.Call(context.Background(), "session-get", nil)
			Expect(err).To(Equal(callErr))

			span := recorder.Ended()[0]
			Expect(span.Status().Code).To(Equal(codes.Error))
			Expect(span.Status().Description).To(Equal(callErr.Error()))
			Expect(span.Attributes()).To(ContainElements(
				ErrorKindKey.String("protocol"),
				semconv.HTTPResponseStatusCodeKey.Int(500),
			))
			Expect(span.Events()).To(HaveLen(1))
			Expect(span.Events()[0].Name).To(Equal("exception"))
		})

		It("classifies connectivity errors", func() {
			caller.CallFunc = func(
				context.Context,
				string,
				transmission.Arguments,
			) (transmission.Result, error) {
				return nil, &transmission.ConnectivityError{Method: "session-get", Cause: errors.New("<cause>")}
			}

			_, err := tracing.Call(context.Background(), "session-get", nil)
			Expect(err).Should(HaveOccurred())

			span := recorder.Ended()[0]
			Expect(span.Attributes()).To(ContainElement(ErrorKindKey.String("connectivity")))
		})
	})
})
