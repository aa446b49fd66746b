package transmission_test

import (
	"errors"
	"fmt"

	. "github.com/dogmatiq/transmission"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("type ConnectivityError", func() {
	It("unwraps to the transport error", func() {
		cause := errors.New("<cause>")
		err := &ConnectivityError{Method: "session-get", Cause: cause}

		Expect(errors.Unwrap(err)).To(BeIdenticalTo(cause))
	})
})

var _ = Describe("type ProtocolError", func() {
	It("describes the status code when there is no cause", func() {
		err := &ProtocolError{Method: "session-get", StatusCode: 502}
		Expect(err).To(MatchError(
			"unable to process Transmission RPC response (session-get): unexpected HTTP 502 (Bad Gateway) status code",
		))
		Expect(errors.Unwrap(err)).To(BeNil())
	})

	It("describes the cause when there is one", func() {
		err := &ProtocolError{Method: "session-get", StatusCode: 200, Cause: errors.New("<cause>")}
		Expect(err).To(MatchError(
			"unable to process Transmission RPC response (session-get): <cause>",
		))
	})
})

var _ = Describe("error classification", func() {
	var (
		connErr  = &ConnectivityError{Method: "m", Cause: errors.New("<cause>")}
		authErr  = &AuthenticationError{Method: "m"}
		protoErr = &ProtocolError{Method: "m", StatusCode: 500}
	)

	It("recognizes each kind of error, even when wrapped", func() {
		Expect(IsConnectivityError(fmt.Errorf("<context>: %w", connErr))).To(BeTrue())
		Expect(IsAuthenticationError(fmt.Errorf("<context>: %w", authErr))).To(BeTrue())
		Expect(IsProtocolError(fmt.Errorf("<context>: %w", protoErr))).To(BeTrue())
	})

	It("does not confuse the kinds", func() {
		Expect(IsConnectivityError(authErr)).To(BeFalse())
		Expect(IsAuthenticationError(protoErr)).To(BeFalse())
		Expect(IsProtocolError(connErr)).To(BeFalse())
		Expect(IsProtocolError(errors.New("<error>"))).To(BeFalse())
	})
})
