package transmission

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrSessionRenegotiation indicates that the daemon continued to reject the
// session token after the client had renewed it.
var ErrSessionRenegotiation = errors.New("session token rejected after renegotiation")

// ConnectivityError indicates that the client could not reach the daemon.
//
// It wraps the error produced by the transport, such as a DNS failure, a
// refused connection or a transport-level timeout.
type ConnectivityError struct {
	// Method is the name of the RPC method that was being called.
	Method string

	// Cause is the error returned by the transport.
	Cause error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf(
		"unable to call Transmission RPC method (%s): cannot reach server: %s",
		e.Method,
		e.Cause,
	)
}

// Unwrap returns the transport error.
func (e *ConnectivityError) Unwrap() error {
	return e.Cause
}

// AuthenticationError indicates that the daemon requires authentication, or
// that the supplied credentials were rejected.
type AuthenticationError struct {
	// Method is the name of the RPC method that was being called.
	Method string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf(
		"unable to call Transmission RPC method (%s): access requires authentication",
		e.Method,
	)
}

// ProtocolError indicates that the daemon responded in an unexpected way.
type ProtocolError struct {
	// Method is the name of the RPC method that was being called.
	Method string

	// StatusCode is the HTTP status code of the response.
	StatusCode int

	// Cause is the underlying error, if any. It is nil when the failure is
	// fully described by the status code.
	Cause error
}

func (e *ProtocolError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf(
			"unable to process Transmission RPC response (%s): %s",
			e.Method,
			e.Cause,
		)
	}

	return fmt.Sprintf(
		"unable to process Transmission RPC response (%s): unexpected HTTP %d (%s) status code",
		e.Method,
		e.StatusCode,
		http.StatusText(e.StatusCode),
	)
}

// Unwrap returns the cause of e, if known.
func (e *ProtocolError) Unwrap() error {
	return e.Cause
}

// IsConnectivityError returns true if err is, or wraps, a ConnectivityError.
func IsConnectivityError(err error) bool {
	var target *ConnectivityError
	return errors.As(err, &target)
}

// IsAuthenticationError returns true if err is, or wraps, an
// AuthenticationError.
func IsAuthenticationError(err error) bool {
	var target *AuthenticationError
	return errors.As(err, &target)
}

// IsProtocolError returns true if err is, or wraps, a ProtocolError.
func IsProtocolError(err error) bool {
	var target *ProtocolError
	return errors.As(err, &target)
}
