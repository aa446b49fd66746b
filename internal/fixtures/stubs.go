package fixtures

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"

	"github.com/dogmatiq/transmission"
)

// RecordedRequest is a copy of an HTTP request sent via a TransportStub.
type RecordedRequest struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// TransportStub is a test implementation of the transmission.Transport
// interface.
//
// It records each request it receives. If DoFunc is nil it responds with a
// successful response containing an empty argument object.
type TransportStub struct {
	DoFunc func(*http.Request) (*http.Response, error)

	m        sync.Mutex
	requests []RecordedRequest
}

var _ transmission.Transport = (*TransportStub)(nil)

// Do records req and forwards it to s.DoFunc.
func (s *TransportStub) Do(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		var err error
		body, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		req.Body = io.NopCloser(bytes.NewReader(body))
	}

	s.m.Lock()
	s.requests = append(s.requests, RecordedRequest{
		Method: req.Method,
		URL:    req.URL.String(),
		Header: req.Header.Clone(),
		Body:   body,
	})
	s.m.Unlock()

	if s.DoFunc != nil {
		return s.DoFunc(req)
	}

	return NewResponse(http.StatusOK, nil, `{"result":"success","arguments":{}}`), nil
}

// Requests returns the requests received so far.
func (s *TransportStub) Requests() []RecordedRequest {
	s.m.Lock()
	defer s.m.Unlock()

	return append([]RecordedRequest(nil), s.requests...)
}

// NewResponse returns an HTTP response with the given status, headers and
// body.
func NewResponse(status int, header http.Header, body string) *http.Response {
	if header == nil {
		header = http.Header{}
	}

	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Header:     header,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
	}
}

// CallerStub is a test implementation of the transmission.Caller interface.
type CallerStub struct {
	CallFunc func(context.Context, string, transmission.Arguments) (transmission.Result, error)
}

var _ transmission.Caller = (*CallerStub)(nil)

// Call forwards to s.CallFunc, or returns an empty result if it is nil.
func (s *CallerStub) Call(
	ctx context.Context,
	method string,
	args transmission.Arguments,
) (transmission.Result, error) {
	if s.CallFunc != nil {
		return s.CallFunc(ctx, method, args)
	}

	return transmission.Result{}, nil
}
