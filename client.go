// Package transmission is a client for the RPC API of the Transmission
// BitTorrent daemon.
//
// Requests are sent to the daemon as HTTP POST requests containing a JSON
// object with "method" and "arguments" members. The daemon protects its API
// with a session token; the client acquires and renews the token
// transparently.
package transmission

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
)

const (
	// DefaultScheme is the URL scheme used when Config.Scheme is empty.
	DefaultScheme = "http"

	// DefaultHost is the daemon host used when Config.Host is empty.
	DefaultHost = "localhost"

	// DefaultPort is the daemon port used when Config.Port is zero.
	DefaultPort = 9091

	// DefaultPath is the RPC endpoint path used when Config.Path is empty.
	DefaultPath = "/transmission/rpc"

	// SessionIDHeader is the HTTP header that carries the session token in
	// both directions.
	SessionIDHeader = "X-Transmission-Session-Id"

	// MaxSessionRenegotiations is the number of times a single call is
	// re-sent after the daemon rejects the session token.
	MaxSessionRenegotiations = 1
)

// Config describes the location of the daemon's RPC endpoint.
//
// Fields that are left as their zero value take on the defaults described by
// the Default* constants.
type Config struct {
	Scheme string
	Host   string
	Port   int
	Path   string
}

// Caller is an interface for invoking RPC methods.
//
// Client implements Caller. Middleware implementations wrap a Caller to add
// behavior such as tracing.
type Caller interface {
	Call(ctx context.Context, method string, args Arguments) (Result, error)
}

// Client is an HTTP-based Transmission RPC client.
//
// It is safe for concurrent use.
type Client struct {
	m         sync.RWMutex
	scheme    string
	host      string
	port      int
	path      string
	token     string
	auth      string
	transport Transport
	logger    CallLogger
}

var _ Caller = (*Client)(nil)

// New returns a new client for the daemon described by cfg.
func New(cfg Config, options ...Option) *Client {
	var opts clientOptions
	for _, opt := range options {
		opt(&opts)
	}

	c := &Client{
		scheme:    cfg.Scheme,
		host:      cfg.Host,
		port:      cfg.Port,
		path:      cfg.Path,
		transport: newTransport(opts),
		logger:    opts.logger,
	}

	if c.scheme == "" {
		c.scheme = DefaultScheme
	}

	if c.host == "" {
		c.host = DefaultHost
	}

	if c.port == 0 {
		c.port = DefaultPort
	}

	if c.path == "" {
		c.path = DefaultPath
	}

	if c.logger == nil {
		c.logger = noopLogger{}
	}

	return c
}

// Authenticate sets the credentials sent with every subsequent request using
// HTTP basic authentication.
func (c *Client) Authenticate(username, password string) {
	auth := base64.StdEncoding.EncodeToString(
		[]byte(username + ":" + password),
	)

	c.m.Lock()
	c.auth = auth
	c.m.Unlock()
}

// Call invokes an RPC method and returns the daemon's response.
//
// If the daemon rejects the session token the token is renewed and the request
// is sent again.
//
// It panics if method is empty or args can not be marshaled to JSON.
func (c *Client) Call(
	ctx context.Context,
	method string,
	args Arguments,
) (Result, error) {
	req, err := NewRequest(method, args)
	if err != nil {
		panic(fmt.Sprintf(
			"unable to call Transmission RPC method (%s): %s",
			method,
			err,
		))
	}

	res, _, err := c.exchange(ctx, req)
	return res, err
}

// CallInto invokes an RPC method and unmarshals the "arguments" member of the
// daemon's response into v.
//
// It panics if method is empty or args can not be marshaled to JSON.
func (c *Client) CallInto(
	ctx context.Context,
	method string,
	args Arguments,
	v any,
	options ...UnmarshalOption,
) error {
	req, err := NewRequest(method, args)
	if err != nil {
		panic(fmt.Sprintf(
			"unable to call Transmission RPC method (%s): %s",
			method,
			err,
		))
	}

	_, data, err := c.exchange(ctx, req)
	if err != nil {
		return err
	}

	if err := unmarshalArguments(data, v, options...); err != nil {
		return fmt.Errorf(
			"unable to process Transmission RPC response (%s): unable to unmarshal arguments: %w",
			method,
			err,
		)
	}

	return nil
}

// Do sends a request that has already been constructed.
//
// It panics if the request is invalid.
func (c *Client) Do(ctx context.Context, req Request) (Result, error) {
	res, _, err := c.exchange(ctx, req)
	return res, err
}

// URL returns the base URL of the daemon, without the RPC path.
func (c *Client) URL() string {
	c.m.RLock()
	defer c.m.RUnlock()

	return c.url()
}

// Host returns the daemon's host name.
func (c *Client) Host() string {
	c.m.RLock()
	defer c.m.RUnlock()

	return c.host
}

// SetHost sets the daemon's host name.
func (c *Client) SetHost(host string) {
	c.m.Lock()
	c.host = host
	c.m.Unlock()
}

// Port returns the daemon's TCP port.
func (c *Client) Port() int {
	c.m.RLock()
	defer c.m.RUnlock()

	return c.port
}

// SetPort sets the daemon's TCP port.
func (c *Client) SetPort(port int) {
	c.m.Lock()
	c.port = port
	c.m.Unlock()
}

// Path returns the path of the RPC endpoint.
func (c *Client) Path() string {
	c.m.RLock()
	defer c.m.RUnlock()

	return c.path
}

// SetPath sets the path of the RPC endpoint.
func (c *Client) SetPath(path string) {
	c.m.Lock()
	c.path = path
	c.m.Unlock()
}

// Token returns the current session token. It is empty until the daemon has
// issued a token or one is set explicitly.
func (c *Client) Token() string {
	c.m.RLock()
	defer c.m.RUnlock()

	return c.token
}

// SetToken sets the session token sent with subsequent requests.
func (c *Client) SetToken(token string) {
	c.m.Lock()
	c.token = token
	c.m.Unlock()
}

// Transport returns the transport used to send requests.
func (c *Client) Transport() Transport {
	c.m.RLock()
	defer c.m.RUnlock()

	return c.transport
}

// SetTransport replaces the transport used to send requests.
func (c *Client) SetTransport(t Transport) {
	c.m.Lock()
	c.transport = t
	c.m.Unlock()
}

// url returns the base URL. c.m must be held.
func (c *Client) url() string {
	return fmt.Sprintf("%s://%s:%d", c.scheme, c.host, c.port)
}

// exchange sends req to the daemon, renewing the session token if necessary.
//
// On success it returns the decoded result and the raw response body.
func (c *Client) exchange(ctx context.Context, req Request) (Result, []byte, error) {
	if err := req.Validate(); err != nil {
		panic(fmt.Sprintf(
			"unable to call Transmission RPC method (%s): %s",
			req.Method,
			err,
		))
	}

	body, err := json.Marshal(req)
	if err != nil {
		// CODE COVERAGE: This should never fail as the arguments have already
		// been validated as a well-formed JSON object.
		panic(err)
	}

	for attempt := 0; ; attempt++ {
		httpRes, err := c.post(ctx, body)
		if err != nil {
			err = &ConnectivityError{
				Method: req.Method,
				Cause:  err,
			}
			c.logger.LogCall(ctx, req, nil, err)
			return nil, nil, err
		}

		res, data, renewed, err := c.validateResponse(ctx, req, httpRes)
		if renewed {
			if attempt < MaxSessionRenegotiations {
				continue
			}

			err = &ProtocolError{
				Method:     req.Method,
				StatusCode: httpRes.StatusCode,
				Cause:      ErrSessionRenegotiation,
			}
		}

		c.logger.LogCall(ctx, req, res, err)
		return res, data, err
	}
}

// validateResponse inspects the HTTP response to a single attempt.
//
// renewed is true if the daemon rejected the session token and a new token has
// been stored, in which case the request should be sent again.
func (c *Client) validateResponse(
	ctx context.Context,
	req Request,
	httpRes *http.Response,
) (_ Result, _ []byte, renewed bool, _ error) {
	defer httpRes.Body.Close()

	switch httpRes.StatusCode {
	case http.StatusOK:
		res, data, err := decodeResult(httpRes.Body)
		if err != nil {
			return nil, nil, false, &ProtocolError{
				Method:     req.Method,
				StatusCode: httpRes.StatusCode,
				Cause:      err,
			}
		}
		return res, data, false, nil

	case http.StatusConflict:
		// Drain the body so the connection can be reused for the retry.
		_, _ = io.Copy(io.Discard, httpRes.Body)

		c.SetToken(httpRes.Header.Get(SessionIDHeader))
		c.logger.LogSessionRenewed(ctx, req)

		return nil, nil, true, nil

	case http.StatusUnauthorized:
		return nil, nil, false, &AuthenticationError{
			Method: req.Method,
		}

	default:
		return nil, nil, false, &ProtocolError{
			Method:     req.Method,
			StatusCode: httpRes.StatusCode,
		}
	}
}

// post sends a single HTTP request containing the given body.
func (c *Client) post(ctx context.Context, body []byte) (*http.Response, error) {
	c.m.RLock()
	endpoint := c.url() + c.path
	token := c.token
	auth := c.auth
	transport := c.transport
	c.m.RUnlock()

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		endpoint,
		bytes.NewReader(body),
	)
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(SessionIDHeader, token)

	if auth != "" {
		httpReq.Header.Set("Authorization", "Basic "+auth)
	}

	return transport.Do(httpReq)
}
