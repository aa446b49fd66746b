package transmission

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Arguments is the set of named arguments passed to an RPC method.
//
// The values must be representable as JSON. The content is opaque to this
// package; it is the caller's responsibility to supply the arguments that the
// daemon expects for each method.
type Arguments map[string]any

// Request encapsulates a Transmission RPC request.
type Request struct {
	// Method is the name of the RPC method to be invoked, for example
	// "torrent-get" or "session-stats".
	Method string `json:"method"`

	// Arguments holds the JSON-encoded argument object.
	//
	// It is always a JSON object. An empty argument set is encoded as {}.
	Arguments json.RawMessage `json:"arguments"`

	// Tag is an optional number that the daemon echoes back in its response.
	//
	// It is omitted from the request when it is zero.
	Tag int `json:"tag,omitempty"`
}

// NewRequest returns a new request for the given method.
//
// It returns an error if the arguments can not be marshaled to JSON.
func NewRequest(method string, args Arguments) (Request, error) {
	req := Request{
		Method: method,
	}

	if args == nil {
		req.Arguments = json.RawMessage(`{}`)
		return req, nil
	}

	data, err := json.Marshal(args)
	if err != nil {
		return Request{}, fmt.Errorf("unable to marshal request arguments: %w", err)
	}

	req.Arguments = data

	return req, nil
}

// Validate checks that the request can be sent to the daemon.
func (r Request) Validate() error {
	if r.Method == "" {
		return errors.New("method name must not be empty")
	}

	if len(r.Arguments) == 0 {
		return nil
	}

	trimmed := bytes.TrimSpace(r.Arguments)
	if !json.Valid(trimmed) {
		return errors.New("arguments must be valid JSON")
	}

	if trimmed[0] != '{' || trimmed[len(trimmed)-1] != '}' {
		return errors.New("arguments must be a JSON object")
	}

	return nil
}

// MarshalJSON returns the JSON representation of the request body.
func (r Request) MarshalJSON() ([]byte, error) {
	type request Request

	if len(r.Arguments) == 0 {
		r.Arguments = json.RawMessage(`{}`)
	}

	return json.Marshal(request(r))
}
