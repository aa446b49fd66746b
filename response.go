package transmission

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/dogmatiq/transmission/internal/jsonx"
)

// SuccessOutcome is the value of the "result" member of a response when the
// daemon has performed the requested method successfully.
const SuccessOutcome = "success"

// Result is the decoded JSON object returned by the daemon in response to a
// successful RPC call.
//
// The client does not interpret the content. Typically the daemon responds
// with an object containing "result", "arguments" and "tag" members.
type Result map[string]any

// Outcome returns the daemon's "result" member.
//
// The daemon uses the value "success" to indicate success, any other value is
// a human-readable description of the failure. ok is false if the result does
// not contain a string "result" member.
func (r Result) Outcome() (_ string, ok bool) {
	s, ok := r["result"].(string)
	return s, ok
}

// Arguments returns the "arguments" member of the result.
//
// ok is false if the result does not contain an "arguments" object.
func (r Result) Arguments() (_ Arguments, ok bool) {
	m, ok := r["arguments"].(map[string]any)
	return Arguments(m), ok
}

// response is the raw form of a response body, used to decode the
// "arguments" member into a user-supplied value.
type response struct {
	Arguments json.RawMessage `json:"arguments"`
}

// decodeResult reads a JSON object from r.
//
// It returns the decoded object along with the raw body.
func decodeResult(r io.Reader) (Result, []byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to read response body: %w", err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, nil, fmt.Errorf("response body is not a JSON object")
	}

	var res Result
	if err := json.Unmarshal(trimmed, &res); err != nil {
		return nil, nil, fmt.Errorf("unable to unmarshal response body: %w", err)
	}

	return res, trimmed, nil
}

// unmarshalArguments unmarshals the "arguments" member of a raw response body
// into v.
func unmarshalArguments(data []byte, v any, options ...UnmarshalOption) error {
	var res response
	if err := json.Unmarshal(data, &res); err != nil {
		return err
	}

	if len(res.Arguments) == 0 {
		res.Arguments = json.RawMessage(`{}`)
	}

	return jsonx.Unmarshal(res.Arguments, v, options...)
}
