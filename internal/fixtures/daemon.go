package fixtures

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/dogmatiq/transmission"
	"github.com/google/uuid"
)

// MethodFunc handles a single RPC method on behalf of a Daemon.
//
// It returns the value to place in the "arguments" member of the response.
// If it returns an error, the error message is used as the "result" member.
type MethodFunc func(args json.RawMessage) (any, error)

// Daemon is an implementation of http.Handler that imitates the session and
// authentication behavior of the Transmission RPC endpoint.
type Daemon struct {
	// Username and Password are the credentials required by the daemon. If
	// both are empty, authentication is not required.
	Username string
	Password string

	// Methods maps RPC method names to their handlers. Unknown methods
	// produce a "method name not recognized" result.
	Methods map[string]MethodFunc

	m         sync.Mutex
	sessionID string
	requests  int
	conflicts int
}

// SessionID returns the session token that the daemon currently accepts.
func (d *Daemon) SessionID() string {
	d.m.Lock()
	defer d.m.Unlock()

	return d.session()
}

// ExpireSession replaces the accepted session token, as the daemon does when
// it restarts.
func (d *Daemon) ExpireSession() {
	d.m.Lock()
	d.sessionID = ""
	d.m.Unlock()
}

// Requests returns the number of HTTP requests received.
func (d *Daemon) Requests() int {
	d.m.Lock()
	defer d.m.Unlock()

	return d.requests
}

// Conflicts returns the number of requests rejected because of a missing or
// stale session token.
func (d *Daemon) Conflicts() int {
	d.m.Lock()
	defer d.m.Unlock()

	return d.conflicts
}

// ServeHTTP handles the HTTP request.
func (d *Daemon) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.m.Lock()
	d.requests++
	session := d.session()
	d.m.Unlock()

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if d.Username != "" || d.Password != "" {
		u, p, ok := r.BasicAuth()
		if !ok || u != d.Username || p != d.Password {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
	}

	if r.Header.Get(transmission.SessionIDHeader) != session {
		d.m.Lock()
		d.conflicts++
		d.m.Unlock()

		w.Header().Set(transmission.SessionIDHeader, session)
		http.Error(w, "invalid session id", http.StatusConflict)
		return
	}

	var req struct {
		Method    string          `json:"method"`
		Arguments json.RawMessage `json:"arguments"`
		Tag       *int            `json:"tag,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	res := map[string]any{
		"result": transmission.SuccessOutcome,
	}

	if req.Tag != nil {
		res["tag"] = *req.Tag
	}

	if fn, ok := d.Methods[req.Method]; ok {
		args, err := fn(req.Arguments)
		if err != nil {
			res["result"] = err.Error()
		} else if args != nil {
			res["arguments"] = args
		} else {
			res["arguments"] = map[string]any{}
		}
	} else {
		res["result"] = "method name not recognized"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(res)
}

// session returns the current session token, generating a new one if
// necessary. d.m must be held.
func (d *Daemon) session() string {
	if d.sessionID == "" {
		d.sessionID = uuid.NewString()
	}

	return d.sessionID
}
