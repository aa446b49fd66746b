package transmission

import (
	"crypto/tls"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sort"
	"time"
)

// Transport sends an HTTP request and returns the daemon's response.
//
// *http.Client satisfies this interface. Tests may substitute their own
// implementation to avoid network access.
type Transport interface {
	Do(*http.Request) (*http.Response, error)
}

// Option is an option that changes the behavior of a Client.
type Option func(*clientOptions)

// clientOptions is the set of options applied by New().
type clientOptions struct {
	transport    Transport
	timeout      time.Duration
	tlsConfig    *tls.Config
	insecure     bool
	proxy        *url.URL
	roundTripper http.RoundTripper
	logger       CallLogger
}

// WithTransport is an Option that sets the transport used to send requests.
//
// It takes precedence over all other transport-related options.
func WithTransport(t Transport) Option {
	return func(opts *clientOptions) {
		opts.transport = t
	}
}

// WithTimeout is an Option that sets the time limit for each HTTP exchange,
// including any time spent reading the response body.
func WithTimeout(d time.Duration) Option {
	return func(opts *clientOptions) {
		opts.timeout = d
	}
}

// WithTLSConfig is an Option that sets the TLS configuration used when the
// scheme is "https". The configuration is cloned.
func WithTLSConfig(c *tls.Config) Option {
	return func(opts *clientOptions) {
		opts.tlsConfig = c.Clone()
	}
}

// WithInsecureSkipVerify is an Option that disables verification of the
// daemon's TLS certificate.
func WithInsecureSkipVerify(skip bool) Option {
	return func(opts *clientOptions) {
		opts.insecure = skip
	}
}

// WithProxyURL is an Option that routes requests through an HTTP proxy.
func WithProxyURL(u *url.URL) Option {
	return func(opts *clientOptions) {
		opts.proxy = u
	}
}

// WithRoundTripper is an Option that sets the http.RoundTripper used by the
// default transport. When set, the TLS and proxy options are ignored.
func WithRoundTripper(rt http.RoundTripper) Option {
	return func(opts *clientOptions) {
		opts.roundTripper = rt
	}
}

// WithLogger is an Option that sets the logger used to log RPC calls.
func WithLogger(l CallLogger) Option {
	return func(opts *clientOptions) {
		opts.logger = l
	}
}

// newTransport returns the transport described by opts.
func newTransport(opts clientOptions) Transport {
	if opts.transport != nil {
		return opts.transport
	}

	rt := opts.roundTripper

	if rt == nil && (opts.tlsConfig != nil || opts.insecure || opts.proxy != nil) {
		t := http.DefaultTransport.(*http.Transport).Clone()

		if opts.tlsConfig != nil {
			t.TLSClientConfig = opts.tlsConfig
		}

		if opts.insecure {
			if t.TLSClientConfig == nil {
				t.TLSClientConfig = &tls.Config{}
			}
			t.TLSClientConfig.InsecureSkipVerify = true
		}

		if opts.proxy != nil {
			t.Proxy = http.ProxyURL(opts.proxy)
		}

		rt = t
	}

	return &http.Client{
		Transport: rt,
		Timeout:   opts.timeout,
	}
}

// OptionsFromMap returns the options described by a mapping of option name to
// value, as found in configuration files.
//
// The supported names are:
//
//   - "timeout": a duration string such as "30s", or a number of seconds
//   - "insecure_skip_verify": a boolean
//   - "proxy": a proxy URL
//
// It returns an error if a name is not recognized or its value has the wrong
// type.
func OptionsFromMap(m map[string]any) ([]Option, error) {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)

	var options []Option

	for _, n := range names {
		opt, err := optionFromValue(n, m[n])
		if err != nil {
			return nil, fmt.Errorf("invalid transport option (%s): %w", n, err)
		}

		options = append(options, opt)
	}

	return options, nil
}

// optionFromValue returns the option with the given name.
func optionFromValue(name string, v any) (Option, error) {
	switch name {
	case "timeout":
		d, err := durationFromValue(v)
		if err != nil {
			return nil, err
		}
		if d < 0 {
			return nil, fmt.Errorf("duration must not be negative, got %s", d)
		}
		return WithTimeout(d), nil

	case "insecure_skip_verify":
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("expected a boolean, got %T", v)
		}
		return WithInsecureSkipVerify(b), nil

	case "proxy":
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected a URL string, got %T", v)
		}

		u, err := url.Parse(s)
		if err != nil {
			return nil, err
		}
		return WithProxyURL(u), nil

	default:
		return nil, fmt.Errorf("unrecognized option")
	}
}

// durationFromValue converts a configuration value to a duration. Numbers are
// interpreted as seconds.
func durationFromValue(v any) (time.Duration, error) {
	switch v := v.(type) {
	case string:
		return time.ParseDuration(v)
	case int:
		return secondsToDuration(float64(v))
	case int64:
		return secondsToDuration(float64(v))
	case float64:
		return secondsToDuration(v)
	case time.Duration:
		return v, nil
	default:
		return 0, fmt.Errorf("expected a duration, got %T", v)
	}
}

// secondsToDuration converts a number of seconds to a duration.
func secondsToDuration(sec float64) (time.Duration, error) {
	ns := sec * float64(time.Second)
	if math.IsNaN(ns) || ns >= math.MaxInt64 || ns <= math.MinInt64 {
		return 0, fmt.Errorf("duration of %v seconds is out of range", sec)
	}
	return time.Duration(ns), nil
}
