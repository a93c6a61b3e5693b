// Package httpclient is the outbound HTTP client shared by the adapters
// that talk to web APIs. Every request is traced and counted per provider.
package httpclient

import (
	"net/http"
	"time"
)

type settings struct {
	provider  string
	baseURL   string
	timeout   time.Duration
	headers   map[string]string
	transport http.RoundTripper
	redact    func(string) string
}

func newSettings(opts []ClientOption) settings {
	s := settings{
		provider: "default",
		timeout:  defaultRequestTimeout,
		redact:   func(u string) string { return u },
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// ClientOption configures NewInstrumentedClient.
type ClientOption func(*settings)

// WithProviderName labels metrics and spans with the remote API name.
func WithProviderName(name string) ClientOption {
	return func(s *settings) {
		if name != "" {
			s.provider = name
		}
	}
}

// WithBaseURL prefixes relative request paths.
func WithBaseURL(url string) ClientOption {
	return func(s *settings) { s.baseURL = url }
}

// WithRequestTimeout bounds each request end to end. Zero keeps the
// default.
func WithRequestTimeout(timeout time.Duration) ClientOption {
	return func(s *settings) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// WithHeaders sets headers sent on every request.
func WithHeaders(headers map[string]string) ClientOption {
	return func(s *settings) { s.headers = headers }
}

// WithRoundTripper replaces the pooled transport underneath the tracing
// layer.
func WithRoundTripper(rt http.RoundTripper) ClientOption {
	return func(s *settings) { s.transport = rt }
}

// WithURLRedactor rewrites URLs before they reach spans, for APIs that put
// credentials in the path.
func WithURLRedactor(fn func(string) string) ClientOption {
	return func(s *settings) {
		if fn != nil {
			s.redact = fn
		}
	}
}
