package youtrack

import (
	"crypto/tls"
	"net/http"
	"time"
)

// Option configures a Connection.
type Option func(*connectionOptions)

// connectionOptions holds configuration options for the Connection.
type connectionOptions struct {
	httpClient *http.Client
	timeout    time.Duration
	userAgent  string
	skipVerify bool
}

// WithHTTPClient replaces the HTTP client used for every request.
// The client is used as given; WithTimeout and WithInsecureSkipVerify are ignored.
func WithHTTPClient(client *http.Client) Option {
	return func(o *connectionOptions) {
		if client != nil {
			o.httpClient = client
		}
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(o *connectionOptions) {
		if timeout > 0 {
			o.timeout = timeout
		}
	}
}

// WithUserAgent sets a custom user agent string.
func WithUserAgent(userAgent string) Option {
	return func(o *connectionOptions) {
		o.userAgent = userAgent
	}
}

// WithInsecureSkipVerify disables certificate verification.
// Use with caution and only for development/testing.
func WithInsecureSkipVerify() Option {
	return func(o *connectionOptions) {
		o.skipVerify = true
	}
}

func (o *connectionOptions) buildClient() *http.Client {
	if o.httpClient != nil {
		return o.httpClient
	}

	client := &http.Client{Timeout: o.timeout}
	if o.skipVerify {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in
		client.Transport = transport
	}
	return client
}
