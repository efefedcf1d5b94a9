// Package client provides the client-side engine for the DCP protocol:
// transports, request correlation, capability negotiation, and the typed
// protocol surface.
package client

import (
	"context"
	"net/http"
	"time"
)

// Transport abstracts a bidirectional frame stream to a DCP peer. The two
// directions are independent: Send and Receive are each safe to call while
// the other is in progress. Frames are delivered in the order sent.
type Transport interface {
	// Connect establishes the underlying stream.
	Connect(ctx context.Context) error

	// Send transmits one frame. It fails with a ConnectionError if the
	// transport is not connected or the write faults.
	Send(ctx context.Context, frame []byte) error

	// Receive blocks until the next inbound frame. It returns io.EOF when
	// the peer's stream ends; callers must treat end-of-stream as connection
	// loss. Any other error is a transport fault.
	Receive(ctx context.Context) ([]byte, error)

	// Close tears down the stream and releases resources.
	Close() error

	// IsConnected reports whether the transport is usable.
	IsConnected() bool
}

// TransportOption configures a transport.
type TransportOption func(options *TransportOptions)

// TransportOptions holds configuration shared by the transport backends.
type TransportOptions struct {
	Headers        http.Header
	HTTPClient     *http.Client
	ConnectTimeout time.Duration
	WriteTimeout   time.Duration
	RetryStrategy  BackoffStrategy
}

// DefaultTransportOptions returns the default transport options.
func DefaultTransportOptions() *TransportOptions {
	return &TransportOptions{
		Headers:        make(http.Header),
		HTTPClient:     http.DefaultClient,
		ConnectTimeout: 10 * time.Second,
		WriteTimeout:   30 * time.Second,
		RetryStrategy:  NewExponentialBackoff(100*time.Millisecond, 5*time.Second, 3),
	}
}

// WithHeaders sets additional HTTP headers for HTTP-based transports.
func WithHeaders(headers http.Header) TransportOption {
	return func(options *TransportOptions) {
		options.Headers = headers
	}
}

// WithHTTPClient sets the HTTP client for HTTP-based transports.
func WithHTTPClient(client *http.Client) TransportOption {
	return func(options *TransportOptions) {
		options.HTTPClient = client
	}
}

// WithConnectTimeout sets the connection timeout.
func WithConnectTimeout(timeout time.Duration) TransportOption {
	return func(options *TransportOptions) {
		options.ConnectTimeout = timeout
	}
}

// WithWriteTimeout sets the per-frame write timeout.
func WithWriteTimeout(timeout time.Duration) TransportOption {
	return func(options *TransportOptions) {
		options.WriteTimeout = timeout
	}
}

// WithTransportRetryStrategy sets the strategy used to resume a dropped
// inbound stream (SSE) or re-establish a connection.
func WithTransportRetryStrategy(strategy BackoffStrategy) TransportOption {
	return func(options *TransportOptions) {
		options.RetryStrategy = strategy
	}
}
