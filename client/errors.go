package client

import (
	"errors"
	"fmt"
	"time"

	"github.com/dcpkit/godcp/protocol"
)

// Standard error values that can be matched with errors.Is().
var (
	ErrNotConnected     = errors.New("client is not connected")
	ErrAlreadyConnected = errors.New("client is already connected")
	ErrNotInitialized   = errors.New("client is not initialized")
	ErrRequestTimeout   = errors.New("request timed out")
	ErrConnectionClosed = errors.New("connection closed")
)

// ConnectionError indicates a connect, send, receive, or other transport
// level fault, including subprocess spawn failure.
type ConnectionError struct {
	Endpoint string
	Message  string
	Cause    error
}

func (e *ConnectionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("connection error (%s): %s: %v", e.Endpoint, e.Message, e.Cause)
	}
	return fmt.Sprintf("connection error (%s): %s", e.Endpoint, e.Message)
}

func (e *ConnectionError) Unwrap() error { return e.Cause }

// NewConnectionError creates a new ConnectionError.
func NewConnectionError(endpoint, message string, cause error) error {
	return &ConnectionError{Endpoint: endpoint, Message: message, Cause: cause}
}

// TimeoutError indicates that a request's waiter was not resolved within its
// deadline. The request is not retried or cancelled on the wire; a late
// response for its id is discarded by the receive pump.
type TimeoutError struct {
	Method  string
	Timeout time.Duration
	Cause   error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request %s timed out after %v", e.Method, e.Timeout)
}

func (e *TimeoutError) Unwrap() error {
	if e.Cause != nil {
		return e.Cause
	}
	return ErrRequestTimeout
}

// NewTimeoutError creates a new TimeoutError.
func NewTimeoutError(method string, timeout time.Duration, cause error) error {
	return &TimeoutError{Method: method, Timeout: timeout, Cause: cause}
}

// ProtocolError indicates a handshake or capability violation detected on
// the client side: a malformed initialize response, a call before
// initialization, or an operation the negotiated version does not support.
// Nothing is sent over the transport for a gated call.
type ProtocolError struct {
	Message           string
	RequiredVersion   string
	NegotiatedVersion string
	Cause             error
}

func (e *ProtocolError) Error() string {
	if e.RequiredVersion != "" {
		return fmt.Sprintf("protocol error: %s (requires %s, negotiated %s)",
			e.Message, e.RequiredVersion, e.NegotiatedVersion)
	}
	return fmt.Sprintf("protocol error: %s", e.Message)
}

func (e *ProtocolError) Unwrap() error { return e.Cause }

// NewProtocolError creates a new ProtocolError.
func NewProtocolError(message string, cause error) error {
	return &ProtocolError{Message: message, Cause: cause}
}

// NewCapabilityError creates a ProtocolError for an operation the negotiated
// version does not carry, recording both version strings.
func NewCapabilityError(message, required, negotiated string) error {
	return &ProtocolError{
		Message:           message,
		RequiredVersion:   required,
		NegotiatedVersion: negotiated,
	}
}

// RemoteError represents a JSON-RPC error object returned by the peer.
type RemoteError struct {
	Method  string
	Code    protocol.ErrorCode
	Message string
	Data    interface{}
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error during %s: %s (code=%d)", e.Method, e.Message, e.Code)
}

// NewRemoteError creates a RemoteError from a received error payload.
func NewRemoteError(method string, payload *protocol.ErrorPayload) error {
	return &RemoteError{
		Method:  method,
		Code:    payload.Code,
		Message: payload.Message,
		Data:    payload.Data,
	}
}

// IsConnectionError checks if an error is a connection error.
func IsConnectionError(err error) bool {
	var connErr *ConnectionError
	return errors.As(err, &connErr) || errors.Is(err, ErrNotConnected) || errors.Is(err, ErrAlreadyConnected)
}

// IsTimeoutError checks if an error is a timeout error.
func IsTimeoutError(err error) bool {
	var timeoutErr *TimeoutError
	return errors.As(err, &timeoutErr) || errors.Is(err, ErrRequestTimeout)
}

// IsProtocolError checks if an error is a protocol error.
func IsProtocolError(err error) bool {
	var protoErr *ProtocolError
	return errors.As(err, &protoErr)
}

// IsRemoteError checks if an error is a server-reported error.
func IsRemoteError(err error) bool {
	var remoteErr *RemoteError
	return errors.As(err, &remoteErr)
}
