// Package protocol defines the structures and constants for the DCP wire
// format, based on the JSON-RPC 2.0 specification.
package protocol

import (
	"encoding/json"
)

// JSONRPCVersion is the value of the "jsonrpc" field on every frame.
const JSONRPCVersion = "2.0"

// ErrorPayload defines the structure for the 'error' object within a
// response, aligning with the JSON-RPC 2.0 specification used by DCP.
type ErrorPayload struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// JSONRPCRequest represents a standard JSON-RPC request object.
// Request ids are always integers in this client; they are assigned by the
// correlation engine and never reused within a connection.
type JSONRPCRequest struct {
	JSONRPC string      `json:"jsonrpc"` // MUST be "2.0"
	ID      int64       `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// JSONRPCResponse represents a standard JSON-RPC response object. Exactly one
// of Result or Error is populated.
type JSONRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ErrorPayload   `json:"error,omitempty"`
}

// JSONRPCNotification represents a standard JSON-RPC notification object.
// Notifications MUST NOT carry an 'id' field.
type JSONRPCNotification struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// NewRequest creates a new JSON-RPC request object.
func NewRequest(id int64, method string, params interface{}) *JSONRPCRequest {
	return &JSONRPCRequest{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Method:  method,
		Params:  params,
	}
}

// NewNotification creates a new JSON-RPC notification object.
func NewNotification(method string, params interface{}) *JSONRPCNotification {
	return &JSONRPCNotification{
		JSONRPC: JSONRPCVersion,
		Method:  method,
		Params:  params,
	}
}

// IncomingFrame is one classified frame received from the peer.
type IncomingFrame struct {
	ID     *int64          // non-nil for responses
	Method string          // non-empty for notifications
	Result json.RawMessage // response result, if any
	Error  *ErrorPayload   // response error, if any
	Params json.RawMessage // notification params, if any
}

// IsResponse reports whether the frame carries a correlation id.
func (f *IncomingFrame) IsResponse() bool { return f.ID != nil }

// IsNotification reports whether the frame is a server notification.
func (f *IncomingFrame) IsNotification() bool { return f.ID == nil && f.Method != "" }

// wireFrame is used for initial parsing to determine the message type.
type wireFrame struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ErrorPayload   `json:"error,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// ParseFrame decodes and classifies a single received frame. A frame with a
// non-null id is a response; a frame with a method and no id is a
// notification. Anything else, including frames that fail to decode, yields
// ok == false and MUST be dropped silently by the caller: one corrupt frame
// must not take down the receive pump.
func ParseFrame(data []byte) (frame *IncomingFrame, ok bool) {
	var wf wireFrame
	if err := json.Unmarshal(data, &wf); err != nil {
		return nil, false
	}

	if len(wf.ID) > 0 && string(wf.ID) != "null" {
		var id int64
		if err := json.Unmarshal(wf.ID, &id); err != nil {
			// An id we did not issue; no waiter can match it.
			return nil, false
		}
		return &IncomingFrame{
			ID:     &id,
			Result: wf.Result,
			Error:  wf.Error,
		}, true
	}

	if wf.Method != "" {
		return &IncomingFrame{
			Method: wf.Method,
			Params: wf.Params,
		}, true
	}

	return nil, false
}
