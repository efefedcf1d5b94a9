package protocol

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Implementation identifies one end of a DCP connection.
type Implementation struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Root describes a filesystem or namespace boundary advertised over the
// protocol. Immutable value type.
type Root struct {
	URI  string `json:"uri"`
	Name string `json:"name,omitempty"`
}

// ResourceTemplate is a parameterized URI pattern. Placeholders use the
// "{param}" form and are resolved with Substitute before reading.
type ResourceTemplate struct {
	URITemplate string `json:"uriTemplate"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

// Substitute replaces every "{key}" placeholder with its value from params
// and returns the concrete URI. Placeholders without a matching parameter
// are left intact. Pure string substitution, no side effects.
func (t ResourceTemplate) Substitute(params map[string]string) string {
	uri := t.URITemplate
	for key, value := range params {
		uri = strings.ReplaceAll(uri, fmt.Sprintf("{%s}", key), value)
	}
	return uri
}

// ElicitationAction is the client's verdict on an elicitation request.
type ElicitationAction string

// Valid elicitation actions.
const (
	ElicitationAccept  ElicitationAction = "accept"
	ElicitationDecline ElicitationAction = "decline"
	ElicitationCancel  ElicitationAction = "cancel"
)

// ElicitationRequest is a server-initiated request for user input.
type ElicitationRequest struct {
	Message         string                 `json:"message"`
	RequestedSchema map[string]interface{} `json:"requestedSchema,omitempty"`
}

// ElicitationResponse is the client's reply to an elicitation request. The
// content field is always emitted, null when no content was collected, so
// the peer can distinguish "no content" from a truncated payload.
type ElicitationResponse struct {
	Action  ElicitationAction      `json:"action"`
	Content map[string]interface{} `json:"content"`
}

// Tool describes a tool exposed by the server.
type Tool struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	InputSchema interface{} `json:"inputSchema,omitempty"`
}

// Content is one item in a tool or prompt payload.
type Content struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Data     string `json:"data,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
}

// CallToolResult is the result of a tools/call request.
type CallToolResult struct {
	Content           []Content              `json:"content,omitempty"`
	StructuredContent map[string]interface{} `json:"structuredContent,omitempty"`
	IsError           bool                   `json:"isError,omitempty"`
}

// DecodeStructured maps the structured tool output onto target, matching
// fields by their json tags.
func (r *CallToolResult) DecodeStructured(target interface{}) error {
	if r.StructuredContent == nil {
		return fmt.Errorf("tool result has no structured content")
	}
	return Decode(r.StructuredContent, target)
}

// Resource describes a resource exposed by the server.
type Resource struct {
	URI         string `json:"uri"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

// ResourceContents is one content entry from a resources/read result.
type ResourceContents struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType,omitempty"`
	Text     string `json:"text,omitempty"`
	Blob     string `json:"blob,omitempty"`
}

// Prompt describes a prompt exposed by the server.
type Prompt struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Arguments   []PromptArgument `json:"arguments,omitempty"`
}

// PromptArgument describes one argument a prompt accepts.
type PromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

// PromptMessage is one message of a rendered prompt.
type PromptMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

// GetPromptResult is the result of a prompts/get request.
type GetPromptResult struct {
	Description string          `json:"description,omitempty"`
	Messages    []PromptMessage `json:"messages"`
}

// SamplingMessage is one conversation message in a sampling request.
type SamplingMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

// CreateMessageResult is the result of a sampling/createMessage request.
type CreateMessageResult struct {
	Role       string      `json:"role"`
	Content    interface{} `json:"content"`
	Model      string      `json:"model,omitempty"`
	StopReason string      `json:"stopReason,omitempty"`
}

// CompletionRef identifies the prompt or resource a completion request
// targets.
type CompletionRef struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
	URI  string `json:"uri,omitempty"`
}

// CompletionArgument is the argument being completed.
type CompletionArgument struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// CompletionResult is the result of a completion/complete request.
type CompletionResult struct {
	Completion struct {
		Values  []string `json:"values"`
		Total   int      `json:"total,omitempty"`
		HasMore bool     `json:"hasMore,omitempty"`
	} `json:"completion"`
}

// Decode maps a loosely-typed JSON value (typically a map[string]interface{}
// captured verbatim off the wire) onto target, matching fields by their json
// tags.
func Decode(input, target interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  target,
	})
	if err != nil {
		return fmt.Errorf("failed to build decoder: %w", err)
	}
	return decoder.Decode(input)
}
