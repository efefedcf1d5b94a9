package protocol

// --- Message Type (Method Name) Constants ---
// These align with the JSON-RPC 'method' field names from the DCP spec.

const (
	// Initialization
	MethodInitialize        = "initialize"
	MethodNotifyInitialized = "notifications/initialized" // Notification

	// Tools
	MethodListTools = "tools/list"
	MethodCallTool  = "tools/call"

	// Resources
	MethodListResources       = "resources/list"
	MethodReadResource        = "resources/read"
	MethodSubscribeResource   = "resources/subscribe"
	MethodUnsubscribeResource = "resources/unsubscribe"

	// Prompts
	MethodListPrompts = "prompts/list"
	MethodGetPrompt   = "prompts/get"

	// Roots
	MethodListRoots              = "roots/list"
	MethodNotifyRootsListChanged = "notifications/roots/list_changed" // Notification

	// Elicitation. Both directions travel as notifications: the server does
	// not block a correlation slot while waiting on user input.
	MethodElicitationCreate  = "elicitation/create"  // Notification (server -> client)
	MethodElicitationRespond = "elicitation/respond" // Notification (client -> server)

	// Logging
	MethodLoggingSetLevel = "logging/setLevel"

	// Sampling
	MethodSamplingCreateMessage = "sampling/createMessage"

	// Completion
	MethodCompletionComplete = "completion/complete"

	// Ping
	MethodPing = "ping"
)

// ErrorCode is a JSON-RPC 2.0 error code.
type ErrorCode int

// Standard JSON-RPC 2.0 error codes.
const (
	CodeParseError     ErrorCode = -32700
	CodeInvalidRequest ErrorCode = -32600
	CodeMethodNotFound ErrorCode = -32601
	CodeInvalidParams  ErrorCode = -32602
	CodeInternalError  ErrorCode = -32603
)

// LoggingLevel represents a server-side logging severity.
type LoggingLevel string

// Logging levels accepted by logging/setLevel.
const (
	LogLevelDebug   LoggingLevel = "debug"
	LogLevelInfo    LoggingLevel = "info"
	LogLevelWarning LoggingLevel = "warning"
	LogLevelError   LoggingLevel = "error"
)
