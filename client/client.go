package client

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/dcpkit/godcp/dcp"
	"github.com/dcpkit/godcp/logx"
	"github.com/dcpkit/godcp/protocol"
)

// Defaults reported in clientInfo during the handshake.
const (
	defaultClientName    = "godcp"
	defaultClientVersion = "0.1.0"
)

// sessionState tracks the connection lifecycle:
// disconnected -> connected -> initialized -> closed -> (reconnect) connected.
type sessionState int

const (
	stateDisconnected sessionState = iota
	stateConnected
	stateInitialized
	stateClosed
)

// ClientConfig holds the configuration for a client.
type ClientConfig struct {
	Name             string
	Version          string
	PreferredVersion dcp.Version
	DefaultTimeout   time.Duration
	Logger           logx.Logger
}

// ClientOption is a function that configures a ClientConfig.
type ClientOption func(*ClientConfig)

// WithTimeout sets the default timeout applied to every request.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *ClientConfig) {
		c.DefaultTimeout = timeout
	}
}

// WithClientInfo sets the client name and version reported during the
// initialize handshake.
func WithClientInfo(name, version string) ClientOption {
	return func(c *ClientConfig) {
		c.Name = name
		c.Version = version
	}
}

// WithPreferredVersion sets the protocol version offered to the server.
func WithPreferredVersion(version dcp.Version) ClientOption {
	return func(c *ClientConfig) {
		c.PreferredVersion = version
	}
}

// WithLogger sets the logger used by the client and its connection.
func WithLogger(logger logx.Logger) ClientOption {
	return func(c *ClientConfig) {
		c.Logger = logger
	}
}

// InitializeResult is the decoded initialize response.
type InitializeResult struct {
	ProtocolVersion string                  `json:"protocolVersion"`
	Capabilities    map[string]interface{}  `json:"capabilities"`
	ServerInfo      protocol.Implementation `json:"serverInfo"`
}

// Client is a DCP client bound to one transport. All typed operations
// funnel through the correlation engine owned by the current connection.
type Client struct {
	transport Transport
	config    ClientConfig
	logger    logx.Logger

	stateMu sync.RWMutex
	state   sessionState
	conn    *conn

	negotiated         dcp.Version
	serverCapabilities map[string]interface{}
	serverInfo         protocol.Implementation
	everInitialized    bool

	rootsMu              sync.RWMutex
	rootsChangedCallback func([]protocol.Root)
}

// New creates a client over the given transport. The transport is not
// connected until Connect is called.
func New(transport Transport, options ...ClientOption) *Client {
	config := ClientConfig{
		Name:             defaultClientName,
		Version:          defaultClientVersion,
		PreferredVersion: dcp.LatestVersion,
		DefaultTimeout:   30 * time.Second,
		Logger:           logx.NewDefaultLogger(),
	}
	for _, option := range options {
		option(&config)
	}
	if config.Logger == nil {
		config.Logger = logx.NewNilLogger()
	}

	return &Client{
		transport: transport,
		config:    config,
		logger:    config.Logger,
		state:     stateDisconnected,
	}
}

// Connect establishes the transport and starts the receive pump.
func (c *Client) Connect(ctx context.Context) error {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	if c.state == stateConnected || c.state == stateInitialized {
		return NewConnectionError("client", "already connected", ErrAlreadyConnected)
	}

	if err := c.transport.Connect(ctx); err != nil {
		return err
	}

	c.conn = newConn(c.transport, c.logger, c.config.DefaultTimeout)
	c.conn.start()
	c.state = stateConnected
	return nil
}

// Initialize performs the handshake: it offers the preferred protocol
// version and a capability object derived from that version's predicates,
// records the negotiated version and the server's capabilities verbatim,
// registers the internal roots-changed handler where supported, and finally
// emits the initialized notification.
func (c *Client) Initialize(ctx context.Context) (*InitializeResult, error) {
	conn, err := c.currentConn()
	if err != nil {
		return nil, err
	}

	preferred := c.config.PreferredVersion
	capabilities := map[string]interface{}{}
	if preferred.SupportsRoots() {
		capabilities["roots"] = map[string]interface{}{"listChanged": true}
	}
	if preferred.SupportsElicitation() {
		capabilities["elicitation"] = map[string]interface{}{}
	}

	raw, err := conn.Request(ctx, protocol.MethodInitialize, map[string]interface{}{
		"protocolVersion": preferred.String(),
		"capabilities":    capabilities,
		"clientInfo": protocol.Implementation{
			Name:    c.config.Name,
			Version: c.config.Version,
		},
	})
	if err != nil {
		return nil, err
	}

	var result InitializeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, NewProtocolError("malformed initialize response", err)
	}

	negotiated, ok := dcp.Parse(result.ProtocolVersion)
	if !ok {
		c.logger.Warn("server reported unknown protocol version %q, assuming %s",
			result.ProtocolVersion, dcp.OldestVersion)
		negotiated = dcp.OldestVersion
	}

	c.stateMu.Lock()
	c.negotiated = negotiated
	c.serverCapabilities = result.Capabilities
	c.serverInfo = result.ServerInfo
	c.state = stateInitialized
	c.everInitialized = true
	c.stateMu.Unlock()

	if negotiated.SupportsRoots() {
		conn.OnNotification(protocol.MethodNotifyRootsListChanged, c.handleRootsChanged)
	}

	if err := conn.Notify(ctx, protocol.MethodNotifyInitialized, nil); err != nil {
		return nil, err
	}

	c.logger.Info("session initialized, negotiated protocol version %s", negotiated)
	return &result, nil
}

// Close cancels the receive pump, closes the transport, and fails every
// pending request with a ConnectionError.
func (c *Client) Close() error {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	if c.state == stateDisconnected || c.state == stateClosed {
		return nil
	}

	c.conn.stop()
	c.conn = nil
	c.state = stateClosed
	return nil
}

// Reconnect re-establishes the transport and restarts the pump. If the
// session had previously completed the initialize handshake, it is re-run
// so the peer sees a fully negotiated session again.
func (c *Client) Reconnect(ctx context.Context) error {
	c.stateMu.Lock()
	if c.state == stateConnected || c.state == stateInitialized {
		c.conn.stop()
		c.conn = nil
	}
	wasInitialized := c.everInitialized

	if err := c.transport.Connect(ctx); err != nil {
		c.state = stateClosed
		c.stateMu.Unlock()
		return err
	}
	c.conn = newConn(c.transport, c.logger, c.config.DefaultTimeout)
	c.conn.start()
	c.state = stateConnected
	c.stateMu.Unlock()

	if wasInitialized {
		if _, err := c.Initialize(ctx); err != nil {
			return err
		}
	}
	return nil
}

// IsConnected reports whether the client has a live connection.
func (c *Client) IsConnected() bool {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return (c.state == stateConnected || c.state == stateInitialized) && c.transport.IsConnected()
}

// IsInitialized reports whether the handshake has completed on the current
// connection.
func (c *Client) IsInitialized() bool {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state == stateInitialized
}

// NegotiatedVersion returns the protocol version agreed with the server.
// ok is false before the handshake completes.
func (c *Client) NegotiatedVersion() (version dcp.Version, ok bool) {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	if c.state != stateInitialized {
		return "", false
	}
	return c.negotiated, true
}

// ServerCapabilities returns the capability object from the initialize
// response, verbatim. The engine never interprets it beyond existence
// checks; it is exposed for presentation and introspection.
func (c *Client) ServerCapabilities() map[string]interface{} {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.serverCapabilities
}

// ServerInfo returns the peer's reported implementation info.
func (c *Client) ServerInfo() protocol.Implementation {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.serverInfo
}

// Ping checks that the peer is responsive.
func (c *Client) Ping(ctx context.Context) error {
	conn, err := c.currentConn()
	if err != nil {
		return err
	}
	_, err = conn.Request(ctx, protocol.MethodPing, nil)
	return err
}

// OnNotification registers a raw notification handler. At most one handler
// exists per method; the last registration wins.
func (c *Client) OnNotification(method string, handler NotificationHandler) error {
	conn, err := c.currentConn()
	if err != nil {
		return err
	}
	conn.OnNotification(method, handler)
	return nil
}

// currentConn returns the live connection or a ConnectionError.
func (c *Client) currentConn() (*conn, error) {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	if c.conn == nil {
		return nil, NewConnectionError("client", "not connected", ErrNotConnected)
	}
	return c.conn, nil
}

// requireCapability gates an operation on the negotiated version. It fails
// fast with a ProtocolError, before anything is sent over the transport.
func (c *Client) requireCapability(name string, minVersion dcp.Version, supported func(dcp.Version) bool) (*conn, error) {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()

	if c.state != stateInitialized {
		return nil, NewProtocolError("not initialized", ErrNotInitialized)
	}
	if !supported(c.negotiated) {
		return nil, NewCapabilityError(
			name+" not supported in negotiated protocol version",
			minVersion.String(), c.negotiated.String())
	}
	return c.conn, nil
}
