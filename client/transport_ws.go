package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"sync"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/dcpkit/godcp/logx"
)

// wsTransport implements Transport over a WebSocket connection carrying one
// frame per text message.
type wsTransport struct {
	url     string
	options *TransportOptions
	logger  logx.Logger

	connMu    sync.RWMutex
	conn      net.Conn
	connected bool

	writeMu sync.Mutex
}

// NewWebSocketTransport creates a transport that dials the given ws:// or
// wss:// URL. http(s) schemes are rewritten to their WebSocket equivalents.
func NewWebSocketTransport(rawURL string, logger logx.Logger, options ...TransportOption) (Transport, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, NewConnectionError(rawURL, "invalid URL", err)
	}

	switch parsed.Scheme {
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	case "ws", "wss":
	default:
		return nil, NewConnectionError(rawURL,
			fmt.Sprintf("unsupported scheme %q", parsed.Scheme), nil)
	}

	opts := DefaultTransportOptions()
	for _, option := range options {
		option(opts)
	}
	if logger == nil {
		logger = logx.NewNilLogger()
	}

	return &wsTransport{
		url:     parsed.String(),
		options: opts,
		logger:  logger,
	}, nil
}

// Connect dials the WebSocket endpoint.
func (t *wsTransport) Connect(ctx context.Context) error {
	t.connMu.Lock()
	defer t.connMu.Unlock()

	if t.connected {
		return NewConnectionError(t.url, "already connected", ErrAlreadyConnected)
	}

	if t.options.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.options.ConnectTimeout)
		defer cancel()
	}

	conn, _, _, err := ws.Dial(ctx, t.url)
	if err != nil {
		return NewConnectionError(t.url, "failed to dial", err)
	}

	t.conn = conn
	t.connected = true
	t.logger.Info("websocket transport connected to %s", t.url)
	return nil
}

// Send writes one frame as a client text message.
func (t *wsTransport) Send(ctx context.Context, frame []byte) error {
	t.connMu.RLock()
	conn := t.conn
	connected := t.connected
	t.connMu.RUnlock()

	if !connected {
		return NewConnectionError(t.url, "not connected", ErrNotConnected)
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if err := wsutil.WriteClientText(conn, frame); err != nil {
		return NewConnectionError(t.url, "failed to send frame", err)
	}
	return nil
}

// Receive reads the next server text message.
func (t *wsTransport) Receive(ctx context.Context) ([]byte, error) {
	t.connMu.RLock()
	conn := t.conn
	connected := t.connected
	t.connMu.RUnlock()

	if !connected {
		return nil, NewConnectionError(t.url, "not connected", ErrNotConnected)
	}

	data, err := wsutil.ReadServerText(conn)
	if err != nil {
		var closed wsutil.ClosedError
		if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.As(err, &closed) {
			return nil, io.EOF
		}
		return nil, NewConnectionError(t.url, "failed to receive frame", err)
	}
	return data, nil
}

// Close terminates the connection.
func (t *wsTransport) Close() error {
	t.connMu.Lock()
	defer t.connMu.Unlock()

	if !t.connected {
		return nil
	}
	t.connected = false

	err := t.conn.Close()
	t.logger.Info("websocket transport disconnected from %s", t.url)
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return NewConnectionError(t.url, "failed to close connection", err)
	}
	return nil
}

// IsConnected reports whether the transport is connected.
func (t *wsTransport) IsConnected() bool {
	t.connMu.RLock()
	defer t.connMu.RUnlock()
	return t.connected
}
