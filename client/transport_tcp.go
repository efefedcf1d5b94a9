package client

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/dcpkit/godcp/logx"
)

// tcpTransport implements Transport over a TCP connection with
// newline-delimited frames.
type tcpTransport struct {
	addr    string
	options *TransportOptions
	logger  logx.Logger

	connMu    sync.RWMutex
	conn      net.Conn
	reader    *bufio.Reader
	connected bool

	// Serializes writers; reads run on the independent inbound direction.
	writeMu sync.Mutex
}

// NewTCPTransport creates a transport that connects to a DCP peer at the
// given host:port address.
func NewTCPTransport(addr string, logger logx.Logger, options ...TransportOption) Transport {
	opts := DefaultTransportOptions()
	for _, option := range options {
		option(opts)
	}
	if logger == nil {
		logger = logx.NewNilLogger()
	}

	return &tcpTransport{
		addr:    addr,
		options: opts,
		logger:  logger,
	}
}

// Connect establishes the TCP connection.
func (t *tcpTransport) Connect(ctx context.Context) error {
	t.connMu.Lock()
	defer t.connMu.Unlock()

	if t.connected {
		return NewConnectionError(t.addr, "already connected", ErrAlreadyConnected)
	}

	dialer := &net.Dialer{Timeout: t.options.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", t.addr)
	if err != nil {
		return NewConnectionError(t.addr, "failed to connect", err)
	}

	t.conn = conn
	t.reader = bufio.NewReader(conn)
	t.connected = true
	t.logger.Info("tcp transport connected to %s", t.addr)
	return nil
}

// Send writes one newline-delimited frame.
func (t *tcpTransport) Send(ctx context.Context, frame []byte) error {
	t.connMu.RLock()
	conn := t.conn
	connected := t.connected
	t.connMu.RUnlock()

	if !connected {
		return NewConnectionError(t.addr, "not connected", ErrNotConnected)
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if t.options.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(t.options.WriteTimeout))
		defer conn.SetWriteDeadline(time.Time{})
	}

	if _, err := conn.Write(appendNewline(frame)); err != nil {
		return NewConnectionError(t.addr, "failed to send frame", err)
	}
	return nil
}

// Receive blocks until a full line arrives or the stream ends.
func (t *tcpTransport) Receive(ctx context.Context) ([]byte, error) {
	t.connMu.RLock()
	reader := t.reader
	connected := t.connected
	t.connMu.RUnlock()

	if !connected {
		return nil, NewConnectionError(t.addr, "not connected", ErrNotConnected)
	}

	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				return nil, io.EOF
			}
			return nil, NewConnectionError(t.addr, "failed to receive frame", err)
		}

		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		return line, nil
	}
}

// Close terminates the connection.
func (t *tcpTransport) Close() error {
	t.connMu.Lock()
	defer t.connMu.Unlock()

	if !t.connected {
		return nil
	}

	t.connected = false
	err := t.conn.Close()
	t.logger.Info("tcp transport disconnected from %s", t.addr)
	if err != nil {
		return NewConnectionError(t.addr, "failed to close connection", err)
	}
	return nil
}

// IsConnected reports whether the transport is connected.
func (t *tcpTransport) IsConnected() bool {
	t.connMu.RLock()
	defer t.connMu.RUnlock()
	return t.connected
}

func appendNewline(frame []byte) []byte {
	if len(frame) > 0 && frame[len(frame)-1] == '\n' {
		return frame
	}
	out := make([]byte, 0, len(frame)+1)
	out = append(out, frame...)
	return append(out, '\n')
}
