package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dcpkit/godcp/logx"
	"github.com/dcpkit/godcp/protocol"
)

// NotificationHandler processes the params of one inbound notification. It
// runs on the receive pump goroutine; a panic is caught at the dispatch site
// and must not bring down the pump.
type NotificationHandler func(params json.RawMessage)

// conn owns the request correlation state for one established connection:
// the monotonic id sequence, the pending-waiter map, the notification
// handler table, and the single background receive pump.
type conn struct {
	transport Transport
	logger    logx.Logger
	timeout   time.Duration

	// Ids start at 1 and strictly increase; they are never reused within
	// the connection's lifetime.
	nextID atomic.Int64

	pendingMu sync.Mutex
	pending   map[int64]chan *protocol.JSONRPCResponse

	handlersMu sync.RWMutex
	handlers   map[string]NotificationHandler

	pumpCtx    context.Context
	pumpCancel context.CancelFunc
	pumpDone   chan struct{}
}

func newConn(transport Transport, logger logx.Logger, timeout time.Duration) *conn {
	c := &conn{
		transport: transport,
		logger:    logger,
		timeout:   timeout,
		pending:   make(map[int64]chan *protocol.JSONRPCResponse),
		handlers:  make(map[string]NotificationHandler),
		pumpDone:  make(chan struct{}),
	}
	c.pumpCtx, c.pumpCancel = context.WithCancel(context.Background())
	return c
}

// start spawns the receive pump. Exactly one pump runs per connection.
func (c *conn) start() {
	go c.pump()
}

// stop cancels the pump, waits for it to exit, and fails every waiter still
// pending with a ConnectionError so no caller is stranded until its own
// timeout.
func (c *conn) stop() {
	c.pumpCancel()
	if err := c.transport.Close(); err != nil {
		c.logger.Warn("failed to close transport: %v", err)
	}
	<-c.pumpDone

	c.pendingMu.Lock()
	for id, waiter := range c.pending {
		delete(c.pending, id)
		close(waiter)
	}
	c.pendingMu.Unlock()
}

// Request sends a JSON-RPC request and blocks until its response arrives or
// the timeout fires. A timed-out request is not retried or cancelled on the
// wire; its late response, if any, is discarded by the pump.
func (c *conn) Request(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	id := c.nextID.Add(1)
	waiter := make(chan *protocol.JSONRPCResponse, 1)

	c.pendingMu.Lock()
	c.pending[id] = waiter
	c.pendingMu.Unlock()

	frame, err := json.Marshal(protocol.NewRequest(id, method, params))
	if err != nil {
		c.unregister(id)
		return nil, NewProtocolError("failed to encode request", err)
	}

	if err := c.transport.Send(ctx, frame); err != nil {
		c.unregister(id)
		return nil, err
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case resp, ok := <-waiter:
		if !ok {
			return nil, NewConnectionError(method, "connection closed while waiting for response", ErrConnectionClosed)
		}
		if resp.Error != nil {
			return nil, NewRemoteError(method, resp.Error)
		}
		return resp.Result, nil
	case <-timer.C:
		c.unregister(id)
		return nil, NewTimeoutError(method, c.timeout, nil)
	case <-ctx.Done():
		c.unregister(id)
		return nil, NewTimeoutError(method, c.timeout, ctx.Err())
	}
}

// Notify sends a JSON-RPC notification: no id is allocated and no reply is
// awaited.
func (c *conn) Notify(ctx context.Context, method string, params interface{}) error {
	frame, err := json.Marshal(protocol.NewNotification(method, params))
	if err != nil {
		return NewProtocolError("failed to encode notification", err)
	}
	return c.transport.Send(ctx, frame)
}

// OnNotification registers the handler for a notification method. At most
// one handler exists per method; the last registration wins.
func (c *conn) OnNotification(method string, handler NotificationHandler) {
	c.handlersMu.Lock()
	c.handlers[method] = handler
	c.handlersMu.Unlock()
}

func (c *conn) unregister(id int64) {
	c.pendingMu.Lock()
	delete(c.pending, id)
	c.pendingMu.Unlock()
}

// pump is the single background task reading frames off the transport. It
// terminates on end-of-stream or transport fault; individual malformed
// frames are dropped without ever surfacing to callers.
func (c *conn) pump() {
	defer close(c.pumpDone)

	for {
		frame, err := c.transport.Receive(c.pumpCtx)
		if err != nil {
			if !errors.Is(err, io.EOF) && c.pumpCtx.Err() == nil {
				c.logger.Error("receive pump terminated: %v", err)
			}
			return
		}
		c.dispatch(frame)
	}
}

func (c *conn) dispatch(frame []byte) {
	parsed, ok := protocol.ParseFrame(frame)
	if !ok {
		c.logger.Debug("dropping malformed frame: %s", string(frame))
		return
	}

	switch {
	case parsed.IsResponse():
		id := *parsed.ID
		c.pendingMu.Lock()
		waiter, found := c.pending[id]
		if found {
			delete(c.pending, id)
		}
		c.pendingMu.Unlock()

		if !found {
			// Late response for a timed-out or unknown id.
			c.logger.Debug("discarding response for unknown id %d", id)
			return
		}
		waiter <- &protocol.JSONRPCResponse{
			JSONRPC: protocol.JSONRPCVersion,
			ID:      parsed.ID,
			Result:  parsed.Result,
			Error:   parsed.Error,
		}

	case parsed.IsNotification():
		c.handlersMu.RLock()
		handler := c.handlers[parsed.Method]
		c.handlersMu.RUnlock()

		if handler == nil {
			c.logger.Debug("no handler registered for notification %s", parsed.Method)
			return
		}
		c.invoke(parsed.Method, handler, parsed.Params)
	}
}

// invoke runs a notification handler, containing any panic so a misbehaving
// handler cannot crash the pump.
func (c *conn) invoke(method string, handler NotificationHandler, params json.RawMessage) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("notification handler for %s panicked: %v", method, r)
		}
	}()
	handler(params)
}
