package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcpkit/godcp/logx"
	"github.com/dcpkit/godcp/protocol"
)

// mockTransport is a channel-backed in-memory transport. Outbound frames are
// recorded and handed to an optional onSend hook; inbound frames are queued
// with push and delivered through Receive.
type mockTransport struct {
	mu        sync.Mutex
	connected bool
	sent      [][]byte
	failSend  error

	inbound  chan []byte
	closed   chan struct{}
	isClosed bool

	// onSend runs on the sender's goroutine after the frame is recorded.
	onSend func(frame []byte)
}

func newMockTransport() *mockTransport {
	return &mockTransport{
		inbound: make(chan []byte, 64),
		closed:  make(chan struct{}),
	}
}

func (m *mockTransport) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.isClosed {
		m.closed = make(chan struct{})
		m.isClosed = false
	}
	m.connected = true
	return nil
}

func (m *mockTransport) Send(ctx context.Context, frame []byte) error {
	m.mu.Lock()
	if m.failSend != nil {
		err := m.failSend
		m.mu.Unlock()
		return err
	}
	copied := append([]byte(nil), frame...)
	m.sent = append(m.sent, copied)
	hook := m.onSend
	m.mu.Unlock()

	if hook != nil {
		hook(copied)
	}
	return nil
}

func (m *mockTransport) Receive(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()

	select {
	case frame := <-m.inbound:
		return frame, nil
	case <-closed:
		return nil, io.EOF
	case <-ctx.Done():
		return nil, io.EOF
	}
}

func (m *mockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.isClosed {
		close(m.closed)
		m.isClosed = true
	}
	m.connected = false
	return nil
}

func (m *mockTransport) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// push queues one inbound frame as if the peer had sent it.
func (m *mockTransport) push(frame string) {
	m.inbound <- []byte(frame)
}

// sentFrames returns a snapshot of every frame sent so far.
func (m *mockTransport) sentFrames() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.sent))
	copy(out, m.sent)
	return out
}

// sentMethods decodes the method of every sent frame, in order.
func (m *mockTransport) sentMethods() []string {
	var methods []string
	for _, frame := range m.sentFrames() {
		var probe struct {
			Method string `json:"method"`
		}
		if json.Unmarshal(frame, &probe) == nil && probe.Method != "" {
			methods = append(methods, probe.Method)
		}
	}
	return methods
}

// respondToRequests installs an onSend hook that answers every request frame
// by calling respond with its id and method. Returning nil suppresses the
// response.
func (m *mockTransport) respondToRequests(respond func(id int64, method string, params json.RawMessage) string) {
	m.mu.Lock()
	m.onSend = func(frame []byte) {
		var probe struct {
			ID     *int64          `json:"id"`
			Method string          `json:"method"`
			Params json.RawMessage `json:"params"`
		}
		if json.Unmarshal(frame, &probe) != nil || probe.ID == nil {
			return
		}
		if reply := respond(*probe.ID, probe.Method, probe.Params); reply != "" {
			m.inbound <- []byte(reply)
		}
	}
	m.mu.Unlock()
}

func resultFrame(id int64, result string) string {
	return fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"result":%s}`, id, result)
}

func errorFrame(id int64, code int, message string) string {
	return fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"error":{"code":%d,"message":%q}}`, id, code, message)
}

func newTestConn(t *testing.T, transport *mockTransport, timeout time.Duration) *conn {
	t.Helper()
	require.NoError(t, transport.Connect(context.Background()))
	c := newConn(transport, logx.NewNilLogger(), timeout)
	c.start()
	t.Cleanup(c.stop)
	return c
}

func TestRequestResponseRoundTrip(t *testing.T) {
	transport := newMockTransport()
	transport.respondToRequests(func(id int64, method string, _ json.RawMessage) string {
		return resultFrame(id, `{"echo":"`+method+`"}`)
	})
	c := newTestConn(t, transport, time.Second)

	raw, err := c.Request(context.Background(), "tools/list", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"echo":"tools/list"}`, string(raw))
}

func TestRequestIDsStartAtOneAndIncrease(t *testing.T) {
	transport := newMockTransport()
	transport.respondToRequests(func(id int64, _ string, _ json.RawMessage) string {
		return resultFrame(id, `{}`)
	})
	c := newTestConn(t, transport, time.Second)

	for i := 0; i < 5; i++ {
		_, err := c.Request(context.Background(), "ping", nil)
		require.NoError(t, err)
	}

	var ids []int64
	for _, frame := range transport.sentFrames() {
		var probe struct {
			ID int64 `json:"id"`
		}
		require.NoError(t, json.Unmarshal(frame, &probe))
		ids = append(ids, probe.ID)
	}

	require.Len(t, ids, 5)
	assert.Equal(t, int64(1), ids[0])
	for i := 1; i < len(ids); i++ {
		assert.Greater(t, ids[i], ids[i-1])
	}
}

func TestConcurrentRequestsCorrelateOutOfOrder(t *testing.T) {
	const n = 8

	transport := newMockTransport()

	// Hold every request until all have arrived, then answer them newest
	// first so responses come back in reverse order.
	var pendingMu sync.Mutex
	pending := make([]int64, 0, n)
	transport.respondToRequests(func(id int64, _ string, _ json.RawMessage) string {
		pendingMu.Lock()
		pending = append(pending, id)
		ready := len(pending) == n
		var batch []int64
		if ready {
			batch = append(batch, pending...)
		}
		pendingMu.Unlock()

		if ready {
			for i := len(batch) - 1; i >= 0; i-- {
				transport.push(resultFrame(batch[i], fmt.Sprintf(`{"id":%d}`, batch[i])))
			}
		}
		return ""
	})
	c := newTestConn(t, transport, 5*time.Second)

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			raw, err := c.Request(context.Background(), "tools/list", nil)
			if err == nil && len(raw) == 0 {
				err = errors.New("empty result")
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestRequestTimeoutAndLateResponseDiscarded(t *testing.T) {
	transport := newMockTransport()
	c := newTestConn(t, transport, 50*time.Millisecond)

	_, err := c.Request(context.Background(), "tools/list", nil)
	require.Error(t, err)
	assert.True(t, IsTimeoutError(err))
	assert.ErrorIs(t, err, ErrRequestTimeout)

	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, "tools/list", timeoutErr.Method)

	// The late response for the timed-out id must be discarded without
	// disturbing later requests.
	transport.push(resultFrame(1, `{"late":true}`))

	transport.respondToRequests(func(id int64, _ string, _ json.RawMessage) string {
		return resultFrame(id, `{"ok":true}`)
	})
	raw, err := c.Request(context.Background(), "ping", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(raw))
}

func TestRequestSendFailure(t *testing.T) {
	transport := newMockTransport()
	c := newTestConn(t, transport, time.Second)

	transport.mu.Lock()
	transport.failSend = NewConnectionError("mock", "wire down", nil)
	transport.mu.Unlock()

	_, err := c.Request(context.Background(), "ping", nil)
	require.Error(t, err)
	assert.True(t, IsConnectionError(err))

	// The failed request must not leave a stale waiter behind.
	c.pendingMu.Lock()
	assert.Empty(t, c.pending)
	c.pendingMu.Unlock()
}

func TestRequestContextCancellation(t *testing.T) {
	transport := newMockTransport()
	c := newTestConn(t, transport, time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Request(ctx, "tools/list", nil)
	require.Error(t, err)
	assert.True(t, IsTimeoutError(err))
}

func TestRemoteErrorSurfaced(t *testing.T) {
	transport := newMockTransport()
	transport.respondToRequests(func(id int64, _ string, _ json.RawMessage) string {
		return errorFrame(id, int(protocol.CodeMethodNotFound), "method not found")
	})
	c := newTestConn(t, transport, time.Second)

	_, err := c.Request(context.Background(), "bogus/method", nil)
	require.Error(t, err)
	assert.True(t, IsRemoteError(err))

	var remoteErr *RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, protocol.CodeMethodNotFound, remoteErr.Code)
	assert.Equal(t, "bogus/method", remoteErr.Method)
	assert.Equal(t, "method not found", remoteErr.Message)
}

func TestMalformedFramesDropped(t *testing.T) {
	transport := newMockTransport()
	c := newTestConn(t, transport, time.Second)

	transport.push(`{"jsonrpc":"2.0"`)
	transport.push(`[1,2,3]`)
	transport.push(`{"jsonrpc":"2.0","id":"not-a-number","result":{}}`)

	transport.respondToRequests(func(id int64, _ string, _ json.RawMessage) string {
		return resultFrame(id, `{"alive":true}`)
	})

	raw, err := c.Request(context.Background(), "ping", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"alive":true}`, string(raw))
}

func TestNotifyOmitsID(t *testing.T) {
	transport := newMockTransport()
	c := newTestConn(t, transport, time.Second)

	require.NoError(t, c.Notify(context.Background(), "notifications/initialized", nil))

	frames := transport.sentFrames()
	require.Len(t, frames, 1)

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(frames[0], &fields))
	assert.NotContains(t, fields, "id")
	assert.JSONEq(t, `"notifications/initialized"`, string(fields["method"]))
}

func TestNotificationDispatch(t *testing.T) {
	transport := newMockTransport()
	c := newTestConn(t, transport, time.Second)

	got := make(chan json.RawMessage, 1)
	c.OnNotification("notifications/message", func(params json.RawMessage) {
		got <- params
	})

	transport.push(`{"jsonrpc":"2.0","method":"notifications/message","params":{"level":"info"}}`)

	select {
	case params := <-got:
		assert.JSONEq(t, `{"level":"info"}`, string(params))
	case <-time.After(time.Second):
		t.Fatal("notification handler was not invoked")
	}
}

func TestNotificationHandlerLastWins(t *testing.T) {
	transport := newMockTransport()
	c := newTestConn(t, transport, time.Second)

	first := make(chan struct{}, 1)
	second := make(chan struct{}, 1)
	c.OnNotification("notifications/message", func(json.RawMessage) { first <- struct{}{} })
	c.OnNotification("notifications/message", func(json.RawMessage) { second <- struct{}{} })

	transport.push(`{"jsonrpc":"2.0","method":"notifications/message"}`)

	select {
	case <-second:
	case <-time.After(time.Second):
		t.Fatal("replacement handler was not invoked")
	}
	select {
	case <-first:
		t.Fatal("replaced handler must not be invoked")
	default:
	}
}

func TestNotificationHandlerPanicContained(t *testing.T) {
	transport := newMockTransport()
	c := newTestConn(t, transport, time.Second)

	c.OnNotification("notifications/message", func(json.RawMessage) {
		panic("handler bug")
	})
	transport.push(`{"jsonrpc":"2.0","method":"notifications/message"}`)

	// The pump must survive the panic and keep resolving requests.
	transport.respondToRequests(func(id int64, _ string, _ json.RawMessage) string {
		return resultFrame(id, `{}`)
	})
	_, err := c.Request(context.Background(), "ping", nil)
	assert.NoError(t, err)
}

func TestStopFailsPendingRequests(t *testing.T) {
	transport := newMockTransport()
	require.NoError(t, transport.Connect(context.Background()))
	c := newConn(transport, logx.NewNilLogger(), time.Minute)
	c.start()

	done := make(chan error, 1)
	go func() {
		_, err := c.Request(context.Background(), "tools/list", nil)
		done <- err
	}()

	// Wait for the request frame to hit the wire before closing.
	require.Eventually(t, func() bool {
		return len(transport.sentFrames()) == 1
	}, time.Second, 5*time.Millisecond)

	c.stop()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.True(t, IsConnectionError(err))
		assert.True(t, errors.Is(err, ErrConnectionClosed))
	case <-time.After(time.Second):
		t.Fatal("pending request was not failed by stop")
	}
}

func TestPumpExitsOnEndOfStream(t *testing.T) {
	transport := newMockTransport()
	require.NoError(t, transport.Connect(context.Background()))
	c := newConn(transport, logx.NewNilLogger(), time.Second)
	c.start()

	require.NoError(t, transport.Close())

	select {
	case <-c.pumpDone:
	case <-time.After(time.Second):
		t.Fatal("pump did not exit on end-of-stream")
	}
	c.stop()
}
