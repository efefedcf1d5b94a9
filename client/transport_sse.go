package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tmaxmax/go-sse"

	"github.com/dcpkit/godcp/logx"
)

// Header carrying the session identifier on outbound POSTs.
const sessionIDHeader = "Dcp-Session-Id"

// sseTransport implements Transport over HTTP: outbound frames travel as
// individual POST bodies, inbound frames arrive on a long-lived server-push
// event stream. A dedicated listener goroutine decodes events into an
// internal queue; Receive dequeues from it. A dropped stream is resumed
// with a Last-Event-ID header under the configured retry strategy.
type sseTransport struct {
	endpoint  string
	options   *TransportOptions
	logger    logx.Logger
	client    *http.Client
	sessionID string

	connMu    sync.RWMutex
	connected bool

	eventMu     sync.Mutex
	lastEventID string

	queue        chan []byte
	listenerDone chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
}

// NewSSETransport creates a transport that POSTs frames to the given
// endpoint URL and listens for inbound frames on its event stream. The
// session id attached to outbound POSTs is generated client-side and
// replaced by the server-assigned one when the stream response carries it.
func NewSSETransport(endpoint string, logger logx.Logger, options ...TransportOption) (Transport, error) {
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, NewConnectionError(endpoint, "invalid endpoint URL", err)
	}

	opts := DefaultTransportOptions()
	for _, option := range options {
		option(opts)
	}
	if logger == nil {
		logger = logx.NewNilLogger()
	}

	return &sseTransport{
		endpoint:  parsed.String(),
		options:   opts,
		logger:    logger,
		client:    opts.HTTPClient,
		sessionID: uuid.NewString(),
	}, nil
}

// Connect opens the event stream and starts the listener goroutine.
func (t *sseTransport) Connect(ctx context.Context) error {
	t.connMu.Lock()
	defer t.connMu.Unlock()

	if t.connected {
		return NewConnectionError(t.endpoint, "already connected", ErrAlreadyConnected)
	}

	// The stream outlives the caller's ctx; its lifecycle is owned by the
	// transport and ended by Close.
	t.ctx, t.cancel = context.WithCancel(context.Background())
	t.queue = make(chan []byte, 64)
	t.listenerDone = make(chan struct{})

	resp, err := t.openStream()
	if err != nil {
		t.cancel()
		return err
	}

	if sessionID := resp.Header.Get(sessionIDHeader); sessionID != "" {
		t.sessionID = sessionID
	}

	go t.listen(resp.Body)

	t.connected = true
	t.logger.Info("sse transport connected to %s (session %s)", t.endpoint, t.sessionID)
	return nil
}

// openStream issues the long-lived GET, attaching the Last-Event-ID header
// when resuming. The request is bound to the transport's own context so the
// stream survives until Close; ConnectTimeout bounds only the header
// exchange.
func (t *sseTransport) openStream() (*http.Response, error) {
	streamCtx := t.ctx
	var timer *time.Timer
	if t.options.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		streamCtx, cancel = context.WithCancel(t.ctx)
		timer = time.AfterFunc(t.options.ConnectTimeout, cancel)
	}

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, t.endpoint, nil)
	if err != nil {
		return nil, NewConnectionError(t.endpoint, "failed to create stream request", err)
	}

	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set(sessionIDHeader, t.sessionID)
	for k, values := range t.options.Headers {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}

	t.eventMu.Lock()
	if t.lastEventID != "" {
		req.Header.Set("Last-Event-ID", t.lastEventID)
	}
	t.eventMu.Unlock()

	resp, err := t.client.Do(req)
	if timer != nil {
		timer.Stop()
	}
	if err != nil {
		return nil, NewConnectionError(t.endpoint, "failed to open event stream", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, NewConnectionError(t.endpoint,
			fmt.Sprintf("unexpected status code %d from event stream", resp.StatusCode), nil)
	}
	return resp, nil
}

// listen reads the event stream into the queue, resuming dropped streams
// until the retry strategy is exhausted or the transport is closed. Closing
// the queue is the end-of-stream marker Receive relays to the pump.
func (t *sseTransport) listen(body io.ReadCloser) {
	defer close(t.listenerDone)
	defer close(t.queue)

	for {
		t.readStream(body)
		body.Close()

		if t.ctx.Err() != nil {
			return
		}

		resumed := false
		strategy := t.options.RetryStrategy
		if strategy == nil {
			return
		}
		for attempt := 1; strategy.MaxAttempts() == 0 || attempt <= strategy.MaxAttempts(); attempt++ {
			select {
			case <-time.After(strategy.NextDelay(attempt)):
			case <-t.ctx.Done():
				return
			}

			resp, err := t.openStream()
			if err != nil {
				t.logger.Warn("failed to resume event stream (attempt %d): %v", attempt, err)
				continue
			}
			t.logger.Info("event stream resumed after %d attempt(s)", attempt)
			body = resp.Body
			resumed = true
			break
		}
		if !resumed {
			t.logger.Error("giving up on event stream to %s", t.endpoint)
			return
		}
	}
}

// readStream decodes events until the stream errors or ends.
func (t *sseTransport) readStream(body io.Reader) {
	for event, err := range sse.Read(body, nil) {
		if err != nil {
			if t.ctx.Err() == nil {
				t.logger.Warn("event stream interrupted: %v", err)
			}
			return
		}

		if event.LastEventID != "" {
			t.eventMu.Lock()
			t.lastEventID = event.LastEventID
			t.eventMu.Unlock()
		}

		if event.Data == "" {
			continue
		}

		select {
		case t.queue <- []byte(event.Data):
		case <-t.ctx.Done():
			return
		}
	}
}

// Send transmits one frame as an HTTP POST body.
func (t *sseTransport) Send(ctx context.Context, frame []byte) error {
	if !t.IsConnected() {
		return NewConnectionError(t.endpoint, "not connected", ErrNotConnected)
	}

	if t.options.WriteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.options.WriteTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(frame))
	if err != nil {
		return NewConnectionError(t.endpoint, "failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(sessionIDHeader, t.sessionID)
	for k, values := range t.options.Headers {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return NewConnectionError(t.endpoint, "failed to send frame", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return NewConnectionError(t.endpoint,
			fmt.Sprintf("unexpected status code %d", resp.StatusCode), nil)
	}
	return nil
}

// Receive dequeues the next inbound frame. It returns io.EOF once the
// listener has terminated and the queue is drained.
func (t *sseTransport) Receive(ctx context.Context) ([]byte, error) {
	t.connMu.RLock()
	queue := t.queue
	t.connMu.RUnlock()

	if queue == nil {
		return nil, NewConnectionError(t.endpoint, "not connected", ErrNotConnected)
	}

	select {
	case frame, ok := <-queue:
		if !ok {
			return nil, io.EOF
		}
		return frame, nil
	case <-ctx.Done():
		return nil, io.EOF
	}
}

// Close stops the listener and tears down the stream.
func (t *sseTransport) Close() error {
	t.connMu.Lock()
	defer t.connMu.Unlock()

	if !t.connected {
		return nil
	}
	t.connected = false

	t.cancel()
	<-t.listenerDone
	t.logger.Info("sse transport disconnected from %s", t.endpoint)
	return nil
}

// IsConnected reports whether the transport is usable.
func (t *sseTransport) IsConnected() bool {
	t.connMu.RLock()
	defer t.connMu.RUnlock()
	return t.connected && t.ctx.Err() == nil
}
