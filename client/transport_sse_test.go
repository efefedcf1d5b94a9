package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcpkit/godcp/logx"
)

func TestSSETransportRoundTrip(t *testing.T) {
	posts := make(chan []byte, 4)
	postSessions := make(chan string, 4)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.Header().Set("Content-Type", "text/event-stream")
			w.Header().Set(sessionIDHeader, "server-session")
			w.WriteHeader(http.StatusOK)
			flusher := w.(http.Flusher)
			flusher.Flush()

			fmt.Fprint(w, "data: {\"jsonrpc\":\"2.0\",\"id\":1,\"result\":{}}\n\n")
			flusher.Flush()
			<-r.Context().Done()
		case http.MethodPost:
			body, _ := io.ReadAll(r.Body)
			posts <- body
			postSessions <- r.Header.Get(sessionIDHeader)
			w.WriteHeader(http.StatusAccepted)
		}
	}))
	defer server.Close()

	transport, err := NewSSETransport(server.URL, logx.NewNilLogger())
	require.NoError(t, err)
	require.NoError(t, transport.Connect(context.Background()))
	defer transport.Close()

	assert.True(t, transport.IsConnected())

	received, err := transport.Receive(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":1,"result":{}}`, string(received))

	frame := []byte(`{"jsonrpc":"2.0","id":2,"method":"ping"}`)
	require.NoError(t, transport.Send(context.Background(), frame))

	select {
	case body := <-posts:
		assert.Equal(t, frame, body)
	case <-time.After(time.Second):
		t.Fatal("frame was not posted")
	}

	// The server-assigned session id replaces the generated one.
	assert.Equal(t, "server-session", <-postSessions)
}

func TestSSETransportResumesWithLastEventID(t *testing.T) {
	var gets atomic.Int32
	resumeIDs := make(chan string, 4)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusAccepted)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher := w.(http.Flusher)
		flusher.Flush()

		if gets.Add(1) == 1 {
			// First stream delivers one event and drops.
			fmt.Fprint(w, "id: 41\ndata: {\"n\":1}\n\n")
			flusher.Flush()
			return
		}

		resumeIDs <- r.Header.Get("Last-Event-ID")
		fmt.Fprint(w, "data: {\"n\":2}\n\n")
		flusher.Flush()
		<-r.Context().Done()
	}))
	defer server.Close()

	transport, err := NewSSETransport(server.URL, logx.NewNilLogger(),
		WithTransportRetryStrategy(NewNoBackoff(5)))
	require.NoError(t, err)
	require.NoError(t, transport.Connect(context.Background()))
	defer transport.Close()

	first, err := transport.Receive(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":1}`, string(first))

	second, err := transport.Receive(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":2}`, string(second))

	select {
	case id := <-resumeIDs:
		assert.Equal(t, "41", id)
	case <-time.After(time.Second):
		t.Fatal("stream was not resumed")
	}
}

func TestSSETransportReceiveEOFWhenResumeExhausted(t *testing.T) {
	var gets atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gets.Add(1) > 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
	}))
	defer server.Close()

	transport, err := NewSSETransport(server.URL, logx.NewNilLogger(),
		WithTransportRetryStrategy(NewNoBackoff(2)))
	require.NoError(t, err)
	require.NoError(t, transport.Connect(context.Background()))
	defer transport.Close()

	_, err = transport.Receive(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestSSETransportConnectRejectsBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	transport, err := NewSSETransport(server.URL, logx.NewNilLogger())
	require.NoError(t, err)

	err = transport.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, IsConnectionError(err))
	assert.False(t, transport.IsConnected())
}

func TestSSETransportSendRejectsBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.Header().Set("Content-Type", "text/event-stream")
			w.WriteHeader(http.StatusOK)
			w.(http.Flusher).Flush()
			<-r.Context().Done()
			return
		}
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	transport, err := NewSSETransport(server.URL, logx.NewNilLogger())
	require.NoError(t, err)
	require.NoError(t, transport.Connect(context.Background()))
	defer transport.Close()

	err = transport.Send(context.Background(), []byte(`{}`))
	require.Error(t, err)
	assert.True(t, IsConnectionError(err))
}

func TestSSETransportInvalidEndpoint(t *testing.T) {
	_, err := NewSSETransport("://not-a-url", logx.NewNilLogger())
	assert.Error(t, err)
}

func TestSSETransportCloseUnblocksReceive(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer server.Close()

	transport, err := NewSSETransport(server.URL, logx.NewNilLogger())
	require.NoError(t, err)
	require.NoError(t, transport.Connect(context.Background()))

	done := make(chan error, 1)
	go func() {
		_, err := transport.Receive(context.Background())
		done <- err
	}()

	require.NoError(t, transport.Close())

	select {
	case err := <-done:
		assert.ErrorIs(t, err, io.EOF)
	case <-time.After(2 * time.Second):
		t.Fatal("Receive did not unblock after Close")
	}
	assert.False(t, transport.IsConnected())
}
