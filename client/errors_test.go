package client

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dcpkit/godcp/protocol"
)

func TestConnectionErrorUnwrapsCause(t *testing.T) {
	cause := errors.New("dial refused")
	err := NewConnectionError("127.0.0.1:9000", "failed to connect", cause)

	assert.True(t, IsConnectionError(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "127.0.0.1:9000")
	assert.Contains(t, err.Error(), "dial refused")
}

func TestTimeoutErrorMatchesSentinel(t *testing.T) {
	err := NewTimeoutError("tools/call", 5*time.Second, nil)

	assert.True(t, IsTimeoutError(err))
	assert.ErrorIs(t, err, ErrRequestTimeout)
	assert.Contains(t, err.Error(), "tools/call")
}

func TestCapabilityErrorCarriesVersions(t *testing.T) {
	err := NewCapabilityError("roots not supported", "2025-03-26", "2024-11-05")

	assert.True(t, IsProtocolError(err))

	var protoErr *ProtocolError
	assert.ErrorAs(t, err, &protoErr)
	assert.Equal(t, "2025-03-26", protoErr.RequiredVersion)
	assert.Equal(t, "2024-11-05", protoErr.NegotiatedVersion)
	assert.Contains(t, err.Error(), "2025-03-26")
	assert.Contains(t, err.Error(), "2024-11-05")
}

func TestRemoteErrorFields(t *testing.T) {
	err := NewRemoteError("tools/call", &protocol.ErrorPayload{
		Code:    protocol.CodeInvalidParams,
		Message: "missing argument",
		Data:    map[string]interface{}{"field": "name"},
	})

	assert.True(t, IsRemoteError(err))

	var remoteErr *RemoteError
	assert.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, protocol.CodeInvalidParams, remoteErr.Code)
	assert.Equal(t, "tools/call", remoteErr.Method)

	// Error classes are disjoint.
	assert.False(t, IsTimeoutError(err))
	assert.False(t, IsConnectionError(err))
	assert.False(t, IsProtocolError(err))
}
