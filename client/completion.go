package client

import (
	"context"
	"encoding/json"

	"github.com/dcpkit/godcp/protocol"
)

// Complete asks the server for completion suggestions for a prompt or
// resource-template argument.
func (c *Client) Complete(ctx context.Context, ref protocol.CompletionRef, argument protocol.CompletionArgument) (*protocol.CompletionResult, error) {
	conn, err := c.currentConn()
	if err != nil {
		return nil, err
	}

	raw, err := conn.Request(ctx, protocol.MethodCompletionComplete, map[string]interface{}{
		"ref":      ref,
		"argument": argument,
	})
	if err != nil {
		return nil, err
	}

	var result protocol.CompletionResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, NewProtocolError("malformed completion/complete response", err)
	}
	return &result, nil
}
