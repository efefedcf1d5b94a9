package client

import (
	"context"
	"encoding/json"

	"github.com/dcpkit/godcp/protocol"
)

// ListTools returns the tools the server exposes.
func (c *Client) ListTools(ctx context.Context) ([]protocol.Tool, error) {
	conn, err := c.currentConn()
	if err != nil {
		return nil, err
	}

	raw, err := conn.Request(ctx, protocol.MethodListTools, map[string]interface{}{})
	if err != nil {
		return nil, err
	}

	var result struct {
		Tools []protocol.Tool `json:"tools"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, NewProtocolError("malformed tools/list response", err)
	}
	return result.Tools, nil
}

// CallTool invokes a tool by name with the given arguments.
func (c *Client) CallTool(ctx context.Context, name string, arguments map[string]interface{}) (*protocol.CallToolResult, error) {
	conn, err := c.currentConn()
	if err != nil {
		return nil, err
	}

	params := map[string]interface{}{"name": name}
	if arguments != nil {
		params["arguments"] = arguments
	}

	raw, err := conn.Request(ctx, protocol.MethodCallTool, params)
	if err != nil {
		return nil, err
	}

	var result protocol.CallToolResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, NewProtocolError("malformed tools/call response", err)
	}
	return &result, nil
}
