package client

import (
	"context"
	"encoding/json"

	"github.com/dcpkit/godcp/protocol"
)

// ListPrompts returns the prompts the server exposes.
func (c *Client) ListPrompts(ctx context.Context) ([]protocol.Prompt, error) {
	conn, err := c.currentConn()
	if err != nil {
		return nil, err
	}

	raw, err := conn.Request(ctx, protocol.MethodListPrompts, map[string]interface{}{})
	if err != nil {
		return nil, err
	}

	var result struct {
		Prompts []protocol.Prompt `json:"prompts"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, NewProtocolError("malformed prompts/list response", err)
	}
	return result.Prompts, nil
}

// GetPrompt renders a prompt with the given arguments.
func (c *Client) GetPrompt(ctx context.Context, name string, arguments map[string]string) (*protocol.GetPromptResult, error) {
	conn, err := c.currentConn()
	if err != nil {
		return nil, err
	}

	params := map[string]interface{}{"name": name}
	if arguments != nil {
		params["arguments"] = arguments
	}

	raw, err := conn.Request(ctx, protocol.MethodGetPrompt, params)
	if err != nil {
		return nil, err
	}

	var result protocol.GetPromptResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, NewProtocolError("malformed prompts/get response", err)
	}
	return &result, nil
}
