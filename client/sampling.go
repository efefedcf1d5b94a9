package client

import (
	"context"
	"encoding/json"

	"github.com/dcpkit/godcp/protocol"
)

// CreateMessageRequest describes an LLM sampling request.
type CreateMessageRequest struct {
	Messages         []protocol.SamplingMessage
	ModelPreferences map[string]interface{}
	SystemPrompt     string
	MaxTokens        int
}

// CreateMessage asks the peer to sample a message from its model.
func (c *Client) CreateMessage(ctx context.Context, req CreateMessageRequest) (*protocol.CreateMessageResult, error) {
	conn, err := c.currentConn()
	if err != nil {
		return nil, err
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	params := map[string]interface{}{
		"messages":  req.Messages,
		"maxTokens": maxTokens,
	}
	if req.ModelPreferences != nil {
		params["modelPreferences"] = req.ModelPreferences
	}
	if req.SystemPrompt != "" {
		params["systemPrompt"] = req.SystemPrompt
	}

	raw, err := conn.Request(ctx, protocol.MethodSamplingCreateMessage, params)
	if err != nil {
		return nil, err
	}

	var result protocol.CreateMessageResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, NewProtocolError("malformed sampling/createMessage response", err)
	}
	return &result, nil
}
