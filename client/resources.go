package client

import (
	"context"
	"encoding/json"

	"github.com/dcpkit/godcp/protocol"
)

// ListResourcesResult is the decoded resources/list response.
type ListResourcesResult struct {
	Resources         []protocol.Resource         `json:"resources"`
	ResourceTemplates []protocol.ResourceTemplate `json:"resourceTemplates,omitempty"`
	NextCursor        string                      `json:"nextCursor,omitempty"`
}

// ListResources returns the resources the server exposes. An empty cursor
// requests the first page.
func (c *Client) ListResources(ctx context.Context, cursor string) (*ListResourcesResult, error) {
	conn, err := c.currentConn()
	if err != nil {
		return nil, err
	}

	params := map[string]interface{}{}
	if cursor != "" {
		params["cursor"] = cursor
	}

	raw, err := conn.Request(ctx, protocol.MethodListResources, params)
	if err != nil {
		return nil, err
	}

	var result ListResourcesResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, NewProtocolError("malformed resources/list response", err)
	}
	return &result, nil
}

// ReadResource reads a resource by URI.
func (c *Client) ReadResource(ctx context.Context, uri string) ([]protocol.ResourceContents, error) {
	conn, err := c.currentConn()
	if err != nil {
		return nil, err
	}

	raw, err := conn.Request(ctx, protocol.MethodReadResource, map[string]interface{}{"uri": uri})
	if err != nil {
		return nil, err
	}

	var result struct {
		Contents []protocol.ResourceContents `json:"contents"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, NewProtocolError("malformed resources/read response", err)
	}
	return result.Contents, nil
}

// SubscribeResource subscribes to change notifications for a resource.
func (c *Client) SubscribeResource(ctx context.Context, uri string) error {
	conn, err := c.currentConn()
	if err != nil {
		return err
	}
	_, err = conn.Request(ctx, protocol.MethodSubscribeResource, map[string]interface{}{"uri": uri})
	return err
}

// UnsubscribeResource cancels a resource subscription.
func (c *Client) UnsubscribeResource(ctx context.Context, uri string) error {
	conn, err := c.currentConn()
	if err != nil {
		return err
	}
	_, err = conn.Request(ctx, protocol.MethodUnsubscribeResource, map[string]interface{}{"uri": uri})
	return err
}

// ListResourceTemplates returns the parameterized resource templates from
// the resources/list response.
func (c *Client) ListResourceTemplates(ctx context.Context) ([]protocol.ResourceTemplate, error) {
	result, err := c.ListResources(ctx, "")
	if err != nil {
		return nil, err
	}
	return result.ResourceTemplates, nil
}

// ReadResourceTemplate substitutes params into the template and reads the
// resulting concrete URI. The substitution itself involves no network call.
func (c *Client) ReadResourceTemplate(ctx context.Context, template protocol.ResourceTemplate, params map[string]string) ([]protocol.ResourceContents, error) {
	return c.ReadResource(ctx, template.Substitute(params))
}
