package client

import (
	"context"
	"encoding/json"

	"github.com/dcpkit/godcp/dcp"
	"github.com/dcpkit/godcp/protocol"
)

// ListRoots returns the filesystem/namespace boundaries the server
// advertises. Requires the roots capability in the negotiated protocol
// version.
func (c *Client) ListRoots(ctx context.Context) ([]protocol.Root, error) {
	conn, err := c.requireCapability("roots", dcp.RootsMinVersion, dcp.Version.SupportsRoots)
	if err != nil {
		return nil, err
	}

	raw, err := conn.Request(ctx, protocol.MethodListRoots, map[string]interface{}{})
	if err != nil {
		return nil, err
	}

	var result struct {
		Roots []protocol.Root `json:"roots"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, NewProtocolError("malformed roots/list response", err)
	}
	return result.Roots, nil
}

// OnRootsChanged registers a callback invoked with the refreshed roots list
// whenever the server announces a change. The refresh is driven by the
// internal roots-changed handler registered during initialization.
func (c *Client) OnRootsChanged(callback func([]protocol.Root)) {
	c.rootsMu.Lock()
	c.rootsChangedCallback = callback
	c.rootsMu.Unlock()
}

// handleRootsChanged is the internal handler for the roots-changed
// notification. The re-fetch runs on its own goroutine: it issues a request
// whose response only the pump can deliver, so it must not block the pump.
func (c *Client) handleRootsChanged(json.RawMessage) {
	c.rootsMu.RLock()
	callback := c.rootsChangedCallback
	c.rootsMu.RUnlock()

	if callback == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.config.DefaultTimeout)
		defer cancel()

		roots, err := c.ListRoots(ctx)
		if err != nil {
			c.logger.Error("failed to refresh roots after change notification: %v", err)
			return
		}
		callback(roots)
	}()
}
