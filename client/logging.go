package client

import (
	"context"

	"github.com/dcpkit/godcp/protocol"
)

// SetLogLevel sets the minimum severity of log notifications the server
// emits.
func (c *Client) SetLogLevel(ctx context.Context, level protocol.LoggingLevel) error {
	conn, err := c.currentConn()
	if err != nil {
		return err
	}
	_, err = conn.Request(ctx, protocol.MethodLoggingSetLevel, map[string]interface{}{
		"level": level,
	})
	return err
}
