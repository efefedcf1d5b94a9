package client

import (
	"encoding/json"

	"github.com/dcpkit/godcp/dcp"
	"github.com/dcpkit/godcp/protocol"
)

// ElicitationHandler produces the client's reply to a server-initiated
// request for user input. It runs synchronously on the receive pump.
type ElicitationHandler func(protocol.ElicitationRequest) protocol.ElicitationResponse

// HandleElicitation registers the handler for server-initiated elicitation.
// Requires the elicitation capability in the negotiated protocol version.
//
// Elicitation travels as a notification pair: the server's elicitation
// request arrives as a notification, and the handler's response is sent
// back as a notification. No request id is allocated in either direction.
func (c *Client) HandleElicitation(handler ElicitationHandler) error {
	conn, err := c.requireCapability("elicitation", dcp.ElicitationMinVersion, dcp.Version.SupportsElicitation)
	if err != nil {
		return err
	}

	conn.OnNotification(protocol.MethodElicitationCreate, func(params json.RawMessage) {
		var request protocol.ElicitationRequest
		if len(params) > 0 {
			if err := json.Unmarshal(params, &request); err != nil {
				c.logger.Warn("dropping malformed elicitation request: %v", err)
				return
			}
		}

		response := handler(request)
		if err := conn.Notify(conn.pumpCtx, protocol.MethodElicitationRespond, response); err != nil {
			c.logger.Error("failed to send elicitation response: %v", err)
		}
	})
	return nil
}
