// Package godcp provides a Go client implementation of the Data Context
// Protocol (DCP).
//
// # Overview
//
// DCP is a JSON-RPC 2.0 based protocol for connecting applications to
// context servers that expose tools, resources, and prompts. This library
// implements the client side of the protocol with support for all published
// specification versions (2024-11-05, 2025-03-26, and 2025-06-18) and
// automatic version negotiation during the initialize handshake.
//
// # Core Features
//
// - Full DCP client implementation
// - Multiple transport options (TCP, stdio subprocess, SSE, WebSocket)
// - Automatic protocol version negotiation with capability gating
// - Concurrent request correlation over a single connection
// - Server-initiated elicitation and roots change notifications
// - Flexible configuration options
//
// # Organization
//
// The library is organized into the following main packages:
//
//   - github.com/dcpkit/godcp/client: Client session, transports, and the
//     typed protocol surface
//   - github.com/dcpkit/godcp/protocol: JSON-RPC framing and DCP message
//     definitions
//   - github.com/dcpkit/godcp/dcp: Protocol version handling and capability
//     predicates
//
// # Basic Usage
//
//	import "github.com/dcpkit/godcp/client"
//
//	transport := client.NewStdioTransport("dcp-server", nil, nil)
//	c := client.New(transport, client.WithClientInfo("my-app", "1.0.0"))
//
//	if err := c.Connect(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close()
//
//	if _, err := c.Initialize(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	tools, err := c.ListTools(ctx)
package godcp

// Version is the current version of the godcp library.
const Version = "0.1.0"
