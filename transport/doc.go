// Package transport moves JSON-RPC messages between clients and a Handler.
//
// Stdio reads one request per line from stdin and writes responses to
// stdout:
//
//	err := transport.NewStdio().Serve(ctx, handler)
//
// HTTP serves a chi router:
//   - POST /mcp accepts one JSON-RPC request (application/json only)
//   - GET /health reports "ok", or "draining" during shutdown
//
// Request headers reach handlers through protocol.RequestMeta, which is
// how the auth and request ID middleware read credentials and IDs.
//
// WebSocket accepts one request per text message on any path.
package transport
