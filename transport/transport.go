package transport

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/mcp-toolbox/protocol"
)

// Handler processes incoming MCP requests.
type Handler interface {
	HandleRequest(ctx context.Context, req *protocol.Request) (*protocol.Response, error)
}

// HandlerFunc is an adapter to allow ordinary functions as handlers.
type HandlerFunc func(ctx context.Context, req *protocol.Request) (*protocol.Response, error)

// HandleRequest calls f(ctx, req).
func (f HandlerFunc) HandleRequest(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	return f(ctx, req)
}

// Transport defines the communication layer interface.
type Transport interface {
	// Serve starts the transport, blocking until ctx is canceled or an error occurs.
	Serve(ctx context.Context, handler Handler) error

	// Addr returns the transport's address description.
	Addr() string
}

// dispatch runs handler and folds a returned error into a JSON-RPC error
// response. It returns nil for notifications.
func dispatch(ctx context.Context, handler Handler, req *protocol.Request) *protocol.Response {
	resp, err := handler.HandleRequest(ctx, req)
	if req.IsNotification() {
		return nil
	}
	if err != nil {
		var rpcErr *protocol.Error
		if !errors.As(err, &rpcErr) {
			rpcErr = protocol.NewInternalError(err.Error())
		}
		return protocol.NewErrorResponse(req.ID, rpcErr)
	}
	return resp
}
